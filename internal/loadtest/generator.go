package loadtest

import (
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/samwel-gachiri/digital-sales-agent/internal/domain/model"
)

// Phrase pools mix every lexicon tier with neutral filler so generated
// prospects spread across hot, warm and cold.
var (
	titles = []string{
		"CEO", "CTO", "VP Sales", "Director of Operations", "Founder",
		"Engineering Manager", "Senior Developer", "Team Lead",
		"Business Analyst", "Sales Coordinator", "Junior Associate", "Consultant",
	}
	departments   = []string{"Executive", "Leadership", "Engineering", "Sales", "Finance", ""}
	fundingStages = []string{"Series A", "Series B", "Seed funding", "Bootstrap", "Pre-revenue", "IPO", ""}
	budgetSignals = []string{
		"Strong revenue growth", "Profitable", "Recent funding", "Stable revenue",
		"Break even", "Cost cutting", "Growing team",
	}
	painPoints = []string{
		"Urgent reporting problem", "Critical compliance challenge", "Needs process improvement",
		"Considering an upgrade", "Exploring options", "Nice to have automation",
		"Manual processes", "Scaling issues",
	}
	timelines = []string{
		"ASAP", "This quarter", "Next quarter", "3-6 months", "This year",
		"Next year", "Someday", "Not discussed",
	}
	industries = []string{"Technology", "Finance", "Healthcare", "Retail", "Manufacturing"}
)

// generator builds prospects from a seeded source so runs can be replayed.
type generator struct {
	rng *rand.Rand
}

func newGenerator(seed uint64) *generator {
	return &generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (g *generator) pick(pool []string) string {
	return pool[g.rng.IntN(len(pool))]
}

func (g *generator) some(pool []string, max int) []string {
	n := g.rng.IntN(max + 1)
	out := make([]string, 0, n)
	for range n {
		out = append(out, g.pick(pool))
	}
	return out
}

// generate returns n prospects with unique ids and company names.
func (g *generator) generate(n int) []Generated {
	out := make([]Generated, n)
	for i := range out {
		id := "lt_" + uuid.NewString()
		out[i] = Generated{
			Prospect: &model.Prospect{
				ID:          id,
				CompanyName: fmt.Sprintf("Load Test Co %d", i+1),
				Domain:      fmt.Sprintf("loadtest-%d.example.com", i+1),
				Industry:    g.pick(industries),
				Contacts: []model.Contact{{
					ID:            id + "_c1",
					Name:          fmt.Sprintf("Contact %d", i+1),
					Title:         g.pick(titles),
					Department:    g.pick(departments),
					DecisionMaker: g.rng.IntN(3) == 0,
				}},
				Research: &model.ResearchData{
					FundingStage:     g.pick(fundingStages),
					BudgetIndicators: g.some(budgetSignals, 2),
					PainPoints:       g.some(painPoints, 1),
				},
			},
			Notes: model.ConversationNotes{
				PainPoints: g.pick(painPoints),
				Timeline:   g.pick(timelines),
			},
			RequestID: uuid.NewString(),
		}
	}
	return out
}
