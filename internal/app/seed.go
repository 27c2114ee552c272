package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/samwel-gachiri/digital-sales-agent/internal/domain/model"
	"github.com/samwel-gachiri/digital-sales-agent/pkg/logger"
)

// DemoProspects returns the sample prospects loaded by WithSeedDemo.
func DemoProspects() []*model.Prospect {
	return []*model.Prospect{
		{
			ID:          "prospect_1",
			CompanyName: "TechStart Inc",
			Domain:      "techstart.com",
			Industry:    "Technology",
			Contacts: []model.Contact{{
				ID:            "contact_1",
				Name:          "John Smith",
				Email:         "john.smith@techstart.com",
				Phone:         "+1-555-0123",
				Title:         "CEO",
				Department:    "Executive",
				DecisionMaker: true,
				LinkedInURL:   "https://linkedin.com/in/johnsmith",
			}},
			Research: &model.ResearchData{
				CompanySize:      "50-100 employees",
				Revenue:          "$5M-10M",
				FundingStage:     "Series A",
				RecentNews:       []string{"Raised $8M Series A", "Launched new product line"},
				Competitors:      []string{"CompetitorA", "CompetitorB"},
				PainPoints:       []string{"Manual processes", "Scaling challenges"},
				TechStack:        []string{"React", "Node.js", "AWS"},
				BudgetIndicators: []string{"Recent funding", "Growing team"},
			},
			DealStage: model.StageQualified,
		},
		{
			ID:          "prospect_2",
			CompanyName: "FinanceFlow Ltd",
			Domain:      "financeflow.com",
			Industry:    "Finance",
			Contacts: []model.Contact{{
				ID:            "contact_2",
				Name:          "Sarah Johnson",
				Email:         "sarah.johnson@financeflow.com",
				Title:         "CTO",
				Department:    "Technology",
				DecisionMaker: true,
			}},
			Research: &model.ResearchData{
				CompanySize:      "100-200 employees",
				Revenue:          "$10M-25M",
				FundingStage:     "Series B",
				RecentNews:       []string{"Expanded to new markets", "Hired new VP of Sales"},
				Competitors:      []string{"FinTechCorp", "MoneyFlow"},
				PainPoints:       []string{"Compliance overhead", "Integration challenges"},
				TechStack:        []string{"Python", "PostgreSQL", "GCP"},
				BudgetIndicators: []string{"Strong revenue growth", "Recent expansion"},
			},
			DealStage: model.StageContacted,
		},
	}
}

// seed stores and scores the demo prospects. Prospects that already exist
// are left untouched.
func (s *Service) seed(ctx context.Context, c *components) error {
	for _, p := range DemoProspects() {
		id, err := c.prospects.Create(ctx, p)
		if errors.Is(err, ErrConflict) {
			continue
		}
		if err != nil {
			return fmt.Errorf("seed %s: %w", p.ID, err)
		}
		if _, err := s.scoreNow(ctx, c, id); err != nil {
			return fmt.Errorf("score seeded %s: %w", id, err)
		}
		s.logger.Info(ctx, "seeded demo prospect",
			logger.String("prospect_id", id),
			logger.String("company", p.CompanyName),
		)
	}
	return nil
}
