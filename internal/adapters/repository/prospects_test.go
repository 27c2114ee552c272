package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/samwel-gachiri/digital-sales-agent/internal/domain/model"
	"github.com/samwel-gachiri/digital-sales-agent/internal/domain/scoring"
)

func newProspect(name string) *model.Prospect {
	return &model.Prospect{
		CompanyName: name,
		Domain:      "example.com",
		Industry:    "Technology",
		Contacts: []model.Contact{
			{ID: "c1", Name: "John Smith", Title: "CEO", DecisionMaker: true},
		},
		Research: &model.ResearchData{
			FundingStage: "Series A",
			PainPoints:   []string{"Scaling sales process"},
		},
		Conversation: model.ConversationNotes{Timeline: "next quarter"},
	}
}

// prospectStores returns every Prospects implementation under test.
func prospectStores(t *testing.T) map[string]Prospects {
	t.Helper()
	sqlite, err := OpenSQLite(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]Prospects{
		"memory": NewMemoryProspects(),
		"sqlite": sqlite,
	}
}

func TestProspects_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	for name, store := range prospectStores(t) {
		t.Run(name, func(t *testing.T) {
			in := newProspect("TechStart Inc")
			id, err := store.Create(ctx, in)
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			if id == "" {
				t.Fatal("expected a generated id")
			}
			if in.ID != "" {
				t.Error("create must not modify the caller's prospect")
			}

			got, err := store.Get(ctx, id)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got.CompanyName != "TechStart Inc" || got.DealStage != model.StageDiscovered {
				t.Errorf("unexpected prospect: %+v", got)
			}
			if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
				t.Error("expected timestamps to be set")
			}
			if got.Research == nil || got.Research.FundingStage != "Series A" {
				t.Errorf("research data not persisted: %+v", got.Research)
			}

			// returned values are copies
			got.Contacts[0].Title = "Intern"
			again, _ := store.Get(ctx, id)
			if again.Contacts[0].Title != "CEO" {
				t.Error("mutating a returned prospect changed the stored one")
			}
		})
	}
}

func TestProspects_CreateErrors(t *testing.T) {
	ctx := context.Background()
	for name, store := range prospectStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := store.Create(ctx, &model.Prospect{}); !errors.Is(err, model.ErrInvalidProspect) {
				t.Errorf("expected ErrInvalidProspect, got %v", err)
			}
			if _, err := store.Create(ctx, nil); !errors.Is(err, model.ErrInvalidProspect) {
				t.Errorf("expected ErrInvalidProspect for nil, got %v", err)
			}

			p := newProspect("Dup Corp")
			p.ID = "prospect_1"
			if _, err := store.Create(ctx, p); err != nil {
				t.Fatalf("create: %v", err)
			}
			if _, err := store.Create(ctx, p); !errors.Is(err, ErrConflict) {
				t.Errorf("expected ErrConflict, got %v", err)
			}
			if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestProspects_ListAndCount(t *testing.T) {
	ctx := context.Background()
	for name, store := range prospectStores(t) {
		t.Run(name, func(t *testing.T) {
			names := []string{"Alpha", "Beta", "Gamma"}
			for i, n := range names {
				p := newProspect(n)
				p.ID = fmt.Sprintf("prospect_%d", i+1)
				if _, err := store.Create(ctx, p); err != nil {
					t.Fatalf("create %s: %v", n, err)
				}
			}

			count, err := store.Count(ctx)
			if err != nil || count != 3 {
				t.Fatalf("expected count 3, got %d (%v)", count, err)
			}

			list, err := store.List(ctx)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(list) != 3 {
				t.Fatalf("expected 3 prospects, got %d", len(list))
			}
			for i, p := range list {
				if p.CompanyName != names[i] {
					t.Errorf("position %d: expected %s, got %s", i, names[i], p.CompanyName)
				}
			}
		})
	}
}

func TestProspects_Update(t *testing.T) {
	ctx := context.Background()
	for name, store := range prospectStores(t) {
		t.Run(name, func(t *testing.T) {
			id, err := store.Create(ctx, newProspect("FinanceFlow Ltd"))
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			before, _ := store.Get(ctx, id)

			score := scoring.NewScore(9, 10, 8, 6)
			updated, err := store.Update(ctx, id, func(p *model.Prospect) error {
				p.LeadScore = &score
				p.DealStage = model.StageQualified
				p.ID = "hijacked"
				return nil
			})
			if err != nil {
				t.Fatalf("update: %v", err)
			}
			if updated.ID != id {
				t.Errorf("update must not change the id, got %s", updated.ID)
			}
			if updated.LeadScore == nil || updated.LeadScore.Overall() != score.Overall() {
				t.Errorf("lead score not applied: %+v", updated.LeadScore)
			}

			got, _ := store.Get(ctx, id)
			if got.DealStage != model.StageQualified {
				t.Errorf("expected stage qualified, got %s", got.DealStage)
			}
			if got.LeadScore == nil || got.LeadScore.Category() != scoring.CategoryHot {
				t.Errorf("expected persisted hot score, got %+v", got.LeadScore)
			}
			if !got.CreatedAt.Equal(before.CreatedAt) {
				t.Error("update must keep the creation time")
			}

			boom := errors.New("boom")
			if _, err := store.Update(ctx, id, func(p *model.Prospect) error {
				p.CompanyName = "Changed"
				return boom
			}); !errors.Is(err, boom) {
				t.Errorf("expected fn error, got %v", err)
			}
			got, _ = store.Get(ctx, id)
			if got.CompanyName != "FinanceFlow Ltd" {
				t.Error("failed update must not persist changes")
			}

			if _, err := store.Update(ctx, "missing", func(*model.Prospect) error { return nil }); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestProspects_ConcurrentUpdates(t *testing.T) {
	ctx := context.Background()
	for name, store := range prospectStores(t) {
		t.Run(name, func(t *testing.T) {
			id, err := store.Create(ctx, newProspect("Counter Co"))
			if err != nil {
				t.Fatalf("create: %v", err)
			}

			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, _ = store.Update(ctx, id, func(p *model.Prospect) error {
						p.Contacts = append(p.Contacts, model.Contact{Name: "x"})
						return nil
					})
				}()
			}
			wg.Wait()

			got, _ := store.Get(ctx, id)
			if len(got.Contacts) != 21 {
				t.Errorf("expected 21 contacts, got %d", len(got.Contacts))
			}
		})
	}
}
