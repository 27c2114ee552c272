package service_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/samwel-gachiri/digital-sales-agent/internal/adapters/repository"
	service "github.com/samwel-gachiri/digital-sales-agent/internal/app"
	"github.com/samwel-gachiri/digital-sales-agent/internal/domain/model"
	"github.com/samwel-gachiri/digital-sales-agent/internal/domain/types"
	"github.com/samwel-gachiri/digital-sales-agent/pkg/logger"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

// gatedProspects blocks every Update until release is called. Updates
// arriving while open is set pass straight through.
type gatedProspects struct {
	repository.Prospects
	gate chan struct{}
	once sync.Once
	open atomic.Bool
}

func newGatedProspects() *gatedProspects {
	return &gatedProspects{Prospects: repository.NewMemoryProspects(), gate: make(chan struct{})}
}

func (g *gatedProspects) release() { g.once.Do(func() { close(g.gate) }) }

func (g *gatedProspects) Update(ctx context.Context, id string, fn func(*model.Prospect) error) (*model.Prospect, error) {
	if g.open.Load() {
		return g.Prospects.Update(ctx, id, fn)
	}
	select {
	case <-g.gate:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return g.Prospects.Update(ctx, id, fn)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.LeadScored
}

func (r *recordingPublisher) Publish(_ context.Context, e model.LeadScored) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

func (r *recordingPublisher) snapshot() []model.LeadScored {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.LeadScored(nil), r.events...)
}

func TestServiceIntegration_DemoPipeline(t *testing.T) {
	Convey("Given a service seeded with the demo prospects", t, func() {
		ctx := context.Background()
		pub := &recordingPublisher{}
		svc := startService(service.WithSeedDemo(true), service.WithPublisher(pub))

		Convey("When the leads are listed", func() {
			top, err := svc.TopN(ctx, 10, "")

			Convey("Then FinanceFlow outranks TechStart", func() {
				So(err, ShouldBeNil)
				So(top, ShouldHaveLength, 2)
				So(top[0].ProspectID, ShouldEqual, "prospect_2")
				So(top[0].Overall, ShouldEqual, 8.4)
				So(top[0].Category, ShouldEqual, "hot")
				So(top[0].Rank, ShouldEqual, 1)
				So(top[1].ProspectID, ShouldEqual, "prospect_1")
				So(top[1].Overall, ShouldEqual, 7.9)
				So(top[1].Category, ShouldEqual, "warm")
				So(top[1].Rank, ShouldEqual, 2)
			})
		})

		Convey("When the leads are filtered by category", func() {
			warm, err := svc.TopN(ctx, 10, "warm")
			So(err, ShouldBeNil)
			cold, err := svc.TopN(ctx, 10, "cold")
			So(err, ShouldBeNil)

			Convey("Then only matching leads are returned", func() {
				So(warm, ShouldHaveLength, 1)
				So(warm[0].ProspectID, ShouldEqual, "prospect_1")
				So(cold, ShouldBeEmpty)
			})
		})

		Convey("When the request is invalid", func() {
			_, catErr := svc.TopN(ctx, 10, "lukewarm")
			_, limitErr := svc.TopN(ctx, 0, "")

			Convey("Then the error says why", func() {
				So(errors.Is(catErr, service.ErrUnknownCategory), ShouldBeTrue)
				So(errors.Is(limitErr, service.ErrInvalidLimit), ShouldBeTrue)
			})
		})

		Convey("When analytics are requested", func() {
			a, err := svc.Analytics(ctx)

			Convey("Then they summarise the pipeline", func() {
				So(err, ShouldBeNil)
				So(a.TotalProspects, ShouldEqual, 2)
				So(a.QualifiedLeads, ShouldEqual, 2)
				So(a.HotLeads, ShouldEqual, 1)
				So(a.ConversionRate, ShouldEqual, 100.0)
				So(a.PipelineStages, ShouldResemble, map[string]int{"qualified": 1, "contacted": 1})
				So(a.AverageLeadScore, ShouldAlmostEqual, 8.15, 0.051)
			})
		})

		Convey("When an unscored prospect joins", func() {
			_, err := svc.CreateProspect(ctx, &model.Prospect{
				CompanyName: "Quiet Corp",
				Contacts:    []model.Contact{{Name: "Alex", Title: "Junior Analyst"}},
			})
			So(err, ShouldBeNil)
			a, err := svc.Analytics(ctx)

			Convey("Then the conversion rate counts every prospect", func() {
				So(err, ShouldBeNil)
				So(a.TotalProspects, ShouldEqual, 3)
				So(a.ConversionRate, ShouldEqual, 66.7)
				So(a.PipelineStages["discovered"], ShouldEqual, 1)
			})
		})

		Convey("When a lead is scored again", func() {
			_, err := svc.ScoreNow(ctx, "prospect_1")
			So(err, ShouldBeNil)

			Convey("Then a scored event carries its rank", func() {
				events := pub.snapshot()
				So(len(events), ShouldBeGreaterThanOrEqualTo, 3)
				last := events[len(events)-1]
				So(last.ProspectID, ShouldEqual, "prospect_1")
				So(last.CompanyName, ShouldEqual, "TechStart Inc")
				So(last.Overall, ShouldEqual, 7.9)
				So(last.Rank, ShouldEqual, 2)
			})
		})

		Convey("When stats are requested", func() {
			stats := svc.GetStats()

			Convey("Then they report the ranking", func() {
				So(stats["rankedLeads"], ShouldEqual, 2)
				So(stats["prospects"], ShouldEqual, 2)
			})

			Convey("And the snapshot lists the top leads", func() {
				var top []types.LeadEntry
				deadline := time.Now().Add(3 * time.Second)
				for time.Now().Before(deadline) {
					top, _ = svc.GetStats()["topLeads"].([]types.LeadEntry)
					if len(top) == 2 {
						break
					}
					time.Sleep(5 * time.Millisecond)
				}
				So(top, ShouldHaveLength, 2)
				So(top[0].ProspectID, ShouldEqual, "prospect_2")
				So(top[0].Overall, ShouldEqual, 8.4)
				So(top[0].Rank, ShouldEqual, 1)
				So(top[1].ProspectID, ShouldEqual, "prospect_1")
			})
		})
	})
}

func TestServiceIntegration_Backpressure(t *testing.T) {
	Convey("Given a service whose single worker is stuck", t, func() {
		ctx := context.Background()
		repo := newGatedProspects()
		id, err := repo.Create(ctx, &model.Prospect{CompanyName: "Slow Co"})
		So(err, ShouldBeNil)

		svc := newService(
			service.WithProspects(repo),
			service.WithWorkerCount(1),
			service.WithQueueSize(1),
		)
		So(svc.Start(ctx), ShouldBeNil)
		Reset(func() {
			repo.release()
			_ = svc.Stop(ctx)
		})

		Convey("When requests keep arriving", func() {
			var rejected string
			for i := 0; i < 10 && rejected == ""; i++ {
				reqID := fmt.Sprintf("req-%d", i)
				if _, err := svc.RequestScore(ctx, id, reqID, nil); err != nil {
					So(errors.Is(err, service.ErrBackpressure), ShouldBeTrue)
					rejected = reqID
				}
			}

			Convey("Then the queue pushes back", func() {
				So(rejected, ShouldNotBeEmpty)
			})

			Convey("And notes sent with a rejected request are not kept", func() {
				repo.open.Store(true)
				_, err := svc.RequestScore(ctx, id, "req-notes", &model.ConversationNotes{Timeline: "asap"})
				So(errors.Is(err, service.ErrBackpressure), ShouldBeTrue)

				p, err := svc.GetProspect(ctx, id)
				So(err, ShouldBeNil)
				So(p.Conversation.Timeline, ShouldBeEmpty)
			})

			Convey("And the rejected request can be retried", func() {
				repo.release()
				var receipt types.ScoreReceipt
				deadline := time.Now().Add(3 * time.Second)
				for time.Now().Before(deadline) {
					receipt, err = svc.RequestScore(ctx, id, rejected, nil)
					if err == nil {
						break
					}
					time.Sleep(5 * time.Millisecond)
				}
				So(err, ShouldBeNil)
				So(receipt.Duplicate, ShouldBeFalse)
			})
		})
	})
}

func TestServiceIntegration_SQLiteRestart(t *testing.T) {
	Convey("Given a service persisting to SQLite", t, func() {
		ctx := context.Background()
		dsn := filepath.Join(t.TempDir(), "leads.db")

		first := newService(service.WithSQLite(dsn), service.WithSeedDemo(true))
		So(first.Start(ctx), ShouldBeNil)
		So(first.Stop(ctx), ShouldBeNil)

		Convey("When it restarts on the same database", func() {
			second := newService(service.WithSQLite(dsn), service.WithSeedDemo(true))
			So(second.Start(ctx), ShouldBeNil)
			Reset(func() { _ = second.Stop(ctx) })

			Convey("Then prospects and the ranking are restored", func() {
				list, err := second.ListProspects(ctx)
				So(err, ShouldBeNil)
				So(list, ShouldHaveLength, 2)

				entry, err := second.Rank(ctx, "prospect_2")
				So(err, ShouldBeNil)
				So(entry.Rank, ShouldEqual, 1)
				So(entry.Overall, ShouldEqual, 8.4)

				p, err := second.GetProspect(ctx, "prospect_1")
				So(err, ShouldBeNil)
				So(p.LeadScore, ShouldNotBeNil)
				So(p.LeadScore.Overall(), ShouldEqual, 7.9)
			})
		})
	})
}
