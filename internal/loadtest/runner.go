package loadtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/samwel-gachiri/digital-sales-agent/internal/domain/model"
	"github.com/samwel-gachiri/digital-sales-agent/internal/domain/types"
	"github.com/samwel-gachiri/digital-sales-agent/pkg/logger"
)

const (
	directoryPermission  = 0o750
	maxBackpressureTries = 5
	backpressureDelay    = 50 * time.Millisecond
	drainPollInterval    = 100 * time.Millisecond
	percentageMultiplier = 100
)

// ErrVerification is returned when the server's ranking disagrees with the
// locally computed scores.
var ErrVerification = errors.New("verification failed")

// Run executes a complete load test.
func Run(ctx context.Context, cfg *Config, log logger.Logger) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	log.Info(ctx, "starting lead scoring load test",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("prospects", cfg.NumProspects),
		logger.Int("workers", cfg.Workers),
		logger.String("timeout", cfg.Timeout.String()),
		logger.Int("topN", cfg.TopN),
		logger.Any("seed", seed))

	c := newClient(cfg.BaseURL, cfg.Timeout)

	if _, err := c.do(ctx, http.MethodGet, "/healthz", nil, nil); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	generated := newGenerator(seed).generate(cfg.NumProspects)
	stats.Generated = len(generated)

	if err := createProspects(ctx, c, cfg, log, generated, stats); err != nil {
		return stats, fmt.Errorf("prospect creation failed: %w", err)
	}
	if err := submitScores(ctx, c, cfg, log, generated, stats); err != nil {
		return stats, fmt.Errorf("score submission failed: %w", err)
	}

	log.Info(ctx, "waiting for scoring to finish")
	if err := waitForScores(ctx, c, cfg, generated, stats); err != nil {
		return stats, fmt.Errorf("waiting for scores failed: %w", err)
	}

	rankings, err := retrieveRankings(ctx, c, cfg, log, generated, stats)
	if err != nil {
		return stats, fmt.Errorf("ranking retrieval failed: %w", err)
	}

	var leads []types.LeadEntry
	if _, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/leads?limit=%d", cfg.TopN), nil, &leads); err != nil {
		return stats, fmt.Errorf("lead retrieval failed: %w", err)
	}
	stats.LeadEntries = len(leads)

	if cfg.OutputFile != "" {
		if err := saveGenerated(cfg.OutputFile, generated); err != nil {
			log.Warn(ctx, "failed to save generated prospects", logger.Error(err))
		} else {
			log.Info(ctx, "generated prospects saved", logger.String("filename", cfg.OutputFile))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	logFinalStats(ctx, log, stats)

	if err := verifyResults(rankings, leads, stats); err != nil {
		return stats, err
	}
	log.Info(ctx, "load test completed successfully")
	return stats, nil
}

// createProspects posts every generated prospect concurrently.
func createProspects(ctx context.Context, c *client, cfg *Config, log logger.Logger, generated []Generated, stats *Stats) error {
	log.Info(ctx, "creating prospects", logger.Int("count", len(generated)))
	var created, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, gen := range generated {
		g.Go(func() error {
			if _, err := c.do(gctx, http.MethodPost, "/prospects", gen.Prospect, nil); err != nil {
				failed.Add(1)
				if cfg.Verbose {
					log.Warn(gctx, "create prospect failed", logger.String("prospect_id", gen.Prospect.ID), logger.Error(err))
				}
				return gctx.Err()
			}
			created.Add(1)
			return nil
		})
	}
	err := g.Wait()

	stats.Created = int(created.Load())
	stats.CreateFailed = int(failed.Load())
	log.Info(ctx, "prospect creation completed",
		logger.Int("created", stats.Created),
		logger.Int("failed", stats.CreateFailed))
	return err
}

type scoreBody struct {
	RequestID    string                   `json:"request_id"`
	Conversation *model.ConversationNotes `json:"conversation_data"`
}

// submitScores posts the conversation notes of every prospect. Rejected
// requests are retried with the same request id.
func submitScores(ctx context.Context, c *client, cfg *Config, log logger.Logger, generated []Generated, stats *Stats) error {
	log.Info(ctx, "submitting score requests", logger.Int("count", len(generated)))
	var accepted, duplicate, rejected, failed atomic.Int64

	submit := func(ctx context.Context, gen Generated) {
		path := "/prospects/" + gen.Prospect.ID + "/score"
		body := scoreBody{RequestID: gen.RequestID, Conversation: &gen.Notes}
		for attempt := 1; ; attempt++ {
			status, err := c.do(ctx, http.MethodPost, path, body, nil)
			switch {
			case status == http.StatusAccepted:
				accepted.Add(1)
				return
			case status == http.StatusOK:
				duplicate.Add(1)
				return
			case status == http.StatusTooManyRequests && attempt < maxBackpressureTries:
				select {
				case <-ctx.Done():
					return
				case <-time.After(backpressureDelay * time.Duration(attempt)):
				}
				continue
			case status == http.StatusTooManyRequests:
				rejected.Add(1)
			default:
				failed.Add(1)
			}
			if cfg.Verbose {
				log.Warn(ctx, "score request failed", logger.String("prospect_id", gen.Prospect.ID), logger.Error(err))
			}
			return
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i, gen := range generated {
		g.Go(func() error {
			submit(gctx, gen)
			if cfg.DuplicateEvery > 0 && (i+1)%cfg.DuplicateEvery == 0 {
				submit(gctx, gen)
			}
			return gctx.Err()
		})
	}
	err := g.Wait()

	stats.ScoreAccepted = int(accepted.Load())
	stats.ScoreDuplicate = int(duplicate.Load())
	stats.ScoreRejected = int(rejected.Load())
	stats.ScoreFailed = int(failed.Load())
	log.Info(ctx, "score submission completed",
		logger.Int("accepted", stats.ScoreAccepted),
		logger.Int("duplicate", stats.ScoreDuplicate),
		logger.Int("rejected", stats.ScoreRejected),
		logger.Int("failed", stats.ScoreFailed))
	return err
}

// waitForScores polls the prospect list until every generated prospect
// carries the score expected from its notes, or the drain timeout passes.
// Prospects still off at the deadline are counted as mismatches.
func waitForScores(ctx context.Context, c *client, cfg *Config, generated []Generated, stats *Stats) error {
	expected := make(map[string]float64, len(generated))
	for _, gen := range generated {
		expected[gen.Prospect.ID] = Expected(gen).Overall()
	}

	deadline := time.Now().Add(cfg.DrainTimeout)
	for {
		var list []*model.Prospect
		if _, err := c.do(ctx, http.MethodGet, "/prospects", nil, &list); err != nil {
			return err
		}
		pending := 0
		for _, p := range list {
			want, ok := expected[p.ID]
			if !ok {
				continue
			}
			if p.LeadScore == nil || p.LeadScore.Overall() != want {
				pending++
			}
		}
		if pending == 0 || time.Now().After(deadline) {
			stats.Mismatches = pending
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(drainPollInterval):
		}
	}
}

// retrieveRankings fetches the rank of every generated prospect concurrently.
func retrieveRankings(ctx context.Context, c *client, cfg *Config, log logger.Logger, generated []Generated, stats *Stats) ([]types.LeadEntry, error) {
	log.Info(ctx, "retrieving rankings", logger.Int("count", len(generated)))
	rankings := make([]types.LeadEntry, len(generated))
	var failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i, gen := range generated {
		g.Go(func() error {
			if _, err := c.do(gctx, http.MethodGet, "/rank/"+gen.Prospect.ID, nil, &rankings[i]); err != nil {
				failed.Add(1)
				if cfg.Verbose {
					log.Warn(gctx, "rank lookup failed", logger.String("prospect_id", gen.Prospect.ID), logger.Error(err))
				}
			}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	valid := rankings[:0]
	for _, e := range rankings {
		if e.ProspectID != "" {
			valid = append(valid, e)
		}
	}
	stats.RankingsRetrieved = len(valid)
	log.Info(ctx, "ranking retrieval completed",
		logger.Int("retrieved", len(valid)),
		logger.Int("failed", int(failed.Load())))
	return valid, nil
}

// saveGenerated writes the generated prospects as indented JSON.
func saveGenerated(filename string, generated []Generated) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(generated, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal prospects: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", filename, err)
	}
	return nil
}

func logFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var successRate, requestsPerSecond float64
	submitted := stats.ScoreAccepted + stats.ScoreDuplicate + stats.ScoreRejected + stats.ScoreFailed
	if submitted > 0 {
		successRate = float64(stats.ScoreAccepted+stats.ScoreDuplicate) / float64(submitted) * percentageMultiplier
	}
	if stats.Duration > 0 {
		requestsPerSecond = float64(stats.Created+submitted) / stats.Duration.Seconds()
	}

	log.Info(ctx, "final statistics",
		logger.Int("generated", stats.Generated),
		logger.Int("created", stats.Created),
		logger.Int("scoreAccepted", stats.ScoreAccepted),
		logger.Int("scoreDuplicate", stats.ScoreDuplicate),
		logger.Int("scoreRejected", stats.ScoreRejected),
		logger.Int("scoreFailed", stats.ScoreFailed),
		logger.Int("rankingsRetrieved", stats.RankingsRetrieved),
		logger.Int("leadEntries", stats.LeadEntries),
		logger.Int("mismatches", stats.Mismatches),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate),
		logger.Float64("requestsPerSecond", requestsPerSecond))
}
