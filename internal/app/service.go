// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/samwel-gachiri/digital-sales-agent/internal/adapters/mq/publisher"
	eventqueue "github.com/samwel-gachiri/digital-sales-agent/internal/adapters/mq/queue"
	workerpool "github.com/samwel-gachiri/digital-sales-agent/internal/adapters/mq/worker"
	"github.com/samwel-gachiri/digital-sales-agent/internal/adapters/repository"
	"github.com/samwel-gachiri/digital-sales-agent/internal/domain/dedupe"
	"github.com/samwel-gachiri/digital-sales-agent/internal/domain/model"
	"github.com/samwel-gachiri/digital-sales-agent/internal/domain/scoring"
	"github.com/samwel-gachiri/digital-sales-agent/internal/domain/types"
	"github.com/samwel-gachiri/digital-sales-agent/pkg/logger"
	"github.com/samwel-gachiri/digital-sales-agent/pkg/metrics"
)

const (
	batchChunkSize   = 64
	redisDialTimeout = 5 * time.Second
	statsTopLeads    = 5
)

// components are the parts built by Start.
type components struct {
	prospects repository.Prospects
	ranking   *repository.TreapStore
	deduper   dedupe.Deduper
	queue     eventqueue.Queue
	scorer    *scoring.Scorer
	pool      *workerpool.Pool
	direct    *workerpool.InMemoryWorker
}

// Service implements the API dependencies for lead qualification.
type Service struct {
	mu sync.RWMutex

	c       *components
	closers []func() error
	cancel  context.CancelFunc
	started bool

	// Overrides
	prospects repository.Prospects
	deduper   dedupe.Deduper
	publisher publisher.Publisher

	// Configuration
	workerCount      int
	queueSize        int
	dedupeSize       int
	dedupeTTL        time.Duration
	redisURL         string
	sqliteDSN        string
	kafkaBrokers     []string
	kafkaTopic       string
	snapshotInterval time.Duration
	maxBatchSize     int
	seedDemo         bool
	shutdownTimeout  time.Duration

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:      runtime.NumCPU() * 2,
		queueSize:        10_000,
		dedupeSize:       50_000,
		dedupeTTL:        24 * time.Hour,
		snapshotInterval: time.Second,
		maxBatchSize:     1000,
		shutdownTimeout:  10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the configured components and starts the worker pool.
// Components outlive ctx; they are released by Stop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.logger.Info(ctx, "starting lead scoring service...")

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	var closers []func() error
	fail := func(err error) error {
		cancel()
		closeAll(closers)
		s.logger.Error(ctx, "lead scoring service failed to start", logger.Error(err))
		return err
	}

	prospects := s.prospects
	storage := "custom"
	if prospects == nil {
		if s.sqliteDSN != "" {
			db, err := repository.OpenSQLite(ctx, s.sqliteDSN, repository.WithSQLiteLogger(s.logger.Named("sqlite")))
			if err != nil {
				return fail(err)
			}
			closers = append(closers, db.Close)
			prospects, storage = db, "sqlite"
		} else {
			prospects, storage = repository.NewMemoryProspects(), "memory"
		}
	}

	deduper := s.deduper
	if deduper == nil {
		if s.redisURL != "" {
			rdb, err := dedupe.DialRedis(ctx, s.redisURL, redisDialTimeout)
			if err != nil {
				return fail(err)
			}
			closers = append(closers, rdb.Close)
			deduper = dedupe.NewRedisDeduper(rdb,
				dedupe.WithTTL(s.dedupeTTL),
				dedupe.WithRedisLogger(s.logger.Named("dedupe")),
			)
		} else {
			deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
		}
	}

	pub := s.publisher
	if pub == nil {
		if len(s.kafkaBrokers) > 0 {
			kp, err := publisher.NewKafkaPublisher(s.kafkaBrokers, s.kafkaTopic,
				publisher.WithLogger(s.logger.Named("publisher")))
			if err != nil {
				return fail(err)
			}
			closers = append(closers, kp.Close)
			pub = kp
		} else {
			pub = publisher.NopPublisher{}
		}
	}

	ranking := repository.NewTreapStore(runCtx,
		repository.WithSnapshotInterval(s.snapshotInterval),
		repository.WithTopCacheSize(statsTopLeads),
	)
	closers = append(closers, ranking.Close)

	scorer := scoring.New(
		scoring.WithLogger(s.logger.Named("scoring")),
		scoring.WithFallbackHook(metrics.RecordScoringFallback),
	)
	queue := eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	workerOpts := []workerpool.Option{
		workerpool.WithPublisher(pub),
		workerpool.WithLogger(s.logger.Named("worker")),
		workerpool.WithProspectLocks(workerpool.NewProspectLocks()),
	}

	c := &components{
		prospects: prospects,
		ranking:   ranking,
		deduper:   deduper,
		queue:     queue,
		scorer:    scorer,
		pool:      workerpool.NewPool(s.workerCount, queue, scorer, prospects, ranking, workerOpts...),
		direct: workerpool.NewInMemoryWorker(queue, scorer, prospects, ranking,
			append(workerOpts, workerpool.WithName("direct"))...),
	}

	if err := s.restoreRanking(ctx, c); err != nil {
		return fail(err)
	}
	if s.seedDemo {
		if err := s.seed(ctx, c); err != nil {
			return fail(err)
		}
	}
	s.refreshProspectCount(ctx, c)

	c.pool.Start(runCtx)

	s.c = c
	s.closers = closers
	s.cancel = cancel
	s.started = true
	s.logger.Info(ctx, "lead scoring service started",
		logger.Int("workers", c.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.String("storage", storage),
		logger.Bool("redisDedupe", s.redisURL != "" && s.deduper == nil),
		logger.Bool("kafka", len(s.kafkaBrokers) > 0 && s.publisher == nil),
	)
	return nil
}

// Stop drains pending scoring requests, bounded by the shutdown timeout,
// and releases every component built by Start.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	c, closers, cancel := s.c, s.closers, s.cancel
	s.c, s.closers, s.cancel = nil, nil, nil
	s.started = false
	s.mu.Unlock()

	s.logger.Info(ctx, "stopping lead scoring service...")

	shutdownCtx, stop := context.WithTimeout(ctx, s.shutdownTimeout)
	defer stop()
	err := c.pool.Shutdown(shutdownCtx)
	cancel()
	err = errors.Join(err, closeAll(closers))

	s.logger.Info(ctx, "lead scoring service stopped",
		logger.Int("processed", int(c.pool.Processed())),
		logger.Int("failed", int(c.pool.Failed())),
	)
	return err
}

// closeAll closes in reverse order of acquisition.
func closeAll(closers []func() error) error {
	var err error
	for i := len(closers) - 1; i >= 0; i-- {
		err = errors.Join(err, closers[i]())
	}
	return err
}

func (s *Service) deps() (*components, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.c, nil
}

// restoreRanking indexes prospects that were scored before a restart.
func (s *Service) restoreRanking(ctx context.Context, c *components) error {
	all, err := c.prospects.List(ctx)
	if err != nil {
		return fmt.Errorf("restore ranking: %w", err)
	}
	restored := 0
	for _, p := range all {
		if p.LeadScore == nil || p.LeadScore.IsZero() {
			continue
		}
		if _, err := c.ranking.UpdateScore(ctx, p.ID, *p.LeadScore); err != nil {
			return fmt.Errorf("restore ranking of %s: %w", p.ID, err)
		}
		restored++
	}
	if restored > 0 {
		s.logger.Info(ctx, "ranking restored", logger.Int("leads", restored))
	}
	return nil
}

func (s *Service) refreshProspectCount(ctx context.Context, c *components) {
	n, err := c.prospects.Count(ctx)
	if err != nil {
		s.logger.Warn(ctx, "count prospects failed", logger.Error(err))
		return
	}
	metrics.UpdateProspectsTotal(n)
}

// CreateProspect stores a prospect and requests its first score.
func (s *Service) CreateProspect(ctx context.Context, p *model.Prospect) (string, error) {
	c, err := s.deps()
	if err != nil {
		return "", err
	}
	id, err := c.prospects.Create(ctx, p)
	if err != nil {
		return "", err
	}
	s.refreshProspectCount(ctx, c)

	if _, err := s.RequestScore(ctx, id, "", nil); err != nil {
		s.logger.Warn(ctx, "initial scoring request failed",
			logger.String("prospect_id", id), logger.Error(err))
	}
	return id, nil
}

// GetProspect returns a prospect by id.
func (s *Service) GetProspect(ctx context.Context, id string) (*model.Prospect, error) {
	c, err := s.deps()
	if err != nil {
		return nil, err
	}
	return c.prospects.Get(ctx, id)
}

// ListProspects returns every prospect in creation order.
func (s *Service) ListProspects(ctx context.Context) ([]*model.Prospect, error) {
	c, err := s.deps()
	if err != nil {
		return nil, err
	}
	return c.prospects.List(ctx)
}

// RequestScore queues a prospect for asynchronous scoring. Non-empty fields
// of notes are merged into the prospect's conversation notes first and
// rolled back when the request cannot be queued.
// Submitting a request id twice is acknowledged without scoring again.
// An empty requestID gets a generated one.
func (s *Service) RequestScore(ctx context.Context, prospectID, requestID string, notes *model.ConversationNotes) (types.ScoreReceipt, error) {
	c, err := s.deps()
	if err != nil {
		return types.ScoreReceipt{}, err
	}
	if requestID == "" {
		requestID = uuid.NewString()
	}
	receipt := types.ScoreReceipt{RequestID: requestID, ProspectID: prospectID}

	if _, err := c.prospects.Get(ctx, prospectID); err != nil {
		return receipt, err
	}

	if c.deduper.SeenAndRecord(ctx, requestID) {
		metrics.RecordDuplicateScoreRequest()
		s.logger.Debug(ctx, "duplicate score request, skipping",
			logger.String("request_id", requestID),
			logger.String("prospect_id", prospectID),
		)
		receipt.Duplicate = true
		return receipt, nil
	}

	var previous *model.ConversationNotes
	if notes != nil {
		if _, err := c.prospects.Update(ctx, prospectID, func(p *model.Prospect) error {
			prev := p.Conversation
			previous = &prev
			mergeNotes(&p.Conversation, *notes)
			return nil
		}); err != nil {
			c.deduper.Unrecord(ctx, requestID)
			return receipt, err
		}
	}

	err = c.queue.Enqueue(ctx, model.ScoreRequest{
		RequestID:  requestID,
		ProspectID: prospectID,
		TS:         time.Now().UTC(),
	})
	if err != nil {
		// allow the client to retry with the same request id
		c.deduper.Unrecord(ctx, requestID)
		if previous != nil {
			s.restoreNotes(ctx, c, prospectID, *previous)
		}
		switch {
		case errors.Is(err, eventqueue.ErrFull):
			return receipt, ErrBackpressure
		case errors.Is(err, eventqueue.ErrClosed):
			return receipt, ErrNotStarted
		default:
			return receipt, err
		}
	}
	metrics.RecordScoreRequest()
	return receipt, nil
}

// restoreNotes undoes a notes merge for a request that was not queued.
func (s *Service) restoreNotes(ctx context.Context, c *components, prospectID string, prev model.ConversationNotes) {
	if _, err := c.prospects.Update(context.WithoutCancel(ctx), prospectID, func(p *model.Prospect) error {
		p.Conversation = prev
		return nil
	}); err != nil {
		s.logger.Warn(ctx, "failed to roll back conversation notes",
			logger.String("prospect_id", prospectID),
			logger.Error(err),
		)
	}
}

func mergeNotes(dst *model.ConversationNotes, src model.ConversationNotes) {
	set := func(d *string, v string) {
		if v != "" {
			*d = v
		}
	}
	set(&dst.PainPoints, src.PainPoints)
	set(&dst.Challenges, src.Challenges)
	set(&dst.Timeline, src.Timeline)
	set(&dst.Urgency, src.Urgency)
	set(&dst.ImplementationDate, src.ImplementationDate)
}

// ScoreNow scores a stored prospect synchronously and returns it with its
// new score.
func (s *Service) ScoreNow(ctx context.Context, prospectID string) (*model.Prospect, error) {
	c, err := s.deps()
	if err != nil {
		return nil, err
	}
	return s.scoreNow(ctx, c, prospectID)
}

func (s *Service) scoreNow(ctx context.Context, c *components, prospectID string) (*model.Prospect, error) {
	err := c.direct.Process(ctx, model.ScoreRequest{
		RequestID:  uuid.NewString(),
		ProspectID: prospectID,
		TS:         time.Now().UTC(),
	})
	if errors.Is(err, workerpool.ErrPublish) {
		s.logger.Warn(ctx, "score stored but not published",
			logger.String("prospect_id", prospectID), logger.Error(err))
	} else if err != nil {
		return nil, err
	}
	return c.prospects.Get(ctx, prospectID)
}

// ScoreSignals scores loosely typed signals without storing anything.
// prospect carries the company signals under "company_data".
func (s *Service) ScoreSignals(ctx context.Context, prospect, contact, conversation map[string]any) (scoring.Score, error) {
	c, err := s.deps()
	if err != nil {
		return scoring.Score{}, err
	}
	start := time.Now()
	score := c.scorer.CalculateFromMaps(ctx, prospect, contact, conversation)
	metrics.RecordScoringLatency(float64(time.Since(start).Microseconds()) / 1000)
	return score, nil
}

// BatchScore scores decoded prospects concurrently and returns them ordered
// by descending overall score. Ties keep their input order.
func (s *Service) BatchScore(ctx context.Context, prospects []map[string]any) ([]scoring.Ranked, error) {
	c, err := s.deps()
	if err != nil {
		return nil, err
	}
	if len(prospects) > s.maxBatchSize {
		return nil, fmt.Errorf("%w: %d prospects, at most %d allowed", ErrBatchTooLarge, len(prospects), s.maxBatchSize)
	}
	metrics.RecordBatchSize(len(prospects))

	out := make([]scoring.Ranked, len(prospects))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for start := 0; start < len(prospects); start += batchChunkSize {
		end := min(start+batchChunkSize, len(prospects))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				out[i] = c.scorer.ScoreMap(gctx, prospects[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	scoring.SortRanked(out)
	return out, nil
}

// TopN returns the n best ranked leads, optionally restricted to one
// category.
func (s *Service) TopN(ctx context.Context, n int, category string) ([]types.LeadEntry, error) {
	c, err := s.deps()
	if err != nil {
		return nil, err
	}

	var entries []repository.Entry
	if category == "" {
		entries, err = c.ranking.TopN(ctx, n)
	} else {
		cat := scoring.Category(category)
		if !cat.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
		}
		entries, err = c.ranking.TopNByCategory(ctx, cat, n)
	}
	if err != nil {
		return nil, err
	}

	out := make([]types.LeadEntry, len(entries))
	for i, e := range entries {
		out[i] = toLeadEntry(e)
	}
	return out, nil
}

// Rank returns the rank and score of a lead.
func (s *Service) Rank(ctx context.Context, prospectID string) (types.LeadEntry, error) {
	c, err := s.deps()
	if err != nil {
		return types.LeadEntry{}, err
	}
	e, err := c.ranking.Rank(ctx, prospectID)
	if err != nil {
		return types.LeadEntry{}, err
	}
	return toLeadEntry(e), nil
}

func toLeadEntry(e repository.Entry) types.LeadEntry {
	return types.LeadEntry{
		Rank:       e.Rank,
		ProspectID: e.ProspectID,
		Overall:    e.Score.Overall(),
		Category:   string(e.Score.Category()),
	}
}

// Analytics summarises the pipeline: qualified leads are hot or warm, the
// conversion rate is their share of all prospects in percent, and the
// average covers scored prospects only.
func (s *Service) Analytics(ctx context.Context) (types.Analytics, error) {
	c, err := s.deps()
	if err != nil {
		return types.Analytics{}, err
	}
	all, err := c.prospects.List(ctx)
	if err != nil {
		return types.Analytics{}, err
	}

	a := types.Analytics{
		TotalProspects: len(all),
		PipelineStages: make(map[string]int),
	}
	var sum float64
	scored := 0
	for _, p := range all {
		a.PipelineStages[string(p.DealStage)]++
		if p.LeadScore == nil {
			continue
		}
		scored++
		sum += p.LeadScore.Overall()
		switch p.LeadScore.Category() {
		case scoring.CategoryHot:
			a.HotLeads++
			a.QualifiedLeads++
		case scoring.CategoryWarm:
			a.QualifiedLeads++
		}
	}
	if a.TotalProspects > 0 {
		a.ConversionRate = round1(float64(a.QualifiedLeads) / float64(a.TotalProspects) * 100)
	}
	if scored > 0 {
		a.AverageLeadScore = round1(sum / float64(scored))
	}
	return a, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}
	if !s.started {
		return stats
	}

	ctx := context.Background()
	c := s.c
	queueLen := c.queue.Len(ctx)
	ranked := c.ranking.Count(ctx)

	stats["queueLength"] = queueLen
	stats["rankedLeads"] = ranked
	stats["dedupeEntries"] = c.deduper.Size()
	stats["processed"] = c.pool.Processed()
	stats["failed"] = c.pool.Failed()
	if n, err := c.prospects.Count(ctx); err == nil {
		stats["prospects"] = n
		metrics.UpdateProspectsTotal(n)
	}
	if snap := c.ranking.Snapshot(); snap != nil {
		categories := make(map[string]int, len(snap.CategoryCounts))
		for cat, n := range snap.CategoryCounts {
			categories[string(cat)] = n
		}
		top := make([]types.LeadEntry, len(snap.TopCache))
		for i, e := range snap.TopCache {
			top[i] = toLeadEntry(e)
		}
		stats["categories"] = categories
		stats["topLeads"] = top
		stats["snapshotAt"] = snap.BuiltAt
	}

	metrics.UpdateQueueSize(queueLen)
	metrics.UpdateRankedLeads(ranked)
	return stats
}
