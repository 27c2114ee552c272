// Package worker scores queued requests: it loads the prospect, computes
// its BANT score, persists it, updates the ranking and publishes the result.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/samwel-gachiri/digital-sales-agent/internal/adapters/mq/publisher"
	"github.com/samwel-gachiri/digital-sales-agent/internal/adapters/repository"
	"github.com/samwel-gachiri/digital-sales-agent/internal/domain/model"
	"github.com/samwel-gachiri/digital-sales-agent/internal/domain/scoring"
	"github.com/samwel-gachiri/digital-sales-agent/pkg/logger"
	"github.com/samwel-gachiri/digital-sales-agent/pkg/metrics"
)

const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	metricsUpdateInterval   = 5 * time.Second
	lockStripes             = 64
)

// Request is what workers read off the queue.
type Request = model.ScoreRequest

// Queue defines how workers receive requests.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Request
}

// Scorer computes a BANT score.
type Scorer interface {
	CalculateBANTScore(ctx context.Context, p scoring.ProspectSignals) scoring.Score
}

// Prospects loads and persists prospects.
type Prospects interface {
	Update(ctx context.Context, id string, fn func(*model.Prospect) error) (*model.Prospect, error)
}

// Ranker maintains the lead ranking.
type Ranker interface {
	UpdateScore(ctx context.Context, prospectID string, score scoring.Score) (bool, error)
	Rank(ctx context.Context, prospectID string) (repository.Entry, error)
}

// ProspectLocks serialises scoring of the same prospect across workers, so
// the stored score and the ranking are always updated in the same order.
type ProspectLocks struct {
	stripes [lockStripes]sync.Mutex
}

// NewProspectLocks creates a lock set to share between workers.
func NewProspectLocks() *ProspectLocks {
	return &ProspectLocks{}
}

func (l *ProspectLocks) lock(prospectID string) (unlock func()) {
	m := &l.stripes[xxhash.Sum64String(prospectID)%lockStripes]
	m.Lock()
	return m.Unlock
}

// Worker processes scoring requests.
type Worker interface {
	// Run starts the worker loop until ctx is canceled, Shutdown is called
	// or the queue is closed and drained.
	Run(ctx context.Context)

	// Shutdown stops the worker, abandoning queued requests.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue       Queue
	scorer      Scorer
	prospects   Prospects
	ranker      Ranker
	publisher   publisher.Publisher
	locks       *ProspectLocks
	onProcessed func(Request, error)
	name        string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker.
func NewInMemoryWorker(queue Queue, scorer Scorer, prospects Prospects, ranker Ranker, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:       queue,
		scorer:      scorer,
		prospects:   prospects,
		ranker:      ranker,
		publisher:   publisher.NopPublisher{},
		onProcessed: func(Request, error) {},
		name:        "worker",
		shutdown:    make(chan struct{}),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get()
	}
	w.logger = w.logger.Named(w.name)
	if w.locks == nil {
		w.locks = NewProspectLocks()
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	requests := w.queue.Dequeue(runCtx)
	for {
		select {
		case <-runCtx.Done():
			return
		case <-w.shutdown:
			return
		case r, ok := <-requests:
			if !ok {
				return
			}
			err := w.Process(runCtx, r)
			if err != nil {
				w.logger.Error(runCtx, "error processing score request",
					logger.String("request_id", r.RequestID),
					logger.String("prospect_id", r.ProspectID),
					logger.Error(err),
				)
			}
			w.onProcessed(r, err)
		}
	}
}

// Shutdown stops the worker and waits for the loop to exit.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Process scores a single request.
func (w *InMemoryWorker) Process(ctx context.Context, r Request) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	p, score, entry, err := w.scoreAndRank(ctx, r.ProspectID)
	if err != nil {
		return err
	}

	event := model.LeadScored{
		ProspectID:  p.ID,
		CompanyName: p.CompanyName,
		Budget:      score.Budget(),
		Authority:   score.Authority(),
		Need:        score.Need(),
		Timeline:    score.Timeline(),
		Overall:     score.Overall(),
		Category:    string(score.Category()),
		Rank:        entry.Rank,
		ScoredAt:    time.Now().UTC(),
	}
	if err := w.publisher.Publish(ctx, event); err != nil {
		metrics.RecordWorkerError("publish")
		return fmt.Errorf("%w for %s: %w", ErrPublish, p.ID, err)
	}

	w.logger.Debug(ctx, "prospect scored",
		logger.String("request_id", r.RequestID),
		logger.String("prospect_id", p.ID),
		logger.Float64("overall", score.Overall()),
		logger.Int("rank", entry.Rank),
	)
	return nil
}

// scoreAndRank stores a fresh score for the prospect and indexes it,
// holding the prospect's lock throughout.
func (w *InMemoryWorker) scoreAndRank(ctx context.Context, prospectID string) (*model.Prospect, scoring.Score, repository.Entry, error) {
	defer w.locks.lock(prospectID)()

	var score scoring.Score
	p, err := w.prospects.Update(ctx, prospectID, func(p *model.Prospect) error {
		scoreStart := time.Now()
		score = w.scorer.CalculateBANTScore(ctx, p.Signals())
		metrics.RecordScoringLatency(float64(time.Since(scoreStart).Microseconds()) / 1000)
		p.LeadScore = &score
		return nil
	})
	if err != nil {
		stage := "persist"
		if errors.Is(err, repository.ErrNotFound) {
			stage = "load"
		}
		metrics.RecordWorkerError(stage)
		metrics.RecordErrorByComponent("worker", stage)
		return nil, score, repository.Entry{}, fmt.Errorf("score prospect %s: %w", prospectID, err)
	}
	metrics.RecordLeadScored(string(score.Category()),
		score.Budget(), score.Authority(), score.Need(), score.Timeline(), score.Overall())

	if _, err := w.ranker.UpdateScore(ctx, p.ID, score); err != nil {
		metrics.RecordWorkerError("rank")
		metrics.RecordErrorByComponent("worker", "rank")
		return nil, score, repository.Entry{}, fmt.Errorf("rank prospect %s: %w", p.ID, err)
	}
	entry, err := w.ranker.Rank(ctx, p.ID)
	if err != nil {
		metrics.RecordWorkerError("rank")
		return nil, score, repository.Entry{}, fmt.Errorf("read rank of %s: %w", p.ID, err)
	}
	return p, score, entry, nil
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	shutdown     chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup

	started   atomic.Bool
	processed atomic.Int64
	failed    atomic.Int64

	logger logger.Logger
}

// NewPool creates a worker pool. A non-positive workerCount selects a
// default based on the CPU count.
func NewPool(workerCount int, queue Queue, scorer Scorer, prospects Prospects, ranker Ranker, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	// options only set fields, so applying them to a blank worker reveals
	// the shared logger and locks
	probe := &InMemoryWorker{}
	for _, opt := range opts {
		opt(probe)
	}
	poolLogger := probe.logger
	if poolLogger == nil {
		poolLogger = logger.Get()
	}
	if probe.locks == nil {
		opts = append(opts, WithProspectLocks(NewProspectLocks()))
	}

	p := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		queue:    queue,
		shutdown: make(chan struct{}),
		logger:   poolLogger.Named("pool"),
	}

	count := WithOnProcessed(func(_ Request, err error) {
		if err != nil {
			p.failed.Add(1)
			return
		}
		p.processed.Add(1)
	})
	for i := 0; i < workerCount; i++ {
		workerOpts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		workerOpts = append(workerOpts, count)
		p.workers[i] = NewInMemoryWorker(queue, scorer, prospects, ranker, workerOpts...)
	}

	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Processed returns how many requests were scored successfully.
func (p *Pool) Processed() int64 {
	return p.processed.Load()
}

// Failed returns how many requests failed.
func (p *Pool) Failed() int64 {
	return p.failed.Load()
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	p.started.Store(true)
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *InMemoryWorker) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.startMetricsUpdater(ctx)
	}()
}

// startMetricsUpdater periodically publishes runtime metrics.
func (p *Pool) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case <-ticker.C:
			var ms runtime.MemStats
			runtime.ReadMemStats(&ms)
			metrics.UpdateSystemMemoryUsage(ms.HeapAlloc)
			metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
		}
	}
}

// Shutdown closes the queue and lets workers drain it. If ctx expires
// first, workers are stopped and the remaining requests are abandoned.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	if !p.started.Load() {
		p.shutdownOnce.Do(func() { close(p.shutdown) })
		return nil
	}

	workersDone := make(chan struct{})
	go func() {
		for _, w := range p.workers {
			<-w.done
		}
		close(workersDone)
	}()

	var err error
	select {
	case <-workersDone:
	case <-ctx.Done():
		p.logger.Warn(ctx, "worker pool drain timed out, stopping workers")
		err = fmt.Errorf("drain timed out: %w", ctx.Err())
		for _, w := range p.workers {
			w.shutdownOnce.Do(func() { close(w.shutdown) })
		}
	}

	p.shutdownOnce.Do(func() { close(p.shutdown) })
	p.wg.Wait()
	return err
}
