package repository

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/samwel-gachiri/digital-sales-agent/internal/domain/scoring"
	"github.com/samwel-gachiri/digital-sales-agent/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// Ordering: overall DESC, then prospect id ASC. "less" means ranks earlier,
// so in-order traversal yields the leaderboard from best to worst.
// Node priorities are a hash of the id, which keeps the tree balanced
// regardless of the score distribution.
//
// Ranks are dense: leads with equal overall share a rank and the next
// distinct score gets the next integer. A Fenwick tree over the fixed-point
// score range counts distinct scores so Rank stays O(log n).

// scoreScale matches the three decimals overall scores are rounded to.
const scoreScale = 1000

const (
	minFP = int64(scoring.MinScore * scoreScale)
	maxFP = int64(scoring.MaxScore * scoreScale)
)

type scoreFP int64

func toFixedPoint(x float64) scoreFP {
	return scoreFP(math.Round(x * scoreScale))
}

// treap node
type node struct {
	id    string
	score scoreFP
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aScore, aID) should appear before (bScore, bID).
func less(aScore scoreFP, aID string, bScore scoreFP, bID string) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, id string, score scoreFP) *node {
	if n == nil {
		return &node{id: id, score: score, prio: xxhash.Sum64String(id), size: 1}
	}
	if less(score, id, n.score, n.id) {
		n.left = insert(n.left, id, score)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, score)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id string, score scoreFP) *node {
	if n == nil {
		return nil
	}
	switch {
	case score == n.score && id == n.id:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, score)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, score)
		}
	case less(score, id, n.score, n.id):
		n.left = deleteNode(n.left, id, score)
	default:
		n.right = deleteNode(n.right, id, score)
	}
	fix(n)
	return n
}

// collect visits, in rank order, up to *remaining nodes whose score lies
// in [lo, hi]. Subtrees entirely outside the range are skipped.
func collect(n *node, lo, hi scoreFP, remaining *int, visit func(*node)) {
	if n == nil || *remaining <= 0 {
		return
	}
	if n.score <= hi { // left holds scores >= n.score
		collect(n.left, lo, hi, remaining, visit)
	}
	if *remaining <= 0 {
		return
	}
	if n.score >= lo && n.score <= hi {
		visit(n)
		*remaining--
	}
	if n.score >= lo { // right holds scores <= n.score
		collect(n.right, lo, hi, remaining, visit)
	}
}

// fenwick counts how many distinct fixed-point scores are present.
type fenwick struct {
	tree []int
}

func newFenwick(n int) *fenwick {
	return &fenwick{tree: make([]int, n+1)}
}

func (f *fenwick) add(i, delta int) {
	for i++; i < len(f.tree); i += i & -i {
		f.tree[i] += delta
	}
}

// prefix returns the sum over [0, i].
func (f *fenwick) prefix(i int) int {
	sum := 0
	for i++; i > 0; i -= i & -i {
		sum += f.tree[i]
	}
	return sum
}

// Snapshot is an immutable, periodically rebuilt view of the ranking. It
// may lag the live tree by up to one snapshot interval.
type Snapshot struct {
	CategoryCounts map[scoring.Category]int
	TopCache       []Entry
	BuiltAt        time.Time
}

// TreapStore implements Store.
type TreapStore struct {
	mu          sync.RWMutex
	root        *node
	byID        map[string]scoring.Score
	perScore    []int    // leads per fixed-point score, indexed from minFP
	distinct    *fenwick // 1 per score value with at least one lead
	numDistinct int

	snapshotInterval time.Duration
	topCacheSize     int
	snapshot         atomic.Pointer[Snapshot]

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewTreapStore constructs a treap store and starts publishing snapshots
// until ctx is done or Close is called.
func NewTreapStore(ctx context.Context, opts ...Option) *TreapStore {
	span := int(maxFP - minFP + 1)
	s := &TreapStore{
		byID:             make(map[string]scoring.Score),
		perScore:         make([]int, span),
		distinct:         newFenwick(span),
		snapshotInterval: time.Second,
		topCacheSize:     10,
		stopChan:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.publishSnapshot()
	s.startPeriodicSnapshots(ctx)
	return s
}

func (s *TreapStore) startPeriodicSnapshots(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.snapshotInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.publishSnapshot()
			}
		}
	}()
}

// Close stops the snapshot goroutine.
func (s *TreapStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

// Snapshot returns the latest published snapshot.
func (s *TreapStore) Snapshot() *Snapshot {
	return s.snapshot.Load()
}

// UpdateScore implements Store.UpdateScore in O(log n) expected time.
func (s *TreapStore) UpdateScore(_ context.Context, prospectID string, score scoring.Score) (bool, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryLatency("rank_update", float64(time.Since(start).Microseconds())/1000)
	}()

	if score.IsZero() {
		return false, ErrInvalidScore
	}
	ns := toFixedPoint(score.Overall())

	s.mu.Lock()
	old, existed := s.byID[prospectID]
	changed := true
	if existed {
		prev := toFixedPoint(old.Overall())
		changed = prev != ns
		if changed {
			s.root = deleteNode(s.root, prospectID, prev)
			s.untrack(prev)
		}
	}
	s.byID[prospectID] = score
	if changed {
		s.root = insert(s.root, prospectID, ns)
		s.track(ns)
	}
	count := len(s.byID)
	s.mu.Unlock()

	if !existed {
		metrics.UpdateRankedLeads(count)
	}
	return changed, nil
}

// Remove implements Store.Remove.
func (s *TreapStore) Remove(_ context.Context, prospectID string) bool {
	s.mu.Lock()
	old, ok := s.byID[prospectID]
	if ok {
		prev := toFixedPoint(old.Overall())
		s.root = deleteNode(s.root, prospectID, prev)
		s.untrack(prev)
		delete(s.byID, prospectID)
	}
	count := len(s.byID)
	s.mu.Unlock()

	if ok {
		metrics.UpdateRankedLeads(count)
	}
	return ok
}

// track and untrack must be called with s.mu held.
func (s *TreapStore) track(fp scoreFP) {
	i := int(int64(fp) - minFP)
	s.perScore[i]++
	if s.perScore[i] == 1 {
		s.distinct.add(i, 1)
		s.numDistinct++
	}
}

func (s *TreapStore) untrack(fp scoreFP) {
	i := int(int64(fp) - minFP)
	s.perScore[i]--
	if s.perScore[i] == 0 {
		s.distinct.add(i, -1)
		s.numDistinct--
	}
}

// denseRank must be called with s.mu held.
func (s *TreapStore) denseRank(fp scoreFP) int {
	atOrBelow := s.distinct.prefix(int(int64(fp) - minFP))
	return s.numDistinct - atOrBelow + 1
}

// Rank implements Store.Rank in O(log n).
func (s *TreapStore) Rank(_ context.Context, prospectID string) (Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryLatency("rank_query", float64(time.Since(start).Microseconds())/1000)
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	score, ok := s.byID[prospectID]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return Entry{}, ErrNotFound
	}
	return Entry{
		Rank:       s.denseRank(toFixedPoint(score.Overall())),
		ProspectID: prospectID,
		Score:      score,
	}, nil
}

// TopN implements Store.TopN.
func (s *TreapStore) TopN(ctx context.Context, n int) ([]Entry, error) {
	return s.topRange(ctx, scoreFP(minFP), scoreFP(maxFP), n)
}

// TopNByCategory implements Store.TopNByCategory. Categories are contiguous
// score bands, so only the matching part of the tree is visited.
func (s *TreapStore) TopNByCategory(ctx context.Context, category scoring.Category, n int) ([]Entry, error) {
	lo, hi := scoreFP(minFP), scoreFP(maxFP)
	hot := toFixedPoint(scoring.HotThreshold)
	warm := toFixedPoint(scoring.WarmThreshold)
	switch category {
	case scoring.CategoryHot:
		lo = hot
	case scoring.CategoryWarm:
		lo, hi = warm, hot-1
	case scoring.CategoryCold:
		hi = warm - 1
	default:
		return nil, ErrNotFound
	}
	return s.topRange(ctx, lo, hi, n)
}

func (s *TreapStore) topRange(_ context.Context, lo, hi scoreFP, n int) ([]Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryLatency("top_n", float64(time.Since(start).Microseconds())/1000)
	}()

	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, min(n, len(s.byID)))
	remaining := n
	collect(s.root, lo, hi, &remaining, func(nd *node) {
		out = append(out, Entry{
			Rank:       s.denseRank(nd.score),
			ProspectID: nd.id,
			Score:      s.byID[nd.id],
		})
	})
	return out, nil
}

// Count implements Store.Count.
func (s *TreapStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func (s *TreapStore) publishSnapshot() {
	start := time.Now()

	s.mu.RLock()
	top := make([]Entry, 0, min(s.topCacheSize, len(s.byID)))
	remaining := s.topCacheSize
	collect(s.root, scoreFP(minFP), scoreFP(maxFP), &remaining, func(nd *node) {
		top = append(top, Entry{Rank: s.denseRank(nd.score), ProspectID: nd.id, Score: s.byID[nd.id]})
	})
	counts := make(map[scoring.Category]int, 3)
	for _, score := range s.byID {
		counts[score.Category()]++
	}
	s.mu.RUnlock()

	s.snapshot.Store(&Snapshot{
		CategoryCounts: counts,
		TopCache:       top,
		BuiltAt:        time.Now(),
	})
	metrics.RecordRepositoryLatency("snapshot", float64(time.Since(start).Microseconds())/1000)
	metrics.IncrementRepositorySnapshotCount()
}

var _ Store = (*TreapStore)(nil)
