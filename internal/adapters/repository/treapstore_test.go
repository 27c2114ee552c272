package repository

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/samwel-gachiri/digital-sales-agent/internal/domain/scoring"
)

// scoreWithOverall builds a score whose overall equals v (all sub-scores v).
func scoreWithOverall(v float64) scoring.Score {
	return scoring.NewScore(v, v, v, v)
}

func newTestStore(t *testing.T, opts ...Option) *TreapStore {
	t.Helper()
	store := NewTreapStore(context.Background(), opts...)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestTreapStore_BasicOperations(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if count := store.Count(ctx); count != 0 {
		t.Errorf("expected count 0, got %d", count)
	}

	changed, err := store.UpdateScore(ctx, "lead1", scoreWithOverall(8.5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !changed {
		t.Error("expected first update to change the store")
	}
	if count := store.Count(ctx); count != 1 {
		t.Errorf("expected count 1, got %d", count)
	}

	entry, err := store.Rank(ctx, "lead1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Rank != 1 {
		t.Errorf("expected rank 1, got %d", entry.Rank)
	}
	if entry.Score.Overall() != 8.5 {
		t.Errorf("expected overall 8.5, got %f", entry.Score.Overall())
	}

	entries, err := store.TopN(ctx, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 || entries[0].ProspectID != "lead1" {
		t.Errorf("expected [lead1], got %+v", entries)
	}
}

func TestTreapStore_LatestScoreWins(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, _ = store.UpdateScore(ctx, "lead1", scoreWithOverall(9))
	_, _ = store.UpdateScore(ctx, "lead2", scoreWithOverall(7))

	// a lower re-evaluation replaces the earlier score
	changed, err := store.UpdateScore(ctx, "lead1", scoreWithOverall(4))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !changed {
		t.Error("expected lower score to replace the old one")
	}

	entry, _ := store.Rank(ctx, "lead1")
	if entry.Rank != 2 || entry.Score.Overall() != 4 {
		t.Errorf("expected lead1 rank 2 overall 4, got %+v", entry)
	}
	if store.Count(ctx) != 2 {
		t.Errorf("expected count 2, got %d", store.Count(ctx))
	}

	// same overall with different sub-scores keeps the position but stores the new score
	same := scoring.NewScore(10, 7, 7, 4.666666)
	changed, _ = store.UpdateScore(ctx, "lead2", same)
	entry, _ = store.Rank(ctx, "lead2")
	if entry.Score.Budget() != 10 {
		t.Errorf("expected stored score to be replaced, got %v", entry.Score)
	}
	if changed != (same.Overall() != 7) {
		t.Errorf("changed=%v does not match overall %v", changed, same.Overall())
	}
}

func TestTreapStore_OrderingAndDenseRanks(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	scores := map[string]float64{
		"c": 9.0,
		"a": 9.0,
		"b": 7.5,
		"d": 6.0,
		"e": 3.25,
		"f": 7.5,
	}
	for id, v := range scores {
		if _, err := store.UpdateScore(ctx, id, scoreWithOverall(v)); err != nil {
			t.Fatalf("update %s: %v", id, err)
		}
	}

	entries, err := store.TopN(ctx, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantIDs := []string{"a", "c", "b", "f", "d", "e"}
	wantRanks := []int{1, 1, 2, 2, 3, 4}
	if len(entries) != len(wantIDs) {
		t.Fatalf("expected %d entries, got %d", len(wantIDs), len(entries))
	}
	for i, e := range entries {
		if e.ProspectID != wantIDs[i] || e.Rank != wantRanks[i] {
			t.Errorf("position %d: expected %s rank %d, got %s rank %d",
				i, wantIDs[i], wantRanks[i], e.ProspectID, e.Rank)
		}
	}

	top2, _ := store.TopN(ctx, 2)
	if len(top2) != 2 || top2[1].ProspectID != "c" {
		t.Errorf("expected top 2 to end with c, got %+v", top2)
	}
}

func TestTreapStore_TopNByCategory(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for id, v := range map[string]float64{"hot1": 9.5, "hot2": 8.0, "warm1": 7.999, "warm2": 6.0, "cold1": 5.999, "cold2": 2} {
		_, _ = store.UpdateScore(ctx, id, scoreWithOverall(v))
	}

	cases := []struct {
		category scoring.Category
		want     []string
	}{
		{scoring.CategoryHot, []string{"hot1", "hot2"}},
		{scoring.CategoryWarm, []string{"warm1", "warm2"}},
		{scoring.CategoryCold, []string{"cold1", "cold2"}},
	}
	for _, tc := range cases {
		entries, err := store.TopNByCategory(ctx, tc.category, 10)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.category, err)
		}
		got := make([]string, len(entries))
		for i, e := range entries {
			got[i] = e.ProspectID
			if e.Score.Category() != tc.category {
				t.Errorf("%s: entry %s has category %s", tc.category, e.ProspectID, e.Score.Category())
			}
		}
		if fmt.Sprint(got) != fmt.Sprint(tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.category, tc.want, got)
		}
	}

	warm, _ := store.TopNByCategory(ctx, scoring.CategoryWarm, 1)
	if len(warm) != 1 || warm[0].Rank != 3 {
		t.Errorf("expected warm1 with global rank 3, got %+v", warm)
	}

	if _, err := store.TopNByCategory(ctx, "lukewarm", 5); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown category, got %v", err)
	}
}

func TestTreapStore_Remove(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, _ = store.UpdateScore(ctx, "a", scoreWithOverall(9))
	_, _ = store.UpdateScore(ctx, "b", scoreWithOverall(8))
	_, _ = store.UpdateScore(ctx, "c", scoreWithOverall(7))

	if !store.Remove(ctx, "a") {
		t.Fatal("expected a to be removed")
	}
	if store.Remove(ctx, "a") {
		t.Error("expected second remove to report false")
	}
	if _, err := store.Rank(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	entry, _ := store.Rank(ctx, "b")
	if entry.Rank != 1 {
		t.Errorf("expected b to move up to rank 1, got %d", entry.Rank)
	}
}

func TestTreapStore_EdgeCases(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if _, err := store.TopN(ctx, 0); !errors.Is(err, ErrInvalidLimit) {
		t.Errorf("expected ErrInvalidLimit, got %v", err)
	}
	if _, err := store.Rank(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.UpdateScore(ctx, "zero", scoring.Score{}); !errors.Is(err, ErrInvalidScore) {
		t.Errorf("expected ErrInvalidScore, got %v", err)
	}
	entries, err := store.TopN(ctx, 5)
	if err != nil || len(entries) != 0 {
		t.Errorf("expected empty result, got %v, %v", entries, err)
	}

	// bounds of the score range
	_, _ = store.UpdateScore(ctx, "min", scoreWithOverall(scoring.MinScore))
	_, _ = store.UpdateScore(ctx, "max", scoreWithOverall(scoring.MaxScore))
	entries, _ = store.TopN(ctx, 5)
	if len(entries) != 2 || entries[0].ProspectID != "max" || entries[1].Rank != 2 {
		t.Errorf("unexpected bound ordering: %+v", entries)
	}
}

// TestTreapStore_RankMatchesBruteForce compares ranks against a sort of all
// entries after random updates and removals.
func TestTreapStore_RankMatchesBruteForce(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	rng := rand.New(rand.NewSource(7))
	want := map[string]float64{}

	for i := 0; i < 2000; i++ {
		id := fmt.Sprintf("lead-%d", rng.Intn(300))
		if rng.Intn(10) == 0 {
			store.Remove(ctx, id)
			delete(want, id)
			continue
		}
		s := scoring.NewScore(1+rng.Float64()*9, 1+rng.Float64()*9, 1+rng.Float64()*9, 1+rng.Float64()*9)
		_, _ = store.UpdateScore(ctx, id, s)
		want[id] = s.Overall()
	}

	distinct := map[float64]bool{}
	for _, v := range want {
		distinct[v] = true
	}
	values := make([]float64, 0, len(distinct))
	for v := range distinct {
		values = append(values, v)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(values)))
	rankOf := map[float64]int{}
	for i, v := range values {
		rankOf[v] = i + 1
	}

	if store.Count(ctx) != len(want) {
		t.Fatalf("expected count %d, got %d", len(want), store.Count(ctx))
	}
	for id, v := range want {
		entry, err := store.Rank(ctx, id)
		if err != nil {
			t.Fatalf("rank %s: %v", id, err)
		}
		if entry.Rank != rankOf[v] {
			t.Errorf("%s: expected rank %d, got %d", id, rankOf[v], entry.Rank)
		}
	}

	all, _ := store.TopN(ctx, len(want)+1)
	for i := 1; i < len(all); i++ {
		prev, cur := all[i-1], all[i]
		if less(toFixedPoint(cur.Score.Overall()), cur.ProspectID, toFixedPoint(prev.Score.Overall()), prev.ProspectID) {
			t.Fatalf("entries out of order at %d: %s before %s", i, prev.ProspectID, cur.ProspectID)
		}
	}
}

func TestTreapStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				id := fmt.Sprintf("lead-%d", (w*200+i)%150)
				_, _ = store.UpdateScore(ctx, id, scoreWithOverall(1+float64(i%90)/10))
				_, _ = store.TopN(ctx, 10)
				_, _ = store.Rank(ctx, id)
			}
		}(w)
	}
	wg.Wait()

	if store.Count(ctx) != 150 {
		t.Errorf("expected 150 leads, got %d", store.Count(ctx))
	}
}

func TestTreapStore_PeriodicSnapshots(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, WithSnapshotInterval(10*time.Millisecond), WithTopCacheSize(2))

	if store.Snapshot() == nil {
		t.Fatal("expected an initial snapshot")
	}

	_, _ = store.UpdateScore(ctx, "hot", scoreWithOverall(9))
	_, _ = store.UpdateScore(ctx, "warm", scoreWithOverall(7))
	_, _ = store.UpdateScore(ctx, "cold", scoreWithOverall(3))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if snap := store.Snapshot(); snap != nil && snap.CategoryCounts[scoring.CategoryCold] == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	snap := store.Snapshot()
	if snap.CategoryCounts[scoring.CategoryCold] != 1 {
		t.Fatalf("expected snapshot with the cold lead, got %+v", snap.CategoryCounts)
	}
	if snap.CategoryCounts[scoring.CategoryHot] != 1 || snap.CategoryCounts[scoring.CategoryWarm] != 1 {
		t.Errorf("unexpected category counts: %+v", snap.CategoryCounts)
	}
	if len(snap.TopCache) != 2 {
		t.Fatalf("expected the top cache capped at 2, got %+v", snap.TopCache)
	}
	if snap.TopCache[0].ProspectID != "hot" || snap.TopCache[0].Rank != 1 ||
		snap.TopCache[1].ProspectID != "warm" || snap.TopCache[1].Rank != 2 {
		t.Errorf("unexpected top cache: %+v", snap.TopCache)
	}
}

func TestTreapStore_CloseBehavior(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := NewTreapStore(ctx, WithSnapshotInterval(time.Millisecond))

	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	cancel()

	// still usable for reads and writes after close
	if _, err := store.UpdateScore(context.Background(), "x", scoreWithOverall(5)); err != nil {
		t.Errorf("update after close: %v", err)
	}
}
