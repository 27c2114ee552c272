package scoring

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/samwel-gachiri/digital-sales-agent/pkg/logger"
)

// Ranked pairs a prospect identifier with its score.
type Ranked struct {
	ID    string `json:"id"`
	Score Score  `json:"score"`
}

// BatchScore scores prospects with the default scorer.
func BatchScore(prospects []ProspectSignals) []Ranked {
	return defaultScorer.BatchScore(context.Background(), prospects)
}

// BatchScoreMaps scores decoded JSON prospects with the default scorer.
func BatchScoreMaps(prospects []map[string]any) []Ranked {
	return defaultScorer.BatchScoreMaps(context.Background(), prospects)
}

// BatchScore scores every prospect and returns them ordered by descending
// overall score. Ties keep their input order.
func (s *Scorer) BatchScore(ctx context.Context, prospects []ProspectSignals) []Ranked {
	out := make([]Ranked, len(prospects))
	for i, p := range prospects {
		out[i] = Ranked{ID: p.ID, Score: s.guardEntry(ctx, func() string { return p.ID }, func() Score {
			return s.CalculateBANTScore(ctx, p)
		})}
	}
	SortRanked(out)
	return out
}

// BatchScoreMaps scores prospects given as decoded JSON objects with the
// keys "id", "company_data", "primary_contact" and "conversation_data".
// A missing id becomes "unknown".
func (s *Scorer) BatchScoreMaps(ctx context.Context, prospects []map[string]any) []Ranked {
	out := make([]Ranked, len(prospects))
	for i, p := range prospects {
		out[i] = s.ScoreMap(ctx, p)
	}
	SortRanked(out)
	return out
}

// ScoreMap scores a single decoded JSON prospect. An id that cannot be
// read leaves the entry as "unknown" with the default score.
func (s *Scorer) ScoreMap(ctx context.Context, p map[string]any) Ranked {
	if p == nil {
		p = map[string]any{}
	}
	r := Ranked{ID: unknownID}
	r.Score = s.guardEntry(ctx, func() string { return r.ID }, func() Score {
		r.ID = prospectID(p)
		return s.calculateLoose(ctx, p[keyCompany], p[keyContact], p[keyConversation])
	})
	return r
}

// SortRanked orders ranked entries by descending overall score, keeping
// the relative order of ties.
func SortRanked(r []Ranked) {
	slices.SortStableFunc(r, func(a, b Ranked) int {
		return cmp.Compare(b.Score.Overall(), a.Score.Overall())
	})
}

// guardEntry runs fn and substitutes DefaultScore if it panics. id is
// read after the panic for logging.
func (s *Scorer) guardEntry(ctx context.Context, id func() string, fn func() Score) (score Score) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error(ctx, "prospect scoring failed, using default score",
				logger.String("prospect_id", id()),
				logger.Error(fmt.Errorf("panic: %v", r)),
			)
			score = DefaultScore()
		}
	}()
	return fn()
}
