package loadtest

import (
	"fmt"
	"slices"

	"github.com/samwel-gachiri/digital-sales-agent/internal/domain/scoring"
	"github.com/samwel-gachiri/digital-sales-agent/internal/domain/types"
)

// Expected returns the score a generated prospect should end up with once
// its notes have been applied.
func Expected(g Generated) scoring.Score {
	p := g.Prospect.Clone()
	p.Conversation = g.Notes
	return scoring.CalculateBANTScore(p.Signals())
}

// verifyResults checks that the lead list is ordered with dense ranks, and
// that no generated prospect outranks its head.
func verifyResults(rankings, leads []types.LeadEntry, stats *Stats) error {
	if stats.Mismatches > 0 {
		return fmt.Errorf("%w: %d prospects did not reach their expected score", ErrVerification, stats.Mismatches)
	}
	if len(rankings) == 0 {
		return fmt.Errorf("%w: no rankings retrieved", ErrVerification)
	}
	if len(leads) == 0 {
		return fmt.Errorf("%w: empty lead list", ErrVerification)
	}

	if leads[0].Rank != 1 {
		return fmt.Errorf("%w: first lead has rank %d", ErrVerification, leads[0].Rank)
	}
	for i := 1; i < len(leads); i++ {
		prev, cur := leads[i-1], leads[i]
		if cur.Overall > prev.Overall {
			return fmt.Errorf("%w: lead %d (%.3f) scores above lead %d (%.3f)",
				ErrVerification, i, cur.Overall, i-1, prev.Overall)
		}
		want := prev.Rank
		if cur.Overall < prev.Overall {
			want++
		}
		if cur.Rank != want {
			return fmt.Errorf("%w: lead %d has rank %d, want %d", ErrVerification, i, cur.Rank, want)
		}
	}

	best := slices.MaxFunc(rankings, func(a, b types.LeadEntry) int {
		switch {
		case a.Overall < b.Overall:
			return -1
		case a.Overall > b.Overall:
			return 1
		default:
			return 0
		}
	})
	if best.Overall > leads[0].Overall {
		return fmt.Errorf("%w: %s (%.3f) outranks the top lead %s (%.3f)",
			ErrVerification, best.ProspectID, best.Overall, leads[0].ProspectID, leads[0].Overall)
	}
	return nil
}
