// Package repository holds the prospect stores and the lead ranking index.
package repository

import (
	"context"

	"github.com/samwel-gachiri/digital-sales-agent/internal/domain/scoring"
)

// Entry is one ranked lead.
type Entry struct {
	Rank       int
	ProspectID string
	Score      scoring.Score
}

// Store ranks leads by overall score.
type Store interface {
	// UpdateScore records the latest score of a lead, replacing any earlier
	// one. Returns true when the stored overall score changed.
	UpdateScore(ctx context.Context, prospectID string, score scoring.Score) (bool, error)

	// Remove drops a lead from the ranking. Returns false if it was unknown.
	Remove(ctx context.Context, prospectID string) bool

	// Rank returns the current rank and score of a lead.
	// Returns ErrNotFound if the lead is unknown.
	Rank(ctx context.Context, prospectID string) (Entry, error)

	// TopN returns the top-N leads ordered by overall desc, id asc.
	TopN(ctx context.Context, n int) ([]Entry, error)

	// TopNByCategory is TopN restricted to one category. Ranks stay global.
	TopNByCategory(ctx context.Context, category scoring.Category, n int) ([]Entry, error)

	// Count returns the number of ranked leads.
	Count(ctx context.Context) int
}
