// Package loadtest drives a running lead scoring server over HTTP: it
// creates generated prospects, submits conversation notes for scoring,
// waits for the queue to drain and checks the ranking against scores
// computed locally.
package loadtest

import (
	"time"

	"github.com/samwel-gachiri/digital-sales-agent/internal/domain/model"
)

// Config holds configuration for a load test run.
type Config struct {
	BaseURL        string        // Base URL of the service
	NumProspects   int           // Number of prospects to generate
	TopN           int           // Number of leads to fetch from /leads
	Workers        int           // Number of concurrent HTTP workers
	Timeout        time.Duration // HTTP request timeout
	DrainTimeout   time.Duration // How long to wait for scoring to finish
	DuplicateEvery int           // Resubmit every Nth score request; 0 disables
	Seed           uint64        // Generator seed; 0 picks one from the clock
	OutputFile     string        // Where generated prospects are written; empty skips
	Verbose        bool          // Log every failed request
}

// Generated is a prospect and the conversation notes submitted for it.
type Generated struct {
	Prospect  *model.Prospect         `json:"prospect"`
	Notes     model.ConversationNotes `json:"notes"`
	RequestID string                  `json:"request_id"`
}

// Stats holds run statistics.
type Stats struct {
	Generated         int
	Created           int
	CreateFailed      int
	ScoreAccepted     int
	ScoreDuplicate    int
	ScoreRejected     int
	ScoreFailed       int
	RankingsRetrieved int
	LeadEntries       int
	Mismatches        int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
