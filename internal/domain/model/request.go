package model

import "time"

// ScoreRequest asks for a prospect to be (re)scored asynchronously.
// RequestID makes submissions idempotent.
type ScoreRequest struct {
	RequestID  string    // unique id for idempotency
	ProspectID string    // prospect to score
	TS         time.Time // submission time
}

// LeadScored is published after a prospect has been scored.
type LeadScored struct {
	ProspectID  string    `json:"prospect_id"`
	CompanyName string    `json:"company_name"`
	Budget      float64   `json:"budget"`
	Authority   float64   `json:"authority"`
	Need        float64   `json:"need"`
	Timeline    float64   `json:"timeline"`
	Overall     float64   `json:"overall"`
	Category    string    `json:"category"`
	Rank        int       `json:"rank"`
	ScoredAt    time.Time `json:"scored_at"`
}
