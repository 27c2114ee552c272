package api

import (
	"context"
	"net/http"

	"github.com/samwel-gachiri/digital-sales-agent/internal/domain/scoring"
)

// ScoreDependencies defines the interface for stateless scoring.
type ScoreDependencies interface {
	ScoreSignals(ctx context.Context, prospect, contact, conversation map[string]any) (scoring.Score, error)
	BatchScore(ctx context.Context, prospects []map[string]any) ([]scoring.Ranked, error)
}

// ScoreHandler handles stateless scoring requests.
type ScoreHandler struct {
	deps ScoreDependencies
}

// NewScoreHandler creates a new score handler.
func NewScoreHandler(deps ScoreDependencies) *ScoreHandler {
	return &ScoreHandler{deps: deps}
}

// signalsRequest carries the raw signals of one prospect. Company signals
// sit under prospect_data.company_data.
type signalsRequest struct {
	Prospect     map[string]any `json:"prospect_data"`
	Contact      map[string]any `json:"contact_data"`
	Conversation map[string]any `json:"conversation_data"`
}

type batchRequest struct {
	Prospects []map[string]any `json:"prospects"`
}

// HandleScore handles POST /score requests.
func (h *ScoreHandler) HandleScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.score"
	var req signalsRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	score, err := h.deps.ScoreSignals(r.Context(), req.Prospect, req.Contact, req.Conversation)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, score)
}

// HandleBatchScore handles POST /score/batch requests. Results are ordered
// by descending overall score.
func (h *ScoreHandler) HandleBatchScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.score_batch"
	var req batchRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	ranked, err := h.deps.BatchScore(r.Context(), req.Prospects)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, ranked)
}
