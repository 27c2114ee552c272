package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/samwel-gachiri/digital-sales-agent/internal/domain/model"
	"github.com/samwel-gachiri/digital-sales-agent/internal/domain/types"
)

// ProspectDependencies defines the interface for prospect operations.
type ProspectDependencies interface {
	CreateProspect(ctx context.Context, p *model.Prospect) (string, error)
	GetProspect(ctx context.Context, id string) (*model.Prospect, error)
	ListProspects(ctx context.Context) ([]*model.Prospect, error)
	RequestScore(ctx context.Context, prospectID, requestID string, notes *model.ConversationNotes) (types.ScoreReceipt, error)
	ScoreNow(ctx context.Context, prospectID string) (*model.Prospect, error)
}

// ProspectsHandler handles prospect requests.
type ProspectsHandler struct {
	deps ProspectDependencies
}

// NewProspectsHandler creates a new prospects handler.
func NewProspectsHandler(deps ProspectDependencies) *ProspectsHandler {
	return &ProspectsHandler{deps: deps}
}

type createdResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// scoreRequest is the body of POST /prospects/{id}/score. Both fields are
// optional.
type scoreRequest struct {
	RequestID    string                   `json:"request_id"`
	Conversation *model.ConversationNotes `json:"conversation_data"`
}

type ackResponse struct {
	Status string `json:"status"`
	types.ScoreReceipt
}

// HandleCreateProspect handles POST /prospects requests.
func (h *ProspectsHandler) HandleCreateProspect(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_prospect"
	var p model.Prospect
	if err := decodeJSON(w, r, &p, false); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	id, err := h.deps.CreateProspect(r.Context(), &p)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	w.Header().Set("Location", "/prospects/"+id)
	writeJSON(w, http.StatusCreated, createdResponse{ID: id, Status: "created"})
}

// HandleListProspects handles GET /prospects requests.
func (h *ProspectsHandler) HandleListProspects(w http.ResponseWriter, r *http.Request) {
	list, err := h.deps.ListProspects(r.Context())
	if err != nil {
		writeFailure(w, "api.list_prospects", err)
		return
	}
	if list == nil {
		list = []*model.Prospect{}
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleGetProspect handles GET /prospects/{id} requests.
func (h *ProspectsHandler) HandleGetProspect(w http.ResponseWriter, r *http.Request) {
	p, err := h.deps.GetProspect(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, "api.get_prospect", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleScoreProspect handles POST /prospects/{id}/score requests. The
// request is queued and acknowledged with 202; a request id seen before is
// acknowledged with 200. With ?mode=sync the prospect is scored in-line and
// returned.
func (h *ProspectsHandler) HandleScoreProspect(w http.ResponseWriter, r *http.Request) {
	const op = "api.score_prospect"
	id := r.PathValue("id")
	if strings.TrimSpace(id) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	var req scoreRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	if r.URL.Query().Get("mode") == "sync" {
		if req.Conversation != nil {
			if _, err := h.deps.RequestScore(r.Context(), id, req.RequestID, req.Conversation); err != nil {
				writeFailure(w, op, err)
				return
			}
		}
		p, err := h.deps.ScoreNow(r.Context(), id)
		if err != nil {
			writeFailure(w, op, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
		return
	}

	receipt, err := h.deps.RequestScore(r.Context(), id, req.RequestID, req.Conversation)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	if receipt.Duplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", ScoreReceipt: receipt})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", ScoreReceipt: receipt})
}
