package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
)

const defaultLeadsLimit = 10

// LeadsDependencies defines the interface for ranked lead queries.
type LeadsDependencies interface {
	TopN(ctx context.Context, n int, category string) ([]LeadEntry, error)
}

// LeadsHandler handles ranked lead requests.
type LeadsHandler struct {
	deps     LeadsDependencies
	maxLimit int
}

// NewLeadsHandler creates a new leads handler.
func NewLeadsHandler(deps LeadsDependencies, maxLimit int) *LeadsHandler {
	return &LeadsHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleGetLeads handles GET /leads?limit=N&category=C requests. limit
// defaults to 10; category is one of hot, warm or cold.
func (h *LeadsHandler) HandleGetLeads(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leads"
	q := r.URL.Query()

	n := defaultLeadsLimit
	if s := q.Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			writeError(w, http.StatusBadRequest, "bad_request",
				WrapKind(op, ErrBadRequest, fmt.Errorf("invalid limit %q", s)))
			return
		}
		n = v
	}
	if n > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded",
			WrapKind(op, ErrBadRequest, fmt.Errorf("limit must be at most %d", h.maxLimit)))
		return
	}

	entries, err := h.deps.TopN(r.Context(), n, q.Get("category"))
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
