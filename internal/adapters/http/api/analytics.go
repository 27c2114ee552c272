package api

import (
	"context"
	"net/http"

	"github.com/samwel-gachiri/digital-sales-agent/internal/domain/types"
)

// AnalyticsDependencies defines the interface for pipeline analytics.
type AnalyticsDependencies interface {
	Analytics(ctx context.Context) (types.Analytics, error)
}

// AnalyticsHandler handles analytics requests.
type AnalyticsHandler struct {
	deps AnalyticsDependencies
}

// NewAnalyticsHandler creates a new analytics handler.
func NewAnalyticsHandler(deps AnalyticsDependencies) *AnalyticsHandler {
	return &AnalyticsHandler{deps: deps}
}

// HandleGetAnalytics handles GET /analytics requests.
func (h *AnalyticsHandler) HandleGetAnalytics(w http.ResponseWriter, r *http.Request) {
	a, err := h.deps.Analytics(r.Context())
	if err != nil {
		writeFailure(w, "api.get_analytics", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}
