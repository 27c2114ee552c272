// Package api exposes the lead scoring service over HTTP.
package api

import (
	"net/http"

	"github.com/samwel-gachiri/digital-sales-agent/internal/domain/types"
	"github.com/samwel-gachiri/digital-sales-agent/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	ProspectDependencies
	ScoreDependencies
	LeadsDependencies
	RankDependencies
	AnalyticsDependencies
	StatsProvider
}

// LeadEntry mirrors the read shape returned by ranking queries.
type LeadEntry = types.LeadEntry

const defaultMaxLimit = 100

// Server wires HTTP routes for the business API.
type Server struct {
	maxLimit int
	log      logger.Logger
	routes   []func(*http.ServeMux)

	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	prospectsHandler *ProspectsHandler
	scoreHandler     *ScoreHandler
	leadsHandler     *LeadsHandler
	rankHandler      *RankHandler
	analyticsHandler *AnalyticsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		maxLimit: defaultMaxLimit,
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(deps)
	s.prospectsHandler = NewProspectsHandler(deps)
	s.scoreHandler = NewScoreHandler(deps)
	s.leadsHandler = NewLeadsHandler(deps, s.maxLimit)
	s.rankHandler = NewRankHandler(deps)
	s.analyticsHandler = NewAnalyticsHandler(deps)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /metrics", s.healthHandler.HandleHealth)
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /prospects", MetricsMiddleware(s.prospectsHandler.HandleCreateProspect, "prospects_create"))
	mux.HandleFunc("GET /prospects", MetricsMiddleware(s.prospectsHandler.HandleListProspects, "prospects_list"))
	mux.HandleFunc("GET /prospects/{id}", MetricsMiddleware(s.prospectsHandler.HandleGetProspect, "prospects_get"))
	mux.HandleFunc("POST /prospects/{id}/score", MetricsMiddleware(s.prospectsHandler.HandleScoreProspect, "prospects_score"))

	mux.HandleFunc("POST /score", MetricsMiddleware(s.scoreHandler.HandleScore, "score"))
	mux.HandleFunc("POST /score/batch", MetricsMiddleware(s.scoreHandler.HandleBatchScore, "score_batch"))

	mux.HandleFunc("GET /leads", MetricsMiddleware(s.leadsHandler.HandleGetLeads, "leads"))
	mux.HandleFunc("GET /rank/{id}", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
	mux.HandleFunc("GET /analytics", MetricsMiddleware(s.analyticsHandler.HandleGetAnalytics, "analytics"))

	for _, register := range s.routes {
		register(mux)
	}
}

// Handler returns a mux with every route registered, wrapped in request
// logging and panic recovery.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	return RecoverMiddleware(s.log, LoggingMiddleware(s.log, mux))
}
