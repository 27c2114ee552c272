package api

import (
	"net/http"

	"github.com/samwel-gachiri/digital-sales-agent/pkg/logger"
)

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithMaxLimit caps the limit accepted by GET /leads.
func WithMaxLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

// WithLogger sets the logger used for request logs.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithRoutes registers additional routes, such as API docs, on the same
// mux so they share the logging and recovery middleware.
func WithRoutes(register ...func(*http.ServeMux)) Option {
	return func(s *Server) {
		s.routes = append(s.routes, register...)
	}
}
