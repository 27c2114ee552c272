package scoring

import "github.com/samwel-gachiri/digital-sales-agent/pkg/logger"

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithLogger sets the logger used for score and fallback diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(s *Scorer) {
		if l != nil {
			s.log = l
		}
	}
}

// WithFallbackHook registers a callback invoked with the dimension name
// whenever a dimension falls back to NeutralScore.
func WithFallbackHook(fn func(dimension string)) Option {
	return func(s *Scorer) {
		if fn != nil {
			s.onFallback = fn
		}
	}
}
