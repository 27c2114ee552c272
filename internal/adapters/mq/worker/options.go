package worker

import (
	"github.com/samwel-gachiri/digital-sales-agent/internal/adapters/mq/publisher"
	"github.com/samwel-gachiri/digital-sales-agent/pkg/logger"
)

// Option applies a configuration option to an InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithPublisher sets where lead scored events are sent.
func WithPublisher(p publisher.Publisher) Option {
	return func(w *InMemoryWorker) {
		if p != nil {
			w.publisher = p
		}
	}
}

// WithOnProcessed registers a callback invoked after every request with the
// processing error, nil on success.
func WithOnProcessed(fn func(r Request, err error)) Option {
	return func(w *InMemoryWorker) {
		if fn != nil {
			w.onProcessed = fn
		}
	}
}

// WithProspectLocks shares a lock set with other workers scoring the same
// prospects. NewPool shares one between its workers by default.
func WithProspectLocks(l *ProspectLocks) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.locks = l
		}
	}
}
