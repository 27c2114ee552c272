package publisher

import (
	"time"

	"github.com/samwel-gachiri/digital-sales-agent/pkg/logger"
)

// Option applies a configuration option to the KafkaPublisher.
type Option func(*KafkaPublisher)

// WithWriteTimeout bounds a single publish.
func WithWriteTimeout(d time.Duration) Option {
	return func(p *KafkaPublisher) {
		if d > 0 {
			p.writeTimeout = d
		}
	}
}

// WithLogger sets the logger used to report publish failures.
func WithLogger(l logger.Logger) Option {
	return func(p *KafkaPublisher) {
		if l != nil {
			p.log = l
		}
	}
}
