package service

import (
	"time"

	"github.com/samwel-gachiri/digital-sales-agent/internal/adapters/mq/publisher"
	"github.com/samwel-gachiri/digital-sales-agent/internal/adapters/repository"
	"github.com/samwel-gachiri/digital-sales-agent/internal/domain/dedupe"
	"github.com/samwel-gachiri/digital-sales-agent/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of pending scoring requests.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the in-memory deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithRedisDedupe remembers request ids in Redis at url for ttl.
func WithRedisDedupe(url string, ttl time.Duration) Option {
	return func(s *Service) {
		s.redisURL = url
		if ttl > 0 {
			s.dedupeTTL = ttl
		}
	}
}

// WithSQLite persists prospects in the SQLite database at dsn.
func WithSQLite(dsn string) Option {
	return func(s *Service) {
		s.sqliteDSN = dsn
	}
}

// WithKafka publishes lead scored events to topic.
func WithKafka(brokers []string, topic string) Option {
	return func(s *Service) {
		s.kafkaBrokers = brokers
		s.kafkaTopic = topic
	}
}

// WithSnapshotInterval sets how often the ranking snapshot is rebuilt.
func WithSnapshotInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.snapshotInterval = d
		}
	}
}

// WithMaxBatchSize caps the number of prospects per BatchScore call.
func WithMaxBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxBatchSize = n
		}
	}
}

// WithSeedDemo loads the sample prospects on Start.
func WithSeedDemo(enabled bool) Option {
	return func(s *Service) {
		s.seedDemo = enabled
	}
}

// WithShutdownTimeout bounds how long Stop waits for the queue to drain.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithProspects uses repo instead of building one from the storage options.
func WithProspects(repo repository.Prospects) Option {
	return func(s *Service) {
		s.prospects = repo
	}
}

// WithDeduper uses d instead of building one from the dedupe options.
func WithDeduper(d dedupe.Deduper) Option {
	return func(s *Service) {
		s.deduper = d
	}
}

// WithPublisher uses p instead of building one from the Kafka options.
func WithPublisher(p publisher.Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}
