// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() returns a Config populated with defaults.
// - Load layers a YAML file and the environment on top of the defaults.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Dedupe backends.
const (
	DedupeMemory = "memory"
	DedupeRedis  = "redis"
)

// Storage backends.
const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: json or text.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory scoring request queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of scoring workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeBackend selects where scoring request ids are remembered.
	DedupeBackend string `koanf:"dedupe_backend"`

	// DedupeSize bounds the in-memory deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// DedupeTTL is how long the Redis backend remembers a request id.
	DedupeTTL time.Duration `koanf:"dedupe_ttl"`

	// RedisURL is used when DedupeBackend is "redis".
	RedisURL string `koanf:"redis_url"`

	// Storage selects the prospect repository backend.
	Storage string `koanf:"storage"`

	// SQLiteDSN is the database path when Storage is "sqlite".
	SQLiteDSN string `koanf:"sqlite_dsn"`

	// KafkaBrokers is a comma separated broker list. Empty disables publishing.
	KafkaBrokers string `koanf:"kafka_brokers"`

	// KafkaTopic receives lead scored events.
	KafkaTopic string `koanf:"kafka_topic"`

	// SnapshotInterval controls how often the ranking snapshot is rebuilt.
	SnapshotInterval time.Duration `koanf:"snapshot_interval"`

	// MaxLeadsLimit caps GET /leads?limit.
	MaxLeadsLimit int `koanf:"max_leads_limit"`

	// MaxBatchSize caps the number of prospects in one batch scoring call.
	MaxBatchSize int `koanf:"max_batch_size"`

	// SeedDemo loads the sample prospects on startup.
	SeedDemo bool `koanf:"seed_demo"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "json",
		Addr:             ":9080",
		QueueSize:        10_000,
		WorkerCount:      runtime.NumCPU() * 2,
		DedupeBackend:    DedupeMemory,
		DedupeSize:       50_000,
		DedupeTTL:        24 * time.Hour,
		Storage:          StorageMemory,
		SQLiteDSN:        "leads.db",
		KafkaTopic:       "leads.scored",
		SnapshotInterval: time.Second,
		MaxLeadsLimit:    100,
		MaxBatchSize:     1000,
		ShutdownTimeout:  10 * time.Second,
	}
}

// Brokers returns the configured Kafka brokers.
func (c *Config) Brokers() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.MaxLeadsLimit <= 0:
		return fmt.Errorf("%w: max_leads_limit must be positive", ErrInvalidConfig)
	case c.MaxBatchSize <= 0:
		return fmt.Errorf("%w: max_batch_size must be positive", ErrInvalidConfig)
	}

	switch c.DedupeBackend {
	case DedupeMemory:
	case DedupeRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("%w: redis_url is required for the redis dedupe backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: %w: dedupe_backend %q", ErrInvalidConfig, ErrUnknownBackend, c.DedupeBackend)
	}

	switch c.Storage {
	case StorageMemory:
	case StorageSQLite:
		if c.SQLiteDSN == "" {
			return fmt.Errorf("%w: sqlite_dsn is required for sqlite storage", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: %w: storage %q", ErrInvalidConfig, ErrUnknownBackend, c.Storage)
	}

	if len(c.Brokers()) > 0 && c.KafkaTopic == "" {
		return fmt.Errorf("%w: kafka_topic is required when kafka_brokers is set", ErrInvalidConfig)
	}
	return nil
}
