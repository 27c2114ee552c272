package repository

import (
	"time"

	"github.com/samwel-gachiri/digital-sales-agent/pkg/logger"
)

// Option applies a configuration option to the TreapStore.
type Option func(*TreapStore)

// WithSnapshotInterval sets how often a ranking snapshot is published.
func WithSnapshotInterval(interval time.Duration) Option {
	return func(s *TreapStore) {
		if interval > 0 {
			s.snapshotInterval = interval
		}
	}
}

// WithTopCacheSize sets how many leads a snapshot keeps in its top cache.
func WithTopCacheSize(n int) Option {
	return func(s *TreapStore) {
		if n > 0 {
			s.topCacheSize = n
		}
	}
}

// SQLiteOption applies a configuration option to SQLiteProspects.
type SQLiteOption func(*SQLiteProspects)

// WithSQLiteLogger sets the logger used by the SQLite store.
func WithSQLiteLogger(l logger.Logger) SQLiteOption {
	return func(s *SQLiteProspects) {
		if l != nil {
			s.log = l
		}
	}
}
