package repository

import (
	"time"

	"github.com/okian/perfboard/pkg/logger"
)

// Option applies a configuration option to the GormStore.
type Option func(*GormStore)

// WithBatchSize sets how many rows go into one INSERT.
func WithBatchSize(n int) Option {
	return func(s *GormStore) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithLogger routes SQL diagnostics to l.
func WithLogger(l logger.Logger) Option {
	return func(s *GormStore) {
		if l != nil {
			s.log = l
		}
	}
}

// WithLocation sets the zone used for created_at/updated_at timestamps.
func WithLocation(loc *time.Location) Option {
	return func(s *GormStore) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithSlowQueryThreshold sets when a statement is logged as slow.
func WithSlowQueryThreshold(d time.Duration) Option {
	return func(s *GormStore) {
		if d > 0 {
			s.slowQuery = d
		}
	}
}
