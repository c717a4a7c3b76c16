package service

import (
	"github.com/okian/perfboard/internal/adapters/archive"
	"github.com/okian/perfboard/internal/adapters/cache"
	"github.com/okian/perfboard/internal/adapters/repository"
	"github.com/okian/perfboard/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the persistence backend. Required.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		s.store = st
	}
}

// WithCache sets the summary cache.
func WithCache(c cache.SummaryCache) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithArchive sets where raw uploads are kept.
func WithArchive(a archive.Archiver) Option {
	return func(s *Service) {
		if a != nil {
			s.archive = a
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

// WithMaxUploadMB sets the per-file size limit in megabytes.
func WithMaxUploadMB(mb int) Option {
	return func(s *Service) {
		if mb > 0 {
			s.maxUploadMB = mb
		}
	}
}

// WithMaxBatchFiles caps the number of files in one batch upload.
func WithMaxBatchFiles(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxBatchFiles = n
		}
	}
}

// WithRankingLimit sets how many departments the summary ranking keeps.
func WithRankingLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.rankingLimit = n
		}
	}
}

// WithPageSizes sets the default page size for data and log listings and
// the largest page size a client may ask for.
func WithPageSizes(def, maxSize int) Option {
	return func(s *Service) {
		if def > 0 {
			s.pageSize = def
		}
		if maxSize > 0 {
			s.maxPageSize = maxSize
		}
	}
}

// WithStudentPageSize sets the default page size for student listings.
func WithStudentPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.studentPageSize = n
		}
	}
}
