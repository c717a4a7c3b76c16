// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults live in New; Load layers a YAML file and env vars on top.
// - Every field is validated before the process uses it.
package config

import (
	"context"
	"time"
	_ "time/tzdata" // Asia/Seoul on hosts without zoneinfo
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn warning error"`
	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":8000".
	Addr string `koanf:"addr" validate:"required"`

	// DBPath is the SQLite database file.
	DBPath string `koanf:"db_path" validate:"required"`

	// RedisAddr enables the summary cache when set.
	RedisAddr     string `koanf:"redis_addr" validate:"omitempty,hostname_port"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db" validate:"gte=0,lte=15"`
	// SummaryCacheTTLSeconds is how long a cached summary lives.
	SummaryCacheTTLSeconds int `koanf:"summary_cache_ttl_seconds" validate:"gte=1"`

	// MaxUploadMB caps the size of one uploaded file.
	MaxUploadMB int `koanf:"max_upload_mb" validate:"gte=1,lte=100"`
	// MaxBatchFiles caps the number of files in one batch upload.
	MaxBatchFiles int `koanf:"max_batch_files" validate:"gte=1,lte=100"`

	// PageSize and MaxPageSize bound /api/data/ and /api/logs/ pages.
	PageSize    int `koanf:"page_size" validate:"gte=1"`
	MaxPageSize int `koanf:"max_page_size" validate:"gtefield=PageSize"`
	// StudentPageSize is the default /api/students/ page size.
	StudentPageSize int `koanf:"student_page_size" validate:"gte=1"`
	// RankingLimit is the number of departments in the summary ranking.
	RankingLimit int `koanf:"ranking_limit" validate:"gte=1"`

	// UploadRatePerSec throttles upload endpoints; 0 disables throttling.
	UploadRatePerSec float64 `koanf:"upload_rate_per_sec" validate:"gte=0"`
	UploadBurst      int     `koanf:"upload_burst" validate:"gte=1"`

	// ArchivePath keeps raw uploads in a bbolt file when set.
	ArchivePath string `koanf:"archive_path"`

	// StaticDir holds the built front end; empty serves a placeholder page.
	StaticDir string `koanf:"static_dir"`

	// Timezone is used for record timestamps.
	Timezone string `koanf:"timezone" validate:"required"`
}

// New creates a Config holding the defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:               "info",
		LogFormat:              "text",
		Addr:                   ":8000",
		DBPath:                 "data/perfboard.db",
		SummaryCacheTTLSeconds: 300,
		MaxUploadMB:            10,
		MaxBatchFiles:          20,
		PageSize:               100,
		MaxPageSize:            1000,
		StudentPageSize:        50,
		RankingLimit:           10,
		UploadRatePerSec:       5,
		UploadBurst:            10,
		Timezone:               "Asia/Seoul",
	}
}

// SummaryCacheTTL returns the cache TTL as a duration.
func (c *Config) SummaryCacheTTL() time.Duration {
	return time.Duration(c.SummaryCacheTTLSeconds) * time.Second
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}
