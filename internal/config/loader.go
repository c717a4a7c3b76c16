package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/perfboard/internal/validation"
)

const (
	envPrefix  = "PERFBOARD_"
	envConfig  = envPrefix + "CONFIG"
	dotEnvFile = ".env"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if PERFBOARD_CONFIG is set
//  3. env (prefix PERFBOARD_), including values from a .env file in the
//     working directory; variables already set win over .env
func Load(ctx context.Context) (*Config, error) {
	if err := godotenv.Load(dotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, dotEnvFile, err)
	}

	base := New(ctx)
	k := koanf.New(".")

	if path := os.Getenv(envConfig); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// PERFBOARD_MAX_UPLOAD_MB -> max_upload_mb. Keys stay flat so the
	// underscores match the koanf tags.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every field and the timezone name.
func (c *Config) Validate() error {
	if err := validation.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(validation.Messages(err), "; "))
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("%w: timezone: %w", ErrInvalidConfig, err)
	}
	return nil
}
