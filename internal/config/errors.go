package config

import "errors"

// Errors returned by Load and Validate; both are wrapped with detail.
var (
	ErrInvalidConfig = errors.New("config: invalid value")
	ErrLoadConfig    = errors.New("config: cannot load")
)
