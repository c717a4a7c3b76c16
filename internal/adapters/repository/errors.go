package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound    = errors.New("record not found")
	ErrInvalidPage = errors.New("invalid page")
	ErrOpen        = errors.New("open database failed")
)
