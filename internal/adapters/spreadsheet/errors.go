package spreadsheet

import "errors"

// Sentinel kinds. Every *Error unwraps to exactly one of them.
var (
	ErrUnsupportedFormat = errors.New("spreadsheet: unsupported format")
	ErrEmpty             = errors.New("spreadsheet: no data rows")
	ErrMissingColumn     = errors.New("spreadsheet: required column missing")
	ErrNoReferenceDates  = errors.New("spreadsheet: no reference dates")
	ErrNoValidRows       = errors.New("spreadsheet: no valid rows")
)

// Error is a validation failure worth showing to the uploader. Message is
// the user-facing text; Details lists row-level problems when there are any.
type Error struct {
	Kind    error
	Message string
	Details []string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, msg string, details ...string) *Error {
	return &Error{Kind: kind, Message: msg, Details: details}
}

// IsValidation reports whether err is a user-facing validation failure.
func IsValidation(err error) bool {
	var e *Error
	return errors.As(err, &e)
}
