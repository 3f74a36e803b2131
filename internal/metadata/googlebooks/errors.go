package googlebooks

import (
	"errors"
	"fmt"
)

// Sentinel errors for Books API operations.
var (
	ErrNotFound      = errors.New("googlebooks: no volume found")
	ErrQuotaExceeded = errors.New("googlebooks: quota exceeded")
	ErrRateLimited   = errors.New("googlebooks: rate limited by server")
	ErrServer        = errors.New("googlebooks: server error")
	ErrEmptyQuery    = errors.New("googlebooks: empty search key")
)

// Error wraps an underlying error with operation context.
type Error struct {
	Op    string // Operation: "search"
	Query string // The query that failed, if applicable
	Err   error
}

func (e *Error) Error() string {
	if e.Query != "" {
		return fmt.Sprintf("googlebooks %s [%s]: %v", e.Op, e.Query, e.Err)
	}
	return fmt.Sprintf("googlebooks %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// wrapError creates an Error with context.
func wrapError(op, query string, err error) error {
	return &Error{
		Op:    op,
		Query: query,
		Err:   err,
	}
}
