package tmdb

import (
	"errors"
	"fmt"
)

// Sentinel errors for TMDB operations.
var (
	ErrNotFound        = errors.New("tmdb: not found")
	ErrUnauthorized    = errors.New("tmdb: invalid or missing API key")
	ErrRateLimited     = errors.New("tmdb: rate limited by server")
	ErrServer          = errors.New("tmdb: server error")
	ErrInvalidCategory = errors.New("tmdb: unknown category")
	ErrInvalidID       = errors.New("tmdb: invalid movie id")
)

// Error wraps an underlying error with operation context.
type Error struct {
	Op      string // "list", "search", "getMovie", "genres"
	Subject string // Category, query or movie ID, if any
	Err     error
}

func (e *Error) Error() string {
	if e.Subject != "" {
		return fmt.Sprintf("tmdb %s [%s]: %v", e.Op, e.Subject, e.Err)
	}
	return fmt.Sprintf("tmdb %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrapError(op, subject string, err error) error {
	return &Error{Op: op, Subject: subject, Err: err}
}

// countsAsFailure reports whether err says the upstream is unhealthy.
// Missing movies and bad input are answers, not outages.
func countsAsFailure(err error) bool {
	switch {
	case err == nil,
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrInvalidCategory),
		errors.Is(err, ErrInvalidID):
		return false
	}
	return true
}
