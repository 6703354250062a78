// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Usage errors: the caller invoked an operation against a violated
	// precondition. These always propagate; they signal an orchestrator bug.
	ErrNoSession     = errors.New("no active session")
	ErrNoSnapshot    = errors.New("no edit snapshot to restore")
	ErrNoPartialData = errors.New("no partial transaction data")

	// Store errors.
	ErrStoreUnavailable = errors.New("state store unavailable")

	// Database errors.
	ErrDuplicateEntry = errors.New("duplicate entry")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// IsUsageError reports whether err indicates a violated operation precondition
// rather than an infrastructure failure.
func IsUsageError(err error) bool {
	return errors.Is(err, ErrNoSession) ||
		errors.Is(err, ErrNoSnapshot) ||
		errors.Is(err, ErrNoPartialData)
}

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}
