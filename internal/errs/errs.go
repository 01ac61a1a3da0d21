// Package errs defines the error taxonomy shared across the pipeline.
//
// The queue's retry policy only distinguishes two classes: transient
// failures (retried with backoff) and validation failures (failed
// immediately). Everything else is treated as transient.
package errs

import (
	"errors"
	"fmt"
)

// ErrNotFound reports a missing record (creator, job, …). Not retried.
var ErrNotFound = errors.New("not found")

// TransientError marks a failure worth retrying: network resets, timeouts,
// rate limits, upstream 5xx.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient: %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as a TransientError.
func Transient(op string, err error) error {
	return &TransientError{Op: op, Err: err}
}

// ValidationError marks malformed input or unsatisfiable requests. The
// queue fails these immediately, no matter how many attempts remain.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation: %s", e.Reason)
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// Validation builds a ValidationError.
func Validation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsTransient reports whether err is (or wraps) a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsValidation reports whether err is (or wraps) a ValidationError, or is
// ErrNotFound. Both classes mean retrying cannot help.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) || errors.Is(err, ErrNotFound)
}
