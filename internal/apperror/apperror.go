// Package apperror defines the error kinds the sync core is allowed to
// surface across component boundaries.
//
// Every operation in this codebase either returns its result or fails with
// exactly one of the sentinel kinds below — callers never see an opaque,
// unclassified error from another component. The UI layer switches on the
// kind (via errors.Is) to pick its messaging; the Message field carries the
// human-readable detail.
package apperror

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidCode covers malformed, unknown, and expired sync codes.
	// The Message distinguishes the cause for user display; callers treat
	// all three the same way (deny the lookup).
	ErrInvalidCode = errors.New("invalid sync code")

	// ErrRateLimited means the local request budget for the remote backend
	// is exhausted. The error carries a retry-after estimate.
	ErrRateLimited = errors.New("rate limited")

	// ErrNotFound means the remote blob is gone — unknown id, or purged by
	// the backend's own retention policy. A normal failure mode, not a bug.
	ErrNotFound = errors.New("not found")

	// ErrDecryption means AEAD authentication failed: wrong code, corrupted
	// ciphertext, or tampering. Never auto-retried.
	ErrDecryption = errors.New("decryption failed")

	// ErrValidation means a payload failed structural validation before
	// being trusted as a snapshot.
	ErrValidation = errors.New("validation failed")

	// ErrNetwork is a transport-level failure. Safe for the user to retry.
	ErrNetwork = errors.New("network error")
)

// AppError wraps a sentinel kind with a human-readable message and optional
// structured detail. It implements Unwrap so errors.Is/As work through any
// number of fmt.Errorf("%w") layers above it.
type AppError struct {
	Err        error         // sentinel kind (one of the vars above)
	Message    string        // human-readable description
	Field      string        // optional: field that failed validation
	RetryAfter time.Duration // optional: set for ErrRateLimited
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// InvalidCode returns an invalid-sync-code error with the given cause message.
func InvalidCode(message string) *AppError {
	return &AppError{
		Err:     ErrInvalidCode,
		Message: message,
	}
}

// RateLimited returns a rate-limit error carrying the estimated wait until
// the request window resets.
func RateLimited(retryAfter time.Duration) *AppError {
	minutes := int(retryAfter.Minutes()) + 1
	return &AppError{
		Err:        ErrRateLimited,
		Message:    fmt.Sprintf("rate limit reached, try again in %d minutes", minutes),
		RetryAfter: retryAfter,
	}
}

// NotFound returns a missing-resource error.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

// Decryption returns an authentication-failure error. The message is fixed:
// the cipher cannot tell a wrong code from corrupted data, so we never claim
// to know which it was.
func Decryption() *AppError {
	return &AppError{
		Err:     ErrDecryption,
		Message: "could not decrypt data: wrong sync code or corrupted payload",
	}
}

// ValidationFailed returns a structural-validation error for the given field.
func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Network wraps a transport failure, preserving the underlying error in the
// message for logs while keeping the kind stable for callers.
func Network(op string, err error) *AppError {
	return &AppError{
		Err:     ErrNetwork,
		Message: fmt.Sprintf("%s: %v", op, err),
	}
}
