package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConnection is returned when the storage engine is unreachable or rejects our credentials
	ErrConnection = errors.New("storage connection failed")
	// ErrEncoding is returned when a value cannot be mapped to a stored document
	ErrEncoding = errors.New("document encoding failed")
	// ErrDecoding is returned when a stored document does not have the expected shape
	ErrDecoding = errors.New("document decoding failed")
	// ErrStorage is returned for any other engine-level failure (timeouts, malformed filters, ...)
	ErrStorage = errors.New("storage operation failed")
	// ErrConflict is returned when a write violates a uniqueness constraint
	ErrConflict = errors.New("uniqueness constraint violated")
	// ErrSetup is returned when the collection cannot be prepared (index creation)
	ErrSetup = errors.New("storage setup failed")
	// ErrCanceled is returned when the operation is canceled by the client
	ErrCanceled = errors.New("operation canceled")
)

// WrapError wraps storage errors to model errors.
// Cancellation and deadline errors are wrapped in ErrCanceled with the cause kept;
// everything else is returned unchanged.
func WrapError(err error) error {
	if err == nil || errors.Is(err, ErrCanceled) {
		return err
	}
	if IsCanceled(err) {
		return fmt.Errorf("%w: %w", ErrCanceled, err)
	}
	return err
}

// IsCanceled returns true if the error is due to context cancellation or deadline exceeded.
// It checks both direct context errors and wrapped errors (e.g., from MongoDB driver).
func IsCanceled(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, ErrCanceled) {
		return true
	}
	// The driver sometimes flattens context errors into its own error strings
	errStr := err.Error()
	return strings.Contains(errStr, "context canceled") || strings.Contains(errStr, "context deadline exceeded")
}
