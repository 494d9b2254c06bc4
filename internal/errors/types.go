package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// TransientError marks an error that is worth retrying, such as a rate limit
// or a dropped connection to the reasoning endpoint.
type TransientError struct {
	Err        error
	StatusCode int // HTTP status code if applicable
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient error: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps err as retryable.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// PermanentError marks an error that must not be retried, such as a malformed
// response or a rejected API key.
type PermanentError struct {
	Err        error
	StatusCode int // HTTP status code if applicable
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent error: %v", e.Err)
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent wraps err as non-retryable.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var transientErr *TransientError
	if errors.As(err, &transientErr) {
		return true
	}

	var permanentErr *PermanentError
	if errors.As(err, &permanentErr) {
		return false
	}

	// Context cancellation is a caller decision, never retried.
	if errors.Is(err, context.Canceled) {
		return false
	}

	// A deadline hit mid-call is a timeout against the remote endpoint.
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	if isNetworkError(err) {
		return true
	}

	return false
}

// IsPermanent reports whether err must not be retried.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}

	var permanentErr *PermanentError
	if errors.As(err, &permanentErr) {
		return true
	}

	var transientErr *TransientError
	if errors.As(err, &transientErr) {
		return false
	}

	return !IsTransient(err)
}

// isNetworkError checks for connection-level failures.
func isNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	networkPatterns := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"no such host",
		"i/o timeout",
	}
	for _, pattern := range networkPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

// TransientHTTPStatus reports whether an HTTP status from the reasoning
// endpoint should be treated as retryable.
func TransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
