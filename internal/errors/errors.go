// Package errors provides centralized error definitions for the fsbroker
// codebase. It defines the typed errors surfaced by the file-access manager,
// sentinel errors for common conditions, and classification helpers used by
// the retry layer.
//
// # Error Types
//
//   - LockTimeoutError: a lock could not be acquired within its bound
//   - WriteVerificationError: post-write readback did not match the payload
//   - ReadError: an I/O failure wrapping the underlying cause
//   - ValidationError: schema violations, carrying the full violation list
//   - RetryExhaustedError: wraps the last error after retries are spent
//
// # Usage
//
// Checking errors:
//
//	if errors.Is(err, errors.ErrLockTimeout) { ... }
//
//	var verr *errors.ValidationError
//	if errors.As(err, &verr) {
//	    for _, v := range verr.Violations { ... }
//	}
//
//	if errors.IsRetryable(err) { ... }
package errors

import (
	"errors"
	"fmt"
	"strings"
	"syscall"
	"time"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Sentinel errors returned by file-access operations.
var (
	// ErrNoWorkspace indicates that no workspace root could be resolved.
	ErrNoWorkspace = New("no workspace root available")
	// ErrLockTimeout indicates that a lock could not be acquired in time.
	ErrLockTimeout = New("lock acquisition timed out")
	// ErrAlreadyWatched indicates that a path already has an active watcher.
	ErrAlreadyWatched = New("path is already being watched")
	// ErrNotWatched indicates that a path has no active watcher.
	ErrNotWatched = New("path is not being watched")
	// ErrManagerDisposed indicates that an operation was attempted on a
	// disposed manager.
	ErrManagerDisposed = New("file access manager has been disposed")
	// ErrOutsideWorkspace indicates a path that escapes the workspace root.
	ErrOutsideWorkspace = New("path escapes the workspace root")
)

// LockTimeoutError represents a lock acquisition that exceeded its bound.
type LockTimeoutError struct {
	Path    string
	Timeout time.Duration
	cause   error
}

// NewLockTimeoutError creates a LockTimeoutError for the given path and bound.
func NewLockTimeoutError(path string, timeout time.Duration) *LockTimeoutError {
	return &LockTimeoutError{Path: path, Timeout: timeout}
}

// WithCause adds the last observed contention error to the context.
func (e *LockTimeoutError) WithCause(cause error) *LockTimeoutError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *LockTimeoutError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("lock timeout [path=%s, timeout=%s]: %v", e.Path, e.Timeout, e.cause)
	}
	return fmt.Sprintf("lock timeout [path=%s, timeout=%s]", e.Path, e.Timeout)
}

// Unwrap returns the underlying error.
func (e *LockTimeoutError) Unwrap() error { return e.cause }

// Is reports whether this error matches the target.
func (e *LockTimeoutError) Is(target error) bool {
	if _, ok := target.(*LockTimeoutError); ok {
		return true
	}
	return errors.Is(target, ErrLockTimeout)
}

// WriteVerificationError represents a post-write readback mismatch.
type WriteVerificationError struct {
	Path     string
	Expected int // Expected byte length
	Actual   int // Actual byte length read back
}

// NewWriteVerificationError creates a WriteVerificationError.
func NewWriteVerificationError(path string, expected, actual int) *WriteVerificationError {
	return &WriteVerificationError{Path: path, Expected: expected, Actual: actual}
}

// Error returns the formatted error message.
func (e *WriteVerificationError) Error() string {
	return fmt.Sprintf("write verification failed [path=%s]: wrote %d bytes, read back %d", e.Path, e.Expected, e.Actual)
}

// Is reports whether this error matches the target.
func (e *WriteVerificationError) Is(target error) bool {
	_, ok := target.(*WriteVerificationError)
	return ok
}

// ReadError represents an I/O failure while reading a file.
type ReadError struct {
	Path  string
	cause error
}

// NewReadError creates a ReadError wrapping the underlying I/O failure.
func NewReadError(path string, cause error) *ReadError {
	return &ReadError{Path: path, cause: cause}
}

// Error returns the formatted error message.
func (e *ReadError) Error() string {
	return fmt.Sprintf("read error [path=%s]: %v", e.Path, e.cause)
}

// Unwrap returns the underlying error.
func (e *ReadError) Unwrap() error { return e.cause }

// Is reports whether this error matches the target.
func (e *ReadError) Is(target error) bool {
	_, ok := target.(*ReadError)
	return ok
}

// ValidationError represents a failed schema validation. It carries every
// violation found, not just the first.
type ValidationError struct {
	Path       string // File path being validated, if known
	Violations []string
}

// NewValidationError creates a ValidationError from a list of violations.
func NewValidationError(violations []string) *ValidationError {
	return &ValidationError{Violations: violations}
}

// WithPath adds the file path to the error context.
func (e *ValidationError) WithPath(path string) *ValidationError {
	e.Path = path
	return e
}

// Error returns the formatted error message listing all violations.
func (e *ValidationError) Error() string {
	prefix := "validation error"
	if e.Path != "" {
		prefix = fmt.Sprintf("validation error [path=%s]", e.Path)
	}
	if len(e.Violations) == 0 {
		return prefix
	}
	return fmt.Sprintf("%s: %s", prefix, strings.Join(e.Violations, "; "))
}

// Is reports whether this error matches the target.
func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)
	return ok
}

// RetryExhaustedError wraps the last underlying error after all retry
// attempts have been spent.
type RetryExhaustedError struct {
	Attempts int
	cause    error
}

// NewRetryExhaustedError creates a RetryExhaustedError.
func NewRetryExhaustedError(attempts int, cause error) *RetryExhaustedError {
	return &RetryExhaustedError{Attempts: attempts, cause: cause}
}

// Error returns the formatted error message.
func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.cause)
}

// Unwrap returns the underlying error.
func (e *RetryExhaustedError) Unwrap() error { return e.cause }

// Is reports whether this error matches the target.
func (e *RetryExhaustedError) Is(target error) bool {
	_, ok := target.(*RetryExhaustedError)
	return ok
}

// retryableErrnos is the fixed set of transient OS error codes that the
// retry layer treats as recoverable: resource busy, too many open files,
// interrupted calls, try-again conditions, and not-found races around
// atomic replacement.
var retryableErrnos = []syscall.Errno{
	syscall.EBUSY,
	syscall.EAGAIN,
	syscall.EMFILE,
	syscall.ENFILE,
	syscall.EINTR,
	syscall.ETXTBSY,
	syscall.ENOENT,
}

// IsRetryable reports whether the error represents a transient OS condition
// that may succeed on retry. Validation failures, verification mismatches,
// and other data-integrity errors are never retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	for _, errno := range retryableErrnos {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}

// Wrap wraps an error with additional context message.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
