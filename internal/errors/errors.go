// Package errors provides error code definitions for the tabsync core.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a unique error code reported across the API boundary.
type ErrorCode string

const (
	// General errors
	ErrInternal   ErrorCode = "INTERNAL_ERROR"
	ErrInvalid    ErrorCode = "INVALID_INPUT"
	ErrNotFound   ErrorCode = "NOT_FOUND"
	ErrValidation ErrorCode = "VALIDATION_ERROR"

	// Storage errors
	ErrStorage    ErrorCode = "STORAGE_ERROR"
	ErrMigration  ErrorCode = "MIGRATION_FAILED"
	ErrConstraint ErrorCode = "CONSTRAINT_VIOLATION"

	// Queue errors
	ErrQueueFull      ErrorCode = "QUEUE_FULL"
	ErrEntryNotFound  ErrorCode = "ENTRY_NOT_FOUND"
	ErrPayloadInvalid ErrorCode = "PAYLOAD_INVALID"

	// Sync errors
	ErrSyncOffline    ErrorCode = "SYNC_OFFLINE"
	ErrSyncInProgress ErrorCode = "SYNC_IN_PROGRESS"
	ErrSyncFailed     ErrorCode = "SYNC_FAILED"
	ErrSyncTimeout    ErrorCode = "SYNC_TIMEOUT"

	// Remote errors
	ErrRemoteFailed       ErrorCode = "REMOTE_FAILED"
	ErrRemoteNotConfigured ErrorCode = "REMOTE_NOT_CONFIGURED"

	// Cache errors
	ErrCacheMiss ErrorCode = "CACHE_MISS"

	// Configuration errors
	ErrConfigInvalid ErrorCode = "CONFIG_INVALID"
)

// ErrNoOfflineData reports a read that failed remotely with nothing cached to
// fall back on. Callers must be able to tell this apart from a generic fetch
// error, so it is a sentinel rather than a code on a wrapped error.
var ErrNoOfflineData = stderrors.New("no offline data available")

// AppError represents an application error with code and message.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an error code.
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Is checks if an error carries a specific code. It walks the wrap chain so
// codes survive fmt.Errorf("...: %w", err) at call sites.
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
