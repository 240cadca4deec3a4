package domain

import (
	"errors"
	"fmt"
)

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid (ValidationError)
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotConfigured indicates the chat model provider has no credential
	ErrNotConfigured = errors.New("not configured")

	// ErrPersistence indicates a store read or write failed
	ErrPersistence = errors.New("persistence failure")

	// ErrUpstream indicates the model provider call failed or the stream broke
	ErrUpstream = errors.New("upstream stream failure")

	// ErrSyncInProgress indicates a sync for the same knowledge base is running elsewhere
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrInvalidProvider indicates an unknown AI provider was specified
	ErrInvalidProvider = errors.New("invalid provider")
)

// ErrorKind is the closed set of error categories surfaced to callers.
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindNotConfigured ErrorKind = "not_configured"
	KindPersistence   ErrorKind = "persistence"
	KindUpstream      ErrorKind = "upstream"
	KindNotFound      ErrorKind = "not_found"
	KindConflict      ErrorKind = "conflict"
	KindUnknown       ErrorKind = "unknown"
)

// KindOf classifies err. Validation wins over everything else so that a
// malformed request is never reported as a server fault.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrSyncInProgress):
		return KindConflict
	case errors.Is(err, ErrNotConfigured):
		return KindNotConfigured
	case errors.Is(err, ErrUpstream):
		return KindUpstream
	case errors.Is(err, ErrPersistence):
		return KindPersistence
	default:
		return KindUnknown
	}
}

// ValidationError returns an ErrInvalidInput carrying a human-readable message.
func ValidationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// PersistenceError wraps a store failure with the operation that failed.
func PersistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrPersistence) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}

// UpstreamError wraps a model provider failure.
func UpstreamError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrUpstream, err)
}
