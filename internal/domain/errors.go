package domain

import (
	"errors"
	"fmt"
)

// Error types for consistent error handling across the BFA.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrExternalService indicates a failure in an external service call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrTimeout indicates an operation exceeded its deadline.
type ErrTimeout struct {
	Operation string
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("operation timed out: %s", e.Operation)
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrUnauthorized indicates a missing, invalid or expired token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrUpstreamStatus carries a non-success status from the backend.
type ErrUpstreamStatus struct {
	StatusCode int
	Body       string
}

func (e *ErrUpstreamStatus) Error() string {
	return fmt.Sprintf("backend returned status %d", e.StatusCode)
}

// ErrSuperseded is returned to a load whose result arrived after a newer
// load for the same view had started. Its result is discarded.
type ErrSuperseded struct {
	ViewID string
	Seq    uint64
	Latest uint64
}

func (e *ErrSuperseded) Error() string {
	return fmt.Sprintf("load %d for view %s superseded by load %d", e.Seq, e.ViewID, e.Latest)
}

// ErrNoData is returned when an export is requested for an empty projection.
var ErrNoData = errors.New("エクスポートするデータがありません")

// ErrFetchFailed reports a projection fetch that failed. Stale is the view
// that stays on screen, nil when nothing was loaded before.
type ErrFetchFailed struct {
	Err   error
	Stale *ProjectionView
}

func (e *ErrFetchFailed) Error() string {
	return fmt.Sprintf("projection fetch failed: %v", e.Err)
}

func (e *ErrFetchFailed) Unwrap() error {
	return e.Err
}
