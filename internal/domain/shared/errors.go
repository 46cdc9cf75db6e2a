// Package shared contains common domain types, errors, and value objects used
// across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrValueOutOfRange = errors.New("value out of range")

	// State errors
	ErrInvalidState    = errors.New("invalid state")
	ErrStateTransition = errors.New("invalid state transition")
	ErrAlreadyDecided  = errors.New("already decided")

	// Authorization errors
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")

	// Admission errors
	ErrQuotaExceeded = errors.New("quota exceeded")

	// External service errors
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")
	ErrTimeout             = errors.New("operation timeout")

	// Storage errors
	ErrInternal = errors.New("internal error")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "session", "proposal", "tenant"
	Op      string // Operation that failed, e.g., "Create", "Decide"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Session domain errors
var (
	ErrSessionNotFound      = NewDomainError("session", "Find", ErrNotFound, "session not found")
	ErrActivityNotFound     = NewDomainError("session", "FindActivity", ErrNotFound, "activity not found")
	ErrSessionAlreadyExists = NewDomainError("session", "Create", ErrAlreadyExists, "session already exists for learner, subject and date")
	ErrSessionTransition    = NewDomainError("session", "Transition", ErrStateTransition, "invalid session status transition")
	ErrActivityTransition   = NewDomainError("session", "UpdateActivity", ErrStateTransition, "activity status can only advance forward")
)

// Difficulty proposal domain errors
var (
	ErrProposalNotFound       = NewDomainError("proposal", "Find", ErrNotFound, "difficulty proposal not found")
	ErrProposalAlreadyDecided = NewDomainError("proposal", "Decide", ErrAlreadyDecided, "proposal has already been decided")
	ErrInvalidGradeLevel      = NewDomainError("proposal", "Validate", ErrValueOutOfRange, "grade level out of supported range")
)

// Notification domain errors
var (
	ErrNotificationNotFound = NewDomainError("notification", "Find", ErrNotFound, "notification not found")
	ErrFanoutFailed         = NewDomainError("notification", "Fanout", ErrInternal, "failed to fan out notification")
)

// Tenant domain errors
var (
	ErrTenantQuotaExceeded = NewDomainError("tenant", "Reserve", ErrQuotaExceeded, "daily tenant quota exceeded")
	ErrUnknownUsageMetric  = NewDomainError("tenant", "Reserve", ErrInvalidInput, "unknown usage metric")
)

// External collaborator errors
var (
	ErrBrainProfileUnavailable = NewDomainError("brainprofile", "Fetch", ErrUpstreamUnavailable, "brain profile service is unavailable")
	ErrBrainProfileTimeout     = NewDomainError("brainprofile", "Fetch", ErrTimeout, "brain profile request timed out")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict checks if the error represents an invalid state transition or a
// double decision.
func IsConflict(err error) bool {
	return errors.Is(err, ErrStateTransition) ||
		errors.Is(err, ErrAlreadyDecided) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsQuotaExceeded checks if the error is an admission denial.
func IsQuotaExceeded(err error) bool {
	return errors.Is(err, ErrQuotaExceeded)
}

// IsUpstreamUnavailable checks if the error came from a sibling service.
func IsUpstreamUnavailable(err error) bool {
	return errors.Is(err, ErrUpstreamUnavailable) || errors.Is(err, ErrTimeout)
}
