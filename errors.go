package identity

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	// ErrValidation means the request was malformed or violated input policy.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidCredentials is returned for a wrong password, an unknown email
	// and an inactive account alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized means a token is malformed, forged, expired or revoked.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrRateLimited means the client exceeded its request window.
	ErrRateLimited = errors.New("rate limited")
	// ErrDependencyUnavailable means the shared store or credential store
	// could not be reached.
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	// ErrConflict means the email or phone is already registered.
	ErrConflict = errors.New("conflict")
	// ErrForbidden means the caller is authenticated but lacks the role.
	ErrForbidden = errors.New("forbidden")
	// ErrEngineNotReady is returned by a zero or closed Engine.
	ErrEngineNotReady = errors.New("engine not initialized")

	// ErrAccountNotFound is returned by a CredentialStore lookup miss.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountExists is returned by CredentialStore.Create on a duplicate
	// email or phone.
	ErrAccountExists = errors.New("account already exists")
)

// ValidationError names the offending field. It matches [ErrValidation].
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// RateLimitError carries the wait before the client's window resets. It
// matches [ErrRateLimited].
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: retry after %s", e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// Kind is the stable, transport-facing classification of an engine error.
type Kind string

const (
	KindValidation            Kind = "VALIDATION_ERROR"
	KindInvalidCredentials    Kind = "INVALID_CREDENTIALS"
	KindUnauthorized          Kind = "UNAUTHORIZED"
	KindRateLimited           Kind = "RATE_LIMITED"
	KindDependencyUnavailable Kind = "SERVICE_UNAVAILABLE"
	KindConflict              Kind = "CONFLICT"
	KindForbidden             Kind = "FORBIDDEN"
	KindNotFound              Kind = "NOT_FOUND"
	KindInternal              Kind = "INTERNAL_ERROR"
)

// KindOf classifies err. Dependency failures outrank Unauthorized so that a
// registry outage during verification reports as unavailable.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrDependencyUnavailable):
		return KindDependencyUnavailable
	case errors.Is(err, ErrInvalidCredentials):
		return KindInvalidCredentials
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrAccountNotFound):
		return KindNotFound
	default:
		return KindInternal
	}
}

// Status maps k to an HTTP status code.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindInvalidCredentials, KindUnauthorized:
		return http.StatusUnauthorized
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindDependencyUnavailable:
		return http.StatusServiceUnavailable
	case KindConflict:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Message is the client-safe description of k.
func (k Kind) Message() string {
	switch k {
	case KindValidation:
		return "request validation failed"
	case KindInvalidCredentials:
		return "invalid email or password"
	case KindUnauthorized:
		return "authentication required"
	case KindRateLimited:
		return "too many requests"
	case KindDependencyUnavailable:
		return "service temporarily unavailable"
	case KindConflict:
		return "account already exists"
	case KindForbidden:
		return "insufficient permissions"
	case KindNotFound:
		return "account not found"
	default:
		return "internal server error"
	}
}

func unauthorized(cause error) error {
	return fmt.Errorf("%w: %w", ErrUnauthorized, cause)
}

func unavailable(cause error) error {
	return fmt.Errorf("%w: %w", ErrDependencyUnavailable, cause)
}
