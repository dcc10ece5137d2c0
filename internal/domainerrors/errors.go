// Package domainerrors gives every service layer a single error shape
// instead of the source's exception-per-concern control flow: a Kind plus a
// human-readable message, translated to an HTTP status at one edge.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	NotFound           Kind = "not_found"
	Validation         Kind = "validation"
	Conflict           Kind = "conflict"
	Unauthorized       Kind = "unauthorized"
	Forbidden          Kind = "forbidden"
	RateLimited        Kind = "rate_limited"
	ProviderTimeout    Kind = "provider_timeout"
	ProviderUnavailable Kind = "provider_unavailable"
	ProviderAuth       Kind = "provider_auth"
	ProviderValidation Kind = "provider_validation"
	Internal           Kind = "internal"
)

// Error is the sum type every service/repository in the transactional core
// returns instead of ad-hoc sentinel errors.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func Is(err error, kind Kind) bool {
	var de *Error
	if !errors.As(err, &de) {
		return false
	}
	return de.Kind == kind
}

// KindOf extracts the Kind of err, defaulting to Internal for anything not
// already a *Error (e.g. a raw driver error that escaped a repository).
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return Internal
}

// Translate maps a Kind to an HTTP status and the detail string the HTTP
// edge should put in the `{"detail": "..."}` envelope.
func Translate(err error) (status int, detail string) {
	var de *Error
	if !errors.As(err, &de) {
		return http.StatusInternalServerError, "internal server error"
	}
	switch de.Kind {
	case NotFound:
		return http.StatusNotFound, de.Message
	case Validation:
		return http.StatusBadRequest, de.Message
	case Conflict:
		return http.StatusConflict, de.Message
	case Unauthorized:
		return http.StatusUnauthorized, de.Message
	case Forbidden:
		return http.StatusForbidden, de.Message
	case RateLimited:
		return http.StatusTooManyRequests, de.Message
	case ProviderValidation:
		return http.StatusBadRequest, de.Message
	case ProviderAuth:
		return http.StatusUnauthorized, de.Message
	case ProviderTimeout, ProviderUnavailable:
		return http.StatusServiceUnavailable, de.Message
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
