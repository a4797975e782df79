// Package apperr defines the error taxonomy shared by the analysis flow, the
// record store and the HTTP layer.
package apperr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies an error by where it originated.
type Kind string

const (
	// KindInput means no content was supplied at all.
	KindInput Kind = "INPUT"
	// KindValidation means a single supplied item was rejected.
	KindValidation Kind = "VALIDATION"
	// KindService means the analysis gateway failed or returned a bad payload.
	KindService Kind = "SERVICE"
	// KindPersistence means a record store operation failed.
	KindPersistence Kind = "PERSISTENCE"
	// KindNotFound means the addressed record does not exist for this user.
	KindNotFound Kind = "NOT_FOUND"
)

// Reason distinguishes service failures that get their own user-facing text.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonRateLimited    Reason = "RATE_LIMITED"
	ReasonQuotaExhausted Reason = "QUOTA_EXHAUSTED"
)

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Reason  Reason
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Input creates an input error.
func Input(msg string) *Error {
	return &Error{Kind: KindInput, Message: msg}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// Service creates a service error.
func Service(msg string, cause error) *Error {
	return &Error{Kind: KindService, Message: msg, Cause: cause}
}

// RateLimited creates a service error for a throttled gateway.
func RateLimited(msg string, cause error) *Error {
	return &Error{Kind: KindService, Reason: ReasonRateLimited, Message: msg, Cause: cause}
}

// QuotaExhausted creates a service error for exhausted gateway credits.
func QuotaExhausted(msg string, cause error) *Error {
	return &Error{Kind: KindService, Reason: ReasonQuotaExhausted, Message: msg, Cause: cause}
}

// Persistence wraps a store failure.
func Persistence(msg string, cause error) *Error {
	return &Error{Kind: KindPersistence, Message: msg, Cause: errors.WithStack(cause)}
}

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf returns the kind of err, or "" when err is not classified.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return ""
}

// IsKind checks if err is classified as kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// ReasonOf returns the service reason of err, if any.
func ReasonOf(err error) Reason {
	if appErr, ok := As(err); ok {
		return appErr.Reason
	}
	return ReasonNone
}

// UserMessage returns the text that may be shown to the end user, falling back to
// fallback for unclassified errors.
func UserMessage(err error, fallback string) string {
	if appErr, ok := As(err); ok && appErr.Message != "" {
		return appErr.Message
	}
	return fallback
}
