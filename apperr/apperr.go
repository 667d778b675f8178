// Package apperr is the error taxonomy shared by the survey engine and the
// HTTP layer. Every failure a respondent or operator can observe is an
// *Error with a Kind; anything else is treated as internal.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindAuth
	KindForbidden
	KindNotFound
	KindValidation
	KindConflict
	KindExpired
	KindBadRequest
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindExpired:
		return "expired"
	case KindBadRequest:
		return "bad_request"
	default:
		return "internal"
	}
}

// Error carries a kind, a user-facing message and, for validation failures,
// the block id the message refers to.
type Error struct {
	Kind    Kind
	Message string
	Field   string
	// Retryable marks a conflict caused by contention rather than a lock.
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Auth(format string, args ...any) *Error { return newf(KindAuth, format, args...) }

// Forbidden is the AuthError raised when a valid token targets a survey it
// was not minted for.
func Forbidden(format string, args ...any) *Error { return newf(KindForbidden, format, args...) }

func NotFound(format string, args ...any) *Error { return newf(KindNotFound, format, args...) }

func Conflict(format string, args ...any) *Error { return newf(KindConflict, format, args...) }

// Contended is the conflict of a write that lost its compare-and-swap too
// many times; unlike a lock it may succeed when retried.
func Contended(format string, args ...any) *Error {
	e := newf(KindConflict, format, args...)
	e.Retryable = true
	return e
}

func Expired(format string, args ...any) *Error { return newf(KindExpired, format, args...) }

func BadRequest(format string, args ...any) *Error { return newf(KindBadRequest, format, args...) }

// Validation names the offending block so clients can highlight the field.
func Validation(field string, format string, args ...any) *Error {
	e := newf(KindValidation, format, args...)
	e.Field = field
	return e
}

// Wrap classifies err under kind while keeping it reachable via errors.Is/As.
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsAuth is true for both flavours of AuthError.
func IsAuth(err error) bool {
	k := KindOf(err)
	return err != nil && (k == KindAuth || k == KindForbidden)
}

// FieldOf returns the block id attached to a validation error, if any.
func FieldOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Field
	}
	return ""
}

// IsRetryable reports whether err is a conflict worth retrying.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable
}
