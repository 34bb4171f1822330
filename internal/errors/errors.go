// Package errors defines the application error taxonomy shared by services
// and HTTP handlers. Import it as apperrors.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"
)

// Kind classifies an AppError and decides its HTTP status.
type Kind int

const (
	KindServer Kind = iota
	KindValidation
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindConflict
	KindRateLimit
)

// Status maps a Kind to the HTTP status code returned to clients.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// AppError is an expected failure with a client-safe message. Lock and
// block conditions travel as flags so the client can render them.
type AppError struct {
	Kind    Kind
	Code    string
	Message string

	Locked    bool
	Blocked   bool
	LockUntil *time.Time
	RetryAt   *time.Time
	lockSet   bool

	// Err is the internal cause. It is logged, never sent to the client.
	Err error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// Status returns the HTTP status for the error.
func (e *AppError) Status() int { return e.Kind.Status() }

// WithLock returns a copy carrying the lock/block state.
func (e *AppError) WithLock(locked, blocked bool, lockUntil *time.Time) *AppError {
	cp := *e
	cp.Locked = locked
	cp.Blocked = blocked
	cp.LockUntil = lockUntil
	cp.lockSet = true
	return &cp
}

// HasLockState reports whether lock flags were attached with WithLock.
func (e *AppError) HasLockState() bool { return e.lockSet }

// WithRetryAt returns a copy telling the client when to try again.
func (e *AppError) WithRetryAt(at time.Time) *AppError {
	cp := *e
	cp.RetryAt = &at
	return &cp
}

func newError(kind Kind, code, message string) *AppError {
	return &AppError{Kind: kind, Code: code, Message: message}
}

func Validation(code, message string) *AppError {
	return newError(KindValidation, code, message)
}

func Authentication(code, message string) *AppError {
	return newError(KindAuthentication, code, message)
}

func Authorization(code, message string) *AppError {
	return newError(KindAuthorization, code, message)
}

func NotFound(code, message string) *AppError {
	return newError(KindNotFound, code, message)
}

func Conflict(code, message string) *AppError {
	return newError(KindConflict, code, message)
}

func RateLimit(code, message string) *AppError {
	return newError(KindRateLimit, code, message)
}

// Internal wraps an unexpected failure. The message is deliberately generic.
func Internal(err error) *AppError {
	return &AppError{
		Kind:    KindServer,
		Code:    "INTERNAL",
		Message: "Something went wrong. Please try again later.",
		Err:     err,
	}
}

// As extracts an *AppError from err. Any other error becomes Internal.
func As(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// IsKind reports whether err is an AppError of the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr) && appErr.Kind == kind
}
