package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuth
	KindLocked
	KindNotFound
	KindExpired
	KindConflict
	KindForbidden
	KindDependency
)

var statusByKind = map[Kind]int{
	KindInternal:   http.StatusInternalServerError,
	KindValidation: http.StatusBadRequest,
	KindAuth:       http.StatusUnauthorized,
	KindLocked:     http.StatusLocked,
	KindNotFound:   http.StatusNotFound,
	KindExpired:    http.StatusForbidden,
	KindConflict:   http.StatusConflict,
	KindForbidden:  http.StatusForbidden,
	KindDependency: http.StatusInternalServerError,
}

var kindNames = map[Kind]string{
	KindInternal:   "internal_error",
	KindValidation: "validation_error",
	KindAuth:       "auth_error",
	KindLocked:     "account_locked",
	KindNotFound:   "not_found",
	KindExpired:    "expired",
	KindConflict:   "conflict",
	KindForbidden:  "forbidden",
	KindDependency: "dependency_error",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "internal_error"
}

// Code is the machine-readable counterpart of PublicMessage.
func Code(err error) string {
	if appErr, ok := As(err); ok {
		return appErr.Kind.String()
	}
	return KindInternal.String()
}

// Error is a domain error carrying a stable kind and a message safe to show
// to the caller.
type Error struct {
	Kind    Kind
	Message string
	// RetryAfter is set on KindLocked.
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Status returns the HTTP status code for the error.
func (e *Error) Status() int {
	if code, ok := statusByKind[e.Kind]; ok {
		return code
	}
	return http.StatusInternalServerError
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Validation(msg string) *Error { return New(KindValidation, msg) }
func Auth(msg string) *Error       { return New(KindAuth, msg) }
func NotFound(msg string) *Error   { return New(KindNotFound, msg) }
func Expired(msg string) *Error    { return New(KindExpired, msg) }
func Conflict(msg string) *Error   { return New(KindConflict, msg) }
func Forbidden(msg string) *Error  { return New(KindForbidden, msg) }

func Locked(msg string, retryAfter time.Duration) *Error {
	return &Error{Kind: KindLocked, Message: msg, RetryAfter: retryAfter}
}

func Dependency(msg string, err error) *Error {
	return &Error{Kind: KindDependency, Message: msg, Err: err}
}

func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}

// Status maps any error to an HTTP status; unknown errors are 500.
func Status(err error) int {
	if appErr, ok := As(err); ok {
		return appErr.Status()
	}
	return http.StatusInternalServerError
}

// PublicMessage is what a client may see. Internal and dependency causes are
// never exposed.
func PublicMessage(err error) string {
	appErr, ok := As(err)
	if !ok || appErr.Kind == KindInternal {
		return "Internal server error"
	}
	return appErr.Message
}
