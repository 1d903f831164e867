// Package errors carries a stable machine-readable Code with every domain
// error. The code decides the HTTP status, whether callers may retry and
// whether details reach the client.
package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeInProgress    Code = "ALREADY_IN_PROGRESS"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
)

type policy struct {
	status    int
	retryable bool
	details   bool
	public    string
}

var policies = map[Code]policy{
	CodeValidation:    {status: http.StatusBadRequest, details: true, public: "validation failed"},
	CodeUnauthorized:  {status: http.StatusUnauthorized, public: "authentication required"},
	CodeForbidden:     {status: http.StatusForbidden, public: "access denied"},
	CodeNotFound:      {status: http.StatusNotFound, public: "resource not found"},
	CodeConflict:      {status: http.StatusConflict, public: "conflict detected"},
	CodeInProgress:    {status: http.StatusConflict, details: true, public: "already taken by another actor"},
	CodeStateConflict: {status: http.StatusUnprocessableEntity, details: true, public: "state transition disallowed"},
	CodeIdempotency:   {status: http.StatusConflict, details: true, public: "idempotency key reused"},
	CodeRateLimit:     {status: http.StatusTooManyRequests, retryable: true, public: "rate limit exceeded"},
	CodeInternal:      {status: http.StatusInternalServerError, retryable: true, public: "internal server error"},
	CodeDependency:    {status: http.StatusServiceUnavailable, retryable: true, details: true, public: "dependency unavailable"},
}

// Unknown codes behave like CodeInternal.
func (c Code) policy() policy {
	if p, ok := policies[c]; ok {
		return p
	}
	return policies[CodeInternal]
}

func (c Code) HTTPStatus() int       { return c.policy().status }
func (c Code) Retryable() bool       { return c.policy().retryable }
func (c Code) DetailsAllowed() bool  { return c.policy().details }
func (c Code) PublicMessage() string { return c.policy().public }

// Known reports whether c is one of the codes above.
func (c Code) Known() bool {
	_, ok := policies[c]
	return ok
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches code and message to err. A nil err yields a plain New.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return string(e.code) + ": " + e.message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in err's chain.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether the outermost *Error in err's chain has code.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}

// CodeOf is CodeInternal for errors that carry no code.
func CodeOf(err error) Code {
	if typed := As(err); typed != nil {
		return typed.code
	}
	return CodeInternal
}
