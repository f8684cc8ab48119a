// Package apperr is the error taxonomy shared by the workflows and the HTTP
// layer. Every failure that reaches a client is an *Error with a stable code.
package apperr

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindUnauthenticated
	KindForbidden
	KindTransient
	KindExternal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindTransient:
		return "transient"
	case KindExternal:
		return "external"
	default:
		return "internal"
	}
}

// HTTPStatus maps a kind to its response status.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindTransient:
		return http.StatusServiceUnavailable
	case KindExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error codes returned to clients.
const (
	CodeValidation                    = "VALIDATION_ERROR"
	CodeInvalidBody                   = "INVALID_REQUEST_BODY"
	CodeUnauthenticated               = "UNAUTHENTICATED"
	CodeForbiddenOrg                  = "FORBIDDEN_ORG"
	CodeForbidden                     = "FORBIDDEN"
	CodeInvalidCredentials            = "INVALID_CREDENTIALS"
	CodeUserAlreadyExists             = "USER_ALREADY_EXISTS"
	CodeOrganizationNameAlreadyExists = "ORGANIZATION_NAME_ALREADY_EXISTS"
	CodeOrganizationNotFound          = "ORGANIZATION_NOT_FOUND"
	CodeUserNotFound                  = "USER_NOT_FOUND"
	CodeUserAlreadyMember             = "USER_ALREADY_MEMBER"
	CodeInviteNotFound                = "INVITE_NOT_FOUND"
	CodeInvalidInvite                 = "INVALID_INVITE"
	CodeInviteAlreadyAccepted         = "INVITE_ALREADY_ACCEPTED"
	CodeInviteEmailFailed             = "INVITE_EMAIL_FAILED"
	CodeCriteriaNotFound              = "CRITERIA_NOT_FOUND"
	CodeCriteriaAlreadyExists         = "CRITERIA_ALREADY_EXISTS"
	CodeTransactionTimeout            = "TRANSACTION_TIMEOUT"
	CodeRateLimited                   = "RATE_LIMITED"
	CodeInternal                      = "INTERNAL_ERROR"
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by code so callers can use errors.Is with the
// constructors below as targets.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Retryable reports whether the client may retry the same request unchanged.
func (e *Error) Retryable() bool {
	return e.Kind == KindTransient
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap attaches a root cause that is logged but never returned to clients.
func Wrap(err error, kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

func Validation(fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Code: CodeValidation, Message: "Validation failed", Fields: fields}
}

func NotFound(code, message string) *Error {
	return New(KindNotFound, code, message)
}

func Conflict(code, message string) *Error {
	return New(KindConflict, code, message)
}

func Unauthenticated(message string) *Error {
	return New(KindUnauthenticated, CodeUnauthenticated, message)
}

func Forbidden(code, message string) *Error {
	return New(KindForbidden, code, message)
}

func Transient(err error, code, message string) *Error {
	return Wrap(err, KindTransient, code, message)
}

func External(err error, code, message string) *Error {
	return Wrap(err, KindExternal, code, message)
}

func Internal(err error) *Error {
	return Wrap(err, KindInternal, CodeInternal, "Internal server error")
}

// From normalises any error into an *Error. Unknown errors become
// KindInternal with a generic message.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}

// CodeOf returns the code of err, or "" when err is nil.
func CodeOf(err error) string {
	if e := From(err); e != nil {
		return e.Code
	}
	return ""
}
