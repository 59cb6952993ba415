package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func NotFound(code string, format string, args ...any) *Error {
	return New(http.StatusNotFound, code, fmt.Errorf(format, args...))
}

func Forbidden(code string, format string, args ...any) *Error {
	return New(http.StatusForbidden, code, fmt.Errorf(format, args...))
}

func BadRequest(code string, format string, args ...any) *Error {
	return New(http.StatusBadRequest, code, fmt.Errorf(format, args...))
}

func Conflict(code string, format string, args ...any) *Error {
	return New(http.StatusConflict, code, fmt.Errorf(format, args...))
}

func Internal(code string, err error) *Error {
	return New(http.StatusInternalServerError, code, err)
}

// As extracts the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) && ae != nil {
		return ae, true
	}
	return nil, false
}

// StatusOf returns the HTTP status carried by err, or 500.
func StatusOf(err error) int {
	if ae, ok := As(err); ok && ae.Status != 0 {
		return ae.Status
	}
	return http.StatusInternalServerError
}

func IsNotFound(err error) bool  { return StatusOf(err) == http.StatusNotFound }
func IsForbidden(err error) bool { return StatusOf(err) == http.StatusForbidden }

const (
	CodeSchemeNotFound      = "scheme_not_found"
	CodeIdentifierNotFound  = "identifier_not_found"
	CodeInvalidAPIKey       = "invalid_api_key"
	CodeMalformedRequest    = "malformed_request"
	CodeAPIKeyExists        = "api_key_exists"
	CodeInternalConsistency = "internal_consistency"
	CodeInternal            = "internal_error"
	CodeNotFound            = "not_found"
)
