// Package dErrors defines coded domain errors shared by services and the HTTP
// layer. Services return coded errors; transport maps codes to status codes and
// a stable JSON envelope without leaking internals.
package dErrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of failure independent of transport.
type Code string

const (
	CodeBadRequest       Code = "bad_request"
	CodeUnauthorized     Code = "unauthorized"
	CodeForbidden        Code = "forbidden"
	CodeNotFound         Code = "not_found"
	CodeConflict         Code = "conflict"
	CodeTemplateMissing  Code = "template_missing"
	CodeEventUnavailable Code = "event_unavailable"
	CodeRateLimited      Code = "rate_limited"
	CodeInternal         Code = "internal_error"
)

// DomainError carries a code plus a human-readable description. The
// description is safe to show to API clients except for CodeInternal, where
// transport omits it.
type DomainError struct {
	Code        Code
	Description string
	cause       error
}

func (e *DomainError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Description, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

func (e *DomainError) Unwrap() error { return e.cause }

// New builds a coded error with a description.
func New(code Code, description string) error {
	return &DomainError{Code: code, Description: description}
}

// Wrap builds a coded error preserving the underlying cause for logs and
// errors.Is/As chains.
func Wrap(code Code, description string, cause error) error {
	return &DomainError{Code: code, Description: description, cause: cause}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is an alias for HasCode kept for readability at call sites.
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf extracts the code from err, defaulting to CodeInternal for uncoded
// errors so nothing unexpected leaks to clients.
func CodeOf(err error) Code {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// DescriptionOf extracts the client-safe description from err. Uncoded errors
// yield an empty description.
func DescriptionOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Description
	}
	return ""
}

// ToHTTPStatus maps a code to its HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeTemplateMissing, CodeEventUnavailable:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
