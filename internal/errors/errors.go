// Package errors defines the error taxonomy shared by the API client, the
// query layer and the persistence adapter. Error carries a Kind so callers
// can classify failures without string matching.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind classifies an Error.
type Kind string

// Error kinds
const (
	KindTransport     Kind = "TRANSPORT"
	KindTimeout       Kind = "TIMEOUT"
	KindHTTPStatus    Kind = "HTTP_STATUS"
	KindDecode        Kind = "DECODE"
	KindPersistence   Kind = "PERSISTENCE"
	KindContract      Kind = "CONTRACT"
	KindConfiguration Kind = "CONFIGURATION_INVALID"
)

// Error represents a classified failure with an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error of the same kind and message, which lets the
// sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == e.Message
}

// APIError is an HTTP error response from the metadata API.
type APIError struct {
	StatusCode    int
	StatusMessage string
	Endpoint      string
}

func (e *APIError) Error() string {
	if e.StatusMessage != "" {
		return fmt.Sprintf("%s: %s returned status %d: %s", KindHTTPStatus, e.Endpoint, e.StatusCode, e.StatusMessage)
	}
	return fmt.Sprintf("%s: %s returned status %d", KindHTTPStatus, e.Endpoint, e.StatusCode)
}

// Sentinel contract errors
var (
	ErrQueryDisabled = New(KindContract, "query is disabled", nil)
	ErrInvalidID     = New(KindContract, "invalid id", nil)
)

// New creates a new Error
func New(kind Kind, message string, cause error) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		Cause:   cause,
	}
}

// NewTransportError creates a network failure error (no response received)
func NewTransportError(operation string, cause error) *Error {
	return New(KindTransport, fmt.Sprintf("request failed: %s", operation), cause)
}

// NewTimeoutError creates a timeout error
func NewTimeoutError(operation string, cause error) *Error {
	return New(KindTimeout, fmt.Sprintf("operation timeout: %s", operation), cause)
}

// NewDecodeError creates a response or payload decoding error
func NewDecodeError(what string, cause error) *Error {
	return New(KindDecode, fmt.Sprintf("failed to decode %s", what), cause)
}

// NewPersistenceError creates a storage read/write error
func NewPersistenceError(operation, key string, cause error) *Error {
	return New(KindPersistence, fmt.Sprintf("%s %q", operation, key), cause)
}

// NewInvalidIDError creates an invalid id contract error wrapping ErrInvalidID
func NewInvalidIDError(resource string, id int) error {
	return fmt.Errorf("%s id %d: %w", resource, id, ErrInvalidID)
}

// NewConfigurationError creates a configuration-related error
func NewConfigurationError(message string, cause error) *Error {
	return New(KindConfiguration, message, cause)
}

// KindOf returns the Kind of the first classified error in err's chain.
// An *APIError classifies as KindHTTPStatus. Unclassified errors return "".
func KindOf(err error) Kind {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return KindHTTPStatus
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// Is and As re-export the standard library helpers so callers need a single import.
func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target any) bool { return stderrors.As(err, target) }
