package core

import (
	"fmt"
	"net/http"
)

// ErrorType represents the category of a relay error.
type ErrorType string

const (
	// ErrorTypeOrigin indicates the origin was unreachable or returned a
	// server error and no cached fallback was available.
	ErrorTypeOrigin ErrorType = "origin_error"
	// ErrorTypeClassifier indicates a classification service failure.
	// These are absorbed by the orchestrator and never reach the client.
	ErrorTypeClassifier ErrorType = "classifier_error"
	// ErrorTypeCache indicates a cache backend failure. Caches are optional
	// accelerators; callers log these and treat them as misses.
	ErrorTypeCache ErrorType = "cache_error"
	// ErrorTypeInvalidRequest indicates an unusable inbound request (4xx).
	ErrorTypeInvalidRequest ErrorType = "invalid_request_error"
)

// RelayError is the base error type for all relay errors.
type RelayError struct {
	Type       ErrorType
	Message    string
	StatusCode int
	// Original error for debugging (not exposed to clients).
	Err error
}

// Error implements the error interface.
func (e *RelayError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the error unwrapping interface.
func (e *RelayError) Unwrap() error {
	return e.Err
}

// HTTPStatusCode returns the appropriate HTTP status code for this error.
func (e *RelayError) HTTPStatusCode() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}
	switch e.Type {
	case ErrorTypeOrigin:
		return http.StatusBadGateway
	case ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// NewOriginError creates an origin failure error (502 by default).
func NewOriginError(message string, statusCode int, err error) *RelayError {
	return &RelayError{
		Type:       ErrorTypeOrigin,
		Message:    message,
		StatusCode: statusCode,
		Err:        err,
	}
}

// NewClassifierError creates a classification service error.
func NewClassifierError(message string, err error) *RelayError {
	return &RelayError{
		Type:    ErrorTypeClassifier,
		Message: message,
		Err:     err,
	}
}

// NewCacheError creates a cache backend error.
func NewCacheError(message string, err error) *RelayError {
	return &RelayError{
		Type:    ErrorTypeCache,
		Message: message,
		Err:     err,
	}
}

// NewInvalidRequestError creates an invalid request error (400).
func NewInvalidRequestError(message string, err error) *RelayError {
	return &RelayError{
		Type:       ErrorTypeInvalidRequest,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Err:        err,
	}
}
