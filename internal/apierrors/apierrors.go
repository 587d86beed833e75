// Package apierrors contains the error types surfaced to API callers.
package apierrors

import (
	"encoding/json"
	"net/http"
)

// APIError represents a business rule violation that should be reported to the
// caller together with an HTTP status code.
type APIError struct {
	detail         error
	httpStatusCode int
}

// APIErrorOption determines the Functional Options used to create a new APIError.
type APIErrorOption func(apiError *APIError)

// WithDetail determines the underlying error that caused the APIError.
func WithDetail(detail error) APIErrorOption {
	return func(apiError *APIError) {
		apiError.detail = detail
	}
}

// WithHTTPStatusCode determines the HTTP status code reported to the caller.
func WithHTTPStatusCode(statusCode int) APIErrorOption {
	return func(apiError *APIError) {
		apiError.httpStatusCode = statusCode
	}
}

// NewAPIError creates a new APIError using the given options.
func NewAPIError(opts ...APIErrorOption) *APIError {
	apiError := &APIError{httpStatusCode: http.StatusInternalServerError}
	for _, opt := range opts {
		opt(apiError)
	}
	return apiError
}

func (e APIError) Error() string {
	if e.detail == nil {
		return "an unexpected error occurred"
	}
	return e.detail.Error()
}

// HTTPStatusCode returns the HTTP status code associated to the error.
func (e APIError) HTTPStatusCode() int {
	return e.httpStatusCode
}

// Unwrap returns the underlying error.
func (e APIError) Unwrap() error {
	return e.detail
}

func (e APIError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Error string `json:"error"`
	}{Error: e.Error()})
}

// ValidationError represents an invalid value given to some request field.
type ValidationError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// NewValidationError creates a new ValidationError for the given field.
func NewValidationError(field string, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (v ValidationError) Error() string {
	return v.Field + ": " + v.Reason
}
