// Package core provides the shared types, interfaces and error taxonomy for curator.
package core

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/tidwall/gjson"
)

// ErrorType represents the type of error that occurred
type ErrorType string

const (
	// ErrorTypeProvider indicates an upstream media provider failure (5xx, transport)
	ErrorTypeProvider ErrorType = "provider_error"
	// ErrorTypeRateLimit indicates the upstream throttled the request (429)
	ErrorTypeRateLimit ErrorType = "rate_limit_error"
	// ErrorTypeInvalidRequest indicates a client error (4xx)
	ErrorTypeInvalidRequest ErrorType = "invalid_request_error"
	// ErrorTypeAuthentication indicates a credential failure, including an exhausted token grant
	ErrorTypeAuthentication ErrorType = "authentication_error"
	// ErrorTypeNotFound indicates a not found error (404)
	ErrorTypeNotFound ErrorType = "not_found_error"
	// ErrorTypeCollaborator indicates the LLM collaborator failed or answered with malformed JSON
	ErrorTypeCollaborator ErrorType = "collaborator_error"
)

// ServiceError is the base error type for all curator errors
type ServiceError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	StatusCode int       `json:"status_code"`
	Provider   string    `json:"provider,omitempty"`
	// Original error for debugging (not exposed to clients)
	Err error `json:"-"`
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Provider, e.Type, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the error unwrapping interface
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// HTTPStatusCode returns the appropriate HTTP status code for this error
func (e *ServiceError) HTTPStatusCode() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}
	switch e.Type {
	case ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	case ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case ErrorTypeAuthentication:
		return http.StatusUnauthorized
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeProvider, ErrorTypeCollaborator:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ToJSON converts the error to a JSON-compatible map
func (e *ServiceError) ToJSON() map[string]interface{} {
	return map[string]interface{}{
		"error": map[string]interface{}{
			"type":    e.Type,
			"message": e.Message,
		},
	}
}

// NewProviderError creates a new provider error (upstream 5xx or transport failure)
func NewProviderError(provider string, statusCode int, message string, err error) *ServiceError {
	return &ServiceError{
		Type:       ErrorTypeProvider,
		Message:    message,
		StatusCode: statusCode,
		Provider:   provider,
		Err:        err,
	}
}

// NewRateLimitError creates a new rate limit error (429)
func NewRateLimitError(provider string, message string) *ServiceError {
	return &ServiceError{
		Type:       ErrorTypeRateLimit,
		Message:    message,
		StatusCode: http.StatusTooManyRequests,
		Provider:   provider,
	}
}

// NewInvalidRequestError creates a new invalid request error (400)
func NewInvalidRequestError(message string, err error) *ServiceError {
	return NewInvalidRequestErrorWithStatus(http.StatusBadRequest, message, err)
}

// NewInvalidRequestErrorWithStatus creates a new invalid request error with a specific status code
func NewInvalidRequestErrorWithStatus(statusCode int, message string, err error) *ServiceError {
	return &ServiceError{
		Type:       ErrorTypeInvalidRequest,
		Message:    message,
		StatusCode: statusCode,
		Err:        err,
	}
}

// NewAuthenticationError creates a new authentication error (401)
func NewAuthenticationError(provider string, message string, err error) *ServiceError {
	return &ServiceError{
		Type:       ErrorTypeAuthentication,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
		Provider:   provider,
		Err:        err,
	}
}

// NewNotFoundError creates a new not found error (404)
func NewNotFoundError(message string) *ServiceError {
	return &ServiceError{
		Type:       ErrorTypeNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

// NewCollaboratorError creates an error for a failed or malformed LLM collaborator answer.
func NewCollaboratorError(provider string, message string, err error) *ServiceError {
	return &ServiceError{
		Type:       ErrorTypeCollaborator,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Provider:   provider,
		Err:        err,
	}
}

// errorMessagePaths lists where the upstream APIs put a human readable message:
// OpenAI and Spotify use error.message, TMDB status_message, MediaWiki error.info,
// and OAuth token endpoints error_description.
var errorMessagePaths = []string{"error.message", "status_message", "error.info", "error_description"}

// ParseProviderError parses an error response from a provider and returns an appropriate ServiceError
func ParseProviderError(provider string, statusCode int, body []byte, originalErr error) *ServiceError {
	message := string(body)
	if gjson.ValidBytes(body) {
		for _, path := range errorMessagePaths {
			if v := gjson.GetBytes(body, path); v.Type == gjson.String && v.Str != "" {
				message = v.Str
				break
			}
		}
	}
	if message == "" {
		message = http.StatusText(statusCode)
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return NewAuthenticationError(provider, message, originalErr)
	case statusCode == http.StatusTooManyRequests:
		return NewRateLimitError(provider, message)
	case statusCode == http.StatusNotFound:
		err := NewNotFoundError(message)
		err.Provider = provider
		return err
	case statusCode >= 400 && statusCode < 500:
		err := NewInvalidRequestErrorWithStatus(statusCode, message, originalErr)
		err.Provider = provider
		return err
	default:
		return NewProviderError(provider, http.StatusBadGateway, message, originalErr)
	}
}

// IsRetryable reports whether err is worth another attempt: throttling, upstream
// 5xx and transport failures are; client errors, auth failures and cancellation are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Type == ErrorTypeRateLimit || svcErr.Type == ErrorTypeProvider
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// IsType reports whether err carries a ServiceError of the given type.
func IsType(err error, t ErrorType) bool {
	var svcErr *ServiceError
	return errors.As(err, &svcErr) && svcErr.Type == t
}
