package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// DomainError represents a domain-specific error with a code and message
type DomainError struct {
	Code    string
	Message string
	Err     error // underlying error for wrapping
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is and errors.As
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches on Code so wrapped copies still compare equal to the sentinel.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WrapError wraps an existing error with domain error context
func WrapError(domainErr *DomainError, err error) *DomainError {
	return &DomainError{
		Code:    domainErr.Code,
		Message: domainErr.Message,
		Err:     err,
	}
}

// Predefined domain errors
var (
	// User errors
	ErrUserNotFound       = NewDomainError("USER_NOT_FOUND", "user not found")
	ErrEmailExists        = NewDomainError("EMAIL_EXISTS", "User already exists")
	ErrInvalidCredentials = NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")
	ErrEmailNotVerified   = NewDomainError("EMAIL_NOT_VERIFIED", "Please verify your email before logging in")

	// Authentication errors
	ErrUnauthorized = NewDomainError("UNAUTHORIZED", "Unauthorized")
	ErrInvalidToken = NewDomainError("INVALID_TOKEN", "invalid or expired token")

	// Single-use token errors
	ErrInvalidResetToken        = NewDomainError("INVALID_RESET_TOKEN", "Invalid or expired reset token")
	ErrInvalidVerificationToken = NewDomainError("INVALID_VERIFICATION_TOKEN", "Invalid or expired verification token")

	// Federated login errors
	ErrUnknownProvider    = NewDomainError("UNKNOWN_PROVIDER", "unknown identity provider")
	ErrInvalidOAuthState  = NewDomainError("INVALID_OAUTH_STATE", "invalid or expired login state")
	ErrProviderEmailEmpty = NewDomainError("PROVIDER_EMAIL_MISSING", "identity provider did not return an email")
	ErrProviderExchange   = NewDomainError("PROVIDER_EXCHANGE_FAILED", "identity provider exchange failed")

	// Validation errors
	ErrInvalidInput = NewDomainError("INVALID_INPUT", "invalid input")

	// Assessment relay errors
	ErrUpstreamRejected    = NewDomainError("UPSTREAM_REJECTED", "assessment service rejected the request")
	ErrUpstreamFailed      = NewDomainError("UPSTREAM_FAILED", "assessment service error")
	ErrUpstreamUnavailable = NewDomainError("UPSTREAM_UNAVAILABLE", "assessment service unavailable")

	// System errors
	ErrInternal           = NewDomainError("INTERNAL_ERROR", "internal server error")
	ErrServiceUnavailable = NewDomainError("SERVICE_UNAVAILABLE", "service unavailable")
)

// IsDomainError checks if an error is a domain error
func IsDomainError(err error) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr)
}

// GetDomainError extracts the domain error from an error
func GetDomainError(err error) *DomainError {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// ToHTTPStatus maps domain errors to HTTP status codes
// This should only be used in the handler/presentation layer
func ToHTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErrorToHTTPStatus(domainErr)
	}

	return http.StatusInternalServerError
}

func domainErrorToHTTPStatus(err *DomainError) int {
	switch err.Code {
	// 400 Bad Request
	case "INVALID_INPUT", "EMAIL_EXISTS", "INVALID_RESET_TOKEN", "INVALID_VERIFICATION_TOKEN",
		"UPSTREAM_REJECTED":
		return http.StatusBadRequest

	// 401 Unauthorized
	case "UNAUTHORIZED", "INVALID_CREDENTIALS", "INVALID_TOKEN", "INVALID_OAUTH_STATE":
		return http.StatusUnauthorized

	// 403 Forbidden
	case "EMAIL_NOT_VERIFIED":
		return http.StatusForbidden

	// 404 Not Found
	case "USER_NOT_FOUND", "UNKNOWN_PROVIDER":
		return http.StatusNotFound

	// 502 Bad Gateway
	case "PROVIDER_EXCHANGE_FAILED", "PROVIDER_EMAIL_MISSING", "UPSTREAM_FAILED":
		return http.StatusBadGateway

	// 503 Service Unavailable
	case "SERVICE_UNAVAILABLE", "UPSTREAM_UNAVAILABLE":
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetErrorMessage returns the client-safe message for err.
// Non-domain errors never expose their text.
func GetErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}

	return ErrInternal.Message
}
