// Package errors defines the error taxonomy shared by every authcore component.
// Each error carries a Kind (what class of failure occurred) and a stable Code that
// callers and the HTTP surface can switch on without parsing messages.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure for propagation decisions.
type Kind string

const (
	// KindValidation is blank, oversized or malformed input rejected before any I/O.
	KindValidation Kind = "validation"
	// KindNotFound covers missing handlers and confirmed-absent records.
	KindNotFound Kind = "not_found"
	// KindInfrastructure is a store or network failure. Never converted into a grant.
	KindInfrastructure Kind = "infrastructure"
	// KindSecurityInvalid is an expired, malformed or tampered credential.
	KindSecurityInvalid Kind = "security_invalid"
	// KindLimitExceeded is a rate limit or a bounded-retry ceiling.
	KindLimitExceeded Kind = "limit_exceeded"
	// KindConflict is a duplicate registration or an unresolvable duplicate.
	KindConflict Kind = "conflict"
)

// Stable error codes.
const (
	CodeInvalidArgument         = "invalid_argument"
	CodeHandlerRegistration     = "handler_registration"
	CodeCommandNotFound         = "command_not_found"
	CodeQueryNotFound           = "query_not_found"
	CodeUsernameGenerationLimit = "username_generation_limit"
	CodeUsernameGeneration      = "username_generation"
	CodeInfrastructure          = "infrastructure_failure"
	CodeInsecureSigningKey      = "insecure_signing_key"
	CodeRateLimited             = "rate_limited"
	CodeInvalidToken            = "invalid_token"
	CodeInvalidCredentials      = "invalid_credentials"
	CodeNotFound                = "not_found"
)

// ================================================================================
// AppError
// ================================================================================

// AppError represents a structured application error
type AppError struct {
	Kind     Kind
	Code     string
	Status   int
	Message  string
	Cause    error
	Metadata map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches errors by code so callers can use errors.Is against a constructed template.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithCause adds a cause error to the error chain
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithMetadata adds additional context metadata
func (e *AppError) WithMetadata(key string, value interface{}) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// NewError creates a new AppError with the specified parameters
func NewError(kind Kind, code string, message string) *AppError {
	return &AppError{
		Kind:    kind,
		Code:    code,
		Status:  statusForKind(kind),
		Message: message,
	}
}

// Wrap wraps err into an AppError. When err already is an AppError its kind and code are kept.
func Wrap(err error, kind Kind, code string, message string) *AppError {
	var existing *AppError
	if stderrors.As(err, &existing) {
		return &AppError{
			Kind:    existing.Kind,
			Code:    existing.Code,
			Status:  existing.Status,
			Message: message,
			Cause:   err,
		}
	}
	return NewError(kind, code, message).WithCause(err)
}

func statusForKind(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindSecurityInvalid:
		return http.StatusUnauthorized
	case KindLimitExceeded:
		return http.StatusTooManyRequests
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ================================================================================
// Predefined Error Constructors
// ================================================================================

// ErrInvalidArgument creates a validation error for a named argument
func ErrInvalidArgument(argument, reason string) *AppError {
	return NewError(KindValidation, CodeInvalidArgument, fmt.Sprintf("invalid argument %q: %s", argument, reason)).
		WithMetadata("argument", argument)
}

// ErrHandlerRegistration reports a second handler for an already registered message type
func ErrHandlerRegistration(messageType string) *AppError {
	return NewError(KindConflict, CodeHandlerRegistration, fmt.Sprintf("handler already registered for %s", messageType)).
		WithMetadata("message_type", messageType)
}

// ErrCommandNotFound reports a command sent without a registered handler
func ErrCommandNotFound(messageType string) *AppError {
	return NewError(KindNotFound, CodeCommandNotFound, fmt.Sprintf("no handler registered for command %s", messageType)).
		WithMetadata("message_type", messageType)
}

// ErrQueryNotFound reports a query sent without a registered handler
func ErrQueryNotFound(messageType string) *AppError {
	return NewError(KindNotFound, CodeQueryNotFound, fmt.Sprintf("no handler registered for query %s", messageType)).
		WithMetadata("message_type", messageType)
}

// ErrUsernameGenerationLimit reports that numeric suffixing ran out of attempts
func ErrUsernameGenerationLimit(base string, attempts int) *AppError {
	return NewError(KindLimitExceeded, CodeUsernameGenerationLimit,
		fmt.Sprintf("could not find a free username for %q after %d attempts", base, attempts)).
		WithMetadata("base", base).
		WithMetadata("attempts", attempts)
}

// ErrUsernameGeneration reports repeated infrastructure failures while checking usernames
func ErrUsernameGeneration(base string, cause error) *AppError {
	return NewError(KindInfrastructure, CodeUsernameGeneration,
		fmt.Sprintf("username lookup failed repeatedly for %q", base)).
		WithMetadata("base", base).
		WithCause(cause)
}

// ErrInfrastructure wraps a store or network failure
func ErrInfrastructure(operation string, cause error) *AppError {
	return NewError(KindInfrastructure, CodeInfrastructure, operation+" failed").
		WithMetadata("operation", operation).
		WithCause(cause)
}

// ErrInsecureSigningKey reports a placeholder or too-short signing secret
func ErrInsecureSigningKey(reason string) *AppError {
	return NewError(KindValidation, CodeInsecureSigningKey, "insecure signing key: "+reason)
}

// ErrRateLimited reports a denied attempt
func ErrRateLimited(reason string, remaining int) *AppError {
	return NewError(KindLimitExceeded, CodeRateLimited, reason).
		WithMetadata("remaining", remaining)
}

// ErrInvalidToken reports a token that failed validation. The reason is generic by construction.
func ErrInvalidToken(reason string) *AppError {
	return NewError(KindSecurityInvalid, CodeInvalidToken, reason)
}

// ErrInvalidCredentials reports a failed login without revealing which part was wrong
func ErrInvalidCredentials() *AppError {
	return NewError(KindSecurityInvalid, CodeInvalidCredentials, "invalid credentials")
}

// ErrNotFound reports a missing record
func ErrNotFound(what string) *AppError {
	return NewError(KindNotFound, CodeNotFound, what+" not found")
}

// ================================================================================
// Error Validation Utilities
// ================================================================================

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// AsAppError attempts to extract an AppError from the chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf returns the kind of err, treating foreign errors as infrastructure failures.
func KindOf(err error) Kind {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Kind
	}
	return KindInfrastructure
}

// HasCode checks whether err carries the given code
func HasCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// IsNotFoundError checks if an error is a not found error.
func IsNotFoundError(err error) bool {
	return err != nil && KindOf(err) == KindNotFound
}

// IsLimitExceeded checks if an error is a rate limit or retry ceiling.
func IsLimitExceeded(err error) bool {
	return err != nil && KindOf(err) == KindLimitExceeded
}

// ================================================================================
// Error Response Builder
// ================================================================================

// ErrorResponse represents the JSON structure for error responses
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// ToErrorResponse converts any error to a response body and status. Infrastructure
// details never leave the process.
func ToErrorResponse(err error) (int, *ErrorResponse) {
	appErr, ok := AsAppError(err)
	if !ok || appErr.Kind == KindInfrastructure {
		return http.StatusInternalServerError, &ErrorResponse{
			Error:            CodeInfrastructure,
			ErrorDescription: "An unexpected error occurred",
		}
	}
	return appErr.Status, &ErrorResponse{
		Error:            appErr.Code,
		ErrorDescription: appErr.Message,
	}
}

//Personal.AI order the ending
