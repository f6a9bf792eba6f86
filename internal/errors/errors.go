// Package errors provides typed errors for the NBDB client.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the broker error taxonomy.
var (
	// ErrAuthentication indicates the login handshake was refused.
	ErrAuthentication = errors.New("authentication failed")

	// ErrSessionExpired indicates the broker rejected the bearer token.
	// Callers recover by refreshing the session.
	ErrSessionExpired = errors.New("session expired")

	// ErrAccountNotFound indicates no account matched the lookup.
	ErrAccountNotFound = errors.New("account not found")

	// ErrOrderRejected indicates the broker refused the order during validation.
	ErrOrderRejected = errors.New("order rejected")

	// ErrOrderNotFound indicates the order is not in the account's order list.
	ErrOrderNotFound = errors.New("order not found")

	// ErrNoPositions indicates the account holds no positions.
	ErrNoPositions = errors.New("no positions found")

	// ErrUnsupportedCurrency indicates a currency with no known country mapping.
	ErrUnsupportedCurrency = errors.New("unsupported currency")

	// ErrNotFound indicates some other resource was missing from a response.
	ErrNotFound = errors.New("resource not found")

	// ErrValidation indicates invalid caller input.
	ErrValidation = errors.New("validation error")

	// ErrBrokerRequest indicates a non-success HTTP status from the broker.
	ErrBrokerRequest = errors.New("broker request failed")

	// ErrTransport indicates a network or decoding failure.
	ErrTransport = errors.New("transport error")
)

// AppError is a structured application error.
type AppError struct {
	// Type is the error type (sentinel error).
	Type error
	// Message is the user-facing error message.
	Message string
	// Details contains additional error details.
	Details map[string]any
	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error type.
func (e *AppError) Unwrap() error {
	return e.Type
}

// Is checks if this error matches the target.
func (e *AppError) Is(target error) bool {
	return errors.Is(e.Type, target)
}

// New creates a new AppError.
func New(errType error, message string) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
	}
}

// Newf creates a new AppError with a formatted message.
func Newf(errType error, format string, args ...any) *AppError {
	return &AppError{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an error with additional context.
func Wrap(errType error, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
	}
}

// WithDetails adds details to an AppError.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

// Validation creates a validation error.
func Validation(message string) *AppError {
	return &AppError{
		Type:    ErrValidation,
		Message: message,
	}
}

// ValidationField creates a validation error for a specific field.
func ValidationField(field, message string) *AppError {
	return &AppError{
		Type:    ErrValidation,
		Message: message,
		Details: map[string]any{"field": field},
	}
}

// BrokerStatus creates an error for a non-success broker response.
func BrokerStatus(op string, status int, body string) *AppError {
	return &AppError{
		Type:    ErrBrokerRequest,
		Message: fmt.Sprintf("%s: status %d", op, status),
		Details: map[string]any{"status": status, "body": body},
	}
}

// IsAuthentication reports whether err is a login failure.
func IsAuthentication(err error) bool {
	return errors.Is(err, ErrAuthentication)
}

// IsSessionExpired reports whether the caller should refresh the session.
func IsSessionExpired(err error) bool {
	return errors.Is(err, ErrSessionExpired)
}

// IsNotFound checks for any of the not-found flavours.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrOrderNotFound)
}

// IsValidation checks if an error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// ExitCode maps an error to a process exit status for the CLI.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrAuthentication), errors.Is(err, ErrSessionExpired):
		return 3
	case errors.Is(err, ErrValidation), errors.Is(err, ErrUnsupportedCurrency):
		return 2
	case errors.Is(err, ErrOrderRejected):
		return 4
	case IsNotFound(err), errors.Is(err, ErrNoPositions):
		return 5
	default:
		return 1
	}
}
