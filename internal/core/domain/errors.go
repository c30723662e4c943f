// Package domain defines the error taxonomy shared by the federation layer.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a federation error with a structured error code.
type DomainError struct {
	Code    string // Error code (e.g., "ZM-MSG-5040")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithDetailsf is WithDetails with fmt.Sprintf formatting.
func (e *DomainError) WithDetailsf(format string, args ...any) *DomainError {
	return e.WithDetails(fmt.Sprintf(format, args...))
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// Wrap wraps an error with this domain error as the cause.
func (e *DomainError) Wrap(cause error) *DomainError {
	return e.WithCause(cause)
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Messaging Errors (MSG)
// ============================================================================

var (
	// ErrMessaging indicates a send or receive failure on the transport.
	ErrMessaging = NewDomainError("ZM-MSG-5000", "messaging error")

	// ErrTimeout indicates no reply arrived within the allowed time.
	ErrTimeout = NewDomainError("ZM-MSG-5040", "timed out waiting for reply")

	// ErrDestinationUnavailable indicates the peer is suspected or unreachable.
	ErrDestinationUnavailable = NewDomainError("ZM-MSG-5030", "destination unavailable")

	// ErrMalformedMessage indicates an inbound frame could not be decoded.
	ErrMalformedMessage = NewDomainError("ZM-MSG-4000", "malformed message")
)

// ============================================================================
// Topology Errors (TOPO)
// ============================================================================

var (
	// ErrControllerNotFound indicates the current view has no controller.
	ErrControllerNotFound = NewDomainError("ZM-TOPO-4040", "controller could not be located")
)

// ============================================================================
// Execution Errors (EXEC)
// ============================================================================

var (
	// ErrExecution indicates a command handler failed.
	ErrExecution = NewDomainError("ZM-EXEC-5000", "command execution failed")

	// ErrUnknownCommand indicates no executor is registered for a command type.
	ErrUnknownCommand = NewDomainError("ZM-EXEC-4040", "no executor registered for command")
)

// ============================================================================
// Argument Errors (ARG)
// ============================================================================

var (
	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = NewDomainError("ZM-ARG-1001", "invalid argument")
)

// Kind returns a short, stable label for err suitable for metric labels.
func Kind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrDestinationUnavailable):
		return "unavailable"
	case errors.Is(err, ErrControllerNotFound):
		return "no_controller"
	case errors.Is(err, ErrExecution), errors.Is(err, ErrUnknownCommand):
		return "execution"
	case errors.Is(err, ErrMalformedMessage):
		return "malformed"
	case errors.Is(err, ErrMessaging):
		return "messaging"
	default:
		return "other"
	}
}
