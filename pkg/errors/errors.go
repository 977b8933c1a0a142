package errors

import (
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Messages carried by the user module errors. Callers and tests match on them.
const (
	MsgUserNotFound    = "User not found for the given email."
	MsgInvalidPassword = "Invalid password."
	MsgEmailRegistered = "Already existing email registered."
)

// AuthenticationError reports a credential mismatch or an unknown identity.
type AuthenticationError struct {
	Message string
}

// NewAuthenticationError creates a new authentication error
func NewAuthenticationError(message string) *AuthenticationError {
	return &AuthenticationError{Message: message}
}

// Error implements the error interface
func (e *AuthenticationError) Error() string {
	return e.Message
}

// GRPCStatus returns the gRPC status for this error
func (e *AuthenticationError) GRPCStatus() *status.Status {
	return status.New(codes.Unauthenticated, e.Message)
}

// BusinessRuleError reports a violated domain invariant, such as a duplicate email.
type BusinessRuleError struct {
	Message string
}

// NewBusinessRuleError creates a new business rule error
func NewBusinessRuleError(message string) *BusinessRuleError {
	return &BusinessRuleError{Message: message}
}

// Error implements the error interface
func (e *BusinessRuleError) Error() string {
	return e.Message
}

// GRPCStatus returns the gRPC status for this error
func (e *BusinessRuleError) GRPCStatus() *status.Status {
	return status.New(codes.FailedPrecondition, e.Message)
}

// ValidationError represents a validation failure with field-level details
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed: %s - %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// GRPCStatus returns the gRPC status for this error
func (e *ValidationError) GRPCStatus() *status.Status {
	return status.New(codes.InvalidArgument, e.Error())
}

// InternalError represents an internal server error with context
type InternalError struct {
	Message string
	Err     error
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *InternalError {
	return &InternalError{
		Message: message,
		Err:     err,
	}
}

// Error implements the error interface
func (e *InternalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *InternalError) Unwrap() error {
	return e.Err
}

// GRPCStatus returns the gRPC status for this error.
// The wrapped cause is not exposed to clients.
func (e *InternalError) GRPCStatus() *status.Status {
	return status.New(codes.Internal, e.Message)
}

// GRPCStatuser interface for errors that can provide gRPC status
type GRPCStatuser interface {
	GRPCStatus() *status.Status
}
