package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// Numeric pipeline failures
	ErrTypeFit               ErrorType = "FIT"
	ErrTypeDimensionMismatch ErrorType = "DIMENSION_MISMATCH"
	ErrTypeInvalidMass       ErrorType = "INVALID_MASS"
	ErrTypeDivisionByZero    ErrorType = "DIVISION_BY_ZERO"
	ErrTypeDomain            ErrorType = "DOMAIN"

	// Collaborator failures
	ErrTypeParsing    ErrorType = "PARSING"
	ErrTypeStorage    ErrorType = "STORAGE"
	ErrTypeValidation ErrorType = "VALIDATION"
	ErrTypeNotFound   ErrorType = "NOT_FOUND"
	ErrTypeConfig     ErrorType = "CONFIG"
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *AppError of the same type. A target with
// an empty Message matches any message, so a bare &AppError{Type: t} can be
// used as a sentinel with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Type == e.Type && (t.Message == "" || t.Message == e.Message)
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// TypeOf returns the ErrorType of the first AppError in err's chain, or ""
// when there is none.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// IsType reports whether err's chain contains an AppError of the given type.
func IsType(err error, errType ErrorType) bool {
	return stderrors.Is(err, &AppError{Type: errType})
}

// Helper functions for common error types

// NewFitError creates a calibration fit error
func NewFitError(message string, cause error) *AppError {
	return NewAppError(ErrTypeFit, message, cause)
}

// NewDimensionMismatchError creates an error for sequences of unequal length
func NewDimensionMismatchError(what string, want, got int) *AppError {
	return NewAppError(ErrTypeDimensionMismatch,
		fmt.Sprintf("%s: length mismatch (%d != %d)", what, want, got), nil).
		WithContext("want", want).
		WithContext("got", got)
}

// NewInvalidMassError creates an error for a non-positive or non-numeric mass
func NewInvalidMassError(mass interface{}, cause error) *AppError {
	return NewAppError(ErrTypeInvalidMass, fmt.Sprintf("invalid sample mass %v", mass), cause).
		WithContext("mass", mass)
}

// NewDivisionByZeroError creates a division-by-zero error
func NewDivisionByZeroError(message string) *AppError {
	return NewAppError(ErrTypeDivisionByZero, message, nil)
}

// NewDomainError creates an error for arguments outside a function's domain
func NewDomainError(message string) *AppError {
	return NewAppError(ErrTypeDomain, message, nil)
}

// NewParsingError creates a parsing-related error
func NewParsingError(message string, cause error) *AppError {
	return NewAppError(ErrTypeParsing, message, cause)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewAppValidationError creates a validation error for AppError type
func NewAppValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrTypeNotFound, fmt.Sprintf("%s not found", resource), nil)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}
