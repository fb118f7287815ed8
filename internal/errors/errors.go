// Package errors defines the error taxonomy shared by the analysis stages.
// Import it as apperrors to keep the standard library errors package usable.
package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrTypeConfig halts a run before any computation: unmapped signal roles,
	// invalid base or resolution, missing limits.
	ErrTypeConfig ErrorType = "CONFIG"
	// ErrTypeDataQuality is raised when the data cannot support a stage,
	// e.g. too few points to interpolate or an empty table after filtering.
	ErrTypeDataQuality ErrorType = "DATA_QUALITY"
	// ErrTypeParsing covers unreadable or structurally invalid log files.
	ErrTypeParsing ErrorType = "PARSING"
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

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// NewDataQualityError creates a data quality error
func NewDataQualityError(message string, cause error) *AppError {
	return NewAppError(ErrTypeDataQuality, message, cause)
}

// NewParsingError creates a parsing-related error
func NewParsingError(message string, cause error) *AppError {
	return NewAppError(ErrTypeParsing, message, cause)
}

// TypeOf returns the type of the first AppError in err's chain, or "" when
// there is none.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// IsConfig reports whether err is a configuration error.
func IsConfig(err error) bool { return TypeOf(err) == ErrTypeConfig }

// IsDataQuality reports whether err is a data quality error.
func IsDataQuality(err error) bool { return TypeOf(err) == ErrTypeDataQuality }

// IsParsing reports whether err is a parsing error.
func IsParsing(err error) bool { return TypeOf(err) == ErrTypeParsing }
