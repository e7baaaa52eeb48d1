package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions
var (
	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownMessageType is returned when a message carries a type the engine does not handle
	ErrUnknownMessageType = errors.New("unknown message type")

	// ErrEngineStopped is returned when a request is submitted to an engine that is no longer running
	ErrEngineStopped = errors.New("engine stopped")

	// ErrInvalidConfig is returned when settings fail validation
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ValidationError represents an input validation error with context
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// UnknownMessageTypeError represents a message whose type is not understood
type UnknownMessageTypeError struct {
	Type string
}

func (e *UnknownMessageTypeError) Error() string {
	return fmt.Sprintf("unknown message type '%s'", e.Type)
}

func (e *UnknownMessageTypeError) Is(target error) bool {
	return target == ErrUnknownMessageType
}

// NewUnknownMessageTypeError creates a new UnknownMessageTypeError
func NewUnknownMessageTypeError(messageType string) *UnknownMessageTypeError {
	return &UnknownMessageTypeError{Type: messageType}
}

// ConfigError represents one or more settings conflicts
type ConfigError struct {
	Source    string
	Conflicts []string
}

func (e *ConfigError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("invalid configuration in '%s': %v", e.Source, e.Conflicts)
	}
	return fmt.Sprintf("invalid configuration: %v", e.Conflicts)
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// NewConfigError creates a new ConfigError
func NewConfigError(source string, conflicts []string) *ConfigError {
	return &ConfigError{Source: source, Conflicts: conflicts}
}
