// Package api provides the HTTP transport of the mention index.
package api

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	internalErrors "github.com/gcbaptista/mention-index/internal/errors"
)

// ValidationError represents a validation error with field context
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult holds the result of validation operations
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// AddError adds a validation error to the result
func (vr *ValidationResult) AddError(field, message string) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, ValidationError{
		Field:   field,
		Message: message,
	})
}

// HasErrors returns true if there are validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// ValidateLimitParam parses the limit query parameter.
// A missing or non-positive limit selects the default (0); the ranker caps large values.
func ValidateLimitParam(raw string) (int, *ValidationResult) {
	result := &ValidationResult{Valid: true}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, result
	}

	limit, err := strconv.Atoi(raw)
	if err != nil {
		result.AddError("limit", "Limit must be an integer")
		return 0, result
	}
	if limit < 0 {
		limit = 0
	}
	return limit, result
}

// ValidationResultFromError converts a decoding error into a validation result
func ValidationResultFromError(err error) *ValidationResult {
	result := &ValidationResult{Valid: true}

	var validationErr *internalErrors.ValidationError
	if errors.As(err, &validationErr) {
		field := validationErr.Field
		if field == "" {
			field = "request_body"
		}
		result.AddError(field, validationErr.Message)
		return result
	}

	result.AddError("request_body", err.Error())
	return result
}

// SendValidationError sends a standardized validation error response
func SendValidationError(c *gin.Context, result *ValidationResult) {
	SendStructuredValidationError(c, result)
}
