package domain

import (
	"fmt"
	"time"
)

// APIError is the standardized error payload returned by the HTTP API.
type APIError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios.
const (
	ErrCodeInvalidInput   = "INVALID_INPUT"
	ErrCodeDatabaseError  = "DATABASE_ERROR"
	ErrCodeExternalAPI    = "EXTERNAL_API_ERROR"
	ErrCodeGuidelineMiss  = "GUIDELINE_NOT_FOUND"
	ErrCodeReportMiss     = "REPORT_NOT_FOUND"
	ErrCodeDrugMiss       = "DRUG_NOT_FOUND"
	ErrCodeInternalServer = "INTERNAL_SERVER_ERROR"
	ErrCodeValidation     = "VALIDATION_ERROR"
)

// ValidationError represents input validation errors.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewAPIError creates a new APIError with timestamp.
func NewAPIError(code, message, details, requestID string) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string, value any) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}
