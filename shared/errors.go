package shared

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrorCategory represents different types of errors that can occur
type ErrorCategory string

const (
	ErrorCategoryConfiguration  ErrorCategory = "configuration"
	ErrorCategoryNetwork        ErrorCategory = "network"
	ErrorCategoryDatabase       ErrorCategory = "database"
	ErrorCategoryValidation     ErrorCategory = "validation"
	ErrorCategoryProcessing     ErrorCategory = "processing"
	ErrorCategoryResource       ErrorCategory = "resource"
	ErrorCategoryTimeout        ErrorCategory = "timeout"
	ErrorCategoryAuthentication ErrorCategory = "authentication"
	ErrorCategoryAuthorization  ErrorCategory = "authorization"
	ErrorCategoryCancelled      ErrorCategory = "cancelled"
)

// Error codes returned by the geocoding and search services
const (
	CodeInvalidFormat       = "INVALID_FORMAT"
	CodeEmptyBatch          = "EMPTY_BATCH"
	CodeBatchTooLarge       = "BATCH_TOO_LARGE"
	CodeNotFound            = "NOT_FOUND"
	CodeProviderUnavailable = "PROVIDER_UNAVAILABLE"
	CodeInvalidRadiusQuery  = "INVALID_RADIUS_QUERY"
	CodeDatabaseError       = "DATABASE_ERROR"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeRequestCancelled    = "REQUEST_CANCELLED"
)

// Sentinels for errors.Is. Any ServiceError carrying the same code matches.
var (
	ErrInvalidFormat       = &ServiceError{Category: ErrorCategoryValidation, Code: CodeInvalidFormat, Message: "Invalid ZIP code format"}
	ErrEmptyBatch          = &ServiceError{Category: ErrorCategoryValidation, Code: CodeEmptyBatch, Message: "Request must include a non-empty array of ZIP codes"}
	ErrBatchTooLarge       = &ServiceError{Category: ErrorCategoryValidation, Code: CodeBatchTooLarge, Message: "Batch size too large"}
	ErrNotFound            = &ServiceError{Category: ErrorCategoryResource, Code: CodeNotFound, Message: "Location not found for ZIP code"}
	ErrProviderUnavailable = &ServiceError{Category: ErrorCategoryNetwork, Code: CodeProviderUnavailable, Message: "Geocoding provider unavailable"}
	ErrInvalidRadiusQuery  = &ServiceError{Category: ErrorCategoryValidation, Code: CodeInvalidRadiusQuery, Message: "Invalid radius query"}
	ErrDatabase            = &ServiceError{Category: ErrorCategoryDatabase, Code: CodeDatabaseError, Message: "Database error"}
	ErrRequestCancelled    = &ServiceError{Category: ErrorCategoryCancelled, Code: CodeRequestCancelled, Message: "Request cancelled"}
)

// ServiceError represents a standardized error with additional context
type ServiceError struct {
	Category    ErrorCategory `json:"category"`
	Code        string        `json:"code"`
	Message     string        `json:"message"`
	Details     interface{}   `json:"details,omitempty"`
	Timestamp   time.Time     `json:"timestamp"`
	ServiceName string        `json:"service_name"`
	Operation   string        `json:"operation"`
	Retryable   bool          `json:"retryable"`
	Cause       error         `json:"-"` // Original error, not serialized
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// Is matches on the error code so sentinels compare equal to contextualized copies
func (e *ServiceError) Is(target error) bool {
	t, ok := target.(*ServiceError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewServiceError creates a new service error
func NewServiceError(category ErrorCategory, code, message, serviceName, operation string, retryable bool, cause error) *ServiceError {
	return &ServiceError{
		Category:    category,
		Code:        code,
		Message:     message,
		Timestamp:   time.Now(),
		ServiceName: serviceName,
		Operation:   operation,
		Retryable:   retryable,
		Cause:       cause,
	}
}

// FromSentinel copies a sentinel and attaches call-site context
func FromSentinel(sentinel *ServiceError, message, serviceName, operation string, cause error) *ServiceError {
	if message == "" {
		message = sentinel.Message
	}
	return NewServiceError(sentinel.Category, sentinel.Code, message, serviceName, operation, sentinel.Retryable, cause)
}

// WithDetails adds additional details to the error
func (e *ServiceError) WithDetails(details interface{}) *ServiceError {
	e.Details = details
	return e
}

// IsRetryable returns whether the error is retryable
func (e *ServiceError) IsRetryable() bool {
	return e.Retryable
}

// LogError logs the error with structured fields
func (e *ServiceError) LogError() {
	logrus.WithFields(logrus.Fields{
		"error_category":   e.Category,
		"error_code":       e.Code,
		"error_message":    e.Message,
		"service_name":     e.ServiceName,
		"operation":        e.Operation,
		"retryable":        e.Retryable,
		"timestamp":        e.Timestamp,
		"underlying_error": e.Cause,
	}).Error("Service error occurred")
}

// WrapError wraps an existing error with service error context
func WrapError(err error, category ErrorCategory, code, serviceName, operation string, retryable bool) *ServiceError {
	if err == nil {
		return nil
	}

	// If it's already a ServiceError, just update the context
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		serviceErr.ServiceName = serviceName
		serviceErr.Operation = operation
		return serviceErr
	}

	return NewServiceError(category, code, err.Error(), serviceName, operation, retryable, err)
}

// IsRetryableError checks if an error is retryable
func IsRetryableError(err error) bool {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.IsRetryable()
	}

	// Default heuristics for standard errors
	errorMsg := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"timeout", "connection refused", "connection reset",
		"temporary failure", "service unavailable", "too many requests",
		"network", "dns", "socket",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errorMsg, pattern) {
			return true
		}
	}

	return false
}

// HTTPStatus maps an error to the status code the API responds with
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var serviceErr *ServiceError
	if !errors.As(err, &serviceErr) {
		return http.StatusInternalServerError
	}

	switch serviceErr.Category {
	case ErrorCategoryValidation:
		return http.StatusBadRequest
	case ErrorCategoryResource:
		if serviceErr.Code == CodeNotFound {
			return http.StatusNotFound
		}
		return http.StatusServiceUnavailable
	case ErrorCategoryAuthentication:
		return http.StatusUnauthorized
	case ErrorCategoryAuthorization:
		return http.StatusForbidden
	case ErrorCategoryTimeout:
		return http.StatusGatewayTimeout
	case ErrorCategoryCancelled:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message safe to show API clients
func PublicMessage(err error) string {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) && serviceErr.Category != ErrorCategoryDatabase {
		return serviceErr.Message
	}
	return "Internal server error"
}
