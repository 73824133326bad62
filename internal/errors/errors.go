package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// Domain errors returned by the dataset, ingest and analysis packages.
// Callers wrap them with context and test with errors.Is.
var (
	ErrColumnNotFound      = errors.New("column not found")
	ErrDateNotFound        = errors.New("date not found in index")
	ErrMissingValue        = errors.New("missing value")
	ErrInvalidWindow       = errors.New("window must be a positive integer")
	ErrInvalidPeriod       = errors.New("period must be at least 2")
	ErrNonPositive         = errors.New("multiplicative decomposition requires strictly positive values")
	ErrInsufficientData    = errors.New("insufficient observations")
	ErrInsufficientColumns = errors.New("at least two numeric columns are required")
	ErrKeyMismatch         = errors.New("join key does not match table index")
	ErrLengthMismatch      = errors.New("column length does not match index length")
	ErrDuplicateColumn     = errors.New("duplicate column")
	ErrUnsupportedFormat   = errors.New("unsupported file format")
	ErrEmptyDataset        = errors.New("dataset is empty")
	ErrRunNotFound         = errors.New("impact run not found")
	ErrNoDataset           = errors.New("no dataset loaded")
)

// APIError represents a structured API error response
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// Render implements the render.Renderer interface for chi/render
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// ValidationError represents validation errors
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// New creates a new APIError with the given parameters
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
	}
}

// NewWithDetails creates a new APIError with additional details
func NewWithDetails(statusCode int, errorCode, message string, details interface{}) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
		Details:    details,
	}
}

// Predefined error types for common scenarios
var (
	ErrInvalidRequest    = New(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format")
	ErrInvalidParameter  = New(http.StatusBadRequest, "INVALID_PARAMETER", "Invalid parameter value")
	ErrNotFound          = New(http.StatusNotFound, "NOT_FOUND", "Resource not found")
	ErrInternalServer    = New(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error")
	ErrRateLimitExceeded = New(http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "Rate limit exceeded")
)

// InvalidRequestWithError creates an invalid request error with details
func InvalidRequestWithError(err error) *APIError {
	return NewWithDetails(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format", err.Error())
}

// InvalidParameter creates an invalid parameter error naming the parameter
func InvalidParameter(name string, err error) *APIError {
	return NewWithDetails(http.StatusBadRequest, "INVALID_PARAMETER",
		fmt.Sprintf("Invalid value for parameter %q", name), err.Error())
}

// NewValidationErrors creates validation errors from multiple fields
func NewValidationErrors(errs []ValidationError) *APIError {
	return NewWithDetails(
		http.StatusBadRequest,
		"VALIDATION_FAILED",
		"Request validation failed",
		errs,
	)
}

// FromDomain maps a domain error onto an APIError. Errors that are not
// domain errors are returned as internal server errors.
func FromDomain(err error) *APIError {
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, ErrColumnNotFound), errors.Is(err, ErrDateNotFound), errors.Is(err, ErrRunNotFound):
		return NewWithDetails(http.StatusNotFound, "NOT_FOUND", "Resource not found", err.Error())
	case errors.Is(err, ErrInvalidWindow), errors.Is(err, ErrInvalidPeriod),
		errors.Is(err, ErrKeyMismatch), errors.Is(err, ErrUnsupportedFormat):
		return NewWithDetails(http.StatusBadRequest, "INVALID_PARAMETER", "Invalid parameter value", err.Error())
	case errors.Is(err, ErrNonPositive), errors.Is(err, ErrMissingValue),
		errors.Is(err, ErrInsufficientData), errors.Is(err, ErrInsufficientColumns),
		errors.Is(err, ErrEmptyDataset), errors.Is(err, ErrNoDataset):
		return NewWithDetails(http.StatusUnprocessableEntity, "UNPROCESSABLE_ENTITY", "Request could not be processed", err.Error())
	default:
		return NewWithDetails(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error", err.Error())
	}
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   *APIError `json:"error"`
}

// NewErrorResponse creates a new error response
func NewErrorResponse(err *APIError) *ErrorResponse {
	return &ErrorResponse{
		Success: false,
		Error:   err,
	}
}

// WriteError writes an error response to the HTTP response writer
func WriteError(w http.ResponseWriter, err *APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.StatusCode)
	json.NewEncoder(w).Encode(NewErrorResponse(err))
}
