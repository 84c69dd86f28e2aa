package external

import (
	"errors"
	"fmt"
	"net/http"
)

// These constants refer to error codes that come from the record service
// itself (not within this library)
const (
	ErrCodeItemNotFound  = "E404RI" // Item does not exist
	ErrCodeValidation    = "E422RV" // Field payload failed validation
	ErrCodeUnauthorized  = "E401RA" // Token rejected
	ErrCodeRateLimited   = "E429RL" // Too many requests
	ErrCodeInternalError = "E500RS" // Internal record service error
)

// ServiceError is a failure reported by the record service or its transport.
// Retryable errors should be attempted again after backoff; permanent errors
// should fail the originating queue entry immediately.
type ServiceError struct {
	StatusCode int
	ErrorCode  string
	Message    string
	retryable  bool
}

// NewServiceError builds a classified service failure
func NewServiceError(statusCode int, errorCode, message string,
	retryable bool) *ServiceError {
	return &ServiceError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
		retryable:  retryable,
	}
}

// Error implements the error interface
func (se *ServiceError) Error() string {
	if se.ErrorCode != "" {
		return fmt.Sprintf("record service: %s: %s", se.ErrorCode, se.Message)
	}
	return fmt.Sprintf("record service: %s", se.Message)
}

// Retryable indicates whether the failure is worth another attempt
func (se *ServiceError) Retryable() bool {
	return se.retryable
}

// NotFound indicates the service has no item with the given id
func (se *ServiceError) NotFound() bool {
	return se.ErrorCode == ErrCodeItemNotFound ||
		se.StatusCode == http.StatusNotFound
}

// IsRetryable reports whether err, anywhere in its chain, is a transient
// service failure. Unknown errors are treated as permanent so a malformed
// payload cannot loop forever.
func IsRetryable(err error) bool {
	se := &ServiceError{}
	if errors.As(err, &se) {
		return se.retryable
	}

	return false
}

// IsNotFound reports whether err is the service's item-does-not-exist error
func IsNotFound(err error) bool {
	se := &ServiceError{}
	if errors.As(err, &se) {
		return se.NotFound()
	}

	return false
}

// retryableStatus classifies an HTTP status from the service transport
func retryableStatus(status int) bool {
	if status == http.StatusTooManyRequests ||
		status == http.StatusRequestTimeout {
		return true
	}

	return status >= 500
}

// retryableServiceCode classifies an error reported inside the envelope
func retryableServiceCode(errorCode string, code int) bool {
	switch errorCode {
	case ErrCodeRateLimited, ErrCodeInternalError:
		return true
	case ErrCodeItemNotFound, ErrCodeValidation, ErrCodeUnauthorized:
		return false
	}

	return retryableStatus(code)
}
