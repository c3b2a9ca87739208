// Package services provides the business logic layer between the transports
// (HTTP, gRPC) and the analytics core.
package services

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Error codes returned in ServiceError.Code
const (
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeInvalidValues       = "INVALID_VALUES"
	CodeTooManyObservations = "TOO_MANY_OBSERVATIONS"
	CodeInvalidMethod       = "INVALID_METHOD"
	CodeInvalidPeriods      = "INVALID_PERIODS"
	CodeInvalidSeries       = "INVALID_SERIES"
	CodeSeriesLimit         = "SERIES_LIMIT"
	CodeSeriesNotFound      = "SERIES_NOT_FOUND"
	CodeInvalidProfile      = "INVALID_PROFILE"
	CodeProfileNotFound     = "PROFILE_NOT_FOUND"
	CodeProfileStore        = "PROFILE_STORE_ERROR"
)

// ServiceError represents a service layer error
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}

// HTTPStatus maps the error code to an HTTP status
func (e *ServiceError) HTTPStatus() int {
	switch e.Code {
	case CodeInvalidRequest, CodeInvalidValues, CodeInvalidMethod, CodeInvalidPeriods,
		CodeInvalidSeries, CodeInvalidProfile:
		return http.StatusBadRequest
	case CodeTooManyObservations:
		return http.StatusRequestEntityTooLarge
	case CodeSeriesNotFound, CodeProfileNotFound:
		return http.StatusNotFound
	case CodeSeriesLimit:
		return http.StatusTooManyRequests
	case CodeProfileStore:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// NewServiceError creates a new ServiceError
func NewServiceError(code, message string) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
	}
}

// NewServiceErrorWithDetails creates a new ServiceError with details
func NewServiceErrorWithDetails(code, message string, details map[string]interface{}) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// inputError converts a request validation error into a ServiceError
func inputError(err error) *ServiceError {
	var fe *fiber.Error
	if errors.As(err, &fe) && fe.Code == fiber.StatusRequestEntityTooLarge {
		return NewServiceError(CodeTooManyObservations, fe.Message)
	}
	if errors.As(err, &fe) {
		return NewServiceError(CodeInvalidValues, fe.Message)
	}
	return NewServiceError(CodeInvalidRequest, err.Error())
}
