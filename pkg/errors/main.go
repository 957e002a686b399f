package errors

import (
	"errors"
	"fmt"
	"strings"
)

const (
	StatusOK                  = 200
	StatusCreated             = 201
	StatusNoContent           = 204
	StatusBadRequest          = 400
	StatusNotFound            = 404
	StatusMethodNotAllowed    = 405
	StatusRequestTimeout      = 408
	StatusConflict            = 409
	StatusTooManyRequests     = 429
	StatusInternalServerError = 500
	StatusServiceUnavailable  = 503
)

const (
	ErrorTypeDatabaseError       = "DATABASE_ERROR"
	ErrorTypeNotFound            = "NOT_FOUND"
	ErrorTypeInvalidRequest      = "INVALID_REQUEST"
	ErrorTypeConflict            = "CONFLICT"
	ErrorTypeConfiguration       = "CONFIGURATION_ERROR"
	ErrorTypeUpstream            = "UPSTREAM_ERROR"
	ErrorTypeServiceUnavailable  = "SERVICE_UNAVAILABLE"
	ErrorTypeInternalServerError = "INTERNAL_SERVER_ERROR"
	ErrorTypeUnknown             = "UNKNOWN_ERROR"
	ErrorTypeTooManyRequests     = "TOO_MANY_REQUESTS"
	ErrorTypeRequestTimeout      = "REQUEST_TIMEOUT"
	ErrorTypeMethodNotAllowed    = "METHOD_NOT_ALLOWED"
)

// GenericFailureMessage is the only text a caller sees for failures that are
// not conflicts or validation problems.
const GenericFailureMessage = "Something went wrong. Please try again later."

type AppError struct {
	Type    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(errType, message string, err error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

func NewInvalidRequestError(message string, err error) *AppError {
	return NewAppError(ErrorTypeInvalidRequest, message, err)
}

func NewDatabaseError(message string, err error) *AppError {
	return NewAppError(ErrorTypeDatabaseError, message, err)
}

func NewConflictError(message string, err error) *AppError {
	return NewAppError(ErrorTypeConflict, message, err)
}

// NewConfigurationError marks a fatal misconfiguration such as a malformed
// private key or a missing secret.
func NewConfigurationError(message string, err error) *AppError {
	return NewAppError(ErrorTypeConfiguration, message, err)
}

// NewUpstreamError marks a failure talking to an external API (token
// endpoint, spreadsheet API).
func NewUpstreamError(message string, err error) *AppError {
	return NewAppError(ErrorTypeUpstream, message, err)
}

func NewServiceUnavailableError(message string, err error) *AppError {
	return NewAppError(ErrorTypeServiceUnavailable, message, err)
}

func NewInternalServerError(message string, err error) *AppError {
	return NewAppError(ErrorTypeInternalServerError, message, err)
}

func GetErrorType(err error) string {
	if err == nil {
		return ""
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}

	return ErrorTypeUnknown
}

// IsUserFacing reports whether the error's message may be shown to the
// caller verbatim.
func IsUserFacing(err error) bool {
	switch GetErrorType(err) {
	case ErrorTypeConflict, ErrorTypeInvalidRequest, ErrorTypeNotFound:
		return true
	default:
		return false
	}
}

func DeduceErrorTypeFromErrorString(err error) string {
	if err == nil {
		return ""
	}

	errMsg := strings.ToLower(err.Error())
	switch {
	case errMsg == "":
		return ""
	case strings.Contains(errMsg, "not found"):
		return ErrorTypeNotFound
	case strings.Contains(errMsg, "conflict"):
		return ErrorTypeConflict
	case strings.Contains(errMsg, "database"):
		return ErrorTypeDatabaseError
	case strings.Contains(errMsg, "invalid request"):
		return ErrorTypeInvalidRequest
	}

	return ErrorTypeUnknown
}

func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	return DeduceErrorTypeFromErrorString(err) == ErrorTypeConflict ||
		strings.Contains(errMsg, "duplicate") ||
		strings.Contains(errMsg, "unique constraint")
}
