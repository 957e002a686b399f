package errors

import (
	"errors"
)

func HTTPStatusCode(err error) int {
	if err == nil {
		return StatusInternalServerError
	}

	switch GetErrorType(err) {
	case ErrorTypeNotFound:
		return StatusNotFound
	case ErrorTypeInvalidRequest:
		return StatusBadRequest
	case ErrorTypeConflict:
		return StatusConflict
	case ErrorTypeTooManyRequests:
		return StatusTooManyRequests
	case ErrorTypeRequestTimeout:
		return StatusRequestTimeout
	case ErrorTypeMethodNotAllowed:
		return StatusMethodNotAllowed
	case ErrorTypeServiceUnavailable:
		return StatusServiceUnavailable
	default:
		// Configuration, upstream, database and unknown failures all look the
		// same from the outside.
		return StatusInternalServerError
	}
}

func GetHumanReadableMessage(err error) string {
	if err == nil {
		return GenericFailureMessage
	}

	var appErr *AppError
	if errors.As(err, &appErr) && IsUserFacing(appErr) {
		return appErr.Message
	}

	// SECURITY: never leak tokens, upstream bodies or driver messages.
	return GenericFailureMessage
}
