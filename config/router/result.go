package router

import (
	"net/http"

	"github.com/akeren/sheet-waitlist/internal/log"
)

// ServiceResult is the response envelope every route writes.
type ServiceResult struct {
	StatusCode int    `json:"code"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
}

type RateLimitResponse struct {
	Limit      int    `json:"limit"`
	Window     string `json:"window"`
	RetryAfter string `json:"retry_after"`
}

// GetLogger returns the correlated logger placed on the request, or a fresh
// one for requests that bypassed the middleware chain.
func GetLogger(ctx *RequestContext) *log.Logger {
	if logger, ok := ctx.Request.Context().Value(log.LoggerKeyForContext).(*log.Logger); ok {
		return logger
	}
	return log.NewLoggerWithJSONOutput().WithCorrelationID(ctx.Request.Context())
}

func ErrorResult(statusCode int, message string, data any) *ServiceResult {
	return &ServiceResult{StatusCode: statusCode, Data: data, Message: message}
}

func OKResult(data any, message string) *ServiceResult {
	return ErrorResult(http.StatusOK, message, data)
}

func CreatedResult(data any, message string) *ServiceResult {
	return ErrorResult(http.StatusCreated, message, data)
}

func BadRequestResult(message string, fields any) *ServiceResult {
	return ErrorResult(http.StatusBadRequest, message, fields)
}

func NotFoundResult(message string) *ServiceResult {
	return ErrorResult(http.StatusNotFound, message, nil)
}

func TooManyRequestsResult(data RateLimitResponse) *ServiceResult {
	return ErrorResult(http.StatusTooManyRequests, "Too Many Requests", data)
}

func InternalServerErrorResult(message string) *ServiceResult {
	return ErrorResult(http.StatusInternalServerError, message, nil)
}
