package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/engagesync/backend/internal/domain/shared"
	syncdomain "github.com/engagesync/backend/internal/domain/sync"
	"github.com/engagesync/backend/internal/domain/tenant"
	"github.com/engagesync/backend/internal/interfaces/http/dto"
)

// RequestIDKey is the header carrying the client-supplied request ID
const RequestIDKey = "X-Request-ID"

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID reads the request ID set by the RequestID middleware,
// falling back to the raw header when the middleware is not mounted
func getRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	if id := c.GetHeader(RequestIDKey); id != "" {
		return id
	}
	return ""
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with list meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, limit int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, limit))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Accepted sends a 202 accepted response for asynchronous work
func (h *BaseHandler) Accepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	requestID := getRequestID(c)
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, requestID))
}

// ErrorWithCode sends an error response, deriving status code from error code
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	statusCode := dto.GetHTTPStatus(code)
	requestID := getRequestID(c)
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, requestID))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// Conflict sends a 409 conflict response
func (h *BaseHandler) Conflict(c *gin.Context, message string) {
	h.Error(c, http.StatusConflict, dto.ErrCodeConflict, message)
}

// UnprocessableEntity sends a 422 unprocessable entity response
func (h *BaseHandler) UnprocessableEntity(c *gin.Context, code, message string) {
	h.Error(c, http.StatusUnprocessableEntity, code, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// TooManyRequests sends a 429 too many requests response
func (h *BaseHandler) TooManyRequests(c *gin.Context, message string) {
	h.Error(c, http.StatusTooManyRequests, dto.ErrCodeRateLimited, message)
}

// ValidationError sends a 400 validation error response with details
func (h *BaseHandler) ValidationError(c *gin.Context, details []dto.ValidationDetail) {
	requestID := getRequestID(c)
	c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(
		"Request validation failed",
		requestID,
		details,
	))
}

// sentinelErrorCodes maps domain sentinel errors to API error codes
var sentinelErrorCodes = []struct {
	target error
	code   string
}{
	{syncdomain.ErrJobNotFound, dto.ErrCodeNotFound},
	{tenant.ErrNamespaceNotFound, dto.ErrCodeNotFound},
	{syncdomain.ErrJobNotCancellable, dto.ErrCodeInvalidState},
	{tenant.ErrNamespaceAlreadyExists, dto.ErrCodeAlreadyExists},
	{tenant.ErrKeywordOverlap, dto.ErrCodeConflict},
	{tenant.ErrNamespaceInvalidName, dto.ErrCodeValidation},
	{tenant.ErrNamespaceNoKeywords, dto.ErrCodeValidation},
	{syncdomain.ErrRequestNoPlatforms, dto.ErrCodeValidation},
	{syncdomain.ErrRequestInvalidMode, dto.ErrCodeValidation},
	{syncdomain.ErrRequestMissingDateRange, dto.ErrCodeValidation},
	{syncdomain.ErrRequestInvalidDateRange, dto.ErrCodeValidation},
	{syncdomain.ErrRequestMissingResetDate, dto.ErrCodeValidation},
	{syncdomain.ErrRequestInvalidBatchSize, dto.ErrCodeValidation},
	{syncdomain.ErrRequestInvalidPlatform, dto.ErrCodePlatformUnknown},
	{syncdomain.ErrPlatformUnknown, dto.ErrCodePlatformUnknown},
	{syncdomain.ErrPlatformNotConfigured, dto.ErrCodePlatformNotConfigured},
	{syncdomain.ErrPlatformRateLimited, dto.ErrCodeRateLimited},
}

// HandleError converts domain errors to HTTP responses
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	requestID := getRequestID(c)

	for _, m := range sentinelErrorCodes {
		if errors.Is(err, m.target) {
			statusCode := dto.GetHTTPStatus(m.code)
			c.JSON(statusCode, dto.NewErrorResponseWithRequestID(m.code, err.Error(), requestID))
			return
		}
	}

	// Check for domain error using errors.As for wrapped error support
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		statusCode := dto.GetHTTPStatus(code)
		c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, domainErr.Message, requestID))
		return
	}

	// Default to internal error for unknown error types
	c.JSON(http.StatusInternalServerError, dto.NewErrorResponseWithRequestID(
		dto.ErrCodeInternal,
		"An unexpected error occurred",
		requestID,
	))
}
