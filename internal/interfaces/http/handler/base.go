package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/channelsync/backend/internal/domain/pricing"
	"github.com/channelsync/backend/internal/domain/reconcile"
	"github.com/channelsync/backend/internal/domain/shared"
	"github.com/channelsync/backend/internal/domain/sync"
	"github.com/channelsync/backend/internal/interfaces/http/dto"
	"github.com/channelsync/backend/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Accepted sends a 202 accepted response for asynchronously triggered work
func (h *BaseHandler) Accepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the given status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponse(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// Unauthorized sends a 401 unauthorized response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
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

// sentinelStatus maps domain sentinel errors to HTTP responses
var sentinelStatus = []struct {
	err    error
	status int
	code   string
}{
	{sync.ErrMappingNotFound, http.StatusNotFound, dto.ErrCodeNotFound},
	{sync.ErrTransactionNotFound, http.StatusNotFound, dto.ErrCodeNotFound},
	{reconcile.ErrNoReport, http.StatusNotFound, dto.ErrCodeNotFound},
	{pricing.ErrNoCurrentRate, http.StatusNotFound, dto.ErrCodeNotFound},
	{sync.ErrMappingAlreadyExists, http.StatusConflict, dto.ErrCodeAlreadyExists},
	{reconcile.ErrCheckInProgress, http.StatusConflict, dto.ErrCodeConflict},
	{sync.ErrMappingInactive, http.StatusUnprocessableEntity, dto.ErrCodeInvalidState},
	{sync.ErrMappingMissingIdentity, http.StatusUnprocessableEntity, dto.ErrCodeInvalidState},
	{pricing.ErrInvalidRate, http.StatusUnprocessableEntity, dto.ErrCodeBusinessRule},
}

// HandleError converts domain errors to HTTP responses
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	for _, m := range sentinelStatus {
		if errors.Is(err, m.err) {
			h.Error(c, m.status, m.code, err.Error())
			return
		}
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		h.Error(c, dto.GetHTTPStatus(code), code, domainErr.Message)
		return
	}

	if isPolicyError(err) {
		h.Error(c, http.StatusUnprocessableEntity, dto.ErrCodeBusinessRule, err.Error())
		return
	}

	h.InternalError(c, "An unexpected error occurred")
}

func isPolicyError(err error) bool {
	switch {
	case errors.Is(err, sync.ErrPolicyMarginOutOfRange),
		errors.Is(err, sync.ErrPolicyInvalidRateMode),
		errors.Is(err, sync.ErrPolicyMissingManualRate),
		errors.Is(err, sync.ErrPolicyInvalidConflict):
		return true
	default:
		return false
	}
}
