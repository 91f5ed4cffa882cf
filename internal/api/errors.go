package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pantryscout/backend/internal/llm"
	"github.com/pantryscout/backend/internal/logger"
	"github.com/pantryscout/backend/internal/middleware"
	"github.com/pantryscout/backend/internal/model"
	"github.com/pantryscout/backend/internal/service"
	"go.uber.org/zap"
)

// statusFor maps a service error onto an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrRecipeNotFound),
		errors.Is(err, service.ErrNoPicture),
		errors.Is(err, service.ErrNoProducts):
		return http.StatusNotFound
	case errors.Is(err, model.ErrDuplicateRecipe),
		errors.Is(err, model.ErrDuplicateProduct):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrInvalidSort),
		errors.Is(err, service.ErrInvalidParent),
		errors.Is(err, service.ErrEmptyQuery),
		errors.Is(err, service.ErrUnsupportedImage):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrAllProvidersFailed):
		return http.StatusBadGateway
	case errors.Is(err, llm.ErrNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err with the status it maps to. Server errors use the
// same {"detail": {...}} body as panic recovery.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	_ = c.Error(err)
	if status < http.StatusInternalServerError {
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	logger.L().Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(status, gin.H{"detail": middleware.ErrorDetail{
		Error: err.Error(),
		Type:  errorType(err),
	}})
}

func errorType(err error) string {
	for _, known := range []struct {
		err  error
		name string
	}{
		{service.ErrIncompleteRecipe, "IncompleteRecipe"},
		{llm.ErrInvalidJSON, "InvalidJSON"},
		{llm.ErrEmptyResponse, "EmptyResponse"},
		{service.ErrAllProvidersFailed, "UpstreamFailure"},
	} {
		if errors.Is(err, known.err) {
			return known.name
		}
	}
	return "InternalError"
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
