package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pantryscout/backend/internal/logger"
	"go.uber.org/zap"
)

// ErrorDetail is the body returned for unhandled failures
type ErrorDetail struct {
	Error string `json:"error"`
	Type  string `json:"type"`
}

// Recovery turns panics into a JSON 500 response of the form
// {"detail": {"error": ..., "type": ...}}
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				detail := ErrorDetail{Error: fmt.Sprint(rec), Type: fmt.Sprintf("%T", rec)}
				if err, ok := rec.(error); ok {
					detail.Error = err.Error()
				}
				logger.L().Error("panic recovered",
					zap.String("path", c.Request.URL.Path),
					zap.String("error", detail.Error),
					zap.String("type", detail.Type),
					zap.Stack("stack"),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": detail})
			}
		}()
		c.Next()
	}
}

// RequestLogger logs one line per request
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			logger.L().Error("request", fields...)
		case status >= http.StatusBadRequest:
			logger.L().Warn("request", fields...)
		default:
			logger.L().Info("request", fields...)
		}
	}
}
