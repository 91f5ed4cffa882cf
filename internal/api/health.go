package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether a backing store is reachable
type Pinger func(ctx context.Context) error

// HealthHandler serves the liveness endpoint
type HealthHandler struct {
	checks map[string]Pinger
}

func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{checks: checks}
}

func (h *HealthHandler) RegisterRoutes(router gin.IRouter) {
	router.GET("/health", h.HealthCheck)
}

// HealthCheck returns the health status of the API. Backing store failures
// are listed under checks; status and code stay the same.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	body := gin.H{"status": "healthy"}
	if len(h.checks) > 0 {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		checks := gin.H{}
		for name, ping := range h.checks {
			if err := ping(ctx); err != nil {
				checks[name] = err.Error()
			} else {
				checks[name] = "ok"
			}
		}
		body["checks"] = checks
	}
	c.JSON(http.StatusOK, body)
}
