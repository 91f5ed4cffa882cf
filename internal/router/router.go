package router

import (
	"github.com/gin-gonic/gin"
	"github.com/pantryscout/backend/internal/api"
	"github.com/pantryscout/backend/internal/middleware"
)

// SetupRouter configures the middleware chain and the application routes
func SetupRouter(deps api.Dependencies) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS())

	api.SetupAPI(router, deps)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{"error": "route not found"})
	})

	return router
}
