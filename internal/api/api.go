package api

import (
	"github.com/gin-gonic/gin"
	"github.com/pantryscout/backend/internal/middleware"
	"github.com/pantryscout/backend/internal/service"
)

// Dependencies are the services behind the HTTP API
type Dependencies struct {
	Recipes   service.IRecipeService
	Products  service.IProductService
	Generator service.IRecipeGenerator
	Pictures  service.IPictureService
	Tokens    middleware.TokenValidator
	// Optional rate limiters for the expensive endpoints
	GenerateLimiter *middleware.RateLimiter
	ScrapeLimiter   *middleware.RateLimiter
	// Health checks reported by /health, keyed by name
	Checks map[string]Pinger
}

// SetupAPI registers every route on router
func SetupAPI(router gin.IRouter, deps Dependencies) {
	NewHealthHandler(deps.Checks).RegisterRoutes(router)
	NewRecipeHandler(deps.Recipes, deps.Generator, deps.Pictures, limiterFunc(deps.GenerateLimiter)).RegisterRoutes(router)
	NewProductHandler(deps.Products, deps.Tokens, limiterFunc(deps.ScrapeLimiter)).RegisterRoutes(router)
}

func limiterFunc(rl *middleware.RateLimiter) gin.HandlerFunc {
	if rl == nil {
		return nil
	}
	return rl.RateLimitMiddleware()
}
