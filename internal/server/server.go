package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pantryscout/backend/config"
	"github.com/pantryscout/backend/internal/api"
	"github.com/pantryscout/backend/internal/database"
	"github.com/pantryscout/backend/internal/logger"
	"github.com/pantryscout/backend/internal/middleware"
	"github.com/pantryscout/backend/internal/router"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// Server represents the HTTP server
type Server struct {
	router *gin.Engine
	http   *http.Server
}

// New creates a server routing to deps
func New(cfg *config.Config, deps api.Dependencies) *Server {
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := router.SetupRouter(deps)
	return &Server{
		router: r,
		http: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// FromServices creates a server backed by the configured services
func FromServices(cfg *config.Config, s *Services) *Server {
	deps := api.Dependencies{
		Recipes:         s.Recipes,
		Products:        s.Products,
		Generator:       s.Generator,
		Tokens:          s.Tokens,
		GenerateLimiter: middleware.NewGenerateRateLimiter(s.Store, cfg.GenerateRateLimit),
		ScrapeLimiter:   middleware.NewScrapeRateLimiter(s.Store, cfg.ScrapeRateLimit),
		Checks: map[string]api.Pinger{
			"database": func(ctx context.Context) error { return database.Ping(ctx, s.DB) },
		},
	}
	// a nil *PictureService must not become a non-nil interface
	if s.Pictures != nil {
		deps.Pictures = s.Pictures
	}
	if s.Redis != nil {
		deps.Checks["redis"] = func(ctx context.Context) error { return s.Redis.Ping(ctx).Err() }
	}
	return New(cfg, deps)
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.L().Info("starting server", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to start server: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.L().Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.Stop(shutdownCtx)
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
