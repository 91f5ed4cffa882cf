package server

import (
	"context"
	"fmt"

	"github.com/pantryscout/backend/config"
	"github.com/pantryscout/backend/internal/cache"
	"github.com/pantryscout/backend/internal/database"
	"github.com/pantryscout/backend/internal/llm"
	"github.com/pantryscout/backend/internal/logger"
	"github.com/pantryscout/backend/internal/retailer"
	"github.com/pantryscout/backend/internal/scraper"
	"github.com/pantryscout/backend/internal/service"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Services holds every long-lived dependency built from the configuration
type Services struct {
	DB        *gorm.DB
	Redis     *redis.Client
	Store     cache.Store
	Recipes   *service.RecipeService
	Products  *service.ProductService
	Generator *service.RecipeGenerator
	Pictures  *service.PictureService
	Tokens    *service.TokenService
}

// NewServices connects to Postgres and Redis, applies migrations and builds
// the services. Redis is optional: without it an in-process store is used.
func NewServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.RunMigrations(db, cfg.MigrationsDir); err != nil {
		return nil, err
	}

	s := &Services{DB: db}
	s.Redis, s.Store = NewStore(cfg)

	if err := s.build(ctx, cfg); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// NewStore connects to Redis, falling back to an in-process store
func NewStore(cfg *config.Config) (*redis.Client, cache.Store) {
	client, err := database.NewRedisClient(cfg)
	if err != nil {
		logger.L().Warn("redis unavailable, using in-memory cache", zap.Error(err))
		return nil, cache.NewMemory()
	}
	return client, cache.NewRedisStore(client, "pantryscout")
}

func (s *Services) build(ctx context.Context, cfg *config.Config) error {
	s.Products = service.NewProductService(s.DB, NewRefiner(cfg, s.Store), Providers(cfg, s.Store)...)

	generator, err := NewGenerator(cfg)
	if err != nil {
		return err
	}
	s.Generator = generator

	s.Recipes = service.NewRecipeService(s.DB)
	s.Tokens = service.NewTokenService(cfg.JWTSecret)
	if cfg.JWTSecret == "" {
		logger.L().Warn("JWT_SECRET is empty, protected endpoints reject every token")
	}

	if cfg.S3BucketName != "" {
		s3cfg, err := config.NewS3Config(ctx, cfg)
		if err != nil {
			logger.L().Warn("picture storage disabled", zap.Error(err))
		} else {
			s.Pictures = service.NewS3PictureService(s3cfg, s.Recipes)
		}
	}
	return nil
}

// NewGemini creates a Gemini client for one model
func NewGemini(cfg *config.Config, model string) *llm.Gemini {
	return llm.NewGemini(llm.Config{
		APIKey:     cfg.GeminiAPIKey,
		BaseURL:    cfg.GeminiBaseURL,
		Model:      model,
		MaxElapsed: cfg.LLMMaxElapsed,
	})
}

// NewRefiner creates the product refinement pipeline on the main model
func NewRefiner(cfg *config.Config, store cache.Store) *service.Refiner {
	return service.NewRefiner(NewGemini(cfg, cfg.GeminiModel), store, service.RefinerConfig{
		Relevant:    cfg.RelevantProducts,
		Concurrency: cfg.RefineConcurrency,
		CacheTTL:    cfg.RefineCacheTTL,
	})
}

// NewGenerator creates the recipe generator. Query rewriting uses the lite model.
func NewGenerator(cfg *config.Config) (*service.RecipeGenerator, error) {
	site, err := scraper.New(scraper.Config{SiteURL: cfg.RecipeSiteURL})
	if err != nil {
		return nil, fmt.Errorf("failed to create recipe scraper: %w", err)
	}
	main := NewGemini(cfg, cfg.GeminiModel)
	rewriter := main.WithModel(cfg.GeminiLiteModel)
	logger.L().Debug("recipe generator models",
		zap.String("model", main.Model()), zap.String("rewrite_model", rewriter.Model()))
	return service.NewRecipeGenerator(main, rewriter, site), nil
}

// Providers builds the retailer clients in the order their results are reported
func Providers(cfg *config.Config, store cache.Store) []retailer.Provider {
	return []retailer.Provider{
		retailer.NewTarget(retailer.TargetConfig{
			BaseURL: cfg.TargetBaseURL,
			APIKey:  cfg.TargetAPIKey,
			StoreID: cfg.TargetStoreID,
		}),
		retailer.NewKroger(retailer.KrogerConfig{
			BaseURL:      cfg.KrogerBaseURL,
			ClientID:     cfg.KrogerClientID,
			ClientSecret: cfg.KrogerClientSecret,
			Cache:        store,
		}),
	}
}

// Close releases the database and Redis connections
func (s *Services) Close() {
	if s.Redis != nil {
		_ = s.Redis.Close()
	}
	if s.DB != nil {
		if sqlDB, err := s.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
