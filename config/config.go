package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	ServerPort string
	ServerHost string

	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	// Directory holding the SQL migration files
	MigrationsDir string

	// Redis configuration
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	RedisURL      string

	// JWT configuration for service tokens
	JWTSecret string

	// Gemini configuration
	GeminiAPIKey    string
	GeminiBaseURL   string
	GeminiModel     string
	GeminiLiteModel string
	LLMMaxElapsed   time.Duration

	// Kroger configuration
	KrogerClientID     string
	KrogerClientSecret string
	KrogerBaseURL      string

	// Target configuration
	TargetBaseURL string
	TargetAPIKey  string
	TargetStoreID string

	// Recipe site used by the recipe generator
	RecipeSiteURL string

	// Refinement pipeline
	RefineConcurrency int
	RelevantProducts  int
	RefineCacheTTL    time.Duration

	// Rate limiting for the expensive endpoints, requests per hour per client
	GenerateRateLimit int
	ScrapeRateLimit   int

	// S3 bucket for recipe pictures; picture endpoints are disabled when empty
	S3BucketName string
	AWSRegion    string
}

// LoadConfig creates a new Config instance with values from environment variables or secrets
func LoadConfig() (*Config, error) {
	env := GetEnvironment()
	cfg := &Config{}

	switch env {
	case CI:
		// CI never mounts secrets; everything comes from the job environment
		loadFromEnv(cfg, os.Getenv)
	case Development, Test, Production:
		loadFromEnv(cfg, lookup)
	default:
		return nil, fmt.Errorf("unknown environment: %s", env)
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadFromEnv(cfg *Config, get func(string) string) {
	str := func(name, def string) string {
		if v := get(name); v != "" {
			return v
		}
		return def
	}
	num := func(name string, def int) int {
		if v, err := strconv.Atoi(get(name)); err == nil {
			return v
		}
		return def
	}
	dur := func(name string, def time.Duration) time.Duration {
		if v, err := time.ParseDuration(get(name)); err == nil {
			return v
		}
		return def
	}

	cfg.ServerPort = str("SERVER_PORT", "8000")
	cfg.ServerHost = str("SERVER_HOST", "0.0.0.0")

	cfg.DBHost = str("DB_HOST", "localhost")
	cfg.DBPort = str("DB_PORT", "5432")
	cfg.DBUser = str("DB_USER", "postgres")
	cfg.DBPassword = get("DB_PASSWORD")
	cfg.DBName = str("DB_NAME", "pantryscout")
	cfg.DBSSLMode = str("DB_SSL_MODE", "disable")
	cfg.MigrationsDir = str("MIGRATIONS_DIR", "migrations")

	cfg.RedisHost = str("REDIS_HOST", "localhost")
	cfg.RedisPort = str("REDIS_PORT", "6379")
	cfg.RedisPassword = get("REDIS_PASSWORD")
	cfg.RedisDB = num("REDIS_DB", 0)
	cfg.RedisURL = get("REDIS_URL")

	cfg.JWTSecret = get("JWT_SECRET")

	cfg.GeminiAPIKey = get("GEMINI_API_KEY")
	cfg.GeminiBaseURL = str("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta")
	cfg.GeminiModel = str("GEMINI_MODEL", "gemini-2.0-flash")
	cfg.GeminiLiteModel = str("GEMINI_LITE_MODEL", "gemini-2.0-flash-lite")
	cfg.LLMMaxElapsed = dur("LLM_MAX_ELAPSED", 30*time.Second)

	cfg.KrogerClientID = get("KROGER_CLIENT_ID")
	cfg.KrogerClientSecret = get("KROGER_CLIENT_SECRET")
	cfg.KrogerBaseURL = str("KROGER_BASE_URL", "https://api.kroger.com/v1")

	cfg.TargetBaseURL = str("TARGET_BASE_URL", "https://redsky.target.com/redsky_aggregations/v1/web/plp_search_v2")
	cfg.TargetAPIKey = str("TARGET_API_KEY", "9f36aeafbe60771e321a7cc95a78140772ab3e96")
	cfg.TargetStoreID = str("TARGET_STORE_ID", "3309")

	cfg.RecipeSiteURL = str("RECIPE_SITE_URL", "https://www.allrecipes.com")

	cfg.RefineConcurrency = num("REFINE_CONCURRENCY", 4)
	cfg.RelevantProducts = num("RELEVANT_PRODUCTS", 5)
	cfg.RefineCacheTTL = dur("REFINE_CACHE_TTL", 24*time.Hour)

	cfg.GenerateRateLimit = num("GENERATE_RATE_LIMIT", 20)
	cfg.ScrapeRateLimit = num("SCRAPE_RATE_LIMIT", 10)

	cfg.S3BucketName = get("S3_BUCKET_NAME")
	cfg.AWSRegion = str("AWS_REGION", "us-east-2")
}

// DSN returns the Postgres connection string for the configured database
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

// Addr returns the listen address of the HTTP server
func (c *Config) Addr() string {
	return c.ServerHost + ":" + c.ServerPort
}

// lookup prefers the process environment and falls back to a Docker secret
// named after the lower-cased variable.
func lookup(name string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return readSecret(strings.ToLower(name))
}

// readSecret reads a Docker secret from the secrets directory
func readSecret(name string) string {
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	if data, err := os.ReadFile(filepath.Join(secretsDir, name)); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}
