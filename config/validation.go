package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// requiredSecrets lists the values that must be present per environment.
// Development runs without upstream credentials; the affected features report
// a configuration error when used instead of blocking startup.
var requiredSecrets = map[Environment][]string{
	Development: {},
	Test:        {},
	CI:          {"DB_PASSWORD", "JWT_SECRET"},
	Production:  {"DB_PASSWORD", "JWT_SECRET", "GEMINI_API_KEY", "KROGER_CLIENT_ID", "KROGER_CLIENT_SECRET"},
}

// ValidateConfig checks if the configuration meets the requirements for the current environment
func ValidateConfig(cfg *Config) error {
	var problems []string

	values := map[string]string{
		"DB_PASSWORD":          cfg.DBPassword,
		"JWT_SECRET":           cfg.JWTSecret,
		"GEMINI_API_KEY":       cfg.GeminiAPIKey,
		"KROGER_CLIENT_ID":     cfg.KrogerClientID,
		"KROGER_CLIENT_SECRET": cfg.KrogerClientSecret,
	}
	for _, name := range requiredSecrets[GetEnvironment()] {
		if values[name] == "" {
			problems = append(problems, ValidationError{Field: name, Message: "is required"}.Error())
		}
	}

	if cfg.ServerPort == "" {
		problems = append(problems, ValidationError{Field: "SERVER_PORT", Message: "must not be empty"}.Error())
	}
	if cfg.RefineConcurrency < 1 {
		problems = append(problems, ValidationError{Field: "REFINE_CONCURRENCY", Message: "must be at least 1"}.Error())
	}
	if cfg.RelevantProducts < 1 {
		problems = append(problems, ValidationError{Field: "RELEVANT_PRODUCTS", Message: "must be at least 1"}.Error())
	}
	if cfg.LLMMaxElapsed <= 0 {
		problems = append(problems, ValidationError{Field: "LLM_MAX_ELAPSED", Message: "must be positive"}.Error())
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(problems, "\n"))
	}

	return nil
}
