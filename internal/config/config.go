package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the application configuration, resolved once at startup and
// passed by reference into the components that need it.
type Config struct {
	// Azure OpenAI configuration
	Endpoint       string
	APIKey         string
	APIVersion     string
	DeploymentName string
	ClientID       string

	// Analysis tunables
	MaxTokens   int
	Temperature float64
	MaxAttempts int
	SendSize    int // max long side sent to the model (px), 0 = original

	// Server configuration
	ServerPort    string
	MaxUploadSize int64 // per-file upload limit in bytes
}

// Load resolves configuration from the environment, reading a .env file
// first when one is present.
func Load() *Config {
	// Missing .env is fine, real environments set variables directly
	_ = godotenv.Load()

	return &Config{
		Endpoint:       getEnv("AZURE_OPENAI_ENDPOINT", ""),
		APIKey:         getEnv("AZURE_OPENAI_API_KEY", ""),
		APIVersion:     getEnv("AZURE_OPENAI_API_VERSION", "2024-12-01-preview"),
		DeploymentName: getEnv("AZURE_OPENAI_DEPLOYMENT_NAME", "gpt-4o"),
		ClientID:       getEnv("AZURE_CLIENT_ID", ""),

		MaxTokens:   getIntEnv("DESCRIBER_MAX_TOKENS", 1000),
		Temperature: getFloatEnv("DESCRIBER_TEMPERATURE", 0.1),
		MaxAttempts: getIntEnv("DESCRIBER_MAX_ATTEMPTS", 3),
		SendSize:    getIntEnv("DESCRIBER_SEND_SIZE", 0),

		ServerPort:    getEnv("SERVER_PORT", "8080"),
		MaxUploadSize: int64(getIntEnv("MAX_UPLOAD_SIZE_MB", 20)) << 20,
	}
}

// Validate checks that the configuration can support the chosen
// authentication method. The useAPIKey flag mirrors the CLI switch: key-based
// auth needs both endpoint and key, token-based auth only the endpoint.
func (c *Config) Validate(useAPIKey bool) error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return fmt.Errorf("AZURE_OPENAI_ENDPOINT environment variable is required")
	}
	if useAPIKey && strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("AZURE_OPENAI_API_KEY environment variable is required for API key authentication")
	}
	if c.MaxTokens < 1 {
		return fmt.Errorf("max tokens must be positive")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getFloatEnv(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
