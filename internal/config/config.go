// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)

	// Blockchain settings
	RPCURL  string
	ChainID int64

	// Risk engine settings
	OpenAIKey   string // Enables AI-generated recommendations (optional)
	OpenAIModel string

	// Chain data collection
	CollectInterval time.Duration // How often the collector polls for new blocks
	GasCacheTTL     time.Duration // How long gas optimization results are cached

	// Observability
	OTLPEndpoint string // OTLP gRPC endpoint for traces (optional)

	// Security
	RateLimitRPM int
}

// Defaults target a public Ethereum mainnet RPC.
const (
	DefaultRPCURL          = "https://eth.llamarpc.com"
	DefaultChainID         = 1
	DefaultPort            = "8080"
	DefaultEnv             = "development"
	DefaultLogLevel        = "info"
	DefaultOpenAIModel     = "gpt-4o-mini"
	DefaultCollectInterval = 12 * time.Second
	DefaultGasCacheTTL     = 15 * time.Second
	DefaultRateLimit       = 60
)

// Load reads configuration from environment variables.
// It loads .env file if present (for local development).
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv("PORT", DefaultPort),
		Env:             getEnv("ENV", DefaultEnv),
		LogLevel:        getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:     os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		RPCURL:          getEnv("RPC_URL", DefaultRPCURL),
		ChainID:         getEnvInt64("CHAIN_ID", DefaultChainID),
		OpenAIKey:       os.Getenv("OPENAI_API_KEY"), // Optional, fallback advice without it
		OpenAIModel:     getEnv("OPENAI_MODEL", DefaultOpenAIModel),
		CollectInterval: getEnvDuration("COLLECT_INTERVAL", DefaultCollectInterval),
		GasCacheTTL:     getEnvDuration("GAS_CACHE_TTL", DefaultGasCacheTTL),
		OTLPEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		RateLimitRPM:    int(getEnvInt64("RATE_LIMIT_RPM", DefaultRateLimit)),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present
func (c *Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("RPC_URL is required")
	}
	if c.ChainID <= 0 {
		return fmt.Errorf("CHAIN_ID must be positive")
	}
	if c.CollectInterval <= 0 {
		return fmt.Errorf("COLLECT_INTERVAL must be positive")
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
