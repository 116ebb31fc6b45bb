// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir string // Base directory for the SQLite databases (always absolute)

	Port     int
	LogLevel string
	DevMode  bool

	// Market-data provider
	FinnhubAPIKey  string
	FinnhubBaseURL string // Overridable for tests; defaults to the public API
	RatePerMinute  int    // Provider quota; inter-call delay is 60000/RatePerMinute ms

	// Sync behaviour
	StalenessMinutes int    // Snapshot age after which a refresh is due
	RefreshMinutes   int    // Interval of the interactive refresh timer
	DefaultExchange  string // Exchange code gating the scheduled job

	// Currency conversion
	BaseCurrency string   // Home currency of the portfolio
	Currencies   []string // Currencies warmed by the daily FX job
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("DIVITRACK_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	// Always resolve to absolute path and ensure the directory exists
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:          absDataDir,
		Port:             getEnvAsInt("PORT", 8080),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		DevMode:          getEnvAsBool("DEV_MODE", false),
		FinnhubAPIKey:    getEnv("FINNHUB_API_KEY", ""),
		FinnhubBaseURL:   getEnv("FINNHUB_BASE_URL", "https://finnhub.io/api/v1"),
		RatePerMinute:    getEnvAsInt("PROVIDER_RATE_PER_MINUTE", 60),
		StalenessMinutes: getEnvAsInt("STALENESS_MINUTES", 5),
		RefreshMinutes:   getEnvAsInt("REFRESH_MINUTES", 5),
		DefaultExchange:  getEnv("DEFAULT_EXCHANGE", "XNYS"),
		BaseCurrency:     getEnv("BASE_CURRENCY", "USD"),
		Currencies:       getEnvAsList("CURRENCIES", "EUR,USD,GBP"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	// Provider key is optional at startup: the engine serves cached and
	// synthetic data without it, and the orchestrator rejects sync calls.
	if c.RatePerMinute <= 0 {
		return fmt.Errorf("PROVIDER_RATE_PER_MINUTE must be positive, got %d", c.RatePerMinute)
	}
	if c.StalenessMinutes <= 0 {
		return fmt.Errorf("STALENESS_MINUTES must be positive, got %d", c.StalenessMinutes)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsList(key, defaultValue string) []string {
	raw := getEnv(key, defaultValue)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
