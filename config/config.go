// Package config provides configuration management for the ledger tool.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/Rhymond/go-money"
	"github.com/etnz/lotledger"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// DefaultMaxArchiveBytes bounds the archives the tool accepts.
const DefaultMaxArchiveBytes int64 = 256 << 20

// Config holds the tool configuration.
type Config struct {
	DBPath          string // SQLite database holding lots, gains and rates
	BaseCurrency    string // overrides the archive's base currency when set
	Workers         int    // 0 means GOMAXPROCS
	TieBreak        string
	IsolateDecoder  bool // decode archives in a worker process
	MaxArchiveBytes int64
	LogLevel        string
}

// Load reads configuration from environment variables, after loading a .env
// file when there is one.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		DBPath:          getEnv("LEDGER_DB_PATH", "lotledger.db"),
		BaseCurrency:    getEnv("LEDGER_BASE_CURRENCY", ""),
		Workers:         getEnvAsInt("LEDGER_WORKERS", 0),
		TieBreak:        getEnv("LEDGER_TIE_BREAK", lotledger.TieBreakInsertion.String()),
		IsolateDecoder:  getEnvAsBool("LEDGER_ISOLATE_DECODER", false),
		MaxArchiveBytes: getEnvAsInt64("LEDGER_MAX_ARCHIVE_BYTES", DefaultMaxArchiveBytes),
		LogLevel:        getEnv("LEDGER_LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every value is usable.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("LEDGER_DB_PATH must not be empty")
	}
	if c.BaseCurrency != "" && money.GetCurrency(c.BaseCurrency) == nil {
		return fmt.Errorf("LEDGER_BASE_CURRENCY: unknown currency %q", c.BaseCurrency)
	}
	if c.Workers < 0 {
		return fmt.Errorf("LEDGER_WORKERS must not be negative, got %d", c.Workers)
	}
	if _, err := lotledger.ParseTieBreak(c.TieBreak); err != nil {
		return fmt.Errorf("LEDGER_TIE_BREAK: %w", err)
	}
	if c.MaxArchiveBytes <= 0 {
		return fmt.Errorf("LEDGER_MAX_ARCHIVE_BYTES must be positive, got %d", c.MaxArchiveBytes)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LEDGER_LOG_LEVEL: %w", err)
	}
	return nil
}

// Level returns the configured log level.
func (c *Config) Level() zerolog.Level {
	l, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return l
}

// Tie returns the configured tie-break.
func (c *Config) Tie() lotledger.TieBreak {
	tb, _ := lotledger.ParseTieBreak(c.TieBreak)
	return tb
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

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
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
