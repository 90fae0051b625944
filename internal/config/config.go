package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Database (working store for drill-down and report audit)
	SQLiteDBPath string

	// AMQP (optional; empty URL disables event publishing)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Mapping rules (optional JSON file; built-in rules when empty)
	MappingRulesPath string

	// Engine
	PaymentProcessingRate float64
	MaterialityThreshold  float64
	MaxMonths             int

	// Forecast
	ForecastMonths int

	// Report cache
	CacheTTL  time.Duration
	CacheSize int
}

func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8082"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/pnlengine.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "pnlengine"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "report_ready"),

		MappingRulesPath: getEnv("MAPPING_RULES_PATH", ""),

		PaymentProcessingRate: getEnvFloat("PAYMENT_PROCESSING_RATE", 0.1765),
		MaterialityThreshold:  getEnvFloat("MATERIALITY_THRESHOLD", 10000),
		MaxMonths:             getEnvInt("MAX_MONTHS", 120),

		ForecastMonths: getEnvInt("FORECAST_MONTHS", 3),

		CacheTTL:  getEnvDuration("CACHE_TTL", 5*time.Minute),
		CacheSize: getEnvInt("CACHE_SIZE", 64),
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.MappingRulesPath != "" {
		if _, err := os.Stat(c.MappingRulesPath); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("mapping rules file does not exist: %s", c.MappingRulesPath))
		}
	}

	if c.PaymentProcessingRate <= 0 || c.PaymentProcessingRate >= 1 {
		errors = append(errors, fmt.Sprintf("invalid payment processing rate %v: must be between 0 and 1 exclusive", c.PaymentProcessingRate))
	}
	if c.MaterialityThreshold < 0 {
		errors = append(errors, fmt.Sprintf("invalid materiality threshold %v: must not be negative", c.MaterialityThreshold))
	}
	if c.MaxMonths < 1 || c.MaxMonths > 600 {
		errors = append(errors, fmt.Sprintf("invalid max months %d: must be between 1 and 600", c.MaxMonths))
	}
	if c.ForecastMonths < 1 || c.ForecastMonths > 24 {
		errors = append(errors, fmt.Sprintf("invalid forecast months %d: must be between 1 and 24", c.ForecastMonths))
	}

	if c.CacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at least 1 second", c.CacheTTL))
	}
	if c.CacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
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
