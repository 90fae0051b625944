// Package cli provides common initialization utilities shared by
// cmd/pnlengine, cmd/pnlengine-worker and cmd/pnlcli.
package cli

import (
	"os"

	"github.com/joho/godotenv"

	"pnlengine/internal/config"
	"pnlengine/internal/log"
	"pnlengine/internal/mapping"
	"pnlengine/internal/storage"
)

// SetupLogger initializes structured logging and installs it as default.
func SetupLogger(component string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Component = component
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// InitSQLite initializes a SQLite repository with the given path.
// Returns the repository or exits the process on failure.
func InitSQLite(logger *log.Logger, dbPath string) *storage.SQLiteRepository {
	sqliteRepo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", dbPath)
		os.Exit(1)
	}
	return sqliteRepo
}

// InitMatcher builds the rule matcher from the configured rule file, or the
// built-in rules when no file is configured. Exits on an unreadable file.
func InitMatcher(logger *log.Logger, rulesPath string) *mapping.Matcher {
	rules := mapping.DefaultRules()
	if rulesPath != "" {
		loaded, err := mapping.LoadRules(rulesPath)
		if err != nil {
			logger.Error("Failed to load mapping rules", log.FieldError, err, "path", rulesPath)
			os.Exit(1)
		}
		rules = loaded
		logger.Info("Loaded mapping rules", "path", rulesPath, "rules", len(rules))
	}
	return mapping.NewMatcher(rules, logger.Logger)
}
