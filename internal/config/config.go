// Package config reads recipefit settings from RECIPEFIT_* environment
// variables, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/cwbudde/recipefit/internal/opt"
)

// Store backends.
const (
	StoreFS       = "fs"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Config holds all configuration for the application
type Config struct {
	// Server
	Addr string

	// Persistence
	DataDir string
	Store   string
	DSN     string

	// Optimization
	RulesPath     string
	Solver        string
	MaxIterations int

	LogLevel string
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Addr:     ":8080",
		DataDir:  "./data",
		Store:    StoreFS,
		Solver:   opt.SolverPGD,
		LogLevel: "info",
	}
}

// Load applies environment variables on top of Default. Files are loaded
// into the environment first with godotenv (no files means ".env"); missing
// files are skipped and variables already set win.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	cfg := Default()
	str(&cfg.Addr, "RECIPEFIT_ADDR")
	str(&cfg.DataDir, "RECIPEFIT_DATA_DIR")
	str(&cfg.Store, "RECIPEFIT_STORE")
	str(&cfg.DSN, "RECIPEFIT_DSN")
	str(&cfg.RulesPath, "RECIPEFIT_RULES")
	str(&cfg.Solver, "RECIPEFIT_SOLVER")
	str(&cfg.LogLevel, "RECIPEFIT_LOG_LEVEL")

	if v := os.Getenv("RECIPEFIT_MAX_ITERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, ValidationError{Field: "RECIPEFIT_MAX_ITERS", Message: fmt.Sprintf("not an integer: %q", v)}
		}
		cfg.MaxIterations = n
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func str(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks that the settings are usable together.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreFS:
		if c.DataDir == "" {
			return ValidationError{Field: "DataDir", Message: "required for the fs store"}
		}
	case StoreSQLite, StorePostgres:
		if c.DSN == "" && c.Store == StorePostgres {
			return ValidationError{Field: "DSN", Message: "required for the postgres store"}
		}
	default:
		return ValidationError{Field: "Store", Message: fmt.Sprintf("unknown backend %q", c.Store)}
	}

	switch c.Solver {
	case opt.SolverPGD, opt.SolverMayfly:
	default:
		return ValidationError{Field: "Solver", Message: fmt.Sprintf("unknown solver %q", c.Solver)}
	}

	if c.MaxIterations < 0 {
		return ValidationError{Field: "MaxIterations", Message: "must not be negative"}
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return ValidationError{Field: "LogLevel", Message: fmt.Sprintf("unknown level %q", c.LogLevel)}
	}
	return nil
}
