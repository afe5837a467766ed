package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/cwbudde/recipefit/internal/config"
	"github.com/cwbudde/recipefit/internal/fit"
	"github.com/cwbudde/recipefit/internal/store"
)

var (
	logLevel     string
	dataDir      string
	storeBackend string
	rulesPath    string

	// cfg is the effective configuration: defaults, then RECIPEFIT_*
	// environment, then explicitly set flags.
	cfg    = config.Default()
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "recipefit",
	Short: "Cost-aware recipe optimization against nutrient targets",
	Long: `recipefit chooses non-negative servings of candidate ingredients so the
resulting recipe meets a nutrient profile as closely as possible while
keeping ingredient cost low.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		if flags.Changed("log-level") {
			loaded.LogLevel = logLevel
		}
		if flags.Changed("data-dir") {
			loaded.DataDir = dataDir
		}
		if flags.Changed("store") {
			loaded.Store = storeBackend
		}
		if flags.Changed("rules") {
			loaded.RulesPath = rulesPath
		}
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("invalid flags: %w", err)
		}
		cfg = loaded

		setupLogger(cfg.LogLevel)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "./data", "Base directory for stored solutions and traces")
	rootCmd.PersistentFlags().StringVar(&storeBackend, "store", config.StoreFS, "Solution store: fs, sqlite, postgres")
	rootCmd.PersistentFlags().StringVar(&rulesPath, "rules", "", "YAML nutrient rule table overriding the built-in rules")
}

// setupLogger installs a JSON slog handler on stderr so tables on stdout
// stay clean.
func setupLogger(name string) {
	var level slog.Level
	switch name {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// loadRules returns the configured rule table, or nil for the defaults.
func loadRules() (*fit.RuleTable, error) {
	if cfg.RulesPath == "" {
		return nil, nil
	}
	rules, err := fit.LoadRules(cfg.RulesPath)
	if err != nil {
		return nil, err
	}
	slog.Debug("Loaded rule table", "path", cfg.RulesPath, "rules", len(rules.Rules))
	return rules, nil
}

// openStore opens the configured solution store. The returned function
// releases it.
func openStore() (store.Store, func(), error) {
	st, err := store.Open(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s store: %w", cfg.Store, err)
	}
	release := func() {
		if c, ok := st.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				slog.Warn("Failed to close store", "error", err)
			}
		}
	}
	return st, release, nil
}
