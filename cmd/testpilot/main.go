package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"testpilot/internal/config"
	"testpilot/internal/coverage"
	"testpilot/internal/storage"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "testpilot",
	Short: "Coverage- and complexity-driven test selection",
	Long: `Testpilot decides which test suites must run for a set of changed
files, using code coverage and cyclomatic complexity as evidence, and
orchestrates the resulting validation workflows.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", ".testpilot.yml", "path to configuration file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the configured YAML file, falling back to defaults
// when it does not exist.
func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

// openHistory opens the coverage history backed by sqlite and hydrates
// it. The returned closer releases the database handle.
func openHistory(cmd *cobra.Command, cfg *config.Config) (*coverage.History, func(), error) {
	store, err := storage.Open(cfg.StoragePath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening coverage history store: %w", err)
	}

	history := coverage.NewHistory(cfg.Coverage.HistoryLimit, store)
	if err := history.Load(cmd.Context()); err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return history, func() { _ = store.Close() }, nil
}
