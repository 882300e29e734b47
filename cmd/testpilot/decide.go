package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"testpilot/internal/coverage"
	"testpilot/internal/decide"
	"testpilot/internal/git"
	"testpilot/internal/types"
)

var decideJSON bool

var decideCmd = &cobra.Command{
	Use:   "decide [files...]",
	Short: "Select the test suites to run for changed files",
	Long: `Decide which test suites must run. With file arguments, those are the
changed files; without arguments, the working-tree changes reported by
git are used.

Examples:
  testpilot decide src/auth/login.ts
  testpilot decide            # use git status
  testpilot decide --json`,
	RunE: runDecide,
}

func init() {
	decideCmd.Flags().BoolVar(&decideJSON, "json", false, "emit the decision as JSON")
	rootCmd.AddCommand(decideCmd)
}

func runDecide(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	changes, err := resolveChanges(cmd, args)
	if err != nil {
		return err
	}

	history, closeHistory, err := openHistory(cmd, cfg)
	if err != nil {
		return err
	}
	defer closeHistory()

	snap := coverage.ParseFile(cfg.Coverage.ReportPath)
	decision := decide.SelectSuites(changes, cfg, snap, history.CurrentTrend())

	if decideJSON {
		return json.NewEncoder(os.Stdout).Encode(decision)
	}

	printDecision(&decision)
	return nil
}

func resolveChanges(cmd *cobra.Command, args []string) ([]types.FileChange, error) {
	if len(args) > 0 {
		now := time.Now()
		changes := make([]types.FileChange, len(args))
		for i, path := range args {
			changes[i] = types.FileChange{Path: path, Kind: types.ChangeModified, Timestamp: now}
		}
		return changes, nil
	}

	g, err := git.New(cmd.Context(), ".")
	if err != nil {
		return nil, err
	}
	return g.ChangedFiles(cmd.Context())
}

func printDecision(decision *types.TestDecision) {
	if len(decision.Suites) == 0 {
		color.Yellow("No suites selected")
	} else {
		color.Green("Suites to run (%d):", len(decision.Suites))
		for _, suite := range decision.Suites {
			fmt.Printf("  %-12s priority %d  %s\n", suite.Type, suite.Priority, suite.Command)
		}
	}
	fmt.Printf("Rationale: %s\n", decision.Rationale)
	if len(decision.CoverageGaps) > 0 {
		color.Yellow("Coverage gaps:")
		for _, path := range decision.CoverageGaps {
			fmt.Printf("  %s\n", path)
		}
	}
}
