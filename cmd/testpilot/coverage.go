package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"testpilot/internal/coverage"
)

var (
	coverageRecord bool
	coverageJSON   bool
)

var coverageCmd = &cobra.Command{
	Use:   "coverage [report-file]",
	Short: "Parse a coverage report and show trend and recommendations",
	Long: `Parse a coverage report (JSON summary or text table) and print overall
percentages, the trend against the recorded history, and suggestions
for the least-covered files. With --record the snapshot is appended to
the history database.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCoverage,
}

func init() {
	coverageCmd.Flags().BoolVar(&coverageRecord, "record", false, "append the snapshot to coverage history")
	coverageCmd.Flags().BoolVar(&coverageJSON, "json", false, "emit the snapshot as JSON")
	rootCmd.AddCommand(coverageCmd)
}

func runCoverage(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	reportPath := cfg.Coverage.ReportPath
	if len(args) > 0 {
		reportPath = args[0]
	}

	snap := coverage.ParseFile(reportPath)
	if snap == nil {
		return fmt.Errorf("no parseable coverage data in %s", reportPath)
	}

	history, closeHistory, err := openHistory(cmd, cfg)
	if err != nil {
		return err
	}
	defer closeHistory()

	if coverageRecord {
		if err := history.Record(cmd.Context(), snap); err != nil {
			return fmt.Errorf("recording coverage snapshot: %w", err)
		}
	}

	if coverageJSON {
		return json.NewEncoder(os.Stdout).Encode(snap)
	}

	fmt.Printf("Lines:      %.1f%%\n", snap.Lines)
	fmt.Printf("Statements: %.1f%%\n", snap.Statements)
	fmt.Printf("Functions:  %.1f%%\n", snap.Functions)
	fmt.Printf("Branches:   %.1f%%\n", snap.Branches)
	fmt.Printf("Files:      %d\n", len(snap.Files))

	trend := coverage.TrendStable
	if coverageRecord {
		trend = history.CurrentTrend()
	} else if latest := history.Latest(); latest != nil {
		trend = coverage.Trend(snap.Lines, latest.Snapshot.Lines)
	}
	switch trend {
	case coverage.TrendImproving:
		color.Green("Trend:      %s", trend)
	case coverage.TrendDeclining:
		color.Red("Trend:      %s", trend)
	default:
		fmt.Printf("Trend:      %s\n", trend)
	}

	suggestions := coverage.Recommend(snap, coverage.Thresholds{
		Unit:     cfg.Coverage.UnitThreshold,
		Branches: cfg.Coverage.UnitThreshold,
	})
	if len(suggestions) > 0 {
		fmt.Println("Recommendations:")
		for _, s := range suggestions {
			fmt.Printf("  - %s\n", s)
		}
	}
	return nil
}
