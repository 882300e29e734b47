package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"testpilot/internal/complexity"
	"testpilot/internal/git"
)

var (
	complexityCompare bool
	complexityJSON    bool
)

var complexityCmd = &cobra.Command{
	Use:   "complexity <file>...",
	Short: "Score cyclomatic complexity for source files",
	Long: `Analyze one or more JavaScript/TypeScript files and report cyclomatic
complexity per function, method, and class. With --compare each file is
also diffed against its prior committed revision.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runComplexity,
}

func init() {
	complexityCmd.Flags().BoolVar(&complexityCompare, "compare", false, "compare against the prior committed revision")
	complexityCmd.Flags().BoolVar(&complexityJSON, "json", false, "emit records as JSON")
	rootCmd.AddCommand(complexityCmd)
}

type fileReport struct {
	Path       string                 `json:"path"`
	Total      int                    `json:"total"`
	Records    []complexity.Record    `json:"records"`
	Comparison *complexity.Comparison `json:"comparison,omitempty"`
}

func runComplexity(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var revisions complexity.RevisionReader
	if complexityCompare {
		g, gitErr := git.New(cmd.Context(), ".")
		if gitErr != nil {
			return gitErr
		}
		revisions = g
	}

	var reports []fileReport
	for _, path := range args {
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			// Unreadable source is fatal, not a policy default.
			return fmt.Errorf("reading %s: %w", path, readErr)
		}

		source := string(data)
		records := complexity.Analyze(source)
		report := fileReport{
			Path:    path,
			Total:   complexity.FileTotal(records),
			Records: records,
		}
		if revisions != nil {
			report.Comparison = complexity.Compare(cmd.Context(), revisions, path, source)
		}
		reports = append(reports, report)
	}

	if complexityJSON {
		return json.NewEncoder(os.Stdout).Encode(reports)
	}

	for _, report := range reports {
		printFileReport(&report, cfg.Complexity.WarningThreshold, cfg.Complexity.ErrorThreshold)
	}
	return nil
}

func printFileReport(report *fileReport, warn, errThreshold int) {
	fmt.Printf("%s (total %d)\n", report.Path, report.Total)
	for _, rec := range report.Records {
		printRecord(rec, 1, warn, errThreshold)
	}

	if report.Comparison != nil {
		cmp := report.Comparison
		arrow := "="
		if cmp.Increased {
			arrow = "+"
		} else if cmp.Delta < 0 {
			arrow = "-"
		}
		fmt.Printf("  vs HEAD: %d -> %d (%s%d, %.1f%%)\n",
			cmp.Previous, cmp.Current, arrow, abs(cmp.Delta), cmp.PercentDelta)
	}
}

func printRecord(rec complexity.Record, depth, warn, errThreshold int) {
	indent := strings.Repeat("  ", depth)
	line := fmt.Sprintf("%s%-8s %-24s %d", indent, rec.Kind, rec.Name, rec.Score)

	switch complexity.Classify(rec.Score, warn, errThreshold) {
	case complexity.LevelViolation:
		color.Red("%s", line)
	case complexity.LevelWarning:
		color.Yellow("%s", line)
	default:
		fmt.Println(line)
	}

	for _, child := range rec.Children {
		printRecord(child, depth+1, warn, errThreshold)
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
