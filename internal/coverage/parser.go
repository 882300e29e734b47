// Package coverage parses coverage reports, maintains a bounded
// history of snapshots, and derives selection signals from them.
//
// Absence of coverage data is never an error here: parsing failures
// yield nil snapshots and callers fall back to broader test selection.
package coverage

import (
	"encoding/json"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"testpilot/internal/types"
)

// metricBlock is one lines/statements/functions/branches entry in the
// JSON summary shape emitted by coverage tools.
type metricBlock struct {
	Total   int     `json:"total"`
	Covered int     `json:"covered"`
	Skipped int     `json:"skipped"`
	Pct     float64 `json:"pct"`
}

type fileSummary struct {
	Lines      metricBlock `json:"lines"`
	Statements metricBlock `json:"statements"`
	Functions  metricBlock `json:"functions"`
	Branches   metricBlock `json:"branches"`
}

// Parse converts a raw coverage report into a snapshot. It accepts the
// structured JSON summary shape (per-file total/covered/pct blocks plus
// a "total" aggregate key) or textual tool output with per-file
// percentage rows. Unparseable input returns nil, never an error.
func Parse(raw []byte) *types.CoverageSnapshot {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil
	}

	if snap := parseJSONSummary(raw); snap != nil {
		return snap
	}
	return parseTextReport(string(raw))
}

// ParseFile reads and parses a coverage report from disk. A missing or
// unreadable file yields nil.
func ParseFile(path string) *types.CoverageSnapshot {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Debug("coverage report not readable", "path", path, "error", err)
		return nil
	}
	return Parse(data)
}

func parseJSONSummary(raw []byte) *types.CoverageSnapshot {
	var summary map[string]fileSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return nil
	}

	total, ok := summary["total"]
	if !ok {
		return nil
	}

	snap := &types.CoverageSnapshot{
		Lines:       clampPct(total.Lines.Pct),
		Statements:  clampPct(total.Statements.Pct),
		Functions:   clampPct(total.Functions.Pct),
		Branches:    clampPct(total.Branches.Pct),
		Files:       make(map[string]types.FileCoverage),
		GeneratedAt: time.Now(),
	}

	for path, fs := range summary {
		if path == "total" {
			continue
		}
		snap.Files[path] = types.FileCoverage{
			Percentage: clampPct(fs.Lines.Pct),
		}
	}

	return snap
}

// parseTextReport handles tabular tool output: rows of the form
//
//	src/calc.ts  |  85.2 |  70.1 |  80.0 |  85.2 | 12,18-22
//
// with an "All files" row carrying the aggregate percentages. Returns
// nil when no file rows are found.
func parseTextReport(text string) *types.CoverageSnapshot {
	snap := &types.CoverageSnapshot{
		Files:       make(map[string]types.FileCoverage),
		GeneratedAt: time.Now(),
	}
	foundAny := false

	for _, line := range strings.Split(text, "\n") {
		if !strings.Contains(line, "|") {
			continue
		}
		cols := strings.Split(line, "|")
		if len(cols) < 2 {
			continue
		}

		name := strings.TrimSpace(cols[0])
		if name == "" || name == "File" || strings.HasPrefix(name, "---") {
			continue
		}

		pcts := parsePercentColumns(cols[1:])
		if len(pcts) == 0 {
			continue
		}

		if name == "All files" {
			// Column order: statements, branches, functions, lines.
			snap.Statements = pcts[0]
			if len(pcts) > 1 {
				snap.Branches = pcts[1]
			}
			if len(pcts) > 2 {
				snap.Functions = pcts[2]
			}
			if len(pcts) > 3 {
				snap.Lines = pcts[3]
			} else {
				snap.Lines = pcts[0]
			}
			foundAny = true
			continue
		}

		fc := types.FileCoverage{Percentage: pcts[0]}
		if len(pcts) > 3 {
			fc.Percentage = pcts[3]
		}
		// The uncovered-lines column only exists after all four
		// percentage columns.
		if len(cols) >= 6 {
			if uncovered := parseUncoveredLines(cols[len(cols)-1]); len(uncovered) > 0 {
				fc.UncoveredLines = uncovered
			}
		}
		snap.Files[name] = fc
		foundAny = true
	}

	if !foundAny {
		return nil
	}
	return snap
}

// parsePercentColumns extracts the leading run of numeric columns.
func parsePercentColumns(cols []string) []float64 {
	var pcts []float64
	for _, col := range cols {
		v, err := strconv.ParseFloat(strings.TrimSpace(col), 64)
		if err != nil {
			break
		}
		pcts = append(pcts, clampPct(v))
	}
	return pcts
}

// parseUncoveredLines parses the trailing "12,18-22" style column into
// individual line numbers.
func parseUncoveredLines(col string) []int {
	var lines []int
	for _, part := range strings.Split(strings.TrimSpace(col), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			start, err1 := strconv.Atoi(lo)
			end, err2 := strconv.Atoi(hi)
			if err1 != nil || err2 != nil || end < start {
				continue
			}
			for n := start; n <= end; n++ {
				lines = append(lines, n)
			}
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			continue
		}
		lines = append(lines, n)
	}
	return lines
}

func clampPct(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
