package coverage

import (
	"fmt"
	"sort"

	"testpilot/internal/matcher"
	"testpilot/internal/types"
)

// TrendDirection indicates whether coverage is improving, declining,
// or stable between two snapshots.
type TrendDirection string

const (
	TrendImproving TrendDirection = "improving"
	TrendDeclining TrendDirection = "declining"
	TrendStable    TrendDirection = "stable"
)

// Trend compares current line coverage against previous. Deltas within
// one percentage point in either direction are stable.
func Trend(current, previous float64) TrendDirection {
	delta := current - previous
	switch {
	case delta > 1:
		return TrendImproving
	case delta < -1:
		return TrendDeclining
	default:
		return TrendStable
	}
}

// LowCoverageFiles returns the changed files that are either absent
// from the snapshot (never executed under test) or below the unit
// threshold. Deleted files are ignored. Order follows the input.
func LowCoverageFiles(changes []types.FileChange, snap *types.CoverageSnapshot, unitThreshold float64) []string {
	if snap == nil {
		return nil
	}

	var flagged []string
	for _, change := range changes {
		if change.Kind == types.ChangeDeleted {
			continue
		}
		fc, ok := snap.Files[change.Path]
		if !ok || fc.Percentage < unitThreshold {
			flagged = append(flagged, change.Path)
		}
	}
	return flagged
}

// NeedsE2E reports whether end-to-end suites are warranted: a changed
// path touches a critical pattern, or overall line coverage sits below
// the e2e threshold.
func NeedsE2E(changes []types.FileChange, snap *types.CoverageSnapshot, criticalPatterns []string, e2eThreshold float64) bool {
	if matcher.MatchesAny(changes, criticalPatterns) {
		return true
	}
	return snap != nil && snap.Lines < e2eThreshold
}

// Thresholds carries the coverage targets used by Recommend.
type Thresholds struct {
	Unit     float64
	Branches float64
}

// Recommend produces ordered, human-readable suggestions for improving
// coverage. Pure function of the snapshot.
func Recommend(snap *types.CoverageSnapshot, thresholds Thresholds) []string {
	if snap == nil {
		return []string{"no coverage data recorded; run the unit suite with coverage enabled"}
	}

	var suggestions []string

	if snap.Lines < thresholds.Unit {
		suggestions = append(suggestions, fmt.Sprintf(
			"raise line coverage from %.1f%% to the %.0f%% unit threshold", snap.Lines, thresholds.Unit))
	}
	if snap.Branches < thresholds.Branches {
		suggestions = append(suggestions, fmt.Sprintf(
			"add tests for weakly covered branches (%.1f%% of branches exercised)", snap.Branches))
	}

	if worst := lowestCoveredFiles(snap, 3); len(worst) > 0 {
		line := "lowest coverage: "
		for i, f := range worst {
			if i > 0 {
				line += ", "
			}
			line += fmt.Sprintf("%s (%.1f%%)", f.path, f.pct)
		}
		if rest := len(snap.Files) - len(worst); rest > 0 {
			line += fmt.Sprintf(" and %d more", rest)
		}
		suggestions = append(suggestions, line)
	}

	return suggestions
}

type rankedFile struct {
	path string
	pct  float64
}

func lowestCoveredFiles(snap *types.CoverageSnapshot, n int) []rankedFile {
	ranked := make([]rankedFile, 0, len(snap.Files))
	for path, fc := range snap.Files {
		ranked = append(ranked, rankedFile{path: path, pct: fc.Percentage})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].pct != ranked[j].pct {
			return ranked[i].pct < ranked[j].pct
		}
		return ranked[i].path < ranked[j].path
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
