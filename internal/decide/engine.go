// Package decide turns changed files plus coverage signals into a test
// decision: which suites to run, in what order, and why.
//
// Selection is an ordered guard chain. Each guard either short-circuits
// with a full decision or falls through to the next; the final guard
// always decides.
package decide

import (
	"fmt"
	"sort"
	"strings"

	"testpilot/internal/config"
	"testpilot/internal/coverage"
	"testpilot/internal/matcher"
	"testpilot/internal/types"
)

// selection carries the inputs through the guard chain.
type selection struct {
	changes []types.FileChange
	cfg     *config.Config
	snap    *types.CoverageSnapshot
	trend   coverage.TrendDirection
}

// guard inspects the selection and either returns a decision
// (short-circuit) or nil (fall through).
type guard func(*selection) *types.TestDecision

// guards in evaluation order; the last one always decides.
var guards = []guard{
	criticalPathGuard,
	noCoverageGuard,
	signalGuard,
}

// SelectSuites evaluates the guard chain. A nil snapshot or stable
// trend are valid inputs, not errors; they steer selection toward the
// conservative branches.
func SelectSuites(changes []types.FileChange, cfg *config.Config, snap *types.CoverageSnapshot, trend coverage.TrendDirection) types.TestDecision {
	s := &selection{changes: changes, cfg: cfg, snap: snap, trend: trend}
	for _, g := range guards {
		if decision := g(s); decision != nil {
			return *decision
		}
	}
	// The signal guard always returns; this is unreachable.
	return types.TestDecision{Rationale: "no selection rule applied"}
}

// criticalPathGuard returns every enabled suite when a changed path
// matches a configured exact critical prefix or glob pattern.
func criticalPathGuard(s *selection) *types.TestDecision {
	if !touchesCriticalPath(s.changes, s.cfg.CriticalPaths) {
		return nil
	}
	return &types.TestDecision{
		Suites:    sortByPriority(dedupe(s.cfg.EnabledSuites())),
		Rationale: "critical path changed; running all enabled suites",
	}
}

// noCoverageGuard returns the raw matcher result when coverage analysis
// is disabled or no snapshot exists. Broader selection is the fallback
// policy when the signal is missing.
func noCoverageGuard(s *selection) *types.TestDecision {
	if s.cfg.Coverage.Enabled && s.snap != nil {
		return nil
	}
	matched := matcher.Match(s.changes, s.cfg.EnabledSuites())
	return &types.TestDecision{
		Suites:    sortByPriority(dedupe(matched)),
		Rationale: "coverage disabled; running all matched suites",
	}
}

// signalGuard builds the run-set from coverage signals. Always decides.
func signalGuard(s *selection) *types.TestDecision {
	matched := matcher.Match(s.changes, s.cfg.EnabledSuites())

	lowCoverage := coverage.LowCoverageFiles(s.changes, s.snap, s.cfg.Coverage.UnitThreshold)
	needsE2E := coverage.NeedsE2E(s.changes, s.snap, s.cfg.CriticalPaths.Patterns, s.cfg.Coverage.E2EThreshold)

	var run []types.TestSuiteDefinition
	var reasons []string

	if len(lowCoverage) > 0 {
		if unit := suitesOfType(matched, types.SuiteUnit); len(unit) > 0 {
			run = append(run, unit...)
			reasons = append(reasons, fmt.Sprintf("%d changed file(s) below unit coverage threshold", len(lowCoverage)))
		}
	}

	if needsE2E || s.trend == coverage.TrendDeclining {
		if e2e := suitesOfType(matched, types.SuiteE2E); len(e2e) > 0 {
			run = append(run, e2e...)
			if needsE2E {
				reasons = append(reasons, "e2e coverage signal triggered")
			}
			if s.trend == coverage.TrendDeclining {
				reasons = append(reasons, "coverage trend declining")
			}
		}
	}

	if ui := suitesOfType(matched, types.SuiteUI); len(ui) > 0 {
		run = append(run, ui...)
		reasons = append(reasons, "ui suite matched changed files")
	}

	// Comprehensive fallback: very low overall coverage unions in every
	// matched suite regardless of category. This reuses the e2e
	// threshold as a general escape hatch, preserved deliberately.
	if s.snap.Lines < s.cfg.Coverage.E2EThreshold {
		run = append(run, matched...)
		reasons = append(reasons, fmt.Sprintf("overall coverage %.1f%% below %.0f%%; running all matched suites",
			s.snap.Lines, s.cfg.Coverage.E2EThreshold))
	}

	if len(run) == 0 && len(matched) > 0 {
		run = append(run, lowestPriority(matched))
		reasons = append(reasons, "no coverage signal; running default matched suite")
	}

	if len(reasons) == 0 {
		reasons = append(reasons, "no suites matched changed files")
	}

	return &types.TestDecision{
		Suites:       sortByPriority(dedupe(run)),
		Rationale:    strings.Join(reasons, "; "),
		CoverageGaps: lowCoverage,
	}
}

// touchesCriticalPath checks exact prefixes first, then glob patterns.
func touchesCriticalPath(changes []types.FileChange, critical config.CriticalPathConfig) bool {
	for _, change := range changes {
		for _, prefix := range critical.Paths {
			if strings.HasPrefix(change.Path, prefix) {
				return true
			}
		}
	}
	return matcher.MatchesAny(changes, critical.Patterns)
}

func suitesOfType(suites []types.TestSuiteDefinition, t types.SuiteType) []types.TestSuiteDefinition {
	var out []types.TestSuiteDefinition
	for _, s := range suites {
		if s.Type == t {
			out = append(out, s)
		}
	}
	return out
}

// lowestPriority returns the suite with the smallest priority number.
func lowestPriority(suites []types.TestSuiteDefinition) types.TestSuiteDefinition {
	lowest := suites[0]
	for _, s := range suites[1:] {
		if s.Priority < lowest.Priority {
			lowest = s
		}
	}
	return lowest
}

// dedupe removes duplicate suite identities, keeping first occurrence.
// Identity is the type tag plus the test-file pattern.
func dedupe(suites []types.TestSuiteDefinition) []types.TestSuiteDefinition {
	seen := make(map[string]bool, len(suites))
	var out []types.TestSuiteDefinition
	for _, s := range suites {
		key := string(s.Type) + "\x00" + s.Pattern
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

// sortByPriority orders suites highest priority first, stably.
func sortByPriority(suites []types.TestSuiteDefinition) []types.TestSuiteDefinition {
	sort.SliceStable(suites, func(i, j int) bool {
		return suites[i].Priority > suites[j].Priority
	})
	return suites
}
