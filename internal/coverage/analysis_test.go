package coverage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testpilot/internal/types"
)

func TestTrend(t *testing.T) {
	tests := []struct {
		name     string
		current  float64
		previous float64
		expected TrendDirection
	}{
		{name: "clear improvement", current: 85.0, previous: 80.0, expected: TrendImproving},
		{name: "clear decline", current: 70.0, previous: 80.0, expected: TrendDeclining},
		{name: "unchanged", current: 80.0, previous: 80.0, expected: TrendStable},
		{name: "exactly +1 is stable", current: 81.0, previous: 80.0, expected: TrendStable},
		{name: "exactly -1 is stable", current: 79.0, previous: 80.0, expected: TrendStable},
		{name: "just over +1", current: 81.01, previous: 80.0, expected: TrendImproving},
		{name: "just under -1", current: 78.99, previous: 80.0, expected: TrendDeclining},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Trend(tt.current, tt.previous))
		})
	}
}

func TestLowCoverageFiles(t *testing.T) {
	snap := &types.CoverageSnapshot{
		Files: map[string]types.FileCoverage{
			"src/calc.ts": {Percentage: 35.0},
			"src/util.ts": {Percentage: 96.7},
		},
	}
	changes := []types.FileChange{
		{Path: "src/calc.ts", Kind: types.ChangeModified},
		{Path: "src/util.ts", Kind: types.ChangeModified},
		{Path: "src/new.ts", Kind: types.ChangeAdded},
		{Path: "src/old.ts", Kind: types.ChangeDeleted},
	}

	flagged := LowCoverageFiles(changes, snap, 80.0)

	// calc.ts is below threshold, new.ts is absent from the snapshot,
	// old.ts is deleted and skipped.
	assert.Equal(t, []string{"src/calc.ts", "src/new.ts"}, flagged)
}

func TestLowCoverageFilesNilSnapshot(t *testing.T) {
	changes := []types.FileChange{{Path: "src/a.ts", Kind: types.ChangeModified}}
	assert.Nil(t, LowCoverageFiles(changes, nil, 80.0))
}

func TestNeedsE2E(t *testing.T) {
	healthy := &types.CoverageSnapshot{Lines: 90.0}
	weak := &types.CoverageSnapshot{Lines: 40.0}
	patterns := []string{"src/payments/**"}

	tests := []struct {
		name     string
		changes  []types.FileChange
		snap     *types.CoverageSnapshot
		expected bool
	}{
		{
			name:     "critical pattern hit",
			changes:  []types.FileChange{{Path: "src/payments/charge.ts", Kind: types.ChangeModified}},
			snap:     healthy,
			expected: true,
		},
		{
			name:     "low overall coverage",
			changes:  []types.FileChange{{Path: "src/util.ts", Kind: types.ChangeModified}},
			snap:     weak,
			expected: true,
		},
		{
			name:     "healthy and uncritical",
			changes:  []types.FileChange{{Path: "src/util.ts", Kind: types.ChangeModified}},
			snap:     healthy,
			expected: false,
		},
		{
			name:     "nil snapshot without critical hit",
			changes:  []types.FileChange{{Path: "src/util.ts", Kind: types.ChangeModified}},
			snap:     nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NeedsE2E(tt.changes, tt.snap, patterns, 60.0))
		})
	}
}

func TestRecommendNilSnapshot(t *testing.T) {
	suggestions := Recommend(nil, Thresholds{Unit: 80, Branches: 70})
	require.Len(t, suggestions, 1)
	assert.Contains(t, suggestions[0], "no coverage data")
}

func TestRecommend(t *testing.T) {
	snap := &types.CoverageSnapshot{
		Lines:    62.0,
		Branches: 55.0,
		Files: map[string]types.FileCoverage{
			"src/a.ts": {Percentage: 10.0},
			"src/b.ts": {Percentage: 20.0},
			"src/c.ts": {Percentage: 30.0},
			"src/d.ts": {Percentage: 95.0},
			"src/e.ts": {Percentage: 99.0},
		},
	}

	suggestions := Recommend(snap, Thresholds{Unit: 80, Branches: 70})
	require.Len(t, suggestions, 3)
	assert.Contains(t, suggestions[0], "62.0%")
	assert.Contains(t, suggestions[1], "branches")
	assert.Contains(t, suggestions[2], "src/a.ts (10.0%)")
	assert.Contains(t, suggestions[2], "and 2 more")
	assert.NotContains(t, suggestions[2], "src/d.ts")
}

func TestRecommendHealthySnapshot(t *testing.T) {
	snap := &types.CoverageSnapshot{
		Lines:    95.0,
		Branches: 90.0,
		Files: map[string]types.FileCoverage{
			"src/a.ts": {Percentage: 95.0},
		},
	}

	suggestions := Recommend(snap, Thresholds{Unit: 80, Branches: 70})
	// Only the lowest-coverage listing remains.
	require.Len(t, suggestions, 1)
	assert.Contains(t, suggestions[0], "lowest coverage")
}
