package matcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testpilot/internal/types"
)

func change(path string) types.FileChange {
	return types.FileChange{Path: path, Kind: types.ChangeModified, Timestamp: time.Now()}
}

func suite(st types.SuiteType, priority int, patterns ...string) types.TestSuiteDefinition {
	return types.TestSuiteDefinition{
		Type:          st,
		WatchPatterns: patterns,
		Command:       "echo",
		Priority:      priority,
		Enabled:       true,
	}
}

func TestMatch_EmptyInputs(t *testing.T) {
	assert.Empty(t, Match(nil, nil))
	assert.Empty(t, Match([]types.FileChange{change("src/a.ts")}, nil))
	assert.Empty(t, Match(nil, []types.TestSuiteDefinition{suite(types.SuiteUnit, 1, "src/**")}))
}

func TestMatch_DoublestarCrossesDirectories(t *testing.T) {
	suites := []types.TestSuiteDefinition{
		suite(types.SuiteUnit, 1, "src/**/*.ts"),
	}

	matched := Match([]types.FileChange{change("src/a/b/c/deep.ts")}, suites)
	require.Len(t, matched, 1)
	assert.Equal(t, types.SuiteUnit, matched[0].Type)
}

func TestMatch_DoublestarMatchesZeroDirectories(t *testing.T) {
	suites := []types.TestSuiteDefinition{
		suite(types.SuiteUnit, 1, "src/**/*.ts"),
	}

	matched := Match([]types.FileChange{change("src/shallow.ts")}, suites)
	require.Len(t, matched, 1)
}

func TestMatch_SingleStarStaysInSegment(t *testing.T) {
	suites := []types.TestSuiteDefinition{
		suite(types.SuiteUnit, 1, "src/*.ts"),
	}

	assert.Len(t, Match([]types.FileChange{change("src/a.ts")}, suites), 1)
	assert.Empty(t, Match([]types.FileChange{change("src/nested/a.ts")}, suites))
}

func TestMatch_Alternation(t *testing.T) {
	suites := []types.TestSuiteDefinition{
		suite(types.SuiteUnit, 1, "src/**/*.{ts,tsx}"),
	}

	assert.Len(t, Match([]types.FileChange{change("src/ui/App.tsx")}, suites), 1)
	assert.Empty(t, Match([]types.FileChange{change("src/ui/App.css")}, suites))
}

func TestMatch_Dotfiles(t *testing.T) {
	suites := []types.TestSuiteDefinition{
		suite(types.SuiteUnit, 1, ".github/**/*.yml"),
	}

	assert.Len(t, Match([]types.FileChange{change(".github/workflows/ci.yml")}, suites), 1)
}

func TestMatch_MultipleSuites(t *testing.T) {
	suites := []types.TestSuiteDefinition{
		suite(types.SuiteUnit, 1, "src/**/*.ts"),
		suite(types.SuiteE2E, 3, "cypress/**"),
		suite(types.SuiteUI, 2, "src/components/**"),
	}

	changes := []types.FileChange{change("src/components/Button.ts")}
	matched := Match(changes, suites)

	require.Len(t, matched, 2)
	assert.Equal(t, types.SuiteUnit, matched[0].Type)
	assert.Equal(t, types.SuiteUI, matched[1].Type)
}

func TestMatch_InvalidPatternSkipped(t *testing.T) {
	suites := []types.TestSuiteDefinition{
		suite(types.SuiteUnit, 1, "[unclosed", "src/**"),
	}

	// The bad pattern is ignored; the good one still matches.
	assert.Len(t, Match([]types.FileChange{change("src/a.ts")}, suites), 1)
}

func TestMatch_LeadingDotSlashNormalized(t *testing.T) {
	suites := []types.TestSuiteDefinition{
		suite(types.SuiteUnit, 1, "src/**/*.ts"),
	}

	assert.Len(t, Match([]types.FileChange{change("./src/a.ts")}, suites), 1)
}

func TestMatchesAny(t *testing.T) {
	changes := []types.FileChange{change("src/auth/login.ts")}

	assert.True(t, MatchesAny(changes, []string{"src/auth/**"}))
	assert.True(t, MatchesAny(changes, []string{"nope/**", "**/login.ts"}))
	assert.False(t, MatchesAny(changes, []string{"lib/**"}))
	assert.False(t, MatchesAny(changes, nil))
}
