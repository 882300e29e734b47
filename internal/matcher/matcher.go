// Package matcher maps changed source files to the test suites that
// watch them.
package matcher

import (
	"strings"

	"github.com/gobwas/glob"

	"testpilot/internal/types"
)

// Match returns every suite with at least one watch pattern satisfied
// by at least one changed path. It is a pure function: empty input
// yields an empty result and invalid patterns are skipped rather than
// surfaced as errors.
func Match(changes []types.FileChange, suites []types.TestSuiteDefinition) []types.TestSuiteDefinition {
	if len(changes) == 0 || len(suites) == 0 {
		return nil
	}

	var matched []types.TestSuiteDefinition
	for _, suite := range suites {
		if suiteMatches(changes, suite) {
			matched = append(matched, suite)
		}
	}
	return matched
}

func suiteMatches(changes []types.FileChange, suite types.TestSuiteDefinition) bool {
	for _, pattern := range suite.WatchPatterns {
		if PathMatches(changes, pattern) {
			return true
		}
	}
	return false
}

// MatchesAny reports whether any changed path satisfies any of the
// given glob patterns. Used for critical-path pattern checks.
func MatchesAny(changes []types.FileChange, patterns []string) bool {
	for _, pattern := range patterns {
		if PathMatches(changes, pattern) {
			return true
		}
	}
	return false
}

// PathMatches reports whether any changed path satisfies the pattern.
// Invalid patterns match nothing.
func PathMatches(changes []types.FileChange, pattern string) bool {
	globs := compileAll(pattern)
	if len(globs) == 0 {
		return false
	}
	for _, change := range changes {
		path := normalize(change.Path)
		for _, g := range globs {
			if g.Match(path) {
				return true
			}
		}
	}
	return false
}

// compileAll compiles a pattern into one or more globs. Patterns are
// compiled with '/' as separator so '*' stays within a path segment and
// '**' crosses directory boundaries. Each "**/" segment also has to
// match zero directories ("src/**/*.ts" must match "src/a.ts"), which
// the glob library does not do on its own, so a variant with that
// segment collapsed is compiled alongside the original.
func compileAll(pattern string) []glob.Glob {
	var globs []glob.Glob
	for _, variant := range expandDoublestar(pattern) {
		if g, err := glob.Compile(variant, '/'); err == nil {
			globs = append(globs, g)
		}
	}
	return globs
}

// expandDoublestar returns the pattern plus variants with each "**/"
// collapsed, covering the zero-directory case.
func expandDoublestar(pattern string) []string {
	variants := []string{pattern}
	seen := map[string]bool{pattern: true}

	for i := 0; i < len(variants); i++ {
		p := variants[i]
		for _, collapsed := range []string{
			strings.Replace(p, "/**/", "/", 1),
			strings.TrimPrefix(p, "**/"),
		} {
			if !seen[collapsed] {
				seen[collapsed] = true
				variants = append(variants, collapsed)
			}
		}
	}
	return variants
}

// normalize strips a leading "./" so relative paths and watcher output
// match the same patterns.
func normalize(path string) string {
	return strings.TrimPrefix(path, "./")
}
