package types

import (
	"fmt"
	"time"
)

// ChangeKind describes what happened to a file.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeModified ChangeKind = "modified"
	ChangeDeleted  ChangeKind = "deleted"
)

// IsValid checks if the change kind is a known value.
func (k ChangeKind) IsValid() bool {
	switch k {
	case ChangeAdded, ChangeModified, ChangeDeleted:
		return true
	}
	return false
}

// FileChange represents a single observed change to a source file,
// as reported by the watcher or derived from git status.
type FileChange struct {
	Path      string     `json:"path"`
	Kind      ChangeKind `json:"kind"`
	Timestamp time.Time  `json:"timestamp"`
}

// SuiteType categorizes a test suite by what it exercises.
type SuiteType string

const (
	SuiteUnit        SuiteType = "unit"
	SuiteIntegration SuiteType = "integration"
	SuiteE2E         SuiteType = "e2e"
	SuiteUI          SuiteType = "ui"
	SuiteAPI         SuiteType = "api"
)

// IsValid checks if the suite type is a known value.
func (t SuiteType) IsValid() bool {
	switch t {
	case SuiteUnit, SuiteIntegration, SuiteE2E, SuiteUI, SuiteAPI:
		return true
	}
	return false
}

// TestSuiteDefinition describes one configured test suite: how its test
// files are named, which source files it watches, and how to invoke it.
type TestSuiteDefinition struct {
	Type          SuiteType `json:"type" yaml:"type"`
	Pattern       string    `json:"pattern" yaml:"pattern"`
	WatchPatterns []string  `json:"watch_patterns" yaml:"watch_patterns"`
	Command       string    `json:"command" yaml:"command"`
	Priority      int       `json:"priority" yaml:"priority"`
	Enabled       bool      `json:"enabled" yaml:"enabled"`
}

// Validate checks the definition for configuration mistakes that should
// fail fast rather than silently match nothing.
func (d *TestSuiteDefinition) Validate() error {
	if !d.Type.IsValid() {
		return fmt.Errorf("invalid suite type: %q", d.Type)
	}
	if len(d.WatchPatterns) == 0 {
		return fmt.Errorf("suite %q has no watch patterns", d.Type)
	}
	if d.Command == "" {
		return fmt.Errorf("suite %q has no command", d.Type)
	}
	return nil
}

// FileCoverage holds per-file coverage detail from a parsed report.
type FileCoverage struct {
	Percentage     float64 `json:"percentage"`
	UncoveredLines []int   `json:"uncovered_lines,omitempty"`
}

// CoverageSnapshot is a point-in-time view of coverage. Immutable once
// produced; callers must not mutate the Files map.
type CoverageSnapshot struct {
	Lines       float64                 `json:"lines"`
	Statements  float64                 `json:"statements"`
	Functions   float64                 `json:"functions"`
	Branches    float64                 `json:"branches"`
	Files       map[string]FileCoverage `json:"files"`
	GeneratedAt time.Time               `json:"generated_at"`
}

// TestDecision is the output of the decision engine: which suites to
// run, why, and which changed files lack coverage.
type TestDecision struct {
	Suites       []TestSuiteDefinition `json:"suites"`
	Rationale    string                `json:"rationale"`
	CoverageGaps []string              `json:"coverage_gaps,omitempty"`
}

// SuiteNames returns the suite type tags in decision order.
func (d *TestDecision) SuiteNames() []string {
	names := make([]string, len(d.Suites))
	for i, s := range d.Suites {
		names[i] = string(s.Type)
	}
	return names
}

// WorkflowResult aggregates the settled outcome of every step in a
// workflow run. A step key appears in exactly one of Results or Errors.
type WorkflowResult struct {
	RunID    string                 `json:"run_id"`
	Workflow string                 `json:"workflow"`
	Success  bool                   `json:"success"`
	Results  map[string]interface{} `json:"results"`
	Errors   map[string]string      `json:"errors,omitempty"`
	Duration time.Duration          `json:"duration"`
	Summary  string                 `json:"summary"`
}

// StepCount returns the total number of settled steps.
func (r *WorkflowResult) StepCount() int {
	return len(r.Results) + len(r.Errors)
}
