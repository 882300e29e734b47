package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"testpilot/internal/complexity"
	"testpilot/internal/coverage"
	"testpilot/internal/decide"
	"testpilot/internal/types"
)

// Workflow names accepted by Build.
const (
	SessionStart = "session-start"
	FullTestPass = "full-test-pass"
	PreCommit    = "pre-commit"
	HealthCheck  = "health-check"
)

// Names lists the workflows the orchestrator knows how to build.
func Names() []string {
	return []string{SessionStart, FullTestPass, PreCommit, HealthCheck}
}

// Build constructs a named workflow from the orchestrator's
// collaborators. Steps whose collaborator is absent are omitted rather
// than doomed to fail.
func (o *Orchestrator) Build(name string) (Workflow, error) {
	switch name {
	case SessionStart:
		return o.sessionStart(), nil
	case FullTestPass:
		return o.fullTestPass(), nil
	case PreCommit:
		return o.preCommit(), nil
	case HealthCheck:
		return o.healthCheck(), nil
	default:
		return Workflow{}, fmt.Errorf("unknown workflow %q", name)
	}
}

// sessionStart gathers a briefing: repository state, external status,
// and the current coverage picture. Informational, so it succeeds as
// long as any step does.
func (o *Orchestrator) sessionStart() Workflow {
	steps := []Step{o.repositoryStatusStep(), o.coverageLoadStep()}
	steps = append(steps, o.optionalStatusSteps()...)

	return Workflow{
		Name:  SessionStart,
		Steps: steps,
		Tolerate: func(failed, total int) bool {
			return failed < total
		},
	}
}

// fullTestPass decides over the full enabled-suite set: coverage loads
// first, then the decision step consumes its snapshot. Requires every
// step to succeed.
func (o *Orchestrator) fullTestPass() Workflow {
	return Workflow{
		Name: FullTestPass,
		Steps: []Step{
			o.repositoryStatusStep(),
			o.coverageLoadStep(),
			o.decisionStep("coverage-load"),
		},
		Tolerate: func(failed, total int) bool {
			return failed == 0
		},
	}
}

// preCommit validates the working tree before a commit: decision,
// complexity diff against HEAD, and review state. Zero errors required.
func (o *Orchestrator) preCommit() Workflow {
	steps := []Step{
		o.repositoryStatusStep(),
		o.coverageLoadStep(),
		o.decisionStep("coverage-load"),
		o.complexityCheckStep(),
	}
	if o.collab.Review != nil {
		steps = append(steps, Step{
			Key: "review-status",
			Run: func(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
				return o.collab.Review.ReviewStatus(ctx)
			},
		})
	}

	return Workflow{
		Name:  PreCommit,
		Steps: steps,
		Tolerate: func(failed, total int) bool {
			return failed == 0
		},
	}
}

// healthCheck probes every configured status collaborator. Tolerates up
// to half the checks failing.
func (o *Orchestrator) healthCheck() Workflow {
	steps := []Step{o.repositoryStatusStep()}
	steps = append(steps, o.optionalStatusSteps()...)

	return Workflow{
		Name:  HealthCheck,
		Steps: steps,
		Tolerate: func(failed, total int) bool {
			return failed*2 <= total
		},
	}
}

func (o *Orchestrator) repositoryStatusStep() Step {
	return Step{
		Key: "repository-status",
		Run: func(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
			if o.collab.Repository == nil {
				return nil, fmt.Errorf("repository collaborator not configured")
			}
			return o.collab.Repository.GetStatus(ctx)
		},
	}
}

// coverageLoadStep reads the coverage report from disk. Deliberately
// uncached: the report changes whenever tests run. A missing report is
// not a step failure; it yields a nil snapshot and conservative
// selection downstream.
func (o *Orchestrator) coverageLoadStep() Step {
	return Step{
		Key: "coverage-load",
		Run: func(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
			snap := coverage.ParseFile(o.cfg.Coverage.ReportPath)
			if snap != nil && o.history != nil {
				if err := o.history.Record(ctx, snap); err != nil {
					return nil, err
				}
			}
			return snap, nil
		},
	}
}

// decisionStep selects suites for the current changed files, consuming
// the snapshot produced by the named coverage step.
func (o *Orchestrator) decisionStep(coverageKey string) Step {
	return Step{
		Key:       "test-decision",
		DependsOn: coverageKey,
		Run: func(ctx context.Context, prior map[string]interface{}) (interface{}, error) {
			if o.collab.Changes == nil {
				return nil, fmt.Errorf("change lister not configured")
			}
			changes, err := o.collab.Changes.ChangedFiles(ctx)
			if err != nil {
				return nil, fmt.Errorf("listing changed files: %w", err)
			}

			snap, _ := prior[coverageKey].(*types.CoverageSnapshot)
			trend := coverage.TrendStable
			if o.history != nil {
				trend = o.history.CurrentTrend()
			}

			decision := decide.SelectSuites(changes, o.cfg, snap, trend)
			return &decision, nil
		},
	}
}

// complexityCheckStep diffs complexity of changed script files against
// their prior committed revision. Files without a prior revision are
// reported as unavailable, not errors.
func (o *Orchestrator) complexityCheckStep() Step {
	return Step{
		Key: "complexity-check",
		Run: func(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
			if o.collab.Changes == nil {
				return nil, fmt.Errorf("change lister not configured")
			}
			changes, err := o.collab.Changes.ChangedFiles(ctx)
			if err != nil {
				return nil, fmt.Errorf("listing changed files: %w", err)
			}

			var comparisons []*complexity.Comparison
			for _, change := range changes {
				if change.Kind == types.ChangeDeleted || !isScriptFile(change.Path) {
					continue
				}
				text, err := readWorkingCopy(change.Path)
				if err != nil {
					continue
				}
				if cmp := complexity.Compare(ctx, o.collab.Revisions, change.Path, text); cmp != nil {
					comparisons = append(comparisons, cmp)
				}
			}
			return comparisons, nil
		},
	}
}

// optionalStatusSteps returns a step per configured external status
// collaborator.
func (o *Orchestrator) optionalStatusSteps() []Step {
	var steps []Step
	if o.collab.Ticket != nil {
		steps = append(steps, Step{
			Key: "ticket-system",
			Run: func(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
				return o.collab.Ticket.TicketStatus(ctx)
			},
		})
	}
	if o.collab.Deployment != nil {
		steps = append(steps, Step{
			Key: "deployment-status",
			Run: func(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
				return o.collab.Deployment.DeploymentStatus(ctx)
			},
		})
	}
	if o.collab.Review != nil {
		steps = append(steps, Step{
			Key: "review-status",
			Run: func(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
				return o.collab.Review.ReviewStatus(ctx)
			},
		})
	}
	return steps
}

func readWorkingCopy(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func isScriptFile(path string) bool {
	switch filepath.Ext(path) {
	case ".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs":
		return true
	}
	return false
}
