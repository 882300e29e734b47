// Package workflow runs named multi-step workflows over the decision
// engine and external status collaborators, with bounded parallelism,
// per-operation TTL caching, and isolated step failures.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"testpilot/internal/config"
	"testpilot/internal/coverage"
	"testpilot/internal/types"
)

// Step is one unit of work in a workflow. Steps without a predecessor
// launch concurrently; a step naming DependsOn waits for that step's
// result first. Key doubles as the cache operation name and the
// result/error map key.
type Step struct {
	Key       string
	DependsOn string
	Run       func(ctx context.Context, prior map[string]interface{}) (interface{}, error)
}

// Workflow is a named set of steps plus its aggregate-success rule.
type Workflow struct {
	Name  string
	Steps []Step

	// Tolerate decides overall success from the failure count.
	Tolerate func(failed, total int) bool
}

// Orchestrator executes workflows. The TTL cache is owned by the
// orchestrator instance; there are no package-level singletons.
type Orchestrator struct {
	cfg     *config.Config
	cache   *TTLCache
	collab  Collaborators
	history *coverage.History

	// sem bounds concurrently running steps; limiter paces outbound
	// collaborator calls.
	sem     *semaphore.Weighted
	limiter *rate.Limiter
}

// MaxConcurrentSteps bounds how many steps run at once.
const MaxConcurrentSteps = 8

// New creates an orchestrator. history may be nil when no coverage
// store is available.
func New(cfg *config.Config, collab Collaborators, history *coverage.History) *Orchestrator {
	return &Orchestrator{
		cfg:     cfg,
		cache:   NewTTLCache(cfg.Cache.TTLFor),
		collab:  collab,
		history: history,
		sem:     semaphore.NewWeighted(MaxConcurrentSteps),
		limiter: rate.NewLimiter(rate.Every(100*time.Millisecond), 10),
	}
}

// Run executes every step of the workflow and settles all outcomes:
// failures are recorded per step and never cancel siblings. Each step
// key lands in exactly one of the result or error maps.
func (o *Orchestrator) Run(ctx context.Context, wf Workflow) *types.WorkflowResult {
	start := time.Now()

	results := make(map[string]interface{})
	errs := make(map[string]string)
	var mu sync.Mutex

	done := make(map[string]chan struct{}, len(wf.Steps))
	for _, step := range wf.Steps {
		done[step.Key] = make(chan struct{})
	}

	var wg sync.WaitGroup
	for _, step := range wf.Steps {
		wg.Add(1)
		go func(st Step) {
			defer wg.Done()
			defer close(done[st.Key])

			if st.DependsOn != "" {
				if ch, ok := done[st.DependsOn]; ok {
					<-ch
				}
				mu.Lock()
				_, predecessorOK := results[st.DependsOn]
				mu.Unlock()
				if !predecessorOK {
					mu.Lock()
					errs[st.Key] = fmt.Sprintf("dependency %q failed", st.DependsOn)
					mu.Unlock()
					return
				}
			}

			value, err := o.runStep(ctx, st, &mu, results)

			mu.Lock()
			if err != nil {
				errs[st.Key] = err.Error()
			} else {
				results[st.Key] = value
			}
			mu.Unlock()
		}(step)
	}
	wg.Wait()

	total := len(wf.Steps)
	success := wf.Tolerate(len(errs), total)
	duration := time.Since(start)

	result := &types.WorkflowResult{
		RunID:    uuid.NewString(),
		Workflow: wf.Name,
		Success:  success,
		Results:  results,
		Errors:   errs,
		Duration: duration,
	}
	result.Summary = Summarize(result)

	slog.Info("workflow settled",
		"workflow", wf.Name,
		"run_id", result.RunID,
		"steps", total,
		"failed", len(errs),
		"success", success,
		"duration", duration)

	return result
}

// runStep acquires a concurrency slot, consults the TTL cache, and
// invokes the step. Panics are converted to step errors so no failure
// is silently dropped.
func (o *Orchestrator) runStep(ctx context.Context, st Step, mu *sync.Mutex, results map[string]interface{}) (value interface{}, err error) {
	if acquireErr := o.sem.Acquire(ctx, 1); acquireErr != nil {
		return nil, fmt.Errorf("acquiring step slot: %w", acquireErr)
	}
	defer o.sem.Release(1)

	defer func() {
		if r := recover(); r != nil {
			value = nil
			err = fmt.Errorf("step panicked: %v", r)
		}
	}()

	return o.cache.Do(st.Key, func() (interface{}, error) {
		if waitErr := o.limiter.Wait(ctx); waitErr != nil {
			return nil, fmt.Errorf("rate limit wait: %w", waitErr)
		}

		mu.Lock()
		prior := make(map[string]interface{}, len(results))
		for k, v := range results {
			prior[k] = v
		}
		mu.Unlock()

		return st.Run(ctx, prior)
	})
}

// Summarize renders one human-readable line from a settled result.
// Pure function of the result/error maps.
func Summarize(result *types.WorkflowResult) string {
	total := result.StepCount()
	ok := len(result.Results)

	state := "ok"
	if !result.Success {
		state = "failed"
	}

	line := fmt.Sprintf("%s %s: %d/%d steps succeeded in %s",
		result.Workflow, state, ok, total, result.Duration.Round(time.Millisecond))

	if len(result.Errors) > 0 {
		keys := make([]string, 0, len(result.Errors))
		for key := range result.Errors {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		line += " (errors: " + strings.Join(keys, ", ") + ")"
	}
	return line
}
