// Package workflow executes multi-agent workflows in sequential, parallel,
// or conditional mode.
package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	errs "github.com/p-blackswan/repo-intel/internal/errors"
	"github.com/p-blackswan/repo-intel/internal/requestid"
)

// Workflow types.
const (
	TypeSequential  = "sequential"
	TypeParallel    = "parallel"
	TypeConditional = "conditional"
)

// Task is one step of a workflow.
type Task struct {
	AgentName string         `json:"agent_name" yaml:"agent_name"`
	InputData map[string]any `json:"input_data" yaml:"input_data"`
	DependsOn []string       `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
}

// Result aggregates the outcome of a workflow run.
type Result struct {
	Results        map[string]json.RawMessage `json:"results"`
	ExecutionOrder []string                   `json:"execution_order"`
	TotalTimeMs    int64                      `json:"total_time_ms"`
}

// Invoker calls a named agent. Satisfied by *agentcall.Coordinator.
type Invoker interface {
	InvokeAgent(ctx context.Context, agentName string, payload any) (json.RawMessage, error)
}

// Engine runs workflows against an agent invoker.
type Engine struct {
	invoker Invoker
	timeout time.Duration
	logger  zerolog.Logger
	now     func() time.Time
}

// NewEngine builds an engine. timeout bounds a whole workflow run; zero
// means no engine-level deadline.
func NewEngine(invoker Invoker, timeout time.Duration, logger zerolog.Logger) *Engine {
	return &Engine{
		invoker: invoker,
		timeout: timeout,
		logger:  logger.With().Str("component", "workflow").Logger(),
		now:     time.Now,
	}
}

// Execute runs tasks under the named workflow type. The dependency graph is
// validated up front so a bad workflow fails before any agent runs.
func (e *Engine) Execute(ctx context.Context, workflowType string, tasks []Task) (*Result, error) {
	if len(tasks) == 0 {
		return nil, fmt.Errorf("%w: workflow has no tasks", errs.ErrInvalidRequest)
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	// Conditional mode skips tasks whose dependencies never produce a
	// result, so a dependency naming no task in the set is a skip, not an
	// error. Cycles are still rejected up front for every type.
	checked := tasks
	if workflowType == TypeConditional {
		checked = pruneUnknownDeps(tasks)
	}
	waves, err := dependencyWaves(checked)
	if err != nil {
		return nil, err
	}

	start := e.now()
	var (
		results map[string]json.RawMessage
		order   []string
	)

	switch workflowType {
	case TypeSequential:
		results, order, err = e.runSequential(ctx, tasks, false)
	case TypeParallel:
		results, order, err = e.runParallel(ctx, waves)
	case TypeConditional:
		results, order, err = e.runSequential(ctx, tasks, true)
	default:
		return nil, fmt.Errorf("%w: unknown workflow type: %s", errs.ErrInvalidRequest, workflowType)
	}
	if err != nil {
		return nil, err
	}

	return &Result{
		Results:        results,
		ExecutionOrder: order,
		TotalTimeMs:    e.now().Sub(start).Milliseconds(),
	}, nil
}

// execLogger attaches the request ID to a run's log lines when the
// context carries one.
func (e *Engine) execLogger(ctx context.Context) zerolog.Logger {
	if id, ok := requestid.From(ctx); ok {
		return e.logger.With().Str("request_id", id).Logger()
	}
	return e.logger
}

// runSequential executes tasks in declaration order. In conditional mode a
// task whose dependencies have not produced results is skipped instead of
// executed.
func (e *Engine) runSequential(ctx context.Context, tasks []Task, conditional bool) (map[string]json.RawMessage, []string, error) {
	log := e.execLogger(ctx)
	results := make(map[string]json.RawMessage, len(tasks))
	order := make([]string, 0, len(tasks))

	for _, task := range tasks {
		if conditional && !depsMet(task, results) {
			log.Info().Str("agent", task.AgentName).Msg("skipping task, dependencies not met")
			continue
		}

		log.Info().Str("agent", task.AgentName).Msg("executing task")
		reply, err := e.invoker.InvokeAgent(ctx, task.AgentName, resolveDeps(task, results))
		if err != nil {
			return nil, nil, fmt.Errorf("task %s: %w", task.AgentName, err)
		}
		results[task.AgentName] = reply
		order = append(order, task.AgentName)
	}
	return results, order, nil
}

// runParallel executes each dependency wave concurrently; a wave starts
// only after the previous one finished.
func (e *Engine) runParallel(ctx context.Context, waves [][]Task) (map[string]json.RawMessage, []string, error) {
	log := e.execLogger(ctx)
	results := make(map[string]json.RawMessage)
	var order []string
	var mu sync.Mutex

	for _, wave := range waves {
		g, waveCtx := errgroup.WithContext(ctx)
		for _, task := range wave {
			payload := resolveDeps(task, results)
			g.Go(func() error {
				log.Info().Str("agent", task.AgentName).Msg("executing task")
				reply, err := e.invoker.InvokeAgent(waveCtx, task.AgentName, payload)
				if err != nil {
					return fmt.Errorf("task %s: %w", task.AgentName, err)
				}
				mu.Lock()
				results[task.AgentName] = reply
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, nil, err
		}
		for _, task := range wave {
			order = append(order, task.AgentName)
		}
	}
	return results, order, nil
}

// resolveDeps merges dependency results into the task input under
// "<dep>_result" keys.
func resolveDeps(task Task, results map[string]json.RawMessage) map[string]any {
	input := make(map[string]any, len(task.InputData)+len(task.DependsOn))
	for k, v := range task.InputData {
		input[k] = v
	}
	for _, dep := range task.DependsOn {
		if r, ok := results[dep]; ok {
			input[dep+"_result"] = r
		}
	}
	return input
}

func depsMet(task Task, results map[string]json.RawMessage) bool {
	for _, dep := range task.DependsOn {
		if _, ok := results[dep]; !ok {
			return false
		}
	}
	return true
}

// pruneUnknownDeps drops dependencies that name no task in the set, so
// graph validation only considers edges that can ever resolve. The
// returned tasks are copies; the originals keep their full DependsOn for
// run-time skip decisions.
func pruneUnknownDeps(tasks []Task) []Task {
	known := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		known[t.AgentName] = true
	}

	pruned := make([]Task, len(tasks))
	for i, t := range tasks {
		var deps []string
		for _, dep := range t.DependsOn {
			if known[dep] {
				deps = append(deps, dep)
			}
		}
		t.DependsOn = deps
		pruned[i] = t
	}
	return pruned
}

// dependencyWaves groups tasks into levels where every task's dependencies
// live in earlier levels. Unresolvable graphs (cycles or references to
// tasks that do not exist) are rejected.
func dependencyWaves(tasks []Task) ([][]Task, error) {
	remaining := make([]Task, len(tasks))
	copy(remaining, tasks)
	completed := make(map[string]bool, len(tasks))

	var waves [][]Task
	for len(remaining) > 0 {
		var wave, next []Task
		for _, task := range remaining {
			ready := true
			for _, dep := range task.DependsOn {
				if !completed[dep] {
					ready = false
					break
				}
			}
			if ready {
				wave = append(wave, task)
			} else {
				next = append(next, task)
			}
		}
		if len(wave) == 0 {
			return nil, errs.ErrCircularDependency
		}
		for _, task := range wave {
			completed[task.AgentName] = true
		}
		waves = append(waves, wave)
		remaining = next
	}
	return waves, nil
}
