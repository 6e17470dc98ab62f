// Package preflight runs named prerequisite checks before a workflow's
// first step, with dependency-respecting concurrency and an
// expr-lang/expr evaluator for boolean gate expressions over prior
// check results (e.g. "checks.lint.success and checks.typecheck.success").
// This is a deliberately different, smaller grammar than the
// `${{ ... }}` template engine in pkg/workflow/expression — no Python
// ternary, no item/index references — so the two are not unified.
package preflight

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/windlass-dev/windlass/pkg/runner"
)

// DefaultTimeout is the per-check deadline when Check.TimeoutSec is
// unset.
const DefaultTimeout = 5 * time.Second

// Check is one named prerequisite check.
type Check struct {
	Name       string
	Command    []string
	DependsOn  []string
	TimeoutSec int
	// Gate is an optional expr-lang boolean expression over prior
	// check results (e.g. "checks.lint.success"); when empty the check
	// runs unconditionally once its DependsOn checks have all passed.
	Gate string
}

// Result is the outcome of one check.
type Result struct {
	Name       string
	Success    bool
	Output     string
	Error      string
	Skipped    bool
	SkipReason string
}

// Runner executes a set of Checks respecting DependsOn edges.
type Runner struct {
	subprocess *runner.Runner
	cache      map[string]*vm.Program
	mu         sync.Mutex
}

// New returns a Runner backed by the given subprocess runner (or a
// default one if nil).
func New(subprocess *runner.Runner) *Runner {
	if subprocess == nil {
		subprocess = runner.New()
	}
	return &Runner{subprocess: subprocess, cache: make(map[string]*vm.Program)}
}

// Run executes checks concurrently, respecting DependsOn: a check only
// starts once every check it depends on has completed. A failed
// dependency skips all transitive dependents with
// `"skipped because %s failed"`. The overall stage fails iff any
// non-skipped check fails.
func (r *Runner) Run(ctx context.Context, checks []Check) ([]Result, bool, error) {
	results := make(map[string]*Result, len(checks))
	done := make(map[string]chan struct{}, len(checks))
	for _, c := range checks {
		done[c.Name] = make(chan struct{})
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, c := range checks {
		wg.Add(1)
		go func(c Check) {
			defer wg.Done()
			defer close(done[c.Name])

			for _, dep := range c.DependsOn {
				if ch, ok := done[dep]; ok {
					<-ch
				}
			}

			mu.Lock()
			var failedDep string
			for _, dep := range c.DependsOn {
				if dr, ok := results[dep]; ok && (!dr.Success || dr.Skipped) {
					failedDep = dep
					break
				}
			}
			mu.Unlock()

			if failedDep != "" {
				mu.Lock()
				results[c.Name] = &Result{
					Name:       c.Name,
					Skipped:    true,
					SkipReason: fmt.Sprintf("skipped because %s failed", failedDep),
				}
				mu.Unlock()
				return
			}

			res := r.runOne(ctx, c)
			mu.Lock()
			results[c.Name] = &res
			mu.Unlock()
		}(c)
	}
	wg.Wait()

	ordered := make([]Result, 0, len(checks))
	overallSuccess := true
	for _, c := range checks {
		res := results[c.Name]
		ordered = append(ordered, *res)
		if !res.Skipped && !res.Success {
			overallSuccess = false
		}
	}
	return ordered, overallSuccess, nil
}

func (r *Runner) runOne(ctx context.Context, c Check) Result {
	timeout := DefaultTimeout
	if c.TimeoutSec > 0 {
		timeout = time.Duration(c.TimeoutSec) * time.Second
	}
	res, err := r.subprocess.Run(ctx, runner.RunOptions{
		Argv:         c.Command,
		Timeout:      timeout,
		ScrubSecrets: true,
	})
	if err != nil {
		return Result{Name: c.Name, Success: false, Error: err.Error()}
	}
	success := res.ReturnCode == 0 && !res.TimedOut
	out := Result{Name: c.Name, Success: success, Output: res.Stdout}
	if !success {
		if res.TimedOut {
			out.Error = "check timed out"
		} else {
			out.Error = res.Stderr
		}
	}
	return out
}

// EvalGate compiles (with caching) and evaluates a boolean gate
// expression against the accumulated check results so far.
func (r *Runner) EvalGate(gateExpr string, results []Result) (bool, error) {
	r.mu.Lock()
	program, ok := r.cache[gateExpr]
	r.mu.Unlock()

	env := gateEnv(results)
	if !ok {
		compiled, err := expr.Compile(gateExpr, expr.Env(env), expr.AsBool())
		if err != nil {
			return false, fmt.Errorf("preflight: invalid gate expression %q: %w", gateExpr, err)
		}
		r.mu.Lock()
		r.cache[gateExpr] = compiled
		r.mu.Unlock()
		program = compiled
	}

	out, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("preflight: evaluating gate expression %q: %w", gateExpr, err)
	}
	b, _ := out.(bool)
	return b, nil
}

func gateEnv(results []Result) map[string]interface{} {
	checks := make(map[string]interface{}, len(results))
	for _, r := range results {
		checks[r.Name] = map[string]interface{}{
			"success": r.Success,
			"skipped": r.Skipped,
		}
	}
	return map[string]interface{}{"checks": checks}
}
