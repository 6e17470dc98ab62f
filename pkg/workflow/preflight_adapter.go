package workflow

import (
	"context"

	"github.com/windlass-dev/windlass/pkg/preflight"
)

// preflightAdapter satisfies PreflightRunner by translating between
// this package's PreflightCheck (the parsed YAML shape) and
// pkg/preflight's Check/Result (the runtime shape), keeping the two
// packages decoupled from each other's types.
type preflightAdapter struct {
	runner *preflight.Runner
}

// NewPreflightAdapter wraps a *preflight.Runner as a PreflightRunner.
func NewPreflightAdapter(r *preflight.Runner) PreflightRunner {
	return &preflightAdapter{runner: r}
}

func (a *preflightAdapter) RunChecks(ctx context.Context, checks []PreflightCheck) ([]PreflightCheckResult, bool, error) {
	converted := make([]preflight.Check, len(checks))
	for i, c := range checks {
		converted[i] = preflight.Check{
			Name:       c.Name,
			Command:    c.Command,
			DependsOn:  c.DependsOn,
			TimeoutSec: c.TimeoutSec,
			Gate:       c.Gate,
		}
	}

	results, success, err := a.runner.Run(ctx, converted)
	if err != nil {
		return nil, false, err
	}

	out := make([]PreflightCheckResult, len(results))
	for i, r := range results {
		out[i] = PreflightCheckResult{
			Name:       r.Name,
			Success:    r.Success,
			Skipped:    r.Skipped,
			SkipReason: r.SkipReason,
			Error:      r.Error,
		}
	}
	return out, success, nil
}
