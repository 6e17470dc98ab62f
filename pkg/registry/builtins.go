package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/windlass-dev/windlass/internal/action/file"
	httpaction "github.com/windlass-dev/windlass/internal/action/http"
	"github.com/windlass-dev/windlass/internal/action/transform"
	"github.com/windlass-dev/windlass/internal/action/utility"
	"github.com/windlass-dev/windlass/internal/jq"
	"github.com/windlass-dev/windlass/pkg/runner"
	"github.com/zalando/go-keyring"
)

// RegisterBuiltins populates the `actions` namespace with the bootstrap
// actions available to every workflow before user-defined components
// are registered: `subprocess` (the Subprocess Runner), `jq`,
// `keyring_get`, and the `file`/`transform`/`utility`/`http` actions.
func RegisterBuiltins(r *Registry) error {
	builtins := map[string]Action{
		"subprocess":  newSubprocessAction(),
		"jq":          newJQAction(),
		"keyring_get": keyringGetAction{},
	}

	fileConn, err := file.New(nil)
	if err != nil {
		return fmt.Errorf("registry: bootstrap file action: %w", err)
	}
	builtins["file"] = fileAdapter{fileConn}

	transformConn, err := transform.New(nil)
	if err != nil {
		return fmt.Errorf("registry: bootstrap transform action: %w", err)
	}
	builtins["transform"] = transformAdapter{transformConn}

	utilityConn, err := utility.New()
	if err != nil {
		return fmt.Errorf("registry: bootstrap utility action: %w", err)
	}
	builtins["utility"] = utilityAdapter{utilityConn}

	httpConn, err := httpaction.New(nil)
	if err != nil {
		return fmt.Errorf("registry: bootstrap http action: %w", err)
	}
	builtins["http"] = httpAdapter{httpConn}

	for name, action := range builtins {
		if err := r.Register(Actions, name, action); err != nil {
			return fmt.Errorf("registry: bootstrap action %q: %w", name, err)
		}
	}
	return nil
}

// flatten turns a builtin package's *Result{Response, Metadata} shape
// into the registry's plain map[string]interface{} Action contract.
func flatten(response interface{}, metadata map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{"response": response, "metadata": metadata}
}

type fileAdapter struct{ inner *file.Action }

func (a fileAdapter) Execute(ctx context.Context, operation string, inputs map[string]interface{}) (map[string]interface{}, error) {
	res, err := a.inner.Execute(ctx, operation, inputs)
	if err != nil {
		return nil, err
	}
	return flatten(res.Response, res.Metadata), nil
}

type transformAdapter struct{ inner *transform.Action }

func (a transformAdapter) Execute(ctx context.Context, operation string, inputs map[string]interface{}) (map[string]interface{}, error) {
	res, err := a.inner.Execute(ctx, operation, inputs)
	if err != nil {
		return nil, err
	}
	return flatten(res.Response, res.Metadata), nil
}

type utilityAdapter struct{ inner *utility.Action }

func (a utilityAdapter) Execute(ctx context.Context, operation string, inputs map[string]interface{}) (map[string]interface{}, error) {
	res, err := a.inner.Execute(ctx, operation, inputs)
	if err != nil {
		return nil, err
	}
	return flatten(res.Response, res.Metadata), nil
}

type httpAdapter struct{ inner *httpaction.HTTPAction }

func (a httpAdapter) Execute(ctx context.Context, operation string, inputs map[string]interface{}) (map[string]interface{}, error) {
	res, err := a.inner.Execute(ctx, operation, inputs)
	if err != nil {
		return nil, err
	}
	return flatten(res.Response, res.Metadata), nil
}

type subprocessAction struct {
	r *runner.Runner
}

func newSubprocessAction() *subprocessAction {
	return &subprocessAction{r: runner.New()}
}

// Execute runs the `subprocess` action: the Subprocess Runner exposed as
// an ordinary registered action so `python`-kind steps can invoke
// external programs without the executor importing pkg/runner
// directly.
func (a *subprocessAction) Execute(ctx context.Context, operation string, inputs map[string]interface{}) (map[string]interface{}, error) {
	argv, err := stringSlice(inputs["argv"])
	if err != nil {
		return nil, fmt.Errorf("subprocess action: %w", err)
	}

	opts := runner.RunOptions{
		Argv:         argv,
		Cwd:          stringOr(inputs["cwd"], ""),
		MaxRetries:   intOr(inputs["max_retries"], 0),
		ScrubSecrets: boolOr(inputs["scrub_secrets"], true),
		Timeout:      msOr(inputs["timeout_ms"], 0),
		RetryDelay:   msOr(inputs["retry_delay_ms"], 0),
	}
	if env, ok := inputs["env"].(map[string]interface{}); ok {
		opts.Env = make(map[string]string, len(env))
		for k, v := range env {
			opts.Env[k] = fmt.Sprintf("%v", v)
		}
	}

	res, err := a.r.Run(ctx, opts)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"returncode":  res.ReturnCode,
		"stdout":      res.Stdout,
		"stderr":      res.Stderr,
		"duration_ms": res.DurationMs,
		"timed_out":   res.TimedOut,
	}, nil
}

type jqAction struct {
	exec *jq.Executor
}

func newJQAction() *jqAction {
	return &jqAction{exec: jq.NewExecutor(0, 0)}
}

func (a *jqAction) Execute(ctx context.Context, operation string, inputs map[string]interface{}) (map[string]interface{}, error) {
	expr, _ := inputs["expression"].(string)
	result, err := a.exec.Execute(ctx, expr, inputs["data"])
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"result": result}, nil
}

// keyringGetAction reads a named secret from the OS credential store,
// used by preflight auth checks that need to verify a secret exists
// without ever printing its value.
type keyringGetAction struct{}

func (keyringGetAction) Execute(ctx context.Context, operation string, inputs map[string]interface{}) (map[string]interface{}, error) {
	service, _ := inputs["service"].(string)
	user, _ := inputs["user"].(string)
	if service == "" || user == "" {
		return nil, fmt.Errorf("keyring_get: service and user are required")
	}
	secret, err := keyring.Get(service, user)
	if err != nil {
		return nil, fmt.Errorf("keyring_get: %w", err)
	}
	return map[string]interface{}{"value": secret}, nil
}

func stringSlice(v interface{}) ([]string, error) {
	switch vv := v.(type) {
	case []string:
		return vv, nil
	case []interface{}:
		out := make([]string, len(vv))
		for i, e := range vv {
			out[i] = fmt.Sprintf("%v", e)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("argv must be an array of strings")
	}
}

func stringOr(v interface{}, fallback string) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fallback
}

func intOr(v interface{}, fallback int) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return fallback
	}
}

func boolOr(v interface{}, fallback bool) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return fallback
}

func msOr(v interface{}, fallback time.Duration) time.Duration {
	switch n := v.(type) {
	case int:
		return time.Duration(n) * time.Millisecond
	case float64:
		return time.Duration(n) * time.Millisecond
	default:
		return fallback
	}
}
