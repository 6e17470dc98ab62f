package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/windlass-dev/windlass/pkg/checkpoint"
	werrors "github.com/windlass-dev/windlass/pkg/errors"
	"github.com/windlass-dev/windlass/pkg/workflow/expression"
)

// ComponentLookup is the subset of *registry.Registry the executor
// depends on, kept as an interface to avoid an import cycle between
// pkg/workflow and pkg/registry (the registry's actions namespace
// validates against this package's own types indirectly via builtins).
type ComponentLookup interface {
	Lookup(namespace, name string) (interface{}, error)
	Has(namespace, name string) bool
}

// Action is the shape an `actions`-namespace registration must satisfy
// to be invoked from a `python` step.
type Action interface {
	Execute(ctx context.Context, operation string, inputs map[string]interface{}) (map[string]interface{}, error)
}

// Agent is the shape an `agents`-namespace registration must satisfy
// to be invoked from an `agent` step.
type Agent interface {
	Run(ctx context.Context, promptContext map[string]interface{}) (interface{}, error)
}

// StreamingAgent is an optional Agent extension. When an agent
// implements it, the executor invokes RunStream instead of Run and
// forwards every chunk to the event stream as an AgentStreamChunk.
type StreamingAgent interface {
	Agent

	RunStream(ctx context.Context, promptContext map[string]interface{}, onChunk func(string)) (interface{}, error)
}

// Generator is the shape a `generators`-namespace registration must
// satisfy to be invoked from a `generate` step.
type Generator interface {
	Generate(ctx context.Context, genContext map[string]interface{}) (interface{}, error)
}

// ContextBuilder is the shape a `context_builders`-namespace
// registration must satisfy when a step names one via
// `context_builder` instead of a literal `context` map.
type ContextBuilder interface {
	Build(ctx context.Context, execCtx *ExecutionContext) (map[string]interface{}, error)
}

// CheckpointStore is the subset of pkg/checkpoint.Store the executor
// needs, kept as an interface at this layer so pkg/workflow never
// imports pkg/checkpoint's concrete types.
type CheckpointStore interface {
	Save(ctx context.Context, workflowName, checkpointID string, inputHash string, stepResults []byte) error
	Load(ctx context.Context, workflowName, checkpointID string) (inputHash string, stepResults []byte, err error)
}

// PreflightRunner is the subset of pkg/preflight.Runner the executor
// needs.
type PreflightRunner interface {
	RunChecks(ctx context.Context, checks []PreflightCheck) (results []PreflightCheckResult, success bool, err error)
}

// PreflightCheckResult mirrors pkg/preflight.Result without importing
// that package directly.
type PreflightCheckResult struct {
	Name       string
	Success    bool
	Skipped    bool
	SkipReason string
	Error      string
}

// SemanticValidator is the subset of pkg/workflow/schema.Validate the
// executor needs, as an interface to avoid a cycle (schema imports
// this package for WorkflowDocument).
type SemanticValidator func(doc *WorkflowDocument, lookup ComponentLookup) (valid bool, errors []string, warnings []string)

// ExecuteOptions configures one Execute call.
type ExecuteOptions struct {
	ValidateSemantic bool
	Resume           bool
	CheckpointID     string
	DryRun           bool
}

const defaultMaxParallelConcurrency = 3
const maxSubworkflowDepth = 10

// Executor drives a WorkflowDocument to terminal state using a
// component registry, the expression engine, and whatever Action/
// Agent/Generator implementations are registered under it.
type Executor struct {
	registry    ComponentLookup
	checkpoints CheckpointStore
	preflight   PreflightRunner
	validate    SemanticValidator
	logger      *slog.Logger
	parallelSem chan struct{}

	cancelMu  sync.Mutex
	cancelled bool

	subworkflowDepth int
}

// NewExecutor returns an Executor wired to the given registry,
// checkpoint store, and preflight runner. Any of checkpoints, preflight,
// or validate may be nil to disable that stage.
func NewExecutor(registry ComponentLookup, checkpoints CheckpointStore, preflight PreflightRunner, validate SemanticValidator, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		registry:    registry,
		checkpoints: checkpoints,
		preflight:   preflight,
		validate:    validate,
		logger:      logger,
		parallelSem: make(chan struct{}, defaultMaxParallelConcurrency),
	}
}

// Cancel requests cooperative cancellation: the executor observes this
// at the next step boundary, never mid-step.
func (e *Executor) Cancel() {
	e.cancelMu.Lock()
	defer e.cancelMu.Unlock()
	e.cancelled = true
}

func (e *Executor) isCancelled() bool {
	e.cancelMu.Lock()
	defer e.cancelMu.Unlock()
	return e.cancelled
}

// Execute drives doc to terminal state, emitting events to sink in
// total order, and returns the terminal WorkflowResult.
func (e *Executor) Execute(ctx context.Context, doc *WorkflowDocument, inputs map[string]interface{}, opts ExecuteOptions, sink EventSink) (*WorkflowResult, error) {
	if sink == nil {
		sink = func(Event) {}
	}
	inputs = mergeDefaults(doc, inputs)

	if opts.ValidateSemantic && e.validate != nil {
		sink(newEvent(EventValidationStarted))
		valid, errs, warnings := e.validate(doc, e.registry)
		if !valid {
			sink(Event{Type: EventValidationFailed, Timestamp: time.Now(), Error: firstOrJoined(errs)})
			sink(Event{Type: EventWorkflowCompleted, Timestamp: time.Now(), Success: boolPtr(false)})
			return &WorkflowResult{WorkflowName: doc.Name, Success: false}, nil
		}
		sink(Event{Type: EventValidationCompleted, Timestamp: time.Now(), Reason: fmt.Sprintf("%d warnings", len(warnings))})
	}

	execCtx := NewExecutionContext(inputs)

	if e.preflight != nil && len(doc.Preflight) > 0 {
		ok, err := e.runPreflight(ctx, doc, sink)
		if err != nil {
			return nil, err
		}
		if !ok {
			sink(Event{Type: EventWorkflowCompleted, Timestamp: time.Now(), Success: boolPtr(false)})
			return &WorkflowResult{WorkflowName: doc.Name, Success: false}, &werrors.PreflightFailedError{}
		}
	}

	var resumeInputHash string
	if opts.Resume && e.checkpoints != nil {
		inputHash, stepData, err := e.checkpoints.Load(ctx, doc.Name, opts.CheckpointID)
		if err != nil {
			return nil, err
		}
		computedHash, hashErr := hashInputs(inputs)
		if hashErr == nil && inputHash != computedHash {
			return nil, &werrors.InputMismatchError{WorkflowName: doc.Name, Expected: inputHash, Actual: computedHash}
		}
		var restored []StepResult
		if err := json.Unmarshal(stepData, &restored); err != nil {
			return nil, fmt.Errorf("executor: decoding checkpoint step results: %w", err)
		}
		for _, sr := range restored {
			execCtx.PutStepOutput(sr.Name, StepState{Output: sr.Output, Success: sr.Success, DurationMs: sr.DurationMs, Kind: sr.Kind})
		}
		resumeInputHash = computedHash
	}

	start := time.Now()
	sink(Event{Type: EventWorkflowStarted, Timestamp: start})

	var stepResults []StepResult
	success := true

	for _, step := range doc.Steps {
		if e.isCancelled() || ctx.Err() != nil {
			success = false
			break
		}

		if opts.Resume {
			if _, already := execCtx.StepsSnapshot()[step.Name]; already {
				continue
			}
		}

		if step.When != "" {
			run, err := e.evalCondition(step.When, execCtx)
			if err != nil || !run {
				execCtx.PutStepOutput(step.Name, StepState{Output: nil, Success: true, Kind: step.Kind})
				sink(Event{Type: EventStepSkipped, Timestamp: time.Now(), StepName: step.Name, Kind: step.Kind})
				continue
			}
		}

		sink(Event{Type: EventStepStarted, Timestamp: time.Now(), StepName: step.Name, Kind: step.Kind})
		stepStart := time.Now()

		var output interface{}
		var err error
		if opts.DryRun {
			output = map[string]interface{}{"dry_run": true}
		} else {
			output, err = e.executeStep(ctx, step, execCtx, sink)
		}
		duration := time.Since(stepStart).Milliseconds()

		result := StepResult{Name: step.Name, Kind: step.Kind, DurationMs: duration}
		if err != nil {
			result.Success = false
			result.Error = err.Error()
		} else {
			result.Success = true
			result.Output = output
		}
		stepResults = append(stepResults, result)
		execCtx.PutStepOutput(step.Name, StepState{Output: result.Output, Success: result.Success, DurationMs: result.DurationMs, Kind: step.Kind})

		sink(Event{
			Type: EventStepCompleted, Timestamp: time.Now(), StepName: step.Name, Kind: step.Kind,
			Success: boolPtr(result.Success), Error: result.Error, DurationMs: result.DurationMs, Output: result.Output,
		})

		if step.Kind == KindCheckpoint && e.checkpoints != nil {
			if err := e.saveCheckpoint(ctx, doc.Name, step.CheckpointID, inputs, stepResults); err != nil {
				e.logger.Warn("checkpoint save failed", "workflow", doc.Name, "checkpoint_id", step.CheckpointID, "error", err)
			} else {
				sink(Event{Type: EventCheckpointSaved, Timestamp: time.Now(), StepName: step.Name, Kind: step.Kind, CheckpointID: step.CheckpointID})
			}
		}

		if !result.Success {
			success = false
			break
		}
	}

	var rollbackErrors []RollbackError
	if !success {
		rollbackErrors = e.runRollbacks(ctx, doc.Steps, stepResults, execCtx, sink)
	}

	totalDuration := time.Since(start).Milliseconds()
	var finalOutput interface{}
	if len(stepResults) > 0 {
		finalOutput = stepResults[len(stepResults)-1].Output
	}

	_ = resumeInputHash
	result := &WorkflowResult{
		WorkflowName:    doc.Name,
		Success:         success,
		StepResults:     stepResults,
		TotalDurationMs: totalDuration,
		FinalOutput:     finalOutput,
		RollbackErrors:  rollbackErrors,
	}
	sink(Event{Type: EventWorkflowCompleted, Timestamp: time.Now(), Success: boolPtr(success), DurationMs: totalDuration})
	return result, nil
}

func (e *Executor) saveCheckpoint(ctx context.Context, workflowName, checkpointID string, inputs map[string]interface{}, results []StepResult) error {
	hash, err := hashInputs(inputs)
	if err != nil {
		return err
	}
	data, err := json.Marshal(results)
	if err != nil {
		return err
	}
	return e.checkpoints.Save(ctx, workflowName, checkpointID, hash, data)
}

func (e *Executor) runPreflight(ctx context.Context, doc *WorkflowDocument, sink EventSink) (bool, error) {
	sink(newEvent(EventPreflightStarted))
	results, success, err := e.preflight.RunChecks(ctx, doc.Preflight)
	if err != nil {
		return false, err
	}
	for _, r := range results {
		if r.Skipped {
			sink(Event{Type: EventPreflightCheckFailed, Timestamp: time.Now(), CheckName: r.Name, Reason: r.SkipReason})
			continue
		}
		if r.Success {
			sink(Event{Type: EventPreflightCheckPassed, Timestamp: time.Now(), CheckName: r.Name})
		} else {
			sink(Event{Type: EventPreflightCheckFailed, Timestamp: time.Now(), CheckName: r.Name, Reason: r.Error})
		}
	}
	sink(newEvent(EventPreflightCompleted))
	return success, nil
}

func (e *Executor) runRollbacks(ctx context.Context, steps []*StepRecord, results []StepResult, execCtx *ExecutionContext, sink EventSink) []RollbackError {
	byName := make(map[string]*StepRecord, len(steps))
	for _, s := range steps {
		byName[s.Name] = s
	}

	var errs []RollbackError
	for i := len(results) - 1; i >= 0; i-- {
		// Only successful steps registered a compensation; the failed
		// step itself has nothing to roll back.
		if !results[i].Success {
			continue
		}
		step := byName[results[i].Name]
		if step == nil || step.Rollback == "" {
			continue
		}
		sink(Event{Type: EventRollbackStarted, Timestamp: time.Now(), StepName: step.Name})

		errMsg := ""
		if err := e.invokeRollback(ctx, step, execCtx); err != nil {
			errMsg = err.Error()
			errs = append(errs, RollbackError{StepName: step.Name, Error: errMsg})
			sink(Event{Type: EventRollbackError, Timestamp: time.Now(), StepName: step.Name, Error: errMsg})
		}
		sink(Event{Type: EventRollbackCompleted, Timestamp: time.Now(), StepName: step.Name, Success: boolPtr(errMsg == ""), Error: errMsg})
	}
	return errs
}

func (e *Executor) invokeRollback(ctx context.Context, step *StepRecord, execCtx *ExecutionContext) error {
	actionName, operation := splitActionOperation(step.Rollback)
	value, err := e.registry.Lookup("actions", actionName)
	if err != nil {
		return err
	}
	action, ok := value.(Action)
	if !ok {
		return fmt.Errorf("executor: rollback action %q does not implement Action", actionName)
	}
	_, err = action.Execute(ctx, operation, map[string]interface{}{"step": step.Name})
	return err
}

func (e *Executor) evalCondition(when string, execCtx *ExecutionContext) (bool, error) {
	val, err := e.evalExpr(when, execCtx)
	if err != nil {
		return false, err
	}
	return expression.Truthy(val), nil
}

func (e *Executor) evalExpr(exprText string, execCtx *ExecutionContext) (interface{}, error) {
	// Conditions may be written bare ("inputs.x") or wrapped in a
	// template marker; either way the inner expression is evaluated.
	if expression.IsTemplate(exprText) {
		exprText = firstTemplate(exprText)
	}
	return expression.EvaluateExpression(exprText, toExprContext(execCtx))
}

func toExprContext(execCtx *ExecutionContext) *expression.Context {
	snapshot := execCtx.StepsSnapshot()
	steps := make(map[string]interface{}, len(snapshot))
	for name, st := range snapshot {
		steps[name] = map[string]interface{}{
			"output":      st.Output,
			"success":     st.Success,
			"duration_ms": st.DurationMs,
		}
	}
	var it *expression.Iteration
	if execCtx.Iteration != nil {
		it = &expression.Iteration{Item: execCtx.Iteration.Item, Index: execCtx.Iteration.Index}
	}
	return &expression.Context{Inputs: execCtx.Inputs, Steps: steps, Iteration: it}
}

func mergeDefaults(doc *WorkflowDocument, inputs map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(inputs)+len(doc.Inputs))
	for k, v := range inputs {
		out[k] = v
	}
	for name, spec := range doc.Inputs {
		if _, ok := out[name]; ok {
			continue
		}
		if spec.Default != nil {
			out[name] = spec.Default
		} else if !spec.Required {
			out[name] = nil
		}
	}
	return out
}

func splitActionOperation(ref string) (name, operation string) {
	for i := 0; i < len(ref); i++ {
		if ref[i] == '.' {
			return ref[:i], ref[i+1:]
		}
	}
	return ref, ""
}

func firstOrJoined(errs []string) string {
	if len(errs) == 0 {
		return ""
	}
	return errs[0]
}

func hashInputs(inputs map[string]interface{}) (string, error) {
	return checkpoint.HashInputs(inputs)
}
