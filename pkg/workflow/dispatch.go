package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	werrors "github.com/windlass-dev/windlass/pkg/errors"
	"github.com/windlass-dev/windlass/pkg/workflow/expression"
)

// executeStep resolves step's expression-bearing fields against
// execCtx and dispatches to the handler for step.Kind. The sink
// receives step-kind-specific events (StepOutput, AgentStreamChunk)
// and the nested step events of composite kinds.
func (e *Executor) executeStep(ctx context.Context, step *StepRecord, execCtx *ExecutionContext, sink EventSink) (interface{}, error) {
	switch step.Kind {
	case KindPython:
		return e.runPython(ctx, step, execCtx, sink)
	case KindAgent:
		return e.runAgent(ctx, step, execCtx, sink)
	case KindGenerate:
		return e.runGenerate(ctx, step, execCtx)
	case KindValidate:
		return e.runValidate(ctx, step, execCtx, sink)
	case KindSubworkflow:
		return e.runSubworkflow(ctx, step, execCtx, sink)
	case KindBranch:
		return e.runBranch(ctx, step, execCtx, sink)
	case KindParallel:
		return e.runParallel(ctx, step, execCtx, sink)
	case KindCheckpoint:
		return nil, nil
	default:
		return nil, &werrors.StepExecutionError{StepName: step.Name, Kind: string(step.Kind), Cause: fmt.Errorf("unknown step kind")}
	}
}

// runChildStep executes a nested step (a branch arm or a validate
// on_failure hook) with its own StepStarted/StepCompleted pair so the
// event stream shows the nested execution.
func (e *Executor) runChildStep(ctx context.Context, step *StepRecord, execCtx *ExecutionContext, sink EventSink) (interface{}, error) {
	sink(Event{Type: EventStepStarted, Timestamp: time.Now(), StepName: step.Name, Kind: step.Kind})
	start := time.Now()
	out, err := e.executeStep(ctx, step, execCtx, sink)

	completed := Event{
		Type: EventStepCompleted, Timestamp: time.Now(), StepName: step.Name, Kind: step.Kind,
		Success: boolPtr(err == nil), DurationMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		completed.Error = err.Error()
	} else {
		completed.Output = out
	}
	sink(completed)
	return out, err
}

func (e *Executor) resolveArgs(args []string, execCtx *ExecutionContext) ([]string, error) {
	out := make([]string, len(args))
	for i, a := range args {
		resolved, err := expression.Substitute(a, toExprContext(execCtx))
		if err != nil {
			return nil, err
		}
		out[i] = resolved
	}
	return out, nil
}

func (e *Executor) resolveStringMap(m map[string]string, execCtx *ExecutionContext) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(m))
	ectx := toExprContext(execCtx)
	for k, v := range m {
		if expression.IsTemplate(v) {
			val, err := expression.EvaluateExpression(firstTemplate(v), ectx)
			if err == nil && isWholeTemplate(v) {
				out[k] = val
				continue
			}
			resolved, err := expression.Substitute(v, ectx)
			if err != nil {
				return nil, err
			}
			out[k] = resolved
			continue
		}
		out[k] = v
	}
	return out, nil
}

// isWholeTemplate reports whether s is exactly one `${{ ... }}`
// occurrence with no surrounding text, so the resolved value keeps its
// native type instead of being stringified.
func isWholeTemplate(s string) bool {
	trimmed := s
	if len(trimmed) < 6 || trimmed[:3] != "${{" || trimmed[len(trimmed)-2:] != "}}" {
		return false
	}
	inner := trimmed[3 : len(trimmed)-2]
	return !containsTemplateMarker(inner)
}

func containsTemplateMarker(s string) bool {
	for i := 0; i+2 < len(s); i++ {
		if s[i] == '$' && s[i+1] == '{' && s[i+2] == '{' {
			return true
		}
	}
	return false
}

func firstTemplate(s string) string {
	templates := expression.ExtractTemplates(s)
	if len(templates) == 0 {
		return s
	}
	return templates[0]
}

func (e *Executor) runPython(ctx context.Context, step *StepRecord, execCtx *ExecutionContext, sink EventSink) (interface{}, error) {
	name, operation := splitActionOperation(step.Action)
	value, err := e.registry.Lookup("actions", name)
	if err != nil {
		return nil, err
	}
	action, ok := value.(Action)
	if !ok {
		return nil, &werrors.StepExecutionError{StepName: step.Name, Kind: string(step.Kind), Cause: fmt.Errorf("%q does not implement Action", name)}
	}

	args, err := e.resolveArgs(step.Args, execCtx)
	if err != nil {
		return nil, &werrors.StepExecutionError{StepName: step.Name, Kind: string(step.Kind), Cause: err}
	}
	kwargs, err := e.resolveStringMap(step.Kwargs, execCtx)
	if err != nil {
		return nil, &werrors.StepExecutionError{StepName: step.Name, Kind: string(step.Kind), Cause: err}
	}
	kwargs["args"] = args

	out, err := action.Execute(ctx, operation, kwargs)
	if err != nil {
		return nil, &werrors.StepExecutionError{StepName: step.Name, Kind: string(step.Kind), Cause: err}
	}
	sink(Event{Type: EventStepOutput, Timestamp: time.Now(), StepName: step.Name, Kind: step.Kind, Output: out})
	return out, nil
}

func (e *Executor) resolveContext(step *StepRecord, execCtx *ExecutionContext) (map[string]interface{}, error) {
	if step.ContextBuilder != "" {
		value, err := e.registry.Lookup("context_builders", step.ContextBuilder)
		if err != nil {
			return nil, err
		}
		builder, ok := value.(ContextBuilder)
		if !ok {
			return nil, fmt.Errorf("%q does not implement ContextBuilder", step.ContextBuilder)
		}
		return builder.Build(context.Background(), execCtx)
	}
	return e.resolveStringMap(step.Context, execCtx)
}

func (e *Executor) runAgent(ctx context.Context, step *StepRecord, execCtx *ExecutionContext, sink EventSink) (interface{}, error) {
	value, err := e.registry.Lookup("agents", step.Agent)
	if err != nil {
		return nil, err
	}
	agent, ok := value.(Agent)
	if !ok {
		return nil, &werrors.StepExecutionError{StepName: step.Name, Kind: string(step.Kind), Cause: fmt.Errorf("%q does not implement Agent", step.Agent)}
	}
	promptContext, err := e.resolveContext(step, execCtx)
	if err != nil {
		return nil, &werrors.StepExecutionError{StepName: step.Name, Kind: string(step.Kind), Cause: err}
	}

	var out interface{}
	if streamer, ok := agent.(StreamingAgent); ok {
		out, err = streamer.RunStream(ctx, promptContext, func(chunk string) {
			sink(Event{Type: EventAgentStreamChunk, Timestamp: time.Now(), StepName: step.Name, Kind: step.Kind, Chunk: chunk})
		})
	} else {
		out, err = agent.Run(ctx, promptContext)
	}
	if err != nil {
		return nil, &werrors.StepExecutionError{StepName: step.Name, Kind: string(step.Kind), Cause: err}
	}
	return out, nil
}

func (e *Executor) runGenerate(ctx context.Context, step *StepRecord, execCtx *ExecutionContext) (interface{}, error) {
	value, err := e.registry.Lookup("generators", step.Generator)
	if err != nil {
		return nil, err
	}
	generator, ok := value.(Generator)
	if !ok {
		return nil, &werrors.StepExecutionError{StepName: step.Name, Kind: string(step.Kind), Cause: fmt.Errorf("%q does not implement Generator", step.Generator)}
	}
	genContext, err := e.resolveContext(step, execCtx)
	if err != nil {
		return nil, &werrors.StepExecutionError{StepName: step.Name, Kind: string(step.Kind), Cause: err}
	}
	out, err := generator.Generate(ctx, genContext)
	if err != nil {
		return nil, &werrors.StepExecutionError{StepName: step.Name, Kind: string(step.Kind), Cause: err}
	}
	if sg, ok := generator.(SchemaGenerator); ok {
		if schema := sg.OutputSchema(); schema != nil {
			if err := CheckOutputSchema(schema, out); err != nil {
				return nil, &werrors.StepExecutionError{StepName: step.Name, Kind: string(step.Kind), Cause: err}
			}
		}
	}
	return out, nil
}

// runValidate runs each validation stage in order; a stage failure
// triggers step.OnFailure (if present, as a best-effort repair hook
// whose events appear nested in the stream but whose success never
// flips this validate step's own result). Retries (step.Retry) re-run
// the full stage list after on_failure.
func (e *Executor) runValidate(ctx context.Context, step *StepRecord, execCtx *ExecutionContext, sink EventSink) (interface{}, error) {
	attempts := step.Retry + 1
	var lastErr error
	var lastOutput interface{}

	for attempt := 0; attempt < attempts; attempt++ {
		failed := false
		results := make(map[string]interface{}, len(step.Stages))
		for _, stage := range step.Stages {
			value, err := e.registry.Lookup("actions", stage)
			if err != nil {
				return nil, err
			}
			action, ok := value.(Action)
			if !ok {
				return nil, &werrors.StepExecutionError{StepName: step.Name, Kind: string(step.Kind), Cause: fmt.Errorf("stage %q does not implement Action", stage)}
			}
			out, err := action.Execute(ctx, "", map[string]interface{}{"step": step.Name})
			if err != nil {
				failed = true
				lastErr = err
				results[stage] = map[string]interface{}{"error": err.Error()}
				continue
			}
			results[stage] = out
		}
		lastOutput = results

		if !failed {
			return lastOutput, nil
		}

		if step.OnFailure != nil {
			if _, err := e.runChildStep(ctx, step.OnFailure, execCtx, sink); err != nil {
				e.logger.Warn("validate on_failure hook errored", "step", step.Name, "error", err)
			}
		}
	}

	return lastOutput, &werrors.StepExecutionError{StepName: step.Name, Kind: string(step.Kind), Cause: lastErr}
}

func (e *Executor) runSubworkflow(ctx context.Context, step *StepRecord, execCtx *ExecutionContext, sink EventSink) (interface{}, error) {
	if e.subworkflowDepth >= maxSubworkflowDepth {
		return nil, &werrors.StepExecutionError{StepName: step.Name, Kind: string(step.Kind), Cause: fmt.Errorf("sub-workflow nesting exceeds depth %d", maxSubworkflowDepth)}
	}
	value, err := e.registry.Lookup("workflows", step.Workflow)
	if err != nil {
		return nil, err
	}
	doc, ok := value.(*WorkflowDocument)
	if !ok {
		return nil, &werrors.StepExecutionError{StepName: step.Name, Kind: string(step.Kind), Cause: fmt.Errorf("%q is not a WorkflowDocument", step.Workflow)}
	}

	childInputs, err := e.resolveStringMap(step.WorkflowArgs, execCtx)
	if err != nil {
		return nil, &werrors.StepExecutionError{StepName: step.Name, Kind: string(step.Kind), Cause: err}
	}

	child := &Executor{
		registry:         e.registry,
		checkpoints:      nil,
		preflight:        nil,
		validate:         nil,
		logger:           e.logger,
		parallelSem:      e.parallelSem,
		subworkflowDepth: e.subworkflowDepth + 1,
	}
	// The child run emits into the parent's sink, so nested events
	// stay interleaved in the one stream, in dispatch order.
	result, err := child.Execute(ctx, doc, childInputs, ExecuteOptions{}, sink)
	if err != nil {
		return nil, &werrors.StepExecutionError{StepName: step.Name, Kind: string(step.Kind), Cause: err}
	}
	if !result.Success {
		return result.FinalOutput, &werrors.StepExecutionError{StepName: step.Name, Kind: string(step.Kind), Cause: fmt.Errorf("sub-workflow %q failed", step.Workflow)}
	}
	return result.FinalOutput, nil
}

func (e *Executor) runBranch(ctx context.Context, step *StepRecord, execCtx *ExecutionContext, sink EventSink) (interface{}, error) {
	for _, opt := range step.Options {
		take, err := e.evalCondition(opt.When, execCtx)
		if err != nil {
			return nil, &werrors.StepExecutionError{StepName: step.Name, Kind: string(step.Kind), Cause: err}
		}
		if take {
			return e.runChildStep(ctx, opt.Step, execCtx, sink)
		}
	}
	return nil, nil
}

// runParallel fans step.Steps out across goroutines bounded by
// e.parallelSem, with no injected iteration context of its own:
// item/index stay invalid unless execCtx already carries an Iteration
// from an enclosing scope. Every child's StepStarted is emitted, in
// declaration order, before any child begins executing, so all
// sibling starts precede every sibling completion and the enclosing
// StepCompleted. Completion events interleave in finish order; the
// sink is serialized behind a mutex so concurrent children never
// corrupt a consumer.
func (e *Executor) runParallel(ctx context.Context, step *StepRecord, execCtx *ExecutionContext, sink EventSink) (interface{}, error) {
	results := make([]interface{}, len(step.Steps))
	errs := make([]error, len(step.Steps))

	var sinkMu sync.Mutex
	lockedSink := func(ev Event) {
		sinkMu.Lock()
		defer sinkMu.Unlock()
		sink(ev)
	}

	starts := make([]time.Time, len(step.Steps))
	for i, child := range step.Steps {
		starts[i] = time.Now()
		lockedSink(Event{Type: EventStepStarted, Timestamp: starts[i], StepName: child.Name, Kind: child.Kind})
	}

	var wg sync.WaitGroup
	for i, child := range step.Steps {
		wg.Add(1)
		go func(i int, child *StepRecord) {
			defer wg.Done()
			e.parallelSem <- struct{}{}
			defer func() { <-e.parallelSem }()

			out, err := e.executeStep(ctx, child, execCtx, lockedSink)
			results[i] = out
			errs[i] = err
			duration := time.Since(starts[i]).Milliseconds()
			execCtx.PutStepOutput(child.Name, StepState{Output: out, Success: err == nil, DurationMs: duration, Kind: child.Kind})

			completed := Event{
				Type: EventStepCompleted, Timestamp: time.Now(), StepName: child.Name, Kind: child.Kind,
				Success: boolPtr(err == nil), DurationMs: duration,
			}
			if err != nil {
				completed.Error = err.Error()
			} else {
				completed.Output = out
			}
			lockedSink(completed)
		}(i, child)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return results, &werrors.StepExecutionError{StepName: step.Steps[i].Name, Kind: string(step.Steps[i].Kind), Cause: err}
		}
	}
	return results, nil
}
