// Package workflow implements the workflow data model, its YAML
// parser, and the executor that drives a WorkflowDocument to terminal
// state.
package workflow

import "sync"

// StepKind enumerates the eight step sum-type variants.
type StepKind string

const (
	KindPython      StepKind = "python"
	KindAgent       StepKind = "agent"
	KindGenerate    StepKind = "generate"
	KindValidate    StepKind = "validate"
	KindSubworkflow StepKind = "subworkflow"
	KindBranch      StepKind = "branch"
	KindParallel    StepKind = "parallel"
	KindCheckpoint  StepKind = "checkpoint"
)

// InputType enumerates the accepted `inputs.<name>.type` values.
type InputType string

const (
	TypeString  InputType = "string"
	TypeInteger InputType = "integer"
	TypeNumber  InputType = "number"
	TypeBoolean InputType = "boolean"
	TypeArray   InputType = "array"
	TypeObject  InputType = "object"
)

// SupportedVersions is the closed set of accepted `version` values.
var SupportedVersions = map[string]bool{"1.0": true}

// InputSpec describes one entry of WorkflowDocument.Inputs.
type InputSpec struct {
	Type        InputType   `yaml:"type"`
	Required    bool        `yaml:"required"`
	Default     interface{} `yaml:"default,omitempty"`
	Description string      `yaml:"description,omitempty"`
}

// BranchOption is one entry of a `branch` step's `options` list.
type BranchOption struct {
	When string     `yaml:"when"`
	Step *StepRecord `yaml:"step"`
}

// StepRecord is the StepRecord sum type. Only the fields relevant to
// Kind are populated; the parser enforces per-kind required fields.
type StepRecord struct {
	Name     string   `yaml:"name"`
	Kind     StepKind `yaml:"type"`
	When     string   `yaml:"when,omitempty"`
	Rollback string   `yaml:"rollback,omitempty"`

	// python
	Action string            `yaml:"action,omitempty"`
	Args   []string          `yaml:"args,omitempty"`
	Kwargs map[string]string `yaml:"kwargs,omitempty"`

	// agent / generate
	Agent     string `yaml:"agent,omitempty"`
	Generator string `yaml:"generator,omitempty"`
	// Context is either a literal mapping from string to expression, or
	// the registered name of a context-builder.
	Context         map[string]string `yaml:"context,omitempty"`
	ContextBuilder  string            `yaml:"context_builder,omitempty"`

	// validate
	Stages     []string    `yaml:"stages,omitempty"`
	Retry      int         `yaml:"retry,omitempty"`
	OnFailure  *StepRecord `yaml:"on_failure,omitempty"`

	// subworkflow
	Workflow     string            `yaml:"workflow,omitempty"`
	WorkflowArgs map[string]string `yaml:"inputs,omitempty"`

	// branch
	Options []BranchOption `yaml:"options,omitempty"`

	// parallel
	Steps []*StepRecord `yaml:"steps,omitempty"`

	// checkpoint
	CheckpointID string `yaml:"id,omitempty"`
}

// PreflightCheck is one named prerequisite check run before the first
// WorkflowStarted event.
type PreflightCheck struct {
	Name       string   `yaml:"name"`
	Command    []string `yaml:"command"`
	DependsOn  []string `yaml:"depends_on,omitempty"`
	TimeoutSec int      `yaml:"timeout,omitempty"`
	Gate       string   `yaml:"gate,omitempty"`
}

// WorkflowDocument is the parsed, immutable-for-a-run representation of
// a workflow YAML file.
type WorkflowDocument struct {
	Version     string               `yaml:"version"`
	Name        string               `yaml:"name"`
	Description string               `yaml:"description,omitempty"`
	Inputs      map[string]InputSpec `yaml:"inputs,omitempty"`
	Steps       []*StepRecord        `yaml:"steps"`
	Preflight   []PreflightCheck     `yaml:"preflight,omitempty"`
}

// Iteration is the `item`/`index` partition injected inside parallel
// fan-outs or loop bodies.
type Iteration struct {
	Item  interface{}
	Index int
}

// StepState is the recorded outcome of one executed step inside an
// ExecutionContext's `steps` partition.
type StepState struct {
	Output      interface{} `json:"output"`
	Success     bool        `json:"success"`
	DurationMs  int64       `json:"duration_ms"`
	Kind        StepKind    `json:"kind"`
}

// ExecutionContext is the per-run state visible to expression
// evaluation and step handlers. It is mutated only by the executor, via
// PutStepOutput, between steps — and, during a `parallel` fan-out,
// concurrently from multiple goroutines, so Steps writes and reads are
// guarded by mu.
type ExecutionContext struct {
	Inputs    map[string]interface{}
	Iteration *Iteration

	mu    *sync.RWMutex
	Steps map[string]StepState
}

// NewExecutionContext returns a context with merged user inputs and
// defaults, ready for a fresh run.
func NewExecutionContext(inputs map[string]interface{}) *ExecutionContext {
	return &ExecutionContext{
		Inputs: inputs,
		Steps:  make(map[string]StepState),
		mu:     &sync.RWMutex{},
	}
}

// PutStepOutput is the sole mutation entry point into Steps, enforcing
// the append-only, executor-only write discipline described in the
// data model.
func (c *ExecutionContext) PutStepOutput(name string, state StepState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Steps[name] = state
}

// StepsSnapshot returns a shallow copy of the current Steps table,
// safe to read concurrently with in-flight PutStepOutput calls from a
// parallel fan-out.
func (c *ExecutionContext) StepsSnapshot() map[string]StepState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]StepState, len(c.Steps))
	for k, v := range c.Steps {
		out[k] = v
	}
	return out
}

// WithIteration returns a shallow copy of c carrying the given
// Iteration partition, sharing the same Steps table and mutex so
// writes from a child scope are visible to the parent.
func (c *ExecutionContext) WithIteration(it *Iteration) *ExecutionContext {
	return &ExecutionContext{
		Inputs:    c.Inputs,
		Iteration: it,
		Steps:     c.Steps,
		mu:        c.mu,
	}
}

// StepResult is the outcome of a single executed step.
type StepResult struct {
	Name       string      `json:"name"`
	Kind       StepKind    `json:"kind"`
	Success    bool        `json:"success"`
	Output     interface{} `json:"output"`
	DurationMs int64       `json:"duration_ms"`
	Error      string      `json:"error,omitempty"`
}

// RollbackError records a single failed rollback action; these never
// mask the primary run failure.
type RollbackError struct {
	StepName string `json:"step_name"`
	Error    string `json:"error"`
}

// WorkflowResult is the terminal outcome of a workflow run.
type WorkflowResult struct {
	WorkflowName     string           `json:"workflow_name"`
	Success          bool             `json:"success"`
	StepResults      []StepResult     `json:"step_results"`
	TotalDurationMs  int64            `json:"total_duration_ms"`
	FinalOutput      interface{}      `json:"final_output"`
	RollbackErrors   []RollbackError  `json:"rollback_errors"`
}

// Checkpoint is the executor's in-memory view of a run's progress
// snapshot, written at `checkpoint` steps and consulted on resume. The
// executor marshals StepResults to JSON when handing a Checkpoint to a
// checkpoint.Store (whose Record keeps step results opaque), and
// unmarshals back into this shape on Load.
type Checkpoint struct {
	WorkflowName string       `json:"workflow_name"`
	CheckpointID string       `json:"checkpoint_id"`
	SavedAt      string       `json:"saved_at"`
	InputHash    string       `json:"input_hash"`
	StepResults  []StepResult `json:"step_results"`
}

// DiscoverySource is where a DiscoveryRecord's workflow file came from.
type DiscoverySource string

const (
	SourceBuiltin DiscoverySource = "builtin"
	SourceUser    DiscoverySource = "user"
	SourceProject DiscoverySource = "project"
)

// DiscoveryRecord is one workflow or fragment found by the Discovery
// Pipeline, with the lower-precedence files it shadows.
type DiscoveryRecord struct {
	Source    DiscoverySource
	FilePath  string
	Workflow  *WorkflowDocument
	Overrides []string
}

// SkippedRecord is a discovered file that failed to parse.
type SkippedRecord struct {
	FilePath     string
	ErrorType    string
	ErrorMessage string
}

// DiscoveryResult is the Discovery Pipeline's output.
type DiscoveryResult struct {
	Workflows        []DiscoveryRecord
	Fragments        []DiscoveryRecord
	Skipped          []SkippedRecord
	LocationsScanned []string
	DiscoveryTimeMs  int64
}
