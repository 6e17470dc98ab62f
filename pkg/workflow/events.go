package workflow

import "time"

// EventType names one point in the executor's total-ordered event
// stream.
type EventType string

const (
	EventValidationStarted   EventType = "ValidationStarted"
	EventValidationCompleted EventType = "ValidationCompleted"
	EventValidationFailed    EventType = "ValidationFailed"
	EventPreflightStarted    EventType = "PreflightStarted"
	EventPreflightCheckPassed EventType = "PreflightCheckPassed"
	EventPreflightCheckFailed EventType = "PreflightCheckFailed"
	EventPreflightCompleted  EventType = "PreflightCompleted"
	EventWorkflowStarted     EventType = "WorkflowStarted"
	EventStepStarted         EventType = "StepStarted"
	EventStepCompleted       EventType = "StepCompleted"
	EventStepSkipped         EventType = "StepSkipped"
	EventStepOutput          EventType = "StepOutput"
	EventAgentStreamChunk    EventType = "AgentStreamChunk"
	EventCheckpointSaved     EventType = "CheckpointSaved"
	EventRollbackStarted     EventType = "RollbackStarted"
	EventRollbackCompleted   EventType = "RollbackCompleted"
	EventRollbackError       EventType = "RollbackError"
	EventWorkflowCompleted   EventType = "WorkflowCompleted"
)

// Event is one entry in the executor's event stream. Only the fields
// relevant to Type are populated; the session journal writer emits one
// JSON object per line, in emission order.
type Event struct {
	Type       EventType   `json:"type"`
	Timestamp  time.Time   `json:"timestamp"`
	StepName   string      `json:"step_name,omitempty"`
	Kind       StepKind    `json:"kind,omitempty"`
	Success    *bool       `json:"success,omitempty"`
	Error      string      `json:"error,omitempty"`
	Output     interface{} `json:"output,omitempty"`
	DurationMs int64       `json:"duration_ms,omitempty"`
	CheckName  string      `json:"check_name,omitempty"`
	Reason     string      `json:"reason,omitempty"`

	// Chunk carries one AgentStreamChunk fragment, as-is.
	Chunk string `json:"chunk,omitempty"`

	// CheckpointID identifies the snapshot a CheckpointSaved event
	// refers to.
	CheckpointID string `json:"checkpoint_id,omitempty"`
}

func newEvent(t EventType) Event {
	return Event{Type: t, Timestamp: time.Now()}
}

// EventSink receives executor events in emission order. The executor
// never blocks waiting on a sink beyond the call itself.
type EventSink func(Event)

func boolPtr(b bool) *bool { return &b }
