// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package errors

import "fmt"

// ParseError represents a workflow-parse failure: YAML/JSON syntax,
// unknown version, missing required field, invalid step kind, or an
// unknown top-level key.
type ParseError struct {
	Path    string // file path being parsed, if known
	Reason  string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("workflow-parse error in %s: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("workflow-parse error: %s", e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Cause }
func (e *ParseError) ErrorType() string { return "workflow-parse" }
func (e *ParseError) IsRetryable() bool { return false }

// ReferenceError represents a reference-resolution failure: an unknown
// action/agent/generator/context-builder/workflow name.
type ReferenceError struct {
	Namespace   string
	Name        string
	Available   []string // up to first ten alphabetically sorted
	MoreCount   int      // "and N more" when the namespace is larger
}

func (e *ReferenceError) Error() string {
	msg := fmt.Sprintf("reference-resolution error: no %s registered with name %q", e.Namespace, e.Name)
	if len(e.Available) == 0 {
		return msg + " (registry is empty)"
	}
	msg += fmt.Sprintf("; available: %v", e.Available)
	if e.MoreCount > 0 {
		msg += fmt.Sprintf(" and %d more", e.MoreCount)
	}
	return msg
}

func (e *ReferenceError) ErrorType() string { return "reference-resolution" }
func (e *ReferenceError) IsRetryable() bool { return false }
func (e *ReferenceError) Suggestion() string {
	return fmt.Sprintf("Check the %s name for typos, or list registered components", e.Namespace)
}

// DuplicateComponentError represents registering the same name twice in
// one namespace.
type DuplicateComponentError struct {
	Namespace string
	Name      string
}

func (e *DuplicateComponentError) Error() string {
	return fmt.Sprintf("duplicate-component error: %s %q is already registered", e.Namespace, e.Name)
}

func (e *DuplicateComponentError) ErrorType() string { return "duplicate-component" }
func (e *DuplicateComponentError) IsRetryable() bool { return false }

// SemanticValidationError represents a step-level inconsistency found by
// whole-document semantic validation: dangling references inside
// expressions, step name collisions, and the like.
type SemanticValidationError struct {
	Code    string
	Path    string
	Message string
}

func (e *SemanticValidationError) Error() string {
	return fmt.Sprintf("semantic-validation error %s at %s: %s", e.Code, e.Path, e.Message)
}

func (e *SemanticValidationError) ErrorType() string { return "semantic-validation" }
func (e *SemanticValidationError) IsRetryable() bool { return false }

// ExpressionSyntaxError represents malformed `${{ ... }}` content,
// reported with the byte position of the offending character.
type ExpressionSyntaxError struct {
	Expression string
	Position   int
	Reason     string
}

func (e *ExpressionSyntaxError) Error() string {
	return fmt.Sprintf("expression-syntax error at position %d in %q: %s", e.Position, e.Expression, e.Reason)
}

func (e *ExpressionSyntaxError) ErrorType() string { return "expression-syntax" }
func (e *ExpressionSyntaxError) IsRetryable() bool { return false }

// ExpressionEvaluationError represents a syntactically valid expression
// whose reference path could not be resolved against the context: a
// missing key, an out-of-range index, or a type mismatch. It carries
// the full expression text and the sorted list of the root's available
// keys so the failing template can be fixed without a debugger.
type ExpressionEvaluationError struct {
	Expression    string
	AvailableKeys []string
	Reason        string
}

func (e *ExpressionEvaluationError) Error() string {
	return fmt.Sprintf("expression-evaluation error in %q: %s (available: %v)", e.Expression, e.Reason, e.AvailableKeys)
}

func (e *ExpressionEvaluationError) ErrorType() string { return "expression-evaluation" }
func (e *ExpressionEvaluationError) IsRetryable() bool { return false }

// StepExecutionError wraps a handler failure into a StepResult.error
// string. It never escapes the executor's public surface; it is
// formatted into a plain string at the call site.
type StepExecutionError struct {
	StepName string
	Kind     string
	Cause    error
}

func (e *StepExecutionError) Error() string {
	return fmt.Sprintf("step %q (%s) failed: %s", e.StepName, e.Kind, e.Cause)
}

func (e *StepExecutionError) Unwrap() error { return e.Cause }
func (e *StepExecutionError) ErrorType() string { return "step-execution" }
func (e *StepExecutionError) IsRetryable() bool { return false }
func (e *StepExecutionError) Suggestion() string { return "Check the step configuration" }

// CheckpointNotFoundError represents a resume attempt with no checkpoint
// on record for the given workflow name.
type CheckpointNotFoundError struct {
	WorkflowName string
}

func (e *CheckpointNotFoundError) Error() string {
	return fmt.Sprintf("checkpoint-not-found error: no checkpoint recorded for workflow %q", e.WorkflowName)
}

func (e *CheckpointNotFoundError) ErrorType() string { return "checkpoint-not-found" }
func (e *CheckpointNotFoundError) IsRetryable() bool { return false }

// InputMismatchError represents a resume attempt whose supplied inputs
// hash differently than the checkpoint's recorded input hash.
type InputMismatchError struct {
	WorkflowName string
	Expected     string
	Actual       string
}

func (e *InputMismatchError) Error() string {
	return fmt.Sprintf("input-mismatch error: inputs for workflow %q hash to %s, checkpoint expects %s", e.WorkflowName, e.Actual, e.Expected)
}

func (e *InputMismatchError) ErrorType() string { return "input-mismatch" }
func (e *InputMismatchError) IsRetryable() bool { return false }
func (e *InputMismatchError) Suggestion() string {
	return "Re-run with --restart to discard the checkpoint, or supply the original inputs"
}

// PreflightFailedError represents one or more failed prerequisite
// checks that abort a run before any step executes.
type PreflightFailedError struct {
	FailedChecks []string
}

func (e *PreflightFailedError) Error() string {
	return fmt.Sprintf("preflight-failed error: checks failed: %v", e.FailedChecks)
}

func (e *PreflightFailedError) ErrorType() string { return "preflight-failed" }
func (e *PreflightFailedError) IsRetryable() bool { return false }

// WorkingDirectoryError represents a subprocess cwd that does not exist.
type WorkingDirectoryError struct {
	Path string
}

func (e *WorkingDirectoryError) Error() string {
	return fmt.Sprintf("working-directory error: %q does not exist", e.Path)
}

func (e *WorkingDirectoryError) ErrorType() string { return "working-directory" }
func (e *WorkingDirectoryError) IsRetryable() bool { return false }

// CancelledError represents cooperative cancellation observed by the
// executor or the subprocess runner.
type CancelledError struct {
	Operation string
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("cancelled error: %s was cancelled", e.Operation)
}

func (e *CancelledError) ErrorType() string { return "cancelled" }
func (e *CancelledError) IsRetryable() bool { return false }
