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

package errors_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	werrors "github.com/windlass-dev/windlass/pkg/errors"
)

func TestErrorTypes(t *testing.T) {
	tests := []struct {
		name     string
		err      werrors.Classifier
		wantType string
		wantMsg  string
	}{
		{
			name:     "parse error with path",
			err:      &werrors.ParseError{Path: "deploy.yaml", Reason: "unknown version \"2.0\""},
			wantType: "workflow-parse",
			wantMsg:  `workflow-parse error in deploy.yaml: unknown version "2.0"`,
		},
		{
			name:     "parse error without path",
			err:      &werrors.ParseError{Reason: "steps must not be empty"},
			wantType: "workflow-parse",
			wantMsg:  "workflow-parse error: steps must not be empty",
		},
		{
			name:     "reference error lists available names",
			err:      &werrors.ReferenceError{Namespace: "actions", Name: "uppercse", Available: []string{"concat", "uppercase"}},
			wantType: "reference-resolution",
			wantMsg:  `reference-resolution error: no actions registered with name "uppercse"; available: [concat uppercase]`,
		},
		{
			name:     "reference error truncation",
			err:      &werrors.ReferenceError{Namespace: "agents", Name: "x", Available: []string{"a"}, MoreCount: 3},
			wantType: "reference-resolution",
			wantMsg:  `reference-resolution error: no agents registered with name "x"; available: [a] and 3 more`,
		},
		{
			name:     "duplicate component",
			err:      &werrors.DuplicateComponentError{Namespace: "generators", Name: "summary"},
			wantType: "duplicate-component",
			wantMsg:  `duplicate-component error: generators "summary" is already registered`,
		},
		{
			name:     "step execution wraps the cause",
			err:      &werrors.StepExecutionError{StepName: "build", Kind: "python", Cause: fmt.Errorf("boom")},
			wantType: "step-execution",
			wantMsg:  `step "build" (python) failed: boom`,
		},
		{
			name:     "input mismatch",
			err:      &werrors.InputMismatchError{WorkflowName: "deploy", Expected: "aa", Actual: "bb"},
			wantType: "input-mismatch",
			wantMsg:  `input-mismatch error: inputs for workflow "deploy" hash to bb, checkpoint expects aa`,
		},
		{
			name:     "working directory",
			err:      &werrors.WorkingDirectoryError{Path: "/nope"},
			wantType: "working-directory",
			wantMsg:  `working-directory error: "/nope" does not exist`,
		},
		{
			name:     "cancelled",
			err:      &werrors.CancelledError{Operation: "step build"},
			wantType: "cancelled",
			wantMsg:  "cancelled error: step build was cancelled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.err.ErrorType())
			assert.Equal(t, tt.wantMsg, tt.err.Error())
			assert.False(t, tt.err.IsRetryable())
		})
	}
}

func TestTypeOf(t *testing.T) {
	inner := &werrors.ReferenceError{Namespace: "actions", Name: "missing"}
	wrapped := fmt.Errorf("resolving step: %w", inner)

	assert.Equal(t, "reference-resolution", werrors.TypeOf(wrapped))
	assert.Equal(t, "", werrors.TypeOf(fmt.Errorf("plain")))
}

func TestSuggestionFor(t *testing.T) {
	stepErr := &werrors.StepExecutionError{StepName: "build", Kind: "python", Cause: fmt.Errorf("boom")}
	assert.Equal(t, "Check the step configuration", werrors.SuggestionFor(fmt.Errorf("run: %w", stepErr)))

	assert.Equal(t, "", werrors.SuggestionFor(&werrors.CancelledError{Operation: "run"}))
}

func TestStepExecutionErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("exit status 3")
	err := &werrors.StepExecutionError{StepName: "lint", Kind: "validate", Cause: cause}
	assert.ErrorIs(t, err, cause)
}
