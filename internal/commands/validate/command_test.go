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

package validate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/windlass-dev/windlass/internal/commands/shared"
)

func writeWorkflow(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "workflow.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing test workflow: %v", err)
	}
	return path
}

func TestNewCommandUsage(t *testing.T) {
	cmd := NewCommand()
	if cmd.Use != "validate <path>" {
		t.Errorf("expected use 'validate <path>', got %q", cmd.Use)
	}
}

func TestValidateAcceptsWellFormedWorkflow(t *testing.T) {
	path := writeWorkflow(t, `version: "1.0"
name: greet
steps:
  - name: say_hello
    type: python
    action: utility
`)

	if err := runValidate(path); err != nil {
		t.Fatalf("expected a well-formed workflow to validate, got: %v", err)
	}
}

func TestValidateRejectsUnknownActionReference(t *testing.T) {
	path := writeWorkflow(t, `version: "1.0"
name: greet
steps:
  - name: say_hello
    type: python
    action: does_not_exist
`)

	err := runValidate(path)
	if err == nil {
		t.Fatal("expected an unknown action reference to fail validation")
	}
	exitErr, ok := err.(*shared.ExitError)
	if !ok {
		t.Fatalf("expected *shared.ExitError, got %T", err)
	}
	if exitErr.Code != shared.ExitFailure {
		t.Errorf("expected exit code %d, got %d", shared.ExitFailure, exitErr.Code)
	}
}

func TestValidateRejectsMalformedYAML(t *testing.T) {
	path := writeWorkflow(t, `version: "1.0
name: broken
`)

	err := runValidate(path)
	if err == nil {
		t.Fatal("expected malformed YAML to fail validation")
	}
}

func TestValidateRejectsMissingFile(t *testing.T) {
	err := runValidate(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected a missing file to fail validation")
	}
	exitErr, ok := err.(*shared.ExitError)
	if !ok {
		t.Fatalf("expected *shared.ExitError, got %T", err)
	}
	if exitErr.Code != shared.ExitUsageError {
		t.Errorf("expected exit code %d for a missing file, got %d", shared.ExitUsageError, exitErr.Code)
	}
}
