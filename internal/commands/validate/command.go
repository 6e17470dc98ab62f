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
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/windlass-dev/windlass/internal/commands/shared"
	"github.com/windlass-dev/windlass/pkg/registry"
	"github.com/windlass-dev/windlass/pkg/workflow/schema"
)

// NewCommand creates the `validate` command.
func NewCommand() *cobra.Command {
	var printSchema bool

	cmd := &cobra.Command{
		Use:   "validate <path>",
		Short: "Parse and semantically validate a workflow file",
		Long: `Validate parses a workflow file and semantically validates it against
a registry snapshot populated with the builtin actions: every action/
agent/generator/context_builder/workflow reference must resolve, and
every steps.<name> reference inside an expression must name a step
that has already executed by that point in the document.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if printSchema {
				fmt.Print(schema.EmbeddedSchemaString())
				return nil
			}
			if len(args) != 1 {
				return shared.NewUsageError("a workflow path is required", nil)
			}
			return runValidate(args[0])
		},
	}
	cmd.Flags().BoolVar(&printSchema, "print-schema", false, "Print the workflow document JSON Schema and exit")
	return cmd
}

func runValidate(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return shared.NewUsageError("reading workflow file", err)
	}

	doc, err := schema.Parse(path, data)
	if err != nil {
		fmt.Printf("INVALID: %s\n", err)
		return shared.NewFailureError("workflow is invalid", nil)
	}

	reg := registry.New()
	if err := registry.RegisterBuiltins(reg); err != nil {
		return shared.NewFailureError("registering builtin actions", err)
	}
	lookup := schema.NewRegistryAdapter(reg)

	result := schema.Validate(doc, lookup)

	if shared.GetJSON() {
		return emitValidateJSON(doc.Name, result)
	}

	for _, w := range result.Warnings {
		fmt.Printf("WARNING: %s\n", w.Error())
	}
	for _, e := range result.Errors {
		fmt.Printf("ERROR: %s\n", e.Error())
	}

	if !result.Valid() {
		fmt.Printf("INVALID: %s (%d errors, %d warnings)\n", doc.Name, len(result.Errors), len(result.Warnings))
		return shared.NewFailureError("workflow is invalid", nil)
	}

	fmt.Printf("VALID: %s (%d warnings)\n", doc.Name, len(result.Warnings))
	return nil
}

// emitValidateJSON renders the validation outcome as a JSON envelope.
// An invalid workflow still exits 1 via the returned failure error.
func emitValidateJSON(name string, result schema.ValidationResult) error {
	if result.Valid() {
		return shared.EmitJSON(shared.JSONResponse{Version: "1.0", Command: "validate", Success: true})
	}

	errs := make([]shared.JSONError, 0, len(result.Errors))
	for _, e := range result.Errors {
		errs = append(errs, shared.JSONError{
			Code:       e.Code,
			Message:    e.Message,
			Suggestion: "Check the step configuration",
		})
	}
	if err := shared.EmitJSONError("validate", errs); err != nil {
		return err
	}
	return shared.NewFailureError(fmt.Sprintf("workflow %q is invalid", name), nil)
}
