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

package run

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/windlass-dev/windlass/internal/cli/format"
	"github.com/windlass-dev/windlass/internal/commands/shared"
	werrors "github.com/windlass-dev/windlass/pkg/errors"
	"github.com/windlass-dev/windlass/pkg/workflow"
)

// runOptions holds the run command's flags, threaded through to
// runWorkflow unchanged.
type runOptions struct {
	inputArgs  []string
	inputFile  string
	dryRun     bool
	restart    bool
	noValidate bool
	listSteps  bool
	step       string
	sessionLog string
}

// NewCommand creates the `run` command.
func NewCommand() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run <name-or-path>",
		Short: "Execute a workflow",
		Long: `Run parses and executes a workflow file (or a workflow already
discovered under a project/user/builtin workflows directory), driving
it to terminal state through the workflow executor: preflight checks,
sequential step dispatch, checkpoint saves, and LIFO rollback on
failure.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := runWorkflow(cmd.Context(), args[0], opts)
			if err != nil {
				if suggestion := werrors.SuggestionFor(err); suggestion != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s\n", suggestion)
				}
				return err
			}
			if opts.listSteps || result == nil {
				return nil
			}
			printSummary(result)
			if !result.Success {
				printFailureBlock(result)
				return shared.NewFailureError(fmt.Sprintf("workflow %q did not complete successfully", result.WorkflowName), nil)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&opts.inputArgs, "input", "i", nil, "Workflow input in KEY=VALUE format (value parsed as JSON if well-formed)")
	cmd.Flags().StringVar(&opts.inputFile, "input-file", "", "JSON file with inputs (use '-' for stdin)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Evaluate conditions and dispatch without invoking real actions")
	cmd.Flags().BoolVar(&opts.restart, "restart", false, "Delete any existing checkpoint and start a fresh run")
	cmd.Flags().BoolVar(&opts.noValidate, "no-validate", false, "Skip semantic validation before executing")
	cmd.Flags().BoolVar(&opts.listSteps, "list-steps", false, "List the workflow's steps and exit without running")
	cmd.Flags().StringVar(&opts.step, "step", "", "Start execution at the named or 1-based index step")
	cmd.Flags().StringVar(&opts.sessionLog, "session-log", "", "Write a JSON-lines session journal to PATH")

	return cmd
}

// printSummary renders the terminal outcome, using color only when
// stdout is an interactive terminal.
func printSummary(result *workflow.WorkflowResult) {
	status := "FAILED"
	color := "\x1b[31m"
	if result.Success {
		status = "OK"
		color = "\x1b[32m"
	}

	fmt.Printf("%s: %s (%d steps, %dms)\n", format.Colorize(color, result.WorkflowName), status, len(result.StepResults), result.TotalDurationMs)
}

// printFailureBlock renders the failing step's name and error, plus a
// suggestion when the error carries one.
func printFailureBlock(result *workflow.WorkflowResult) {
	for _, sr := range result.StepResults {
		if sr.Success {
			continue
		}
		fmt.Printf("\nStep %q failed:\n  %s\n", sr.Name, sr.Error)
		fmt.Println("  Check the step configuration")
		break
	}
	for _, re := range result.RollbackErrors {
		fmt.Printf("Rollback for %q failed: %s\n", re.StepName, re.Error)
	}
}
