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

package workflow

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/windlass-dev/windlass/internal/commands/shared"
	"github.com/windlass-dev/windlass/pkg/discovery"
	wf "github.com/windlass-dev/windlass/pkg/workflow"
	"github.com/windlass-dev/windlass/pkg/workflow/schema"
)

// NewCommand creates the `workflow` command group.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Inspect discoverable workflows",
	}
	cmd.AddCommand(newListCommand())
	return cmd
}

func newListCommand() *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Run discovery and print the stable sorted workflow listing",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(source)
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "Restrict discovery to one source: builtin, user, or project")
	return cmd
}

func discoverySources() ([]discovery.Source, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolving home directory: %w", err)
	}
	return []discovery.Source{
		{Kind: wf.SourceProject, Root: filepath.Join(".windlass", "workflows")},
		{Kind: wf.SourceUser, Root: filepath.Join(home, ".config", "windlass", "workflows")},
		{Kind: wf.SourceBuiltin, Root: filepath.Join("share", "windlass", "workflows")},
	}, nil
}

func runList(source string) error {
	sources, err := discoverySources()
	if err != nil {
		return shared.NewFailureError("resolving discovery roots", err)
	}
	if source != "" {
		filtered := sources[:0]
		for _, s := range sources {
			if string(s.Kind) == source {
				filtered = append(filtered, s)
			}
		}
		if len(filtered) == 0 {
			return shared.NewUsageError("invalid --source", fmt.Errorf("must be one of builtin, user, project"))
		}
		sources = filtered
	}

	result, err := discovery.Run(discovery.OSFS{}, sources, schema.Parse)
	if err != nil {
		return shared.NewFailureError("running discovery", err)
	}

	if shared.GetJSON() {
		return emitListJSON(result)
	}

	for _, rec := range result.Workflows {
		line := fmt.Sprintf("%-30s %-10s %s", rec.Workflow.Name, rec.Source, rec.FilePath)
		if len(rec.Overrides) > 0 {
			line += fmt.Sprintf(" (overrides %v)", rec.Overrides)
		}
		fmt.Println(line)
	}
	for _, skipped := range result.Skipped {
		fmt.Printf("SKIPPED %s: %s: %s\n", skipped.FilePath, skipped.ErrorType, skipped.ErrorMessage)
	}
	return nil
}

type listedWorkflow struct {
	Name      string   `json:"name"`
	Source    string   `json:"source"`
	FilePath  string   `json:"file_path"`
	Overrides []string `json:"overrides,omitempty"`
}

type listedSkip struct {
	FilePath     string `json:"file_path"`
	ErrorType    string `json:"error_type"`
	ErrorMessage string `json:"error_message"`
}

func emitListJSON(result *wf.DiscoveryResult) error {
	type listResponse struct {
		shared.JSONResponse
		Workflows []listedWorkflow `json:"workflows"`
		Skipped   []listedSkip     `json:"skipped"`
	}

	resp := listResponse{
		JSONResponse: shared.JSONResponse{Version: "1.0", Command: "workflow list", Success: true},
		Workflows:    make([]listedWorkflow, 0, len(result.Workflows)),
		Skipped:      make([]listedSkip, 0, len(result.Skipped)),
	}
	for _, rec := range result.Workflows {
		resp.Workflows = append(resp.Workflows, listedWorkflow{
			Name:      rec.Workflow.Name,
			Source:    string(rec.Source),
			FilePath:  rec.FilePath,
			Overrides: rec.Overrides,
		})
	}
	for _, skipped := range result.Skipped {
		resp.Skipped = append(resp.Skipped, listedSkip{
			FilePath:     skipped.FilePath,
			ErrorType:    skipped.ErrorType,
			ErrorMessage: skipped.ErrorMessage,
		})
	}
	return shared.EmitJSON(resp)
}
