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

package cli

import (
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/windlass-dev/windlass/internal/commands/shared"
	log "github.com/windlass-dev/windlass/internal/log"
)

// SetVersion sets the version information, called from main.
func SetVersion(v, c, b string) {
	shared.SetVersion(v, c, b)
}

// NewRootCommand builds the root Cobra command.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "windlass",
		Short: "Windlass - declarative workflow orchestration",
		Long: `Windlass runs declarative, YAML-defined workflows: sequences of
python/agent/generate/validate/subworkflow/branch/parallel/checkpoint
steps, with preflight checks, checkpoint/resume, and a component
registry of actions, agents, generators, and context builders.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// --verbose and --quiet override the environment-derived
			// level for this invocation.
			if shared.GetVerbose() {
				cfg := log.FromEnv()
				cfg.Level = "debug"
				slog.SetDefault(log.New(cfg))
			} else if shared.GetQuiet() {
				cfg := log.FromEnv()
				cfg.Level = "error"
				slog.SetDefault(log.New(cfg))
			}
		},
	}

	// Accept underscore spellings (--session_log) as their dashed
	// equivalents.
	cmd.SetGlobalNormalizationFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	verbose, quiet, jsonOut := shared.RegisterFlagPointers()
	cmd.PersistentFlags().BoolVarP(verbose, "verbose", "v", false, "Enable verbose output")
	cmd.PersistentFlags().BoolVarP(quiet, "quiet", "q", false, "Suppress non-error output")
	cmd.PersistentFlags().BoolVar(jsonOut, "json", false, "Output in JSON format")

	return cmd
}

// GetVersion returns version information.
func GetVersion() (string, string, string) {
	return shared.GetVersion()
}

// HandleExitError prints err and exits with its carried code.
func HandleExitError(err error) {
	shared.HandleExitError(err)
}
