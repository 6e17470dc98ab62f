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

package main

import (
	"log/slog"

	"github.com/windlass-dev/windlass/internal/cli"
	"github.com/windlass-dev/windlass/internal/commands/run"
	"github.com/windlass-dev/windlass/internal/commands/validate"
	"github.com/windlass-dev/windlass/internal/commands/workflow"
	ilog "github.com/windlass-dev/windlass/internal/log"
)

// Version information, injected via ldflags at build time.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	slog.SetDefault(ilog.New(ilog.FromEnv()))

	cli.SetVersion(version, commit, buildDate)
	root := cli.NewRootCommand()
	root.AddCommand(run.NewCommand())
	root.AddCommand(validate.NewCommand())
	root.AddCommand(workflow.NewCommand())

	if err := root.Execute(); err != nil {
		cli.HandleExitError(err)
	}
}
