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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/windlass-dev/windlass/internal/commands/shared"
	ilog "github.com/windlass-dev/windlass/internal/log"
	"github.com/windlass-dev/windlass/internal/metrics"
	"github.com/windlass-dev/windlass/internal/tracing"
	"github.com/windlass-dev/windlass/pkg/checkpoint"
	"github.com/windlass-dev/windlass/pkg/discovery"
	werrors "github.com/windlass-dev/windlass/pkg/errors"
	"github.com/windlass-dev/windlass/pkg/preflight"
	"github.com/windlass-dev/windlass/pkg/registry"
	"github.com/windlass-dev/windlass/pkg/workflow"
	"github.com/windlass-dev/windlass/pkg/workflow/schema"
)

// deps is the composition root built for a single `run` invocation: a
// populated registry, a checkpoint store, and a preflight runner,
// wired behind pkg/workflow's plain interfaces via the adapters in
// pkg/workflow/{registry,checkpoint,preflight}_adapter.go.
type deps struct {
	reg         *registry.Registry
	lookup      workflow.ComponentLookup
	checkpoints workflow.CheckpointStore
	rawStore    checkpoint.Store
	preflight   workflow.PreflightRunner
}

func buildDeps() (*deps, error) {
	reg := registry.New()
	if err := registry.RegisterBuiltins(reg); err != nil {
		return nil, fmt.Errorf("registering builtin actions: %w", err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolving home directory: %w", err)
	}
	store := checkpoint.NewFileStore(filepath.Join(home, ".windlass", "checkpoints"))
	pf := preflight.New(nil)

	return &deps{
		reg:         reg,
		lookup:      workflow.NewRegistryAdapter(reg),
		checkpoints: workflow.NewCheckpointAdapter(store),
		rawStore:    store,
		preflight:   workflow.NewPreflightAdapter(pf),
	}, nil
}

// resolveWorkflowPath treats nameOrPath as a file path first; if no
// such file exists, it is looked up by name across the discovery
// roots in project > user > builtin precedence.
func resolveWorkflowPath(nameOrPath string) (string, error) {
	if _, err := os.Stat(nameOrPath); err == nil {
		return nameOrPath, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	sources := []discovery.Source{
		{Kind: workflow.SourceProject, Root: filepath.Join(".windlass", "workflows")},
	}
	if home != "" {
		sources = append(sources, discovery.Source{Kind: workflow.SourceUser, Root: filepath.Join(home, ".config", "windlass", "workflows")})
	}
	sources = append(sources, discovery.Source{Kind: workflow.SourceBuiltin, Root: filepath.Join("share", "windlass", "workflows")})

	result, err := discovery.Run(discovery.OSFS{}, sources, schema.Parse)
	if err != nil {
		return "", fmt.Errorf("discovering workflows: %w", err)
	}
	for _, rec := range result.Workflows {
		if rec.Workflow != nil && rec.Workflow.Name == nameOrPath {
			return rec.FilePath, nil
		}
	}
	return "", fmt.Errorf("no workflow file and no registered workflow named %q", nameOrPath)
}

func loadWorkflow(path string) (*workflow.WorkflowDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return schema.Parse(path, data)
}

// selectSteps narrows doc.Steps to start at the named or 1-based index
// step, per --step. An empty selector is a no-op.
func selectSteps(doc *workflow.WorkflowDocument, selector string) error {
	if selector == "" {
		return nil
	}
	for i, step := range doc.Steps {
		if step.Name == selector {
			doc.Steps = doc.Steps[i:]
			return nil
		}
	}
	var idx int
	if _, err := fmt.Sscanf(selector, "%d", &idx); err == nil && idx >= 1 && idx <= len(doc.Steps) {
		doc.Steps = doc.Steps[idx-1:]
		return nil
	}
	return fmt.Errorf("no step named or indexed %q", selector)
}

func listSteps(doc *workflow.WorkflowDocument) {
	for i, step := range doc.Steps {
		fmt.Printf("%d. %s (%s)\n", i+1, step.Name, step.Kind)
	}
}

// sessionJournal writes the session log format named in the CLI
// surface: a header, one JSON event per line, and a closing summary.
type sessionJournal struct {
	file *os.File
	enc  *json.Encoder
}

func newSessionJournal(path string, workflowName string, inputs map[string]interface{}) (*sessionJournal, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating session log %s: %w", path, err)
	}
	enc := json.NewEncoder(f)
	if err := enc.Encode(map[string]interface{}{"workflow": workflowName, "inputs": inputs}); err != nil {
		f.Close()
		return nil, err
	}
	return &sessionJournal{file: f, enc: enc}, nil
}

func (j *sessionJournal) sink(ev workflow.Event) {
	if j == nil {
		return
	}
	_ = j.enc.Encode(ev)
}

func (j *sessionJournal) close(success bool, totalDurationMs int64) error {
	if j == nil {
		return nil
	}
	defer j.file.Close()
	return j.enc.Encode(map[string]interface{}{"success": success, "total_duration_ms": totalDurationMs})
}

// fanoutSink combines any number of event sinks into one, skipping
// nil entries so callers can pass an optional sink unconditionally.
func fanoutSink(sinks ...workflow.EventSink) workflow.EventSink {
	return func(e workflow.Event) {
		for _, s := range sinks {
			if s != nil {
				s(e)
			}
		}
	}
}

// checkpointExists reports whether a checkpoint is already on record
// for workflowName/checkpointID, distinguishing "not found" (a normal
// first run) from any other store error.
func checkpointExists(ctx context.Context, store checkpoint.Store, workflowName, checkpointID string) (bool, error) {
	_, err := store.Load(ctx, workflowName, checkpointID)
	if err == nil {
		return true, nil
	}
	var notFound *werrors.CheckpointNotFoundError
	if errors.As(err, &notFound) {
		return false, nil
	}
	return false, err
}

// runWorkflow is the full composition root for the `run` command:
// resolve the file, parse it, optionally validate, build the
// component registry/checkpoint/preflight wiring, and execute.
func runWorkflow(ctx context.Context, nameOrPath string, opts runOptions) (*workflow.WorkflowResult, error) {
	path, err := resolveWorkflowPath(nameOrPath)
	if err != nil {
		return nil, shared.NewUsageError("resolving workflow", err)
	}

	doc, err := loadWorkflow(path)
	if err != nil {
		return nil, shared.NewUsageError("parsing workflow", err)
	}

	if opts.listSteps {
		listSteps(doc)
		return nil, nil
	}
	if err := selectSteps(doc, opts.step); err != nil {
		return nil, shared.NewUsageError("selecting step", err)
	}

	inputs, err := parseInputs(opts.inputArgs, opts.inputFile)
	if err != nil {
		return nil, shared.NewUsageError("parsing inputs", err)
	}

	d, err := buildDeps()
	if err != nil {
		return nil, shared.NewFailureError("building runtime", err)
	}

	runID := uuid.NewString()
	logger := ilog.WithRunContext(slog.Default(), runID, doc.Name)

	checkpointID := doc.Name
	resume := false
	if opts.restart {
		if err := d.rawStore.Delete(ctx, doc.Name, checkpointID); err != nil {
			return nil, shared.NewFailureError("deleting checkpoint for --restart", err)
		}
	} else {
		exists, err := checkpointExists(ctx, d.rawStore, doc.Name, checkpointID)
		if err != nil {
			return nil, shared.NewFailureError("checking for an existing checkpoint", err)
		}
		resume = exists
	}

	journal, err := newSessionJournal(opts.sessionLog, doc.Name, inputs)
	if err != nil {
		return nil, shared.NewFailureError("opening session log", err)
	}

	observabilitySink, shutdownObservability, err := buildObservability(ctx, doc.Name)
	if err != nil {
		return nil, shared.NewFailureError("starting observability", err)
	}
	defer shutdownObservability()

	lookup := newLoggingLookup(d.lookup, ilog.NewInvocationMiddleware(logger))
	exec := workflow.NewExecutor(lookup, d.checkpoints, d.preflight, schema.ValidateForExecutor, logger)

	execOpts := workflow.ExecuteOptions{
		ValidateSemantic: !opts.noValidate,
		Resume:           resume,
		CheckpointID:     checkpointID,
		DryRun:           opts.dryRun,
	}

	var journalSink workflow.EventSink
	if journal != nil {
		journalSink = journal.sink
	}
	sink := fanoutSink(journalSink, observabilitySink)

	result, runErr := exec.Execute(ctx, doc, inputs, execOpts, sink)
	if journal != nil {
		var durationMs int64
		success := false
		if result != nil {
			durationMs = result.TotalDurationMs
			success = result.Success
		}
		if closeErr := journal.close(success, durationMs); closeErr != nil {
			logger.Warn("failed to close session log", "error", closeErr)
		}
	}
	if runErr != nil {
		return result, shared.NewFailureError("executing workflow", runErr)
	}
	return result, nil
}

// buildObservability wires Prometheus metrics and OpenTelemetry
// tracing into the run: the returned EventSink records step/workflow
// duration and outcome, and a span per workflow/step is emitted
// alongside it. Both are opt-in via WINDLASS_TRACE_EXPORTER; metrics
// recording always runs since it carries no external dependency
// beyond the in-process Prometheus registry.
func buildObservability(ctx context.Context, workflowName string) (workflow.EventSink, func(), error) {
	m, err := metrics.New()
	if err != nil {
		return nil, nil, fmt.Errorf("building metrics: %w", err)
	}

	version, _, _ := shared.GetVersion()
	provider, err := tracing.NewProvider(ctx, tracing.FromEnv(version))
	if err != nil {
		return nil, nil, fmt.Errorf("building tracer provider: %w", err)
	}
	traceSink := tracing.NewSink(ctx, provider.Tracer("github.com/windlass-dev/windlass"), workflowName)

	sink := fanoutSink(m.Observer(workflowName), traceSink.Observe)
	shutdown := func() {
		_ = provider.Shutdown(ctx)
		_ = m.Shutdown(ctx)
	}
	return sink, shutdown, nil
}
