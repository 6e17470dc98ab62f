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

package tracing

import (
	"context"
	"sync"

	"github.com/windlass-dev/windlass/pkg/workflow"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Sink turns an executor event stream into a root span per workflow
// run and a child span per step, keeping the OTel exporter stack
// entirely out of pkg/workflow. Built once per run.
type Sink struct {
	tracer trace.Tracer

	mu       sync.Mutex
	rootCtx  context.Context
	rootSpan trace.Span
	steps    map[string]trace.Span

	// workflowDepth tracks WorkflowStarted/WorkflowCompleted nesting:
	// sub-workflow runs emit their boundary events into the same
	// stream, and only the outermost completion ends the root span.
	workflowDepth int
}

// NewSink opens the root span for a workflow run, named after
// workflowName, and returns a Sink whose Observe method feeds it
// child spans as step events arrive.
func NewSink(ctx context.Context, tracer trace.Tracer, workflowName string) *Sink {
	rootCtx, rootSpan := tracer.Start(ctx, "workflow."+workflowName)
	return &Sink{
		tracer:   tracer,
		rootCtx:  rootCtx,
		rootSpan: rootSpan,
		steps:    make(map[string]trace.Span),
	}
}

// Observe implements workflow.EventSink.
func (s *Sink) Observe(e workflow.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch e.Type {
	case workflow.EventWorkflowStarted:
		s.workflowDepth++

	case workflow.EventStepStarted:
		_, span := s.tracer.Start(s.rootCtx, "step."+e.StepName,
			trace.WithAttributes(attribute.String("step.kind", string(e.Kind))))
		s.steps[e.StepName] = span

	case workflow.EventStepCompleted:
		span, ok := s.steps[e.StepName]
		if !ok {
			return
		}
		delete(s.steps, e.StepName)
		span.SetAttributes(attribute.Int64("step.duration_ms", e.DurationMs))
		if e.Success != nil && !*e.Success {
			span.SetStatus(codes.Error, e.Error)
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()

	case workflow.EventStepSkipped:
		_, span := s.tracer.Start(s.rootCtx, "step."+e.StepName,
			trace.WithAttributes(attribute.String("step.kind", string(e.Kind)), attribute.Bool("step.skipped", true)))
		span.End()

	case workflow.EventWorkflowCompleted:
		s.workflowDepth--
		if s.workflowDepth > 0 {
			return
		}
		s.rootSpan.SetAttributes(attribute.Int64("workflow.duration_ms", e.DurationMs))
		if e.Success != nil && !*e.Success {
			s.rootSpan.SetStatus(codes.Error, "")
		} else {
			s.rootSpan.SetStatus(codes.Ok, "")
		}
		s.rootSpan.End()
	}
}
