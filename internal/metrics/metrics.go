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

// Package metrics records step and workflow duration/outcome via an
// OpenTelemetry meter bridged to the default Prometheus registry.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/windlass-dev/windlass/pkg/workflow"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics holds the instruments recorded across workflow runs. One
// instance is shared process-wide; the Prometheus exporter registers
// into the default registry on construction.
type Metrics struct {
	mp *sdkmetric.MeterProvider

	stepDuration     metric.Float64Histogram
	stepOutcome      metric.Int64Counter
	workflowDuration metric.Float64Histogram
	workflowOutcome  metric.Int64Counter
}

// New builds the meter provider and instruments.
func New() (*Metrics, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := mp.Meter("github.com/windlass-dev/windlass")

	stepDuration, err := meter.Float64Histogram("windlass.step.duration",
		metric.WithDescription("Step execution duration in seconds"), metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	stepOutcome, err := meter.Int64Counter("windlass.step.outcome",
		metric.WithDescription("Step completions by success/failure"))
	if err != nil {
		return nil, err
	}
	workflowDuration, err := meter.Float64Histogram("windlass.workflow.duration",
		metric.WithDescription("Workflow run duration in seconds"), metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	workflowOutcome, err := meter.Int64Counter("windlass.workflow.outcome",
		metric.WithDescription("Workflow completions by success/failure"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		mp:               mp,
		stepDuration:     stepDuration,
		stepOutcome:      stepOutcome,
		workflowDuration: workflowDuration,
		workflowOutcome:  workflowOutcome,
	}, nil
}

// Handler exposes the Prometheus scrape endpoint for the metrics
// registered by New.
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}

// Shutdown flushes and releases the meter provider.
func (m *Metrics) Shutdown(ctx context.Context) error {
	return m.mp.Shutdown(ctx)
}

// Observer returns an EventSink that records step/workflow duration
// and outcome for workflowName as the executor's events arrive.
// Sub-workflow boundary events are counted but only the outermost
// completion records the workflow-level metrics.
func (m *Metrics) Observer(workflowName string) workflow.EventSink {
	var mu sync.Mutex
	depth := 0
	return func(e workflow.Event) {
		ctx := context.Background()
		switch e.Type {
		case workflow.EventWorkflowStarted:
			mu.Lock()
			depth++
			mu.Unlock()

		case workflow.EventStepCompleted:
			success := e.Success == nil || *e.Success
			attrs := metric.WithAttributes(
				attribute.String("workflow", workflowName),
				attribute.String("step", e.StepName),
				attribute.String("kind", string(e.Kind)),
				attribute.Bool("success", success),
			)
			m.stepDuration.Record(ctx, float64(e.DurationMs)/1000, attrs)
			m.stepOutcome.Add(ctx, 1, attrs)

		case workflow.EventWorkflowCompleted:
			mu.Lock()
			depth--
			outermost := depth <= 0
			mu.Unlock()
			if !outermost {
				return
			}
			success := e.Success != nil && *e.Success
			attrs := metric.WithAttributes(
				attribute.String("workflow", workflowName),
				attribute.Bool("success", success),
			)
			m.workflowDuration.Record(ctx, float64(e.DurationMs)/1000, attrs)
			m.workflowOutcome.Add(ctx, 1, attrs)
		}
	}
}
