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
	"fmt"

	"github.com/windlass-dev/windlass/internal/tracing/export"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// createExporter builds the span exporter named by cfg.Type, or
// returns a nil exporter for an empty/unknown-but-disabled type.
func createExporter(ctx context.Context, cfg ExporterConfig) (sdktrace.SpanExporter, error) {
	switch cfg.Type {
	case "console":
		return export.NewConsoleExporter()

	case "otlp":
		tlsConfig, err := export.BuildTLSConfig(export.TLSInput{Enabled: !cfg.Insecure, CACertPath: cfg.CACertPath})
		if err != nil {
			return nil, fmt.Errorf("building TLS config for OTLP exporter: %w", err)
		}
		return export.NewOTLPExporter(ctx, export.OTLPConfig{
			Endpoint:  cfg.Endpoint,
			Insecure:  cfg.Insecure,
			TLSConfig: tlsConfig,
			Headers:   cfg.Headers,
		})

	case "otlp_http":
		tlsConfig, err := export.BuildTLSConfig(export.TLSInput{Enabled: !cfg.Insecure, CACertPath: cfg.CACertPath})
		if err != nil {
			return nil, fmt.Errorf("building TLS config for OTLP HTTP exporter: %w", err)
		}
		return export.NewOTLPHTTPExporter(ctx, export.OTLPHTTPConfig{
			Endpoint:  cfg.Endpoint,
			Insecure:  cfg.Insecure,
			TLSConfig: tlsConfig,
			Headers:   cfg.Headers,
		})

	case "", "none":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown trace exporter type %q", cfg.Type)
	}
}
