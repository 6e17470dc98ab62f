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

// Package tracing sets up OpenTelemetry span export for workflow
// runs, steps, and subprocess invocations.
package tracing

import (
	"fmt"
	"os"
)

// ExporterConfig names where spans go: "console", "otlp" (gRPC),
// "otlp_http", or "" (no exporter — tracing is a no-op).
type ExporterConfig struct {
	Type       string
	Endpoint   string
	Insecure   bool
	CACertPath string
	Headers    map[string]string
}

// Config controls whether and how tracing is enabled.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	SampleRate     float64
	Exporter       ExporterConfig
}

// DefaultConfig returns tracing disabled by default (opt-in).
func DefaultConfig() Config {
	return Config{
		Enabled:        false,
		ServiceName:    "windlass",
		ServiceVersion: "unknown",
		SampleRate:     1.0,
	}
}

// FromEnv builds a Config from environment variables:
//   - WINDLASS_TRACE_EXPORTER: console, otlp, otlp_http (unset disables tracing)
//   - WINDLASS_TRACE_ENDPOINT: collector endpoint for otlp/otlp_http
//   - WINDLASS_TRACE_INSECURE: 1 to skip TLS for otlp/otlp_http
//   - WINDLASS_TRACE_SAMPLE_RATE: 0.0-1.0 (default 1.0)
func FromEnv(serviceVersion string) Config {
	cfg := DefaultConfig()
	cfg.ServiceVersion = serviceVersion

	exporterType := os.Getenv("WINDLASS_TRACE_EXPORTER")
	if exporterType == "" {
		return cfg
	}

	cfg.Enabled = true
	cfg.Exporter = ExporterConfig{
		Type:     exporterType,
		Endpoint: os.Getenv("WINDLASS_TRACE_ENDPOINT"),
		Insecure: os.Getenv("WINDLASS_TRACE_INSECURE") == "1",
	}
	if rate := os.Getenv("WINDLASS_TRACE_SAMPLE_RATE"); rate != "" {
		if parsed, ok := parseRate(rate); ok {
			cfg.SampleRate = parsed
		}
	}
	return cfg
}

func parseRate(s string) (float64, bool) {
	var f float64
	n, err := fmt.Sscanf(s, "%g", &f)
	return f, err == nil && n == 1
}
