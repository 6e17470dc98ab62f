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

package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: "info", Format: FormatJSON, Output: &buf})

	logger.Info("hello", slog.String("workflow", "deploy"))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "deploy", entry["workflow"])
}

func TestNewTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: "info", Format: FormatText, Output: &buf})

	logger.Info("plain message")

	assert.Contains(t, buf.String(), "plain message")
	assert.False(t, strings.HasPrefix(buf.String(), "{"))
}

func TestNewNilConfigDefaults(t *testing.T) {
	assert.NotNil(t, New(nil))
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: "warn", Format: FormatJSON, Output: &buf})

	logger.Info("dropped")
	logger.Warn("kept")

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"trace", LevelTrace},
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"nonsense", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.input), "level %q", tt.input)
	}
}

func TestFromEnv(t *testing.T) {
	tests := []struct {
		name       string
		env        map[string]string
		wantLevel  string
		wantFormat Format
		wantSource bool
	}{
		{
			name:       "defaults",
			env:        nil,
			wantLevel:  "info",
			wantFormat: FormatJSON,
		},
		{
			name:       "debug flag wins",
			env:        map[string]string{"WINDLASS_DEBUG": "1", "WINDLASS_LOG_LEVEL": "error"},
			wantLevel:  "debug",
			wantFormat: FormatJSON,
			wantSource: true,
		},
		{
			name:       "tool level beats generic level",
			env:        map[string]string{"WINDLASS_LOG_LEVEL": "Error", "LOG_LEVEL": "debug"},
			wantLevel:  "error",
			wantFormat: FormatJSON,
		},
		{
			name:       "generic level applies",
			env:        map[string]string{"LOG_LEVEL": "warn"},
			wantLevel:  "warn",
			wantFormat: FormatJSON,
		},
		{
			name:       "text format",
			env:        map[string]string{"LOG_FORMAT": "TEXT"},
			wantLevel:  "info",
			wantFormat: FormatText,
		},
		{
			name:       "source flag",
			env:        map[string]string{"LOG_SOURCE": "1"},
			wantLevel:  "info",
			wantFormat: FormatJSON,
			wantSource: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range []string{"WINDLASS_DEBUG", "WINDLASS_LOG_LEVEL", "LOG_LEVEL", "LOG_FORMAT", "LOG_SOURCE"} {
				t.Setenv(key, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg := FromEnv()
			assert.Equal(t, tt.wantLevel, cfg.Level)
			assert.Equal(t, tt.wantFormat, cfg.Format)
			assert.Equal(t, tt.wantSource, cfg.AddSource)
		})
	}
}

func TestContextHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: "info", Format: FormatJSON, Output: &buf})

	WithRunContext(logger, "run-1", "deploy").Info("step started")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "run-1", entry[RunIDKey])
	assert.Equal(t, "deploy", entry[WorkflowKey])
}

func TestSanitizeAPIKey(t *testing.T) {
	assert.Equal(t, "...6789", SanitizeAPIKey("sk-123456789"))
	assert.Equal(t, "[REDACTED]", SanitizeAPIKey("abc"))
	assert.Equal(t, "[REDACTED]", SanitizeAPIKey(""))
}

func TestSanitizeSecret(t *testing.T) {
	assert.Equal(t, "[REDACTED]", SanitizeSecret("anything at all"))
}

func TestTraceLevelGate(t *testing.T) {
	var buf bytes.Buffer

	logger := New(&Config{Level: "debug", Format: FormatJSON, Output: &buf})
	Trace(logger, "hidden")
	assert.Empty(t, buf.String())

	logger = New(&Config{Level: "trace", Format: FormatJSON, Output: &buf})
	Trace(logger, "visible", slog.String("k", "v"))
	assert.Contains(t, buf.String(), "visible")
}
