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
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCapturingMiddleware() (*InvocationMiddleware, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := New(&Config{Level: "debug", Format: FormatJSON, Output: &buf})
	return NewInvocationMiddleware(logger), &buf
}

func TestHandlerLogsSuccess(t *testing.T) {
	m, buf := newCapturingMiddleware()

	called := false
	err := m.Handler(Invocation{Namespace: "actions", Component: "file", Operation: "read"}, func() error {
		called = true
		return nil
	})

	require.NoError(t, err)
	assert.True(t, called)
	assert.Contains(t, buf.String(), "component call")
	assert.Contains(t, buf.String(), "component call completed")
	assert.Contains(t, buf.String(), `"operation":"read"`)
	assert.NotContains(t, buf.String(), "failed")
}

func TestHandlerLogsFailure(t *testing.T) {
	m, buf := newCapturingMiddleware()

	wantErr := fmt.Errorf("disk full")
	err := m.Handler(Invocation{Namespace: "actions", Component: "file", Operation: "write"}, func() error {
		return wantErr
	})

	assert.ErrorIs(t, err, wantErr)
	assert.Contains(t, buf.String(), "component call failed")
	assert.Contains(t, buf.String(), "disk full")
}

func TestHandlerWithResultPassesThrough(t *testing.T) {
	m, _ := newCapturingMiddleware()

	want := map[string]interface{}{"value": 7}
	got, err := m.HandlerWithResult(Invocation{Namespace: "actions", Component: "utility"}, func() (map[string]interface{}, error) {
		return want, nil
	})

	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestNilLoggerStillRunsHandler(t *testing.T) {
	m := NewInvocationMiddleware(nil)

	called := false
	err := m.Handler(Invocation{Namespace: "agents", Component: "reviewer"}, func() error {
		called = true
		return nil
	})

	require.NoError(t, err)
	assert.True(t, called)
}

func TestDurationRecorded(t *testing.T) {
	m, buf := newCapturingMiddleware()

	_ = m.Handler(Invocation{Namespace: "actions", Component: "jq"}, func() error { return nil })

	assert.Contains(t, buf.String(), "duration_ms")
}
