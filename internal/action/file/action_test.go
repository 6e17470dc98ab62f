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

package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAction(t *testing.T) (*Action, string) {
	t.Helper()
	root := t.TempDir()
	a, err := New(&Config{Root: root})
	require.NoError(t, err)
	return a, root
}

func TestReadWriteRoundTrip(t *testing.T) {
	a, _ := newTestAction(t)
	ctx := context.Background()

	_, err := a.Execute(ctx, "write", map[string]interface{}{
		"path":    "greeting.txt",
		"content": "hello\n",
	})
	require.NoError(t, err)

	res, err := a.Execute(ctx, "read", map[string]interface{}{"path": "greeting.txt"})
	require.NoError(t, err)
	assert.Equal(t, "hello\n", res.Response)
	assert.Equal(t, "read", res.Metadata["operation"])
}

func TestAppend(t *testing.T) {
	a, _ := newTestAction(t)
	ctx := context.Background()

	for _, line := range []string{"one\n", "two\n"} {
		_, err := a.Execute(ctx, "append", map[string]interface{}{"path": "log.txt", "content": line})
		require.NoError(t, err)
	}

	res, err := a.Execute(ctx, "read_lines", map[string]interface{}{"path": "log.txt"})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"one", "two"}, res.Response)
}

func TestReadJSON(t *testing.T) {
	a, root := newTestAction(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "data.json"), []byte(`{"n": 3, "ok": true}`), 0o644))

	res, err := a.Execute(context.Background(), "read_json", map[string]interface{}{"path": "data.json"})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"n": float64(3), "ok": true}, res.Response)
}

func TestWriteYAMLReadYAML(t *testing.T) {
	a, _ := newTestAction(t)
	ctx := context.Background()

	_, err := a.Execute(ctx, "write_yaml", map[string]interface{}{
		"path":    "cfg.yaml",
		"content": map[string]interface{}{"name": "demo", "count": 2},
	})
	require.NoError(t, err)

	res, err := a.Execute(ctx, "read_yaml", map[string]interface{}{"path": "cfg.yaml"})
	require.NoError(t, err)
	parsed, ok := res.Response.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "demo", parsed["name"])
	assert.Equal(t, 2, parsed["count"])
}

func TestSandboxRejectsTraversal(t *testing.T) {
	a, _ := newTestAction(t)

	_, err := a.Execute(context.Background(), "read", map[string]interface{}{"path": "../../etc/passwd"})
	assert.ErrorContains(t, err, "escapes the sandbox root")
}

func TestSandboxRejectsAbsoluteByDefault(t *testing.T) {
	a, _ := newTestAction(t)

	_, err := a.Execute(context.Background(), "read", map[string]interface{}{"path": "/etc/hostname"})
	assert.ErrorContains(t, err, "not permitted")
}

func TestAbsoluteAllowedWhenConfigured(t *testing.T) {
	root := t.TempDir()
	a, err := New(&Config{Root: root, AllowAbsolute: true})
	require.NoError(t, err)

	target := filepath.Join(root, "x.txt")
	require.NoError(t, os.WriteFile(target, []byte("abs"), 0o644))

	res, err := a.Execute(context.Background(), "read", map[string]interface{}{"path": target})
	require.NoError(t, err)
	assert.Equal(t, "abs", res.Response)
}

func TestListSorted(t *testing.T) {
	a, root := newTestAction(t)
	for _, name := range []string{"b.txt", "a.txt", "c.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), nil, 0o644))
	}

	res, err := a.Execute(context.Background(), "list", map[string]interface{}{"path": "."})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"a.txt", "b.txt", "c.txt"}, res.Response)
}

func TestExistsStatDelete(t *testing.T) {
	a, root := newTestAction(t)
	ctx := context.Background()
	require.NoError(t, os.WriteFile(filepath.Join(root, "f.txt"), []byte("xyz"), 0o644))

	res, err := a.Execute(ctx, "exists", map[string]interface{}{"path": "f.txt"})
	require.NoError(t, err)
	assert.Equal(t, true, res.Response)

	res, err = a.Execute(ctx, "stat", map[string]interface{}{"path": "f.txt"})
	require.NoError(t, err)
	info := res.Response.(map[string]interface{})
	assert.Equal(t, int64(3), info["size"])
	assert.Equal(t, false, info["is_dir"])

	_, err = a.Execute(ctx, "delete", map[string]interface{}{"path": "f.txt"})
	require.NoError(t, err)

	res, err = a.Execute(ctx, "exists", map[string]interface{}{"path": "f.txt"})
	require.NoError(t, err)
	assert.Equal(t, false, res.Response)
}

func TestCopyAndMove(t *testing.T) {
	a, root := newTestAction(t)
	ctx := context.Background()
	require.NoError(t, os.WriteFile(filepath.Join(root, "src.txt"), []byte("payload"), 0o644))

	_, err := a.Execute(ctx, "copy", map[string]interface{}{"src": "src.txt", "dst": "copy.txt"})
	require.NoError(t, err)

	_, err = a.Execute(ctx, "move", map[string]interface{}{"src": "copy.txt", "dst": "moved.txt"})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "moved.txt"))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestMaxFileSizeEnforced(t *testing.T) {
	root := t.TempDir()
	a, err := New(&Config{Root: root, MaxFileSize: 4})
	require.NoError(t, err)

	_, err = a.Execute(context.Background(), "write", map[string]interface{}{
		"path":    "big.txt",
		"content": "too large for the limit",
	})
	assert.ErrorContains(t, err, "limit is 4")
}

func TestUnknownOperation(t *testing.T) {
	a, _ := newTestAction(t)
	_, err := a.Execute(context.Background(), "truncate", nil)
	assert.ErrorContains(t, err, `unknown operation "truncate"`)
}
