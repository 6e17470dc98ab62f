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

// Package file provides the builtin `file` action: sandboxed
// filesystem operations available to workflow steps. All paths resolve
// inside a configured root; traversal outside the root is rejected
// before any filesystem call is made.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config controls sandboxing and size limits for the file action.
type Config struct {
	// Root is the directory all relative paths resolve against.
	// Defaults to the process working directory.
	Root string

	// AllowAbsolute permits absolute paths that escape Root.
	AllowAbsolute bool

	// MaxFileSize caps reads and writes, in bytes.
	MaxFileSize int64
}

// DefaultConfig returns the defaults used when New receives nil.
func DefaultConfig() *Config {
	return &Config{MaxFileSize: 100 * 1024 * 1024}
}

// Action executes file operations for workflow steps.
type Action struct {
	config *Config
}

// Result carries an operation's primary value plus bookkeeping
// metadata (resolved path, byte counts, duration).
type Result struct {
	Response interface{}
	Metadata map[string]interface{}
}

// New creates a file action. A nil config uses DefaultConfig.
func New(config *Config) (*Action, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("file action: resolve working directory: %w", err)
		}
		config.Root = cwd
	}
	if config.MaxFileSize <= 0 {
		config.MaxFileSize = DefaultConfig().MaxFileSize
	}
	abs, err := filepath.Abs(config.Root)
	if err != nil {
		return nil, fmt.Errorf("file action: resolve root %q: %w", config.Root, err)
	}
	config.Root = abs
	return &Action{config: config}, nil
}

// Execute dispatches a named operation. The returned error is non-nil
// on invalid input, sandbox violations, and filesystem failures.
func (a *Action) Execute(ctx context.Context, operation string, inputs map[string]interface{}) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	var (
		response interface{}
		read     int64
		written  int64
		err      error
	)

	switch operation {
	case "read":
		response, read, err = a.read(inputs)
	case "read_json":
		response, read, err = a.readJSON(inputs)
	case "read_yaml":
		response, read, err = a.readYAML(inputs)
	case "read_lines":
		response, read, err = a.readLines(inputs)
	case "write":
		written, err = a.write(inputs, false)
		response = written
	case "append":
		written, err = a.write(inputs, true)
		response = written
	case "write_json":
		written, err = a.writeJSON(inputs)
		response = written
	case "write_yaml":
		written, err = a.writeYAML(inputs)
		response = written
	case "list":
		response, err = a.list(inputs)
	case "exists":
		response, err = a.exists(inputs)
	case "stat":
		response, err = a.stat(inputs)
	case "mkdir":
		err = a.mkdir(inputs)
		response = err == nil
	case "copy":
		written, err = a.copyFile(inputs)
		response = written
	case "move":
		err = a.move(inputs)
		response = err == nil
	case "delete":
		err = a.remove(inputs)
		response = err == nil
	default:
		err = fmt.Errorf("file action: unknown operation %q", operation)
	}

	status := "ok"
	if err != nil {
		status = "error"
	}
	observeOperation(operation, status, time.Since(start), read, written)

	if err != nil {
		return nil, err
	}
	return &Result{
		Response: response,
		Metadata: map[string]interface{}{
			"operation":   operation,
			"duration_ms": time.Since(start).Milliseconds(),
		},
	}, nil
}

func (a *Action) path(inputs map[string]interface{}, key string) (string, error) {
	raw, _ := inputs[key].(string)
	if raw == "" {
		return "", fmt.Errorf("file action: %q is required", key)
	}
	return a.resolve(raw)
}

func (a *Action) read(inputs map[string]interface{}) (interface{}, int64, error) {
	path, err := a.path(inputs, "path")
	if err != nil {
		return nil, 0, err
	}
	data, err := a.readCapped(path)
	if err != nil {
		return nil, 0, err
	}
	return string(data), int64(len(data)), nil
}

func (a *Action) readJSON(inputs map[string]interface{}) (interface{}, int64, error) {
	path, err := a.path(inputs, "path")
	if err != nil {
		return nil, 0, err
	}
	data, err := a.readCapped(path)
	if err != nil {
		return nil, 0, err
	}
	var out interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, 0, fmt.Errorf("file action: parse %s as JSON: %w", path, err)
	}
	return out, int64(len(data)), nil
}

func (a *Action) readYAML(inputs map[string]interface{}) (interface{}, int64, error) {
	path, err := a.path(inputs, "path")
	if err != nil {
		return nil, 0, err
	}
	data, err := a.readCapped(path)
	if err != nil {
		return nil, 0, err
	}
	var out interface{}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, 0, fmt.Errorf("file action: parse %s as YAML: %w", path, err)
	}
	return out, int64(len(data)), nil
}

func (a *Action) readLines(inputs map[string]interface{}) (interface{}, int64, error) {
	path, err := a.path(inputs, "path")
	if err != nil {
		return nil, 0, err
	}
	data, err := a.readCapped(path)
	if err != nil {
		return nil, 0, err
	}
	text := strings.TrimSuffix(string(data), "\n")
	if text == "" {
		return []interface{}{}, int64(len(data)), nil
	}
	split := strings.Split(text, "\n")
	lines := make([]interface{}, len(split))
	for i, l := range split {
		lines[i] = l
	}
	return lines, int64(len(data)), nil
}

func (a *Action) readCapped(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("file action: %w", err)
	}
	if info.Size() > a.config.MaxFileSize {
		return nil, fmt.Errorf("file action: %s is %d bytes, limit is %d", path, info.Size(), a.config.MaxFileSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("file action: %w", err)
	}
	return data, nil
}

func (a *Action) write(inputs map[string]interface{}, appendMode bool) (int64, error) {
	path, err := a.path(inputs, "path")
	if err != nil {
		return 0, err
	}
	content, ok := inputs["content"].(string)
	if !ok {
		return 0, fmt.Errorf("file action: %q requires a string content", path)
	}
	if int64(len(content)) > a.config.MaxFileSize {
		return 0, fmt.Errorf("file action: content is %d bytes, limit is %d", len(content), a.config.MaxFileSize)
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if appendMode {
		flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return 0, fmt.Errorf("file action: %w", err)
	}
	defer f.Close()
	n, err := f.WriteString(content)
	if err != nil {
		return int64(n), fmt.Errorf("file action: %w", err)
	}
	return int64(n), nil
}

func (a *Action) writeJSON(inputs map[string]interface{}) (int64, error) {
	path, err := a.path(inputs, "path")
	if err != nil {
		return 0, err
	}
	data, err := json.MarshalIndent(inputs["content"], "", "  ")
	if err != nil {
		return 0, fmt.Errorf("file action: encode JSON: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return 0, fmt.Errorf("file action: %w", err)
	}
	return int64(len(data)), nil
}

func (a *Action) writeYAML(inputs map[string]interface{}) (int64, error) {
	path, err := a.path(inputs, "path")
	if err != nil {
		return 0, err
	}
	data, err := yaml.Marshal(inputs["content"])
	if err != nil {
		return 0, fmt.Errorf("file action: encode YAML: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return 0, fmt.Errorf("file action: %w", err)
	}
	return int64(len(data)), nil
}

func (a *Action) list(inputs map[string]interface{}) (interface{}, error) {
	path, err := a.path(inputs, "path")
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("file action: %w", err)
	}
	names := make([]interface{}, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Slice(names, func(i, j int) bool { return names[i].(string) < names[j].(string) })
	return names, nil
}

func (a *Action) exists(inputs map[string]interface{}) (interface{}, error) {
	path, err := a.path(inputs, "path")
	if err != nil {
		return nil, err
	}
	_, statErr := os.Stat(path)
	if statErr == nil {
		return true, nil
	}
	if os.IsNotExist(statErr) {
		return false, nil
	}
	return nil, fmt.Errorf("file action: %w", statErr)
}

func (a *Action) stat(inputs map[string]interface{}) (interface{}, error) {
	path, err := a.path(inputs, "path")
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("file action: %w", err)
	}
	return map[string]interface{}{
		"name":        info.Name(),
		"size":        info.Size(),
		"is_dir":      info.IsDir(),
		"modified_at": info.ModTime().UTC().Format(time.RFC3339),
	}, nil
}

func (a *Action) mkdir(inputs map[string]interface{}) error {
	path, err := a.path(inputs, "path")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("file action: %w", err)
	}
	return nil
}

func (a *Action) copyFile(inputs map[string]interface{}) (int64, error) {
	src, err := a.path(inputs, "src")
	if err != nil {
		return 0, err
	}
	dst, err := a.path(inputs, "dst")
	if err != nil {
		return 0, err
	}
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("file action: %w", err)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("file action: %w", err)
	}
	defer out.Close()
	n, err := io.Copy(out, io.LimitReader(in, a.config.MaxFileSize))
	if err != nil {
		return n, fmt.Errorf("file action: %w", err)
	}
	return n, nil
}

func (a *Action) move(inputs map[string]interface{}) error {
	src, err := a.path(inputs, "src")
	if err != nil {
		return err
	}
	dst, err := a.path(inputs, "dst")
	if err != nil {
		return err
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("file action: %w", err)
	}
	return nil
}

func (a *Action) remove(inputs map[string]interface{}) error {
	path, err := a.path(inputs, "path")
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("file action: %w", err)
	}
	return nil
}
