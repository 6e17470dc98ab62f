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

// Package jq evaluates jq expressions against in-memory values for
// the builtin `jq` action.
package jq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/itchyny/gojq"
)

const (
	defaultTimeout      = 10 * time.Second
	defaultMaxInputSize = 10 * 1024 * 1024
)

// Executor compiles and runs jq expressions with a per-call deadline
// and an input size cap.
type Executor struct {
	timeout      time.Duration
	maxInputSize int64
}

// NewExecutor creates an executor. Zero values select the defaults
// (10s timeout, 10MB input cap).
func NewExecutor(timeout time.Duration, maxInputSize int64) *Executor {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if maxInputSize <= 0 {
		maxInputSize = defaultMaxInputSize
	}
	return &Executor{timeout: timeout, maxInputSize: maxInputSize}
}

// Execute evaluates expression against data. A single-result query
// returns the value directly; multiple results come back as an array.
// Zero results return nil.
func (e *Executor) Execute(ctx context.Context, expression string, data interface{}) (interface{}, error) {
	if expression == "" {
		return nil, fmt.Errorf("jq: expression is required")
	}
	if err := e.checkInputSize(data); err != nil {
		return nil, err
	}

	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("jq: parse %q: %w", expression, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("jq: compile %q: %w", expression, err)
	}

	// gojq only accepts the types json.Unmarshal produces, so
	// normalize through JSON before running the query.
	normalized, err := normalize(data)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var results []interface{}
	iter := code.RunWithContext(runCtx, normalized)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			return nil, fmt.Errorf("jq: evaluate %q: %w", expression, err)
		}
		results = append(results, v)
	}

	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		return results[0], nil
	default:
		return results, nil
	}
}

// Validate reports whether expression parses, without running it.
func (e *Executor) Validate(expression string) error {
	if expression == "" {
		return fmt.Errorf("jq: expression is required")
	}
	if _, err := gojq.Parse(expression); err != nil {
		return fmt.Errorf("jq: parse %q: %w", expression, err)
	}
	return nil
}

func (e *Executor) checkInputSize(data interface{}) error {
	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("jq: input is not JSON-serializable: %w", err)
	}
	if int64(len(encoded)) > e.maxInputSize {
		return fmt.Errorf("jq: input is %d bytes, limit is %d", len(encoded), e.maxInputSize)
	}
	return nil
}

func normalize(data interface{}) (interface{}, error) {
	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("jq: input is not JSON-serializable: %w", err)
	}
	var out interface{}
	if err := json.Unmarshal(encoded, &out); err != nil {
		return nil, fmt.Errorf("jq: normalize input: %w", err)
	}
	return out, nil
}
