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

// Package utility provides the builtin `utility` action: identifiers,
// randomness, timestamps, hashing, encoding, small math helpers, and a
// cancellable sleep for workflow steps.
package utility

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Action executes utility operations for workflow steps.
type Action struct {
	mu  sync.Mutex
	rng *rand.Rand

	// now is swappable in tests.
	now func() time.Time
}

// Result carries an operation's value plus bookkeeping metadata.
type Result struct {
	Response interface{}
	Metadata map[string]interface{}
}

// Option customizes an Action, used by tests to pin the clock or the
// random seed.
type Option func(*Action)

// WithClock pins the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(a *Action) { a.now = now }
}

// WithSeed pins the random source.
func WithSeed(seed int64) Option {
	return func(a *Action) { a.rng = rand.New(rand.NewSource(seed)) }
}

// New creates a utility action.
func New(opts ...Option) (*Action, error) {
	a := &Action{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Execute dispatches a named operation.
func (a *Action) Execute(ctx context.Context, operation string, inputs map[string]interface{}) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		response interface{}
		err      error
	)

	switch operation {
	case "uuid":
		response = uuid.NewString()
	case "random_int":
		response, err = a.randomInt(inputs)
	case "random_choice":
		response, err = a.randomChoice(inputs)
	case "random_string":
		response, err = a.randomString(inputs)
	case "timestamp":
		response = a.timestamp(inputs)
	case "sleep":
		err = a.sleep(ctx, inputs)
		response = err == nil
	case "hash_sha256":
		response, err = hashSHA256(inputs)
	case "base64_encode":
		response, err = base64Encode(inputs)
	case "base64_decode":
		response, err = base64Decode(inputs)
	case "math_min":
		response, err = fold(inputs, math.Inf(1), math.Min)
	case "math_max":
		response, err = fold(inputs, math.Inf(-1), math.Max)
	case "math_clamp":
		response, err = clamp(inputs)
	case "math_round":
		response, err = round(inputs)
	default:
		err = fmt.Errorf("utility action: unknown operation %q", operation)
	}

	if err != nil {
		return nil, err
	}
	return &Result{
		Response: response,
		Metadata: map[string]interface{}{"operation": operation},
	}, nil
}

func (a *Action) randomInt(inputs map[string]interface{}) (interface{}, error) {
	min, err := intInput(inputs, "min", 0)
	if err != nil {
		return nil, err
	}
	max, err := intInput(inputs, "max", 100)
	if err != nil {
		return nil, err
	}
	if max < min {
		return nil, fmt.Errorf("utility action: random_int max %d is below min %d", max, min)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return min + a.rng.Intn(max-min+1), nil
}

func (a *Action) randomChoice(inputs map[string]interface{}) (interface{}, error) {
	items, ok := inputs["items"].([]interface{})
	if !ok || len(items) == 0 {
		return nil, fmt.Errorf("utility action: random_choice requires a non-empty items array")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return items[a.rng.Intn(len(items))], nil
}

const alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func (a *Action) randomString(inputs map[string]interface{}) (interface{}, error) {
	length, err := intInput(inputs, "length", 16)
	if err != nil {
		return nil, err
	}
	if length <= 0 || length > 1024 {
		return nil, fmt.Errorf("utility action: random_string length %d out of range 1..1024", length)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	buf := make([]byte, length)
	for i := range buf {
		buf[i] = alphanumeric[a.rng.Intn(len(alphanumeric))]
	}
	return string(buf), nil
}

func (a *Action) timestamp(inputs map[string]interface{}) interface{} {
	now := a.now().UTC()
	switch inputs["format"] {
	case "unix":
		return now.Unix()
	case "unix_ms":
		return now.UnixMilli()
	default:
		return now.Format(time.RFC3339)
	}
}

func (a *Action) sleep(ctx context.Context, inputs map[string]interface{}) error {
	ms, err := intInput(inputs, "duration_ms", 0)
	if err != nil {
		return err
	}
	if ms < 0 {
		return fmt.Errorf("utility action: sleep duration_ms must not be negative")
	}
	select {
	case <-time.After(time.Duration(ms) * time.Millisecond):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func hashSHA256(inputs map[string]interface{}) (interface{}, error) {
	text, ok := inputs["data"].(string)
	if !ok {
		return nil, fmt.Errorf("utility action: hash_sha256 requires a string data input")
	}
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:]), nil
}

func base64Encode(inputs map[string]interface{}) (interface{}, error) {
	text, ok := inputs["data"].(string)
	if !ok {
		return nil, fmt.Errorf("utility action: base64_encode requires a string data input")
	}
	return base64.StdEncoding.EncodeToString([]byte(text)), nil
}

func base64Decode(inputs map[string]interface{}) (interface{}, error) {
	text, ok := inputs["data"].(string)
	if !ok {
		return nil, fmt.Errorf("utility action: base64_decode requires a string data input")
	}
	decoded, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("utility action: base64_decode: %w", err)
	}
	return string(decoded), nil
}

func fold(inputs map[string]interface{}, start float64, f func(float64, float64) float64) (interface{}, error) {
	items, ok := inputs["values"].([]interface{})
	if !ok || len(items) == 0 {
		return nil, fmt.Errorf("utility action: a non-empty values array is required")
	}
	acc := start
	for i, item := range items {
		n, ok := toFloat(item)
		if !ok {
			return nil, fmt.Errorf("utility action: values element %d is not a number", i)
		}
		acc = f(acc, n)
	}
	return acc, nil
}

func clamp(inputs map[string]interface{}) (interface{}, error) {
	value, ok := toFloat(inputs["value"])
	if !ok {
		return nil, fmt.Errorf("utility action: math_clamp requires a numeric value")
	}
	lo, ok := toFloat(inputs["min"])
	if !ok {
		return nil, fmt.Errorf("utility action: math_clamp requires a numeric min")
	}
	hi, ok := toFloat(inputs["max"])
	if !ok {
		return nil, fmt.Errorf("utility action: math_clamp requires a numeric max")
	}
	if hi < lo {
		return nil, fmt.Errorf("utility action: math_clamp max %v is below min %v", hi, lo)
	}
	return math.Min(math.Max(value, lo), hi), nil
}

func round(inputs map[string]interface{}) (interface{}, error) {
	value, ok := toFloat(inputs["value"])
	if !ok {
		return nil, fmt.Errorf("utility action: math_round requires a numeric value")
	}
	digits, err := intInput(inputs, "digits", 0)
	if err != nil {
		return nil, err
	}
	scale := math.Pow(10, float64(digits))
	return math.Round(value*scale) / scale, nil
}

func intInput(inputs map[string]interface{}, key string, def int) (int, error) {
	v, ok := inputs[key]
	if !ok {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("utility action: %q must be an integer", key)
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("utility action: %q must be an integer", key)
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
