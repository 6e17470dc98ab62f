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

// Package transform provides the builtin `transform` action: pure
// in-memory data reshaping for workflow steps. Operations take their
// subject under the "data" input and never touch the filesystem or
// the network.
package transform

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Action executes transform operations for workflow steps.
type Action struct{}

// Result carries an operation's value plus bookkeeping metadata.
type Result struct {
	Response interface{}
	Metadata map[string]interface{}
}

// New creates a transform action. The config parameter is accepted for
// symmetry with the other builtin actions; transform has no knobs.
func New(_ *struct{}) (*Action, error) {
	return &Action{}, nil
}

// Execute dispatches a named operation.
func (a *Action) Execute(ctx context.Context, operation string, inputs map[string]interface{}) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	var (
		response interface{}
		err      error
	)

	switch operation {
	case "parse_json":
		response, err = parseJSON(inputs)
	case "to_json":
		response, err = toJSON(inputs)
	case "parse_yaml":
		response, err = parseYAML(inputs)
	case "to_yaml":
		response, err = toYAML(inputs)
	case "merge":
		response, err = merge(inputs)
	case "pick":
		response, err = pick(inputs)
	case "omit":
		response, err = omit(inputs)
	case "keys":
		response, err = keys(inputs)
	case "flatten":
		response, err = flatten(inputs)
	case "unique":
		response, err = unique(inputs)
	case "sort":
		response, err = sortValues(inputs)
	case "split":
		response, err = split(inputs)
	case "join":
		response, err = join(inputs)
	case "concat":
		response, err = concat(inputs)
	default:
		err = fmt.Errorf("transform action: unknown operation %q", operation)
	}

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

func parseJSON(inputs map[string]interface{}) (interface{}, error) {
	text, ok := inputs["data"].(string)
	if !ok {
		return nil, fmt.Errorf("transform action: parse_json requires a string data input")
	}
	var out interface{}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("transform action: parse_json: %w", err)
	}
	return out, nil
}

func toJSON(inputs map[string]interface{}) (interface{}, error) {
	data, err := json.Marshal(inputs["data"])
	if err != nil {
		return nil, fmt.Errorf("transform action: to_json: %w", err)
	}
	return string(data), nil
}

func parseYAML(inputs map[string]interface{}) (interface{}, error) {
	text, ok := inputs["data"].(string)
	if !ok {
		return nil, fmt.Errorf("transform action: parse_yaml requires a string data input")
	}
	var out interface{}
	if err := yaml.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("transform action: parse_yaml: %w", err)
	}
	return out, nil
}

func toYAML(inputs map[string]interface{}) (interface{}, error) {
	data, err := yaml.Marshal(inputs["data"])
	if err != nil {
		return nil, fmt.Errorf("transform action: to_yaml: %w", err)
	}
	return string(data), nil
}

// merge overlays the mappings under "data" (an array) left to right;
// later keys win. Nested maps are replaced, not deep-merged.
func merge(inputs map[string]interface{}) (interface{}, error) {
	items, ok := inputs["data"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("transform action: merge requires an array of objects")
	}
	out := map[string]interface{}{}
	for i, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("transform action: merge element %d is not an object", i)
		}
		for k, v := range m {
			out[k] = v
		}
	}
	return out, nil
}

func objectAndKeys(inputs map[string]interface{}, op string) (map[string]interface{}, []string, error) {
	obj, ok := inputs["data"].(map[string]interface{})
	if !ok {
		return nil, nil, fmt.Errorf("transform action: %s requires an object data input", op)
	}
	rawKeys, ok := inputs["keys"].([]interface{})
	if !ok {
		return nil, nil, fmt.Errorf("transform action: %s requires a keys array", op)
	}
	names := make([]string, len(rawKeys))
	for i, k := range rawKeys {
		s, ok := k.(string)
		if !ok {
			return nil, nil, fmt.Errorf("transform action: %s key %d is not a string", op, i)
		}
		names[i] = s
	}
	return obj, names, nil
}

func pick(inputs map[string]interface{}) (interface{}, error) {
	obj, names, err := objectAndKeys(inputs, "pick")
	if err != nil {
		return nil, err
	}
	out := map[string]interface{}{}
	for _, k := range names {
		if v, ok := obj[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func omit(inputs map[string]interface{}) (interface{}, error) {
	obj, names, err := objectAndKeys(inputs, "omit")
	if err != nil {
		return nil, err
	}
	drop := make(map[string]bool, len(names))
	for _, k := range names {
		drop[k] = true
	}
	out := map[string]interface{}{}
	for k, v := range obj {
		if !drop[k] {
			out[k] = v
		}
	}
	return out, nil
}

func keys(inputs map[string]interface{}) (interface{}, error) {
	obj, ok := inputs["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("transform action: keys requires an object data input")
	}
	names := make([]string, 0, len(obj))
	for k := range obj {
		names = append(names, k)
	}
	sort.Strings(names)
	out := make([]interface{}, len(names))
	for i, k := range names {
		out[i] = k
	}
	return out, nil
}

// flatten collapses one level of nesting in an array of arrays;
// non-array elements pass through unchanged.
func flatten(inputs map[string]interface{}) (interface{}, error) {
	items, ok := inputs["data"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("transform action: flatten requires an array data input")
	}
	out := make([]interface{}, 0, len(items))
	for _, item := range items {
		if nested, ok := item.([]interface{}); ok {
			out = append(out, nested...)
		} else {
			out = append(out, item)
		}
	}
	return out, nil
}

func unique(inputs map[string]interface{}) (interface{}, error) {
	items, ok := inputs["data"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("transform action: unique requires an array data input")
	}
	seen := map[string]bool{}
	out := make([]interface{}, 0, len(items))
	for _, item := range items {
		key, err := json.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("transform action: unique: %w", err)
		}
		if !seen[string(key)] {
			seen[string(key)] = true
			out = append(out, item)
		}
	}
	return out, nil
}

// sortValues orders an array of scalars, or an array of objects by the
// "key" input. Descending order with order=desc.
func sortValues(inputs map[string]interface{}) (interface{}, error) {
	items, ok := inputs["data"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("transform action: sort requires an array data input")
	}
	key, _ := inputs["key"].(string)
	desc := inputs["order"] == "desc"

	out := make([]interface{}, len(items))
	copy(out, items)

	var sortErr error
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if key != "" {
			am, aok := a.(map[string]interface{})
			bm, bok := b.(map[string]interface{})
			if !aok || !bok {
				sortErr = fmt.Errorf("transform action: sort by key %q requires object elements", key)
				return false
			}
			a, b = am[key], bm[key]
		}
		less, err := compare(a, b)
		if err != nil {
			sortErr = err
			return false
		}
		if desc {
			return !less
		}
		return less
	})
	if sortErr != nil {
		return nil, sortErr
	}
	return out, nil
}

func compare(a, b interface{}) (bool, error) {
	if an, aok := toFloat(a); aok {
		if bn, bok := toFloat(b); bok {
			return an < bn, nil
		}
	}
	if as, aok := a.(string); aok {
		if bs, bok := b.(string); bok {
			return as < bs, nil
		}
	}
	return false, fmt.Errorf("transform action: cannot order %T against %T", a, b)
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

func split(inputs map[string]interface{}) (interface{}, error) {
	text, ok := inputs["data"].(string)
	if !ok {
		return nil, fmt.Errorf("transform action: split requires a string data input")
	}
	sep, _ := inputs["separator"].(string)
	if sep == "" {
		sep = "\n"
	}
	parts := strings.Split(text, sep)
	out := make([]interface{}, len(parts))
	for i, p := range parts {
		out[i] = p
	}
	return out, nil
}

func join(inputs map[string]interface{}) (interface{}, error) {
	items, ok := inputs["data"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("transform action: join requires an array data input")
	}
	sep, _ := inputs["separator"].(string)
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = fmt.Sprintf("%v", item)
	}
	return strings.Join(parts, sep), nil
}

func concat(inputs map[string]interface{}) (interface{}, error) {
	items, ok := inputs["data"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("transform action: concat requires an array of arrays")
	}
	out := []interface{}{}
	for i, item := range items {
		arr, ok := item.([]interface{})
		if !ok {
			return nil, fmt.Errorf("transform action: concat element %d is not an array", i)
		}
		out = append(out, arr...)
	}
	return out, nil
}
