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

package transform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exec(t *testing.T, op string, inputs map[string]interface{}) interface{} {
	t.Helper()
	a, err := New(nil)
	require.NoError(t, err)
	res, err := a.Execute(context.Background(), op, inputs)
	require.NoError(t, err)
	return res.Response
}

func execErr(t *testing.T, op string, inputs map[string]interface{}) error {
	t.Helper()
	a, err := New(nil)
	require.NoError(t, err)
	_, err = a.Execute(context.Background(), op, inputs)
	require.Error(t, err)
	return err
}

func TestParseJSONRoundTrip(t *testing.T) {
	parsed := exec(t, "parse_json", map[string]interface{}{"data": `{"a": 1}`})
	assert.Equal(t, map[string]interface{}{"a": float64(1)}, parsed)

	encoded := exec(t, "to_json", map[string]interface{}{"data": parsed})
	assert.JSONEq(t, `{"a": 1}`, encoded.(string))
}

func TestParseJSONRejectsNonString(t *testing.T) {
	err := execErr(t, "parse_json", map[string]interface{}{"data": 42})
	assert.ErrorContains(t, err, "requires a string")
}

func TestParseYAML(t *testing.T) {
	parsed := exec(t, "parse_yaml", map[string]interface{}{"data": "name: demo\ncount: 2\n"})
	m := parsed.(map[string]interface{})
	assert.Equal(t, "demo", m["name"])
	assert.Equal(t, 2, m["count"])
}

func TestMergeLaterKeysWin(t *testing.T) {
	out := exec(t, "merge", map[string]interface{}{
		"data": []interface{}{
			map[string]interface{}{"a": 1, "b": 1},
			map[string]interface{}{"b": 2, "c": 3},
		},
	})
	assert.Equal(t, map[string]interface{}{"a": 1, "b": 2, "c": 3}, out)
}

func TestPickAndOmit(t *testing.T) {
	obj := map[string]interface{}{"a": 1, "b": 2, "c": 3}

	picked := exec(t, "pick", map[string]interface{}{"data": obj, "keys": []interface{}{"a", "c", "missing"}})
	assert.Equal(t, map[string]interface{}{"a": 1, "c": 3}, picked)

	omitted := exec(t, "omit", map[string]interface{}{"data": obj, "keys": []interface{}{"b"}})
	assert.Equal(t, map[string]interface{}{"a": 1, "c": 3}, omitted)
}

func TestKeysSorted(t *testing.T) {
	out := exec(t, "keys", map[string]interface{}{"data": map[string]interface{}{"z": 1, "a": 2, "m": 3}})
	assert.Equal(t, []interface{}{"a", "m", "z"}, out)
}

func TestFlattenOneLevel(t *testing.T) {
	out := exec(t, "flatten", map[string]interface{}{
		"data": []interface{}{
			[]interface{}{1, 2},
			3,
			[]interface{}{[]interface{}{4}},
		},
	})
	assert.Equal(t, []interface{}{1, 2, 3, []interface{}{4}}, out)
}

func TestUnique(t *testing.T) {
	out := exec(t, "unique", map[string]interface{}{"data": []interface{}{1, 2, 1, "x", "x", 2}})
	assert.Equal(t, []interface{}{1, 2, "x"}, out)
}

func TestSortScalars(t *testing.T) {
	out := exec(t, "sort", map[string]interface{}{"data": []interface{}{3, 1, 2}})
	assert.Equal(t, []interface{}{1, 2, 3}, out)

	out = exec(t, "sort", map[string]interface{}{"data": []interface{}{"b", "a"}, "order": "desc"})
	assert.Equal(t, []interface{}{"b", "a"}, out)
}

func TestSortByKey(t *testing.T) {
	out := exec(t, "sort", map[string]interface{}{
		"data": []interface{}{
			map[string]interface{}{"name": "zed", "age": 30},
			map[string]interface{}{"name": "amy", "age": 40},
		},
		"key": "name",
	})
	first := out.([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "amy", first["name"])
}

func TestSortMixedTypesErrors(t *testing.T) {
	err := execErr(t, "sort", map[string]interface{}{"data": []interface{}{1, "a"}})
	assert.ErrorContains(t, err, "cannot order")
}

func TestSplitAndJoin(t *testing.T) {
	parts := exec(t, "split", map[string]interface{}{"data": "a,b,c", "separator": ","})
	assert.Equal(t, []interface{}{"a", "b", "c"}, parts)

	joined := exec(t, "join", map[string]interface{}{"data": parts, "separator": "-"})
	assert.Equal(t, "a-b-c", joined)
}

func TestSplitDefaultsToNewline(t *testing.T) {
	parts := exec(t, "split", map[string]interface{}{"data": "x\ny"})
	assert.Equal(t, []interface{}{"x", "y"}, parts)
}

func TestConcat(t *testing.T) {
	out := exec(t, "concat", map[string]interface{}{
		"data": []interface{}{
			[]interface{}{1},
			[]interface{}{2, 3},
		},
	})
	assert.Equal(t, []interface{}{1, 2, 3}, out)
}

func TestUnknownOperation(t *testing.T) {
	err := execErr(t, "reverse", nil)
	assert.ErrorContains(t, err, `unknown operation "reverse"`)
}
