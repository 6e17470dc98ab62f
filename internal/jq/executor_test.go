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

package jq

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteSingleResult(t *testing.T) {
	e := NewExecutor(0, 0)

	out, err := e.Execute(context.Background(), ".name", map[string]interface{}{"name": "windlass"})
	require.NoError(t, err)
	assert.Equal(t, "windlass", out)
}

func TestExecuteMultipleResults(t *testing.T) {
	e := NewExecutor(0, 0)

	out, err := e.Execute(context.Background(), ".[] | .id", []interface{}{
		map[string]interface{}{"id": 1},
		map[string]interface{}{"id": 2},
	})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{1, 2}, out)
}

func TestExecuteZeroResults(t *testing.T) {
	e := NewExecutor(0, 0)

	out, err := e.Execute(context.Background(), ".[] | select(.id > 5)", []interface{}{
		map[string]interface{}{"id": 1},
	})
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestExecuteNormalizesTypedInput(t *testing.T) {
	e := NewExecutor(0, 0)

	// int values only occur after normalization through JSON.
	out, err := e.Execute(context.Background(), ".n + 1", map[string]interface{}{"n": 41})
	require.NoError(t, err)
	assert.Equal(t, 42, out)
}

func TestExecuteParseError(t *testing.T) {
	e := NewExecutor(0, 0)

	_, err := e.Execute(context.Background(), ".[unclosed", nil)
	assert.ErrorContains(t, err, "parse")
}

func TestExecuteEmptyExpression(t *testing.T) {
	e := NewExecutor(0, 0)

	_, err := e.Execute(context.Background(), "", nil)
	assert.ErrorContains(t, err, "expression is required")
}

func TestExecuteInputSizeCap(t *testing.T) {
	e := NewExecutor(0, 16)

	_, err := e.Execute(context.Background(), ".", map[string]interface{}{"k": "a long enough value"})
	assert.ErrorContains(t, err, "limit is 16")
}

func TestValidate(t *testing.T) {
	e := NewExecutor(0, 0)

	assert.NoError(t, e.Validate(".a.b[0]"))
	assert.Error(t, e.Validate("???"))
}
