package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckOutputSchemaValid(t *testing.T) {
	schema := map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"title", "items"},
		"properties": map[string]interface{}{
			"title": map[string]interface{}{"type": "string"},
			"count": map[string]interface{}{"type": "integer"},
			"items": map[string]interface{}{
				"type":  "array",
				"items": map[string]interface{}{"type": "string"},
			},
		},
	}

	err := CheckOutputSchema(schema, map[string]interface{}{
		"title": "release notes",
		"count": float64(3),
		"items": []interface{}{"a", "b"},
	})
	assert.NoError(t, err)
}

func TestCheckOutputSchemaMissingRequired(t *testing.T) {
	schema := map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"title"},
	}

	err := CheckOutputSchema(schema, map[string]interface{}{"other": 1})
	require.Error(t, err)
	var ose *OutputSchemaError
	require.ErrorAs(t, err, &ose)
	assert.Equal(t, "required", ose.Keyword)
	assert.Equal(t, "$", ose.Path)
}

func TestCheckOutputSchemaTypeMismatchInNestedPath(t *testing.T) {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"items": map[string]interface{}{
				"type":  "array",
				"items": map[string]interface{}{"type": "string"},
			},
		},
	}

	err := CheckOutputSchema(schema, map[string]interface{}{
		"items": []interface{}{"ok", 7},
	})
	require.Error(t, err)
	var ose *OutputSchemaError
	require.ErrorAs(t, err, &ose)
	assert.Equal(t, "$.items[1]", ose.Path)
	assert.Equal(t, "type", ose.Keyword)
}

func TestCheckOutputSchemaEnum(t *testing.T) {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"severity": map[string]interface{}{
				"type": "string",
				"enum": []interface{}{"low", "high"},
			},
		},
	}

	assert.NoError(t, CheckOutputSchema(schema, map[string]interface{}{"severity": "low"}))

	err := CheckOutputSchema(schema, map[string]interface{}{"severity": "medium"})
	require.Error(t, err)
	assert.ErrorContains(t, err, `not in allowed values`)
}

func TestCheckOutputSchemaIntegerRejectsFraction(t *testing.T) {
	schema := map[string]interface{}{"type": "integer"}

	assert.NoError(t, CheckOutputSchema(schema, float64(4)))
	assert.Error(t, CheckOutputSchema(schema, 4.5))
}

func TestCheckOutputSchemaExtraFieldsPass(t *testing.T) {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"known": map[string]interface{}{"type": "string"},
		},
	}

	assert.NoError(t, CheckOutputSchema(schema, map[string]interface{}{
		"known":   "x",
		"unknown": []interface{}{1, 2},
	}))
}
