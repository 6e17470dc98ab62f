package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedSchemaMatchesParserContract(t *testing.T) {
	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(EmbeddedSchema(), &parsed))

	// The schema's required top-level fields must agree with what
	// Parse enforces.
	required, ok := parsed["required"].([]interface{})
	require.True(t, ok)
	assert.ElementsMatch(t, []interface{}{"version", "name", "steps"}, required)
}

func TestEmbeddedSchemaStringNonEmpty(t *testing.T) {
	assert.NotEmpty(t, EmbeddedSchemaString())
	assert.Equal(t, string(EmbeddedSchema()), EmbeddedSchemaString())
}
