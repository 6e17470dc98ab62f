package schemas

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflowSchemaIsValidJSON(t *testing.T) {
	var schema map[string]interface{}
	require.NoError(t, json.Unmarshal(WorkflowSchema(), &schema))

	assert.Equal(t, "object", schema["type"])
	assert.Contains(t, schema, "properties")
}

func TestWorkflowSchemaAcceptsOnlyVersion10(t *testing.T) {
	var schema struct {
		Properties struct {
			Version struct {
				Enum []string `json:"enum"`
			} `json:"version"`
		} `json:"properties"`
	}
	require.NoError(t, json.Unmarshal(WorkflowSchema(), &schema))
	assert.Equal(t, []string{"1.0"}, schema.Properties.Version.Enum)
}

func TestWorkflowSchemaCoversAllStepKinds(t *testing.T) {
	text := WorkflowSchemaString()
	for _, kind := range []string{"python", "agent", "generate", "validate", "subworkflow", "branch", "parallel", "checkpoint"} {
		assert.Contains(t, text, kind)
	}
}
