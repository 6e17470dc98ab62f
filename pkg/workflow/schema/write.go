package schema

import (
	"gopkg.in/yaml.v3"

	"github.com/windlass-dev/windlass/pkg/workflow"
)

// Write serializes a WorkflowDocument back to YAML. Field ordering
// follows WorkflowDocument's declaration order (version, name,
// description, inputs, steps, preflight) since yaml.v3 marshals struct
// fields in declaration order; this is what makes Parse(Write(doc))
// round-trip to a structurally equal document.
func Write(doc *workflow.WorkflowDocument) ([]byte, error) {
	return yaml.Marshal(doc)
}
