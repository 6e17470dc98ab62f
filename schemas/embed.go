// Package schemas embeds the JSON Schemas shipped with the binary.
package schemas

import _ "embed"

// The workflow document schema rides along in the binary so editors
// and CI can validate workflow files without a network fetch.
//
//go:embed workflow.schema.json
var workflowSchema []byte

// WorkflowSchema returns the workflow document JSON Schema as raw
// bytes.
func WorkflowSchema() []byte {
	return workflowSchema
}

// WorkflowSchemaString returns the workflow document JSON Schema as a
// string.
func WorkflowSchemaString() string {
	return string(workflowSchema)
}
