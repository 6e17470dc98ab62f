package schema

import "github.com/windlass-dev/windlass/schemas"

// EmbeddedSchema returns the workflow document JSON Schema embedded in
// the binary, re-exported here so schema consumers don't need a second
// import. The bytes live in the module-root schemas package because
// go:embed cannot reference parent directories.
func EmbeddedSchema() []byte {
	return schemas.WorkflowSchema()
}

// EmbeddedSchemaString returns the embedded schema as a string.
func EmbeddedSchemaString() string {
	return schemas.WorkflowSchemaString()
}
