package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalWorkflow = `
version: "1.0"
name: deploy
steps:
  - name: build
    type: python
    action: shell.run
    args: ["make", "build"]
`

func TestParseMinimalWorkflow(t *testing.T) {
	doc, err := Parse("deploy.yaml", []byte(minimalWorkflow))
	require.NoError(t, err)
	assert.Equal(t, "deploy", doc.Name)
	assert.Equal(t, "1.0", doc.Version)
	require.Len(t, doc.Steps, 1)
	assert.Equal(t, "shell.run", doc.Steps[0].Action)
}

func TestParseRejectsUnsupportedVersion(t *testing.T) {
	doc := `
version: "2.0"
name: x
steps:
  - name: a
    type: python
    action: shell.run
`
	_, err := Parse("x.yaml", []byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported version")
}

func TestParseRejectsUnknownTopLevelKey(t *testing.T) {
	doc := `
version: "1.0"
name: x
triggers: []
steps:
  - name: a
    type: python
    action: shell.run
`
	_, err := Parse("x.yaml", []byte(doc))
	require.Error(t, err)
}

func TestParseRejectsMissingRequiredFieldPerKind(t *testing.T) {
	doc := `
version: "1.0"
name: x
steps:
  - name: a
    type: agent
`
	_, err := Parse("x.yaml", []byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "agent step requires 'agent'")
}

func TestParseWriteRoundTrip(t *testing.T) {
	doc, err := Parse("deploy.yaml", []byte(minimalWorkflow))
	require.NoError(t, err)

	out, err := Write(doc)
	require.NoError(t, err)

	reparsed, err := Parse("deploy.yaml", out)
	require.NoError(t, err)
	assert.Equal(t, doc, reparsed)
}

func TestParsePreservesExpressionsVerbatim(t *testing.T) {
	doc := `
version: "1.0"
name: x
steps:
  - name: a
    type: python
    action: shell.run
  - name: b
    type: python
    action: shell.run
    when: "${{ steps.a.output.ok }}"
`
	parsed, err := Parse("x.yaml", []byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "${{ steps.a.output.ok }}", parsed.Steps[1].When)
}

func TestParseRejectsBranchWithoutOptions(t *testing.T) {
	doc := `
version: "1.0"
name: x
steps:
  - name: a
    type: branch
`
	_, err := Parse("x.yaml", []byte(doc))
	require.Error(t, err)
}
