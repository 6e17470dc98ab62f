package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLookup struct {
	known map[string]bool
}

func (f fakeLookup) Has(namespace, name string) bool {
	return f.known[namespace+"/"+name]
}

func TestValidateFlagsUnknownActionReference(t *testing.T) {
	doc, err := Parse("x.yaml", []byte(`
version: "1.0"
name: x
steps:
  - name: a
    type: python
    action: shell.run
`))
	require.NoError(t, err)

	result := Validate(doc, fakeLookup{known: map[string]bool{}})
	require.False(t, result.Valid())
	assert.Contains(t, result.Errors[0].Message, "shell.run")
}

func TestValidatePassesWhenActionRegistered(t *testing.T) {
	doc, err := Parse("x.yaml", []byte(`
version: "1.0"
name: x
steps:
  - name: a
    type: python
    action: shell.run
`))
	require.NoError(t, err)

	result := Validate(doc, fakeLookup{known: map[string]bool{"actions/shell.run": true}})
	assert.True(t, result.Valid())
}

func TestValidateFlagsDanglingStepReference(t *testing.T) {
	doc, err := Parse("x.yaml", []byte(`
version: "1.0"
name: x
steps:
  - name: a
    type: python
    action: shell.run
    when: "${{ steps.nonexistent.output.ok }}"
`))
	require.NoError(t, err)

	result := Validate(doc, fakeLookup{known: map[string]bool{"actions/shell.run": true}})
	require.False(t, result.Valid())
	assert.Contains(t, result.Errors[0].Message, "nonexistent")
}

func TestValidateAllowsReferenceToEarlierStep(t *testing.T) {
	doc, err := Parse("x.yaml", []byte(`
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
`))
	require.NoError(t, err)

	result := Validate(doc, fakeLookup{known: map[string]bool{"actions/shell.run": true}})
	assert.True(t, result.Valid())
}

func TestValidateAllowsSiblingReferenceInsideParallel(t *testing.T) {
	doc, err := Parse("x.yaml", []byte(`
version: "1.0"
name: x
steps:
  - name: fanout
    type: parallel
    steps:
      - name: a
        type: python
        action: shell.run
      - name: b
        type: python
        action: shell.run
        when: "${{ steps.a.output.ok }}"
`))
	require.NoError(t, err)

	result := Validate(doc, fakeLookup{known: map[string]bool{"actions/shell.run": true}})
	assert.True(t, result.Valid())
}
