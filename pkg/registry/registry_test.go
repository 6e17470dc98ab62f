package registry

import (
	"context"
	"testing"

	werrors "github.com/windlass-dev/windlass/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAction struct{}

func (stubAction) Execute(ctx context.Context, operation string, inputs map[string]interface{}) (map[string]interface{}, error) {
	return map[string]interface{}{"ok": true}, nil
}

func TestRegisterAndLookup(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(Actions, "noop", stubAction{}))

	v, err := r.Lookup(Actions, "noop")
	require.NoError(t, err)
	assert.Equal(t, stubAction{}, v)
}

func TestRegisterDuplicateFails(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(Actions, "noop", stubAction{}))

	err := r.Register(Actions, "noop", stubAction{})
	require.Error(t, err)
	var dupErr *werrors.DuplicateComponentError
	assert.ErrorAs(t, err, &dupErr)
}

func TestRegisterWithReplaceOverwrites(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(Actions, "noop", stubAction{}))
	err := r.Register(Actions, "noop", stubAction{}, WithReplace(true))
	require.NoError(t, err)
}

func TestRegisterActionValidatesShape(t *testing.T) {
	r := New()
	err := r.Register(Actions, "bad", "not an action")
	require.Error(t, err)
}

func TestRegisterNonActionNamespaceSkipsShapeCheck(t *testing.T) {
	r := New()
	err := r.Register(Agents, "my-agent", "anything opaque")
	require.NoError(t, err)
}

func TestLookupMissingListsAvailableNames(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(Actions, "a", stubAction{}))
	require.NoError(t, r.Register(Actions, "b", stubAction{}))

	_, err := r.Lookup(Actions, "missing")
	require.Error(t, err)
	var refErr *werrors.ReferenceError
	require.ErrorAs(t, err, &refErr)
	assert.ElementsMatch(t, []string{"a", "b"}, refErr.Available)
	assert.Equal(t, 0, refErr.MoreCount)
}

func TestLookupMissingTruncatesToTenWithMoreCount(t *testing.T) {
	r := New()
	for i := 0; i < 15; i++ {
		name := string(rune('a' + i))
		require.NoError(t, r.Register(Actions, name, stubAction{}))
	}

	_, err := r.Lookup(Actions, "zzz")
	require.Error(t, err)
	var refErr *werrors.ReferenceError
	require.ErrorAs(t, err, &refErr)
	assert.Len(t, refErr.Available, 10)
	assert.Equal(t, 5, refErr.MoreCount)
}

func TestNamesIsSortedAcrossNamespaces(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(Agents, "zeta", "x"))
	require.NoError(t, r.Register(Agents, "alpha", "y"))
	assert.Equal(t, []string{"alpha", "zeta"}, r.Names(Agents))
}
