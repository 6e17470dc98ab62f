package discovery

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windlass-dev/windlass/pkg/workflow"
)

// memFS is an in-memory FS fake keyed by exact path, with Glob
// supporting the `*.yaml`/`*.yml`-at-a-directory patterns discovery
// issues (no need to support `**` here — OSFS covers that case).
type memFS struct {
	files map[string]string
}

func (m *memFS) Glob(pattern string) ([]string, error) {
	dir := path.Dir(pattern)
	ext := path.Ext(pattern)
	var out []string
	for p := range m.files {
		if path.Dir(p) == dir && strings.HasSuffix(p, ext) {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *memFS) ReadFile(path string) ([]byte, error) {
	data, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("no such file: %s", path)
	}
	return []byte(data), nil
}

func fakeParse(path string, data []byte) (*workflow.WorkflowDocument, error) {
	s := string(data)
	if strings.Contains(s, "BROKEN") {
		return nil, fmt.Errorf("simulated parse failure")
	}
	name := strings.TrimSpace(strings.TrimPrefix(s, "name:"))
	return &workflow.WorkflowDocument{Version: "1.0", Name: name}, nil
}

func TestDiscoveryPrecedenceProjectOverridesUser(t *testing.T) {
	fsys := &memFS{files: map[string]string{
		"/project/workflows/deploy.yaml": "name:deploy",
		"/user/workflows/deploy.yaml":    "name:deploy",
		"/user/workflows/lint.yaml":      "name:lint",
	}}

	result, err := Run(fsys, []Source{
		{Kind: workflow.SourceProject, Root: "/project/workflows"},
		{Kind: workflow.SourceUser, Root: "/user/workflows"},
	}, fakeParse)
	require.NoError(t, err)
	require.Len(t, result.Workflows, 2)

	assert.Equal(t, "deploy", result.Workflows[0].Workflow.Name)
	assert.Equal(t, workflow.SourceProject, result.Workflows[0].Source)
	assert.Equal(t, []string{"/user/workflows/deploy.yaml"}, result.Workflows[0].Overrides)

	assert.Equal(t, "lint", result.Workflows[1].Workflow.Name)
	assert.Equal(t, workflow.SourceUser, result.Workflows[1].Source)
}

func TestDiscoverySkipsMalformedFilesWithoutAborting(t *testing.T) {
	fsys := &memFS{files: map[string]string{
		"/project/workflows/good.yaml": "name:good",
		"/project/workflows/bad.yaml":  "BROKEN",
	}}

	result, err := Run(fsys, []Source{
		{Kind: workflow.SourceProject, Root: "/project/workflows"},
	}, fakeParse)
	require.NoError(t, err)
	require.Len(t, result.Workflows, 1)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, "/project/workflows/bad.yaml", result.Skipped[0].FilePath)
	assert.Equal(t, "workflow-parse", result.Skipped[0].ErrorType)
}

func TestDiscoveryFragmentsAreSeparateNamespace(t *testing.T) {
	fsys := &memFS{files: map[string]string{
		"/project/workflows/deploy.yaml":            "name:deploy",
		"/project/workflows/fragments/common.yaml":  "name:common",
	}}

	result, err := Run(fsys, []Source{
		{Kind: workflow.SourceProject, Root: "/project/workflows"},
	}, fakeParse)
	require.NoError(t, err)
	require.Len(t, result.Workflows, 1)
	require.Len(t, result.Fragments, 1)
	assert.Equal(t, "common", result.Fragments[0].Workflow.Name)
}

func TestDiscoveryListingsAreStableSorted(t *testing.T) {
	fsys := &memFS{files: map[string]string{
		"/project/workflows/zeta.yaml":  "name:zeta",
		"/project/workflows/alpha.yaml": "name:alpha",
	}}

	result, err := Run(fsys, []Source{
		{Kind: workflow.SourceProject, Root: "/project/workflows"},
	}, fakeParse)
	require.NoError(t, err)
	require.Len(t, result.Workflows, 2)
	assert.Equal(t, "alpha", result.Workflows[0].Workflow.Name)
	assert.Equal(t, "zeta", result.Workflows[1].Workflow.Name)
}

func TestDiscoveryDisabledSourceIsSkipped(t *testing.T) {
	fsys := &memFS{files: map[string]string{
		"/project/workflows/deploy.yaml": "name:deploy",
	}}

	result, err := Run(fsys, []Source{
		{Kind: workflow.SourceProject, Root: "/project/workflows"},
		{Kind: workflow.SourceBuiltin, Root: ""},
	}, fakeParse)
	require.NoError(t, err)
	assert.Len(t, result.Workflows, 1)
	assert.NotContains(t, result.LocationsScanned, "")
}
