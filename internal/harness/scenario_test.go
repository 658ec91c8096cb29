package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensiml/piccolo-sub000/internal/testutil"
)

// writeScenario writes a scenario next to a copy of the fixture catalog and
// returns its path.
func writeScenario(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalog.json"), testutil.CatalogJSON, 0o644))
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const minimalScenario = `
name: minimal
description: "One windowing step"
catalog: catalog.json
pipeline:
  columns: [accelx]
  steps:
    - contract: Windowing
      params: { window_size: 64 }
valid: true
`

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, minimalScenario)

	s, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "minimal", s.Name)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "catalog.json"), s.Catalog)
	assert.Equal(t, path, s.Path)
	require.Len(t, s.Pipeline.Steps, 1)
	assert.Equal(t, "Windowing", s.Pipeline.Steps[0].Contract)
	assert.True(t, s.Valid)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := writeScenario(t, minimalScenario+"assertion: []\n")

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_RequiredFields(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "missing name",
			body: "description: d\ncatalog: catalog.json\npipeline: {columns: [a]}\n",
			want: "name is required",
		},
		{
			name: "missing description",
			body: "name: n\ncatalog: catalog.json\npipeline: {columns: [a]}\n",
			want: "description is required",
		},
		{
			name: "missing catalog",
			body: "name: n\ndescription: d\npipeline: {columns: [a]}\n",
			want: "catalog is required",
		},
		{
			name: "catalog not found",
			body: "name: n\ndescription: d\ncatalog: nope.json\npipeline: {columns: [a]}\n",
			want: "catalog not found",
		},
		{
			name: "missing columns",
			body: "name: n\ndescription: d\ncatalog: catalog.json\npipeline: {steps: []}\n",
			want: "pipeline.columns is required",
		},
		{
			name: "step without contract",
			body: "name: n\ndescription: d\ncatalog: catalog.json\npipeline: {columns: [a], steps: [{params: {}}]}\n",
			want: "pipeline.steps[0]: contract is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_AssertionValidation(t *testing.T) {
	tests := []struct {
		name      string
		assertion string
		want      string
	}{
		{"missing type", "{code: E303}", "type is required"},
		{"unknown type", "{type: trace_order}", `unknown assertion type "trace_order"`},
		{"violation without code", "{type: violation, step: 0}", "code is required for violation"},
		{"width without step", "{type: output_width, output: data_out}", "step is required for output_width"},
		{"buffer without size", "{type: buffer, step: 0, output: data_out}", "size is required for buffer"},
		{"param without name", "{type: param, step: 0}", "param is required for param"},
		{"negative count", "{type: feature_count, count: -1}", "count must be non-negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := minimalScenario + "assertions:\n  - " + tt.assertion + "\n"
			_, err := LoadScenario(writeScenario(t, body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenarios_SortedByFileName(t *testing.T) {
	scenarios, err := LoadScenarios("../../testdata/scenarios")
	require.NoError(t, err)

	names := make([]string, len(scenarios))
	for i, s := range scenarios {
		names[i] = s.Name
	}
	assert.Equal(t, []string{"downsample_range", "gesture_pipeline", "segment_scratch", "shared_conflict"}, names)
}
