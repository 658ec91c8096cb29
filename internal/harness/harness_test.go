package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios(t *testing.T) {
	scenarios, err := LoadScenarios("../../testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			result, err := Run(s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Len(t, result.PlanHash, 64)
			require.NotNil(t, result.Stored)
		})
	}
}

func TestGesturePipelineGolden(t *testing.T) {
	s, err := LoadScenario("../../testdata/scenarios/gesture_pipeline.yaml")
	require.NoError(t, err)

	result, err := RunWithGolden(t, s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRunIsDeterministic(t *testing.T) {
	s, err := LoadScenario("../../testdata/scenarios/gesture_pipeline.yaml")
	require.NoError(t, err)

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)
	assert.Equal(t, first.PlanHash, second.PlanHash)
}

func TestRunReportsFailedExpectations(t *testing.T) {
	path := writeScenario(t, minimalScenario+`assertions:
  - type: feature_count
    count: 3
  - type: violation
    code: E303
  - type: param
    step: 0
    param: window_size
    value: 64
`)
	s, err := LoadScenario(path)
	require.NoError(t, err)
	s.Valid = false

	result, err := Run(s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3, "errors: %v", result.Errors)
	assert.Contains(t, result.Errors[0], "expected valid=false, got valid=true")
	assert.Contains(t, result.Errors[1], "assertions[0]: Assertion failed: feature_count")
	assert.Contains(t, result.Errors[2], "assertions[1]: Assertion failed: violation")
}

func TestRunUnnamedPipelineTakesScenarioName(t *testing.T) {
	s, err := LoadScenario(writeScenario(t, minimalScenario))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.Equal(t, "minimal", result.Plan.Pipeline.Name)
}

func TestRunMissingCatalog(t *testing.T) {
	s := &Scenario{Name: "x", Catalog: "/nonexistent/catalog.json"}

	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load catalog")
}
