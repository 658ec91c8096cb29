package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const histogramJSON = `{
	"uuid": "5ffcfa1f-9a9a-4b2a-8a3c-54f0c0a6e7a1",
	"name": "Histogram",
	"type": "featureGenerator",
	"subtype": "Histogram",
	"has_c_version": true,
	"automl_available": true,
	"library_pack": null,
	"input_contract": [
		{"name": "input_data", "type": "DataFrame"},
		{"name": "columns", "type": "list", "element_type": "str", "num_columns": -1},
		{"name": "range_left", "type": "int", "default": -1000, "c_param": 1},
		{"name": "number_of_bins", "type": "int", "default": 32, "range": [1, 255], "c_param": 0},
		{"name": "scaling_factor", "type": "float", "default": 255.0, "c_param": 3},
		{"name": "group_columns", "type": "list", "element_type": "str", "handle_by_set": true, "no_display": true},
		{"name": "label", "type": "str", "default": null},
		{"name": "mode", "type": "str", "default": "median", "options": [{"name": "median"}, "std"], "c_param_mapping": {"median": 1, "std": 0}},
		{"name": "train_delta", "type": "int", "default": 0, "depends_on": {"name": "enable_train_delta", "how": "enabled"}}
	],
	"output_contract": [
		{
			"name": "output_data",
			"type": "DataFrame",
			"family": false,
			"output_formula": "params['number_of_bins']",
			"scratch_buffer": {"type": "parameter", "name": "number_of_bins"}
		}
	]
}`

func TestStepContractUnmarshal(t *testing.T) {
	var c StepContract
	require.NoError(t, json.Unmarshal([]byte(histogramJSON), &c))

	assert.Equal(t, "Histogram", c.Name)
	assert.Equal(t, StepFeatureGenerator, c.Type)
	assert.True(t, c.HasCVersion)
	assert.Nil(t, c.LibraryPack)
	require.Len(t, c.InputContract, 9)
	require.Len(t, c.OutputContract, 1)

	bins := c.Param("number_of_bins")
	require.NotNil(t, bins)
	assert.Equal(t, Int(32), bins.Default)
	require.NotNil(t, bins.Range)
	assert.Equal(t, Range{Min: 1, Max: 255}, *bins.Range)
	require.NotNil(t, bins.CParam)
	assert.Equal(t, 0, *bins.CParam)

	assert.Equal(t, Float(255), c.Param("scaling_factor").Default)

	columns := c.Param("columns")
	require.NotNil(t, columns.NumColumns)
	assert.Equal(t, -1, *columns.NumColumns)
	assert.False(t, columns.HasDefault())

	label := c.Param("label")
	assert.True(t, label.HasDefault(), "explicit null is a declared default")
	assert.Equal(t, Null{}, label.Default)

	assert.True(t, c.Param("group_columns").HandleBySet)
	assert.True(t, c.Param("input_data").Collaborator())
	assert.Nil(t, c.Param("missing"))

	out := c.OutputContract[0]
	assert.Equal(t, "params['number_of_bins']", out.OutputFormula)
	require.NotNil(t, out.ScratchBuffer)
	assert.Equal(t, BufferParameter, out.ScratchBuffer.Type)
	assert.Equal(t, "number_of_bins", out.ScratchBuffer.Name)
}

func TestOptionForms(t *testing.T) {
	var c StepContract
	require.NoError(t, json.Unmarshal([]byte(histogramJSON), &c))

	mode := c.Param("mode")
	require.Len(t, mode.Options, 2)
	assert.Equal(t, Str("median"), mode.Options[0].Value)
	assert.Equal(t, Dict{"name": Str("median")}, mode.Options[0].Object)
	assert.Equal(t, Str("std"), mode.Options[1].Value)
	assert.Nil(t, mode.Options[1].Object)
	assert.Equal(t, map[string]int{"median": 1, "std": 0}, mode.CParamMapping)

	var bad Option
	assert.Error(t, json.Unmarshal([]byte(`{"label": "x"}`), &bad))
}

func TestDependsOnForms(t *testing.T) {
	tests := []struct {
		name string
		json string
		want []Dependency
	}{
		{"object", `{"name":"delta","type":"int","depends_on":{"name":"window_size","how":"less_than_or_equal"}}`,
			[]Dependency{{Name: "window_size", How: HowLessThanOrEqual}}},
		{"list", `{"name":"delta","type":"int","depends_on":[{"name":"a","how":"enabled"},{"name":"b","how":"not_equal"}]}`,
			[]Dependency{{Name: "a", How: HowEnabled}, {Name: "b", How: HowNotEqual}}},
		{"null", `{"name":"delta","type":"int","depends_on":null}`, nil},
		{"absent", `{"name":"delta","type":"int"}`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p ParamSpec
			require.NoError(t, json.Unmarshal([]byte(tt.json), &p))
			assert.Equal(t, tt.want, p.DependsOn)
		})
	}
}

func TestRange(t *testing.T) {
	r := Range{Min: 5, Max: 32}
	assert.True(t, r.Contains(5))
	assert.True(t, r.Contains(32))
	assert.False(t, r.Contains(4))
	assert.False(t, r.Contains(32.5))
	assert.Equal(t, "[5, 32]", r.String())

	var bad Range
	assert.Error(t, json.Unmarshal([]byte(`[1]`), &bad))
	assert.Error(t, json.Unmarshal([]byte(`"x"`), &bad))
}

func TestStepContractRoundTrip(t *testing.T) {
	var c StepContract
	require.NoError(t, json.Unmarshal([]byte(histogramJSON), &c))

	data, err := json.Marshal(&c)
	require.NoError(t, err)

	var back StepContract
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, c, back)
}
