package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensiml/piccolo-sub000/internal/ir"
)

func TestPipelineContextSeeds(t *testing.T) {
	p := &ir.Pipeline{
		Columns:      []string{"accelx"},
		LabelColumn:  "Gesture",
		GroupColumns: []string{"Subject"},
		Shared:       ir.Params{"passthrough_columns": ir.StrList("Subject"), "ignored": ir.Null{}},
	}

	pc, conflicts := NewPipelineContext(p)
	require.Empty(t, conflicts)

	v, ok := pc.Lookup(ParamLabelColumn)
	require.True(t, ok)
	assert.Equal(t, ir.Str("Gesture"), v)

	v, ok = pc.Lookup(ParamGroupColumns)
	require.True(t, ok)
	assert.Equal(t, ir.StrList("Subject"), v)

	_, ok = pc.Lookup("ignored")
	assert.False(t, ok, "null shared values fix nothing")

	assert.Equal(t, []string{"passthrough_columns", ParamLabelColumn, ParamGroupColumns}, pc.names())
	assert.Len(t, pc.Shared(), 3)
}

func TestPipelineContextHeaderConflict(t *testing.T) {
	p := &ir.Pipeline{
		LabelColumn: "Gesture",
		Shared:      ir.Params{ParamLabelColumn: ir.Str("Activity")},
	}

	_, conflicts := NewPipelineContext(p)
	require.Len(t, conflicts, 1)
	assert.Equal(t, ir.KindSharedParameterConflict, conflicts[0].Kind)
	assert.Equal(t, ir.ScopePipeline, conflicts[0].Scope)
	assert.Equal(t, `the pipeline sets "Gesture" but the pipeline already set "Activity"`, conflicts[0].Message)
}

func TestPipelineContextRecord(t *testing.T) {
	pc, _ := NewPipelineContext(&ir.Pipeline{})

	assert.Nil(t, pc.Record("group_columns", ir.StrList("Subject"), 0, "Windowing"))
	assert.Nil(t, pc.Record("group_columns", ir.StrList("Subject"), 2, "Downsample"), "identical values agree")

	conflict := pc.Record("group_columns", ir.StrList("Subject", "Trial"), 3, "Histogram")
	require.NotNil(t, conflict)
	assert.Equal(t, "E401", conflict.Code)
	assert.Equal(t, 3, conflict.Step)
	assert.Equal(t, "Histogram", conflict.Contract)
	assert.Equal(t, "group_columns", conflict.Param)
	assert.Equal(t, `step 3 (Histogram) sets ["Subject","Trial"] but step 0 (Windowing) already set ["Subject"]`, conflict.Message)

	v, _ := pc.Lookup("group_columns")
	assert.Equal(t, ir.StrList("Subject"), v, "the first value stays fixed")
}

func TestPipelineContextNumericAgreement(t *testing.T) {
	pc, _ := NewPipelineContext(&ir.Pipeline{})
	assert.Nil(t, pc.Record("rate", ir.Int(100), 0, "A"))
	assert.Nil(t, pc.Record("rate", ir.Float(100), 1, "B"))
}
