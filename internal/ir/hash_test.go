package ir

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePipeline() *Pipeline {
	return &Pipeline{
		Name:    "gestures",
		Columns: []string{"accelx", "accely"},
		Steps: []StepInvocation{
			{Contract: "Windowing", Params: Params{"window_size": Int(250), "delta": Int(250)}},
			{Contract: "Downsample", Params: Params{"columns": StrList("accelx"), "new_length": Int(5)}},
		},
	}
}

func TestPipelineHashDeterminism(t *testing.T) {
	h1, err := PipelineHash(samplePipeline())
	require.NoError(t, err)
	h2, err := PipelineHash(samplePipeline())
	require.NoError(t, err)

	assert.Equal(t, h1, h2, "PipelineHash must be deterministic")
	assert.Len(t, h1, 64, "SHA-256 hex is 64 characters")
}

func TestPipelineHashChangesWithParams(t *testing.T) {
	p := samplePipeline()
	h1 := MustPipelineHash(p)

	p.Steps[1].Params["new_length"] = Int(6)
	h2 := MustPipelineHash(p)

	assert.NotEqual(t, h1, h2)
}

func TestPipelineHashIgnoresNumericSpelling(t *testing.T) {
	p1 := samplePipeline()
	p2 := samplePipeline()
	p2.Steps[0].Params["window_size"] = Float(250)

	assert.Equal(t, MustPipelineHash(p1), MustPipelineHash(p2))
}

func TestContractHash(t *testing.T) {
	c := &StepContract{
		UUID: "u-1",
		Name: "Magnitude",
		Type: StepTransform,
		InputContract: []ParamSpec{
			{Name: "input_columns", Type: TypeList, ElementType: TypeStr},
		},
		OutputContract: []OutputSpec{{Name: "output_data", Type: TypeDataFrame}},
	}

	h1, err := ContractHash(c)
	require.NoError(t, err)

	c.InputContract[0].Name = "columns"
	h2, err := ContractHash(c)
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}

func TestDomainSeparationPreventsCrossTypeCollision(t *testing.T) {
	data := []byte(`{}`)
	assert.NotEqual(t, hashWithDomain(DomainPipeline, data), hashWithDomain(DomainPlan, data))
	assert.Equal(t, hashWithDomain(DomainPlan, data), PlanHash(data))
}

func TestHashWithDomainNullSeparator(t *testing.T) {
	// "ab" + 0x00 + "c" must differ from "a" + 0x00 + "bc"
	assert.NotEqual(t, hashWithDomain("ab", []byte("c")), hashWithDomain("a", []byte("bc")))
}

func TestDomainConstants(t *testing.T) {
	assert.Equal(t, "piccolo/contract/v1", DomainContract)
	assert.Equal(t, "piccolo/pipeline/v1", DomainPipeline)
	assert.Equal(t, "piccolo/plan/v1", DomainPlan)
}

func TestMustPipelineHashPanics(t *testing.T) {
	p := samplePipeline()
	p.Shared = Params{"bad": Float(math.Inf(1))}
	assert.Panics(t, func() { MustPipelineHash(p) })
}
