package catalog

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensiml/piccolo-sub000/internal/ir"
	"github.com/sensiml/piccolo-sub000/internal/testutil"
)

func fixtureRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := New(testutil.Contracts(t))
	require.NoError(t, err)
	return reg
}

func TestRegistryGet(t *testing.T) {
	reg := fixtureRegistry(t)

	byName, err := reg.Get("Downsample")
	require.NoError(t, err)
	assert.Equal(t, "Downsample", byName.Name)

	byUUID, err := reg.Get("e2a1c4a0-0f1b-4c8e-9d15-1b5ad2f4b002")
	require.NoError(t, err)
	assert.Same(t, byName, byUUID)

	folded, err := reg.Get("  two column peak LOCATION difference ")
	require.NoError(t, err)
	assert.Equal(t, "Two Column Peak Location Difference", folded.Name)
}

func TestRegistryGetNotFound(t *testing.T) {
	reg := fixtureRegistry(t)

	_, err := reg.Get("Fourier Transform")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsDuplicate(err))

	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ir.KindContractNotFound, ce.Kind)
	assert.Equal(t, "E201: Fourier Transform: no contract with this name or uuid", err.Error())
}

func TestRegistryListAndTypes(t *testing.T) {
	reg := fixtureRegistry(t)

	assert.Equal(t, 13, reg.Len())

	list := reg.List()
	require.Len(t, list, 13)
	for i := 1; i < len(list); i++ {
		assert.Less(t, list[i-1].Name, list[i].Name, "List is ordered by name")
	}

	assert.Equal(t, []string{
		"classifier", "featureGenerator", "featureSelector", "segmenter",
		"trainingAlgorithm", "transform", "validationMethod",
	}, reg.Types())

	var segmenters []string
	for _, c := range reg.ByType(ir.StepSegmenter) {
		segmenters = append(segmenters, c.Name)
	}
	assert.Equal(t, []string{"Windowing"}, segmenters)
	assert.Empty(t, reg.ByType("sampler"))
}

func TestRegistryFormula(t *testing.T) {
	reg := fixtureRegistry(t)

	downsample, err := reg.Get("Downsample")
	require.NoError(t, err)
	expr := reg.Formula(downsample, 0)
	require.NotNil(t, expr)
	assert.Equal(t, "params['new_length']*len(params['columns'])", expr.String())
	assert.Nil(t, reg.Formula(downsample, 1))

	windowing, err := reg.Get("Windowing")
	require.NoError(t, err)
	assert.Nil(t, reg.Formula(windowing, 0))
}

func TestNewAssignsDeterministicUUID(t *testing.T) {
	contracts := []ir.StepContract{{Name: "Mean", Type: ir.StepFeatureGenerator}}

	r1, err := New(contracts)
	require.NoError(t, err)
	r2, err := New(contracts)
	require.NoError(t, err)

	c1, err := r1.Get("Mean")
	require.NoError(t, err)
	c2, err := r2.Get("Mean")
	require.NoError(t, err)

	assert.Equal(t, c1.UUID, c2.UUID)
	parsed, err := uuid.Parse(c1.UUID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(5), parsed.Version())
	assert.Empty(t, contracts[0].UUID, "caller's slice is not modified")
}

func TestNewRejectsDuplicates(t *testing.T) {
	tests := []struct {
		name      string
		contracts []ir.StepContract
	}{
		{"same name", []ir.StepContract{
			{UUID: "a", Name: "Mean", Type: ir.StepFeatureGenerator},
			{UUID: "b", Name: "Mean", Type: ir.StepFeatureGenerator},
		}},
		{"name differs only in case", []ir.StepContract{
			{UUID: "a", Name: "Mean", Type: ir.StepFeatureGenerator},
			{UUID: "b", Name: "MEAN", Type: ir.StepFeatureGenerator},
		}},
		{"same uuid", []ir.StepContract{
			{UUID: "a", Name: "Mean", Type: ir.StepFeatureGenerator},
			{UUID: "a", Name: "Median", Type: ir.StepFeatureGenerator},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.contracts)
			require.Error(t, err)
			assert.True(t, IsDuplicate(err))
		})
	}
}

func intPtr(i int) *int { return &i }

func TestNewRejectsIntegrityProblems(t *testing.T) {
	tests := []struct {
		name     string
		contract ir.StepContract
		contains string
	}{
		{
			name:     "empty name",
			contract: ir.StepContract{Type: ir.StepTransform},
			contains: "name is required",
		},
		{
			name: "unknown type",
			contract: ir.StepContract{Name: "X", InputContract: []ir.ParamSpec{
				{Name: "gain", Type: "double"},
			}},
			contains: `unknown parameter type "double"`,
		},
		{
			name: "unknown element type",
			contract: ir.StepContract{Name: "X", InputContract: []ir.ParamSpec{
				{Name: "columns", Type: ir.TypeList, ElementType: "string"},
			}},
			contains: `unknown element_type "string"`,
		},
		{
			name: "duplicate param",
			contract: ir.StepContract{Name: "X", InputContract: []ir.ParamSpec{
				{Name: "a", Type: ir.TypeInt}, {Name: "a", Type: ir.TypeInt},
			}},
			contains: "declared more than once",
		},
		{
			name: "duplicate c_param",
			contract: ir.StepContract{Name: "X", InputContract: []ir.ParamSpec{
				{Name: "a", Type: ir.TypeInt, CParam: intPtr(0)},
				{Name: "b", Type: ir.TypeInt, CParam: intPtr(0)},
			}},
			contains: `c_param 0 already used by "a"`,
		},
		{
			name: "negative c_param",
			contract: ir.StepContract{Name: "X", InputContract: []ir.ParamSpec{
				{Name: "a", Type: ir.TypeInt, CParam: intPtr(0)},
				{Name: "k", Type: ir.TypeInt, CParam: intPtr(-1)},
			}},
			contains: "c_param -1 is negative",
		},
		{
			name: "unknown depends_on target",
			contract: ir.StepContract{Name: "X", InputContract: []ir.ParamSpec{
				{Name: "delta", Type: ir.TypeInt, DependsOn: []ir.Dependency{{Name: "window", How: ir.HowEnabled}}},
			}},
			contains: `unknown parameter "window"`,
		},
		{
			name: "unknown relation",
			contract: ir.StepContract{Name: "X", InputContract: []ir.ParamSpec{
				{Name: "a", Type: ir.TypeInt},
				{Name: "b", Type: ir.TypeInt, DependsOn: []ir.Dependency{{Name: "a", How: "roughly"}}},
			}},
			contains: `unknown relation "roughly"`,
		},
		{
			name: "unparsable formula",
			contract: ir.StepContract{Name: "X", OutputContract: []ir.OutputSpec{
				{Name: "out", Type: ir.TypeDataFrame, OutputFormula: "__import__('os').system('x')"},
			}},
			contains: "output_formula",
		},
		{
			name: "unknown scratch buffer",
			contract: ir.StepContract{Name: "X", OutputContract: []ir.OutputSpec{
				{Name: "out", Type: ir.TypeDataFrame, ScratchBuffer: &ir.ScratchBuffer{Type: "heap"}},
			}},
			contains: `unknown scratch_buffer type "heap"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New([]ir.StepContract{tt.contract})
			require.Error(t, err)
			assert.True(t, IsIntegrity(err))
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestNewReportsEveryProblem(t *testing.T) {
	_, err := New([]ir.StepContract{
		{Name: "A", InputContract: []ir.ParamSpec{{Name: "x", Type: "double"}}},
		{Name: "B", InputContract: []ir.ParamSpec{{Name: "y", Type: "quad"}}},
	})
	require.Error(t, err)

	errs := Errors(err)
	require.Len(t, errs, 2)
	assert.Equal(t, "A", errs[0].Contract)
	assert.Equal(t, "B", errs[1].Contract)

	v := errs[0].Violation()
	assert.Equal(t, ir.ScopeCatalog, v.Scope)
	assert.Equal(t, "E203", v.Code)
	assert.Equal(t, -1, v.Step)
}

func TestRegistryConcurrentReads(t *testing.T) {
	reg := fixtureRegistry(t)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := reg.Get("histogram")
			assert.NoError(t, err)
			assert.NotNil(t, reg.Formula(c, 0))
			assert.Len(t, reg.List(), 13)
		}()
	}
	wg.Wait()
}
