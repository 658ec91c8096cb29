package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensiml/piccolo-sub000/internal/ir"
	"github.com/sensiml/piccolo-sub000/internal/testutil"
)

func TestCheckCatalogFixtureIsClean(t *testing.T) {
	contracts := testutil.Contracts(t)
	ptrs := make([]*ir.StepContract, len(contracts))
	for i := range contracts {
		ptrs[i] = &contracts[i]
	}
	assert.Empty(t, CheckCatalog(ptrs))
}

func intp(i int) *int { return &i }

func TestCheckCatalog(t *testing.T) {
	tests := []struct {
		name     string
		contract ir.StepContract
		param    string
		message  string
	}{
		{
			name: "default outside range",
			contract: ir.StepContract{Name: "C", InputContract: []ir.ParamSpec{
				{Name: "n", Type: ir.TypeInt, Default: ir.Int(0), Range: &ir.Range{Min: 1, Max: 4}},
			}},
			param:   "n",
			message: "default 0: RangeViolation: value 0 is outside range [1, 4]",
		},
		{
			name: "default not an option",
			contract: ir.StepContract{Name: "C", InputContract: []ir.ParamSpec{
				{Name: "mode", Type: ir.TypeStr, Default: ir.Str("x"), Options: []ir.Option{{Value: ir.Str("a")}}},
			}},
			param:   "mode",
			message: `default "x": OptionNotAllowed: value "x" is not one of ["a"]`,
		},
		{
			name: "default wrong type",
			contract: ir.StepContract{Name: "C", InputContract: []ir.ParamSpec{
				{Name: "flag", Type: ir.TypeBool, Default: ir.Str("yes")},
			}},
			param:   "flag",
			message: `default "yes": InvalidParameterType: expected bool, got str "yes"`,
		},
		{
			name: "c_param gap",
			contract: ir.StepContract{Name: "C", InputContract: []ir.ParamSpec{
				{Name: "a", Type: ir.TypeInt, CParam: intp(0)},
				{Name: "b", Type: ir.TypeInt, CParam: intp(2)},
			}},
			message: "c_param slots skip index 1",
		},
		{
			name: "c_param duplicate",
			contract: ir.StepContract{Name: "C", InputContract: []ir.ParamSpec{
				{Name: "a", Type: ir.TypeInt, CParam: intp(0)},
				{Name: "b", Type: ir.TypeInt, CParam: intp(0)},
			}},
			param:   "b",
			message: `c_param 0 already used by "a"`,
		},
		{
			name: "mapping incomplete",
			contract: ir.StepContract{Name: "C", InputContract: []ir.ParamSpec{
				{Name: "mode", Type: ir.TypeStr, CParam: intp(0), NoDisplay: true,
					Options:       []ir.Option{{Value: ir.Str("a")}, {Value: ir.Str("b")}},
					CParamMapping: map[string]int{"a": 0}},
			}},
			param:   "mode",
			message: `option "b" has no c_param_mapping entry`,
		},
		{
			name: "string slot without mapping",
			contract: ir.StepContract{Name: "C", InputContract: []ir.ParamSpec{
				{Name: "mode", Type: ir.TypeStr, CParam: intp(0), NoDisplay: true},
			}},
			param:   "mode",
			message: "string parameter in c_param slot 0 has no c_param_mapping",
		},
		{
			name: "range inverted",
			contract: ir.StepContract{Name: "C", InputContract: []ir.ParamSpec{
				{Name: "n", Type: ir.TypeInt, Range: &ir.Range{Min: 5, Max: 1}},
			}},
			param:   "n",
			message: "range [5, 1] has min above max",
		},
		{
			name: "arity on scalar",
			contract: ir.StepContract{Name: "C", InputContract: []ir.ParamSpec{
				{Name: "n", Type: ir.TypeInt, NumColumns: intp(2)},
			}},
			param:   "n",
			message: "arity constraints on a int parameter",
		},
		{
			name: "num_columns outside bounds",
			contract: ir.StepContract{Name: "C", InputContract: []ir.ParamSpec{
				{Name: "cols", Type: ir.TypeList, NumColumns: intp(4), MaxElements: intp(3)},
			}},
			param:   "cols",
			message: "num_columns 4 outside min_elements/max_elements",
		},
		{
			name: "formula over unknown parameter",
			contract: ir.StepContract{Name: "C", OutputContract: []ir.OutputSpec{
				{Name: "out", OutputFormula: "params['bins'] * 2"},
			}},
			param:   "out",
			message: `output_formula references unknown parameter "bins"`,
		},
		{
			name: "scratch parameter missing",
			contract: ir.StepContract{Name: "C", OutputContract: []ir.OutputSpec{
				{Name: "out", ScratchBuffer: &ir.ScratchBuffer{Type: ir.BufferParameter, Name: "bins"}},
			}},
			param:   "out",
			message: `scratch buffer parameter "bins" does not exist`,
		},
		{
			name: "scratch fixed not positive",
			contract: ir.StepContract{Name: "C", OutputContract: []ir.OutputSpec{
				{Name: "out", ScratchBuffer: &ir.ScratchBuffer{Type: ir.BufferFixedValue}},
			}},
			param:   "out",
			message: "fixed_value scratch buffer needs a positive value",
		},
		{
			name: "depends_on cycle",
			contract: ir.StepContract{Name: "C", InputContract: []ir.ParamSpec{
				{Name: "x", Type: ir.TypeInt, DependsOn: []ir.Dependency{{Name: "y", How: ir.HowEnabled}}},
				{Name: "y", Type: ir.TypeInt, DependsOn: []ir.Dependency{{Name: "x", How: ir.HowEnabled}}},
			}},
			param:   "x",
			message: "depends_on cycle: [x y x]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.contract
			violations := CheckCatalog([]*ir.StepContract{&c})
			require.Len(t, violations, 1, "violations: %v", violations)
			v := violations[0]
			assert.Equal(t, ir.KindCatalogIntegrity, v.Kind)
			assert.Equal(t, "E203", v.Code)
			assert.Equal(t, ir.ScopeCatalog, v.Scope)
			assert.Equal(t, -1, v.Step)
			assert.Equal(t, "C", v.Contract)
			assert.Equal(t, tt.param, v.Param)
			assert.Equal(t, tt.message, v.Message)
		})
	}
}

func TestCheckCatalogReportsEverything(t *testing.T) {
	c := ir.StepContract{Name: "Broken", InputContract: []ir.ParamSpec{
		{Name: "n", Type: ir.TypeInt, Default: ir.Int(9), Range: &ir.Range{Min: 1, Max: 4}, CParam: intp(1)},
		{Name: "s", Type: "string"},
	}}
	violations := CheckCatalog([]*ir.StepContract{&c})
	assert.Len(t, violations, 3)
}
