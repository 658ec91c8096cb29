package compiler

import (
	"fmt"

	"github.com/sensiml/piccolo-sub000/internal/ir"
)

// Names of shared parameters seeded from the pipeline header.
const (
	ParamLabelColumn  = "label_column"
	ParamGroupColumns = "group_columns"
)

// PipelineContext carries handle_by_set values from step to step.
//
// The first occurrence of a shared name fixes its value; values declared in
// the pipeline's shared block count as occurring before step 0. Later steps
// that omit the parameter inherit it; later steps that set a different value
// conflict. A PipelineContext belongs to one Compile call.
type PipelineContext struct {
	values map[string]sharedValue
	order  []string
}

type sharedValue struct {
	value    ir.Value
	step     int // -1 for the pipeline header
	contract string
}

// NewPipelineContext seeds a context from the pipeline's shared block and
// its label_column and group_columns header fields. Disagreements inside
// the header are returned as conflicts.
func NewPipelineContext(p *ir.Pipeline) (*PipelineContext, []ir.Violation) {
	pc := &PipelineContext{values: make(map[string]sharedValue)}

	var conflicts []ir.Violation
	for _, name := range p.Shared.SortedKeys() {
		if v := p.Shared[name]; !isNull(v) {
			pc.set(name, v, -1, "")
		}
	}
	if p.LabelColumn != "" {
		if v := pc.Record(ParamLabelColumn, ir.Str(p.LabelColumn), -1, ""); v != nil {
			conflicts = append(conflicts, *v)
		}
	}
	if len(p.GroupColumns) > 0 {
		if v := pc.Record(ParamGroupColumns, ir.StrList(p.GroupColumns...), -1, ""); v != nil {
			conflicts = append(conflicts, *v)
		}
	}
	return pc, conflicts
}

func (pc *PipelineContext) set(name string, v ir.Value, step int, contract string) {
	if _, ok := pc.values[name]; !ok {
		pc.order = append(pc.order, name)
	}
	pc.values[name] = sharedValue{value: v, step: step, contract: contract}
}

// Lookup returns the shared value of name, if one has been fixed.
func (pc *PipelineContext) Lookup(name string) (ir.Value, bool) {
	sv, ok := pc.values[name]
	return sv.value, ok
}

// Record offers an explicit value for a shared parameter. The first offer
// fixes the value; a later, different offer yields a pipeline-scoped
// SharedParameterConflict. Identical offers are accepted.
func (pc *PipelineContext) Record(name string, v ir.Value, step int, contract string) *ir.Violation {
	prev, ok := pc.values[name]
	if !ok {
		pc.set(name, v, step, contract)
		return nil
	}
	if ir.Equal(prev.value, v) {
		return nil
	}
	return &ir.Violation{
		Kind:     ir.KindSharedParameterConflict,
		Code:     ir.KindSharedParameterConflict.Code(),
		Scope:    ir.ScopePipeline,
		Step:     step,
		Contract: contract,
		Param:    name,
		Message: fmt.Sprintf("%s sets %s but %s already set %s",
			origin(step, contract), formatValue(v), origin(prev.step, prev.contract), formatValue(prev.value)),
	}
}

// Shared returns the fixed shared values.
func (pc *PipelineContext) Shared() ir.Params {
	out := make(ir.Params, len(pc.values))
	for name, sv := range pc.values {
		out[name] = sv.value
	}
	return out
}

// names returns the shared parameter names in the order they were fixed.
func (pc *PipelineContext) names() []string {
	return append([]string(nil), pc.order...)
}

func origin(step int, contract string) string {
	if step < 0 {
		return "the pipeline"
	}
	return fmt.Sprintf("step %d (%s)", step, contract)
}
