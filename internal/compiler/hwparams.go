package compiler

import (
	"slices"

	"github.com/sensiml/piccolo-sub000/internal/ir"
)

// Slot is one position of the compact native parameter array.
type Slot struct {
	Index       int     `json:"index"`
	Param       string  `json:"param,omitempty"`
	Value       float64 `json:"value"`
	Categorical bool    `json:"categorical,omitempty"`
	Inactive    bool    `json:"inactive,omitempty"`
	// Missing marks a slot with no value: a gap in the c_param numbering
	// or a parameter the pipeline builder supplies at run time.
	Missing bool `json:"missing,omitempty"`
}

// SerializeParams packs the c_param parameters of a validated step into
// slots ordered by index. Booleans become 0/1; strings go through
// c_param_mapping. Inactive parameters keep their slot, zero-filled.
// Negative indexes are rejected when the registry is built and skipped here.
func SerializeParams(c *ir.StepContract, step int, sp StepParams) ([]Slot, []ir.Violation) {
	size := 0
	for _, p := range c.InputContract {
		if p.CParam != nil && *p.CParam+1 > size {
			size = *p.CParam + 1
		}
	}
	if size == 0 {
		return nil, nil
	}

	slots := make([]Slot, size)
	for i := range slots {
		slots[i] = Slot{Index: i, Missing: true}
	}

	var violations []ir.Violation
	for i := range c.InputContract {
		spec := &c.InputContract[i]
		if spec.CParam == nil || *spec.CParam < 0 {
			continue
		}
		slot := Slot{Index: *spec.CParam, Param: spec.Name}

		v, ok := sp.Values[spec.Name]
		switch {
		case sp.IsInactive(spec.Name):
			slot.Inactive = true
		case !ok:
			slot.Missing = true
		default:
			value, categorical, violation := slotValue(c.Name, spec, v, step)
			if violation != nil {
				violations = append(violations, *violation)
				slot.Missing = true
				break
			}
			slot.Value, slot.Categorical = value, categorical
		}
		slots[slot.Index] = slot
	}
	return slots, violations
}

func slotValue(contract string, spec *ir.ParamSpec, v ir.Value, step int) (float64, bool, *ir.Violation) {
	switch val := v.(type) {
	case ir.Int, ir.Float:
		n, _ := ir.Number(val)
		return n, false, nil
	case ir.Bool:
		if val {
			return 1, false, nil
		}
		return 0, false, nil
	case ir.Str:
		idx, ok := spec.CParamMapping[string(val)]
		if !ok {
			known := make([]string, 0, len(spec.CParamMapping))
			for k := range spec.CParamMapping {
				known = append(known, k)
			}
			slices.Sort(known)
			violation := ir.NewViolation(ir.KindUnmappedCategoricalValue, step, contract, spec.Name,
				"value %q has no c_param_mapping entry (mapped: %v)", string(val), known)
			return 0, false, &violation
		}
		return float64(idx), true, nil
	default:
		violation := ir.NewViolation(ir.KindInvalidParameterType, step, contract, spec.Name,
			"%s value cannot be packed into c_param slot %d", ir.Kind(v), *spec.CParam)
		return 0, false, &violation
	}
}
