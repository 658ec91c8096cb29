package compiler

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/sensiml/piccolo-sub000/internal/ir"
)

// int16 bounds applied to int16_t parameters on top of any declared range.
const (
	minInt16 = -32768
	maxInt16 = 32767
)

// StepParams is the outcome of validating one step invocation.
type StepParams struct {
	// Values holds the normalized parameters: coerced to their declared
	// types, defaults applied, inactive and invalid entries removed.
	Values ir.Params
	// Defaulted lists parameters whose value came from the catalog default.
	Defaulted []string
	// Inactive lists parameters switched off by depends_on.
	Inactive   []string
	Violations []ir.Violation
}

// IsInactive reports whether name was switched off by depends_on.
func (sp StepParams) IsInactive(name string) bool {
	return slices.Contains(sp.Inactive, name)
}

// ValidateParams checks supplied values against the contract's
// input_contract and returns the normalized parameter map.
//
// Every problem is collected; nothing short-circuits. A value with a
// violation is left out of Values so later stages do not report the same
// problem again. step tags the violations (-1 outside a pipeline).
func ValidateParams(c *ir.StepContract, supplied ir.Params, step int) StepParams {
	sp := StepParams{Values: make(ir.Params)}

	for _, name := range supplied.SortedKeys() {
		spec := c.Param(name)
		if spec == nil || spec.Collaborator() {
			sp.Violations = append(sp.Violations, ir.NewViolation(ir.KindUnknownParameter, step, c.Name, name,
				"contract has no parameter named %q", name))
		}
	}

	raw := make(map[string]ir.Value, len(c.InputContract))
	defaulted := make(map[string]bool)
	for i := range c.InputContract {
		spec := &c.InputContract[i]
		if spec.Collaborator() {
			continue
		}
		if v, ok := supplied[spec.Name]; ok && !isNull(v) {
			raw[spec.Name] = v
			continue
		}
		if spec.HasDefault() && !isNull(spec.Default) {
			raw[spec.Name] = spec.Default
			defaulted[spec.Name] = true
		}
	}

	active := resolveActivity(c, raw)

	for i := range c.InputContract {
		spec := &c.InputContract[i]
		if spec.Collaborator() {
			continue
		}
		if !active[spec.Name] {
			sp.Inactive = append(sp.Inactive, spec.Name)
			continue
		}

		v, ok := raw[spec.Name]
		if !ok {
			if required(spec) {
				sp.Violations = append(sp.Violations, ir.NewViolation(ir.KindMissingRequiredParameter, step, c.Name, spec.Name,
					"required parameter is missing"))
			}
			continue
		}

		coerced, violations := checkValue(c.Name, spec, v, step)
		if len(violations) > 0 {
			sp.Violations = append(sp.Violations, violations...)
			continue
		}
		sp.Values[spec.Name] = coerced
		if defaulted[spec.Name] {
			sp.Defaulted = append(sp.Defaulted, spec.Name)
		}
	}

	sp.Violations = append(sp.Violations, checkRelations(c, sp.Values, step)...)
	return sp
}

// required reports whether a parameter must be supplied by the user.
// Parameters without a default are optional when the pipeline builder
// provides them: hidden (no_display) and pipeline-shared (handle_by_set).
func required(spec *ir.ParamSpec) bool {
	return !spec.HasDefault() && !spec.NoDisplay && !spec.HandleBySet && !spec.Collaborator()
}

func isNull(v ir.Value) bool {
	_, null := v.(ir.Null)
	return v == nil || null
}

// checkValue coerces v to the declared type and applies range, options and
// arity rules.
func checkValue(contract string, spec *ir.ParamSpec, v ir.Value, step int) (ir.Value, []ir.Violation) {
	coerced, err := coerce(spec.Type, spec.ElementType, v)
	if err != nil {
		return nil, []ir.Violation{ir.NewViolation(ir.KindInvalidParameterType, step, contract, spec.Name, "%v", err)}
	}

	var violations []ir.Violation
	violations = append(violations, checkRange(contract, spec, coerced, step)...)
	violations = append(violations, checkOptions(contract, spec, coerced, step)...)
	violations = append(violations, checkArity(contract, spec, coerced, step)...)
	if len(violations) > 0 {
		return nil, violations
	}
	return coerced, nil
}

// coerce applies the type rules: integral floats become ints for int
// parameters, ints widen to floats for float parameters, list elements
// follow elementType.
func coerce(typ, elementType string, v ir.Value) (ir.Value, error) {
	switch typ {
	case ir.TypeInt, ir.TypeInt16:
		switch n := v.(type) {
		case ir.Int:
			return n, nil
		case ir.Float:
			if f := float64(n); f == math.Trunc(f) && math.Abs(f) < 1<<53 {
				return ir.Int(int64(f)), nil
			}
			return nil, fmt.Errorf("expected %s, got non-integral float %s", typ, formatValue(v))
		}
	case ir.TypeFloat:
		switch n := v.(type) {
		case ir.Int:
			return ir.Float(float64(n)), nil
		case ir.Float:
			return n, nil
		}
	case ir.TypeNumeric:
		switch v.(type) {
		case ir.Int, ir.Float:
			return v, nil
		}
	case ir.TypeStr:
		if s, ok := v.(ir.Str); ok {
			return s, nil
		}
	case ir.TypeBool, ir.TypeBoolean:
		if b, ok := v.(ir.Bool); ok {
			return b, nil
		}
	case ir.TypeDict:
		if d, ok := v.(ir.Dict); ok {
			return d, nil
		}
	case ir.TypeList:
		list, ok := v.(ir.List)
		if !ok {
			break
		}
		if elementType == "" {
			return list, nil
		}
		out := make(ir.List, len(list))
		for i, elem := range list {
			ce, err := coerce(elementType, "", elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = ce
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected %s, got %s %s", typ, ir.Kind(v), formatValue(v))
}

func checkRange(contract string, spec *ir.ParamSpec, v ir.Value, step int) []ir.Violation {
	bounds := make([]ir.Range, 0, 2)
	if spec.Type == ir.TypeInt16 || spec.ElementType == ir.TypeInt16 {
		bounds = append(bounds, ir.Range{Min: minInt16, Max: maxInt16})
	}
	if spec.Range != nil {
		bounds = append(bounds, *spec.Range)
	}
	if len(bounds) == 0 {
		return nil
	}

	var violations []ir.Violation
	for _, elem := range scalars(v) {
		n, ok := ir.Number(elem)
		if !ok {
			continue
		}
		for _, r := range bounds {
			if !r.Contains(n) {
				violations = append(violations, ir.NewViolation(ir.KindRangeViolation, step, contract, spec.Name,
					"value %s is outside range %s", formatNumber(n), r))
				break
			}
		}
	}
	return violations
}

func checkOptions(contract string, spec *ir.ParamSpec, v ir.Value, step int) []ir.Violation {
	if len(spec.Options) == 0 {
		return nil
	}
	var violations []ir.Violation
	for _, elem := range scalars(v) {
		if !optionAllowed(spec.Options, elem) {
			violations = append(violations, ir.NewViolation(ir.KindOptionNotAllowed, step, contract, spec.Name,
				"value %s is not one of %s", formatValue(elem), formatOptions(spec.Options)))
		}
	}
	return violations
}

func optionAllowed(options []ir.Option, v ir.Value) bool {
	for _, opt := range options {
		if ir.Equal(opt.Value, v) {
			return true
		}
	}
	return false
}

func checkArity(contract string, spec *ir.ParamSpec, v ir.Value, step int) []ir.Violation {
	list, ok := v.(ir.List)
	if !ok {
		return nil
	}
	n := len(list)
	noun := "elements"
	if spec.NumColumns != nil {
		noun = "columns"
	}

	var violations []ir.Violation
	add := func(format string, args ...any) {
		violations = append(violations, ir.NewViolation(ir.KindColumnArityViolation, step, contract, spec.Name, format, args...))
	}

	if spec.NumColumns != nil {
		switch want := *spec.NumColumns; {
		case want > 0 && n != want:
			add("expected exactly %d %s, got %d", want, noun, n)
		case want < 0 && n == 0:
			add("expected at least 1 column, got 0")
		}
	}
	if spec.MinElements != nil && n < *spec.MinElements {
		add("expected at least %d %s, got %d", *spec.MinElements, noun, n)
	}
	if spec.MaxElements != nil && n > *spec.MaxElements {
		add("expected at most %d %s, got %d", *spec.MaxElements, noun, n)
	}
	return violations
}

// scalars returns the elements of a list, or v itself.
func scalars(v ir.Value) []ir.Value {
	if list, ok := v.(ir.List); ok {
		return list
	}
	return []ir.Value{v}
}

func formatValue(v ir.Value) string {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return ir.Kind(v)
	}
	return string(data)
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatOptions(options []ir.Option) string {
	parts := make([]string, len(options))
	for i, opt := range options {
		parts[i] = formatValue(opt.Value)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
