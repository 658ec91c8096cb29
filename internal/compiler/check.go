package compiler

import (
	"fmt"
	"slices"

	"github.com/sensiml/piccolo-sub000/internal/formula"
	"github.com/sensiml/piccolo-sub000/internal/ir"
)

// CheckCatalog audits contracts for problems that do not block loading but
// would make some pipelines uncompilable: defaults that break their own
// rules, c_param numbering gaps, incomplete categorical mappings, formulas
// over unknown parameters, unresolvable scratch buffers, inconsistent
// arity and depends_on cycles.
//
// It never stops at the first problem; every finding is a catalog-scoped
// CatalogIntegrity violation.
func CheckCatalog(contracts []*ir.StepContract) []ir.Violation {
	var violations []ir.Violation
	for _, c := range contracts {
		violations = append(violations, checkContract(c)...)
	}
	return violations
}

func checkContract(c *ir.StepContract) []ir.Violation {
	var violations []ir.Violation
	add := func(param, format string, args ...any) {
		violations = append(violations, ir.Violation{
			Kind:     ir.KindCatalogIntegrity,
			Code:     ir.KindCatalogIntegrity.Code(),
			Scope:    ir.ScopeCatalog,
			Step:     -1,
			Contract: c.Name,
			Param:    param,
			Message:  fmt.Sprintf(format, args...),
		})
	}

	for i := range c.InputContract {
		spec := &c.InputContract[i]

		if !ir.ValidParamTypes[spec.Type] {
			add(spec.Name, "unknown parameter type %q", spec.Type)
			continue
		}
		if spec.Range != nil && spec.Range.Min > spec.Range.Max {
			add(spec.Name, "range %s has min above max", spec.Range)
		}
		checkArityDecl(spec, add)

		if !spec.Collaborator() && spec.HasDefault() && !isNull(spec.Default) {
			if _, vs := checkValue(c.Name, spec, spec.Default, -1); len(vs) > 0 {
				for _, v := range vs {
					add(spec.Name, "default %s: %s: %s", formatValue(spec.Default), v.Kind, v.Message)
				}
			}
		}

		if spec.CParam != nil {
			checkMapping(spec, add)
		}

		for _, dep := range spec.DependsOn {
			if c.Param(dep.Name) == nil {
				add(spec.Name, "depends_on references unknown parameter %q", dep.Name)
			}
			if !ir.ValidRelations[dep.How] {
				add(spec.Name, "depends_on has unknown relation %q", dep.How)
			}
		}
	}

	checkSlots(c, add)
	checkOutputs(c, add)

	if cycle := dependsCycle(c); len(cycle) > 0 {
		add(cycle[0], "depends_on cycle: %v", cycle)
	}
	return violations
}

type addFunc func(param, format string, args ...any)

func checkArityDecl(spec *ir.ParamSpec, add addFunc) {
	hasArity := spec.NumColumns != nil || spec.MinElements != nil || spec.MaxElements != nil
	if hasArity && spec.Type != ir.TypeList {
		add(spec.Name, "arity constraints on a %s parameter", spec.Type)
		return
	}
	if spec.NumColumns != nil && *spec.NumColumns == 0 {
		add(spec.Name, "num_columns must be positive or -1")
	}
	if spec.MinElements != nil && spec.MaxElements != nil && *spec.MinElements > *spec.MaxElements {
		add(spec.Name, "min_elements %d above max_elements %d", *spec.MinElements, *spec.MaxElements)
	}
	if spec.NumColumns != nil && *spec.NumColumns > 0 {
		n := *spec.NumColumns
		if (spec.MinElements != nil && n < *spec.MinElements) || (spec.MaxElements != nil && n > *spec.MaxElements) {
			add(spec.Name, "num_columns %d outside min_elements/max_elements", n)
		}
	}
}

// checkMapping requires every string option of a hardware-visible
// parameter to have a categorical code.
func checkMapping(spec *ir.ParamSpec, add addFunc) {
	isString := spec.Type == ir.TypeStr || spec.ElementType == ir.TypeStr
	if !isString {
		if len(spec.CParamMapping) > 0 {
			add(spec.Name, "c_param_mapping on a %s parameter", spec.Type)
		}
		return
	}
	if spec.Type == ir.TypeList {
		add(spec.Name, "list parameter cannot occupy a c_param slot")
		return
	}
	if len(spec.CParamMapping) == 0 {
		add(spec.Name, "string parameter in c_param slot %d has no c_param_mapping", *spec.CParam)
		return
	}
	for _, opt := range spec.Options {
		s, ok := opt.Value.(ir.Str)
		if !ok {
			continue
		}
		if _, mapped := spec.CParamMapping[string(s)]; !mapped {
			add(spec.Name, "option %q has no c_param_mapping entry", string(s))
		}
	}
}

// checkSlots requires the c_param indices to be exactly 0..k-1.
func checkSlots(c *ir.StepContract, add addFunc) {
	used := make(map[int]string)
	maxSlot := -1
	for _, spec := range c.InputContract {
		if spec.CParam == nil {
			continue
		}
		idx := *spec.CParam
		if idx < 0 {
			add(spec.Name, "c_param %d is negative", idx)
			continue
		}
		if other, ok := used[idx]; ok {
			add(spec.Name, "c_param %d already used by %q", idx, other)
			continue
		}
		used[idx] = spec.Name
		maxSlot = max(maxSlot, idx)
	}
	for i := 0; i <= maxSlot; i++ {
		if _, ok := used[i]; !ok {
			add("", "c_param slots skip index %d", i)
		}
	}
}

func checkOutputs(c *ir.StepContract, add addFunc) {
	for _, out := range c.OutputContract {
		if out.OutputFormula != "" {
			expr, err := formula.Parse(out.OutputFormula)
			if err != nil {
				add(out.Name, "output_formula: %v", err)
			} else {
				for _, name := range expr.Params() {
					if c.Param(name) == nil {
						add(out.Name, "output_formula references unknown parameter %q", name)
					}
				}
			}
		}

		sb := out.ScratchBuffer
		if sb == nil {
			continue
		}
		switch sb.Type {
		case ir.BufferFixedValue:
			if sb.Value == nil || *sb.Value <= 0 {
				add(out.Name, "fixed_value scratch buffer needs a positive value")
			}
		case ir.BufferParameter:
			spec := c.Param(sb.Name)
			switch {
			case spec == nil:
				add(out.Name, "scratch buffer parameter %q does not exist", sb.Name)
			case spec.Type != ir.TypeInt && spec.Type != ir.TypeInt16:
				add(out.Name, "scratch buffer parameter %q is %s, not int", sb.Name, spec.Type)
			}
		case ir.BufferSegmentSize:
		default:
			add(out.Name, "unknown scratch_buffer type %q", sb.Type)
		}
	}
}

// dependsCycle returns the parameters of the first depends_on cycle found,
// in declaration order of its entry point, or nil.
func dependsCycle(c *ir.StepContract) []string {
	const (
		unvisited = iota
		onStack
		done
	)
	state := make(map[string]int, len(c.InputContract))
	var stack []string

	var visit func(name string) []string
	visit = func(name string) []string {
		switch state[name] {
		case onStack:
			start := slices.Index(stack, name)
			return append(slices.Clone(stack[start:]), name)
		case done:
			return nil
		}
		spec := c.Param(name)
		if spec == nil {
			return nil
		}
		state[name] = onStack
		stack = append(stack, name)
		for _, dep := range spec.DependsOn {
			if cycle := visit(dep.Name); cycle != nil {
				return cycle
			}
		}
		stack = stack[:len(stack)-1]
		state[name] = done
		return nil
	}

	for _, spec := range c.InputContract {
		if cycle := visit(spec.Name); cycle != nil {
			return cycle
		}
	}
	return nil
}
