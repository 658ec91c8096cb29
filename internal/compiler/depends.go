package compiler

import (
	"fmt"
	"strings"

	"github.com/sensiml/piccolo-sub000/internal/ir"
)

// resolveActivity decides which parameters are active. A parameter with
// depends_on is active only when every target is itself active and holds a
// truthy value. Parameters without depends_on are always active.
func resolveActivity(c *ir.StepContract, raw map[string]ir.Value) map[string]bool {
	active := make(map[string]bool, len(c.InputContract))
	visiting := make(map[string]bool)

	var resolve func(name string) bool
	resolve = func(name string) bool {
		if done, ok := active[name]; ok {
			return done
		}
		spec := c.Param(name)
		if spec == nil {
			return false
		}
		if visiting[name] {
			// A cycle cannot switch anything off; CheckCatalog reports it.
			return true
		}
		visiting[name] = true
		defer delete(visiting, name)

		on := true
		for _, dep := range spec.DependsOn {
			if !resolve(dep.Name) || !ir.Truthy(raw[dep.Name]) {
				on = false
				break
			}
		}
		active[name] = on
		return on
	}

	for _, p := range c.InputContract {
		resolve(p.Name)
	}
	return active
}

// checkRelations verifies the ordering and equality relations between
// active dependents and their targets. Pairs where either side is missing
// or already invalid are skipped.
func checkRelations(c *ir.StepContract, values ir.Params, step int) []ir.Violation {
	var violations []ir.Violation
	for _, spec := range c.InputContract {
		v, ok := values[spec.Name]
		if !ok {
			continue
		}
		for _, dep := range spec.DependsOn {
			if dep.How == ir.HowEnabled {
				continue
			}
			target, ok := values[dep.Name]
			if !ok {
				continue
			}
			holds, err := relationHolds(v, target, dep.How)
			if err != nil {
				violations = append(violations, ir.NewViolation(ir.KindDependencyViolation, step, c.Name, spec.Name,
					"cannot check %s against %s: %v", relationPhrase(dep.How), dep.Name, err))
				continue
			}
			if !holds {
				violations = append(violations, ir.NewViolation(ir.KindDependencyViolation, step, c.Name, spec.Name,
					"value %s must be %s %s (%s)", formatValue(v), relationPhrase(dep.How), dep.Name, formatValue(target)))
			}
		}
	}
	return violations
}

// relationHolds compares v with target. Lists are compared element-wise
// against a scalar target.
func relationHolds(v, target ir.Value, how string) (bool, error) {
	switch how {
	case ir.HowEqual:
		return ir.Equal(v, target), nil
	case ir.HowNotEqual:
		return !ir.Equal(v, target), nil
	}

	t, ok := ir.Number(target)
	if !ok {
		return false, fmt.Errorf("%s is not a number", ir.Kind(target))
	}
	for _, elem := range scalars(v) {
		n, ok := ir.Number(elem)
		if !ok {
			return false, fmt.Errorf("%s is not a number", ir.Kind(elem))
		}
		if !compareNumbers(n, t, how) {
			return false, nil
		}
	}
	return true, nil
}

func compareNumbers(a, b float64, how string) bool {
	switch how {
	case ir.HowLessThan:
		return a < b
	case ir.HowLessThanOrEqual:
		return a <= b
	case ir.HowGreaterThan:
		return a > b
	case ir.HowGreaterThanOrEqual:
		return a >= b
	default:
		return false
	}
}

func relationPhrase(how string) string {
	switch how {
	case ir.HowLessThanOrEqual:
		return "less than or equal to"
	case ir.HowGreaterThanOrEqual:
		return "greater than or equal to"
	case ir.HowEqual:
		return "equal to"
	case ir.HowNotEqual:
		return "different from"
	default:
		return strings.ReplaceAll(how, "_", " ")
	}
}
