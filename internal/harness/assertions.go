package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/sensiml/piccolo-sub000/internal/compiler"
	"github.com/sensiml/piccolo-sub000/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes the plan's violations to help debug the failure.
type AssertionError struct {
	Type       string         // Assertion type for categorization
	Expected   string         // Human-readable expected outcome
	Actual     string         // Human-readable actual outcome
	Violations []ir.Violation // Plan violations for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Violations) > 0 {
		fmt.Fprintf(&buf, "\nPlan violations:\n")
		for _, v := range e.Violations {
			fmt.Fprintf(&buf, "  %s\n", v.Error())
		}
	}
	return buf.String()
}

// EvaluateAssertions runs every assertion against the result and returns
// the failure messages. All assertions run; none short-circuits.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %s", i, err.Error()))
		}
	}
	return failures
}

func evaluate(result *Result, a Assertion) error {
	plan := result.Plan
	switch a.Type {
	case AssertViolation:
		return assertViolation(plan, a)
	case AssertViolationCount:
		return check(plan, a, fmt.Sprintf("%d violation(s)", a.Count),
			fmt.Sprintf("%d violation(s)", len(plan.Violations)), len(plan.Violations) == a.Count)
	case AssertOutputWidth:
		return assertOutputWidth(plan, a)
	case AssertColumns:
		return check(plan, a, fmt.Sprint(a.Columns), fmt.Sprint(plan.Columns.Columns),
			slices.Equal(a.Columns, plan.Columns.Columns))
	case AssertFeatureCount:
		n := len(plan.Columns.Features)
		return check(plan, a, fmt.Sprintf("%d feature(s)", a.Count), fmt.Sprintf("%d feature(s)", n), n == a.Count)
	case AssertBuffer:
		return assertBuffer(plan, a)
	case AssertSlots:
		return assertSlots(plan, a)
	case AssertParam:
		return assertParam(plan, a)
	case AssertShared:
		return assertValue(plan, a, "shared "+a.Param, plan.Shared[a.Param])
	case AssertStoredPlan:
		return assertStoredPlan(result, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func check(plan *compiler.Plan, a Assertion, expected, actual string, ok bool) error {
	if ok {
		return nil
	}
	return &AssertionError{Type: a.Type, Expected: expected, Actual: actual, Violations: plan.Violations}
}

// stepPlan returns the plan of step *a.Step, or an AssertionError.
func stepPlan(plan *compiler.Plan, a Assertion) (*compiler.StepPlan, error) {
	i := *a.Step
	if i < 0 || i >= len(plan.Steps) {
		return nil, &AssertionError{
			Type:       a.Type,
			Expected:   fmt.Sprintf("step %d", i),
			Actual:     fmt.Sprintf("plan has %d step(s)", len(plan.Steps)),
			Violations: plan.Violations,
		}
	}
	return &plan.Steps[i], nil
}

// assertViolation matches on code, then step and param when given.
func assertViolation(plan *compiler.Plan, a Assertion) error {
	for _, v := range plan.Violations {
		if v.Code != a.Code {
			continue
		}
		if a.Step != nil && v.Step != *a.Step {
			continue
		}
		if a.Param != "" && v.Param != a.Param {
			continue
		}
		return nil
	}

	want := a.Code
	if a.Step != nil {
		want += fmt.Sprintf(" at step %d", *a.Step)
	}
	if a.Param != "" {
		want += " on " + a.Param
	}
	return &AssertionError{
		Type:       a.Type,
		Expected:   "violation " + want,
		Actual:     "not reported",
		Violations: plan.Violations,
	}
}

func assertOutputWidth(plan *compiler.Plan, a Assertion) error {
	sp, err := stepPlan(plan, a)
	if err != nil {
		return err
	}
	for _, out := range sp.Outputs {
		if out.Output == a.Output {
			return check(plan, a, fmt.Sprintf("%s width %d", a.Output, a.Width),
				fmt.Sprintf("%s width %d", out.Output, out.Width), out.Width == a.Width)
		}
	}
	return check(plan, a, fmt.Sprintf("%s width %d", a.Output, a.Width), "no such output", false)
}

func assertBuffer(plan *compiler.Plan, a Assertion) error {
	sp, err := stepPlan(plan, a)
	if err != nil {
		return err
	}
	want := "deferred"
	if !a.Deferred {
		want = fmt.Sprint(a.Size)
	}
	for _, bp := range sp.Buffers {
		if bp.Output != a.Output {
			continue
		}
		got := "deferred"
		if bp.Bound {
			got = fmt.Sprint(bp.Size)
		}
		return check(plan, a, a.Output+" "+want, bp.Output+" "+got, got == want)
	}
	return check(plan, a, a.Output+" "+want, "no buffer", false)
}

func assertSlots(plan *compiler.Plan, a Assertion) error {
	sp, err := stepPlan(plan, a)
	if err != nil {
		return err
	}
	got := make([]float64, len(sp.Slots))
	for i, slot := range sp.Slots {
		got[i] = slot.Value
	}
	return check(plan, a, fmt.Sprint(a.Values), fmt.Sprint(got), slices.Equal(got, a.Values))
}

func assertParam(plan *compiler.Plan, a Assertion) error {
	sp, err := stepPlan(plan, a)
	if err != nil {
		return err
	}
	return assertValue(plan, a, fmt.Sprintf("step %d %s", *a.Step, a.Param), sp.Params[a.Param])
}

func assertValue(plan *compiler.Plan, a Assertion, what string, got ir.Value) error {
	want, err := ir.FromAny(a.Value)
	if err != nil {
		return fmt.Errorf("%s: invalid expected value: %w", a.Type, err)
	}
	if got == nil {
		return check(plan, a, what+" = "+describe(want), what+" unset", false)
	}
	return check(plan, a, what+" = "+describe(want), what+" = "+describe(got), ir.Equal(want, got))
}

func assertStoredPlan(result *Result, a Assertion) error {
	if result.Stored == nil {
		return check(result.Plan, a, "stored plan", "nothing stored", false)
	}
	stored, err := result.Stored.Hash()
	if err != nil {
		return err
	}
	return check(result.Plan, a, "stored hash "+result.PlanHash, "stored hash "+stored, stored == result.PlanHash)
}

func describe(v ir.Value) string {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
