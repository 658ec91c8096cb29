package compiler

import (
	"github.com/sensiml/piccolo-sub000/internal/ir"
)

// BufferPlan is the working-memory requirement of one output.
type BufferPlan struct {
	Step   int    `json:"step"`
	Output string `json:"output"`
	Kind   string `json:"kind"`
	Size   int    `json:"size"`
	Param  string `json:"param,omitempty"`
	// Bound is false for a segment_size buffer whose length is not known
	// yet. Such a buffer must be bound before the plan reaches a backend.
	Bound bool `json:"bound"`
}

// PlanBuffers resolves the scratch buffers of one step. segment_size
// buffers take the running segment length, falling back to
// opts.MaxSegmentLength; when neither is known they stay deferred.
func PlanBuffers(c *ir.StepContract, step int, values ir.Params, state *ColumnState, opts Options) ([]BufferPlan, []ir.Violation) {
	var (
		plans      []BufferPlan
		violations []ir.Violation
	)
	for _, out := range c.OutputContract {
		sb := out.ScratchBuffer
		if sb == nil {
			continue
		}
		bp := BufferPlan{Step: step, Output: out.Name, Kind: sb.Type}

		switch sb.Type {
		case ir.BufferFixedValue:
			if sb.Value == nil || *sb.Value <= 0 {
				violations = append(violations, ir.NewViolation(ir.KindScratchBufferUnresolved, step, c.Name, out.Name,
					"fixed_value scratch buffer needs a positive value"))
				continue
			}
			bp.Size, bp.Bound = *sb.Value, true

		case ir.BufferParameter:
			bp.Param = sb.Name
			n, ok := values[sb.Name].(ir.Int)
			if !ok || n <= 0 {
				got := "unset"
				if v, present := values[sb.Name]; present {
					got = formatValue(v)
				}
				violations = append(violations, ir.NewViolation(ir.KindScratchBufferUnresolved, step, c.Name, out.Name,
					"scratch buffer parameter %q must be a positive integer, got %s", sb.Name, got))
				continue
			}
			bp.Size, bp.Bound = int(n), true

		case ir.BufferSegmentSize:
			switch {
			case state != nil && state.SegmentLength > 0:
				bp.Size, bp.Bound = state.SegmentLength, true
			case opts.MaxSegmentLength > 0:
				bp.Size, bp.Bound = opts.MaxSegmentLength, true
			}

		default:
			violations = append(violations, ir.NewViolation(ir.KindScratchBufferUnresolved, step, c.Name, out.Name,
				"unknown scratch buffer type %q", sb.Type))
			continue
		}

		if bp.Bound && opts.ScratchBudget > 0 && bp.Size > opts.ScratchBudget {
			violations = append(violations, ir.NewViolation(ir.KindScratchBudgetExceeded, step, c.Name, out.Name,
				"scratch buffer of %d exceeds budget %d", bp.Size, opts.ScratchBudget))
		}
		plans = append(plans, bp)
	}
	return plans, violations
}

// unboundBuffers returns the violations a backend hand-off would raise.
func unboundBuffers(steps []StepPlan) []ir.Violation {
	var violations []ir.Violation
	for _, sp := range steps {
		for _, bp := range sp.Buffers {
			if bp.Bound {
				continue
			}
			violations = append(violations, ir.NewViolation(ir.KindDeferredBufferUnresolved, sp.Index, sp.Contract, bp.Output,
				"%s scratch buffer has no bound; set a segment length before handing the plan to a backend", bp.Kind))
		}
	}
	return violations
}
