package compiler

import (
	"fmt"
	"io"
	"strings"
)

// Format writes a human-readable summary of the plan.
func (p *Plan) Format(w io.Writer) error {
	status := "valid"
	if !p.Valid() {
		status = fmt.Sprintf("%d violation(s)", len(p.Violations))
	}
	name := p.Pipeline.Name
	if name == "" {
		name = "(unnamed)"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "pipeline %s: %d step(s), %s\n", name, len(p.Steps), status)

	for _, sp := range p.Steps {
		fmt.Fprintf(&b, "  [%d] %s", sp.Index, sp.Contract)
		if sp.Type != "" {
			fmt.Fprintf(&b, " (%s)", sp.Type)
		}
		b.WriteString("\n")

		if keys := sp.Params.SortedKeys(); len(keys) > 0 {
			parts := make([]string, len(keys))
			for i, k := range keys {
				parts[i] = k + "=" + formatValue(sp.Params[k])
			}
			fmt.Fprintf(&b, "      params:  %s\n", strings.Join(parts, " "))
		}
		if len(sp.Inherited) > 0 {
			fmt.Fprintf(&b, "      shared:  %s\n", strings.Join(sp.Inherited, ", "))
		}
		for _, out := range sp.Outputs {
			if out.Width == 0 {
				continue
			}
			fmt.Fprintf(&b, "      output:  %s width %d\n", out.Output, out.Width)
		}
		for _, bp := range sp.Buffers {
			size := "deferred"
			if bp.Bound {
				size = fmt.Sprint(bp.Size)
			}
			fmt.Fprintf(&b, "      scratch: %s %s %s\n", bp.Output, bp.Kind, size)
		}
		if len(sp.Slots) > 0 {
			fmt.Fprintf(&b, "      slots:   %s\n", formatSlots(sp.Slots))
		}
	}

	if p.Columns != nil {
		fmt.Fprintf(&b, "  columns:  %s\n", strings.Join(p.Columns.Columns, ", "))
		if len(p.Columns.Features) > 0 {
			fmt.Fprintf(&b, "  features: %d\n", len(p.Columns.Features))
		}
	}

	for _, v := range p.Violations {
		fmt.Fprintf(&b, "  %s\n", v.Error())
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// formatSlots renders slots as [v0 v1 ...]; "-" marks a missing slot and
// a trailing "*" an inactive one.
func formatSlots(slots []Slot) string {
	parts := make([]string, len(slots))
	for i, s := range slots {
		switch {
		case s.Missing:
			parts[i] = "-"
		case s.Inactive:
			parts[i] = formatNumber(s.Value) + "*"
		default:
			parts[i] = formatNumber(s.Value)
		}
	}
	return "[" + strings.Join(parts, " ") + "]"
}
