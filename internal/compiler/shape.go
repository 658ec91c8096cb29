package compiler

import (
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/sensiml/piccolo-sub000/internal/formula"
	"github.com/sensiml/piccolo-sub000/internal/ir"
)

// Parameters whose elements must name data columns already in the state.
var columnParams = []string{"columns", "input_columns"}

// ColumnState is the running schema of the data as it flows through the
// pipeline: sensor columns, injected metadata, generated features.
type ColumnState struct {
	Columns       []string `json:"columns"`
	Metadata      []string `json:"metadata,omitempty"`
	Features      []string `json:"features,omitempty"`
	LabelColumn   string   `json:"label_column,omitempty"`
	SegmentLength int      `json:"segment_length,omitempty"`

	generators int
}

// NewColumnState returns the state entering the first step of p.
func NewColumnState(p *ir.Pipeline) *ColumnState {
	s := &ColumnState{
		Columns:     slices.Clone(p.Columns),
		LabelColumn: p.LabelColumn,
	}
	s.addMetadata(p.GroupColumns...)
	return s
}

// Clone returns a deep copy of the state.
func (s *ColumnState) Clone() *ColumnState {
	out := *s
	out.Columns = slices.Clone(s.Columns)
	out.Metadata = slices.Clone(s.Metadata)
	out.Features = slices.Clone(s.Features)
	return &out
}

// HasColumn reports whether name is a current data column.
func (s *ColumnState) HasColumn(name string) bool {
	return slices.Contains(s.Columns, name)
}

func (s *ColumnState) addMetadata(names ...string) {
	for _, name := range names {
		if !slices.Contains(s.Metadata, name) {
			s.Metadata = append(s.Metadata, name)
		}
	}
}

// OutputShape is the resolved width of one output of one step.
type OutputShape struct {
	Output string `json:"output"`
	Family bool   `json:"family,omitempty"`
	// Width is the number of columns the output adds. Zero for outputs
	// that pass their input frame through.
	Width   int      `json:"width"`
	Columns []string `json:"columns,omitempty"`
}

// checkColumns verifies that column-selecting parameters only name data
// columns present in the state.
func checkColumns(c *ir.StepContract, step int, values ir.Params, state *ColumnState) []ir.Violation {
	var violations []ir.Violation
	for _, name := range columnParams {
		cols, ok := ir.Strings(values[name])
		if !ok {
			continue
		}
		for _, col := range cols {
			if !state.HasColumn(col) {
				violations = append(violations, ir.NewViolation(ir.KindUnknownColumn, step, c.Name, name,
					"column %q is not in the pipeline (have %s)", col, strings.Join(state.Columns, ", ")))
			}
		}
	}
	return violations
}

// ResolveShape evaluates each output's width and applies the step's effect
// on the column state. exprs holds the parsed output_formula per output
// (nil entries have no formula).
func ResolveShape(c *ir.StepContract, exprs []*formula.Expr, step int, values ir.Params, state *ColumnState) ([]OutputShape, []ir.Violation) {
	genIndex := state.enter(c, values)

	var (
		shapes     []OutputShape
		violations []ir.Violation
	)
	for i, out := range c.OutputContract {
		var expr *formula.Expr
		if i < len(exprs) {
			expr = exprs[i]
		}

		width := 1
		if expr != nil {
			w, err := expr.Eval(values)
			if err != nil {
				violations = append(violations, ir.NewViolation(ir.KindFormulaEvaluationError, step, c.Name, out.Name,
					"output_formula %q: %v", expr.String(), err))
				continue
			}
			width = w
		} else if out.Family {
			if cols := selectedColumns(values); len(cols) > 0 {
				width = len(cols)
			}
		}

		shape := OutputShape{Output: out.Name, Family: out.Family}
		switch {
		case c.Type == ir.StepFeatureGenerator:
			shape.Width = width
			shape.Columns = featureNames(c, out, genIndex, width, values)
			state.Features = append(state.Features, shape.Columns...)
		case expr != nil:
			shape.Width = width
			shape.Columns = derivedNames(c, width)
			state.Columns = append(state.Columns, shape.Columns...)
		}
		shapes = append(shapes, shape)
	}
	return shapes, violations
}

// skipShape applies only the parts of a step's effect that do not depend
// on its parameters, so later steps see stable generator numbering and
// metadata even when this step is invalid.
func skipShape(c *ir.StepContract, state *ColumnState) {
	state.enter(c, nil)
}

// enter applies metadata and segmenter effects and returns the 1-based
// generator ordinal (0 when c is not a feature generator).
func (s *ColumnState) enter(c *ir.StepContract, values ir.Params) int {
	for _, out := range c.OutputContract {
		s.addMetadata(out.MetadataColumns...)
	}

	if label, ok := values[ParamLabelColumn].(ir.Str); ok && s.LabelColumn == "" {
		s.LabelColumn = string(label)
	}
	if groups, ok := ir.Strings(values[ParamGroupColumns]); ok {
		s.addMetadata(groups...)
	}

	if c.Type == ir.StepSegmenter {
		for _, name := range []string{"window_size", "max_segment_length"} {
			if n, ok := values[name].(ir.Int); ok && int(n) > s.SegmentLength {
				s.SegmentLength = int(n)
			}
		}
	}

	if c.Type != ir.StepFeatureGenerator {
		return 0
	}
	s.generators++
	return s.generators
}

// featureNames names generator outputs gen_<SSSS>_<column><Name>_<k> when
// the width splits evenly across the selected columns of a family output,
// and gen_<SSSS>_<Name>_<k> otherwise.
func featureNames(c *ir.StepContract, out ir.OutputSpec, genIndex, width int, values ir.Params) []string {
	prefix := fmt.Sprintf("gen_%04d_", genIndex)
	base := compactName(c.Name)

	if out.Family {
		if cols := selectedColumns(values); len(cols) > 0 && width%len(cols) == 0 {
			per := width / len(cols)
			names := make([]string, 0, width)
			for _, col := range cols {
				for k := 0; k < per; k++ {
					names = append(names, fmt.Sprintf("%s%s%s_%d", prefix, col, base, k))
				}
			}
			return names
		}
	}

	names := make([]string, width)
	for k := range names {
		names[k] = fmt.Sprintf("%s%s_%d", prefix, base, k)
	}
	return names
}

func derivedNames(c *ir.StepContract, width int) []string {
	base := compactName(c.Name)
	names := make([]string, width)
	for k := range names {
		names[k] = fmt.Sprintf("%s_%d", base, k)
	}
	return names
}

func selectedColumns(values ir.Params) []string {
	for _, name := range columnParams {
		if cols, ok := ir.Strings(values[name]); ok {
			return cols
		}
	}
	return nil
}

// compactName strips everything but letters and digits: "Two Column Peak
// Location Difference" becomes "TwoColumnPeakLocationDifference".
func compactName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
