package compiler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/sensiml/piccolo-sub000/internal/formula"
	"github.com/sensiml/piccolo-sub000/internal/ir"
)

// Catalog is the read-only contract lookup the compiler needs.
// *catalog.Registry implements it.
type Catalog interface {
	Get(ref string) (*ir.StepContract, error)
	Formula(c *ir.StepContract, i int) *formula.Expr
}

// Recorder receives compile measurements. telemetry.Metrics implements it.
type Recorder interface {
	ObserveStep(contract string, width int)
	ObserveViolation(kind ir.ErrorKind)
	ObserveCompile(valid bool, elapsed time.Duration)
}

// Options tunes a Compiler.
type Options struct {
	// RequireNativeVersion rejects contracts with has_c_version false.
	RequireNativeVersion bool
	// MaxSegmentLength binds segment_size buffers when no segmenter in the
	// pipeline fixes a segment length.
	MaxSegmentLength int
	// ScratchBudget caps the size of any bound scratch buffer. Zero
	// disables the check.
	ScratchBudget int

	Logger  *slog.Logger
	Metrics Recorder
}

// Compiler validates pipelines against a catalog and produces plans.
//
// A Compiler holds only the catalog and its options; every Compile call
// builds its own PipelineContext and ColumnState. It is safe for
// concurrent use.
type Compiler struct {
	catalog Catalog
	opts    Options
	logger  *slog.Logger
}

// New creates a Compiler over cat.
func New(cat Catalog, opts Options) *Compiler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Compiler{catalog: cat, opts: opts, logger: logger}
}

// Plan is the outcome of compiling one pipeline. A plan with violations is
// still returned in full so callers can show every problem at once.
type Plan struct {
	Pipeline      *ir.Pipeline   `json:"pipeline"`
	PipelineHash  string         `json:"pipeline_hash"`
	PlanVersion   string         `json:"plan_version"`
	EngineVersion string         `json:"engine_version"`
	Steps         []StepPlan     `json:"steps"`
	Shared        ir.Params      `json:"shared,omitempty"`
	Columns       *ColumnState   `json:"columns"`
	Violations    []ir.Violation `json:"violations,omitempty"`
}

// StepPlan is the compiled form of one step invocation.
type StepPlan struct {
	Index     int           `json:"index"`
	Contract  string        `json:"contract"`
	UUID      string        `json:"uuid,omitempty"`
	Type      string        `json:"type,omitempty"`
	Params    ir.Params     `json:"params"`
	Defaulted []string      `json:"defaulted,omitempty"`
	Inherited []string      `json:"inherited,omitempty"`
	Inactive  []string      `json:"inactive,omitempty"`
	Outputs   []OutputShape `json:"outputs,omitempty"`
	Buffers   []BufferPlan  `json:"buffers,omitempty"`
	Slots     []Slot        `json:"slots,omitempty"`
}

// Width returns the total number of columns the step adds.
func (sp StepPlan) Width() int {
	total := 0
	for _, out := range sp.Outputs {
		total += out.Width
	}
	return total
}

// Compile validates every step of p in order and resolves shapes, scratch
// buffers and hardware slots. Violations are collected in the plan; the
// returned error is reserved for cancellation and unhashable input.
func (c *Compiler) Compile(ctx context.Context, p *ir.Pipeline) (*Plan, error) {
	start := time.Now()

	hash, err := ir.PipelineHash(p)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", p.Name, err)
	}

	plan := &Plan{
		Pipeline:      p,
		PipelineHash:  hash,
		PlanVersion:   ir.PlanVersion,
		EngineVersion: ir.EngineVersion,
		Steps:         make([]StepPlan, 0, len(p.Steps)),
	}

	if len(p.Steps) == 0 {
		c.report(plan, ir.Violation{
			Kind:    ir.KindEmptyPipeline,
			Code:    ir.KindEmptyPipeline.Code(),
			Scope:   ir.ScopePipeline,
			Step:    -1,
			Message: "pipeline has no steps",
		})
	}

	pc, conflicts := NewPipelineContext(p)
	for _, v := range conflicts {
		c.report(plan, v)
	}
	state := NewColumnState(p)

	for i, inv := range p.Steps {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("compile %q: step %d: %w", p.Name, i, err)
		}
		plan.Steps = append(plan.Steps, c.compileStep(plan, pc, state, i, inv))
	}

	plan.Shared = pc.Shared()
	plan.Columns = state

	valid := plan.Valid()
	c.logger.Info("pipeline compiled",
		"pipeline", p.Name,
		"steps", len(plan.Steps),
		"violations", len(plan.Violations),
		"valid", valid)
	if c.opts.Metrics != nil {
		c.opts.Metrics.ObserveCompile(valid, time.Since(start))
	}
	return plan, nil
}

func (c *Compiler) compileStep(plan *Plan, pc *PipelineContext, state *ColumnState, i int, inv ir.StepInvocation) StepPlan {
	sp := StepPlan{Index: i, Contract: inv.Contract, Params: ir.Params{}}

	contract, err := c.catalog.Get(inv.Contract)
	if err != nil {
		c.report(plan, ir.NewViolation(ir.KindContractNotFound, i, inv.Contract, "",
			"no contract with this name or uuid"))
		return sp
	}
	sp.Contract, sp.UUID, sp.Type = contract.Name, contract.UUID, contract.Type

	var violations []ir.Violation
	if c.opts.RequireNativeVersion && !contract.HasCVersion {
		violations = append(violations, ir.NewViolation(ir.KindNoNativeImplementation, i, contract.Name, "",
			"contract has no native implementation"))
	}

	supplied := inv.Params.Clone()
	if supplied == nil {
		supplied = ir.Params{}
	}
	for _, spec := range contract.InputContract {
		if !spec.HandleBySet || !isNull(supplied[spec.Name]) {
			continue
		}
		if v, ok := pc.Lookup(spec.Name); ok {
			supplied[spec.Name] = v
			sp.Inherited = append(sp.Inherited, spec.Name)
		}
	}

	params := ValidateParams(contract, supplied, i)
	violations = append(violations, params.Violations...)
	sp.Params, sp.Defaulted, sp.Inactive = params.Values, params.Defaulted, params.Inactive

	for _, spec := range contract.InputContract {
		if !spec.HandleBySet || slices.Contains(sp.Inherited, spec.Name) || slices.Contains(sp.Defaulted, spec.Name) {
			continue
		}
		v, ok := params.Values[spec.Name]
		if !ok {
			continue
		}
		if conflict := pc.Record(spec.Name, v, i, contract.Name); conflict != nil {
			c.report(plan, *conflict)
		}
	}

	violations = append(violations, checkColumns(contract, i, params.Values, state)...)

	if len(violations) > 0 {
		skipShape(contract, state)
	} else {
		exprs := make([]*formula.Expr, len(contract.OutputContract))
		for k := range exprs {
			exprs[k] = c.catalog.Formula(contract, k)
		}

		outputs, shapeViolations := ResolveShape(contract, exprs, i, params.Values, state)
		buffers, bufferViolations := PlanBuffers(contract, i, params.Values, state, c.opts)
		slots, slotViolations := SerializeParams(contract, i, params)

		sp.Outputs, sp.Buffers, sp.Slots = outputs, buffers, slots
		violations = append(violations, shapeViolations...)
		violations = append(violations, bufferViolations...)
		violations = append(violations, slotViolations...)
	}

	for _, v := range violations {
		c.report(plan, v)
	}

	c.logger.Debug("step compiled",
		"step", i,
		"contract", contract.Name,
		"violations", len(violations),
		"width", sp.Width())
	if c.opts.Metrics != nil {
		c.opts.Metrics.ObserveStep(contract.Name, sp.Width())
	}
	return sp
}

func (c *Compiler) report(p *Plan, v ir.Violation) {
	p.Violations = append(p.Violations, v)
	if c.opts.Metrics != nil {
		c.opts.Metrics.ObserveViolation(v.Kind)
	}
}

// Valid reports whether the plan has no violations.
func (p *Plan) Valid() bool {
	return len(p.Violations) == 0
}

// Err folds the violations into a single *Error, or returns nil.
func (p *Plan) Err() error {
	if p.Valid() {
		return nil
	}
	return &Error{violations: slices.Clone(p.Violations)}
}

// StepViolations returns the violations tagged with step index i.
func (p *Plan) StepViolations(i int) []ir.Violation {
	var out []ir.Violation
	for _, v := range p.Violations {
		if v.Scope == ir.ScopeStep && v.Step == i {
			out = append(out, v)
		}
	}
	return out
}

// PipelineViolations returns the violations not tied to a single step's
// parameters.
func (p *Plan) PipelineViolations() []ir.Violation {
	var out []ir.Violation
	for _, v := range p.Violations {
		if v.Scope == ir.ScopePipeline {
			out = append(out, v)
		}
	}
	return out
}

// Buffers returns every scratch buffer of the plan in step order.
func (p *Plan) Buffers() []BufferPlan {
	var out []BufferPlan
	for _, sp := range p.Steps {
		out = append(out, sp.Buffers...)
	}
	return out
}

// Bind hands the plan's buffers to a backend. Deferred segment_size
// buffers are bound to segmentLength when it is positive; any buffer still
// unbound after that is a DeferredBufferUnresolved violation. The plan
// itself is not modified.
func (p *Plan) Bind(segmentLength int) ([]BufferPlan, error) {
	if err := p.Err(); err != nil {
		return nil, err
	}

	steps := slices.Clone(p.Steps)
	for i := range steps {
		buffers := slices.Clone(steps[i].Buffers)
		for k := range buffers {
			if !buffers[k].Bound && segmentLength > 0 {
				buffers[k].Size, buffers[k].Bound = segmentLength, true
			}
		}
		steps[i].Buffers = buffers
	}

	if violations := unboundBuffers(steps); len(violations) > 0 {
		return nil, &Error{violations: violations}
	}

	var out []BufferPlan
	for _, sp := range steps {
		out = append(out, sp.Buffers...)
	}
	return out, nil
}

// Canonical returns the plan as RFC 8785 canonical JSON.
func (p *Plan) Canonical() ([]byte, error) {
	return ir.Canonicalize(p)
}

// Hash returns the content hash of the plan.
func (p *Plan) Hash() (string, error) {
	data, err := p.Canonical()
	if err != nil {
		return "", fmt.Errorf("plan hash: %w", err)
	}
	return ir.PlanHash(data), nil
}
