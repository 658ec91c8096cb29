package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/sensiml/piccolo-sub000/internal/catalog"
	"github.com/sensiml/piccolo-sub000/internal/compiler"
	"github.com/sensiml/piccolo-sub000/internal/ir"
	"github.com/sensiml/piccolo-sub000/internal/store"
	"github.com/sensiml/piccolo-sub000/internal/testutil"
)

// Harness runs scenarios against one loaded catalog and one store.
type Harness struct {
	compiler *compiler.Compiler
	store    *store.Store
	logger   *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database with a deterministic
// clock and sequential pipeline ids, so repeated runs store identical rows.
//
// Execution flow:
// 1. Load the catalog
// 2. Compile the pipeline
// 3. Save the pipeline and plan, then reload the latest plan
// 4. Check the expected validity and evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	reg, err := catalog.Load(scenario.Catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	st, err := store.Open(":memory:",
		store.WithClock(testutil.NewDeterministicClock()),
		store.WithIDs(testutil.NewSequenceIDs("scenario")))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &Harness{
		compiler: compiler.New(reg, compiler.Options{
			RequireNativeVersion: scenario.Options.RequireNative,
			MaxSegmentLength:     scenario.Options.MaxSegmentLength,
			ScratchBudget:        scenario.Options.ScratchBudget,
			Logger:               logger,
		}),
		store:  st,
		logger: logger,
	}

	pipeline := scenario.Pipeline
	if pipeline.Name == "" {
		pipeline.Name = scenario.Name
	}

	plan, err := h.compiler.Compile(ctx, &pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to compile pipeline: %w", err)
	}

	result := NewResult()
	result.Plan = plan
	result.PlanHash, err = plan.Hash()
	if err != nil {
		return nil, fmt.Errorf("failed to hash plan: %w", err)
	}

	if err := h.persist(ctx, &pipeline, result); err != nil {
		return nil, err
	}

	if plan.Valid() != scenario.Valid {
		result.AddError(fmt.Sprintf("expected valid=%t, got valid=%t: %v",
			scenario.Valid, plan.Valid(), plan.Violations))
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	h.logger.Info("scenario completed",
		"scenario", scenario.Name,
		"valid", plan.Valid(),
		"pass", result.Pass,
	)
	return result, nil
}

// persist stores the pipeline and its plan, then reads the plan back.
func (h *Harness) persist(ctx context.Context, pipeline *ir.Pipeline, result *Result) error {
	rec, err := h.store.SavePipeline(ctx, pipeline)
	if err != nil {
		return fmt.Errorf("failed to save pipeline: %w", err)
	}
	if _, err := h.store.SavePlan(ctx, rec.ID, result.Plan); err != nil {
		return fmt.Errorf("failed to save plan: %w", err)
	}

	latest, err := h.store.LatestPlan(ctx, rec.ID)
	if err != nil {
		return fmt.Errorf("failed to reload plan: %w", err)
	}
	if latest.PlanHash != result.PlanHash {
		result.AddError(fmt.Sprintf("stored plan hash %s differs from compiled %s",
			latest.PlanHash, result.PlanHash))
	}
	result.Stored, err = latest.Decode()
	if err != nil {
		return fmt.Errorf("failed to decode stored plan: %w", err)
	}
	return nil
}
