package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sensiml/piccolo-sub000/internal/store"
	"github.com/sensiml/piccolo-sub000/internal/telemetry"
)

// SaveResult is the JSON output of save.
type SaveResult struct {
	Pipeline store.PipelineRecord `json:"pipeline"`
	Plan     store.PlanRecord     `json:"plan"`
}

// NewSaveCommand creates the save command.
func NewSaveCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &compileFlags{}
	cmd := &cobra.Command{
		Use:   "save <pipeline>",
		Short: "Compile a pipeline and store it with its plan",
		Long: `Compile a pipeline and store the definition and the plan in the
database named by --db. Saving a pipeline name again replaces its
definition and adds the new plan to its history.

Invalid plans are stored too; the command then exits 1.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			st, err := openStore(rootOpts, formatter)
			if err != nil {
				return err
			}
			defer st.Close()

			plan, err := compilePipeline(cmd, rootOpts, flags, args[0], nil)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			rec, err := st.SavePipeline(ctx, plan.Pipeline)
			if err != nil {
				return reportError(formatter, ExitCommandError, ErrCodeStore, err.Error(), nil)
			}
			planRec, err := st.SavePlan(ctx, rec.ID, plan)
			if err != nil {
				return reportError(formatter, ExitCommandError, ErrCodeStore, err.Error(), nil)
			}
			telemetry.FromContext(ctx).Info("pipeline saved",
				"pipeline", rec.Name, "id", rec.ID, "plan", planRec.PlanHash)

			if rootOpts.Format == "json" {
				if err := formatter.Success(SaveResult{Pipeline: rec, Plan: planRec}); err != nil {
					return err
				}
			} else {
				status := "valid"
				if !planRec.Valid {
					status = fmt.Sprintf("%d violation(s)", planRec.Violations)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%s)\n  plan %s: %s\n",
					rec.Name, rec.ID, planRec.PlanHash, status)
			}

			if !planRec.Valid {
				return NewExitError(ExitFailure,
					fmt.Sprintf("%s: pipeline %s has %d violation(s)", ErrCodeInvalid, rec.Name, planRec.Violations))
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

// LoadResult is the JSON output of load.
type LoadResult struct {
	Pipeline store.PipelineRecord `json:"pipeline"`
	Plan     *store.PlanRecord    `json:"latest_plan,omitempty"`
	Plans    int                  `json:"plans"`
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "load <id|name>",
		Short: "Show a stored pipeline and its latest plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			st, err := openStore(rootOpts, formatter)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()
			rec, err := st.LoadPipeline(ctx, args[0])
			if err != nil {
				return storeError(formatter, err)
			}
			history, err := st.ListPlans(ctx, rec.ID)
			if err != nil {
				return storeError(formatter, err)
			}

			result := LoadResult{Pipeline: rec, Plans: len(history)}
			latest, err := st.LatestPlan(ctx, rec.ID)
			switch {
			case err == nil:
				result.Plan = &latest
			case !errors.Is(err, store.ErrNotFound):
				return storeError(formatter, err)
			}

			if rootOpts.Format == "json" {
				return formatter.Success(result)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s)\n  hash:    %s\n  saved:   %s\n  updated: %s\n  plans:   %d\n",
				rec.Name, rec.ID, rec.Hash, rec.CreatedAt, rec.UpdatedAt, result.Plans)
			if result.Plan == nil {
				fmt.Fprintln(out, "No compiled plan")
				return nil
			}
			plan, err := result.Plan.Decode()
			if err != nil {
				return storeError(formatter, err)
			}
			fmt.Fprintf(out, "latest plan %s (%s, engine %s)\n",
				result.Plan.PlanHash, result.Plan.CreatedAt, result.Plan.EngineVersion)
			return plan.Format(out)
		},
	}
}

// PipelineSummary is one row of list.
type PipelineSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Steps     int    `json:"steps"`
	UpdatedAt string `json:"updated_at"`
	PlanHash  string `json:"plan_hash,omitempty"`
	Valid     *bool  `json:"valid,omitempty"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored pipelines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			st, err := openStore(rootOpts, formatter)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()
			records, err := st.ListPipelines(ctx)
			if err != nil {
				return storeError(formatter, err)
			}

			summaries := make([]PipelineSummary, 0, len(records))
			for _, rec := range records {
				s := PipelineSummary{
					ID:        rec.ID,
					Name:      rec.Name,
					Steps:     len(rec.Pipeline.Steps),
					UpdatedAt: rec.UpdatedAt,
				}
				latest, err := st.LatestPlan(ctx, rec.ID)
				switch {
				case err == nil:
					valid := latest.Valid
					s.PlanHash, s.Valid = latest.PlanHash, &valid
				case !errors.Is(err, store.ErrNotFound):
					return storeError(formatter, err)
				}
				summaries = append(summaries, s)
			}

			if rootOpts.Format == "json" {
				return formatter.Success(summaries)
			}
			out := cmd.OutOrStdout()
			if len(summaries) == 0 {
				fmt.Fprintln(out, "No pipelines stored")
				return nil
			}
			for _, s := range summaries {
				status := "-"
				if s.Valid != nil {
					status = "✓"
					if !*s.Valid {
						status = "✗"
					}
				}
				fmt.Fprintf(out, "%s %-24s %2d step(s)  %s  %s\n", status, s.Name, s.Steps, s.ID, s.UpdatedAt)
			}
			return nil
		},
	}
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id|name>",
		Short: "Delete a stored pipeline and its plans",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			st, err := openStore(rootOpts, formatter)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.DeletePipeline(cmd.Context(), args[0]); err != nil {
				return storeError(formatter, err)
			}
			if rootOpts.Format == "json" {
				return formatter.Success(map[string]string{"deleted": args[0]})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

// storeError reports a store failure; missing records get ErrCodeNotFound.
func storeError(formatter *OutputFormatter, err error) error {
	code := ErrCodeStore
	if errors.Is(err, store.ErrNotFound) {
		code = ErrCodeNotFound
	}
	return reportError(formatter, ExitCommandError, code, err.Error(), nil)
}
