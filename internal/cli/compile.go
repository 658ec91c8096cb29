package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sensiml/piccolo-sub000/internal/compiler"
	"github.com/sensiml/piccolo-sub000/internal/ir"
	"github.com/sensiml/piccolo-sub000/internal/telemetry"
)

// compileFlags are the compiler options shared by validate, compile and save.
type compileFlags struct {
	native        bool
	maxSegment    int
	scratchBudget int
}

func (f *compileFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.native, "native", false, "reject steps without a native (C) implementation")
	cmd.Flags().IntVar(&f.maxSegment, "max-segment-length", 0,
		"segment length for segment_size buffers when no segmenter fixes one")
	cmd.Flags().IntVar(&f.scratchBudget, "scratch-budget", 0, "largest allowed scratch buffer (0 = unlimited)")
}

func (f *compileFlags) validate(formatter *OutputFormatter) error {
	if f.maxSegment < 0 || f.scratchBudget < 0 {
		return reportError(formatter, ExitCommandError, ErrCodeGeneric,
			"--max-segment-length and --scratch-budget must not be negative", nil)
	}
	return nil
}

func (f *compileFlags) options(cmd *cobra.Command, metrics compiler.Recorder) compiler.Options {
	return compiler.Options{
		RequireNativeVersion: f.native,
		MaxSegmentLength:     f.maxSegment,
		ScratchBudget:        f.scratchBudget,
		Logger:               telemetry.FromContext(cmd.Context()),
		Metrics:              metrics,
	}
}

// compilePipeline loads the catalog and the pipeline file, then compiles.
func compilePipeline(cmd *cobra.Command, rootOpts *RootOptions, flags *compileFlags, path string, metrics compiler.Recorder) (*compiler.Plan, error) {
	formatter := newFormatter(rootOpts, cmd)
	if err := flags.validate(formatter); err != nil {
		return nil, err
	}
	reg, err := loadRegistry(rootOpts, formatter)
	if err != nil {
		return nil, err
	}
	p, err := readPipeline(path, formatter)
	if err != nil {
		return nil, err
	}

	c := compiler.New(reg, flags.options(cmd, metrics))
	plan, err := c.Compile(cmd.Context(), p)
	if err != nil {
		return nil, reportError(formatter, ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}
	return plan, nil
}

// ValidateResult is the JSON output of validate.
type ValidateResult struct {
	Pipeline     string         `json:"pipeline"`
	Valid        bool           `json:"valid"`
	PipelineHash string         `json:"pipeline_hash"`
	Steps        int            `json:"steps"`
	Features     int            `json:"features"`
	Violations   []ir.Violation `json:"violations,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &compileFlags{}
	cmd := &cobra.Command{
		Use:   "validate <pipeline>",
		Short: "Validate a pipeline against the catalog",
		Long: `Validate a pipeline file (YAML, or JSON when the name ends in .json).

Every violation of every step is reported. Exits 1 when the pipeline is
invalid and 2 when the catalog or pipeline cannot be read.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := compilePipeline(cmd, rootOpts, flags, args[0], nil)
			if err != nil {
				return err
			}
			formatter := newFormatter(rootOpts, cmd)

			result := ValidateResult{
				Pipeline:     plan.Pipeline.Name,
				Valid:        plan.Valid(),
				PipelineHash: plan.PipelineHash,
				Steps:        len(plan.Steps),
				Features:     len(plan.Columns.Features),
				Violations:   plan.Violations,
			}

			if rootOpts.Format == "json" {
				if err := formatter.Success(result); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				for _, v := range plan.Violations {
					fmt.Fprintf(out, "✗ %s\n", v.Error())
				}
				if result.Valid {
					fmt.Fprintf(out, "✓ %s: %d step(s), %d feature(s)\n", result.Pipeline, result.Steps, result.Features)
				} else {
					fmt.Fprintf(out, "\n%s: %d violation(s)\n", result.Pipeline, len(plan.Violations))
				}
			}

			if !result.Valid {
				return NewExitError(ExitFailure,
					fmt.Sprintf("%s: pipeline %s has %d violation(s)", ErrCodeInvalid, result.Pipeline, len(plan.Violations)))
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

// CompileResult is the JSON output of compile.
type CompileResult struct {
	PlanHash string                `json:"plan_hash"`
	Plan     *compiler.Plan        `json:"plan"`
	Bound    []compiler.BufferPlan `json:"bound_buffers,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &compileFlags{}
	var (
		output     string
		metricsOut string
		bind       int
	)

	cmd := &cobra.Command{
		Use:   "compile <pipeline>",
		Short: "Compile a pipeline into a plan",
		Long: `Compile a pipeline into a plan: resolved parameters, output shapes,
scratch buffers and hardware parameter slots.

The plan is printed even when it has violations; the command then exits 1.
--output writes the plan as canonical JSON. --bind binds deferred
segment_size buffers to a segment length, as a backend would.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			if bind < 0 {
				return reportError(formatter, ExitCommandError, ErrCodeGeneric, "--bind must not be negative", nil)
			}

			metrics := telemetry.NewMetrics()
			plan, err := compilePipeline(cmd, rootOpts, flags, args[0], metrics)
			if err != nil {
				return err
			}

			hash, err := plan.Hash()
			if err != nil {
				return reportError(formatter, ExitCommandError, ErrCodeGeneric, err.Error(), nil)
			}

			if output != "" {
				data, err := plan.Canonical()
				if err != nil {
					return reportError(formatter, ExitCommandError, ErrCodeGeneric, err.Error(), nil)
				}
				if err := os.WriteFile(output, append(data, '\n'), 0o644); err != nil {
					return reportError(formatter, ExitCommandError, ErrCodeWriteFailed,
						fmt.Sprintf("write plan: %v", err), nil)
				}
				formatter.VerboseLog("Wrote plan to %s", output)
			}
			if metricsOut != "" {
				if err := metrics.WriteToTextfile(metricsOut); err != nil {
					return reportError(formatter, ExitCommandError, ErrCodeWriteFailed,
						fmt.Sprintf("write metrics: %v", err), nil)
				}
				formatter.VerboseLog("Wrote metrics to %s", metricsOut)
			}

			result := CompileResult{PlanHash: hash, Plan: plan}
			var bindErr error
			if bind > 0 && plan.Valid() {
				result.Bound, bindErr = plan.Bind(bind)
			}

			if rootOpts.Format == "json" {
				if err := formatter.Success(result); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				if err := plan.Format(out); err != nil {
					return err
				}
				fmt.Fprintf(out, "plan %s\n", hash)
				if len(result.Bound) > 0 {
					fmt.Fprintf(out, "bound to segment length %d:\n", bind)
					for _, bp := range result.Bound {
						fmt.Fprintf(out, "  [%d] %s %s %d\n", bp.Step, bp.Output, bp.Kind, bp.Size)
					}
				}
			}

			if !plan.Valid() {
				return NewExitError(ExitFailure,
					fmt.Sprintf("%s: pipeline %s has %d violation(s)", ErrCodeInvalid, plan.Pipeline.Name, len(plan.Violations)))
			}
			if bindErr != nil {
				var cerr *compiler.Error
				if errors.As(bindErr, &cerr) {
					for _, v := range cerr.Violations() {
						fmt.Fprintf(formatter.GetErrWriter(), "✗ %s\n", v.Error())
					}
				}
				return WrapExitError(ExitFailure, fmt.Sprintf("%s: bind failed", ErrCodeInvalid), bindErr)
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the plan as canonical JSON to this file")
	cmd.Flags().StringVar(&metricsOut, "metrics-out", "", "write compile metrics in Prometheus text format to this file")
	cmd.Flags().IntVar(&bind, "bind", 0, "bind deferred segment_size buffers to this segment length")
	return cmd
}
