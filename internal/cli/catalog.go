package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sensiml/piccolo-sub000/internal/catalog"
	"github.com/sensiml/piccolo-sub000/internal/compiler"
	"github.com/sensiml/piccolo-sub000/internal/ir"
)

// NewCatalogCommand creates the catalog command group.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and check step contract catalogs",
	}
	cmd.AddCommand(newCatalogCheckCommand(rootOpts))
	cmd.AddCommand(newCatalogListCommand(rootOpts))
	cmd.AddCommand(newCatalogShowCommand(rootOpts))
	return cmd
}

// CatalogCheckResult is the JSON output of catalog check.
type CatalogCheckResult struct {
	Valid      bool           `json:"valid"`
	Contracts  int            `json:"contracts"`
	Violations []ir.Violation `json:"violations,omitempty"`
}

func newCatalogCheckCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check [path]",
		Short: "Check a catalog for load errors and integrity problems",
		Long: `Check a catalog file or directory.

Reports everything that would stop the catalog from loading (duplicate
names, unknown types, unparsable formulas) together with softer integrity
problems such as defaults outside their range or gaps in c_param slots.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := rootOpts.Catalog
			if len(args) == 1 {
				path = args[0]
			}
			return runCatalogCheck(cmd, rootOpts, path)
		},
	}
}

func runCatalogCheck(cmd *cobra.Command, rootOpts *RootOptions, path string) error {
	formatter := newFormatter(rootOpts, cmd)
	if path == "" {
		return reportError(formatter, ExitCommandError, ErrCodeMissingInput,
			"no catalog given: pass a path, --catalog or "+EnvCatalog, nil)
	}

	formatter.VerboseLog("Reading catalog %s", path)
	contracts, err := catalog.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return reportError(formatter, ExitCommandError, ErrCodeNotFound,
			fmt.Sprintf("catalog not found: %s", path), nil)
	}

	var violations []ir.Violation
	if err != nil {
		violations = appendCatalogErrors(violations, err)
	} else {
		if _, err := catalog.New(contracts); err != nil {
			violations = appendCatalogErrors(violations, err)
		}
		ptrs := make([]*ir.StepContract, len(contracts))
		for i := range contracts {
			ptrs[i] = &contracts[i]
		}
		violations = append(violations, compiler.CheckCatalog(ptrs)...)
	}
	violations = dedupeViolations(violations)

	result := CatalogCheckResult{
		Valid:      len(violations) == 0,
		Contracts:  len(contracts),
		Violations: violations,
	}

	if rootOpts.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		out := cmd.OutOrStdout()
		for _, v := range violations {
			fmt.Fprintf(out, "✗ %s\n", v.Error())
		}
		if result.Valid {
			fmt.Fprintf(out, "✓ %s: %d contract(s) OK\n", path, result.Contracts)
		} else {
			fmt.Fprintf(out, "\n%d problem(s) in %s\n", len(violations), path)
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("%s: catalog has %d problem(s)", ErrCodeInvalid, len(violations)))
	}
	return nil
}

func appendCatalogErrors(dst []ir.Violation, err error) []ir.Violation {
	for _, e := range catalog.Errors(err) {
		dst = append(dst, e.Violation())
	}
	return dst
}

// dedupeViolations drops repeats reported by both the loader and
// CheckCatalog, keeping first occurrences in order.
func dedupeViolations(vs []ir.Violation) []ir.Violation {
	seen := make(map[string]bool, len(vs))
	out := vs[:0]
	for _, v := range vs {
		key := v.Error()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// ContractSummary is one row of catalog list.
type ContractSummary struct {
	Name        string `json:"name"`
	UUID        string `json:"uuid"`
	Type        string `json:"type"`
	Subtype     string `json:"subtype,omitempty"`
	HasCVersion bool   `json:"has_c_version"`
	Params      int    `json:"params"`
	Outputs     int    `json:"outputs"`
}

func newCatalogListCommand(rootOpts *RootOptions) *cobra.Command {
	var stepType string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the contracts of a catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			reg, err := loadRegistry(rootOpts, formatter)
			if err != nil {
				return err
			}

			contracts := reg.List()
			if stepType != "" {
				contracts = reg.ByType(stepType)
			}

			summaries := make([]ContractSummary, len(contracts))
			for i, c := range contracts {
				summaries[i] = ContractSummary{
					Name:        c.Name,
					UUID:        c.UUID,
					Type:        c.Type,
					Subtype:     c.Subtype,
					HasCVersion: c.HasCVersion,
					Params:      len(c.InputContract),
					Outputs:     len(c.OutputContract),
				}
			}

			if rootOpts.Format == "json" {
				return formatter.Success(summaries)
			}
			out := cmd.OutOrStdout()
			if len(summaries) == 0 {
				fmt.Fprintln(out, "No contracts found")
				return nil
			}
			byType := make(map[string][]ContractSummary)
			for _, s := range summaries {
				byType[s.Type] = append(byType[s.Type], s)
			}
			for _, typ := range reg.Types() {
				group := byType[typ]
				if len(group) == 0 {
					continue
				}
				fmt.Fprintf(out, "%s (%d)\n", typ, len(group))
				for _, s := range group {
					native := ""
					if s.HasCVersion {
						native = " [c]"
					}
					fmt.Fprintf(out, "  %-24s %s%s\n", s.Name, s.Subtype, native)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&stepType, "type", "", "only list contracts of this step type")
	return cmd
}

func newCatalogShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name|uuid>",
		Short: "Show one contract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			reg, err := loadRegistry(rootOpts, formatter)
			if err != nil {
				return err
			}

			c, err := reg.Get(args[0])
			if err != nil {
				return reportError(formatter, ExitCommandError, ErrCodeNotFound,
					fmt.Sprintf("contract %q not found", args[0]), nil)
			}

			if rootOpts.Format == "json" {
				return formatter.Success(c)
			}
			fmt.Fprint(cmd.OutOrStdout(), formatContract(c))
			return nil
		},
	}
}

func formatContract(c *ir.StepContract) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)\n", c.Name, c.UUID)
	fmt.Fprintf(&b, "  type: %s", c.Type)
	if c.Subtype != "" {
		fmt.Fprintf(&b, " / %s", c.Subtype)
	}
	fmt.Fprintf(&b, "\n  native: %t\n", c.HasCVersion)
	if c.Description != "" {
		fmt.Fprintf(&b, "  %s\n", c.Description)
	}

	b.WriteString("params:\n")
	for _, p := range c.InputContract {
		fmt.Fprintf(&b, "  %s: %s", p.Name, p.Type)
		if p.ElementType != "" {
			fmt.Fprintf(&b, "[%s]", p.ElementType)
		}
		if p.Default != nil {
			if data, err := ir.MarshalCanonical(p.Default); err == nil {
				fmt.Fprintf(&b, " = %s", data)
			}
		}
		if p.Range != nil {
			fmt.Fprintf(&b, " range %s", p.Range)
		}
		if p.CParam != nil {
			fmt.Fprintf(&b, " c_param %d", *p.CParam)
		}
		if p.HandleBySet {
			b.WriteString(" shared")
		}
		b.WriteString("\n")
	}

	b.WriteString("outputs:\n")
	for _, out := range c.OutputContract {
		fmt.Fprintf(&b, "  %s: %s", out.Name, out.Type)
		if out.OutputFormula != "" {
			fmt.Fprintf(&b, " width %s", out.OutputFormula)
		}
		if sb := out.ScratchBuffer; sb != nil {
			fmt.Fprintf(&b, " scratch %s", sb.Type)
		}
		b.WriteString("\n")
	}
	return b.String()
}
