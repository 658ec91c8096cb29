package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sensiml/piccolo-sub000/internal/ir"
	"github.com/sensiml/piccolo-sub000/internal/telemetry"
)

// Environment variables supplying flag defaults.
const (
	EnvCatalog = "PICCOLO_CATALOG"
	EnvDB      = "PICCOLO_DB"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Catalog string // catalog file or directory
	DB      string // SQLite store path
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the piccolo CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "piccolo",
		Short:   "Piccolo - step contract validation and pipeline compilation",
		Long:    "Validate sensor pipelines against a step contract catalog and compile them into plans for the embedded backend.",
		Version: ir.EngineVersion,

		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			logger := telemetry.SetupLogger(cmd.ErrOrStderr(), opts.Verbose)
			cmd.SetContext(telemetry.WithLogger(cmd.Context(), logger))
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Catalog, "catalog", os.Getenv(EnvCatalog),
		"step contract catalog file or directory (env "+EnvCatalog+")")
	cmd.PersistentFlags().StringVar(&opts.DB, "db", os.Getenv(EnvDB),
		"pipeline store database path (env "+EnvDB+")")

	cmd.AddCommand(NewCatalogCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewSaveCommand(opts))
	cmd.AddCommand(NewLoadCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// newFormatter builds the formatter every command writes through.
// Verbose logs go to stderr to avoid corrupting JSON.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
