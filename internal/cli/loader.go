package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sensiml/piccolo-sub000/internal/catalog"
	"github.com/sensiml/piccolo-sub000/internal/ir"
	"github.com/sensiml/piccolo-sub000/internal/store"
)

// loadRegistry loads the catalog named by --catalog.
// Load failures are command errors (exit code 2); the formatter reports them.
func loadRegistry(opts *RootOptions, formatter *OutputFormatter) (*catalog.Registry, error) {
	if opts.Catalog == "" {
		return nil, reportError(formatter, ExitCommandError, ErrCodeMissingInput,
			"no catalog given: use --catalog or "+EnvCatalog, nil)
	}

	formatter.VerboseLog("Loading catalog %s", opts.Catalog)
	reg, err := catalog.Load(opts.Catalog)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, reportError(formatter, ExitCommandError, ErrCodeNotFound,
				fmt.Sprintf("catalog not found: %s", opts.Catalog), nil)
		}
		return nil, reportError(formatter, ExitCommandError, ErrCodeCatalog,
			"catalog failed to load (run 'piccolo catalog check' for details)", catalogMessages(err))
	}
	formatter.VerboseLog("Loaded %d contract(s) from %s", reg.Len(), reg.Source())
	return reg, nil
}

// loadPipeline decodes a pipeline definition. Files ending in .json are
// JSON; anything else is YAML. Unknown fields are rejected in both.
// An unnamed pipeline takes the file's base name.
func loadPipeline(path string) (*ir.Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var p ir.Pipeline
	if strings.EqualFold(filepath.Ext(path), ".json") {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&p)
	} else {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&p)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	if p.Name == "" {
		base := filepath.Base(path)
		p.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return &p, nil
}

// readPipeline wraps loadPipeline with CLI error reporting.
func readPipeline(path string, formatter *OutputFormatter) (*ir.Pipeline, error) {
	p, err := loadPipeline(path)
	if err == nil {
		formatter.VerboseLog("Loaded pipeline %s (%d step(s))", p.Name, len(p.Steps))
		return p, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil, reportError(formatter, ExitCommandError, ErrCodeNotFound,
			fmt.Sprintf("pipeline file not found: %s", path), nil)
	}
	return nil, reportError(formatter, ExitCommandError, ErrCodeParseFailed, err.Error(), nil)
}

// openStore opens the database named by --db.
func openStore(opts *RootOptions, formatter *OutputFormatter) (*store.Store, error) {
	if opts.DB == "" {
		return nil, reportError(formatter, ExitCommandError, ErrCodeMissingInput,
			"no database given: use --db or "+EnvDB, nil)
	}
	st, err := store.Open(opts.DB)
	if err != nil {
		return nil, reportError(formatter, ExitCommandError, ErrCodeStore, err.Error(), nil)
	}
	return st, nil
}

// reportError writes an error through the formatter and returns the
// matching ExitError.
func reportError(formatter *OutputFormatter, exitCode int, code, message string, details interface{}) error {
	_ = formatter.Error(code, message, details)
	return NewExitError(exitCode, fmt.Sprintf("%s: %s", code, message))
}

// catalogMessages flattens a catalog load error into one line per problem.
func catalogMessages(err error) []string {
	errs := catalog.Errors(err)
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Error()
	}
	return out
}
