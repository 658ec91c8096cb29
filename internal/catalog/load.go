package catalog

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	cuejson "cuelang.org/go/encoding/json"
	cueyaml "cuelang.org/go/encoding/yaml"

	"github.com/sensiml/piccolo-sub000/internal/ir"
)

//go:embed schema.cue
var schemaSource string

// Load reads a catalog from a file or directory and builds a Registry.
//
// Files may be JSON (.json), YAML (.yaml, .yml) or CUE (.cue). A directory
// contributes every catalog file directly inside it; its .cue files are
// loaded together as one CUE instance.
func Load(path string) (*Registry, error) {
	contracts, err := Read(path)
	if err != nil {
		return nil, err
	}
	reg, err := New(contracts)
	if err != nil {
		return nil, err
	}
	reg.source = path
	slog.Info("catalog loaded", "source", path, "contracts", reg.Len())
	return reg, nil
}

// Read decodes and schema-checks the contracts at path without building a
// registry. Integrity checks that need the whole catalog run in New.
func Read(path string) ([]ir.StepContract, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}

	d, err := newDecoder()
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return d.readDir(path)
	}
	return d.readFile(path)
}

// DecodeJSON decodes a JSON catalog document. name is used in positions.
func DecodeJSON(name string, data []byte) ([]ir.StepContract, error) {
	d, err := newDecoder()
	if err != nil {
		return nil, err
	}
	return d.decodeJSON(name, data)
}

// DecodeYAML decodes a YAML catalog document. name is used in positions.
func DecodeYAML(name string, data []byte) ([]ir.StepContract, error) {
	d, err := newDecoder()
	if err != nil {
		return nil, err
	}
	return d.decodeYAML(name, data)
}

type decoder struct {
	ctx    *cue.Context
	schema cue.Value
}

func newDecoder() (*decoder, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile catalog schema: %w", err)
	}
	return &decoder{
		ctx:    ctx,
		schema: schema.LookupPath(cue.ParsePath("#StepContract")),
	}, nil
}

func (d *decoder) readDir(dir string) ([]ir.StepContract, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}

	var (
		contracts []ir.StepContract
		errs      []error
		hasCUE    bool
		files     int
	)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		switch strings.ToLower(filepath.Ext(path)) {
		case ".cue":
			hasCUE = true
		case ".json", ".yaml", ".yml":
			files++
			found, err := d.readFile(path)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			contracts = append(contracts, found...)
		}
	}
	if hasCUE {
		files++
		found, err := d.loadCUE(dir, ".")
		if err != nil {
			errs = append(errs, err)
		} else {
			contracts = append(contracts, found...)
		}
	}

	if files == 0 {
		return nil, fmt.Errorf("catalog: no catalog files found in %s", dir)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return contracts, nil
}

func (d *decoder) readFile(path string) ([]ir.StepContract, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".cue" {
		return d.loadCUE(filepath.Dir(path), "./"+filepath.Base(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	switch ext {
	case ".json":
		return d.decodeJSON(path, data)
	case ".yaml", ".yml":
		return d.decodeYAML(path, data)
	default:
		return nil, fmt.Errorf("catalog: unsupported file extension %q (want .json, .yaml, .yml or .cue)", ext)
	}
}

func (d *decoder) decodeJSON(name string, data []byte) ([]ir.StepContract, error) {
	expr, err := cuejson.Extract(name, data)
	if err != nil {
		return nil, formatCUEError(err, "")
	}
	return d.contracts(d.ctx.BuildExpr(expr), name)
}

func (d *decoder) decodeYAML(name string, data []byte) ([]ir.StepContract, error) {
	file, err := cueyaml.Extract(name, data)
	if err != nil {
		return nil, formatCUEError(err, "")
	}
	return d.contracts(d.ctx.BuildFile(file), name)
}

// loadCUE loads CUE files the way `cue eval` would, so catalog authors can
// use definitions, comprehensions and defaults in .cue catalogs.
func (d *decoder) loadCUE(dir, arg string) ([]ir.StepContract, error) {
	instances := load.Instances([]string{arg}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, integrityf("", "", "no CUE instances loaded from %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError(inst.Err, "")
	}
	return d.contracts(d.ctx.BuildInstance(inst), filepath.Join(dir, arg))
}

// contracts extracts the contract list from a document: either the document
// itself is a list, or it has a top-level "contracts" field.
func (d *decoder) contracts(root cue.Value, source string) ([]ir.StepContract, error) {
	if err := root.Err(); err != nil {
		return nil, formatCUEError(err, "")
	}

	list := root
	if root.IncompleteKind() == cue.StructKind {
		list = root.LookupPath(cue.ParsePath("contracts"))
		if !list.Exists() {
			return nil, integrityf("", "", "%s: expected a list of contracts or a top-level \"contracts\" field", source)
		}
	}

	iter, err := list.List()
	if err != nil {
		return nil, formatCUEError(err, "")
	}

	var (
		out  []ir.StepContract
		errs []error
	)
	for i := 0; iter.Next(); i++ {
		elem := iter.Value()
		label := contractLabel(elem, i)

		if err := d.schema.Unify(elem).Validate(cue.Concrete(true)); err != nil {
			errs = append(errs, formatCUEError(err, label))
			continue
		}

		data, err := elem.MarshalJSON()
		if err != nil {
			errs = append(errs, formatCUEError(err, label))
			continue
		}
		var c ir.StepContract
		if err := json.Unmarshal(data, &c); err != nil {
			errs = append(errs, &Error{Kind: ir.KindCatalogIntegrity, Contract: label, Message: err.Error(), Pos: elem.Pos()})
			continue
		}
		out = append(out, c)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	slog.Debug("catalog source decoded", "source", source, "contracts", len(out))
	return out, nil
}

func contractLabel(v cue.Value, index int) string {
	if name, err := v.LookupPath(cue.ParsePath("name")).String(); err == nil && name != "" {
		return name
	}
	return fmt.Sprintf("contracts[%d]", index)
}
