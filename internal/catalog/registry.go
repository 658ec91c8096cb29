package catalog

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/sensiml/piccolo-sub000/internal/formula"
	"github.com/sensiml/piccolo-sub000/internal/ir"
)

// contractNamespace seeds the UUIDv5 given to contracts that lack a uuid,
// so the same name always maps to the same id.
var contractNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://sensiml.com/piccolo/contracts"))

// Registry is an immutable, indexed set of step contracts.
//
// A Registry is built once and then only read, so it is safe for concurrent
// use. Callers must treat returned contracts as read-only.
type Registry struct {
	contracts []*ir.StepContract // sorted by name
	byUUID    map[string]*ir.StepContract
	byName    map[string]*ir.StepContract
	formulas  map[string][]*formula.Expr // uuid -> per-output formula (nil when absent)
	source    string
}

// New indexes contracts and rejects catalogs that cannot be compiled
// against: duplicate names or uuids, unknown parameter types, unparsable
// formulas, broken depends_on references and duplicate c_param slots.
// Every problem is reported; the returned error is an errors.Join of
// *Error values.
//
// Softer problems (gaps in c_param numbering, defaults outside their own
// range) do not block loading; compiler.CheckCatalog reports them.
func New(contracts []ir.StepContract) (*Registry, error) {
	r := &Registry{
		byUUID:   make(map[string]*ir.StepContract, len(contracts)),
		byName:   make(map[string]*ir.StepContract, len(contracts)),
		formulas: make(map[string][]*formula.Expr, len(contracts)),
	}

	var errs []error
	for i := range contracts {
		c := contracts[i]
		if strings.TrimSpace(c.Name) == "" {
			errs = append(errs, integrityf(fmt.Sprintf("contracts[%d]", i), "", "contract name is required"))
			continue
		}
		if c.UUID == "" {
			c.UUID = uuid.NewSHA1(contractNamespace, []byte(c.Name)).String()
		}

		if prev, ok := r.byUUID[c.UUID]; ok {
			errs = append(errs, &Error{
				Kind:     ir.KindDuplicateContractID,
				Contract: c.Name,
				Message:  fmt.Sprintf("uuid %s already used by %q", c.UUID, prev.Name),
			})
			continue
		}
		key := normalizeName(c.Name)
		if prev, ok := r.byName[key]; ok {
			errs = append(errs, &Error{
				Kind:     ir.KindDuplicateContractID,
				Contract: c.Name,
				Message:  fmt.Sprintf("name collides with %q", prev.Name),
			})
			continue
		}

		exprs, contractErrs := checkContract(&c)
		if len(contractErrs) > 0 {
			errs = append(errs, contractErrs...)
			continue
		}

		r.byUUID[c.UUID] = &c
		r.byName[key] = &c
		r.formulas[c.UUID] = exprs
		r.contracts = append(r.contracts, &c)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	slices.SortFunc(r.contracts, func(a, b *ir.StepContract) int {
		return strings.Compare(a.Name, b.Name)
	})
	return r, nil
}

// checkContract runs the load-blocking checks on one contract and parses
// its output formulas.
func checkContract(c *ir.StepContract) ([]*formula.Expr, []error) {
	var errs []error

	names := make(map[string]bool, len(c.InputContract))
	slots := make(map[int]string)
	for _, p := range c.InputContract {
		if names[p.Name] {
			errs = append(errs, integrityf(c.Name, p.Name, "parameter declared more than once"))
		}
		names[p.Name] = true

		if !ir.ValidParamTypes[p.Type] {
			errs = append(errs, integrityf(c.Name, p.Name, "unknown parameter type %q", p.Type))
		}
		if p.ElementType != "" && !ir.ValidParamTypes[p.ElementType] {
			errs = append(errs, integrityf(c.Name, p.Name, "unknown element_type %q", p.ElementType))
		}
		if p.CParam != nil {
			if *p.CParam < 0 {
				errs = append(errs, integrityf(c.Name, p.Name, "c_param %d is negative", *p.CParam))
				continue
			}
			if other, ok := slots[*p.CParam]; ok {
				errs = append(errs, integrityf(c.Name, p.Name, "c_param %d already used by %q", *p.CParam, other))
			}
			slots[*p.CParam] = p.Name
		}
	}

	for _, p := range c.InputContract {
		for _, dep := range p.DependsOn {
			if !names[dep.Name] {
				errs = append(errs, integrityf(c.Name, p.Name, "depends_on references unknown parameter %q", dep.Name))
			}
			if dep.Name == p.Name {
				errs = append(errs, integrityf(c.Name, p.Name, "depends_on references itself"))
			}
			if !ir.ValidRelations[dep.How] {
				errs = append(errs, integrityf(c.Name, p.Name, "depends_on has unknown relation %q", dep.How))
			}
		}
	}

	exprs := make([]*formula.Expr, len(c.OutputContract))
	for i, out := range c.OutputContract {
		if out.OutputFormula != "" {
			expr, err := formula.Parse(out.OutputFormula)
			if err != nil {
				errs = append(errs, integrityf(c.Name, out.Name, "output_formula: %v", err))
			} else {
				exprs[i] = expr
			}
		}
		if sb := out.ScratchBuffer; sb != nil {
			switch sb.Type {
			case ir.BufferSegmentSize, ir.BufferParameter, ir.BufferFixedValue:
			default:
				errs = append(errs, integrityf(c.Name, out.Name, "unknown scratch_buffer type %q", sb.Type))
			}
		}
	}

	return exprs, errs
}

// normalizeName folds a contract name for lookup: NFC, case-folded, trimmed.
func normalizeName(name string) string {
	return strings.TrimSpace(cases.Fold().String(norm.NFC.String(name)))
}

// Get resolves a contract by uuid or by name. Name matching ignores case
// and Unicode normalization differences.
func (r *Registry) Get(ref string) (*ir.StepContract, error) {
	if c, ok := r.byUUID[ref]; ok {
		return c, nil
	}
	if c, ok := r.byName[normalizeName(ref)]; ok {
		return c, nil
	}
	return nil, &Error{
		Kind:     ir.KindContractNotFound,
		Contract: ref,
		Message:  "no contract with this name or uuid",
	}
}

// Formula returns the parsed output_formula of output i, or nil when the
// output declares none.
func (r *Registry) Formula(c *ir.StepContract, i int) *formula.Expr {
	exprs := r.formulas[c.UUID]
	if i < 0 || i >= len(exprs) {
		return nil
	}
	return exprs[i]
}

// List returns every contract, ordered by name.
func (r *Registry) List() []*ir.StepContract {
	return slices.Clone(r.contracts)
}

// ByType returns the contracts of one step type, ordered by name.
func (r *Registry) ByType(typ string) []*ir.StepContract {
	var out []*ir.StepContract
	for _, c := range r.contracts {
		if c.Type == typ {
			out = append(out, c)
		}
	}
	return out
}

// Types returns the distinct step types present, sorted.
func (r *Registry) Types() []string {
	seen := make(map[string]bool)
	var types []string
	for _, c := range r.contracts {
		if !seen[c.Type] {
			seen[c.Type] = true
			types = append(types, c.Type)
		}
	}
	slices.Sort(types)
	return types
}

// Len returns the number of contracts.
func (r *Registry) Len() int {
	return len(r.contracts)
}

// Source returns the path the registry was loaded from, if any.
func (r *Registry) Source() string {
	return r.source
}
