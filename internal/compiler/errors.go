package compiler

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/sensiml/piccolo-sub000/internal/ir"
)

// Error folds the violations of a plan into one error value.
type Error struct {
	violations []ir.Violation
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch len(e.violations) {
	case 0:
		return "no violations"
	case 1:
		return e.violations[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d violations:", len(e.violations))
	for _, v := range e.violations {
		b.WriteString("\n  ")
		b.WriteString(v.Error())
	}
	return b.String()
}

// Violations returns a copy of the folded violations.
func (e *Error) Violations() []ir.Violation {
	return slices.Clone(e.violations)
}

// Has reports whether any violation is of the given kind.
func (e *Error) Has(kind ir.ErrorKind) bool {
	return slices.ContainsFunc(e.violations, func(v ir.Violation) bool {
		return v.Kind == kind
	})
}

// ViolationsOf extracts the violations carried by err, if it is (or
// wraps) an *Error.
func ViolationsOf(err error) []ir.Violation {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Violations()
	}
	return nil
}
