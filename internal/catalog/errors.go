package catalog

import (
	"errors"
	"fmt"

	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/sensiml/piccolo-sub000/internal/ir"
)

// Sentinels matched by errors.Is against any *Error of the same kind.
var (
	ErrContractNotFound    = errors.New("contract not found")
	ErrDuplicateContractID = errors.New("duplicate contract id")
	ErrCatalogIntegrity    = errors.New("catalog integrity")
)

// Error is a catalog load or lookup failure.
type Error struct {
	Kind     ir.ErrorKind
	Contract string
	Param    string
	Message  string
	Pos      token.Pos // CUE position if available
}

func (e *Error) Error() string {
	loc := ""
	switch {
	case e.Contract != "" && e.Param != "":
		loc = fmt.Sprintf("%s.%s: ", e.Contract, e.Param)
	case e.Contract != "":
		loc = e.Contract + ": "
	}
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s%s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Kind.Code(), loc, e.Message)
	}
	return fmt.Sprintf("%s: %s%s", e.Kind.Code(), loc, e.Message)
}

// Unwrap maps the error kind to its sentinel.
func (e *Error) Unwrap() error {
	switch e.Kind {
	case ir.KindContractNotFound:
		return ErrContractNotFound
	case ir.KindDuplicateContractID:
		return ErrDuplicateContractID
	default:
		return ErrCatalogIntegrity
	}
}

// Violation converts the error into a catalog-scoped violation.
func (e *Error) Violation() ir.Violation {
	msg := e.Message
	if e.Pos.IsValid() {
		msg = fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return ir.Violation{
		Kind:     e.Kind,
		Code:     e.Kind.Code(),
		Scope:    ir.ScopeCatalog,
		Step:     -1,
		Contract: e.Contract,
		Param:    e.Param,
		Message:  msg,
	}
}

// IsNotFound reports whether err is a failed contract lookup.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrContractNotFound)
}

// IsDuplicate reports whether err is a duplicate name or uuid.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicateContractID)
}

// IsIntegrity reports whether err is a malformed catalog entry.
func IsIntegrity(err error) bool {
	return errors.Is(err, ErrCatalogIntegrity)
}

// Errors flattens err (possibly an errors.Join of several) into the
// catalog errors it carries. Foreign errors are wrapped as integrity errors.
func Errors(err error) []*Error {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []*Error
		for _, e := range joined.Unwrap() {
			out = append(out, Errors(e)...)
		}
		return out
	}
	var ce *Error
	if errors.As(err, &ce) {
		return []*Error{ce}
	}
	return []*Error{{Kind: ir.KindCatalogIntegrity, Message: err.Error()}}
}

func integrityf(contract, param, format string, args ...any) *Error {
	return &Error{
		Kind:     ir.KindCatalogIntegrity,
		Contract: contract,
		Param:    param,
		Message:  fmt.Sprintf(format, args...),
	}
}

// formatCUEError extracts position info from CUE errors. Every CUE error
// becomes its own *Error so a broken catalog reports all of its problems.
func formatCUEError(err error, contract string) error {
	if err == nil {
		return nil
	}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return integrityf(contract, "", "%v", err)
	}

	out := make([]error, 0, len(errs))
	for _, e := range errs {
		ce := &Error{
			Kind:     ir.KindCatalogIntegrity,
			Contract: contract,
			Message:  e.Error(),
		}
		if positions := cueerrors.Positions(e); len(positions) > 0 {
			ce.Pos = positions[0]
		}
		out = append(out, ce)
	}
	return errors.Join(out...)
}
