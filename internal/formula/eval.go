package formula

import (
	"errors"
	"fmt"
	"math"

	"github.com/sensiml/piccolo-sub000/internal/ir"
)

// ErrEval reports a formula that parsed but could not be evaluated against
// a concrete parameter map.
var ErrEval = errors.New("formula evaluation failed")

func evalErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrEval}, args...)...)
}

type node interface {
	eval(params ir.Params) (operand, error)
}

// operand is either a number or a parameter value that only len() may use.
type operand struct {
	num   float64
	isNum bool
	raw   ir.Value
}

func numeric(f float64) operand {
	return operand{num: f, isNum: true}
}

type number struct {
	value float64
}

func (n number) eval(ir.Params) (operand, error) {
	return numeric(n.value), nil
}

type paramRef struct {
	name string
}

func (r paramRef) eval(params ir.Params) (operand, error) {
	v, ok := params[r.name]
	if !ok || v == nil {
		return operand{}, evalErrorf("params[%q] is not set", r.name)
	}
	switch val := v.(type) {
	case ir.Int, ir.Float:
		f, _ := ir.Number(val)
		return numeric(f), nil
	case ir.List, ir.Str, ir.Dict:
		return operand{raw: val}, nil
	default:
		return operand{}, evalErrorf("params[%q] is %s, want number or list", r.name, ir.Kind(v))
	}
}

type call struct {
	fn  string
	arg node
}

func (c call) eval(params ir.Params) (operand, error) {
	arg, err := c.arg.eval(params)
	if err != nil {
		return operand{}, err
	}
	switch c.fn {
	case "len":
		switch val := arg.raw.(type) {
		case ir.List:
			return numeric(float64(len(val))), nil
		case ir.Str:
			return numeric(float64(len([]rune(string(val))))), nil
		case ir.Dict:
			return numeric(float64(len(val))), nil
		}
		return operand{}, evalErrorf("len() of a number")
	case "ceil":
		if !arg.isNum {
			return operand{}, evalErrorf("ceil() of %s", ir.Kind(arg.raw))
		}
		return numeric(math.Ceil(arg.num)), nil
	}
	return operand{}, evalErrorf("unknown function %q", c.fn)
}

type binary struct {
	op    tokenKind
	left  node
	right node
}

func (b binary) eval(params ir.Params) (operand, error) {
	l, err := b.left.eval(params)
	if err != nil {
		return operand{}, err
	}
	r, err := b.right.eval(params)
	if err != nil {
		return operand{}, err
	}
	if !l.isNum || !r.isNum {
		return operand{}, evalErrorf("operator %s needs numbers, got %s and %s", b.op, kindOf(l), kindOf(r))
	}
	switch b.op {
	case tokPlus:
		return numeric(l.num + r.num), nil
	case tokMinus:
		return numeric(l.num - r.num), nil
	case tokStar:
		return numeric(l.num * r.num), nil
	case tokSlash:
		if r.num == 0 {
			return operand{}, evalErrorf("division by zero")
		}
		return numeric(l.num / r.num), nil
	}
	return operand{}, evalErrorf("unsupported operator %s", b.op)
}

func kindOf(o operand) string {
	if o.isNum {
		return "number"
	}
	return ir.Kind(o.raw)
}

// Eval evaluates the formula against params and returns the resulting width.
// The result must be a finite, positive integer; fractional results are
// rejected rather than rounded (use ceil to round up explicitly).
func (e *Expr) Eval(params ir.Params) (int, error) {
	out, err := e.root.eval(params)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", e.src, err)
	}
	if !out.isNum {
		return 0, fmt.Errorf("%s: %w", e.src, evalErrorf("result is %s, want a number", kindOf(out)))
	}
	f := out.num
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%s: %w", e.src, evalErrorf("result is not finite"))
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%s: %w", e.src, evalErrorf("result %v is not an integer", f))
	}
	if f < 1 {
		return 0, fmt.Errorf("%s: %w", e.src, evalErrorf("result %v is not positive", f))
	}
	if f > math.MaxInt32 {
		return 0, fmt.Errorf("%s: %w", e.src, evalErrorf("result %v is too large", f))
	}
	return int(f), nil
}

func walk(n node, fn func(node)) {
	fn(n)
	switch v := n.(type) {
	case binary:
		walk(v.left, fn)
		walk(v.right, fn)
	case call:
		walk(v.arg, fn)
	}
}
