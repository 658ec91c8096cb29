// Package formula parses and evaluates output_formula expressions.
//
// Formulas are a tiny arithmetic language over a step's parameters:
//
//	params['new_length'] * len(params['columns'])
//	ceil(params['window_size'] / 2) + 1
//
// Parsing happens once, when a catalog is loaded; evaluation is pure and
// runs against the validated parameter map of one step invocation. There is
// no general interpreter behind it: the only names are params, len and ceil.
package formula
