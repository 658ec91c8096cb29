// Package compiler validates pipelines of step invocations against a
// catalog and compiles them into plans.
//
// Each step goes through the same stages, in pipeline order:
//
//   - ValidateParams: types, defaults, ranges, options, arity, depends_on
//   - PipelineContext: handle_by_set values shared across steps
//   - ResolveShape: output widths from output_formula, column naming
//   - PlanBuffers: scratch buffer sizes, deferred for segment_size
//   - SerializeParams: the c_param slot array a native backend consumes
//
// Violations are collected, never short-circuited. A Plan always comes
// back whole; Plan.Err folds its violations into an *Error.
//
// CheckCatalog audits a catalog for contracts whose own declarations are
// inconsistent (bad defaults, gaps in c_param numbering and so on).
package compiler
