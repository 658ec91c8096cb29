// Package catalog loads step contracts and serves them from an immutable
// Registry.
//
// Catalog documents are JSON, YAML or CUE. Every entry is unified with the
// embedded #StepContract schema (schema.cue) before it is decoded, so
// structural mistakes come back with file positions. The Registry then
// enforces the rules that need the whole catalog: unique names and uuids,
// parsable output formulas, resolvable depends_on targets.
//
// A Registry is constructed explicitly and passed to the compiler; there is
// no process-wide catalog.
package catalog
