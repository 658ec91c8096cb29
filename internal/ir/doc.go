// Package ir provides the plain data model shared by the contract engine.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps the data model the
// foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Parameter values are the sealed Value union, never bare interface{}
//   - Integers and floats stay distinct through JSON and YAML decoding
//   - All JSON tags use snake_case, matching the catalog format
//   - Canonical JSON (RFC 8785) is the only encoding used for hashing
package ir
