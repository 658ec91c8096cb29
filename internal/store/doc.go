// Package store provides SQLite-backed storage for pipeline definitions and
// the plans compiled from them.
//
// Pipelines are keyed by a generated id (UUIDv7 by default) and unique by
// name. Saving a pipeline under an existing name replaces its definition in
// place. Plans hang off a pipeline and are unique per (pipeline, plan hash),
// so recompiling an unchanged pipeline never duplicates rows.
//
// Definitions and plan bodies are stored as RFC 8785 canonical JSON, which
// makes the stored hashes reproducible from the stored text.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity (plans cascade on delete)
package store
