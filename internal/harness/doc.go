// Package harness provides conformance scenarios for step catalogs and the
// pipeline compiler.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: gesture_pipeline
//	description: "Windowed gesture features compile and serialize"
//	catalog: ../catalog.json
//	options:
//	  max_segment_length: 256
//	pipeline:
//	  columns: [accelx, accely, accelz]
//	  steps:
//	    - contract: Windowing
//	      params: { window_size: 128, delta: 64 }
//	    - contract: Histogram
//	      params: { columns: [accelx], number_of_bins: 8 }
//	valid: true
//	assertions:
//	  - type: output_width
//	    step: 1
//	    output: data_out
//	    width: 8
//	  - type: buffer
//	    step: 1
//	    output: data_out
//	    size: 8
//
// The catalog path resolves against the scenario file's directory.
//
// # Assertion Types
//
//   - violation: a violation with the code exists, optionally at step/param
//   - violation_count: exact number of violations
//   - output_width: width of one step output
//   - columns: the data columns after the last step
//   - feature_count: number of generated feature columns
//   - buffer: scratch buffer size, or deferred
//   - slots: serialized c_param slot values
//   - param: a resolved step parameter
//   - shared: a pipeline-wide shared value
//   - stored_plan: the plan survives a store round trip unchanged
//
// # Deterministic Testing
//
// Every run compiles into a fresh in-memory SQLite store with a
// testutil.DeterministicClock and sequential ids, and the compiled plan is
// content-hashed, so runs are reproducible and golden snapshots
// (plan.Format output) are stable.
package harness
