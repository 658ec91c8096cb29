// Package telemetry wires observability for the compiler and the CLI.
//
// It covers two concerns:
//   - logging.go: slog setup driven by PICCOLO_LOG_LEVEL and PICCOLO_LOG_FORMAT
//   - metrics.go: Prometheus counters and histograms fed by compiler.Recorder
//
// Logs always go to stderr so command output on stdout stays parseable.
package telemetry
