// Package telemetry is the metrics and tracing backbone for the
// research-orchestration pipeline. It wraps OpenTelemetry behind a small
// emission API (Counter, Histogram, Gauge, Duration) that is safe to
// call before Initialize and after Shutdown — uninitialized emission is
// a silent no-op, so library code never has to guard its metrics calls.
//
// The path between an Emit call and the OTLP exporter carries three
// protections: a cardinality limiter that collapses unbounded label
// values into "other" once a per-label budget is spent, a circuit
// breaker that stops hammering a dead collector and re-probes it after a
// recovery window, and a rate limit on the package's own error logging
// so a collector outage cannot flood the logs.
//
// Initialize is called once from main; everything else is reachable from
// any package without configuration. Components declare their metrics in
// init() via DeclareMetrics (see modules.go) so instrument metadata
// exists before first use.
package telemetry
