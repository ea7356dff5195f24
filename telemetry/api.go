package telemetry

import "time"

// Counter increments a counter metric by one. Labels are key-value
// pairs: Counter("request.total", "component", "research").
func Counter(name string, labels ...string) {
	Emit(name, 1, labels...)
}

// Histogram records one observation of a distribution — latencies,
// sizes, scores. Percentiles are the backend's job.
func Histogram(name string, value float64, labels ...string) {
	Emit(name, value, labels...)
}

// Gauge records a point-in-time value that can move both ways: queue
// depth, active connections. Recorded as a histogram internally so it
// needs no OpenTelemetry observer callback.
func Gauge(name string, value float64, labels ...string) {
	Emit(name, value, labels...)
}

// Duration records elapsed milliseconds since startTime.
//
//	start := time.Now()
//	defer Duration("operation.duration_ms", start)
func Duration(name string, startTime time.Time, labels ...string) {
	Emit(name, float64(time.Since(startTime).Milliseconds()), labels...)
}

// TimeOperation starts a timer and returns the function that stops it
// and records the duration:
//
//	defer TimeOperation("search.duration_ms", "fusion", "rrf")()
func TimeOperation(name string, labels ...string) func() {
	start := time.Now()
	return func() {
		Duration(name, start, labels...)
	}
}

// RecordError counts an error occurrence tagged with its type.
func RecordError(name string, errorType string, labels ...string) {
	Counter(name, append(labels, "error_type", errorType)...)
}

// RecordSuccess counts a successful operation.
func RecordSuccess(name string, labels ...string) {
	Counter(name, append(labels, "status", "success")...)
}
