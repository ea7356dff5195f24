package telemetry

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// TelemetryLogger is this package's own structured logger. It is
// deliberately independent of core.Logger: the telemetry system must be
// able to report its own failures (collector down, exporter misbehaving)
// even when the rest of the process's logging is routed through the very
// metrics pipeline that is failing.
//
// Output is text for local development and JSON when running under
// Kubernetes (detected via KUBERNETES_SERVICE_HOST), overridable with
// VANTAGE_LOG_FORMAT. Error lines are rate-limited to one per second.
type TelemetryLogger struct {
	mu          sync.RWMutex
	level       string
	debug       bool
	serviceName string
	format      string
	output      io.Writer

	errorLimiter *RateLimiter

	metricsEnabled bool
}

var (
	telemetryLogger     *TelemetryLogger
	telemetryLoggerOnce sync.Once
)

// NewTelemetryLogger returns the package-wide logger, creating it on
// first call. Level comes from VANTAGE_LOG_LEVEL (default INFO), debug
// from VANTAGE_DEBUG or TELEMETRY_DEBUG.
func NewTelemetryLogger(serviceName string) *TelemetryLogger {
	telemetryLoggerOnce.Do(func() {
		telemetryLogger = createTelemetryLogger(serviceName)
	})
	return telemetryLogger
}

func createTelemetryLogger(serviceName string) *TelemetryLogger {
	level := strings.ToUpper(os.Getenv("VANTAGE_LOG_LEVEL"))
	if level == "" {
		level = "INFO"
	}

	debug := os.Getenv("VANTAGE_DEBUG") == "true" ||
		os.Getenv("TELEMETRY_DEBUG") == "true" ||
		level == "DEBUG"

	format := "text"
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		format = "json"
	}
	if envFormat := os.Getenv("VANTAGE_LOG_FORMAT"); envFormat != "" {
		format = envFormat
	}

	return &TelemetryLogger{
		level:        level,
		debug:        debug,
		serviceName:  serviceName,
		format:       format,
		output:       os.Stdout,
		errorLimiter: NewRateLimiter(1 * time.Second),
	}
}

func (l *TelemetryLogger) Info(msg string, fields map[string]interface{}) {
	l.log("INFO", msg, fields)
}

func (l *TelemetryLogger) Warn(msg string, fields map[string]interface{}) {
	l.log("WARN", msg, fields)
}

// Error logs with rate limiting so a persistent backend failure cannot
// flood the output.
func (l *TelemetryLogger) Error(msg string, fields map[string]interface{}) {
	if l.errorLimiter != nil && !l.errorLimiter.Allow() {
		return
	}
	l.log("ERROR", msg, fields)
}

func (l *TelemetryLogger) Debug(msg string, fields map[string]interface{}) {
	if !l.debug {
		return
	}
	l.log("DEBUG", msg, fields)
}

var logLevels = map[string]int{"DEBUG": 0, "INFO": 1, "WARN": 2, "ERROR": 3}

func (l *TelemetryLogger) log(level, msg string, fields map[string]interface{}) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	configured, ok1 := logLevels[l.level]
	incoming, ok2 := logLevels[level]
	if ok1 && ok2 && incoming < configured {
		return
	}

	timestamp := time.Now().Format(time.RFC3339)
	if l.format == "json" {
		entry := map[string]interface{}{
			"timestamp": timestamp,
			"level":     level,
			"service":   l.serviceName,
			"component": "telemetry",
			"message":   msg,
		}
		for k, v := range fields {
			if _, reserved := entry[k]; !reserved {
				entry[k] = v
			}
		}
		if data, err := json.Marshal(entry); err == nil {
			fmt.Fprintln(l.output, string(data))
		}
	} else {
		var b strings.Builder
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, fields[k])
		}
		fmt.Fprintf(l.output, "%s [%s] [telemetry:%s] %s%s\n",
			timestamp, level, l.serviceName, msg, b.String())
	}

	l.emitLogMetric(level)
}

// emitLogMetric counts log lines as a metric once the registry exists,
// giving operators a cheap signal of telemetry-subsystem churn.
func (l *TelemetryLogger) emitLogMetric(level string) {
	if !l.metricsEnabled || globalRegistry.Load() == nil {
		return
	}
	Emit("vantage.telemetry.operations", 1.0,
		"level", level, "service", l.serviceName, "component", "telemetry")
}

// EnableMetrics is called once the registry is initialized; before that,
// log lines go to the console only.
func (l *TelemetryLogger) EnableMetrics() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.metricsEnabled = true
}

// SetLevel updates the log level at runtime.
func (l *TelemetryLogger) SetLevel(level string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = strings.ToUpper(level)
	l.debug = l.level == "DEBUG"
}

// SetOutput redirects log output, used by tests.
func (l *TelemetryLogger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.output = w
}

// GetLogger returns the package logger, constructing it with the
// registry's service name when available.
func GetLogger() *TelemetryLogger {
	telemetryLoggerOnce.Do(func() {
		serviceName := "telemetry"
		if registry := GetRegistry(); registry != nil && registry.config.ServiceName != "" {
			serviceName = registry.config.ServiceName
		}
		telemetryLogger = createTelemetryLogger(serviceName)
	})
	return telemetryLogger
}
