package core

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// LoggingConfig controls ProductionLogger's output shape.
type LoggingConfig struct {
	Level  string // debug|info|warn|error
	Format string // "json" or "text"
	Output string // "stdout", "stderr", or a file path
}

// DevelopmentConfig toggles verbose local-dev behavior.
type DevelopmentConfig struct {
	DebugLogging bool
}

var levelRank = map[string]int{"debug": 0, "info": 1, "warn": 2, "error": 3}

// ProductionLogger is the structured logger used across every package in
// this repository. It tags every line with a component name and, when a
// MetricsEmitter is supplied, emits a low-cardinality counter per log
// event so dashboards can track error/warn rates without scraping logs.
//
// Metrics wiring is always explicit: call WithMetrics to attach an
// emitter, or don't and the logger stays log-only. There is no
// process-wide logger registry.
type ProductionLogger struct {
	level       string
	debug       bool
	serviceName string
	component   string
	format      string
	output      io.Writer
	metrics     MetricsEmitter
}

// NewProductionLogger constructs a ProductionLogger writing to the
// configured output ("stdout"/"stderr"/a path), in the configured format.
func NewProductionLogger(logging LoggingConfig, dev DevelopmentConfig, serviceName string) *ProductionLogger {
	level := logging.Level
	if level == "" {
		level = "info"
	}
	format := logging.Format
	if format == "" {
		format = "json"
	}

	var out io.Writer
	switch logging.Output {
	case "", "stdout":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	default:
		f, err := os.OpenFile(logging.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			out = os.Stdout
		} else {
			out = f
		}
	}

	return &ProductionLogger{
		level:       level,
		debug:       dev.DebugLogging,
		serviceName: serviceName,
		format:      format,
		output:      out,
	}
}

// WithMetrics returns a copy of the logger that also emits metrics via e.
func (l *ProductionLogger) WithMetrics(e MetricsEmitter) *ProductionLogger {
	clone := *l
	clone.metrics = e
	return &clone
}

// WithComponent returns a logger tagging every line with component,
// satisfying core.ComponentAwareLogger.
func (l *ProductionLogger) WithComponent(component string) Logger {
	clone := *l
	clone.component = component
	return &clone
}

func (l *ProductionLogger) enabled(level string) bool {
	if level == "debug" && !l.debug && levelRank[l.level] > levelRank["debug"] {
		return false
	}
	return levelRank[level] >= levelRank[l.level]
}

type logEntry struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Service   string                 `json:"service,omitempty"`
	Component string                 `json:"component,omitempty"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

func (l *ProductionLogger) logEvent(level, msg string, fields map[string]interface{}, ctx context.Context) {
	if !l.enabled(level) {
		return
	}
	entry := logEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level,
		Service:   l.serviceName,
		Component: l.component,
		Message:   msg,
		Fields:    fields,
	}

	if l.format == "json" {
		b, err := json.Marshal(entry)
		if err == nil {
			fmt.Fprintln(l.output, string(b))
		}
	} else {
		fmt.Fprintf(l.output, "%s [%s] %s %s: %v\n", entry.Timestamp, level, entry.Component, msg, fields)
	}

	if l.metrics != nil && (level == "error" || level == "warn") {
		status := "error"
		if level == "warn" {
			status = "warn"
		}
		l.metrics.Counter("log_event", "component", l.component, "status", status)
	}
}

func (l *ProductionLogger) Info(msg string, fields map[string]interface{})  { l.logEvent("info", msg, fields, nil) }
func (l *ProductionLogger) Error(msg string, fields map[string]interface{}) { l.logEvent("error", msg, fields, nil) }
func (l *ProductionLogger) Warn(msg string, fields map[string]interface{})  { l.logEvent("warn", msg, fields, nil) }
func (l *ProductionLogger) Debug(msg string, fields map[string]interface{}) { l.logEvent("debug", msg, fields, nil) }

func (l *ProductionLogger) InfoWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.logEvent("info", msg, fields, ctx)
}
func (l *ProductionLogger) ErrorWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.logEvent("error", msg, fields, ctx)
}
func (l *ProductionLogger) WarnWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.logEvent("warn", msg, fields, ctx)
}
func (l *ProductionLogger) DebugWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.logEvent("debug", msg, fields, ctx)
}
