// Package notify implements the notification plane: multi-channel
// (console/file/HTTP) structured events with per-channel rate limits and
// optional batching.
package notify

import (
	"context"
	"time"
)

// Severity classifies an Event for console colouring and filtering.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Event is one notification-plane message. Source identifies the
// component that raised it (e.g. "proactive.StateManager",
// "resilience.Executor"); Metadata carries free-form structured context.
type Event struct {
	ID        string
	Timestamp time.Time
	Severity  Severity
	Source    string
	Message   string
	Metadata  map[string]interface{}
}

// Channel delivers Events to one destination (console, file, HTTP
// webhook, ...).
type Channel interface {
	Name() string
	Send(ctx context.Context, event Event) error
}
