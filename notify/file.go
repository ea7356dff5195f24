package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// File appends one JSON-line per event, timestamped ISO-8601, to a
// single append-only file.
type File struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

// NewFile opens (creating if needed) path for appending.
func NewFile(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("notify: open %s: %w", path, err)
	}
	return &File{path: path, f: f}, nil
}

func (f *File) Name() string { return "file:" + f.path }

type fileLine struct {
	Timestamp string                 `json:"timestamp"`
	Severity  Severity               `json:"severity"`
	Source    string                 `json:"source"`
	Message   string                 `json:"message"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

func (f *File) Send(ctx context.Context, event Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	line := fileLine{
		Timestamp: ts.UTC().Format(time.RFC3339Nano),
		Severity:  event.Severity,
		Source:    event.Source,
		Message:   event.Message,
		Metadata:  event.Metadata,
	}
	b, err := json.Marshal(line)
	if err != nil {
		return err
	}
	b = append(b, '\n')
	_, err = f.f.Write(b)
	return err
}

// Close closes the underlying file handle.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.f.Close()
}
