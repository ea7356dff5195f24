package telemetry

import (
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// NewTracedHTTPClient wraps a transport so every outbound request
// carries W3C trace-context headers and produces a client span. Provider
// adapters use this for their API calls, which is what stitches a
// research request's trace across the provider boundary.
//
// Safe to use before Initialize: with no global tracer installed, the
// instrumented transport is a pass-through.
func NewTracedHTTPClient(baseTransport http.RoundTripper) *http.Client {
	if baseTransport == nil {
		baseTransport = http.DefaultTransport
	}
	return &http.Client{
		Transport: otelhttp.NewTransport(baseTransport),
	}
}

// NewTracedHTTPClientWithTransport is NewTracedHTTPClient with pooled
// transport defaults tuned for long-lived provider connections.
func NewTracedHTTPClientWithTransport(transport *http.Transport) *http.Client {
	if transport == nil {
		transport = &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			ForceAttemptHTTP2:   true,
		}
	}
	return &http.Client{
		Transport: otelhttp.NewTransport(transport),
	}
}
