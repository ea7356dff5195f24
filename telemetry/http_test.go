package telemetry

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTracedClientWorksUninitialized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewTracedHTTPClient(nil)
	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("traced client request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestTracedClientWithPooledTransport(t *testing.T) {
	client := NewTracedHTTPClientWithTransport(nil)
	if client.Transport == nil {
		t.Fatal("transport not installed")
	}
}
