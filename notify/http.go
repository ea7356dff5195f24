package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTP POSTs each event as a JSON body to a configured endpoint.
type HTTP struct {
	endpoint string
	client   *http.Client
}

// NewHTTP builds an HTTP channel posting to endpoint, reusing client (or
// a default 10s-timeout client if nil).
func NewHTTP(endpoint string, client *http.Client) *HTTP {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTP{endpoint: endpoint, client: client}
}

func (h *HTTP) Name() string { return "http:" + h.endpoint }

func (h *HTTP) Send(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: http POST %s: %w", h.endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("notify: http POST %s returned status %d", h.endpoint, resp.StatusCode)
	}
	return nil
}
