package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/relabs-io/vantage/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteWithRetryRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	base := NewBaseClient(5*time.Second, nil)
	base.RetryDelay = time.Millisecond

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	resp, err := base.ExecuteWithRetry(context.Background(), req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestExecuteWithRetryDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	base := NewBaseClient(5*time.Second, nil)
	base.RetryDelay = time.Millisecond

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	resp, err := base.ExecuteWithRetry(context.Background(), req)
	require.NoError(t, err, "4xx is returned, not retried")
	resp.Body.Close()
	assert.Equal(t, int32(1), calls.Load())
}

func TestExecuteWithRetryRetries429(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	base := NewBaseClient(5*time.Second, nil)
	base.RetryDelay = time.Millisecond

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	resp, err := base.ExecuteWithRetry(context.Background(), req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, int32(2), calls.Load())
}

func TestExecuteWithRetryHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	base := NewBaseClient(5*time.Second, nil)
	base.RetryDelay = time.Minute // would block forever without cancellation

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	_, err := base.ExecuteWithRetry(ctx, req)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestApplyDefaults(t *testing.T) {
	base := NewBaseClient(time.Second, nil)
	base.DefaultModel = "default-model"
	base.DefaultSystemPrompt = "be concise"

	opts := base.ApplyDefaults(nil)
	assert.Equal(t, "default-model", opts.Model)
	assert.Equal(t, float32(0.7), opts.Temperature)
	assert.Equal(t, 1000, opts.MaxTokens)
	assert.Equal(t, "be concise", opts.SystemPrompt)

	explicit := base.ApplyDefaults(&core.AIOptions{Model: "explicit", Temperature: 0.1, MaxTokens: 5})
	assert.Equal(t, "explicit", explicit.Model)
	assert.Equal(t, float32(0.1), explicit.Temperature)
	assert.Equal(t, 5, explicit.MaxTokens)
}

func TestHandleErrorKinds(t *testing.T) {
	base := NewBaseClient(time.Second, nil)

	cases := []struct {
		status int
		kind   core.Kind
	}{
		{http.StatusUnauthorized, core.KindPermanent},
		{http.StatusForbidden, core.KindPermanent},
		{http.StatusTooManyRequests, core.KindRateLimit},
		{http.StatusBadRequest, core.KindValidation},
		{http.StatusServiceUnavailable, core.KindExternalService},
		{http.StatusTeapot, core.KindInternal},
	}
	for _, c := range cases {
		err := base.HandleError(c.status, []byte("body"), "testprov")
		assert.Equal(t, c.kind, core.KindOf(err), "status %d", c.status)
	}
}
