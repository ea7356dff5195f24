package mock

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/relabs-io/vantage/core"
)

func TestMockClientScriptedResponses(t *testing.T) {
	c := NewClient(nil)
	c.SetResponses("first", "second")

	ctx := context.Background()
	r1, err := c.GenerateResponse(ctx, "p1", nil)
	if err != nil || r1.Content != "first" {
		t.Fatalf("first call = %v, %v", r1, err)
	}
	r2, _ := c.GenerateResponse(ctx, "p2", nil)
	if r2.Content != "second" {
		t.Fatalf("second call = %q", r2.Content)
	}
	if _, err := c.GenerateResponse(ctx, "p3", nil); err == nil {
		t.Fatal("exhausted script should error")
	}
	if c.Calls() != 3 {
		t.Errorf("Calls = %d", c.Calls())
	}
}

func TestMockClientScriptedError(t *testing.T) {
	c := NewClient(nil)
	boom := errors.New("boom")
	c.SetError(boom)
	if _, err := c.GenerateResponse(context.Background(), "p", nil); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}

func TestMockClientContextCancellation(t *testing.T) {
	c := NewClient(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.GenerateResponse(ctx, "p", nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

func TestMockClientModelSelection(t *testing.T) {
	c := NewClient(nil)
	resp, _ := c.GenerateResponse(context.Background(), "p", &core.AIOptions{Model: "custom"})
	if resp.Model != "custom" {
		t.Errorf("Model = %q", resp.Model)
	}

	c.Reset()
	c.SetResponses("x")
	resp, _ = c.GenerateResponse(context.Background(), "p", nil)
	if resp.Model != "mock-model" {
		t.Errorf("default Model = %q", resp.Model)
	}
}

func TestMockClientConcurrentUse(t *testing.T) {
	c := NewClient(nil)
	responses := make([]string, 100)
	for i := range responses {
		responses[i] = "r"
	}
	c.SetResponses(responses...)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_, _ = c.GenerateResponse(context.Background(), "p", nil)
			}
		}()
	}
	wg.Wait()
	if c.Calls() != 100 {
		t.Errorf("Calls = %d, want 100", c.Calls())
	}
}
