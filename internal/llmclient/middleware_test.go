package llmclient

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

type stubClient struct {
	calls int
	raw   json.RawMessage
	err   error
}

func (s *stubClient) Name() string { return "stub" }
func (s *stubClient) Close() error { return nil }

func (s *stubClient) GenerateJSON(ctx context.Context, prompt string, input any, images ...Image) (json.RawMessage, error) {
	s.calls++
	return s.raw, s.err
}

type tagging struct {
	next Client
	tag  string
	seen *[]string
}

func (t *tagging) Name() string { return t.next.Name() }
func (t *tagging) Close() error { return t.next.Close() }

func (t *tagging) GenerateJSON(ctx context.Context, prompt string, input any, images ...Image) (json.RawMessage, error) {
	*t.seen = append(*t.seen, t.tag)
	return t.next.GenerateJSON(ctx, prompt, input, images...)
}

func TestChainOrder(t *testing.T) {
	var seen []string
	mk := func(tag string) Middleware {
		return func(next Client) Client {
			return &tagging{next: next, tag: tag, seen: &seen}
		}
	}
	c := Chain(&stubClient{raw: json.RawMessage(`{}`)}, mk("outer"), nil, mk("inner"))

	if _, err := c.GenerateJSON(context.Background(), "p", nil); err != nil {
		t.Fatalf("GenerateJSON: %v", err)
	}
	if len(seen) != 2 || seen[0] != "outer" || seen[1] != "inner" {
		t.Fatalf("order = %v", seen)
	}
}

func TestWithLoggingPassesThrough(t *testing.T) {
	stub := &stubClient{raw: json.RawMessage(`{"ok":true}`)}
	c := Chain(stub, WithLogging(nil))

	raw, err := c.GenerateJSON(context.Background(), "p", map[string]string{"k": "v"})
	if err != nil {
		t.Fatalf("GenerateJSON: %v", err)
	}
	if string(raw) != `{"ok":true}` {
		t.Fatalf("raw = %s", raw)
	}
	if c.Name() != "stub" {
		t.Fatalf("Name = %q", c.Name())
	}
}

func TestWithLoggingForwardsError(t *testing.T) {
	wantErr := errors.New("boom")
	c := Chain(&stubClient{err: wantErr}, WithLogging(nil))
	if _, err := c.GenerateJSON(context.Background(), "p", nil); !errors.Is(err, wantErr) {
		t.Fatalf("err = %v", err)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	stub := &stubClient{raw: json.RawMessage(`{}`)}
	c := Chain(stub, RateLimit(0, 0))
	defer c.Close()

	for i := 0; i < 10; i++ {
		if _, err := c.GenerateJSON(context.Background(), "p", nil); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if stub.calls != 10 {
		t.Fatalf("calls = %d", stub.calls)
	}
}

func TestRateLimitBurstThenBlocks(t *testing.T) {
	stub := &stubClient{raw: json.RawMessage(`{}`)}
	c := Chain(stub, RateLimit(1, 2))
	defer c.Close()

	// The burst capacity is pre-filled.
	for i := 0; i < 2; i++ {
		if _, err := c.GenerateJSON(context.Background(), "p", nil); err != nil {
			t.Fatalf("burst call %d: %v", i, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.GenerateJSON(ctx, "p", nil); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if stub.calls != 2 {
		t.Fatalf("calls = %d", stub.calls)
	}
}

func TestRateLimitRefills(t *testing.T) {
	stub := &stubClient{raw: json.RawMessage(`{}`)}
	c := Chain(stub, RateLimit(100, 1))
	defer c.Close()

	if _, err := c.GenerateJSON(context.Background(), "p", nil); err != nil {
		t.Fatalf("first call: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := c.GenerateJSON(ctx, "p", nil); err != nil {
		t.Fatalf("refilled call: %v", err)
	}
}
