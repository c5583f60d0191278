package llm

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/ppiankov/claimsift/internal/cache"
	"github.com/ppiankov/claimsift/internal/metrics"
	"github.com/ppiankov/claimsift/internal/model"
	"github.com/ppiankov/claimsift/internal/worker"
)

func init() {
	retrySleepFunc = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
}

// scriptedProvider returns errs in order, then succeeds.
type scriptedProvider struct {
	mu    sync.Mutex
	errs  []error
	calls int
}

func (p *scriptedProvider) Name() string                     { return "scripted" }
func (p *scriptedProvider) IsAvailable(context.Context) bool { return true }

func (p *scriptedProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.calls <= len(p.errs) {
		return nil, p.errs[p.calls-1]
	}
	return &Response{Content: "ok", Model: "m", PromptTokens: 3, CompletionTokens: 2, TokensUsed: 5}, nil
}

func rateLimited() error {
	return &StatusError{Provider: "scripted", StatusCode: http.StatusTooManyRequests, Message: "slow down"}
}

func TestWithRetry_RetriesTransient(t *testing.T) {
	inner := &scriptedProvider{errs: []error{rateLimited(), rateLimited()}}
	p := WithRetry(inner, 3, time.Millisecond, nil)

	resp, err := p.Complete(context.Background(), Request{})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if resp.Content != "ok" || inner.calls != 3 {
		t.Errorf("expected 3 calls, got %d", inner.calls)
	}
}

func TestWithRetry_GivesUp(t *testing.T) {
	inner := &scriptedProvider{errs: []error{rateLimited(), rateLimited(), rateLimited()}}
	p := WithRetry(inner, 2, time.Millisecond, nil)

	_, err := p.Complete(context.Background(), Request{})
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected last StatusError, got %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("expected 2 calls, got %d", inner.calls)
	}
}

func TestWithRetry_PermanentErrorNotRetried(t *testing.T) {
	inner := &scriptedProvider{errs: []error{&StatusError{Provider: "scripted", StatusCode: http.StatusUnauthorized}}}
	p := WithRetry(inner, 5, time.Millisecond, nil)

	if _, err := p.Complete(context.Background(), Request{}); err == nil {
		t.Fatal("expected error")
	}
	if inner.calls != 1 {
		t.Errorf("expected a single call, got %d", inner.calls)
	}
}

func TestWithRetry_CanceledContext(t *testing.T) {
	inner := &scriptedProvider{errs: []error{rateLimited(), rateLimited()}}
	p := WithRetry(inner, 3, time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Complete(ctx, Request{}); err == nil {
		t.Fatal("expected error on canceled context")
	}
	if inner.calls != 1 {
		t.Errorf("expected no retry after cancel, got %d calls", inner.calls)
	}
}

func TestWithCache_SecondCallServedFromCache(t *testing.T) {
	inner := &scriptedProvider{}
	m, err := metrics.New(nil)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	p := WithCache(inner, cache.NewMemoryCache(time.Minute, time.Minute), CacheOptions{TTL: time.Minute, Model: "m", Metrics: m})

	req := Request{Messages: []model.Message{{Role: model.RoleUser, Content: "hello"}}}
	first, err := p.Complete(context.Background(), req)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := p.Complete(context.Background(), req)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}

	if inner.calls != 1 {
		t.Errorf("expected one provider call, got %d", inner.calls)
	}
	if first.Cached || !second.Cached {
		t.Errorf("expected only second response to be cached: %v %v", first.Cached, second.Cached)
	}
	if second.Content != "ok" || second.TokensUsed != 5 {
		t.Errorf("cached response lost fields: %+v", second)
	}
}

func TestWithCache_ErrorsNotCached(t *testing.T) {
	inner := &scriptedProvider{errs: []error{errors.New("boom")}}
	p := WithCache(inner, cache.NewMemoryCache(time.Minute, time.Minute), CacheOptions{TTL: time.Minute})

	req := Request{Messages: []model.Message{{Role: model.RoleUser, Content: "hello"}}}
	if _, err := p.Complete(context.Background(), req); err == nil {
		t.Fatal("expected first call to fail")
	}
	if _, err := p.Complete(context.Background(), req); err != nil {
		t.Fatalf("second call should reach provider: %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("expected 2 provider calls, got %d", inner.calls)
	}
}

func TestWithCache_Forget(t *testing.T) {
	inner := &scriptedProvider{}
	p := WithCache(inner, cache.NewMemoryCache(time.Minute, time.Minute), CacheOptions{TTL: time.Minute})

	req := Request{Messages: []model.Message{{Role: model.RoleUser, Content: "hello"}}}
	if _, err := p.Complete(context.Background(), req); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if err := Forget(p, req); err != nil {
		t.Fatalf("forget: %v", err)
	}
	resp, err := p.Complete(context.Background(), req)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if inner.calls != 2 || resp.Cached {
		t.Errorf("expected forgotten request to reach provider: calls=%d cached=%v", inner.calls, resp.Cached)
	}

	if err := Forget(inner, req); err != nil {
		t.Errorf("forget on an uncached provider should be a no-op: %v", err)
	}
}

func TestRequestKey_DistinguishesContent(t *testing.T) {
	a := Request{Messages: []model.Message{{Role: model.RoleUser, Content: "a"}}}
	b := Request{Messages: []model.Message{{Role: model.RoleUser, Content: "b"}}}

	if RequestKey("openai", "m", a) == RequestKey("openai", "m", b) {
		t.Error("different content must give different keys")
	}
	if RequestKey("openai", "m", a) == RequestKey("ollama", "m", a) {
		t.Error("different providers must give different keys")
	}
	if RequestKey("openai", "m", a) == RequestKey("openai", "other", a) {
		t.Error("different models must give different keys")
	}
	if RequestKey("openai", "m", a) != RequestKey("openai", "m", a) {
		t.Error("keys must be stable")
	}
}

func TestWithLimiter_CanceledWait(t *testing.T) {
	inner := &scriptedProvider{}
	limiter := worker.NewLimiter(0.001, 1)
	p := WithLimiter(inner, limiter)

	if _, err := p.Complete(context.Background(), Request{}); err != nil {
		t.Fatalf("first call should pass: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := p.Complete(ctx, Request{}); err == nil {
		t.Fatal("expected limiter wait to fail")
	}
	if inner.calls != 1 {
		t.Errorf("expected one call, got %d", inner.calls)
	}
}

func TestWrap_NilProvider(t *testing.T) {
	if Wrap(nil, Stack{}) != nil {
		t.Error("expected nil")
	}
}
