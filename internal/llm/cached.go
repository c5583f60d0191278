package llm

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/claimsift/internal/cache"
	"github.com/ppiankov/claimsift/internal/metrics"
)

type cachedProvider struct {
	Provider
	cache   cache.Cache
	ttl     time.Duration
	model   string
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// CacheOptions configures WithCache.
type CacheOptions struct {
	TTL time.Duration

	// Model is the provider's configured model; it is part of the key
	// when the request does not name one.
	Model   string
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

// WithCache serves repeated requests from c. Only successful responses
// are stored.
func WithCache(p Provider, c cache.Cache, opts CacheOptions) Provider {
	if c == nil {
		return p
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &cachedProvider{
		Provider: p,
		cache:    c,
		ttl:      opts.TTL,
		model:    opts.Model,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
	}
}

// RequestKey is the cache key for req sent through the named provider.
func RequestKey(provider, defaultModel string, req Request) string {
	m := req.Model
	if m == "" {
		m = defaultModel
	}
	parts := []string{provider, m, strconv.Itoa(req.MaxTokens), strconv.FormatBool(req.JSON)}
	for _, msg := range req.Messages {
		parts = append(parts, msg.Role, msg.Content)
	}
	return cache.Key(parts...)
}

func (c *cachedProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	key := RequestKey(c.Name(), c.model, req)

	if data, ok := c.cache.Get(key); ok {
		var resp Response
		if err := json.Unmarshal(data, &resp); err == nil {
			c.metrics.CacheLookup(true)
			resp.Cached = true
			return &resp, nil
		}
		// Corrupt entry: drop it and fall through to the provider
		_ = c.cache.Delete(key)
	}

	c.metrics.CacheLookup(false)

	resp, err := c.Provider.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(resp)
	if err == nil {
		err = c.cache.Set(key, data, c.ttl)
	}
	if err != nil {
		c.logger.Warn("cache write failed", zap.String("provider", c.Name()), zap.Error(err))
	}
	return resp, nil
}

// Forget drops the stored response for req.
func (c *cachedProvider) Forget(req Request) error {
	return c.cache.Delete(RequestKey(c.Name(), c.model, req))
}

// Forgetter is implemented by providers that keep responses.
type Forgetter interface {
	Forget(req Request) error
}

// Forget drops the stored response for req when p keeps responses. Callers
// use it for replies that turned out to be unusable, so the next call
// reaches the model again.
func Forget(p Provider, req Request) error {
	if f, ok := p.(Forgetter); ok {
		return f.Forget(req)
	}
	return nil
}
