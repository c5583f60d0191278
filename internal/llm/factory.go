package llm

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/claimsift/internal/cache"
	"github.com/ppiankov/claimsift/internal/metrics"
	"github.com/ppiankov/claimsift/internal/model"
	"github.com/ppiankov/claimsift/internal/worker"
)

// NewProvider creates a new LLM provider based on configuration
func NewProvider(config Config) (Provider, error) {
	provider := strings.ToLower(config.Provider)

	switch provider {
	case "openai":
		return NewOpenAIProvider(config)

	case "anthropic", "claude":
		return NewAnthropicProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	case "":
		// No provider configured - return nil (LLM disabled)
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, anthropic, ollama)", config.Provider)
	}
}

// Stack bundles the optional wrappers applied by Wrap.
type Stack struct {
	Cache      cache.Cache
	CacheTTL   time.Duration
	Limiter    *worker.Limiter
	MaxRetries int
	Backoff    time.Duration
	Model      string
	Metrics    *metrics.Metrics
	Logger     *zap.Logger
}

// Wrap layers p as cache -> metrics -> retry -> limiter -> provider, so
// cache hits skip the limiter and each retry waits for a token.
func Wrap(p Provider, s Stack) Provider {
	if p == nil {
		return nil
	}
	p = WithLimiter(p, s.Limiter)
	p = WithRetry(p, s.MaxRetries, s.Backoff, s.Logger)
	p = WithMetrics(p, s.Metrics)
	return WithCache(p, s.Cache, CacheOptions{
		TTL:     s.CacheTTL,
		Model:   s.Model,
		Metrics: s.Metrics,
		Logger:  s.Logger,
	})
}

// NewFromConfig builds the provider named in cfg.LLM with the full
// wrapper stack.
func NewFromConfig(cfg *model.Config, c cache.Cache, m *metrics.Metrics, logger *zap.Logger) (Provider, error) {
	p, err := NewProvider(ConfigFromModel(cfg.LLM, logger))
	if err != nil || p == nil {
		return p, err
	}
	return Wrap(p, Stack{
		Cache:      c,
		CacheTTL:   cfg.Cache.DiskTTL,
		Limiter:    worker.NewLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst),
		MaxRetries: cfg.LLM.MaxRetries,
		Backoff:    cfg.LLM.Backoff,
		Model:      cfg.LLM.Model,
		Metrics:    m,
		Logger:     logger,
	}), nil
}
