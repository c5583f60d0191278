package llm

import (
	"context"

	"github.com/ppiankov/claimsift/internal/worker"
)

type limitedProvider struct {
	Provider
	limiter *worker.Limiter
}

// WithLimiter throttles calls using the provider name as the limiter key.
func WithLimiter(p Provider, l *worker.Limiter) Provider {
	if l == nil {
		return p
	}
	return &limitedProvider{Provider: p, limiter: l}
}

func (l *limitedProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	if err := l.limiter.Wait(ctx, l.Name()); err != nil {
		return nil, err
	}
	return l.Provider.Complete(ctx, req)
}
