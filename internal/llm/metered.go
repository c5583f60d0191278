package llm

import (
	"context"
	"time"

	"github.com/ppiankov/claimsift/internal/metrics"
)

type meteredProvider struct {
	Provider
	metrics *metrics.Metrics
}

// WithMetrics records latency, token usage and outcome of every call.
func WithMetrics(p Provider, m *metrics.Metrics) Provider {
	if m == nil {
		return p
	}
	return &meteredProvider{Provider: p, metrics: m}
}

func (m *meteredProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := m.Provider.Complete(ctx, req)
	if err != nil {
		m.metrics.ObserveModelCall(m.Name(), time.Since(start), 0, 0, false, err)
		return nil, err
	}
	m.metrics.ObserveModelCall(m.Name(), time.Since(start), resp.PromptTokens, resp.CompletionTokens, resp.Cached, nil)
	return resp, nil
}
