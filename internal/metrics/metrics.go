// Package metrics exposes Prometheus collectors for refresh runs and
// model calls. A nil *Metrics is valid and records nothing.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "claimsift"

var latencyBuckets = []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120}

// Metrics holds every collector the pipeline records into.
type Metrics struct {
	registry *prometheus.Registry

	modelRequests *prometheus.CounterVec
	modelLatency  *prometheus.HistogramVec
	modelTokens   *prometheus.CounterVec
	cacheLookups  *prometheus.CounterVec
	stageItems    *prometheus.GaugeVec
	refreshes     *prometheus.CounterVec
	refreshTime   prometheus.Histogram
	invalid       *prometheus.CounterVec
	persisted     prometheus.Counter
}

// New registers the collectors on reg, or on a fresh registry when reg is
// nil.
func New(reg *prometheus.Registry) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: reg,
		modelRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_requests_total",
			Help:      "Model calls by provider and outcome.",
		}, []string{"provider", "outcome"}),
		modelLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_request_duration_seconds",
			Help:      "Model call latency in seconds.",
			Buckets:   latencyBuckets,
		}, []string{"provider"}),
		modelTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_tokens_total",
			Help:      "Tokens reported by the provider.",
		}, []string{"provider", "kind"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Response cache lookups by result.",
		}, []string{"result"}),
		stageItems: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_items",
			Help:      "Items produced by each pipeline stage in the last refresh.",
		}, []string{"condition", "stage"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refreshes_total",
			Help:      "Condition refreshes by outcome.",
		}, []string{"outcome"}),
		refreshTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Wall time of a condition refresh.",
			Buckets:   latencyBuckets,
		}),
		invalid: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payload_validation_failures_total",
			Help:      "Model responses rejected by the payload contract.",
		}, []string{"reason"}),
		persisted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "claims_persisted_total",
			Help:      "Aggregated claims written to the store.",
		}),
	}

	collectors := []prometheus.Collector{
		m.modelRequests, m.modelLatency, m.modelTokens, m.cacheLookups,
		m.stageItems, m.refreshes, m.refreshTime, m.invalid, m.persisted,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RegisterRuntime adds the Go and process collectors.
func (m *Metrics) RegisterRuntime() error {
	for _, c := range []prometheus.Collector{
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{Namespace: namespace}),
		prometheus.NewGoCollector(),
	} {
		if err := m.registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// ObserveModelCall records one model call.
func (m *Metrics) ObserveModelCall(provider string, elapsed time.Duration, promptTokens, completionTokens int, cached bool, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case cached:
		outcome = "cached"
	}
	m.modelRequests.WithLabelValues(provider, outcome).Inc()
	if err != nil || cached {
		return
	}
	m.modelLatency.WithLabelValues(provider).Observe(elapsed.Seconds())
	m.modelTokens.WithLabelValues(provider, "prompt").Add(float64(promptTokens))
	m.modelTokens.WithLabelValues(provider, "completion").Add(float64(completionTokens))
}

// CacheLookup records a response cache hit or miss.
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// StageItems sets the item count for one stage of a condition refresh.
func (m *Metrics) StageItems(condition, stage string, n int) {
	if m == nil {
		return
	}
	m.stageItems.WithLabelValues(condition, stage).Set(float64(n))
}

// ValidationFailure records a rejected model response. reason is a small
// fixed set such as "invalid_payload" or "unknown_drug_id".
func (m *Metrics) ValidationFailure(reason string) {
	if m == nil {
		return
	}
	m.invalid.WithLabelValues(reason).Inc()
}

// ClaimsPersisted counts claims written by a successful refresh.
func (m *Metrics) ClaimsPersisted(n int) {
	if m == nil {
		return
	}
	m.persisted.Add(float64(n))
}

// ObserveRefresh records a finished refresh.
func (m *Metrics) ObserveRefresh(elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		outcome = "canceled"
	case err != nil:
		outcome = "error"
	}
	m.refreshes.WithLabelValues(outcome).Inc()
	m.refreshTime.Observe(elapsed.Seconds())
}

// Serve exposes Handler on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
