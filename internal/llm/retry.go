package llm

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// retrySleepFunc waits between attempts. Tests replace it.
var retrySleepFunc = func(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type retryProvider struct {
	Provider
	attempts int
	backoff  time.Duration
	logger   *zap.Logger
}

// WithRetry repeats transient failures up to attempts times in total,
// waiting backoff times the attempt number between tries.
func WithRetry(p Provider, attempts int, backoff time.Duration, logger *zap.Logger) Provider {
	if attempts <= 1 {
		return p
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &retryProvider{Provider: p, attempts: attempts, backoff: backoff, logger: logger}
}

func (r *retryProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		resp, err := r.Provider.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !IsRetryable(err) || attempt == r.attempts || ctx.Err() != nil {
			break
		}

		wait := r.backoff * time.Duration(attempt)
		r.logger.Warn("model call failed, retrying",
			zap.String("provider", r.Name()),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))
		if err := retrySleepFunc(ctx, wait); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}
