package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ppiankov/claimsift/internal/cache"
	"github.com/ppiankov/claimsift/internal/llm"
	"github.com/ppiankov/claimsift/internal/metrics"
	"github.com/ppiankov/claimsift/internal/model"
	"github.com/ppiankov/claimsift/internal/pipeline"
	"github.com/ppiankov/claimsift/internal/store"
	"github.com/ppiankov/claimsift/internal/store/postgres"
)

// components holds everything a refresh needs. close releases them.
type components struct {
	pipeline *pipeline.Pipeline
	store    store.Store
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func (c *components) close() {
	if c.store != nil {
		c.store.Close()
	}
	_ = c.logger.Sync()
}

// buildComponents wires the pipeline from cfg. withModel adds the model
// provider and the store; commands that stop before dispatch skip them.
func buildComponents(ctx context.Context, cfg *model.Config, withModel bool) (*components, error) {
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	c := &components{logger: logger}

	opts := []pipeline.Option{pipeline.WithLogger(logger)}

	if cfg.Metrics.Enabled {
		m, err := metrics.New(nil)
		if err != nil {
			return nil, err
		}
		if err := m.RegisterRuntime(); err != nil {
			return nil, err
		}
		c.metrics = m
		opts = append(opts, pipeline.WithMetrics(m))
	}

	if withModel {
		if err := resolveAPIKey(cfg); err != nil {
			return nil, err
		}

		var responses cache.Cache
		if cfg.Cache.Enabled {
			responses = cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
		}
		provider, err := llm.NewFromConfig(cfg, responses, c.metrics, logger)
		if err != nil {
			return nil, fmt.Errorf("create model provider: %w", err)
		}
		if provider == nil {
			return nil, fmt.Errorf("no model provider configured (set llm.provider)")
		}
		opts = append(opts, pipeline.WithProvider(provider))

		s, err := openStore(ctx, cfg.Store)
		if err != nil {
			return nil, err
		}
		c.store = s
		opts = append(opts, pipeline.WithStore(s))
	}

	p, err := pipeline.New(cfg, opts...)
	if err != nil {
		c.close()
		return nil, err
	}
	c.pipeline = p
	return c, nil
}

// openStore opens the configured claim set store.
func openStore(ctx context.Context, cfg model.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return store.NewMemoryStore(), nil
	case "postgres", "postgresql":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("store.dsn is required for the postgres driver (set CLAIMSIFT_DATABASE_DSN)")
		}
		s, err := postgres.Open(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
