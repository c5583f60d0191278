// Package pipeline runs a condition refresh end to end: extraction,
// pruning, quota, packing, model dispatch, validation, aggregation and
// persistence.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/claimsift/internal/aggregate"
	"github.com/ppiankov/claimsift/internal/batch"
	"github.com/ppiankov/claimsift/internal/extract"
	"github.com/ppiankov/claimsift/internal/llm"
	"github.com/ppiankov/claimsift/internal/metrics"
	"github.com/ppiankov/claimsift/internal/model"
	"github.com/ppiankov/claimsift/internal/prune"
	"github.com/ppiankov/claimsift/internal/rules"
	"github.com/ppiankov/claimsift/internal/store"
	"github.com/ppiankov/claimsift/internal/validate"
	"github.com/ppiankov/claimsift/internal/vocab"
	"github.com/ppiankov/claimsift/internal/worker"
)

// ErrNoProvider is returned by Refresh when no model provider is configured.
var ErrNoProvider = errors.New("no model provider configured")

// Pipeline orchestrates a refresh. It is safe to reuse across corpora.
type Pipeline struct {
	cfg       *model.Config
	resolver  *vocab.Resolver
	terms     []string
	tables    rules.Tables
	extractor *extract.Extractor
	packer    *batch.Packer
	provider  llm.Provider
	store     store.Store
	metrics   *metrics.Metrics
	logger    *zap.Logger
	newID     func() string
	now       func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithProvider sets the model provider used by Refresh.
func WithProvider(p llm.Provider) Option {
	return func(pl *Pipeline) { pl.provider = p }
}

// WithStore sets where Refresh persists claim sets. Without a store the
// claim set is only returned in the report.
func WithStore(s store.Store) Option {
	return func(pl *Pipeline) { pl.store = s }
}

// WithMetrics records stage counts and refresh outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(pl *Pipeline) { pl.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(pl *Pipeline) {
		if l != nil {
			pl.logger = l
		}
	}
}

// WithResolver overrides the drug group resolver.
func WithResolver(r *vocab.Resolver) Option {
	return func(pl *Pipeline) { pl.resolver = r }
}

// WithClock replaces the id generator and the clock.
func WithClock(newID func() string, now func() time.Time) Option {
	return func(pl *Pipeline) {
		pl.newID = newID
		pl.now = now
	}
}

// New builds a pipeline from cfg. Rule tables, drug terms and drug groups
// are read from the files named in cfg.Extraction when set.
func New(cfg *model.Config, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}

	p := &Pipeline{
		cfg:    cfg,
		logger: zap.NewNop(),
		newID:  uuid.NewString,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(p)
	}

	// Recency is measured against the run's own clock unless pinned
	if cfg.Scoring.ReferenceYear == 0 {
		resolved := *cfg
		resolved.Scoring.ReferenceYear = p.now().Year()
		cfg = &resolved
		p.cfg = cfg
	}

	if p.resolver == nil {
		p.resolver = vocab.DefaultResolver()
		if path := cfg.Extraction.DrugGroupsFile; path != "" {
			defs, err := vocab.LoadGroups(path)
			if err != nil {
				return nil, err
			}
			p.resolver = vocab.NewResolver(defs)
		}
	}

	tables, err := rules.LoadOrDefault(cfg.Extraction.RulesFile)
	if err != nil {
		return nil, err
	}

	terms := vocab.DefaultDrugTerms()
	if path := cfg.Extraction.DrugTermsFile; path != "" {
		if terms, err = vocab.LoadDrugTerms(path); err != nil {
			return nil, err
		}
	}

	p.terms = terms
	p.tables = tables
	p.extractor = extract.NewExtractor(terms, tables, p.resolver, cfg.Extraction, cfg.Scoring)
	p.packer = batch.NewPacker(cfg.Batching, p.resolver)
	return p, nil
}

// ExtractorFor returns an extractor over the pipeline's vocabulary with
// the window radius replaced. Non-positive values keep the configured one.
func (p *Pipeline) ExtractorFor(windowChars int) *extract.Extractor {
	if windowChars <= 0 {
		return p.extractor
	}
	ext := p.cfg.Extraction
	ext.WindowChars = windowChars
	return extract.NewExtractor(p.terms, p.tables, p.resolver, ext, p.cfg.Scoring)
}

// Prepared is the model-free part of a refresh.
type Prepared struct {
	Condition  batch.Condition
	MeshTerms  []string
	Signature  string
	Articles   int
	Candidates int
	Pruned     int
	Snippets   []model.Snippet
	Batches    []model.Batch
}

// Extract runs candidate finding, pruning, post-processing and quota
// allocation over the corpus. Batches are left empty.
func (p *Pipeline) Extract(ctx context.Context, corpus *model.Corpus) (*Prepared, error) {
	if corpus == nil {
		return nil, errors.New("corpus is nil")
	}
	label := strings.TrimSpace(corpus.Condition)
	if label == "" {
		return nil, errors.New("corpus has no condition")
	}

	mesh := vocab.NormalizeTerms(corpus.MeshTerms)
	sigTerms := mesh
	if len(sigTerms) == 0 {
		sigTerms = []string{label}
	}
	prep := &Prepared{
		Condition: batch.Condition{Label: label, Terms: vocab.ConditionTerms(label, mesh)},
		MeshTerms: mesh,
		Signature: vocab.MeshSignature(sigTerms),
		Articles:  len(corpus.Articles),
	}

	perArticle, err := worker.ExtractAll(ctx, p.extractor, corpus.Articles, prep.Condition.Terms, p.cfg.Concurrency.Workers)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	processors := prune.DefaultPostProcessors(p.cfg.Extraction.LimitPerDrug)
	var pruned []model.Snippet
	for _, windows := range perArticle {
		kept := prune.Windows(windows)
		prep.Candidates += len(windows)
		prep.Pruned += len(windows) - len(kept)
		pruned = append(pruned, prune.Chain(prune.Snippets(kept), processors...)...)
	}
	prep.Snippets = prune.Allocate(pruned, p.cfg.Quota)

	p.metrics.StageItems(label, "articles", prep.Articles)
	p.metrics.StageItems(label, "candidates", prep.Candidates)
	p.metrics.StageItems(label, "pruned", prep.Pruned)
	p.metrics.StageItems(label, "kept", len(prep.Snippets))

	p.logger.Debug("extraction finished",
		zap.String("condition", label),
		zap.Int("articles", prep.Articles),
		zap.Int("candidates", prep.Candidates),
		zap.Int("pruned", prep.Pruned),
		zap.Int("kept", len(prep.Snippets)))
	return prep, nil
}

// Prepare runs Extract and packs the kept snippets into batches.
func (p *Pipeline) Prepare(ctx context.Context, corpus *model.Corpus) (*Prepared, error) {
	prep, err := p.Extract(ctx, corpus)
	if err != nil {
		return nil, err
	}
	prep.Batches = p.packer.Pack(prep.Condition, prep.Snippets)
	p.metrics.StageItems(prep.Condition.Label, "batches", len(prep.Batches))
	return prep, nil
}

type batchResult struct {
	payload *validate.Payload
	resp    *llm.Response
}

// Refresh runs the whole pipeline and persists the claim set. Nothing is
// persisted when any batch fails or ctx is canceled.
func (p *Pipeline) Refresh(ctx context.Context, corpus *model.Corpus) (report *model.Report, err error) {
	start := time.Now()
	defer func() { p.metrics.ObserveRefresh(time.Since(start), err) }()

	if p.provider == nil {
		return nil, ErrNoProvider
	}

	prep, err := p.Prepare(ctx, corpus)
	if err != nil {
		return nil, err
	}

	results, err := p.dispatch(ctx, prep.Batches)
	if err != nil {
		return nil, err
	}

	// Fold in batch order so the result does not depend on completion order.
	agg := aggregate.New()
	for _, r := range results {
		agg.Add(r.payload)
	}
	merged := agg.Claims()
	claims := aggregate.Reduce(merged, p.resolver)

	set := &model.ClaimSet{
		ID:             p.newID(),
		ConditionLabel: prep.Condition.Label,
		MeshSignature:  prep.Signature,
		MeshTerms:      prep.MeshTerms,
		Claims:         claims,
		CreatedAt:      p.now(),
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.store != nil {
		if err := p.store.ReplaceClaimSet(ctx, set); err != nil {
			return nil, fmt.Errorf("persist claim set: %w", err)
		}
		p.metrics.ClaimsPersisted(len(set.Claims))
	}

	report = &model.Report{
		RunID:       p.newID(),
		Condition:   prep.Condition.Label,
		GeneratedAt: p.now(),
		ClaimSet:    set,
		Stats: model.RunStats{
			Articles:         prep.Articles,
			Candidates:       prep.Candidates,
			Pruned:           prep.Pruned,
			Kept:             len(prep.Snippets),
			Batches:          len(prep.Batches),
			ClaimsMerged:     len(merged),
			ClaimsSuppressed: len(merged) - len(claims),
		},
	}
	for i, b := range prep.Batches {
		bs := model.BatchStats{
			Index:         i,
			Snippets:      len(b.Snippets),
			ClaimGroups:   len(b.ClaimGroups),
			TokenEstimate: b.TokenEstimate,
			TokensUsed:    results[i].resp.TokensUsed,
			Model:         results[i].resp.Model,
			Cached:        results[i].resp.Cached,
		}
		report.Batches = append(report.Batches, bs)
		report.Stats.PromptTokens += bs.TokenEstimate
		report.Stats.TokensUsed += bs.TokensUsed
	}

	p.logger.Info("refresh finished",
		zap.String("condition", set.ConditionLabel),
		zap.String("signature", set.MeshSignature),
		zap.Int("batches", len(prep.Batches)),
		zap.Int("claims", len(set.Claims)),
		zap.Duration("elapsed", time.Since(start)))
	return report, nil
}

// dispatch sends every batch to the provider with bounded concurrency and
// validates each reply. Results are indexed by batch. The first failure
// cancels the remaining calls.
func (p *Pipeline) dispatch(ctx context.Context, batches []model.Batch) ([]batchResult, error) {
	results := make([]batchResult, len(batches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(p.cfg.Concurrency.Batches, 1))

	for i, b := range batches {
		g.Go(func() error {
			req := llm.Request{
				Messages:  b.Messages,
				Model:     p.cfg.LLM.Model,
				MaxTokens: p.cfg.LLM.MaxTokens,
				JSON:      true,
			}
			resp, err := p.provider.Complete(gctx, req)
			if err != nil {
				return fmt.Errorf("batch %d: %w", i, err)
			}

			payload, err := validate.ParsePayload([]byte(resp.Content))
			if err != nil {
				p.metrics.ValidationFailure(failureReason(err))
				p.logger.Warn("invalid model payload", zap.Int("batch", i), zap.Bool("cached", resp.Cached), zap.Error(err))
				// An invalid reply must not be served again on the next refresh
				if ferr := llm.Forget(p.provider, req); ferr != nil {
					p.logger.Warn("drop cached reply failed", zap.Int("batch", i), zap.Error(ferr))
				}
				return fmt.Errorf("batch %d: %w", i, err)
			}

			p.logger.Debug("batch complete",
				zap.Int("batch", i),
				zap.Int("snippets", len(b.Snippets)),
				zap.Int("claims", len(payload.Claims)),
				zap.Bool("cached", resp.Cached))
			results[i] = batchResult{payload: payload, resp: resp}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func failureReason(err error) string {
	if errors.Is(err, validate.ErrUnknownDrugID) {
		return "unknown_drug_id"
	}
	return "invalid_payload"
}
