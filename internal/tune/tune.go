// Package tune grid-searches quota and window settings against an
// evaluation function.
package tune

import (
	"context"
	"fmt"
	"sort"

	"github.com/ppiankov/claimsift/internal/model"
	"github.com/ppiankov/claimsift/internal/prune"
	"github.com/ppiankov/claimsift/internal/vocab"
	"github.com/ppiankov/claimsift/internal/worker"
)

// Config is one point of the search grid.
type Config struct {
	WindowChars int               `json:"window_chars,omitempty" yaml:"window_chars,omitempty"` // 0 keeps the configured window
	Quota       model.QuotaConfig `json:"quota" yaml:"quota"`
}

// Result is the averaged evaluation of one Config.
type Result struct {
	Config   Config  `json:"config"`
	Score    float64 `json:"score"`
	Snippets float64 `json:"mean_snippets"` // Per article
}

// Evaluator scores the snippets kept for one article.
type Evaluator func(snippets []model.Snippet) float64

// GenerateQuotaGrid crosses bases with maxes on top of base, skipping
// pairs where max is below base.
func GenerateQuotaGrid(base model.QuotaConfig, bases, maxes []int) []Config {
	var out []Config
	for _, b := range bases {
		for _, m := range maxes {
			if m < b {
				continue
			}
			q := base
			q.BaseQuota = b
			q.MaxQuota = m
			out = append(out, Config{Quota: q})
		}
	}
	return out
}

// WithWindows crosses configs with window radii. No radii returns configs.
func WithWindows(configs []Config, windows []int) []Config {
	if len(windows) == 0 {
		return configs
	}
	out := make([]Config, 0, len(configs)*len(windows))
	for _, w := range windows {
		for _, c := range configs {
			c.WindowChars = w
			out = append(out, c)
		}
	}
	return out
}

// Searcher runs a grid search over one corpus.
type Searcher struct {
	// Extractor returns the extractor for a window radius.
	Extractor  func(windowChars int) worker.Extractor
	Processors []prune.PostProcessor
	Workers    int
}

// GridSearch evaluates every config over the corpus articles, averaging
// eval per article, and returns results by descending score. Ties keep
// grid order. Candidates are extracted once per distinct window radius.
func (s *Searcher) GridSearch(ctx context.Context, corpus *model.Corpus, configs []Config, eval Evaluator) ([]Result, error) {
	if len(configs) == 0 {
		return nil, nil
	}
	if eval == nil {
		eval = DefaultEvaluator
	}
	terms := vocab.ConditionTerms(corpus.Condition, corpus.MeshTerms)

	windowsBy := make(map[int][][]model.Window)
	results := make([]Result, 0, len(configs))
	for _, cfg := range configs {
		perArticle, ok := windowsBy[cfg.WindowChars]
		if !ok {
			var err error
			perArticle, err = worker.ExtractAll(ctx, s.Extractor(cfg.WindowChars), corpus.Articles, terms, s.Workers)
			if err != nil {
				return nil, fmt.Errorf("extract window %d: %w", cfg.WindowChars, err)
			}
			windowsBy[cfg.WindowChars] = perArticle
		}

		r := Result{Config: cfg}
		for _, windows := range perArticle {
			snippets := prune.Chain(prune.Snippets(prune.Windows(windows)), s.Processors...)
			kept := prune.Allocate(snippets, cfg.Quota)
			r.Score += eval(kept)
			r.Snippets += float64(len(kept))
		}
		if n := len(perArticle); n > 0 {
			r.Score /= float64(n)
			r.Snippets /= float64(n)
		}
		results = append(results, r)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results, nil
}

// DefaultEvaluator rewards covering both risk and safety, plus the mean
// snippet score. No snippets score zero.
func DefaultEvaluator(snippets []model.Snippet) float64 {
	if len(snippets) == 0 {
		return 0
	}
	var (
		total  float64
		risk   bool
		safety bool
	)
	for _, s := range snippets {
		total += s.Score
		switch s.Classification {
		case model.ClassificationRisk:
			risk = true
		case model.ClassificationSafety:
			safety = true
		}
	}
	coverage := 0.0
	if risk {
		coverage += 0.5
	}
	if safety {
		coverage += 0.5
	}
	return coverage + total/float64(len(snippets))
}
