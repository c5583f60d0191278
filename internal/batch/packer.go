package batch

import (
	"github.com/ppiankov/claimsift/internal/group"
	"github.com/ppiankov/claimsift/internal/model"
	"github.com/ppiankov/claimsift/internal/vocab"
)

// Packer splits snippets into batches under a token budget and a
// per-batch snippet cap. It never drops a snippet it was given after
// reprioritization.
type Packer struct {
	cfg      model.BatchingConfig
	resolver *vocab.Resolver
	grouper  *group.Grouper
	renderer *Renderer
	estimate Estimator
}

// Option configures a Packer.
type Option func(*Packer)

// WithEstimator replaces the word-count estimator.
func WithEstimator(e Estimator) Option {
	return func(p *Packer) {
		p.estimate = e
	}
}

// NewPacker creates a packer. Non-positive limits fall back to one.
func NewPacker(cfg model.BatchingConfig, resolver *vocab.Resolver, opts ...Option) *Packer {
	if resolver == nil {
		resolver = vocab.DefaultResolver()
	}
	cfg.MaxPromptTokens = max(cfg.MaxPromptTokens, 1)
	cfg.MaxSnippets = max(cfg.MaxSnippets, 1)

	p := &Packer{
		cfg:      cfg,
		resolver: resolver,
		grouper:  group.New(resolver),
		renderer: NewRenderer(cfg.SystemPrompt),
		estimate: WordEstimator(cfg),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Pack returns the batches for snippets. Empty input yields nil.
func (p *Packer) Pack(cond Condition, snippets []model.Snippet) []model.Batch {
	if len(snippets) == 0 {
		return nil
	}

	ordered := Interleave(p.Reprioritize(snippets))

	if len(ordered) <= p.cfg.MaxSnippets {
		if single := p.build(cond, ordered); single.TokenEstimate <= p.cfg.MaxPromptTokens {
			return []model.Batch{single}
		}
	}

	var (
		batches []model.Batch
		current []model.Snippet
	)
	for _, s := range ordered {
		if len(current) == 0 {
			current = []model.Snippet{s}
			continue
		}
		next := append(append([]model.Snippet(nil), current...), s)
		if len(next) > p.cfg.MaxSnippets || p.build(cond, next).TokenEstimate > p.cfg.MaxPromptTokens {
			batches = append(batches, p.build(cond, current))
			current = []model.Snippet{s}
			continue
		}
		current = next
	}
	if len(current) > 0 {
		batches = append(batches, p.build(cond, current))
	}
	return batches
}

// Reprioritize drops generic-class snippets from every classification
// that also holds snippets for specific agents. If that would leave
// nothing to group, the input is returned unchanged.
func (p *Packer) Reprioritize(snippets []model.Snippet) []model.Snippet {
	generic := make([]bool, len(snippets))
	specific := make(map[model.Classification]bool)
	for i, s := range snippets {
		generic[i] = p.resolver.IsGeneric(s.Drug)
		if !generic[i] {
			specific[s.Classification] = true
		}
	}

	var kept []model.Snippet
	dropped := false
	for i, s := range snippets {
		if generic[i] && specific[s.Classification] {
			dropped = true
			continue
		}
		kept = append(kept, s)
	}
	if !dropped {
		return snippets
	}
	if len(p.grouper.Group(kept)) == 0 {
		return snippets
	}
	return kept
}

// Interleave alternates risk and safety snippets, starting with the
// classification holding the higher top score. Other classifications
// follow unchanged. Relative order within each classification is kept.
func Interleave(snippets []model.Snippet) []model.Snippet {
	var risk, safety, rest []model.Snippet
	for _, s := range snippets {
		switch s.Classification {
		case model.ClassificationRisk:
			risk = append(risk, s)
		case model.ClassificationSafety:
			safety = append(safety, s)
		default:
			rest = append(rest, s)
		}
	}
	if len(risk) == 0 || len(safety) == 0 {
		return snippets
	}

	first, second := risk, safety
	if topScore(safety) > topScore(risk) {
		first, second = safety, risk
	}

	out := make([]model.Snippet, 0, len(snippets))
	for i := 0; i < len(first) || i < len(second); i++ {
		if i < len(first) {
			out = append(out, first[i])
		}
		if i < len(second) {
			out = append(out, second[i])
		}
	}
	return append(out, rest...)
}

func (p *Packer) build(cond Condition, snippets []model.Snippet) model.Batch {
	batch := model.Batch{
		Snippets:    append([]model.Snippet(nil), snippets...),
		ClaimGroups: p.grouper.Group(snippets),
	}
	batch.Messages = p.renderer.Messages(cond, batch.Snippets, batch.ClaimGroups)
	batch.TokenEstimate = p.estimate(batch.Messages, len(batch.Snippets))
	return batch
}

func topScore(snippets []model.Snippet) float64 {
	top := snippets[0].Score
	for _, s := range snippets[1:] {
		top = max(top, s.Score)
	}
	return top
}
