package prune

import (
	"math"
	"sort"
	"strings"

	"github.com/ppiankov/claimsift/internal/model"
)

// CoverageBoost is added to the best snippet of each required classification.
const CoverageBoost = 0.05

// PostProcessor adjusts the pruned snippets of one article before quota.
// Implementations return a new slice and leave the input untouched.
type PostProcessor interface {
	Process(snippets []model.Snippet) []model.Snippet
}

// EnsureClassificationCoverage nudges the top snippet of every required
// classification so a lone safety or risk snippet survives quota ties.
type EnsureClassificationCoverage struct {
	Required []model.Classification
	Boost    float64
}

// NewEnsureClassificationCoverage defaults to risk and safety.
func NewEnsureClassificationCoverage(required ...model.Classification) *EnsureClassificationCoverage {
	if len(required) == 0 {
		required = []model.Classification{model.ClassificationRisk, model.ClassificationSafety}
	}
	return &EnsureClassificationCoverage{Required: required, Boost: CoverageBoost}
}

// Process implements PostProcessor.
func (p *EnsureClassificationCoverage) Process(snippets []model.Snippet) []model.Snippet {
	if len(snippets) == 0 {
		return snippets
	}
	out := make([]model.Snippet, len(snippets))
	copy(out, snippets)

	boosted := make(map[int]bool)
	for _, cls := range p.Required {
		best := -1
		for i, s := range out {
			if s.Classification != cls {
				continue
			}
			if best < 0 || s.Score > out[best].Score {
				best = i
			}
		}
		if best < 0 || boosted[best] {
			continue
		}
		boosted[best] = true
		out[best].Score = math.Round((out[best].Score+p.Boost)*1e4) / 1e4
	}
	return out
}

// LimitPerDrug keeps at most Max snippets per drug term, highest score
// first. Survivors keep their input order. Max <= 0 disables the limit.
type LimitPerDrug struct {
	Max int
}

// Process implements PostProcessor.
func (p *LimitPerDrug) Process(snippets []model.Snippet) []model.Snippet {
	if p.Max <= 0 || len(snippets) == 0 {
		return snippets
	}

	idx := make([]int, len(snippets))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return snippets[idx[a]].Score > snippets[idx[b]].Score
	})

	keep := make([]bool, len(snippets))
	counts := make(map[string]int)
	for _, i := range idx {
		drug := strings.ToLower(snippets[i].Drug)
		if counts[drug] < p.Max {
			counts[drug]++
			keep[i] = true
		}
	}

	out := make([]model.Snippet, 0, len(snippets))
	for i, s := range snippets {
		if keep[i] {
			out = append(out, s)
		}
	}
	return out
}

// Chain runs processors in order.
func Chain(snippets []model.Snippet, processors ...PostProcessor) []model.Snippet {
	for _, p := range processors {
		snippets = p.Process(snippets)
	}
	return snippets
}

// DefaultPostProcessors returns the processors a refresh applies.
func DefaultPostProcessors(limitPerDrug int) []PostProcessor {
	processors := []PostProcessor{NewEnsureClassificationCoverage()}
	if limitPerDrug > 0 {
		processors = append(processors, &LimitPerDrug{Max: limitPerDrug})
	}
	return processors
}
