// Package group clusters snippets into claim groups for prompting.
package group

import (
	"slices"
	"sort"
	"strings"

	"github.com/ppiankov/claimsift/internal/model"
	"github.com/ppiankov/claimsift/internal/rules"
	"github.com/ppiankov/claimsift/internal/vocab"
)

// Grouper buckets snippets by classification and canonical drug group.
type Grouper struct {
	resolver *vocab.Resolver
}

// New creates a grouper backed by resolver.
func New(resolver *vocab.Resolver) *Grouper {
	if resolver == nil {
		resolver = vocab.DefaultResolver()
	}
	return &Grouper{resolver: resolver}
}

type bucket struct {
	group   model.ClaimGroup
	terms   map[string]bool
	classes map[string]bool
}

// Group returns claim groups sorted by top score descending, then
// classification, then label. Only risk and safety snippets with a drug
// are grouped; anything else is skipped.
func (g *Grouper) Group(snippets []model.Snippet) []model.ClaimGroup {
	if len(snippets) == 0 {
		return nil
	}

	buckets := make(map[string]*bucket)
	var order []string

	for _, s := range snippets {
		drug := strings.TrimSpace(s.Drug)
		if drug == "" {
			continue
		}
		if s.Classification != model.ClassificationRisk && s.Classification != model.ClassificationSafety {
			continue
		}

		resolved := g.resolver.Resolve(drug)
		key := string(s.Classification) + ":" + resolved.Key

		b, ok := buckets[key]
		if !ok {
			b = &bucket{
				group: model.ClaimGroup{
					Key:            key,
					Classification: s.Classification,
					DrugLabel:      resolved.Label,
					TopScore:       s.Score,
				},
				terms:   make(map[string]bool),
				classes: make(map[string]bool),
			}
			buckets[key] = b
			order = append(order, key)
		}

		b.terms[drug] = true
		for _, c := range resolved.Classes {
			b.classes[c] = true
		}
		for _, r := range resolved.Roles {
			b.classes[r] = true
		}
		b.group.Snippets = append(b.group.Snippets, s)
		if s.Score > b.group.TopScore {
			b.group.TopScore = s.Score
		}
	}

	groups := make([]model.ClaimGroup, 0, len(order))
	for _, key := range order {
		b := buckets[key]
		cg := b.group

		sort.SliceStable(cg.Snippets, func(i, j int) bool {
			return cg.Snippets[i].Score > cg.Snippets[j].Score
		})

		cg.DrugTerms = keys(b.terms)
		sort.SliceStable(cg.DrugTerms, func(i, j int) bool {
			return strings.ToLower(cg.DrugTerms[i]) < strings.ToLower(cg.DrugTerms[j])
		})

		cg.DrugClasses = keys(b.classes)
		sort.Strings(cg.DrugClasses)
		cg.Generic = slices.Contains(cg.DrugClasses, rules.RoleGenericClass)

		groups = append(groups, cg)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i], groups[j]
		if a.TopScore != b.TopScore {
			return a.TopScore > b.TopScore
		}
		if a.Classification != b.Classification {
			return a.Classification < b.Classification
		}
		return strings.ToLower(a.DrugLabel) < strings.ToLower(b.DrugLabel)
	})
	return groups
}

func keys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
