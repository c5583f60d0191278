// Package aggregate merges validated claim payloads across batches into
// one canonical claim list.
package aggregate

import (
	"sort"
	"strings"

	"github.com/ppiankov/claimsift/internal/model"
	"github.com/ppiankov/claimsift/internal/validate"
)

// Aggregator folds payloads into claims keyed by classification, drug
// names and drug classes. Keys keep first-insertion order. Not safe for
// concurrent use; callers fold batch results in order.
type Aggregator struct {
	order   []string
	entries map[string]*entry
}

type entry struct {
	claim    model.AggregatedClaim
	evidence map[string]bool
	sources  map[string]bool
	articles map[string]bool
	severe   map[string]string // lowercase -> first spelling
}

// New returns an empty aggregator.
func New() *Aggregator {
	return &Aggregator{entries: make(map[string]*entry)}
}

// Key builds the merge key for a claim.
func Key(cls model.Classification, drugs, classes []string) string {
	return string(cls) + "|" + strings.Join(lowerSorted(drugs), ",") + "|" + strings.Join(lowerSorted(classes), ",")
}

// Add merges every claim of p.
func (a *Aggregator) Add(p *validate.Payload) {
	if p == nil {
		return
	}
	catalog := p.DrugByID()

	for _, c := range p.Claims {
		var names, classes []string
		for _, id := range c.Drugs {
			d, ok := catalog[id]
			if !ok {
				names = append(names, id)
				continue
			}
			name := d.Name
			if name == "" {
				name = d.ID
			}
			names = append(names, name)
			classes = append(classes, d.Classifications...)
		}
		names = uniqueFold(names)
		classes = uniqueFold(classes)

		key := Key(c.Type, names, classes)
		e, ok := a.entries[key]
		if !ok {
			e = &entry{
				claim: model.AggregatedClaim{
					ClaimID:        c.ID,
					Classification: c.Type,
					Summary:        c.Summary,
					Confidence:     c.Confidence,
					Drugs:          names,
					DrugClasses:    classes,
				},
				evidence: make(map[string]bool),
				sources:  make(map[string]bool),
				articles: make(map[string]bool),
				severe:   make(map[string]string),
			}
			a.entries[key] = e
			a.order = append(a.order, key)
		} else if c.Confidence.Rank() > e.claim.Confidence.Rank() {
			e.claim.ClaimID = c.ID
			e.claim.Summary = c.Summary
			e.claim.Confidence = c.Confidence
		}

		e.merge(c)
	}
}

func (e *entry) merge(c validate.Claim) {
	if !e.sources[c.ID] {
		e.sources[c.ID] = true
		e.claim.SourceClaimIDs = append(e.claim.SourceClaimIDs, c.ID)
	}

	for _, ev := range c.Evidence {
		if e.evidence[ev.SnippetID] {
			continue
		}
		e.evidence[ev.SnippetID] = true
		e.claim.Evidence = append(e.claim.Evidence, ev)
	}

	for _, art := range c.Articles {
		e.articles[art] = true
	}

	if c.IdiosyncraticReaction.Flag {
		e.claim.SevereReaction = true
	}
	for _, d := range c.IdiosyncraticReaction.Descriptors {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		if _, ok := e.severe[strings.ToLower(d)]; !ok {
			e.severe[strings.ToLower(d)] = d
		}
	}
}

// Claims returns the merged claims in first-insertion order.
func (a *Aggregator) Claims() []model.AggregatedClaim {
	out := make([]model.AggregatedClaim, 0, len(a.order))
	for _, key := range a.order {
		e := a.entries[key]
		c := e.claim

		c.Articles = make([]string, 0, len(e.articles))
		for art := range e.articles {
			c.Articles = append(c.Articles, art)
		}
		sort.Strings(c.Articles)

		lowered := make([]string, 0, len(e.severe))
		for k := range e.severe {
			lowered = append(lowered, k)
		}
		sort.Strings(lowered)
		c.SevereReactionTerms = nil
		for _, k := range lowered {
			c.SevereReactionTerms = append(c.SevereReactionTerms, e.severe[k])
		}

		out = append(out, c)
	}
	return out
}

// Len reports the number of distinct claims.
func (a *Aggregator) Len() int {
	return len(a.order)
}

// uniqueFold trims, drops blanks and case-insensitive duplicates, and
// sorts case-insensitively.
func uniqueFold(values []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[strings.ToLower(v)] {
			continue
		}
		seen[strings.ToLower(v)] = true
		out = append(out, v)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i]) < strings.ToLower(out[j])
	})
	return out
}

func lowerSorted(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
