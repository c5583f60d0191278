package extract

import (
	"slices"
	"strings"

	"github.com/ppiankov/claimsift/internal/model"
	"github.com/ppiankov/claimsift/internal/rules"
)

const tagSourceRule = "rule"

// Tagger labels a window independently of its classification.
type Tagger struct {
	tables rules.Tables
}

// NewTagger normalizes tables once for repeated use.
func NewTagger(tables rules.Tables) *Tagger {
	return &Tagger{tables: rules.Normalize(tables)}
}

// Tag returns every rule tag that fires on text. Negated risk cues are still
// tagged; negation only affects classification.
func (t *Tagger) Tag(text string) []model.Tag {
	lower := strings.ToLower(text)
	var tags []model.Tag

	for _, cue := range t.tables.RiskCues {
		if strings.Contains(lower, cue) {
			tags = append(tags, model.Tag{Kind: model.TagKindRisk, Label: cue, Confidence: 1.0, Source: tagSourceRule})
		}
	}
	for _, cue := range t.tables.SafetyCues {
		if strings.Contains(lower, cue) {
			tags = append(tags, model.Tag{Kind: model.TagKindSafety, Label: cue, Confidence: 1.0, Source: tagSourceRule})
		}
	}

	addOnce := func(kind model.TagKind, label string, confidence float64) {
		for _, existing := range tags {
			if existing.Kind == kind && existing.Label == label {
				return
			}
		}
		tags = append(tags, model.Tag{Kind: kind, Label: label, Confidence: confidence, Source: tagSourceRule})
	}

	for _, cue := range t.tables.SevereAlways {
		if !slices.Contains(t.tables.SevereIgnored, cue) && strings.Contains(lower, cue) {
			addOnce(model.TagKindSevereReaction, cue, 1.0)
		}
	}
	if rules.ContainsAny(lower, t.tables.SevereQualifiers) {
		for _, cue := range t.tables.SevereConditional {
			if !slices.Contains(t.tables.SevereIgnored, cue) && strings.Contains(lower, cue) {
				addOnce(model.TagKindSevereReaction, cue, 1.0)
			}
		}
	}

	for _, role := range t.tables.TherapyRoles {
		if rules.ContainsAny(lower, role.Terms) {
			addOnce(model.TagKindTherapyRole, role.Label, 0.9)
		}
	}
	for _, alert := range t.tables.MechanismAlerts {
		if rules.ContainsAny(lower, alert.Terms) {
			addOnce(model.TagKindMechanismAlert, alert.Label, 0.9)
		}
	}

	return tags
}
