package extract

import (
	"slices"
	"strings"

	"github.com/ppiankov/claimsift/internal/model"
	"github.com/ppiankov/claimsift/internal/rules"
)

// CueConditionMatch is the synthetic cue of a condition-only classification.
const CueConditionMatch = "condition-match"

// DefaultRoleRadius is the keyword search radius around a drug mention.
const DefaultRoleRadius = 80

// Verdict is the outcome of classifying one window.
type Verdict struct {
	Classification model.Classification
	Cues           []string
	Inferred       bool // Classified only because the window mentions the condition
}

// Classifier assigns risk or safety to a window from cue tables.
type Classifier struct {
	tables     rules.Tables
	roleRadius int
}

// NewClassifier normalizes tables once for repeated use.
func NewClassifier(tables rules.Tables, roleRadius int) *Classifier {
	if roleRadius <= 0 {
		roleRadius = DefaultRoleRadius
	}
	return &Classifier{tables: rules.Normalize(tables), roleRadius: roleRadius}
}

// Classify returns the verdict for text mentioning drug. conditionMatch says
// whether the window mentions a condition alias; it only matters when no cue
// fires. ok is false when the window should be dropped.
func (c *Classifier) Classify(text, drug string, roles []string, conditionMatch bool) (Verdict, bool) {
	lower := strings.ToLower(text)
	drug = strings.ToLower(drug)

	var riskHits, safetyHits []string
	for _, cue := range c.tables.RiskCues {
		if strings.Contains(lower, cue) && !c.tables.Negated(lower, cue) {
			riskHits = append(riskHits, cue)
		}
	}
	for _, cue := range c.tables.SafetyCues {
		if strings.Contains(lower, cue) {
			safetyHits = append(safetyHits, cue)
		}
	}

	alt := "alternative to " + drug
	if strings.Contains(lower, alt) && !slices.Contains(riskHits, alt) {
		riskHits = append(riskHits, alt)
	}

	var v Verdict
	switch {
	case len(riskHits) > 0 && len(safetyHits) > 0:
		v = Verdict{Classification: model.ClassificationRisk, Cues: append(riskHits, safetyHits...)}
	case len(riskHits) > 0:
		v = Verdict{Classification: model.ClassificationRisk, Cues: riskHits}
	case len(safetyHits) > 0:
		v = Verdict{Classification: model.ClassificationSafety, Cues: safetyHits}
	}

	if override, ok := c.therapyOverride(lower, drug, roles, safetyHits); ok {
		return override, true
	}
	if v.Classification != "" {
		return v, true
	}
	if conditionMatch {
		return Verdict{
			Classification: model.ClassificationRisk,
			Cues:           []string{CueConditionMatch},
			Inferred:       true,
		}, true
	}
	return Verdict{}, false
}

// therapyOverride forces safety when the drug's normal therapeutic role is
// being described: condition mentioned, no exclusion phrase, and a role
// keyword near the drug.
func (c *Classifier) therapyOverride(lower, drug string, roles, safetyHits []string) (Verdict, bool) {
	for _, role := range roles {
		o, ok := c.tables.Override(role)
		if !ok {
			continue
		}
		if len(o.ConditionTerms) > 0 && !rules.ContainsAny(lower, o.ConditionTerms) {
			continue
		}
		if rules.ContainsAny(lower, o.Exclusions) {
			continue
		}
		if !keywordNear(lower, drug, o.Keywords, c.roleRadius) {
			continue
		}

		cues := dedupe(append(slices.Clone(safetyHits), "therapy-role:"+role))
		return Verdict{Classification: model.ClassificationSafety, Cues: cues}, true
	}
	return Verdict{}, false
}

// keywordNear reports whether any keyword appears within radius bytes of an
// occurrence of drug in lower.
func keywordNear(lower, drug string, keywords []string, radius int) bool {
	if len(keywords) == 0 || drug == "" {
		return false
	}
	start := 0
	for {
		idx := strings.Index(lower[start:], drug)
		if idx < 0 {
			return false
		}
		idx += start
		from := max(0, idx-radius)
		to := min(len(lower), idx+len(drug)+radius)
		if rules.ContainsAny(lower[from:to], keywords) {
			return true
		}
		start = idx + len(drug)
	}
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := values[:0]
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
