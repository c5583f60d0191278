// Package score computes snippet relevance scores and per-article quotas.
// Every function here is pure: identical inputs give bit-identical outputs.
package score

import (
	"fmt"
	"math"
	"strings"

	"github.com/ppiankov/claimsift/internal/model"
)

// Input is everything the score depends on.
type Input struct {
	ArticleScore    float64
	Citations       int
	Classification  model.Classification
	CueCount        int
	ConditionMatch  bool // Window matches an alias, or matching was not required, or the class was inferred
	StudyTypes      []string
	PublicationYear int // 0 = unknown
	CohortSize      int // 0 = unknown
}

// Term is one additive component of a score.
type Term struct {
	Name    string  `json:"name"`
	Value   float64 `json:"value"`
	Formula string  `json:"formula"`
}

// Score returns the rounded sum of all terms.
func Score(in Input, cfg model.ScoringConfig) float64 {
	total, _ := Explain(in, cfg)
	return total
}

// Explain returns the rounded total and the terms that produced it.
// Terms that contribute nothing because metadata is missing are omitted.
func Explain(in Input, cfg model.ScoringConfig) (float64, []Term) {
	terms := []Term{
		articleTerm(in, cfg),
		citationTerm(in, cfg),
		classificationTerm(in, cfg),
		cueTerm(in, cfg),
		conditionTerm(in, cfg),
	}
	if t, ok := studyTypeTerm(in, cfg); ok {
		terms = append(terms, t)
	}
	if t, ok := recencyTerm(in, cfg); ok {
		terms = append(terms, t)
	}
	if t, ok := cohortTerm(in, cfg); ok {
		terms = append(terms, t)
	}

	var sum float64
	for _, t := range terms {
		sum += t.Value
	}
	return round4(sum), terms
}

func articleTerm(in Input, cfg model.ScoringConfig) Term {
	return Term{
		Name:    "article",
		Value:   in.ArticleScore * cfg.ArticleWeight,
		Formula: fmt.Sprintf("%.4g * %.4g", in.ArticleScore, cfg.ArticleWeight),
	}
}

func citationTerm(in Input, cfg model.ScoringConfig) Term {
	value := math.Min(float64(max(in.Citations, 0))*cfg.CitationWeight, cfg.CitationCap)
	return Term{
		Name:    "citations",
		Value:   value,
		Formula: fmt.Sprintf("min(%d * %.4g, %.4g)", in.Citations, cfg.CitationWeight, cfg.CitationCap),
	}
}

func classificationTerm(in Input, cfg model.ScoringConfig) Term {
	var value float64
	switch in.Classification {
	case model.ClassificationRisk:
		value = cfg.RiskBonus
	case model.ClassificationSafety:
		value = cfg.SafetyBonus
	}
	return Term{Name: "classification", Value: value, Formula: string(in.Classification)}
}

func cueTerm(in Input, cfg model.ScoringConfig) Term {
	return Term{
		Name:    "cues",
		Value:   float64(in.CueCount) * cfg.CueWeight,
		Formula: fmt.Sprintf("%d * %.4g", in.CueCount, cfg.CueWeight),
	}
}

func conditionTerm(in Input, cfg model.ScoringConfig) Term {
	if in.ConditionMatch {
		return Term{Name: "condition", Value: cfg.ConditionBonus, Formula: "match"}
	}
	return Term{Name: "condition", Value: cfg.ConditionPenalty, Formula: "no match"}
}

// studyTypeTerm applies the best weight among the listed study types.
func studyTypeTerm(in Input, cfg model.ScoringConfig) (Term, bool) {
	best, found := 0.0, false
	bestName := ""
	for _, raw := range in.StudyTypes {
		name := NormalizeStudyType(raw)
		w, ok := cfg.StudyTypeWeights[name]
		if !ok {
			continue
		}
		if !found || w > best {
			best, bestName, found = w, name, true
		}
	}
	if !found {
		return Term{}, false
	}
	return Term{Name: "study_type", Value: best, Formula: bestName}, true
}

var studyTypeAliases = map[string]string{
	"rct":                         "randomized_controlled_trial",
	"randomised_controlled_trial": "randomized_controlled_trial",
	"randomized_trial":            "randomized_controlled_trial",
	"controlled_clinical_trial":   "randomized_controlled_trial",
	"review_systematic":           "systematic_review",
	"metaanalysis":                "meta_analysis",
	"practice_guideline":          "guideline",
	"consensus_statement":         "guideline",
	"cohort":                      "observational",
	"cohort_study":                "observational",
	"case_control":                "observational",
	"cross_sectional":             "observational",
	"observational_study":         "observational",
	"case_reports":                "case_report",
	"case_series":                 "case_report",
	"letters":                     "letter",
	"comment":                     "letter",
	"editorial":                   "letter",
}

// NormalizeStudyType maps free-form publication types onto scoring keys.
func NormalizeStudyType(raw string) string {
	name := strings.ToLower(strings.TrimSpace(raw))
	name = strings.NewReplacer("-", "_", " ", "_").Replace(name)
	if alias, ok := studyTypeAliases[name]; ok {
		return alias
	}
	return name
}

func recencyTerm(in Input, cfg model.ScoringConfig) (Term, bool) {
	if in.PublicationYear <= 0 || cfg.ReferenceYear <= 0 || cfg.HalfLifeYears <= 0 {
		return Term{}, false
	}
	age := max(cfg.ReferenceYear-in.PublicationYear, 0)
	value := cfg.RecencyWeight * math.Pow(0.5, float64(age)/cfg.HalfLifeYears)
	formula := fmt.Sprintf("%.4g * 0.5^(%d/%.4g)", cfg.RecencyWeight, age, cfg.HalfLifeYears)
	if cfg.StaleAfterYears > 0 && age > cfg.StaleAfterYears {
		value += cfg.StalePenalty
		formula += fmt.Sprintf(" + %.4g (stale)", cfg.StalePenalty)
	}
	return Term{Name: "recency", Value: value, Formula: formula}, true
}

func cohortTerm(in Input, cfg model.ScoringConfig) (Term, bool) {
	if in.CohortSize <= 0 {
		return Term{}, false
	}
	minCohort := max(cfg.MinCohort, 1)
	if in.CohortSize < minCohort {
		return Term{
			Name:    "cohort",
			Value:   cfg.CohortPenalty,
			Formula: fmt.Sprintf("%d < %d", in.CohortSize, minCohort),
		}, true
	}
	value := cfg.CohortWeight * math.Log10(float64(in.CohortSize)/float64(minCohort))
	if cfg.CohortCap > 0 {
		value = math.Min(value, cfg.CohortCap)
	}
	return Term{
		Name:    "cohort",
		Value:   value,
		Formula: fmt.Sprintf("min(%.4g * log10(%d/%d), %.4g)", cfg.CohortWeight, in.CohortSize, minCohort, cfg.CohortCap),
	}, true
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
