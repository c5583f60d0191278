package score

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ppiankov/claimsift/internal/model"
)

func TestScore_ReferenceLiteral(t *testing.T) {
	cfg := model.DefaultScoringConfig()
	in := Input{
		ArticleScore:   4.0,
		Citations:      40,
		Classification: model.ClassificationRisk,
		CueCount:       3,
		ConditionMatch: true,
	}

	// 4.0 + min(40/40, 2.0) + 0.5 + 3*0.1 + 0.4
	assert.Equal(t, 6.2, Score(in, cfg))
}

func TestScore_SafetyWithoutConditionMatch(t *testing.T) {
	cfg := model.DefaultScoringConfig()
	in := Input{
		ArticleScore:   2.0,
		Citations:      5,
		Classification: model.ClassificationSafety,
		CueCount:       1,
	}

	// 2.0 + 5/40 + 0.3 + 0.1 - 0.2
	assert.Equal(t, 2.325, Score(in, cfg))
}

func TestScore_CitationCap(t *testing.T) {
	cfg := model.DefaultScoringConfig()
	low := Score(Input{Citations: 80, Classification: model.ClassificationRisk, ConditionMatch: true}, cfg)
	high := Score(Input{Citations: 4000, Classification: model.ClassificationRisk, ConditionMatch: true}, cfg)
	assert.Equal(t, low, high)
	assert.Equal(t, 2.9, high)
}

func TestScore_Deterministic(t *testing.T) {
	cfg := model.DefaultScoringConfig()
	cfg.ReferenceYear = 2025
	in := Input{
		ArticleScore:    3.3,
		Citations:       17,
		Classification:  model.ClassificationSafety,
		CueCount:        2,
		ConditionMatch:  true,
		StudyTypes:      []string{"Case Report", "Randomized Controlled Trial"},
		PublicationYear: 2011,
		CohortSize:      250,
	}

	first := Score(in, cfg)
	second := Score(in, cfg)
	assert.Equal(t, math.Float64bits(first), math.Float64bits(second))
}

func TestScore_StudyTypes(t *testing.T) {
	cfg := model.DefaultScoringConfig()
	base := Input{Classification: model.ClassificationRisk, ConditionMatch: true}
	baseline := Score(base, cfg)

	tests := []struct {
		name  string
		types []string
		want  float64
	}{
		{"rct", []string{"RCT"}, 0.6},
		{"systematic review", []string{"systematic-review"}, 0.45},
		{"guideline", []string{"Practice Guideline"}, 0.3},
		{"observational", []string{"cohort study"}, 0.15},
		{"case report only", []string{"Case Reports"}, -0.2},
		{"best type wins", []string{"letter", "guideline"}, 0.3},
		{"unknown type", []string{"unclassified"}, 0},
		{"none", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base
			in.StudyTypes = tt.types
			assert.InDelta(t, baseline+tt.want, Score(in, cfg), 1e-9)
		})
	}
}

func TestScore_Recency(t *testing.T) {
	cfg := model.DefaultScoringConfig()
	in := Input{Classification: model.ClassificationRisk, ConditionMatch: true, PublicationYear: 2015}

	// Without a reference year the term is neutral.
	neutral := Score(in, cfg)
	assert.Equal(t, 0.9, neutral)

	cfg.ReferenceYear = 2025
	// One half-life: 0.5 * 0.5
	assert.InDelta(t, 0.9+0.25, Score(in, cfg), 1e-9)

	in.PublicationYear = 2025
	assert.InDelta(t, 0.9+0.5, Score(in, cfg), 1e-9)

	// 20 years: 0.5 * 0.25 - 0.3 stale penalty
	in.PublicationYear = 2005
	assert.InDelta(t, 0.9+0.125-0.3, Score(in, cfg), 1e-9)

	// Publication after the reference year counts as age zero.
	in.PublicationYear = 2030
	assert.InDelta(t, 0.9+0.5, Score(in, cfg), 1e-9)
}

func TestScore_Cohort(t *testing.T) {
	cfg := model.DefaultScoringConfig()
	base := Input{Classification: model.ClassificationRisk, ConditionMatch: true}

	tests := []struct {
		name   string
		cohort int
		delta  float64
	}{
		{"unknown", 0, 0},
		{"below minimum", 12, -0.2},
		{"at minimum", 20, 0},
		{"ten times minimum", 200, 0.2},
		{"capped", 2_000_000, 0.4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base
			in.CohortSize = tt.cohort
			assert.InDelta(t, 0.9+tt.delta, Score(in, cfg), 1e-9)
		})
	}
}

func TestExplain_TermsSumToScore(t *testing.T) {
	cfg := model.DefaultScoringConfig()
	cfg.ReferenceYear = 2024
	in := Input{
		ArticleScore:    1.5,
		Citations:       12,
		Classification:  model.ClassificationRisk,
		CueCount:        4,
		StudyTypes:      []string{"meta-analysis"},
		PublicationYear: 2020,
		CohortSize:      45,
	}

	total, terms := Explain(in, cfg)
	var sum float64
	names := make([]string, 0, len(terms))
	for _, term := range terms {
		sum += term.Value
		names = append(names, term.Name)
		assert.NotEmpty(t, term.Formula)
	}
	assert.InDelta(t, sum, total, 1e-4)
	assert.Equal(t, []string{"article", "citations", "classification", "cues", "condition", "study_type", "recency", "cohort"}, names)
}

func TestNormalizeStudyType(t *testing.T) {
	assert.Equal(t, "randomized_controlled_trial", NormalizeStudyType("Randomised Controlled Trial"))
	assert.Equal(t, "meta_analysis", NormalizeStudyType("Meta-Analysis"))
	assert.Equal(t, "case_report", NormalizeStudyType("case series"))
}
