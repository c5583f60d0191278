package prune

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/claimsift/internal/model"
)

func TestEnsureClassificationCoverage_Process(t *testing.T) {
	in := []model.Snippet{
		{ID: "1", Classification: model.ClassificationRisk, Score: 3.0},
		{ID: "2", Classification: model.ClassificationRisk, Score: 2.0},
		{ID: "3", Classification: model.ClassificationSafety, Score: 1.0},
	}

	got := NewEnsureClassificationCoverage().Process(in)
	require.Len(t, got, 3)
	assert.InDelta(t, 3.05, got[0].Score, 1e-9)
	assert.InDelta(t, 2.0, got[1].Score, 1e-9)
	assert.InDelta(t, 1.05, got[2].Score, 1e-9)

	assert.Equal(t, 3.0, in[0].Score, "input is not modified")
}

func TestEnsureClassificationCoverage_MissingClassification(t *testing.T) {
	in := []model.Snippet{{ID: "1", Classification: model.ClassificationRisk, Score: 1.0}}

	got := NewEnsureClassificationCoverage(model.ClassificationSafety).Process(in)
	assert.Equal(t, in, got)
}

func TestLimitPerDrug_Process(t *testing.T) {
	in := []model.Snippet{
		{ID: "1", Drug: "propofol", Score: 1.0},
		{ID: "2", Drug: "Propofol", Score: 3.0},
		{ID: "3", Drug: "ketamine", Score: 0.5},
		{ID: "4", Drug: "propofol", Score: 2.0},
	}

	got := (&LimitPerDrug{Max: 2}).Process(in)
	ids := make([]string, len(got))
	for i, s := range got {
		ids[i] = s.ID
	}
	assert.Equal(t, []string{"2", "3", "4"}, ids)
}

func TestLimitPerDrug_Disabled(t *testing.T) {
	in := []model.Snippet{{ID: "1", Drug: "propofol"}, {ID: "2", Drug: "propofol"}}
	assert.Equal(t, in, (&LimitPerDrug{}).Process(in))
}

func TestChain_DefaultPostProcessors(t *testing.T) {
	in := []model.Snippet{
		{ID: "1", Drug: "propofol", Classification: model.ClassificationSafety, Score: 1.0},
		{ID: "2", Drug: "propofol", Classification: model.ClassificationRisk, Score: 1.02},
	}

	got := Chain(in, DefaultPostProcessors(1)...)
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)
	assert.InDelta(t, 1.07, got[0].Score, 1e-9)

	assert.Len(t, DefaultPostProcessors(0), 1)
}
