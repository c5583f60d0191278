package batch

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/claimsift/internal/model"
)

var testCondition = Condition{Label: "Malignant hyperthermia", Terms: []string{"malignant hyperthermia", "hyperthermia, malignant"}}

func snippet(id, drug string, cls model.Classification, score float64, words int) model.Snippet {
	return model.Snippet{
		ID:             id,
		ArticleID:      strings.SplitN(id, "-", 2)[0],
		ArticleTitle:   "Title " + id,
		CitationURL:    "https://pubmed.ncbi.nlm.nih.gov/1/",
		Drug:           drug,
		Classification: cls,
		Score:          score,
		Cues:           []string{"risk"},
		Text:           strings.TrimSpace(strings.Repeat("word ", words)),
	}
}

func ids(snippets []model.Snippet) []string {
	out := make([]string, len(snippets))
	for i, s := range snippets {
		out[i] = s.ID
	}
	return out
}

func TestPacker_Pack_Empty(t *testing.T) {
	p := NewPacker(model.DefaultConfig().Batching, nil)
	assert.Nil(t, p.Pack(testCondition, nil))
}

func TestPacker_Pack_SingleBatch(t *testing.T) {
	p := NewPacker(model.DefaultConfig().Batching, nil)
	in := []model.Snippet{
		snippet("1-s1", "succinylcholine", model.ClassificationRisk, 6.2, 20),
		snippet("1-s2", "propofol", model.ClassificationSafety, 5.0, 20),
	}

	batches := p.Pack(testCondition, in)
	require.Len(t, batches, 1)
	b := batches[0]
	assert.Equal(t, []string{"1-s1", "1-s2"}, ids(b.Snippets))
	require.Len(t, b.ClaimGroups, 2)
	assert.LessOrEqual(t, b.TokenEstimate, 1800)

	require.Len(t, b.Messages, 2)
	assert.Equal(t, model.RoleSystem, b.Messages[0].Role)
	assert.Equal(t, DefaultSystemPrompt, b.Messages[0].Content)
	user := b.Messages[1].Content
	assert.Contains(t, user, "claim_group_id: risk:depolarising-neuromuscular-blockers")
	assert.Contains(t, user, "claim_group_id: safety:propofol")
	assert.True(t, strings.HasSuffix(user, "Return only JSON."))
}

func TestPacker_Pack_NeverDropsSnippets(t *testing.T) {
	cfg := model.DefaultConfig().Batching
	cfg.MaxSnippets = 3
	p := NewPacker(cfg, nil)

	var in []model.Snippet
	for i := range 11 {
		cls := model.ClassificationRisk
		if i%3 == 0 {
			cls = model.ClassificationSafety
		}
		in = append(in, snippet(fmt.Sprintf("%d-s1", i+1), "ketamine", cls, float64(20-i), 60+i*10))
	}

	batches := p.Pack(testCondition, in)
	require.Greater(t, len(batches), 1)

	seen := make(map[string]int)
	for _, b := range batches {
		assert.LessOrEqual(t, len(b.Snippets), cfg.MaxSnippets)
		if len(b.Snippets) > 1 {
			assert.LessOrEqual(t, b.TokenEstimate, cfg.MaxPromptTokens)
		}
		for _, s := range b.Snippets {
			seen[s.ID]++
		}
	}
	require.Len(t, seen, len(in))
	for id, n := range seen {
		assert.Equal(t, 1, n, id)
	}
}

func TestPacker_Pack_OversizedSnippetAlone(t *testing.T) {
	p := NewPacker(model.DefaultConfig().Batching, nil)
	in := []model.Snippet{
		snippet("1-s1", "propofol", model.ClassificationRisk, 3.0, 20),
		snippet("2-s1", "ketamine", model.ClassificationRisk, 2.0, 2500),
		snippet("3-s1", "atropine", model.ClassificationRisk, 1.0, 20),
	}

	batches := p.Pack(testCondition, in)
	require.Len(t, batches, 3)
	assert.Equal(t, []string{"2-s1"}, ids(batches[1].Snippets))
	assert.Greater(t, batches[1].TokenEstimate, 1800)
}

func TestPacker_Pack_ClaimGroupsPerBatch(t *testing.T) {
	cfg := model.DefaultConfig().Batching
	cfg.MaxSnippets = 1
	p := NewPacker(cfg, nil)

	batches := p.Pack(testCondition, []model.Snippet{
		snippet("1-s1", "propofol", model.ClassificationSafety, 2.0, 10),
		snippet("1-s2", "sevoflurane", model.ClassificationRisk, 1.0, 10),
	})
	require.Len(t, batches, 2)
	for _, b := range batches {
		require.Len(t, b.ClaimGroups, 1)
		assert.Equal(t, b.Snippets[0].ID, b.ClaimGroups[0].Snippets[0].ID)
	}
}

func TestPacker_Pack_CustomEstimator(t *testing.T) {
	perSnippet := func(_ []model.Message, n int) int { return n * 100 }
	cfg := model.DefaultConfig().Batching
	cfg.MaxPromptTokens = 250
	p := NewPacker(cfg, nil, WithEstimator(perSnippet))

	var in []model.Snippet
	for i := range 5 {
		in = append(in, snippet(fmt.Sprintf("%d-s1", i+1), "propofol", model.ClassificationRisk, 1.0, 5))
	}
	batches := p.Pack(testCondition, in)
	require.Len(t, batches, 3)
	assert.Equal(t, []int{2, 2, 1}, []int{len(batches[0].Snippets), len(batches[1].Snippets), len(batches[2].Snippets)})
}

func TestPacker_Reprioritize(t *testing.T) {
	p := NewPacker(model.DefaultConfig().Batching, nil)

	in := []model.Snippet{
		snippet("1-s1", "muscle relaxants", model.ClassificationRisk, 3.0, 5),
		snippet("1-s2", "succinylcholine", model.ClassificationRisk, 2.0, 5),
		snippet("1-s3", "volatile agents", model.ClassificationSafety, 1.0, 5),
	}
	assert.Equal(t, []string{"1-s2", "1-s3"}, ids(p.Reprioritize(in)))

	onlyGeneric := []model.Snippet{snippet("1-s1", "muscle relaxants", model.ClassificationRisk, 1.0, 5)}
	assert.Equal(t, onlyGeneric, p.Reprioritize(onlyGeneric))
}

func TestInterleave(t *testing.T) {
	in := []model.Snippet{
		snippet("1-s1", "a", model.ClassificationRisk, 1.0, 1),
		snippet("1-s2", "b", model.ClassificationRisk, 0.9, 1),
		snippet("1-s3", "c", model.ClassificationRisk, 0.8, 1),
		snippet("1-s4", "d", model.ClassificationUncertain, 5.0, 1),
		snippet("1-s5", "e", model.ClassificationSafety, 2.0, 1),
	}
	assert.Equal(t, []string{"1-s5", "1-s1", "1-s2", "1-s3", "1-s4"}, ids(Interleave(in)))

	riskOnly := in[:3]
	assert.Equal(t, riskOnly, Interleave(riskOnly))
}

func TestWordEstimator(t *testing.T) {
	cfg := model.DefaultConfig().Batching
	est := WordEstimator(cfg)

	msgs := []model.Message{{Content: "one two three"}, {Content: "four five six seven"}}
	// ceil(7 * 1.15) = 9
	assert.Equal(t, 9+2*18+220, est(msgs, 2))
}
