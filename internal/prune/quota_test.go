package prune

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/claimsift/internal/model"
)

func articleSnippets(pmid string, rank, citations int, articleScore float64, scores ...float64) []model.Snippet {
	out := make([]model.Snippet, len(scores))
	for i, s := range scores {
		out[i] = model.Snippet{
			ID:           fmt.Sprintf("%s-s%d", pmid, i+1),
			ArticleID:    pmid,
			ArticleRank:  rank,
			ArticleScore: articleScore,
			Citations:    citations,
			Score:        s,
		}
	}
	return out
}

func TestAllocate_Empty(t *testing.T) {
	assert.Nil(t, Allocate(nil, model.DefaultQuotaConfig()))
}

func TestAllocate_KeepsTopPerArticle(t *testing.T) {
	cfg := model.DefaultQuotaConfig()
	in := articleSnippets("1", 1, 0, 1.0, 0.5, 2.5, 1.5, 3.5, 0.1)

	got := Allocate(in, cfg)
	require.Len(t, got, cfg.BaseQuota)
	assert.Equal(t, []float64{3.5, 2.5, 1.5}, []float64{got[0].Score, got[1].Score, got[2].Score})
}

func TestAllocate_Bounds(t *testing.T) {
	cfg := model.DefaultQuotaConfig()

	tests := []struct {
		name      string
		citations int
		score     float64
		available int
		want      int
	}{
		{"fewer than base", 0, 1.0, 2, 2},
		{"base", 0, 1.0, 10, 3},
		{"cited", 12, 1.0, 10, 4},
		{"highly cited strong", 40, 4.5, 10, 6},
		{"capped by max", 40, 4.5, 20, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scores := make([]float64, tt.available)
			for i := range scores {
				scores[i] = float64(i)
			}
			got := Allocate(articleSnippets("9", 1, tt.citations, tt.score, scores...), cfg)
			assert.Len(t, got, tt.want)
			assert.LessOrEqual(t, len(got), cfg.MaxQuota)
			assert.GreaterOrEqual(t, len(got), min(cfg.BaseQuota, tt.available))
		})
	}
}

func TestAllocate_GlobalOrder(t *testing.T) {
	cfg := model.DefaultQuotaConfig()
	var in []model.Snippet
	in = append(in, articleSnippets("b", 2, 0, 1.0, 9.0)...)
	in = append(in, articleSnippets("a", 1, 0, 1.0, 1.0, 2.0)...)
	in = append(in, articleSnippets("c", 1, 0, 1.0, 2.0)...)

	got := Allocate(in, cfg)
	require.Len(t, got, 4)
	ids := make([]string, len(got))
	for i, s := range got {
		ids[i] = s.ID
	}
	assert.Equal(t, []string{"a-s2", "c-s1", "a-s1", "b-s1"}, ids)
}

func TestAllocate_OrderIndependent(t *testing.T) {
	cfg := model.DefaultQuotaConfig()
	var in []model.Snippet
	in = append(in, articleSnippets("a", 1, 0, 1.0, 1.0, 1.0, 1.0, 1.0)...)
	in = append(in, articleSnippets("b", 1, 0, 1.0, 1.0, 1.0)...)

	reversed := make([]model.Snippet, len(in))
	for i, s := range in {
		reversed[len(in)-1-i] = s
	}
	assert.Equal(t, Allocate(in, cfg), Allocate(reversed, cfg))
}
