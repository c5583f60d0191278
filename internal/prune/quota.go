package prune

import (
	"sort"

	"github.com/ppiankov/claimsift/internal/model"
	"github.com/ppiankov/claimsift/internal/score"
)

// Allocate keeps the best-scoring snippets of each article up to the
// article's quota, then orders the whole selection by article rank
// ascending and score descending. Article id and snippet id break the
// remaining ties so the output does not depend on input order.
func Allocate(snippets []model.Snippet, cfg model.QuotaConfig) []model.Snippet {
	if len(snippets) == 0 {
		return nil
	}

	byArticle := make(map[string][]model.Snippet)
	var order []string
	for _, s := range snippets {
		if _, ok := byArticle[s.ArticleID]; !ok {
			order = append(order, s.ArticleID)
		}
		byArticle[s.ArticleID] = append(byArticle[s.ArticleID], s)
	}

	var selected []model.Snippet
	for _, pmid := range order {
		items := byArticle[pmid]
		sort.SliceStable(items, func(i, j int) bool {
			if items[i].Score != items[j].Score {
				return items[i].Score > items[j].Score
			}
			return items[i].ID < items[j].ID
		})
		quota := score.Quota(items[0].Citations, items[0].ArticleScore, cfg)
		if quota < len(items) {
			items = items[:quota]
		}
		selected = append(selected, items...)
	}

	sort.SliceStable(selected, func(i, j int) bool {
		a, b := selected[i], selected[j]
		if a.ArticleRank != b.ArticleRank {
			return a.ArticleRank < b.ArticleRank
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.ArticleID != b.ArticleID {
			return a.ArticleID < b.ArticleID
		}
		return a.ID < b.ID
	})
	return selected
}
