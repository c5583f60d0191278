package worker

import (
	"context"
	"fmt"

	"github.com/ppiankov/claimsift/internal/model"
)

// Extractor produces candidate windows for one article.
type Extractor interface {
	Candidates(article model.Article, conditionTerms []string) []model.Window
}

// ExtractJob runs candidate extraction for one article.
type ExtractJob struct {
	Index     int
	Article   model.Article
	Terms     []string
	Extractor Extractor
}

// Execute executes the extraction job
func (j *ExtractJob) Execute(ctx context.Context) (res Result) {
	result := &ExtractResult{Index: j.Index, PMID: j.Article.PMID}
	if err := ctx.Err(); err != nil {
		result.Error = err
		return result
	}

	defer func() {
		if r := recover(); r != nil {
			result.Error = fmt.Errorf("extract article %s: panic: %v", j.Article.PMID, r)
			res = result
		}
	}()

	result.Windows = j.Extractor.Candidates(j.Article, j.Terms)
	return result
}

// ExtractResult represents the result of an extraction job
type ExtractResult struct {
	Index   int
	PMID    string
	Windows []model.Window
	Error   error
}

// GetError returns the error from the extraction result
func (r *ExtractResult) GetError() error {
	return r.Error
}

// ExtractAll extracts every article on a pool of workers and returns the
// windows in article order. The first job error, or the context error,
// aborts the whole call.
func ExtractAll(ctx context.Context, ext Extractor, articles []model.Article, terms []string, workers int) ([][]model.Window, error) {
	out := make([][]model.Window, len(articles))
	if len(articles) == 0 {
		return out, nil
	}

	pool := NewPool(ctx, workers)
	pool.Start()
	for i, a := range articles {
		pool.Submit(&ExtractJob{Index: i, Article: a, Terms: terms, Extractor: ext})
	}
	results := pool.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(results) != len(articles) {
		return nil, fmt.Errorf("extraction incomplete: %d of %d articles", len(results), len(articles))
	}
	for _, r := range results {
		er := r.(*ExtractResult)
		if er.Error != nil {
			return nil, er.Error
		}
		out[er.Index] = er.Windows
	}
	return out, nil
}
