package batch

import (
	"math"
	"strings"

	"github.com/ppiankov/claimsift/internal/model"
)

// Estimator returns the approximate prompt token count of messages that
// carry snippetCount snippet blocks.
type Estimator func(messages []model.Message, snippetCount int) int

// WordEstimator counts whitespace-separated words across all messages,
// scales them by the multiplier, and adds per-snippet and fixed overhead.
func WordEstimator(cfg model.BatchingConfig) Estimator {
	multiplier := cfg.TokenMultiplier
	if multiplier <= 0 {
		multiplier = 1
	}
	return func(messages []model.Message, snippetCount int) int {
		words := 0
		for _, m := range messages {
			words += len(strings.Fields(m.Content))
		}
		tokens := int(math.Ceil(float64(words)*multiplier)) + cfg.SnippetMetaTokens*snippetCount + cfg.OverheadTokens
		return max(tokens, 1)
	}
}
