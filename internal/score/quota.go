package score

import "github.com/ppiankov/claimsift/internal/model"

// Quota returns how many snippets an article may keep: the base plus the
// increment of every threshold met, capped at MaxQuota when set.
func Quota(citations int, articleScore float64, cfg model.QuotaConfig) int {
	quota := cfg.BaseQuota
	if citations >= cfg.CitationThreshold {
		quota += cfg.CitationIncrement
	}
	if citations >= cfg.HighCitationThreshold {
		quota += cfg.HighCitationIncrement
	}
	if articleScore >= cfg.ScoreThreshold {
		quota += cfg.ScoreIncrement
	}
	if cfg.MaxQuota > 0 {
		quota = min(quota, cfg.MaxQuota)
	}
	return max(quota, 0)
}
