package model

import "time"

// Report is the rendered result of one refresh run.
type Report struct {
	RunID       string       `json:"run_id"`
	Condition   string       `json:"condition"`
	GeneratedAt time.Time    `json:"generated_at"`
	Stats       RunStats     `json:"stats"`
	Batches     []BatchStats `json:"batches"`
	ClaimSet    *ClaimSet    `json:"claim_set"`
}

// RunStats counts items at each pipeline stage.
type RunStats struct {
	Articles         int `json:"articles"`
	Candidates       int `json:"candidates"` // Windows that passed classification
	Pruned           int `json:"pruned"`     // Windows removed by overlap pruning
	Kept             int `json:"kept"`       // Snippets surviving quota
	Batches          int `json:"batches"`
	PromptTokens     int `json:"prompt_tokens"` // Sum of batch estimates
	TokensUsed       int `json:"tokens_used"`   // As reported by the provider
	ClaimsMerged     int `json:"claims_merged"`
	ClaimsSuppressed int `json:"claims_suppressed"` // Dropped by redundancy reduction
}

// BatchStats summarizes one dispatched batch.
type BatchStats struct {
	Index         int    `json:"index"`
	Snippets      int    `json:"snippets"`
	ClaimGroups   int    `json:"claim_groups"`
	TokenEstimate int    `json:"token_estimate"`
	TokensUsed    int    `json:"tokens_used"`
	Model         string `json:"model,omitempty"`
	Cached        bool   `json:"cached"`
}
