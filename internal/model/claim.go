package model

import (
	"sort"
	"strings"
	"time"
)

// ClaimGroup clusters snippets that share a classification and a drug group.
// Groups are rebuilt per prompt batch and never persisted.
type ClaimGroup struct {
	Key            string         `json:"group_key"` // "<classification>:<group key>"
	Classification Classification `json:"classification"`
	DrugLabel      string         `json:"drug_label"`
	DrugTerms      []string       `json:"drug_terms"`
	DrugClasses    []string       `json:"drug_classes"`
	Snippets       []Snippet      `json:"snippets"`
	TopScore       float64        `json:"top_score"`
	Generic        bool           `json:"generic"` // Group class set contains the generic-class marker
}

// Message is one chat message sent to the language model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Batch is one model call worth of snippets.
type Batch struct {
	Messages      []Message    `json:"messages"`
	Snippets      []Snippet    `json:"snippets"`
	ClaimGroups   []ClaimGroup `json:"claim_groups"`
	TokenEstimate int          `json:"token_estimate"`
}

// Confidence is the model's stated confidence in a claim.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Rank orders confidences low < medium < high. Unknown values rank -1.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceLow:
		return 0
	case ConfidenceMedium:
		return 1
	case ConfidenceHigh:
		return 2
	}
	return -1
}

// ClaimEvidence is one supporting snippet citation on a claim.
type ClaimEvidence struct {
	SnippetID    string   `json:"snippet_id"`
	PMID         string   `json:"pmid"`
	ArticleTitle string   `json:"article_title"`
	KeyPoints    []string `json:"key_points"`
	Notes        string   `json:"notes,omitempty"`
}

// AggregatedClaim is a canonical claim after cross-batch merging.
type AggregatedClaim struct {
	ClaimID             string          `json:"claim_id"`
	Classification      Classification  `json:"classification"`
	Summary             string          `json:"summary"`
	Confidence          Confidence      `json:"confidence"`
	Drugs               []string        `json:"drugs"`
	DrugClasses         []string        `json:"drug_classes"`
	SourceClaimIDs      []string        `json:"source_claim_ids"`
	Articles            []string        `json:"articles,omitempty"`
	Evidence            []ClaimEvidence `json:"evidence"`
	SevereReaction      bool            `json:"severe_reaction_flag"`
	SevereReactionTerms []string        `json:"severe_reaction_terms,omitempty"`
}

// ClaimSet is the finalized output of one condition refresh.
type ClaimSet struct {
	ID             string            `json:"id"`
	ConditionLabel string            `json:"condition_label"`
	MeshSignature  string            `json:"mesh_signature"`
	MeshTerms      []string          `json:"mesh_terms"`
	Claims         []AggregatedClaim `json:"claims"`
	CreatedAt      time.Time         `json:"created_at"`
}

// ByClassification buckets claims preserving their order.
func (s *ClaimSet) ByClassification() map[Classification][]AggregatedClaim {
	out := make(map[Classification][]AggregatedClaim)
	for _, c := range s.Claims {
		out[c.Classification] = append(out[c.Classification], c)
	}
	return out
}

func sortStrings(values []string) {
	sort.Slice(values, func(i, j int) bool {
		return strings.ToLower(values[i]) < strings.ToLower(values[j]) ||
			(strings.ToLower(values[i]) == strings.ToLower(values[j]) && values[i] < values[j])
	})
}
