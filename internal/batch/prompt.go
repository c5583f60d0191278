// Package batch packs scored snippets into token-bounded model requests.
package batch

import (
	"fmt"
	"strings"

	"github.com/ppiankov/claimsift/internal/model"
)

// DefaultSystemPrompt frames every request.
const DefaultSystemPrompt = "You are a clinical evidence synthesis assistant. " +
	"Summarise whether article snippets describe safety or risk relationships between drugs and the referenced condition. " +
	"Only infer what is explicitly supported by the snippets."

const noTitle = "(no title provided)"

const responseSchema = `{
  "drugs": [
    {
      "id": "string",
      "name": "string",
      "classifications": ["string"],
      "claims": ["claim id"]
    }
  ],
  "claims": [
    {
      "id": "string",
      "type": "risk | safety | uncertain | nuanced",
      "summary": "string",
      "confidence": "low | medium | high",
      "drugs": ["drug id"],
      "idiosyncratic_reaction": {"flag": false, "descriptors": ["string"]},
      "articles": ["article:<pmid>"],
      "supporting_evidence": [
        {
          "snippet_id": "string",
          "pmid": "string",
          "article_title": "string",
          "key_points": ["string"],
          "notes": "string"
        }
      ]
    }
  ]
}
`

// Condition is the subject of a refresh as shown to the model.
type Condition struct {
	Label string
	Terms []string
}

// Renderer builds the system and user messages for one batch.
type Renderer struct {
	SystemPrompt string
}

// NewRenderer uses DefaultSystemPrompt when systemPrompt is blank.
func NewRenderer(systemPrompt string) *Renderer {
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = DefaultSystemPrompt
	}
	return &Renderer{SystemPrompt: systemPrompt}
}

// Messages returns the system and user message pair.
func (r *Renderer) Messages(cond Condition, snippets []model.Snippet, groups []model.ClaimGroup) []model.Message {
	return []model.Message{
		{Role: model.RoleSystem, Content: r.SystemPrompt},
		{Role: model.RoleUser, Content: r.UserPrompt(cond, snippets, groups)},
	}
}

// UserPrompt renders the snippet listing and claim groups.
func (r *Renderer) UserPrompt(cond Condition, snippets []model.Snippet, groups []model.ClaimGroup) string {
	related := "None provided"
	if len(cond.Terms) > 0 {
		related = strings.Join(cond.Terms, ", ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Condition: %s\n", cond.Label)
	fmt.Fprintf(&b, "Related terms: %s\n\n", related)
	b.WriteString("Respond with valid JSON following this schema:\n")
	b.WriteString(responseSchema)
	b.WriteString("\n")
	b.WriteString("Synthesise claims by weighing all snippets in each supporting group collectively.\n")
	b.WriteString("Declare every drug a claim references in the top-level drugs list, and list the claim ids on each drug.\n")
	b.WriteString("Each claim must cite every supporting snippet id used and reference articles as article:<pmid>.\n")
	b.WriteString("Set idiosyncratic_reaction.flag when the snippets describe a severe or idiosyncratic reaction, and name it in descriptors.\n")
	b.WriteString("Confidence must be one of: low, medium, high.\n")
	b.WriteString("Return 'summary' as a short assertion about the condition and drugs.\n")
	b.WriteString("Use the provided snippet_id values exactly as written.\n")
	b.WriteString("Snippets (full listing):\n")

	for i, s := range snippets {
		if i > 0 {
			b.WriteString("\n")
		}
		writeSnippet(&b, i+1, s)
	}

	b.WriteString("\n\nClaim groups (use these to organise the response):\n")
	for i, g := range groups {
		if i > 0 {
			b.WriteString("\n")
		}
		writeGroup(&b, i+1, g)
	}

	b.WriteString("\n\nReturn only JSON.")
	return b.String()
}

func writeSnippet(b *strings.Builder, idx int, s model.Snippet) {
	fmt.Fprintf(b, "%d. snippet_id: %s\n", idx, s.ID)
	fmt.Fprintf(b, "   article_pmid: %s\n", s.ArticleID)
	fmt.Fprintf(b, "   article_title: %s\n", titleOrDefault(s.ArticleTitle))
	fmt.Fprintf(b, "   drug: %s\n", s.Drug)
	fmt.Fprintf(b, "   classification: %s\n", s.Classification)
	fmt.Fprintf(b, "   score: %.2f\n", s.Score)
	fmt.Fprintf(b, "   article_rank: %d\n", s.ArticleRank)
	fmt.Fprintf(b, "   source_url: %s\n", s.CitationURL)
	fmt.Fprintf(b, "   cues: %s\n", joinOrNone(s.Cues))
	if severe := s.SevereTerms(); len(severe) > 0 {
		fmt.Fprintf(b, "   severe_reaction_terms: %s\n", strings.Join(severe, ", "))
	}
	fmt.Fprintf(b, "   snippet: %s", oneLine(s.Text))
}

func writeGroup(b *strings.Builder, idx int, g model.ClaimGroup) {
	label := g.DrugLabel
	if g.Generic {
		label += " (broad drug category)"
	}
	fmt.Fprintf(b, "%d. claim_group_id: %s\n", idx, g.Key)
	fmt.Fprintf(b, "   classification: %s\n", g.Classification)
	fmt.Fprintf(b, "   drug_label: %s\n", label)
	fmt.Fprintf(b, "   drug_classes: %s\n", joinOrNone(g.DrugClasses))
	fmt.Fprintf(b, "   drugs: %s\n", strings.Join(g.DrugTerms, ", "))
	fmt.Fprintf(b, "   top_snippet_score: %.2f\n", g.TopScore)
	b.WriteString("   supporting_snippets:")
	for _, s := range g.Snippets {
		fmt.Fprintf(b, "\n      - snippet_id: %s (pmid %s, drug %s, score %.2f)", s.ID, s.ArticleID, s.Drug, s.Score)
	}
}

func titleOrDefault(title string) string {
	if strings.TrimSpace(title) == "" {
		return noTitle
	}
	return title
}

func joinOrNone(values []string) string {
	if len(values) == 0 {
		return "none"
	}
	return strings.Join(values, ", ")
}

func oneLine(text string) string {
	return strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
}
