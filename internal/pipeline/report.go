package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/claimsift/internal/model"
)

var classificationOrder = []model.Classification{
	model.ClassificationRisk,
	model.ClassificationSafety,
	model.ClassificationNuanced,
	model.ClassificationUncertain,
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, r *model.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// WriteMarkdown writes the claims grouped by classification with their
// evidence citations.
func WriteMarkdown(w io.Writer, r *model.Report) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# Drug safety claims: %s\n\n", r.Condition)
	fmt.Fprintf(&b, "Run `%s`, generated %s.\n\n", r.RunID, r.GeneratedAt.Format("2006-01-02 15:04 MST"))
	if r.ClaimSet != nil {
		fmt.Fprintf(&b, "Mesh signature: `%s`\n\n", r.ClaimSet.MeshSignature)
	}

	b.WriteString("## Pipeline\n\n")
	b.WriteString("| Stage | Count |\n|---|---|\n")
	s := r.Stats
	for _, row := range []struct {
		name string
		n    int
	}{
		{"Articles", s.Articles},
		{"Candidates", s.Candidates},
		{"Pruned", s.Pruned},
		{"Snippets kept", s.Kept},
		{"Batches", s.Batches},
		{"Estimated prompt tokens", s.PromptTokens},
		{"Tokens used", s.TokensUsed},
		{"Claims merged", s.ClaimsMerged},
		{"Claims suppressed", s.ClaimsSuppressed},
	} {
		fmt.Fprintf(&b, "| %s | %d |\n", row.name, row.n)
	}
	b.WriteString("\n")

	if r.ClaimSet == nil || len(r.ClaimSet.Claims) == 0 {
		b.WriteString("No claims.\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	buckets := r.ClaimSet.ByClassification()
	for _, cls := range classificationOrder {
		claims := buckets[cls]
		if len(claims) == 0 {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n", title(string(cls)))
		for _, c := range claims {
			writeClaim(&b, c)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeClaim(b *strings.Builder, c model.AggregatedClaim) {
	fmt.Fprintf(b, "### %s\n\n", strings.Join(c.Drugs, ", "))
	fmt.Fprintf(b, "%s\n\n", c.Summary)
	fmt.Fprintf(b, "- Confidence: %s\n", c.Confidence)
	if len(c.DrugClasses) > 0 {
		fmt.Fprintf(b, "- Classes: %s\n", strings.Join(c.DrugClasses, ", "))
	}
	if c.SevereReaction {
		terms := "flagged"
		if len(c.SevereReactionTerms) > 0 {
			terms = strings.Join(c.SevereReactionTerms, ", ")
		}
		fmt.Fprintf(b, "- Severe reaction: %s\n", terms)
	}
	fmt.Fprintf(b, "- Source claims: %s\n", strings.Join(c.SourceClaimIDs, ", "))

	if len(c.Evidence) > 0 {
		b.WriteString("\nEvidence:\n\n")
		for _, e := range c.Evidence {
			articleTitle := e.ArticleTitle
			if articleTitle == "" {
				articleTitle = "PMID " + e.PMID
			}
			fmt.Fprintf(b, "- [%s](%s) `%s`", articleTitle, model.PubMedURL(e.PMID), e.SnippetID)
			if len(e.KeyPoints) > 0 {
				fmt.Fprintf(b, ": %s", strings.Join(e.KeyPoints, "; "))
			}
			if e.Notes != "" {
				fmt.Fprintf(b, " (%s)", e.Notes)
			}
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
}

// WriteSummary prints a short run summary.
func WriteSummary(w io.Writer, r *model.Report) {
	claims := 0
	if r.ClaimSet != nil {
		claims = len(r.ClaimSet.Claims)
	}
	fmt.Fprintf(w, "Condition: %s\n", r.Condition)
	fmt.Fprintf(w, "Articles: %d  Snippets: %d  Batches: %d  Claims: %d\n",
		r.Stats.Articles, r.Stats.Kept, r.Stats.Batches, claims)
	if r.Stats.ClaimsSuppressed > 0 {
		fmt.Fprintf(w, "Suppressed %d redundant generic claims\n", r.Stats.ClaimsSuppressed)
	}
}

// WriteFile renders the report to path with render, creating parent
// directories.
func WriteFile(path string, r *model.Report, render func(io.Writer, *model.Report) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := render(f, r); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
