package model

import "fmt"

// Article is one source document handed to the extraction stage.
// Zero values for PublicationYear, CohortSize and StudyTypes mean "unknown".
type Article struct {
	PMID            string   `json:"pmid" yaml:"pmid"`
	Title           string   `json:"title,omitempty" yaml:"title,omitempty"`
	Text            string   `json:"text" yaml:"text"`                         // Abstract or full text body
	Format          string   `json:"format,omitempty" yaml:"format,omitempty"` // "text", "html", "jats"
	Rank            int      `json:"rank" yaml:"rank"`                         // Search rank (1 = best)
	Score           float64  `json:"score" yaml:"score"`                       // Continuous relevance score
	Citations       int      `json:"citation_count" yaml:"citation_count"`     // PMC reference count
	PublicationYear int      `json:"publication_year,omitempty" yaml:"publication_year,omitempty"`
	StudyTypes      []string `json:"study_types,omitempty" yaml:"study_types,omitempty"`
	CohortSize      int      `json:"cohort_size,omitempty" yaml:"cohort_size,omitempty"`
	CitationURL     string   `json:"citation_url,omitempty" yaml:"citation_url,omitempty"`
	ContentSource   string   `json:"content_source,omitempty" yaml:"content_source,omitempty"` // "abstract", "full-text"
}

// URL returns the preferred citation URL, falling back to PubMed.
func (a Article) URL() string {
	if a.CitationURL != "" {
		return a.CitationURL
	}
	return PubMedURL(a.PMID)
}

// PubMedURL builds the canonical PubMed link for a pmid.
func PubMedURL(pmid string) string {
	return fmt.Sprintf("https://pubmed.ncbi.nlm.nih.gov/%s/", pmid)
}

// Corpus is the input to one condition refresh.
type Corpus struct {
	Condition string    `json:"condition" yaml:"condition"`
	MeshTerms []string  `json:"mesh_terms,omitempty" yaml:"mesh_terms,omitempty"`
	Articles  []Article `json:"articles" yaml:"articles"`
}
