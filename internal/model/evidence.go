package model

// Classification labels a snippet or claim.
type Classification string

const (
	ClassificationRisk      Classification = "risk"
	ClassificationSafety    Classification = "safety"
	ClassificationUncertain Classification = "uncertain" // Only produced by the model
	ClassificationNuanced   Classification = "nuanced"   // Only produced by the model
)

// Valid reports whether c is one of the known classifications.
func (c Classification) Valid() bool {
	switch c {
	case ClassificationRisk, ClassificationSafety, ClassificationUncertain, ClassificationNuanced:
		return true
	}
	return false
}

// TagKind categorizes a rule tag
type TagKind string

const (
	TagKindRisk           TagKind = "risk"
	TagKindSafety         TagKind = "safety"
	TagKindSevereReaction TagKind = "severe_reaction"
	TagKindTherapyRole    TagKind = "therapy_role"
	TagKindMechanismAlert TagKind = "mechanism_alert"
)

// Tag is a label attached to a snippet by the rule tagger.
type Tag struct {
	Kind       TagKind `json:"kind"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"` // "rule"
}

// Snippet is a scored text window around one drug mention in one article.
// Treat it as immutable once scored: stages that adjust it work on copies.
type Snippet struct {
	ID              string         `json:"snippet_id"`
	ArticleID       string         `json:"pmid"`
	ArticleTitle    string         `json:"article_title,omitempty"`
	CitationURL     string         `json:"citation_url,omitempty"`
	Drug            string         `json:"drug"`
	Classification  Classification `json:"classification"`
	Text            string         `json:"text"`
	ArticleRank     int            `json:"article_rank"`
	ArticleScore    float64        `json:"article_score"`
	Citations       int            `json:"citation_count"`
	Score           float64        `json:"score"`
	Cues            []string       `json:"cues"`
	Tags            []Tag          `json:"tags,omitempty"`
	PublicationYear int            `json:"publication_year,omitempty"`
	StudyTypes      []string       `json:"study_types,omitempty"`
	CohortSize      int            `json:"cohort_size,omitempty"`

	ConditionMatched  bool `json:"condition_matched"`
	ConditionInferred bool `json:"condition_inferred"`
}

// SevereTerms returns the sorted, unique severe-reaction labels tagged on s.
func (s Snippet) SevereTerms() []string {
	return s.tagLabels(TagKindSevereReaction)
}

// TherapyRoles returns the sorted, unique therapy-role labels tagged on s.
func (s Snippet) TherapyRoles() []string {
	return s.tagLabels(TagKindTherapyRole)
}

// MechanismAlerts returns the sorted, unique mechanism-alert labels tagged on s.
func (s Snippet) MechanismAlerts() []string {
	return s.tagLabels(TagKindMechanismAlert)
}

func (s Snippet) tagLabels(kind TagKind) []string {
	seen := make(map[string]bool)
	var labels []string
	for _, tag := range s.Tags {
		if tag.Kind != kind || seen[tag.Label] {
			continue
		}
		seen[tag.Label] = true
		labels = append(labels, tag.Label)
	}
	sortStrings(labels)
	return labels
}

// Window is a snippet plus its span in the normalized article text.
// Left and Right are half-open byte offsets.
type Window struct {
	Snippet Snippet
	Left    int
	Right   int
	Key     string // drug + "\x00" + lowercased text
}

// Overlaps reports whether the half-open spans of w and o intersect.
func (w Window) Overlaps(o Window) bool {
	return w.Left < o.Right && o.Left < w.Right
}
