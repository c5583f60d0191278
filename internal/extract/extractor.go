package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/claimsift/internal/model"
	"github.com/ppiankov/claimsift/internal/rules"
	"github.com/ppiankov/claimsift/internal/score"
	"github.com/ppiankov/claimsift/internal/vocab"
)

// MinSnippetFloor is the smallest accepted minimum snippet length.
const MinSnippetFloor = 30

// Extractor turns one article into classified, scored candidate windows.
// It holds no per-article state and is safe for concurrent use.
type Extractor struct {
	finder     *Finder
	classifier *Classifier
	tagger     *Tagger
	resolver   *vocab.Resolver
	minChars   int
	scoring    model.ScoringConfig
}

// NewExtractor builds an extractor over the drug vocabulary terms.
func NewExtractor(terms []string, tables rules.Tables, resolver *vocab.Resolver, extraction model.ExtractionConfig, scoring model.ScoringConfig) *Extractor {
	return &Extractor{
		finder:     NewFinder(vocab.NormalizeTerms(terms), extraction.WindowChars),
		classifier: NewClassifier(tables, extraction.RoleRadius),
		tagger:     NewTagger(tables),
		resolver:   resolver,
		minChars:   max(extraction.MinSnippetChars, MinSnippetFloor),
		scoring:    scoring,
	}
}

// Candidates returns every classified window in article before pruning.
// An article with no text, or a call with no condition terms, yields nil.
func (e *Extractor) Candidates(article model.Article, conditionTerms []string) []model.Window {
	if strings.TrimSpace(article.Text) == "" {
		return nil
	}
	aliases := vocab.NormalizeTerms(conditionTerms)
	if len(aliases) == 0 {
		return nil
	}

	normalized := NormalizeText(article.Text)
	// Condition matching only counts against windows of articles that
	// mention the condition somewhere.
	required := containsAnyAlias(strings.ToLower(normalized), aliases)

	var windows []model.Window
	for term, m := range e.finder.All(normalized) {
		if utf8.RuneCountInString(m.Text) < e.minChars {
			continue
		}
		lower := strings.ToLower(m.Text)
		matches := containsAnyAlias(lower, aliases)
		group := e.resolver.Resolve(term)

		verdict, ok := e.classifier.Classify(m.Text, term, group.Roles, matches)
		if !ok {
			continue
		}

		snippet := model.Snippet{
			ArticleID:         article.PMID,
			ArticleTitle:      article.Title,
			CitationURL:       article.URL(),
			Drug:              term,
			Classification:    verdict.Classification,
			Text:              m.Text,
			ArticleRank:       article.Rank,
			ArticleScore:      article.Score,
			Citations:         article.Citations,
			Cues:              verdict.Cues,
			Tags:              e.tagger.Tag(m.Text),
			PublicationYear:   article.PublicationYear,
			StudyTypes:        article.StudyTypes,
			CohortSize:        article.CohortSize,
			ConditionMatched:  matches,
			ConditionInferred: verdict.Inferred,
		}
		snippet.Score = score.Score(score.Input{
			ArticleScore:    article.Score,
			Citations:       article.Citations,
			Classification:  verdict.Classification,
			CueCount:        len(verdict.Cues),
			ConditionMatch:  matches || !required || verdict.Inferred,
			StudyTypes:      article.StudyTypes,
			PublicationYear: article.PublicationYear,
			CohortSize:      article.CohortSize,
		}, e.scoring)

		windows = append(windows, model.Window{
			Snippet: snippet,
			Left:    m.Left,
			Right:   m.Right,
			Key:     term + "\x00" + lower,
		})
	}
	return windows
}

func containsAnyAlias(lower string, aliases []string) bool {
	for _, a := range aliases {
		if strings.Contains(lower, a) {
			return true
		}
	}
	return false
}
