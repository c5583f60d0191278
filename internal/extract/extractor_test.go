package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/claimsift/internal/model"
	"github.com/ppiankov/claimsift/internal/rules"
	"github.com/ppiankov/claimsift/internal/vocab"
)

func newTestExtractor(terms []string) *Extractor {
	cfg := model.DefaultConfig()
	return NewExtractor(terms, rules.Default(), vocab.DefaultResolver(), cfg.Extraction, cfg.Scoring)
}

func TestExtractor_Candidates_TwoDrugs(t *testing.T) {
	e := newTestExtractor([]string{"succinylcholine", "propofol"})
	article := model.Article{
		PMID:      "111",
		Title:     "Anaesthesia in malignant hyperthermia",
		Rank:      1,
		Score:     4.0,
		Citations: 40,
		Text: "Succinylcholine is contraindicated because it can trigger malignant hyperthermia in susceptible patients. " +
			strings.Repeat("Unrelated methods text follows here. ", 40) +
			"Propofol was well tolerated and is considered a safe option in these patients.",
	}

	windows := e.Candidates(article, []string{"Malignant Hyperthermia"})
	require.Len(t, windows, 2)

	byDrug := map[string]model.Window{}
	for _, w := range windows {
		byDrug[w.Snippet.Drug] = w
	}
	assert.Equal(t, model.ClassificationRisk, byDrug["succinylcholine"].Snippet.Classification)
	assert.Equal(t, model.ClassificationSafety, byDrug["propofol"].Snippet.Classification)
	assert.True(t, byDrug["succinylcholine"].Snippet.ConditionMatched)
	assert.False(t, byDrug["propofol"].Snippet.ConditionMatched)

	for _, w := range windows {
		assert.Equal(t, "111", w.Snippet.ArticleID)
		assert.Equal(t, "https://pubmed.ncbi.nlm.nih.gov/111/", w.Snippet.CitationURL)
		assert.Greater(t, w.Snippet.Score, 0.0)
		assert.True(t, strings.HasPrefix(w.Key, w.Snippet.Drug+"\x00"))
		assert.Less(t, w.Left, w.Right)
	}
}

func TestExtractor_Candidates_NoConditionTerms(t *testing.T) {
	e := newTestExtractor([]string{"propofol"})
	article := model.Article{PMID: "1", Text: strings.Repeat("Propofol was safe and effective. ", 5)}

	assert.Nil(t, e.Candidates(article, nil))
	assert.Nil(t, e.Candidates(model.Article{PMID: "2"}, []string{"mh"}))
}

func TestExtractor_Candidates_ShortWindowsDropped(t *testing.T) {
	e := newTestExtractor([]string{"propofol"})
	article := model.Article{PMID: "1", Text: "Propofol is safe."}

	assert.Empty(t, e.Candidates(article, []string{"malignant hyperthermia"}))
}

func TestExtractor_Candidates_ConditionRequirement(t *testing.T) {
	e := newTestExtractor([]string{"ketamine"})
	cfg := model.DefaultScoringConfig()
	text := "Ketamine was effective for sedation during the procedure in every one of the enrolled patients."

	// Article never mentions the condition: no penalty, bonus applies.
	windows := e.Candidates(model.Article{PMID: "1", Text: text}, []string{"malignant hyperthermia"})
	require.Len(t, windows, 1)
	assert.False(t, windows[0].Snippet.ConditionMatched)
	assert.InDelta(t, cfg.SafetyBonus+cfg.CueWeight+cfg.ConditionBonus, windows[0].Snippet.Score, 1e-9)

	// Article mentions the condition elsewhere: the window is penalized.
	far := text + strings.Repeat(" Unrelated filler sentence here.", 40) + " Malignant hyperthermia was discussed separately."
	windows = e.Candidates(model.Article{PMID: "1", Text: far}, []string{"malignant hyperthermia"})
	require.NotEmpty(t, windows)
	assert.InDelta(t, cfg.SafetyBonus+cfg.CueWeight+cfg.ConditionPenalty, windows[0].Snippet.Score, 1e-9)
}

func TestExtractor_Candidates_InferredFromCondition(t *testing.T) {
	e := newTestExtractor([]string{"ketamine"})
	cfg := model.DefaultScoringConfig()
	text := "Ketamine was part of the anaesthetic plan in a patient with acute porphyria history."

	windows := e.Candidates(model.Article{PMID: "9", Text: text}, []string{"porphyria"})
	require.Len(t, windows, 1)
	s := windows[0].Snippet
	assert.Equal(t, model.ClassificationRisk, s.Classification)
	assert.Equal(t, []string{CueConditionMatch}, s.Cues)
	assert.True(t, s.ConditionInferred)
	assert.InDelta(t, cfg.RiskBonus+cfg.CueWeight+cfg.ConditionBonus, s.Score, 1e-9)
}
