package pipeline

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/claimsift/internal/model"
)

func testReport() *model.Report {
	return &model.Report{
		RunID:       "run-1",
		Condition:   "Malignant Hyperthermia",
		GeneratedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Stats:       model.RunStats{Articles: 1, Kept: 2, Batches: 1, ClaimsMerged: 3, ClaimsSuppressed: 1},
		ClaimSet: &model.ClaimSet{
			MeshSignature: "malignant hyperthermia",
			Claims: []model.AggregatedClaim{
				{
					ClaimID:        "c2",
					Classification: model.ClassificationSafety,
					Summary:        "Propofol is a safe option.",
					Confidence:     model.ConfidenceMedium,
					Drugs:          []string{"Propofol"},
					SourceClaimIDs: []string{"c2"},
					Evidence:       []model.ClaimEvidence{{SnippetID: "111-s2", PMID: "111", KeyPoints: []string{"well tolerated"}, Notes: "single centre"}},
				},
				{
					ClaimID:             "c1",
					Classification:      model.ClassificationRisk,
					Summary:             "Succinylcholine can trigger MH.",
					Confidence:          model.ConfidenceHigh,
					Drugs:               []string{"Succinylcholine"},
					DrugClasses:         []string{"depolarising neuromuscular blocker"},
					SourceClaimIDs:      []string{"c1"},
					SevereReaction:      true,
					SevereReactionTerms: []string{"Malignant hyperthermia"},
					Evidence:            []model.ClaimEvidence{{SnippetID: "111-s1", PMID: "111", ArticleTitle: "MH review", KeyPoints: []string{"trigger"}}},
				},
			},
		},
	}
}

func TestWriteMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMarkdown(&buf, testReport()))
	md := buf.String()

	assert.Contains(t, md, "# Drug safety claims: Malignant Hyperthermia")
	assert.Contains(t, md, "| Claims suppressed | 1 |")
	assert.Contains(t, md, "- Severe reaction: Malignant hyperthermia")
	assert.Contains(t, md, "[MH review](https://pubmed.ncbi.nlm.nih.gov/111/) `111-s1`: trigger")
	assert.Contains(t, md, "[PMID 111](https://pubmed.ncbi.nlm.nih.gov/111/) `111-s2`: well tolerated (single centre)")

	risk := bytes.Index(buf.Bytes(), []byte("## Risk"))
	safety := bytes.Index(buf.Bytes(), []byte("## Safety"))
	require.NotEqual(t, -1, risk)
	require.NotEqual(t, -1, safety)
	assert.Less(t, risk, safety, "risk claims render first")
}

func TestWriteMarkdown_NoClaims(t *testing.T) {
	var buf bytes.Buffer
	r := testReport()
	r.ClaimSet.Claims = nil
	require.NoError(t, WriteMarkdown(&buf, r))
	assert.Contains(t, buf.String(), "No claims.")
}

func TestWriteFile_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "report.json")
	require.NoError(t, WriteFile(path, testReport(), WriteJSON))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded model.Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "run-1", decoded.RunID)
	require.NotNil(t, decoded.ClaimSet)
	assert.Len(t, decoded.ClaimSet.Claims, 2)
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	WriteSummary(&buf, testReport())
	assert.Contains(t, buf.String(), "Claims: 2")
	assert.Contains(t, buf.String(), "Suppressed 1 redundant generic claims")
}
