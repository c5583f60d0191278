package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTables_Negated(t *testing.T) {
	tables := Default()

	assert.True(t, tables.Negated("propofol did not cause arrhythmia in any patient", "arrhythmia"))
	assert.True(t, tables.Negated("there was no evidence of toxicity", "toxicity"))
	assert.False(t, tables.Negated("propofol caused arrhythmia", "arrhythmia"))
}

func TestTables_Override(t *testing.T) {
	tables := Default()

	o, ok := tables.Override(RoleMHTherapy)
	require.True(t, ok)
	assert.Contains(t, o.ConditionTerms, "malignant hyperthermia")
	assert.Contains(t, o.Keywords, "first-line")

	_, ok = tables.Override("unknown-role")
	assert.False(t, ok)
}

func TestParse_ReplacesOnlyPresentTables(t *testing.T) {
	data := []byte(`
risk_cues:
  - "  Boom  "
  - ""
`)
	tables, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, []string{"boom"}, tables.RiskCues)
	assert.Equal(t, Default().SafetyCues, tables.SafetyCues)
	assert.Len(t, tables.RoleOverrides, 1)
}

func TestParse_RejectsEmptyCueTables(t *testing.T) {
	_, err := Parse([]byte("risk_cues: []\nsafety_cues: []\n"))
	assert.Error(t, err)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("safety_cues: [\"Uneventful\"]\n"), 0o644))

	tables, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"uneventful"}, tables.SafetyCues)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestContainsAny(t *testing.T) {
	assert.True(t, ContainsAny("sudden cardiac arrest", []string{"x", "cardiac"}))
	assert.False(t, ContainsAny("calm", []string{"", "storm"}))
}
