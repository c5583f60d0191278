package vocab

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_Resolve_KnownGroups(t *testing.T) {
	r := DefaultResolver()

	sevo := r.Resolve("Sevoflurane")
	des := r.Resolve("desflurane")
	assert.Equal(t, "volatile-anesthetics", sevo.Key)
	assert.Equal(t, sevo.Key, des.Key)
	assert.Equal(t, "volatile anesthetics", sevo.Label)
	assert.Equal(t, []string{"volatile anesthetic"}, sevo.Classes)
	assert.False(t, sevo.Generic())

	sux := r.Resolve("suxamethonium")
	assert.Equal(t, "depolarising-neuromuscular-blockers", sux.Key)

	dantrolene := r.Resolve("dantrolene")
	assert.Equal(t, []string{"mh-therapy"}, dantrolene.Roles)
}

func TestResolver_Resolve_GenericTerms(t *testing.T) {
	r := DefaultResolver()

	assert.True(t, r.IsGeneric("volatile anesthetic"))
	assert.True(t, r.IsGeneric("muscle relaxants"))
	assert.False(t, r.IsGeneric("rocuronium"))
	assert.False(t, r.IsGeneric("propofol"))
}

func TestResolver_Resolve_Unknown(t *testing.T) {
	r := DefaultResolver()

	g := r.Resolve("  Propofol ")
	assert.Equal(t, "propofol", g.Key)
	assert.Equal(t, "Propofol", g.Label)
	assert.Empty(t, g.Classes)

	assert.Equal(t, Group{Key: "unknown", Label: "unknown"}, r.Resolve("   "))
}

func TestResolver_Resolve_CaseInsensitive(t *testing.T) {
	r := DefaultResolver()

	first := r.Resolve("isoflurane")
	second := r.Resolve("ISOFLURANE")
	assert.Equal(t, first, second)
	assert.NotEmpty(t, first.Classes)

	// Unknown names are not retained between calls
	before := len(r.index)
	r.Resolve("a drug name the model made up")
	assert.Len(t, r.index, before)
}

func TestLoadGroups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "groups.yaml")
	content := `
- key: statins
  label: statins
  classes: [hmg-coa reductase inhibitor]
  terms: [simvastatin, atorvastatin]
  generic_terms: [statin]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	defs, err := LoadGroups(path)
	require.NoError(t, err)
	r := NewResolver(defs)

	assert.Equal(t, "statins", r.Resolve("simvastatin").Key)
	assert.True(t, r.IsGeneric("statin"))
	assert.Equal(t, []string{"atorvastatin", "simvastatin", "statin"}, r.Terms())
}

func TestLoadGroups_MissingKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "groups.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- label: nameless\n"), 0o644))

	_, err := LoadGroups(path)
	assert.Error(t, err)
}

func TestNormalizeTerms(t *testing.T) {
	got := NormalizeTerms([]string{" Malignant  Hyperthermia", "malignant hyperthermia", "", "MH"})
	assert.Equal(t, []string{"malignant hyperthermia", "mh"}, got)
}

func TestConditionTerms(t *testing.T) {
	got := ConditionTerms("Malignant Hyperthermia", []string{"Hyperthermia, Malignant", "malignant hyperthermia"})
	assert.Equal(t, []string{"malignant hyperthermia", "hyperthermia, malignant"}, got)
}

func TestMeshSignature_OrderInsensitive(t *testing.T) {
	a := MeshSignature([]string{"B term", "a term"})
	b := MeshSignature([]string{"A Term", "b term", "a term"})
	assert.Equal(t, "a term|b term", a)
	assert.Equal(t, a, b)
}

func TestLoadDrugTerms(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terms.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- Propofol\n- propofol\n- Ketamine\n"), 0o644))

	terms, err := LoadDrugTerms(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"propofol", "ketamine"}, terms)

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("[]\n"), 0o644))
	_, err = LoadDrugTerms(empty)
	assert.Error(t, err)
}

func TestDefaultDrugTerms_ReturnsCopy(t *testing.T) {
	terms := DefaultDrugTerms()
	terms[0] = "mutated"
	assert.NotEqual(t, "mutated", DefaultDrugTerms()[0])
}
