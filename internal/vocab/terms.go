package vocab

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

var defaultDrugTerms = []string{
	// Analgesics and sedatives
	"analgesic opioid", "opioid", "opioids", "morphine", "fentanyl", "remifentanil",
	"parecoxib", "benzodiazepine", "benzodiazepines", "midazolam", "propofol", "ketamine",
	// Volatile and inhalational agents
	"volatile anaesthetic", "volatile anaesthetics", "volatile anesthetic",
	"volatile anesthetics", "volatile agent", "volatile agents",
	"inhalational anaesthetic", "inhalational anesthetic",
	"desflurane", "isoflurane", "sevoflurane",
	// Neuromuscular blockade and reversal
	"neuromuscular blockade", "neuromuscular blocker", "neuromuscular blockers",
	"neuromuscular blocking agent", "neuromuscular blocking agents",
	"muscle relaxant", "muscle relaxants", "succinylcholine", "suxamethonium",
	"rocuronium", "atracurium", "sugammadex", "neostigmine", "atropine",
	// Crisis and rescue agents
	"dantrolene", "adrenaline", "epinephrine", "noradrenaline", "norepinephrine",
	"glucagon", "calcium gluconate",
	// Perioperative adjuncts
	"lidocaine", "lignocaine", "cefazolin", "dexamethasone", "ondansetron",
	"metoclopramide", "hyoscine", "hartmann's solution", "hartmanns solution",
	"sodium chloride",
	// Hemodynamic agents
	"hydralazine", "gtn", "glyceryl trinitrate", "sodium nitroprusside",
	"amiodarone", "metoprolol", "adenosine",
	// Anticonvulsants
	"levetiracetam",
}

// DefaultDrugTerms returns the built-in search vocabulary.
func DefaultDrugTerms() []string {
	return slices.Clone(defaultDrugTerms)
}

// LoadDrugTerms reads a YAML list of drug names.
func LoadDrugTerms(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read drug terms: %w", err)
	}
	var terms []string
	if err := yaml.Unmarshal(data, &terms); err != nil {
		return nil, fmt.Errorf("parse drug terms: %w", err)
	}
	terms = NormalizeTerms(terms)
	if len(terms) == 0 {
		return nil, fmt.Errorf("parse drug terms: %s lists no terms", path)
	}
	return terms, nil
}

// NormalizeTerms lowercases, trims and deduplicates terms, keeping first
// occurrence order.
func NormalizeTerms(terms []string) []string {
	seen := make(map[string]bool, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.Join(strings.Fields(strings.ToLower(t)), " ")
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// ConditionTerms builds the alias list used for condition matching: the
// normalized condition label followed by the resolved MeSH terms.
func ConditionTerms(label string, meshTerms []string) []string {
	return NormalizeTerms(append([]string{label}, meshTerms...))
}

// MeshSignature is the stable fingerprint of a resolved vocabulary:
// the sorted, normalized terms joined with "|".
func MeshSignature(terms []string) string {
	normalized := NormalizeTerms(terms)
	slices.Sort(normalized)
	return strings.Join(normalized, "|")
}
