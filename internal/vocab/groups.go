// Package vocab resolves literal drug names to canonical drug groups and
// builds the term lists the extractor searches for.
package vocab

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/claimsift/internal/rules"
)

// Group is the canonical identity of a drug name.
type Group struct {
	Key     string   `json:"key"`
	Label   string   `json:"label"`
	Classes []string `json:"classes,omitempty"`
	Roles   []string `json:"roles,omitempty"` // e.g. "generic-class", "mh-therapy"
}

// Generic reports whether the name was a broad category rather than an agent.
func (g Group) Generic() bool {
	return slices.Contains(g.Roles, rules.RoleGenericClass)
}

// GroupDef declares one drug group in the vocabulary table.
type GroupDef struct {
	Key          string   `yaml:"key"`
	Label        string   `yaml:"label"`
	Classes      []string `yaml:"classes"`
	Terms        []string `yaml:"terms"`         // Specific agents
	GenericTerms []string `yaml:"generic_terms"` // Category words; tagged generic-class
	Roles        []string `yaml:"roles"`         // Applied to every term in the group
}

// DefaultGroups returns the built-in drug group table.
func DefaultGroups() []GroupDef {
	return []GroupDef{
		{
			Key:     "volatile-anesthetics",
			Label:   "volatile anesthetics",
			Classes: []string{"volatile anesthetic"},
			Terms:   []string{"sevoflurane", "desflurane", "isoflurane", "enflurane", "halothane"},
			GenericTerms: []string{
				"volatile", "volatile anesthetic", "volatile anaesthetic",
				"volatile anesthetics", "volatile anaesthetics", "volatile agent",
				"volatile agents", "inhalational anesthetic", "inhalational anaesthetic",
			},
		},
		{
			Key:     "depolarising-neuromuscular-blockers",
			Label:   "depolarising neuromuscular blockers",
			Classes: []string{"depolarising neuromuscular blocker"},
			Terms:   []string{"succinylcholine", "suxamethonium"},
		},
		{
			Key:     "non-depolarising-neuromuscular-blockers",
			Label:   "non-depolarising neuromuscular blockers",
			Classes: []string{"non-depolarising neuromuscular blocker"},
			Terms: []string{
				"rocuronium", "vecuronium", "pancuronium", "atracurium",
				"cisatracurium", "mivacurium", "pipecuronium", "gallamine",
			},
		},
		{
			Key:     "neuromuscular-blockers",
			Label:   "neuromuscular blocking agents",
			Classes: []string{"neuromuscular blocking agent"},
			GenericTerms: []string{
				"neuromuscular", "neuromuscular blockade", "neuromuscular blocker",
				"neuromuscular blockers", "neuromuscular blocking agent",
				"neuromuscular blocking agents", "muscle relaxant", "muscle relaxants",
			},
		},
		{
			Key:          "opioids",
			Label:        "opioids",
			Classes:      []string{"opioid analgesic"},
			Terms:        []string{"morphine", "fentanyl", "remifentanil"},
			GenericTerms: []string{"opioid", "opioids", "analgesic opioid"},
		},
		{
			Key:          "benzodiazepines",
			Label:        "benzodiazepines",
			Classes:      []string{"benzodiazepine"},
			Terms:        []string{"midazolam"},
			GenericTerms: []string{"benzodiazepine", "benzodiazepines"},
		},
		{
			Key:     "dantrolene",
			Label:   "dantrolene",
			Classes: []string{"ryr1 modulator"},
			Terms:   []string{"dantrolene"},
			Roles:   []string{rules.RoleMHTherapy},
		},
	}
}

// LoadGroups reads a YAML list of group definitions.
func LoadGroups(path string) ([]GroupDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read drug groups: %w", err)
	}
	var defs []GroupDef
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("parse drug groups: %w", err)
	}
	for i, d := range defs {
		if d.Key == "" {
			return nil, fmt.Errorf("parse drug groups: entry %d has no key", i)
		}
	}
	return defs, nil
}

// Resolver maps literal drug names to groups. The index is read-only after
// construction, so a Resolver is safe for concurrent use.
type Resolver struct {
	index map[string]Group
}

// NewResolver indexes defs. Later definitions win on duplicate terms.
func NewResolver(defs []GroupDef) *Resolver {
	index := make(map[string]Group)
	for _, d := range defs {
		label := d.Label
		if label == "" {
			label = d.Key
		}
		register := func(term string, generic bool) {
			roles := slices.Clone(d.Roles)
			if generic {
				roles = append(roles, rules.RoleGenericClass)
			}
			slices.Sort(roles)
			index[strings.ToLower(strings.TrimSpace(term))] = Group{
				Key:     d.Key,
				Label:   label,
				Classes: slices.Clone(d.Classes),
				Roles:   slices.Compact(roles),
			}
		}
		for _, term := range d.Terms {
			register(term, false)
		}
		for _, term := range d.GenericTerms {
			register(term, true)
		}
	}
	return &Resolver{index: index}
}

// DefaultResolver is NewResolver(DefaultGroups()).
func DefaultResolver() *Resolver {
	return NewResolver(DefaultGroups())
}

// Resolve returns the group for name. Unknown names form their own group
// keyed by the lowercase name; an empty name resolves to "unknown".
func (r *Resolver) Resolve(name string) Group {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return Group{Key: "unknown", Label: "unknown"}
	}
	if group, ok := r.index[normalized]; ok {
		return group
	}
	return Group{Key: normalized, Label: strings.TrimSpace(name)}
}

// IsGeneric reports whether name resolves to a generic-class term.
func (r *Resolver) IsGeneric(name string) bool {
	return r.Resolve(name).Generic()
}

// Terms lists every indexed drug name, sorted.
func (r *Resolver) Terms() []string {
	terms := make([]string, 0, len(r.index))
	for term := range r.index {
		terms = append(terms, term)
	}
	slices.Sort(terms)
	return terms
}
