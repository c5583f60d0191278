// Package rules holds the cue tables that drive snippet classification and
// tagging. Tables are plain data; one evaluation path reads whichever set is
// active, and alternative sets are loaded from YAML.
package rules

import "strings"

// LabelTerms maps one label to the phrases that trigger it.
type LabelTerms struct {
	Label string   `yaml:"label"`
	Terms []string `yaml:"terms"`
}

// RoleOverride forces a safety classification when a drug with Role is
// described in its therapeutic context.
type RoleOverride struct {
	Role           string   `yaml:"role"`
	ConditionTerms []string `yaml:"condition_terms"`
	Keywords       []string `yaml:"keywords"`
	Exclusions     []string `yaml:"exclusions"`
}

// Tables is the full rule set.
type Tables struct {
	RiskCues          []string       `yaml:"risk_cues"`
	SafetyCues        []string       `yaml:"safety_cues"`
	NegationPatterns  []string       `yaml:"negation_patterns"` // "{}" is replaced by the cue
	SevereAlways      []string       `yaml:"severe_always"`
	SevereConditional []string       `yaml:"severe_conditional"`
	SevereQualifiers  []string       `yaml:"severe_qualifiers"`
	SevereIgnored     []string       `yaml:"severe_ignored"`
	TherapyRoles      []LabelTerms   `yaml:"therapy_roles"`
	MechanismAlerts   []LabelTerms   `yaml:"mechanism_alerts"`
	RoleOverrides     []RoleOverride `yaml:"role_overrides"`
}

// Override returns the configured override for role, if any.
func (t Tables) Override(role string) (RoleOverride, bool) {
	for _, o := range t.RoleOverrides {
		if o.Role == role {
			return o, true
		}
	}
	return RoleOverride{}, false
}

// Negated reports whether cue occurs in lower only inside a negation pattern.
// lower must already be lowercased.
func (t Tables) Negated(lower, cue string) bool {
	for _, pattern := range t.NegationPatterns {
		if strings.Contains(lower, strings.ReplaceAll(pattern, "{}", cue)) {
			return true
		}
	}
	return false
}

// normalize lowercases every phrase so matching can run on lowered text.
func (t Tables) normalize() Tables {
	out := Tables{
		RiskCues:          lowerAll(t.RiskCues),
		SafetyCues:        lowerAll(t.SafetyCues),
		NegationPatterns:  lowerAll(t.NegationPatterns),
		SevereAlways:      lowerAll(t.SevereAlways),
		SevereConditional: lowerAll(t.SevereConditional),
		SevereQualifiers:  lowerAll(t.SevereQualifiers),
		SevereIgnored:     lowerAll(t.SevereIgnored),
	}
	for _, lt := range t.TherapyRoles {
		out.TherapyRoles = append(out.TherapyRoles, LabelTerms{Label: lt.Label, Terms: lowerAll(lt.Terms)})
	}
	for _, lt := range t.MechanismAlerts {
		out.MechanismAlerts = append(out.MechanismAlerts, LabelTerms{Label: lt.Label, Terms: lowerAll(lt.Terms)})
	}
	for _, o := range t.RoleOverrides {
		out.RoleOverrides = append(out.RoleOverrides, RoleOverride{
			Role:           o.Role,
			ConditionTerms: lowerAll(o.ConditionTerms),
			Keywords:       lowerAll(o.Keywords),
			Exclusions:     lowerAll(o.Exclusions),
		})
	}
	return out
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// ContainsAny reports whether lower contains any of the phrases.
func ContainsAny(lower string, phrases []string) bool {
	for _, p := range phrases {
		if p != "" && strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
