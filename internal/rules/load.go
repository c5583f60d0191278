package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML rule file on top of the defaults. Any table present in
// the file replaces the default table of the same name; absent tables keep
// their defaults.
func Load(path string) (Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Tables{}, fmt.Errorf("read rules: %w", err)
	}
	return Parse(data)
}

// Parse is Load for in-memory YAML.
func Parse(data []byte) (Tables, error) {
	t := Default()
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Tables{}, fmt.Errorf("parse rules: %w", err)
	}
	if len(t.RiskCues) == 0 && len(t.SafetyCues) == 0 {
		return Tables{}, fmt.Errorf("parse rules: risk_cues and safety_cues are both empty")
	}
	return t.normalize(), nil
}

// Normalize lowercases and trims every phrase in t.
func Normalize(t Tables) Tables {
	return t.normalize()
}

// LoadOrDefault returns Load(path) when path is set, otherwise Default().
func LoadOrDefault(path string) (Tables, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}
