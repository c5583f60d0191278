package source

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/claimsift/internal/model"
)

// LoadFile reads a corpus from a .json, .yaml or .yml file. Article
// bodies are converted to plain text through the default registry.
func LoadFile(path string) (*model.Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read articles: %w", err)
	}

	format := strings.ToLower(filepath.Ext(path))
	corpus, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return corpus, nil
}

// Parse decodes a corpus. ext selects the decoder; anything other than
// ".json" is read as YAML, which also accepts JSON.
func Parse(data []byte, ext string) (*model.Corpus, error) {
	var corpus model.Corpus
	if ext == ".json" {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&corpus); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &corpus); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	if err := Normalize(&corpus, NewRegistry()); err != nil {
		return nil, err
	}
	return &corpus, nil
}

// Normalize validates the corpus and converts every article body to
// plain text. Ranks default to input order.
func Normalize(corpus *model.Corpus, registry *Registry) error {
	corpus.Condition = strings.TrimSpace(corpus.Condition)

	seen := make(map[string]bool, len(corpus.Articles))
	for i := range corpus.Articles {
		a := &corpus.Articles[i]
		a.PMID = strings.TrimSpace(a.PMID)
		if a.PMID == "" {
			return fmt.Errorf("article %d: pmid is required", i)
		}
		if seen[a.PMID] {
			return fmt.Errorf("article %d: duplicate pmid %s", i, a.PMID)
		}
		seen[a.PMID] = true

		if a.Rank <= 0 {
			a.Rank = i + 1
		}

		adapter := registry.FindAdapter(a.Format)
		text, err := adapter.Text(a.Text)
		if err != nil {
			return fmt.Errorf("article %s: %w", a.PMID, err)
		}
		a.Text = text
		a.Format = adapter.Name()
	}
	return nil
}
