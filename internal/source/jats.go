package source

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// JATSAdapter extracts the abstract and body text of a JATS XML article,
// the format PubMed Central serves full text in.
type JATSAdapter struct{}

// NewJATSAdapter creates the JATS adapter
func NewJATSAdapter() *JATSAdapter {
	return &JATSAdapter{}
}

// Name returns the adapter name
func (a *JATSAdapter) Name() string {
	return "jats"
}

// CanHandle accepts "jats" and "xml"
func (a *JATSAdapter) CanHandle(format string) bool {
	return format == "jats" || format == "xml"
}

// Text returns the character data inside <abstract> and <body>, skipping
// reference lists, tables and figures. A document with neither section
// yields all of its character data.
func (a *JATSAdapter) Text(body string) (string, error) {
	dec := xml.NewDecoder(strings.NewReader(body))
	dec.Strict = false
	dec.Entity = xml.HTMLEntity

	var (
		sections strings.Builder
		all      strings.Builder
		inside   int // depth inside abstract/body
		skip     int // depth inside skipped elements
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse jats: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case skipped[t.Name.Local]:
				skip++
			case t.Name.Local == "abstract" || t.Name.Local == "body":
				inside++
			}
		case xml.EndElement:
			switch {
			case skipped[t.Name.Local] && skip > 0:
				skip--
			case (t.Name.Local == "abstract" || t.Name.Local == "body") && inside > 0:
				inside--
			}
			all.WriteString(" ")
			if inside > 0 {
				sections.WriteString(" ")
			}
		case xml.CharData:
			if skip > 0 {
				continue
			}
			all.Write(t)
			if inside > 0 {
				sections.Write(t)
			}
		}
	}

	if text := collapse(sections.String()); text != "" {
		return text, nil
	}
	return collapse(all.String()), nil
}

var skipped = map[string]bool{
	"ref-list":     true,
	"table-wrap":   true,
	"fig":          true,
	"xref":         true,
	"front-stub":   true,
	"journal-meta": true,
}
