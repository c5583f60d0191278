// Package source loads article files and converts article bodies to the
// plain text the extractor scans.
package source

import (
	"strings"
)

// Adapter converts one body format to plain text.
type Adapter interface {
	// Name returns the adapter name
	Name() string

	// CanHandle reports whether the adapter accepts the declared format
	CanHandle(format string) bool

	// Text returns the visible text of body
	Text(body string) (string, error)
}

// Registry manages body adapters
type Registry struct {
	adapters []Adapter
	generic  Adapter
}

// NewRegistry creates a registry with the built-in HTML and JATS
// adapters and plain text as the fallback.
func NewRegistry() *Registry {
	registry := &Registry{}

	registry.Register(NewHTMLAdapter())
	registry.Register(NewJATSAdapter())

	registry.generic = NewTextAdapter()
	return registry
}

// Register registers a new adapter. Later registrations are tried last.
func (r *Registry) Register(adapter Adapter) {
	r.adapters = append(r.adapters, adapter)
}

// FindAdapter finds the adapter for format, falling back to plain text
func (r *Registry) FindAdapter(format string) Adapter {
	format = strings.ToLower(strings.TrimSpace(format))
	for _, adapter := range r.adapters {
		if adapter.CanHandle(format) {
			return adapter
		}
	}
	return r.generic
}

// TextAdapter passes plain text through with whitespace collapsed.
type TextAdapter struct{}

// NewTextAdapter creates the plain text adapter
func NewTextAdapter() *TextAdapter {
	return &TextAdapter{}
}

// Name returns the adapter name
func (a *TextAdapter) Name() string {
	return "text"
}

// CanHandle accepts "text", "plain" and an empty format
func (a *TextAdapter) CanHandle(format string) bool {
	switch format {
	case "", "text", "plain", "txt":
		return true
	}
	return false
}

// Text returns body with runs of whitespace collapsed
func (a *TextAdapter) Text(body string) (string, error) {
	return collapse(body), nil
}

func collapse(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
