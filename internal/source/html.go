package source

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// HTMLAdapter extracts visible text from HTML article pages.
type HTMLAdapter struct{}

// NewHTMLAdapter creates the HTML adapter
func NewHTMLAdapter() *HTMLAdapter {
	return &HTMLAdapter{}
}

// Name returns the adapter name
func (a *HTMLAdapter) Name() string {
	return "html"
}

// CanHandle accepts "html" and "xhtml"
func (a *HTMLAdapter) CanHandle(format string) bool {
	return format == "html" || format == "xhtml"
}

// Text parses body and returns its visible text. Block elements end
// with a space so words from adjacent paragraphs do not run together.
func (a *HTMLAdapter) Text(body string) (string, error) {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	return collapse(visibleText(doc)), nil
}

// visibleText extracts text nodes, skipping scripts and styles
func visibleText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "head", "nav", "footer":
				return
			}
		}

		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if n.Type == html.ElementNode && !inline[n.Data] {
			buf.WriteString(" ")
		}
	}

	walk(n)
	return buf.String()
}

var inline = map[string]bool{
	"a": true, "abbr": true, "b": true, "em": true, "i": true, "span": true,
	"strong": true, "sub": true, "sup": true, "small": true, "code": true,
}
