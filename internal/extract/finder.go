// Package extract finds drug-mention windows in article text, classifies and
// tags them, and turns one article into pruned, scored snippets.
package extract

import (
	"iter"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Match is one window around a drug mention. Offsets are byte positions in
// the normalized text; Left/Right are half-open.
type Match struct {
	Text       string
	Left       int
	Right      int
	MatchStart int
	MatchEnd   int
}

// NormalizeText collapses all whitespace runs to single spaces.
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Finder locates whole-word drug mentions. Compiled patterns are shared, so
// one Finder serves every article.
type Finder struct {
	radius   int
	terms    []string
	patterns map[string]*regexp.Regexp
}

// MinWindowRadius is the smallest accepted window radius.
const MinWindowRadius = 100

// NewFinder compiles a case-insensitive whole-word pattern per term.
func NewFinder(terms []string, radius int) *Finder {
	f := &Finder{
		radius:   max(radius, MinWindowRadius),
		patterns: make(map[string]*regexp.Regexp, len(terms)),
	}
	for _, term := range terms {
		if term == "" {
			continue
		}
		if _, dup := f.patterns[term]; dup {
			continue
		}
		f.terms = append(f.terms, term)
		f.patterns[term] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(term) + `\b`)
	}
	return f
}

// Terms returns the vocabulary in search order.
func (f *Finder) Terms() []string {
	return f.terms
}

// Windows yields one window per occurrence of term in text, in text order.
// text must already be normalized. The sequence is lazy and can be ranged
// over any number of times.
func (f *Finder) Windows(text, term string) iter.Seq[Match] {
	re, ok := f.patterns[term]
	return func(yield func(Match) bool) {
		if !ok || text == "" {
			return
		}
		for _, loc := range re.FindAllStringIndex(text, -1) {
			m, ok := window(text, loc[0], loc[1], f.radius)
			if !ok {
				continue
			}
			if !yield(m) {
				return
			}
		}
	}
}

// All yields (term, window) for every term in the vocabulary.
func (f *Finder) All(text string) iter.Seq2[string, Match] {
	return func(yield func(string, Match) bool) {
		for _, term := range f.terms {
			for m := range f.Windows(text, term) {
				if !yield(term, m) {
					return
				}
			}
		}
	}
}

// window cuts [ms-radius, me+radius) out of text and trims it inward to
// whitespace so no word is split. The match itself is always kept.
func window(text string, ms, me, radius int) (Match, bool) {
	left := max(0, ms-radius)
	right := min(len(text), me+radius)

	if left > 0 && text[left-1] != ' ' {
		if i := strings.IndexByte(text[left:ms], ' '); i >= 0 {
			left += i + 1
		} else {
			for left < ms && !utf8.RuneStart(text[left]) {
				left++
			}
		}
	}
	if right < len(text) && text[right] != ' ' {
		if i := strings.LastIndexByte(text[me:right], ' '); i >= 0 {
			right = me + i
		} else {
			for right > me && !utf8.RuneStart(text[right]) {
				right--
			}
		}
	}

	for left < ms && text[left] == ' ' {
		left++
	}
	for right > me && text[right-1] == ' ' {
		right--
	}
	if left >= right {
		return Match{}, false
	}
	return Match{
		Text:       text[left:right],
		Left:       left,
		Right:      right,
		MatchStart: ms,
		MatchEnd:   me,
	}, true
}
