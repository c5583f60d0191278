package aggregate

import (
	"strings"
	"unicode"

	"github.com/ppiankov/claimsift/internal/model"
	"github.com/ppiankov/claimsift/internal/rules"
	"github.com/ppiankov/claimsift/internal/vocab"
)

// Reduce drops generic-only claims that are covered by a specific claim in
// the same classification. A claim is generic-only when every drug it
// names resolves to a generic-class term. It is covered when it shares a
// vocabulary word or a drug class with a specific claim. Buckets without
// a specific claim are left intact.
func Reduce(claims []model.AggregatedClaim, resolver *vocab.Resolver) []model.AggregatedClaim {
	if len(claims) == 0 {
		return claims
	}
	if resolver == nil {
		resolver = vocab.DefaultResolver()
	}

	generic := make([]bool, len(claims))
	specific := make(map[model.Classification][]profile)
	for i, c := range claims {
		generic[i] = isGeneric(c, resolver)
		if !generic[i] {
			specific[c.Classification] = append(specific[c.Classification], newProfile(c, resolver))
		}
	}

	out := make([]model.AggregatedClaim, 0, len(claims))
	for i, c := range claims {
		if generic[i] && covered(newProfile(c, resolver), specific[c.Classification]) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func isGeneric(c model.AggregatedClaim, resolver *vocab.Resolver) bool {
	if len(c.Drugs) == 0 {
		return false
	}
	for _, d := range c.Drugs {
		if !resolver.IsGeneric(d) {
			return false
		}
	}
	return true
}

type profile struct {
	words   map[string]bool
	classes map[string]bool
}

func newProfile(c model.AggregatedClaim, resolver *vocab.Resolver) profile {
	p := profile{words: make(map[string]bool), classes: make(map[string]bool)}
	add := func(term string) {
		for _, w := range words(term) {
			p.words[w] = true
		}
	}
	for _, d := range c.Drugs {
		add(d)
		g := resolver.Resolve(d)
		add(g.Label)
		for _, cls := range g.Classes {
			p.classes[strings.ToLower(cls)] = true
			add(cls)
		}
	}
	for _, cls := range c.DrugClasses {
		if strings.EqualFold(cls, rules.RoleGenericClass) {
			continue
		}
		p.classes[strings.ToLower(cls)] = true
		add(cls)
	}
	return p
}

func covered(p profile, specifics []profile) bool {
	for _, s := range specifics {
		for cls := range p.classes {
			if s.classes[cls] {
				return true
			}
		}
		for w := range p.words {
			if s.words[w] {
				return true
			}
		}
	}
	return false
}

// words splits a term into lowercase vocabulary words, ignoring short
// connectors and folding a plural "s".
func words(term string) []string {
	fields := strings.FieldsFunc(strings.ToLower(term), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var out []string
	for _, f := range fields {
		if len(f) < 4 || stopWords[f] {
			continue
		}
		if len(f) > 4 && strings.HasSuffix(f, "s") && !strings.HasSuffix(f, "ss") {
			f = strings.TrimSuffix(f, "s")
		}
		out = append(out, f)
	}
	return out
}

var stopWords = map[string]bool{
	"drug": true, "drugs": true, "agent": true, "agents": true,
	"class": true, "generic": true, "with": true, "therapy": true,
}
