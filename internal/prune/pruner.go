package prune

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/ppiankov/claimsift/internal/model"
)

// Windows removes overlapping same-drug windows and exact duplicates from
// the candidates of one article. Candidates are visited in input order.
//
// A candidate that overlaps active windows of its own drug survives only
// if it scores strictly higher than every one of them; it then takes the
// place of the first and the others are dropped. Overlaps between
// different drugs never collide. Running Windows on its own output
// returns the same windows.
func Windows(candidates []model.Window) []model.Window {
	if len(candidates) == 0 {
		return nil
	}

	var (
		slots []model.Window
		alive []bool
		keys  = make(map[string]int) // key -> slot
	)

	for _, c := range candidates {
		var hits []int
		for i, w := range slots {
			if alive[i] && sameDrug(w, c) && w.Overlaps(c) {
				hits = append(hits, i)
			}
		}

		if len(hits) == 0 {
			if _, dup := keys[c.Key]; dup {
				continue
			}
			keys[c.Key] = len(slots)
			slots = append(slots, c)
			alive = append(alive, true)
			continue
		}

		if !beatsAll(c, slots, hits) {
			continue
		}
		// Same text held elsewhere by a survivor this candidate does not replace.
		if slot, dup := keys[c.Key]; dup && !slices.Contains(hits, slot) {
			continue
		}

		for _, i := range hits {
			delete(keys, slots[i].Key)
			alive[i] = false
		}
		first := hits[0]
		slots[first] = c
		alive[first] = true
		keys[c.Key] = first
	}

	out := make([]model.Window, 0, len(slots))
	for i, w := range slots {
		if alive[i] {
			out = append(out, w)
		}
	}
	return out
}

// Snippets assigns snippet ids in span order and returns the snippets.
// IDs have the form "<pmid>-s<n>", numbered from 1.
func Snippets(windows []model.Window) []model.Snippet {
	if len(windows) == 0 {
		return nil
	}
	ordered := make([]model.Window, len(windows))
	copy(ordered, windows)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Left != ordered[j].Left {
			return ordered[i].Left < ordered[j].Left
		}
		return ordered[i].Snippet.Drug < ordered[j].Snippet.Drug
	})

	out := make([]model.Snippet, len(ordered))
	for i, w := range ordered {
		s := w.Snippet
		s.ID = fmt.Sprintf("%s-s%d", s.ArticleID, i+1)
		out[i] = s
	}
	return out
}

func sameDrug(a, b model.Window) bool {
	return strings.EqualFold(a.Snippet.Drug, b.Snippet.Drug)
}

func beatsAll(c model.Window, slots []model.Window, hits []int) bool {
	for _, i := range hits {
		if c.Snippet.Score <= slots[i].Snippet.Score {
			return false
		}
	}
	return true
}
