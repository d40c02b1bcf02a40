// Package charclass implements codepoint sets stored as ordered half-open
// intervals, the set algebra the class parser needs, and a paged trie for
// fast membership tests on large sets.
package charclass

import (
	"fmt"
	"strings"
	"unicode"
)

// MaxCodepoint is one past the largest valid Unicode scalar value.
const MaxCodepoint = unicode.MaxRune + 1

// Interval is a half-open codepoint range [Lo, Hi).
type Interval struct {
	Lo, Hi rune
}

// Set is a codepoint set in canonical form: intervals are non-empty,
// disjoint, non-adjacent and ascending. The zero value is the empty set.
type Set struct {
	ivals []Interval
}

// NewSet returns a set containing the given intervals, normalized.
func NewSet(ivals ...Interval) Set {
	var s Set
	for _, iv := range ivals {
		s = s.AddRange(iv.Lo, iv.Hi)
	}
	return s
}

// Single returns a set holding one codepoint.
func Single(r rune) Set { return Set{ivals: []Interval{{r, r + 1}}} }

// Intervals returns the canonical interval list. Callers must not mutate it.
func (s Set) Intervals() []Interval { return s.ivals }

// IsEmpty reports whether the set has no members.
func (s Set) IsEmpty() bool { return len(s.ivals) == 0 }

// Size returns the number of codepoints in the set.
func (s Set) Size() int {
	n := 0
	for _, iv := range s.ivals {
		n += int(iv.Hi - iv.Lo)
	}
	return n
}

// Contains reports membership by binary search over the intervals.
func (s Set) Contains(r rune) bool {
	lo, hi := 0, len(s.ivals)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case r < s.ivals[mid].Lo:
			hi = mid
		case r >= s.ivals[mid].Hi:
			lo = mid + 1
		default:
			return true
		}
	}
	return false
}

// AddRange returns the set with [lo, hi) merged in.
func (s Set) AddRange(lo, hi rune) Set {
	if lo >= hi {
		return s
	}
	return s.Union(Set{ivals: []Interval{{lo, hi}}})
}

// Add returns the set with a single codepoint merged in.
func (s Set) Add(r rune) Set { return s.AddRange(r, r+1) }

// merge sweeps two canonical interval lists and keeps positions where
// keep(inA, inB) holds. All binary set operations reduce to this.
func merge(a, b []Interval, keep func(inA, inB bool) bool) Set {
	type edge struct {
		at    rune
		isA   bool
		enter bool
	}
	edges := make([]edge, 0, 2*(len(a)+len(b)))
	for _, iv := range a {
		edges = append(edges, edge{iv.Lo, true, true}, edge{iv.Hi, true, false})
	}
	for _, iv := range b {
		edges = append(edges, edge{iv.Lo, false, true}, edge{iv.Hi, false, false})
	}
	// Insertion sort by position; interval lists are short in practice.
	for i := 1; i < len(edges); i++ {
		for j := i; j > 0 && edges[j].at < edges[j-1].at; j-- {
			edges[j], edges[j-1] = edges[j-1], edges[j]
		}
	}

	var out Set
	var inA, inB, inside bool
	var start rune
	i := 0
	for i < len(edges) {
		at := edges[i].at
		for i < len(edges) && edges[i].at == at {
			if edges[i].isA {
				inA = edges[i].enter
			} else {
				inB = edges[i].enter
			}
			i++
		}
		now := keep(inA, inB)
		if now && !inside {
			start = at
			inside = true
		} else if !now && inside {
			out = out.appendCoalesced(start, at)
			inside = false
		}
	}
	return out
}

// appendCoalesced appends [lo, hi), fusing with the previous interval when
// adjacent. Only valid when lo is >= every existing bound.
func (s Set) appendCoalesced(lo, hi rune) Set {
	if lo >= hi {
		return s
	}
	if n := len(s.ivals); n > 0 && s.ivals[n-1].Hi >= lo {
		if hi > s.ivals[n-1].Hi {
			s.ivals[n-1].Hi = hi
		}
		return s
	}
	s.ivals = append(s.ivals[:len(s.ivals):len(s.ivals)], Interval{lo, hi})
	return s
}

// Union returns s | o.
func (s Set) Union(o Set) Set {
	return merge(s.ivals, o.ivals, func(a, b bool) bool { return a || b })
}

// Intersect returns s & o.
func (s Set) Intersect(o Set) Set {
	return merge(s.ivals, o.ivals, func(a, b bool) bool { return a && b })
}

// Subtract returns s - o.
func (s Set) Subtract(o Set) Set {
	return merge(s.ivals, o.ivals, func(a, b bool) bool { return a && !b })
}

// SymDiff returns s ~ o, members of exactly one operand.
func (s Set) SymDiff(o Set) Set {
	return merge(s.ivals, o.ivals, func(a, b bool) bool { return a != b })
}

// Negate returns the complement of s over the Unicode range.
func (s Set) Negate() Set {
	full := Set{ivals: []Interval{{0, MaxCodepoint}}}
	return full.Subtract(s)
}

// Equal reports whether two sets contain the same codepoints.
func (s Set) Equal(o Set) bool {
	if len(s.ivals) != len(o.ivals) {
		return false
	}
	for i, iv := range s.ivals {
		if o.ivals[i] != iv {
			return false
		}
	}
	return true
}

// Key returns a stable identity string for cache lookups.
func (s Set) Key() string {
	var b strings.Builder
	for _, iv := range s.ivals {
		fmt.Fprintf(&b, "%x-%x;", iv.Lo, iv.Hi)
	}
	return b.String()
}

// FromTable converts a stdlib unicode.RangeTable into a Set. Used to
// resolve \p{...} properties against the unicode package's category and
// script tables.
func FromTable(t *unicode.RangeTable) Set {
	var s Set
	for _, r := range t.R16 {
		if r.Stride == 1 {
			s = s.appendCoalesced(rune(r.Lo), rune(r.Hi)+1)
			continue
		}
		for c := rune(r.Lo); c <= rune(r.Hi); c += rune(r.Stride) {
			s = s.appendCoalesced(c, c+1)
		}
	}
	for _, r := range t.R32 {
		if r.Stride == 1 {
			s = s.appendCoalesced(rune(r.Lo), rune(r.Hi)+1)
			continue
		}
		for c := rune(r.Lo); c <= rune(r.Hi); c += rune(r.Stride) {
			s = s.appendCoalesced(c, c+1)
		}
	}
	return s
}

// FoldOrbit returns the simple case-folding orbit of r: every codepoint
// that folds to the same element, r included. The orbit is reported in
// ascending order and has at most a handful of members.
func FoldOrbit(r rune) []rune {
	orbit := []rune{r}
	for c := unicode.SimpleFold(r); c != r; c = unicode.SimpleFold(c) {
		orbit = append(orbit, c)
	}
	for i := 1; i < len(orbit); i++ {
		for j := i; j > 0 && orbit[j] < orbit[j-1]; j-- {
			orbit[j], orbit[j-1] = orbit[j-1], orbit[j]
		}
	}
	return orbit
}

// Fold returns the set closed under simple case folding.
func (s Set) Fold() Set {
	out := s
	for _, iv := range s.ivals {
		for r := iv.Lo; r < iv.Hi; r++ {
			for c := unicode.SimpleFold(r); c != r; c = unicode.SimpleFold(c) {
				out = out.Add(c)
			}
		}
	}
	return out
}

// String renders the set for debugging.
func (s Set) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, iv := range s.ivals {
		if i > 0 {
			b.WriteByte(' ')
		}
		if iv.Hi == iv.Lo+1 {
			fmt.Fprintf(&b, "%q", iv.Lo)
		} else {
			fmt.Fprintf(&b, "%q-%q", iv.Lo, iv.Hi-1)
		}
	}
	b.WriteByte(']')
	return b.String()
}
