// Package kickstart implements the candidate prefilters that let the
// engine skip positions where no match can begin. A filter may report
// false positives — the full matcher validates every candidate — but
// never false negatives.
//
// Three filters exist, tried in order of precision:
//
//   - a multi-literal filter over an Aho-Corasick automaton, for patterns
//     that are a plain alternation of literal strings;
//   - a word-wide Bit-NFA covering patterns with at most 31 consuming
//     atoms;
//   - a Shift-Or filter over the first bytes of the possible prefixes.
package kickstart

import (
	"unicode/utf8"

	"github.com/coregx/ahocorasick"
	"github.com/coregx/revm/compiler"
	"github.com/coregx/revm/input"
	"github.com/coregx/revm/ir"
)

// Build selects and constructs the best available prefilter for the
// compiled program, or nil when none applies (anchored programs never
// take a kickstart).
func Build(c *compiler.Compiled) input.Prefilter {
	if c.OneShot {
		return nil
	}
	if lits, ok := literalAlternatives(c); ok && len(lits) >= 2 {
		if f := newLiteralSet(lits); f != nil {
			return f
		}
	}
	if f := NewBitNFA(c); f != nil {
		return f
	}
	if f := NewShiftOr(c); f != nil {
		return f
	}
	return nil
}

// literalAlternatives decomposes the program into a set of plain literal
// branches. It succeeds only when every branch is a bare Char sequence,
// so a filter hit is exactly a possible match start.
func literalAlternatives(c *compiler.Compiled) ([][]byte, bool) {
	insts := c.Prog.Insts
	var lits [][]byte
	var cur []byte
	branches := 0

	flush := func() bool {
		if len(cur) == 0 {
			return false
		}
		lits = append(lits, cur)
		cur = nil
		return true
	}

	for pc := 0; pc < len(insts); {
		inst := insts[pc]
		switch inst.Op() {
		case ir.OpChar:
			cur = utf8.AppendRune(cur, rune(inst.Data()))
			pc++
		case ir.OpOrStart:
			pc++
		case ir.OpOption:
			branches++
			pc++
		case ir.OpGotoEndOr:
			if !flush() {
				return nil, false
			}
			pc++
		case ir.OpOrEnd:
			if !flush() {
				return nil, false
			}
			pc += 2
		case ir.OpEnd:
			flush()
			pc++
		default:
			return nil, false
		}
	}
	if branches > 0 && len(lits) != branches {
		return nil, false
	}
	return lits, len(lits) > 0
}

// literalSet is the multi-literal filter: an Aho-Corasick automaton over
// the branch literals reports the next occurrence of any of them.
type literalSet struct {
	auto *ahocorasick.Automaton
}

func newLiteralSet(lits [][]byte) input.Prefilter {
	builder := ahocorasick.NewBuilder()
	for _, l := range lits {
		builder.AddPattern(l)
	}
	auto, err := builder.Build()
	if err != nil {
		return nil
	}
	return &literalSet{auto: auto}
}

// Search implements input.Prefilter.
func (f *literalSet) Search(haystack []byte, start int) int {
	if start >= len(haystack) {
		return -1
	}
	m := f.auto.Find(haystack, start)
	if m == nil {
		return -1
	}
	return m.Start
}
