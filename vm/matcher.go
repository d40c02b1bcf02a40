// Package vm contains the two bytecode execution engines: a breadth-first
// Thompson simulator (thompson.go) and a depth-first backtracker
// (backtrack.go). Both interpret the same programs over the same input
// abstraction; the engine in the root package picks one per pattern.
package vm

import (
	"unicode"
	"unicode/utf8"

	"github.com/coregx/revm/compiler"
	"github.com/coregx/revm/input"
	"github.com/coregx/revm/ir"
)

// Matcher is one match engine bound to a program and an input. A matcher
// owns its scratch memory and is not safe for concurrent use; the bound
// Compiled program is shared read-only.
type Matcher interface {
	// Run searches for the leftmost match at or after position at.
	// groups holds 2*NGroup offsets: groups[2k], groups[2k+1] delimit
	// group k; group 0 is the whole match. Unmatched groups stay zero.
	Run(at int) (groups []int, ok bool)
}

// isLineBreak reports whether r terminates a line.
func isLineBreak(r rune) bool {
	switch r {
	case '\n', '\r', '\u0085', '\u2028', '\u2029':
		return true
	}
	return false
}

// isWordRune reports whether r belongs to \w.
func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// matchesConsuming reports whether the consuming instruction at pc matches
// codepoint r, and how many words the instruction occupies (an OrChar run
// counts as one unit).
func matchesConsuming(c *compiler.Compiled, insts []ir.Inst, pc int, r rune) (ok bool, width int) {
	inst := insts[pc]
	switch inst.Op() {
	case ir.OpChar:
		return rune(inst.Data()) == r, 1
	case ir.OpOrChar:
		seq := inst.Sequence()
		for k := 0; k < seq; k++ {
			if rune(insts[pc+k].Data()) == r {
				return true, seq
			}
		}
		return false, seq
	case ir.OpAny:
		if c.Flags&compiler.FlagSingleline == 0 && (r == '\n' || r == '\r') {
			return false, 1
		}
		return true, 1
	case ir.OpCodepointSet:
		return c.Sets[inst.Data()].Contains(r), 1
	case ir.OpTrie:
		return c.Tries[inst.Data()].Lookup(r) != 0, 1
	}
	return false, 0
}

// checkBol implements the ^ assertion at absolute index idx.
func checkBol(c *compiler.Compiled, in input.Input, idx int) bool {
	if idx == 0 {
		return true
	}
	if c.Flags&compiler.FlagMultiline == 0 {
		return false
	}
	prev, ok := input.RuneBefore(in, idx)
	return ok && isLineBreak(prev)
}

// checkEol implements the $ assertion at absolute index idx. In multiline
// mode it matches before a line terminator but never between the halves
// of a \r\n pair.
func checkEol(c *compiler.Compiled, in input.Input, idx int) bool {
	next, ok := input.RuneAt(in, idx)
	if !ok {
		return true
	}
	if c.Flags&compiler.FlagMultiline == 0 {
		return false
	}
	if !isLineBreak(next) {
		return false
	}
	if next == '\n' {
		if prev, ok := input.RuneBefore(in, idx); ok && prev == '\r' {
			return false
		}
	}
	return true
}

// checkWordBoundary implements \b (and, negated, \B) at index idx.
func checkWordBoundary(in input.Input, idx int) bool {
	prev, pok := input.RuneBefore(in, idx)
	next, nok := input.RuneAt(in, idx)
	pw := pok && isWordRune(prev)
	nw := nok && isWordRune(next)
	return pw != nw
}

// backrefRune returns the codepoint at byte progress 'uop' into the
// captured span, scanning forward or backward depending on the matcher
// direction, together with its encoded width.
func backrefRune(span []byte, uop int, reversed bool) (rune, int) {
	if reversed {
		r, size := utf8.DecodeLastRune(span[:len(span)-uop])
		return r, size
	}
	r, size := utf8.DecodeRune(span[uop:])
	return r, size
}

// lookHeader unpacks a lookaround start instruction at pc.
type lookHeader struct {
	op       ir.Opcode
	bodyLen  int
	ms, me   int // half-open window of capture indices owned by the body
	negative bool
	behind   bool
}

func readLookHeader(insts []ir.Inst, pc int) lookHeader {
	inst := insts[pc]
	op := inst.Op()
	return lookHeader{
		op:       op,
		bodyLen:  int(inst.Data()),
		ms:       int(insts[pc+1].Raw()),
		me:       int(insts[pc+2].Raw()),
		negative: op == ir.OpNeglookaheadStart || op == ir.OpNeglookbehindStart,
		behind:   op == ir.OpLookbehindStart || op == ir.OpNeglookbehindStart,
	}
}
