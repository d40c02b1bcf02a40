package kickstart

import (
	"math/bits"
	"unicode/utf8"

	"github.com/coregx/revm/charclass"
	"github.com/coregx/revm/compiler"
	"github.com/coregx/revm/ir"
)

// bitNFAMaxStates is the number of consuming atoms a program may hold and
// still fit the machine word; the top bit of the word is left unused.
const bitNFAMaxStates = 31

// BitNFA packs a whole small NFA into one machine word: each consuming
// atom of the program owns a bit, control flow is collapsed into
// precomputed follow sets, and a step is a handful of word operations.
// Two half-instances run the filter: a forward one over the program finds
// a candidate match end, a second one over the reversed program walks
// back from that end to a candidate start.
//
// The filter sees through groups and zero-width assertions (it simply
// treats them as satisfied) and disables itself on back-references or
// programs with more than 31 atoms; the engine then falls back to
// Shift-Or.
type BitNFA struct {
	fwd *bitHalf
	rev *bitHalf
}

// bitHalf is one direction of the filter.
type bitHalf struct {
	// asciiTab[c] has the bit of every atom that accepts codepoint c.
	asciiTab [128]uint32
	// wide resolves non-ASCII codepoints to their accept mask.
	wide *charclass.Trie

	// first is the atom set reachable before consuming anything.
	first uint32
	// follow[i] is the atom set reachable after atom i consumes.
	follow [bitNFAMaxStates + 1]uint32
	// finals has the bit of every atom from which the match end is
	// reachable without consuming more input.
	finals uint32
}

// NewBitNFA builds the filter for the compiled program, or returns nil
// when the program exceeds the state budget or uses a feature the filter
// cannot model.
func NewBitNFA(c *compiler.Compiled) *BitNFA {
	body := c.Prog.Insts
	if n := len(body); n > 0 && body[n-1].Op() == ir.OpEnd {
		body = body[:n-1]
	}
	fwd := buildBitHalf(c, body)
	if fwd == nil {
		return nil
	}
	rev := buildBitHalf(c, ir.Reverse(body))
	if rev == nil {
		return nil
	}
	return &BitNFA{fwd: fwd, rev: rev}
}

// buildBitHalf assigns atom bits in program order and derives the accept
// tables and follow sets.
func buildBitHalf(c *compiler.Compiled, insts []ir.Inst) *bitHalf {
	h := &bitHalf{}

	// First pass: number the consuming atoms.
	atomAt := make(map[int]int)
	n := 0
	for pc := 0; pc < len(insts); {
		inst := insts[pc]
		switch inst.Op() {
		case ir.OpChar, ir.OpAny, ir.OpCodepointSet, ir.OpTrie:
			if n > bitNFAMaxStates {
				return nil
			}
			atomAt[pc] = n
			n++
		case ir.OpOrChar:
			// A whole OrChar run is one atom.
			if n > bitNFAMaxStates {
				return nil
			}
			atomAt[pc] = n
			n++
			pc += inst.Sequence()
			continue
		case ir.OpBackref:
			return nil
		}
		pc += inst.Op().Len()
	}
	if n == 0 || n > bitNFAMaxStates {
		return nil
	}

	// Accept tables.
	for pc, i := range atomAt {
		bit := uint32(1) << uint(i)
		set := atomSet(c, insts, pc)
		for _, iv := range set.Intervals() {
			lo, hi := iv.Lo, iv.Hi
			if lo < 128 {
				top := hi
				if top > 128 {
					top = 128
				}
				for r := lo; r < top; r++ {
					h.asciiTab[r] |= bit
				}
			}
			if hi > 128 {
				if h.wide == nil {
					h.wide = charclass.NewTrie()
				}
				wlo := lo
				if wlo < 128 {
					wlo = 128
				}
				h.wide.ModifyRange(charclass.OpOr, bit, wlo, hi)
			}
		}
	}

	// Closure sets. A program whose end is reachable without consuming
	// any atom can match empty anywhere; no consuming filter is sound
	// for it.
	var emptyMatch uint32
	h.first = h.reach(insts, atomAt, 0, &emptyMatch, 1)
	if emptyMatch != 0 {
		return nil
	}
	for pc, i := range atomAt {
		next := pc + insts[pc].Op().Len()
		if insts[pc].Op() == ir.OpOrChar {
			next = pc + insts[pc].Sequence()
		}
		var final uint32
		h.follow[i] = h.reach(insts, atomAt, next, &final, uint32(1)<<uint(i))
		h.finals |= final
	}
	return h
}

// atomSet returns the codepoint set a consuming atom accepts.
func atomSet(c *compiler.Compiled, insts []ir.Inst, pc int) charclass.Set {
	inst := insts[pc]
	switch inst.Op() {
	case ir.OpChar:
		return charclass.Single(rune(inst.Data()))
	case ir.OpOrChar:
		var s charclass.Set
		for k := 0; k < inst.Sequence(); k++ {
			s = s.Add(rune(insts[pc+k].Data()))
		}
		return s
	case ir.OpAny:
		if c.Flags&compiler.FlagSingleline != 0 {
			return charclass.NewSet(charclass.Interval{Lo: 0, Hi: charclass.MaxCodepoint})
		}
		return charclass.NewSet(charclass.Interval{Lo: 0, Hi: charclass.MaxCodepoint}).
			Subtract(charclass.NewSet(
				charclass.Interval{Lo: '\n', Hi: '\n' + 1},
				charclass.Interval{Lo: '\r', Hi: '\r' + 1},
			))
	case ir.OpCodepointSet, ir.OpTrie:
		return c.Sets[inst.Data()]
	}
	return charclass.Set{}
}

// reach collects the atom bits reachable from pc without consuming input,
// following all control flow. finalBit receives selfBit when the end of
// the program is reachable without consuming.
func (h *bitHalf) reach(insts []ir.Inst, atomAt map[int]int, pc int, finalBit *uint32, selfBit uint32) uint32 {
	var mask uint32
	seen := make(map[int]bool)
	var walk func(pc int)
	walk = func(pc int) {
		for {
			if pc >= len(insts) {
				*finalBit |= selfBit
				return
			}
			if seen[pc] {
				return
			}
			seen[pc] = true
			inst := insts[pc]
			switch op := inst.Op(); op {
			case ir.OpChar, ir.OpOrChar, ir.OpAny, ir.OpCodepointSet, ir.OpTrie:
				mask |= uint32(1) << uint(atomAt[pc])
				return
			case ir.OpEnd:
				*finalBit |= selfBit
				return
			case ir.OpNop, ir.OpGroupStart, ir.OpGroupEnd, ir.OpOrStart,
				ir.OpBol, ir.OpEol, ir.OpWordBoundary, ir.OpNotWordBoundary:
				pc += op.Len()
			case ir.OpOption:
				next := pc + 1 + int(inst.Data())
				if next < len(insts) && insts[next].Op() == ir.OpOption {
					walk(next)
				}
				pc++
			case ir.OpGotoEndOr:
				pc += 1 + int(inst.Data())
			case ir.OpOrEnd:
				pc += 2
			case ir.OpInfiniteStart, ir.OpInfiniteQStart:
				walk(pc + 1 + int(inst.Data()) + 2) // skip the block
				pc++
			case ir.OpInfiniteEnd, ir.OpInfiniteQEnd:
				walk(pc - int(inst.Data()))
				pc += 2
			case ir.OpRepeatStart, ir.OpRepeatQStart:
				pc++
			case ir.OpRepeatEnd, ir.OpRepeatQEnd:
				walk(pc - int(inst.Data()))
				pc += 5
			case ir.OpLookaheadStart, ir.OpNeglookaheadStart,
				ir.OpLookbehindStart, ir.OpNeglookbehindStart:
				// Treated as satisfied: skip the whole block.
				pc += 3 + int(inst.Data()) + 1
			default:
				return
			}
		}
	}
	walk(pc)
	return mask
}

// accept returns the atom set that consumes codepoint r.
func (h *bitHalf) accept(r rune) uint32 {
	if r < 128 {
		return h.asciiTab[r]
	}
	if h.wide == nil {
		return 0
	}
	return h.wide.Lookup(r)
}

// stepInto advances the active set over one codepoint, reporting whether
// a match boundary was crossed.
func (h *bitHalf) stepInto(active uint32, r rune) (next uint32, final bool) {
	consumed := (active | h.first) & h.accept(r)
	if consumed == 0 {
		return 0, false
	}
	final = consumed&h.finals != 0
	for m := consumed; m != 0; m &= m - 1 {
		next |= h.follow[bits.TrailingZeros32(m)]
	}
	return next, final
}

// Search implements input.Prefilter: the forward half scans for the
// earliest candidate match end; the candidate start reported is the first
// position whose codepoint can begin a match, or the start found by
// walking the reversed program back from that end when that one is
// earlier. A start is never moved later than that first position.
func (b *BitNFA) Search(haystack []byte, start int) int {
	end, firstLive := b.findEnd(haystack, start)
	if end < 0 {
		return -1
	}
	if s := b.FindStart(haystack, end, start); s >= 0 && s < firstLive {
		return s
	}
	return firstLive
}

// findEnd returns the earliest candidate match end at or after start and
// the first position whose codepoint any start atom accepts.
func (b *BitNFA) findEnd(haystack []byte, start int) (end, firstLive int) {
	var active uint32
	firstLive = -1
	for i := start; i < len(haystack); {
		r, w := utf8.DecodeRune(haystack[i:])
		if r == utf8.RuneError && w <= 1 {
			return -1, -1
		}
		if firstLive < 0 && b.fwd.first&b.fwd.accept(r) != 0 {
			firstLive = i
		}
		next, final := b.fwd.stepInto(active, r)
		if final {
			return i + w, firstLive
		}
		active = next
		i += w
	}
	return -1, -1
}

// FindStart walks the reversed program backward from a known candidate
// end and returns the earliest position, not before floor, where a viable
// match could begin.
func (b *BitNFA) FindStart(haystack []byte, end, floor int) int {
	var active uint32
	best := -1
	for i := end; i > floor; {
		r, w := utf8.DecodeLastRune(haystack[:i])
		if r == utf8.RuneError && w <= 1 {
			break
		}
		next, final := b.rev.stepInto(active, r)
		if final {
			best = i - w
		}
		if next == 0 {
			break
		}
		active = next
		i -= w
	}
	return best
}
