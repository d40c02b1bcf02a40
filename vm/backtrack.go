package vm

import (
	"github.com/coregx/revm/compiler"
	"github.com/coregx/revm/input"
	"github.com/coregx/revm/ir"
)

// Backtracker is the depth-first engine. It interprets the program along
// one path, pushing a resume frame at every fork point; on failure the
// newest frame is popped and the alternative taken. Unlike the Thompson
// simulator it supports back-references at arbitrary positions, at the
// cost of worst-case exponential time.
//
// Resume frames live in a segmented arena of 32-bit words. Each segment
// links to its predecessor so the whole chain unwinds on exhaustion and
// is released after the match.
type Backtracker struct {
	c        *compiler.Compiled
	insts    []ir.Inst
	in       input.Input
	kick     input.Prefilter
	reversed bool
	oneShot  bool

	groups  []int
	seed    []int
	nesting int
	// trackers records, per open infinite-loop level, the input index of
	// the previous iteration; a loop iteration that consumes nothing
	// terminates the loop.
	trackers []int

	stack btStack
}

const (
	btSegmentWords = 4096
	// btMaxWords bounds total resume-stack memory; overflowing it aborts
	// the attempt as a no-match.
	btMaxWords = 1 << 22

	frameHeader = 4 // pc, counter, nesting, input index
)

type btSegment struct {
	words []uint32
	prev  *btSegment
}

type btStack struct {
	cur   *btSegment
	total int
}

func (s *btStack) reset() {
	s.cur = nil
	s.total = 0
}

// push appends n words and returns the slice to fill. ok is false when
// the memory bound is hit.
func (s *btStack) push(n int) ([]uint32, bool) {
	if s.total+n > btMaxWords {
		return nil, false
	}
	segWords := btSegmentWords
	if n > segWords {
		segWords = n
	}
	if s.cur == nil || len(s.cur.words)+n > cap(s.cur.words) {
		s.cur = &btSegment{words: make([]uint32, 0, segWords), prev: s.cur}
	}
	at := len(s.cur.words)
	s.cur.words = s.cur.words[:at+n]
	s.total += n
	return s.cur.words[at : at+n], true
}

// pop removes the newest n-word frame and returns it. The returned slice
// is valid until the next push. Exhausted segments are released as the
// unwind crosses their base.
func (s *btStack) pop(n int) ([]uint32, bool) {
	for s.cur != nil && len(s.cur.words) == 0 {
		s.cur = s.cur.prev
	}
	if s.cur == nil || len(s.cur.words) < n {
		return nil, false
	}
	at := len(s.cur.words) - n
	frame := s.cur.words[at:]
	s.cur.words = s.cur.words[:at]
	s.total -= n
	return frame, true
}

// NewBacktracker creates a backtracking matcher for the compiled program
// over the given input. kick may be nil.
func NewBacktracker(c *compiler.Compiled, in input.Input, kick input.Prefilter) *Backtracker {
	return &Backtracker{
		c:       c,
		insts:   c.Prog.Insts,
		in:      in,
		kick:    kick,
		oneShot: c.OneShot,
		groups:  make([]int, 2*c.Prog.NGroup),
	}
}

// Run implements Matcher: it tries successive start positions (skipping
// ahead via the kickstart when one is present) until an attempt succeeds.
func (b *Backtracker) Run(at int) ([]int, bool) {
	pos := at
	for {
		if b.kick != nil && !b.oneShot {
			b.in.Reset(pos)
			p, ok := b.in.Search(b.kick, pos)
			if !ok {
				return nil, false
			}
			pos = p
		}
		if b.attempt(pos) {
			return b.groups, true
		}
		if b.oneShot {
			return nil, false
		}
		b.in.Reset(pos)
		if _, _, ok := b.in.Next(); !ok {
			return nil, false
		}
		pos = b.in.Index()
	}
}

// saveFrame pushes a resume point: target pc, the counter and nesting to
// resume with, the input index, and a snapshot of the capture slots.
func (b *Backtracker) saveFrame(pc, counter, nesting int) bool {
	frame, ok := b.stack.push(frameHeader + len(b.groups))
	if !ok {
		return false
	}
	frame[0] = uint32(pc)
	frame[1] = uint32(counter)
	frame[2] = uint32(nesting)
	frame[3] = uint32(b.in.Index())
	for i, g := range b.groups {
		frame[frameHeader+i] = uint32(g)
	}
	return true
}

// attempt runs one anchored match attempt at pos.
//
//nolint:gocyclo // dispatch over the whole instruction set is irreducible
func (b *Backtracker) attempt(pos int) bool {
	b.stack.reset()
	b.nesting = 0
	b.in.Reset(pos)
	if b.seed != nil {
		copy(b.groups, b.seed)
	} else {
		for i := range b.groups {
			b.groups[i] = 0
		}
	}
	b.groups[0] = pos

	insts := b.insts
	pc, counter := 0, 0

	backtrack := func() bool {
		frame, ok := b.stack.pop(frameHeader + len(b.groups))
		if !ok {
			return false
		}
		pc = int(frame[0])
		counter = int(frame[1])
		b.nesting = int(frame[2])
		b.in.Reset(int(frame[3]))
		for i := range b.groups {
			b.groups[i] = int(frame[frameHeader+i])
		}
		return true
	}

	for {
		if pc >= len(insts) {
			b.groups[1] = b.in.Index()
			return true
		}
		inst := insts[pc]
		op := inst.Op()
		switch op {
		case ir.OpEnd:
			b.groups[1] = b.in.Index()
			return true

		case ir.OpChar, ir.OpOrChar, ir.OpAny, ir.OpCodepointSet, ir.OpTrie:
			r, _, ok := b.in.Next()
			if ok {
				if matched, width := matchesConsuming(b.c, insts, pc, r); matched {
					pc += width
					continue
				}
			}
			if !backtrack() {
				return false
			}

		case ir.OpNop, ir.OpOrStart:
			pc++

		case ir.OpBol:
			if !checkBol(b.c, b.in, b.in.Index()) {
				if !backtrack() {
					return false
				}
				continue
			}
			pc++

		case ir.OpEol:
			if !checkEol(b.c, b.in, b.in.Index()) {
				if !backtrack() {
					return false
				}
				continue
			}
			pc++

		case ir.OpWordBoundary, ir.OpNotWordBoundary:
			atBoundary := checkWordBoundary(b.in, b.in.Index())
			if atBoundary != (op == ir.OpWordBoundary) {
				if !backtrack() {
					return false
				}
				continue
			}
			pc++

		case ir.OpGroupStart:
			b.groups[2*int(inst.Data())] = b.in.Index()
			pc++

		case ir.OpGroupEnd:
			b.groups[2*int(inst.Data())+1] = b.in.Index()
			pc++

		case ir.OpOption:
			next := pc + 1 + int(inst.Data())
			if next < len(insts) && insts[next].Op() == ir.OpOption {
				if !b.saveFrame(next, counter, b.nesting) {
					return false
				}
			}
			pc++

		case ir.OpGotoEndOr:
			pc += 1 + int(inst.Data())

		case ir.OpOrEnd:
			pc += 2

		case ir.OpInfiniteStart, ir.OpInfiniteQStart:
			b.nesting++
			if len(b.trackers) < b.nesting {
				b.trackers = append(b.trackers, -1)
			}
			b.trackers[b.nesting-1] = -1
			pc += 1 + int(inst.Data())

		case ir.OpInfiniteEnd, ir.OpInfiniteQEnd:
			lvl := b.nesting - 1
			idx := b.in.Index()
			bodyStart := pc - int(inst.Data())
			if b.trackers[lvl] == idx {
				// The previous iteration consumed nothing; looping again
				// cannot make progress.
				b.nesting--
				pc += 2
				continue
			}
			b.trackers[lvl] = idx
			if op == ir.OpInfiniteEnd {
				if !b.saveFrame(pc+2, counter, b.nesting-1) {
					return false
				}
				pc = bodyStart
			} else {
				if !b.saveFrame(bodyStart, counter, b.nesting) {
					return false
				}
				b.nesting--
				pc += 2
			}

		case ir.OpRepeatStart, ir.OpRepeatQStart:
			pc += 1 + int(inst.Data())

		case ir.OpRepeatEnd, ir.OpRepeatQEnd:
			step := int(insts[pc+2].Raw())
			minRep := int(insts[pc+3].Raw())
			maxRep := int(insts[pc+4].Raw())
			bodyStart := pc - int(inst.Data())
			switch {
			case counter < minRep:
				counter += step
				pc = bodyStart
			case counter < maxRep:
				if op == ir.OpRepeatEnd {
					if !b.saveFrame(pc+5, counter%step, b.nesting) {
						return false
					}
					counter += step
					pc = bodyStart
				} else {
					if !b.saveFrame(bodyStart, counter+step, b.nesting) {
						return false
					}
					counter %= step
					pc += 5
				}
			default:
				counter %= step
				pc += 5
			}

		case ir.OpBackref:
			g := int(inst.Data())
			lo, hi := b.groups[2*g], b.groups[2*g+1]
			if hi <= lo {
				pc++
				continue
			}
			span := b.in.Slice(lo, hi)
			uop := 0
			ok := true
			for uop < len(span) {
				want, size := backrefRune(span, uop, b.reversed)
				r, _, rok := b.in.Next()
				if !rok || r != want {
					ok = false
					break
				}
				uop += size
			}
			if !ok {
				if !backtrack() {
					return false
				}
				continue
			}
			pc++

		case ir.OpLookaheadStart, ir.OpNeglookaheadStart,
			ir.OpLookbehindStart, ir.OpNeglookbehindStart:
			h := readLookHeader(insts, pc)
			if !b.evalLookaround(pc, h) {
				if !backtrack() {
					return false
				}
				continue
			}
			pc += 3 + h.bodyLen + 1

		default:
			if !backtrack() {
				return false
			}
		}
	}
}

// evalLookaround runs the lookaround body in a fresh sub-backtracker with
// its own resume stack, seeded with the current captures. On a positive
// match the body's capture window is copied back.
func (b *Backtracker) evalLookaround(pc int, h lookHeader) bool {
	idx := b.in.Index()
	rev := b.reversed != h.behind
	body := b.insts[pc+3 : pc+3+h.bodyLen]
	sub := &Backtracker{
		c:        b.c,
		insts:    body,
		in:       input.Fork(b.in, idx, rev),
		reversed: rev,
		oneShot:  true,
		groups:   make([]int, len(b.groups)),
		seed:     b.groups,
	}
	ok := sub.attempt(idx)
	if h.negative {
		return !ok
	}
	if !ok {
		return false
	}
	for g := h.ms; g < h.me && 2*g+1 < len(b.groups); g++ {
		b.groups[2*g] = sub.groups[2*g]
		b.groups[2*g+1] = sub.groups[2*g+1]
	}
	return true
}
