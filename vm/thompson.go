package vm

import (
	"github.com/coregx/revm/compiler"
	"github.com/coregx/revm/input"
	"github.com/coregx/revm/ir"
)

// Thompson is the breadth-first simulator. It advances a priority-ordered
// list of threads in lockstep over the input, one codepoint per
// generation, so total work is bounded by ThreadCount times the input
// length. Convergent paths are deduplicated at the hotspot instructions
// through the merge table.
//
// A thread is a register tuple, not an OS thread. Threads are drawn from
// a free list backed by an arena pre-sized to the post-processed
// worst-case thread count.
type Thompson struct {
	c        *compiler.Compiled
	insts    []ir.Inst
	in       input.Input
	kick     input.Prefilter
	reversed bool
	oneShot  bool

	// merge holds, per (slot + counter), the generation that last visited
	// it. A repeated visit within one generation is a redundant thread.
	merge []uint32
	gen   uint32

	arena  []thread
	free   *thread
	ngroup int

	clist, nlist tlist
	work         []*thread

	// subs caches one sub-matcher per lookaround instruction, so its
	// generation counter and merge table survive repeated invocations.
	subs map[int]*Thompson

	// per-generation context
	curIdx  int
	r       rune
	hasRune bool

	started bool
	matched bool
	result  []int
}

// thread is a Thompson execution thread: program counter, loop counter,
// back-reference progress and capture slots. Threads link into intrusive
// singly-linked lists.
type thread struct {
	next    *thread
	pc      int
	counter int
	uop     int
	groups  []int
}

// tlist is an intrusive FIFO thread list; order is priority order.
type tlist struct {
	head, tail *thread
}

func (l *tlist) append(t *thread) {
	t.next = nil
	if l.tail == nil {
		l.head, l.tail = t, t
		return
	}
	l.tail.next = t
	l.tail = t
}

func (l *tlist) popFront() *thread {
	t := l.head
	if t == nil {
		return nil
	}
	l.head = t.next
	if l.head == nil {
		l.tail = nil
	}
	t.next = nil
	return t
}

// NewThompson creates a matcher for the compiled program over the given
// input. kick may be nil.
func NewThompson(c *compiler.Compiled, in input.Input, kick input.Prefilter) *Thompson {
	m := &Thompson{
		c:       c,
		insts:   c.Prog.Insts,
		in:      in,
		kick:    kick,
		oneShot: c.OneShot,
		merge:   make([]uint32, c.Prog.HotspotCount),
		ngroup:  c.Prog.NGroup,
		subs:    make(map[int]*Thompson),
	}
	m.arena = make([]thread, c.Prog.ThreadCount)
	for i := range m.arena {
		m.arena[i].groups = make([]int, 2*m.ngroup)
		m.arena[i].next = m.free
		m.free = &m.arena[i]
	}
	return m
}

func (m *Thompson) alloc() *thread {
	t := m.free
	if t == nil {
		// The post-process bound should make this unreachable; growing
		// keeps a miscount from crashing a match.
		t = &thread{groups: make([]int, 2*m.ngroup)}
	} else {
		m.free = t.next
		t.next = nil
	}
	return t
}

func (m *Thompson) fork(t *thread) *thread {
	nt := m.alloc()
	nt.pc = t.pc
	nt.counter = t.counter
	nt.uop = t.uop
	copy(nt.groups, t.groups)
	return nt
}

func (m *Thompson) recycle(t *thread) {
	t.next = m.free
	m.free = t
}

func (m *Thompson) recycleList(l *tlist) {
	for t := l.popFront(); t != nil; t = l.popFront() {
		m.recycle(t)
	}
}

// Run implements Matcher.
func (m *Thompson) Run(at int) ([]int, bool) {
	return m.run(at, nil)
}

// run drives the generation loop. seed, when non-nil, initializes the
// capture slots of injected start threads (lookaround sub-matches inherit
// the parent thread's captures).
func (m *Thompson) run(at int, seed []int) ([]int, bool) {
	m.in.Reset(at)
	m.recycleList(&m.clist)
	m.recycleList(&m.nlist)
	m.started = false
	m.matched = false

	for {
		m.curIdx = m.in.Index()
		m.r, _, m.hasRune = m.in.Next()
		m.gen++

		if !m.matched && !(m.oneShot && m.started) {
			t := m.alloc()
			t.pc = 0
			t.counter = 0
			t.uop = 0
			if seed != nil {
				copy(t.groups, seed)
			} else {
				for i := range t.groups {
					t.groups[i] = 0
				}
			}
			t.groups[0] = m.curIdx
			m.clist.append(t)
			m.started = true
		}

		for t := m.clist.popFront(); t != nil; t = m.clist.popFront() {
			m.evalThread(t)
		}
		m.clist, m.nlist = m.nlist, tlist{}

		if !m.hasRune {
			break
		}
		if m.clist.head == nil {
			if m.matched || m.oneShot {
				break
			}
			if m.kick != nil {
				if _, ok := m.in.Search(m.kick, m.in.Index()); !ok {
					break
				}
			}
		}
	}
	return m.result, m.matched
}

// evalThread runs one thread and the side threads it forks, all at the
// current input position. The worklist is LIFO so exploration order is
// priority order.
func (m *Thompson) evalThread(t *thread) {
	m.work = append(m.work[:0], t)
	for len(m.work) > 0 {
		cur := m.work[len(m.work)-1]
		m.work = m.work[:len(m.work)-1]
		m.step(cur)
	}
}

func (m *Thompson) push(t *thread) {
	m.work = append(m.work, t)
}

// commit records the match of t and discards every lower-priority thread:
// the rest of the worklist and of clist. Higher-priority threads that
// already consumed this position survive in nlist and may later overwrite
// the result.
func (m *Thompson) commit(t *thread) {
	if m.result == nil {
		m.result = make([]int, 2*m.ngroup)
	}
	copy(m.result, t.groups)
	m.result[1] = m.curIdx
	m.matched = true
	m.recycle(t)
	for len(m.work) > 0 {
		m.recycle(m.work[len(m.work)-1])
		m.work = m.work[:len(m.work)-1]
	}
	m.recycleList(&m.clist)
}

// mergeCheck returns false when (slot, counter) was already visited in
// this generation; otherwise it records the visit.
func (m *Thompson) mergeCheck(slot, counter int) bool {
	idx := slot + counter
	if m.merge[idx] == m.gen {
		return false
	}
	m.merge[idx] = m.gen
	return true
}

// step interprets zero-width instructions until the thread consumes the
// current codepoint, dies, or matches.
func (m *Thompson) step(t *thread) {
	insts := m.insts
	for {
		if t.pc >= len(insts) {
			// Sub-programs have no explicit End; running off the slice is
			// the sub-match.
			m.commit(t)
			return
		}
		inst := insts[t.pc]
		op := inst.Op()
		switch op {
		case ir.OpEnd:
			m.commit(t)
			return

		case ir.OpChar, ir.OpOrChar, ir.OpAny, ir.OpCodepointSet, ir.OpTrie:
			ok, width := matchesConsuming(m.c, insts, t.pc, m.r)
			if m.hasRune && ok {
				t.pc += width
				m.nlist.append(t)
			} else {
				m.recycle(t)
			}
			return

		case ir.OpNop, ir.OpOrStart:
			t.pc++

		case ir.OpBol:
			if !checkBol(m.c, m.in, m.curIdx) {
				m.recycle(t)
				return
			}
			t.pc++

		case ir.OpEol:
			if !checkEol(m.c, m.in, m.curIdx) {
				m.recycle(t)
				return
			}
			t.pc++

		case ir.OpWordBoundary:
			if !checkWordBoundary(m.in, m.curIdx) {
				m.recycle(t)
				return
			}
			t.pc++

		case ir.OpNotWordBoundary:
			if checkWordBoundary(m.in, m.curIdx) {
				m.recycle(t)
				return
			}
			t.pc++

		case ir.OpGroupStart:
			t.groups[2*int(inst.Data())] = m.curIdx
			t.pc++

		case ir.OpGroupEnd:
			t.groups[2*int(inst.Data())+1] = m.curIdx
			t.pc++

		case ir.OpOption:
			next := t.pc + 1 + int(inst.Data())
			if next < len(insts) && insts[next].Op() == ir.OpOption {
				ft := m.fork(t)
				ft.pc = next
				m.push(ft)
			}
			t.pc++

		case ir.OpGotoEndOr:
			t.pc += 1 + int(inst.Data())

		case ir.OpOrEnd:
			if !m.mergeCheck(int(insts[t.pc+1].Raw()), t.counter) {
				m.recycle(t)
				return
			}
			t.pc += 2

		case ir.OpInfiniteStart, ir.OpInfiniteQStart:
			// The loop decision lives at the matching end instruction.
			t.pc += 1 + int(inst.Data())

		case ir.OpInfiniteEnd, ir.OpInfiniteQEnd:
			if !m.mergeCheck(int(insts[t.pc+1].Raw()), t.counter) {
				m.recycle(t)
				return
			}
			bodyStart := t.pc - int(inst.Data())
			fall := t.pc + 2
			if op == ir.OpInfiniteEnd {
				ft := m.fork(t)
				ft.pc = fall
				m.push(ft)
				t.pc = bodyStart
			} else {
				ft := m.fork(t)
				ft.pc = bodyStart
				m.push(ft)
				t.pc = fall
			}

		case ir.OpRepeatStart, ir.OpRepeatQStart:
			t.pc += 1 + int(inst.Data())

		case ir.OpRepeatEnd, ir.OpRepeatQEnd:
			slot := int(insts[t.pc+1].Raw())
			step := int(insts[t.pc+2].Raw())
			minRep := int(insts[t.pc+3].Raw())
			maxRep := int(insts[t.pc+4].Raw())
			bodyStart := t.pc - int(inst.Data())
			if t.counter < minRep {
				t.counter += step
				t.pc = bodyStart
				continue
			}
			// The slot window covers counters in [min, max]; rebase.
			if !m.mergeCheck(slot, t.counter-minRep) {
				m.recycle(t)
				return
			}
			if t.counter < maxRep {
				if op == ir.OpRepeatEnd {
					ft := m.fork(t)
					ft.counter = t.counter % step
					ft.pc = t.pc + 5
					m.push(ft)
					t.counter += step
					t.pc = bodyStart
				} else {
					ft := m.fork(t)
					ft.counter = t.counter + step
					ft.pc = bodyStart
					m.push(ft)
					t.counter %= step
					t.pc += 5
				}
			} else {
				t.counter %= step
				t.pc += 5
			}

		case ir.OpBackref:
			g := int(inst.Data())
			b, e := t.groups[2*g], t.groups[2*g+1]
			if e <= b {
				t.pc++
				continue
			}
			span := m.in.Slice(b, e)
			want, size := backrefRune(span, t.uop, m.reversed)
			if m.hasRune && m.r == want {
				t.uop += size
				if t.uop >= len(span) {
					t.pc++
					t.uop = 0
				}
				m.nlist.append(t)
			} else {
				m.recycle(t)
			}
			return

		case ir.OpLookaheadStart, ir.OpNeglookaheadStart,
			ir.OpLookbehindStart, ir.OpNeglookbehindStart:
			h := readLookHeader(insts, t.pc)
			if !m.evalLookaround(t, h) {
				m.recycle(t)
				return
			}
			t.pc += 3 + h.bodyLen + 1

		default:
			m.recycle(t)
			return
		}
	}
}

// evalLookaround evaluates the lookaround block at t.pc. The body is run
// by a cached sub-matcher: forward bodies over a forward cursor at the
// current position, lookbehind bodies (stored reversed) over a backward
// cursor. The sub-match is seeded with the thread's captures; on a
// positive match the body's capture window is copied back.
func (m *Thompson) evalLookaround(t *thread, h lookHeader) bool {
	sub := m.subs[t.pc]
	if sub == nil {
		body := m.insts[t.pc+3 : t.pc+3+h.bodyLen]
		sub = &Thompson{
			c:        m.c,
			insts:    body,
			reversed: m.reversed != h.behind,
			oneShot:  true,
			merge:    make([]uint32, m.c.Prog.HotspotCount),
			ngroup:   m.ngroup,
			subs:     make(map[int]*Thompson),
		}
		m.subs[t.pc] = sub
	}
	sub.in = input.Fork(m.in, m.curIdx, sub.reversed)
	groups, ok := sub.run(m.curIdx, t.groups)
	if h.negative {
		return !ok
	}
	if !ok {
		return false
	}
	for g := h.ms; g < h.me && 2*g+1 < len(groups); g++ {
		t.groups[2*g] = groups[2*g]
		t.groups[2*g+1] = groups[2*g+1]
	}
	return true
}
