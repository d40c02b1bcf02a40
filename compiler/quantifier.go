package compiler

import "github.com/coregx/revm/ir"

// infinity marker for the upper repetition bound.
const unbounded = -1

// parseQuantifier parses an optional quantifier following the unit that
// starts at unitStart, and rewrites the emitted instructions accordingly.
func (p *parser) parseQuantifier(unitStart int, quantifiable bool) error {
	p.skipFreeform()
	var n, m int
	switch p.peek() {
	case '*':
		p.pos++
		n, m = 0, unbounded
	case '+':
		p.pos++
		n, m = 1, unbounded
	case '?':
		p.pos++
		n, m = 0, 1
	case '{':
		p.pos++
		var err error
		n, m, err = p.parseBounds()
		if err != nil {
			return err
		}
	default:
		return nil
	}
	if !quantifiable {
		return p.errorf("nothing to repeat")
	}
	greedy := true
	p.skipFreeform()
	if p.eat('?') {
		greedy = false
	}
	return p.applyQuantifier(unitStart, n, m, greedy)
}

// parseBounds parses the interior of {n}, {n,} or {n,m}. The opening
// brace is already consumed.
func (p *parser) parseBounds() (n, m int, err error) {
	n, err = p.parseRepCount()
	if err != nil {
		return 0, 0, err
	}
	switch {
	case p.eat('}'):
		return n, n, nil
	case p.eat(','):
		if p.eat('}') {
			return n, unbounded, nil
		}
		m, err = p.parseRepCount()
		if err != nil {
			return 0, 0, err
		}
		if !p.eat('}') {
			return 0, 0, p.errorf("unmatched { in quantifier")
		}
		if m < n {
			return 0, 0, p.errorf("inverted quantifier bounds")
		}
		return n, m, nil
	default:
		return 0, 0, p.errorf("invalid quantifier")
	}
}

func (p *parser) parseRepCount() (int, error) {
	if p.eof() || p.peek() < '0' || p.peek() > '9' {
		return 0, p.errorf("invalid quantifier")
	}
	v := 0
	for !p.eof() && p.peek() >= '0' && p.peek() <= '9' {
		v = v*10 + int(p.next()-'0')
		if v > MaxCumulativeRepetition {
			return 0, p.errorf("repetition count overflow")
		}
	}
	return v, nil
}

// applyQuantifier lowers unit{n,m} onto the instructions already emitted
// for the unit. Loops are counter-based: the body is never unrolled, and
// at most one extra copy of it exists (for the unbounded tail of {n,}).
func (p *parser) applyQuantifier(unitStart, n, m int, greedy bool) error {
	body := cloneInsts(p.insts[unitStart:])
	switch {
	case n == 0 && m == 0:
		// {0,0} matches only the empty string.
		p.insts = p.insts[:unitStart]
	case n == 1 && m == 1:
		// {1,1} is the unit itself.
	case n == 0 && m == unbounded:
		p.wrapInfinite(unitStart, greedy)
	case n == 1 && m == unbounded:
		// Mandatory first iteration stays in place; the tail loops over a
		// copy of the body.
		p.appendInfinite(body, greedy)
	case m == unbounded:
		p.wrapRepeat(unitStart, n, n, greedy)
		p.appendInfinite(body, greedy)
	case n == 0:
		// x{0,m} is (x{1,m}|); the empty branch is second for greedy
		// quantifiers and first for non-greedy ones.
		inner := body
		if m > 1 {
			inner = repeatBlock(body, 1, m, greedy)
		}
		p.insts = p.insts[:unitStart]
		if greedy {
			p.emitAlternation([][]ir.Inst{inner, nil})
		} else {
			p.emitAlternation([][]ir.Inst{nil, inner})
		}
	default:
		p.wrapRepeat(unitStart, n, m, greedy)
	}
	return nil
}

// wrapInfinite wraps the instructions from 'at' in an unbounded loop.
func (p *parser) wrapInfinite(at int, greedy bool) {
	bodyLen := len(p.insts) - at
	startOp, endOp := ir.OpInfiniteStart, ir.OpInfiniteEnd
	if !greedy {
		startOp, endOp = ir.OpInfiniteQStart, ir.OpInfiniteQEnd
	}
	p.insertAt(at, ir.New(startOp, uint32(bodyLen)))
	p.emit(ir.New(endOp, uint32(bodyLen)), ir.Raw(0))
}

// appendInfinite appends an unbounded loop over a copy of body.
func (p *parser) appendInfinite(body []ir.Inst, greedy bool) {
	at := len(p.insts)
	p.emit(body...)
	p.wrapInfinite(at, greedy)
}

// wrapRepeat wraps the instructions from 'at' in a counted loop. The end
// instruction carries four parameter words: merge slot, step, minimum and
// maximum; all are finalized by the post-process pass.
func (p *parser) wrapRepeat(at, n, m int, greedy bool) {
	bodyLen := len(p.insts) - at
	startOp, endOp := ir.OpRepeatStart, ir.OpRepeatEnd
	if !greedy {
		startOp, endOp = ir.OpRepeatQStart, ir.OpRepeatQEnd
	}
	p.insertAt(at, ir.New(startOp, uint32(bodyLen)))
	p.emit(ir.New(endOp, uint32(bodyLen)),
		ir.Raw(0),         // merge slot
		ir.Raw(1),         // step, pre-scaling
		ir.Raw(uint32(n)), // min
		ir.Raw(uint32(m)), // max
	)
}

// repeatBlock builds a standalone counted loop around body.
func repeatBlock(body []ir.Inst, n, m int, greedy bool) []ir.Inst {
	startOp, endOp := ir.OpRepeatStart, ir.OpRepeatEnd
	if !greedy {
		startOp, endOp = ir.OpRepeatQStart, ir.OpRepeatQEnd
	}
	out := make([]ir.Inst, 0, len(body)+6)
	out = append(out, ir.New(startOp, uint32(len(body))))
	out = append(out, body...)
	out = append(out, ir.New(endOp, uint32(len(body))),
		ir.Raw(0), ir.Raw(1), ir.Raw(uint32(n)), ir.Raw(uint32(m)))
	return out
}
