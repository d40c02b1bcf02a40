package ir

// Reverse returns the instruction stream of body rewritten so that a
// forward matcher running over a backward input observes the original
// semantics. Used for lookbehind bodies.
//
// Top-level units (single atoms or whole Start..End blocks) are emitted in
// reverse order. Block shells are preserved: the Start stays first and the
// End (with its parameter words) last, only the interior is reversed.
// Alternation interiors keep their Option/GotoEndOr scaffolding so branch
// priority is unchanged. Reversing twice yields the original stream.
func Reverse(body []Inst) []Inst {
	units := splitUnits(body)
	out := make([]Inst, 0, len(body))
	for i := len(units) - 1; i >= 0; i-- {
		out = append(out, reverseUnit(units[i])...)
	}
	return out
}

// splitUnits cuts body into consecutive top-level units. A unit is either
// one instruction (with its parameter words) or an entire block from its
// Start through its End.
func splitUnits(body []Inst) [][]Inst {
	var units [][]Inst
	for pc := 0; pc < len(body); {
		inst := body[pc]
		op := inst.Op()
		if op.IsStart() {
			end := pc + op.Len() + int(inst.Data())
			next := end + op.Paired().Len()
			units = append(units, body[pc:next])
			pc = next
			continue
		}
		units = append(units, body[pc:pc+op.Len()])
		pc += op.Len()
	}
	return units
}

// reverseUnit reverses a single unit in place of the original layout.
func reverseUnit(unit []Inst) []Inst {
	op := unit[0].Op()
	if !op.IsStart() {
		return unit
	}
	startLen := op.Len()
	endLen := op.Paired().Len()
	interior := unit[startLen : len(unit)-endLen]

	out := make([]Inst, 0, len(unit))
	out = append(out, unit[:startLen]...)
	if op == OpOrStart {
		out = append(out, reverseAlternation(interior)...)
	} else {
		out = append(out, Reverse(interior)...)
	}
	out = append(out, unit[len(unit)-endLen:]...)
	return out
}

// reverseAlternation reverses each alternative body while keeping the
// Option / GotoEndOr markers and the alternative order intact.
func reverseAlternation(interior []Inst) []Inst {
	out := make([]Inst, 0, len(interior))
	for pc := 0; pc < len(interior); {
		opt := interior[pc]
		out = append(out, opt) // Option
		pc += OpOption.Len()

		bodyEnd := pc + int(opt.Data())
		// The branch distance covers the alternative body plus a trailing
		// GotoEndOr on every branch but the last.
		hasGoto := bodyEnd <= len(interior) && bodyEnd-OpGotoEndOr.Len() >= pc &&
			interior[bodyEnd-OpGotoEndOr.Len()].Op() == OpGotoEndOr
		body := interior[pc:bodyEnd]
		if hasGoto {
			body = interior[pc : bodyEnd-OpGotoEndOr.Len()]
		}
		out = append(out, Reverse(body)...)
		if hasGoto {
			out = append(out, interior[bodyEnd-OpGotoEndOr.Len():bodyEnd]...)
		}
		pc = bodyEnd
	}
	return out
}
