package compiler

import (
	"github.com/coregx/revm/ir"
)

// postprocess finalizes a freshly parsed program in one walk:
//
//   - stamps every hotspot instruction's merge-slot parameter and sizes
//     the merge table;
//   - scales counted-loop parameters by the enclosing counter range, so a
//     matcher combines nested counters with a single addition;
//   - accumulates the worst-case live-thread bound;
//   - flags GroupStart/GroupEnd instructions whose group is
//     back-referenced;
//   - detects one-shot (start-anchored) programs.
func postprocess(c *Compiled, backrefed map[int]bool) error {
	insts := c.Prog.Insts
	counters := []int{1}
	hotspots, threads, maxDepth := 0, 0, 1

	for pc := 0; pc < len(insts); {
		inst := insts[pc]
		op := inst.Op()
		top := counters[len(counters)-1]
		threads += top

		switch op {
		case ir.OpRepeatStart, ir.OpRepeatQStart:
			end := c.Prog.PairPC(pc)
			minRep := int(insts[end+3].Raw())
			maxRep := int(insts[end+4].Raw())

			// The merge slot only ever sees counters in [min, max]; the
			// matcher rebases the index by min, so the slot window is the
			// range size times the enclosing counter range.
			span := top * (maxRep - minRep + 1)
			if span > MaxCumulativeRepetition {
				return &LimitError{Which: "cumulative repetition", Limit: MaxCumulativeRepetition}
			}
			insts[end+1] = ir.Raw(uint32(hotspots))
			insts[end+2] = ir.Raw(uint32(top))
			insts[end+3] = ir.Raw(uint32(minRep * top))
			insts[end+4] = ir.Raw(uint32(maxRep * top))
			hotspots += span

			// Inner loops still need a counter digit wide enough for the
			// full iteration count, so the pushed scale keeps the max+1
			// multiplier.
			counters = append(counters, top*(maxRep+1))
			if len(counters) > maxDepth {
				maxDepth = len(counters)
			}

		case ir.OpRepeatEnd, ir.OpRepeatQEnd:
			counters = counters[:len(counters)-1]

		case ir.OpOrEnd, ir.OpInfiniteEnd, ir.OpInfiniteQEnd:
			insts[pc+1] = ir.Raw(uint32(hotspots))
			hotspots += top

		case ir.OpGroupStart, ir.OpGroupEnd:
			if backrefed[int(inst.Data())] {
				insts[pc] = inst.WithFlag()
			}
		}
		pc += op.Len()
	}

	c.Prog.HotspotCount = hotspots
	c.Prog.ThreadCount = threads
	c.Prog.MaxCounterDepth = maxDepth
	c.OneShot = isOneShot(insts, c.Flags)
	return nil
}

// isOneShot reports whether the program can only ever match at the start
// of input: its first significant instruction is a Bol assertion and
// multiline mode is off. One-shot programs disable the outer search
// stride and any kickstart.
func isOneShot(insts []ir.Inst, flags Flags) bool {
	if flags&FlagMultiline != 0 {
		return false
	}
	for pc := 0; pc < len(insts); {
		op := insts[pc].Op()
		switch op {
		case ir.OpNop, ir.OpGroupStart:
			pc += op.Len()
			continue
		case ir.OpBol:
			return true
		default:
			return false
		}
	}
	return false
}
