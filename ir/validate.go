package ir

import (
	"errors"
	"fmt"
)

// ErrCorrupt indicates a structurally invalid instruction stream.
var ErrCorrupt = errors.New("corrupt bytecode")

// Validate walks the instruction stream and checks the structural
// invariants every matcher depends on:
//
//   - every instruction (with its parameter words) lies inside the buffer;
//   - every Start's pair distance lands on the matching End opcode, and
//     following the End's distance back returns to the Start;
//   - block classes are complementary (code^0b11).
//
// It is run once after post-processing; matchers assume a validated
// program and perform no bounds checks of their own on pair navigation.
func (p *Program) Validate() error {
	for pc := 0; pc < len(p.Insts); {
		inst := p.Insts[pc]
		op := inst.Op()
		if _, known := opNames[op]; !known {
			return fmt.Errorf("%w: unknown opcode 0x%02x at %d", ErrCorrupt, uint8(op), pc)
		}
		if pc+op.Len() > len(p.Insts) {
			return fmt.Errorf("%w: %s at %d overruns program end", ErrCorrupt, op, pc)
		}
		if op.IsStart() {
			end := p.PairPC(pc)
			if end < 0 || end >= len(p.Insts) {
				return fmt.Errorf("%w: %s at %d points outside program", ErrCorrupt, op, pc)
			}
			endOp := p.Insts[end].Op()
			if endOp != op.Paired() {
				return fmt.Errorf("%w: %s at %d pairs with %s at %d", ErrCorrupt, op, pc, endOp, end)
			}
			if back := p.PairPC(end); back != pc {
				return fmt.Errorf("%w: %s at %d round-trips to %d", ErrCorrupt, op, pc, back)
			}
		}
		if op.IsEnd() {
			start := p.PairPC(pc)
			if start < 0 || p.Insts[start].Op() != op.Paired() {
				return fmt.Errorf("%w: %s at %d has no matching start", ErrCorrupt, op, pc)
			}
		}
		pc += op.Len()
	}
	return nil
}
