package compiler

import (
	"github.com/coregx/revm/charclass"
)

// Character classes support a small operator algebra over codepoint sets:
//
//	[A--B]   difference
//	[A~~B]   symmetric difference
//	[A&&B]   intersection
//	[AB]     union (implicit, binds tightest)
//	[^A]     negation of the whole class
//
// Explicit operators are left-associative; difference binds loosest, then
// symmetric difference, then intersection. Operands are runs of literals,
// ranges, escapes and nested classes.

// classOp precedences; 0 means "not an operator here".
func (p *parser) peekClassOp() int {
	if p.pos+1 >= len(p.src) || p.src[p.pos] != p.src[p.pos+1] {
		return 0
	}
	switch p.src[p.pos] {
	case '-':
		return 1
	case '~':
		return 2
	case '&':
		return 3
	}
	return 0
}

// parseClass parses a class body. The opening '[' is already consumed;
// the closing ']' is consumed here.
func (p *parser) parseClass() (charclass.Set, error) {
	negate := p.eat('^')
	if p.eat(']') {
		return charclass.Set{}, p.errorf("empty character class")
	}
	set, err := p.classExpr(1)
	if err != nil {
		return charclass.Set{}, err
	}
	if !p.eat(']') {
		return charclass.Set{}, p.errorf("unmatched [")
	}
	if negate {
		set = set.Negate()
	}
	if set.IsEmpty() {
		return charclass.Set{}, p.errorf("empty character class")
	}
	return set, nil
}

// classExpr is a precedence climber over the explicit set operators.
func (p *parser) classExpr(minPrec int) (charclass.Set, error) {
	left, err := p.classUnionRun()
	if err != nil {
		return charclass.Set{}, err
	}
	for {
		prec := p.peekClassOp()
		if prec == 0 || prec < minPrec {
			return left, nil
		}
		op := p.src[p.pos]
		p.pos += 2
		right, err := p.classExpr(prec + 1)
		if err != nil {
			return charclass.Set{}, err
		}
		switch op {
		case '-':
			left = left.Subtract(right)
		case '~':
			left = left.SymDiff(right)
		case '&':
			left = left.Intersect(right)
		}
	}
}

// classUnionRun accumulates consecutive primaries with implicit union
// until a binary operator, ']' or end of pattern.
func (p *parser) classUnionRun() (charclass.Set, error) {
	var run charclass.Set
	first := true
	for {
		if p.eof() {
			return charclass.Set{}, p.errorf("unmatched [")
		}
		if p.peek() == ']' {
			return run, nil
		}
		if !first && p.peekClassOp() != 0 {
			return run, nil
		}
		prim, err := p.classPrimary()
		if err != nil {
			return charclass.Set{}, err
		}
		run = run.Union(prim)
		first = false
	}
}

// classPrimary parses one operand: a nested class, an escape, a literal,
// or a literal range a-b.
func (p *parser) classPrimary() (charclass.Set, error) {
	if p.eat('[') {
		return p.parseClass()
	}

	lo, set, isSet, err := p.classAtom()
	if err != nil {
		return charclass.Set{}, err
	}
	if isSet {
		return set, nil
	}

	// A '-' that is not doubled and not the closing position extends the
	// literal into a range.
	if p.peek() == '-' && p.peekClassOp() == 0 &&
		p.pos+1 < len(p.src) && p.src[p.pos+1] != ']' {
		p.pos++
		hi, _, hIsSet, err := p.classAtom()
		if err != nil {
			return charclass.Set{}, err
		}
		if hIsSet {
			return charclass.Set{}, p.errorf("invalid range endpoint")
		}
		if lo > hi {
			return charclass.Set{}, p.errorf("inverted range")
		}
		return p.foldClassSet(charclass.NewSet(charclass.Interval{Lo: lo, Hi: hi + 1})), nil
	}
	return p.foldClassSet(charclass.Single(lo)), nil
}

// foldClassSet closes a literal-derived set under case folding when the
// casefold flag is active.
func (p *parser) foldClassSet(s charclass.Set) charclass.Set {
	if p.flags&FlagCaseFold == 0 {
		return s
	}
	return s.Fold()
}

// classAtom parses one literal codepoint or escape inside a class.
// Escapes that denote whole sets (\d, \p{...}, ...) report isSet.
func (p *parser) classAtom() (r rune, set charclass.Set, isSet bool, err error) {
	c := p.next()
	if c != '\\' {
		return c, charclass.Set{}, false, nil
	}
	if p.eof() {
		return 0, charclass.Set{}, false, p.errorf("trailing backslash")
	}
	switch e := p.next(); e {
	case 'd', 'D', 's', 'S', 'w', 'W':
		return 0, p.perlClass(e), true, nil
	case 'p', 'P':
		s, err := p.parseProperty(e == 'P')
		return 0, s, true, err
	case 'b':
		// Inside a class \b is the backspace character, not a boundary.
		return '\b', charclass.Set{}, false, nil
	default:
		p.pos--
		lit, err := p.escapeChar()
		return lit, charclass.Set{}, false, err
	}
}
