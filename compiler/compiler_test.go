package compiler

import (
	"errors"
	"strings"
	"testing"

	"github.com/coregx/revm/ir"
)

func mustCompile(t *testing.T, pattern, flags string) *Compiled {
	t.Helper()
	f, err := ParseFlags(flags)
	if err != nil {
		t.Fatalf("ParseFlags(%q): %v", flags, err)
	}
	c, err := Compile(pattern, f)
	if err != nil {
		t.Fatalf("Compile(%q): %v", pattern, err)
	}
	return c
}

// TestCompile_Accepts covers the pattern surface that must compile.
func TestCompile_Accepts(t *testing.T) {
	patterns := []string{
		``,
		`a`,
		`abc`,
		`a|b|c`,
		`a*b+c?`,
		`a*?b+?c??`,
		`(ab)+`,
		`(?:ab)+`,
		`(?P<name>x)`,
		`[abc]`,
		`[^abc]`,
		`[a-z0-9_]`,
		`[a-z&&[^aeiou]]`,
		`[a-z--m]`,
		`[\d~~[0-5]]`,
		`a{3}`,
		`a{2,}`,
		`a{2,5}`,
		`a{2,5}?`,
		`a{0,0}`,
		`\d\D\s\S\w\W`,
		`\f\n\r\t\v\0`,
		`\x41A\U00000041`,
		`\cJ`,
		`\p{L}\P{L}\pN`,
		`\.\*\+\(\)\[\]\{\}\|\\`,
		`^abc$`,
		`\bword\B`,
		`(a)\1`,
		`foo(?=bar)`,
		`foo(?!bar)`,
		`(?<=ab)c`,
		`(?<!ab)c`,
		`(?=(a))\1`,
		`(a|b){2,4}c`,
		`.`,
	}
	for _, p := range patterns {
		t.Run(p, func(t *testing.T) {
			c := mustCompile(t, p, "")
			if err := c.Prog.Validate(); err != nil {
				t.Errorf("Validate: %v", err)
			}
		})
	}
}

// TestCompile_Rejects covers malformed patterns; each must fail with an
// error that unwraps to ErrSyntax.
func TestCompile_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
	}{
		{name: "unmatched close paren", pattern: `a)`},
		{name: "unmatched open paren", pattern: `(a`},
		{name: "unmatched bracket", pattern: `[a`},
		{name: "empty class", pattern: `[]`},
		{name: "negated empty class", pattern: `[^]`},
		{name: "inverted range", pattern: `[z-a]`},
		{name: "inverted quantifier", pattern: `a{3,2}`},
		{name: "bare star", pattern: `*a`},
		{name: "double quantifier", pattern: `a**`},
		{name: "quantified anchor", pattern: `^*`},
		{name: "invalid quantifier", pattern: `a{x}`},
		{name: "unknown escape", pattern: `\q`},
		{name: "trailing backslash", pattern: `ab\`},
		{name: "unknown property", pattern: `\p{Bogus}`},
		{name: "unterminated property", pattern: `\p{L`},
		{name: "bad hex", pattern: `\xZZ`},
		{name: "truncated hex", pattern: `\u00`},
		{name: "undefined backref", pattern: `\1`},
		{name: "forward backref", pattern: `\1(a)`},
		{name: "backref into open group", pattern: `(a\1)`},
		{name: "bad group syntax", pattern: `(?Zabc)`},
		{name: "named group bad name", pattern: `(?P<1a>x)`},
		{name: "duplicate group name", pattern: `(?P<n>a)(?P<n>b)`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.pattern, 0)
			if err == nil {
				t.Fatalf("Compile(%q) succeeded, want error", tt.pattern)
			}
			if !errors.Is(err, ErrSyntax) {
				t.Errorf("error %v does not unwrap to ErrSyntax", err)
			}
		})
	}
}

func TestCompile_ErrorPosition(t *testing.T) {
	_, err := Compile(`abc[z-a]`, 0)
	var serr *SyntaxError
	if !errors.As(err, &serr) {
		t.Fatalf("want *SyntaxError, got %v", err)
	}
	if serr.Pos < 3 || serr.Pos > 8 {
		t.Errorf("error position %d outside the class at 3..8", serr.Pos)
	}
}

func TestParseFlags(t *testing.T) {
	f, err := ParseFlags("gims")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []Flags{FlagGlobal, FlagCaseFold, FlagMultiline, FlagSingleline} {
		if f&want == 0 {
			t.Errorf("flag %v not set", want)
		}
	}
	if _, err := ParseFlags("gg"); err == nil {
		t.Error("duplicate flag accepted")
	}
	if _, err := ParseFlags("z"); err == nil {
		t.Error("unknown flag accepted")
	}
}

func TestCompile_NamedGroupsSorted(t *testing.T) {
	c := mustCompile(t, `(?P<year>\d{4})-(?P<month>\d{2})-(?P<day>\d{2})`, "")
	if len(c.Named) != 3 {
		t.Fatalf("Named = %v, want 3 entries", c.Named)
	}
	want := []NamedGroup{{Name: "day", Index: 3}, {Name: "month", Index: 2}, {Name: "year", Index: 1}}
	for i, ng := range want {
		if c.Named[i] != ng {
			t.Errorf("Named[%d] = %v, want %v", i, c.Named[i], ng)
		}
	}
	if got := c.GroupIndex("month"); got != 2 {
		t.Errorf("GroupIndex(month) = %d, want 2", got)
	}
	if got := c.GroupIndex("absent"); got != -1 {
		t.Errorf("GroupIndex(absent) = %d, want -1", got)
	}
}

func TestCompile_OneShot(t *testing.T) {
	tests := []struct {
		pattern string
		flags   string
		want    bool
	}{
		{pattern: `^abc`, flags: "", want: true},
		{pattern: `(^abc)`, flags: "", want: true},
		{pattern: `abc`, flags: "", want: false},
		{pattern: `^abc`, flags: "m", want: false},
		{pattern: `a^bc`, flags: "", want: false},
	}
	for _, tt := range tests {
		c := mustCompile(t, tt.pattern, tt.flags)
		if c.OneShot != tt.want {
			t.Errorf("OneShot(%q, %q) = %v, want %v", tt.pattern, tt.flags, c.OneShot, tt.want)
		}
	}
}

func TestCompile_LookaroundDepthLimit(t *testing.T) {
	open := strings.Repeat("(?=", MaxLookaroundDepth)
	closeP := strings.Repeat(")", MaxLookaroundDepth)
	if _, err := Compile(open+"a"+closeP, 0); err != nil {
		t.Fatalf("nesting %d rejected: %v", MaxLookaroundDepth, err)
	}

	open = strings.Repeat("(?=", MaxLookaroundDepth+1)
	closeP = strings.Repeat(")", MaxLookaroundDepth+1)
	_, err := Compile(open+"a"+closeP, 0)
	if err == nil {
		t.Fatal("nesting 17 accepted")
	}
	var lerr *LimitError
	if !errors.As(err, &lerr) {
		t.Fatalf("want *LimitError, got %v", err)
	}
	if !errors.Is(err, ErrLimit) {
		t.Error("limit error does not unwrap to ErrLimit")
	}
}

func TestCompile_CumulativeRepetitionLimit(t *testing.T) {
	_, err := Compile(`((a{100,1000}){100,1000}){100,1000}`, 0)
	var lerr *LimitError
	if !errors.As(err, &lerr) {
		t.Fatalf("want *LimitError, got %v", err)
	}
}

// TestCompile_ClassLowering checks the representation ladder: single
// codepoint, short OrChar run, interval set, trie.
func TestCompile_ClassLowering(t *testing.T) {
	count := func(c *Compiled, op ir.Opcode) int {
		n := 0
		for pc := 0; pc < len(c.Prog.Insts); {
			if c.Prog.Insts[pc].Op() == op {
				n++
			}
			pc += c.Prog.Insts[pc].Op().Len()
		}
		return n
	}

	c := mustCompile(t, `[a]`, "")
	if count(c, ir.OpChar) != 1 {
		t.Error("singleton class should lower to Char")
	}

	c = mustCompile(t, `[abcd]`, "")
	if got := count(c, ir.OpOrChar); got != 4 {
		t.Errorf("4-member class lowered to %d OrChar words, want 4", got)
	}
	if c.Prog.Insts[0].Sequence() != 4 {
		t.Errorf("OrChar sequence = %d, want 4", c.Prog.Insts[0].Sequence())
	}

	c = mustCompile(t, `[a-z0-9]`, "")
	if count(c, ir.OpCodepointSet) != 1 {
		t.Error("two-interval class should lower to CodepointSet")
	}

	c = mustCompile(t, `[a-cf-hk-mp-rv-x]`, "")
	if count(c, ir.OpTrie) != 1 {
		t.Error("many-interval class should lower to a trie lookup")
	}
}

func TestCompile_SetDedup(t *testing.T) {
	c := mustCompile(t, `[a-z0-9]x[a-z0-9]`, "")
	if len(c.Sets) != 1 {
		t.Errorf("identical classes interned to %d sets, want 1", len(c.Sets))
	}
}

func TestCompile_CaseFoldLiteral(t *testing.T) {
	c := mustCompile(t, `k`, "i")
	// k expands to its fold orbit as an OrChar run.
	if c.Prog.Insts[0].Op() != ir.OpOrChar {
		t.Fatalf("folded literal lowered to %v, want OrChar", c.Prog.Insts[0].Op())
	}
	if got := c.Prog.Insts[0].Sequence(); got != 3 {
		t.Errorf("fold orbit run length = %d, want 3", got)
	}
}

func TestCompile_FreeformMode(t *testing.T) {
	c := mustCompile(t, "a b  # comment\n c", "x")
	var lits []rune
	for pc := 0; pc < len(c.Prog.Insts); {
		inst := c.Prog.Insts[pc]
		if inst.Op() == ir.OpChar {
			lits = append(lits, rune(inst.Data()))
		}
		pc += inst.Op().Len()
	}
	if string(lits) != "abc" {
		t.Errorf("freeform literals = %q, want \"abc\"", string(lits))
	}
}

func TestCompile_BackrefFlags(t *testing.T) {
	c := mustCompile(t, `(a)\1`, "")
	if !c.HasBackref {
		t.Error("HasBackref = false")
	}
	// The referenced group's start and end must carry the flag.
	var flagged int
	for pc := 0; pc < len(c.Prog.Insts); {
		inst := c.Prog.Insts[pc]
		if (inst.Op() == ir.OpGroupStart || inst.Op() == ir.OpGroupEnd) && inst.Flag() {
			flagged++
		}
		pc += inst.Op().Len()
	}
	if flagged != 2 {
		t.Errorf("flagged group boundaries = %d, want 2", flagged)
	}
}

func TestCompile_LocalBackref(t *testing.T) {
	c := mustCompile(t, `(?=(a)\1)`, "")
	var local bool
	for pc := 0; pc < len(c.Prog.Insts); {
		inst := c.Prog.Insts[pc]
		if inst.Op() == ir.OpBackref && inst.Flag() {
			local = true
		}
		pc += inst.Op().Len()
	}
	if !local {
		t.Error("backref inside its own lookaround not marked local")
	}
}

func TestCompile_EmptyAndNoop(t *testing.T) {
	c := mustCompile(t, ``, "")
	if len(c.Prog.Insts) != 1 || c.Prog.Insts[0].Op() != ir.OpEnd {
		t.Errorf("empty pattern compiled to %v", c.Prog.Insts)
	}

	c = mustCompile(t, `a{0,0}`, "")
	if len(c.Prog.Insts) != 1 || c.Prog.Insts[0].Op() != ir.OpEnd {
		t.Errorf("a{0,0} compiled to:\n%s", c.Prog)
	}
}
