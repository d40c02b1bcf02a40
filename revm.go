// Package revm is a bytecode regular-expression engine.
//
// A pattern compiles to a flat instruction stream executed by one of two
// back-ends: a breadth-first Thompson simulator with guaranteed linear
// scaling in the input, or a depth-first backtracker for patterns using
// back-references. Bit-parallel kickstart prefilters skip input positions
// where no match can start.
//
// Basic usage:
//
//	re, err := revm.Compile(`(?P<year>\d{4})-\d{2}`)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	m := re.FindSubmatch([]byte("since 2024-11"))
//	fmt.Println(string(m[0])) // "2024-11"
//
// Flags are supplied separately from the pattern:
//
//	re, err := revm.CompileFlags(`ab*c`, "im")
//
// A compiled Regex is immutable and safe for concurrent use; every match
// call builds its own matcher with private scratch state.
package revm

import (
	"sync/atomic"

	"github.com/coregx/revm/compiler"
	"github.com/coregx/revm/input"
	"github.com/coregx/revm/kickstart"
	"github.com/coregx/revm/vm"
)

// Flags re-exports the compiler's flag set.
type Flags = compiler.Flags

// NamedGroup associates a group name with its capture index.
type NamedGroup = compiler.NamedGroup

// Config tunes compilation. Zero value is not useful; start from
// DefaultConfig.
type Config struct {
	// EnableKickstart controls construction of the candidate prefilter.
	EnableKickstart bool
}

// DefaultConfig returns the default compilation configuration.
func DefaultConfig() Config {
	return Config{
		EnableKickstart: true,
	}
}

// Stats counts engine activity, useful when tuning patterns.
type Stats struct {
	// ThompsonSearches counts searches run on the Thompson simulator.
	ThompsonSearches uint64

	// BacktrackerSearches counts searches run on the backtracker.
	BacktrackerSearches uint64
}

// Regex is a compiled regular expression. It is immutable after
// compilation and safe for concurrent use.
type Regex struct {
	stats Stats // first field: keeps the uint64 counters 8-byte aligned

	c      *compiler.Compiled
	kick   input.Prefilter
	config Config
}

// Compile compiles a pattern with no flags.
func Compile(pattern string) (*Regex, error) {
	return CompileFlags(pattern, "")
}

// CompileFlags compiles a pattern with a flag string drawn from "gixUms".
// A duplicated or unknown flag is an error.
func CompileFlags(pattern, flags string) (*Regex, error) {
	return CompileWithConfig(pattern, flags, DefaultConfig())
}

// CompileWithConfig compiles with explicit configuration.
func CompileWithConfig(pattern, flags string, config Config) (*Regex, error) {
	f, err := compiler.ParseFlags(flags)
	if err != nil {
		return nil, err
	}
	c, err := compiler.Compile(pattern, f)
	if err != nil {
		return nil, err
	}
	re := &Regex{c: c, config: config}
	if config.EnableKickstart {
		re.kick = kickstart.Build(c)
	}
	return re, nil
}

// MustCompile is Compile that panics on error, for patterns known valid
// at build time.
func MustCompile(pattern string) *Regex {
	re, err := Compile(pattern)
	if err != nil {
		panic("revm: Compile(" + pattern + "): " + err.Error())
	}
	return re
}

// MustCompileFlags is CompileFlags that panics on error.
func MustCompileFlags(pattern, flags string) *Regex {
	re, err := CompileFlags(pattern, flags)
	if err != nil {
		panic("revm: Compile(" + pattern + "): " + err.Error())
	}
	return re
}

// String returns the source pattern.
func (re *Regex) String() string { return re.c.Pattern }

// Flags returns the compile flags.
func (re *Regex) Flags() Flags { return re.c.Flags }

// GroupCount returns the number of capture slots including slot 0, the
// whole match.
func (re *Regex) GroupCount() int { return re.c.Prog.NGroup }

// NumSubexp returns the number of explicit capturing groups.
func (re *Regex) NumSubexp() int { return re.c.Prog.NGroup - 1 }

// HasKickstart reports whether a prefilter was built for this pattern.
func (re *Regex) HasKickstart() bool { return re.kick != nil }

// IsOneShot reports whether the pattern is anchored at the input start,
// disabling the outer search stride.
func (re *Regex) IsOneShot() bool { return re.c.OneShot }

// NamedGroups returns the named groups ordered by name.
func (re *Regex) NamedGroups() []NamedGroup {
	out := make([]NamedGroup, len(re.c.Named))
	copy(out, re.c.Named)
	return out
}

// GroupIndex returns the capture index of a named group, or -1.
func (re *Regex) GroupIndex(name string) int { return re.c.GroupIndex(name) }

// Stats returns a snapshot of the engine counters.
func (re *Regex) Stats() Stats {
	return Stats{
		ThompsonSearches:    atomic.LoadUint64(&re.stats.ThompsonSearches),
		BacktrackerSearches: atomic.LoadUint64(&re.stats.BacktrackerSearches),
	}
}

// matcher builds the back-end for one search: patterns with
// back-references need the backtracker, everything else runs on the
// Thompson simulator.
func (re *Regex) matcher(in input.Input) vm.Matcher {
	if re.c.HasBackref {
		atomic.AddUint64(&re.stats.BacktrackerSearches, 1)
		return vm.NewBacktracker(re.c, in, re.kick)
	}
	atomic.AddUint64(&re.stats.ThompsonSearches, 1)
	return vm.NewThompson(re.c, in, re.kick)
}

// findAt returns the capture offsets of the leftmost match at or after at.
func (re *Regex) findAt(b []byte, at int) ([]int, bool) {
	if at > len(b) {
		return nil, false
	}
	in := input.NewBytes(b)
	groups, ok := re.matcher(in).Run(at)
	if !ok {
		return nil, false
	}
	out := make([]int, len(groups))
	copy(out, groups)
	return out, true
}

// Match reports whether b contains a match.
func (re *Regex) Match(b []byte) bool {
	_, ok := re.findAt(b, 0)
	return ok
}

// MatchString reports whether s contains a match.
func (re *Regex) MatchString(s string) bool { return re.Match([]byte(s)) }

// MatchRunes reports whether the fixed-width rune sequence contains a
// match.
func (re *Regex) MatchRunes(rs []rune) bool {
	_, ok := re.matcher(input.NewRunes(rs)).Run(0)
	return ok
}

// Find returns the text of the leftmost match, or nil.
func (re *Regex) Find(b []byte) []byte {
	g, ok := re.findAt(b, 0)
	if !ok {
		return nil
	}
	return b[g[0]:g[1]]
}

// FindString returns the text of the leftmost match, or "".
func (re *Regex) FindString(s string) string { return string(re.Find([]byte(s))) }

// FindIndex returns the span of the leftmost match, or nil.
func (re *Regex) FindIndex(b []byte) []int {
	g, ok := re.findAt(b, 0)
	if !ok {
		return nil
	}
	return []int{g[0], g[1]}
}

// FindStringIndex is FindIndex for strings.
func (re *Regex) FindStringIndex(s string) []int { return re.FindIndex([]byte(s)) }

// FindSubmatchIndex returns the spans of the match and of every capture
// group: result[2k], result[2k+1] delimit group k. Groups that did not
// participate report a zero span. Returns nil when there is no match.
func (re *Regex) FindSubmatchIndex(b []byte) []int {
	g, ok := re.findAt(b, 0)
	if !ok {
		return nil
	}
	return g
}

// FindSubmatch returns the text of the match and of every capture group.
func (re *Regex) FindSubmatch(b []byte) [][]byte {
	g, ok := re.findAt(b, 0)
	if !ok {
		return nil
	}
	out := make([][]byte, re.GroupCount())
	for k := range out {
		out[k] = b[g[2*k]:g[2*k+1]]
	}
	return out
}

// FindStringSubmatch is FindSubmatch for strings.
func (re *Regex) FindStringSubmatch(s string) []string {
	m := re.FindSubmatch([]byte(s))
	if m == nil {
		return nil
	}
	out := make([]string, len(m))
	for i, g := range m {
		out[i] = string(g)
	}
	return out
}

// FindAllIndex returns the spans of up to n successive non-overlapping
// matches; n <= 0 means all. An empty match advances the scan by one
// codepoint.
func (re *Regex) FindAllIndex(b []byte, n int) [][]int {
	if n == 0 {
		return nil
	}
	var out [][]int
	pos := 0
	for pos <= len(b) {
		g, ok := re.findAt(b, pos)
		if !ok {
			break
		}
		out = append(out, []int{g[0], g[1]})
		if n > 0 && len(out) >= n {
			break
		}
		if g[1] > pos {
			pos = g[1]
		} else {
			pos = nextRuneIndex(b, g[1])
		}
	}
	return out
}

// FindAll returns the text of up to n successive matches.
func (re *Regex) FindAll(b []byte, n int) [][]byte {
	idx := re.FindAllIndex(b, n)
	if idx == nil {
		return nil
	}
	out := make([][]byte, len(idx))
	for i, span := range idx {
		out[i] = b[span[0]:span[1]]
	}
	return out
}

// FindAllString returns the text of up to n successive matches in s.
func (re *Regex) FindAllString(s string, n int) []string {
	all := re.FindAll([]byte(s), n)
	if all == nil {
		return nil
	}
	out := make([]string, len(all))
	for i, m := range all {
		out[i] = string(m)
	}
	return out
}

// nextRuneIndex returns the byte index one codepoint past at.
func nextRuneIndex(b []byte, at int) int {
	if at >= len(b) {
		return at + 1
	}
	in := input.NewBytes(b)
	in.Reset(at)
	if _, _, ok := in.Next(); !ok {
		return at + 1
	}
	return in.Index()
}
