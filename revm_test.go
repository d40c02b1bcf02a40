package revm

import (
	"errors"
	"reflect"
	"regexp"
	"testing"

	"github.com/coregx/revm/compiler"
)

func TestCompile_Errors(t *testing.T) {
	if _, err := Compile(`(a`); !errors.Is(err, compiler.ErrSyntax) {
		t.Errorf("Compile((a) = %v, want syntax error", err)
	}
	if _, err := CompileFlags(`a`, "gg"); err == nil {
		t.Error("duplicate flag accepted")
	}
	if _, err := CompileFlags(`a`, "q"); err == nil {
		t.Error("unknown flag accepted")
	}
}

func TestMustCompile_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustCompile did not panic on a bad pattern")
		}
	}()
	MustCompile(`[z-a]`)
}

func TestRegex_Accessors(t *testing.T) {
	re := MustCompile(`(?P<y>\d{4})-(?P<m>\d{2})`)
	if got := re.GroupCount(); got != 3 {
		t.Errorf("GroupCount = %d, want 3", got)
	}
	if got := re.NumSubexp(); got != 2 {
		t.Errorf("NumSubexp = %d, want 2", got)
	}
	names := re.NamedGroups()
	want := []NamedGroup{{Name: "m", Index: 2}, {Name: "y", Index: 1}}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("NamedGroups = %v, want %v", names, want)
	}
	if re.GroupIndex("y") != 1 || re.GroupIndex("nope") != -1 {
		t.Error("GroupIndex lookup broken")
	}
	if re.String() != `(?P<y>\d{4})-(?P<m>\d{2})` {
		t.Errorf("String = %q", re.String())
	}

	anchored := MustCompile(`^start`)
	if !anchored.IsOneShot() {
		t.Error("^start should be one-shot")
	}
	if anchored.HasKickstart() {
		t.Error("one-shot pattern should not carry a kickstart")
	}
	if !MustCompile(`needle`).HasKickstart() {
		t.Error("plain literal should carry a kickstart")
	}
}

// End-to-end scenario: simple greedy loop.
func TestScenario_GreedyLoop(t *testing.T) {
	re := MustCompile(`ab*c`)
	loc := re.FindIndex([]byte("abbbc"))
	if !reflect.DeepEqual(loc, []int{0, 5}) {
		t.Errorf("FindIndex = %v, want [0 5]", loc)
	}
	sub := re.FindSubmatch([]byte("abbbc"))
	if len(sub) != 1 || string(sub[0]) != "abbbc" {
		t.Errorf("FindSubmatch = %q, want just the whole match", sub)
	}
}

// End-to-end scenario: named date groups.
func TestScenario_NamedDate(t *testing.T) {
	re := MustCompile(`(?P<y>\d{4})-(?P<m>\d{2})-(?P<d>\d{2})`)
	m := re.FindStringSubmatch("2024-11-28")
	want := []string{"2024-11-28", "2024", "11", "28"}
	if !reflect.DeepEqual(m, want) {
		t.Fatalf("FindStringSubmatch = %q, want %q", m, want)
	}
	if re.GroupIndex("y") != 1 || re.GroupIndex("m") != 2 || re.GroupIndex("d") != 3 {
		t.Error("named indices wrong")
	}
}

// End-to-end scenario: leftmost-first priority across repeated matches.
func TestScenario_LeftmostFirst(t *testing.T) {
	re := MustCompileFlags(`(a|aa)`, "g")
	all := re.FindAllIndex([]byte("aaa"), -1)
	want := [][]int{{0, 1}, {1, 2}, {2, 3}}
	if !reflect.DeepEqual(all, want) {
		t.Errorf("FindAllIndex = %v, want %v", all, want)
	}
}

// End-to-end scenario: back-reference via the backtracking engine.
func TestScenario_Backreference(t *testing.T) {
	re := MustCompile(`(.+?)\1`)
	m := re.FindStringSubmatch("abab")
	if m == nil {
		t.Fatal("no match")
	}
	if m[0] != "abab" || m[1] != "ab" {
		t.Errorf("match = %q group = %q, want abab / ab", m[0], m[1])
	}
	if s := re.Stats(); s.BacktrackerSearches == 0 {
		t.Error("backreference pattern should route to the backtracker")
	}
}

// End-to-end scenario: lookahead does not consume.
func TestScenario_Lookahead(t *testing.T) {
	re := MustCompileFlags(`foo(?=bar)`, "g")
	all := re.FindAllIndex([]byte("foobar foobaz"), -1)
	want := [][]int{{0, 3}}
	if !reflect.DeepEqual(all, want) {
		t.Errorf("FindAllIndex = %v, want %v", all, want)
	}
}

// End-to-end scenario: class intersection.
func TestScenario_ClassIntersection(t *testing.T) {
	re := MustCompileFlags(`[a-z&&[^aeiou]]+`, "g")
	all := re.FindAllString("hello", -1)
	want := []string{"h", "ll"}
	if !reflect.DeepEqual(all, want) {
		t.Errorf("FindAllString = %q, want %q", all, want)
	}
}

func TestFindAll_EmptyMatches(t *testing.T) {
	re := MustCompile(`a*`)
	all := re.FindAllString("baa", -1)
	want := []string{"", "aa", ""}
	if !reflect.DeepEqual(all, want) {
		t.Errorf("FindAllString = %q, want %q", all, want)
	}
}

func TestFindAll_Limit(t *testing.T) {
	re := MustCompile(`\d`)
	all := re.FindAllString("1 2 3 4", 2)
	if !reflect.DeepEqual(all, []string{"1", "2"}) {
		t.Errorf("FindAllString(n=2) = %q", all)
	}
	if re.FindAllString("1 2 3", 0) != nil {
		t.Error("n=0 should return nil")
	}
}

func TestMatch_Basics(t *testing.T) {
	re := MustCompile(`\bgo+d\b`)
	if !re.MatchString("a goood day") {
		t.Error("expected match")
	}
	if re.MatchString("goodness") {
		t.Error("unexpected match through the word boundary")
	}
	if !re.MatchRunes([]rune("so god")) {
		t.Error("rune input should match")
	}
}

func TestUnmatchedGroup_ZeroSpan(t *testing.T) {
	re := MustCompile(`(a)|(b)`)
	idx := re.FindSubmatchIndex([]byte("xb"))
	if idx == nil {
		t.Fatal("no match")
	}
	// Group 1 did not participate and reports the zero span.
	if idx[2] != 0 || idx[3] != 0 {
		t.Errorf("unmatched group span = [%d,%d), want [0,0)", idx[2], idx[3])
	}
	if idx[4] != 1 || idx[5] != 2 {
		t.Errorf("group 2 span = [%d,%d), want [1,2)", idx[4], idx[5])
	}
}

// Cross-check a shared surface against the stdlib engine.
func TestStdlibCompat(t *testing.T) {
	tests := []struct {
		pattern  string
		haystack string
	}{
		{pattern: `a+b`, haystack: "xaab yab"},
		{pattern: `[0-9]{2,4}`, haystack: "1 22 333 55555"},
		{pattern: `(\w+)@(\w+)`, haystack: "mail me: someone@example now"},
		{pattern: `^|x`, haystack: "axb"},
		{pattern: `foo|bar|baz`, haystack: "a baz walks into a bar"},
		{pattern: `\d+`, haystack: "no digits here"},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			mine := MustCompile(tt.pattern).FindIndex([]byte(tt.haystack))
			std := regexp.MustCompile(tt.pattern).FindIndex([]byte(tt.haystack))
			if !reflect.DeepEqual(mine, std) {
				t.Errorf("FindIndex = %v, stdlib = %v", mine, std)
			}
		})
	}
}

func TestConfig_DisableKickstart(t *testing.T) {
	re, err := CompileWithConfig(`needle`, "", Config{EnableKickstart: false})
	if err != nil {
		t.Fatal(err)
	}
	if re.HasKickstart() {
		t.Error("kickstart built despite being disabled")
	}
	if re.FindStringIndex("hay needle hay") == nil {
		t.Error("match must not depend on the kickstart")
	}
}

func TestStats_Counters(t *testing.T) {
	re := MustCompile(`x`)
	re.MatchString("x")
	re.MatchString("y")
	if got := re.Stats().ThompsonSearches; got != 2 {
		t.Errorf("ThompsonSearches = %d, want 2", got)
	}
}
