package compiler

import "strings"

// Flags alter how a pattern is compiled and matched.
type Flags uint8

const (
	// FlagGlobal requests all matches instead of the first one.
	FlagGlobal Flags = 1 << iota

	// FlagCaseFold matches case-insensitively via simple case folding.
	FlagCaseFold

	// FlagFreeform ignores unescaped whitespace in the pattern and treats
	// '#' as starting a comment that runs to end of line.
	FlagFreeform

	// FlagNonUnicode restricts \d, \s and \w (and their negations) to
	// their ASCII ranges.
	FlagNonUnicode

	// FlagMultiline makes ^ and $ match at line breaks.
	FlagMultiline

	// FlagSingleline makes . match line break characters too.
	FlagSingleline
)

var flagChars = map[byte]Flags{
	'g': FlagGlobal,
	'i': FlagCaseFold,
	'x': FlagFreeform,
	'U': FlagNonUnicode,
	'm': FlagMultiline,
	's': FlagSingleline,
}

// ParseFlags parses a flags string such as "gi". A character outside the
// gixUms set or a duplicated character is an error.
func ParseFlags(s string) (Flags, error) {
	var flags Flags
	for i := 0; i < len(s); i++ {
		f, ok := flagChars[s[i]]
		if !ok {
			return 0, &SyntaxError{Message: "unknown flag " + string(s[i]), Pos: i}
		}
		if flags&f != 0 {
			return 0, &SyntaxError{Message: "duplicate flag " + string(s[i]), Pos: i}
		}
		flags |= f
	}
	return flags, nil
}

// String renders the flags in gixUms order.
func (f Flags) String() string {
	var b strings.Builder
	for _, c := range []byte("gixUms") {
		if f&flagChars[c] != 0 {
			b.WriteByte(c)
		}
	}
	return b.String()
}
