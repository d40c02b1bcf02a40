// Package input abstracts the character sequence a matcher scans.
//
// An Input is a decoding cursor: Next yields one codepoint at a time
// together with the index where that codepoint begins, so group spans can
// be reported in source offsets. Every Input has a mirror-image reverse
// mode, obtained with LoopBack, that yields the codepoint ending at a
// position and walks toward the start. Forward and reverse cursors report
// identical indices for identical codepoint boundaries.
package input

import (
	"unicode/utf8"

	"github.com/coregx/revm/internal/swar"
)

// Prefilter finds candidate match positions in raw text. Implemented by
// the kickstart package; declared here so Input.Search does not depend on
// it.
type Prefilter interface {
	// Search returns the next candidate byte index at or after start,
	// or -1 when no candidate exists.
	Search(haystack []byte, start int) int
}

// Input is a cursor over a character sequence.
type Input interface {
	// Next decodes one codepoint and advances. at is the index of the
	// first unit of the codepoint in the underlying sequence. ok is false
	// at the end of input or on a malformed encoding, in which case the
	// cursor does not move.
	Next() (r rune, at int, ok bool)

	// AtEnd reports whether the cursor is exhausted.
	AtEnd() bool

	// Index returns the current cursor position as a unit index.
	Index() int

	// Reset moves the cursor to a previously reported index.
	Reset(at int)

	// Slice returns the raw units in [lo, hi). The result aliases the
	// input and must not be modified.
	Slice(lo, hi int) []byte

	// LoopBack returns a reverse-mode cursor positioned at the given
	// index. On a forward input the result scans toward the start; on a
	// reverse input it scans forward.
	LoopBack(at int) Input

	// Search advances to the next candidate position reported by the
	// prefilter and returns it. ok is false when no candidate remains.
	Search(pf Prefilter, at int) (pos int, ok bool)

	// Reversed reports whether this cursor scans toward the start.
	Reversed() bool
}

// Fork returns a cursor over the same text positioned at idx, scanning in
// the requested direction.
func Fork(in Input, idx int, reversed bool) Input {
	out := in.LoopBack(idx)
	if out.Reversed() != reversed {
		out = out.LoopBack(idx)
	}
	return out
}

// RuneBefore returns the codepoint ending at idx, if any.
func RuneBefore(in Input, idx int) (rune, bool) {
	r, _, ok := Fork(in, idx, true).Next()
	return r, ok
}

// RuneAt returns the codepoint starting at idx, if any.
func RuneAt(in Input, idx int) (rune, bool) {
	r, _, ok := Fork(in, idx, false).Next()
	return r, ok
}

// Bytes is a forward cursor over UTF-8 encoded text.
type Bytes struct {
	data []byte
	pos  int
}

// NewBytes returns a forward UTF-8 cursor at position 0.
func NewBytes(data []byte) *Bytes { return &Bytes{data: data} }

// Next implements Input. Malformed UTF-8 stops the cursor at the
// offending byte.
func (b *Bytes) Next() (rune, int, bool) {
	if b.pos >= len(b.data) {
		return 0, b.pos, false
	}
	at := b.pos
	if c := b.data[b.pos]; c < utf8.RuneSelf {
		b.pos++
		return rune(c), at, true
	}
	r, size := utf8.DecodeRune(b.data[b.pos:])
	if r == utf8.RuneError && size <= 1 {
		return 0, at, false
	}
	b.pos += size
	return r, at, true
}

// AtEnd implements Input.
func (b *Bytes) AtEnd() bool { return b.pos >= len(b.data) }

// Index implements Input.
func (b *Bytes) Index() int { return b.pos }

// Reset implements Input.
func (b *Bytes) Reset(at int) { b.pos = at }

// Slice implements Input.
func (b *Bytes) Slice(lo, hi int) []byte { return b.data[lo:hi] }

// LoopBack implements Input.
func (b *Bytes) LoopBack(at int) Input { return &BytesReverse{data: b.data, pos: at} }

// Search implements Input.
func (b *Bytes) Search(pf Prefilter, at int) (int, bool) {
	pos := pf.Search(b.data, at)
	if pos < 0 {
		b.pos = len(b.data)
		return len(b.data), false
	}
	b.pos = pos
	return pos, true
}

// Reversed implements Input.
func (b *Bytes) Reversed() bool { return false }

// Data returns the underlying buffer.
func (b *Bytes) Data() []byte { return b.data }

// IsASCII reports whether the whole buffer is ASCII, enabling byte-at-a-
// time fast paths in the matchers.
func (b *Bytes) IsASCII() bool { return swar.IsASCII(b.data) }

// BytesReverse is a reverse cursor over UTF-8 text: Next yields the
// codepoint that ends immediately before the cursor and moves backward.
type BytesReverse struct {
	data []byte
	pos  int
}

// NewBytesReverse returns a reverse cursor positioned at 'at'.
func NewBytesReverse(data []byte, at int) *BytesReverse {
	return &BytesReverse{data: data, pos: at}
}

// Next implements Input. at is the index of the first byte of the decoded
// codepoint, matching what the forward cursor reports for it.
func (b *BytesReverse) Next() (rune, int, bool) {
	if b.pos <= 0 {
		return 0, b.pos, false
	}
	r, size := utf8.DecodeLastRune(b.data[:b.pos])
	if r == utf8.RuneError && size <= 1 && b.data[b.pos-1] >= utf8.RuneSelf {
		return 0, b.pos, false
	}
	b.pos -= size
	return r, b.pos, true
}

// AtEnd implements Input; a reverse cursor ends at the buffer start.
func (b *BytesReverse) AtEnd() bool { return b.pos <= 0 }

// Index implements Input.
func (b *BytesReverse) Index() int { return b.pos }

// Reset implements Input.
func (b *BytesReverse) Reset(at int) { b.pos = at }

// Slice implements Input.
func (b *BytesReverse) Slice(lo, hi int) []byte { return b.data[lo:hi] }

// LoopBack implements Input; on a reverse cursor it returns a forward one.
func (b *BytesReverse) LoopBack(at int) Input { return &Bytes{data: b.data, pos: at} }

// Search implements Input. Reverse cursors do not kickstart; the cursor is
// left in place and the candidate is rejected.
func (b *BytesReverse) Search(pf Prefilter, at int) (int, bool) {
	return at, false
}

// Reversed implements Input.
func (b *BytesReverse) Reversed() bool { return true }

// Runes is a forward cursor over fixed-width text ([]rune); no decode
// logic is involved and indices are rune indices.
type Runes struct {
	data []rune
	pos  int
}

// NewRunes returns a forward fixed-width cursor at position 0.
func NewRunes(data []rune) *Runes { return &Runes{data: data} }

// Next implements Input.
func (s *Runes) Next() (rune, int, bool) {
	if s.pos >= len(s.data) {
		return 0, s.pos, false
	}
	at := s.pos
	s.pos++
	return s.data[at], at, true
}

// AtEnd implements Input.
func (s *Runes) AtEnd() bool { return s.pos >= len(s.data) }

// Index implements Input.
func (s *Runes) Index() int { return s.pos }

// Reset implements Input.
func (s *Runes) Reset(at int) { s.pos = at }

// Slice implements Input; the runes are re-encoded as UTF-8 for span
// comparisons.
func (s *Runes) Slice(lo, hi int) []byte { return []byte(string(s.data[lo:hi])) }

// LoopBack implements Input.
func (s *Runes) LoopBack(at int) Input { return &RunesReverse{data: s.data, pos: at} }

// Search implements Input; fixed-width cursors do not kickstart: the
// cursor is left in place and the current position stays a candidate.
func (s *Runes) Search(pf Prefilter, at int) (int, bool) { return at, true }

// Reversed implements Input.
func (s *Runes) Reversed() bool { return false }

// RunesReverse is the reverse cursor over fixed-width text.
type RunesReverse struct {
	data []rune
	pos  int
}

// Next implements Input.
func (s *RunesReverse) Next() (rune, int, bool) {
	if s.pos <= 0 {
		return 0, s.pos, false
	}
	s.pos--
	return s.data[s.pos], s.pos, true
}

// AtEnd implements Input.
func (s *RunesReverse) AtEnd() bool { return s.pos <= 0 }

// Index implements Input.
func (s *RunesReverse) Index() int { return s.pos }

// Reset implements Input.
func (s *RunesReverse) Reset(at int) { s.pos = at }

// Slice implements Input.
func (s *RunesReverse) Slice(lo, hi int) []byte { return []byte(string(s.data[lo:hi])) }

// LoopBack implements Input.
func (s *RunesReverse) LoopBack(at int) Input { return &Runes{data: s.data, pos: at} }

// Search implements Input.
func (s *RunesReverse) Search(pf Prefilter, at int) (int, bool) { return at, false }

// Reversed implements Input.
func (s *RunesReverse) Reversed() bool { return true }
