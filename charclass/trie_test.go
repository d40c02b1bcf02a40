package charclass

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrie_LookupMatchesSet(t *testing.T) {
	set := NewSet(
		Interval{Lo: 'a', Hi: 'z' + 1},
		Interval{Lo: 0x100, Hi: 0x200},
		Interval{Lo: 0x10400, Hi: 0x10450},
	)
	trie := BuildTrie(set)

	probes := []rune{
		0, 'a', 'z', 'z' + 1, 'A', 0xFF, 0x100, 0x1FF, 0x200,
		0x10400, 0x1044F, 0x10450, MaxCodepoint - 1,
	}
	for _, r := range probes {
		assert.Equal(t, set.Contains(r), trie.Lookup(r) != 0, "codepoint %#x", r)
	}
}

func TestTrie_LookupOutOfRange(t *testing.T) {
	trie := BuildTrie(Single('a'))
	assert.Zero(t, trie.Lookup(-1))
	assert.Zero(t, trie.Lookup(MaxCodepoint))
}

func TestTrie_ModifyRangeOps(t *testing.T) {
	trie := NewTrie()
	trie.ModifyRange(OpOr, 0b11, 'a', 'f')
	assert.Equal(t, uint32(0b11), trie.Lookup('c'))

	trie.ModifyRange(OpAndNot, 0b01, 'b', 'd')
	assert.Equal(t, uint32(0b10), trie.Lookup('b'))
	assert.Equal(t, uint32(0b10), trie.Lookup('c'))
	assert.Equal(t, uint32(0b11), trie.Lookup('d'))

	trie.ModifyRange(OpAnd, 0b01, 'a', 'f')
	assert.Equal(t, uint32(0b01), trie.Lookup('a'))
	assert.Equal(t, uint32(0b00), trie.Lookup('b'))
}

// Pages covering untouched regions must stay shared: a trie over a small
// set allocates far fewer pages than the index has slots.
func TestTrie_PageSharing(t *testing.T) {
	trie := BuildTrie(NewSet(Interval{Lo: 'a', Hi: 'b'}))
	require.Less(t, len(trie.pages), 8, "sparse set must not materialize many pages")
}

// Two distinct slots modified to identical content must merge onto one
// page through the content hash.
func TestTrie_PageMerge(t *testing.T) {
	trie := NewTrie()
	// Same per-page bit pattern in two different pages.
	trie.ModifyRange(OpOr, 1, 0x100, 0x110)
	trie.ModifyRange(OpOr, 1, 0x200, 0x210)
	assert.Equal(t, trie.index[0x100>>pageBits], trie.index[0x200>>pageBits],
		"identical pages should share an id")
}

func TestCachedTrie_ReusesByContent(t *testing.T) {
	a := CachedTrie(NewSet(Interval{Lo: 'p', Hi: 'q'}))
	b := CachedTrie(NewSet(Interval{Lo: 'p', Hi: 'q'}))
	assert.Same(t, a, b, "equal sets must share the cached trie")

	c := CachedTrie(NewSet(Interval{Lo: 'p', Hi: 'r'}))
	assert.NotSame(t, a, c)
}
