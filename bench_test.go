package revm

import (
	"strings"
	"testing"
)

var benchSink bool

func BenchmarkMatch_Literal(b *testing.B) {
	re := MustCompile(`needle`)
	haystack := []byte(strings.Repeat("hay ", 4096) + "needle")
	b.SetBytes(int64(len(haystack)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		benchSink = re.Match(haystack)
	}
}

func BenchmarkMatch_Alternation(b *testing.B) {
	re := MustCompile(`foo|bar|baz`)
	haystack := []byte(strings.Repeat("qux ", 4096) + "baz")
	b.SetBytes(int64(len(haystack)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		benchSink = re.Match(haystack)
	}
}

func BenchmarkMatch_Pathological(b *testing.B) {
	// Exponential for naive engines; the merge table keeps it linear.
	re := MustCompile(`(a|a)*b`)
	haystack := []byte(strings.Repeat("a", 256))
	b.SetBytes(int64(len(haystack)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		benchSink = re.Match(haystack)
	}
}

func BenchmarkFindSubmatch_Date(b *testing.B) {
	re := MustCompile(`(?P<y>\d{4})-(?P<m>\d{2})-(?P<d>\d{2})`)
	haystack := []byte("commit dated 2024-11-28 by the release bot")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		re.FindSubmatch(haystack)
	}
}

func BenchmarkBacktracker_Backref(b *testing.B) {
	re := MustCompile(`(\w+) \1`)
	haystack := []byte("one two two three")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		benchSink = re.Match(haystack)
	}
}
