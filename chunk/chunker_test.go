package chunk

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	segments := Split("hello world", 100)
	require.Len(t, segments, 1)
	assert.Equal(t, "hello world", segments[0])
}

func TestSplit_EmptyInput(t *testing.T) {
	segments := Split("", 100)
	require.Len(t, segments, 1)
	assert.Equal(t, "", segments[0])
}

func TestSplit_WordBoundaries(t *testing.T) {
	segments := Split("aaa bbb ccc ddd", 7)
	require.Equal(t, []string{"aaa bbb", "ccc ddd"}, segments)
	for _, s := range segments {
		assert.LessOrEqual(t, len(s), 7)
	}
}

func TestSplit_Coverage(t *testing.T) {
	// Rejoining chunks must reconstruct the normalized input: every
	// character appears in exactly one chunk.
	text := Normalize(strings.Repeat("lorem ipsum dolor sit amet ", 50))
	segments := Split(text, 64)
	require.Greater(t, len(segments), 1)
	assert.Equal(t, text, strings.Join(segments, " "))

	var total int
	for _, s := range segments {
		assert.LessOrEqual(t, len(s), 64)
		total += len(s)
	}
	assert.GreaterOrEqual(t, total, len(text)-len(segments), "only inter-chunk separators may be dropped")
}

func TestSplit_Deterministic(t *testing.T) {
	text := strings.Repeat("alpha beta gamma delta ", 30)
	first := Split(text, 50)
	second := Split(text, 50)
	assert.Equal(t, first, second)
}

func TestSplit_LongWordHardSplit(t *testing.T) {
	word := strings.Repeat("x", 25)
	segments := Split("aa "+word+" bb", 10)
	assert.Equal(t, strings.ReplaceAll(strings.Join(segments, ""), " ", ""), "aa"+word+"bb")
	for _, s := range segments {
		assert.LessOrEqual(t, len(s), 10)
	}
}

func TestSplit_LongWordHardSplit_Multibyte(t *testing.T) {
	// Whitespace-free multibyte text never splits on word boundaries, so the
	// hard-split path takes every cut. Each cut must land on a rune boundary.
	text := strings.Repeat("世界", 400)
	segments := Split(text, 100)
	require.Greater(t, len(segments), 1)

	for _, s := range segments {
		assert.True(t, utf8.ValidString(s), "hard-split segments should remain valid UTF-8")
		assert.LessOrEqual(t, len(s), 100)
	}
	assert.Equal(t, text, strings.Join(segments, ""), "every byte appears in exactly one segment")
}

func TestBuild_ChunkIdentityAndHash(t *testing.T) {
	chunks := Build("articles", "7", "Title", strings.Repeat("word ", 100), map[string]string{"lang": "en"}, 50)
	require.Greater(t, len(chunks), 1)

	for i, c := range chunks {
		assert.Equal(t, "articles", c.SourceTable)
		assert.Equal(t, "7", c.SourceID)
		assert.Equal(t, i, c.Index)
		assert.Equal(t, len(chunks), c.Total)
		assert.Less(t, c.Index, c.Total)
		assert.NotEmpty(t, c.ContentHash)
	}

	// Identical text in every chunk here, so every hash is identical too.
	assert.Equal(t, chunks[0].ContentHash, chunks[1].ContentHash)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "a b c", Normalize("  a\tb\n\nc  "))
	assert.Equal(t, "", Normalize("   \n\t "))
}

func TestCollectStrings_Nested(t *testing.T) {
	v := map[string]any{
		"title": "hello",
		"meta": map[string]any{
			"tags":  []any{"go", "vectors"},
			"count": 3,
		},
		"empty": "",
		"flag":  true,
	}
	got := CollectStrings(v)
	assert.Equal(t, []string{"hello", "3", "go", "vectors"}, got)
}

func TestCollectStrings_DepthBounded(t *testing.T) {
	// Build nesting deeper than the bound; the innermost string must be dropped.
	inner := map[string]any{"leaf": "too deep"}
	v := any(inner)
	for i := 0; i < maxCollectDepth+2; i++ {
		v = map[string]any{"wrap": v}
	}
	assert.Empty(t, CollectStrings(v))
}
