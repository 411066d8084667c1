package shared

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Hello, World!":            "hello-world",
		"  Multiple   spaces  ":    "multiple-spaces",
		"Café au lait":             "cafe-au-lait",
		"Ünïcödé Tïtle":            "unicode-title",
		"already-a-slug":           "already-a-slug",
		"100% Pure Go":             "100-pure-go",
		"---":                      "",
		"Trailing punctuation!!!":  "trailing-punctuation",
	}
	for input, want := range cases {
		require.Equal(t, want, Slugify(input), "input %q", input)
	}
}

func TestSlugifyCapsLength(t *testing.T) {
	slug := Slugify(strings.Repeat("word ", 60))
	require.LessOrEqual(t, len(slug), maxSlugLen)
	require.False(t, strings.HasSuffix(slug, "-"))
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "short", Truncate("short", 10))
	require.Equal(t, "abc…", Truncate("abcdef", 3))
	require.Equal(t, "", Truncate("anything", 0))

	// Rune-safe: never splits a multibyte character.
	got := Truncate("héllô wörld", 5)
	require.Equal(t, "héllô…", got)
}
