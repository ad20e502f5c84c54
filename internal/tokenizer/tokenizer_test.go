package tokenizer

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWhitespaceSplitRoundtrip(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "empty", text: ""},
		{name: "single word", text: "hello"},
		{name: "sentence", text: "the borrow checker enforces ownership"},
		{name: "leading whitespace", text: "  indented text"},
		{name: "trailing whitespace", text: "text with tail   "},
		{name: "mixed whitespace", text: "a\tb\n\nc  d"},
		{name: "unicode", text: "propriété — durée de vie"},
	}

	c := Whitespace()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pieces := c.Split(tt.text)
			assert.Equal(t, tt.text, Join(pieces), "concatenated pieces must reconstruct input")
			assert.Equal(t, len(pieces), c.Count(tt.text))
		})
	}
}

func TestWhitespaceCount(t *testing.T) {
	c := Whitespace()
	assert.Equal(t, 3, c.Count("a b c"))
	assert.Equal(t, 3, c.Count("a  b\tc\n"))
	assert.Equal(t, 0, c.Count(""))
}

func TestTruncate(t *testing.T) {
	c := Whitespace()

	text := strings.Repeat("word ", 10)

	got, truncated := Truncate(c, text, 4)
	require.True(t, truncated)
	assert.Equal(t, 4, c.Count(got))
	assert.True(t, strings.HasPrefix(text, got), "truncation must keep the head")

	got, truncated = Truncate(c, text, 100)
	assert.False(t, truncated)
	assert.Equal(t, text, got)

	// Non-positive max disables truncation.
	got, truncated = Truncate(c, text, 0)
	assert.False(t, truncated)
	assert.Equal(t, text, got)
}

func TestMergePartialRunes(t *testing.T) {
	tests := []struct {
		name   string
		pieces []string
		want   []string
	}{
		{
			name:   "all valid pieces pass through",
			pieces: []string{"caf", "é ", "au", " lait"},
			want:   []string{"caf", "é ", "au", " lait"},
		},
		{
			name:   "rune split across two pieces",
			pieces: []string{"caf", "\xc3", "\xa9"},
			want:   []string{"caf", "\xc3\xa9"},
		},
		{
			name:   "lead byte at piece tail",
			pieces: []string{"caf\xc3", "\xa9 noir"},
			want:   []string{"caf\xc3\xa9 noir"},
		},
		{
			name:   "consecutive split runes",
			pieces: []string{"a\xc3", "\xa9\xc3", "\xa8b"},
			want:   []string{"a\xc3\xa9\xc3\xa8b"},
		},
		{
			name:   "trailing partial rune flushes unchanged",
			pieces: []string{"caf", "\xc3"},
			want:   []string{"caf", "\xc3"},
		},
		{
			name:   "empty input",
			pieces: nil,
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mergePartialRunes(tt.pieces)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, Join(tt.pieces), Join(got), "merging must not alter the text")
			if utf8.ValidString(Join(tt.pieces)) {
				for _, p := range got {
					assert.True(t, utf8.ValidString(p), "piece %q is not valid UTF-8", p)
				}
			}
		})
	}
}

func TestNewWhitespace(t *testing.T) {
	c, err := New("whitespace")
	require.NoError(t, err)
	assert.Equal(t, "whitespace", c.Name())

	c, err = New("")
	require.NoError(t, err)
	assert.Equal(t, "whitespace", c.Name())
}
