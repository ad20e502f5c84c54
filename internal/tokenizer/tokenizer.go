// Package tokenizer provides the token codec shared by the chunker, the
// embedder truncation path, and context budget accounting.
//
// A Codec splits text into token pieces whose concatenation reconstructs the
// original text exactly. This invariant is what makes token-window chunking
// and overlap regions reproducible: slicing the piece sequence and joining
// the slice yields the chunk text.
package tokenizer

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// ErrUnknownEncoding indicates an unsupported tokenizer encoding name.
var ErrUnknownEncoding = errors.New("unknown tokenizer encoding")

// Codec converts text to a sequence of token pieces.
//
// Invariant: Join(Split(text)) == text for any input.
type Codec interface {
	// Name returns the codec identifier recorded in build manifests.
	Name() string

	// Count returns the number of tokens in text.
	Count(text string) int

	// Split splits text into token pieces. Concatenating the pieces in
	// order reconstructs text byte for byte, and when text is valid UTF-8
	// every piece is too, so any contiguous window of pieces joins to
	// valid text.
	Split(text string) []string
}

// Join concatenates token pieces back into text.
func Join(pieces []string) string {
	return strings.Join(pieces, "")
}

// Truncate head-truncates text to at most max tokens. The second return
// value reports whether truncation occurred.
func Truncate(c Codec, text string, max int) (string, bool) {
	if max <= 0 {
		return text, false
	}
	pieces := c.Split(text)
	if len(pieces) <= max {
		return text, false
	}
	return Join(pieces[:max]), true
}

// New creates a codec by encoding name.
//
// Supported encodings:
//   - "cl100k_base" (and other tiktoken encodings): BPE token pieces
//   - "whitespace": deterministic word-boundary pieces, no model data needed
func New(encoding string) (Codec, error) {
	switch encoding {
	case "", "whitespace":
		return Whitespace(), nil
	default:
		enc, err := tiktoken.GetEncoding(encoding)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrUnknownEncoding, encoding, err)
		}
		return &bpeCodec{name: encoding, enc: enc}, nil
	}
}

// bpeCodec wraps a tiktoken encoding.
type bpeCodec struct {
	name string
	enc  *tiktoken.Tiktoken
}

func (c *bpeCodec) Name() string { return c.name }

func (c *bpeCodec) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

func (c *bpeCodec) Split(text string) []string {
	ids := c.enc.Encode(text, nil, nil)
	pieces := make([]string, len(ids))
	for i, id := range ids {
		pieces[i] = c.enc.Decode([]int{id})
	}
	return mergePartialRunes(pieces)
}

// mergePartialRunes joins adjacent pieces until every piece is valid UTF-8.
// Byte-level BPE can cut a multi-byte rune across token boundaries; a piece
// sequence where that cut survives would let a chunk window start or end
// mid-rune, and the partial rune would not round-trip through JSON metadata.
// Pieces of invalid input flush unchanged at the end, keeping the
// Join(Split(text)) == text invariant for any input.
func mergePartialRunes(pieces []string) []string {
	merged := make([]string, 0, len(pieces))
	var pending strings.Builder
	for _, p := range pieces {
		if pending.Len() == 0 && utf8.ValidString(p) {
			merged = append(merged, p)
			continue
		}
		pending.WriteString(p)
		if utf8.ValidString(pending.String()) {
			merged = append(merged, pending.String())
			pending.Reset()
		}
	}
	if pending.Len() > 0 {
		merged = append(merged, pending.String())
	}
	return merged
}

// Whitespace returns a codec that treats each word together with its
// trailing whitespace as one token. It needs no model data, so it is the
// codec used in tests and for offline corpora with approximate budgets.
func Whitespace() Codec {
	return whitespaceCodec{}
}

type whitespaceCodec struct{}

func (whitespaceCodec) Name() string { return "whitespace" }

func (c whitespaceCodec) Count(text string) int {
	return len(c.Split(text))
}

func (whitespaceCodec) Split(text string) []string {
	if text == "" {
		return nil
	}
	var pieces []string
	runes := []rune(text)
	start := 0
	prevSpace := unicode.IsSpace(runes[0])
	for i := 1; i < len(runes); i++ {
		space := unicode.IsSpace(runes[i])
		// A new token starts where whitespace turns back into text.
		if prevSpace && !space {
			pieces = append(pieces, string(runes[start:i]))
			start = i
		}
		prevSpace = space
	}
	pieces = append(pieces, string(runes[start:]))
	return pieces
}
