package citation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fyrsmithlabs/grounder/internal/chunker"
)

func chunk(source, name string, headings []string, url string) chunker.Chunk {
	return chunker.Chunk{SourceID: source, SourceName: name, HeadingPath: headings, URL: url}
}

func TestFormat(t *testing.T) {
	c := chunk("rust-book", "The Rust Book",
		[]string{"Ownership", "References and Borrowing"},
		"https://doc.rust-lang.org/book/ch04-02.html#references-and-borrowing")

	assert.Equal(t,
		"[The Rust Book — Ownership > References and Borrowing](https://doc.rust-lang.org/book/ch04-02.html#references-and-borrowing)",
		Format(c))
}

func TestFormatWithoutURL(t *testing.T) {
	c := chunk("notes", "Local Notes", []string{"Setup"}, "")
	assert.Equal(t, "[Local Notes — Setup]", Format(c))
}

func TestListDeduplicatesWindows(t *testing.T) {
	heading := []string{"Ownership", "Borrowing"}
	chunks := []chunker.Chunk{
		chunk("rust-book", "The Rust Book", heading, "https://example.com/ch04.html#borrowing"),
		chunk("rust-book", "The Rust Book", heading, "https://example.com/ch04.html#borrowing"),
		chunk("rust-book", "The Rust Book", []string{"Ownership", "Slices"}, "https://example.com/ch04.html#slices"),
	}

	citations := List(chunks, 0)
	assert.Equal(t, []string{
		"[The Rust Book — Ownership > Borrowing](https://example.com/ch04.html#borrowing)",
		"[The Rust Book — Ownership > Slices](https://example.com/ch04.html#slices)",
	}, citations)
}

func TestListKeepsRelevanceOrder(t *testing.T) {
	chunks := []chunker.Chunk{
		chunk("std", "Standard Library", []string{"Vec"}, "https://example.com/vec.html"),
		chunk("rust-book", "The Rust Book", []string{"Vectors"}, "https://example.com/ch08.html"),
	}
	citations := List(chunks, 0)
	assert.Equal(t, "[Standard Library — Vec](https://example.com/vec.html)", citations[0])
	assert.Equal(t, "[The Rust Book — Vectors](https://example.com/ch08.html)", citations[1])
}

func TestListCap(t *testing.T) {
	var chunks []chunker.Chunk
	for _, h := range []string{"A", "B", "C", "D", "E", "F"} {
		chunks = append(chunks, chunk("src", "Source", []string{h}, ""))
	}

	assert.Len(t, List(chunks, 4), 4)
	assert.Len(t, List(chunks, 0), 6)
	assert.Empty(t, List(nil, 4))
}
