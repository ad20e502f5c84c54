// Package citation renders source attributions for retrieved chunks so
// answers can point back at the documentation they were grounded in.
package citation

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/grounder/internal/chunker"
)

// Format renders one citation as a markdown link:
//
//	[The Rust Book — Ownership > Borrowing](https://doc.rust-lang.org/book/ch04.html#borrowing)
//
// Chunks without a URL render as the bracketed label alone.
func Format(c chunker.Chunk) string {
	label := fmt.Sprintf("%s — %s", c.SourceName, strings.Join(c.HeadingPath, " > "))
	if c.URL != "" {
		return fmt.Sprintf("[%s](%s)", label, c.URL)
	}
	return "[" + label + "]"
}

// List renders citations for chunks in order, deduplicating by source and
// heading path. Adjacent windows of one long section collapse into a single
// citation. A positive max caps the list; zero or negative means no cap.
func List(chunks []chunker.Chunk, max int) []string {
	seen := make(map[string]struct{}, len(chunks))
	var citations []string
	for _, c := range chunks {
		key := c.SourceID + "\x00" + strings.Join(c.HeadingPath, "\x00")
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		citations = append(citations, Format(c))
		if max > 0 && len(citations) == max {
			break
		}
	}
	return citations
}
