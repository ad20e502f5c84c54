package retriever

import (
	"strings"

	"github.com/fyrsmithlabs/grounder/internal/citation"
)

// Context renders the retrieved chunks as a prompt block. The wrapping tag
// marks the content as quoted reference material rather than instructions,
// so a prompt can tell the model to treat it accordingly. Empty results
// render as an empty string; the caller decides how to answer without
// grounding.
func (r *Result) Context() string {
	if r.Empty() {
		return ""
	}

	var b strings.Builder
	b.WriteString("<reference_documentation>\n")
	for i, c := range r.Chunks {
		if i > 0 {
			b.WriteString("\n---\n\n")
		}
		b.WriteString("## ")
		b.WriteString(citation.Format(c.Chunk))
		b.WriteString("\n\n")
		b.WriteString(strings.TrimRight(c.Text, "\n"))
		b.WriteString("\n")
	}
	b.WriteString("</reference_documentation>")
	return b.String()
}
