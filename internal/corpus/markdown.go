package corpus

import (
	"regexp"
	"strings"
)

// headerPattern matches ATX headings of levels 1-3. Deeper levels stay part
// of the enclosing section's body, matching how the published docs anchor.
var headerPattern = regexp.MustCompile(`(?m)^(#{1,3})\s+(.+)$`)

// ParseMarkdown splits markdown content into heading-delimited sections.
//
// Each section carries the full heading path from the document root to its
// own heading, most specific last. Content before the first heading and
// sections whose body is empty are dropped. A document without any headings
// becomes a single section titled fallbackTitle.
func ParseMarkdown(content, fallbackTitle string) []Section {
	matches := headerPattern.FindAllStringSubmatchIndex(content, -1)

	if len(matches) == 0 {
		text := strings.TrimSpace(content)
		if text == "" {
			return nil
		}
		return []Section{{
			HeadingPath: []string{fallbackTitle},
			Anchor:      Slugify(fallbackTitle),
			Text:        text,
		}}
	}

	var sections []Section

	// Stack of (level, title) pairs building the hierarchical path.
	type frame struct {
		level int
		title string
	}
	var stack []frame

	for i, m := range matches {
		level := m[3] - m[2] // width of the '#' run
		title := strings.TrimSpace(content[m[4]:m[5]])

		bodyStart := m[1]
		bodyEnd := len(content)
		if i+1 < len(matches) {
			bodyEnd = matches[i+1][0]
		}
		body := strings.TrimSpace(content[bodyStart:bodyEnd])

		for len(stack) > 0 && stack[len(stack)-1].level >= level {
			stack = stack[:len(stack)-1]
		}
		stack = append(stack, frame{level: level, title: title})

		if body == "" {
			continue
		}

		path := make([]string, len(stack))
		for j, f := range stack {
			path[j] = f.title
		}
		sections = append(sections, Section{
			HeadingPath: path,
			Anchor:      Slugify(title),
			Text:        body,
		})
	}

	return sections
}

var (
	slugStrip    = regexp.MustCompile(`[^\w\s-]`)
	slugCollapse = regexp.MustCompile(`[\s_]+`)
)

// Slugify converts a heading into its URL anchor form, matching the anchors
// mdBook and similar generators emit.
func Slugify(text string) string {
	text = strings.ToLower(text)
	text = slugStrip.ReplaceAllString(text, "")
	text = slugCollapse.ReplaceAllString(text, "-")
	return strings.Trim(text, "-")
}
