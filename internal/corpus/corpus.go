// Package corpus loads source documentation into heading-delimited sections.
//
// A Source describes one documentation set on disk (for example a rendered
// book in markdown). Loading walks the source tree, parses each markdown
// file into sections with hierarchical heading paths, and records a URL
// anchor per section so retrieval-time citations can deep-link into the
// published documentation.
//
// Loading is best-effort: an unreadable or empty file is reported as a skip,
// never as a failure of the whole source.
package corpus

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// minContentBytes is the minimum file size worth indexing. Files below this
// are stub pages (redirects, placeholders) and are skipped.
const minContentBytes = 100

// Source describes one documentation set to index.
type Source struct {
	// ID is the stable source identifier (e.g. "book").
	ID string `koanf:"id"`

	// Name is the display name used in citations (e.g. "Rust Book").
	Name string `koanf:"name"`

	// Path is the directory containing the source's markdown files.
	Path string `koanf:"path"`

	// BaseURL is the published root of the source, used to build deep
	// links (e.g. "https://doc.rust-lang.org/book/").
	BaseURL string `koanf:"base_url"`
}

// Section is one heading-delimited region of a document.
type Section struct {
	// HeadingPath is the hierarchical heading context, most specific last.
	HeadingPath []string

	// Anchor is the slugified URL fragment of the section's own heading.
	Anchor string

	// Text is the section body, headings excluded.
	Text string
}

// Document is a loaded source file split into sections. Documents exist only
// for the duration of an index build; only their derived chunks persist.
type Document struct {
	SourceID   string
	SourceName string

	// Path is the file path relative to the source root.
	Path string

	BaseURL  string
	Sections []Section
}

// Skip records a file that was left out of the build and why.
type Skip struct {
	Path   string
	Reason string
}

// SectionURL builds the deep link for a section: the source base URL, the
// file path rewritten to its published .html name, and the section anchor.
func (d Document) SectionURL(s Section) string {
	if d.BaseURL == "" {
		return ""
	}
	page := strings.TrimSuffix(d.Path, ".md") + ".html"
	page = filepath.ToSlash(page)
	url := strings.TrimSuffix(d.BaseURL, "/") + "/" + page
	if s.Anchor != "" {
		url += "#" + s.Anchor
	}
	return url
}

// Load walks src.Path and parses every markdown file into a Document.
// Unreadable, empty, and near-empty files are reported as skips.
func Load(src Source) ([]Document, []Skip, error) {
	var docs []Document
	var skips []Skip

	err := filepath.WalkDir(src.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(path, ".md") {
			return nil
		}

		rel, err := filepath.Rel(src.Path, path)
		if err != nil {
			rel = path
		}

		content, err := os.ReadFile(path)
		if err != nil {
			skips = append(skips, Skip{Path: rel, Reason: "read failed: " + err.Error()})
			return nil
		}
		if len(content) < minContentBytes {
			skips = append(skips, Skip{Path: rel, Reason: "below minimum content size"})
			return nil
		}

		sections := ParseMarkdown(string(content), fallbackTitle(rel))
		if len(sections) == 0 {
			skips = append(skips, Skip{Path: rel, Reason: "no sections with content"})
			return nil
		}

		docs = append(docs, Document{
			SourceID:   src.ID,
			SourceName: src.Name,
			Path:       rel,
			BaseURL:    src.BaseURL,
			Sections:   sections,
		})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return docs, skips, nil
}

// fallbackTitle derives a heading from a file path for files without headers.
func fallbackTitle(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	stem = strings.NewReplacer("-", " ", "_", " ").Replace(stem)
	return titleCase(stem)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
