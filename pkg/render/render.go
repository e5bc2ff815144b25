// Package render defines how wiki markdown becomes a cacheable document.
package render

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Header holds the display header extracted from a page.
type Header struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
}

// Document is the rendered form of a single wiki page. It is what gets
// cached and what the search index stores as the page payload.
type Document struct {
	Header   Header         `json:"header"`
	Output   string         `json:"output"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Context tells the renderer where a page lives.
type Context struct {
	// Path is the public URL of the directory holding the page
	// (e.g. "/wiki/Main_Page"). Relative links and images are resolved
	// against it. Empty leaves them untouched.
	Path string

	// Locale of the source file.
	Locale string
}

// Renderer turns raw markdown into a Document.
type Renderer interface {
	// Render converts src into a document.
	Render(ctx context.Context, src []byte, rc Context) (*Document, error)

	// Version identifies the output format. Bumping it invalidates every
	// cached document.
	Version() string
}

const blockElements = "address, article, blockquote, br, dd, div, dt, figcaption, h1, h2, h3, h4, h5, h6, hr, li, p, pre, section, td, th"

// PlainText strips markup from rendered HTML, collapsing whitespace.
func PlainText(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.Join(strings.Fields(html), " ")
	}
	doc.Find("script, style").Remove()
	// Keep words in adjacent blocks apart.
	doc.Find(blockElements).AppendHtml(" ")
	return strings.Join(strings.Fields(doc.Text()), " ")
}
