// Package markdown renders wiki markdown with goldmark.
package markdown

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"github.com/hashicorp-forge/hermes-wiki/pkg/render"
)

// Version of the HTML this renderer produces. Bump it whenever the output
// changes so cached documents are recomputed.
const Version = "3"

var frontMatterDelim = []byte("---")

var _ render.Renderer = (*Renderer)(nil)

// Renderer converts markdown with optional YAML front matter into a
// render.Document. The first level one heading becomes the title and is
// removed from the body.
type Renderer struct {
	md     goldmark.Markdown
	logger hclog.Logger
}

// New creates a markdown renderer.
func New(logger hclog.Logger) *Renderer {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				extension.Footnote,
			),
			goldmark.WithParserOptions(
				parser.WithAutoHeadingID(),
			),
		),
		logger: logger.Named("markdown"),
	}
}

// Version returns the output version.
func (r *Renderer) Version() string {
	return Version
}

// Render converts src into a document.
func (r *Renderer) Render(ctx context.Context, src []byte, rc render.Context) (*render.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	meta, body, err := splitFrontMatter(src)
	if err != nil {
		return nil, err
	}

	root := r.md.Parser().Parse(text.NewReader(body))

	title := takeTitle(root, body)
	if title == "" {
		title = stringValue(meta, "title")
	}
	if rc.Path != "" {
		rewriteLinks(root, rc.Path)
	}

	var buf bytes.Buffer
	if err := r.md.Renderer().Render(&buf, body, root); err != nil {
		return nil, fmt.Errorf("failed to render markdown: %w", err)
	}

	r.logger.Trace("rendered page",
		"path", rc.Path,
		"locale", rc.Locale,
		"bytes", buf.Len(),
	)

	return &render.Document{
		Header: render.Header{
			Title:    title,
			Subtitle: stringValue(meta, "subtitle"),
		},
		Output:   buf.String(),
		Metadata: meta,
	}, nil
}

// splitFrontMatter separates a leading YAML block delimited by "---" lines
// from the markdown body.
func splitFrontMatter(src []byte) (map[string]any, []byte, error) {
	src = bytes.TrimPrefix(src, []byte("\ufeff"))

	first, rest, ok := bytes.Cut(src, []byte("\n"))
	if !ok || !bytes.Equal(bytes.TrimSpace(first), frontMatterDelim) {
		return nil, src, nil
	}

	var block [][]byte
	for len(rest) > 0 {
		var line []byte
		line, rest, _ = bytes.Cut(rest, []byte("\n"))
		if bytes.Equal(bytes.TrimSpace(line), frontMatterDelim) {
			meta := make(map[string]any)
			if err := yaml.Unmarshal(bytes.Join(block, []byte("\n")), &meta); err != nil {
				return nil, nil, fmt.Errorf("invalid front matter: %w", err)
			}
			return meta, rest, nil
		}
		block = append(block, line)
	}

	// Unterminated block; treat the whole thing as markdown.
	return nil, src, nil
}

// takeTitle removes the first level one heading from the tree and returns
// its text.
func takeTitle(root ast.Node, src []byte) string {
	var heading *ast.Heading
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if h, ok := n.(*ast.Heading); ok && h.Level == 1 {
			heading = h
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	if heading == nil {
		return ""
	}

	title := nodeText(heading, src)
	heading.Parent().RemoveChild(heading.Parent(), heading)
	return title
}

func nodeText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

// rewriteLinks resolves relative link and image destinations against base.
func rewriteLinks(root ast.Node, base string) {
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch l := n.(type) {
		case *ast.Link:
			l.Destination = resolve(base, l.Destination)
		case *ast.Image:
			l.Destination = resolve(base, l.Destination)
		}
		return ast.WalkContinue, nil
	})
}

func resolve(base string, dest []byte) []byte {
	u, err := url.Parse(string(dest))
	if err != nil || u.Scheme != "" || u.Host != "" || u.Path == "" || strings.HasPrefix(u.Path, "/") {
		return dest
	}
	u.Path = path.Join("/", base, u.Path)
	return []byte(u.String())
}

func stringValue(meta map[string]any, key string) string {
	if v, ok := meta[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}
