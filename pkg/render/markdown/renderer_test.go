package markdown

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp-forge/hermes-wiki/pkg/render"
)

func TestRenderer_Render(t *testing.T) {
	r := New(nil)
	ctx := context.Background()

	t.Run("title from first heading", func(t *testing.T) {
		doc, err := r.Render(ctx, []byte("# Welcome to *osu!*\n\nHello.\n\n# Second\n"), render.Context{})
		require.NoError(t, err)
		assert.Equal(t, "Welcome to osu!", doc.Header.Title)
		assert.Empty(t, doc.Header.Subtitle)
		assert.NotContains(t, doc.Output, "Welcome to")
		assert.Contains(t, doc.Output, "<p>Hello.</p>")
		assert.Contains(t, doc.Output, "Second</h1>")
	})

	t.Run("front matter", func(t *testing.T) {
		src := "---\nsubtitle: Guides\ntags:\n  - beatmap\nstub: true\n---\n\n# Mapping\n\nText\n"
		doc, err := r.Render(ctx, []byte(src), render.Context{})
		require.NoError(t, err)
		assert.Equal(t, "Mapping", doc.Header.Title)
		assert.Equal(t, "Guides", doc.Header.Subtitle)
		assert.Equal(t, true, doc.Metadata["stub"])
		assert.Equal(t, []any{"beatmap"}, doc.Metadata["tags"])
		assert.NotContains(t, doc.Output, "subtitle")
	})

	t.Run("title from front matter when no heading", func(t *testing.T) {
		doc, err := r.Render(ctx, []byte("---\ntitle: Fallback\n---\nbody\n"), render.Context{})
		require.NoError(t, err)
		assert.Equal(t, "Fallback", doc.Header.Title)
	})

	t.Run("no title", func(t *testing.T) {
		doc, err := r.Render(ctx, []byte("## Only h2\n"), render.Context{})
		require.NoError(t, err)
		assert.Empty(t, doc.Header.Title)
		assert.Contains(t, doc.Output, "Only h2</h2>")
	})

	t.Run("invalid front matter", func(t *testing.T) {
		_, err := r.Render(ctx, []byte("---\nkey: [unclosed\n---\nbody\n"), render.Context{})
		assert.Error(t, err)
	})

	t.Run("unterminated front matter is markdown", func(t *testing.T) {
		doc, err := r.Render(ctx, []byte("---\nnot closed\n"), render.Context{})
		require.NoError(t, err)
		assert.Contains(t, doc.Output, "not closed")
		assert.Nil(t, doc.Metadata)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := r.Render(cctx, []byte("# x"), render.Context{})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestRenderer_RewritesRelativeLinks(t *testing.T) {
	r := New(nil)
	src := "# T\n\n[rel](Beatmap) [up](../Skinning#top) [abs](/wiki/FAQ) [ext](https://osu.ppy.sh) [frag](#x)\n\n![img](img/logo.png)\n"

	doc, err := r.Render(context.Background(), []byte(src), render.Context{Path: "/wiki/Main_Page"})
	require.NoError(t, err)

	assert.Contains(t, doc.Output, `href="/wiki/Main_Page/Beatmap"`)
	assert.Contains(t, doc.Output, `href="/wiki/Skinning#top"`)
	assert.Contains(t, doc.Output, `href="/wiki/FAQ"`)
	assert.Contains(t, doc.Output, `href="https://osu.ppy.sh"`)
	assert.Contains(t, doc.Output, `href="#x"`)
	assert.Contains(t, doc.Output, `src="/wiki/Main_Page/img/logo.png"`)
}

func TestRenderer_Version(t *testing.T) {
	assert.Equal(t, Version, New(nil).Version())
}
