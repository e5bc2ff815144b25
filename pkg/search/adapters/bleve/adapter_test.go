package bleve

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp-forge/hermes-wiki/pkg/render"
	"github.com/hashicorp-forge/hermes-wiki/pkg/search"
)

func newMemAdapter(t *testing.T) *Adapter {
	t.Helper()
	adapter, err := NewAdapter(&Config{InMemory: true}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = adapter.Close() })
	return adapter
}

func page(path, locale, title, body string) *search.Document {
	return search.NewDocument(path, locale, &render.Document{
		Header: render.Header{Title: title},
		Output: "<p>" + body + "</p>",
	})
}

func TestNewAdapter(t *testing.T) {
	_, err := NewAdapter(&Config{}, nil)
	assert.Error(t, err)

	_, err = NewAdapter(&Config{IndexPath: t.TempDir()}, nil)
	assert.ErrorContains(t, err, "index name")

	dir := t.TempDir()
	adapter, err := NewAdapter(&Config{IndexPath: dir, IndexName: "osu"}, nil)
	require.NoError(t, err)
	defer adapter.Close()

	assert.Equal(t, "bleve", adapter.Name())
	assert.NoError(t, adapter.Healthy(context.Background()))
	assert.DirExists(t, filepath.Join(dir, "osu_wiki_pages.bleve"))
}

func TestIndexFile(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{name: "osu", want: "osu_wiki_pages.bleve"},
		{name: "osu-staging", want: "osu-staging_wiki_pages.bleve"},
		{name: "../osu", want: "___osu_wiki_pages.bleve"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, indexFile(tt.name))
		})
	}
}

func TestPageIndex_IndexAndGet(t *testing.T) {
	ctx := context.Background()
	idx := newMemAdapter(t).PageIndex()

	doc := page("Hit_Objects", "en", "Hit objects", "Circles, sliders and spinners")
	require.NoError(t, idx.Index(ctx, doc))

	got, err := idx.GetObject(ctx, "Hit_Objects/en.md")
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)
	assert.Equal(t, "Hit objects", got.Title)
	assert.Equal(t, "wiki_page", got.Type)
	require.NotNil(t, got.Page)
	assert.Equal(t, "<p>Circles, sliders and spinners</p>", got.Page.Output)

	_, err = idx.GetObject(ctx, "Nope/en.md")
	assert.True(t, errors.Is(err, search.ErrNotFound))
}

func TestPageIndex_Search(t *testing.T) {
	ctx := context.Background()
	idx := newMemAdapter(t).PageIndex()

	require.NoError(t, idx.Index(ctx, page("Beatmap", "en", "Beatmap", "A beatmap contains hit circles")))
	require.NoError(t, idx.Index(ctx, page("Beatmap", "id", "Beatmap", "Beatmap berisi hit circles")))
	require.NoError(t, idx.Index(ctx, page("Skin", "en", "Skin", "A skin changes hit circles")))

	t.Run("all terms must match", func(t *testing.T) {
		res, err := idx.Search(ctx, &search.Query{Text: "beatmap circles", Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 2, res.Total)
		for _, hit := range res.Hits {
			assert.Equal(t, "Beatmap", hit.Path)
		}
	})

	t.Run("locale filter", func(t *testing.T) {
		res, err := idx.Search(ctx, &search.Query{Text: "circles", Locale: "en", Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 2, res.Total)
		for _, hit := range res.Hits {
			assert.Equal(t, "en", hit.Locale)
		}
	})

	t.Run("paging", func(t *testing.T) {
		res, err := idx.Search(ctx, &search.Query{Text: "circles", Offset: 2, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, 3, res.Total)
		assert.Len(t, res.Hits, 1)
	})

	t.Run("empty query", func(t *testing.T) {
		_, err := idx.Search(ctx, &search.Query{Text: "  ", Limit: 10})
		assert.ErrorIs(t, err, search.ErrInvalidQuery)
	})
}

func TestPageIndex_DeleteAndClear(t *testing.T) {
	ctx := context.Background()
	idx := newMemAdapter(t).PageIndex()

	require.NoError(t, idx.Index(ctx, page("A", "en", "A", "alpha")))
	require.NoError(t, idx.Index(ctx, page("B", "en", "B", "alpha")))

	require.NoError(t, idx.Delete(ctx, "A/en.md"))
	require.NoError(t, idx.Delete(ctx, "A/en.md"))

	res, err := idx.Search(ctx, &search.Query{Text: "alpha", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)

	require.NoError(t, idx.Clear(ctx))
	res, err = idx.Search(ctx, &search.Query{Text: "alpha", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Total)
}

func TestPageIndex_PersistentClear(t *testing.T) {
	ctx := context.Background()
	adapter, err := NewAdapter(&Config{IndexPath: t.TempDir(), IndexName: "osu"}, nil)
	require.NoError(t, err)
	defer adapter.Close()

	idx := adapter.PageIndex()
	require.NoError(t, idx.Index(ctx, page("A", "en", "A", "alpha")))
	require.NoError(t, idx.Clear(ctx))

	_, err = idx.GetObject(ctx, "A/en.md")
	assert.ErrorIs(t, err, search.ErrNotFound)
}
