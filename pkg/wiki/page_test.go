package wiki

import (
	"context"
	"errors"
	"testing"

	"github.com/hashicorp-forge/hermes-wiki/pkg/content"
	"github.com/hashicorp-forge/hermes-wiki/pkg/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestPage_ResolveIsMemoized(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.store.WithFile("wiki/Beatmap/en.md", "# Beatmap\n\nA playable level.")

	p := env.page(t, "Beatmap", "en")
	first, err := p.Resolve(ctx)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := p.Resolve(ctx)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, env.store.Fetches("wiki/Beatmap/en.md"))
}

func TestPage_ResolveUsesSharedCache(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.store.WithFile("wiki/Beatmap/en.md", "# Beatmap")

	for i := 0; i < 3; i++ {
		r, err := env.page(t, "Beatmap", "en").Resolve(ctx)
		require.NoError(t, err)
		require.NotNil(t, r)
		assert.Equal(t, "Beatmap", r.Document.Header.Title)
	}
	assert.Equal(t, 1, env.store.Fetches("wiki/Beatmap/en.md"))
}

func TestPage_FallbackLocale(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.store.WithFile("wiki/Beatmap/en.md", "# Beatmap")

	p := env.page(t, "Beatmap", "ja")
	r, err := p.Resolve(ctx)
	require.NoError(t, err)
	require.NotNil(t, r)

	assert.Equal(t, "en", r.Locale)
	assert.Equal(t, "en", p.Locale())
	assert.Equal(t, "ja", p.RequestedLocale())
	assert.Equal(t, "Beatmap/en.md", p.PagePath())
	assert.Equal(t, "https://github.com/ppy/osu-wiki/tree/master/wiki/Beatmap/en.md", p.EditURL())

	// The requested locale is remembered as empty so the next request
	// goes straight to the fallback.
	v, ok, err := env.cache.Get(ctx, ContentKey("3", "Beatmap", "ja"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "{}", string(v))
}

func TestPage_Missing(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	p := env.page(t, "No/Such_Page", "ja")
	r, err := p.Resolve(ctx)
	require.NoError(t, err)
	assert.Nil(t, r)
	assert.Equal(t, "en", p.Locale())

	title, err := p.Title(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, DefaultMissingTitle, title)

	subtitle, err := p.Subtitle(ctx)
	require.NoError(t, err)
	assert.Empty(t, subtitle)

	body, err := p.Body(ctx)
	require.NoError(t, err)
	assert.Empty(t, body)
}

func TestPage_BlankContentIsMissing(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.store.WithFile("wiki/Blank/en.md", " \n\t\n")

	r, err := env.page(t, "Blank", "en").Resolve(ctx)
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestPage_TooLargeIsMissing(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.store.WithError("wiki/Huge/en.md", content.ErrTooLarge)

	r, err := env.page(t, "Huge", "en").Resolve(ctx)
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestPage_Titles(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name         string
		path         string
		body         string
		wantTitle    string
		wantSubtitle string
		wantFull     string
	}{
		{
			name:         "header",
			path:         "People/Staff",
			body:         "---\nsubtitle: Team\n---\n# The Staff\n\nbody",
			wantTitle:    "The Staff",
			wantSubtitle: "Team",
			wantFull:     "Team / The Staff",
		},
		{
			name:         "defaults from path",
			path:         "People/osu!_team/Staff_Members",
			body:         "no heading here",
			wantTitle:    "Staff Members",
			wantSubtitle: "osu! team",
			wantFull:     "osu! team / Staff Members",
		},
		{
			name:      "top level page has no subtitle",
			path:      "Main_Page",
			body:      "welcome",
			wantTitle: "Main Page",
			wantFull:  "Main Page",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.store.WithFile(StoragePath(tt.path, "en"), tt.body)
			p := env.page(t, tt.path, "en")

			title, err := p.Title(ctx, false)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTitle, title)

			subtitle, err := p.Subtitle(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSubtitle, subtitle)

			full, err := p.Title(ctx, true)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFull, full)
		})
	}
}

func TestPage_SearchIndexFollowsResolution(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.store.WithFile("wiki/Beatmap/en.md", "# Beatmap\n\nA *playable* level.")

	p := env.page(t, "Beatmap", "en")
	title, err := p.Title(ctx, false)
	require.NoError(t, err)

	doc, err := env.index.GetObject(ctx, "Beatmap/en.md")
	require.NoError(t, err)
	assert.Equal(t, title, doc.Title)
	assert.Equal(t, search.DocumentType, doc.Type)
	assert.Equal(t, "en", doc.Locale)
	assert.Equal(t, "Beatmap", doc.Path)
	assert.Contains(t, doc.PageText, "A playable level.")
	assert.NotContains(t, doc.PageText, "<")

	// The source disappears; once the cache is dropped the next
	// resolution removes the page from the index.
	env.store.RemoveFile("wiki/Beatmap/en.md")
	require.NoError(t, p.Invalidate(ctx))

	r, err := p.Resolve(ctx)
	require.NoError(t, err)
	assert.Nil(t, r)

	_, err = env.index.GetObject(ctx, "Beatmap/en.md")
	assert.ErrorIs(t, err, search.ErrNotFound)
}

func TestPage_DefaultTitleIsIndexed(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.store.WithFile("wiki/Game_Modes/en.md", "Modes without a heading.")

	_, err := env.page(t, "Game_Modes", "en").Resolve(ctx)
	require.NoError(t, err)

	doc, err := env.index.GetObject(ctx, "Game_Modes/en.md")
	require.NoError(t, err)
	assert.Equal(t, "Game Modes", doc.Title)
}

func TestPage_MissingPageNeverIndexed(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.page(t, "Ghost", "en").Resolve(ctx)
	require.NoError(t, err)

	_, err = env.index.GetObject(ctx, "Ghost/en.md")
	assert.ErrorIs(t, err, search.ErrNotFound)
	assert.Equal(t, []string{"Ghost/en.md"}, env.index.DeleteCalls)
}

func TestPage_StoreFailureIsNotCached(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	boom := errors.New("connection reset")
	env.store.WithError("wiki/Beatmap/en.md", boom)

	p := env.page(t, "Beatmap", "en")
	_, err := p.Resolve(ctx)
	require.ErrorIs(t, err, boom)

	_, ok, err := env.cache.Get(ctx, ContentKey("3", "Beatmap", "en"))
	require.NoError(t, err)
	assert.False(t, ok)

	delete(env.store.Errors, "wiki/Beatmap/en.md")
	env.store.WithFile("wiki/Beatmap/en.md", "# Beatmap")

	r, err := p.Resolve(ctx)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, 2, env.store.Fetches("wiki/Beatmap/en.md"))
}

func TestPage_IndexFailureIsNotCached(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.store.WithFile("wiki/Beatmap/en.md", "# Beatmap")
	env.index.Err = search.ErrBackendUnavailable

	_, err := env.page(t, "Beatmap", "en").Resolve(ctx)
	require.ErrorIs(t, err, search.ErrBackendUnavailable)

	_, ok, err := env.cache.Get(ctx, ContentKey("3", "Beatmap", "en"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPage_IndexRemovalFailureIsNotCached(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.index.Err = search.ErrBackendUnavailable

	_, err := env.page(t, "Ghost", "en").Resolve(ctx)
	require.ErrorIs(t, err, search.ErrBackendUnavailable)
	assert.NotErrorIs(t, err, search.ErrNotFound)
	assert.Contains(t, err.Error(), "Ghost/en.md")

	_, ok, err := env.cache.Get(ctx, ContentKey("3", "Ghost", "en"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPage_Invalidate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.store.WithFile("wiki/Beatmap/en.md", "# Beatmap")

	p := env.page(t, "Beatmap", "en")
	_, err := p.Resolve(ctx)
	require.NoError(t, err)
	_, err = p.Locales(ctx)
	require.NoError(t, err)

	env.store.WithFile("wiki/Beatmap/en.md", "# Beatmaps")
	require.NoError(t, p.Invalidate(ctx))

	title, err := p.Title(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, "Beatmaps", title)
	assert.Equal(t, 2, env.store.Fetches("wiki/Beatmap/en.md"))

	_, err = p.Locales(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, env.store.Lists("wiki/Beatmap"))
}

func TestPage_RelativeLinksUsePublicPath(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.store.WithFile("wiki/Beatmap/en.md", "# Beatmap\n\nSee [the editor](Editor).")

	body, err := env.page(t, "Beatmap", "en").Body(ctx)
	require.NoError(t, err)
	assert.Contains(t, body, `href="/wiki/Beatmap/Editor"`)
}

func TestPage_Locales(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		setup func(env *testEnv)
		want  []string
	}{
		{
			name: "listing order kept",
			setup: func(env *testEnv) {
				env.store.WithListing("wiki/Beatmap", "en.md", "ja.md", "readme.txt", "de-DE.md")
			},
			want: []string{"en", "ja", "de-DE"},
		},
		{
			name:  "missing directory",
			setup: func(*testEnv) {},
			want:  []string{},
		},
		{
			name: "path is a file",
			setup: func(env *testEnv) {
				env.store.WithFile("wiki/Beatmap", "not a directory")
			},
			want: []string{},
		},
		{
			name: "too large",
			setup: func(env *testEnv) {
				env.store.WithError("wiki/Beatmap", content.ErrTooLarge)
			},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			tt.setup(env)

			p := env.page(t, "Beatmap", "en")
			got, err := p.Locales(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			// Memoized on the page and cached for new pages.
			_, err = p.Locales(ctx)
			require.NoError(t, err)
			_, err = env.page(t, "Beatmap", "en").Locales(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, env.store.Lists("wiki/Beatmap"))
		})
	}
}

func TestPage_LocalesFailureIsNotCached(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.store.WithError("wiki/Beatmap", errors.New("timeout"))

	_, err := env.page(t, "Beatmap", "en").Locales(ctx)
	require.Error(t, err)

	_, ok, err := env.cache.Get(ctx, LocalesKey("Beatmap"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestService_PageFromDocument(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.store.WithFile("wiki/Beatmap/ja.md", "# ビートマップ")

	_, err := env.page(t, "Beatmap", "ja").Resolve(ctx)
	require.NoError(t, err)
	doc, err := env.index.GetObject(ctx, "Beatmap/ja.md")
	require.NoError(t, err)

	p, err := env.svc.PageFromDocument(doc)
	require.NoError(t, err)
	assert.Equal(t, "ja", p.Locale())

	title, err := p.Title(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, "ビートマップ", title)
	assert.Equal(t, 1, env.store.Fetches("wiki/Beatmap/ja.md"))
}

func TestService_PageRejectsInvalidPath(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.Page("../etc", "en")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestService_PageRejectsInvalidLocale(t *testing.T) {
	env := newTestEnv(t)
	env.store.WithFile("README.md", "# Repository readme")

	for _, locale := range []string{"../../README", "en/..", "english", "e", "en-", "en_US", "en-US-x"} {
		t.Run(locale, func(t *testing.T) {
			_, err := env.svc.Page("Beatmap", locale)
			assert.ErrorIs(t, err, ErrInvalidLocale)
			assert.ErrorIs(t, env.svc.Refresh(context.Background(), "Beatmap", locale), ErrInvalidLocale)
		})
	}
	assert.Zero(t, env.store.Fetches("wiki/Beatmap/../../README.md"))
	assert.Zero(t, env.store.Fetches("README.md"))
	assert.Empty(t, env.index.IDs())

	_, err := env.svc.PageFromDocument(&search.Document{Path: "Beatmap", Locale: "../x"})
	assert.ErrorIs(t, err, ErrInvalidLocale)
}

func TestNewService_RequiresDependencies(t *testing.T) {
	_, err := NewService(testConfig(), Dependencies{})
	assert.Error(t, err)

	_, err = NewService(Config{}, Dependencies{})
	assert.Error(t, err)
}

func TestPage_ConcurrentResolveFetchesOnce(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.store.WithFile("wiki/Beatmap/en.md", "# Beatmap")

	var g errgroup.Group
	for i := 0; i < 16; i++ {
		g.Go(func() error {
			p, err := env.svc.Page("Beatmap", "en")
			if err != nil {
				return err
			}
			_, err = p.Resolve(ctx)
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, 1, env.store.Fetches("wiki/Beatmap/en.md"))
	assert.Len(t, env.index.IndexCalls, 1)
}

func TestService_Refresh(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.store.WithFile("wiki/Beatmap/ja.md", "# Beatmap")

	_, err := env.page(t, "Beatmap", "ja").Resolve(ctx)
	require.NoError(t, err)

	require.NoError(t, env.svc.Refresh(ctx, "/Beatmap/", "ja"))
	_, ok, err := env.cache.Get(ctx, ContentKey("3", "Beatmap", "ja"))
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, env.svc.Refresh(ctx, "..", "ja"), ErrInvalidPath)
}
