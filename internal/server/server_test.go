package server

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp-forge/hermes-wiki/internal/config"
	"github.com/hashicorp-forge/hermes-wiki/pkg/content/adapters/local"
	"github.com/hashicorp-forge/hermes-wiki/pkg/database"
	"github.com/hashicorp-forge/hermes-wiki/pkg/wiki"
)

func localConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "wiki", "Beatmap"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "wiki", "Beatmap", "en.md"), []byte("# Beatmap\n\nA level."), 0o644))

	cfg := &config.Config{
		Wiki:      &wiki.Config{IndexName: "osu", RepoOwner: "ppy", RepoName: "osu-wiki"},
		Providers: &config.Providers{Content: config.ContentLocal},
		Local:     &local.Config{Root: root},
	}
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestNew_LocalBleveMemory(t *testing.T) {
	ctx := context.Background()
	srv, err := New(ctx, localConfig(t), nil)
	require.NoError(t, err)
	defer func() { assert.NoError(t, srv.Close()) }()

	assert.Equal(t, "bleve", srv.SearchProvider.Name())

	p, err := srv.Wiki.Page("Beatmap", "ja")
	require.NoError(t, err)
	title, err := p.Title(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, "Beatmap", title)
	assert.Equal(t, "en", p.Locale())

	res, err := srv.Wiki.Search(ctx, wiki.SearchParams{Query: "level"}, "en")
	require.NoError(t, err)
	require.Len(t, res.Pages, 1)
	assert.Equal(t, "Beatmap/en.md", res.Pages[0].PagePath())
}

func TestNew_DatabaseCacheAndFileLocker(t *testing.T) {
	ctx := context.Background()
	cfg := localConfig(t)
	cfg.Cache.Store = config.CacheDatabase
	cfg.Cache.Locker = config.LockerFile
	cfg.Cache.LockDir = filepath.Join(t.TempDir(), "locks")
	cfg.Postgres = &database.Config{Driver: database.DriverSQLite, Path: filepath.Join(t.TempDir(), "cache.db")}
	cfg.Postgres.SetDefaults()

	srv, err := New(ctx, cfg, nil)
	require.NoError(t, err)
	defer func() { assert.NoError(t, srv.Close()) }()
	require.NotNil(t, srv.DB)

	p, err := srv.Wiki.Page("Beatmap", "en")
	require.NoError(t, err)
	_, err = p.Resolve(ctx)
	require.NoError(t, err)

	var count int64
	require.NoError(t, srv.DB.Table("wiki_cache_entries").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
