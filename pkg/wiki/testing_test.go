package wiki

import (
	"testing"

	"github.com/hashicorp-forge/hermes-wiki/pkg/cache"
	contentmock "github.com/hashicorp-forge/hermes-wiki/pkg/content/adapters/mock"
	"github.com/hashicorp-forge/hermes-wiki/pkg/render/markdown"
	searchmock "github.com/hashicorp-forge/hermes-wiki/pkg/search/adapters/mock"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	svc   *Service
	store *contentmock.Store
	index *searchmock.PageIndex
	cache *cache.MemoryStore
}

func testConfig() Config {
	return Config{
		IndexName: "osu",
		RepoOwner: "ppy",
		RepoName:  "osu-wiki",
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithConfig(t, testConfig())
}

func newTestEnvWithConfig(t *testing.T, cfg Config) *testEnv {
	t.Helper()

	env := &testEnv{
		store: contentmock.NewStore(),
		index: searchmock.NewPageIndex(),
		cache: cache.NewMemoryStore(0),
	}
	svc, err := NewService(cfg, Dependencies{
		Store:    env.store,
		Renderer: markdown.New(nil),
		Cache:    cache.New(env.cache, nil, nil),
		Index:    env.index,
	})
	require.NoError(t, err)
	env.svc = svc
	return env
}

func (e *testEnv) page(t *testing.T, path, locale string) *Page {
	t.Helper()
	p, err := e.svc.Page(path, locale)
	require.NoError(t, err)
	return p
}
