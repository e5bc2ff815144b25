package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalConfig = `
wiki {
  index_name = "osu"
  repo_owner = "ppy"
  repo_name  = "osu-wiki"
}

github {
  owner      = "ppy"
  repository = "osu-wiki"
}
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.hcl")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestNewConfig_Defaults(t *testing.T) {
	cfg, err := NewConfig(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "standard", cfg.LogFormat)
	assert.Equal(t, "en", cfg.Wiki.FallbackLocale)
	assert.Equal(t, "/wiki", cfg.Wiki.LinkBase)
	assert.Equal(t, ContentGitHub, cfg.Providers.Content)
	assert.Equal(t, SearchBleve, cfg.Providers.Search)
	assert.True(t, cfg.Bleve.InMemory)
	assert.Equal(t, cfg.Wiki.IndexName, cfg.Bleve.IndexName)
	assert.Equal(t, CacheMemory, cfg.Cache.Store)
	assert.Equal(t, LockerMutex, cfg.Cache.Locker)
	assert.Equal(t, 3, cfg.GitHub.MaxRetries)
	assert.Equal(t, "wiki.page-refresh", cfg.Kafka.Topic)
	assert.Equal(t, "127.0.0.1:8000", cfg.Server.Addr)
}

func TestNewConfig_Full(t *testing.T) {
	cfg, err := NewConfig(writeConfig(t, `
log_format = "json"

wiki {
  index_name        = "osu"
  repo_owner        = "ppy"
  repo_name         = "osu-wiki"
  repo_branch       = "main"
  cache_ttl_minutes = 60
}

providers {
  content = "local"
  search  = "meilisearch"
}

local {
  root = "/srv/osu-wiki"
}

meilisearch {
  host = "http://localhost:7700"
}

cache {
  store  = "database"
  locker = "advisory"
}

postgres {
  host   = "localhost"
  user   = "wiki"
  dbname = "wiki"
}

kafka {
  enabled = true
  brokers = ["localhost:9092"]
}
`))
	require.NoError(t, err)

	assert.Equal(t, "main", cfg.Wiki.RepoBranch)
	assert.Equal(t, "osu", cfg.Meilisearch.IndexName)
	assert.Equal(t, "/srv/osu-wiki", cfg.Local.Root)
	assert.Equal(t, 5432, cfg.Postgres.Port)
	assert.True(t, cfg.Kafka.Enabled)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name: "missing wiki fields",
			body: `github {
  owner      = "ppy"
  repository = "osu-wiki"
}`,
			wantErr: "invalid wiki configuration",
		},
		{
			name: "missing provider block",
			body: `
wiki {
  index_name = "osu"
  repo_owner = "ppy"
  repo_name  = "osu-wiki"
}
providers {
  content = "s3"
}`,
			wantErr: "s3 block is required",
		},
		{
			name:    "unknown search provider",
			body:    minimalConfig + "\nproviders {\n  search = \"solr\"\n}\n",
			wantErr: "invalid providers",
		},
		{
			name:    "file locker without directory",
			body:    minimalConfig + "\ncache {\n  locker = \"file\"\n}\n",
			wantErr: "lock_dir",
		},
		{
			name:    "kafka without brokers",
			body:    minimalConfig + "\nkafka {\n  enabled = true\n}\n",
			wantErr: "no brokers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConfig(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_ApplyEnv(t *testing.T) {
	cfg := &Config{}
	env := map[string]string{
		"WIKI_GITHUB_TOKEN":  "ghp_secret",
		"WIKI_KAFKA_BROKERS": "a:9092, b:9092,",
	}
	cfg.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})

	require.NotNil(t, cfg.GitHub)
	assert.Equal(t, "ghp_secret", cfg.GitHub.Token)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
}
