package config

import (
	"fmt"
	"os"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl/v2/hclsimple"

	"github.com/hashicorp-forge/hermes-wiki/pkg/cache"
	githubstore "github.com/hashicorp-forge/hermes-wiki/pkg/content/adapters/github"
	"github.com/hashicorp-forge/hermes-wiki/pkg/content/adapters/local"
	s3store "github.com/hashicorp-forge/hermes-wiki/pkg/content/adapters/s3"
	"github.com/hashicorp-forge/hermes-wiki/pkg/database"
	"github.com/hashicorp-forge/hermes-wiki/pkg/refresh"
	"github.com/hashicorp-forge/hermes-wiki/pkg/search/adapters/algolia"
	"github.com/hashicorp-forge/hermes-wiki/pkg/search/adapters/bleve"
	"github.com/hashicorp-forge/hermes-wiki/pkg/search/adapters/meilisearch"
	"github.com/hashicorp-forge/hermes-wiki/pkg/wiki"
)

// Provider names.
const (
	ContentGitHub = "github"
	ContentS3     = "s3"
	ContentLocal  = "local"

	SearchBleve       = "bleve"
	SearchMeilisearch = "meilisearch"
	SearchAlgolia     = "algolia"

	CacheMemory   = "memory"
	CacheDatabase = "database"

	LockerMutex    = "mutex"
	LockerAdvisory = "advisory"
	LockerFile     = "file"
)

// Config contains the wiki configuration.
type Config struct {
	// LogFormat configures the logging format. Supported values are "standard"
	// or "json".
	LogFormat string `hcl:"log_format,optional"`

	// Wiki configures page resolution.
	Wiki *wiki.Config `hcl:"wiki,block"`

	// Providers selects the implementation of each collaborator.
	Providers *Providers `hcl:"providers,block"`

	// GitHub configures the GitHub content store.
	GitHub *githubstore.Config `hcl:"github,block"`

	// S3 configures the S3 content store.
	S3 *s3store.Config `hcl:"s3,block"`

	// Local configures the local filesystem content store.
	Local *local.Config `hcl:"local,block"`

	// Cache configures the page cache.
	Cache *Cache `hcl:"cache,block"`

	// Postgres configures the database used by the database cache store and
	// advisory locks.
	Postgres *database.Config `hcl:"postgres,block"`

	// Bleve configures the embedded search index.
	Bleve *bleve.Config `hcl:"bleve,block"`

	// Meilisearch configures the Meilisearch search provider.
	Meilisearch *meilisearch.Config `hcl:"meilisearch,block"`

	// Algolia configures the Algolia search provider.
	Algolia *algolia.Config `hcl:"algolia,block"`

	// Kafka configures fleet-wide page refreshes.
	Kafka *Kafka `hcl:"kafka,block"`

	// Server configures the HTTP server.
	Server *Server `hcl:"server,block"`
}

// Providers selects collaborator implementations.
type Providers struct {
	// Content is "github", "s3" or "local".
	Content string `hcl:"content,optional"`

	// Search is "bleve", "meilisearch" or "algolia".
	Search string `hcl:"search,optional"`
}

// Cache configures the page cache.
type Cache struct {
	// Store is "memory" or "database".
	Store string `hcl:"store,optional"`

	// Locker is "mutex", "advisory" (Postgres) or "file".
	Locker string `hcl:"locker,optional"`

	// MemorySize is the maximum number of entries of the memory store.
	MemorySize int `hcl:"memory_size,optional"`

	// LockDir holds lock files for the file locker.
	LockDir string `hcl:"lock_dir,optional"`
}

// Kafka configures the refresh topic.
type Kafka struct {
	// Enabled starts a refresh consumer inside the server.
	Enabled bool `hcl:"enabled,optional"`

	Brokers       []string `hcl:"brokers,optional"`
	Topic         string   `hcl:"topic,optional"`
	ConsumerGroup string   `hcl:"consumer_group,optional"`
}

// Server configures the HTTP server.
type Server struct {
	// Addr is the address to bind to for listening.
	Addr string `hcl:"addr,optional"`
}

// NewConfig parses an HCL configuration file, applies defaults and
// environment overrides, and validates the result.
func NewConfig(filename string) (*Config, error) {
	c := &Config{}
	if err := hclsimple.DecodeFile(filename, nil, c); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}

	c.ApplyEnv(os.LookupEnv)
	c.SetDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// ApplyEnv overrides secrets and deployment specific values from the
// environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("WIKI_GITHUB_TOKEN"); ok && v != "" {
		if c.GitHub == nil {
			c.GitHub = &githubstore.Config{}
		}
		c.GitHub.Token = v
	}
	if v, ok := lookup("WIKI_KAFKA_BROKERS"); ok && v != "" {
		if c.Kafka == nil {
			c.Kafka = &Kafka{}
		}
		c.Kafka.Brokers = splitList(v)
	}
	if v, ok := lookup("WIKI_POSTGRES_PASSWORD"); ok && v != "" && c.Postgres != nil {
		c.Postgres.Password = v
	}
	if v, ok := lookup("WIKI_MEILISEARCH_API_KEY"); ok && v != "" && c.Meilisearch != nil {
		c.Meilisearch.APIKey = v
	}
	if v, ok := lookup("WIKI_ALGOLIA_WRITE_API_KEY"); ok && v != "" && c.Algolia != nil {
		c.Algolia.WriteAPIKey = v
	}
	if v, ok := lookup("WIKI_S3_SECRET_KEY"); ok && v != "" && c.S3 != nil {
		c.S3.SecretKey = v
	}
}

// SetDefaults fills in optional blocks and fields.
func (c *Config) SetDefaults() {
	if c.LogFormat == "" {
		c.LogFormat = "standard"
	}
	if c.Wiki == nil {
		c.Wiki = &wiki.Config{}
	}
	c.Wiki.SetDefaults()

	if c.Providers == nil {
		c.Providers = &Providers{}
	}
	if c.Providers.Content == "" {
		c.Providers.Content = ContentGitHub
	}
	if c.Providers.Search == "" {
		c.Providers.Search = SearchBleve
	}

	if c.Cache == nil {
		c.Cache = &Cache{}
	}
	if c.Cache.Store == "" {
		c.Cache.Store = CacheMemory
	}
	if c.Cache.Locker == "" {
		c.Cache.Locker = LockerMutex
	}
	if c.Cache.MemorySize == 0 {
		c.Cache.MemorySize = cache.DefaultMemorySize
	}

	if c.GitHub != nil {
		c.GitHub.SetDefaults()
	}
	if c.S3 != nil {
		c.S3.SetDefaults()
	}
	if c.Postgres != nil {
		c.Postgres.SetDefaults()
	}
	if c.Meilisearch != nil && c.Meilisearch.IndexName == "" {
		c.Meilisearch.IndexName = c.Wiki.IndexName
	}
	if c.Algolia != nil && c.Algolia.IndexName == "" {
		c.Algolia.IndexName = c.Wiki.IndexName
	}
	if c.Bleve == nil && c.Providers.Search == SearchBleve {
		c.Bleve = &bleve.Config{InMemory: true}
	}
	if c.Bleve != nil && c.Bleve.IndexName == "" {
		c.Bleve.IndexName = c.Wiki.IndexName
	}

	if c.Kafka == nil {
		c.Kafka = &Kafka{}
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = refresh.DefaultTopic
	}

	if c.Server == nil {
		c.Server = &Server{}
	}
	if c.Server.Addr == "" {
		c.Server.Addr = "127.0.0.1:8000"
	}
}

// Validate validates the configuration, including the block of every
// selected provider.
func (c *Config) Validate() error {
	var result *multierror.Error

	if err := validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.In("standard", "json")),
	); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Wiki == nil || c.Providers == nil || c.Cache == nil || c.Kafka == nil {
		return fmt.Errorf("invalid configuration: defaults not applied")
	}

	if err := c.Wiki.Validate(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := validation.ValidateStruct(c.Providers,
		validation.Field(&c.Providers.Content, validation.In(ContentGitHub, ContentS3, ContentLocal)),
		validation.Field(&c.Providers.Search, validation.In(SearchBleve, SearchMeilisearch, SearchAlgolia)),
	); err != nil {
		result = multierror.Append(result, fmt.Errorf("invalid providers: %w", err))
	}
	if err := validation.ValidateStruct(c.Cache,
		validation.Field(&c.Cache.Store, validation.In(CacheMemory, CacheDatabase)),
		validation.Field(&c.Cache.Locker, validation.In(LockerMutex, LockerAdvisory, LockerFile)),
		validation.Field(&c.Cache.MemorySize, validation.Min(1)),
	); err != nil {
		result = multierror.Append(result, fmt.Errorf("invalid cache: %w", err))
	}

	switch c.Providers.Content {
	case ContentGitHub:
		result = appendBlock(result, "github", c.GitHub != nil, func() error { return c.GitHub.Validate() })
	case ContentS3:
		result = appendBlock(result, "s3", c.S3 != nil, func() error { return c.S3.Validate() })
	case ContentLocal:
		result = appendBlock(result, "local", c.Local != nil, func() error {
			return validation.ValidateStruct(c.Local, validation.Field(&c.Local.Root, validation.Required))
		})
	}

	switch c.Providers.Search {
	case SearchMeilisearch:
		result = appendBlock(result, "meilisearch", c.Meilisearch != nil, func() error { return c.Meilisearch.Validate() })
	case SearchAlgolia:
		result = appendBlock(result, "algolia", c.Algolia != nil, func() error { return c.Algolia.Validate() })
	}

	needsPostgres := c.Cache.Store == CacheDatabase || c.Cache.Locker == LockerAdvisory
	if needsPostgres {
		result = appendBlock(result, "postgres", c.Postgres != nil, func() error { return c.Postgres.Validate() })
	}
	if c.Cache.Locker == LockerAdvisory && c.Postgres != nil && c.Postgres.Driver != database.DriverPostgres {
		result = multierror.Append(result, fmt.Errorf("advisory locker requires the postgres driver"))
	}
	if c.Cache.Locker == LockerFile && c.Cache.LockDir == "" {
		result = multierror.Append(result, fmt.Errorf("file locker requires cache.lock_dir"))
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		result = multierror.Append(result, fmt.Errorf("kafka is enabled but no brokers are configured"))
	}

	return result.ErrorOrNil()
}

func appendBlock(result *multierror.Error, name string, present bool, validate func() error) *multierror.Error {
	if !present {
		return multierror.Append(result, fmt.Errorf("%s block is required", name))
	}
	if err := validate(); err != nil {
		return multierror.Append(result, fmt.Errorf("invalid %s block: %w", name, err))
	}
	return result
}

func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
