package server

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"gorm.io/gorm"

	"github.com/hashicorp-forge/hermes-wiki/internal/config"
	"github.com/hashicorp-forge/hermes-wiki/internal/migrate"
	"github.com/hashicorp-forge/hermes-wiki/pkg/cache"
	"github.com/hashicorp-forge/hermes-wiki/pkg/content"
	githubstore "github.com/hashicorp-forge/hermes-wiki/pkg/content/adapters/github"
	"github.com/hashicorp-forge/hermes-wiki/pkg/content/adapters/local"
	s3store "github.com/hashicorp-forge/hermes-wiki/pkg/content/adapters/s3"
	"github.com/hashicorp-forge/hermes-wiki/pkg/database"
	"github.com/hashicorp-forge/hermes-wiki/pkg/render/markdown"
	"github.com/hashicorp-forge/hermes-wiki/pkg/search"
	"github.com/hashicorp-forge/hermes-wiki/pkg/search/adapters/algolia"
	"github.com/hashicorp-forge/hermes-wiki/pkg/search/adapters/bleve"
	"github.com/hashicorp-forge/hermes-wiki/pkg/search/adapters/meilisearch"
	"github.com/hashicorp-forge/hermes-wiki/pkg/wiki"
)

// Server contains the server configuration.
type Server struct {
	// Config is the config for the server.
	Config *config.Config

	// Wiki resolves and searches wiki pages.
	Wiki *wiki.Service

	// SearchProvider is the search backend (Bleve, Meilisearch or Algolia).
	SearchProvider search.Provider

	// CacheStore backs the page cache.
	CacheStore cache.Store

	// DB is the cache database, if one is configured.
	DB *gorm.DB

	// Logger is the logger for the server.
	Logger hclog.Logger

	closers []func() error
}

// New builds every collaborator selected by cfg and the wiki service on
// top of them. Close releases what New opened.
func New(ctx context.Context, cfg *config.Config, log hclog.Logger) (*Server, error) {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	srv := &Server{Config: cfg, Logger: log}

	store, err := newContentStore(cfg, log)
	if err != nil {
		return nil, err
	}

	provider, err := newSearchProvider(cfg, log)
	if err != nil {
		return nil, err
	}
	srv.SearchProvider = provider
	srv.closers = append(srv.closers, provider.Close)

	c, err := srv.newCache(ctx, cfg, log)
	if err != nil {
		_ = srv.Close()
		return nil, err
	}

	svc, err := wiki.NewService(*cfg.Wiki, wiki.Dependencies{
		Store:    store,
		Renderer: markdown.New(log),
		Cache:    c,
		Index:    provider.PageIndex(),
		Logger:   log,
	})
	if err != nil {
		_ = srv.Close()
		return nil, err
	}
	srv.Wiki = svc

	log.Info("wiki service ready",
		"content", store.Name(),
		"search", provider.Name(),
		"cache_store", cfg.Cache.Store,
		"cache_locker", cfg.Cache.Locker,
	)
	return srv, nil
}

// Close releases every resource opened by New.
func (s *Server) Close() error {
	var result *multierror.Error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			result = multierror.Append(result, err)
		}
	}
	s.closers = nil
	return result.ErrorOrNil()
}

func newContentStore(cfg *config.Config, log hclog.Logger) (content.Store, error) {
	switch cfg.Providers.Content {
	case config.ContentGitHub:
		return githubstore.NewStore(cfg.GitHub, log)
	case config.ContentS3:
		return s3store.NewStore(cfg.S3, log)
	case config.ContentLocal:
		return local.NewStore(cfg.Local, log)
	default:
		return nil, fmt.Errorf("unsupported content provider: %s", cfg.Providers.Content)
	}
}

func newSearchProvider(cfg *config.Config, log hclog.Logger) (search.Provider, error) {
	switch cfg.Providers.Search {
	case config.SearchBleve:
		return bleve.NewAdapter(cfg.Bleve, log)
	case config.SearchMeilisearch:
		return meilisearch.NewAdapter(cfg.Meilisearch, log)
	case config.SearchAlgolia:
		return algolia.NewAdapter(cfg.Algolia, log)
	default:
		return nil, fmt.Errorf("unsupported search provider: %s", cfg.Providers.Search)
	}
}

func (s *Server) newCache(ctx context.Context, cfg *config.Config, log hclog.Logger) (*cache.Cache, error) {
	var store cache.Store
	switch cfg.Cache.Store {
	case config.CacheMemory:
		store = cache.NewMemoryStore(cfg.Cache.MemorySize)
	case config.CacheDatabase:
		db, err := database.Connect(*cfg.Postgres, log)
		if err != nil {
			return nil, err
		}
		s.DB = db
		s.closers = append(s.closers, func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		})
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		if err := migrate.RunMigrations(sqlDB, cfg.Postgres.Driver); err != nil {
			return nil, fmt.Errorf("error migrating cache database: %w", err)
		}
		store = cache.NewDatabaseStore(db, log)
	default:
		return nil, fmt.Errorf("unsupported cache store: %s", cfg.Cache.Store)
	}

	var locker cache.Locker
	switch cfg.Cache.Locker {
	case config.LockerMutex:
		locker = cache.NewMutexLocker()
	case config.LockerAdvisory:
		l, err := cache.NewAdvisoryLocker(ctx, cfg.Postgres.DSN(), log)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, func() error { l.Close(); return nil })
		locker = l
	case config.LockerFile:
		l, err := cache.NewFileLocker(cfg.Cache.LockDir, log)
		if err != nil {
			return nil, err
		}
		locker = l
	default:
		return nil, fmt.Errorf("unsupported cache locker: %s", cfg.Cache.Locker)
	}

	s.CacheStore = store
	return cache.New(store, locker, log), nil
}
