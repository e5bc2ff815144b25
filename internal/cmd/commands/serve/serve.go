package serve

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "github.com/hashicorp-forge/hermes-wiki/internal/api/v1"
	"github.com/hashicorp-forge/hermes-wiki/internal/cmd/base"
	"github.com/hashicorp-forge/hermes-wiki/internal/server"
	"github.com/hashicorp-forge/hermes-wiki/pkg/cache"
	"github.com/hashicorp-forge/hermes-wiki/pkg/database"
	"github.com/hashicorp-forge/hermes-wiki/pkg/refresh"
)

type Command struct {
	*base.Command

	flagConfig        string
	flagAddr          string
	flagPruneInterval time.Duration
}

func (c *Command) Synopsis() string {
	return "Run the wiki server"
}

func (c *Command) Help() string {
	return `Usage: wiki serve -config=config.hcl

  Serve wiki pages and wiki search over HTTP:

    GET /api/v1/wiki/{path}?locale={locale}
    GET /api/v1/wiki-search?query={query}&page={page}&limit={limit}

  With kafka.enabled the server also applies refresh events published by
  "wiki refresh".` + c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("serve", flag.ContinueOnError))
	f.ConfigFlag(&c.flagConfig)
	f.StringVar(
		&c.flagAddr, "addr", "",
		"Address to listen on (overrides server.addr)",
	)
	f.DurationVar(
		&c.flagPruneInterval, "prune-interval", 10*time.Minute,
		"How often expired entries are removed from a database cache",
	)
	return f
}

func (c *Command) Run(args []string) int {
	f := c.Flags()
	if err := f.Parse(args); err != nil {
		c.UI.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}

	cfg, err := c.LoadConfig(c.flagConfig, os.LookupEnv)
	if err != nil {
		c.UI.Error(fmt.Sprintf("error loading config: %v", err))
		return 1
	}
	if c.flagAddr != "" {
		cfg.Server.Addr = c.flagAddr
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv, err := server.New(ctx, cfg, c.Log)
	if err != nil {
		c.UI.Error(fmt.Sprintf("error initializing server: %v", err))
		return 1
	}
	defer func() {
		if err := srv.Close(); err != nil {
			c.Log.Error("error closing server resources", "error", err)
		}
	}()

	if cfg.Kafka.Enabled {
		consumer, err := refresh.NewConsumer(refresh.ConsumerConfig{
			Brokers:       cfg.Kafka.Brokers,
			Topic:         cfg.Kafka.Topic,
			ConsumerGroup: cfg.Kafka.ConsumerGroup,
			Handler:       srv.Wiki,
			Logger:        c.Log,
		})
		if err != nil {
			c.UI.Error(fmt.Sprintf("error creating refresh consumer: %v", err))
			return 1
		}
		defer consumer.Stop()
		go func() {
			if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				c.Log.Error("refresh consumer failed", "error", err)
			}
		}()
	}

	if store, ok := srv.CacheStore.(*cache.DatabaseStore); ok {
		go c.pruneLoop(ctx, srv, store)
	}

	mux := http.NewServeMux()
	mux.Handle("/api/v1/wiki/", api.WikiPageHandler(*srv))
	mux.Handle("/api/v1/wiki-search", api.WikiSearchHandler(*srv))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := srv.SearchProvider.Healthy(r.Context()); err != nil {
			http.Error(w, "search unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		c.Log.Info("listening", "addr", cfg.Server.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			c.UI.Error(fmt.Sprintf("error running server: %v", err))
			return 1
		}
	case <-ctx.Done():
		c.Log.Info("shutting down")
		shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			c.UI.Error(fmt.Sprintf("error shutting down server: %v", err))
			return 1
		}
	}
	return 0
}

func (c *Command) pruneLoop(ctx context.Context, srv *server.Server, store *cache.DatabaseStore) {
	ticker := time.NewTicker(c.flagPruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.Prune(ctx)
			if err != nil {
				c.Log.Warn("error pruning cache", "error", err)
				continue
			}
			stats, err := database.GetPoolStats(srv.DB)
			if err != nil {
				c.Log.Debug("pruned cache", "deleted", n)
				continue
			}
			c.Log.Debug("pruned cache",
				"deleted", n,
				"open_connections", stats.OpenConnections,
				"in_use", stats.InUse,
			)
		}
	}
}
