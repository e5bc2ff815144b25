package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-hclog"

	"github.com/hashicorp-forge/hermes-wiki/internal/config"
	"github.com/hashicorp-forge/hermes-wiki/internal/server"
	"github.com/hashicorp-forge/hermes-wiki/pkg/refresh"
)

// wiki-refresher applies refresh events to a shared (database) cache for
// deployments whose servers do not consume the topic themselves.
func main() {
	configPath := flag.String("config", "config.hcl", "Path to configuration file")
	flag.Parse()

	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "wiki-refresher",
		Level: hclog.Info,
	})
	logger.Info("starting wiki-refresher", "config", *configPath)

	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if len(cfg.Kafka.Brokers) == 0 {
		logger.Error("no kafka brokers configured")
		os.Exit(1)
	}
	if cfg.Cache.Store != config.CacheDatabase {
		logger.Warn("refreshing a memory cache only affects this process", "cache_store", cfg.Cache.Store)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("refresher failed", "error", err)
		cancel()
		os.Exit(1)
	}
	logger.Info("wiki-refresher stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger hclog.Logger) error {
	srv, err := server.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer srv.Close()

	group := cfg.Kafka.ConsumerGroup
	if group == "" {
		// Shared cache: one refresher of the group applies each event.
		group = "wiki-refreshers"
	}
	consumer, err := refresh.NewConsumer(refresh.ConsumerConfig{
		Brokers:       cfg.Kafka.Brokers,
		Topic:         cfg.Kafka.Topic,
		ConsumerGroup: group,
		Handler:       srv.Wiki,
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	defer consumer.Stop()

	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
