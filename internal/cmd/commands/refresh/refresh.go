package refresh

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/hashicorp-forge/hermes-wiki/internal/cmd/base"
	"github.com/hashicorp-forge/hermes-wiki/internal/server"
	"github.com/hashicorp-forge/hermes-wiki/pkg/refresh"
	"github.com/hashicorp-forge/hermes-wiki/pkg/wiki"
)

type Command struct {
	*base.Command

	flagConfig  string
	flagLocales string
	flagLocal   bool
}

func (c *Command) Synopsis() string {
	return "Drop cached copies of wiki pages"
}

func (c *Command) Help() string {
	return `Usage: wiki refresh [options] PATH...

  Drop the cached rendering and locale listing of each PATH so the next
  request fetches it again. Events are published to the refresh topic so
  every server applies them; with -local, or when no Kafka brokers are
  configured, the configured cache is invalidated directly.` + c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("refresh", flag.ContinueOnError))
	f.ConfigFlag(&c.flagConfig)
	f.StringVar(&c.flagLocales, "locale", "", "Locale to refresh (default: fallback locale)")
	f.BoolVar(&c.flagLocal, "local", false, "Invalidate the configured cache instead of publishing events")
	return f
}

func (c *Command) Run(args []string) int {
	f := c.Flags()
	if err := f.Parse(args); err != nil {
		c.UI.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}
	if f.NArg() == 0 {
		c.UI.Error("at least one page path is required")
		return 1
	}

	cfg, err := c.LoadConfig(c.flagConfig, os.LookupEnv)
	if err != nil {
		c.UI.Error(fmt.Sprintf("error loading config: %v", err))
		return 1
	}
	locale := c.flagLocales
	if locale == "" {
		locale = cfg.Wiki.FallbackLocale
	}

	ctx := context.Background()
	var handler refresh.Handler
	if c.flagLocal || len(cfg.Kafka.Brokers) == 0 {
		srv, err := server.New(ctx, cfg, c.Log)
		if err != nil {
			c.UI.Error(fmt.Sprintf("error initializing: %v", err))
			return 1
		}
		defer srv.Close()
		handler = srv.Wiki
	} else {
		publisher, err := refresh.NewPublisher(refresh.PublisherConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
			Logger:  c.Log,
		})
		if err != nil {
			c.UI.Error(fmt.Sprintf("error creating publisher: %v", err))
			return 1
		}
		defer publisher.Close()
		handler = refresh.HandlerFunc(func(ctx context.Context, path, locale string) error {
			_, err := publisher.Publish(ctx, path, locale)
			return err
		})
	}

	failed := 0
	for _, arg := range f.Args() {
		path, err := wiki.CleanPath(arg)
		if err == nil {
			err = handler.Refresh(ctx, path, locale)
		}
		if err != nil {
			c.UI.Error(fmt.Sprintf("%s: %v", arg, err))
			failed++
			continue
		}
		c.UI.Output(fmt.Sprintf("refreshed %s", wiki.PagePath(path, locale)))
	}
	if failed > 0 {
		return 1
	}
	return 0
}
