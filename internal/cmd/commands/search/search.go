package search

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp-forge/hermes-wiki/internal/cmd/base"
	"github.com/hashicorp-forge/hermes-wiki/internal/server"
	"github.com/hashicorp-forge/hermes-wiki/pkg/wiki"
)

type Command struct {
	*base.Command

	flagConfig        string
	flagLocale        string
	flagDisplayLocale string
	flagPage          int
	flagLimit         int
}

func (c *Command) Synopsis() string {
	return "Search wiki pages"
}

func (c *Command) Help() string {
	return `Usage: wiki search [options] QUERY...

  Search indexed wiki pages. Every word of QUERY must match.` + c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("search", flag.ContinueOnError))
	f.ConfigFlag(&c.flagConfig)
	f.StringVar(&c.flagLocale, "locale", "", "Only return pages in this locale")
	f.StringVar(&c.flagDisplayLocale, "display-locale", "", "List pages in this locale first (default: fallback locale)")
	f.IntVar(&c.flagPage, "page", 1, "Result page")
	f.IntVar(&c.flagLimit, "limit", wiki.MaxSearchLimit, "Results per page (1-50)")
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

	ctx := context.Background()
	srv, err := server.New(ctx, cfg, c.Log)
	if err != nil {
		c.UI.Error(fmt.Sprintf("error initializing: %v", err))
		return 1
	}
	defer srv.Close()

	results, err := srv.Wiki.Search(ctx, wiki.SearchParams{
		Query:  strings.Join(f.Args(), " "),
		Page:   c.flagPage,
		Limit:  c.flagLimit,
		Locale: c.flagLocale,
	}, c.flagDisplayLocale)
	if err != nil {
		c.UI.Error(fmt.Sprintf("error searching: %v", err))
		return 1
	}

	for _, p := range results.Pages {
		title, err := p.Title(ctx, true)
		if err != nil {
			c.UI.Warn(fmt.Sprintf("%s: %v", p.PagePath(), err))
			continue
		}
		c.UI.Output(fmt.Sprintf("%-40s %s", p.PagePath(), title))
	}
	c.UI.Info(fmt.Sprintf("%d of %d results (page %d)", len(results.Pages), results.Total, results.Params.Page))
	return 0
}
