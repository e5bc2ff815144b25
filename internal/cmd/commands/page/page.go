package page

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp-forge/hermes-wiki/internal/cmd/base"
	"github.com/hashicorp-forge/hermes-wiki/internal/server"
)

type Command struct {
	*base.Command

	flagConfig string
	flagLocale string
	flagBody   bool
	flagJSON   bool
}

func (c *Command) Synopsis() string {
	return "Resolve a wiki page"
}

func (c *Command) Help() string {
	return `Usage: wiki page [options] PATH

  Resolve PATH in the requested locale, falling back to the configured
  fallback locale, and print the result. The page is cached and the search
  index updated exactly as when served over HTTP.` + c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("page", flag.ContinueOnError))
	f.ConfigFlag(&c.flagConfig)
	f.StringVar(&c.flagLocale, "locale", "", "Requested locale (default: fallback locale)")
	f.BoolVar(&c.flagBody, "body", false, "Print the rendered HTML")
	f.BoolVar(&c.flagJSON, "json", false, "Print the rendered document as JSON")
	return f
}

func (c *Command) Run(args []string) int {
	f := c.Flags()
	if err := f.Parse(args); err != nil {
		c.UI.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}
	if f.NArg() != 1 {
		c.UI.Error("exactly one page path is required")
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

	p, err := srv.Wiki.Page(f.Arg(0), c.flagLocale)
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}
	resolved, err := p.Resolve(ctx)
	if err != nil {
		c.UI.Error(fmt.Sprintf("error resolving page: %v", err))
		return 1
	}

	if c.flagJSON {
		if resolved == nil {
			c.UI.Output("null")
			return 2
		}
		out, err := json.MarshalIndent(resolved.Document, "", "  ")
		if err != nil {
			c.UI.Error(err.Error())
			return 1
		}
		c.UI.Output(string(out))
		return 0
	}

	title, err := p.Title(ctx, true)
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}
	locales, err := p.Locales(ctx)
	if err != nil {
		c.UI.Error(fmt.Sprintf("error listing locales: %v", err))
		return 1
	}

	c.UI.Output(fmt.Sprintf("Title:     %s", title))
	c.UI.Output(fmt.Sprintf("Locale:    %s (requested %s)", p.Locale(), p.RequestedLocale()))
	c.UI.Output(fmt.Sprintf("Available: %s", strings.Join(locales, ", ")))
	c.UI.Output(fmt.Sprintf("Edit:      %s", p.EditURL()))

	if resolved == nil {
		return 2
	}
	if c.flagBody {
		body, _ := p.Body(ctx)
		c.UI.Output("")
		c.UI.Output(body)
	}
	return 0
}
