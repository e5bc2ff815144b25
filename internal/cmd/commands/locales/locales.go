package locales

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/hashicorp-forge/hermes-wiki/internal/cmd/base"
	"github.com/hashicorp-forge/hermes-wiki/internal/server"
)

type Command struct {
	*base.Command

	flagConfig string
}

func (c *Command) Synopsis() string {
	return "List the locales a wiki page is available in"
}

func (c *Command) Help() string {
	return `Usage: wiki locales [options] PATH

  Print one locale per line, in content store order.` + c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("locales", flag.ContinueOnError))
	f.ConfigFlag(&c.flagConfig)
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

	p, err := srv.Wiki.Page(f.Arg(0), "")
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}
	locales, err := p.Locales(ctx)
	if err != nil {
		c.UI.Error(fmt.Sprintf("error listing locales: %v", err))
		return 1
	}
	for _, l := range locales {
		c.UI.Output(l)
	}
	return 0
}
