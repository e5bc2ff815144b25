package base

import (
	"flag"
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"

	"github.com/hashicorp-forge/hermes-wiki/internal/config"
)

// Command is embedded by every CLI command.
type Command struct {
	Log hclog.Logger
	UI  cli.Ui
}

// NewCommand returns a Command with the given logger and UI.
func NewCommand(log hclog.Logger, ui cli.Ui) *Command {
	return &Command{Log: log, UI: ui}
}

// LoadConfig reads the configuration file at path. The WIKI_CONFIG
// environment variable is used when path is empty.
func (c *Command) LoadConfig(path string, lookupEnv func(string) (string, bool)) (*config.Config, error) {
	if path == "" {
		if v, ok := lookupEnv("WIKI_CONFIG"); ok {
			path = v
		}
	}
	if path == "" {
		return nil, fmt.Errorf("config flag is required (-config or WIKI_CONFIG)")
	}

	cfg, err := config.NewConfig(path)
	if err != nil {
		return nil, err
	}
	if cfg.LogFormat == "json" {
		c.Log = hclog.New(&hclog.LoggerOptions{
			Name:       c.Log.Name(),
			JSONFormat: true,
		})
	}
	return cfg, nil
}

// FlagSet wraps a flag.FlagSet with help output.
type FlagSet struct {
	*flag.FlagSet
}

// NewFlagSet wraps f.
func NewFlagSet(f *flag.FlagSet) *FlagSet {
	return &FlagSet{FlagSet: f}
}

// Help returns the formatted flag usage.
func (f *FlagSet) Help() string {
	var b strings.Builder
	b.WriteString("\n\nOptions:\n")
	f.VisitAll(func(fl *flag.Flag) {
		fmt.Fprintf(&b, "\n  -%s", fl.Name)
		if fl.DefValue != "" && fl.DefValue != "false" {
			fmt.Fprintf(&b, "=%s", fl.DefValue)
		}
		fmt.Fprintf(&b, "\n      %s\n", fl.Usage)
	})
	return strings.TrimRight(b.String(), "\n")
}

// ConfigFlag registers the common -config flag.
func (f *FlagSet) ConfigFlag(p *string) {
	f.StringVar(p, "config", "", "[WIKI_CONFIG] Path to the HCL configuration file")
}
