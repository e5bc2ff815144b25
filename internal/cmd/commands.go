package cmd

import (
	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"

	"github.com/hashicorp-forge/hermes-wiki/internal/cmd/base"
	"github.com/hashicorp-forge/hermes-wiki/internal/cmd/commands/locales"
	"github.com/hashicorp-forge/hermes-wiki/internal/cmd/commands/page"
	"github.com/hashicorp-forge/hermes-wiki/internal/cmd/commands/refresh"
	"github.com/hashicorp-forge/hermes-wiki/internal/cmd/commands/search"
	"github.com/hashicorp-forge/hermes-wiki/internal/cmd/commands/serve"
	"github.com/hashicorp-forge/hermes-wiki/internal/cmd/commands/version"
)

// Commands is the mapping of all available commands.
var Commands map[string]cli.CommandFactory

func initCommands(log hclog.Logger, ui cli.Ui) {
	b := base.NewCommand(log, ui)

	Commands = map[string]cli.CommandFactory{
		"locales": func() (cli.Command, error) {
			return &locales.Command{Command: b}, nil
		},
		"page": func() (cli.Command, error) {
			return &page.Command{Command: b}, nil
		},
		"refresh": func() (cli.Command, error) {
			return &refresh.Command{Command: b}, nil
		},
		"search": func() (cli.Command, error) {
			return &search.Command{Command: b}, nil
		},
		"serve": func() (cli.Command, error) {
			return &serve.Command{Command: b}, nil
		},
		"version": func() (cli.Command, error) {
			return &version.Command{Command: b}, nil
		},
	}
}
