package cmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"

	"github.com/hashicorp-forge/hermes-wiki/internal/version"
)

// defaultName is used when the binary name cannot be determined.
const defaultName = "wiki"

// Main runs the wiki CLI with the given arguments and returns the exit
// code. Without a subcommand it runs "serve".
func Main(args []string) int {
	name := defaultName
	if len(args) > 0 && args[0] != "" {
		name = filepath.Base(args[0])
	} else {
		args = []string{name}
	}

	log := hclog.New(&hclog.LoggerOptions{
		Name:  name,
		Level: hclog.LevelFromString(os.Getenv("WIKI_LOG_LEVEL")),
	})

	if len(args) == 2 && (args[1] == "-version" || args[1] == "-v") {
		args = []string{name, "version"}
	}
	if len(args) == 1 {
		args = append(args, "serve")
	}

	ui := &cli.BasicUi{
		Reader:      bufio.NewReader(os.Stdin),
		Writer:      os.Stdout,
		ErrorWriter: os.Stderr,
	}

	initCommands(log, ui)

	c := &cli.CLI{
		Name:       name,
		Args:       args[1:],
		Version:    version.Version,
		Commands:   Commands,
		HelpFunc:   helpFunc(name),
		HelpWriter: os.Stdout,
	}

	exitCode, err := c.Run()
	if err != nil {
		ui.Error(fmt.Sprintf("Error running %s: %v", name, err))
		return 1
	}
	return exitCode
}

// helpFunc lists the commands under a short description of the wiki
// server.
func helpFunc(name string) cli.HelpFunc {
	return func(commands map[string]cli.CommandFactory) string {
		var b strings.Builder
		fmt.Fprintf(&b, "Usage: %s [-version] <command> [args]\n\n", name)
		b.WriteString("Serves wiki pages from a content repository, caching rendered\n")
		b.WriteString("pages and mirroring them into a search index.\n\n")
		b.WriteString("Commands:\n")

		keys := make([]string, 0, len(commands))
		width := 0
		for k := range commands {
			keys = append(keys, k)
			if len(k) > width {
				width = len(k)
			}
		}
		sort.Strings(keys)

		for _, k := range keys {
			synopsis := ""
			if cmd, err := commands[k](); err == nil {
				synopsis = cmd.Synopsis()
			}
			fmt.Fprintf(&b, "    %-*s    %s\n", width, k, synopsis)
		}
		fmt.Fprintf(&b, "\nRun \"%s <command> -help\" for command options.\n", name)
		return b.String()
	}
}
