package main

import (
	"os"

	"github.com/hashicorp-forge/hermes-wiki/internal/cmd"
)

func main() {
	os.Exit(cmd.Main(os.Args))
}
