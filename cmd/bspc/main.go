// Package main provides bspc, a CLI for inspecting and querying BSPC
// sparse matrix container files.
package main

import (
	"os"

	"github.com/drbh/bspc/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Stdin, os.Stdout, os.Stderr, os.Args))
}
