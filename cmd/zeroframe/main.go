// Package main is the entrypoint for the zeroframe command line.
package main

import (
	"fmt"
	"os"

	"github.com/morezero/zeroframe/internal/cli"
)

var version = "dev"

func main() {
	if err := cli.New(cli.Dial, cli.OpenStore, version).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "zeroframe: %v\n", err)
		os.Exit(1)
	}
}
