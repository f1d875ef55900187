package main

import (
	"os"

	"github.com/runnerr0/marquee/internal/cli"
)

// version is set at build time via -ldflags="-X main.version=...".
var version = "dev"

func main() {
	if err := cli.Run(version); err != nil {
		os.Exit(1)
	}
}
