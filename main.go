package main

import (
	"fmt"
	"os"

	"github.com/salim-benhamadi/FLOW/cmd"
	"github.com/salim-benhamadi/FLOW/internal/conf"
)

// Populated at build time via -ldflags.
var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	settings.Version = version
	settings.BuildDate = buildDate

	if err := cmd.RootCommand(settings).Execute(); err != nil {
		os.Exit(1)
	}
}
