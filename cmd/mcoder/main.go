// ABOUTME: Main entry point for the mcoder CLI
// ABOUTME: Sets up the Cobra root command and maps failures to a non-zero exit
package main

import (
	"fmt"
	"os"

	"github.com/sisyph/mcoder/cmd/mcoder/commands"
)

// Version information (set by ldflags)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersion(version, commit, date)

	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(commands.ExitCode(err))
	}
}
