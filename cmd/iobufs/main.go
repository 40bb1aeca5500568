package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/marmos91/iobufs/cmd/iobufs/commands"
)

// Build-time variables injected via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// A .env file is optional; IOBUFS_* variables may come from the shell.
	_ = godotenv.Load()

	commands.Version = version
	commands.Commit = commit
	commands.Date = date

	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
