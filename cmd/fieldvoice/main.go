// Package main is the entry point for the fieldvoice CLI.
//
// Usage:
//
//	fieldvoice [flags] <command> [subcommand] [args]
//
// Commands:
//
//	record   - Interactive voice capture session
//	jobs     - Manage diary jobs (list, create, show, status)
//	entries  - Browse diary entries (list, search)
//	debrief  - File a one-shot debrief against a job
//	config   - Configuration management (contexts)
//	version  - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/fieldvoice/fieldvoice/cmd/fieldvoice/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
