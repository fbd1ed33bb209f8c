// Package main is the entry point for the seisview CLI.
//
// Usage:
//
//	seisview [flags] <command> [args]
//
// Commands:
//
//	ingest     - Connect to a tile server and run the ingest pipeline
//	decode     - Validate a tile frame dump offline
//	version    - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/seisview/seisview/cmd/seisview/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
