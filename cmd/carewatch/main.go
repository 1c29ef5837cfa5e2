package main

import (
	"os"

	"github.com/wonny/carewatch/cmd/carewatch/commands"
)

// main is the entry point for the carewatch CLI: go run ./cmd/carewatch [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
