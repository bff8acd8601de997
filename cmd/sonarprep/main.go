// Package main is the entry point for the sonarprep CLI.
package main

import (
	"os"

	"github.com/JNZader/sonarprep/cmd/sonarprep/commands"
)

func main() {
	// Cobra has already printed the error
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
