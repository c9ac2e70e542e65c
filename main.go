// The main package for the handbook-ingest executable.
package main

import (
	"github.com/ragops/handbook-ingest/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
