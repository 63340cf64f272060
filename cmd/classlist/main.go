// Package main is the entry point for the classlist CLI.
package main

import (
	"os"

	"github.com/jmylchreest/classlist/cmd/classlist/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
