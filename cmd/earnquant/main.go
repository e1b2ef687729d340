package main

import (
	"os"

	"github.com/joonho/earnquant/cmd/earnquant/commands"
)

// main is the entry point for the earnquant CLI
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
