package main

import (
	"os"

	"github.com/loglens/loglens/cmd/loglens/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
