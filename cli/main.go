package main

import (
	"os"

	"github.com/streamql/streamql-go/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
