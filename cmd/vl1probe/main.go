package main

import (
	"os"

	"github.com/opd-ai/vl1/cmd/vl1probe/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
