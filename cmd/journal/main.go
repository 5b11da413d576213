package main

import (
	"os"

	"forex-journal/cmd/journal/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
