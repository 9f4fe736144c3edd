package main

import (
	"os"

	"github.com/arijanluiken/overlap/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
