// Package main runs the anomalyctl administrative CLI.
package main

import (
	"os"

	"anomalycore/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
