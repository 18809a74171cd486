// Package main is the mallard command-line entry point.
package main

import (
	"os"

	"github.com/mallardhq/mallard/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
