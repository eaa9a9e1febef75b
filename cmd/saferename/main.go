// Package main is the entry point for the saferename CLI.
package main

import (
	"os"

	"github.com/mamaar/saferename/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
