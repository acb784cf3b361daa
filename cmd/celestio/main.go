// Package main provides the entry point for the celestio server.
package main

import (
	"fmt"
	"os"

	"github.com/celestio/celestio/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
