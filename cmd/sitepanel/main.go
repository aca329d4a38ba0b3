// Package main is the sitepanel command-line interface.
package main

import (
	"fmt"
	"os"

	"github.com/sitepanel/sitepanel/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
