// Package main provides the viewsmith CLI.
package main

import (
	"os"

	"github.com/viewsmith/viewsmith/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
