// Package main provides the entry point for the webtransport console host.
package main

import (
	"fmt"
	"os"

	"github.com/alkoleft/web-transport-addin/cmd/webtransport/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
