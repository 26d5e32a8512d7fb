// Package main is the entry point of the carbot service and CLI.
package main

import (
	"os"

	"github.com/itransmotors/carbot/cmd/carbot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
