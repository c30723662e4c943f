// Package main provides the entry point for zonemesh.
//
// One binary runs participant and controller runtimes and queries the
// operations endpoint of running nodes.
package main

import (
	"os"

	"github.com/yndnr/zonemesh-go/internal/cli/command"
)

func main() {
	app := command.App()

	if err := app.Run(os.Args); err != nil {
		command.PrintError("%v", err)
		os.Exit(1)
	}
}
