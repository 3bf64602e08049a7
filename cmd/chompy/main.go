// Package main is the single-binary entrypoint for chompy.
package main

import "github.com/chompy-labs/chompy/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
