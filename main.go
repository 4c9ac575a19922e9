// Package main is the entry point for the rasterpass CLI.
package main

import "rasterpass.dev/pkg/rasterpass/cmd"

func main() {
	cmd.Execute()
}
