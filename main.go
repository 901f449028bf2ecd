// Package main is the entry point for the signfinder CLI.
package main

import "signfinder.dev/pkg/signfinder/cmd"

func main() {
	cmd.Execute()
}
