// Package main is the entry point for the lunchbox CLI.
package main

import "github.com/lunchbox/lunchbox-cli/internal/cli"

func main() {
	cli.Execute()
}
