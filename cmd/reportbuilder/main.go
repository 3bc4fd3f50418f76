// Package main is the entry point for the reportbuilder CLI.
package main

import "github.com/bmd-analytics/reportbuilder/internal/cli"

func main() {
	cli.Execute()
}
