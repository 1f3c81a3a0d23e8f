package main

import (
	"fmt"
	"os"

	_ "time/tzdata"

	"github.com/garage-labs/garage-api/cmd/garage-api/cli"
)

// Set via -ldflags at build time
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := cli.Execute(version, commit, date); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
