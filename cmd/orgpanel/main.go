// cmd/orgpanel/main.go
//
// Entry point for the orgpanel CLI. Without a subcommand it runs the
// organization switcher panel against the configured host.

package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
