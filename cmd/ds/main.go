// Package main provides the entry point for the ds CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/ds/cmd/ds/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
