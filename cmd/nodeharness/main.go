package main

import (
	"os"

	"github.com/chainops/nodeharness/cmd/nodeharness/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
