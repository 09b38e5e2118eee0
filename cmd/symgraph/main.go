package main

import (
	"os"

	"github.com/abramin/symgraph/cmd/symgraph/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
