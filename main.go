package main

import (
	"os"

	"github.com/bindc-dev/bindc/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
