package main

import (
	"os"

	"github.com/theanmol-raj/qnagen/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
