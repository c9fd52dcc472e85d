package main

import (
	"os"

	"github.com/polarisnav/polaris/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
