package main

import (
	"os"

	"github.com/healthpal-ng/healthpal/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
