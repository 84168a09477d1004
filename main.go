package main

import (
	"os"

	"github.com/clinicops/chartquery/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
