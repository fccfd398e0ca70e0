package main

import (
	"os"

	"github.com/forgekeep/threadbridge/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
