// Package main provides the stepcat command.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/leapstack-labs/stepcat/internal/cli"
)

func main() {
	// A missing .env is fine; STEPCAT_* may come from the real environment.
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
