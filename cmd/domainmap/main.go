package main

import (
	"github.com/joho/godotenv"

	"domainmap/internal/cli"
)

func main() {
	// API credentials may live in a local .env during development.
	_ = godotenv.Load()

	cli.Execute()
}
