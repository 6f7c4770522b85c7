package main

import (
	"github.com/joho/godotenv"

	"car-landed-cost/internal/cli"
)

func main() {
	// Local development convenience; a missing .env is not an error.
	_ = godotenv.Load()

	cli.Execute()
}
