package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/rcliao/timealign/internal/cli"
)

func main() {
	// Optional; environment variables win over .env entries.
	_ = godotenv.Load()

	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
