package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/iliyamo/league-registration/internal/cli"
)

func main() {
	_ = godotenv.Load()
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "regctl:", err)
		os.Exit(1)
	}
}
