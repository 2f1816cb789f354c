package main

import (
	"os"

	"bookworm/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
