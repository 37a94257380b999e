package main

import (
	"os"

	"cryptodash/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
