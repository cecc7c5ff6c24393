package main

import (
	"os"

	"github.com/schmitthub/testenv/internal/cli"
)

func main() {
	os.Exit(cli.Main())
}
