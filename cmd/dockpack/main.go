package main

import (
	"os"

	"github.com/dockpack/dockpack/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
