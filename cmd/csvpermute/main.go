package main

import (
	"os"

	"github.com/oleg578/csvpermute/internal/cli"
)

func main() {
	os.Exit(cli.NewApp().Run(os.Args[1:]))
}
