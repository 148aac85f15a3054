package main

import (
	"os"

	"github.com/jpatrickfarrell/jat-sub013/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
