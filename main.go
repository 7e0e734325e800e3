package main

import (
	"os"

	"xsolla-tools/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
