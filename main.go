package main

import (
	"os"

	"github.com/temirov/git-global/cmd/cli"
)

// main runs git-global and exits with its status code.
func main() {
	os.Exit(cli.Execute())
}
