package main

import (
	"os"

	"github.com/tree-sitter-grammars/tree-sitter-grammars/cmd"
)

func main() {
	os.Exit(cmd.Main())
}
