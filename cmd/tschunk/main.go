package main

import (
	"fmt"
	"os"

	"github.com/Consiliency/treesitter-chunker-sub001/cmd/tschunk/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
