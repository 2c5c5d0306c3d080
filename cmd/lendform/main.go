package main

import (
	"fmt"
	"os"

	"corefi/services/lendform/tui"
)

func main() {
	// The interactive form routes the log package to a discard sink, so report on stderr directly.
	if err := tui.Main(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "lendform: %v\n", err)
		os.Exit(1)
	}
}
