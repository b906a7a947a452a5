package main

import (
	"fmt"
	"os"

	"github.com/flowsort/extsort/cmd/extsort-bench/parser"
)

func main() {
	if err := parser.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "extsort-bench: %v\n", err)
		os.Exit(1)
	}
}
