// Command exemplar synthesizes a data-extraction module from input/output
// example pairs: it infers transformation patterns, plans and generates
// Python code through an LLM, then statically validates and refines it.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
