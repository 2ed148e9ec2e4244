// Command stepflow is the thin external-collaborator CLI around
// pkg/engine: it discovers workflows under a directory, runs them, and
// reports a non-zero exit status on any job failure (spec.md §6.6: "The
// engine is a library; a thin wrapper invokes run(). Exit code 0 on all
// jobs passing, non-zero if any job failed.").
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
