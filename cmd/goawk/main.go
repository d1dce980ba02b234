// Command goawk is the CLI front end for the core package: parse, compile,
// and execute an AWK program against its input files (spec §6 "External
// interfaces"). This package is an external collaborator of the language
// core, not the other way around: nothing in the core imports it.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps a top-level error to the process exit code spec §6
// requires: 1 for runtime failure, 2 for a compile/parse failure. A plain
// *exitCodeError carries a status already resolved by runRoot() (including a
// clamped "exit N" value), so it's returned as-is.
func exitCodeFor(err error) int {
	if ce, ok := err.(*exitCodeError); ok {
		return ce.code
	}
	if isCompileErr(err) {
		return 2
	}
	return 1
}

type exitCodeError struct {
	code int
}

func (e *exitCodeError) Error() string { return fmt.Sprintf("exit status %d", e.code) }
