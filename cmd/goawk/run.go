package main

import (
	"fmt"
	"io"
	"os"

	"github.com/agoawk/goawk/internal/ast"
	"github.com/agoawk/goawk/internal/compiler"
	"github.com/agoawk/goawk/internal/types"
	"github.com/agoawk/goawk/interp"
)

// runProgram wires a compiled program to the process's real stdin/ARGV
// and executes it, mirroring the teacher's own cmd/goawk main() (spec §6
// "Invocation surface").
func runProgram(compiled *compiler.CompiledProgram, out io.Writer, files []string, vars []string) (int, error) {
	config := &interp.Config{
		Stdin:        os.Stdin,
		Output:       out,
		Error:        os.Stderr,
		Argv0:        "goawk",
		Args:         files,
		Vars:         vars,
		NoExec:       rootFlags.noExec,
		NoFileWrites: rootFlags.noFiles,
		NoFileReads:  rootFlags.noFiles,
	}
	return interp.ExecProgram(compiled, config)
}

// dumpTypes prints the per-variable types internal/types inferred,
// named back through prog's Scalars/Arrays tables for readability.
func dumpTypes(w io.Writer, prog *ast.Program) error {
	inf, err := types.Infer(prog)
	if err != nil {
		return err
	}
	scalarNames := make(map[int]string, len(prog.Scalars))
	for name, idx := range prog.Scalars {
		scalarNames[idx] = name
	}
	arrayNames := make(map[int]string, len(prog.Arrays))
	for name, idx := range prog.Arrays {
		arrayNames[idx] = name
	}
	for idx, cell := range inf.Globals {
		fmt.Fprintf(w, "%s: %s\n", scalarNames[idx], cell.Type.Kind)
	}
	for idx, cell := range inf.Arrays {
		fmt.Fprintf(w, "%s: %s\n", arrayNames[idx], cell.Type.Kind)
	}
	for fn, locals := range inf.Locals {
		for idx, cell := range locals {
			fmt.Fprintf(w, "%s local#%d: %s\n", fn, idx, cell.Type.Kind)
		}
	}
	return nil
}
