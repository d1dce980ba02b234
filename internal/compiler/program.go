package compiler

import (
	"regexp"

	"github.com/agoawk/goawk/internal/ast"
)

// Program is the bytecode container produced by Compile: one flat
// []Opcode stream per lifecycle block, one per pattern/action rule,
// and one per user function, sharing constant pools for numbers,
// strings, and compiled regexes (spec §4.5, §3 "Regexes").
type Program struct {
	Begin     []Opcode
	Prepare   []Opcode
	BeginFile []Opcode
	Actions   []Action
	EndFile   []Opcode
	End       []Opcode
	Functions []Function

	Nums    []float64
	Strs    []string
	Regexes []*regexp.Regexp

	scalarNames     []string
	arrayNames      []string
	nativeFuncNames []string
}

// NativeFuncNames returns the call-site ordering of native (Go)
// functions referenced via CallNative operands, so interp can line its
// Config.Funcs lookups up with the indices baked into the bytecode.
func (p *Program) NativeFuncNames() []string {
	return p.nativeFuncNames
}

// Action is one compiled pattern/action rule.
type Action struct {
	Pattern [][]Opcode // len 0, 1, or 2 (range)
	Body    []Opcode
}

// Function is one compiled user function body.
type Function struct {
	Name   string
	Params []string
	Arrays []bool
	Body   []Opcode
}

// CompiledProgram bundles the original AST (scalar/array name tables,
// the ast-level Actions slice used for the "any input at all?" fast
// path) with its compiled bytecode. This is the type interp.ExecProgram
// consumes.
type CompiledProgram struct {
	*ast.Program
	Compiled *Program
}
