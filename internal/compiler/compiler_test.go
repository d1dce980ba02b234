package compiler

import (
	"strings"
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"

	"github.com/agoawk/goawk/parser"
)

func compileSrc(t *testing.T, src string) *CompiledProgram {
	t.Helper()
	prog, err := parser.ParseProgram([]byte(src), nil)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	compiled, err := Compile(prog, nil)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	return compiled
}

// TestDisassembleGolden snapshots the disassembly of a handful of small
// programs, one per opcode family exercised (spec §4.5 "typed
// instructions"), so a change to emission or to the disassembler's own
// formatting shows up as a reviewable diff rather than silently.
func TestDisassembleGolden(t *testing.T) {
	progs := map[string]string{
		"arithmetic": `BEGIN { x = 1 + 2 * 3; print x }`,
		"fields":     `{ $2 = "X"; print $0 }`,
		"array":      `{ a[$1]++ } END { for (k in a) print k, a[k] }`,
		"sub_gsub":   `BEGIN { s = "aXbXc"; n = gsub(/X/, "-", s); print n, s }`,
	}
	names := make([]string, 0, len(progs))
	for name := range progs {
		names = append(names, name)
	}
	for _, name := range names {
		name, src := name, progs[name]
		t.Run(name, func(t *testing.T) {
			compiled := compileSrc(t, src)
			var b strings.Builder
			if err := compiled.Compiled.Disassemble(&b); err != nil {
				t.Fatalf("disassemble error: %v", err)
			}
			snaps.MatchSnapshot(t, b.String())
		})
	}
}

func TestCompileMultiDimIndexDesugarsToSubsep(t *testing.T) {
	compiled := compileSrc(t, `BEGIN { a[1,2] = 3; x = (1,2) in a; print x }`)
	if compiled.Compiled.Begin == nil {
		t.Fatal("expected a non-empty BEGIN opcode stream")
	}
	var b strings.Builder
	if err := compiled.Compiled.Disassemble(&b); err != nil {
		t.Fatalf("disassemble error: %v", err)
	}
	if !strings.Contains(b.String(), "MultiIndex 2") {
		t.Fatalf("expected a MultiIndex 2 opcode joining the subscripts with SUBSEP, got:\n%s", b.String())
	}
}
