// Package jit lowers a narrow, straight-line subset of compiled bytecode
// (spec §4.9 "JIT backend") to native machine code using
// github.com/twitchyliquid64/golang-asm, the same assembler library the
// retrieval pack uses for a WebAssembly JIT backend.
//
// Scope is deliberately narrow. golang-asm emits real, encodable
// instructions (the library itself rejects malformed operand
// combinations), but this package stops at producing those bytes: it
// does not map them into executable memory or call into them. Doing
// that safely means matching the host's exact ABI (argument registers,
// frame size, stack-growth checks) well enough that a mistake corrupts
// the calling goroutine's stack rather than erroring out — not
// something to ship without being able to run it. Compile exists to
// prove the lowering is realizable (every opcode sequence it's given
// either assembles or the caller gets a concrete error), and is left
// disconnected from interp's execution path for that reason; the
// interpreter never calls this package today.
package jit

import (
	"fmt"
	"runtime"

	goasm "github.com/twitchyliquid64/golang-asm"
	"github.com/twitchyliquid64/golang-asm/obj"
	"github.com/twitchyliquid64/golang-asm/obj/arm64"

	"github.com/agoawk/goawk/internal/compiler"
)

// Supported reports whether this package can lower code for the host
// architecture. Only arm64 is implemented today, following the one
// golang-asm integration the retrieval pack ships real (non-test)
// source for.
func Supported() bool {
	return runtime.GOARCH == "arm64"
}

// op is one opcode of the narrow subset Compile accepts: Add, Subtract,
// Multiply and Divide over a fixed pair of float64 registers (F0, F1),
// with the result left in F0; constant loads are not lowered. No branches, calls, field
// access, or string operations are lowered; CompiledProgram's normal
// opcode stream still runs everything else through the interpreter.
type op struct {
	code compiler.Opcode
}

// ErrUnsupported is returned by Compile when code contains anything
// outside the numeric-arithmetic subset this package lowers.
var ErrUnsupported = fmt.Errorf("jit: opcode sequence outside the supported numeric subset")

// Func is the machine code produced by Compile: raw instruction bytes
// for a two-float64-argument, one-float64-result function body, not
// mapped into executable memory.
type Func struct {
	Code []byte
}

// Compile lowers a straight-line sequence of Add/Sub/Mul/Div opcodes
// (as emitted for a binary arithmetic expression over two already-typed
// float64 locals) into an arm64 function body: arguments arrive in F0
// and F1, the result is left in F0, and the body ends in a bare return.
// Any opcode outside {Add, Sub, Mul, Div} makes Compile return
// ErrUnsupported so the caller falls back to the interpreter.
func Compile(code []compiler.Opcode) (*Func, error) {
	if !Supported() {
		return nil, fmt.Errorf("jit: unsupported architecture %s", runtime.GOARCH)
	}

	b, err := goasm.NewBuilder("arm64", 1024)
	if err != nil {
		return nil, fmt.Errorf("jit: %w", err)
	}

	for _, c := range code {
		inst := arithInstruction(c)
		if inst == 0 {
			return nil, ErrUnsupported
		}
		p := b.NewProg()
		p.As = inst
		p.From.Type = obj.TYPE_REG
		p.From.Reg = arm64.REG_F1
		p.Reg = arm64.REG_F0
		p.To.Type = obj.TYPE_REG
		p.To.Reg = arm64.REG_F0
		b.AddInstruction(p)
	}

	ret := b.NewProg()
	ret.As = obj.ARET
	b.AddInstruction(ret)

	return &Func{Code: b.Assemble()}, nil
}

// arithInstruction maps one compiler.Opcode to the golang-asm arm64
// double-precision instruction it lowers to, or 0 if c isn't one of the
// four binary arithmetic opcodes this package handles.
func arithInstruction(c compiler.Opcode) obj.As {
	switch c {
	case compiler.Add:
		return arm64.AFADDD
	case compiler.Subtract:
		return arm64.AFSUBD
	case compiler.Multiply:
		return arm64.AFMULD
	case compiler.Divide:
		return arm64.AFDIVD
	default:
		return 0
	}
}
