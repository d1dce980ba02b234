package jit

import (
	"runtime"
	"testing"

	"github.com/agoawk/goawk/internal/compiler"
)

func TestSupported(t *testing.T) {
	got := Supported()
	want := runtime.GOARCH == "arm64"
	if got != want {
		t.Errorf("Supported() = %v, want %v for GOARCH=%s", got, want, runtime.GOARCH)
	}
}

func TestCompileRejectsUnsupportedOpcodes(t *testing.T) {
	if !Supported() {
		t.Skip("jit not supported on this architecture")
	}
	_, err := Compile([]compiler.Opcode{compiler.Add, compiler.CallBuiltin})
	if err != ErrUnsupported {
		t.Errorf("Compile with a CallBuiltin opcode = %v, want ErrUnsupported", err)
	}
}

func TestCompileArithmetic(t *testing.T) {
	if !Supported() {
		t.Skip("jit not supported on this architecture")
	}
	f, err := Compile([]compiler.Opcode{compiler.Add, compiler.Multiply, compiler.Subtract, compiler.Divide})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(f.Code) == 0 {
		t.Error("Compile produced no code")
	}
}
