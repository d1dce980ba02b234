package parser

import "testing"

func TestParseSimpleProgram(t *testing.T) {
	prog, err := ParseProgram([]byte(`BEGIN { print 1+2 }`), nil)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(prog.Begin) != 1 {
		t.Fatalf("expected 1 BEGIN statement, got %d", len(prog.Begin))
	}
}

func TestParsePatternAction(t *testing.T) {
	prog, err := ParseProgram([]byte("{ print $2 }"), nil)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(prog.Actions) != 1 || len(prog.Actions[0].Pattern) != 0 {
		t.Fatalf("unexpected actions: %+v", prog.Actions)
	}
}

func TestParseRangePattern(t *testing.T) {
	prog, err := ParseProgram([]byte("NR==1,NR==2{print}"), nil)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(prog.Actions[0].Pattern) != 2 {
		t.Fatalf("expected range pattern with 2 exprs, got %d", len(prog.Actions[0].Pattern))
	}
}

func TestParseArrayVsScalar(t *testing.T) {
	prog, err := ParseProgram([]byte(`{a[$1]++} END{for(k in a)print k,a[k]}`), nil)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if _, ok := prog.Arrays["a"]; !ok {
		t.Errorf("expected 'a' to resolve as an array, got scalars=%v arrays=%v", prog.Scalars, prog.Arrays)
	}
}

func TestParseFunctionForwardReference(t *testing.T) {
	src := `BEGIN { print fib(5) }
function fib(n) { if (n < 2) return n; return fib(n-1) + fib(n-2) }`
	prog, err := ParseProgram([]byte(src), nil)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(prog.Functions) != 1 || prog.Functions[0].Name != "fib" {
		t.Fatalf("expected function fib, got %+v", prog.Functions)
	}
}

func TestAsortRecognizedAsArrayArg(t *testing.T) {
	prog, err := ParseProgram([]byte(`BEGIN{a[1]=3;a[2]=1;n=asort(a)}`), nil)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if _, ok := prog.Arrays["a"]; !ok {
		t.Errorf("expected asort's argument to resolve as array")
	}
}
