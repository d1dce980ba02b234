package interp

import (
	"bytes"
	"sort"
	"strings"
	"testing"

	"github.com/agoawk/goawk/internal/ast"
	"github.com/agoawk/goawk/internal/compiler"
	"github.com/agoawk/goawk/parser"
)

// run parses, compiles and executes src against input, returning
// stdout and the exit status (spec §8 "End-to-end scenarios").
func run(t *testing.T, src, input string) (string, int) {
	t.Helper()
	prog, err := parser.ParseProgram([]byte(src), nil)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	compiled, err := compiler.Compile(prog, nil)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	var out bytes.Buffer
	args := []string(nil)
	if input != "" {
		args = []string{"-"}
	}
	status, err := ExecProgram(compiled, &Config{
		Stdin:  strings.NewReader(input),
		Output: &out,
		Args:   args,
	})
	if err != nil {
		t.Fatalf("exec error: %v", err)
	}
	return out.String(), status
}

func TestBeginArithmeticOnly(t *testing.T) {
	out, status := run(t, `BEGIN{print 1+2}`, "")
	if out != "3\n" || status != 0 {
		t.Fatalf("got %q, %d", out, status)
	}
}

func TestPrintSecondField(t *testing.T) {
	out, _ := run(t, `{print $2}`, "a b c\nd e f\n")
	if out != "b\ne\n" {
		t.Fatalf("got %q", out)
	}
}

func TestRangePattern(t *testing.T) {
	out, _ := run(t, `NR==1,NR==2{print}`, "a\nb\nc\nd\n")
	if out != "a\nb\n" {
		t.Fatalf("got %q", out)
	}
}

func TestAsortReordersAscending(t *testing.T) {
	out, _ := run(t, `BEGIN{for(i=1;i<=3;i++)a[i]=4-i; n=asort(a); for(i=1;i<=n;i++)print a[i]}`, "")
	if out != "1\n2\n3\n" {
		t.Fatalf("got %q", out)
	}
}

func TestGroupByFieldMultiset(t *testing.T) {
	out, _ := run(t, `{a[$1]++} END{for(k in a)print k,a[k]}`, "x\ny\nx\n")
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	sort.Strings(lines)
	want := []string{"x 2", "y 1"}
	if len(lines) != len(want) || lines[0] != want[0] || lines[1] != want[1] {
		t.Fatalf("got %v, want multiset %v", lines, want)
	}
}

func TestFieldAssignmentRebuildsRecord(t *testing.T) {
	out, _ := run(t, `{$2="X"; print; print NF}`, "a b c\n")
	if out != "a X c\n3\n" {
		t.Fatalf("got %q", out)
	}
}

func TestNFAfterDollarZeroAssignment(t *testing.T) {
	out, _ := run(t, `{$0="p q"; print NF, $1, $2}`, "a b c\n")
	if out != "2 p q\n" {
		t.Fatalf("got %q", out)
	}
}

func TestSubstrNegativeStartGawkSemantics(t *testing.T) {
	out, _ := run(t, `BEGIN{print substr("hello", -2, 4)}`, "")
	if out != "h\n" {
		t.Fatalf("got %q", out)
	}
}

func TestBeginEndFireWithoutInputFile(t *testing.T) {
	out, _ := run(t, `BEGIN{print "b"} END{print "e"}`, "")
	if out != "b\ne\n" {
		t.Fatalf("got %q", out)
	}
}

func TestUserFunctionRecursion(t *testing.T) {
	out, _ := run(t, `function fact(n) { return n<=1 ? 1 : n*fact(n-1) } BEGIN{print fact(5)}`, "")
	if out != "120\n" {
		t.Fatalf("got %q", out)
	}
}

func TestExitStatusClamped(t *testing.T) {
	_, status := run(t, `BEGIN{exit 3}`, "")
	if status != 3 {
		t.Fatalf("got status %d", status)
	}
}

func TestSplitAndJoinRoundTrip(t *testing.T) {
	out, _ := run(t, `BEGIN{n=split("a:b:c", arr, ":"); s=arr[1] ":" arr[2] ":" arr[3]; print n, s}`, "")
	if out != "3 a:b:c\n" {
		t.Fatalf("got %q", out)
	}
}

func TestCSVInputModeFirstFieldKeepsEmbeddedComma(t *testing.T) {
	prog, err := parser.ParseProgram([]byte(`{print $1}`), &parser.Config{InputMode: ast.InputCSV})
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	compiled, err := compiler.Compile(prog, nil)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	var out bytes.Buffer
	status, err := ExecProgram(compiled, &Config{
		Stdin:  strings.NewReader("\"x,y\",z\n"),
		Output: &out,
		Args:   []string{"-"},
	})
	if err != nil {
		t.Fatalf("exec error: %v", err)
	}
	if out.String() != "x,y\n" || status != 0 {
		t.Fatalf("got %q, %d", out.String(), status)
	}
}

func TestGsubCountAndResult(t *testing.T) {
	out, _ := run(t, `BEGIN{s="aXbXc"; n=gsub(/X/,"-",s); print n, s}`, "")
	if out != "2 a-b-c\n" {
		t.Fatalf("got %q", out)
	}
}
