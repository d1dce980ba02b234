package reader

import (
	"strings"
	"testing"

	"github.com/agoawk/goawk/internal/ast"
)

func scanAll(t *testing.T, s *RecordScanner) []string {
	t.Helper()
	var out []string
	for s.Scan() {
		out = append(out, s.Text())
	}
	if err := s.Err(); err != nil {
		t.Fatalf("scan error: %v", err)
	}
	return out
}

func TestSingleCharRS(t *testing.T) {
	s := NewRecordScanner(strings.NewReader("a\nb\nc"), "\n", nil)
	got := scanAll(t, s)
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("record %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCRLFNormalizedToLF(t *testing.T) {
	s := NewRecordScanner(strings.NewReader("a\r\nb\r\n"), "\n", nil)
	got := scanAll(t, s)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("got %v", got)
	}
}

func TestParagraphMode(t *testing.T) {
	s := NewRecordScanner(strings.NewReader("a\nb\n\nc\nd\n"), "", nil)
	got := scanAll(t, s)
	want := []string{"a\nb", "c\nd"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("record %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSplitFieldsWhitespace(t *testing.T) {
	got := SplitFields("  a  b c  ", ast.InputDefault, " ", nil)
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestSplitFieldsCSVEmbeddedQuote(t *testing.T) {
	got := SplitFields(`"a""b",z`, ast.InputCSV, ",", nil)
	want := []string{`a"b`, "z"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestSplitFieldsSingleCharLiteral(t *testing.T) {
	got := SplitFields("a:b:c", ast.InputDefault, ":", nil)
	want := []string{"a", "b", "c"}
	if len(got) != len(want) || got[1] != want[1] {
		t.Fatalf("got %v, want %v", got, want)
	}
}
