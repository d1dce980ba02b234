package lexer

import "testing"

func scanAll(t *testing.T, src string) []Token {
	t.Helper()
	l := New([]byte(src))
	var toks []Token
	for {
		_, tok, _ := l.Scan()
		if tok == EOF {
			break
		}
		toks = append(toks, tok)
	}
	return toks
}

func TestRegexVsDivision(t *testing.T) {
	toks := scanAll(t, "x = /abc/ ; y = x / 2")
	want := []Token{NAME, ASSIGN, REGEX, SEMICOLON, NAME, ASSIGN, NAME, DIV, NUMBER}
	if len(toks) != len(want) {
		t.Fatalf("got %v, want %v", toks, want)
	}
	for i := range want {
		if toks[i] != want[i] {
			t.Errorf("token %d: got %v, want %v", i, toks[i], want[i])
		}
	}
}

func TestCallStart(t *testing.T) {
	toks := scanAll(t, "f(1) x (1)")
	if toks[0] != FUNC_NAME {
		t.Errorf("expected FUNC_NAME, got %v", toks[0])
	}
	if toks[4] != NAME {
		t.Errorf("expected NAME for space-separated paren, got %v", toks[4])
	}
}

func TestStringEscapes(t *testing.T) {
	l := New([]byte(`"a\tb\n"`))
	_, tok, lit := l.Scan()
	if tok != STRING {
		t.Fatalf("expected STRING, got %v", tok)
	}
	if lit != "a\tb\n" {
		t.Errorf("got %q", lit)
	}
}

func TestMetadataComments(t *testing.T) {
	l := New([]byte("# @desc does a thing\n# @var LIMIT\nBEGIN { print 1 }"))
	_, tok, _ := l.Scan()
	for tok == NEWLINE {
		_, tok, _ = l.Scan()
	}
	if tok != BEGIN {
		t.Fatalf("expected BEGIN after metadata comments, got %v", tok)
	}
	meta := l.Metadata()
	if len(meta) != 2 || meta[0].Tag != "desc" || meta[1].Tag != "var" {
		t.Errorf("unexpected metadata: %+v", meta)
	}
}
