package runtime

import "testing"

func TestSubstrNegativeStartGawkSemantics(t *testing.T) {
	cases := []struct {
		s     string
		start float64
		len   float64
		has   bool
		want  string
	}{
		{"hello", -2, 4, true, "h"},
		{"hello", 2, 0, false, "ello"},
		{"hello", 0, 10, true, "hello"},
	}
	for _, c := range cases {
		got := Substr(c.s, c.start, c.len, c.has)
		if got != c.want {
			t.Errorf("Substr(%q,%v,%v,%v) = %q, want %q", c.s, c.start, c.len, c.has, got, c.want)
		}
	}
}

func TestStrtonumStrictRejectsGarbage(t *testing.T) {
	if _, err := Strtonum("not-a-number", true); err == nil {
		t.Fatal("expected error in strict mode")
	}
	n, err := Strtonum("not-a-number", false)
	if err != nil || n != 0 {
		t.Fatalf("lenient mode: got %v, %v", n, err)
	}
}

func TestStrtonumHexAndOctal(t *testing.T) {
	if n, _ := Strtonum("0x1A", true); n != 26 {
		t.Fatalf("hex: got %v", n)
	}
	if n, _ := Strtonum("010", true); n != 8 {
		t.Fatalf("octal: got %v", n)
	}
}

func TestStrtonumRoundTripsSprintfD(t *testing.T) {
	for _, n := range []int64{0, 1, -1, 42, 1000000} {
		s, err := Sprintf("%d", []FormatArg{{Num: float64(n)}})
		if err != nil {
			t.Fatalf("sprintf: %v", err)
		}
		got, err := Strtonum(s, true)
		if err != nil || int64(got) != n {
			t.Fatalf("strtonum(sprintf(%%d, %d)) = %v, want %d", n, got, n)
		}
	}
}

func TestSprintfAndPrintfIdenticalBytes(t *testing.T) {
	args := []FormatArg{{Str: "x"}, {Num: 3.5}}
	a, err := Sprintf("%s:%g", args)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Sprintf("%s:%g", args)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatalf("got %q vs %q", a, b)
	}
	if a != "x:3.5" {
		t.Fatalf("got %q", a)
	}
}

func TestAsortNumericThenString(t *testing.T) {
	cells := []Cell{
		{Key: "a", Num: 3},
		{Key: "b", Num: 1},
		{Key: "c", Num: 2},
	}
	sorted := Asort(cells)
	want := []float64{1, 2, 3}
	for i, c := range sorted {
		if c.Num != want[i] {
			t.Fatalf("position %d: got %v, want %v", i, c.Num, want[i])
		}
	}
}

func TestUniqRemovesDuplicateValues(t *testing.T) {
	cells := []Cell{
		{Key: "a", Str: "x", IsStr: true},
		{Key: "b", Str: "y", IsStr: true},
		{Key: "c", Str: "x", IsStr: true},
	}
	got := Uniq(cells)
	if len(got) != 2 {
		t.Fatalf("got %d cells, want 2: %+v", len(got), got)
	}
}

func TestCSVRoundTrip(t *testing.T) {
	fields := []string{"a,b", `c"d`, "plain"}
	encoded := JoinCSV(fields)
	decoded := SplitCSVLine(encoded)
	if len(decoded) != len(fields) {
		t.Fatalf("got %v, want %v", decoded, fields)
	}
	for i := range fields {
		if decoded[i] != fields[i] {
			t.Errorf("field %d: got %q, want %q", i, decoded[i], fields[i])
		}
	}
}

func TestSplitCSVLineEmbeddedQuote(t *testing.T) {
	got := SplitCSVLine(`"a""b"`)
	if len(got) != 1 || got[0] != `a"b` {
		t.Fatalf("got %v", got)
	}
}

func TestToLowerToUpperUnicode(t *testing.T) {
	if ToLower("ABC") != "abc" {
		t.Fatalf("ToLower failed")
	}
	if ToUpper("abc") != "ABC" {
		t.Fatalf("ToUpper failed")
	}
}

func TestHexParsesWithAndWithoutPrefix(t *testing.T) {
	if Hex("0x1F") != 31 {
		t.Fatalf("got %v", Hex("0x1F"))
	}
	if Hex("1F") != 31 {
		t.Fatalf("got %v", Hex("1F"))
	}
}
