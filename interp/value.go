package interp

import (
	"math"
	goregexp "regexp"
	"strconv"

	"github.com/agoawk/goawk/internal/runtime"
)

// valueKind distinguishes AWK's three run-time scalar flavors: a pure
// number, a pure string, and a "numeric string" — text that came from
// input (a field, getline, split, ENVIRON, ARGV, or FS-applied
// splitting) and looks like a number, so it compares numerically
// against other numeric-ish values (spec §4.4 "numeric string duality").
type valueKind int

const (
	valueUninit valueKind = iota
	valueNum
	valueStr
	valueNumStr
)

// value is the dynamic runtime representation the bytecode VM operates
// on. It intentionally stays a small tagged union rather than one
// typed register file per internal/types.Kind — see DESIGN.md for why:
// in short, the bytecode stream is untyped at emission time (the same
// bag of opcodes runs whether a variable turned out Int, Float, or Str
// in inference), so the VM needs one uniform stack-cell representation
// regardless of what internal/types concluded.
type value struct {
	kind valueKind
	n    float64
	s    string
	// re is set only for a value produced by a literal /re/ pattern
	// operand (compiler.RegexPattern): it carries the pre-validated,
	// pre-compiled regex alongside its source text in s, so matching
	// doesn't need to recompile a literal pattern on every record.
	re *goregexp.Regexp
}

// regexVal wraps a compile-time-validated regex literal as a value
// usable anywhere a dynamic pattern string is accepted (spec §3
// "Regexes"): its string form is the pattern source, so it behaves
// like an ordinary string if it ever leaks into string context.
func regexVal(re *goregexp.Regexp) value {
	return value{kind: valueStr, s: re.String(), re: re}
}

var uninitialized = value{kind: valueUninit}

// null is the zero scalar value: "" when read as a string, 0 when read
// as a number, matching an unset variable or array element.
func null() value { return uninitialized }

func num(n float64) value { return value{kind: valueNum, n: n} }

func str(s string) value { return value{kind: valueStr, s: s} }

// numStr builds a "numeric string" value: compares and coerces
// numerically when it looks like a number, otherwise behaves as a
// plain string (spec §4.4). Used for field values, split() results,
// getline targets, and ENVIRON/ARGV entries.
func numStr(s string) value {
	if runtime.LooksNumeric(s) {
		return value{kind: valueNumStr, s: s, n: runtime.ParseNumPrefix(s)}
	}
	return value{kind: valueStr, s: s}
}

func boolValue(b bool) value {
	if b {
		return num(1)
	}
	return num(0)
}

// numeric reports whether v participates in numeric comparison: a pure
// number, an uninitialized value (numeric zero / empty string), or a
// numeric string (spec §4.4).
func (v value) numeric() bool {
	return v.kind == valueNum || v.kind == valueUninit || v.kind == valueNumStr
}

func (v value) num() float64 {
	switch v.kind {
	case valueNum, valueNumStr:
		return v.n
	case valueStr:
		return runtime.ParseNumPrefix(v.s)
	default:
		return 0
	}
}

// str renders v as text using convfmt for non-integral numbers, per
// AWK's CONVFMT coercion rule (spec §4.4). OFMT is used instead only by
// print's direct-to-output path (see (*interp).toOutputString).
func (v value) str(convfmt string) string {
	switch v.kind {
	case valueStr, valueNumStr:
		return v.s
	case valueNum:
		return formatNum(v.n, convfmt)
	default:
		return ""
	}
}

func formatNum(n float64, format string) string {
	if n == math.Trunc(n) && !math.IsInf(n, 0) && math.Abs(n) < 1e18 {
		return strconv.FormatInt(int64(n), 10)
	}
	s, err := runtime.Sprintf(format, []runtime.FormatArg{{Num: n}})
	if err != nil {
		return strconv.FormatFloat(n, 'g', 6, 64)
	}
	return s
}

func (v value) boolean() bool {
	if v.numeric() {
		return v.num() != 0
	}
	return v.s != ""
}

// compareValues implements AWK's comparison-operator rule: numeric
// comparison when both sides are numeric-ish, string comparison
// otherwise (spec §4.4 "Comparisons"). convfmt renders any pure-number
// operand on the string side of that comparison.
func compareValues(a, b value, convfmt string) int {
	if a.numeric() && b.numeric() {
		an, bn := a.num(), b.num()
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		default:
			return 0
		}
	}
	as, bs := a.str(convfmt), b.str(convfmt)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}

const defaultConvfmt = "%.6g"
