package runtime

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	lowerCaser = cases.Lower(language.Und)
	upperCaser = cases.Upper(language.Und)
)

// ToLower/ToUpper use golang.org/x/text's full Unicode case mapping
// rather than strings.ToLower/ToUpper. The casers are built for
// language.Und, so the mapping is language-neutral: locale-specific
// rules such as Turkish dotted/dotless i are not applied.
func ToLower(s string) string { return lowerCaser.String(s) }
func ToUpper(s string) string { return upperCaser.String(s) }

// Substr implements gawk's substr(s, start, [length]) semantics,
// including negative/out-of-range start and length (spec §8 "Boundary
// behavior"). start is 1-based.
func Substr(s string, start float64, length float64, hasLength bool) string {
	runes := []rune(s)
	n := len(runes)

	st := int(start)
	if float64(st) != start && start > 0 {
		st = int(start + 0.5)
	}

	var ln int
	if hasLength {
		ln = int(length)
		if float64(ln) != length && length > 0 {
			ln = int(length + 0.5)
		}
	} else {
		ln = n - st + 1
		if st < 1 {
			ln = n
		}
	}

	// Normalize: an AWK substr's window is [start, start+length), 1-based,
	// clipped to [1, n+1).
	end := st + ln
	if st < 1 {
		st = 1
	}
	if end > n+1 {
		end = n + 1
	}
	if end <= st || st > n {
		return ""
	}
	return string(runes[st-1 : end-1])
}

// Index returns the 1-based rune index of substr within s, or
// 0 if not found, matching AWK's index() built-in.
func Index(s, substr string) int {
	i := strings.Index(s, substr)
	if i < 0 {
		return 0
	}
	return utf8.RuneCountInString(s[:i]) + 1
}

// Hex parses a string as a hexadecimal integer, with or without a
// leading "0x"/"0X", an extended built-in beyond historical AWK (spec
// §4.7).
func Hex(s string) float64 {
	s = strings.TrimSpace(s)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")
	n, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0
	}
	v := float64(n)
	if neg {
		v = -v
	}
	return v
}

// Strtonum converts s to a number the way gawk's strtonum() does:
// recognizing leading hex (0x...) and octal (0...) forms in addition
// to decimal and float forms. In strict mode, a string that isn't a
// valid number of any of those forms is an error (spec §7 kind 3).
func Strtonum(s string, strict bool) (float64, error) {
	t := strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(t, "0x") || strings.HasPrefix(t, "0X") ||
		strings.HasPrefix(t, "-0x") || strings.HasPrefix(t, "-0X"):
		if strict {
			if _, err := strconv.ParseUint(strings.TrimPrefix(t, "-")[2:], 16, 64); err != nil {
				return 0, err
			}
		}
		return Hex(t), nil
	case len(t) > 1 && t[0] == '0' && isAllDigits(t[1:]):
		n, err := strconv.ParseInt(t, 8, 64)
		if err != nil {
			if strict {
				return 0, err
			}
			return 0, nil
		}
		return float64(n), nil
	default:
		n, err := strconv.ParseFloat(t, 64)
		if err != nil {
			if strict {
				return 0, err
			}
			return ParseNumPrefix(t), nil
		}
		return n, nil
	}
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '7' {
			return false
		}
	}
	return true
}

// ParseNumPrefix parses as much of a leading numeric prefix of s as
// AWK's "numeric string" coercion does (e.g. "3.14abc" -> 3.14, "abc"
// -> 0), used for lenient scalar-to-number coercion.
func ParseNumPrefix(s string) float64 {
	s = strings.TrimLeft(s, " \t\n")
	i := 0
	n := len(s)
	if i < n && (s[i] == '+' || s[i] == '-') {
		i++
	}
	start := i
	for i < n && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i < n && s[i] == '.' {
		i++
		for i < n && s[i] >= '0' && s[i] <= '9' {
			i++
		}
	}
	digitsEnd := i
	if i < n && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < n && (s[j] == '+' || s[j] == '-') {
			j++
		}
		expStart := j
		for j < n && s[j] >= '0' && s[j] <= '9' {
			j++
		}
		if j > expStart {
			digitsEnd = j
		}
	}
	if digitsEnd == start {
		return 0
	}
	f, err := strconv.ParseFloat(s[:digitsEnd], 64)
	if err != nil {
		return 0
	}
	return f
}

// LooksNumeric reports whether s, trimmed of surrounding whitespace, is
// entirely a valid AWK number (the "may-be-numeric-string" bit from
// spec §9).
func LooksNumeric(s string) bool {
	t := strings.TrimSpace(s)
	if t == "" {
		return false
	}
	_, err := strconv.ParseFloat(t, 64)
	if err == nil {
		return true
	}
	switch strings.ToLower(t) {
	case "+inf", "-inf", "inf", "+nan", "-nan", "nan":
		return true
	}
	return false
}

// JoinFields joins fields with sep, the implementation behind $0's
// reconstruction and the _join()/join_fields() built-ins.
func JoinFields(fields []string, sep string) string {
	return strings.Join(fields, sep)
}

// JoinCSV renders fields as one RFC-4180 CSV record (no trailing
// newline), quoting a field when it contains the separator, a quote,
// or a newline.
func JoinCSV(fields []string) string { return joinQuoted(fields, ',') }

// JoinTSV renders fields as one TSV record; TSV has no quoting
// mechanism (spec §6 "TSV forbids tabs and newlines inside fields
// unless quoted") so embedded tabs/newlines are replaced, matching the
// common TSV convention the reader's writer side follows.
func JoinTSV(fields []string) string {
	out := make([]string, len(fields))
	for i, f := range fields {
		r := strings.NewReplacer("\t", " ", "\n", " ", "\r", "")
		out[i] = r.Replace(f)
	}
	return strings.Join(out, "\t")
}

func joinQuoted(fields []string, sep byte) string {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(sep)
		}
		if strings.ContainsAny(f, string(sep)+"\"\n\r") {
			b.WriteByte('"')
			b.WriteString(strings.ReplaceAll(f, `"`, `""`))
			b.WriteByte('"')
		} else {
			b.WriteString(f)
		}
	}
	return b.String()
}

// SplitCSVLine parses one already-newline-stripped CSV record into its
// fields per RFC 4180 (embedded commas/quotes/newlines inside quotes).
// Used both by internal/reader's CSV input mode and by the from_csv()
// built-in.
func SplitCSVLine(line string) []string {
	var fields []string
	var cur strings.Builder
	inQuotes := false
	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case inQuotes:
			if c == '"' {
				if i+1 < len(runes) && runes[i+1] == '"' {
					cur.WriteRune('"')
					i++
				} else {
					inQuotes = false
				}
			} else {
				cur.WriteRune(c)
			}
		case c == '"':
			inQuotes = true
		case c == ',':
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(c)
		}
	}
	fields = append(fields, cur.String())
	return fields
}

// SplitTSVLine parses one TSV record: plain tab-delimited, no quoting.
func SplitTSVLine(line string) []string {
	return strings.Split(line, "\t")
}
