package runtime

import (
	"strings"

	"github.com/dlclark/regexp2"
)

// FindMatch wraps regexp2's match API with the simpler
// (start, length, matched) shape the rest of the runtime wants.
func FindMatch(re *regexp2.Regexp, s string) (start, length int, matched bool, err error) {
	m, err := re.FindStringMatch(s)
	if err != nil {
		return 0, 0, false, err
	}
	if m == nil {
		return 0, 0, false, nil
	}
	return m.Index, m.Length, true, nil
}

// Sub replaces the first match of re in s with repl (expanding "&" to
// the matched text and "\\&" to a literal "&", matching AWK's sub()).
// It reports the number of substitutions made (0 or 1).
func Sub(re *regexp2.Regexp, repl, s string) (string, int, error) {
	m, err := re.FindStringMatch(s)
	if err != nil || m == nil {
		return s, 0, err
	}
	expanded := expandAmpersand(repl, m.String())
	return s[:m.Index] + expanded + s[m.Index+m.Length:], 1, nil
}

// Gsub replaces every non-overlapping match of re in s with repl,
// matching AWK's gsub(). An empty match advances by one byte to avoid
// looping forever, mirroring gawk's behavior.
func Gsub(re *regexp2.Regexp, repl, s string) (string, int, error) {
	var b strings.Builder
	count := 0
	pos := 0
	for pos <= len(s) {
		m, err := re.FindStringMatchStartingAt(s, pos)
		if err != nil {
			return s, count, err
		}
		if m == nil {
			break
		}
		b.WriteString(s[pos:m.Index])
		b.WriteString(expandAmpersand(repl, m.String()))
		count++
		if m.Length == 0 {
			if m.Index < len(s) {
				b.WriteByte(s[m.Index])
			}
			pos = m.Index + 1
		} else {
			pos = m.Index + m.Length
		}
	}
	if pos < len(s) {
		b.WriteString(s[pos:])
	}
	return b.String(), count, nil
}

func expandAmpersand(repl, matched string) string {
	var b strings.Builder
	for i := 0; i < len(repl); i++ {
		switch repl[i] {
		case '&':
			b.WriteString(matched)
		case '\\':
			if i+1 < len(repl) && (repl[i+1] == '&' || repl[i+1] == '\\') {
				b.WriteByte(repl[i+1])
				i++
			} else {
				b.WriteByte('\\')
			}
		default:
			b.WriteByte(repl[i])
		}
	}
	return b.String()
}

// SplitRegex splits s on every match of re, the engine behind split()
// when FS/third-arg is a multi-character (regex) separator.
func SplitRegex(re *regexp2.Regexp, s string) ([]string, error) {
	if s == "" {
		return nil, nil
	}
	var fields []string
	pos := 0
	for pos <= len(s) {
		m, err := re.FindStringMatchStartingAt(s, pos)
		if err != nil {
			return nil, err
		}
		if m == nil || m.Index >= len(s) {
			break
		}
		if m.Length == 0 {
			// Avoid an infinite loop on a zero-width separator match;
			// treat as no more splits.
			break
		}
		fields = append(fields, s[pos:m.Index])
		pos = m.Index + m.Length
	}
	fields = append(fields, s[pos:])
	return fields, nil
}
