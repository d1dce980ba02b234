package runtime

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatArg is one sprintf/printf argument, carrying both possible
// interpretations (string and number) since AWK decides which to use
// based on the conversion verb, not the argument's own flavor.
type FormatArg struct {
	Str string
	Num float64
}

// Sprintf implements AWK's sprintf()/printf() formatting (spec §4.7):
// %d %i %o %x %X %c %s %e %E %f %F %g %G %%, with flags, width,
// precision, and "*" for dynamic width/precision, matching gawk.
// sprintf(format, a...) and printf(format, a...) produce identical
// bytes for equal arguments (spec §8) because both go through this
// one function.
func Sprintf(format string, args []FormatArg) (string, error) {
	var b strings.Builder
	ai := 0
	next := func() (FormatArg, error) {
		if ai >= len(args) {
			return FormatArg{}, fmt.Errorf("not enough arguments for format %q", format)
		}
		a := args[ai]
		ai++
		return a, nil
	}
	nextInt := func() (int, error) {
		a, err := next()
		if err != nil {
			return 0, err
		}
		return int(a.Num), nil
	}

	i := 0
	n := len(format)
	for i < n {
		c := format[i]
		if c != '%' {
			b.WriteByte(c)
			i++
			continue
		}
		i++
		if i >= n {
			b.WriteByte('%')
			break
		}
		if format[i] == '%' {
			b.WriteByte('%')
			i++
			continue
		}

		spec := "%"
		// Flags
		for i < n && strings.ContainsRune("-+ 0#", rune(format[i])) {
			spec += string(format[i])
			i++
		}
		// Width
		if i < n && format[i] == '*' {
			w, err := nextInt()
			if err != nil {
				return "", err
			}
			spec += strconv.Itoa(w)
			i++
		} else {
			for i < n && format[i] >= '0' && format[i] <= '9' {
				spec += string(format[i])
				i++
			}
		}
		// Precision
		hasPrec := false
		if i < n && format[i] == '.' {
			hasPrec = true
			spec += "."
			i++
			if i < n && format[i] == '*' {
				p, err := nextInt()
				if err != nil {
					return "", err
				}
				spec += strconv.Itoa(p)
				i++
			} else {
				for i < n && format[i] >= '0' && format[i] <= '9' {
					spec += string(format[i])
					i++
				}
			}
		}
		_ = hasPrec
		if i >= n {
			b.WriteString(spec)
			break
		}
		verb := format[i]
		i++

		a, err := next()
		if err != nil {
			return "", err
		}

		switch verb {
		case 'd', 'i':
			fmt.Fprintf(&b, spec+"d", int64(a.Num))
		case 'o':
			fmt.Fprintf(&b, spec+"o", int64(a.Num))
		case 'x':
			fmt.Fprintf(&b, spec+"x", int64(a.Num))
		case 'X':
			fmt.Fprintf(&b, spec+"X", int64(a.Num))
		case 'u':
			fmt.Fprintf(&b, spec+"d", uint64(int64(a.Num)))
		case 'c':
			if a.Str != "" {
				fmt.Fprintf(&b, spec+"s", string([]rune(a.Str)[0]))
			} else {
				fmt.Fprintf(&b, spec+"c", rune(int64(a.Num)))
			}
		case 's':
			fmt.Fprintf(&b, spec+"s", a.Str)
		case 'e':
			fmt.Fprintf(&b, spec+"e", a.Num)
		case 'E':
			fmt.Fprintf(&b, spec+"E", a.Num)
		case 'f', 'F':
			fmt.Fprintf(&b, spec+"f", a.Num)
		case 'g':
			fmt.Fprintf(&b, spec+"g", a.Num)
		case 'G':
			fmt.Fprintf(&b, spec+"G", a.Num)
		default:
			// Unknown verb: print literally, matching AWK's "warn,
			// don't halt" policy for malformed printf specs (spec §7).
			b.WriteString(spec)
			b.WriteByte(verb)
			ai--
		}
	}
	return b.String(), nil
}
