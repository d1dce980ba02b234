package runtime

import "sort"

// Cell is one array value, carrying both string and numeric forms plus
// which one is authoritative — mirrors the tri-state scalar value
// interp.value uses, duplicated here so this package stays
// independent of interp's internal representation (spec §4.7 "Array").
type Cell struct {
	Key   string
	Str   string
	Num   float64
	IsStr bool // true: compare/format via Str; false: via Num
}

// CompareCells orders two cells the way gawk's asort() does: numeric
// comparison when both are numeric, otherwise string comparison (spec
// §9 Open Questions notes the exact historical-AWK tie-break on mixed
// numeric/string values is underspecified; this matches gawk's
// behavior of comparing as strings whenever either side is a plain
// string).
func CompareCells(a, b Cell) int {
	if !a.IsStr && !b.IsStr {
		switch {
		case a.Num < b.Num:
			return -1
		case a.Num > b.Num:
			return 1
		default:
			return 0
		}
	}
	as, bs := a.Str, b.Str
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}

// Asort sorts cells by value ascending and returns them in that order;
// the caller re-keys the result to 1..n (spec §8 "asort(a) returns the
// new length and re-keys to 1..n").
func Asort(cells []Cell) []Cell {
	out := make([]Cell, len(cells))
	copy(out, cells)
	sort.SliceStable(out, func(i, j int) bool {
		return CompareCells(out[i], out[j]) < 0
	})
	return out
}

// Uniq returns cells with consecutive-by-sorted-value duplicates
// removed, sorted ascending; an extended built-in beyond historical
// AWK (spec §4.7).
func Uniq(cells []Cell) []Cell {
	sorted := Asort(cells)
	var out []Cell
	for i, c := range sorted {
		if i > 0 && CompareCells(c, sorted[i-1]) == 0 {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Seq returns {1, 2, ..., n} as array cells, an extended built-in that
// fills an array with an ascending numeric sequence.
func Seq(n int) []Cell {
	if n < 0 {
		n = 0
	}
	out := make([]Cell, n)
	for i := 0; i < n; i++ {
		out[i] = Cell{Key: itoa(i + 1), Num: float64(i + 1)}
	}
	return out
}

// ArrSum/ArrMean/ArrMin/ArrMax implement the extended numeric-array
// reductions (_sum, _mean, _min, _max) from spec §4.7.
func ArrSum(cells []Cell) float64 {
	var sum float64
	for _, c := range cells {
		sum += cellNum(c)
	}
	return sum
}

func ArrMean(cells []Cell) float64 {
	if len(cells) == 0 {
		return 0
	}
	return ArrSum(cells) / float64(len(cells))
}

func ArrMin(cells []Cell) float64 {
	if len(cells) == 0 {
		return 0
	}
	m := cellNum(cells[0])
	for _, c := range cells[1:] {
		if v := cellNum(c); v < m {
			m = v
		}
	}
	return m
}

func ArrMax(cells []Cell) float64 {
	if len(cells) == 0 {
		return 0
	}
	m := cellNum(cells[0])
	for _, c := range cells[1:] {
		if v := cellNum(c); v > m {
			m = v
		}
	}
	return m
}

func cellNum(c Cell) float64 {
	if c.IsStr {
		return ParseNumPrefix(c.Str)
	}
	return c.Num
}

// ArrJoin implements the _join() extended built-in: join an array's
// values (sorted by key numerically-then-string, matching for-in's
// "unspecified but stable" order made deterministic here for
// reproducible output) with sep.
func ArrJoin(cells []Cell, sep string) string {
	sorted := make([]Cell, len(cells))
	copy(sorted, cells)
	keyCell := func(k string) Cell {
		if LooksNumeric(k) {
			return Cell{Str: k, Num: ParseNumPrefix(k)}
		}
		return Cell{Str: k, IsStr: true}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return CompareCells(keyCell(sorted[i].Key), keyCell(sorted[j].Key)) < 0
	})
	strs := make([]string, len(sorted))
	for i, c := range sorted {
		if c.IsStr {
			strs[i] = c.Str
		} else {
			strs[i] = formatNum(c.Num)
		}
	}
	return JoinFields(strs, sep)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func formatNum(n float64) string {
	s, _ := Sprintf("%.6g", []FormatArg{{Num: n}})
	return s
}
