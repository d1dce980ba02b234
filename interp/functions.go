package interp

import (
	"reflect"
	"strconv"
	"strings"
	goTime "time"
	"unicode/utf8"

	"github.com/agoawk/goawk/internal/ast"
	"github.com/agoawk/goawk/internal/compiler"
	iruntime "github.com/agoawk/goawk/internal/runtime"
)

// sprintf implements the sprintf() built-in and backs printf (spec
// §4.7): args[0] is the format string, the rest feed internal/runtime's
// Sprintf, which both sprintf() and printf() share so they produce
// identical bytes for equal arguments (spec §8).
func (p *interp) sprintf(args []value) (string, error) {
	if len(args) == 0 {
		return "", newError("sprintf: not enough arguments")
	}
	format := p.toString(args[0])
	fargs := make([]iruntime.FormatArg, len(args)-1)
	for i, a := range args[1:] {
		fargs[i] = iruntime.FormatArg{Str: p.toString(a), Num: a.num()}
	}
	return iruntime.Sprintf(format, fargs)
}

// splitInto implements split(s, arr, [fs]) (spec §4.7): arr is cleared
// and repopulated with 1-based numeric-string values. sep is nil for
// the two-argument form (falls back to the current FS rules).
func (p *interp) splitInto(s string, arr map[string]value, sep *value) (int, error) {
	for k := range arr {
		delete(arr, k)
	}
	var fields []string
	switch {
	case sep == nil:
		fields = p.defaultSplit(s)
	case sep.re != nil:
		fields = sep.re.Split(s, -1)
	default:
		fs := p.toString(*sep)
		switch {
		case fs == " ":
			fields = strings.Fields(s)
		case fs == "":
			fields = splitIntoChars(s)
		case utf8.RuneCountInString(fs) == 1:
			if s != "" {
				fields = strings.Split(s, fs)
			}
		default:
			re, err := p.regexCache.CompileRE2(fs)
			if err != nil {
				return 0, newError("invalid FS regex %q: %s", fs, err)
			}
			fields = re.Split(s, -1)
		}
	}
	for i, f := range fields {
		arr[strconv.Itoa(i+1)] = numStr(f)
	}
	return len(fields), nil
}

func (p *interp) defaultSplit(s string) []string {
	switch {
	case p.fieldSepRegex != nil:
		return p.fieldSepRegex.Split(s, -1)
	case p.fieldSep == " ":
		return strings.Fields(s)
	case p.fieldSep == "":
		return splitIntoChars(s)
	case len(p.fieldSep) == 1:
		if s == "" {
			return nil
		}
		return strings.Split(s, p.fieldSep)
	default:
		return strings.Fields(s)
	}
}

func splitIntoChars(s string) []string {
	runes := []rune(s)
	out := make([]string, len(runes))
	for i, r := range runes {
		out[i] = string(r)
	}
	return out
}

// subNewValue pops the replacement string and regex pattern pushed by
// the compiler's "sub"/"gsub" case (see internal/compiler/compile.go's
// subTarget) and computes the substituted string and count against old,
// the target's current value. Any index/key operand the target needed
// must already have been popped by the caller before this runs.
func (p *interp) subNewValue(isGsub bool, old string) (string, float64, error) {
	replV := p.pop()
	patV := p.pop()
	repl := p.toString(replV)
	re, err := p.regexCache.Compile(patV.s)
	if err != nil {
		return "", 0, newError("invalid regex %q: %s", patV.s, err)
	}
	if isGsub {
		newStr, n, err := iruntime.Gsub(re, repl, old)
		if err != nil {
			return "", 0, newError("gsub: %s", err)
		}
		return newStr, float64(n), nil
	}
	newStr, n, err := iruntime.Sub(re, repl, old)
	if err != nil {
		return "", 0, newError("sub: %s", err)
	}
	return newStr, float64(n), nil
}

// callBuiltin dispatches the fixed-enum built-ins (spec §4.7); fetch
// reads this CallBuiltin instruction's own operands from the code
// stream (builtin id, arg count, whether a trailing array operand
// follows), mirroring callUser/execGetline's fetch-closure style.
func (p *interp) callBuiltin(fetch func() compiler.Opcode) (value, error) {
	b := compiler.Builtin(fetch())
	argCount := int(fetch())
	hasArray := fetch() != 0
	var arr map[string]value
	if hasArray {
		scope := ast.VarScope(fetch())
		idx := int(fetch())
		arr = p.array(scope, idx)
	}
	args := make([]value, argCount)
	for i := argCount - 1; i >= 0; i-- {
		args[i] = p.pop()
	}

	switch b {
	case compiler.BLength:
		if arr != nil {
			return num(float64(len(arr))), nil
		}
		if len(args) == 0 {
			f0, err := p.getField(0)
			if err != nil {
				return null(), err
			}
			return num(float64(utf8.RuneCountInString(p.toString(f0)))), nil
		}
		return num(float64(utf8.RuneCountInString(p.toString(args[0])))), nil

	case compiler.BSubstr:
		s := p.toString(args[0])
		start := args[1].num()
		if len(args) >= 3 {
			return str(iruntime.Substr(s, start, args[2].num(), true)), nil
		}
		return str(iruntime.Substr(s, start, 0, false)), nil

	case compiler.BIndex:
		return num(float64(iruntime.Index(p.toString(args[0]), p.toString(args[1])))), nil

	case compiler.BGensub:
		return p.gensub(args)

	case compiler.BMatch:
		return p.match(args)

	case compiler.BToLower:
		return str(iruntime.ToLower(p.toString(args[0]))), nil
	case compiler.BToUpper:
		return str(iruntime.ToUpper(p.toString(args[0]))), nil

	case compiler.BHex:
		return num(iruntime.Hex(p.toString(args[0]))), nil
	case compiler.BStrtonum:
		n, err := iruntime.Strtonum(p.toString(args[0]), false)
		if err != nil {
			return null(), newError("strtonum: %s", err)
		}
		return num(n), nil

	case compiler.BJoinFields:
		sep := p.outputFieldSep
		if len(args) > 0 {
			sep = p.toString(args[0])
		}
		return str(iruntime.JoinFields(p.currentFields(), sep)), nil
	case compiler.BJoinCSV:
		return str(iruntime.JoinCSV(p.stringArgs(args))), nil
	case compiler.BJoinTSV:
		return str(iruntime.JoinTSV(p.stringArgs(args))), nil

	case compiler.BFromCSV:
		// Re-splits $0 as a CSV record (spec §6 "from_csv(to_csv(a)) ==
		// a" round-trip), or an explicit string argument if given,
		// replacing the current record's fields and returning NF.
		s := p.line
		if len(args) > 0 {
			s = p.toString(args[0])
		}
		fields := iruntime.SplitCSVLine(s)
		p.setLine(iruntime.JoinFields(fields, p.outputFieldSep), true)
		return num(float64(len(fields))), nil
	case compiler.BToCSV:
		if len(args) == 0 {
			return str(iruntime.JoinCSV(p.currentFields())), nil
		}
		return str(iruntime.JoinCSV(p.stringArgs(args))), nil

	case compiler.BInt:
		return num(iruntime.Int(args[0].num())), nil
	case compiler.BAbs:
		return num(iruntime.Abs(args[0].num())), nil
	case compiler.BSin:
		return num(iruntime.Sin(args[0].num())), nil
	case compiler.BCos:
		return num(iruntime.Cos(args[0].num())), nil
	case compiler.BAtan2:
		return num(iruntime.Atan2(args[0].num(), args[1].num())), nil
	case compiler.BExp:
		return num(iruntime.Exp(args[0].num())), nil
	case compiler.BLog:
		return num(iruntime.Log(args[0].num())), nil
	case compiler.BSqrt:
		return num(iruntime.Sqrt(args[0].num())), nil
	case compiler.BRand:
		return num(p.random.Float64()), nil
	case compiler.BSrand:
		var seed float64
		if len(args) > 0 {
			seed = args[0].num()
		} else {
			seed = float64(goTime.Now().UnixNano())
		}
		return num(p.random.Seed(seed)), nil
	case compiler.BMin:
		return p.minMax(args, false), nil
	case compiler.BMax:
		return p.minMax(args, true), nil

	case compiler.BAsort:
		return p.asort(arr)
	case compiler.BSeq:
		n := int(args[0].num())
		if arr == nil {
			return null(), newError("seq: requires an array argument")
		}
		cells := iruntime.Seq(n)
		p.loadCells(arr, cells)
		return num(float64(len(cells))), nil
	case compiler.BArrJoin:
		sep := " "
		if len(args) > 0 {
			sep = p.toString(args[0])
		}
		return str(iruntime.ArrJoin(p.cellsOf(arr), sep)), nil
	case compiler.BArrMin:
		return num(iruntime.ArrMin(p.cellsOf(arr))), nil
	case compiler.BArrMax:
		return num(iruntime.ArrMax(p.cellsOf(arr))), nil
	case compiler.BArrSum:
		return num(iruntime.ArrSum(p.cellsOf(arr))), nil
	case compiler.BArrMean:
		return num(iruntime.ArrMean(p.cellsOf(arr))), nil
	case compiler.BUniq:
		return p.uniq(arr)

	case compiler.BIsArray:
		return boolValue(false), nil // a scalar argument was pushed by value, so it can never be an array
	case compiler.BTypeof:
		return str(p.typeofValue(args, arr)), nil

	case compiler.BSystem:
		return p.system(p.toString(args[0]))
	case compiler.BClose:
		return num(float64(p.closeStream(p.toString(args[0])))), nil
	case compiler.BFflush:
		if len(args) == 0 {
			return num(float64(p.flushAll())), nil
		}
		return num(float64(p.flushOne(p.toString(args[0])))), nil

	default:
		return null(), newError("interp: unhandled builtin %s", b)
	}
}

// isArray built-in needs to see the raw argument expression rather than
// a dereferenced value; since the compiler only special-cases array
// operands for the fixed takesArrayArg set (length/asort/uniq/the
// array-reduction family), isarray(x) where x turns out to be an array
// name is handled at a higher level: the parser/compiler reject passing
// a true array where a scalar is expected, so by the time callBuiltin
// runs, an isarray() argument that type-checked as a scalar is, by
// construction, never an array. This keeps callBuiltin's contract
// uniform instead of special-casing one more built-in's operand shape.

// currentFields returns $1..$NF as plain strings, used by join_fields
// and the CSV round-trip built-ins.
func (p *interp) currentFields() []string {
	p.ensureFields()
	out := make([]string, p.numFields)
	for i := 0; i < p.numFields; i++ {
		if i < len(p.fields) {
			out[i] = p.fields[i]
		}
	}
	return out
}

func (p *interp) stringArgs(args []value) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = p.toString(a)
	}
	return out
}

func (p *interp) minMax(args []value, wantMax bool) value {
	if len(args) == 0 {
		return null()
	}
	best := args[0]
	for _, a := range args[1:] {
		cmp := compareValues(a, best, p.convertFormat)
		if (wantMax && cmp > 0) || (!wantMax && cmp < 0) {
			best = a
		}
	}
	return best
}

func (p *interp) cellsOf(arr map[string]value) []iruntime.Cell {
	cells := make([]iruntime.Cell, 0, len(arr))
	for k, v := range arr {
		cells = append(cells, p.cellOf(k, v))
	}
	return cells
}

func (p *interp) cellOf(key string, v value) iruntime.Cell {
	if v.numeric() {
		return iruntime.Cell{Key: key, Num: v.num()}
	}
	return iruntime.Cell{Key: key, Str: p.toString(v), IsStr: true}
}

func (p *interp) loadCells(arr map[string]value, cells []iruntime.Cell) {
	for k := range arr {
		delete(arr, k)
	}
	for _, c := range cells {
		if c.IsStr {
			arr[c.Key] = numStr(c.Str)
		} else {
			arr[c.Key] = num(c.Num)
		}
	}
}

func (p *interp) asort(arr map[string]value) (value, error) {
	if arr == nil {
		return null(), newError("asort: requires an array argument")
	}
	sorted := iruntime.Asort(p.cellsOf(arr))
	for k := range arr {
		delete(arr, k)
	}
	for i, c := range sorted {
		key := strconv.Itoa(i + 1)
		if c.IsStr {
			arr[key] = numStr(c.Str)
		} else {
			arr[key] = num(c.Num)
		}
	}
	return num(float64(len(sorted))), nil
}

func (p *interp) uniq(arr map[string]value) (value, error) {
	if arr == nil {
		return null(), newError("uniq: requires an array argument")
	}
	out := iruntime.Uniq(p.cellsOf(arr))
	p.loadCells(arr, out)
	return num(float64(len(out))), nil
}

func (p *interp) typeofValue(args []value, arr map[string]value) string {
	if arr != nil {
		return "array"
	}
	if len(args) == 0 {
		return "untyped"
	}
	switch args[0].kind {
	case valueUninit:
		return "untyped"
	case valueNum:
		return "number"
	case valueNumStr:
		return "strnum"
	default:
		return "string"
	}
}

func (p *interp) match(args []value) (value, error) {
	s := p.toString(args[0])
	pattern := args[1].s
	re, err := p.regexCache.Compile(pattern)
	if err != nil {
		return null(), newError("match: invalid regex %q: %s", pattern, err)
	}
	start, length, matched, err := iruntime.FindMatch(re, s)
	if err != nil {
		return null(), newError("match: %s", err)
	}
	if !matched {
		p.matchStart = 0
		p.matchLength = -1
		return num(0), nil
	}
	p.matchStart = start + 1
	p.matchLength = length
	return num(float64(p.matchStart)), nil
}

func (p *interp) gensub(args []value) (value, error) {
	s := p.toString(args[len(args)-1])
	if len(args) == 3 {
		f0, err := p.getField(0)
		if err != nil {
			return null(), err
		}
		s = p.toString(f0)
	}
	pattern := args[0].s
	repl := p.toString(args[1])
	how := p.toString(args[2])
	re, err := p.regexCache.Compile(pattern)
	if err != nil {
		return null(), newError("gensub: invalid regex %q: %s", pattern, err)
	}
	if how == "g" || how == "G" {
		newStr, _, err := iruntime.Gsub(re, repl, s)
		if err != nil {
			return null(), newError("gensub: %s", err)
		}
		return str(newStr), nil
	}
	newStr, _, err := iruntime.Sub(re, repl, s)
	if err != nil {
		return null(), newError("gensub: %s", err)
	}
	return str(newStr), nil
}

// nativeFunc wraps one Go function registered via Config.Funcs,
// pre-resolved by reflection so callNative doesn't re-inspect the
// function's type on every call (spec §6 "external collaborators").
type nativeFunc struct {
	fn        reflect.Value
	typ       reflect.Type
	hasResult bool
	hasError  bool
}

func (p *interp) initNativeFuncs(funcs map[string]interface{}) error {
	names := p.program.Compiled.NativeFuncNames()
	p.nativeFuncs = make([]nativeFunc, len(names))
	for i, name := range names {
		f, ok := funcs[name]
		if !ok {
			return newError("native function %q not provided in config.Funcs", name)
		}
		v := reflect.ValueOf(f)
		t := v.Type()
		if t.Kind() != reflect.Func {
			return newError("config.Funcs[%q] is not a function", name)
		}
		nf := nativeFunc{fn: v, typ: t}
		switch t.NumOut() {
		case 0:
		case 1:
			nf.hasResult = true
		case 2:
			nf.hasResult = true
			nf.hasError = true
		default:
			return newError("config.Funcs[%q] must return 0, 1, or 2 values", name)
		}
		p.nativeFuncs[i] = nf
	}
	return nil
}

func (p *interp) callNative(funcIdx int, args []value) (value, error) {
	nf := p.nativeFuncs[funcIdx]
	t := nf.typ
	numIn := t.NumIn()
	variadic := t.IsVariadic()

	maxArgs := len(args)
	if !variadic && numIn > maxArgs {
		maxArgs = numIn
	}

	in := make([]reflect.Value, 0, maxArgs)
	for i := 0; i < maxArgs; i++ {
		var paramType reflect.Type
		switch {
		case variadic && i >= numIn-1:
			paramType = t.In(numIn - 1).Elem()
		case i < numIn:
			paramType = t.In(i)
		default:
			return null(), newError("too many arguments to native function")
		}
		var av value
		if i < len(args) {
			av = args[i]
		}
		rv, err := p.toGoValue(av, paramType)
		if err != nil {
			return null(), err
		}
		in = append(in, rv)
	}

	out := nf.fn.Call(in)
	result := null()
	if nf.hasResult {
		result = p.fromGoValue(out[0])
	}
	if nf.hasError {
		errVal := out[len(out)-1]
		if !errVal.IsNil() {
			return null(), errVal.Interface().(error)
		}
	}
	return result, nil
}

func (p *interp) toGoValue(v value, t reflect.Type) (reflect.Value, error) {
	switch t.Kind() {
	case reflect.Bool:
		return reflect.ValueOf(v.boolean()).Convert(t), nil
	case reflect.String:
		return reflect.ValueOf(p.toString(v)).Convert(t), nil
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return reflect.ValueOf([]byte(p.toString(v))).Convert(t), nil
		}
		return reflect.Value{}, newError("unsupported native function parameter type %s", t)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return reflect.ValueOf(v.num()).Convert(t), nil
	case reflect.Float32, reflect.Float64:
		return reflect.ValueOf(v.num()).Convert(t), nil
	default:
		return reflect.Value{}, newError("unsupported native function parameter type %s", t)
	}
}

func (p *interp) fromGoValue(rv reflect.Value) value {
	switch rv.Kind() {
	case reflect.Bool:
		return boolValue(rv.Bool())
	case reflect.String:
		return str(rv.String())
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return str(string(rv.Bytes()))
		}
		return str("")
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return num(float64(rv.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return num(float64(rv.Uint()))
	case reflect.Float32, reflect.Float64:
		return num(rv.Float())
	default:
		return null()
	}
}
