package compiler

// Builtin is the fixed enum of built-in runtime functions (spec §4.7).
// CallBuiltin's first operand is a Builtin value rather than a string-pool
// index, so the interpreter and JIT dispatch on a dense switch instead of
// a name lookup on every call.
type Builtin int

const (
	BLength Builtin = iota
	BSubstr
	BIndex
	BSub
	BGsub
	BGensub
	BMatch
	BToLower
	BToUpper
	BHex
	BStrtonum
	BJoinFields
	BJoinCSV
	BJoinTSV
	BFromCSV
	BToCSV
	BInt
	BAbs
	BSin
	BCos
	BAtan2
	BExp
	BLog
	BSqrt
	BRand
	BSrand
	BMin
	BMax
	BAsort
	BSeq
	BArrJoin // _join
	BArrMin  // _min
	BArrMax  // _max
	BArrSum  // _sum
	BArrMean // _mean
	BUniq
	BIsArray
	BTypeof
	BSystem
	BClose
	BFflush
)

// builtinByName maps a builtin function's AWK name to its enum value.
// split and sprintf are handled by dedicated opcodes (CallSplit*,
// CallSprintf) since they need compile-time access to an array operand
// or variadic argument count respectively, so they are absent here.
var builtinByName = map[string]Builtin{
	"length": BLength, "substr": BSubstr, "index": BIndex,
	"sub": BSub, "gsub": BGsub, "gensub": BGensub, "match": BMatch,
	"tolower": BToLower, "toupper": BToUpper,
	"hex": BHex, "strtonum": BStrtonum,
	"join_fields": BJoinFields, "join_csv": BJoinCSV, "join_tsv": BJoinTSV,
	"from_csv": BFromCSV, "to_csv": BToCSV,
	"int": BInt, "abs": BAbs, "sin": BSin, "cos": BCos, "atan2": BAtan2,
	"exp": BExp, "log": BLog, "sqrt": BSqrt, "rand": BRand, "srand": BSrand,
	"min": BMin, "max": BMax,
	"asort": BAsort, "seq": BSeq,
	"_join": BArrJoin, "_min": BArrMin, "_max": BArrMax, "_sum": BArrSum, "_mean": BArrMean,
	"uniq": BUniq, "isarray": BIsArray, "typeof": BTypeof,
	"system": BSystem, "close": BClose, "fflush": BFflush,
}

var builtinNames = func() map[Builtin]string {
	m := make(map[Builtin]string, len(builtinByName))
	for name, b := range builtinByName {
		m[b] = name
	}
	return m
}()

func (b Builtin) String() string {
	if s, ok := builtinNames[b]; ok {
		return s
	}
	return "builtin(?)"
}

// LookupBuiltin returns the Builtin enum for name and true, or false if
// name isn't one of the fixed built-ins handled via CallBuiltin.
func LookupBuiltin(name string) (Builtin, bool) {
	b, ok := builtinByName[name]
	return b, ok
}
