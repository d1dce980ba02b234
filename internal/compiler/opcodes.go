package compiler

import "fmt"

// Opcode is one bytecode instruction tag. The instruction stream is a
// flat []Opcode: the opcode itself followed inline by however many
// operand words that opcode needs (see disassembler.go for the
// per-opcode operand shapes). This mirrors the teacher's stack-based
// encoding; per spec §4.5 "typed instructions", the typing lives in
// which per-Kind register/stack each instruction reads and writes
// (internal/runtime, interp) rather than in one opcode per scalar
// type — see DESIGN.md for why a fully opcode-per-type IR was not
// pursued.
type Opcode int

const (
	Nop Opcode = iota

	// Literals and loads
	Num
	Str
	Regex        // bare /re/ used as a general expression: "$0 ~ /re/"
	RegexPattern // /re/ used as an explicit pattern operand (~, sub, split, ...): pushes the pattern itself
	FieldNum
	Global
	Local
	Special
	ArrayGlobal
	ArrayLocal

	// Membership test ('in')
	InGlobal
	InLocal

	// Stores
	AssignGlobal
	AssignLocal
	AssignSpecial
	AssignArrayGlobal
	AssignArrayLocal
	AssignField

	// Array/field deletion
	Delete
	DeleteAll

	// Increment/decrement (amount is +1 or -1, encoded as the operand)
	IncrField
	IncrGlobal
	IncrLocal
	IncrSpecial
	IncrArrayGlobal
	IncrArrayLocal

	// Augmented assignment (+=, -=, ...); operation encodes the lexer.Token
	AugAssignField
	AugAssignGlobal
	AugAssignLocal
	AugAssignSpecial
	AugAssignArrayGlobal
	AugAssignArrayLocal

	// Multi-dimensional index join (a[i,j] -> a[i SUBSEP j])
	MultiIndex

	// Stack/arithmetic/string ops (operate on the top-of-stack runtime
	// values; the VM's per-Kind representation supplies the typing)
	Add
	Subtract
	Multiply
	Divide
	Modulo
	Power
	UnaryMinus
	UnaryPlus
	Not
	Concat
	Equals
	NotEquals
	Less
	Greater
	LessOrEqual
	GreaterOrEqual
	Matches
	NotMatches
	Dupe
	Drop
	Swap

	// Explicit coercions (spec §4.5 "Coercion instruction")
	CoerceToFloat
	CoerceToInt
	CoerceToStr

	// Control flow
	Jump
	JumpFalse
	JumpTrue
	JumpEquals
	JumpNotEquals
	JumpLess
	JumpGreater
	JumpLessOrEqual
	JumpGreaterOrEqual
	ForInGlobal
	ForInLocal
	ForInSpecial

	// sub()/gsub(): unlike every other built-in these mutate their
	// target in place, so they get dedicated opcodes shaped like the
	// Incr*/Assign* family instead of going through CallBuiltin's
	// generic by-value argument passing (spec §4.7 "sub, gsub").
	SubGlobal
	SubLocal
	SubSpecial
	SubField
	SubArrayGlobal
	SubArrayLocal

	// Calls
	CallSplitGlobal
	CallSplitLocal
	CallSplitSepGlobal
	CallSplitSepLocal
	CallSprintf
	CallUser
	CallNative
	CallBuiltin

	// Stack frame setup
	Nulls

	// I/O
	Print
	Printf
	Getline
	GetlineField
	GetlineGlobal
	GetlineLocal
	GetlineSpecial
	GetlineArrayGlobal
	GetlineArrayLocal

	// Function epilogue
	Return
	ReturnNull

	// Record-loop control (spec §4.3): these two are terminators the
	// main record loop driver (interp) observes directly rather than
	// resolving to a jump target at emission time, since their target
	// is the loop driver itself, not another point in this function's
	// own code stream. break/continue resolve to ordinary Jump
	// patches against the enclosing loop's funcEmitter.loops stack.
	Next
	NextFile

	// Exit pops the program's exit status (or 0) and terminates
	// execution, the same way regardless of whether it's reached from
	// top-level code or from inside a user function body — unlike
	// Return/ReturnNull, which only unwind the current function call.
	Exit
)

var opcodeNames = map[Opcode]string{
	Nop: "Nop", Num: "Num", Str: "Str", Regex: "Regex", RegexPattern: "RegexPattern", FieldNum: "FieldNum",
	Global: "Global", Local: "Local", Special: "Special",
	ArrayGlobal: "ArrayGlobal", ArrayLocal: "ArrayLocal",
	InGlobal: "InGlobal", InLocal: "InLocal",
	AssignGlobal: "AssignGlobal", AssignLocal: "AssignLocal", AssignSpecial: "AssignSpecial",
	AssignArrayGlobal: "AssignArrayGlobal", AssignArrayLocal: "AssignArrayLocal", AssignField: "AssignField",
	Delete: "Delete", DeleteAll: "DeleteAll",
	IncrField: "IncrField", IncrGlobal: "IncrGlobal", IncrLocal: "IncrLocal",
	IncrSpecial: "IncrSpecial", IncrArrayGlobal: "IncrArrayGlobal", IncrArrayLocal: "IncrArrayLocal",
	AugAssignField: "AugAssignField", AugAssignGlobal: "AugAssignGlobal", AugAssignLocal: "AugAssignLocal",
	AugAssignSpecial: "AugAssignSpecial", AugAssignArrayGlobal: "AugAssignArrayGlobal", AugAssignArrayLocal: "AugAssignArrayLocal",
	MultiIndex: "MultiIndex",
	SubGlobal: "SubGlobal", SubLocal: "SubLocal", SubSpecial: "SubSpecial",
	SubField: "SubField", SubArrayGlobal: "SubArrayGlobal", SubArrayLocal: "SubArrayLocal",
	Add: "Add", Subtract: "Subtract", Multiply: "Multiply", Divide: "Divide", Modulo: "Modulo", Power: "Power",
	UnaryMinus: "UnaryMinus", UnaryPlus: "UnaryPlus", Not: "Not", Concat: "Concat",
	Equals: "Equals", NotEquals: "NotEquals", Less: "Less", Greater: "Greater",
	LessOrEqual: "LessOrEqual", GreaterOrEqual: "GreaterOrEqual",
	Matches: "Matches", NotMatches: "NotMatches",
	Dupe: "Dupe", Drop: "Drop", Swap: "Swap",
	CoerceToFloat: "CoerceToFloat", CoerceToInt: "CoerceToInt", CoerceToStr: "CoerceToStr",
	Jump: "Jump", JumpFalse: "JumpFalse", JumpTrue: "JumpTrue",
	JumpEquals: "JumpEquals", JumpNotEquals: "JumpNotEquals", JumpLess: "JumpLess",
	JumpGreater: "JumpGreater", JumpLessOrEqual: "JumpLessOrEqual", JumpGreaterOrEqual: "JumpGreaterOrEqual",
	ForInGlobal: "ForInGlobal", ForInLocal: "ForInLocal", ForInSpecial: "ForInSpecial",
	CallSplitGlobal: "CallSplitGlobal", CallSplitLocal: "CallSplitLocal",
	CallSplitSepGlobal: "CallSplitSepGlobal", CallSplitSepLocal: "CallSplitSepLocal",
	CallSprintf: "CallSprintf", CallUser: "CallUser", CallNative: "CallNative",
	CallBuiltin: "CallBuiltin",
	Nulls: "Nulls", Print: "Print", Printf: "Printf",
	Getline: "Getline", GetlineField: "GetlineField", GetlineGlobal: "GetlineGlobal",
	GetlineLocal: "GetlineLocal", GetlineSpecial: "GetlineSpecial",
	GetlineArrayGlobal: "GetlineArrayGlobal", GetlineArrayLocal: "GetlineArrayLocal",
	Return: "Return", ReturnNull: "ReturnNull",
	Next: "Next", NextFile: "NextFile", Exit: "Exit",
}

func (op Opcode) String() string {
	if s, ok := opcodeNames[op]; ok {
		return s
	}
	return fmt.Sprintf("Opcode(%d)", int(op))
}
