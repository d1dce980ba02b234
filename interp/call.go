package interp

import (
	"github.com/agoawk/goawk/internal/ast"
	"github.com/agoawk/goawk/internal/compiler"
)

// callUser invokes a user-defined AWK function (spec §4.2 "User
// functions"). The compiler's userCall() (internal/compiler/compile.go)
// pushes non-array scalar arguments onto the value stack in their
// original left-to-right order, then emits
//   CallUser, funcIdx, numArgs, numArrayArgs
// followed by numArrayArgs trailing (scope, index) operand pairs, one
// per array argument, in the order those arguments appeared in the
// call. fetch reads this instruction's own operands off the code
// stream that's already mid-dispatch in execute().
func (p *interp) callUser(fetch func() compiler.Opcode) (value, error) {
	funcIdx := int(fetch())
	numArgs := int(fetch())
	numArrayArgs := int(fetch())

	fn := p.functions[funcIdx]

	type arrayArg struct {
		scope ast.VarScope
		index int
	}
	arrayArgs := make([]arrayArg, numArrayArgs)
	for i := range arrayArgs {
		arrayArgs[i] = arrayArg{scope: ast.VarScope(fetch()), index: int(fetch())}
	}

	numScalarArgs := numArgs - numArrayArgs
	scalarArgs := make([]value, numScalarArgs)
	for i := numScalarArgs - 1; i >= 0; i-- {
		scalarArgs[i] = p.pop()
	}

	if p.callDepth >= maxCallDepth {
		return null(), newError("calling %q exceeds maximum call depth of %d", fn.Name, maxCallDepth)
	}

	newFrame := make([]value, len(fn.Params))
	newLocalArrays := make([]int, len(fn.Params))

	scalarPos, arrayPos := 0, 0
	for i := range fn.Params {
		switch {
		case fn.Arrays[i] && arrayPos < len(arrayArgs):
			// Caller passed this array argument by reference: resolve
			// it against the caller's own frame before we replace
			// p.frame/p.localArrays below.
			a := arrayArgs[arrayPos]
			arrayPos++
			newLocalArrays[i] = p.arrayIndex(a.scope, a.index)
		case fn.Arrays[i]:
			// Declared as an array parameter but the caller supplied
			// no corresponding argument: gets a fresh, call-local array
			// (spec §4.2 "extra formal parameters act as locals").
			p.arrays = append(p.arrays, make(map[string]value))
			newLocalArrays[i] = len(p.arrays) - 1
		case scalarPos < len(scalarArgs):
			newFrame[i] = scalarArgs[scalarPos]
			scalarPos++
		default:
			newFrame[i] = null()
		}
	}

	prevFrame := p.frame
	prevLocalArrays := p.localArrays
	p.frame = newFrame
	p.localArrays = append(p.localArrays, newLocalArrays)
	p.callDepth++

	err := p.execute(fn.Body)

	p.callDepth--
	p.localArrays = prevLocalArrays
	p.frame = prevFrame

	if err == errReturn {
		result := p.retVal
		p.retVal = null()
		return result, nil
	}
	if err != nil {
		return null(), err
	}
	return null(), nil
}
