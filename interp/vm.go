package interp

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/agoawk/goawk/internal/ast"
	"github.com/agoawk/goawk/internal/compiler"
)

// errReturn signals a Return/ReturnNull opcode unwinding the innermost
// user function call (spec §4.2); CallUser catches it and never lets
// it escape past the call that owns it. Exit uses errExit instead (a
// block that simply runs off its end returns nil), so calling exit() from
// inside a function still terminates the whole program (spec §4.3).
var errReturn = errors.New("return")

// forInIterState is the live cursor for one for-in loop "instance": the
// key snapshot taken when the loop was entered and how far through it
// we are. It's keyed by the address of the ForIn* opcode itself, since
// the same instruction is re-executed once per iteration via the
// loop's back-edge jump (see internal/compiler/compile.go's ForInStmt
// case) — on natural exhaustion the entry is deleted, so falling back
// into this address afresh (e.g. an outer loop looping around again)
// starts a new snapshot rather than replaying the old one.
type forInIterState struct {
	keys []string
	pos  int
}

// push and pop manage the VM's operand stack (p.stack/p.sp); p.stack
// grows via append as needed rather than being pre-sized exactly, so a
// deeply nested expression never indexes out of bounds.
func (p *interp) push(v value) {
	if p.sp == len(p.stack) {
		p.stack = append(p.stack, v)
	} else {
		p.stack[p.sp] = v
	}
	p.sp++
}

func (p *interp) pop() value {
	p.sp--
	return p.stack[p.sp]
}

// execute runs one flat bytecode stream to completion: a lifecycle
// block, one pattern/action rule, or (recursively, via CallUser) one
// user function body. Control flow (if/while/for/for-in) is encoded as
// relative jumps within this same stream rather than as nested calls,
// so the only recursion into execute() happens at user function call
// boundaries (spec §4.5).
func (p *interp) execute(code []compiler.Opcode) error {
	var forInIters map[int]*forInIterState
	ip := 0
	fetch := func() compiler.Opcode {
		op := code[ip]
		ip++
		return op
	}

	for ip < len(code) {
		opAddr := ip
		op := fetch()

		switch op {
		case compiler.Nop:

		case compiler.Num:
			idx := fetch()
			p.push(num(p.nums[idx]))

		case compiler.Str:
			idx := fetch()
			p.push(str(p.strs[idx]))

		case compiler.Regex:
			idx := fetch()
			f0, err := p.getField(0)
			if err != nil {
				return err
			}
			p.push(boolValue(p.regexes[idx].MatchString(p.toString(f0))))

		case compiler.RegexPattern:
			idx := fetch()
			p.push(regexVal(p.regexes[idx]))

		case compiler.FieldNum:
			fetch() // reserved operand; the field index comes off the value stack
			idxVal := p.pop()
			fv, err := p.getField(int(idxVal.num()))
			if err != nil {
				return err
			}
			p.push(fv)

		case compiler.Global:
			idx := fetch()
			p.push(p.globals[idx])

		case compiler.Local:
			idx := fetch()
			p.push(p.frame[idx])

		case compiler.Special:
			idx := fetch()
			p.push(p.getSpecial(int(idx)))

		case compiler.ArrayGlobal, compiler.ArrayLocal:
			idx := int(fetch())
			key := p.toString(p.pop())
			arr := p.arrayFor(op == compiler.ArrayLocal, idx)
			v, ok := arr[key]
			if !ok {
				arr[key] = uninitialized
				v = uninitialized
			}
			p.push(v)

		case compiler.InGlobal, compiler.InLocal:
			idx := int(fetch())
			key := p.toString(p.pop())
			arr := p.arrayFor(op == compiler.InLocal, idx)
			_, ok := arr[key]
			p.push(boolValue(ok))

		case compiler.AssignGlobal:
			idx := fetch()
			v := p.pop()
			p.globals[idx] = v
			p.push(v)

		case compiler.AssignLocal:
			idx := fetch()
			v := p.pop()
			p.frame[idx] = v
			p.push(v)

		case compiler.AssignSpecial:
			idx := fetch()
			v := p.pop()
			if err := p.setSpecial(int(idx), v); err != nil {
				return err
			}
			p.push(v)

		case compiler.AssignArrayGlobal, compiler.AssignArrayLocal:
			idx := int(fetch())
			key := p.toString(p.pop())
			v := p.pop()
			p.arrayFor(op == compiler.AssignArrayLocal, idx)[key] = v
			p.push(v)

		case compiler.AssignField:
			idxVal := p.pop()
			v := p.pop()
			if err := p.setField(int(idxVal.num()), p.toString(v)); err != nil {
				return err
			}
			p.push(v)

		case compiler.Delete:
			scope := ast.VarScope(fetch())
			idx := int(fetch())
			key := p.toString(p.pop())
			delete(p.array(scope, idx), key)

		case compiler.DeleteAll:
			scope := ast.VarScope(fetch())
			idx := int(fetch())
			arr := p.array(scope, idx)
			for k := range arr {
				delete(arr, k)
			}

		case compiler.IncrField:
			amount := fetch()
			pre := fetch()
			idxVal := p.pop()
			fieldIdx := int(idxVal.num())
			old, err := p.getField(fieldIdx)
			if err != nil {
				return err
			}
			oldN := old.num()
			newN := oldN + float64(amount)
			if err := p.setField(fieldIdx, p.toString(num(newN))); err != nil {
				return err
			}
			p.pushIncrResult(oldN, newN, pre)

		case compiler.IncrGlobal:
			amount := fetch()
			idx := fetch()
			pre := fetch()
			oldN := p.globals[idx].num()
			newN := oldN + float64(amount)
			p.globals[idx] = num(newN)
			p.pushIncrResult(oldN, newN, pre)

		case compiler.IncrLocal:
			amount := fetch()
			idx := fetch()
			pre := fetch()
			oldN := p.frame[idx].num()
			newN := oldN + float64(amount)
			p.frame[idx] = num(newN)
			p.pushIncrResult(oldN, newN, pre)

		case compiler.IncrSpecial:
			amount := fetch()
			idx := fetch()
			pre := fetch()
			oldN := p.getSpecial(int(idx)).num()
			newN := oldN + float64(amount)
			if err := p.setSpecial(int(idx), num(newN)); err != nil {
				return err
			}
			p.pushIncrResult(oldN, newN, pre)

		case compiler.IncrArrayGlobal, compiler.IncrArrayLocal:
			amount := fetch()
			idx := int(fetch())
			pre := fetch()
			key := p.toString(p.pop())
			arr := p.arrayFor(op == compiler.IncrArrayLocal, idx)
			oldN := arr[key].num()
			newN := oldN + float64(amount)
			arr[key] = num(newN)
			p.pushIncrResult(oldN, newN, pre)

		case compiler.AugAssignField:
			operation := fetch()
			idxVal := p.pop()
			v := p.pop()
			fieldIdx := int(idxVal.num())
			old, err := p.getField(fieldIdx)
			if err != nil {
				return err
			}
			newV, err := p.applyAugOp(operation, old, v)
			if err != nil {
				return err
			}
			if err := p.setField(fieldIdx, p.toString(newV)); err != nil {
				return err
			}
			p.push(newV)

		case compiler.AugAssignGlobal:
			operation := fetch()
			idx := fetch()
			v := p.pop()
			newV, err := p.applyAugOp(operation, p.globals[idx], v)
			if err != nil {
				return err
			}
			p.globals[idx] = newV
			p.push(newV)

		case compiler.AugAssignLocal:
			operation := fetch()
			idx := fetch()
			v := p.pop()
			newV, err := p.applyAugOp(operation, p.frame[idx], v)
			if err != nil {
				return err
			}
			p.frame[idx] = newV
			p.push(newV)

		case compiler.AugAssignSpecial:
			operation := fetch()
			idx := fetch()
			v := p.pop()
			newV, err := p.applyAugOp(operation, p.getSpecial(int(idx)), v)
			if err != nil {
				return err
			}
			if err := p.setSpecial(int(idx), newV); err != nil {
				return err
			}
			p.push(newV)

		case compiler.AugAssignArrayGlobal, compiler.AugAssignArrayLocal:
			operation := fetch()
			idx := int(fetch())
			key := p.toString(p.pop())
			v := p.pop()
			arr := p.arrayFor(op == compiler.AugAssignArrayLocal, idx)
			newV, err := p.applyAugOp(operation, arr[key], v)
			if err != nil {
				return err
			}
			arr[key] = newV
			p.push(newV)

		case compiler.MultiIndex:
			n := int(fetch())
			parts := make([]string, n)
			for i := n - 1; i >= 0; i-- {
				parts[i] = p.toString(p.pop())
			}
			p.push(str(strings.Join(parts, p.subscriptSep)))

		case compiler.Add, compiler.Subtract, compiler.Multiply, compiler.Divide, compiler.Modulo, compiler.Power:
			b := p.pop()
			a := p.pop()
			r, err := p.arith(op, a.num(), b.num())
			if err != nil {
				return err
			}
			p.push(num(r))

		case compiler.UnaryMinus:
			v := p.pop()
			p.push(num(-v.num()))

		case compiler.UnaryPlus:
			v := p.pop()
			p.push(num(v.num()))

		case compiler.Not:
			v := p.pop()
			p.push(boolValue(!v.boolean()))

		case compiler.Concat:
			b := p.pop()
			a := p.pop()
			p.push(str(p.toString(a) + p.toString(b)))

		case compiler.Equals, compiler.NotEquals, compiler.Less, compiler.Greater,
			compiler.LessOrEqual, compiler.GreaterOrEqual:
			b := p.pop()
			a := p.pop()
			cmp := compareValues(a, b, p.convertFormat)
			p.push(boolValue(compareHolds(op, cmp)))

		case compiler.Matches, compiler.NotMatches:
			pattern := p.pop()
			s := p.pop()
			matched, err := p.regexMatches(pattern, p.toString(s))
			if err != nil {
				return err
			}
			if op == compiler.NotMatches {
				matched = !matched
			}
			p.push(boolValue(matched))

		case compiler.Dupe:
			v := p.pop()
			p.push(v)
			p.push(v)

		case compiler.Drop:
			p.pop()

		case compiler.Swap:
			b := p.pop()
			a := p.pop()
			p.push(b)
			p.push(a)

		case compiler.CoerceToFloat:
			v := p.pop()
			p.push(num(v.num()))

		case compiler.CoerceToInt:
			v := p.pop()
			p.push(num(math.Trunc(v.num())))

		case compiler.CoerceToStr:
			v := p.pop()
			p.push(str(p.toString(v)))

		case compiler.Jump:
			offset := fetch()
			ip += int(offset)

		case compiler.JumpFalse:
			offset := fetch()
			if !p.pop().boolean() {
				ip += int(offset)
			}

		case compiler.JumpTrue:
			offset := fetch()
			if p.pop().boolean() {
				ip += int(offset)
			}

		case compiler.JumpEquals, compiler.JumpNotEquals, compiler.JumpLess,
			compiler.JumpGreater, compiler.JumpLessOrEqual, compiler.JumpGreaterOrEqual:
			offset := fetch()
			b := p.pop()
			a := p.pop()
			cmp := compareValues(a, b, p.convertFormat)
			if compareHoldsForJump(op, cmp) {
				ip += int(offset)
			}

		case compiler.ForInGlobal, compiler.ForInLocal, compiler.ForInSpecial:
			varIdx := int(fetch())
			arrScope := ast.VarScope(fetch())
			arrIdx := int(fetch())
			offset := fetch()
			arr := p.array(arrScope, arrIdx)
			it, ok := forInIters[opAddr]
			if !ok {
				it = &forInIterState{keys: make([]string, 0, len(arr))}
				for k := range arr {
					it.keys = append(it.keys, k)
				}
				if forInIters == nil {
					forInIters = make(map[int]*forInIterState)
				}
				forInIters[opAddr] = it
			}
			if it.pos >= len(it.keys) {
				delete(forInIters, opAddr)
				ip += int(offset)
				continue
			}
			key := it.keys[it.pos]
			it.pos++
			kv := numStr(key)
			switch op {
			case compiler.ForInGlobal:
				p.globals[varIdx] = kv
			case compiler.ForInLocal:
				p.frame[varIdx] = kv
			case compiler.ForInSpecial:
				if err := p.setSpecial(varIdx, kv); err != nil {
					return err
				}
			}

		case compiler.CallSplitGlobal, compiler.CallSplitLocal:
			arrIdx := int(fetch())
			s := p.toString(p.pop())
			arr := p.arrayFor(op == compiler.CallSplitLocal, arrIdx)
			n, err := p.splitInto(s, arr, nil)
			if err != nil {
				return err
			}
			p.push(num(float64(n)))

		case compiler.CallSplitSepGlobal, compiler.CallSplitSepLocal:
			arrIdx := int(fetch())
			sep := p.pop()
			s := p.toString(p.pop())
			arr := p.arrayFor(op == compiler.CallSplitSepLocal, arrIdx)
			n, err := p.splitInto(s, arr, &sep)
			if err != nil {
				return err
			}
			p.push(num(float64(n)))

		case compiler.CallSprintf:
			numArgs := int(fetch())
			args := make([]value, numArgs)
			for i := numArgs - 1; i >= 0; i-- {
				args[i] = p.pop()
			}
			result, err := p.sprintf(args)
			if err != nil {
				return err
			}
			p.push(str(result))

		case compiler.CallUser:
			result, err := p.callUser(fetch)
			if err != nil {
				return err
			}
			p.push(result)

		case compiler.CallNative:
			funcIdx := int(fetch())
			numArgs := int(fetch())
			args := make([]value, numArgs)
			for i := numArgs - 1; i >= 0; i-- {
				args[i] = p.pop()
			}
			result, err := p.callNative(funcIdx, args)
			if err != nil {
				return err
			}
			p.push(result)

		case compiler.CallBuiltin:
			result, err := p.callBuiltin(fetch)
			if err != nil {
				return err
			}
			p.push(result)

		case compiler.SubGlobal, compiler.SubLocal, compiler.SubSpecial:
			isGsub := fetch() != 0
			idx := int(fetch())
			var old string
			switch op {
			case compiler.SubGlobal:
				old = p.toString(p.globals[idx])
			case compiler.SubLocal:
				old = p.toString(p.frame[idx])
			case compiler.SubSpecial:
				old = p.toString(p.getSpecial(idx))
			}
			newStr, n, err := p.subNewValue(isGsub, old)
			if err != nil {
				return err
			}
			nv := str(newStr)
			switch op {
			case compiler.SubGlobal:
				p.globals[idx] = nv
			case compiler.SubLocal:
				p.frame[idx] = nv
			case compiler.SubSpecial:
				if err := p.setSpecial(idx, nv); err != nil {
					return err
				}
			}
			p.push(num(n))

		case compiler.SubField:
			isGsub := fetch() != 0
			idxVal := p.pop()
			fieldIdx := int(idxVal.num())
			old, err := p.getField(fieldIdx)
			if err != nil {
				return err
			}
			newStr, n, err := p.subNewValue(isGsub, p.toString(old))
			if err != nil {
				return err
			}
			if err := p.setField(fieldIdx, newStr); err != nil {
				return err
			}
			p.push(num(n))

		case compiler.SubArrayGlobal, compiler.SubArrayLocal:
			isGsub := fetch() != 0
			idx := int(fetch())
			key := p.toString(p.pop())
			arr := p.arrayFor(op == compiler.SubArrayLocal, idx)
			old := p.toString(arr[key])
			newStr, n, err := p.subNewValue(isGsub, old)
			if err != nil {
				return err
			}
			arr[key] = str(newStr)
			p.push(num(n))

		case compiler.Nulls:
			n := int(fetch())
			for i := 0; i < n; i++ {
				p.push(null())
			}

		case compiler.Print:
			if err := p.execPrint(fetch); err != nil {
				return err
			}

		case compiler.Printf:
			if err := p.execPrintf(fetch); err != nil {
				return err
			}

		case compiler.Getline, compiler.GetlineField, compiler.GetlineGlobal,
			compiler.GetlineLocal, compiler.GetlineSpecial,
			compiler.GetlineArrayGlobal, compiler.GetlineArrayLocal:
			if err := p.execGetline(op, fetch); err != nil {
				return err
			}

		case compiler.Return:
			p.retVal = p.pop()
			return errReturn

		case compiler.ReturnNull:
			p.retVal = null()
			return errReturn

		case compiler.Next:
			return errNext

		case compiler.NextFile:
			return errNextFile

		case compiler.Exit:
			v := p.pop()
			p.exitStatus = int(v.num())
			return errExit

		default:
			return newError("interp: unhandled opcode %s", op)
		}
	}
	return nil
}

// arrayFor resolves an ArrayGlobal/ArrayLocal-style pair: local=true
// picks the current call frame's array at the given local index, else
// the global array table directly.
func (p *interp) arrayFor(local bool, idx int) map[string]value {
	if local {
		return p.localArray(idx)
	}
	return p.arrays[idx]
}

func (p *interp) pushIncrResult(oldN, newN float64, pre compiler.Opcode) {
	if pre != 0 {
		p.push(num(newN))
	} else {
		p.push(num(oldN))
	}
}

func (p *interp) arith(op compiler.Opcode, a, b float64) (float64, error) {
	switch op {
	case compiler.Add:
		return a + b, nil
	case compiler.Subtract:
		return a - b, nil
	case compiler.Multiply:
		return a * b, nil
	case compiler.Divide:
		if b == 0 {
			return 0, newError("division by zero")
		}
		return a / b, nil
	case compiler.Modulo:
		if b == 0 {
			return 0, newError("division by zero in %%")
		}
		return math.Mod(a, b), nil
	case compiler.Power:
		return math.Pow(a, b), nil
	default:
		return 0, newError("interp: unhandled arithmetic opcode %s", op)
	}
}

func compareHolds(op compiler.Opcode, cmp int) bool {
	switch op {
	case compiler.Equals:
		return cmp == 0
	case compiler.NotEquals:
		return cmp != 0
	case compiler.Less:
		return cmp < 0
	case compiler.Greater:
		return cmp > 0
	case compiler.LessOrEqual:
		return cmp <= 0
	case compiler.GreaterOrEqual:
		return cmp >= 0
	default:
		return false
	}
}

func compareHoldsForJump(op compiler.Opcode, cmp int) bool {
	switch op {
	case compiler.JumpEquals:
		return cmp == 0
	case compiler.JumpNotEquals:
		return cmp != 0
	case compiler.JumpLess:
		return cmp < 0
	case compiler.JumpGreater:
		return cmp > 0
	case compiler.JumpLessOrEqual:
		return cmp <= 0
	case compiler.JumpGreaterOrEqual:
		return cmp >= 0
	default:
		return false
	}
}

// applyAugOp implements +=, -=, *=, /=, %=, ^= against the prior value
// of the assignment target (spec §4.4).
func (p *interp) applyAugOp(operation compiler.Opcode, old, v value) (value, error) {
	var arithOp compiler.Opcode
	switch operation {
	case compiler.Opcode(addAssignToken()):
		arithOp = compiler.Add
	case compiler.Opcode(subAssignToken()):
		arithOp = compiler.Subtract
	case compiler.Opcode(mulAssignToken()):
		arithOp = compiler.Multiply
	case compiler.Opcode(divAssignToken()):
		arithOp = compiler.Divide
	case compiler.Opcode(modAssignToken()):
		arithOp = compiler.Modulo
	case compiler.Opcode(powAssignToken()):
		arithOp = compiler.Power
	default:
		return null(), newError("interp: unhandled augmented-assignment operator %d", operation)
	}
	r, err := p.arith(arithOp, old.num(), v.num())
	if err != nil {
		return null(), err
	}
	return num(r), nil
}

// regexMatches evaluates the ~ operator: a literal-pattern operand
// carries its precompiled stdlib regex (fast path), a dynamic one goes
// through the shared regexp2 cache (spec §3 "Regexes").
func (p *interp) regexMatches(pattern value, s string) (bool, error) {
	if pattern.re != nil {
		return pattern.re.MatchString(s), nil
	}
	re, err := p.regexCache.Compile(p.toString(pattern))
	if err != nil {
		return false, newError("invalid regex %q: %s", p.toString(pattern), err)
	}
	m, err := re.FindStringMatch(s)
	if err != nil {
		return false, err
	}
	return m != nil, nil
}

// strconv is imported for the split()/array built-ins in functions.go,
// re-exported here so callers of this file don't need a second import
// block; see functions.go for its uses.
var _ = strconv.Itoa
