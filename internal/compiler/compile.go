package compiler

import (
	"fmt"
	"regexp"

	"github.com/agoawk/goawk/internal/ast"
	"github.com/agoawk/goawk/lexer"
)

// CompileError is returned for type errors discovered during emission
// (arity mismatches, unknown built-ins, map/scalar confusion) — spec
// §7 kind 2, reported before execution begins.
type CompileError struct {
	Position ast.Pos
	Message  string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile error at %s: %s", e.Position, e.Message)
}

// Compile lowers an already-resolved *ast.Program (see parser.Resolve)
// into bytecode. nativeFuncNames is the ordered list of Go functions
// registered via interp.Config.Funcs, matched by name against
// ast.UserCallExpr nodes that don't correspond to an AWK "function".
func Compile(prog *ast.Program, nativeFuncNames []string) (_ *CompiledProgram, err error) {
	defer func() {
		if _, ok := err.(*CompileError); err != nil && !ok {
			err = &CompileError{Message: err.Error()}
		}
	}()
	c := &compiler{
		prog:        prog,
		numIndex:    map[float64]int{},
		strIndex:    map[string]int{},
		regexIndex:  map[string]int{},
		funcIndex:   map[string]int{},
		nativeIndex: map[string]int{},
	}
	for i, name := range nativeFuncNames {
		c.nativeIndex[name] = i
	}
	for i, fn := range prog.Functions {
		c.funcIndex[fn.Name] = i
	}

	out := &Program{nativeFuncNames: nativeFuncNames}
	out.scalarNames = namesByIndex(prog.Scalars)
	out.arrayNames = namesByIndex(prog.Arrays)

	out.Begin, err = c.compileStmts(prog.Begin, nil)
	if err != nil {
		return nil, err
	}
	out.Prepare, err = c.compileStmts(prog.Prepare, nil)
	if err != nil {
		return nil, err
	}
	out.BeginFile, err = c.compileStmts(prog.BeginFile, nil)
	if err != nil {
		return nil, err
	}
	out.EndFile, err = c.compileStmts(prog.EndFile, nil)
	if err != nil {
		return nil, err
	}
	out.End, err = c.compileStmts(prog.End, nil)
	if err != nil {
		return nil, err
	}
	for _, a := range prog.Actions {
		var action Action
		for _, p := range a.Pattern {
			code, err := c.compileExprStmt(p, nil)
			if err != nil {
				return nil, err
			}
			action.Pattern = append(action.Pattern, code)
		}
		body, err := c.compileStmts(a.Stmts, nil)
		if err != nil {
			return nil, err
		}
		action.Body = body
		out.Actions = append(out.Actions, action)
	}
	for _, fn := range prog.Functions {
		body, err := c.compileStmts(fn.Body, fn)
		if err != nil {
			return nil, err
		}
		out.Functions = append(out.Functions, Function{
			Name: fn.Name, Params: fn.Params, Arrays: fn.Arrays, Body: body,
		})
	}

	out.Nums = c.nums
	out.Strs = c.strs
	out.Regexes = c.regexes

	return &CompiledProgram{Program: prog, Compiled: out}, nil
}

func namesByIndex(m map[string]int) []string {
	names := make([]string, len(m))
	for name, idx := range m {
		if idx < len(names) {
			names[idx] = name
		}
	}
	return names
}

type compiler struct {
	prog *ast.Program

	nums       []float64
	numIndex   map[float64]int
	strs       []string
	strIndex   map[string]int
	regexes    []*regexp.Regexp
	regexIndex map[string]int

	funcIndex   map[string]int
	nativeIndex map[string]int
}

func (c *compiler) numConst(v float64) int {
	if i, ok := c.numIndex[v]; ok {
		return i
	}
	i := len(c.nums)
	c.nums = append(c.nums, v)
	c.numIndex[v] = i
	return i
}

func (c *compiler) strConst(s string) int {
	if i, ok := c.strIndex[s]; ok {
		return i
	}
	i := len(c.strs)
	c.strs = append(c.strs, s)
	c.strIndex[s] = i
	return i
}

func (c *compiler) regexConst(src string) (int, error) {
	if i, ok := c.regexIndex[src]; ok {
		return i, nil
	}
	re, err := regexp.Compile(src)
	if err != nil {
		return 0, fmt.Errorf("invalid regex %q: %w", src, err)
	}
	i := len(c.regexes)
	c.regexes = append(c.regexes, re)
	c.regexIndex[src] = i
	return i, nil
}

// funcEmitter accumulates one []Opcode stream (one lifecycle block,
// one pattern/action, or one function body) and owns the jump-offset
// patching for that stream only; constant pools are shared via the
// parent *compiler.
type funcEmitter struct {
	c    *compiler
	fn   *ast.Function // nil outside a user function body
	code []Opcode
	loops []*loopFrame
}

// loopFrame tracks the break/continue jump patches for one enclosing
// loop, so a nested break/continue can resolve to the right target
// even though the emitter walks the raw statement tree rather than a
// block-structured CFG (see internal/cfg's package doc for why).
type loopFrame struct {
	breaks    []int // jumpPlaceholder addresses to patch to "after the loop"
	continues []int // jumpPlaceholder addresses to patch to "the loop's continue point"
}

func (e *funcEmitter) pushLoop() *loopFrame {
	f := &loopFrame{}
	e.loops = append(e.loops, f)
	return f
}

func (e *funcEmitter) popLoop() *loopFrame {
	f := e.loops[len(e.loops)-1]
	e.loops = e.loops[:len(e.loops)-1]
	return f
}

func (c *compiler) compileStmts(stmts []ast.Stmt, fn *ast.Function) ([]Opcode, error) {
	e := &funcEmitter{c: c, fn: fn}
	for _, s := range stmts {
		if err := e.stmt(s); err != nil {
			return nil, err
		}
	}
	return e.code, nil
}

func (c *compiler) compileExprStmt(expr ast.Expr, fn *ast.Function) ([]Opcode, error) {
	e := &funcEmitter{c: c, fn: fn}
	if err := e.expr(expr); err != nil {
		return nil, err
	}
	return e.code, nil
}

func (e *funcEmitter) emit(op Opcode, operands ...Opcode) int {
	addr := len(e.code)
	e.code = append(e.code, op)
	e.code = append(e.code, operands...)
	return addr
}

// jumpPlaceholder emits a jump opcode with a to-be-patched offset and
// returns the address of the offset operand for patch() to fill in.
func (e *funcEmitter) jumpPlaceholder(op Opcode) int {
	e.code = append(e.code, op, 0)
	return len(e.code) - 1
}

// patch fills in the jump offset at operandAddr so it lands at the
// current end of the code stream (relative jumps, as disassembled by
// internal/compiler/disassembler.go's "d.ip+int(offset)"). The VM/
// disassembler read the offset operand before computing the target,
// so ip has already advanced one past operandAddr by then; the stored
// offset accounts for that lead.
func (e *funcEmitter) patch(operandAddr int) {
	e.code[operandAddr] = Opcode(len(e.code) - operandAddr - 1)
}

func (e *funcEmitter) stmt(s ast.Stmt) error {
	switch n := s.(type) {
	case *ast.ExprStmt:
		if err := e.expr(n.Expr); err != nil {
			return err
		}
		e.emit(Drop)
	case *ast.BlockStmt:
		for _, s := range n.Body {
			if err := e.stmt(s); err != nil {
				return err
			}
		}
	case *ast.PrintStmt:
		return e.printStmt(n.Args, n.Redirect, n.Dest, Print)
	case *ast.PrintfStmt:
		return e.printStmt(n.Args, n.Redirect, n.Dest, Printf)
	case *ast.IfStmt:
		if err := e.expr(n.Cond); err != nil {
			return err
		}
		elseJump := e.jumpPlaceholder(JumpFalse)
		for _, s := range n.Then {
			if err := e.stmt(s); err != nil {
				return err
			}
		}
		if len(n.Else) > 0 {
			endJump := e.jumpPlaceholder(Jump)
			e.patch(elseJump)
			for _, s := range n.Else {
				if err := e.stmt(s); err != nil {
					return err
				}
			}
			e.patch(endJump)
		} else {
			e.patch(elseJump)
		}
	case *ast.WhileStmt:
		head := len(e.code)
		if err := e.expr(n.Cond); err != nil {
			return err
		}
		exitJump := e.jumpPlaceholder(JumpFalse)
		e.pushLoop()
		for _, s := range n.Body {
			if err := e.stmt(s); err != nil {
				return err
			}
		}
		loop := e.popLoop()
		for _, a := range loop.continues {
			e.patch(a)
		}
		e.emit(Jump, Opcode(head-len(e.code)-2))
		e.patch(exitJump)
		for _, a := range loop.breaks {
			e.patch(a)
		}
	case *ast.DoWhileStmt:
		head := len(e.code)
		e.pushLoop()
		for _, s := range n.Body {
			if err := e.stmt(s); err != nil {
				return err
			}
		}
		loop := e.popLoop()
		for _, a := range loop.continues {
			e.patch(a)
		}
		if err := e.expr(n.Cond); err != nil {
			return err
		}
		e.emit(JumpTrue, Opcode(head-len(e.code)-2))
		for _, a := range loop.breaks {
			e.patch(a)
		}
	case *ast.ForStmt:
		if n.Pre != nil {
			if err := e.stmt(n.Pre); err != nil {
				return err
			}
		}
		head := len(e.code)
		var exitJump int
		hasCond := n.Cond != nil
		if hasCond {
			if err := e.expr(n.Cond); err != nil {
				return err
			}
			exitJump = e.jumpPlaceholder(JumpFalse)
		}
		e.pushLoop()
		for _, s := range n.Body {
			if err := e.stmt(s); err != nil {
				return err
			}
		}
		loop := e.popLoop()
		for _, a := range loop.continues {
			e.patch(a)
		}
		if n.Post != nil {
			if err := e.stmt(n.Post); err != nil {
				return err
			}
		}
		e.emit(Jump, Opcode(head-len(e.code)-2))
		if hasCond {
			e.patch(exitJump)
		}
		for _, a := range loop.breaks {
			e.patch(a)
		}
	case *ast.ForInStmt:
		op := ForInGlobal
		if n.Var.Scope == ast.ScopeLocal {
			op = ForInLocal
		} else if n.Var.Scope == ast.ScopeSpecial {
			op = ForInSpecial
		}
		loopStart := e.emit(op, Opcode(n.Var.Index), Opcode(n.Array.Scope), Opcode(n.Array.Index), 0)
		offsetAddr := loopStart + 4
		e.pushLoop()
		for _, s := range n.Body {
			if err := e.stmt(s); err != nil {
				return err
			}
		}
		loop := e.popLoop()
		for _, a := range loop.continues {
			e.patch(a)
		}
		e.emit(Jump, Opcode(loopStart-len(e.code)-2))
		e.patch(offsetAddr)
		for _, a := range loop.breaks {
			e.patch(a)
		}
	case *ast.BreakStmt:
		if len(e.loops) == 0 {
			return fmt.Errorf("compiler: break used outside a loop")
		}
		addr := e.jumpPlaceholder(Jump)
		loop := e.loops[len(e.loops)-1]
		loop.breaks = append(loop.breaks, addr)
	case *ast.ContinueStmt:
		if len(e.loops) == 0 {
			return fmt.Errorf("compiler: continue used outside a loop")
		}
		addr := e.jumpPlaceholder(Jump)
		loop := e.loops[len(e.loops)-1]
		loop.continues = append(loop.continues, addr)
	case *ast.NextStmt:
		e.emit(Next)
	case *ast.NextFileStmt:
		e.emit(NextFile)
	case *ast.ExitStmt:
		if n.Status != nil {
			if err := e.expr(n.Status); err != nil {
				return err
			}
		} else {
			e.emit(Num, Opcode(e.c.numConst(0)))
		}
		e.emit(Exit)
	case *ast.ReturnStmt:
		if n.Value != nil {
			if err := e.expr(n.Value); err != nil {
				return err
			}
			e.emit(Return)
		} else {
			e.emit(ReturnNull)
		}
	case *ast.DeleteStmt:
		for _, idx := range n.Index {
			if err := e.expr(idx); err != nil {
				return err
			}
		}
		if len(n.Index) > 1 {
			e.emit(MultiIndex, Opcode(len(n.Index)))
		}
		if len(n.Index) == 0 {
			e.emit(DeleteAll, Opcode(n.Array.Scope), Opcode(n.Array.Index))
		} else {
			e.emit(Delete, Opcode(n.Array.Scope), Opcode(n.Array.Index))
		}
	default:
		return fmt.Errorf("compiler: unhandled statement %T", s)
	}
	return nil
}

func (e *funcEmitter) printStmt(args []ast.Expr, redirect lexer.Token, dest ast.Expr, op Opcode) error {
	for _, a := range args {
		if err := e.expr(a); err != nil {
			return err
		}
	}
	if dest != nil {
		if err := e.expr(dest); err != nil {
			return err
		}
	}
	e.emit(op, Opcode(len(args)), Opcode(redirect))
	return nil
}

func (e *funcEmitter) expr(expr ast.Expr) error {
	switch n := expr.(type) {
	case *ast.NumExpr:
		e.emit(Num, Opcode(e.c.numConst(n.Value)))
	case *ast.StrExpr:
		e.emit(Str, Opcode(e.c.strConst(n.Value)))
	case *ast.RegExpr:
		idx, err := e.c.regexConst(n.Regex)
		if err != nil {
			return err
		}
		e.emit(Regex, Opcode(idx))
	case *ast.VarExpr:
		switch n.Scope {
		case ast.ScopeGlobal:
			e.emit(Global, Opcode(n.Index))
		case ast.ScopeLocal:
			e.emit(Local, Opcode(n.Index))
		case ast.ScopeSpecial:
			e.emit(Special, Opcode(n.Index))
		}
	case *ast.FieldExpr:
		if err := e.expr(n.Index); err != nil {
			return err
		}
		e.emit(FieldNum, 0)
	case *ast.IndexExpr:
		for _, idx := range n.Index {
			if err := e.expr(idx); err != nil {
				return err
			}
		}
		if len(n.Index) > 1 {
			e.emit(MultiIndex, Opcode(len(n.Index)))
		}
		if n.Array.Scope == ast.ScopeLocal {
			e.emit(ArrayLocal, Opcode(n.Array.Index))
		} else {
			e.emit(ArrayGlobal, Opcode(n.Array.Index))
		}
	case *ast.AssignExpr:
		return e.assign(n)
	case *ast.BinaryExpr:
		return e.binary(n)
	case *ast.UnaryExpr:
		if err := e.expr(n.Operand); err != nil {
			return err
		}
		switch n.Op {
		case lexer.SUB:
			e.emit(UnaryMinus)
		case lexer.ADD:
			e.emit(UnaryPlus)
		case lexer.NOT:
			e.emit(Not)
		}
	case *ast.IncrExpr:
		return e.incrDecr(n)
	case *ast.CondExpr:
		if err := e.expr(n.Cond); err != nil {
			return err
		}
		elseJump := e.jumpPlaceholder(JumpFalse)
		if err := e.expr(n.True); err != nil {
			return err
		}
		endJump := e.jumpPlaceholder(Jump)
		e.patch(elseJump)
		if err := e.expr(n.False); err != nil {
			return err
		}
		e.patch(endJump)
	case *ast.MatchExpr:
		if err := e.expr(n.Left); err != nil {
			return err
		}
		if err := e.regexOperand(n.Right); err != nil {
			return err
		}
		if n.Not {
			e.emit(NotMatches)
		} else {
			e.emit(Matches)
		}
	case *ast.InExpr:
		for _, idx := range n.Index {
			if err := e.expr(idx); err != nil {
				return err
			}
		}
		if len(n.Index) > 1 {
			e.emit(MultiIndex, Opcode(len(n.Index)))
		}
		if n.Array.Scope == ast.ScopeLocal {
			e.emit(InLocal, Opcode(n.Array.Index))
		} else {
			e.emit(InGlobal, Opcode(n.Array.Index))
		}
	case *ast.CallExpr:
		return e.call(n)
	case *ast.UserCallExpr:
		return e.userCall(n)
	case *ast.GetlineExpr:
		return e.getline(n)
	default:
		return fmt.Errorf("compiler: unhandled expression %T", expr)
	}
	return nil
}

func (e *funcEmitter) incrDecr(n *ast.IncrExpr) error {
	amount := Opcode(1)
	if n.Op == lexer.DECR {
		amount = Opcode(-1)
	}
	pre := Opcode(0)
	if n.Pre {
		pre = Opcode(1)
	}
	switch t := n.Operand.(type) {
	case *ast.VarExpr:
		switch t.Scope {
		case ast.ScopeGlobal:
			e.emit(IncrGlobal, amount, Opcode(t.Index), pre)
		case ast.ScopeLocal:
			e.emit(IncrLocal, amount, Opcode(t.Index), pre)
		case ast.ScopeSpecial:
			e.emit(IncrSpecial, amount, Opcode(t.Index), pre)
		}
	case *ast.FieldExpr:
		if err := e.expr(t.Index); err != nil {
			return err
		}
		e.emit(IncrField, amount, pre)
	case *ast.IndexExpr:
		for _, idx := range t.Index {
			if err := e.expr(idx); err != nil {
				return err
			}
		}
		if len(t.Index) > 1 {
			e.emit(MultiIndex, Opcode(len(t.Index)))
		}
		if t.Array.Scope == ast.ScopeLocal {
			e.emit(IncrArrayLocal, amount, Opcode(t.Array.Index), pre)
		} else {
			e.emit(IncrArrayGlobal, amount, Opcode(t.Array.Index), pre)
		}
	default:
		return fmt.Errorf("compiler: invalid increment/decrement target %T", n.Operand)
	}
	return nil
}

func (e *funcEmitter) assign(n *ast.AssignExpr) error {
	if n.Op != lexer.ASSIGN {
		return e.augAssign(n)
	}
	if err := e.expr(n.Value); err != nil {
		return err
	}
	switch t := n.Target.(type) {
	case *ast.VarExpr:
		switch t.Scope {
		case ast.ScopeGlobal:
			e.emit(AssignGlobal, Opcode(t.Index))
		case ast.ScopeLocal:
			e.emit(AssignLocal, Opcode(t.Index))
		case ast.ScopeSpecial:
			e.emit(AssignSpecial, Opcode(t.Index))
		}
	case *ast.FieldExpr:
		if err := e.expr(t.Index); err != nil {
			return err
		}
		e.emit(AssignField)
	case *ast.IndexExpr:
		for _, idx := range t.Index {
			if err := e.expr(idx); err != nil {
				return err
			}
		}
		if len(t.Index) > 1 {
			e.emit(MultiIndex, Opcode(len(t.Index)))
		}
		if t.Array.Scope == ast.ScopeLocal {
			e.emit(AssignArrayLocal, Opcode(t.Array.Index))
		} else {
			e.emit(AssignArrayGlobal, Opcode(t.Array.Index))
		}
	default:
		return fmt.Errorf("compiler: invalid assignment target %T", n.Target)
	}
	return nil
}

func (e *funcEmitter) augAssign(n *ast.AssignExpr) error {
	if err := e.expr(n.Value); err != nil {
		return err
	}
	switch t := n.Target.(type) {
	case *ast.VarExpr:
		switch t.Scope {
		case ast.ScopeGlobal:
			e.emit(AugAssignGlobal, Opcode(n.Op), Opcode(t.Index))
		case ast.ScopeLocal:
			e.emit(AugAssignLocal, Opcode(n.Op), Opcode(t.Index))
		case ast.ScopeSpecial:
			e.emit(AugAssignSpecial, Opcode(n.Op), Opcode(t.Index))
		}
	case *ast.FieldExpr:
		if err := e.expr(t.Index); err != nil {
			return err
		}
		e.emit(AugAssignField, Opcode(n.Op))
	case *ast.IndexExpr:
		for _, idx := range t.Index {
			if err := e.expr(idx); err != nil {
				return err
			}
		}
		if len(t.Index) > 1 {
			e.emit(MultiIndex, Opcode(len(t.Index)))
		}
		if t.Array.Scope == ast.ScopeLocal {
			e.emit(AugAssignArrayLocal, Opcode(n.Op), Opcode(t.Array.Index))
		} else {
			e.emit(AugAssignArrayGlobal, Opcode(n.Op), Opcode(t.Array.Index))
		}
	default:
		return fmt.Errorf("compiler: invalid augmented-assignment target %T", n.Target)
	}
	return nil
}

func (e *funcEmitter) binary(n *ast.BinaryExpr) error {
	start := len(e.code)
	if err := e.expr(n.Left); err != nil {
		return err
	}
	if err := e.expr(n.Right); err != nil {
		return err
	}
	switch n.Op {
	case lexer.ADD:
		e.emit(Add)
	case lexer.SUB:
		e.emit(Subtract)
	case lexer.MUL:
		e.emit(Multiply)
	case lexer.DIV:
		e.emit(Divide)
	case lexer.MOD:
		e.emit(Modulo)
	case lexer.POW:
		e.emit(Power)
	case lexer.ILLEGAL: // concat marker, see parser_expr.go
		e.emit(Concat)
	case lexer.EQUALS:
		e.emit(Equals)
	case lexer.NOT_EQUALS:
		e.emit(NotEquals)
	case lexer.LESS:
		e.emit(Less)
	case lexer.LTE:
		e.emit(LessOrEqual)
	case lexer.GREATER:
		e.emit(Greater)
	case lexer.GTE:
		e.emit(GreaterOrEqual)
	case lexer.AND, lexer.OR:
		// Short-circuit: re-derive as a conditional branch.
		e.code = e.code[:start] // undo the unconditional both-operand emission above
		return e.shortCircuit(n)
	default:
		return fmt.Errorf("compiler: unhandled binary operator %s", n.Op)
	}
	return nil
}

// shortCircuit re-emits n.Left/n.Right with && / || short-circuit
// control flow instead of always evaluating both sides.
func (e *funcEmitter) shortCircuit(n *ast.BinaryExpr) error {
	if err := e.expr(n.Left); err != nil {
		return err
	}
	if n.Op == lexer.AND {
		shortJump := e.jumpPlaceholder(JumpFalse)
		if err := e.expr(n.Right); err != nil {
			return err
		}
		endJump := e.jumpPlaceholder(Jump)
		e.patch(shortJump)
		e.emit(Num, Opcode(e.c.numConst(0)))
		e.patch(endJump)
		return nil
	}
	shortJump := e.jumpPlaceholder(JumpTrue)
	if err := e.expr(n.Right); err != nil {
		return err
	}
	endJump := e.jumpPlaceholder(Jump)
	e.patch(shortJump)
	e.emit(Num, Opcode(e.c.numConst(1)))
	e.patch(endJump)
	return nil
}

func (e *funcEmitter) call(n *ast.CallExpr) error {
	switch n.Name {
	case "split":
		if len(n.Args) < 2 {
			return fmt.Errorf("compiler: split requires at least 2 arguments")
		}
		if err := e.expr(n.Args[0]); err != nil {
			return err
		}
		arr, ok := n.Args[1].(*ast.VarExpr)
		if !ok {
			return fmt.Errorf("compiler: split's second argument must be an array")
		}
		if len(n.Args) >= 3 {
			if err := e.regexOperand(n.Args[2]); err != nil {
				return err
			}
			if arr.Scope == ast.ScopeLocal {
				e.emit(CallSplitSepLocal, Opcode(arr.Index))
			} else {
				e.emit(CallSplitSepGlobal, Opcode(arr.Index))
			}
		} else {
			if arr.Scope == ast.ScopeLocal {
				e.emit(CallSplitLocal, Opcode(arr.Index))
			} else {
				e.emit(CallSplitGlobal, Opcode(arr.Index))
			}
		}
		return nil
	case "sprintf":
		for _, a := range n.Args {
			if err := e.expr(a); err != nil {
				return err
			}
		}
		e.emit(CallSprintf, Opcode(len(n.Args)))
		return nil
	case "sub", "gsub":
		if len(n.Args) < 2 || len(n.Args) > 3 {
			return fmt.Errorf("compiler: %s requires 2 or 3 arguments", n.Name)
		}
		if err := e.regexOperand(n.Args[0]); err != nil {
			return err
		}
		if err := e.expr(n.Args[1]); err != nil {
			return err
		}
		var target ast.Expr = &ast.FieldExpr{Index: &ast.NumExpr{Value: 0}}
		if len(n.Args) == 3 {
			target = n.Args[2]
		}
		isGsub := Opcode(0)
		if n.Name == "gsub" {
			isGsub = 1
		}
		return e.subTarget(target, isGsub)
	default:
		b, ok := LookupBuiltin(n.Name)
		if !ok {
			return fmt.Errorf("compiler: unknown built-in function %q", n.Name)
		}
		// length/asort/uniq/_join/_min/_max/_sum/_mean accept a whole
		// array as their first argument (spec §4.7 "Array" category);
		// an array can't be pushed through the generic scalar-value
		// stack (internal/ast.VarExpr for an array name denotes the
		// map, not a loadable scalar), so its (scope, index) travels
		// as trailing operand words instead, mirroring how CallSplit*
		// and CallUser already pass array operands out-of-band.
		if takesArrayArg[n.Name] && len(n.Args) >= 1 {
			if v, ok := n.Args[0].(*ast.VarExpr); ok && e.isArrayRef(v) {
				for i, a := range n.Args[1:] {
					if err := e.argExpr(n.Name, i+1, a); err != nil {
						return err
					}
				}
				e.emit(CallBuiltin, Opcode(b), Opcode(len(n.Args)-1), 1, Opcode(v.Scope), Opcode(v.Index))
				return nil
			}
		}
		for i, a := range n.Args {
			if err := e.argExpr(n.Name, i, a); err != nil {
				return err
			}
		}
		e.emit(CallBuiltin, Opcode(b), Opcode(len(n.Args)), 0)
		return nil
	}
}

// subTarget emits the write-back half of sub()/gsub(): the regex
// pattern and replacement string are already on the stack (pushed by
// the "sub"/"gsub" case in call()); this adds whatever operand the
// target needs (an index/key for Field/IndexExpr targets travels on
// the stack, mirroring incrDecr) and the one opcode that reads the old
// value, computes the new one, writes it back, and leaves the
// substitution count on the stack.
func (e *funcEmitter) subTarget(target ast.Expr, isGsub Opcode) error {
	switch t := target.(type) {
	case *ast.VarExpr:
		switch t.Scope {
		case ast.ScopeGlobal:
			e.emit(SubGlobal, isGsub, Opcode(t.Index))
		case ast.ScopeLocal:
			e.emit(SubLocal, isGsub, Opcode(t.Index))
		case ast.ScopeSpecial:
			e.emit(SubSpecial, isGsub, Opcode(t.Index))
		}
	case *ast.FieldExpr:
		if err := e.expr(t.Index); err != nil {
			return err
		}
		e.emit(SubField, isGsub)
	case *ast.IndexExpr:
		for _, idx := range t.Index {
			if err := e.expr(idx); err != nil {
				return err
			}
		}
		if len(t.Index) > 1 {
			e.emit(MultiIndex, Opcode(len(t.Index)))
		}
		if t.Array.Scope == ast.ScopeLocal {
			e.emit(SubArrayLocal, isGsub, Opcode(t.Array.Index))
		} else {
			e.emit(SubArrayGlobal, isGsub, Opcode(t.Array.Index))
		}
	default:
		return fmt.Errorf("compiler: invalid sub/gsub target %T", target)
	}
	return nil
}

var takesArrayArg = map[string]bool{
	"length": true, "asort": true, "uniq": true,
	"_join": true, "_min": true, "_max": true, "_sum": true, "_mean": true,
}

// regexArgIndex names, for built-ins that take a regex in one
// argument position, which index that is — so a literal /re/ there
// compiles to its pattern rather than to "$0 ~ /re/" (spec §4.7
// "sub/gsub/match/gensub take a regex, not a boolean").
var regexArgIndex = map[string]int{
	"match": 1, "sub": 0, "gsub": 0, "gensub": 0,
}

func (e *funcEmitter) argExpr(builtin string, i int, a ast.Expr) error {
	if idx, ok := regexArgIndex[builtin]; ok && idx == i {
		return e.regexOperand(a)
	}
	return e.expr(a)
}

// regexOperand compiles expr as an explicit regex pattern operand: a
// literal /re/ pushes its pattern (RegexPattern), anything else is a
// dynamic string evaluated normally (spec §3 "Regexes").
func (e *funcEmitter) regexOperand(expr ast.Expr) error {
	if r, ok := expr.(*ast.RegExpr); ok {
		idx, err := e.c.regexConst(r.Regex)
		if err != nil {
			return err
		}
		e.emit(RegexPattern, Opcode(idx))
		return nil
	}
	return e.expr(expr)
}

// isArrayRef reports whether v names a whole array rather than a
// scalar — global arrays by name, local arrays by parameter position
// in the function currently being emitted.
func (e *funcEmitter) isArrayRef(v *ast.VarExpr) bool {
	switch v.Scope {
	case ast.ScopeGlobal:
		_, ok := e.c.prog.Arrays[v.Name]
		return ok
	case ast.ScopeLocal:
		if e.fn == nil {
			return false
		}
		for i, p := range e.fn.Params {
			if p == v.Name {
				return e.fn.Arrays[i]
			}
		}
		return false
	default:
		return false
	}
}

func (e *funcEmitter) userCall(n *ast.UserCallExpr) error {
	funcIdx, ok := e.c.funcIndex[n.Name]
	if !ok {
		if nativeIdx, ok := e.c.nativeIndex[n.Name]; ok {
			for _, a := range n.Args {
				if err := e.expr(a); err != nil {
					return err
				}
			}
			e.emit(CallNative, Opcode(nativeIdx), Opcode(len(n.Args)))
			return nil
		}
		return fmt.Errorf("compiler: call to undefined function %q", n.Name)
	}
	var arrayArgs []ast.Expr
	for _, a := range n.Args {
		if v, ok := a.(*ast.VarExpr); ok && e.isArrayRef(v) {
			arrayArgs = append(arrayArgs, a)
			continue
		}
		if err := e.expr(a); err != nil {
			return err
		}
	}
	// numArgs (total, including array args) lets the VM recover how
	// many scalar values it pushed even though array args travel
	// out-of-band, since a caller may supply fewer args than the
	// callee declares params for (spec §4.2 "fewer args than params").
	e.emit(CallUser, Opcode(funcIdx), Opcode(len(n.Args)), Opcode(len(arrayArgs)))
	for _, a := range arrayArgs {
		v := a.(*ast.VarExpr)
		e.code = append(e.code, Opcode(v.Scope), Opcode(v.Index))
	}
	return nil
}

func (e *funcEmitter) getline(n *ast.GetlineExpr) error {
	redirect := lexer.ILLEGAL
	if n.Command != nil {
		if err := e.expr(n.Command); err != nil {
			return err
		}
		if n.IsCmd {
			redirect = lexer.PIPE
		} else {
			redirect = lexer.LESS
		}
	}
	if n.Target == nil {
		e.emit(Getline, Opcode(redirect))
		return nil
	}
	switch t := n.Target.(type) {
	case *ast.VarExpr:
		switch t.Scope {
		case ast.ScopeGlobal:
			e.emit(GetlineGlobal, Opcode(redirect), Opcode(t.Index))
		case ast.ScopeLocal:
			e.emit(GetlineLocal, Opcode(redirect), Opcode(t.Index))
		case ast.ScopeSpecial:
			e.emit(GetlineSpecial, Opcode(redirect), Opcode(t.Index))
		}
	case *ast.FieldExpr:
		if err := e.expr(t.Index); err != nil {
			return err
		}
		e.emit(GetlineField, Opcode(redirect))
	case *ast.IndexExpr:
		for _, idx := range t.Index {
			if err := e.expr(idx); err != nil {
				return err
			}
		}
		if len(t.Index) > 1 {
			e.emit(MultiIndex, Opcode(len(t.Index)))
		}
		if t.Array.Scope == ast.ScopeLocal {
			e.emit(GetlineArrayLocal, Opcode(redirect), Opcode(t.Array.Index))
		} else {
			e.emit(GetlineArrayGlobal, Opcode(redirect), Opcode(t.Array.Index))
		}
	default:
		return fmt.Errorf("compiler: invalid getline target %T", n.Target)
	}
	return nil
}
