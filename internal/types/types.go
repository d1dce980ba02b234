// Package types implements the type-inference lattice from spec §4.4:
// a monotone fixpoint over the CFG that resolves every scalar
// variable, array, and expression to one of a small closed set of
// concrete types. The result is advisory: the bytecode emitter
// (internal/compiler) does not read it, the VM keeps one dynamic value
// representation, and its only consumer is cmd/goawk's --dump-types.
package types

import (
	"fmt"

	"github.com/agoawk/goawk/internal/ast"
	"github.com/agoawk/goawk/internal/cfg"
	"github.com/agoawk/goawk/lexer"
)

// Kind is the lattice element.
type Kind int

const (
	Unknown Kind = iota
	Int
	Float
	Str
	IntMap
	StrMap
	Iter
)

func (k Kind) String() string {
	switch k {
	case Int:
		return "Int"
	case Float:
		return "Float"
	case Str:
		return "Str"
	case IntMap:
		return "IntMap"
	case StrMap:
		return "StrMap"
	case Iter:
		return "Iter"
	default:
		return "Unknown"
	}
}

// Type pairs a Kind with, for map kinds, the value element Kind.
type Type struct {
	Kind  Kind
	Value Kind // meaningful only when Kind is IntMap or StrMap
}

var (
	TInt   = Type{Kind: Int}
	TFloat = Type{Kind: Float}
	TStr   = Type{Kind: Str}
)

// Join computes a ⊔ b per spec §4.4's rules. stringCoercing
// selects whether a Str/numeric join under a string-coercing operator
// (true => Str wins) or a purely numeric context (false => Float wins,
// matching AWK's "numeric string" duality).
func Join(a, b Type, stringCoercing bool) (Type, error) {
	if a.Kind == Unknown {
		return b, nil
	}
	if b.Kind == Unknown {
		return a, nil
	}
	if a == b {
		return a, nil
	}
	isMap := func(k Kind) bool { return k == IntMap || k == StrMap }
	if isMap(a.Kind) || isMap(b.Kind) {
		if a.Kind != b.Kind {
			return Type{}, fmt.Errorf("cannot join %s with %s: mixing map key kinds or map with scalar", a.Kind, b.Kind)
		}
		v, err := Join(Type{Kind: a.Value}, Type{Kind: b.Value}, stringCoercing)
		if err != nil {
			return Type{}, err
		}
		return Type{Kind: a.Kind, Value: v.Kind}, nil
	}
	switch {
	case a.Kind == Int && b.Kind == Float, a.Kind == Float && b.Kind == Int:
		return TFloat, nil
	case a.Kind == Str || b.Kind == Str:
		if stringCoercing {
			return TStr, nil
		}
		return TFloat, nil
	default:
		return a, nil
	}
}

// Cell is a mutable type slot for one variable (global scalar,
// function-local scalar, or array) during the fixpoint.
type Cell struct {
	Type    Type
	changed bool
}

// Inference holds the fixpoint result for one compilation.
type Inference struct {
	Globals map[int]*Cell // scalar index -> cell
	Arrays  map[int]*Cell // array index -> cell (Type.Kind is IntMap/StrMap)
	Locals  map[string]map[int]*Cell
}

// Infer runs the monotone fixpoint described in spec §4.4 over every
// function body and top-level block in prog, building one cfg.Func
// per body (component D) and iterating evidence-gathering passes over
// it until no cell's Type changes (component E). Re-running Infer on
// its own output is a documented no-op (spec §8).
func Infer(prog *ast.Program) (*Inference, error) {
	inf := &Inference{
		Globals: map[int]*Cell{},
		Arrays:  map[int]*Cell{},
		Locals:  map[string]map[int]*Cell{},
	}
	for name := range prog.Scalars {
		idx := prog.Scalars[name]
		if _, ok := inf.Globals[idx]; !ok {
			inf.Globals[idx] = &Cell{}
		}
	}
	for name := range prog.Arrays {
		idx := prog.Arrays[name]
		if _, ok := inf.Arrays[idx]; !ok {
			inf.Arrays[idx] = &Cell{Type: Type{Kind: StrMap, Value: Str}}
		}
	}
	for _, fn := range prog.Functions {
		cells := map[int]*Cell{}
		for i := range fn.Params {
			cells[i] = &Cell{}
		}
		inf.Locals[fn.Name] = cells
	}

	bodies := [][]ast.Stmt{prog.Begin, prog.Prepare, prog.BeginFile, prog.EndFile, prog.End}
	for _, a := range prog.Actions {
		bodies = append(bodies, a.Stmts)
	}

	const maxRounds = 20
	for round := 0; round < maxRounds; round++ {
		changed := false
		for i, body := range bodies {
			g := cfg.Build(fmt.Sprintf("toplevel-%d", i), body)
			if walkChanged(g, inf, nil) {
				changed = true
			}
		}
		for _, fn := range prog.Functions {
			g := cfg.Build(fn.Name, fn.Body)
			if walkChanged(g, inf, inf.Locals[fn.Name]) {
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return inf, nil
}

func walkChanged(g *cfg.Func, inf *Inference, locals map[int]*Cell) bool {
	w := &walker{inf: inf, locals: locals}
	for _, blk := range g.Blocks {
		for _, s := range blk.Stmts {
			w.stmt(s)
		}
	}
	return w.changed
}

type walker struct {
	inf     *Inference
	locals  map[int]*Cell
	changed bool
}

func (w *walker) cellFor(v *ast.VarExpr) *Cell {
	switch v.Scope {
	case ast.ScopeGlobal:
		c, ok := w.inf.Globals[v.Index]
		if !ok {
			c = &Cell{}
			w.inf.Globals[v.Index] = c
		}
		return c
	case ast.ScopeLocal:
		if w.locals == nil {
			return &Cell{}
		}
		c, ok := w.locals[v.Index]
		if !ok {
			c = &Cell{}
			w.locals[v.Index] = c
		}
		return c
	default:
		// Special variables have a fixed type per spec §3; model the
		// common numeric ones as Float and the rest as Str.
		switch v.Index {
		case ast.V_NF, ast.V_NR, ast.V_FNR, ast.V_RSTART, ast.V_RLENGTH, ast.V_ARGC:
			return &Cell{Type: TFloat}
		default:
			return &Cell{Type: TStr}
		}
	}
}

func (w *walker) assign(c *Cell, t Type, stringCoercing bool) {
	joined, err := Join(c.Type, t, stringCoercing)
	if err != nil {
		// A real compile error would be raised by the caller; the
		// fixpoint itself just stops propagating on conflict.
		return
	}
	if joined != c.Type {
		c.Type = joined
		w.changed = true
	}
}

func (w *walker) expr(e ast.Expr) Type {
	switch n := e.(type) {
	case *ast.NumExpr:
		if n.Value == float64(int64(n.Value)) {
			return TInt
		}
		return TFloat
	case *ast.StrExpr:
		return TStr
	case *ast.RegExpr:
		return TInt // match result
	case *ast.VarExpr:
		return w.cellFor(n).Type
	case *ast.FieldExpr:
		w.expr(n.Index)
		return TStr // fields carry the "maybe numeric string" duality; modeled as Str
	case *ast.IndexExpr:
		for _, idx := range n.Index {
			w.expr(idx)
		}
		arrCell := w.arrayCell(n.Array)
		return Type{Kind: arrCell.Type.Value}
	case *ast.AssignExpr:
		vt := w.expr(n.Value)
		if v, ok := n.Target.(*ast.VarExpr); ok {
			w.assign(w.cellFor(v), vt, n.Op != lexer.ASSIGN)
		}
		return vt
	case *ast.BinaryExpr:
		lt := w.expr(n.Left)
		rt := w.expr(n.Right)
		stringCoercing := n.Op == lexer.ILLEGAL // concat marker
		joined, err := Join(lt, rt, stringCoercing)
		if err != nil {
			return TStr
		}
		switch n.Op {
		case lexer.EQUALS, lexer.NOT_EQUALS, lexer.LESS, lexer.LTE, lexer.GREATER, lexer.GTE, lexer.AND, lexer.OR:
			return TInt
		case lexer.ILLEGAL:
			return TStr
		default:
			return joined
		}
	case *ast.UnaryExpr:
		return w.expr(n.Operand)
	case *ast.IncrExpr:
		if v, ok := n.Operand.(*ast.VarExpr); ok {
			w.assign(w.cellFor(v), TFloat, false)
		}
		return TFloat
	case *ast.CondExpr:
		w.expr(n.Cond)
		t, err := Join(w.expr(n.True), w.expr(n.False), true)
		if err != nil {
			return TStr
		}
		return t
	case *ast.MatchExpr:
		w.expr(n.Left)
		w.expr(n.Right)
		return TInt
	case *ast.InExpr:
		for _, idx := range n.Index {
			w.expr(idx)
		}
		return TInt
	case *ast.CallExpr:
		for _, a := range n.Args {
			w.expr(a)
		}
		return builtinReturnType(n.Name)
	case *ast.UserCallExpr:
		for _, a := range n.Args {
			w.expr(a)
		}
		return Type{} // user function return types are not inferred; the call stays Unknown
	case *ast.GetlineExpr:
		if n.Target != nil {
			if v, ok := n.Target.(*ast.VarExpr); ok {
				w.assign(w.cellFor(v), TStr, true)
			}
		}
		if n.Command != nil {
			w.expr(n.Command)
		}
		return TInt
	}
	return Type{}
}

func (w *walker) arrayCell(v *ast.VarExpr) *Cell {
	if v.Scope == ast.ScopeGlobal {
		c, ok := w.inf.Arrays[v.Index]
		if !ok {
			c = &Cell{Type: Type{Kind: StrMap, Value: Str}}
			w.inf.Arrays[v.Index] = c
		}
		return c
	}
	if w.locals == nil {
		return &Cell{Type: Type{Kind: StrMap, Value: Str}}
	}
	c, ok := w.locals[v.Index]
	if !ok {
		c = &Cell{Type: Type{Kind: StrMap, Value: Str}}
		w.locals[v.Index] = c
	}
	return c
}

// builtinReturnType gives the fixed or polymorphic-with-coercion
// result type for the built-in table from spec §4.7.
func builtinReturnType(name string) Type {
	switch name {
	case "length", "index", "match", "rstart", "strtonum", "asort", "seq":
		return TInt
	case "substr", "sprintf", "tolower", "toupper", "join_fields", "join_csv",
		"join_tsv", "hex", "_join", "typeof", "to_csv", "from_csv", "gensub":
		return TStr
	case "split", "uniq":
		return TInt
	case "sin", "cos", "atan2", "exp", "log", "sqrt", "rand", "int", "abs",
		"_min", "_max", "_sum", "_mean", "min", "max":
		return TFloat
	case "isarray":
		return TInt
	default:
		return Type{} // native/unknown function: inferred from call-site usage elsewhere
	}
}

func (w *walker) stmt(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.ExprStmt:
		w.expr(n.Expr)
	case *ast.PrintStmt:
		for _, a := range n.Args {
			w.expr(a)
		}
		if n.Dest != nil {
			w.expr(n.Dest)
		}
	case *ast.PrintfStmt:
		for _, a := range n.Args {
			w.expr(a)
		}
		if n.Dest != nil {
			w.expr(n.Dest)
		}
	case *ast.IfStmt:
		w.expr(n.Cond)
	case *ast.ForInStmt:
		w.assign(w.cellFor(n.Var), TStr, true)
	case *ast.ExitStmt:
		if n.Status != nil {
			w.expr(n.Status)
		}
	case *ast.ReturnStmt:
		if n.Value != nil {
			w.expr(n.Value)
		}
	case *ast.DeleteStmt:
		for _, idx := range n.Index {
			w.expr(idx)
		}
	}
}
