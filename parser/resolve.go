package parser

import "github.com/agoawk/goawk/internal/ast"

// resolver assigns each variable reference a VarScope and slot index,
// and determines (per spec §4.3) which identifiers are arrays versus
// scalars from how they're used — AWK has no declarations, so "a[1]"
// or "for (k in a)" usage is the only signal. Global resolution
// happens after parsing (supporting forward function references);
// function-local resolution is per function.
type resolver struct {
	program *ast.Program
	scalars map[string]int
	arrays  map[string]int
	funcs   map[string]*ast.Function

	// current function scope, nil at top level
	localScalars map[string]int
	localArrays  map[string]int
	curFunc      *ast.Function
}

// Resolve walks prog, fills in Program.Scalars/Arrays, and annotates
// every VarExpr/IndexExpr/ForInStmt/DeleteStmt node with its resolved
// scope and slot index.
func Resolve(prog *ast.Program) error {
	r := &resolver{
		program: prog,
		scalars: map[string]int{},
		arrays:  map[string]int{},
		funcs:   map[string]*ast.Function{},
	}
	for _, fn := range prog.Functions {
		r.funcs[fn.Name] = fn
	}

	// First pass: discover array-ness of globals and function locals by
	// scanning every usage site.
	r.scanArrayUsage(prog.Begin)
	r.scanArrayUsage(prog.Prepare)
	r.scanArrayUsage(prog.BeginFile)
	r.scanArrayUsage(prog.EndFile)
	r.scanArrayUsage(prog.End)
	for _, a := range prog.Actions {
		for _, e := range a.Pattern {
			r.scanArrayUsageExpr(e)
		}
		r.scanArrayUsage(a.Stmts)
	}
	for _, fn := range prog.Functions {
		r.curFunc = fn
		r.localArrays = map[string]int{}
		for i, pname := range fn.Params {
			if r.localArrays[pname] == 0 {
				// placeholder; real detection below
			}
			_ = i
		}
		r.scanArrayUsage(fn.Body)
		for i, pname := range fn.Params {
			fn.Arrays[i] = r.isLocalArray(fn, pname)
		}
	}

	// Second pass: assign slot indices and annotate nodes.
	r.curFunc = nil
	r.resolveStmts(prog.Begin)
	r.resolveStmts(prog.Prepare)
	r.resolveStmts(prog.BeginFile)
	r.resolveStmts(prog.EndFile)
	r.resolveStmts(prog.End)
	for i := range prog.Actions {
		for j, e := range prog.Actions[i].Pattern {
			prog.Actions[i].Pattern[j] = r.resolveExpr(e)
		}
		r.resolveStmts(prog.Actions[i].Stmts)
	}
	for _, fn := range prog.Functions {
		r.curFunc = fn
		r.localScalars = map[string]int{}
		r.localArrays = map[string]int{}
		n, m := 0, 0
		for i, pname := range fn.Params {
			if fn.Arrays[i] {
				r.localArrays[pname] = m
				m++
			} else {
				r.localScalars[pname] = n
				n++
			}
		}
		r.resolveStmts(fn.Body)
	}

	prog.Scalars = r.scalars
	prog.Arrays = r.arrays
	return nil
}

// isLocalArray reports whether a usage-scan flagged param as an array
// within fn's body (tracked via the shared r.localArrays map keyed by
// name during the first pass).
func (r *resolver) isLocalArray(fn *ast.Function, name string) bool {
	_, ok := r.localArrays[name]
	return ok
}

func (r *resolver) scanArrayUsage(stmts []ast.Stmt) {
	for _, s := range stmts {
		r.scanArrayUsageStmt(s)
	}
}

func (r *resolver) markArray(name string) {
	if r.curFunc != nil && r.isParam(name) {
		if r.localArrays == nil {
			r.localArrays = map[string]int{}
		}
		r.localArrays[name] = len(r.localArrays)
		return
	}
	if _, ok := r.arrays[name]; !ok {
		r.arrays[name] = len(r.arrays)
	}
}

func (r *resolver) isParam(name string) bool {
	if r.curFunc == nil {
		return false
	}
	for _, p := range r.curFunc.Params {
		if p == name {
			return true
		}
	}
	return false
}

func (r *resolver) scanArrayUsageStmt(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.ExprStmt:
		r.scanArrayUsageExpr(n.Expr)
	case *ast.PrintStmt:
		for _, a := range n.Args {
			r.scanArrayUsageExpr(a)
		}
	case *ast.PrintfStmt:
		for _, a := range n.Args {
			r.scanArrayUsageExpr(a)
		}
	case *ast.IfStmt:
		r.scanArrayUsageExpr(n.Cond)
		r.scanArrayUsage(n.Then)
		r.scanArrayUsage(n.Else)
	case *ast.ForStmt:
		if n.Pre != nil {
			r.scanArrayUsageStmt(n.Pre)
		}
		if n.Cond != nil {
			r.scanArrayUsageExpr(n.Cond)
		}
		if n.Post != nil {
			r.scanArrayUsageStmt(n.Post)
		}
		r.scanArrayUsage(n.Body)
	case *ast.ForInStmt:
		r.markArray(n.Array.Name)
		r.scanArrayUsage(n.Body)
	case *ast.WhileStmt:
		r.scanArrayUsageExpr(n.Cond)
		r.scanArrayUsage(n.Body)
	case *ast.DoWhileStmt:
		r.scanArrayUsage(n.Body)
		r.scanArrayUsageExpr(n.Cond)
	case *ast.ExitStmt:
		if n.Status != nil {
			r.scanArrayUsageExpr(n.Status)
		}
	case *ast.ReturnStmt:
		if n.Value != nil {
			r.scanArrayUsageExpr(n.Value)
		}
	case *ast.DeleteStmt:
		r.markArray(n.Array.Name)
	case *ast.BlockStmt:
		r.scanArrayUsage(n.Body)
	}
}

func (r *resolver) scanArrayUsageExpr(e ast.Expr) {
	switch n := e.(type) {
	case *ast.IndexExpr:
		r.markArray(n.Array.Name)
		for _, idx := range n.Index {
			r.scanArrayUsageExpr(idx)
		}
	case *ast.InExpr:
		r.markArray(n.Array.Name)
		for _, idx := range n.Index {
			r.scanArrayUsageExpr(idx)
		}
	case *ast.AssignExpr:
		r.scanArrayUsageExpr(n.Target)
		r.scanArrayUsageExpr(n.Value)
	case *ast.BinaryExpr:
		r.scanArrayUsageExpr(n.Left)
		r.scanArrayUsageExpr(n.Right)
	case *ast.UnaryExpr:
		r.scanArrayUsageExpr(n.Operand)
	case *ast.IncrExpr:
		r.scanArrayUsageExpr(n.Operand)
	case *ast.CondExpr:
		r.scanArrayUsageExpr(n.Cond)
		r.scanArrayUsageExpr(n.True)
		r.scanArrayUsageExpr(n.False)
	case *ast.MatchExpr:
		r.scanArrayUsageExpr(n.Left)
		r.scanArrayUsageExpr(n.Right)
	case *ast.FieldExpr:
		r.scanArrayUsageExpr(n.Index)
	case *ast.CallExpr:
		// split(s, arr, fs) and asort(arr) take an array second/first arg.
		switch n.Name {
		case "split":
			if len(n.Args) >= 2 {
				if v, ok := n.Args[1].(*ast.VarExpr); ok {
					r.markArray(v.Name)
				}
			}
		case "asort", "uniq":
			if len(n.Args) >= 1 {
				if v, ok := n.Args[0].(*ast.VarExpr); ok {
					r.markArray(v.Name)
				}
			}
		}
		for _, a := range n.Args {
			r.scanArrayUsageExpr(a)
		}
	case *ast.UserCallExpr:
		for _, a := range n.Args {
			r.scanArrayUsageExpr(a)
		}
	case *ast.GetlineExpr:
		if n.Target != nil {
			r.scanArrayUsageExpr(n.Target)
		}
		if n.Command != nil {
			r.scanArrayUsageExpr(n.Command)
		}
	}
}

// ---- second pass: assign scope/index ----

func (r *resolver) resolveStmts(stmts []ast.Stmt) {
	for i := range stmts {
		r.resolveStmt(stmts[i])
	}
}

func (r *resolver) resolveStmt(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.ExprStmt:
		n.Expr = r.resolveExpr(n.Expr)
	case *ast.PrintStmt:
		for i, a := range n.Args {
			n.Args[i] = r.resolveExpr(a)
		}
		if n.Dest != nil {
			n.Dest = r.resolveExpr(n.Dest)
		}
	case *ast.PrintfStmt:
		for i, a := range n.Args {
			n.Args[i] = r.resolveExpr(a)
		}
		if n.Dest != nil {
			n.Dest = r.resolveExpr(n.Dest)
		}
	case *ast.IfStmt:
		n.Cond = r.resolveExpr(n.Cond)
		r.resolveStmts(n.Then)
		r.resolveStmts(n.Else)
	case *ast.ForStmt:
		if n.Pre != nil {
			r.resolveStmt(n.Pre)
		}
		if n.Cond != nil {
			n.Cond = r.resolveExpr(n.Cond)
		}
		if n.Post != nil {
			r.resolveStmt(n.Post)
		}
		r.resolveStmts(n.Body)
	case *ast.ForInStmt:
		n.Var = r.resolveVar(n.Var)
		n.Array = r.resolveArrayVar(n.Array)
		r.resolveStmts(n.Body)
	case *ast.WhileStmt:
		n.Cond = r.resolveExpr(n.Cond)
		r.resolveStmts(n.Body)
	case *ast.DoWhileStmt:
		r.resolveStmts(n.Body)
		n.Cond = r.resolveExpr(n.Cond)
	case *ast.ExitStmt:
		if n.Status != nil {
			n.Status = r.resolveExpr(n.Status)
		}
	case *ast.ReturnStmt:
		if n.Value != nil {
			n.Value = r.resolveExpr(n.Value)
		}
	case *ast.DeleteStmt:
		n.Array = r.resolveArrayVar(n.Array)
		for i, idx := range n.Index {
			n.Index[i] = r.resolveExpr(idx)
		}
	case *ast.BlockStmt:
		r.resolveStmts(n.Body)
	}
}

func (r *resolver) resolveExpr(e ast.Expr) ast.Expr {
	switch n := e.(type) {
	case *ast.VarExpr:
		return r.resolveVar(n)
	case *ast.IndexExpr:
		n.Array = r.resolveArrayVar(n.Array)
		for i, idx := range n.Index {
			n.Index[i] = r.resolveExpr(idx)
		}
	case *ast.AssignExpr:
		n.Target = r.resolveExpr(n.Target)
		n.Value = r.resolveExpr(n.Value)
	case *ast.BinaryExpr:
		n.Left = r.resolveExpr(n.Left)
		n.Right = r.resolveExpr(n.Right)
	case *ast.UnaryExpr:
		n.Operand = r.resolveExpr(n.Operand)
	case *ast.IncrExpr:
		n.Operand = r.resolveExpr(n.Operand)
	case *ast.CondExpr:
		n.Cond = r.resolveExpr(n.Cond)
		n.True = r.resolveExpr(n.True)
		n.False = r.resolveExpr(n.False)
	case *ast.MatchExpr:
		n.Left = r.resolveExpr(n.Left)
		n.Right = r.resolveExpr(n.Right)
	case *ast.InExpr:
		n.Array = r.resolveArrayVar(n.Array)
		for i, idx := range n.Index {
			n.Index[i] = r.resolveExpr(idx)
		}
	case *ast.FieldExpr:
		n.Index = r.resolveExpr(n.Index)
	case *ast.CallExpr:
		for i, a := range n.Args {
			n.Args[i] = r.resolveExpr(a)
		}
	case *ast.UserCallExpr:
		for i, a := range n.Args {
			n.Args[i] = r.resolveExpr(a)
		}
	case *ast.GetlineExpr:
		if n.Target != nil {
			n.Target = r.resolveExpr(n.Target)
		}
		if n.Command != nil {
			n.Command = r.resolveExpr(n.Command)
		}
	}
	return e
}

func (r *resolver) resolveVar(v *ast.VarExpr) *ast.VarExpr {
	if idx := ast.SpecialVarIndex(v.Name); idx > 0 {
		v.Scope = ast.ScopeSpecial
		v.Index = idx
		return v
	}
	if r.curFunc != nil {
		if idx, ok := r.localScalars[v.Name]; ok {
			v.Scope = ast.ScopeLocal
			v.Index = idx
			return v
		}
		if idx, ok := r.localArrays[v.Name]; ok {
			// Referenced as a bare scalar-looking name but resolved to a
			// local array parameter (e.g. passed through to another call);
			// keep it addressable by local array index.
			v.Scope = ast.ScopeLocal
			v.Index = idx
			return v
		}
	}
	// A bare name already known to be a global array (e.g. passed
	// whole to a function, or used elsewhere as arr[i]/for(k in arr))
	// resolves to its array slot, not a fresh scalar slot.
	if idx, ok := r.arrays[v.Name]; ok {
		v.Scope = ast.ScopeGlobal
		v.Index = idx
		return v
	}
	v.Scope = ast.ScopeGlobal
	if idx, ok := r.scalars[v.Name]; ok {
		v.Index = idx
		return v
	}
	idx := len(r.scalars)
	r.scalars[v.Name] = idx
	v.Index = idx
	return v
}

func (r *resolver) resolveArrayVar(v *ast.VarExpr) *ast.VarExpr {
	if r.curFunc != nil {
		if idx, ok := r.localArrays[v.Name]; ok {
			v.Scope = ast.ScopeLocal
			v.Index = idx
			return v
		}
	}
	v.Scope = ast.ScopeGlobal
	if idx, ok := r.arrays[v.Name]; ok {
		v.Index = idx
		return v
	}
	idx := len(r.arrays)
	r.arrays[v.Name] = idx
	v.Index = idx
	return v
}
