// Package cfg lowers a statement list into a control-flow graph of
// basic blocks (spec §4.3). "next"/"nextfile" (like return, exit, break
// and continue) end their block with no successor edge. Range patterns
// are not lowered here: interp tracks each one's active state with a
// per-rule boolean. It is a thin desugaring pass: the bytecode emitter
// (internal/compiler) still walks the original statement tree for
// code generation (matching the teacher's direct AST-to-bytecode
// style), but internal/types runs its monotone fixpoint over the
// Func graph built here, because dataflow needs explicit join points
// at block boundaries that a raw statement tree doesn't expose.
package cfg

import "github.com/agoawk/goawk/internal/ast"

// Block is one straight-line run of statements ending in zero, one,
// or two successor edges (an unconditional jump, or a conditional
// branch with a true/false pair).
type Block struct {
	ID    int
	Stmts []ast.Stmt
	Succs []int // block IDs; empty for a terminal block (return/exit/fallthrough to caller)
}

// Func is the CFG for one function body or one top-level lifecycle
// block / pattern-action body.
type Func struct {
	Name   string
	Blocks []*Block
	Entry  int
}

type builder struct {
	fn *Func
}

// Build constructs a CFG for stmts. name is used only for diagnostics
// (e.g. "BEGIN", "pattern 3", or a user function's name).
func Build(name string, stmts []ast.Stmt) *Func {
	b := &builder{fn: &Func{Name: name}}
	entry := b.newBlock()
	b.fn.Entry = entry
	last := b.lower(entry, stmts)
	_ = last
	return b.fn
}

func (b *builder) newBlock() int {
	id := len(b.fn.Blocks)
	b.fn.Blocks = append(b.fn.Blocks, &Block{ID: id})
	return id
}

func (b *builder) cur(id int) *Block { return b.fn.Blocks[id] }

// lower emits stmts into blocks starting at cur, returning the ID of
// the block execution falls through to afterward (or -1 if every path
// terminates via return/exit/next/nextfile/break/continue).
func (b *builder) lower(cur int, stmts []ast.Stmt) int {
	for _, s := range stmts {
		if cur == -1 {
			// Unreachable code after an unconditional terminator; still
			// walk it (e.g. for type inference) in a detached block.
			cur = b.newBlock()
		}
		switch n := s.(type) {
		case *ast.IfStmt:
			thenEntry := b.newBlock()
			elseEntry := b.newBlock()
			b.cur(cur).Succs = append(b.cur(cur).Succs, thenEntry, elseEntry)
			b.cur(cur).Stmts = append(b.cur(cur).Stmts, n)
			thenExit := b.lower(thenEntry, n.Then)
			elseExit := b.lower(elseEntry, n.Else)
			join := b.newBlock()
			if thenExit != -1 {
				b.cur(thenExit).Succs = append(b.cur(thenExit).Succs, join)
			}
			if elseExit != -1 {
				b.cur(elseExit).Succs = append(b.cur(elseExit).Succs, join)
			}
			if thenExit == -1 && elseExit == -1 {
				cur = -1
			} else {
				cur = join
			}
		case *ast.WhileStmt:
			head := b.newBlock()
			b.cur(cur).Succs = append(b.cur(cur).Succs, head)
			body := b.newBlock()
			after := b.newBlock()
			b.cur(head).Stmts = append(b.cur(head).Stmts, n)
			b.cur(head).Succs = append(b.cur(head).Succs, body, after)
			bodyExit := b.lower(body, n.Body)
			if bodyExit != -1 {
				b.cur(bodyExit).Succs = append(b.cur(bodyExit).Succs, head)
			}
			cur = after
		case *ast.DoWhileStmt:
			body := b.newBlock()
			after := b.newBlock()
			b.cur(cur).Succs = append(b.cur(cur).Succs, body)
			bodyExit := b.lower(body, n.Body)
			if bodyExit != -1 {
				b.cur(bodyExit).Stmts = append(b.cur(bodyExit).Stmts, n)
				b.cur(bodyExit).Succs = append(b.cur(bodyExit).Succs, body, after)
			}
			cur = after
		case *ast.ForStmt:
			head := b.newBlock()
			b.cur(cur).Succs = append(b.cur(cur).Succs, head)
			body := b.newBlock()
			after := b.newBlock()
			b.cur(head).Succs = append(b.cur(head).Succs, body, after)
			bodyExit := b.lower(body, n.Body)
			if bodyExit != -1 {
				b.cur(bodyExit).Succs = append(b.cur(bodyExit).Succs, head)
			}
			cur = after
		case *ast.ForInStmt:
			head := b.newBlock()
			b.cur(cur).Succs = append(b.cur(cur).Succs, head)
			body := b.newBlock()
			after := b.newBlock()
			b.cur(head).Stmts = append(b.cur(head).Stmts, n)
			b.cur(head).Succs = append(b.cur(head).Succs, body, after)
			bodyExit := b.lower(body, n.Body)
			if bodyExit != -1 {
				b.cur(bodyExit).Succs = append(b.cur(bodyExit).Succs, head)
			}
			cur = after
		case *ast.BlockStmt:
			cur = b.lower(cur, n.Body)
		case *ast.ReturnStmt, *ast.ExitStmt, *ast.NextStmt, *ast.NextFileStmt,
			*ast.BreakStmt, *ast.ContinueStmt:
			b.cur(cur).Stmts = append(b.cur(cur).Stmts, s)
			cur = -1
		default:
			b.cur(cur).Stmts = append(b.cur(cur).Stmts, s)
		}
	}
	return cur
}
