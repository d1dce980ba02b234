package parser

import (
	"github.com/agoawk/goawk/internal/ast"
	"github.com/agoawk/goawk/lexer"
)

func (p *parser) parseStmt() (ast.Stmt, error) {
	pos := p.pos
	switch p.tok {
	case lexer.LBRACE:
		body, err := p.parseBraceBlock()
		if err != nil {
			return nil, err
		}
		return &ast.BlockStmt{Body: body}, nil
	case lexer.IF:
		return p.parseIf()
	case lexer.WHILE:
		return p.parseWhile()
	case lexer.DO:
		return p.parseDoWhile()
	case lexer.FOR:
		return p.parseFor()
	case lexer.BREAK:
		p.next()
		return &ast.BreakStmt{}, nil
	case lexer.CONTINUE:
		p.next()
		return &ast.ContinueStmt{}, nil
	case lexer.NEXT:
		p.next()
		return &ast.NextStmt{}, nil
	case lexer.NEXTFILE:
		p.next()
		return &ast.NextFileStmt{}, nil
	case lexer.EXIT:
		p.next()
		var status ast.Expr
		if p.canStartExpr() {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			status = e
		}
		return &ast.ExitStmt{Status: status}, nil
	case lexer.RETURN:
		p.next()
		var val ast.Expr
		if p.canStartExpr() {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			val = e
		}
		return &ast.ReturnStmt{Value: val}, nil
	case lexer.DELETE:
		return p.parseDelete()
	case lexer.PRINT:
		return p.parsePrint(false)
	case lexer.PRINTF:
		return p.parsePrint(true)
	case lexer.SEMICOLON:
		return &ast.BlockStmt{}, nil
	default:
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		_ = pos
		return &ast.ExprStmt{Expr: e}, nil
	}
}

func (p *parser) canStartExpr() bool {
	switch p.tok {
	case lexer.SEMICOLON, lexer.NEWLINE, lexer.RBRACE, lexer.EOF:
		return false
	default:
		return true
	}
}

func (p *parser) parseIf() (ast.Stmt, error) {
	p.next()
	if err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	p.skipOptNewline()
	then, err := p.parseStmtOrBlock()
	if err != nil {
		return nil, err
	}
	p.optTerm()
	var els []ast.Stmt
	if p.tok == lexer.ELSE {
		p.next()
		p.skipOptNewline()
		els, err = p.parseStmtOrBlock()
		if err != nil {
			return nil, err
		}
	}
	return &ast.IfStmt{Cond: cond, Then: then, Else: els}, nil
}

func (p *parser) skipOptNewline() {
	for p.tok == lexer.NEWLINE {
		p.next()
	}
}

func (p *parser) parseStmtOrBlock() ([]ast.Stmt, error) {
	if p.tok == lexer.LBRACE {
		return p.parseBraceBlock()
	}
	s, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	return []ast.Stmt{s}, nil
}

func (p *parser) parseWhile() (ast.Stmt, error) {
	p.next()
	if err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	p.skipOptNewline()
	body, err := p.parseStmtOrBlock()
	if err != nil {
		return nil, err
	}
	return &ast.WhileStmt{Cond: cond, Body: body}, nil
}

func (p *parser) parseDoWhile() (ast.Stmt, error) {
	p.next()
	p.skipOptNewline()
	body, err := p.parseStmtOrBlock()
	if err != nil {
		return nil, err
	}
	p.optTerm()
	if err := p.expect(lexer.WHILE); err != nil {
		return nil, err
	}
	if err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	return &ast.DoWhileStmt{Body: body, Cond: cond}, nil
}

// parseFor disambiguates "for (x in a)" from "for (init; cond; upd)"
// by trying the for-in shape first via a cheap lookahead: a single
// NAME token followed by IN inside the parens (spec §4.2, two parallel
// expression entry points).
func (p *parser) parseFor() (ast.Stmt, error) {
	p.next()
	if err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	if p.tok == lexer.NAME {
		varName := p.lit
		varPos := p.pos
		savePos, saveTok, saveLit := p.pos, p.tok, p.lit
		saveLex := p.lex.Save()
		p.next()
		if p.tok == lexer.IN {
			p.next()
			if p.tok != lexer.NAME {
				return nil, p.errorf("expected array name, got %s", p.tok)
			}
			arrName := p.lit
			p.next()
			if err := p.expect(lexer.RPAREN); err != nil {
				return nil, err
			}
			p.skipOptNewline()
			body, err := p.parseStmtOrBlock()
			if err != nil {
				return nil, err
			}
			return &ast.ForInStmt{
				Var:   &ast.VarExpr{Name: varName},
				Array: &ast.VarExpr{Name: arrName},
				Body:  body,
			}, nil
		}
		p.lex.Restore(saveLex)
		p.pos, p.tok, p.lit = savePos, saveTok, saveLit
		_ = varPos
	}

	var pre ast.Stmt
	if p.tok != lexer.SEMICOLON {
		e, err := p.parseSimpleStmt()
		if err != nil {
			return nil, err
		}
		pre = e
	}
	if err := p.expect(lexer.SEMICOLON); err != nil {
		return nil, err
	}
	var cond ast.Expr
	if p.tok != lexer.SEMICOLON {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		cond = e
	}
	if err := p.expect(lexer.SEMICOLON); err != nil {
		return nil, err
	}
	var post ast.Stmt
	if p.tok != lexer.RPAREN {
		e, err := p.parseSimpleStmt()
		if err != nil {
			return nil, err
		}
		post = e
	}
	if err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	p.skipOptNewline()
	body, err := p.parseStmtOrBlock()
	if err != nil {
		return nil, err
	}
	return &ast.ForStmt{Pre: pre, Cond: cond, Post: post, Body: body}, nil
}

func (p *parser) parseSimpleStmt() (ast.Stmt, error) {
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.ExprStmt{Expr: e}, nil
}

func (p *parser) parseDelete() (ast.Stmt, error) {
	p.next()
	if p.tok != lexer.NAME {
		return nil, p.errorf("expected array name, got %s", p.tok)
	}
	name := p.lit
	p.next()
	var idx []ast.Expr
	if p.tok == lexer.LBRACKET {
		p.next()
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			idx = append(idx, e)
			if p.tok != lexer.COMMA {
				break
			}
			p.next()
		}
		if err := p.expect(lexer.RBRACKET); err != nil {
			return nil, err
		}
	} else if p.tok == lexer.LPAREN {
		// "delete a()" gawk extension: treat as delete-all, consume parens.
		p.next()
		if err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
	}
	return &ast.DeleteStmt{Array: &ast.VarExpr{Name: name}, Index: idx}, nil
}

// parsePrint parses "print expr-list [> dest | >> dest | | cmd]" and
// the printf equivalent. The expression list uses the non-'>' output
// grammar so that a bare '>' is parsed as the redirection operator
// rather than a comparison, matching historical AWK.
func (p *parser) parsePrint(isPrintf bool) (ast.Stmt, error) {
	p.next()
	var args []ast.Expr
	if p.canStartExpr() && p.tok != lexer.GREATER && p.tok != lexer.APPEND && p.tok != lexer.PIPE {
		first, err := p.parsePrintExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, first)
		for p.tok == lexer.COMMA {
			p.next()
			p.skipNewlines()
			e, err := p.parsePrintExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, e)
		}
	}
	redirect := lexer.ILLEGAL
	var dest ast.Expr
	if p.tok == lexer.GREATER || p.tok == lexer.APPEND || p.tok == lexer.PIPE {
		redirect = p.tok
		p.next()
		d, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		dest = d
	}
	if isPrintf {
		return &ast.PrintfStmt{Args: args, Redirect: redirect, Dest: dest}, nil
	}
	return &ast.PrintStmt{Args: args, Redirect: redirect, Dest: dest}, nil
}
