// Package parser builds an AST from the lexer's token stream using a
// precedence-climbing expression grammar and a recursive-descent
// statement grammar, following spec §4.2.
package parser

import (
	"fmt"

	"github.com/agoawk/goawk/internal/arena"
	"github.com/agoawk/goawk/internal/ast"
	"github.com/agoawk/goawk/lexer"
)

// ParseError is returned for lex/parse failures, location-tagged per
// spec §4.1/§7.1.
type ParseError struct {
	Position lexer.Position
	Message  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %s: %s", e.Position, e.Message)
}

// Config configures parsing, mirroring the subset of interp.Config
// relevant at parse time (native function names need to be known so
// calls to them parse as CallExpr rather than UserCallExpr).
type Config struct {
	Funcs      map[string]interface{}
	InputMode  ast.InputMode
	OutputMode ast.OutputMode
}

type parser struct {
	lex     *lexer.Lexer
	arena   *arena.Arena
	tok     lexer.Token
	lit     string
	pos     lexer.Position
	program *ast.Program
	nativeFuncs map[string]bool
	funcNames   map[string]bool
}

// ParseProgram parses AWK source into an *ast.Program.
func ParseProgram(src []byte, config *Config) (*ast.Program, error) {
	p := &parser{
		lex:   lexer.New(src),
		arena: arena.New(),
		program: &ast.Program{
			Scalars: map[string]int{},
			Arrays:  map[string]int{},
		},
		nativeFuncs: map[string]bool{},
		funcNames:   map[string]bool{},
	}
	if config != nil {
		p.program.InputMode = config.InputMode
		p.program.OutputMode = config.OutputMode
		for name := range config.Funcs {
			p.nativeFuncs[name] = true
		}
	}
	p.next()
	if err := p.parseProgram(); err != nil {
		return nil, err
	}
	p.program.Metadata = p.lex.Metadata()
	if err := Resolve(p.program); err != nil {
		return nil, err
	}
	return p.program, nil
}

func (p *parser) next() {
	p.pos, p.tok, p.lit = p.lex.Scan()
	for p.tok == lexer.COMMENT {
		p.pos, p.tok, p.lit = p.lex.Scan()
	}
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return &ParseError{Position: p.pos, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) expect(tok lexer.Token) error {
	if p.tok != tok {
		return p.errorf("expected %s, got %s", tok, p.tok)
	}
	p.next()
	return nil
}

func (p *parser) skipNewlines() {
	for p.tok == lexer.NEWLINE || p.tok == lexer.SEMICOLON {
		p.next()
	}
}

func (p *parser) optTerm() {
	for p.tok == lexer.NEWLINE || p.tok == lexer.SEMICOLON {
		p.next()
	}
}

// parseProgram parses the top-level sequence of pattern/action rules,
// lifecycle blocks, and function declarations, attaching each to its
// slot on ast.Program per spec §4.2.
func (p *parser) parseProgram() error {
	p.skipNewlines()
	for p.tok != lexer.EOF {
		switch p.tok {
		case lexer.BEGIN:
			p.next()
			body, err := p.parseBraceBlock()
			if err != nil {
				return err
			}
			p.program.Begin = append(p.program.Begin, body...)
		case lexer.PREPARE:
			p.next()
			body, err := p.parseBraceBlock()
			if err != nil {
				return err
			}
			p.program.Prepare = append(p.program.Prepare, body...)
		case lexer.BEGINFILE:
			p.next()
			body, err := p.parseBraceBlock()
			if err != nil {
				return err
			}
			p.program.BeginFile = append(p.program.BeginFile, body...)
		case lexer.ENDFILE:
			p.next()
			body, err := p.parseBraceBlock()
			if err != nil {
				return err
			}
			p.program.EndFile = append(p.program.EndFile, body...)
		case lexer.END:
			p.next()
			body, err := p.parseBraceBlock()
			if err != nil {
				return err
			}
			p.program.End = append(p.program.End, body...)
		case lexer.FUNCTION:
			fn, err := p.parseFunction()
			if err != nil {
				return err
			}
			p.program.Functions = append(p.program.Functions, fn)
		default:
			action, err := p.parseAction()
			if err != nil {
				return err
			}
			p.program.Actions = append(p.program.Actions, action)
		}
		p.skipNewlines()
	}
	return nil
}

func (p *parser) parseBraceBlock() ([]ast.Stmt, error) {
	if err := p.expect(lexer.LBRACE); err != nil {
		return nil, err
	}
	stmts, err := p.parseStmtList()
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.RBRACE); err != nil {
		return nil, err
	}
	return stmts, nil
}

// parseAction parses one top-level "pattern { action }" rule. An
// empty action defaults to "{ print $0 }"; an empty pattern matches
// every record; a comma-separated pair is a range pattern.
func (p *parser) parseAction() (ast.Action, error) {
	var action ast.Action
	if p.tok != lexer.LBRACE {
		first, err := p.parseExprNoIn()
		if err != nil {
			return action, err
		}
		action.Pattern = append(action.Pattern, first)
		if p.tok == lexer.COMMA {
			p.next()
			p.skipNewlines()
			second, err := p.parseExprNoIn()
			if err != nil {
				return action, err
			}
			action.Pattern = append(action.Pattern, second)
		}
	}
	if p.tok == lexer.LBRACE {
		body, err := p.parseBraceBlock()
		if err != nil {
			return action, err
		}
		action.Stmts = body
	} else {
		// Empty action defaults to "{ print $0 }" (spec §4.2).
		action.Stmts = []ast.Stmt{&ast.PrintStmt{}}
	}
	return action, nil
}

func (p *parser) parseStmtList() ([]ast.Stmt, error) {
	var stmts []ast.Stmt
	p.skipNewlines()
	for p.tok != lexer.RBRACE && p.tok != lexer.EOF {
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
		p.optTerm()
	}
	return stmts, nil
}
