package parser

import "github.com/agoawk/goawk/internal/ast"
import "github.com/agoawk/goawk/lexer"

// parseFunction parses a "function name(params) { body }" declaration.
// Forward references to other functions inside body are permitted;
// resolution happens once all functions have been collected (spec §4.3).
func (p *parser) parseFunction() (*ast.Function, error) {
	if err := p.expect(lexer.FUNCTION); err != nil {
		return nil, err
	}
	if p.tok != lexer.NAME && p.tok != lexer.FUNC_NAME {
		return nil, p.errorf("expected function name, got %s", p.tok)
	}
	name := p.lit
	p.funcNames[name] = true
	p.next()
	if err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	var params []string
	for p.tok != lexer.RPAREN {
		if p.tok != lexer.NAME {
			return nil, p.errorf("expected parameter name, got %s", p.tok)
		}
		params = append(params, p.lit)
		p.next()
		if p.tok == lexer.COMMA {
			p.next()
			p.skipNewlines()
		}
	}
	if err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	p.skipNewlines()
	body, err := p.parseBraceBlock()
	if err != nil {
		return nil, err
	}
	return &ast.Function{
		Name:   name,
		Params: params,
		Arrays: make([]bool, len(params)), // refined by the resolver once call sites are known
		Body:   body,
	}, nil
}
