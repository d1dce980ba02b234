package parser

import (
	"strconv"

	"github.com/agoawk/goawk/internal/ast"
	"github.com/agoawk/goawk/lexer"
)

// Expression parsing follows the precedence ladder from spec §4.2:
//
//	ternary > || > && > in > ~ !~ > comparison > concat > + - > * / % > ^
//	> unary > ++/-- > $ > atom
//
// parseExpr is the "in"-admitting entry point (used everywhere except
// the for-loop init/cond/post triple, which goes through the for-in
// lookahead in parser_stmt.go instead). parseExprNoIn forbids a bare
// top-level "in" so range-pattern and similar contexts don't swallow
// a for-in's "in" token. parsePrintExpr additionally forbids a bare
// top-level '>' so "print x > f" parses as redirection.
func (p *parser) parseExpr() (ast.Expr, error)       { return p.parseTernary(false, false) }
func (p *parser) parseExprNoIn() (ast.Expr, error)   { return p.parseTernary(true, false) }
func (p *parser) parsePrintExpr() (ast.Expr, error)  { return p.parseTernary(false, true) }

func (p *parser) parseTernary(noIn, noGT bool) (ast.Expr, error) {
	cond, err := p.parseAssign(noIn, noGT)
	if err != nil {
		return nil, err
	}
	if p.tok == lexer.QUESTION {
		pos := p.pos
		p.next()
		p.skipNewlines()
		t, err := p.parseTernary(noIn, false)
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.COLON); err != nil {
			return nil, err
		}
		p.skipNewlines()
		f, err := p.parseTernary(noIn, noGT)
		if err != nil {
			return nil, err
		}
		return &ast.CondExpr{Base: ast.Base{Pos: pos}, Cond: cond, True: t, False: f}, nil
	}
	return cond, nil
}

func isAssignOp(tok lexer.Token) bool {
	switch tok {
	case lexer.ASSIGN, lexer.ADD_ASSIGN, lexer.SUB_ASSIGN, lexer.MUL_ASSIGN,
		lexer.DIV_ASSIGN, lexer.MOD_ASSIGN, lexer.POW_ASSIGN:
		return true
	}
	return false
}

func (p *parser) parseAssign(noIn, noGT bool) (ast.Expr, error) {
	left, err := p.parseOr(noIn, noGT)
	if err != nil {
		return nil, err
	}
	if isAssignOp(p.tok) {
		op := p.tok
		pos := p.pos
		p.next()
		p.skipNewlines()
		right, err := p.parseTernary(noIn, noGT)
		if err != nil {
			return nil, err
		}
		return &ast.AssignExpr{Base: ast.Base{Pos: pos}, Op: op, Target: left, Value: right}, nil
	}
	return left, nil
}

func (p *parser) parseOr(noIn, noGT bool) (ast.Expr, error) {
	left, err := p.parseAnd(noIn, noGT)
	if err != nil {
		return nil, err
	}
	for p.tok == lexer.OR {
		pos := p.pos
		p.next()
		p.skipNewlines()
		right, err := p.parseAnd(noIn, noGT)
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Base: ast.Base{Pos: pos}, Op: lexer.OR, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd(noIn, noGT bool) (ast.Expr, error) {
	left, err := p.parseIn(noIn, noGT)
	if err != nil {
		return nil, err
	}
	for p.tok == lexer.AND {
		pos := p.pos
		p.next()
		p.skipNewlines()
		right, err := p.parseIn(noIn, noGT)
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Base: ast.Base{Pos: pos}, Op: lexer.AND, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseIn(noIn, noGT bool) (ast.Expr, error) {
	left, err := p.parseMatch(noIn, noGT)
	if err != nil {
		return nil, err
	}
	for !noIn && p.tok == lexer.IN {
		pos := p.pos
		p.next()
		if p.tok != lexer.NAME {
			return nil, p.errorf("expected array name after 'in', got %s", p.tok)
		}
		arr := &ast.VarExpr{Name: p.lit}
		p.next()
		left = &ast.InExpr{Base: ast.Base{Pos: pos}, Index: []ast.Expr{left}, Array: arr}
	}
	return left, nil
}

func (p *parser) parseMatch(noIn, noGT bool) (ast.Expr, error) {
	left, err := p.parseComparison(noIn, noGT)
	if err != nil {
		return nil, err
	}
	for p.tok == lexer.MATCH || p.tok == lexer.NOT_MATCH {
		not := p.tok == lexer.NOT_MATCH
		pos := p.pos
		p.next()
		right, err := p.parseComparison(noIn, noGT)
		if err != nil {
			return nil, err
		}
		left = &ast.MatchExpr{Base: ast.Base{Pos: pos}, Not: not, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseComparison(noIn, noGT bool) (ast.Expr, error) {
	left, err := p.parseConcat(noIn, noGT)
	if err != nil {
		return nil, err
	}
	// Comparisons do not chain in AWK.
	switch p.tok {
	case lexer.LESS, lexer.LTE, lexer.EQUALS, lexer.NOT_EQUALS, lexer.GTE:
		op := p.tok
		pos := p.pos
		p.next()
		right, err := p.parseConcat(noIn, noGT)
		if err != nil {
			return nil, err
		}
		return &ast.BinaryExpr{Base: ast.Base{Pos: pos}, Op: op, Left: left, Right: right}, nil
	case lexer.GREATER:
		if noGT {
			return left, nil
		}
		pos := p.pos
		p.next()
		right, err := p.parseConcat(noIn, noGT)
		if err != nil {
			return nil, err
		}
		return &ast.BinaryExpr{Base: ast.Base{Pos: pos}, Op: lexer.GREATER, Left: left, Right: right}, nil
	}
	return left, nil
}

// parseConcat implements AWK's implicit-by-juxtaposition string
// concatenation: two adjacent value-starting expressions with no
// operator between them concatenate.
func (p *parser) parseConcat(noIn, noGT bool) (ast.Expr, error) {
	left, err := p.parseAdd()
	if err != nil {
		return nil, err
	}
	for p.startsConcatOperand(noGT) {
		pos := p.pos
		right, err := p.parseAdd()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Base: ast.Base{Pos: pos}, Op: lexer.ILLEGAL /* concat */, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) startsConcatOperand(noGT bool) bool {
	switch p.tok {
	case lexer.NUMBER, lexer.STRING, lexer.REGEX, lexer.NAME, lexer.FUNC_NAME,
		lexer.DOLLAR, lexer.NOT, lexer.LPAREN, lexer.INCR, lexer.DECR, lexer.SUB, lexer.ADD, lexer.GETLINE:
		return true
	default:
		return false
	}
}

func (p *parser) parseAdd() (ast.Expr, error) {
	left, err := p.parseMul()
	if err != nil {
		return nil, err
	}
	for p.tok == lexer.ADD || p.tok == lexer.SUB {
		op := p.tok
		pos := p.pos
		p.next()
		right, err := p.parseMul()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Base: ast.Base{Pos: pos}, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseMul() (ast.Expr, error) {
	left, err := p.parsePow()
	if err != nil {
		return nil, err
	}
	for p.tok == lexer.MUL || p.tok == lexer.DIV || p.tok == lexer.MOD {
		op := p.tok
		pos := p.pos
		p.next()
		right, err := p.parsePow()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Base: ast.Base{Pos: pos}, Op: op, Left: left, Right: right}
	}
	return left, nil
}

// parsePow is right-associative, per AWK's "^" exponent operator.
func (p *parser) parsePow() (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if p.tok == lexer.POW {
		pos := p.pos
		p.next()
		right, err := p.parsePow()
		if err != nil {
			return nil, err
		}
		return &ast.BinaryExpr{Base: ast.Base{Pos: pos}, Op: lexer.POW, Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *parser) parseUnary() (ast.Expr, error) {
	switch p.tok {
	case lexer.NOT, lexer.SUB, lexer.ADD:
		op := p.tok
		pos := p.pos
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Base: ast.Base{Pos: pos}, Op: op, Operand: operand}, nil
	}
	return p.parseIncrDecr()
}

func (p *parser) parseIncrDecr() (ast.Expr, error) {
	if p.tok == lexer.INCR || p.tok == lexer.DECR {
		op := p.tok
		pos := p.pos
		p.next()
		operand, err := p.parseIncrDecr()
		if err != nil {
			return nil, err
		}
		return &ast.IncrExpr{Base: ast.Base{Pos: pos}, Op: op, Pre: true, Operand: operand}, nil
	}
	operand, err := p.parseField()
	if err != nil {
		return nil, err
	}
	for p.tok == lexer.INCR || p.tok == lexer.DECR {
		op := p.tok
		pos := p.pos
		p.next()
		operand = &ast.IncrExpr{Base: ast.Base{Pos: pos}, Op: op, Pre: false, Operand: operand}
	}
	return operand, nil
}

func (p *parser) parseField() (ast.Expr, error) {
	if p.tok == lexer.DOLLAR {
		pos := p.pos
		p.next()
		idx, err := p.parseField()
		if err != nil {
			return nil, err
		}
		return &ast.FieldExpr{Base: ast.Base{Pos: pos}, Index: idx}, nil
	}
	return p.parsePostfixGetline()
}

// parsePostfixGetline handles "cmd | getline [var]" by checking for a
// trailing "| getline" after an atom that could be a command string.
func (p *parser) parsePostfixGetline() (ast.Expr, error) {
	left, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for p.tok == lexer.PIPE {
		save := p.lex.Save()
		savePos, saveTok, saveLit := p.pos, p.tok, p.lit
		p.next()
		if p.tok != lexer.GETLINE {
			p.lex.Restore(save)
			p.pos, p.tok, p.lit = savePos, saveTok, saveLit
			break
		}
		pos := p.pos
		p.next()
		var target ast.Expr
		if p.tok == lexer.NAME || p.tok == lexer.DOLLAR {
			t, err := p.parseField()
			if err != nil {
				return nil, err
			}
			target = t
		}
		left = &ast.GetlineExpr{Base: ast.Base{Pos: pos}, Target: target, Command: left, IsCmd: true}
	}
	return left, nil
}

func (p *parser) parseAtom() (ast.Expr, error) {
	pos := p.pos
	switch p.tok {
	case lexer.NUMBER:
		lit := p.lit
		p.next()
		v, _ := parseNumberLiteral(lit)
		return &ast.NumExpr{Base: ast.Base{Pos: pos}, Value: v}, nil
	case lexer.STRING:
		lit := p.lit
		p.next()
		return &ast.StrExpr{Base: ast.Base{Pos: pos}, Value: lit}, nil
	case lexer.REGEX:
		lit := p.lit
		p.next()
		return &ast.RegExpr{Base: ast.Base{Pos: pos}, Regex: lit}, nil
	case lexer.GETLINE:
		return p.parseGetline()
	case lexer.LPAREN:
		p.next()
		first, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.tok == lexer.COMMA {
			// "(a, b) in arr" multi-dimensional membership test.
			idx := []ast.Expr{first}
			for p.tok == lexer.COMMA {
				p.next()
				e, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				idx = append(idx, e)
			}
			if err := p.expect(lexer.RPAREN); err != nil {
				return nil, err
			}
			if err := p.expect(lexer.IN); err != nil {
				return nil, err
			}
			if p.tok != lexer.NAME {
				return nil, p.errorf("expected array name after 'in', got %s", p.tok)
			}
			arr := &ast.VarExpr{Name: p.lit}
			p.next()
			return &ast.InExpr{Base: ast.Base{Pos: pos}, Index: idx, Array: arr}, nil
		}
		if err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
		return first, nil
	case lexer.FUNC_NAME:
		return p.parseCall(true)
	case lexer.NAME:
		return p.parseNameExpr()
	default:
		return nil, p.errorf("unexpected token %s in expression", p.tok)
	}
}

func parseNumberLiteral(lit string) (float64, error) {
	if len(lit) > 1 && lit[0] == '0' && (lit[1] == 'x' || lit[1] == 'X') {
		n, err := strconv.ParseInt(lit[2:], 16, 64)
		return float64(n), err
	}
	return strconv.ParseFloat(lit, 64)
}

func (p *parser) parseNameExpr() (ast.Expr, error) {
	pos := p.pos
	name := p.lit
	p.next()
	if p.tok == lexer.LBRACKET {
		p.next()
		var idx []ast.Expr
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
		return &ast.IndexExpr{Base: ast.Base{Pos: pos}, Array: &ast.VarExpr{Name: name}, Index: idx}, nil
	}
	if p.nativeFuncs[name] || isKnownBuiltin(name) {
		if p.tok == lexer.LPAREN {
			return p.parseCallArgs(name, false, pos)
		}
	}
	return &ast.VarExpr{Base: ast.Base{Pos: pos}, Name: name}, nil
}

func (p *parser) parseCall(known bool) (ast.Expr, error) {
	pos := p.pos
	name := p.lit
	p.next()
	return p.parseCallArgs(name, known, pos)
}

func (p *parser) parseCallArgs(name string, _ bool, pos ast.Pos) (ast.Expr, error) {
	if err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	var args []ast.Expr
	for p.tok != lexer.RPAREN {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, e)
		if p.tok == lexer.COMMA {
			p.next()
			p.skipNewlines()
		}
	}
	if err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	if isKnownBuiltin(name) || p.nativeFuncs[name] {
		return &ast.CallExpr{Base: ast.Base{Pos: pos}, Name: name, Args: args}, nil
	}
	p.funcNames[name] = true
	return &ast.UserCallExpr{Base: ast.Base{Pos: pos}, Name: name, Args: args}, nil
}

// parseGetline parses all three forms from spec §4.6: plain, into a
// variable, and "getline < file" reading from a named source.
func (p *parser) parseGetline() (ast.Expr, error) {
	pos := p.pos
	p.next()
	var target ast.Expr
	if p.tok == lexer.NAME || p.tok == lexer.DOLLAR {
		t, err := p.parseField()
		if err != nil {
			return nil, err
		}
		target = t
	}
	if p.tok == lexer.LESS {
		p.next()
		src, err := p.parseConcat(false, false)
		if err != nil {
			return nil, err
		}
		return &ast.GetlineExpr{Base: ast.Base{Pos: pos}, Target: target, Command: src, IsCmd: false}, nil
	}
	return &ast.GetlineExpr{Base: ast.Base{Pos: pos}, Target: target}, nil
}

// builtinNames is the fixed built-in function table from spec §4.7.
var builtinNames = map[string]bool{
	"length": true, "substr": true, "index": true, "split": true,
	"sub": true, "gsub": true, "match": true, "sprintf": true,
	"tolower": true, "toupper": true, "hex": true, "strtonum": true,
	"join_fields": true, "join_csv": true, "join_tsv": true, "gensub": true,
	"int": true, "abs": true, "sin": true, "cos": true, "atan2": true,
	"exp": true, "log": true, "sqrt": true, "rand": true, "srand": true,
	"min": true, "max": true, "delete": true, "asort": true, "seq": true,
	"_join": true, "_min": true, "_max": true, "_sum": true, "_mean": true,
	"uniq": true, "isarray": true, "typeof": true, "system": true, "close": true,
	"fflush": true, "from_csv": true, "to_csv": true,
}

func isKnownBuiltin(name string) bool { return builtinNames[name] }
