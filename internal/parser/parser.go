// Package parser is a recursive-descent statement parser plus a Pratt
// expression parser, grounded in the teacher's hand-rolled parser_pratt.go
// precedence-climbing style. It stays a thin, permissive front end: syntax
// for generics, multi-assign, and array literals parses successfully here
// and is rejected later by the lowerer (spec.md §7 Unsupported). Multiple
// return types, struct literals, and break are not parsed; they are
// reported as parse errors.
package parser

import (
	"strconv"

	"blocklang/internal/ast"
	"blocklang/internal/errors"
	"blocklang/internal/lexer"
)

// Parser consumes a token stream produced by internal/lexer.
type Parser struct {
	filename string
	tokens   []lexer.Token
	pos      int
	errs     []errors.ParseError
}

// ParseSource scans and parses one named source buffer, returning the AST
// together with any scan or parse errors collected along the way. Mirrors
// the teacher's ParseSource(path, source) signature.
func ParseSource(filename, source string) (*ast.Program, []errors.ParseError, []errors.ScanError) {
	sc := lexer.NewScanner(filename, source)
	toks, scanErrs := sc.ScanTokens()

	p := &Parser{filename: filename, tokens: toks}
	prog := p.parseProgram()

	return prog, p.errs, scanErrs
}

func (p *Parser) peek() lexer.Token  { return p.tokens[p.pos] }
func (p *Parser) previous() lexer.Token {
	if p.pos == 0 {
		return p.tokens[0]
	}
	return p.tokens[p.pos-1]
}
func (p *Parser) atEnd() bool { return p.peek().Type == lexer.EOF }

func (p *Parser) advance() lexer.Token {
	if !p.atEnd() {
		p.pos++
	}
	return p.previous()
}

func (p *Parser) check(t lexer.TokenType) bool {
	return !p.atEnd() && p.peek().Type == t
}

func (p *Parser) match(types ...lexer.TokenType) bool {
	for _, t := range types {
		if p.check(t) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *Parser) consume(t lexer.TokenType, msg string) lexer.Token {
	if p.check(t) {
		return p.advance()
	}
	p.errs = append(p.errs, errors.ParseError{Pos: p.peek().Pos, Message: msg, Code: errors.ErrorUnexpectedToken})
	return p.peek()
}

func (p *Parser) parseProgram() *ast.Program {
	prog := &ast.Program{}
	for !p.atEnd() {
		if p.check(lexer.DEF) {
			prog.Functions = append(prog.Functions, p.parseFunction())
		} else {
			p.errs = append(p.errs, errors.ParseError{Pos: p.peek().Pos, Message: "expected 'def'", Code: errors.ErrorUnexpectedToken})
			p.advance()
		}
	}
	return prog
}

func isTypeToken(t lexer.TokenType) bool {
	switch t {
	case lexer.FIELD, lexer.BOOLTY, lexer.U8TY, lexer.U16TY, lexer.U32TY, lexer.U64TY:
		return true
	default:
		return false
	}
}

func (p *Parser) parseType() ast.TypeName {
	tok := p.advance()
	switch tok.Type {
	case lexer.FIELD:
		return ast.TypeField
	case lexer.BOOLTY:
		return ast.TypeBool
	case lexer.U8TY:
		return ast.TypeU8
	case lexer.U16TY:
		return ast.TypeU16
	case lexer.U32TY:
		return ast.TypeU32
	case lexer.U64TY:
		return ast.TypeU64
	default:
		p.errs = append(p.errs, errors.ParseError{Pos: tok.Pos, Message: "expected a type", Code: errors.ErrorExpectedType})
		return ast.TypeField
	}
}

// parseFunction parses "def name[<generics>](params) -> ret : stmt*" up to
// the next top-level "def" or EOF. Generics syntax is accepted here and
// rejected as Unsupported by the lowerer.
func (p *Parser) parseFunction() *ast.Function {
	start := p.advance() // 'def'
	nameTok := p.consume(lexer.IDENT, "expected function name")
	fn := &ast.Function{Pos: start.Pos, Name: nameTok.Literal}

	if p.match(lexer.LT) {
		for {
			g := p.consume(lexer.IDENT, "expected generic parameter name")
			fn.Generics = append(fn.Generics, g.Literal)
			if !p.match(lexer.COMMA) {
				break
			}
		}
		p.consume(lexer.GT, "expected '>' after generic parameters")
	}

	p.consume(lexer.LPAREN, "expected '(' after function name")
	for !p.check(lexer.RPAREN) && !p.atEnd() {
		pt := p.parseType()
		nTok := p.consume(lexer.IDENT, "expected parameter name")
		fn.Params = append(fn.Params, &ast.Param{Pos: nTok.Pos, Name: nTok.Literal, Type: pt})
		if !p.match(lexer.COMMA) {
			break
		}
	}
	p.consume(lexer.RPAREN, "expected ')' after parameters")
	p.consume(lexer.ARROW, "expected '->' before return type")
	fn.Return = p.parseType()
	p.consume(lexer.COLON, "expected ':' before function body")

	for !p.check(lexer.DEF) && !p.atEnd() {
		fn.Body = append(fn.Body, p.parseStmt())
	}
	return fn
}

func (p *Parser) parseBlockUntil(terminators ...lexer.TokenType) []ast.Stmt {
	var stmts []ast.Stmt
	for !p.atEnd() {
		for _, t := range terminators {
			if p.check(t) {
				return stmts
			}
		}
		stmts = append(stmts, p.parseStmt())
	}
	return stmts
}

func (p *Parser) parseStmt() ast.Stmt {
	switch {
	case p.check(lexer.RETURN):
		tok := p.advance()
		v := p.parseExpr()
		return &ast.ReturnStmt{Pos: tok.Pos, Value: v}
	case p.check(lexer.ASSERT):
		tok := p.advance()
		v := p.parseExpr()
		return &ast.AssertStmt{Pos: tok.Pos, Value: v}
	case p.check(lexer.FOR):
		return p.parseForIn()
	case p.check(lexer.IF):
		return p.parseIf()
	case isTypeToken(p.peek().Type):
		return p.parseDeclDef()
	case p.check(lexer.IDENT):
		return p.parseAssignOrMultiAssign()
	default:
		tok := p.advance()
		p.errs = append(p.errs, errors.ParseError{Pos: tok.Pos, Message: "expected a statement", Code: errors.ErrorUnexpectedToken})
		return &ast.AssertStmt{Pos: tok.Pos, Value: &ast.Literal{Pos: tok.Pos, Kind: ast.LitBool, Bool: true}}
	}
}

func (p *Parser) parseForIn() ast.Stmt {
	tok := p.advance() // 'for'
	ty := p.parseType()
	nameTok := p.consume(lexer.IDENT, "expected loop variable name")
	p.consume(lexer.IN, "expected 'in' after loop variable")
	from := p.parseExpr()
	p.consume(lexer.DOTDOT, "expected '..' in loop range")
	to := p.parseExpr()
	p.consume(lexer.DO, "expected 'do' to start loop body")
	body := p.parseBlockUntil(lexer.ENDFOR)
	p.consume(lexer.ENDFOR, "expected 'endfor'")
	return &ast.ForInStmt{Pos: tok.Pos, VarType: ty, VarName: nameTok.Literal, From: from, To: to, Body: body}
}

func (p *Parser) parseIf() ast.Stmt {
	tok := p.advance() // 'if'
	cond := p.parseExpr()
	p.consume(lexer.THEN, "expected 'then' after condition")
	thenBody := p.parseBlockUntil(lexer.ELSE, lexer.ENDIF)
	var elseBody []ast.Stmt
	if p.match(lexer.ELSE) {
		elseBody = p.parseBlockUntil(lexer.ENDIF)
	}
	p.consume(lexer.ENDIF, "expected 'endif'")
	return &ast.IfStmt{Pos: tok.Pos, Cond: cond, Then: thenBody, Else: elseBody}
}

func (p *Parser) parseDeclDef() ast.Stmt {
	ty := p.parseType()
	nameTok := p.consume(lexer.IDENT, "expected variable name")
	names := []string{nameTok.Literal}
	for p.match(lexer.COMMA) {
		extra := p.consume(lexer.IDENT, "expected variable name")
		names = append(names, extra.Literal)
	}
	p.consume(lexer.ASSIGN, "expected '=' in definition")
	rhs := p.parseExpr()
	d := &ast.DefStmt{Pos: nameTok.Pos, Declares: true, Type: ty, Name: names[0], Rhs: rhs}
	if len(names) > 1 {
		d.MultiNames = names
	}
	return d
}

func (p *Parser) parseAssignOrMultiAssign() ast.Stmt {
	nameTok := p.advance()
	names := []string{nameTok.Literal}
	for p.match(lexer.COMMA) {
		extra := p.consume(lexer.IDENT, "expected variable name")
		names = append(names, extra.Literal)
	}
	p.consume(lexer.ASSIGN, "expected '=' in assignment")
	rhs := p.parseExpr()
	d := &ast.DefStmt{Pos: nameTok.Pos, Declares: false, Name: names[0], Rhs: rhs}
	if len(names) > 1 {
		d.MultiNames = names
	}
	return d
}

// --- Expressions (Pratt / precedence climbing) ---

var binaryPrecedence = map[lexer.TokenType]int{
	lexer.OR:  1,
	lexer.AND: 2,
	lexer.EQ:  3, lexer.NE: 3,
	lexer.LT: 4, lexer.LE: 4, lexer.GT: 4, lexer.GE: 4,
	lexer.PLUS: 5, lexer.MINUS: 5,
	lexer.STAR: 6, lexer.SLASH: 6, lexer.PERCENT: 6,
}

func (p *Parser) parseExpr() ast.Expr {
	return p.parseTernary()
}

func (p *Parser) parseTernary() ast.Expr {
	cond := p.parseBinary(1)
	if p.match(lexer.QUESTION) {
		thenE := p.parseTernary()
		p.consume(lexer.COLON, "expected ':' in ternary expression")
		elseE := p.parseTernary()
		return &ast.TernaryExpr{Pos: cond.NodePos(), Cond: cond, Then: thenE, Else: elseE}
	}
	return cond
}

func (p *Parser) parseBinary(minPrec int) ast.Expr {
	left := p.parseUnary()
	for {
		tok := p.peek()
		prec, ok := binaryPrecedence[tok.Type]
		if !ok || prec < minPrec {
			break
		}
		p.advance()
		right := p.parseBinary(prec + 1)
		left = &ast.BinaryExpr{Pos: left.NodePos(), Op: string(tok.Type), Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseUnary() ast.Expr {
	if p.match(lexer.BANG, lexer.MINUS) {
		op := p.previous()
		operand := p.parseUnary()
		return &ast.UnaryExpr{Pos: op.Pos, Op: string(op.Type), Operand: operand}
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() ast.Expr {
	expr := p.parsePrimary()
	for p.check(lexer.LBRACKET) {
		p.advance()
		idx := p.parseExpr()
		p.consume(lexer.RBRACKET, "expected ']' after index")
		expr = &ast.IndexExpr{Pos: expr.NodePos(), Base: expr, Index: idx}
	}
	return expr
}

func (p *Parser) parsePrimary() ast.Expr {
	tok := p.peek()
	switch tok.Type {
	case lexer.INT:
		p.advance()
		return p.parseIntLiteral(tok)
	case lexer.TRUE:
		p.advance()
		return &ast.Literal{Pos: tok.Pos, Kind: ast.LitBool, Bool: true}
	case lexer.FALSE:
		p.advance()
		return &ast.Literal{Pos: tok.Pos, Kind: ast.LitBool, Bool: false}
	case lexer.LPAREN:
		p.advance()
		inner := p.parseExpr()
		p.consume(lexer.RPAREN, "expected ')'")
		return inner
	case lexer.LBRACKET:
		return p.parseArrayLit()
	case lexer.IDENT:
		return p.parseIdentOrCall()
	default:
		p.advance()
		p.errs = append(p.errs, errors.ParseError{Pos: tok.Pos, Message: "expected an expression", Code: errors.ErrorUnexpectedToken})
		return &ast.Literal{Pos: tok.Pos, Kind: ast.LitBool, Bool: true}
	}
}

func (p *Parser) parseIntLiteral(tok lexer.Token) ast.Expr {
	digits := tok.Literal
	suffix := ast.TypeName("")
	if i := indexByte(digits, ':'); i >= 0 {
		suffix = ast.TypeName(digits[i+1:])
		digits = digits[:i]
	}
	// Validate it parses cleanly; a malformed literal degrades to field 0
	// rather than aborting the whole parse, matching the scanner's
	// "collect, don't abort" posture.
	if _, err := strconv.ParseUint(digits, 10, 64); err != nil {
		p.errs = append(p.errs, errors.ParseError{Pos: tok.Pos, Message: "malformed integer literal", Code: errors.ErrorUnexpectedToken})
		digits = "0"
	}
	if suffix == "" {
		suffix = ast.TypeField
	}
	return &ast.Literal{Pos: tok.Pos, Kind: ast.LitDecimal, Decimal: digits, Suffix: suffix}
}

func indexByte(s string, c byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			return i
		}
	}
	return -1
}

func (p *Parser) parseArrayLit() ast.Expr {
	tok := p.advance() // '['
	lit := &ast.ArrayLit{Pos: tok.Pos}
	for !p.check(lexer.RBRACKET) && !p.atEnd() {
		lit.Elements = append(lit.Elements, p.parseExpr())
		if !p.match(lexer.COMMA) {
			break
		}
	}
	p.consume(lexer.RBRACKET, "expected ']' to close array literal")
	return lit
}

// parseIdentOrCall distinguishes a bare identifier from a post-fix call
// access, matching spec.md §4.4 ("Calls appear only inside expressions (as
// post-fix call access)"). The callee is always a (possibly ::-qualified)
// name, so a chained call such as f(a)(b) is not parsed; arguments may
// themselves contain calls.
func (p *Parser) parseIdentOrCall() ast.Expr {
	nameTok := p.advance()
	name := nameTok.Literal
	for p.check(lexer.COLONCOLON) {
		p.advance()
		next := p.consume(lexer.IDENT, "expected identifier after '::'")
		name = name + "::" + next.Literal
	}
	if !p.check(lexer.LPAREN) {
		return &ast.Ident{Pos: nameTok.Pos, Value: name}
	}
	p.advance() // '('
	call := &ast.CallExpr{Pos: nameTok.Pos, Callee: name}
	for !p.check(lexer.RPAREN) && !p.atEnd() {
		call.Args = append(call.Args, p.parseExpr())
		if !p.match(lexer.COMMA) {
			break
		}
	}
	p.consume(lexer.RPAREN, "expected ')' after call arguments")
	return call
}
