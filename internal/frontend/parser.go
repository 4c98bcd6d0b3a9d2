package frontend

import (
	"fmt"
	"go/token"
	"strconv"

	"pipesynth/internal/diag"
	"pipesynth/internal/ir"
)

// Parser is a recursive descent parser for the function-description
// language. It stops at the first error.
type Parser struct {
	lex   *Lexer
	tok   Token
	peek  Token
	err   error
	scope *ir.Scope
	level int
}

// NewParser returns a parser reading tokens from lex.
func NewParser(lex *Lexer) *Parser {
	p := &Parser{lex: lex, scope: ir.NewScope()}
	p.next()
	p.next()
	return p
}

// ParseSource parses src as the named file, registering it in fset.
func ParseSource(fset *token.FileSet, filename string, src []byte) (*ir.Program, error) {
	file := fset.AddFile(filename, -1, len(src))
	return NewParser(NewLexer(file, src)).ParseProgram(programName(filename))
}

func (p *Parser) next() {
	p.tok = p.peek
	p.peek = p.lex.Next()
	if p.peek.Kind == Illegal && p.err == nil {
		p.err = diag.Errorf(diag.ErrSyntax, p.peek.Lit, "illegal token").At(p.peek.Pos)
	}
}

func (p *Parser) errorf(pos token.Pos, format string, args ...interface{}) {
	if p.err == nil {
		p.err = diag.Errorf(diag.ErrSyntax, "", format, args...).At(pos)
	}
}

func (p *Parser) expect(k Kind) Token {
	tok := p.tok
	if tok.Kind != k {
		p.errorf(tok.Pos, "expected %s, got %s", k, describe(tok))
		return tok
	}
	p.next()
	return tok
}

func describe(tok Token) string {
	switch tok.Kind {
	case Name, Int, Illegal:
		return fmt.Sprintf("%s %q", tok.Kind, tok.Lit)
	}
	return tok.Kind.String()
}

// ParseProgram parses statements until the end of input.
func (p *Parser) ParseProgram(name string) (*ir.Program, error) {
	prog := &ir.Program{Name: name}
	for p.err == nil && p.tok.Kind != EOF {
		if p.tok.Kind == Newline {
			p.next()
			continue
		}
		if st := p.statement(); st != nil {
			prog.Stmts = append(prog.Stmts, st)
		}
	}
	if p.err != nil {
		return nil, p.err
	}
	return prog, nil
}

func (p *Parser) statement() ir.Stmt {
	switch p.tok.Kind {
	case Def:
		return p.function()
	case If:
		return p.ifStmt()
	case Return:
		return p.returnStmt()
	case Name:
		return p.assignment()
	}
	p.errorf(p.tok.Pos, "unexpected %s", describe(p.tok))
	return nil
}

// block parses an indented statement list into body.
func (p *Parser) block(body *ir.Body) {
	p.expect(Colon)
	p.expect(Newline)
	p.expect(Indent)
	for p.err == nil && p.tok.Kind != Dedent && p.tok.Kind != EOF {
		if st := p.statement(); st != nil {
			body.Add(st)
		}
	}
	p.expect(Dedent)
}

func (p *Parser) function() ir.Stmt {
	pos := p.expect(Def).Pos
	name := p.expect(Name)
	fn := ir.NewFunction(name.Lit, p.level)
	fn.Pos = pos

	outer, outerLevel := p.scope, p.level
	p.scope, p.level = fn.Scope, fn.Body.Level
	defer func() { p.scope, p.level = outer, outerLevel }()

	p.expect(LParen)
	for p.err == nil && p.tok.Kind == Name {
		v := ir.NewVariable(p.tok.Lit)
		v.Pos = p.tok.Pos
		if _, dup := fn.Scope.Lookup(v.Name); dup {
			p.errorf(v.Pos, "duplicate parameter %s", v.Name)
		}
		fn.AddParam(v)
		p.next()
		if p.tok.Kind != Comma {
			break
		}
		p.next()
	}
	p.expect(RParen)
	p.block(fn.Body)
	return fn
}

func (p *Parser) ifStmt() ir.Stmt {
	pos := p.tok.Pos
	p.next() // if or elif
	st := &ir.IfElse{Cond: p.condition(), Pos: pos}
	p.level++
	defer func() { p.level-- }()

	st.Then = ir.NewBody(p.level)
	p.block(st.Then)
	switch p.tok.Kind {
	case Elif:
		st.Else = ir.NewBody(p.level)
		st.Else.Add(p.ifStmt())
	case Else:
		p.next()
		st.Else = ir.NewBody(p.level)
		p.block(st.Else)
	}
	return st
}

func (p *Parser) returnStmt() ir.Stmt {
	ret := &ir.Return{Pos: p.expect(Return).Pos}
	for p.err == nil {
		name := p.expect(Name)
		if p.err != nil {
			break
		}
		v := p.scope.Get(name.Lit)
		if v.Pos == token.NoPos {
			v.Pos = name.Pos
		}
		ret.Vars = append(ret.Vars, v)
		if p.tok.Kind != Comma {
			break
		}
		p.next()
	}
	p.endOfStatement()
	return ret
}

func (p *Parser) assignment() ir.Stmt {
	name := p.expect(Name)
	target := p.scope.Get(name.Lit)
	if target.Pos == token.NoPos {
		target.Pos = name.Pos
	}
	p.expect(Assign)
	a := ir.NewAssign(target, asOp(p.expression()))
	a.Pos = name.Pos
	p.endOfStatement()
	return a
}

func (p *Parser) endOfStatement() {
	if p.tok.Kind == Semicolon {
		p.next()
	}
	if p.tok.Kind == EOF {
		return
	}
	p.expect(Newline)
}

// condition parses `or` of `and` of optionally negated comparisons.
func (p *Parser) condition() *ir.Op {
	return asOp(p.boolOr())
}

func (p *Parser) boolOr() ir.Expr {
	left := p.boolAnd()
	for p.err == nil && p.tok.Kind == Or {
		p.next()
		left = &ir.Op{Left: left, Kind: ir.OpOr, Right: p.boolAnd()}
	}
	return left
}

func (p *Parser) boolAnd() ir.Expr {
	left := p.boolNot()
	for p.err == nil && p.tok.Kind == And {
		p.next()
		left = &ir.Op{Left: left, Kind: ir.OpAnd, Right: p.boolNot()}
	}
	return left
}

func (p *Parser) boolNot() ir.Expr {
	if p.tok.Kind == Not {
		p.next()
		return &ir.Op{Kind: ir.OpNot, Right: p.comparison()}
	}
	return p.comparison()
}

var comparisons = map[Kind]ir.OpKind{
	Eq: ir.OpEq,
	Ne: ir.OpNe,
	Lt: ir.OpLt,
	Le: ir.OpLe,
	Gt: ir.OpGt,
	Ge: ir.OpGe,
}

func (p *Parser) comparison() ir.Expr {
	left := p.expression()
	for p.err == nil {
		kind, ok := comparisons[p.tok.Kind]
		if !ok {
			break
		}
		p.next()
		left = &ir.Op{Left: left, Kind: kind, Right: p.expression()}
	}
	return left
}

// expression parses the additive level.
func (p *Parser) expression() ir.Expr {
	left := p.term()
	for p.err == nil && (p.tok.Kind == Plus || p.tok.Kind == Minus) {
		kind := ir.OpAdd
		if p.tok.Kind == Minus {
			kind = ir.OpSub
		}
		p.next()
		left = &ir.Op{Left: left, Kind: kind, Right: p.term()}
	}
	return left
}

// term parses the multiplicative level: products and right shifts.
func (p *Parser) term() ir.Expr {
	left := p.factor()
	for p.err == nil && (p.tok.Kind == Star || p.tok.Kind == Shr) {
		kind := ir.OpMul
		if p.tok.Kind == Shr {
			kind = ir.OpShr
		}
		p.next()
		left = &ir.Op{Left: left, Kind: kind, Right: p.factor()}
	}
	return left
}

func (p *Parser) factor() ir.Expr {
	tok := p.tok
	switch tok.Kind {
	case LParen:
		p.next()
		e := p.expression()
		p.expect(RParen)
		return e
	case Name:
		p.next()
		v := p.scope.Get(tok.Lit)
		if v.Pos == token.NoPos {
			v.Pos = tok.Pos
		}
		return v
	case Int:
		p.next()
		return p.number(tok, false)
	case Minus:
		p.next()
		if p.tok.Kind != Int {
			p.errorf(p.tok.Pos, "unary minus applies to integer literals only")
			return nil
		}
		lit := p.tok
		p.next()
		return p.number(lit, true)
	case True, False:
		p.next()
		return &ir.Bool{Value: tok.Kind == True, Pos: tok.Pos}
	}
	p.errorf(tok.Pos, "expected operand, got %s", describe(tok))
	return nil
}

func (p *Parser) number(tok Token, negative bool) ir.Expr {
	v, err := strconv.ParseInt(tok.Lit, 10, 64)
	if err != nil {
		p.errorf(tok.Pos, "invalid integer %s: %v", tok.Lit, err)
		return nil
	}
	if negative {
		v = -v
	}
	return &ir.Number{Value: v, Pos: tok.Pos}
}

// asOp wraps a bare operand into a pass-through node.
func asOp(e ir.Expr) *ir.Op {
	if op, ok := e.(*ir.Op); ok {
		return op
	}
	return ir.NewLoad(e)
}
