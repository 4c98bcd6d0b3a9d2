package frontend

import (
	"fmt"
	"go/ast"
	"go/constant"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"

	"pipesynth/internal/diag"
	"pipesynth/internal/ir"
	"pipesynth/internal/validate"
)

var binaryOps = map[token.Token]ir.OpKind{
	token.ADD:  ir.OpAdd,
	token.SUB:  ir.OpSub,
	token.MUL:  ir.OpMul,
	token.SHR:  ir.OpShr,
	token.LAND: ir.OpAnd,
	token.LOR:  ir.OpOr,
	token.EQL:  ir.OpEq,
	token.NEQ:  ir.OpNe,
	token.LSS:  ir.OpLt,
	token.LEQ:  ir.OpLe,
	token.GTR:  ir.OpGt,
	token.GEQ:  ir.OpGe,
}

// ParseGoSource parses and type-checks a single self-contained Go file and
// converts its first function (or the named one) without invoking the go
// command.
func ParseGoSource(fset *token.FileSet, filename string, src []byte, function string, reporter *diag.Reporter) (*ir.Program, error) {
	file, err := parser.ParseFile(fset, filename, src, parser.SkipObjectResolution)
	if err != nil {
		return nil, diag.Errorf(diag.ErrSyntax, filename, "%v", err)
	}
	info := &types.Info{
		Types: make(map[ast.Expr]types.TypeAndValue),
		Defs:  make(map[*ast.Ident]types.Object),
		Uses:  make(map[*ast.Ident]types.Object),
	}
	conf := types.Config{
		Importer: importer.Default(),
		Error: func(err error) {
			if te, ok := err.(types.Error); ok {
				reporter.Error(te.Pos, te.Msg)
				return
			}
			reporter.Errorf("%v", err)
		},
	}
	if _, err := conf.Check(file.Name.Name, fset, []*ast.File{file}, info); err != nil {
		return nil, fmt.Errorf("type checking failed: %w", err)
	}
	decl := findFunc(file, function)
	if decl == nil {
		return nil, diag.Errorf(diag.ErrStructural, function, "expecting function in %s", filename)
	}
	if err := validate.CheckFunction(decl, info, reporter); err != nil {
		return nil, err
	}
	return ConvertFunc(decl, info, programName(filename))
}

// ConvertFunc translates a validated function declaration into a program
// holding a single function. Sized integer parameter and result types become
// width hints.
func ConvertFunc(decl *ast.FuncDecl, info *types.Info, name string) (*ir.Program, error) {
	fn := ir.NewFunction(decl.Name.Name, 0)
	fn.Pos = decl.Pos()
	c := &converter{fn: fn, info: info}

	for _, field := range decl.Type.Params.List {
		hint := 0
		if info != nil {
			hint = validate.IntegerWidth(info.TypeOf(field.Type))
		}
		for _, id := range field.Names {
			v := ir.NewVariable(id.Name)
			v.Pos = id.Pos()
			v.WidthHint = hint
			fn.AddParam(v)
		}
	}
	var resultHints []int
	if decl.Type.Results != nil {
		for _, field := range decl.Type.Results.List {
			hint := 0
			if info != nil {
				hint = validate.IntegerWidth(info.TypeOf(field.Type))
			}
			n := len(field.Names)
			if n == 0 {
				n = 1
			}
			for i := 0; i < n; i++ {
				resultHints = append(resultHints, hint)
			}
		}
	}

	if err := c.block(decl.Body.List, fn.Body); err != nil {
		return nil, err
	}
	if ret := fn.Return(); ret != nil {
		for i, v := range ret.Vars {
			if i < len(resultHints) && v.WidthHint == 0 {
				v.WidthHint = resultHints[i]
			}
		}
	}
	return &ir.Program{Name: name, Stmts: []ir.Stmt{fn}}, nil
}

type converter struct {
	fn   *ir.Function
	info *types.Info
}

func (c *converter) variable(id *ast.Ident) *ir.Variable {
	v := c.fn.Scope.Get(id.Name)
	if v.Pos == token.NoPos {
		v.Pos = id.Pos()
	}
	if v.WidthHint == 0 && c.info != nil {
		if obj := c.info.Defs[id]; obj != nil {
			v.WidthHint = validate.IntegerWidth(obj.Type())
		}
	}
	return v
}

func (c *converter) block(stmts []ast.Stmt, body *ir.Body) error {
	for _, st := range stmts {
		switch s := st.(type) {
		case *ast.AssignStmt:
			id, ok := s.Lhs[0].(*ast.Ident)
			if !ok || len(s.Rhs) != 1 {
				return diag.Errorf(diag.ErrUnsupportedConstruct, "assignment", "single named target expected").At(s.Pos())
			}
			e, err := c.expr(s.Rhs[0])
			if err != nil {
				return err
			}
			a := ir.NewAssign(c.variable(id), asOp(e))
			a.Pos = s.Pos()
			body.Add(a)
		case *ast.IfStmt:
			st, err := c.ifStmt(s, body.Level)
			if err != nil {
				return err
			}
			body.Add(st)
		case *ast.ReturnStmt:
			ret := &ir.Return{Pos: s.Pos()}
			for _, res := range s.Results {
				id, ok := res.(*ast.Ident)
				if !ok {
					return diag.Errorf(diag.ErrUnsupportedConstruct, "return", "named return values expected").At(res.Pos())
				}
				ret.Vars = append(ret.Vars, c.variable(id))
			}
			body.Add(ret)
		case *ast.EmptyStmt:
		default:
			return diag.Errorf(diag.ErrUnsupportedConstruct, fmt.Sprintf("%T", st), "statement not supported").At(st.Pos())
		}
	}
	return nil
}

func (c *converter) ifStmt(s *ast.IfStmt, level int) (*ir.IfElse, error) {
	cond, err := c.expr(s.Cond)
	if err != nil {
		return nil, err
	}
	st := &ir.IfElse{Cond: asOp(cond), Then: ir.NewBody(level + 1), Pos: s.Pos()}
	if err := c.block(s.Body.List, st.Then); err != nil {
		return nil, err
	}
	switch e := s.Else.(type) {
	case *ast.BlockStmt:
		st.Else = ir.NewBody(level + 1)
		if err := c.block(e.List, st.Else); err != nil {
			return nil, err
		}
	case *ast.IfStmt:
		st.Else = ir.NewBody(level + 1)
		nested, err := c.ifStmt(e, level+1)
		if err != nil {
			return nil, err
		}
		st.Else.Add(nested)
	}
	return st, nil
}

func (c *converter) expr(e ast.Expr) (ir.Expr, error) {
	if c.info != nil {
		if tv, ok := c.info.Types[e]; ok && tv.Value != nil && tv.Value.Kind() == constant.Bool {
			return &ir.Bool{Value: constant.BoolVal(tv.Value), Pos: e.Pos()}, nil
		}
	}
	if v, ok := validate.ConstantInt(c.info, e); ok {
		return &ir.Number{Value: v, Pos: e.Pos()}, nil
	}
	switch x := e.(type) {
	case *ast.ParenExpr:
		return c.expr(x.X)
	case *ast.Ident:
		if c.info == nil && (x.Name == "true" || x.Name == "false") {
			return &ir.Bool{Value: x.Name == "true", Pos: x.Pos()}, nil
		}
		return c.variable(x), nil
	case *ast.BasicLit:
		return nil, diag.Errorf(diag.ErrUnsupportedConstruct, x.Value, "literal not supported").At(x.Pos())
	case *ast.CallExpr:
		if !validate.IsConversion(c.info, x) {
			return nil, diag.Errorf(diag.ErrUnsupportedConstruct, types.ExprString(x), "function call not supported").At(x.Pos())
		}
		return c.expr(x.Args[0])
	case *ast.UnaryExpr:
		if x.Op == token.SUB {
			if v, ok := validate.ConstantInt(c.info, x.X); ok {
				return &ir.Number{Value: -v, Pos: x.Pos()}, nil
			}
		}
		if x.Op != token.NOT {
			return nil, diag.Errorf(diag.ErrUnsupportedConstruct, types.ExprString(x), "operator %s not supported", x.Op).At(x.Pos())
		}
		operand, err := c.expr(x.X)
		if err != nil {
			return nil, err
		}
		return &ir.Op{Kind: ir.OpNot, Right: operand}, nil
	case *ast.BinaryExpr:
		kind, ok := binaryOps[x.Op]
		if !ok {
			return nil, diag.Errorf(diag.ErrUnsupportedConstruct, types.ExprString(x), "operator %s not supported", x.Op).At(x.OpPos)
		}
		left, err := c.expr(x.X)
		if err != nil {
			return nil, err
		}
		right, err := c.expr(x.Y)
		if err != nil {
			return nil, err
		}
		return &ir.Op{Left: left, Kind: kind, Right: right}, nil
	}
	return nil, diag.Errorf(diag.ErrUnsupportedConstruct, types.ExprString(e), "expression not supported").At(e.Pos())
}
