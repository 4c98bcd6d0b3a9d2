package validate

import (
	"fmt"
	"go/ast"
	"go/constant"
	"go/token"
	"go/types"

	"golang.org/x/tools/go/ast/astutil"

	"pipesynth/internal/diag"
)

// CheckFunction validates that decl only uses the Go subset the synthesizer
// understands: single-target assignments of integer arithmetic, if/else and
// a trailing return of named values. info may be nil; without type
// information conversions cannot be told apart from calls and are rejected.
func CheckFunction(decl *ast.FuncDecl, info *types.Info, reporter *diag.Reporter) error {
	if decl == nil || decl.Body == nil {
		return fmt.Errorf("no function body to validate")
	}
	if reporter == nil {
		return fmt.Errorf("no reporter provided for validation")
	}
	c := &checker{reporter: reporter, info: info}
	c.checkSignature(decl)
	c.checkBody(decl.Body.List, true)
	if c.errCount > 0 {
		return fmt.Errorf("validation failed with %d issue(s)", c.errCount)
	}
	return nil
}

type checker struct {
	reporter *diag.Reporter
	info     *types.Info
	errCount int
}

func (c *checker) checkSignature(decl *ast.FuncDecl) {
	if decl.Recv != nil {
		c.error(decl.Pos(), "methods are not supported; %s must be a plain function", decl.Name.Name)
	}
	if decl.Type.TypeParams != nil && decl.Type.TypeParams.NumFields() > 0 {
		c.error(decl.Type.TypeParams.Pos(), "type parameters are not supported")
	}
	if c.info == nil {
		return
	}
	for _, field := range decl.Type.Params.List {
		if !isIntegerOrBool(c.info.TypeOf(field.Type)) {
			c.error(field.Pos(), "parameter type %s is not supported; only integers and booleans are allowed", types.ExprString(field.Type))
		}
	}
}

func (c *checker) checkBody(stmts []ast.Stmt, top bool) {
	for i, st := range stmts {
		switch s := st.(type) {
		case *ast.AssignStmt:
			c.checkAssign(s)
		case *ast.IfStmt:
			c.checkIf(s)
		case *ast.ReturnStmt:
			if !top || i != len(stmts)-1 {
				c.error(s.Pos(), "return must be the last statement of the function body")
			}
			for _, res := range s.Results {
				if _, ok := res.(*ast.Ident); !ok {
					c.error(res.Pos(), "return values must be named variables")
				}
			}
		case *ast.ForStmt, *ast.RangeStmt:
			c.error(st.Pos(), "loops are not supported in pipeline functions")
		case *ast.GoStmt:
			c.error(st.Pos(), "goroutines are not supported in pipeline functions")
		case *ast.SelectStmt, *ast.SendStmt:
			c.error(st.Pos(), "channel operations are not supported in pipeline functions")
		case *ast.SwitchStmt, *ast.TypeSwitchStmt:
			c.error(st.Pos(), "switch statements are not supported; use if/else")
		case *ast.DeferStmt:
			c.error(st.Pos(), "defer is not supported")
		case *ast.IncDecStmt:
			c.error(st.Pos(), "%s is not supported; write an explicit assignment", s.Tok)
		case *ast.EmptyStmt:
		default:
			c.error(st.Pos(), "statement %T is not supported", st)
		}
	}
}

func (c *checker) checkAssign(s *ast.AssignStmt) {
	if s.Tok != token.ASSIGN && s.Tok != token.DEFINE {
		c.error(s.TokPos, "compound assignment %s is not supported", s.Tok)
		return
	}
	if len(s.Lhs) != 1 || len(s.Rhs) != 1 {
		c.error(s.Pos(), "multiple assignment is not supported")
		return
	}
	if id, ok := s.Lhs[0].(*ast.Ident); !ok || id.Name == "_" {
		c.error(s.Lhs[0].Pos(), "assignment target must be a named variable")
	}
	c.checkExpr(s.Rhs[0])
}

func (c *checker) checkIf(s *ast.IfStmt) {
	if s.Init != nil {
		c.error(s.Init.Pos(), "if statements with an init clause are not supported")
	}
	c.checkExpr(s.Cond)
	c.checkBody(s.Body.List, false)
	switch e := s.Else.(type) {
	case nil:
	case *ast.BlockStmt:
		c.checkBody(e.List, false)
	case *ast.IfStmt:
		c.checkIf(e)
	}
}

func (c *checker) checkExpr(e ast.Expr) {
	ast.Inspect(e, func(n ast.Node) bool {
		switch x := n.(type) {
		case nil:
			return false
		case *ast.BinaryExpr:
			if _, ok := SupportedBinary[x.Op]; !ok {
				c.error(x.OpPos, "operator %s is not supported", x.Op)
			}
			if x.Op == token.SHR {
				if _, ok := ConstantInt(c.info, x.Y); !ok {
					c.error(x.Y.Pos(), "only shift by a constant is supported")
				}
			}
		case *ast.UnaryExpr:
			switch x.Op {
			case token.NOT:
			case token.SUB:
				if _, ok := ConstantInt(c.info, x.X); !ok {
					c.error(x.OpPos, "unary minus applies to constants only")
				}
			default:
				c.error(x.OpPos, "operator %s is not supported", x.Op)
			}
		case *ast.CallExpr:
			if !IsConversion(c.info, x) {
				c.error(x.Pos(), "function calls are not supported in pipeline functions")
				return false
			}
		case *ast.BasicLit:
			if x.Kind != token.INT {
				c.error(x.Pos(), "literal %s is not supported; only integers are allowed", x.Value)
			}
		case *ast.IndexExpr, *ast.IndexListExpr, *ast.SliceExpr:
			c.error(x.Pos(), "indexing is not supported")
			return false
		case *ast.CompositeLit:
			c.error(x.Pos(), "composite literals are not supported")
			return false
		case *ast.FuncLit:
			c.error(x.Pos(), "function literals are not supported")
			return false
		case *ast.SelectorExpr:
			c.error(x.Pos(), "selectors are not supported")
			return false
		case *ast.StarExpr:
			c.error(x.Pos(), "pointers are not supported")
			return false
		}
		return true
	})
}

func (c *checker) error(pos token.Pos, format string, args ...any) {
	c.errCount++
	if c.reporter != nil {
		c.reporter.Error(pos, fmt.Sprintf(format, args...))
	}
}

// SupportedBinary lists the binary operators of the subset.
var SupportedBinary = map[token.Token]struct{}{
	token.ADD:  {},
	token.SUB:  {},
	token.MUL:  {},
	token.SHR:  {},
	token.LAND: {},
	token.LOR:  {},
	token.EQL:  {},
	token.NEQ:  {},
	token.LSS:  {},
	token.LEQ:  {},
	token.GTR:  {},
	token.GEQ:  {},
}

// IsConversion reports whether call is a type conversion rather than a
// function call.
func IsConversion(info *types.Info, call *ast.CallExpr) bool {
	if info == nil || call == nil || len(call.Args) != 1 {
		return false
	}
	tv, ok := info.Types[call.Fun]
	return ok && tv.IsType()
}

// ConstantInt folds expr to an integer constant when the type checker knows
// its value. Without type information only integer literals fold.
func ConstantInt(info *types.Info, expr ast.Expr) (int64, bool) {
	if info == nil {
		lit, ok := astutil.Unparen(expr).(*ast.BasicLit)
		if !ok || lit.Kind != token.INT {
			return 0, false
		}
		return intVal(constant.MakeFromLiteral(lit.Value, lit.Kind, 0))
	}
	if ident, ok := expr.(*ast.Ident); ok {
		if obj, ok := info.ObjectOf(ident).(*types.Const); ok && obj.Val() != nil {
			return intVal(obj.Val())
		}
	}
	tv, ok := info.Types[expr]
	if !ok || tv.Value == nil {
		if call, ok := expr.(*ast.CallExpr); ok && len(call.Args) == 1 {
			return ConstantInt(info, call.Args[0])
		}
		return 0, false
	}
	return intVal(tv.Value)
}

func intVal(v constant.Value) (int64, bool) {
	if v.Kind() != constant.Int {
		return 0, false
	}
	return constant.Int64Val(v)
}

// IntegerWidth returns the bit width of a sized integer type, 1 for bool and
// 0 when the type does not fix a width.
func IntegerWidth(t types.Type) int {
	if t == nil {
		return 0
	}
	b, ok := t.Underlying().(*types.Basic)
	if !ok {
		return 0
	}
	switch b.Kind() {
	case types.Bool:
		return 1
	case types.Int8, types.Uint8:
		return 8
	case types.Int16, types.Uint16:
		return 16
	case types.Int32, types.Uint32:
		return 32
	case types.Int64, types.Uint64:
		return 64
	}
	return 0
}

func isIntegerOrBool(t types.Type) bool {
	if t == nil {
		return false
	}
	b, ok := t.Underlying().(*types.Basic)
	if !ok {
		return false
	}
	return b.Info()&types.IsInteger != 0 || b.Kind() == types.Bool
}
