package ir

import (
	"go/token"
	"math/bits"
	"strconv"
)

// Role classifies how a variable is connected to the outside of a function.
type Role int

const (
	RoleNone Role = iota
	RoleInput
	RoleOutput
	RoleInternal
)

// Expr is implemented by every node that can appear as an operand: the
// literals and *Op.
type Expr interface {
	isExpr()
}

// Literal is a leaf operand with a bit width and a dataflow level.
type Literal interface {
	Expr
	Width() int
	Level() int
	isLiteral()
}

// Variable is a named signal. Register incarnations created by retiming keep
// the source name in Base.
type Variable struct {
	Name      string
	Base      string
	Role      Role
	Size      int
	Register  bool
	Stage     int
	TreeLevel int
	Stream    bool
	// WidthHint is the width implied by a typed front end, used when the
	// configuration does not mention the port.
	WidthHint int
	Pos       token.Pos
}

// NewVariable returns an unclassified variable with an undefined level.
func NewVariable(name string) *Variable {
	return &Variable{Name: name, Base: name, TreeLevel: -1}
}

func (*Variable) isExpr()    {}
func (*Variable) isLiteral() {}

func (v *Variable) Width() int { return v.Size }
func (v *Variable) Level() int { return v.TreeLevel }

// SourceName returns the name the variable had before retiming.
func (v *Variable) SourceName() string {
	if v.Base != "" {
		return v.Base
	}
	return v.Name
}

// Number is an integer constant.
type Number struct {
	Value int64
	Pos   token.Pos
}

func (*Number) isExpr()    {}
func (*Number) isLiteral() {}

// Width reserves a sign bit and a guard bit on top of the magnitude.
func (n *Number) Width() int { return NumberWidth(n.Value) }

func (*Number) Level() int { return 0 }

// NumberWidth returns floor(log2(|v|)) + 2, with zero taking a single bit.
func NumberWidth(v int64) int {
	if v == 0 {
		return 1
	}
	mag := uint64(v)
	if v < 0 {
		mag = uint64(-v)
	}
	return bits.Len64(mag) + 1
}

// Bool is a boolean constant.
type Bool struct {
	Value bool
	Pos   token.Pos
}

func (*Bool) isExpr()    {}
func (*Bool) isLiteral() {}

func (*Bool) Width() int { return 1 }
func (*Bool) Level() int { return 0 }

// OpKind enumerates the operator symbols of the language.
type OpKind int

const (
	OpLoad OpKind = iota
	OpAdd
	OpSub
	OpMul
	OpShr
	OpAnd
	OpOr
	OpNot
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpSignal
)

var opSymbols = [...]string{
	OpLoad:   "load",
	OpAdd:    "+",
	OpSub:    "-",
	OpMul:    "*",
	OpShr:    ">>",
	OpAnd:    "and",
	OpOr:     "or",
	OpNot:    "not",
	OpEq:     "==",
	OpNe:     "!=",
	OpLt:     "<",
	OpLe:     "<=",
	OpGt:     ">",
	OpGe:     ">=",
	OpSignal: "signal",
}

func (k OpKind) String() string {
	if k >= 0 && int(k) < len(opSymbols) {
		return opSymbols[k]
	}
	return "?"
}

// IsComparison reports whether the operator yields a truth value.
func (k OpKind) IsComparison() bool {
	switch k {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return true
	}
	return false
}

// Op is a binary tree node. A node with only Left is a pass-through load, a
// node with only Right is a unary operator and a node with neither is a bare
// placeholder.
type Op struct {
	Left  Expr
	Kind  OpKind
	Right Expr
}

func (*Op) isExpr() {}

// NewLoad wraps a single operand into a pass-through node.
func NewLoad(e Expr) *Op {
	return &Op{Left: e, Kind: OpLoad}
}

// Canonical reports whether both children are leaves.
func (o *Op) Canonical() bool {
	_, l := o.Left.(*Op)
	_, r := o.Right.(*Op)
	return !l && !r
}

// Variables returns the distinct variables referenced anywhere below o, left
// to right.
func (o *Op) Variables() []*Variable {
	var out []*Variable
	seen := make(map[*Variable]bool)
	var walk func(e Expr)
	walk = func(e Expr) {
		switch n := e.(type) {
		case *Variable:
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		case *Op:
			walk(n.Left)
			walk(n.Right)
		}
	}
	walk(o)
	return out
}

// Clone returns a deep copy of the operator tree; leaves are shared.
func (o *Op) Clone() *Op {
	if o == nil {
		return nil
	}
	return &Op{Left: cloneExpr(o.Left), Kind: o.Kind, Right: cloneExpr(o.Right)}
}

func cloneExpr(e Expr) Expr {
	if op, ok := e.(*Op); ok {
		return op.Clone()
	}
	return e
}

// Stmt is implemented by *Assign, *IfElse, *Return and *Function.
type Stmt interface {
	isStmt()
}

// Guard is one (condition, polarity) entry accumulated from enclosing
// conditionals.
type Guard struct {
	Cond     *Op
	Polarity bool
}

// Assign stores an expression into Target. Ops[0] is the expression root.
type Assign struct {
	Target  *Variable
	Ops     []*Op
	Guards  []Guard
	Clocked bool
	Pos     token.Pos
}

func (*Assign) isStmt() {}

// NewAssign builds an assignment of a single expression root.
func NewAssign(target *Variable, root *Op) *Assign {
	return &Assign{Target: target, Ops: []*Op{root}}
}

// Root returns the expression root or nil when the list is not a single tree.
func (a *Assign) Root() *Op {
	if len(a.Ops) != 1 {
		return nil
	}
	return a.Ops[0]
}

// InnermostGuard returns the last pushed guard.
func (a *Assign) InnermostGuard() (Guard, bool) {
	if len(a.Guards) == 0 {
		return Guard{}, false
	}
	return a.Guards[len(a.Guards)-1], true
}

// IfElse is a conditional with an optional else body.
type IfElse struct {
	Cond *Op
	Then *Body
	Else *Body
	Pos  token.Pos
}

func (*IfElse) isStmt() {}

// Return lists the function outputs.
type Return struct {
	Vars []*Variable
	Pos  token.Pos
}

func (*Return) isStmt() {}

// Body is an ordered statement list at a nesting level.
type Body struct {
	Level int
	Stmts []Stmt
}

// NewBody returns an empty body at level.
func NewBody(level int) *Body {
	return &Body{Level: level}
}

// Add appends a statement.
func (b *Body) Add(st Stmt) {
	b.Stmts = append(b.Stmts, st)
}

// Assigns returns the top-level assignments of the body.
func (b *Body) Assigns() []*Assign {
	var out []*Assign
	for _, st := range b.Stmts {
		if a, ok := st.(*Assign); ok {
			out = append(out, a)
		}
	}
	return out
}

// Function is a function definition with its flat variable scope.
type Function struct {
	Name   string
	Params []*Variable
	Body   *Body
	Scope  *Scope
	Pos    token.Pos
}

func (*Function) isStmt() {}

// NewFunction returns an empty function one level below parent.
func NewFunction(name string, level int) *Function {
	return &Function{
		Name:  name,
		Body:  NewBody(level + 1),
		Scope: NewScope(),
	}
}

// AddParam declares an input port parameter at dataflow level 0.
func (f *Function) AddParam(v *Variable) {
	v.Role = RoleInput
	v.TreeLevel = 0
	f.Scope.Add(v)
	f.Params = append(f.Params, v)
}

// Return returns the trailing return statement, if any.
func (f *Function) Return() *Return {
	if f.Body == nil || len(f.Body.Stmts) == 0 {
		return nil
	}
	r, _ := f.Body.Stmts[len(f.Body.Stmts)-1].(*Return)
	return r
}

// Program is the parsed compilation unit.
type Program struct {
	Name  string
	Stmts []Stmt
}

// Scope maps names to variables and remembers declaration order.
type Scope struct {
	vars  map[string]*Variable
	order []string
}

// NewScope returns an empty scope.
func NewScope() *Scope {
	return &Scope{vars: make(map[string]*Variable)}
}

// Lookup returns the named variable.
func (s *Scope) Lookup(name string) (*Variable, bool) {
	v, ok := s.vars[name]
	return v, ok
}

// Add inserts or replaces a variable.
func (s *Scope) Add(v *Variable) {
	if _, ok := s.vars[v.Name]; !ok {
		s.order = append(s.order, v.Name)
	}
	s.vars[v.Name] = v
}

// Get returns the named variable, creating it when missing.
func (s *Scope) Get(name string) *Variable {
	if v, ok := s.vars[name]; ok {
		return v
	}
	v := NewVariable(name)
	s.Add(v)
	return v
}

// Fresh creates a variable whose name is base, or base with a numeric suffix
// when base is taken.
func (s *Scope) Fresh(base string) *Variable {
	name := base
	for i := 1; ; i++ {
		if _, taken := s.vars[name]; !taken {
			break
		}
		name = base + "_" + strconv.Itoa(i)
	}
	return s.Get(name)
}

// Variables returns all variables in declaration order.
func (s *Scope) Variables() []*Variable {
	out := make([]*Variable, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.vars[name])
	}
	return out
}
