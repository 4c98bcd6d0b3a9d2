package passes

import (
	"fmt"

	"pipesynth/internal/diag"
	"pipesynth/internal/ir"
)

// Flattener replaces the conditionals of a function body by guard-annotated
// assignments, preserving source order within each branch.
type Flattener struct{}

// NewFlattener constructs the pass.
func NewFlattener() *Flattener {
	return &Flattener{}
}

// Name implements the Pass interface.
func (f *Flattener) Name() string {
	return "flatten"
}

// Run flattens fn's top-level body.
func (f *Flattener) Run(fn *ir.Function) error {
	if err := CheckSingleWriter(fn.Body); err != nil {
		return err
	}
	out := make([]ir.Stmt, 0, len(fn.Body.Stmts))
	for _, st := range fn.Body.Stmts {
		switch s := st.(type) {
		case *ir.IfElse:
			collected, err := f.flattenIf(s, nil, nil)
			if err != nil {
				return err
			}
			for _, a := range collected {
				out = append(out, a)
			}
		case *ir.Assign, *ir.Return, *ir.Function:
			out = append(out, s)
		default:
			return diag.Errorf(diag.ErrInvariant, fmt.Sprintf("%T", st), "unknown statement in body")
		}
	}
	fn.Body.Stmts = out
	return nil
}

// flattenIf walks one conditional depth first. stack holds the guards of the
// enclosing conditionals; every collected assignment gets its own copy.
func (f *Flattener) flattenIf(s *ir.IfElse, stack []ir.Guard, acc []*ir.Assign) ([]*ir.Assign, error) {
	var err error
	stack = append(stack, ir.Guard{Cond: s.Cond, Polarity: true})
	if acc, err = f.flattenBranch(s.Then, stack, acc); err != nil {
		return nil, err
	}
	stack = stack[:len(stack)-1]
	if s.Else != nil {
		stack = append(stack, ir.Guard{Cond: s.Cond, Polarity: false})
		if acc, err = f.flattenBranch(s.Else, stack, acc); err != nil {
			return nil, err
		}
	}
	return acc, nil
}

func (f *Flattener) flattenBranch(body *ir.Body, stack []ir.Guard, acc []*ir.Assign) ([]*ir.Assign, error) {
	if body == nil {
		return acc, nil
	}
	if err := CheckSingleWriter(body); err != nil {
		return nil, err
	}
	var err error
	for _, st := range body.Stmts {
		switch s := st.(type) {
		case *ir.Assign:
			s.Guards = append(s.Guards, stack...)
			acc = append(acc, s)
		case *ir.IfElse:
			// The nested walk pushes onto its own copy of the stack.
			inner := append([]ir.Guard(nil), stack...)
			if acc, err = f.flattenIf(s, inner, acc); err != nil {
				return nil, err
			}
		case *ir.Return:
			return nil, diag.Errorf(diag.ErrStructural, "return", "return inside a conditional branch").At(s.Pos)
		case *ir.Function:
			return nil, diag.Errorf(diag.ErrStructural, s.Name, "nested function definition").At(s.Pos)
		default:
			return nil, diag.Errorf(diag.ErrInvariant, fmt.Sprintf("%T", st), "unknown statement in body")
		}
	}
	return acc, nil
}

// CheckSingleWriter reports a ConflictingAssignmentError when two
// unconditional assignments of body write the same target.
func CheckSingleWriter(body *ir.Body) error {
	seen := make(map[*ir.Variable]*ir.Assign)
	for _, st := range body.Stmts {
		a, ok := st.(*ir.Assign)
		if !ok || len(a.Guards) > 0 {
			continue
		}
		if _, dup := seen[a.Target]; dup {
			return diag.Errorf(diag.ErrConflictingAssignment, a.Target.Name,
				"multiple unconditional assignments not supported").At(a.Pos)
		}
		seen[a.Target] = a
	}
	return nil
}
