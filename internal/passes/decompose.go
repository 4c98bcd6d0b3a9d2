package passes

import (
	"fmt"

	"pipesynth/internal/diag"
	"pipesynth/internal/ir"
)

// Decomposer rewrites assignments into canonical binary form: every operator
// root ends up with leaf operands only. Nested subtrees are hoisted into fresh
// intermediate variables spliced in before the statement that used them.
type Decomposer struct {
	maxIterations int
	// Passes is the number of passes that changed the body during the last Run.
	Passes int
}

// NewDecomposer constructs the pass.
func NewDecomposer() *Decomposer {
	return &Decomposer{maxIterations: 256}
}

// Name implements the Pass interface.
func (d *Decomposer) Name() string {
	return "decompose"
}

// Run decomposes fn's body until a full pass makes no change.
func (d *Decomposer) Run(fn *ir.Function) error {
	d.Passes = 0
	for {
		changed, err := d.decomposeBody(fn, fn.Body)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		d.Passes++
		if d.Passes > d.maxIterations {
			return fmt.Errorf("decomposition did not converge for function %s", fn.Name)
		}
	}
}

// decomposeBody runs one pass over body and the bodies nested in it.
func (d *Decomposer) decomposeBody(fn *ir.Function, body *ir.Body) (bool, error) {
	if body == nil {
		return false, nil
	}
	changed := false
	out := make([]ir.Stmt, 0, len(body.Stmts))
	for _, st := range body.Stmts {
		switch s := st.(type) {
		case *ir.Assign:
			hoisted, err := d.split(fn, s)
			if err != nil {
				return false, err
			}
			if len(hoisted) > 0 {
				changed = true
				out = append(out, hoisted...)
			}
			out = append(out, s)
		case *ir.IfElse:
			c, err := d.decomposeBody(fn, s.Then)
			if err != nil {
				return false, err
			}
			changed = changed || c
			c, err = d.decomposeBody(fn, s.Else)
			if err != nil {
				return false, err
			}
			changed = changed || c
			out = append(out, s)
		case *ir.Return, *ir.Function:
			out = append(out, s)
		default:
			return false, diag.Errorf(diag.ErrInvariant, fmt.Sprintf("%T", st), "unknown statement in body")
		}
	}
	body.Stmts = out
	return changed, nil
}

// split hoists the operator children of a's root one level.
func (d *Decomposer) split(fn *ir.Function, a *ir.Assign) ([]ir.Stmt, error) {
	root := a.Root()
	if root == nil {
		return nil, diag.Errorf(diag.ErrInvariant, ir.StmtString(a),
			"expected exactly one expression root, got %d", len(a.Ops)).At(a.Pos)
	}
	var hoisted []ir.Stmt
	if sub, ok := root.Left.(*ir.Op); ok {
		nv := fn.Scope.Fresh(a.Target.SourceName() + "1")
		nv.Pos = a.Pos
		hoisted = append(hoisted, d.hoist(a, nv, sub))
		root.Left = nv
	}
	if sub, ok := root.Right.(*ir.Op); ok {
		nv := fn.Scope.Fresh(a.Target.SourceName() + "2")
		nv.Pos = a.Pos
		hoisted = append(hoisted, d.hoist(a, nv, sub))
		root.Right = nv
	}
	return hoisted, nil
}

func (d *Decomposer) hoist(parent *ir.Assign, target *ir.Variable, sub *ir.Op) *ir.Assign {
	na := ir.NewAssign(target, sub)
	na.Pos = parent.Pos
	na.Guards = append([]ir.Guard(nil), parent.Guards...)
	return na
}
