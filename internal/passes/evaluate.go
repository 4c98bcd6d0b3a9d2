package passes

import (
	"fmt"
	"sort"

	"pipesynth/internal/diag"
	"pipesynth/internal/ir"
)

// Stats summarizes an evaluation: dataflow depth buckets and arithmetic
// resource counts.
type Stats struct {
	Levels map[int][]string
	AddSub int
	Mul    int
}

// MaxLevel returns the deepest dataflow level recorded.
func (s *Stats) MaxLevel() int {
	max := 0
	for l := range s.Levels {
		if l > max {
			max = l
		}
	}
	return max
}

// SortedLevels returns the recorded levels in ascending order.
func (s *Stats) SortedLevels() []int {
	levels := make([]int, 0, len(s.Levels))
	for l := range s.Levels {
		levels = append(levels, l)
	}
	sort.Ints(levels)
	return levels
}

func (s *Stats) record(name string, level int) {
	if s.Levels == nil {
		s.Levels = make(map[int][]string)
	}
	for _, n := range s.Levels[level] {
		if n == name {
			return
		}
	}
	s.Levels[level] = append(s.Levels[level], name)
}

// Evaluator assigns a bit width and a dataflow level to every assignment
// target of a decomposed function.
type Evaluator struct {
	reporter *diag.Reporter
	// Stats is reset by every Run.
	Stats Stats
	seen  map[*ir.Variable]bool
}

// NewEvaluator constructs the pass. reporter receives width warnings.
func NewEvaluator(reporter *diag.Reporter) *Evaluator {
	return &Evaluator{reporter: reporter}
}

// Name implements the Pass interface.
func (e *Evaluator) Name() string {
	return "evaluate"
}

// Run evaluates fn's body in statement order.
func (e *Evaluator) Run(fn *ir.Function) error {
	e.Stats = Stats{Levels: make(map[int][]string)}
	e.seen = make(map[*ir.Variable]bool)
	return e.evaluateBody(fn.Body)
}

func (e *Evaluator) evaluateBody(body *ir.Body) error {
	if body == nil {
		return nil
	}
	for _, st := range body.Stmts {
		switch s := st.(type) {
		case *ir.Assign:
			if err := e.evaluate(s); err != nil {
				return err
			}
		case *ir.IfElse:
			if err := e.evaluateBody(s.Then); err != nil {
				return err
			}
			if err := e.evaluateBody(s.Else); err != nil {
				return err
			}
		case *ir.Return, *ir.Function:
		default:
			return diag.Errorf(diag.ErrInvariant, fmt.Sprintf("%T", st), "unknown statement in body")
		}
	}
	return nil
}

func (e *Evaluator) evaluate(a *ir.Assign) error {
	target := a.Target
	if target.Role == ir.RoleNone {
		target.Role = ir.RoleInternal
	}
	for _, op := range a.Ops {
		ls, ll, err := operand(a, op.Left)
		if err != nil {
			return err
		}
		rs, rl, err := operand(a, op.Right)
		if err != nil {
			return err
		}
		if op.Left == nil {
			ls, ll = rs, rl
		}

		level := ll
		if rl > level {
			level = rl
		}
		level++

		var width int
		switch op.Kind {
		case ir.OpAdd, ir.OpSub:
			e.Stats.AddSub++
			width = maxInt(ls, rs) + 1
		case ir.OpMul:
			e.Stats.Mul++
			width = ls + rs
		case ir.OpShr:
			n, ok := op.Right.(*ir.Number)
			if !ok {
				return diag.Errorf(diag.ErrUnsupportedConstruct, ir.StmtString(a),
					"only shift by a constant is supported").At(a.Pos)
			}
			width = ls - int(n.Value)
			if width < 1 {
				e.reporter.Warn(diag.WidthMismatch, a.Pos,
					fmt.Sprintf("shift by %d exceeds the %d-bit operand of '%s', width clamped to 1", n.Value, ls, target.Name))
				width = 1
			}
		case ir.OpLoad, ir.OpNot, ir.OpAnd, ir.OpOr,
			ir.OpEq, ir.OpNe, ir.OpLt, ir.OpLe, ir.OpGt, ir.OpGe:
			width = maxInt(ls, rs)
		default:
			width = 0
		}

		// Writers in exclusive branches share one target: keep the widest.
		if e.seen[target] {
			width = maxInt(width, target.Size)
			level = maxInt(level, target.TreeLevel)
		}
		e.seen[target] = true
		target.TreeLevel = level
		e.Stats.record(target.Name, level)

		if target.Role == ir.RoleOutput {
			if target.Size != width {
				e.reporter.Warn(diag.WidthMismatch, a.Pos,
					fmt.Sprintf("output '%s' resized from %d to %d", target.Name, width, target.Size))
			}
			continue
		}
		target.Size = width
	}
	return nil
}

// operand returns the width and level of a leaf operand. A missing operand
// counts as width 0 at level 0.
func operand(a *ir.Assign, e ir.Expr) (int, int, error) {
	switch n := e.(type) {
	case nil:
		return 0, 0, nil
	case *ir.Variable:
		if n.TreeLevel < 0 {
			return 0, 0, diag.Errorf(diag.ErrUndefinedVariable, ir.StmtString(a),
				"variable %s undefined in", n.Name).At(a.Pos)
		}
		return n.Size, n.TreeLevel, nil
	case *ir.Number, *ir.Bool:
		lit := n.(ir.Literal)
		return lit.Width(), lit.Level(), nil
	case *ir.Op:
		return 0, 0, diag.Errorf(diag.ErrInvariant, ir.StmtString(a),
			"evaluation expects canonical binary form").At(a.Pos)
	default:
		return 0, 0, diag.Errorf(diag.ErrInvariant, ir.StmtString(a), "unknown operand %T", e)
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
