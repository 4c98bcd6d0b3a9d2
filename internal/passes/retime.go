package passes

import (
	"fmt"

	"pipesynth/internal/diag"
	"pipesynth/internal/ir"
)

// Retimer turns a flattened function into a staged pipeline. Every
// assignment that transitively reads a stream input becomes a register
// update at the stage one past its deepest register operand; operands are
// renamed to the incarnation of the previous stage and identity registers
// are inserted wherever a path is shallower than its sibling.
type Retimer struct {
	reporter *diag.Reporter

	// PipeLevels is the last stage of the schedule produced by Run.
	PipeLevels int
	// Balancing counts the pass-through registers inserted by Run.
	Balancing int
	// Stats is the evaluation of the retimed body.
	Stats Stats
}

// NewRetimer constructs the pass. reporter receives the warnings of the
// re-evaluation.
func NewRetimer(reporter *diag.Reporter) *Retimer {
	return &Retimer{reporter: reporter}
}

// Name implements the Pass interface.
func (r *Retimer) Name() string {
	return "retime"
}

type scheduled struct {
	assign *ir.Assign
	stage  int
}

// Run retimes fn. The body must be flat: canonical guarded assignments
// followed by the return.
func (r *Retimer) Run(fn *ir.Function) error {
	r.PipeLevels, r.Balancing = 0, 0

	ret := fn.Return()
	if ret == nil {
		return diag.Errorf(diag.ErrStructural, fn.Name, "expecting return as last statement").At(fn.Pos)
	}
	var assigns []*ir.Assign
	for _, st := range fn.Body.Stmts {
		switch s := st.(type) {
		case *ir.Assign:
			if s.Root() == nil {
				return diag.Errorf(diag.ErrInvariant, ir.StmtString(s), "retiming expects a single expression root").At(s.Pos)
			}
			assigns = append(assigns, s)
		case *ir.Return:
		case *ir.IfElse:
			return diag.Errorf(diag.ErrInvariant, "if", "retiming expects a flattened body").At(s.Pos)
		case *ir.Function:
			return diag.Errorf(diag.ErrStructural, s.Name, "nested function definition").At(s.Pos)
		default:
			return diag.Errorf(diag.ErrInvariant, fmt.Sprintf("%T", st), "unknown statement in body")
		}
	}

	stages, err := chainStages(fn, assigns)
	if err != nil {
		return err
	}

	// Rename chain targets and operands, remembering the latest incarnation
	// of every chain member.
	latest := make(map[string]*ir.Variable)
	defined := make(map[string]bool)
	sched := make([]scheduled, 0, len(assigns))
	for _, a := range assigns {
		base := a.Target.SourceName()
		s, chained := stages[base]
		if !chained {
			defined[a.Target.Name] = true
			sched = append(sched, scheduled{assign: a, stage: 0})
			continue
		}
		root := a.Root()
		root.Left = renameOperand(fn, stages, root.Left, s-1)
		root.Right = renameOperand(fn, stages, root.Right, s-1)
		a.Target = incarnation(fn, base, s, a.Target)
		defined[a.Target.Name] = true
		noteLatest(latest, a.Target)
		sched = append(sched, scheduled{assign: a, stage: s})
		if s > r.PipeLevels {
			r.PipeLevels = s
		}
	}

	// Balance from the last stage down: a stage s+1 consumer of a register
	// missing at stage s gets an identity copy of its stage s-1 incarnation,
	// or of the raw input at stage 0.
	for s := r.PipeLevels - 1; s >= 0; s-- {
		for i := 0; i < len(sched); i++ {
			if sched[i].stage != s+1 {
				continue
			}
			for _, v := range sched[i].assign.Root().Variables() {
				if !v.Register || v.Stage != s || defined[v.Name] {
					continue
				}
				var src *ir.Variable
				if s == 0 {
					raw, ok := fn.Scope.Lookup(v.Base)
					if !ok || raw.Role != ir.RoleInput {
						return diag.Errorf(diag.ErrInvariant, v.Name, "no stage 0 source for register")
					}
					src = raw
				} else {
					src = incarnation(fn, v.Base, s-1, v)
				}
				load := ir.NewAssign(v, ir.NewLoad(src))
				load.Pos = sched[i].assign.Pos
				defined[v.Name] = true
				noteLatest(latest, v)
				sched = append(sched, scheduled{assign: load, stage: s})
				r.Balancing++
			}
		}
	}

	// Outputs copy the last incarnation of their source one stage later.
	for _, v := range ret.Vars {
		reg, ok := latest[v.SourceName()]
		if !ok {
			return diag.Errorf(diag.ErrUnresolvedReturn, v.Name,
				"can't find a registered incarnation of return variable").At(ret.Pos)
		}
		cp := ir.NewAssign(v, ir.NewLoad(reg))
		cp.Pos = ret.Pos
		sched = append(sched, scheduled{assign: cp, stage: reg.Stage + 1})
		if reg.Stage+1 > r.PipeLevels {
			r.PipeLevels = reg.Stage + 1
		}
	}

	out := make([]ir.Stmt, 0, len(sched)+1)
	for s := 0; s <= r.PipeLevels; s++ {
		for _, e := range sched {
			if e.stage == s {
				out = append(out, e.assign)
			}
		}
	}
	fn.Body.Stmts = append(out, ret)

	if err := NewDecomposer().Run(fn); err != nil {
		return err
	}
	eval := NewEvaluator(r.reporter)
	if err := eval.Run(fn); err != nil {
		return err
	}
	r.Stats = eval.Stats
	return nil
}

// chainStages computes the natural stage of every register chain member,
// keyed by source name. Stream inputs sit at stage 0. Writers of one target
// under exclusive guards share the deepest of their stages, so the result is
// computed to a fixed point.
func chainStages(fn *ir.Function, assigns []*ir.Assign) (map[string]int, error) {
	stages := make(map[string]int)
	for _, p := range fn.Params {
		if p.Stream {
			stages[p.Name] = 0
		}
	}
	for iter := 0; ; iter++ {
		if iter > len(assigns)+1 {
			return nil, diag.Errorf(diag.ErrUnsupportedConstruct, fn.Name,
				"register chain does not settle; feedback between assignments")
		}
		changed := false
		for _, a := range assigns {
			s := -1
			for _, v := range a.Root().Variables() {
				if st, ok := stages[v.SourceName()]; ok && st+1 > s {
					s = st + 1
				}
			}
			if s < 0 {
				continue
			}
			base := a.Target.SourceName()
			if cur, ok := stages[base]; !ok || s > cur {
				stages[base] = s
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	for _, a := range assigns {
		for _, g := range a.Guards {
			for _, v := range g.Cond.Variables() {
				if _, ok := stages[v.SourceName()]; ok {
					return nil, diag.Errorf(diag.ErrUnsupportedConstruct, ir.StmtString(a),
						"condition reads pipelined signal %s", v.Name).At(a.Pos)
				}
			}
		}
	}
	return stages, nil
}

// renameOperand maps a chain member operand to its incarnation at stage.
func renameOperand(fn *ir.Function, stages map[string]int, e ir.Expr, stage int) ir.Expr {
	v, ok := e.(*ir.Variable)
	if !ok {
		return e
	}
	if _, chained := stages[v.SourceName()]; !chained {
		return e
	}
	return incarnation(fn, v.SourceName(), stage, v)
}

// incarnation returns the stage register of base, creating it in the
// function scope on first use.
func incarnation(fn *ir.Function, base string, stage int, from *ir.Variable) *ir.Variable {
	name := fmt.Sprintf("%s_z%d", base, stage)
	v, ok := fn.Scope.Lookup(name)
	if !ok {
		v = fn.Scope.Get(name)
		v.Pos = from.Pos
	}
	v.Base = base
	v.Register = true
	v.Stage = stage
	v.Role = ir.RoleInternal
	return v
}

func noteLatest(latest map[string]*ir.Variable, v *ir.Variable) {
	if cur, ok := latest[v.Base]; !ok || v.Stage > cur.Stage {
		latest[v.Base] = v
	}
}
