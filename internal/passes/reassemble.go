package passes

import "pipesynth/internal/ir"

// Reassemble regroups a flat list of guarded assignments into nested
// conditionals. Consecutive assignments sharing a guard condition at the
// current nesting depth go into one conditional, split into its true and
// else bodies by polarity; unguarded assignments stay at the top. The input
// assignments are left untouched: the result holds copies without guards.
func Reassemble(assigns []*ir.Assign, level int) *ir.Body {
	return reassembleAt(assigns, 0, level)
}

type openIf struct {
	stmt       *ir.IfElse
	then, els  []*ir.Assign
	depth      int
	bodyLevel  int
	parentBody *ir.Body
}

func (o *openIf) close() {
	o.stmt.Then = reassembleAt(o.then, o.depth+1, o.bodyLevel)
	if len(o.els) > 0 {
		o.stmt.Else = reassembleAt(o.els, o.depth+1, o.bodyLevel)
	}
	o.parentBody.Add(o.stmt)
}

func reassembleAt(assigns []*ir.Assign, depth, level int) *ir.Body {
	body := ir.NewBody(level)
	var open *openIf
	for _, a := range assigns {
		if len(a.Guards) <= depth {
			if open != nil {
				open.close()
				open = nil
			}
			cp := *a
			cp.Guards = nil
			body.Add(&cp)
			continue
		}
		g := a.Guards[depth]
		if open == nil || open.stmt.Cond != g.Cond {
			if open != nil {
				open.close()
			}
			open = &openIf{
				stmt:       &ir.IfElse{Cond: g.Cond, Pos: a.Pos},
				depth:      depth,
				bodyLevel:  level + 1,
				parentBody: body,
			}
		}
		if g.Polarity {
			open.then = append(open.then, a)
		} else {
			open.els = append(open.els, a)
		}
	}
	if open != nil {
		open.close()
	}
	return body
}
