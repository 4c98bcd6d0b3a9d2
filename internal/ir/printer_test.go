package ir

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestStmtString(t *testing.T) {
	a, c, y := NewVariable("a"), NewVariable("c"), NewVariable("y")
	st := NewAssign(y, &Op{Left: a, Kind: OpShr, Right: &Number{Value: 3}})
	st.Guards = []Guard{
		{Cond: NewLoad(c), Polarity: true},
		{Cond: &Op{Left: a, Kind: OpLt, Right: &Number{Value: -2}}, Polarity: false},
	}
	if got, want := StmtString(st), "y = a >> 3 ?c ?not a < -2"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	st.Clocked = true
	st.Guards = nil
	st.Ops = append(st.Ops, NewLoad(&Bool{Value: false}))
	if got, want := StmtString(st), "y.next = a >> 3; False"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestExprString(t *testing.T) {
	a, b := NewVariable("a"), NewVariable("b")
	cases := []struct {
		expr Expr
		want string
	}{
		{nil, ""},
		{&Op{Kind: OpSignal}, "'signal'"},
		{&Op{Kind: OpNot, Right: &Op{Left: a, Kind: OpEq, Right: b}}, "not (a == b)"},
		{&Op{Left: NewLoad(a), Kind: OpAdd, Right: &Op{Left: b, Kind: OpMul, Right: &Number{Value: 2}}}, "a + (b * 2)"},
		{&Bool{Value: true}, "True"},
	}
	for _, tc := range cases {
		if got := ExprString(tc.expr); got != tc.want {
			t.Fatalf("got %q, want %q", got, tc.want)
		}
	}
}

func TestDump(t *testing.T) {
	a, y, s := NewVariable("a"), NewVariable("y"), NewVariable("s")
	s.Size, s.Register, s.Stage, s.TreeLevel = 9, true, 1, 1
	seq := NewBody(0)
	st := NewAssign(y, NewLoad(s))
	st.Clocked = true
	seq.Add(st)
	design := &Design{Modules: []*Module{{
		Name:   "adder",
		Stages: 2,
		Ports: []Port{
			{Name: "a", Direction: Input, Width: 8, Var: a},
			{Name: "y", Direction: Output, Width: 9, Var: y},
		},
		Signals:   []*Variable{s},
		Processes: []*Process{{Name: "pipeline", Sensitivity: Sequential, Body: seq}},
	}}}

	var buf bytes.Buffer
	Dump(design, &buf)
	want := `module adder (stages=2)
  ports:
    in  a 8b
    out y 9b
  signals:
    s          reg  9b stage=1 level=1
  process 0 pipeline (sequential)
        y.next = s

`
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Fatalf("dump mismatch (-want +got):\n%s", diff)
	}

	buf.Reset()
	Dump(nil, &buf)
	if buf.String() != "<nil design>\n" {
		t.Fatalf("unexpected nil dump %q", buf.String())
	}
}

func TestModulePorts(t *testing.T) {
	m := &Module{
		Ports: []Port{{Name: "a"}, {Name: "y", Direction: Output}, {Name: "b"}},
		Processes: []*Process{
			nil,
			{Name: "comb_l1"},
			{Name: "pipeline", Sensitivity: Sequential},
		},
	}
	if len(m.Inputs()) != 2 || m.Inputs()[1].Name != "b" {
		t.Fatalf("unexpected inputs %v", m.Inputs())
	}
	if len(m.Outputs()) != 1 || m.Outputs()[0].Name != "y" {
		t.Fatalf("unexpected outputs %v", m.Outputs())
	}
	if p := m.SequentialProcess(); p == nil || p.Name != "pipeline" {
		t.Fatalf("expected the pipeline process")
	}
	if (&Module{}).SequentialProcess() != nil {
		t.Fatalf("expected no sequential process")
	}
}
