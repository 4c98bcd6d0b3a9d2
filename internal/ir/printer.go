package ir

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Dump writes a simple human-readable representation of the design.
func Dump(design *Design, w io.Writer) {
	if design == nil {
		fmt.Fprintln(w, "<nil design>")
		return
	}
	for _, module := range design.Modules {
		fmt.Fprintf(w, "module %s (stages=%d)\n", module.Name, module.Stages)
		dumpPorts(module, w)
		dumpSignals(module, w)
		dumpProcesses(module, w)
		fmt.Fprintln(w)
	}
}

func dumpPorts(module *Module, w io.Writer) {
	if len(module.Ports) == 0 {
		return
	}
	fmt.Fprintln(w, "  ports:")
	for _, port := range module.Ports {
		fmt.Fprintf(w, "    %s %s %db\n", portDirection(port.Direction), port.Name, port.Width)
	}
}

func dumpSignals(module *Module, w io.Writer) {
	if len(module.Signals) == 0 {
		return
	}
	fmt.Fprintln(w, "  signals:")
	for _, sig := range module.Signals {
		kind := "wire"
		if sig.Register {
			kind = "reg"
		}
		fmt.Fprintf(w, "    %-10s %-4s %db stage=%d level=%d\n", sig.Name, kind, sig.Size, sig.Stage, sig.TreeLevel)
	}
}

func dumpProcesses(module *Module, w io.Writer) {
	for idx, proc := range module.Processes {
		fmt.Fprintf(w, "  process %d %s (%s)\n", idx, proc.Name, sensitivity(proc.Sensitivity))
		writeBody(w, proc.Body, 2)
	}
}

// Code renders a function in the surface syntax of the source language.
func Code(fn *Function) string {
	var sb strings.Builder
	names := make([]string, 0, len(fn.Params))
	for _, p := range fn.Params {
		names = append(names, p.Name)
	}
	fmt.Fprintf(&sb, "def %s(%s):\n", fn.Name, strings.Join(names, ", "))
	writeBody(&sb, fn.Body, 1)
	return sb.String()
}

// BodyCode renders a statement list at the given indentation depth.
func BodyCode(body *Body, depth int) string {
	var sb strings.Builder
	writeBody(&sb, body, depth)
	return sb.String()
}

func writeBody(w io.Writer, body *Body, depth int) {
	if body == nil {
		return
	}
	indent := strings.Repeat("    ", depth)
	for _, st := range body.Stmts {
		switch s := st.(type) {
		case *Assign:
			fmt.Fprintf(w, "%s%s\n", indent, StmtString(s))
		case *IfElse:
			fmt.Fprintf(w, "%sif %s:\n", indent, ExprString(s.Cond))
			writeBody(w, s.Then, depth+1)
			if s.Else != nil {
				fmt.Fprintf(w, "%selse:\n", indent)
				writeBody(w, s.Else, depth+1)
			}
		case *Return:
			names := make([]string, 0, len(s.Vars))
			for _, v := range s.Vars {
				names = append(names, v.Name)
			}
			fmt.Fprintf(w, "%sreturn %s\n", indent, strings.Join(names, ", "))
		case *Function:
			fmt.Fprintf(w, "%sdef %s(...)\n", indent, s.Name)
		default:
			fmt.Fprintf(w, "%s<unknown stmt %T>\n", indent, st)
		}
	}
}

// StmtString renders an assignment on one line, with its guard list.
func StmtString(a *Assign) string {
	var sb strings.Builder
	sb.WriteString(a.Target.Name)
	if a.Clocked {
		sb.WriteString(".next")
	}
	sb.WriteString(" = ")
	for i, op := range a.Ops {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(ExprString(op))
	}
	for _, g := range a.Guards {
		sb.WriteString(" ?")
		if !g.Polarity {
			sb.WriteString("not ")
		}
		sb.WriteString(ExprString(g.Cond))
	}
	return sb.String()
}

// ExprString renders an expression with explicit parentheses around nested
// operators.
func ExprString(e Expr) string {
	switch n := e.(type) {
	case nil:
		return ""
	case *Variable:
		return n.Name
	case *Number:
		return strconv.FormatInt(n.Value, 10)
	case *Bool:
		if n.Value {
			return "True"
		}
		return "False"
	case *Op:
		return opString(n)
	default:
		return fmt.Sprintf("<unknown expr %T>", e)
	}
}

func opString(o *Op) string {
	switch {
	case o.Left == nil && o.Right == nil:
		return "'" + o.Kind.String() + "'"
	case o.Left == nil:
		return o.Kind.String() + " " + operandString(o.Right)
	case o.Right == nil:
		return operandString(o.Left)
	default:
		return operandString(o.Left) + " " + o.Kind.String() + " " + operandString(o.Right)
	}
}

func operandString(e Expr) string {
	if op, ok := e.(*Op); ok && (op.Left != nil || op.Right != nil) {
		if op.Left != nil && op.Right == nil {
			return operandString(op.Left)
		}
		return "(" + opString(op) + ")"
	}
	return ExprString(e)
}

func portDirection(dir PortDirection) string {
	switch dir {
	case Input:
		return "in "
	case Output:
		return "out"
	default:
		return "?"
	}
}

func sensitivity(s Sensitivity) string {
	if s == Sequential {
		return "sequential"
	}
	return "combinational"
}
