// Package verilog prints synthesized modules as Verilog-2001.
package verilog

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"pipesynth/internal/ir"
)

// Emit writes every module of design to w.
func Emit(design *ir.Design, w io.Writer) error {
	if design == nil {
		return fmt.Errorf("verilog: design is nil")
	}
	bw := bufio.NewWriter(w)
	for i, module := range design.Modules {
		if i > 0 {
			fmt.Fprintln(bw)
		}
		if err := emitModule(bw, module); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// EmitModule writes a single module to w.
func EmitModule(module *ir.Module, w io.Writer) error {
	bw := bufio.NewWriter(w)
	if err := emitModule(bw, module); err != nil {
		return err
	}
	return bw.Flush()
}

type printer struct {
	w      io.Writer
	indent int
	names  map[*ir.Variable]string
}

func emitModule(w io.Writer, module *ir.Module) error {
	if module == nil {
		return fmt.Errorf("verilog: module is nil")
	}
	p := &printer{w: w, names: make(map[*ir.Variable]string)}
	for _, port := range module.Ports {
		if port.Var != nil {
			p.names[port.Var] = Sanitize(port.Name)
		}
	}

	fmt.Fprintf(w, "// %s: %d pipeline stage(s)\n", module.Name, module.Stages)
	fmt.Fprintf(w, "module %s (\n", Sanitize(module.Name))
	ports := append([]string{"    input  wire clk"}, portLines(module.Ports)...)
	fmt.Fprintln(w, strings.Join(ports, ",\n"))
	fmt.Fprintln(w, ");")
	p.indent++

	for _, sig := range module.Signals {
		p.printIndent()
		fmt.Fprintf(w, "reg %s%s;\n", rangeString(sig.Size), p.name(sig))
	}

	for _, proc := range module.Processes {
		if proc == nil || proc.Body == nil || len(proc.Body.Stmts) == 0 {
			continue
		}
		fmt.Fprintln(w)
		p.printIndent()
		if proc.Sensitivity == ir.Sequential {
			fmt.Fprintf(w, "// %s\n", proc.Name)
			p.printIndent()
			fmt.Fprintln(w, "always @(posedge clk) begin")
		} else {
			fmt.Fprintf(w, "// %s: dataflow level %d\n", proc.Name, proc.Level)
			p.printIndent()
			fmt.Fprintln(w, "always @* begin")
		}
		p.indent++
		if err := p.emitBody(proc.Body, proc.Sensitivity == ir.Sequential); err != nil {
			return err
		}
		p.indent--
		p.printIndent()
		fmt.Fprintln(w, "end")
	}

	p.indent--
	fmt.Fprintln(w, "endmodule")
	return nil
}

func (p *printer) emitBody(body *ir.Body, clocked bool) error {
	for _, st := range body.Stmts {
		switch s := st.(type) {
		case *ir.Assign:
			root := s.Root()
			if root == nil {
				return fmt.Errorf("verilog: assignment to %s has no single expression root", s.Target.Name)
			}
			p.printIndent()
			op := "="
			if clocked || s.Clocked {
				op = "<="
			}
			fmt.Fprintf(p.w, "%s %s %s;\n", p.name(s.Target), op, p.expr(root))
		case *ir.IfElse:
			p.printIndent()
			fmt.Fprintf(p.w, "if (%s) begin\n", p.expr(s.Cond))
			p.indent++
			if err := p.emitBody(s.Then, clocked); err != nil {
				return err
			}
			p.indent--
			p.printIndent()
			if s.Else != nil && len(s.Else.Stmts) > 0 {
				fmt.Fprintln(p.w, "end else begin")
				p.indent++
				if err := p.emitBody(s.Else, clocked); err != nil {
					return err
				}
				p.indent--
				p.printIndent()
			}
			fmt.Fprintln(p.w, "end")
		case *ir.Return:
		default:
			return fmt.Errorf("verilog: unsupported statement %T", st)
		}
	}
	return nil
}

func (p *printer) expr(e ir.Expr) string {
	switch n := e.(type) {
	case nil:
		return ""
	case *ir.Variable:
		return p.name(n)
	case *ir.Number:
		return strconv.FormatInt(n.Value, 10)
	case *ir.Bool:
		if n.Value {
			return "1'b1"
		}
		return "1'b0"
	case *ir.Op:
		switch {
		case n.Left == nil && n.Right == nil:
			return ""
		case n.Left == nil:
			return opSymbol(n.Kind) + p.operand(n.Right)
		case n.Right == nil || n.Kind == ir.OpLoad:
			return p.expr(n.Left)
		}
		return p.operand(n.Left) + " " + opSymbol(n.Kind) + " " + p.operand(n.Right)
	}
	return fmt.Sprintf("/* %T */", e)
}

func (p *printer) operand(e ir.Expr) string {
	if op, ok := e.(*ir.Op); ok && op.Kind != ir.OpLoad {
		return "(" + p.expr(op) + ")"
	}
	if n, ok := e.(*ir.Number); ok && n.Value < 0 {
		return "(" + p.expr(n) + ")"
	}
	return p.expr(e)
}

func (p *printer) name(v *ir.Variable) string {
	if name, ok := p.names[v]; ok {
		return name
	}
	name := Sanitize(v.Name)
	p.names[v] = name
	return name
}

func (p *printer) printIndent() {
	for i := 0; i < p.indent; i++ {
		fmt.Fprint(p.w, "    ")
	}
}

func portLines(ports []ir.Port) []string {
	lines := make([]string, 0, len(ports))
	for _, port := range ports {
		dir := "input  wire"
		if port.Direction == ir.Output {
			dir = "output reg "
		}
		lines = append(lines, fmt.Sprintf("    %s %s%s", dir, rangeString(port.Width), Sanitize(port.Name)))
	}
	return lines
}

func rangeString(width int) string {
	if width <= 1 {
		return ""
	}
	return fmt.Sprintf("signed [%d:0] ", width-1)
}

func opSymbol(kind ir.OpKind) string {
	switch kind {
	case ir.OpShr:
		return ">>>"
	case ir.OpAnd:
		return "&&"
	case ir.OpOr:
		return "||"
	case ir.OpNot:
		return "!"
	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpEq, ir.OpNe, ir.OpLt, ir.OpLe, ir.OpGt, ir.OpGe:
		return kind.String()
	default:
		return "/*" + kind.String() + "*/"
	}
}

var keywords = map[string]bool{
	"always": true, "assign": true, "begin": true, "case": true, "else": true, "end": true,
	"endmodule": true, "if": true, "initial": true, "input": true, "integer": true,
	"module": true, "output": true, "posedge": true, "negedge": true, "reg": true,
	"signed": true, "wire": true, "clk": true,
}

// Sanitize maps a name onto a legal, non-reserved Verilog identifier.
func Sanitize(name string) string {
	if name == "" {
		return "unnamed"
	}
	var b strings.Builder
	for i, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_' || (r >= '0' && r <= '9' && i > 0) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	out := b.String()
	if keywords[out] {
		out += "_"
	}
	return out
}
