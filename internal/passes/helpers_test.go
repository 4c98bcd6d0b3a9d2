package passes

import (
	"go/token"
	"testing"

	"pipesynth/internal/config"
	"pipesynth/internal/diag"
	"pipesynth/internal/frontend"
	"pipesynth/internal/ir"
)

const fmSource = `def FM(a, b, f1, f2, gain, sel):
    add = a + b
    sub = a - b

    if sel:
        mod = (add*461 + ((sub*f2) >> 16)*461 + f1*102) >> 10
    else:
        mod = add

    z = mod * gain >> 8

    return mod, z
`

func parseProgram(t *testing.T, src string) *ir.Program {
	t.Helper()
	prog, err := frontend.ParseSource(token.NewFileSet(), "test.py", []byte(src))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	return prog
}

func parseFunction(t *testing.T, src string, cfg *config.Config, reporter *diag.Reporter) *ir.Function {
	t.Helper()
	fn, err := GetFunction(parseProgram(t, src), cfg, reporter)
	if err != nil {
		t.Fatalf("GetFunction failed: %v", err)
	}
	return fn
}

func runPasses(t *testing.T, fn *ir.Function, reporter *diag.Reporter, passes ...Pass) {
	t.Helper()
	pm := NewManager(reporter)
	for _, p := range passes {
		pm.Add(p)
	}
	if err := pm.Run(fn); err != nil {
		t.Fatalf("passes failed: %v", err)
	}
}

func lookup(t *testing.T, fn *ir.Function, name string) *ir.Variable {
	t.Helper()
	v, ok := fn.Scope.Lookup(name)
	if !ok {
		t.Fatalf("variable %s not found", name)
	}
	return v
}

func fmConfig() *config.Config {
	cfg := config.Default()
	cfg.Name = "fm"
	cfg.Inputs = []config.Port{
		{Name: "a", Interface: "adc_a_i", Width: 14, Stream: true},
		{Name: "b", Interface: "adc_b_i", Width: 14, Stream: true},
		{Name: "f1", Interface: config.RegisterInterface, Width: 16},
		{Name: "f2", Interface: config.RegisterInterface, Width: 16},
		{Name: "gain", Interface: config.RegisterInterface, Width: 8},
		{Name: "sel", Interface: config.RegisterInterface, Width: 1},
	}
	cfg.Outputs = []config.Port{
		{Name: "mod", Interface: "dac_a_o", Width: 14},
		{Name: "z", Interface: "dac_b_o", Width: 14},
	}
	return cfg
}

// canonical reports whether every assignment below body has a canonical root.
func canonical(body *ir.Body) bool {
	for _, st := range body.Stmts {
		switch s := st.(type) {
		case *ir.Assign:
			if s.Root() == nil || !s.Root().Canonical() {
				return false
			}
		case *ir.IfElse:
			if !canonical(s.Then) || (s.Else != nil && !canonical(s.Else)) {
				return false
			}
		}
	}
	return true
}
