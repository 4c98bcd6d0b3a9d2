package passes

import (
	"fmt"

	"pipesynth/internal/config"
	"pipesynth/internal/diag"
	"pipesynth/internal/ir"
)

// GetFunction returns the function to synthesize: the first top-level
// statement of prog, which must end with a return. Port widths and stream
// roles are taken from cfg.
func GetFunction(prog *ir.Program, cfg *config.Config, reporter *diag.Reporter) (*ir.Function, error) {
	if prog == nil || len(prog.Stmts) == 0 {
		return nil, diag.Errorf(diag.ErrStructural, "", "empty program")
	}
	fn, ok := prog.Stmts[0].(*ir.Function)
	if !ok {
		return nil, diag.Errorf(diag.ErrStructural, "", "expecting function as first statement")
	}
	if fn.Body == nil || len(fn.Body.Stmts) == 0 {
		return nil, diag.Errorf(diag.ErrStructural, fn.Name, "function body is empty").At(fn.Pos)
	}
	ret := fn.Return()
	if ret == nil {
		return nil, diag.Errorf(diag.ErrStructural, fn.Name, "expecting return as last statement").At(fn.Pos)
	}
	if cfg == nil {
		cfg = config.Default()
	}

	for _, v := range ret.Vars {
		v.Role = ir.RoleOutput
		if port, ok := cfg.Output(v.Name); ok {
			v.Size = port.Width
			continue
		}
		v.Size = fallbackWidth(v, cfg)
		reporter.Warn(diag.MissingConfiguration, v.Pos,
			fmt.Sprintf("output '%s' is not in configuration; set size: %d", v.Name, v.Size))
	}

	for _, v := range fn.Params {
		v.Stream = cfg.IsStream(v.Name)
		if port, ok := cfg.Input(v.Name); ok {
			v.Size = port.Width
			continue
		}
		v.Size = fallbackWidth(v, cfg)
		reporter.Warn(diag.MissingConfiguration, v.Pos,
			fmt.Sprintf("input '%s' is not in configuration; set size: %d", v.Name, v.Size))
	}
	return fn, nil
}

func fallbackWidth(v *ir.Variable, cfg *config.Config) int {
	if v.WidthHint > 0 {
		return v.WidthHint
	}
	return cfg.DefaultWidth
}
