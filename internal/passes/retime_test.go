package passes

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"pipesynth/internal/config"
	"pipesynth/internal/diag"
	"pipesynth/internal/ir"
)

func retime(t *testing.T, src string, cfg *config.Config) (*ir.Function, *Retimer) {
	t.Helper()
	reporter := diag.NewReporter(nil, "text")
	fn := parseFunction(t, src, cfg, reporter)
	r := NewRetimer(reporter)
	runPasses(t, fn, reporter, NewDecomposer(), NewEvaluator(reporter), NewFlattener(), r)
	return fn, r
}

func TestRetimerBalancesShortPaths(t *testing.T) {
	fn, r := retime(t, "def f(a, c):\n    x = a * c\n    y = x + a\n    return y\n", nil)

	want := `def f(a, c):
    a_z0 = a
    x_z1 = a_z0 * c
    a_z1 = a_z0
    y_z2 = x_z1 + a_z1
    y = y_z2
    return y
`
	if diff := cmp.Diff(want, ir.Code(fn)); diff != "" {
		t.Fatalf("retimed code mismatch (-want +got):\n%s", diff)
	}
	if r.Balancing != 2 {
		t.Fatalf("expected 2 balancing registers, got %d", r.Balancing)
	}
	if r.PipeLevels != 3 {
		t.Fatalf("expected last stage 3, got %d", r.PipeLevels)
	}
}

func TestRetimerKeepsNonStreamLogicCombinational(t *testing.T) {
	fn, _ := retime(t, "def f(a, k, m):\n    g = k * m\n    y = a + g\n    return y\n", nil)

	g := lookup(t, fn, "g")
	if g.Register {
		t.Fatalf("g reads no stream input and must stay combinational")
	}
	y := lookup(t, fn, "y_z1")
	if !y.Register || y.Stage != 1 {
		t.Fatalf("expected y_z1 at stage 1, got register=%v stage=%d", y.Register, y.Stage)
	}
	first, ok := fn.Body.Stmts[0].(*ir.Assign)
	if !ok || first.Target != g {
		t.Fatalf("expected combinational logic first:\n%s", ir.Code(fn))
	}
}

func TestRetimerCausality(t *testing.T) {
	fn, _ := retime(t, fmSource, fmConfig())
	checkCausal(t, fn)
}

// checkCausal verifies that every register update reads registers of the
// previous stage only and that outputs copy registers.
func checkCausal(t *testing.T, fn *ir.Function) {
	t.Helper()
	for _, a := range fn.Body.Assigns() {
		target := a.Target
		for _, v := range a.Root().Variables() {
			switch {
			case target.Register && v.Register:
				if v.Stage != target.Stage-1 {
					t.Fatalf("%s at stage %d reads %s at stage %d", target.Name, target.Stage, v.Name, v.Stage)
				}
			case target.Register:
				if v.Role != ir.RoleInput && v.Role != ir.RoleInternal {
					t.Fatalf("%s reads unexpected operand %s", target.Name, v.Name)
				}
				if v.Stream && target.Stage != 0 {
					t.Fatalf("%s reads the raw stream input %s", target.Name, v.Name)
				}
			case target.Role == ir.RoleOutput:
				if !v.Register {
					t.Fatalf("output %s copies non-register %s", target.Name, v.Name)
				}
			}
		}
	}
}

func TestRetimerFMPipeline(t *testing.T) {
	fn, r := retime(t, fmSource, fmConfig())

	// a and b enter at stage 0, add is delayed five times for the else
	// branch and add*461 twice to meet the carrier path at stage 5.
	if r.Balancing != 9 {
		t.Fatalf("expected 9 balancing registers, got %d:\n%s", r.Balancing, ir.Code(fn))
	}
	if r.PipeLevels != 10 {
		t.Fatalf("expected last stage 10, got %d", r.PipeLevels)
	}

	mod := lookup(t, fn, "mod_z7")
	var writers []*ir.Assign
	for _, a := range fn.Body.Assigns() {
		if a.Target == mod {
			writers = append(writers, a)
		}
	}
	if len(writers) != 2 {
		t.Fatalf("expected both branches to write mod_z7, got %d", len(writers))
	}
	if writers[0].Guards[0].Polarity == writers[1].Guards[0].Polarity {
		t.Fatalf("expected exclusive guards on the mod_z7 writers")
	}
	for _, name := range []string{"add_z2", "add_z6", "mod111_z4", "z_z9"} {
		if v := lookup(t, fn, name); !v.Register {
			t.Fatalf("%s must be a register", name)
		}
	}

	// Stage order: no assignment precedes one of a lower stage.
	last := 0
	for _, a := range fn.Body.Assigns() {
		stage := a.Target.Stage
		if a.Target.Role == ir.RoleOutput {
			stage = a.Root().Variables()[0].Stage + 1
		}
		if stage < last {
			t.Fatalf("%s at stage %d follows stage %d", a.Target.Name, stage, last)
		}
		last = stage
	}
}

func TestRetimerRejectsUnresolvedReturn(t *testing.T) {
	reporter := diag.NewReporter(nil, "text")
	fn := parseFunction(t, "def f(g, h):\n    y = g + h\n    return y\n", nil, reporter)
	pm := NewManager(reporter)
	pm.Add(NewDecomposer())
	pm.Add(NewEvaluator(reporter))
	pm.Add(NewFlattener())
	pm.Add(NewRetimer(reporter))
	err := pm.Run(fn)
	if !errors.Is(err, diag.ErrUnresolvedReturn) {
		t.Fatalf("expected unresolved return, got %v", err)
	}
}

func TestRetimerRejectsPipelinedCondition(t *testing.T) {
	src := `def f(a, b):
    x = a + b
    if x > 0:
        y = a + 1
    else:
        y = b + 1
    return y
`
	reporter := diag.NewReporter(nil, "text")
	fn := parseFunction(t, src, nil, reporter)
	pm := NewManager(reporter)
	pm.Add(NewDecomposer())
	pm.Add(NewEvaluator(reporter))
	pm.Add(NewFlattener())
	pm.Add(NewRetimer(reporter))
	if err := pm.Run(fn); !errors.Is(err, diag.ErrUnsupportedConstruct) {
		t.Fatalf("expected unsupported construct, got %v", err)
	}
}

func TestRetimerExplicitStreams(t *testing.T) {
	cfg := config.Default()
	cfg.Inputs = []config.Port{{Name: "s", Width: 8, Stream: true}, {Name: "a", Width: 8}}
	fn, _ := retime(t, "def f(s, a):\n    y = s + a\n    return y\n", cfg)

	if _, ok := fn.Scope.Lookup("s_z0"); !ok {
		t.Fatalf("expected s to be registered:\n%s", ir.Code(fn))
	}
	if _, ok := fn.Scope.Lookup("a_z0"); ok {
		t.Fatalf("a is not a stream once a port is marked explicitly:\n%s", ir.Code(fn))
	}
}
