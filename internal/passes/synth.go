package passes

import (
	"fmt"
	"sort"

	"pipesynth/internal/config"
	"pipesynth/internal/diag"
	"pipesynth/internal/ir"
)

// Result is the outcome of a synthesis run.
type Result struct {
	Function *ir.Function
	Module   *ir.Module
	// Analysis is the evaluation of the source function before retiming,
	// Transform the evaluation of the retimed one.
	Analysis  Stats
	Transform Stats
	// DecompositionPasses is the number of changing decomposition passes.
	DecompositionPasses int
	// Balancing is the number of inserted pass-through registers.
	Balancing int
	Stages    int
}

// Synthesize runs the full core over prog: function extraction, analysis,
// flattening, retiming and lowering to a hardware module.
func Synthesize(prog *ir.Program, cfg *config.Config, reporter *diag.Reporter) (*Result, error) {
	fn, err := GetFunction(prog, cfg, reporter)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.Default()
	}

	decomposer := NewDecomposer()
	evaluator := NewEvaluator(reporter)
	retimer := NewRetimer(reporter)

	pm := NewManager(reporter)
	pm.Add(decomposer)
	pm.Add(evaluator)
	pm.Add(NewFlattener())
	pm.Add(retimer)
	if err := pm.Run(fn); err != nil {
		return nil, err
	}

	module := Lower(fn, cfg.Name, retimer.PipeLevels+1)
	return &Result{
		Function:            fn,
		Module:              module,
		Analysis:            evaluator.Stats,
		Transform:           retimer.Stats,
		DecompositionPasses: decomposer.Passes,
		Balancing:           retimer.Balancing,
		Stages:              module.Stages,
	}, nil
}

// Lower builds the hardware module of a retimed function. Register and
// output updates form the clocked process; the remaining assignments are
// split into combinational processes by dataflow level.
func Lower(fn *ir.Function, name string, stages int) *ir.Module {
	if name == "" {
		name = fn.Name
	}
	module := &ir.Module{Name: name, Stages: stages, Source: fn.Pos}
	for _, p := range fn.Params {
		module.Ports = append(module.Ports, ir.Port{Name: p.Name, Direction: ir.Input, Width: p.Size, Var: p})
	}
	if ret := fn.Return(); ret != nil {
		for _, v := range ret.Vars {
			module.Ports = append(module.Ports, ir.Port{Name: v.Name, Direction: ir.Output, Width: v.Size, Var: v})
		}
	}

	var clocked []*ir.Assign
	comb := make(map[int][]*ir.Assign)
	declared := make(map[*ir.Variable]bool)
	for _, a := range fn.Body.Assigns() {
		t := a.Target
		if t.Role != ir.RoleOutput && !declared[t] {
			declared[t] = true
			module.Signals = append(module.Signals, t)
		}
		if t.Register || t.Role == ir.RoleOutput {
			a.Clocked = true
			clocked = append(clocked, a)
			continue
		}
		a.Clocked = false
		comb[t.TreeLevel] = append(comb[t.TreeLevel], a)
	}

	module.Processes = append(module.Processes, &ir.Process{
		Name:        "pipeline",
		Sensitivity: ir.Sequential,
		Body:        Reassemble(clocked, 1),
	})
	levels := make([]int, 0, len(comb))
	for l := range comb {
		levels = append(levels, l)
	}
	sort.Ints(levels)
	for _, l := range levels {
		module.Processes = append(module.Processes, &ir.Process{
			Name:        fmt.Sprintf("comb_l%d", l),
			Sensitivity: ir.Combinational,
			Level:       l,
			Body:        Reassemble(withDefaults(comb[l]), 1),
		})
	}
	return module
}

// withDefaults prepends a zero assignment for every combinational target
// that is only written under a guard, so no path leaves it unassigned.
func withDefaults(assigns []*ir.Assign) []*ir.Assign {
	unguarded := make(map[*ir.Variable]bool)
	for _, a := range assigns {
		if len(a.Guards) == 0 {
			unguarded[a.Target] = true
		}
	}
	var defaults []*ir.Assign
	added := make(map[*ir.Variable]bool)
	for _, a := range assigns {
		t := a.Target
		if len(a.Guards) == 0 || unguarded[t] || added[t] {
			continue
		}
		added[t] = true
		d := ir.NewAssign(t, ir.NewLoad(&ir.Number{Value: 0}))
		d.Pos = a.Pos
		defaults = append(defaults, d)
	}
	if len(defaults) == 0 {
		return assigns
	}
	return append(defaults, assigns...)
}
