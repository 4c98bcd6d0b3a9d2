package passes

import (
	"fmt"

	"pipesynth/internal/diag"
	"pipesynth/internal/ir"
)

// Pass transforms a function in place.
type Pass interface {
	Name() string
	Run(fn *ir.Function) error
}

// Manager runs passes in registration order and stops at the first failure.
type Manager struct {
	passes   []Pass
	reporter *diag.Reporter
}

// NewManager returns an empty manager. reporter is optional; when set, a pass
// that reported errors without returning one still stops the run.
func NewManager(reporter *diag.Reporter) *Manager {
	return &Manager{reporter: reporter}
}

// Add appends a pass.
func (m *Manager) Add(p Pass) {
	m.passes = append(m.passes, p)
}

// Run executes every pass over fn.
func (m *Manager) Run(fn *ir.Function) error {
	if fn == nil {
		return fmt.Errorf("pass manager requires a non-nil function")
	}
	for _, p := range m.passes {
		if err := p.Run(fn); err != nil {
			return fmt.Errorf("%s: %w", p.Name(), err)
		}
		if m.reporter.HasErrors() {
			return fmt.Errorf("%s reported errors", p.Name())
		}
	}
	return nil
}
