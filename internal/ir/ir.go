package ir

import "go/token"

// Design is the top-level hardware description consisting of one or more modules.
type Design struct {
	Modules  []*Module
	TopLevel *Module
}

// Module models a synthesized pipeline with ports, internal signals and
// processes.
type Module struct {
	Name      string
	Ports     []Port
	Signals   []*Variable
	Processes []*Process
	Stages    int
	Source    token.Pos
}

// Port represents a module IO port.
type Port struct {
	Name      string
	Direction PortDirection
	Width     int
	Var       *Variable
}

// PortDirection enumerates supported port directions.
type PortDirection int

const (
	Input PortDirection = iota
	Output
)

// Process groups statements under a specific clocking scheme.
type Process struct {
	Name        string
	Sensitivity Sensitivity
	// Level is the dataflow level of a combinational process.
	Level int
	Body  *Body
}

// Sensitivity indicates whether process is combinational or sequential.
type Sensitivity int

const (
	Combinational Sensitivity = iota
	Sequential
)

// SequentialProcess returns the clocked process of the module.
func (m *Module) SequentialProcess() *Process {
	for _, proc := range m.Processes {
		if proc != nil && proc.Sensitivity == Sequential {
			return proc
		}
	}
	return nil
}

// Inputs returns the input ports in declaration order.
func (m *Module) Inputs() []Port {
	return m.portsWith(Input)
}

// Outputs returns the output ports in declaration order.
func (m *Module) Outputs() []Port {
	return m.portsWith(Output)
}

func (m *Module) portsWith(dir PortDirection) []Port {
	var out []Port
	for _, p := range m.Ports {
		if p.Direction == dir {
			out = append(out, p)
		}
	}
	return out
}
