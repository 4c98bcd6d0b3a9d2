// Package iface generates the register-mapped board wrapper around a
// synthesized module.
package iface

import (
	"embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"text/template"

	"pipesynth/internal/config"
	"pipesynth/internal/verilog"
)

// RegisterStride is the address distance between bus registers.
const RegisterStride = 4

//go:embed templates/*.tmpl
var builtin embed.FS

const wrapperTemplate = "red_pitaya.v.tmpl"

var (
	templateOnce sync.Once
	templateDir  string
)

// Register is one bus-mapped port of the wrapper.
type Register struct {
	Name      string
	Addr      int
	Width     int
	Direction string
}

type boardSignal struct {
	Signal string
	Width  int
}

type binding struct {
	Port   string
	Signal string
}

type wrapperData struct {
	Module       string
	Core         string
	BoardInputs  []boardSignal
	BoardOutputs []boardSignal
	WriteRegs    []Register
	ReadRegs     []Register
	AllRegs      []Register
	Bindings     []binding
}

// Registers returns the bus register map of cfg: register-bound inputs
// first, then register-bound outputs, at consecutive strides from 0.
func Registers(cfg *config.Config) []Register {
	var regs []Register
	addr := 0
	for _, in := range cfg.Inputs {
		if in.Interface == config.RegisterInterface {
			regs = append(regs, Register{Name: in.Name, Addr: addr, Width: in.Width, Direction: "write"})
			addr += RegisterStride
		}
	}
	for _, out := range cfg.Outputs {
		if out.Interface == config.RegisterInterface {
			regs = append(regs, Register{Name: out.Name, Addr: addr, Width: out.Width, Direction: "read"})
			addr += RegisterStride
		}
	}
	return regs
}

// Generate writes the wrapper of the module cfg.Name to w.
func Generate(cfg *config.Config, w io.Writer) error {
	if cfg == nil {
		return fmt.Errorf("iface: configuration is nil")
	}
	tmpl, err := loadTemplate()
	if err != nil {
		return err
	}
	core := verilog.Sanitize(cfg.Name)
	data := wrapperData{
		Module: "red_pitaya_" + core,
		Core:   core,
	}
	for _, reg := range Registers(cfg) {
		reg.Name = verilog.Sanitize(reg.Name)
		if reg.Direction == "write" {
			data.WriteRegs = append(data.WriteRegs, reg)
		} else {
			data.ReadRegs = append(data.ReadRegs, reg)
		}
		data.AllRegs = append(data.AllRegs, reg)
	}
	for _, in := range cfg.Inputs {
		sig := verilog.Sanitize(in.Name)
		if in.Interface != config.RegisterInterface {
			sig = in.Interface
			data.BoardInputs = append(data.BoardInputs, boardSignal{Signal: sig, Width: in.Width})
		}
		data.Bindings = append(data.Bindings, binding{Port: verilog.Sanitize(in.Name), Signal: sig})
	}
	for _, out := range cfg.Outputs {
		sig := verilog.Sanitize(out.Name)
		if out.Interface != config.RegisterInterface {
			sig = out.Interface
			data.BoardOutputs = append(data.BoardOutputs, boardSignal{Signal: sig, Width: out.Width})
		}
		data.Bindings = append(data.Bindings, binding{Port: verilog.Sanitize(out.Name), Signal: sig})
	}
	return tmpl.Execute(w, data)
}

// SetTemplateDir makes Generate read the wrapper template from dir instead
// of the built-in copy. It must be called before the first Generate.
func SetTemplateDir(dir string) {
	templateDir = dir
}

var (
	parsed    *template.Template
	parsedErr error
)

func loadTemplate() (*template.Template, error) {
	templateOnce.Do(func() {
		dir := templateDir
		if dir == "" {
			dir = os.Getenv("PIPESYNTH_TEMPLATE_DIR")
		}
		base := template.New(wrapperTemplate).Funcs(funcs)
		if dir != "" {
			parsed, parsedErr = base.ParseFiles(filepath.Join(dir, wrapperTemplate))
			return
		}
		parsed, parsedErr = base.ParseFS(builtin, "templates/"+wrapperTemplate)
	})
	if parsedErr != nil {
		return nil, fmt.Errorf("iface: load template: %w", parsedErr)
	}
	return parsed, nil
}

var funcs = template.FuncMap{
	"vec": func(width int) string {
		if width <= 1 {
			return "         "
		}
		return fmt.Sprintf("[%3d-1: 0]", width)
	},
	"msb": func(width int) int {
		if width < 1 {
			return 0
		}
		return width - 1
	},
	"hex": func(addr int) string {
		return fmt.Sprintf("%05x", addr)
	},
	"reset": func(width int) string {
		if width > 1 {
			return fmt.Sprintf("%d'd0", width)
		}
		return "1'b1"
	},
	"pad": func(width int) string {
		if width >= 32 {
			return "{"
		}
		return fmt.Sprintf("{{%d{1'b0}}, ", 32-width)
	},
}
