package backend

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"pipesynth/internal/config"
	"pipesynth/internal/ir"
	"pipesynth/internal/iface"
	"pipesynth/internal/verilog"
)

// DefaultLintArgs are passed to the lint tool when Options.LintArgs is empty.
var DefaultLintArgs = []string{"--lint-only", "-Wno-fatal"}

// Options configures how the Verilog bundle is written.
type Options struct {
	// LintToolPath optionally names a Verilog lint tool (for example
	// verilator) run over every written file. Empty skips linting.
	LintToolPath string
	// LintArgs precede the file list on the lint command line.
	LintArgs []string
	// Wrapper, when set, also writes the board wrapper next to the design
	// as <output>_iface.v.
	Wrapper *config.Config
	// DumpIRPath writes the textual IR of the design when non-empty.
	DumpIRPath string
	// Stdout receives the design when the output path is "-" or empty.
	Stdout io.Writer
}

// Result lists the artifacts produced during Verilog emission.
type Result struct {
	MainPath string
	AuxPaths []string
	// LintOutput holds what the lint tool printed.
	LintOutput string
}

// EmitVerilog writes the design to outputPath and, depending on opts, the
// board wrapper, an IR dump and a lint run over the result.
func EmitVerilog(design *ir.Design, outputPath string, opts Options) (Result, error) {
	if design == nil {
		return Result{}, fmt.Errorf("backend: design is nil")
	}
	if opts.DumpIRPath != "" {
		if err := writeFile(opts.DumpIRPath, func(w io.Writer) error {
			ir.Dump(design, w)
			return nil
		}); err != nil {
			return Result{}, fmt.Errorf("backend: dump ir: %w", err)
		}
	}

	if outputPath == "" || outputPath == "-" {
		if opts.Wrapper != nil || opts.LintToolPath != "" {
			return Result{}, fmt.Errorf("backend: wrapper generation and linting require -o")
		}
		w := opts.Stdout
		if w == nil {
			w = os.Stdout
		}
		if err := verilog.Emit(design, w); err != nil {
			return Result{}, fmt.Errorf("backend: emit verilog: %w", err)
		}
		return Result{MainPath: "-"}, nil
	}

	var lintPath string
	if opts.LintToolPath != "" {
		var err error
		if lintPath, err = resolveBinary(opts.LintToolPath, "verilator"); err != nil {
			return Result{}, fmt.Errorf("backend: resolve lint tool: %w", err)
		}
	}

	if err := writeFile(outputPath, func(w io.Writer) error {
		return verilog.Emit(design, w)
	}); err != nil {
		return Result{}, fmt.Errorf("backend: emit verilog: %w", err)
	}
	res := Result{MainPath: outputPath}

	if opts.Wrapper != nil {
		wrapperPath := WrapperPath(outputPath)
		if err := writeFile(wrapperPath, func(w io.Writer) error {
			return iface.Generate(opts.Wrapper, w)
		}); err != nil {
			return Result{}, fmt.Errorf("backend: emit wrapper: %w", err)
		}
		res.AuxPaths = append(res.AuxPaths, wrapperPath)
	}

	if lintPath != "" {
		args := opts.LintArgs
		if len(args) == 0 {
			args = DefaultLintArgs
		}
		files := append([]string{res.MainPath}, res.AuxPaths...)
		out, err := runLint(lintPath, args, files)
		res.LintOutput = out
		if err != nil {
			return res, err
		}
	}
	return res, nil
}

// WrapperPath returns the wrapper file written next to a design file.
func WrapperPath(outputPath string) string {
	return strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + "_iface.v"
}

func writeFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func runLint(binary string, args, files []string) (string, error) {
	cmd := exec.Command(binary, append(append([]string(nil), args...), files...)...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return out.String(), fmt.Errorf("backend: lint failed: %w\n%s", err, out.String())
	}
	return out.String(), nil
}

func resolveBinary(explicit, fallback string) (string, error) {
	if explicit != "" && explicit != fallback {
		if _, err := os.Stat(explicit); err != nil {
			return "", err
		}
		return explicit, nil
	}
	path, err := exec.LookPath(fallback)
	if err != nil {
		return "", err
	}
	return path, nil
}
