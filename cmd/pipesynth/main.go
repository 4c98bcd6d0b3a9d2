package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"pipesynth/internal/backend"
	"pipesynth/internal/config"
	"pipesynth/internal/diag"
	"pipesynth/internal/frontend"
	"pipesynth/internal/iface"
	"pipesynth/internal/ir"
	"pipesynth/internal/passes"
)

var version = "0.3.0"

var emitVerilog = backend.EmitVerilog

// errReported marks failures whose diagnostics were already written by the
// reporter.
var errReported = errors.New("pipesynth: errors reported")

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func run(args []string, out, errOut io.Writer) error {
	root := newRootCmd(out, errOut)
	root.SetArgs(args)
	return root.Execute()
}

type globalOptions struct {
	diagFormat string
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	g := &globalOptions{}
	root := &cobra.Command{
		Use:   "pipesynth",
		Short: "pipesynth compiles arithmetic functions into pipelined Verilog",
		Long: `pipesynth reads a single arithmetic function, decomposes it into
two-operand operations, infers bit widths, retimes it into register stages
and prints the result as synthesizable Verilog.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(errOut)
	root.PersistentFlags().StringVar(&g.diagFormat, "diag-format", "text", "diagnostic output format (text|pretty|json)")

	root.AddCommand(newCompileCmd(g, out, errOut))
	root.AddCommand(newCheckCmd(g, out, errOut))
	root.AddCommand(newIfaceCmd(out))
	return root
}

type sourceOptions struct {
	config    string
	function  string
	buildTags []string
}

func (o *sourceOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.config, "config", "c", "", "port configuration (.toml or .yaml)")
	cmd.Flags().StringVar(&o.function, "function", "", "Go function to synthesize (default: the first function of the file)")
	cmd.Flags().StringSliceVar(&o.buildTags, "tags", nil, "Go build tags used when loading .go sources")
}

type compileOptions struct {
	sourceOptions
	emit        string
	output      string
	wrapper     bool
	lintTool    string
	lintArgs    string
	dumpIR      string
	templateDir string
	report      bool
}

func newCompileCmd(g *globalOptions, out, errOut io.Writer) *cobra.Command {
	o := &compileOptions{}
	cmd := &cobra.Command{
		Use:   "compile <source>",
		Short: "Compile a function to IR, source code or Verilog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(args[0], o, g, out, errOut)
		},
	}
	o.register(cmd)
	cmd.Flags().StringVar(&o.emit, "emit", "verilog", "output format (ir|code|verilog)")
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "output file path (stdout when omitted)")
	cmd.Flags().BoolVar(&o.wrapper, "iface", false, "also write the board wrapper as <output>_iface.v")
	cmd.Flags().StringVar(&o.lintTool, "lint-tool", "", "Verilog lint tool run over the output (e.g. verilator)")
	cmd.Flags().StringVar(&o.lintArgs, "lint-args", "", "lint tool arguments (space-separated, default --lint-only -Wno-fatal)")
	cmd.Flags().StringVar(&o.dumpIR, "dump-ir", "", "path to dump the lowered IR next to the Verilog output")
	cmd.Flags().StringVar(&o.templateDir, "template-dir", "", "directory overriding the built-in wrapper template")
	cmd.Flags().BoolVar(&o.report, "report", false, "print the resource and level report")
	return cmd
}

func runCompile(src string, o *compileOptions, g *globalOptions, out, errOut io.Writer) error {
	reporter := diag.NewReporter(errOut, g.diagFormat)
	cfg, err := loadConfig(o.config)
	if err != nil {
		return err
	}
	res, err := synthesize(src, &o.sourceOptions, cfg, reporter)
	if err != nil {
		return err
	}
	design := &ir.Design{Modules: []*ir.Module{res.Module}, TopLevel: res.Module}

	switch o.emit {
	case "ir":
		if err := writeOutput(o.output, out, func(w io.Writer) error {
			ir.Dump(design, w)
			return nil
		}); err != nil {
			return err
		}
	case "code":
		if err := writeOutput(o.output, out, func(w io.Writer) error {
			_, err := io.WriteString(w, ir.Code(res.Function))
			return err
		}); err != nil {
			return err
		}
	case "verilog":
		if o.templateDir != "" {
			iface.SetTemplateDir(o.templateDir)
		}
		opts := backend.Options{
			LintToolPath: o.lintTool,
			LintArgs:     strings.Fields(o.lintArgs),
			DumpIRPath:   o.dumpIR,
			Stdout:       out,
		}
		if o.wrapper {
			opts.Wrapper = cfg
		}
		bundle, err := emitVerilog(design, o.output, opts)
		if err != nil {
			return err
		}
		if len(bundle.AuxPaths) > 0 {
			fmt.Fprintf(errOut, "additional sources written: %s\n", strings.Join(bundle.AuxPaths, ", "))
		}
	default:
		return fmt.Errorf("unknown emit format: %s", o.emit)
	}

	if o.report {
		return printReport(out, res, cfg)
	}
	return nil
}

func newCheckCmd(g *globalOptions, out, errOut io.Writer) *cobra.Command {
	o := &sourceOptions{}
	cmd := &cobra.Command{
		Use:   "check <source>",
		Short: "Run the synthesis core and report diagnostics only",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reporter := diag.NewReporter(errOut, g.diagFormat)
			cfg, err := loadConfig(o.config)
			if err != nil {
				return err
			}
			res, err := synthesize(args[0], o, cfg, reporter)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s: ok, %d stage(s), %d warning(s)\n", res.Module.Name, res.Stages, reporter.WarningCount())
			return nil
		},
	}
	o.register(cmd)
	return cmd
}

func newIfaceCmd(out io.Writer) *cobra.Command {
	var (
		cfgPath     string
		output      string
		templateDir string
		report      bool
	)
	cmd := &cobra.Command{
		Use:   "iface",
		Short: "Write the register-mapped board wrapper only",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if templateDir != "" {
				iface.SetTemplateDir(templateDir)
			}
			if err := writeOutput(output, out, func(w io.Writer) error {
				return iface.Generate(cfg, w)
			}); err != nil {
				return err
			}
			if report {
				return renderTable(out, registerTable(cfg))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "port configuration (.toml or .yaml)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file path (stdout when omitted)")
	cmd.Flags().StringVar(&templateDir, "template-dir", "", "directory overriding the built-in wrapper template")
	cmd.Flags().BoolVar(&report, "report", false, "print the register map")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// synthesize runs the front end and the core. Diagnostics of failures are
// written by the reporter before errReported is returned.
func synthesize(src string, o *sourceOptions, cfg *config.Config, reporter *diag.Reporter) (*passes.Result, error) {
	prog, err := frontend.Load(src, frontend.Options{Function: o.function, BuildTags: o.buildTags}, reporter)
	if err != nil {
		reporter.Report(err)
		return nil, fmt.Errorf("%w: %w", errReported, err)
	}
	if reporter.HasErrors() {
		return nil, fmt.Errorf("%w while loading %s", errReported, src)
	}
	res, err := passes.Synthesize(prog, cfg, reporter)
	if err != nil {
		reporter.Report(err)
		return nil, fmt.Errorf("%w: %w", errReported, err)
	}
	return res, nil
}

func writeOutput(path string, stdout io.Writer, write func(io.Writer) error) error {
	if path == "" || path == "-" {
		return write(stdout)
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
