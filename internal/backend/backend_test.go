package backend

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"pipesynth/internal/config"
	"pipesynth/internal/ir"
)

func TestEmitVerilogWritesDesign(t *testing.T) {
	design := testDesign()
	out := filepath.Join(t.TempDir(), "out.v")
	res, err := EmitVerilog(design, out, Options{})
	if err != nil {
		t.Fatalf("EmitVerilog failed: %v", err)
	}
	if res.MainPath != out {
		t.Fatalf("expected main path %s, got %s", out, res.MainPath)
	}
	if len(res.AuxPaths) != 0 {
		t.Fatalf("expected no aux files, got %v", res.AuxPaths)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	text := string(data)
	for _, want := range []string{"module adder (", "always @(posedge clk) begin", "y <= a + b;", "endmodule"} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in output:\n%s", want, text)
		}
	}
}

func TestEmitVerilogToStdout(t *testing.T) {
	var buf bytes.Buffer
	res, err := EmitVerilog(testDesign(), "-", Options{Stdout: &buf})
	if err != nil {
		t.Fatalf("EmitVerilog failed: %v", err)
	}
	if res.MainPath != "-" {
		t.Fatalf("expected stdout marker, got %s", res.MainPath)
	}
	if !strings.Contains(buf.String(), "module adder") {
		t.Fatalf("expected module on stdout, got:\n%s", buf.String())
	}
}

func TestEmitVerilogStdoutRejectsWrapper(t *testing.T) {
	_, err := EmitVerilog(testDesign(), "", Options{Wrapper: testConfig(), Stdout: &bytes.Buffer{}})
	if err == nil || !strings.Contains(err.Error(), "require -o") {
		t.Fatalf("expected -o error, got %v", err)
	}
}

func TestEmitVerilogWritesWrapperAndDump(t *testing.T) {
	tmp := t.TempDir()
	out := filepath.Join(tmp, "adder.v")
	dump := filepath.Join(tmp, "adder.ir")
	res, err := EmitVerilog(testDesign(), out, Options{Wrapper: testConfig(), DumpIRPath: dump})
	if err != nil {
		t.Fatalf("EmitVerilog failed: %v", err)
	}
	wantAux := filepath.Join(tmp, "adder_iface.v")
	if len(res.AuxPaths) != 1 || res.AuxPaths[0] != wantAux {
		t.Fatalf("expected aux %s, got %v", wantAux, res.AuxPaths)
	}
	wrapper, err := os.ReadFile(wantAux)
	if err != nil {
		t.Fatalf("read wrapper: %v", err)
	}
	if !strings.Contains(string(wrapper), "module red_pitaya_adder") {
		t.Fatalf("unexpected wrapper:\n%s", wrapper)
	}
	irText, err := os.ReadFile(dump)
	if err != nil {
		t.Fatalf("read dump: %v", err)
	}
	if !strings.Contains(string(irText), "module adder (stages=1)") {
		t.Fatalf("unexpected dump:\n%s", irText)
	}
}

func TestEmitVerilogRunsLintTool(t *testing.T) {
	requirePosix(t)
	tmp := t.TempDir()
	lint := writeScript(t, tmp, "lint.sh", `#!/bin/sh
set -e
for arg in "$@"; do
  case "$arg" in
    -*)
      echo "flag $arg"
      ;;
    *)
      head -n 1 "$arg" > /dev/null
      echo "file $(basename "$arg")"
      ;;
  esac
done
`)
	out := filepath.Join(tmp, "adder.v")
	res, err := EmitVerilog(testDesign(), out, Options{LintToolPath: lint, Wrapper: testConfig()})
	if err != nil {
		t.Fatalf("EmitVerilog failed: %v", err)
	}
	for _, want := range []string{"flag --lint-only", "file adder.v", "file adder_iface.v"} {
		if !strings.Contains(res.LintOutput, want) {
			t.Fatalf("expected %q in lint output:\n%s", want, res.LintOutput)
		}
	}
}

func TestEmitVerilogReportsLintFailure(t *testing.T) {
	requirePosix(t)
	tmp := t.TempDir()
	lint := writeScript(t, tmp, "lint.sh", `#!/bin/sh
echo "%Error: adder.v:3: syntax error" >&2
exit 1
`)
	res, err := EmitVerilog(testDesign(), filepath.Join(tmp, "adder.v"), Options{LintToolPath: lint, LintArgs: []string{"--strict"}})
	if err == nil || !strings.Contains(err.Error(), "lint failed") {
		t.Fatalf("expected lint failure, got %v", err)
	}
	if !strings.Contains(res.LintOutput, "syntax error") {
		t.Fatalf("expected captured lint output, got %q", res.LintOutput)
	}
}

func TestEmitVerilogMissingLintTool(t *testing.T) {
	tmp := t.TempDir()
	out := filepath.Join(tmp, "out.v")
	_, err := EmitVerilog(testDesign(), out, Options{LintToolPath: filepath.Join(tmp, "missing")})
	if err == nil {
		t.Fatalf("expected error when the lint tool is missing")
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Fatalf("expected no output when the lint tool cannot be resolved")
	}
}

func TestWrapperPath(t *testing.T) {
	cases := map[string]string{
		"out/fm.v": "out/fm_iface.v",
		"fm.sv":    "fm_iface.v",
		"noext":    "noext_iface.v",
	}
	for in, want := range cases {
		if got := WrapperPath(in); got != want {
			t.Fatalf("WrapperPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func testDesign() *ir.Design {
	a := &ir.Variable{Name: "a", Base: "a", Role: ir.RoleInput, Size: 8}
	b := &ir.Variable{Name: "b", Base: "b", Role: ir.RoleInput, Size: 8}
	y := &ir.Variable{Name: "y", Base: "y", Role: ir.RoleOutput, Size: 9, Register: true, Stage: 1, TreeLevel: 1}
	assign := ir.NewAssign(y, &ir.Op{Left: a, Kind: ir.OpAdd, Right: b})
	assign.Clocked = true
	body := ir.NewBody(0)
	body.Add(assign)
	mod := &ir.Module{
		Name: "adder",
		Ports: []ir.Port{
			{Name: "a", Direction: ir.Input, Width: 8, Var: a},
			{Name: "b", Direction: ir.Input, Width: 8, Var: b},
			{Name: "y", Direction: ir.Output, Width: 9, Var: y},
		},
		Processes: []*ir.Process{{Name: "pipeline", Sensitivity: ir.Sequential, Body: body}},
		Stages:    1,
	}
	return &ir.Design{Modules: []*ir.Module{mod}, TopLevel: mod}
}

func testConfig() *config.Config {
	return &config.Config{
		Name: "adder",
		Inputs: []config.Port{
			{Name: "a", Interface: "adc_a_i", Width: 8},
			{Name: "b", Interface: config.RegisterInterface, Width: 8},
		},
		Outputs: []config.Port{{Name: "y", Interface: "dac_a_o", Width: 9}},
	}
}

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	if runtime.GOOS == "windows" {
		t.Skip("tests require a POSIX shell")
	}
	return path
}

func requirePosix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("tests require a POSIX shell")
	}
}
