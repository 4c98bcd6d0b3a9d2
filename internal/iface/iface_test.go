package iface

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"pipesynth/internal/config"
)

func fmConfig() *config.Config {
	return &config.Config{
		Name:         "fm",
		DefaultWidth: 16,
		Inputs: []config.Port{
			{Name: "a", Interface: "adc_a_i", Width: 14, Stream: true},
			{Name: "b", Interface: "adc_b_i", Width: 14, Stream: true},
			{Name: "f1", Interface: config.RegisterInterface, Width: 16},
			{Name: "gain", Interface: config.RegisterInterface, Width: 8},
			{Name: "sel", Interface: config.RegisterInterface, Width: 1},
		},
		Outputs: []config.Port{
			{Name: "mod", Interface: "dac_a_o", Width: 14},
			{Name: "level", Interface: config.RegisterInterface, Width: 32},
		},
	}
}

func TestRegisters(t *testing.T) {
	want := []Register{
		{Name: "f1", Addr: 0, Width: 16, Direction: "write"},
		{Name: "gain", Addr: 4, Width: 8, Direction: "write"},
		{Name: "sel", Addr: 8, Width: 1, Direction: "write"},
		{Name: "level", Addr: 12, Width: 32, Direction: "read"},
	}
	if diff := cmp.Diff(want, Registers(fmConfig())); diff != "" {
		t.Fatalf("register map mismatch (-want +got):\n%s", diff)
	}
	if regs := Registers(config.Default()); len(regs) != 0 {
		t.Fatalf("expected no registers without ports, got %v", regs)
	}
}

func TestGenerate(t *testing.T) {
	var buf bytes.Buffer
	if err := Generate(fmConfig(), &buf); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"module red_pitaya_fm (",
		"   input      [ 14-1: 0] adc_a_i,",
		"   output     [ 14-1: 0] dac_a_o,",
		"reg [ 16-1: 0] f1;",
		"reg           sel;",
		"wire [ 32-1: 0] level;",
		"   f1 <= 16'd0;",
		"   sel <= 1'b1;",
		"   if (sys_addr[19:0]==20'h00004) gain <= sys_wdata[7:0];",
		"      20'h00000 : begin sys_ack <= sys_en; sys_rdata <= {{16{1'b0}}, f1}; end",
		"      20'h0000c : begin sys_ack <= sys_en; sys_rdata <= {level}; end",
		"fm iProc (",
		"   .a ( adc_a_i ),",
		"   .gain ( gain ),",
		"   .mod ( dac_a_o ),",
		"   .level ( level )\n);",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("wrapper is missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "<no value>") {
		t.Fatalf("template referenced a missing field:\n%s", out)
	}
}

func TestGenerateSanitizesNames(t *testing.T) {
	cfg := &config.Config{
		Name:   "module",
		Inputs: []config.Port{{Name: "reg", Interface: config.RegisterInterface, Width: 4}},
	}
	var buf bytes.Buffer
	if err := Generate(cfg, &buf); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "module red_pitaya_module_ (") || !strings.Contains(out, "reg [  4-1: 0] reg_;") {
		t.Fatalf("expected sanitized names:\n%s", out)
	}
}

func TestGenerateRejectsNilConfig(t *testing.T) {
	if err := Generate(nil, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected an error for a nil configuration")
	}
}
