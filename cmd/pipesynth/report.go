package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pterm/pterm"

	"pipesynth/internal/config"
	"pipesynth/internal/iface"
	"pipesynth/internal/passes"
)

func printReport(w io.Writer, res *passes.Result, cfg *config.Config) error {
	if err := renderTable(w, resourceTable(res)); err != nil {
		return err
	}
	fmt.Fprintln(w)
	if err := renderTable(w, levelTable(&res.Transform)); err != nil {
		return err
	}
	if cfg != nil && len(iface.Registers(cfg)) > 0 {
		fmt.Fprintln(w)
		return renderTable(w, registerTable(cfg))
	}
	return nil
}

func resourceTable(res *passes.Result) pterm.TableData {
	return pterm.TableData{
		{"resource", "source", "pipelined"},
		{"add/sub", strconv.Itoa(res.Analysis.AddSub), strconv.Itoa(res.Transform.AddSub)},
		{"mul", strconv.Itoa(res.Analysis.Mul), strconv.Itoa(res.Transform.Mul)},
		{"levels", strconv.Itoa(res.Analysis.MaxLevel()), strconv.Itoa(res.Transform.MaxLevel())},
		{"stages", "", strconv.Itoa(res.Stages)},
		{"balancing registers", "", strconv.Itoa(res.Balancing)},
		{"decomposition passes", strconv.Itoa(res.DecompositionPasses), ""},
	}
}

func levelTable(stats *passes.Stats) pterm.TableData {
	data := pterm.TableData{{"level", "variables"}}
	for _, l := range stats.SortedLevels() {
		data = append(data, []string{strconv.Itoa(l), strings.Join(stats.Levels[l], ", ")})
	}
	return data
}

func registerTable(cfg *config.Config) pterm.TableData {
	data := pterm.TableData{{"register", "address", "width", "access"}}
	for _, reg := range iface.Registers(cfg) {
		data = append(data, []string{reg.Name, fmt.Sprintf("0x%05x", reg.Addr), strconv.Itoa(reg.Width), reg.Direction})
	}
	return data
}

func renderTable(w io.Writer, data pterm.TableData) error {
	text, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, text)
	return err
}
