// Package frontend turns source files into the statement tree consumed by the
// synthesis passes. Two languages are accepted: the indentation-structured
// function-description language (.py) and a restricted Go subset (.go).
package frontend

import (
	"fmt"
	"go/token"
	"os"
	"path/filepath"
	"strings"

	"pipesynth/internal/diag"
	"pipesynth/internal/ir"
)

// Options tune Load.
type Options struct {
	// Function selects the Go function to synthesize.
	Function  string
	BuildTags []string
}

// Load parses path according to its extension. Positions of the returned
// tree resolve through the reporter's file set.
func Load(path string, opts Options, reporter *diag.Reporter) (*ir.Program, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".py":
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		fset := reporter.FileSet()
		if fset == nil {
			fset = token.NewFileSet()
			reporter.SetFileSet(fset)
		}
		return ParseSource(fset, path, src)
	case ".go":
		return LoadGo(LoadConfig{Sources: []string{path}, BuildTags: opts.BuildTags, Function: opts.Function}, reporter)
	default:
		return nil, fmt.Errorf("unsupported source file %s: expected .py or .go", path)
	}
}

func programName(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
