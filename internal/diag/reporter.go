package diag

import (
	"encoding/json"
	"errors"
	"fmt"
	"go/token"
	"io"

	"github.com/pterm/pterm"
)

// Severity orders diagnostics.
type Severity int

const (
	SeverityNote Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "note"
	}
}

// Diagnostic is a single reported message.
type Diagnostic struct {
	Severity Severity
	Code     string
	Position token.Position
	Message  string
}

var (
	errorStyle = pterm.NewStyle(pterm.BgRed, pterm.FgWhite)
	warnStyle  = pterm.NewStyle(pterm.BgYellow, pterm.FgBlack)
	noteStyle  = pterm.NewStyle(pterm.BgLightGreen, pterm.FgBlack)
	posColor   = pterm.FgLightBlue
)

// Reporter collects diagnostics and writes them as they arrive in one of the
// formats "text", "pretty" or "json".
type Reporter struct {
	w        io.Writer
	format   string
	fset     *token.FileSet
	diags    []Diagnostic
	errors   int
	warnings int
}

// NewReporter returns a reporter writing to w. An unknown format falls back
// to "text".
func NewReporter(w io.Writer, format string) *Reporter {
	switch format {
	case "text", "pretty", "json":
	default:
		format = "text"
	}
	if w == nil {
		w = io.Discard
	}
	return &Reporter{w: w, format: format}
}

// SetFileSet sets the file set used to resolve positions.
func (r *Reporter) SetFileSet(fset *token.FileSet) {
	if r != nil {
		r.fset = fset
	}
}

// FileSet returns the file set used to resolve positions.
func (r *Reporter) FileSet() *token.FileSet {
	if r == nil {
		return nil
	}
	return r.fset
}

// Error reports an error at pos.
func (r *Reporter) Error(pos token.Pos, msg string) {
	r.add(SeverityError, "", pos, msg)
}

// Errorf reports an error without position.
func (r *Reporter) Errorf(format string, args ...interface{}) {
	r.add(SeverityError, "", token.NoPos, fmt.Sprintf(format, args...))
}

// Warn reports a warning of the given class at pos.
func (r *Reporter) Warn(code string, pos token.Pos, msg string) {
	r.add(SeverityWarning, code, pos, msg)
}

// Warnf reports a warning of the given class without position.
func (r *Reporter) Warnf(code string, format string, args ...interface{}) {
	r.add(SeverityWarning, code, token.NoPos, fmt.Sprintf(format, args...))
}

// Notef reports an informational message.
func (r *Reporter) Notef(format string, args ...interface{}) {
	r.add(SeverityNote, "", token.NoPos, fmt.Sprintf(format, args...))
}

// Report records a fatal error returned by a pass. *Error values keep their
// position; other errors are reported as they are.
func (r *Reporter) Report(err error) {
	if err == nil {
		return
	}
	var de *Error
	if errors.As(err, &de) {
		r.Error(de.Pos, err.Error())
		return
	}
	r.Errorf("%v", err)
}

// HasErrors reports whether any error was recorded.
func (r *Reporter) HasErrors() bool {
	return r != nil && r.errors > 0
}

// WarningCount returns the number of warnings recorded.
func (r *Reporter) WarningCount() int {
	if r == nil {
		return 0
	}
	return r.warnings
}

// Diagnostics returns everything recorded so far.
func (r *Reporter) Diagnostics() []Diagnostic {
	if r == nil {
		return nil
	}
	return append([]Diagnostic(nil), r.diags...)
}

// Warnings returns the recorded warnings of class code, or all warnings when
// code is empty.
func (r *Reporter) Warnings(code string) []Diagnostic {
	if r == nil {
		return nil
	}
	var out []Diagnostic
	for _, d := range r.diags {
		if d.Severity == SeverityWarning && (code == "" || d.Code == code) {
			out = append(out, d)
		}
	}
	return out
}

func (r *Reporter) add(sev Severity, code string, pos token.Pos, msg string) {
	if r == nil {
		return
	}
	d := Diagnostic{Severity: sev, Code: code, Message: msg}
	if r.fset != nil && pos.IsValid() {
		d.Position = r.fset.Position(pos)
	}
	if sev == SeverityWarning {
		// Passes that re-run over the same tree repeat their warnings.
		for _, prev := range r.diags {
			if prev == d {
				return
			}
		}
	}
	r.diags = append(r.diags, d)
	switch sev {
	case SeverityError:
		r.errors++
	case SeverityWarning:
		r.warnings++
	}
	r.write(d)
}

func (r *Reporter) write(d Diagnostic) {
	switch r.format {
	case "json":
		rec := struct {
			Severity string `json:"severity"`
			Code     string `json:"code,omitempty"`
			File     string `json:"file,omitempty"`
			Line     int    `json:"line,omitempty"`
			Column   int    `json:"column,omitempty"`
			Message  string `json:"message"`
		}{
			Severity: d.Severity.String(),
			Code:     d.Code,
			File:     d.Position.Filename,
			Line:     d.Position.Line,
			Column:   d.Position.Column,
			Message:  d.Message,
		}
		data, err := json.Marshal(rec)
		if err != nil {
			fmt.Fprintf(r.w, "%s: %s\n", d.Severity, d.Message)
			return
		}
		fmt.Fprintln(r.w, string(data))
	case "pretty":
		var tag string
		switch d.Severity {
		case SeverityError:
			tag = errorStyle.Sprint(" ERROR ")
		case SeverityWarning:
			tag = warnStyle.Sprint(" WARNING ")
		default:
			tag = noteStyle.Sprint(" NOTE ")
		}
		if d.Position.IsValid() {
			fmt.Fprintf(r.w, "%s %s %s\n", tag, posColor.Sprint(d.Position.String()), d.Message)
			return
		}
		fmt.Fprintf(r.w, "%s %s\n", tag, d.Message)
	default:
		if d.Position.IsValid() {
			fmt.Fprintf(r.w, "%s: %s: %s\n", d.Position, d.Severity, d.Message)
			return
		}
		fmt.Fprintf(r.w, "%s: %s\n", d.Severity, d.Message)
	}
}
