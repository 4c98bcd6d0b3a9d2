package passes

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"pipesynth/internal/diag"
	"pipesynth/internal/ir"
)

func TestDecomposerHoistsOperands(t *testing.T) {
	reporter := diag.NewReporter(nil, "text")
	fn := parseFunction(t, "def f(a, b, c, d):\n    y = (a + b) * (c - d)\n    return y\n", nil, reporter)
	d := NewDecomposer()
	runPasses(t, fn, reporter, d)

	want := `def f(a, b, c, d):
    y1 = a + b
    y2 = c - d
    y = y1 * y2
    return y
`
	if diff := cmp.Diff(want, ir.Code(fn)); diff != "" {
		t.Fatalf("decomposed code mismatch (-want +got):\n%s", diff)
	}
	if d.Passes != 1 {
		t.Fatalf("expected a single changing pass, got %d", d.Passes)
	}
}

func TestDecomposerReachesFixedPoint(t *testing.T) {
	reporter := diag.NewReporter(nil, "text")
	fn := parseFunction(t, fmSource, fmConfig(), reporter)
	d := NewDecomposer()
	runPasses(t, fn, reporter, d)

	if !canonical(fn.Body) {
		t.Fatalf("body not canonical after decomposition:\n%s", ir.Code(fn))
	}
	if d.Passes != 5 {
		t.Fatalf("expected 5 changing passes, got %d", d.Passes)
	}

	before := ir.Code(fn)
	runPasses(t, fn, reporter, d)
	if d.Passes != 0 {
		t.Fatalf("second run changed the body %d time(s)", d.Passes)
	}
	if diff := cmp.Diff(before, ir.Code(fn)); diff != "" {
		t.Fatalf("decomposition is not idempotent (-first +second):\n%s", diff)
	}
}

func TestDecomposerKeepsHoistedNamesUnique(t *testing.T) {
	src := `def f(a, b):
    y1 = a + b
    y = (a - b) * (a + b)
    return y, y1
`
	reporter := diag.NewReporter(nil, "text")
	fn := parseFunction(t, src, nil, reporter)
	runPasses(t, fn, reporter, NewDecomposer())

	want := `def f(a, b):
    y1 = a + b
    y1_1 = a - b
    y2 = a + b
    y = y1_1 * y2
    return y, y1
`
	if diff := cmp.Diff(want, ir.Code(fn)); diff != "" {
		t.Fatalf("decomposed code mismatch (-want +got):\n%s", diff)
	}
}

func TestDecomposerCopiesGuards(t *testing.T) {
	src := `def f(a, b, s):
    if s:
        y = (a + b) * a
    else:
        y = a
    return y
`
	reporter := diag.NewReporter(nil, "text")
	fn := parseFunction(t, src, nil, reporter)
	runPasses(t, fn, reporter, NewDecomposer(), NewFlattener())

	assigns := fn.Body.Assigns()
	if len(assigns) != 3 {
		t.Fatalf("expected 3 assignments, got %d:\n%s", len(assigns), ir.Code(fn))
	}
	for _, a := range assigns[:2] {
		if len(a.Guards) != 1 || !a.Guards[0].Polarity {
			t.Fatalf("expected a positive guard on %s", ir.StmtString(a))
		}
	}
	if g := assigns[2].Guards; len(g) != 1 || g[0].Polarity {
		t.Fatalf("expected a negative guard on %s", ir.StmtString(assigns[2]))
	}
}
