package frontend

import (
	"go/token"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func lexKinds(t *testing.T, src string) []Kind {
	t.Helper()
	fset := token.NewFileSet()
	lex := NewLexer(fset.AddFile("test.py", -1, len(src)), []byte(src))
	var kinds []Kind
	for i := 0; i < 1000; i++ {
		tok := lex.Next()
		kinds = append(kinds, tok.Kind)
		if tok.Kind == EOF {
			return kinds
		}
	}
	t.Fatalf("lexer did not terminate")
	return nil
}

func TestLexerBlocks(t *testing.T) {
	src := "def f(a):\n    if a > 0:\n        y = a\n    return y\n"
	want := []Kind{
		Def, Name, LParen, Name, RParen, Colon, Newline,
		Indent, If, Name, Gt, Int, Colon, Newline,
		Indent, Name, Assign, Name, Newline,
		Dedent, Return, Name, Newline,
		Dedent, EOF,
	}
	if diff := cmp.Diff(want, lexKinds(t, src)); diff != "" {
		t.Fatalf("token mismatch (-want +got):\n%s", diff)
	}
}

func TestLexerSkipsBlankLinesAndComments(t *testing.T) {
	src := "# header\n\ndef f(a):  # trailing\n\n    # inside\n    return a"
	want := []Kind{
		Def, Name, LParen, Name, RParen, Colon, Newline,
		Indent, Return, Name, Newline,
		Dedent, EOF,
	}
	if diff := cmp.Diff(want, lexKinds(t, src)); diff != "" {
		t.Fatalf("token mismatch (-want +got):\n%s", diff)
	}
}

func TestLexerJoinsLines(t *testing.T) {
	src := "y = (a +\n        b) \\\n    >> 2\n"
	want := []Kind{Name, Assign, LParen, Name, Plus, Name, RParen, Shr, Int, Newline, EOF}
	if diff := cmp.Diff(want, lexKinds(t, src)); diff != "" {
		t.Fatalf("token mismatch (-want +got):\n%s", diff)
	}
}

func TestLexerOperators(t *testing.T) {
	src := "== != <= >= < > >> = + - * , : ; ( )"
	want := []Kind{Eq, Ne, Le, Ge, Lt, Gt, Shr, Assign, Plus, Minus, Star, Comma, Colon, Semicolon, LParen, RParen, Newline, EOF}
	if diff := cmp.Diff(want, lexKinds(t, src)); diff != "" {
		t.Fatalf("token mismatch (-want +got):\n%s", diff)
	}
}

func TestLexerReportsIllegalInput(t *testing.T) {
	cases := map[string]string{
		"character":   "y = a $ b\n",
		"indentation": "def f(a):\n        x = a\n    return x\n",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			found := false
			for _, k := range lexKinds(t, src) {
				if k == Illegal {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected an illegal token in %q", src)
			}
		})
	}
}

func TestLexerPositions(t *testing.T) {
	src := "def f(a):\n    return a\n"
	fset := token.NewFileSet()
	lex := NewLexer(fset.AddFile("fm.py", -1, len(src)), []byte(src))
	for {
		tok := lex.Next()
		if tok.Kind == Return {
			pos := fset.Position(tok.Pos)
			if pos.Line != 2 || pos.Column != 5 {
				t.Fatalf("expected return at 2:5, got %s", pos)
			}
			return
		}
		if tok.Kind == EOF {
			t.Fatalf("return not found")
		}
	}
}
