package frontend

import (
	"go/token"
)

// Lexer tokenizes indentation-structured source. Leading whitespace changes
// are reported as Indent and Dedent tokens; blank and comment-only lines
// produce nothing, and newlines inside parentheses are ignored.
type Lexer struct {
	src  []byte
	file *token.File
	off  int

	lineStart bool
	indents   []int
	parens    int
	pending   []Token
	done      bool
}

// NewLexer returns a lexer over src. file must have been added to a file
// set with the size of src.
func NewLexer(file *token.File, src []byte) *Lexer {
	file.SetLinesForContent(src)
	return &Lexer{src: src, file: file, lineStart: true, indents: []int{0}}
}

func (l *Lexer) pos(off int) token.Pos {
	return l.file.Pos(off)
}

func (l *Lexer) peekByte(n int) byte {
	if l.off+n < len(l.src) {
		return l.src[l.off+n]
	}
	return 0
}

// Next returns the next token. After EOF it keeps returning EOF.
func (l *Lexer) Next() Token {
	for len(l.pending) == 0 {
		l.scan()
	}
	tok := l.pending[0]
	l.pending = l.pending[1:]
	return tok
}

func (l *Lexer) emit(kind Kind, lit string, off int) {
	l.pending = append(l.pending, Token{Kind: kind, Lit: lit, Pos: l.pos(off)})
}

func (l *Lexer) scan() {
	if l.done {
		l.emit(EOF, "", len(l.src))
		return
	}
	if l.lineStart && l.parens == 0 {
		if l.scanIndent() {
			return
		}
	}
	l.skipSpace()
	if l.off >= len(l.src) {
		l.finish()
		return
	}

	start := l.off
	c := l.src[l.off]
	switch {
	case c == '\n':
		l.off++
		if l.parens > 0 {
			return
		}
		l.lineStart = true
		l.emit(Newline, "\n", start)
		return
	case isLetter(c):
		for l.off < len(l.src) && (isLetter(l.src[l.off]) || isDigit(l.src[l.off])) {
			l.off++
		}
		word := string(l.src[start:l.off])
		if kw, ok := keywords[word]; ok {
			l.emit(kw, word, start)
			return
		}
		l.emit(Name, word, start)
		return
	case isDigit(c):
		for l.off < len(l.src) && isDigit(l.src[l.off]) {
			l.off++
		}
		l.emit(Int, string(l.src[start:l.off]), start)
		return
	}

	two := string([]byte{c, l.peekByte(1)})
	switch two {
	case ">>":
		l.off += 2
		l.emit(Shr, two, start)
		return
	case "==":
		l.off += 2
		l.emit(Eq, two, start)
		return
	case "!=":
		l.off += 2
		l.emit(Ne, two, start)
		return
	case "<=":
		l.off += 2
		l.emit(Le, two, start)
		return
	case ">=":
		l.off += 2
		l.emit(Ge, two, start)
		return
	}

	l.off++
	switch c {
	case '=':
		l.emit(Assign, "=", start)
	case '+':
		l.emit(Plus, "+", start)
	case '-':
		l.emit(Minus, "-", start)
	case '*':
		l.emit(Star, "*", start)
	case '<':
		l.emit(Lt, "<", start)
	case '>':
		l.emit(Gt, ">", start)
	case '(':
		l.parens++
		l.emit(LParen, "(", start)
	case ')':
		if l.parens > 0 {
			l.parens--
		}
		l.emit(RParen, ")", start)
	case ',':
		l.emit(Comma, ",", start)
	case ':':
		l.emit(Colon, ":", start)
	case ';':
		l.emit(Semicolon, ";", start)
	default:
		l.emit(Illegal, string(c), start)
	}
}

// scanIndent measures the indentation of the next non-blank line and queues
// the matching Indent or Dedent tokens. It reports whether tokens were
// queued.
func (l *Lexer) scanIndent() bool {
	for {
		width := 0
	measure:
		for l.off < len(l.src) {
			switch l.src[l.off] {
			case ' ':
				width++
			case '\t':
				width += 8 - width%8
			case '\r':
			default:
				break measure
			}
			l.off++
		}
		if l.off >= len(l.src) {
			return false
		}
		switch l.src[l.off] {
		case '\n':
			l.off++
			continue
		case '#':
			l.skipComment()
			if l.off < len(l.src) {
				l.off++
			}
			continue
		}
		l.lineStart = false
		top := l.indents[len(l.indents)-1]
		switch {
		case width > top:
			l.indents = append(l.indents, width)
			l.emit(Indent, "", l.off)
			return true
		case width < top:
			for width < l.indents[len(l.indents)-1] {
				l.indents = l.indents[:len(l.indents)-1]
				l.emit(Dedent, "", l.off)
			}
			if width != l.indents[len(l.indents)-1] {
				l.emit(Illegal, "inconsistent indentation", l.off)
			}
			return true
		}
		return false
	}
}

func (l *Lexer) skipSpace() {
	for l.off < len(l.src) {
		switch l.src[l.off] {
		case ' ', '\t', '\r':
			l.off++
		case '#':
			l.skipComment()
		case '\\':
			if l.peekByte(1) == '\n' {
				l.off += 2
				continue
			}
			return
		default:
			return
		}
	}
}

func (l *Lexer) skipComment() {
	for l.off < len(l.src) && l.src[l.off] != '\n' {
		l.off++
	}
}

// finish terminates the last logical line and closes open blocks.
func (l *Lexer) finish() {
	end := len(l.src)
	if !l.lineStart {
		l.emit(Newline, "", end)
		l.lineStart = true
	}
	for len(l.indents) > 1 {
		l.indents = l.indents[:len(l.indents)-1]
		l.emit(Dedent, "", end)
	}
	l.emit(EOF, "", end)
	l.done = true
}

func isLetter(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
