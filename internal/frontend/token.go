package frontend

import "go/token"

// Kind classifies a lexical token of the function-description language.
type Kind int

const (
	EOF Kind = iota
	Illegal
	Newline
	Indent
	Dedent

	Name
	Int

	// Keywords
	Def
	If
	Elif
	Else
	Return
	True
	False
	And
	Or
	Not

	// Operators and punctuation
	Assign
	Plus
	Minus
	Star
	Shr
	Eq
	Ne
	Lt
	Le
	Gt
	Ge
	LParen
	RParen
	Comma
	Colon
	Semicolon
)

var kindNames = [...]string{
	EOF:       "end of file",
	Illegal:   "illegal token",
	Newline:   "newline",
	Indent:    "indent",
	Dedent:    "dedent",
	Name:      "name",
	Int:       "integer",
	Def:       "def",
	If:        "if",
	Elif:      "elif",
	Else:      "else",
	Return:    "return",
	True:      "True",
	False:     "False",
	And:       "and",
	Or:        "or",
	Not:       "not",
	Assign:    "=",
	Plus:      "+",
	Minus:     "-",
	Star:      "*",
	Shr:       ">>",
	Eq:        "==",
	Ne:        "!=",
	Lt:        "<",
	Le:        "<=",
	Gt:        ">",
	Ge:        ">=",
	LParen:    "(",
	RParen:    ")",
	Comma:     ",",
	Colon:     ":",
	Semicolon: ";",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "?"
}

var keywords = map[string]Kind{
	"def":    Def,
	"if":     If,
	"elif":   Elif,
	"else":   Else,
	"return": Return,
	"True":   True,
	"False":  False,
	"and":    And,
	"or":     Or,
	"not":    Not,
}

// Token is a lexical token with its source position.
type Token struct {
	Kind Kind
	Lit  string
	Pos  token.Pos
}
