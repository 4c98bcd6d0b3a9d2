package diag

import (
	"errors"
	"fmt"
	"go/token"
)

// Fatal error classes. Every *Error unwraps to exactly one of them.
var (
	ErrStructural            = errors.New("structural error")
	ErrUndefinedVariable     = errors.New("undefined variable")
	ErrConflictingAssignment = errors.New("conflicting assignment")
	ErrUnsupportedConstruct  = errors.New("unsupported construct")
	ErrUnresolvedReturn      = errors.New("unresolved return")
	ErrInvariant             = errors.New("internal invariant violated")

	// ErrSyntax is raised by the front ends before the core runs.
	ErrSyntax = errors.New("syntax error")
)

// Error is a fatal compilation error naming the offending statement or
// variable.
type Error struct {
	Kind    error
	Subject string
	Detail  string
	Pos     token.Pos
}

// Errorf builds an *Error of the given kind.
func Errorf(kind error, subject string, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Subject: subject, Detail: fmt.Sprintf(format, args...)}
}

// At sets the source position.
func (e *Error) At(pos token.Pos) *Error {
	e.Pos = pos
	return e
}

func (e *Error) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("%v: %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("%v: %s: %s", e.Kind, e.Detail, e.Subject)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// Warning classes reported through the Reporter.
const (
	WidthMismatch        = "width-mismatch"
	MissingConfiguration = "missing-configuration"
)
