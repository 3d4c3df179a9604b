package compiler

import (
	"fmt"
	"strings"

	"github.com/thiremani/oslogopt/ir"
)

// ErrorKind categorizes why a log call could not be folded.
type ErrorKind string

const (
	// KindNonConstant means a value needed at compile time depends on
	// runtime input.
	KindNonConstant ErrorKind = "non_constant"
	// KindUnsupported means the message is built in a way the evaluator
	// does not model.
	KindUnsupported ErrorKind = "unsupported"
)

// EvalError is returned when a message cannot be evaluated at compile time.
// Instr is the instruction evaluation stopped at, if any.
type EvalError struct {
	Kind   ErrorKind
	Instr  *ir.Instr
	Detail string
}

var (
	ErrNonConstant = &EvalError{Kind: KindNonConstant}
	ErrUnsupported = &EvalError{Kind: KindUnsupported}
)

func (e *EvalError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Instr != nil {
		b.WriteString(" at ")
		if e.Instr.Result != "" {
			b.WriteString(e.Instr.Ref())
		} else {
			b.WriteString(e.Instr.Op.String())
		}
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

// Is matches any EvalError of the same kind, so errors.Is(err, ErrNonConstant)
// works for every non-constant failure.
func (e *EvalError) Is(target error) bool {
	if t, ok := target.(*EvalError); ok {
		return e.Kind == t.Kind
	}
	return false
}

func nonConstant(in *ir.Instr, format string, args ...any) *EvalError {
	return &EvalError{Kind: KindNonConstant, Instr: in, Detail: fmt.Sprintf(format, args...)}
}

func unsupported(in *ir.Instr, format string, args ...any) *EvalError {
	return &EvalError{Kind: KindUnsupported, Instr: in, Detail: fmt.Sprintf(format, args...)}
}
