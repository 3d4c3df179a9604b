package compiler

import (
	"strings"

	"github.com/thiremani/oslogopt/ir"
	"github.com/thiremani/oslogopt/types"
)

type Base int

const (
	Decimal Base = iota
	Hex
	Octal
)

func (b Base) String() string {
	switch b {
	case Hex:
		return "hex"
	case Octal:
		return "octal"
	}
	return "decimal"
}

// FormatSpec is how an interpolated integer is displayed. The zero value is
// plain decimal.
type FormatSpec struct {
	Base      Base
	Uppercase bool
	Prefix    bool
}

type Privacy int

const (
	Public Privacy = iota
	Private
	Sensitive
)

func (p Privacy) String() string {
	switch p {
	case Private:
		return "private"
	case Sensitive:
		return "sensitive"
	}
	return "public"
}

// IsPrivate reports whether values with this privacy are redacted.
func (p Privacy) IsPrivate() bool { return p != Public }

// Argument is an interpolated value. Value is the runtime IR value whose bytes
// the packer writes; it is never inspected while folding.
type Argument struct {
	Type    types.Scalar
	Format  FormatSpec
	Privacy Privacy
	Value   ir.Value
}

// Segment is either literal text or an argument.
type Segment struct {
	Literal  string
	Argument *Argument
}

func (s Segment) IsLiteral() bool { return s.Argument == nil }

// Message is the ordered list of segments of one log call.
type Message struct {
	Segments []Segment
}

func NewMessage() *Message {
	return &Message{}
}

func (m *Message) AppendLiteral(text string) {
	if text == "" {
		return
	}
	m.Segments = append(m.Segments, Segment{Literal: text})
}

func (m *Message) AppendArgument(arg Argument) {
	m.Segments = append(m.Segments, Segment{Argument: &arg})
}

// Arguments returns the arguments in message order.
func (m *Message) Arguments() []*Argument {
	var args []*Argument
	for _, s := range m.Segments {
		if !s.IsLiteral() {
			args = append(args, s.Argument)
		}
	}
	return args
}

// Clone returns a copy that can be appended to without affecting m.
func (m *Message) Clone() *Message {
	return &Message{Segments: append([]Segment(nil), m.Segments...)}
}

// Text renders the message with arguments shown as {Type}, for remarks.
func (m *Message) Text() string {
	var out strings.Builder
	for _, s := range m.Segments {
		if s.IsLiteral() {
			out.WriteString(s.Literal)
			continue
		}
		out.WriteString("{" + s.Argument.Type.Name + "}")
	}
	return out.String()
}

// EscapeLiteral doubles every '%' so literal text survives printf formatting.
func EscapeLiteral(text string) string {
	return strings.ReplaceAll(text, "%", "%%")
}
