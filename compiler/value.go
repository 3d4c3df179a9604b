package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/thiremani/oslogopt/ir"
)

// Const is a value known at compile time.
type Const interface {
	String() string
}

// IntConst is a builtin integer truncated to Bits. Bits is 0 for words.
type IntConst struct {
	Value int64
	Bits  int
}

type StringConst struct {
	Value string
}

type StructConst struct {
	Type   ir.Type
	Fields []Const
}

type TupleConst struct {
	Elems []Const
}

type EnumConst struct {
	Type    ir.Type
	Case    string
	Payload Const // nil without payload
}

type FuncConst struct {
	Name string
}

// ArrayConst is an array literal. Its elements are runtime values such as
// argument closures and are never evaluated.
type ArrayConst struct {
	Elem  ir.Type
	Elems []ir.Value
}

// Opaque is a runtime value. It can be interpolated but not inspected.
type Opaque struct {
	Value ir.Value
}

// InterpolationConst is the builder state of a message under construction.
type InterpolationConst struct {
	Msg *Message
}

type MessageConst struct {
	Msg *Message
}

func (c IntConst) String() string    { return strconv.FormatInt(c.Value, 10) }
func (c StringConst) String() string { return strconv.Quote(c.Value) }
func (c FuncConst) String() string   { return "@" + c.Name }
func (c Opaque) String() string      { return "opaque " + c.Value.Ref() }

func (c StructConst) String() string {
	return "$" + c.Type.String() + constList(c.Fields)
}

func (c TupleConst) String() string {
	return constList(c.Elems)
}

func (c EnumConst) String() string {
	if c.Payload == nil {
		return "$" + c.Type.String() + "#" + c.Case
	}
	return fmt.Sprintf("$%s#%s(%s)", c.Type, c.Case, c.Payload)
}

func (c ArrayConst) String() string {
	refs := make([]string, len(c.Elems))
	for i, e := range c.Elems {
		refs[i] = e.Ref()
	}
	return "[" + strings.Join(refs, ", ") + "]"
}

func (c InterpolationConst) String() string { return "interpolation " + strconv.Quote(c.Msg.Text()) }
func (c MessageConst) String() string       { return "message " + strconv.Quote(c.Msg.Text()) }

func constList(cs []Const) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = c.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// truncate wraps v to a bits wide two's complement integer. Word-sized values
// are kept at 64 bits.
func truncate(v int64, bits int) int64 {
	if bits == 0 || bits >= 64 {
		return v
	}
	shift := 64 - uint(bits)
	return v << shift >> shift
}

// unwrapInt returns the integer inside c, looking through single-field
// structs such as $Int and $Bool.
func unwrapInt(c Const) (IntConst, bool) {
	switch v := c.(type) {
	case IntConst:
		return v, true
	case StructConst:
		if len(v.Fields) == 1 {
			return unwrapInt(v.Fields[0])
		}
	}
	return IntConst{}, false
}
