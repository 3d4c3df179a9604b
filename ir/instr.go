package ir

import (
	"strconv"
	"strings"
)

type Op int

const (
	OpInvalid Op = iota
	OpIntegerLiteral
	OpStringLiteral
	OpStruct
	OpTuple
	OpEnum
	OpStructExtract
	OpTupleExtract
	OpBuiltin
	OpFunctionRef
	OpApply
	OpPartialApply
	OpArrayLiteral
	OpAllocStack
	OpStore
	OpLoad
	OpDeallocStack
	OpDebugValue
	OpReturn
)

var opNames = [...]string{
	OpInvalid:        "invalid",
	OpIntegerLiteral: "integer_literal",
	OpStringLiteral:  "string_literal",
	OpStruct:         "struct",
	OpTuple:          "tuple",
	OpEnum:           "enum",
	OpStructExtract:  "struct_extract",
	OpTupleExtract:   "tuple_extract",
	OpBuiltin:        "builtin",
	OpFunctionRef:    "function_ref",
	OpApply:          "apply",
	OpPartialApply:   "partial_apply",
	OpArrayLiteral:   "array_literal",
	OpAllocStack:     "alloc_stack",
	OpStore:          "store",
	OpLoad:           "load",
	OpDeallocStack:   "dealloc_stack",
	OpDebugValue:     "debug_value",
	OpReturn:         "return",
}

var ops = func() map[string]Op {
	m := make(map[string]Op, len(opNames))
	for op, name := range opNames {
		if Op(op) != OpInvalid {
			m[name] = Op(op)
		}
	}
	return m
}()

// LookupOp maps an instruction mnemonic to its opcode.
func LookupOp(name string) (Op, bool) {
	op, ok := ops[name]
	return op, ok
}

func (op Op) String() string {
	if 0 <= op && int(op) < len(opNames) {
		return opNames[op]
	}
	return "op(" + strconv.Itoa(int(op)) + ")"
}

// HasResult reports whether instructions of this kind define a value.
func (op Op) HasResult() bool {
	switch op {
	case OpStore, OpDeallocStack, OpDebugValue, OpReturn:
		return false
	}
	return true
}

// Instr is a single IR instruction. Which fields are meaningful depends on Op:
//
//	integer_literal  Ty, Int
//	string_literal   Text, Encoding
//	struct, enum     Ty, Args (enum: Text is the case, Args the optional payload)
//	*_extract        Args[0], Int (field index), Ty
//	builtin          Text (operation), Args, Ty
//	function_ref     Text (callee name)
//	apply            Args[0] callee, Args[1:] arguments, Ty optional result type
//	array_literal    Ty (element type), Args
//	alloc_stack      Ty (allocated type)
//	store            Args[0] value, Args[1] address
type Instr struct {
	Op       Op
	Result   string
	Ty       Type
	Args     []Value
	Int      int64
	Text     string
	Encoding string
	Parent   *Func
}

func (in *Instr) Name() string { return in.Result }
func (in *Instr) Ref() string  { return "%" + in.Result }

func (in *Instr) Type() Type {
	switch in.Op {
	case OpStringLiteral:
		return RawPointer
	case OpTuple:
		elems := make([]string, len(in.Args))
		for i, a := range in.Args {
			elems[i] = a.Type().String()
		}
		return Type("(" + strings.Join(elems, ", ") + ")")
	case OpFunctionRef:
		if in.Ty != NoType {
			return in.Ty
		}
		return "Function"
	case OpArrayLiteral:
		return Type("Array<" + in.Ty.String() + ">")
	case OpAllocStack:
		return AddressOf(in.Ty)
	case OpLoad:
		return in.Args[0].Type().Elem()
	case OpStore, OpDeallocStack, OpDebugValue, OpReturn:
		return NoType
	}
	return in.Ty
}

// Callee returns the function operand of an apply or partial_apply.
func (in *Instr) Callee() Value {
	if in.Op != OpApply && in.Op != OpPartialApply {
		return nil
	}
	return in.Args[0]
}

// CallArgs returns the call arguments of an apply or partial_apply.
func (in *Instr) CallArgs() []Value {
	if in.Op != OpApply && in.Op != OpPartialApply {
		return nil
	}
	return in.Args[1:]
}

// CalleeName returns the name of a directly referenced callee, or "".
func (in *Instr) CalleeName() string {
	ref, ok := in.Callee().(*Instr)
	if !ok || ref.Op != OpFunctionRef {
		return ""
	}
	return ref.Text
}

// IsPure reports whether removing an unused instance of in cannot change
// program behavior. Calls are never pure here; the pass decides that for the
// callees it knows.
func (in *Instr) IsPure() bool {
	switch in.Op {
	case OpIntegerLiteral, OpStringLiteral, OpStruct, OpTuple, OpEnum,
		OpStructExtract, OpTupleExtract, OpBuiltin, OpFunctionRef,
		OpPartialApply, OpArrayLiteral, OpLoad:
		return true
	}
	return false
}

func (in *Instr) String() string {
	var out strings.Builder
	if in.Result != "" {
		out.WriteString(in.Ref())
		out.WriteString(" = ")
	}
	out.WriteString(in.Op.String())

	switch in.Op {
	case OpIntegerLiteral:
		out.WriteString(" $" + in.Ty.String() + ", " + strconv.FormatInt(in.Int, 10))
	case OpStringLiteral:
		enc := in.Encoding
		if enc == "" {
			enc = "utf8"
		}
		out.WriteString(" " + enc + " " + strconv.Quote(in.Text))
	case OpStruct, OpArrayLiteral:
		out.WriteString(" $" + in.Ty.String() + " " + refList(in.Args))
	case OpTuple:
		out.WriteString(" " + refList(in.Args))
	case OpEnum:
		out.WriteString(" $" + in.Ty.String() + ", #" + in.Text)
		if len(in.Args) > 0 {
			out.WriteString(", " + in.Args[0].Ref())
		}
	case OpStructExtract, OpTupleExtract:
		out.WriteString(" " + in.Args[0].Ref() + ", " + strconv.FormatInt(in.Int, 10))
		writeAnnotation(&out, in.Ty)
	case OpBuiltin:
		out.WriteString(" " + strconv.Quote(in.Text) + " " + refList(in.Args))
		writeAnnotation(&out, in.Ty)
	case OpFunctionRef:
		out.WriteString(" @" + in.Text)
	case OpApply, OpPartialApply:
		out.WriteString(" " + in.Args[0].Ref() + refList(in.Args[1:]))
		writeAnnotation(&out, in.Ty)
	case OpAllocStack:
		out.WriteString(" $" + in.Ty.String())
	case OpStore:
		out.WriteString(" " + in.Args[0].Ref() + " to " + in.Args[1].Ref())
	case OpLoad, OpDeallocStack, OpDebugValue:
		out.WriteString(" " + in.Args[0].Ref())
	case OpReturn:
		if len(in.Args) > 0 {
			out.WriteString(" " + in.Args[0].Ref())
		}
	}
	return out.String()
}

func writeAnnotation(out *strings.Builder, t Type) {
	if t != NoType {
		out.WriteString(" : $" + t.String())
	}
}

func refList(vals []Value) string {
	refs := make([]string, len(vals))
	for i, v := range vals {
		refs[i] = v.Ref()
	}
	return "(" + strings.Join(refs, ", ") + ")"
}
