package ir

import "strings"

// Builder creates named instructions for a function without inserting them,
// so a caller can assemble a complete replacement before mutating the body.
type Builder struct {
	Func   *Func
	Instrs []*Instr
}

func NewBuilder(f *Func) *Builder {
	return &Builder{Func: f}
}

func (b *Builder) add(in *Instr) *Instr {
	if in.Op.HasResult() {
		in.Result = b.Func.FreshName()
	}
	b.Instrs = append(b.Instrs, in)
	return in
}

func (b *Builder) IntegerLiteral(ty Type, v int64) *Instr {
	return b.add(&Instr{Op: OpIntegerLiteral, Ty: ty, Int: v})
}

func (b *Builder) StringLiteral(s string) *Instr {
	return b.add(&Instr{Op: OpStringLiteral, Text: s, Encoding: "utf8"})
}

func (b *Builder) Struct(ty Type, fields ...Value) *Instr {
	return b.add(&Instr{Op: OpStruct, Ty: ty, Args: fields})
}

func (b *Builder) Enum(ty Type, c string, payload ...Value) *Instr {
	return b.add(&Instr{Op: OpEnum, Ty: ty, Text: c, Args: payload})
}

func (b *Builder) FunctionRef(name string) *Instr {
	return b.add(&Instr{Op: OpFunctionRef, Text: name})
}

func (b *Builder) Apply(callee Value, ty Type, args ...Value) *Instr {
	return b.add(&Instr{Op: OpApply, Ty: ty, Args: append([]Value{callee}, args...)})
}

func (b *Builder) PartialApply(callee Value, ty Type, args ...Value) *Instr {
	return b.add(&Instr{Op: OpPartialApply, Ty: ty, Args: append([]Value{callee}, args...)})
}

func (b *Builder) ArrayLiteral(elem Type, elems ...Value) *Instr {
	return b.add(&Instr{Op: OpArrayLiteral, Ty: elem, Args: elems})
}

func (b *Builder) AllocStack(ty Type) *Instr {
	return b.add(&Instr{Op: OpAllocStack, Ty: ty})
}

func (b *Builder) Store(v, addr Value) *Instr {
	return b.add(&Instr{Op: OpStore, Args: []Value{v, addr}})
}

func (b *Builder) Load(addr Value) *Instr {
	return b.add(&Instr{Op: OpLoad, Args: []Value{addr}})
}

func (b *Builder) DeallocStack(addr Value) *Instr {
	return b.add(&Instr{Op: OpDeallocStack, Args: []Value{addr}})
}

func (b *Builder) Return(vals ...Value) *Instr {
	return b.add(&Instr{Op: OpReturn, Args: vals})
}

func (f *Func) String() string {
	var out strings.Builder
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.Ref() + " : $" + p.typ.String()
	}
	out.WriteString("func @" + f.Name + "(" + strings.Join(params, ", ") + ") {\n")
	for _, in := range f.Body {
		out.WriteString("  " + in.String() + "\n")
	}
	out.WriteString("}\n")
	return out.String()
}

func (m *Module) String() string {
	var out strings.Builder
	for i, f := range m.Funcs {
		if i > 0 {
			out.WriteString("\n")
		}
		out.WriteString(f.String())
	}
	return out.String()
}
