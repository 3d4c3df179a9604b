// Package ir defines the SSA intermediate representation rewritten by the
// log specialization pass. A Module holds functions; each function is a
// single straight-line body of instructions whose results are named values.
package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// Type is a nominal IR type such as "Builtin.Int64", "Int" or
// "Closure<Int32>". Address types carry a leading '*'.
type Type string

const (
	NoType     Type = ""
	RawPointer Type = "Builtin.RawPointer"
	WordType   Type = "Builtin.Word"
)

func (t Type) String() string { return string(t) }

// IsAddress reports whether t is the address of a stack slot.
func (t Type) IsAddress() bool { return strings.HasPrefix(string(t), "*") }

// Elem returns the pointee of an address type, or t itself.
func (t Type) Elem() Type { return Type(strings.TrimPrefix(string(t), "*")) }

// AddressOf returns the address type of t.
func AddressOf(t Type) Type { return "*" + t }

// BuiltinInt returns the builtin integer type with the given bit width.
func BuiltinInt(bits int) Type { return Type("Builtin.Int" + strconv.Itoa(bits)) }

// BuiltinIntBits returns the width of a builtin integer type. Word-sized
// integers report 0.
func BuiltinIntBits(t Type) (int, bool) {
	if t == WordType {
		return 0, true
	}
	s, ok := strings.CutPrefix(string(t), "Builtin.Int")
	if !ok {
		return 0, false
	}
	bits, err := strconv.Atoi(s)
	if err != nil || bits <= 0 || bits > 64 {
		return 0, false
	}
	return bits, true
}

// Generic splits "Closure<Int>" into ("Closure", "Int").
func (t Type) Generic() (base string, arg Type, ok bool) {
	s := string(t)
	open := strings.IndexByte(s, '<')
	if open < 0 || !strings.HasSuffix(s, ">") {
		return s, NoType, false
	}
	return s[:open], Type(s[open+1 : len(s)-1]), true
}

// Value is anything an instruction can take as an operand.
type Value interface {
	Name() string
	Type() Type
	// Ref renders the operand as it appears in IR text, e.g. "%3".
	Ref() string
}

// Param is a function parameter. Its value is only known at runtime.
type Param struct {
	name string
	typ  Type
}

func NewParam(name string, typ Type) *Param {
	return &Param{name: name, typ: typ}
}

func (p *Param) Name() string { return p.name }
func (p *Param) Type() Type   { return p.typ }
func (p *Param) Ref() string  { return "%" + p.name }

type Func struct {
	Name   string
	Params []*Param
	Body   []*Instr

	nextID int
}

func NewFunc(name string, params ...*Param) *Func {
	return &Func{Name: name, Params: params}
}

// Append adds instructions at the end of the body.
func (f *Func) Append(instrs ...*Instr) {
	for _, in := range instrs {
		f.adopt(in)
	}
	f.Body = append(f.Body, instrs...)
}

// InsertBefore inserts instrs immediately before pos.
func (f *Func) InsertBefore(pos *Instr, instrs ...*Instr) {
	idx := f.IndexOf(pos)
	if idx < 0 {
		panic(fmt.Sprintf("InsertBefore: %s is not in @%s", pos, f.Name))
	}
	for _, in := range instrs {
		f.adopt(in)
	}
	body := make([]*Instr, 0, len(f.Body)+len(instrs))
	body = append(body, f.Body[:idx]...)
	body = append(body, instrs...)
	body = append(body, f.Body[idx:]...)
	f.Body = body
}

// Remove deletes instrs from the body. Operands referring to them are left
// untouched; callers must remove or rewrite their users first.
func (f *Func) Remove(instrs ...*Instr) {
	dead := make(map[*Instr]struct{}, len(instrs))
	for _, in := range instrs {
		dead[in] = struct{}{}
	}
	kept := f.Body[:0]
	for _, in := range f.Body {
		if _, ok := dead[in]; ok {
			in.Parent = nil
			continue
		}
		kept = append(kept, in)
	}
	for i := len(kept); i < len(f.Body); i++ {
		f.Body[i] = nil
	}
	f.Body = kept
}

// ReplaceAllUses rewrites every operand equal to old into repl.
func (f *Func) ReplaceAllUses(old, repl Value) {
	for _, in := range f.Body {
		for i, op := range in.Args {
			if op == old {
				in.Args[i] = repl
			}
		}
	}
}

func (f *Func) IndexOf(in *Instr) int {
	for i, b := range f.Body {
		if b == in {
			return i
		}
	}
	return -1
}

// Uses returns the instructions that take v as an operand, in body order.
func (f *Func) Uses(v Value) []*Instr {
	var uses []*Instr
	for _, in := range f.Body {
		for _, op := range in.Args {
			if op == v {
				uses = append(uses, in)
				break
			}
		}
	}
	return uses
}

// FreshName returns an unused numeric value name.
func (f *Func) FreshName() string {
	for {
		name := strconv.Itoa(f.nextID)
		f.nextID++
		if !f.hasName(name) {
			return name
		}
	}
}

func (f *Func) hasName(name string) bool {
	for _, p := range f.Params {
		if p.name == name {
			return true
		}
	}
	for _, in := range f.Body {
		if in.Result == name {
			return true
		}
	}
	return false
}

// adopt sets the parent and keeps the fresh-name counter past numeric names.
func (f *Func) adopt(in *Instr) {
	in.Parent = f
	if n, err := strconv.Atoi(in.Result); err == nil && n >= f.nextID {
		f.nextID = n + 1
	}
}

type Module struct {
	Name  string
	Funcs []*Func
}

func NewModule(name string) *Module {
	return &Module{Name: name}
}

func (m *Module) Lookup(name string) *Func {
	for _, f := range m.Funcs {
		if f.Name == name {
			return f
		}
	}
	return nil
}
