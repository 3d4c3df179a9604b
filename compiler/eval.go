package compiler

import (
	"fmt"

	"github.com/thiremani/oslogopt/ir"
	"github.com/thiremani/oslogopt/types"
)

// Mode records how a message was evaluated.
type Mode int

const (
	// Backward follows definitions from the message operand of the log call.
	Backward Mode = iota
	// Forward replays builder calls on a stack slot in program order,
	// starting at its alloc_stack.
	Forward
)

func (m Mode) String() string {
	if m == Forward {
		return "forward"
	}
	return "backward"
}

type result struct {
	c   Const
	err error
}

// Evaluator folds IR values of one function into compile-time constants. It
// never modifies the function.
type Evaluator struct {
	fn      *ir.Func
	values  map[ir.Value]result
	forward bool
}

func NewEvaluator(fn *ir.Func) *Evaluator {
	return &Evaluator{
		fn:     fn,
		values: make(map[ir.Value]result),
	}
}

// Eval returns the compile-time value of v. Results, including failures, are
// memoized.
func (e *Evaluator) Eval(v ir.Value) (Const, error) {
	if r, ok := e.values[v]; ok {
		return r.c, r.err
	}
	c, err := e.eval(v)
	e.values[v] = result{c: c, err: err}
	return c, err
}

// EvalMessage evaluates the message operand of a log call.
func (e *Evaluator) EvalMessage(site *ir.Instr) (*Message, Mode, error) {
	args := site.CallArgs()
	if len(args) != 3 {
		return nil, Backward, unsupported(site, "@%s expects (level, message, logger), got %d operands", types.LoggerLog, len(args))
	}

	e.forward = false
	c, err := e.Eval(args[1])
	mode := Backward
	if e.forward {
		mode = Forward
	}
	if err != nil {
		return nil, mode, err
	}
	mc, ok := c.(MessageConst)
	if !ok {
		return nil, mode, unsupported(site, "message operand is %s, not a log message", c)
	}
	return mc.Msg, mode, nil
}

func (e *Evaluator) eval(v ir.Value) (Const, error) {
	switch v := v.(type) {
	case *ir.Param:
		return nil, &EvalError{Kind: KindNonConstant, Detail: fmt.Sprintf("%s is a function argument", v.Ref())}
	case *ir.Instr:
		return e.evalInstr(v)
	}
	return nil, &EvalError{Kind: KindUnsupported, Detail: fmt.Sprintf("unknown value %s", v.Ref())}
}

func (e *Evaluator) evalInstr(in *ir.Instr) (Const, error) {
	switch in.Op {
	case ir.OpIntegerLiteral:
		bits, _ := ir.BuiltinIntBits(in.Ty)
		return IntConst{Value: truncate(in.Int, bits), Bits: bits}, nil

	case ir.OpStringLiteral:
		return StringConst{Value: in.Text}, nil

	case ir.OpStruct:
		fields, err := e.evalAll(in.Args)
		if err != nil {
			return nil, err
		}
		return StructConst{Type: in.Ty, Fields: fields}, nil

	case ir.OpTuple:
		elems, err := e.evalAll(in.Args)
		if err != nil {
			return nil, err
		}
		return TupleConst{Elems: elems}, nil

	case ir.OpEnum:
		ec := EnumConst{Type: in.Ty, Case: in.Text}
		if len(in.Args) > 0 {
			payload, err := e.Eval(in.Args[0])
			if err != nil {
				return nil, err
			}
			ec.Payload = payload
		}
		return ec, nil

	case ir.OpStructExtract, ir.OpTupleExtract:
		return e.evalExtract(in)

	case ir.OpBuiltin:
		return e.evalBuiltin(in)

	case ir.OpFunctionRef:
		return FuncConst{Name: in.Text}, nil

	case ir.OpApply:
		return e.evalApply(in)

	case ir.OpPartialApply:
		return Opaque{Value: in}, nil

	case ir.OpArrayLiteral:
		return ArrayConst{Elem: in.Ty, Elems: in.Args}, nil

	case ir.OpLoad:
		return e.evalLoad(in)
	}
	return nil, unsupported(in, "%s has no compile-time value", in.Op)
}

func (e *Evaluator) evalAll(vals []ir.Value) ([]Const, error) {
	cs := make([]Const, len(vals))
	for i, v := range vals {
		c, err := e.Eval(v)
		if err != nil {
			return nil, err
		}
		cs[i] = c
	}
	return cs, nil
}

func (e *Evaluator) evalExtract(in *ir.Instr) (Const, error) {
	agg, err := e.Eval(in.Args[0])
	if err != nil {
		return nil, err
	}
	var elems []Const
	switch a := agg.(type) {
	case StructConst:
		if in.Op == ir.OpStructExtract {
			elems = a.Fields
		}
	case TupleConst:
		if in.Op == ir.OpTupleExtract {
			elems = a.Elems
		}
	case Opaque:
		return nil, nonConstant(in, "%s is only known at runtime", a.Value.Ref())
	}
	if elems == nil {
		return nil, unsupported(in, "cannot %s from %s", in.Op, agg)
	}
	if in.Int < 0 || int(in.Int) >= len(elems) {
		return nil, unsupported(in, "index %d out of range for %s", in.Int, agg)
	}
	return elems[in.Int], nil
}

func mask(v int64, bits int) int64 {
	if bits == 0 || bits >= 64 {
		return v
	}
	return v & (1<<uint(bits) - 1)
}

func (e *Evaluator) evalBuiltin(in *ir.Instr) (Const, error) {
	args, err := e.evalAll(in.Args)
	if err != nil {
		return nil, err
	}
	ints := make([]IntConst, len(args))
	for i, a := range args {
		iv, ok := a.(IntConst)
		if !ok {
			return nil, unsupported(in, "builtin %q operand %d is %s, not an integer", in.Text, i, a)
		}
		ints[i] = iv
	}

	bits, isInt := ir.BuiltinIntBits(in.Ty)
	if !isInt {
		if len(ints) == 0 {
			return nil, unsupported(in, "builtin %q has no result type", in.Text)
		}
		bits = ints[0].Bits
	}

	switch in.Text {
	case "trunc", "sext", "zext":
		if len(ints) != 1 {
			return nil, unsupported(in, "builtin %q takes one operand", in.Text)
		}
		v := ints[0].Value
		if in.Text == "zext" {
			v = mask(v, ints[0].Bits)
		}
		return IntConst{Value: truncate(v, bits), Bits: bits}, nil
	}

	if len(ints) != 2 {
		return nil, unsupported(in, "builtin %q takes two operands", in.Text)
	}
	a, b := ints[0].Value, ints[1].Value
	var v int64
	switch in.Text {
	case "add":
		v = a + b
	case "sub":
		v = a - b
	case "mul":
		v = a * b
	case "and":
		v = a & b
	case "or":
		v = a | b
	case "xor":
		v = a ^ b
	case "shl":
		if b < 0 || b >= 64 {
			return nil, unsupported(in, "shift by %d", b)
		}
		v = a << uint(b)
	case "lshr":
		if b < 0 || b >= 64 {
			return nil, unsupported(in, "shift by %d", b)
		}
		v = int64(uint64(mask(a, bits)) >> uint(b))
	default:
		return nil, unsupported(in, "unknown builtin %q", in.Text)
	}
	return IntConst{Value: truncate(v, bits), Bits: bits}, nil
}

func (e *Evaluator) evalApply(in *ir.Instr) (Const, error) {
	name := in.CalleeName()
	if name == "" {
		return nil, nonConstant(in, "indirect call through %s", in.Callee().Ref())
	}
	kf, ok := lookupKnown(name)
	if !ok {
		return nil, nonConstant(in, "result of @%s is only known at runtime", name)
	}
	if kf.value == nil {
		return nil, unsupported(in, "@%s has no compile-time value", name)
	}
	return kf.value(e, in, in.CallArgs())
}

// evalLoad follows a stack slot backward to its only store.
func (e *Evaluator) evalLoad(load *ir.Instr) (Const, error) {
	slot, ok := load.Args[0].(*ir.Instr)
	if !ok || slot.Op != ir.OpAllocStack {
		return nil, unsupported(load, "load from %s, which is not a stack slot", load.Args[0].Ref())
	}

	loadIdx := e.fn.IndexOf(load)
	var stores []*ir.Instr
	for _, use := range e.fn.Uses(slot) {
		switch use.Op {
		case ir.OpStore:
			if use.Args[0] == slot {
				return nil, unsupported(use, "address of %s escapes", slot.Ref())
			}
			if e.fn.IndexOf(use) < loadIdx {
				stores = append(stores, use)
			}
		case ir.OpLoad, ir.OpDeallocStack, ir.OpDebugValue:
		default:
			return nil, unsupported(use, "%s is modified in place and must be evaluated forward", slot.Ref())
		}
	}
	if len(stores) != 1 {
		return nil, unsupported(load, "%s has %d stores before it is read", slot.Ref(), len(stores))
	}
	return e.Eval(stores[0].Args[0])
}

// interpretSlot replays the builder calls applied to slot between its
// allocation and end, and returns the resulting interpolation.
func (e *Evaluator) interpretSlot(slot, end *ir.Instr) (*Message, error) {
	start, stop := e.fn.IndexOf(slot), e.fn.IndexOf(end)
	if start < 0 || stop < start {
		return nil, unsupported(end, "%s is not allocated before it is read", slot.Ref())
	}
	e.forward = true

	var state *Message
	for _, in := range e.fn.Body[start+1 : stop] {
		if !usesValue(in, slot) {
			continue
		}
		switch in.Op {
		case ir.OpStore:
			if in.Args[1] != slot {
				return nil, unsupported(in, "address of %s escapes", slot.Ref())
			}
			c, err := e.Eval(in.Args[0])
			if err != nil {
				return nil, err
			}
			ic, ok := c.(InterpolationConst)
			if !ok {
				return nil, unsupported(in, "stored value %s is not an interpolation", c)
			}
			state = ic.Msg.Clone()

		case ir.OpLoad, ir.OpDebugValue:

		case ir.OpDeallocStack:
			return nil, unsupported(in, "%s is deallocated before it is read", slot.Ref())

		case ir.OpApply:
			kf, args, err := e.inoutCall(in, slot)
			if err != nil {
				return nil, err
			}
			if state == nil {
				return nil, unsupported(in, "%s is used before it is initialized", slot.Ref())
			}
			next := state.Clone()
			if err := kf.mutate(e, in, args, next); err != nil {
				return nil, err
			}
			state = next

		default:
			return nil, unsupported(in, "unexpected use of %s", slot.Ref())
		}
	}
	if state == nil {
		return nil, unsupported(end, "%s is never initialized", slot.Ref())
	}
	return state, nil
}

// inoutCall checks that in is a known builder call taking slot as its last
// operand and nowhere else, and returns its other operands.
func (e *Evaluator) inoutCall(in, slot *ir.Instr) (*knownFunc, []ir.Value, error) {
	name := in.CalleeName()
	kf, ok := lookupKnown(name)
	args := in.CallArgs()
	if !ok || kf.mutate == nil || len(args) == 0 || args[len(args)-1] != slot {
		return nil, nil, unsupported(in, "%s is passed to a call that is not a known builder", slot.Ref())
	}
	args = args[:len(args)-1]
	for _, a := range args {
		if a == slot {
			return nil, nil, unsupported(in, "%s is passed twice", slot.Ref())
		}
	}
	return kf, args, nil
}

func usesValue(in *ir.Instr, v ir.Value) bool {
	for _, a := range in.Args {
		if a == v {
			return true
		}
	}
	return false
}

func (e *Evaluator) evalString(v ir.Value) (string, error) {
	c, err := e.Eval(v)
	if err != nil {
		return "", err
	}
	switch s := c.(type) {
	case StringConst:
		return s.Value, nil
	case Opaque:
		return "", nonConstant(instrOf(v), "%s is only known at runtime", s.Value.Ref())
	}
	return "", unsupported(instrOf(v), "%s is not a string", c)
}

func instrOf(v ir.Value) *ir.Instr {
	in, _ := v.(*ir.Instr)
	return in
}
