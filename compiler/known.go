package compiler

import (
	"github.com/thiremani/oslogopt/ir"
	"github.com/thiremani/oslogopt/types"
)

// knownFunc describes a builder function the evaluator can run at compile
// time. A function either produces a value or mutates the interpolation passed
// as its last (inout) operand.
type knownFunc struct {
	name   string
	value  func(e *Evaluator, call *ir.Instr, args []ir.Value) (Const, error)
	mutate func(e *Evaluator, call *ir.Instr, args []ir.Value, msg *Message) error
}

// pure reports whether an unused call can be deleted.
func (kf *knownFunc) pure() bool { return kf.value != nil }

var knownFuncs = map[string]*knownFunc{}

func register(kf *knownFunc) {
	knownFuncs[kf.name] = kf
}

func lookupKnown(name string) (*knownFunc, bool) {
	kf, ok := knownFuncs[name]
	return kf, ok
}

func init() {
	register(&knownFunc{name: types.InterpolationInit, value: evalInterpolationInit})
	register(&knownFunc{name: types.MessageInitInterpolation, value: evalMessageInitInterpolation})
	register(&knownFunc{name: types.MessageInitLiteral, value: evalMessageInitLiteral})
	register(&knownFunc{name: types.StringInitBuiltinLiteral, value: evalStringInit})
	register(&knownFunc{name: types.AppendLiteral, mutate: appendLiteral})
	register(&knownFunc{name: types.AppendInterpolation, mutate: appendInterpolation})
	register(&knownFunc{name: types.AppendArguments, mutate: appendArguments})
}

func arity(call *ir.Instr, args []ir.Value, n int) error {
	if len(args) != n {
		return unsupported(call, "@%s expects %d operands, got %d", call.CalleeName(), n, len(args))
	}
	return nil
}

// The capacity hints are only used to reserve storage.
func evalInterpolationInit(e *Evaluator, call *ir.Instr, args []ir.Value) (Const, error) {
	if err := arity(call, args, 2); err != nil {
		return nil, err
	}
	return InterpolationConst{Msg: NewMessage()}, nil
}

func evalMessageInitInterpolation(e *Evaluator, call *ir.Instr, args []ir.Value) (Const, error) {
	if err := arity(call, args, 1); err != nil {
		return nil, err
	}
	if load := instrOf(args[0]); load != nil && load.Op == ir.OpLoad {
		if slot := instrOf(load.Args[0]); slot != nil && slot.Op == ir.OpAllocStack {
			msg, err := e.interpretSlot(slot, load)
			if err != nil {
				return nil, err
			}
			return MessageConst{Msg: msg}, nil
		}
	}

	c, err := e.Eval(args[0])
	if err != nil {
		return nil, err
	}
	ic, ok := c.(InterpolationConst)
	if !ok {
		return nil, unsupported(call, "%s is not an interpolation", c)
	}
	return MessageConst{Msg: ic.Msg.Clone()}, nil
}

func evalMessageInitLiteral(e *Evaluator, call *ir.Instr, args []ir.Value) (Const, error) {
	if err := arity(call, args, 1); err != nil {
		return nil, err
	}
	s, err := e.evalString(args[0])
	if err != nil {
		return nil, err
	}
	msg := NewMessage()
	msg.AppendLiteral(s)
	return MessageConst{Msg: msg}, nil
}

// evalStringInit checks the UTF-8 length operand against the literal when it
// is a constant.
func evalStringInit(e *Evaluator, call *ir.Instr, args []ir.Value) (Const, error) {
	if err := arity(call, args, 3); err != nil {
		return nil, err
	}
	raw, err := e.Eval(args[0])
	if err != nil {
		return nil, err
	}
	s, ok := raw.(StringConst)
	if !ok {
		return nil, unsupported(call, "%s is not a string literal", raw)
	}
	if c, err := e.Eval(args[1]); err == nil {
		if n, ok := unwrapInt(c); ok && n.Value != int64(len(s.Value)) {
			return nil, unsupported(call, "string literal has %d bytes, not %d", len(s.Value), n.Value)
		}
	}
	return s, nil
}

func appendLiteral(e *Evaluator, call *ir.Instr, args []ir.Value, msg *Message) error {
	if err := arity(call, args, 1); err != nil {
		return err
	}
	s, err := e.evalString(args[0])
	if err != nil {
		return err
	}
	msg.AppendLiteral(s)
	return nil
}

func appendInterpolation(e *Evaluator, call *ir.Instr, args []ir.Value, msg *Message) error {
	if err := arity(call, args, 3); err != nil {
		return err
	}
	typ, err := argumentType(call, args[0].Type())
	if err != nil {
		return err
	}
	format, privacy, err := e.evalOptions(args[1], args[2])
	if err != nil {
		return err
	}
	msg.AppendArgument(Argument{Type: typ, Format: format, Privacy: privacy, Value: args[0]})
	return nil
}

// appendArguments appends one argument per element of an array literal of
// closures, all sharing the same format and privacy.
func appendArguments(e *Evaluator, call *ir.Instr, args []ir.Value, msg *Message) error {
	if err := arity(call, args, 3); err != nil {
		return err
	}
	c, err := e.Eval(args[0])
	if err != nil {
		return err
	}
	arr, ok := c.(ArrayConst)
	if !ok {
		return unsupported(call, "%s is not an array literal", c)
	}
	typ, err := argumentType(call, arr.Elem)
	if err != nil {
		return err
	}
	format, privacy, err := e.evalOptions(args[1], args[2])
	if err != nil {
		return err
	}
	for _, elem := range arr.Elems {
		msg.AppendArgument(Argument{Type: typ, Format: format, Privacy: privacy, Value: elem})
	}
	return nil
}

// argumentType returns the interpolated type of a value or of the result of
// a Closure<T>.
func argumentType(call *ir.Instr, t ir.Type) (types.Scalar, error) {
	if base, arg, ok := t.Generic(); ok && base == types.ClosureType {
		t = arg
	}
	s, ok := types.Lookup(t.String())
	if !ok {
		return types.Scalar{}, unsupported(call, "cannot interpolate values of type $%s", t)
	}
	return s, nil
}

func (e *Evaluator) evalOptions(format, privacy ir.Value) (FormatSpec, Privacy, error) {
	f, err := e.evalFormat(format)
	if err != nil {
		return FormatSpec{}, Public, err
	}
	p, err := e.evalPrivacy(privacy)
	if err != nil {
		return FormatSpec{}, Public, err
	}
	return f, p, nil
}

func (e *Evaluator) evalEnum(v ir.Value, typ string) (EnumConst, error) {
	c, err := e.Eval(v)
	if err != nil {
		return EnumConst{}, err
	}
	ec, ok := c.(EnumConst)
	if !ok || ec.Type.String() != typ {
		return EnumConst{}, unsupported(instrOf(v), "%s is not a $%s", c, typ)
	}
	return ec, nil
}

// evalFormat reads $OSLogIntegerFormatting. Its optional payload is a tuple
// (explicitPrefix, uppercase) of booleans.
func (e *Evaluator) evalFormat(v ir.Value) (FormatSpec, error) {
	ec, err := e.evalEnum(v, types.FormatType)
	if err != nil {
		return FormatSpec{}, err
	}
	var spec FormatSpec
	switch ec.Case {
	case "decimal":
		spec.Base = Decimal
	case "hex":
		spec.Base = Hex
	case "octal":
		spec.Base = Octal
	default:
		return FormatSpec{}, unsupported(instrOf(v), "unknown integer format #%s", ec.Case)
	}

	if ec.Payload != nil {
		opts, ok := ec.Payload.(TupleConst)
		if !ok || len(opts.Elems) != 2 {
			return FormatSpec{}, unsupported(instrOf(v), "format options %s must be (prefix, uppercase)", ec.Payload)
		}
		prefix, ok1 := unwrapInt(opts.Elems[0])
		upper, ok2 := unwrapInt(opts.Elems[1])
		if !ok1 || !ok2 {
			return FormatSpec{}, unsupported(instrOf(v), "format options %s must be integers", ec.Payload)
		}
		spec.Prefix = prefix.Value != 0
		spec.Uppercase = upper.Value != 0
	}
	return spec, nil
}

func (e *Evaluator) evalPrivacy(v ir.Value) (Privacy, error) {
	ec, err := e.evalEnum(v, types.PrivacyType)
	if err != nil {
		return Public, err
	}
	switch ec.Case {
	case "public":
		return Public, nil
	case "private":
		return Private, nil
	case "sensitive":
		return Sensitive, nil
	}
	return Public, unsupported(instrOf(v), "unknown privacy #%s", ec.Case)
}
