package compiler

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thiremani/oslogopt/ir"
	"github.com/thiremani/oslogopt/types"
)

// builderIR wraps body in the stack slot setup and teardown of an
// interpolated log call. body refers to the slot as %slot.
func builderIR(name, body string) string {
	return "func @" + name + `(%h : $Logger) {
  %cap = integer_literal $Builtin.Int64, 1
  %capInt = struct $Int (%cap)
  %init = function_ref @OSLogInterpolation.init
  %interp = apply %init(%capInt, %capInt) : $OSLogInterpolation
  %slot = alloc_stack $OSLogInterpolation
  store %interp to %slot
` + body + `  %final = load %slot
  %msgInit = function_ref @OSLogMessage.init.stringInterpolation
  %msg = apply %msgInit(%final) : $OSLogMessage
  dealloc_stack %slot
  %level = enum $OSLogType, #default
  %logFn = function_ref @Logger.log
  apply %logFn(%level, %msg, %h)
  return
}
`
}

const storedString = `  %raw = string_literal utf8 "stored"
  %len = integer_literal $Builtin.Word, 6
  %ascii = integer_literal $Builtin.Int1, -1
  %strInit = function_ref @String.init.builtinStringLiteral
  %str = apply %strInit(%raw, %len, %ascii) : $String
  %strSlot = alloc_stack $String
  store %str to %strSlot
`

const appendStored = `  %loaded = load %strSlot
  dealloc_stack %strSlot
  %app = function_ref @OSLogInterpolation.appendLiteral
  apply %app(%loaded, %slot)
`

func instrNamed(t *testing.T, fn *ir.Func, name string) *ir.Instr {
	t.Helper()
	for _, in := range fn.Body {
		if in.Result == name {
			return in
		}
	}
	require.FailNow(t, "no instruction named %"+name)
	return nil
}

func TestEvalForward(t *testing.T) {
	src := interpolationIR("forward",
		lit("Minimum integer value: "),
		arg("Int"),
	)
	fn := parseFunc(t, src)
	msg, mode, err := NewEvaluator(fn).EvalMessage(logCall(t, fn))
	require.NoError(t, err)
	require.Equal(t, Forward, mode)

	require.Len(t, msg.Segments, 2)
	assert.Equal(t, "Minimum integer value: ", msg.Segments[0].Literal)
	a := msg.Segments[1].Argument
	require.NotNil(t, a)
	assert.Equal(t, types.Int, a.Type)
	assert.Equal(t, FormatSpec{}, a.Format)
	assert.Equal(t, Public, a.Privacy)
	assert.Same(t, instrNamed(t, fn, "a1"), a.Value)
}

func TestEvalBackwardLiteral(t *testing.T) {
	msg, mode, err := evalMessage(t, literalIR("backward", "Process failed after 99% completion"))
	require.NoError(t, err)
	require.Equal(t, Backward, mode)
	require.Equal(t, "Process failed after 99% completion", msg.Text())
	require.Empty(t, msg.Arguments())
}

func TestEvalLiteralInterpolationMatchesStringLiteral(t *testing.T) {
	text := "Log message without any data"
	fromInterp, mode, err := evalMessage(t, interpolationIR("interp", lit(text)))
	require.NoError(t, err)
	require.Equal(t, Forward, mode)

	fromLit, _, err := evalMessage(t, literalIR("literal", text))
	require.NoError(t, err)

	require.Equal(t, fromLit.Segments, fromInterp.Segments)
	require.Equal(t, Synthesize(fromLit, Target64), Synthesize(fromInterp, Target64))
}

func TestEvalOptions(t *testing.T) {
	msg, _, err := evalMessage(t, interpolationIR("options",
		arg("UInt32").withFormat("hex").withOptions(true, true).withPrivacy("private"),
		lit(" "),
		arg("Int8").withFormat("octal").withPrivacy("sensitive"),
		lit(" "),
		arg("String"),
	))
	require.NoError(t, err)

	args := msg.Arguments()
	require.Len(t, args, 3)
	assert.Equal(t, FormatSpec{Base: Hex, Uppercase: true, Prefix: true}, args[0].Format)
	assert.Equal(t, Private, args[0].Privacy)
	assert.Equal(t, types.UInt32, args[0].Type)
	assert.Equal(t, FormatSpec{Base: Octal}, args[1].Format)
	assert.Equal(t, Sensitive, args[1].Privacy)
	assert.Equal(t, types.Str, args[2].Type)
	assert.Equal(t, "{UInt32} {Int8} {String}", msg.Text())
}

func TestEvalAppendArguments(t *testing.T) {
	fn := parseFunc(t, builderIR("arguments", `  %c0f = function_ref @closure0
  %c0 = partial_apply %c0f() : $Closure<Int64>
  %c1f = function_ref @closure1
  %c1 = partial_apply %c1f() : $Closure<Int64>
  %arr = array_literal $Closure<Int64> (%c0, %c1)
  %fmt = enum $OSLogIntegerFormatting, #octal
  %priv = enum $OSLogPrivacy, #private
  %app = function_ref @OSLogInterpolation.appendArguments
  apply %app(%arr, %fmt, %priv, %slot)
`))
	msg, mode, err := NewEvaluator(fn).EvalMessage(logCall(t, fn))
	require.NoError(t, err)
	require.Equal(t, Forward, mode)

	args := msg.Arguments()
	require.Len(t, args, 2)
	for i, name := range []string{"c0", "c1"} {
		assert.Equal(t, types.Int64, args[i].Type)
		assert.Equal(t, Octal, args[i].Format.Base)
		assert.Equal(t, Private, args[i].Privacy)
		assert.Same(t, instrNamed(t, fn, name), args[i].Value)
	}
}

func TestEvalStoredString(t *testing.T) {
	msg, mode, err := evalMessage(t, builderIR("stored", storedString+appendStored))
	require.NoError(t, err)
	require.Equal(t, Forward, mode)
	require.Equal(t, "stored", msg.Text())
}

func TestEvalDoesNotModifyFunc(t *testing.T) {
	fn := parseFunc(t, interpolationIR("pure", lit("pid "), arg("Int32"), lit(" exited")))
	before := fn.String()
	_, _, err := NewEvaluator(fn).EvalMessage(logCall(t, fn))
	require.NoError(t, err)
	require.Equal(t, before, fn.String())
}

func TestEvalErrors(t *testing.T) {
	simple := interpolationIR("f", lit("value: "), arg("Int"))

	tests := []struct {
		name   string
		src    string
		target error
		detail string
	}{
		{
			name: "StringArgument",
			src: `func @f(%h : $Logger, %s : $String) {
  %msgInit = function_ref @OSLogMessage.init.stringLiteral
  %msg = apply %msgInit(%s) : $OSLogMessage
  %level = enum $OSLogType, #default
  %logFn = function_ref @Logger.log
  apply %logFn(%level, %msg, %h)
  return
}
`,
			target: ErrNonConstant,
			detail: "%s is a function argument",
		},
		{
			name: "RuntimePrivacy",
			src: strings.Replace(simple,
				"  %a1priv = enum $OSLogPrivacy, #public\n",
				"  %a1privf = function_ref @currentPrivacy\n  %a1priv = apply %a1privf() : $OSLogPrivacy\n", 1),
			target: ErrNonConstant,
			detail: "result of @currentPrivacy is only known at runtime",
		},
		{
			name: "UnknownCallOnSlot",
			src: strings.Replace(simple,
				"  %final = load %slot\n",
				"  %u = function_ref @mutate\n  apply %u(%slot)\n  %final = load %slot\n", 1),
			target: ErrUnsupported,
			detail: "%slot is passed to a call that is not a known builder",
		},
		{
			name:   "UnknownPrivacy",
			src:    strings.Replace(simple, "#public", "#secret", 1),
			target: ErrUnsupported,
			detail: "unknown privacy #secret",
		},
		{
			name:   "UnknownFormat",
			src:    strings.Replace(simple, "#decimal", "#binary", 1),
			target: ErrUnsupported,
			detail: "unknown integer format #binary",
		},
		{
			name:   "UnsupportedType",
			src:    interpolationIR("f", arg("Double")),
			target: ErrUnsupported,
			detail: "cannot interpolate values of type $Double",
		},
		{
			name:   "DoubleStore",
			src:    builderIR("f", storedString+"  store %str to %strSlot\n"+appendStored),
			target: ErrUnsupported,
			detail: "%strSlot has 2 stores before it is read",
		},
		{
			name: "LengthMismatch",
			src: strings.Replace(literalIR("f", "abc"),
				"integer_literal $Builtin.Word, 3", "integer_literal $Builtin.Word, 4", 1),
			target: ErrUnsupported,
			detail: "string literal has 3 bytes, not 4",
		},
		{
			name: "WrongArity",
			src: `func @f(%h : $Logger) {
  %level = enum $OSLogType, #default
  %logFn = function_ref @Logger.log
  apply %logFn(%level, %h)
  return
}
`,
			target: ErrUnsupported,
			detail: "@Logger.log expects (level, message, logger), got 2 operands",
		},
		{
			name: "NotAMessage",
			src: `func @f(%h : $Logger) {
  %level = enum $OSLogType, #default
  %x = integer_literal $Builtin.Int8, 1
  %logFn = function_ref @Logger.log
  apply %logFn(%level, %x, %h)
  return
}
`,
			target: ErrUnsupported,
			detail: "message operand is 1, not a log message",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := evalMessage(t, tt.src)
			require.Error(t, err)
			require.ErrorIs(t, err, tt.target)

			var ee *EvalError
			require.ErrorAs(t, err, &ee)
			require.Equal(t, tt.detail, ee.Detail)
		})
	}
}

func TestEvalErrorKinds(t *testing.T) {
	err := error(nonConstant(nil, "x"))
	assert.True(t, errors.Is(err, ErrNonConstant))
	assert.False(t, errors.Is(err, ErrUnsupported))
	assert.Equal(t, "non_constant: x", err.Error())

	in := &ir.Instr{Op: ir.OpLoad, Result: "3"}
	err = &EvalError{Kind: KindUnsupported, Instr: in, Detail: "y"}
	assert.Equal(t, "unsupported at %3: y", err.Error())
	assert.True(t, errors.Is(err, ErrUnsupported))
	assert.Nil(t, errors.Unwrap(err))

	unnamed := unsupported(&ir.Instr{Op: ir.OpStore}, "w")
	assert.Equal(t, "unsupported at store: w", unnamed.Error())
}

func TestEvalScalars(t *testing.T) {
	fn := parseFunc(t, `func @scalars() {
  %max = integer_literal $Builtin.Int8, 127
  %one = integer_literal $Builtin.Int8, 1
  %neg = integer_literal $Builtin.Int8, -1
  %sum = builtin "add" (%max, %one) : $Builtin.Int8
  %wide = builtin "zext" (%neg, %one) : $Builtin.Int32
  %ext = builtin "zext" (%neg) : $Builtin.Int32
  %sext = builtin "sext" (%neg) : $Builtin.Int32
  %shr = builtin "lshr" (%neg, %one) : $Builtin.Int8
  %pair = tuple (%max, %one)
  %second = tuple_extract %pair, 1 : $Builtin.Int8
  %s = struct $Int8 (%max)
  %field = struct_extract %s, 0 : $Builtin.Int8
  %bad = struct_extract %pair, 0 : $Builtin.Int8
  %slot = alloc_stack $Int8
  return
}
`)
	ev := NewEvaluator(fn)
	eval := func(name string) (Const, error) {
		return ev.Eval(instrNamed(t, fn, name))
	}

	tests := []struct {
		name     string
		expected Const
	}{
		{"sum", IntConst{Value: -128, Bits: 8}},
		{"ext", IntConst{Value: 255, Bits: 32}},
		{"sext", IntConst{Value: -1, Bits: 32}},
		{"shr", IntConst{Value: 127, Bits: 8}},
		{"second", IntConst{Value: 1, Bits: 8}},
		{"field", IntConst{Value: 127, Bits: 8}},
	}
	for _, tt := range tests {
		c, err := eval(tt.name)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.expected, c, tt.name)
	}

	for _, name := range []string{"wide", "bad", "slot"} {
		_, err := eval(name)
		assert.ErrorIs(t, err, ErrUnsupported, name)
	}
}
