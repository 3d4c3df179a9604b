package compiler

import (
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/thiremani/oslogopt/ir"
	"github.com/thiremani/oslogopt/lexer"
	"github.com/thiremani/oslogopt/parser"
)

// part is one piece of an interpolated log message used to generate IR.
type part struct {
	lit     string
	isArg   bool
	typ     string
	format  string
	privacy string
	prefix  bool
	upper   bool
}

func lit(s string) part { return part{lit: s} }

func arg(typ string) part {
	return part{isArg: true, typ: typ, format: "decimal", privacy: "public"}
}

func (p part) withFormat(format string) part {
	p.format = format
	return p
}

func (p part) withPrivacy(privacy string) part {
	p.privacy = privacy
	return p
}

func (p part) withOptions(prefix, upper bool) part {
	p.prefix, p.upper = prefix, upper
	return p
}

func b2i(b bool) int {
	if b {
		return -1
	}
	return 0
}

// interpolationIR generates a function that builds a message in a stack slot
// through builder calls and logs it, the way the front end lowers an
// interpolated log statement.
func interpolationIR(name string, parts ...part) string {
	var b strings.Builder
	w := func(format string, args ...any) {
		fmt.Fprintf(&b, "  "+format+"\n", args...)
	}

	fmt.Fprintf(&b, "func @%s(%%h : $Logger) {\n", name)
	w("%%cap = integer_literal $Builtin.Int64, %d", len(parts))
	w("%%capInt = struct $Int (%%cap)")
	w("%%init = function_ref @OSLogInterpolation.init")
	w("%%interp = apply %%init(%%capInt, %%capInt) : $OSLogInterpolation")
	w("%%slot = alloc_stack $OSLogInterpolation")
	w("store %%interp to %%slot")

	for i, p := range parts {
		if !p.isArg {
			w("%%s%d = string_literal utf8 %s", i, strconv.Quote(p.lit))
			w("%%s%dn = integer_literal $Builtin.Word, %d", i, len(p.lit))
			w("%%s%da = integer_literal $Builtin.Int1, -1", i)
			w("%%s%df = function_ref @String.init.builtinStringLiteral", i)
			w("%%s%dv = apply %%s%df(%%s%d, %%s%dn, %%s%da) : $String", i, i, i, i, i)
			w("%%s%dapp = function_ref @OSLogInterpolation.appendLiteral", i)
			w("apply %%s%dapp(%%s%dv, %%slot)", i, i)
			continue
		}

		w("%%a%df = function_ref @closure%d", i, i)
		w("%%a%d = partial_apply %%a%df() : $Closure<%s>", i, i, p.typ)
		if p.prefix || p.upper {
			w("%%a%dp = integer_literal $Builtin.Int1, %d", i, b2i(p.prefix))
			w("%%a%du = integer_literal $Builtin.Int1, %d", i, b2i(p.upper))
			w("%%a%dopts = tuple (%%a%dp, %%a%du)", i, i, i)
			w("%%a%dfmt = enum $OSLogIntegerFormatting, #%s, %%a%dopts", i, p.format, i)
		} else {
			w("%%a%dfmt = enum $OSLogIntegerFormatting, #%s", i, p.format)
		}
		w("%%a%dpriv = enum $OSLogPrivacy, #%s", i, p.privacy)
		w("%%a%dapp = function_ref @OSLogInterpolation.appendInterpolation", i)
		w("apply %%a%dapp(%%a%d, %%a%dfmt, %%a%dpriv, %%slot)", i, i, i, i)
	}

	w("%%final = load %%slot")
	w("%%msgInit = function_ref @OSLogMessage.init.stringInterpolation")
	w("%%msg = apply %%msgInit(%%final) : $OSLogMessage")
	w("dealloc_stack %%slot")
	w("%%level = enum $OSLogType, #default")
	w("%%logFn = function_ref @Logger.log")
	w("apply %%logFn(%%level, %%msg, %%h)")
	w("return")
	b.WriteString("}\n")
	return b.String()
}

// literalIR generates a function logging a plain string literal message.
func literalIR(name, text string) string {
	return fmt.Sprintf(`func @%s(%%h : $Logger) {
  %%raw = string_literal utf8 %s
  %%len = integer_literal $Builtin.Word, %d
  %%ascii = integer_literal $Builtin.Int1, -1
  %%strInit = function_ref @String.init.builtinStringLiteral
  %%str = apply %%strInit(%%raw, %%len, %%ascii) : $String
  %%msgInit = function_ref @OSLogMessage.init.stringLiteral
  %%msg = apply %%msgInit(%%str) : $OSLogMessage
  %%level = enum $OSLogType, #default
  %%logFn = function_ref @Logger.log
  apply %%logFn(%%level, %%msg, %%h)
  return
}
`, name, strconv.Quote(text), len(text))
}

func parseModule(t *testing.T, src string) *ir.Module {
	t.Helper()
	p := parser.New(lexer.New(t.Name(), src))
	m := p.Parse()
	require.Empty(t, p.Errors())
	return m
}

func parseFunc(t *testing.T, src string) *ir.Func {
	t.Helper()
	m := parseModule(t, src)
	require.Len(t, m.Funcs, 1)
	return m.Funcs[0]
}

// logCall returns the only log call of fn.
func logCall(t *testing.T, fn *ir.Func) *ir.Instr {
	t.Helper()
	var found *ir.Instr
	for _, in := range fn.Body {
		if in.Op == ir.OpApply && in.CalleeName() == "Logger.log" {
			require.Nil(t, found, "more than one log call in @%s", fn.Name)
			found = in
		}
	}
	require.NotNil(t, found, "no log call in @%s", fn.Name)
	return found
}

func evalMessage(t *testing.T, src string) (*Message, Mode, error) {
	t.Helper()
	fn := parseFunc(t, src)
	return NewEvaluator(fn).EvalMessage(logCall(t, fn))
}
