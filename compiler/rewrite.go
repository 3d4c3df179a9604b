package compiler

import (
	"github.com/thiremani/oslogopt/ir"
	"github.com/thiremani/oslogopt/types"
)

const (
	intType     ir.Type = "Int"
	uint8Type   ir.Type = "UInt8"
	stringType  ir.Type = "String"
	elementType ir.Type = "Any"
	packerType  ir.Type = types.ClosureType + "<" + types.PackerType + ">"
)

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

func boolInt(b bool) int64 {
	if b {
		return -1
	}
	return 0
}

// rewriteSite replaces a log call with a call to the log implementation whose
// format string, buffer size, preamble and argument count are literals. All
// new instructions are built before the function is changed, so a failure
// leaves the call untouched.
func rewriteSite(fn *ir.Func, site *ir.Instr, layout *Layout, target Target) (*ir.Instr, error) {
	args := site.CallArgs()
	level, logger := args[0], args[2]

	siteIdx := fn.IndexOf(site)
	if siteIdx < 0 {
		return nil, unsupported(site, "call is not in @%s", fn.Name)
	}
	values := make([]ir.Value, len(layout.Args))
	for i, la := range layout.Args {
		v := la.Arg.Value
		if def := instrOf(v); def != nil {
			if def.Parent != fn || fn.IndexOf(def) > siteIdx {
				return nil, unsupported(site, "argument %s is not available at the log call", v.Ref())
			}
		}
		values[i] = v
	}

	b := ir.NewBuilder(fn)

	raw := b.StringLiteral(layout.Format)
	utf8Count := b.IntegerLiteral(ir.WordType, int64(len(layout.Format)))
	ascii := b.IntegerLiteral(ir.BuiltinInt(1), boolInt(isASCII(layout.Format)))
	strInit := b.FunctionRef(types.StringInitBuiltinLiteral)
	format := b.Apply(strInit, stringType, raw, utf8Count, ascii)

	size := b.Struct(intType, b.IntegerLiteral(target.IntType(), int64(layout.BufferSize)))
	preamble := b.Struct(uint8Type, b.IntegerLiteral(ir.BuiltinInt(8), int64(layout.Preamble)))
	count := b.Struct(uint8Type, b.IntegerLiteral(ir.BuiltinInt(8), int64(layout.ArgCount)))

	arr := b.ArrayLiteral(elementType, values...)
	packFn := b.FunctionRef(types.PackArguments)
	packer := b.PartialApply(packFn, packerType, arr)

	impl := b.FunctionRef(types.LogImpl)
	call := b.Apply(impl, site.Ty, format, logger, level, size, preamble, count, packer)
	if site.Result == "" {
		call.Result = ""
	}

	fn.InsertBefore(site, b.Instrs...)
	fn.ReplaceAllUses(site, call)
	fn.Remove(site)
	return call, nil
}
