package compiler

import (
	"strings"

	"github.com/thiremani/oslogopt/types"
)

// lengthModifier returns the printf length modifier for an integer argument
// occupying width bytes.
func lengthModifier(width int) string {
	switch width {
	case 1:
		return "hh"
	case 2:
		return "h"
	case 8:
		return "ll"
	}
	return ""
}

// conversion returns the printf conversion character for arg.
func conversion(arg *Argument) byte {
	if arg.Type.Kind == types.String {
		return 's'
	}
	switch arg.Format.Base {
	case Hex:
		if arg.Format.Uppercase {
			return 'X'
		}
		return 'x'
	case Octal:
		return 'o'
	}
	if arg.Type.IsSigned() {
		return 'd'
	}
	return 'u'
}

// Specifier renders the format specifier of arg, e.g. "%{private}#llx".
func Specifier(arg *Argument, wordSize int) string {
	var b strings.Builder
	b.WriteString("%{")
	b.WriteString(arg.Privacy.String())
	b.WriteByte('}')
	if arg.Format.Prefix && arg.Format.Base != Decimal && arg.Type.IsScalar() {
		b.WriteByte('#')
	}
	if arg.Type.IsScalar() {
		b.WriteString(lengthModifier(arg.Type.ByteWidth(wordSize)))
	}
	b.WriteByte(conversion(arg))
	return b.String()
}
