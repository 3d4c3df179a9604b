package compiler

import "strings"

// MaxArguments is the number of arguments the runtime buffer can describe.
// Later arguments are dropped from both the format string and the buffer.
const MaxArguments = 48

const (
	// preamble flags
	PreamblePrivate   byte = 0x1
	PreambleNonScalar byte = 0x2

	// argument descriptor privacy flags
	flagPrivate byte = 0x1
	flagPublic  byte = 0x2

	// argument descriptor type tags
	tagScalar byte = 0
	tagString byte = 2

	headerSize = 2
	argHeader  = 2
)

// ArgLayout places one retained argument in the buffer. Offset is where its
// descriptor byte lives; the size byte follows and then Size value bytes.
type ArgLayout struct {
	Offset     int
	Descriptor byte
	Size       int
	Arg        *Argument
}

// ValueOffset returns the offset of the first value byte.
func (a ArgLayout) ValueOffset() int { return a.Offset + argHeader }

// Layout is everything about a log call that is known at compile time.
type Layout struct {
	Format     string
	BufferSize int
	Preamble   byte
	ArgCount   int
	Args       []ArgLayout
	// Dropped counts arguments past MaxArguments.
	Dropped int
}

// Synthesize computes the format string and buffer layout of msg on target.
func Synthesize(msg *Message, target Target) *Layout {
	l := &Layout{BufferSize: headerSize}
	var format strings.Builder
	argIdx := 0

	for _, seg := range msg.Segments {
		if seg.IsLiteral() {
			format.WriteString(EscapeLiteral(seg.Literal))
			continue
		}
		arg := seg.Argument
		if argIdx >= MaxArguments {
			argIdx++
			l.Dropped++
			continue
		}
		argIdx++

		width := arg.Type.ByteWidth(target.WordSize)
		format.WriteString(Specifier(arg, target.WordSize))
		l.Args = append(l.Args, ArgLayout{
			Offset:     l.BufferSize,
			Descriptor: descriptor(arg),
			Size:       width,
			Arg:        arg,
		})
		l.BufferSize += argHeader + width

		if arg.Privacy.IsPrivate() {
			l.Preamble |= PreamblePrivate
		}
		if !arg.Type.IsScalar() {
			l.Preamble |= PreambleNonScalar
		}
	}

	l.Format = format.String()
	l.ArgCount = len(l.Args)
	return l
}

func descriptor(arg *Argument) byte {
	tag := tagScalar
	if !arg.Type.IsScalar() {
		tag = tagString
	}
	flag := flagPublic
	if arg.Privacy.IsPrivate() {
		flag = flagPrivate
	}
	return tag<<4 | flag
}
