// Package types describes the values a log message can interpolate and the
// names the log builder ABI reserves.
package types

type Kind int

const (
	Signed Kind = iota
	Unsigned
	String
)

func (k Kind) String() string {
	switch k {
	case Signed:
		return "signed"
	case Unsigned:
		return "unsigned"
	case String:
		return "string"
	}
	return "unknown"
}

// Scalar is an interpolatable type. Bits is 0 for word-sized integers,
// whose width depends on the target.
type Scalar struct {
	Name string
	Kind Kind
	Bits int
}

func (s Scalar) String() string { return s.Name }

// IsScalar reports whether values of s are packed inline as integers.
// Strings are packed as pointers and are not scalar.
func (s Scalar) IsScalar() bool { return s.Kind != String }

// IsSigned reports whether s is a signed integer.
func (s Scalar) IsSigned() bool { return s.Kind == Signed }

// ByteWidth returns the number of bytes a value of s occupies in the
// argument buffer for a target with the given word size in bytes.
func (s Scalar) ByteWidth(wordSize int) int {
	if s.Kind == String || s.Bits == 0 {
		return wordSize
	}
	return s.Bits / 8
}

var (
	Int    = Scalar{Name: "Int", Kind: Signed}
	Int8   = Scalar{Name: "Int8", Kind: Signed, Bits: 8}
	Int16  = Scalar{Name: "Int16", Kind: Signed, Bits: 16}
	Int32  = Scalar{Name: "Int32", Kind: Signed, Bits: 32}
	Int64  = Scalar{Name: "Int64", Kind: Signed, Bits: 64}
	UInt   = Scalar{Name: "UInt", Kind: Unsigned}
	UInt8  = Scalar{Name: "UInt8", Kind: Unsigned, Bits: 8}
	UInt16 = Scalar{Name: "UInt16", Kind: Unsigned, Bits: 16}
	UInt32 = Scalar{Name: "UInt32", Kind: Unsigned, Bits: 32}
	UInt64 = Scalar{Name: "UInt64", Kind: Unsigned, Bits: 64}
	Str    = Scalar{Name: "String", Kind: String}
)

var scalars = func() map[string]Scalar {
	m := make(map[string]Scalar)
	for _, s := range []Scalar{Int, Int8, Int16, Int32, Int64, UInt, UInt8, UInt16, UInt32, UInt64, Str} {
		m[s.Name] = s
	}
	return m
}()

// Lookup returns the interpolatable type with the given IR name.
func Lookup(name string) (Scalar, bool) {
	s, ok := scalars[name]
	return s, ok
}
