package compiler

import (
	"fmt"
	"strings"
	"sync"

	"github.com/thiremani/oslogopt/ir"
	"tinygo.org/x/go-llvm"
)

// Target is the platform a folded call site is specialized for. Only the word
// size affects synthesis; the triple is carried into emitted LLVM IR.
type Target struct {
	Triple     string
	DataLayout string
	WordSize   int // bytes
}

var (
	Target64 = Target{
		Triple:     "arm64-apple-macosx",
		DataLayout: "e-m:o-i64:64-i128:128-n32:64-S128",
		WordSize:   8,
	}
	Target32 = Target{
		Triple:     "armv7k-apple-watchos",
		DataLayout: "e-m:o-p:32:32-Fi8-i64:64-a:0:32-n32-S128",
		WordSize:   4,
	}
)

var initTargets sync.Once

// NewTarget resolves the pointer width of triple through LLVM. An empty triple
// selects the host.
func NewTarget(triple string) (Target, error) {
	initTargets.Do(func() {
		llvm.InitializeAllTargetInfos()
		llvm.InitializeAllTargets()
		llvm.InitializeAllTargetMCs()
	})
	if triple == "" {
		triple = llvm.DefaultTargetTriple()
	}

	t, err := llvm.GetTargetFromTriple(triple)
	if err != nil {
		return Target{}, fmt.Errorf("unknown target %q: %w", triple, err)
	}
	tm := t.CreateTargetMachine(triple, "", "", llvm.CodeGenLevelDefault, llvm.RelocDefault, llvm.CodeModelDefault)
	defer tm.Dispose()
	td := tm.CreateTargetData()
	defer td.Dispose()

	return Target{
		Triple:     triple,
		DataLayout: td.String(),
		WordSize:   td.PointerSize(),
	}, nil
}

// WithWordSize returns a copy of t with its word size overridden. The data
// layout's pointer spec is rewritten to match so emitted pointers fill
// exactly one argument slot.
func (t Target) WithWordSize(bytes int) (Target, error) {
	switch bytes {
	case 4, 8:
	default:
		return t, fmt.Errorf("unsupported word size %d: must be 4 or 8", bytes)
	}
	t.WordSize = bytes
	if t.DataLayout != "" && PointerSize(t.DataLayout) != bytes {
		t.DataLayout = withPointerSize(t.DataLayout, bytes)
	}
	return t, nil
}

// PointerSize returns the size in bytes of an address space 0 pointer under
// layout. An empty layout is LLVM's default.
func PointerSize(layout string) int {
	td := llvm.NewTargetData(layout)
	defer td.Dispose()
	return td.PointerSize()
}

// withPointerSize replaces the address space 0 pointer spec of layout.
func withPointerSize(layout string, bytes int) string {
	bits := bytes * 8
	parts := strings.Split(layout, "-")
	out := make([]string, 0, len(parts)+1)
	for _, p := range parts {
		if strings.HasPrefix(p, "p:") || strings.HasPrefix(p, "p0:") {
			continue
		}
		out = append(out, p)
	}
	spec := fmt.Sprintf("p:%d:%d", bits, bits)
	// The endianness spec stays first.
	if len(out) > 0 && (out[0] == "e" || out[0] == "E") {
		return strings.Join(append([]string{out[0], spec}, out[1:]...), "-")
	}
	return strings.Join(append([]string{spec}, out...), "-")
}

// IntType returns the builtin integer type of a word on t.
func (t Target) IntType() ir.Type {
	return ir.BuiltinInt(t.WordSize * 8)
}
