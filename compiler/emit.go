package compiler

import (
	"fmt"

	"tinygo.org/x/go-llvm"
)

const (
	// OS_LOG_IMPL is the runtime entry point that formats a packed buffer.
	OS_LOG_IMPL = "_os_log_impl"
	DSO_HANDLE  = "__dso_handle"
)

// Emitter lowers folded log calls to LLVM IR. Each call becomes a function
// that fills a stack buffer with the synthesized layout and passes it to
// _os_log_impl together with the constant format string.
type Emitter struct {
	Context  llvm.Context
	Module   llvm.Module
	Target   Target
	builder  llvm.Builder
	counters map[string]int
}

func NewEmitter(ctx llvm.Context, name string, target Target) *Emitter {
	module := ctx.NewModule(name)
	if target.Triple != "" {
		module.SetTarget(target.Triple)
	}
	if target.DataLayout != "" {
		module.SetDataLayout(target.DataLayout)
	}
	return &Emitter{
		Context:  ctx,
		Module:   module,
		Target:   target,
		builder:  ctx.NewBuilder(),
		counters: make(map[string]int),
	}
}

// Emit lowers every folded site of res. Sites that were not folded are
// skipped.
func (em *Emitter) Emit(res *Result) error {
	for _, site := range res.Sites {
		if !site.Folded() {
			continue
		}
		if _, err := em.EmitSite(site); err != nil {
			return err
		}
	}
	return nil
}

func (em *Emitter) GenerateIR() string {
	return em.Module.String()
}

func (em *Emitter) Dispose() {
	em.builder.Dispose()
	em.Module.Dispose()
}

func (em *Emitter) ptrType() llvm.Type {
	return llvm.PointerType(em.Context.Int8Type(), 0)
}

func (em *Emitter) intType(bytes int) llvm.Type {
	return em.Context.IntType(bytes * 8)
}

func (em *Emitter) constI8(v byte) llvm.Value {
	return llvm.ConstInt(em.Context.Int8Type(), uint64(v), false)
}

func (em *Emitter) getLogImpl() (llvm.Type, llvm.Value) {
	ptr := em.ptrType()
	fnType := llvm.FunctionType(em.Context.VoidType(),
		[]llvm.Type{ptr, ptr, em.Context.Int8Type(), ptr, ptr, em.Context.Int32Type()}, false)
	fn := em.Module.NamedFunction(OS_LOG_IMPL)
	if fn.IsNil() {
		fn = llvm.AddFunction(em.Module, OS_LOG_IMPL, fnType)
	}
	return fnType, fn
}

func (em *Emitter) getDSOHandle() llvm.Value {
	g := em.Module.NamedGlobal(DSO_HANDLE)
	if g.IsNil() {
		g = llvm.AddGlobal(em.Module, em.Context.Int8Type(), DSO_HANDLE)
		g.SetLinkage(llvm.ExternalLinkage)
	}
	return g
}

// createGlobalString creates a private constant holding value and a trailing NUL.
func (em *Emitter) createGlobalString(name, value string) llvm.Value {
	arrType := llvm.ArrayType(em.Context.Int8Type(), len(value)+1)
	global := llvm.AddGlobal(em.Module, arrType, name)
	global.SetInitializer(llvm.ConstString(value, true))
	global.SetLinkage(llvm.PrivateLinkage)
	global.SetUnnamedAddr(true)
	global.SetGlobalConstant(true)
	return global
}

// EmitSite emits the function for one folded call:
//
//	void @<func>.oslog<N>(ptr %log, i8 %level, <arg0>, ...)
//
// Scalar arguments are integers of their byte width; strings are pointers.
func (em *Emitter) EmitSite(site *Site) (llvm.Value, error) {
	if !site.Folded() || site.Layout == nil {
		return llvm.Value{}, fmt.Errorf("log call in @%s was not folded", site.Func.Name)
	}
	l := site.Layout
	ptrSize := PointerSize(em.Module.DataLayout())
	for _, la := range l.Args {
		if !la.Arg.Type.IsScalar() && la.Size != ptrSize {
			return llvm.Value{}, fmt.Errorf("log call in @%s: %d-byte pointer does not fit a %d-byte argument slot",
				site.Func.Name, ptrSize, la.Size)
		}
	}

	n := em.counters[site.Func.Name]
	em.counters[site.Func.Name]++
	name := fmt.Sprintf("%s.oslog%d", site.Func.Name, n)

	params := []llvm.Type{em.ptrType(), em.Context.Int8Type()}
	for _, la := range l.Args {
		if la.Arg.Type.IsScalar() {
			params = append(params, em.intType(la.Size))
		} else {
			params = append(params, em.ptrType())
		}
	}
	fnType := llvm.FunctionType(em.Context.VoidType(), params, false)
	fn := llvm.AddFunction(em.Module, name, fnType)
	fn.Param(0).SetName("log")
	fn.Param(1).SetName("level")
	for i := range l.Args {
		fn.Param(i + 2).SetName(fmt.Sprintf("arg%d", i))
	}

	entry := em.Context.AddBasicBlock(fn, "entry")
	em.builder.SetInsertPointAtEnd(entry)

	bufType := llvm.ArrayType(em.Context.Int8Type(), l.BufferSize)
	buf := em.builder.CreateAlloca(bufType, "buf")
	buf.SetAlignment(1)

	em.storeByte(buf, 0, l.Preamble, "preamble")
	em.storeByte(buf, 1, byte(l.ArgCount), "count")
	for i, la := range l.Args {
		em.storeByte(buf, la.Offset, la.Descriptor, fmt.Sprintf("desc%d", i))
		em.storeByte(buf, la.Offset+1, byte(la.Size), fmt.Sprintf("size%d", i))
		slot := em.byteAt(buf, la.ValueOffset(), fmt.Sprintf("val%d", i))
		st := em.builder.CreateStore(fn.Param(i+2), slot)
		st.SetAlignment(1)
	}

	format := em.createGlobalString(name+".fmt", l.Format)
	logType, logFn := em.getLogImpl()
	em.builder.CreateCall(logType, logFn, []llvm.Value{
		em.getDSOHandle(),
		fn.Param(0),
		fn.Param(1),
		format,
		buf,
		llvm.ConstInt(em.Context.Int32Type(), uint64(l.BufferSize), false),
	}, "")
	em.builder.CreateRetVoid()
	return fn, nil
}

func (em *Emitter) byteAt(buf llvm.Value, offset int, name string) llvm.Value {
	idx := llvm.ConstInt(em.Context.Int64Type(), uint64(offset), false)
	return em.builder.CreateGEP(em.Context.Int8Type(), buf, []llvm.Value{idx}, name)
}

func (em *Emitter) storeByte(buf llvm.Value, offset int, v byte, name string) {
	st := em.builder.CreateStore(em.constI8(v), em.byteAt(buf, offset, name))
	st.SetAlignment(1)
}
