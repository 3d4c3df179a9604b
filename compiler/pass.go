package compiler

import (
	"github.com/thiremani/oslogopt/ir"
	"github.com/thiremani/oslogopt/types"
	"go.uber.org/zap"
)

// Site is the outcome of folding one log call. Err is nil when the call was
// rewritten; otherwise the call was left as it was.
type Site struct {
	Func    *ir.Func
	Call    *ir.Instr
	Mode    Mode
	Message *Message
	Layout  *Layout
	// Replacement is the call to the log implementation that replaced Call.
	Replacement *ir.Instr
	Removed     int
	Err         error
}

func (s *Site) Folded() bool { return s.Err == nil }

type Result struct {
	Sites []*Site
}

// Folded returns the number of rewritten log calls.
func (r *Result) Folded() int {
	n := 0
	for _, s := range r.Sites {
		if s.Folded() {
			n++
		}
	}
	return n
}

// Pass specializes log calls for one target.
type Pass struct {
	Target Target
}

func NewPass(target Target) *Pass {
	return &Pass{Target: target}
}

// Run folds every log call in m, function by function, in program order.
func (p *Pass) Run(m *ir.Module) *Result {
	res := &Result{}
	for _, fn := range m.Funcs {
		res.Sites = append(res.Sites, p.RunFunc(fn)...)
	}
	return res
}

// RunFunc folds the log calls of fn.
func (p *Pass) RunFunc(fn *ir.Func) []*Site {
	var calls []*ir.Instr
	for _, in := range fn.Body {
		if in.Op == ir.OpApply && in.CalleeName() == types.LoggerLog {
			calls = append(calls, in)
		}
	}

	sites := make([]*Site, 0, len(calls))
	for _, call := range calls {
		site := p.fold(fn, call)
		p.report(site)
		sites = append(sites, site)
	}
	return sites
}

func (p *Pass) fold(fn *ir.Func, call *ir.Instr) *Site {
	site := &Site{Func: fn, Call: call}

	// Earlier rewrites change the body, so values are not shared across calls.
	ev := NewEvaluator(fn)
	site.Message, site.Mode, site.Err = ev.EvalMessage(call)
	if site.Err != nil {
		return site
	}

	site.Layout = Synthesize(site.Message, p.Target)
	roots := append([]ir.Value(nil), call.Args...)
	site.Replacement, site.Err = rewriteSite(fn, call, site.Layout, p.Target)
	if site.Err != nil {
		return site
	}
	site.Removed = removeDeadCode(fn, roots)
	return site
}

func (p *Pass) report(site *Site) {
	log := Logger().With(zap.String("func", site.Func.Name))
	if !site.Folded() {
		log.Info("log call not optimized",
			zap.Stringer("mode", site.Mode),
			zap.Error(site.Err),
		)
		return
	}

	l := site.Layout
	log.Debug("log call optimized",
		zap.Stringer("mode", site.Mode),
		zap.String("format", l.Format),
		zap.Int("size", l.BufferSize),
		zap.Uint8("preamble", l.Preamble),
		zap.Int("count", l.ArgCount),
		zap.Int("removed", site.Removed),
	)
	if l.Dropped > 0 {
		log.Warn("log message has too many arguments",
			zap.Int("max", MaxArguments),
			zap.Int("dropped", l.Dropped),
		)
	}
}
