package compiler

import "github.com/thiremani/oslogopt/ir"

// removeDeadCode deletes instructions made unused by a rewrite, starting from
// roots and following operands backward. Builder stack slots are removed with
// their stores and builder calls once nothing reads them.
func removeDeadCode(fn *ir.Func, roots []ir.Value) int {
	removed := 0
	work := append([]ir.Value(nil), roots...)

	for len(work) > 0 {
		v := work[len(work)-1]
		work = work[:len(work)-1]

		in := instrOf(v)
		if in == nil || in.Parent != fn {
			continue
		}

		var dead []*ir.Instr
		switch {
		case in.Op == ir.OpAllocStack:
			users, ok := deadSlotUsers(fn, in)
			if !ok {
				continue
			}
			dead = append(users, in)
		case isTriviallyDead(fn, in):
			dead = []*ir.Instr{in}
		default:
			continue
		}

		seen := make(map[*ir.Instr]struct{}, len(dead))
		for _, d := range dead {
			seen[d] = struct{}{}
		}
		for _, d := range dead {
			for _, u := range fn.Uses(d) {
				if _, ok := seen[u]; !ok && u.Op == ir.OpDebugValue {
					seen[u] = struct{}{}
					dead = append(dead, u)
				}
			}
		}

		for _, d := range dead {
			work = append(work, d.Args...)
		}
		fn.Remove(dead...)
		removed += len(dead)
	}
	return removed
}

// hasRealUses reports whether v is used by anything other than debug_value.
func hasRealUses(fn *ir.Func, v ir.Value) bool {
	for _, u := range fn.Uses(v) {
		if u.Op != ir.OpDebugValue {
			return true
		}
	}
	return false
}

func isTriviallyDead(fn *ir.Func, in *ir.Instr) bool {
	if !in.Op.HasResult() || hasRealUses(fn, in) {
		return false
	}
	if in.IsPure() {
		return true
	}
	if in.Op == ir.OpApply {
		kf, ok := lookupKnown(in.CalleeName())
		return ok && kf.pure()
	}
	return false
}

// deadSlotUsers returns the users of slot when all of them only build or
// release the interpolation stored there.
func deadSlotUsers(fn *ir.Func, slot *ir.Instr) ([]*ir.Instr, bool) {
	users := fn.Uses(slot)
	for _, u := range users {
		switch u.Op {
		case ir.OpStore:
			if u.Args[1] != slot {
				return nil, false
			}
		case ir.OpDeallocStack, ir.OpDebugValue:
		case ir.OpLoad:
			if hasRealUses(fn, u) {
				return nil, false
			}
		case ir.OpApply:
			kf, ok := lookupKnown(u.CalleeName())
			args := u.CallArgs()
			if !ok || kf.mutate == nil || len(args) == 0 || args[len(args)-1] != slot || hasRealUses(fn, u) {
				return nil, false
			}
		default:
			return nil, false
		}
	}
	return users, true
}
