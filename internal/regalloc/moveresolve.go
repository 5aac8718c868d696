// Copyright (c) 2024 The Falcon Contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.
package regalloc

import (
	"sort"

	"github.com/samber/lo"

	"github.com/falcon-lang/falconc/internal/mir"
	"github.com/falcon-lang/falconc/internal/target"
)

// vregInfo scans every operand mfn's instructions and parameters carry to
// recover the register class and width each virtual register was
// allocated with — MIRFunction itself only tracks the vreg count, not a
// per-register side table, since lowering never needs one.
func vregInfo(mfn *mir.MIRFunction) (class map[int]mir.RegClass, width map[int]mir.Width) {
	class = make(map[int]mir.RegClass, mfn.NumVRegs)
	width = make(map[int]mir.Width, mfn.NumVRegs)
	note := func(op mir.MachineOperand) {
		if op.Kind == mir.OperandVirtualReg {
			class[op.Reg] = op.Class
			width[op.Reg] = op.Width
		}
	}
	for _, p := range mfn.Params {
		note(p)
	}
	for _, b := range mfn.Blocks {
		for _, inst := range b.Insts {
			note(inst.Result)
			for _, a := range inst.Args {
				note(a)
			}
		}
	}
	return class, width
}

// rewriteOperands replaces every OperandVirtualReg operand in mfn with the
// physical register or stack slot allocateClass assigned it, spilling to a
// fresh stack slot (one per vreg, reused at every use) when no register
// was assigned.
func rewriteOperands(mfn *mir.MIRFunction, classOf map[int]mir.RegClass, widthOf map[int]mir.Width, results map[mir.RegClass]*allocResult) {
	slotOf := map[int]int{}
	slotFor := func(vreg int) int {
		if s, ok := slotOf[vreg]; ok {
			return s
		}
		s := mfn.NewStackSlot()
		slotOf[vreg] = s
		return s
	}

	rewrite := func(op mir.MachineOperand) mir.MachineOperand {
		if op.Kind != mir.OperandVirtualReg {
			return op
		}
		class := classOf[op.Reg]
		w := widthOf[op.Reg]
		if physReg, ok := results[class].physReg[op.Reg]; ok {
			out := mir.ISAReg(physReg, class, w)
			out.Indirect, out.Imm = op.Indirect, op.Imm
			return out
		}
		out := mir.StackObject(slotFor(op.Reg), w)
		out.Indirect = op.Indirect
		if op.Indirect {
			out.Imm = op.Imm
		}
		return out
	}

	for _, b := range mfn.Blocks {
		for _, inst := range b.Insts {
			if !inst.Result.IsUnused() {
				inst.Result = rewrite(inst.Result)
			}
			for i, a := range inst.Args {
				inst.Args[i] = rewrite(a)
			}
		}
	}
}

// spillCallerSavedAcrossCalls inserts a save before and a restore after
// every call instruction, for each interval assigned a caller-saved
// physical register whose live range spans that call (spec.md 4.9 step
// 5) — the one calling-convention obligation allocateClass's
// single-location-per-interval model cannot express by register
// assignment alone, since the call itself is what invalidates the
// register.
func spillCallerSavedAcrossCalls(mfn *mir.MIRFunction, tgt target.Target, intervals map[int]*Interval, classOf map[int]mir.RegClass, widthOf map[int]mir.Width) {
	callerSaved := map[mir.RegClass]map[int]bool{
		mir.ClassGPR: toSet(tgt.CallerSaved(mir.ClassGPR)),
		mir.ClassFP:  toSet(tgt.CallerSaved(mir.ClassFP)),
	}

	vregs := make([]int, 0, len(intervals))
	for vreg := range intervals {
		vregs = append(vregs, vreg)
	}
	sort.Ints(vregs)

	slotOf := map[int]int{}
	slotFor := func(vreg int, w mir.Width) mir.MachineOperand {
		s, ok := slotOf[vreg]
		if !ok {
			s = mfn.NewStackSlot()
			slotOf[vreg] = s
		}
		return mir.StackObject(s, w)
	}

	for _, b := range mfn.Blocks {
		var out []*mir.MachineInstruction
		for _, inst := range b.Insts {
			if inst.Flags&mir.FlagCall == 0 {
				out = append(out, inst)
				continue
			}
			var saves, restores []*mir.MachineInstruction
			for _, vreg := range vregs {
				iv := intervals[vreg]
				if iv.PhysReg < 0 {
					continue
				}
				class := classOf[vreg]
				if !callerSaved[class][iv.PhysReg] || !crossesCall(iv, inst.Id) {
					continue
				}
				w := widthOf[vreg]
				reg := tgt.PhysReg(class, iv.PhysReg, w)
				sl := slotFor(vreg, w)
				saves = append(saves, tgt.Move(sl, reg))
				restores = append(restores, tgt.Move(reg, sl))
			}
			out = append(out, saves...)
			out = append(out, inst)
			out = append(out, restores...)
		}
		b.Insts = out
	}
}

func toSet(idx []int) map[int]bool {
	return lo.SliceToMap(idx, func(i int) (int, bool) { return i, true })
}

// crossesCall reports whether iv is live both before and after callID —
// including the case where one of its ranges spans callID directly —
// meaning the value it holds must survive the call.
func crossesCall(iv *Interval, callID int) bool {
	before, after := false, false
	for _, r := range iv.Ranges {
		if r.From <= callID && r.To >= callID {
			return true
		}
		if r.To < callID {
			before = true
		}
		if r.From > callID {
			after = true
		}
	}
	return before && after
}
