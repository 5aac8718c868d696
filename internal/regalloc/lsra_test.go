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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/falcon-lang/falconc/internal/mir"
	"github.com/falcon-lang/falconc/internal/target/x64"
)

func TestAllocateClassAssignsDisjointIntervalsSameRegister(t *testing.T) {
	tgt := x64.New()
	a := newInterval(0)
	a.addRange(0, 2)
	b := newInterval(1)
	b.addRange(4, 6)

	res := allocateClass(mir.ClassGPR, []*Interval{a, b}, tgt)
	require.Len(t, res.physReg, 2)
	require.Equal(t, res.physReg[0], res.physReg[1], "non-overlapping intervals may share a register")
}

func TestAllocateClassSpillsWhenRegistersExhausted(t *testing.T) {
	tgt := x64.New()
	n := tgt.NumPhysRegs(mir.ClassGPR)

	var ivs []*Interval
	for i := 0; i <= n; i++ { // one more interval than physical registers
		iv := newInterval(i)
		iv.addRange(0, 10) // all mutually overlapping
		ivs = append(ivs, iv)
	}

	res := allocateClass(mir.ClassGPR, ivs, tgt)
	require.LessOrEqual(t, len(res.physReg), n)
	require.Less(t, len(res.physReg), len(ivs), "at least one interval must be left spilled")
}

func TestAllocateClassAssignsDistinctRegistersWhenOverlapping(t *testing.T) {
	tgt := x64.New()
	a := newInterval(0)
	a.addRange(0, 10)
	b := newInterval(1)
	b.addRange(0, 10)

	res := allocateClass(mir.ClassGPR, []*Interval{a, b}, tgt)
	require.Len(t, res.physReg, 2)
	require.NotEqual(t, res.physReg[0], res.physReg[1])
}

// buildCallFunc constructs:
//
//	entry: v0 = mov 1; v1 = mov 2; call f; ret v0
//
// with v0 live across the call and v1 dead by the time the call executes,
// so Allocate's caller-saved spill pass has exactly one interval to act on
// when v0 lands in a caller-saved register.
func buildCallFunc() (*mir.MIRFunction, mir.MachineOperand) {
	fn := mir.NewMIRFunction("f")
	entry := fn.NewBlock("entry")
	v0 := fn.NewVReg(mir.ClassGPR, mir.Width64)
	v1 := fn.NewVReg(mir.ClassGPR, mir.Width64)
	fn.Emit(entry, mir.OpMove, v0, mir.Immediate(1, mir.Width64))
	fn.Emit(entry, mir.OpMove, v1, mir.Immediate(2, mir.Width64))
	call := fn.Emit(entry, mir.MIROp(3000), mir.MachineOperand{}, mir.Relocable("g", mir.Width64))
	call.Flags |= mir.FlagCall
	fn.Emit(entry, mir.MIROp(3001), mir.MachineOperand{}, v0).Flags |= mir.FlagTerminator
	return fn, v0
}

func TestAllocateRewritesEveryVirtualRegister(t *testing.T) {
	fn, _ := buildCallFunc()
	tgt := x64.New()
	Allocate(fn, tgt)

	for _, b := range fn.Blocks {
		for _, inst := range b.Insts {
			require.NotEqual(t, mir.OperandVirtualReg, inst.Result.Kind)
			for _, a := range inst.Args {
				require.NotEqual(t, mir.OperandVirtualReg, a.Kind)
			}
		}
	}
}

func TestAllocateInsertsSaveRestoreAroundCallForLiveCallerSavedValue(t *testing.T) {
	fn, _ := buildCallFunc()
	tgt := x64.New()
	Allocate(fn, tgt)

	entry := fn.Blocks[0]
	callIdx := -1
	for i, inst := range entry.Insts {
		if inst.Flags&mir.FlagCall != 0 {
			callIdx = i
		}
	}
	require.NotEqual(t, -1, callIdx, "call instruction must survive allocation")

	// v0 is live across the call and, as the first interval to start, takes
	// pool index 0 (r10, caller-saved), so exactly one stack-slot save must
	// precede the call and one matching restore follow it.
	saves, restores := 0, 0
	for i, inst := range entry.Insts {
		dst, src, ok := tgt.IsMove(inst)
		if !ok {
			continue
		}
		if i < callIdx && dst.Kind == mir.OperandStackObject {
			saves++
		} else if i > callIdx && src.Kind == mir.OperandStackObject {
			restores++
		}
	}
	require.Equal(t, 1, saves, "v0 in caller-saved r10 must be saved before the call")
	require.Equal(t, saves, restores, "every caller-saved save before the call must have a matching restore after it")
}
