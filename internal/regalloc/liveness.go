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

import "github.com/falcon-lang/falconc/internal/mir"

// blockEdges returns, for each block index into mfn.Blocks, the indices
// of its successor blocks. MIRBlock carries no explicit successor list
// (only the ir.BasicBlock it was lowered from does); successors are
// instead read back off the branch-target operands of the block's last
// instruction.
func blockEdges(mfn *mir.MIRFunction) [][]int {
	byName := make(map[string]int, len(mfn.Blocks))
	for idx, b := range mfn.Blocks {
		byName[b.Name] = idx
	}
	edges := make([][]int, len(mfn.Blocks))
	for idx, b := range mfn.Blocks {
		if len(b.Insts) == 0 {
			continue
		}
		term := b.Insts[len(b.Insts)-1]
		for _, a := range term.Args {
			if a.Kind == mir.OperandRelocable && !a.Indirect {
				if succ, ok := byName[a.Sym]; ok {
					edges[idx] = append(edges[idx], succ)
				}
			}
		}
	}
	return edges
}

type genKill struct {
	gen, kill *LiveSet
}

type liveInOut struct {
	in, out *LiveSet
}

// computeLiveness runs spec.md 4.9 step 2's backward dataflow analysis
// over mfn's virtual registers, generalizing
// compile/codegen/lsra.go's computeGenKillMap/computeLiveInOutMap. It
// walks mfn.Blocks directly for its block order: internal/mir/lower.go
// already built those in reverse-post-order, so — unlike lsra.go's
// initOrder, which falls back to an arbitrary ascending block-id sort
// because no better order was wired up — there is no separate
// linearization step to get right here.
func computeLiveness(mfn *mir.MIRFunction) []*liveInOut {
	n := len(mfn.Blocks)
	nv := mfn.NumVRegs
	edges := blockEdges(mfn)

	gk := make([]*genKill, n)
	for i, b := range mfn.Blocks {
		g := &genKill{gen: NewLiveSet(nv), kill: NewLiveSet(nv)}
		for _, inst := range b.Insts {
			for _, a := range inst.Args {
				if a.Kind == mir.OperandVirtualReg && !g.kill.IsSet(a.Reg) {
					g.gen.Set(a.Reg)
				}
			}
			if inst.Result.Kind == mir.OperandVirtualReg {
				g.kill.Set(inst.Result.Reg)
			}
		}
		gk[i] = g
	}

	lio := make([]*liveInOut, n)
	for i := range mfn.Blocks {
		lio[i] = &liveInOut{in: NewLiveSet(nv), out: NewLiveSet(nv)}
	}

	// Backward fixpoint: LiveOut{b} = union of LiveIn{succ}; LiveIn{b} =
	// Gen{b} U (LiveOut{b} - Kill{b}).
	changed := true
	for changed {
		changed = false
		for i := n - 1; i >= 0; i-- {
			for _, s := range edges[i] {
				if lio[i].out.Unite(lio[s].in) {
					changed = true
				}
			}
			in := lio[i].out.Copy()
			in.Remove(gk[i].kill)
			in.Unite(gk[i].gen)
			if lio[i].in.SetFrom(in) {
				changed = true
			}
		}
	}
	return lio
}

// buildIntervals derives one Interval per virtual register from the
// function's live-in/live-out sets, generalizing
// compile/codegen/lsra.go's buildIntervals.
func buildIntervals(mfn *mir.MIRFunction, lio []*liveInOut) map[int]*Interval {
	intervals := make(map[int]*Interval)
	get := func(vreg int) *Interval {
		iv, ok := intervals[vreg]
		if !ok {
			iv = newInterval(vreg)
			intervals[vreg] = iv
		}
		return iv
	}

	for i := len(mfn.Blocks) - 1; i >= 0; i-- {
		b := mfn.Blocks[i]
		if len(b.Insts) == 0 {
			continue
		}
		blockFrom, blockTo := b.Insts[0].Id, b.Insts[len(b.Insts)-1].Id

		out := lio[i].out
		for v := 0; v < out.Len(); v++ {
			if out.IsSet(v) {
				get(v).addRange(blockFrom, blockTo)
			}
		}

		for k := len(b.Insts) - 1; k >= 0; k-- {
			inst := b.Insts[k]
			if inst.Result.Kind == mir.OperandVirtualReg {
				iv := get(inst.Result.Reg)
				if len(iv.Ranges) > 0 {
					iv.firstRange().From = inst.Id
				} else {
					iv.addRange(inst.Id, inst.Id)
				}
				iv.addUsePoint(inst.Id, UseWrite)
			}
			for _, a := range inst.Args {
				if a.Kind == mir.OperandVirtualReg {
					iv := get(a.Reg)
					iv.addRange(blockFrom, inst.Id)
					iv.addUsePoint(inst.Id, UseRead)
				}
			}
		}
	}
	return intervals
}
