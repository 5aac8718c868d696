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

// frame.go computes a function's stack frame layout (asmprinter.go's
// printFunc and printEpilogue emit the prologue/epilogue text from it),
// the FrameInfo half of spec.md 4.8 folded into
// asmprinter.go's Print rather than exposed as its own interface (nothing
// outside this package ever calls it standalone), grounded on
// compile/codegen/asm_x86.go's emitPrologue/emitEpilogue.
package x64

import "github.com/falcon-lang/falconc/internal/mir"

// frameLayout is the per-function information Print needs to emit a
// prologue/epilogue: the total local-storage size (rbp-relative, rounded so
// a call instruction inside the body always finds rsp 16-byte aligned) and
// which callee-saved registers the allocator actually placed a live value
// in, in push order.
type frameLayout struct {
	size        int
	calleeSaved []gpID
	// offsets[slot] is that stack slot's rbp-relative displacement
	// (negative, below the saved frame pointer).
	offsets []int
}

func computeFrameLayout(mfn *mir.MIRFunction) frameLayout {
	offsets := make([]int, len(mfn.SlotSize))
	running := 0
	for i, s := range mfn.SlotSize {
		running += s
		offsets[i] = -running
	}
	size := running

	used := usedCalleeSaved(mfn)

	// Entering the body, rsp is 16-aligned minus the 8-byte return address
	// and the 8-byte pushed rbp — i.e. already 16-aligned once rbp is
	// pushed. Each callee-saved push and the local-frame carve-out must
	// together keep a multiple of 16 so any `call` in the body sees a
	// 16-aligned rsp.
	total := size + 8*len(used)
	if rem := total % 16; rem != 0 {
		size += 16 - rem
	}
	return frameLayout{size: size, calleeSaved: used, offsets: offsets}
}

// usedCalleeSaved scans every instruction of mfn (after register
// allocation has rewritten vreg operands to physical ones) for a
// callee-saved GPR, in first-appearance order, so the prologue only saves
// registers this function actually clobbers instead of always saving the
// whole set.
func usedCalleeSaved(mfn *mir.MIRFunction) []gpID {
	seen := map[gpID]bool{}
	var out []gpID
	calleeSet := map[int]bool{}
	for _, idx := range gpCalleeSavedPoolIdx {
		calleeSet[int(gpPool[idx])] = true
	}
	for _, b := range mfn.Blocks {
		for _, inst := range b.Insts {
			for _, op := range inst.Operands() {
				if op.Kind != mir.OperandISAReg || op.Class != mir.ClassGPR {
					continue
				}
				id := gpID(op.Reg)
				if calleeSet[int(id)] && !seen[id] {
					seen[id] = true
					out = append(out, id)
				}
			}
		}
	}
	return out
}
