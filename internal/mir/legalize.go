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
package mir

// Legalizer is implemented by a Target to answer the post-lowering
// legality questions Legalize asks of every instruction: can this operand
// combination be emitted directly, or must it first be rewritten (spec.md
// 4.7's post-lowering legalization pass).
type Legalizer interface {
	// TwoOperandForm reports whether op requires its result and first
	// argument to occupy the same physical location (true for almost all
	// x86 arithmetic; lowering already emits the mov that makes this hold,
	// but a TryLower-built sequence may not have; Legalize checks each
	// instruction once).
	TwoOperandForm(op MIROp) bool
	// AllowsMemoryMemory reports whether op can take two memory (stack)
	// operands at once. False for every real x86 ALU op; Legalize
	// materializes one operand through a scratch register when it isn't.
	AllowsMemoryMemory(op MIROp) bool
	// ScratchGPR returns a register reserved for legalization's own use
	// (materializing a memory-to-memory operand) — never handed out by the
	// allocator.
	ScratchGPR(w Width) MachineOperand
}

// Legalize rewrites mfn in place so every instruction satisfies its
// target's operand-form constraints, per spec.md 4.7. It runs after
// Lower/LowerModule and before register allocation. Three concerns, each
// grounded on a specific falcon gap noted while reading
// compile/codegen/lower_x86.go (see DESIGN.md's C8 entry):
//
//  1. Two-operand form: lowering's default pattern (lowerGeneric) already
//     emits the defining mov, but a TryLower-built sequence may not have;
//     this pass inserts one wherever Result and Args[0] differ, for ops
//     that need it.
//  2. Memory-to-memory: an instruction with more than one stack-slot
//     operand (counting the result) has each stack-slot argument, other
//     than an Args[0] equal to the result, loaded through a scratch
//     register. This runs before allocation, so only stack slots already
//     present after lowering are seen.
//  3. Variable shift count: the shift-amount operand of a variable shift
//     must be pinned to the target's fixed shift-count register. x64's
//     TryLower (isel.go) already moves the count into ShiftCountOperand()
//     before emitting the shift, so by the time Legalize sees the
//     instruction the operand is already a physical register, not a vreg;
//     Legalize has nothing further to do for this case.
func Legalize(mfn *MIRFunction, target Target, leg Legalizer) error {
	for _, b := range mfn.Blocks {
		out := make([]*MachineInstruction, 0, len(b.Insts))
		for _, mi := range b.Insts {
			out = append(out, legalizeInstruction(mfn, target, leg, mi)...)
		}
		b.Insts = out
	}
	return nil
}

func legalizeInstruction(mfn *MIRFunction, target Target, leg Legalizer, mi *MachineInstruction) []*MachineInstruction {
	var pre []*MachineInstruction

	if leg.TwoOperandForm(mi.Op) && len(mi.Args) > 0 && !mi.Result.IsUnused() {
		if !operandEqual(mi.Result, mi.Args[0]) {
			pre = append(pre, target.Move(mi.Result, mi.Args[0]))
			mi.Args[0] = mi.Result
		}
	}

	if !leg.AllowsMemoryMemory(mi.Op) {
		memOperands := 0
		for _, a := range mi.Args {
			if a.IsStack() {
				memOperands++
			}
		}
		if mi.Result.IsStack() {
			memOperands++
		}
		if memOperands > 1 {
			for i, a := range mi.Args {
				if a.IsStack() && !(i == 0 && operandEqual(mi.Result, a)) {
					scratch := leg.ScratchGPR(a.Width)
					pre = append(pre, target.Move(scratch, a))
					mi.Args[i] = scratch
				}
			}
		}
	}

	return append(pre, mi)
}

func operandEqual(a, b MachineOperand) bool { return a == b }
