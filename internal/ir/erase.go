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
package ir

// EraseInstruction detaches inst from its block and drops its own operand
// uses. inst must have no remaining users (NumUses(inst) == 0); callers
// (dead code elimination, inlining) are responsible for clearing uses
// first, typically via ReplaceAllUsesWith.
func EraseInstruction(inst Instruction) {
	if NumUses(inst) != 0 {
		panic("ir: erasing an instruction that still has uses")
	}
	for i := range inst.Operands() {
		inst.SetOperand(i, nil)
	}
	if b := inst.Block(); b != nil {
		b.removeInst(inst)
	}
}

// EraseBlock detaches every instruction in block (in reverse, so uses within
// the block are torn down before their definitions) and removes block from
// its function, per IR6 ("deleting a block first detaches all its
// instructions").
func EraseBlock(block *BasicBlock) {
	insts := block.insts
	for i := len(insts) - 1; i >= 0; i-- {
		inst := insts[i]
		for _, u := range Uses(inst) {
			// Uses from outside the block being destroyed (e.g. a phi in a
			// surviving successor) must already have been fixed up by the
			// caller (e.g. internal/pass's simplifycfg); a use from within
			// this same block is fine, it is about to be destroyed too.
			if u.User().Block() != block {
				panic("ir: erasing a block whose instruction still has external uses")
			}
		}
		for j := range inst.Operands() {
			inst.SetOperand(j, nil)
		}
	}
	block.insts = nil
	if fn := block.Fn; fn != nil {
		fn.RemoveBlock(block)
	}
	block.Fn = nil
}
