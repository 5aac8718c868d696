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

// BasicBlock is itself a Value of Label type (spec.md 3.2) and owns an
// ordered list of Instructions. Successor/predecessor lists are not stored
// redundantly here; they are read from the terminator on demand by
// internal/pass's CFG analysis (spec.md 4.4) to avoid a second
// source-of-truth that could drift from the real terminator.
type BasicBlock struct {
	valueBase
	Name string
	Fn   *Function

	insts []Instruction
}

func (b *BasicBlock) Instructions() []Instruction { return b.insts }
func (b *BasicBlock) Len() int                    { return len(b.insts) }

// Terminator returns the block's single terminator instruction (br, condbr,
// switch, or ret), or nil if the block is not yet terminated. IR3 requires
// every well-formed block to have exactly one, at the end.
func (b *BasicBlock) Terminator() Instruction {
	if len(b.insts) == 0 {
		return nil
	}
	last := b.insts[len(b.insts)-1]
	switch last.(type) {
	case *Br, *CondBr, *Switch, *Ret:
		return last
	default:
		return nil
	}
}

// Successors reads the terminator and returns the blocks it may transfer
// control to, in a stable order (true-branch before false-branch for
// CondBr; case order then default for Switch). Returns nil for Ret or an
// unterminated block.
func (b *BasicBlock) Successors() []*BasicBlock {
	switch t := b.Terminator().(type) {
	case *Br:
		return []*BasicBlock{t.Target}
	case *CondBr:
		return []*BasicBlock{t.True, t.False}
	case *Switch:
		out := make([]*BasicBlock, 0, len(t.Cases)+1)
		for _, c := range t.Cases {
			out = append(out, c.Block)
		}
		return append(out, t.Default)
	default:
		return nil
	}
}

// Phis returns the leading run of Phi instructions in the block (IR2: all
// phis precede every non-phi instruction).
func (b *BasicBlock) Phis() []*Phi {
	var out []*Phi
	for _, inst := range b.insts {
		phi, ok := inst.(*Phi)
		if !ok {
			break
		}
		out = append(out, phi)
	}
	return out
}

// insertAt splices inst into the instruction list at position i.
func (b *BasicBlock) insertAt(i int, inst Instruction) {
	b.insts = append(b.insts, nil)
	copy(b.insts[i+1:], b.insts[i:])
	b.insts[i] = inst
}

// removeInst detaches inst from the block's instruction list without
// destroying it; its operand uses are untouched (the caller decides whether
// to drop them, e.g. via EraseInstruction in erase.go).
func (b *BasicBlock) removeInst(inst Instruction) {
	for i, v := range b.insts {
		if v == inst {
			b.insts = append(b.insts[:i], b.insts[i+1:]...)
			return
		}
	}
}

// IndexOf returns the position of inst in the block, or -1.
func (b *BasicBlock) IndexOf(inst Instruction) int {
	for i, v := range b.insts {
		if v == inst {
			return i
		}
	}
	return -1
}
