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

// cloneInstruction is the exhaustive switch backing Builder.Clone, grounded
// on original_source/OlaCompiler/Backend/Custom/IR/Instructions.cpp's clone
// pattern (per _INDEX.md; the teacher itself, compile/ssa, has no generic
// clone at all). Each case copies operands (fresh Use slots, same operand
// Values — remapping is the caller's job) and any opcode-specific fields.
func cloneInstruction(inst Instruction, id int) Instruction {
	switch v := inst.(type) {
	case *BinOp:
		n := &BinOp{}
		n.init(n, v.op, v.ty, id, append([]Value(nil), v.operands...))
		n.name = v.name
		return n
	case *UnaryOp:
		n := &UnaryOp{}
		n.init(n, v.op, v.ty, id, append([]Value(nil), v.operands...))
		n.name = v.name
		return n
	case *ICmp:
		n := &ICmp{Pred: v.Pred}
		n.init(n, v.op, v.ty, id, append([]Value(nil), v.operands...))
		n.name = v.name
		return n
	case *FCmp:
		n := &FCmp{Pred: v.Pred}
		n.init(n, v.op, v.ty, id, append([]Value(nil), v.operands...))
		n.name = v.name
		return n
	case *Alloca:
		n := &Alloca{Elem: v.Elem, Count: v.Count}
		n.init(n, v.op, v.ty, id, nil)
		n.name = v.name
		return n
	case *Load:
		n := &Load{}
		n.init(n, v.op, v.ty, id, append([]Value(nil), v.operands...))
		n.name = v.name
		return n
	case *Store:
		n := &Store{}
		n.init(n, v.op, v.ty, id, append([]Value(nil), v.operands...))
		return n
	case *Gep:
		n := &Gep{ElemType: v.ElemType}
		n.init(n, v.op, v.ty, id, append([]Value(nil), v.operands...))
		n.name = v.name
		return n
	case *Cast:
		n := &Cast{}
		n.init(n, v.op, v.ty, id, append([]Value(nil), v.operands...))
		n.name = v.name
		return n
	case *Br:
		n := &Br{Target: v.Target}
		n.init(n, v.op, v.ty, id, nil)
		return n
	case *CondBr:
		n := &CondBr{True: v.True, False: v.False}
		n.init(n, v.op, v.ty, id, append([]Value(nil), v.operands...))
		return n
	case *Switch:
		n := &Switch{Default: v.Default, Cases: append([]SwitchCase(nil), v.Cases...)}
		n.init(n, v.op, v.ty, id, append([]Value(nil), v.operands...))
		return n
	case *Ret:
		n := &Ret{}
		n.init(n, v.op, v.ty, id, append([]Value(nil), v.operands...))
		return n
	case *Phi:
		n := &Phi{Preds: append([]*BasicBlock(nil), v.Preds...)}
		n.init(n, v.op, v.ty, id, append([]Value(nil), v.operands...))
		n.name = v.name
		return n
	case *Call:
		n := &Call{Callee: v.Callee, NoReturn: v.NoReturn, Pure: v.Pure}
		n.init(n, v.op, v.ty, id, append([]Value(nil), v.operands...))
		n.name = v.name
		return n
	case *Select:
		n := &Select{}
		n.init(n, v.op, v.ty, id, append([]Value(nil), v.operands...))
		n.name = v.name
		return n
	default:
		panic("ir: clone of unknown instruction kind")
	}
}
