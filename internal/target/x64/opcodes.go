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
package x64

import (
	"github.com/falcon-lang/falconc/internal/ir"
	"github.com/falcon-lang/falconc/internal/mir"
)

// x64's own MIROp vocabulary, starting at mir.OpTargetBase per spec.md 3.5.
// Named after the AT&T mnemonic isel.go and asmprinter.go emit them as, with
// an X suffix to keep them visually distinct from internal/ir's Opcode
// names that share a root (OpAdd vs OpAddX) — grounded on
// compile/codegen/lir.go's LIROp enum, one value per instruction shape
// lower_x86.go's lowerArithmetic/lowerCompare/lowerCall produce.
const (
	OpAddX mir.MIROp = mir.OpTargetBase + iota
	OpSubX
	OpAndX
	OpOrX
	OpXorX
	OpImulX
	OpNotX
	OpNegX
	OpShlX
	OpShrX // logical right shift (shr)
	OpSarX // arithmetic right shift (sar)
	OpCqtoX // sign-extend rax into rdx:rax ahead of a signed divide (cqto)
	OpIdivX // idiv arg0; quotient left in rax, remainder in rdx
	OpCmpX
	OpTestX

	OpSeteX
	OpSetneX
	OpSetlX
	OpSetleX
	OpSetgX
	OpSetgeX

	// OpJmpX, OpCondJmpX, OpSwitchX and OpRetX are always the sole, last
	// instruction of the MIRBlock they end — internal/regalloc/liveness.go's
	// blockEdges reads successor edges only off the last instruction's
	// Args, so every relocable block target a terminator branches to must
	// live on that one instruction rather than spread across several (the
	// way a real cmp/jcc/jmp sequence would naturally fall out of
	// instruction selection). asmprinter.go expands each of these into its
	// multi-instruction assembly form at print time.
	OpJmpX     // Args: [targetBlock]
	OpCondJmpX // Args: [cond, trueBlock, falseBlock]; emits test+jne+jmp
	OpSwitchX  // Args: [val, case0Const, case0Block, ..., defaultBlock]; emits cmp+je chain
	OpRetX

	OpCallX

	OpLeaX
	OpMovzxX
	OpMovsxX
	OpCmovneX

	OpAddSDX
	OpSubSDX
	OpMulSDX
	OpDivSDX
	OpUComiSDX
	OpCvttsd2siX
	OpCvtsi2sdX
	// OpPxorZeroX self-xors its one operand (Args[0] == Result) to zero an
	// XMM register, the idiom isel.go's FNeg lowering uses in place of a
	// negate instruction x86's SSE2 set has no direct equivalent of.
	OpPxorZeroX
)

// binGeneric maps the ir.Opcode values lowerGeneric (internal/mir/lower.go)
// falls back to for plain binary arithmetic/logic onto this target's
// two-operand-form opcode. UDiv/URem/Shl/LShr/AShr are deliberately absent:
// each needs a fixed-register operand (rax:rdx for divide, cl for a
// variable shift count) the generic "mov dst,lhs; op dst,rhs" pattern can't
// express, so isel.go's TryLower handles those opcodes directly instead of
// going through GenericOp.
var binGeneric = map[ir.Opcode]mir.MIROp{
	ir.OpAdd:  OpAddX,
	ir.OpSub:  OpSubX,
	ir.OpAnd:  OpAndX,
	ir.OpOr:   OpOrX,
	ir.OpXor:  OpXorX,
	ir.OpMul:  OpImulX,
	ir.OpFAdd: OpAddSDX,
	ir.OpFSub: OpSubSDX,
	ir.OpFMul: OpMulSDX,
	ir.OpFDiv: OpDivSDX,
}
