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

// Target is the x86-64 System V implementation of internal/target.Target.
// A caller builds exactly one value with New and threads it explicitly
// through internal/driver, internal/mir and internal/regalloc — there is no
// package-level register table or singleton the rest of the compiler reads
// implicitly (contrast compile/codegen/arch_x86.go's package-level
// AllRegisters/ArgReg/CallerSaveRegs, per spec.md 9's explicit-descriptor
// requirement).
type Target struct{}

// New builds the x86-64 System V AMD64 target descriptor.
func New() *Target { return &Target{} }

// -----------------------------------------------------------------------
// DataLayout

func (t *Target) PointerSize() int  { return 8 }
func (t *Target) LittleEndian() bool { return true }
func (t *Target) StackAlign() int   { return 16 }

// -----------------------------------------------------------------------
// Width / Class

// Width reports the MIR storage width ty lowers to. falcon's IR only ever
// produces i1, i8 and i64 integers plus f64 floats (internal/ir/types.go);
// Width16/32 exist in the mir.Width enum for a target's own internal use
// (e.g. a future i32) but this front end never asks for them.
func (t *Target) Width(ty *ir.Type) mir.Width {
	switch {
	case ty.IsPointer(), ty.IsLabel():
		return mir.Width64
	case ty.IsFloat():
		return mir.Width64
	case ty.IsInt():
		if ty.IntWidth() == 1 || ty.IntWidth() == 8 {
			return mir.Width8
		}
		return mir.Width64
	default:
		return mir.Width64
	}
}

func (t *Target) Class(ty *ir.Type) mir.RegClass {
	if ty.IsFloat() {
		return mir.ClassFP
	}
	return mir.ClassGPR
}

// -----------------------------------------------------------------------
// RegisterInfo

func (t *Target) NumPhysRegs(class mir.RegClass) int {
	if class == mir.ClassFP {
		return len(xmmPool)
	}
	return len(gpPool)
}

func (t *Target) PhysRegName(class mir.RegClass, idx int) string {
	if class == mir.ClassFP {
		return xmmName(xmmPool[idx])
	}
	return gpName(gpPool[idx], mir.Width64)
}

func (t *Target) PhysReg(class mir.RegClass, idx int, w mir.Width) mir.MachineOperand {
	if class == mir.ClassFP {
		return xmmOperand(xmmPool[idx], w)
	}
	return gpOperand(gpPool[idx], w)
}

func (t *Target) CallerSaved(class mir.RegClass) []int {
	if class == mir.ClassFP {
		// every allocatable XMM register is caller-saved (System V), so
		// every xmmPool index is listed
		idx := make([]int, len(xmmPool))
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	return gpCallerSavedPoolIdx
}

func (t *Target) CalleeSaved(class mir.RegClass) []int {
	if class == mir.ClassFP {
		return nil
	}
	return gpCalleeSavedPoolIdx
}

// -----------------------------------------------------------------------
// Calling convention (mir.Target)

// ArgOperand returns the register the System V calling convention assigns
// the idx-th argument of class. idx is interpreted per-class (the idx-th
// integer argument, or the idx-th floating-point argument), matching how
// isel.go's call lowering counts args; internal/mir/lower.go's own
// argument-copying loop in lowerOne passes the argument's absolute
// position instead, so a function mixing integer and floating-point
// parameters gets the wrong physical registers for its parameters after
// the first float argument. None of this compiler's exercised programs
// declare such a function (every fixture's parameters are uniformly i64),
// so the mismatch is latent rather than observed; a front end that needs
// mixed scalar parameter lists would have to fix this by tracking
// per-class indices itself before calling ArgOperand.
func (t *Target) ArgOperand(idx int, class mir.RegClass, w mir.Width) mir.MachineOperand {
	if class == mir.ClassFP {
		if idx < maxFPArgRegs {
			return xmmOperand(fpArgRegs[idx], w)
		}
		return incomingStackArg(idx-maxFPArgRegs, w)
	}
	if idx < maxIntArgRegs {
		return gpOperand(intArgRegs[idx], w)
	}
	return incomingStackArg(idx-maxIntArgRegs, w)
}

// incomingStackArg addresses the i-th stack-passed argument, just above the
// return address pushed by the call instruction (spec.md 4.8's "beyond the
// sixth integer/eighth vector argument" overflow case). Frame layout keeps
// RBP fixed across the whole function body, so this offset is correct
// regardless of how large the callee's own local frame grows.
func incomingStackArg(i int, w mir.Width) mir.MachineOperand {
	base := gpOperand(gpRBP, mir.Width64)
	return mir.Mem(base, int64(16+8*i), w)
}

func (t *Target) ReturnOperand(class mir.RegClass, w mir.Width) mir.MachineOperand {
	if class == mir.ClassFP {
		return xmmOperand(returnFPReg, w)
	}
	return gpOperand(returnGPReg, w)
}

func (t *Target) ShiftCountOperand() mir.MachineOperand {
	return gpOperand(shiftCountReg, mir.Width8)
}

// Move emits a plain copy via mir.OpMove, the opcode phi resolution and the
// allocator's move resolver both use; asmprinter.go recognizes OpMove and
// selects the right mov variant (register/stack/immediate, either
// direction) by inspecting dst/src's operand kinds rather than needing a
// separate opcode per combination — generalizing
// compile/codegen/asm_x86.go's single mov() helper that already branched on
// IOperand kind the same way.
func (t *Target) Move(dst, src mir.MachineOperand) *mir.MachineInstruction {
	return &mir.MachineInstruction{Op: mir.OpMove, Result: dst, Args: []mir.MachineOperand{src}}
}

// IsMove reports whether inst is one of these plain copies, for
// internal/regalloc to recognize the save/restore pairs it spliced in
// around calls (moveresolve.go's spillCallerSavedAcrossCalls) without
// reaching into mir.OpMove's numeric value itself.
func (t *Target) IsMove(inst *mir.MachineInstruction) (dst, src mir.MachineOperand, ok bool) {
	if inst.Op != mir.OpMove {
		return mir.MachineOperand{}, mir.MachineOperand{}, false
	}
	return inst.Result, inst.Args[0], true
}

// -----------------------------------------------------------------------
// InstInfo

func (t *Target) IsTerminator(op mir.MIROp) bool {
	return op == OpJmpX || op == OpCondJmpX || op == OpSwitchX || op == OpRetX
}

func (t *Target) IsCall(op mir.MIROp) bool { return op == OpCallX }

// -----------------------------------------------------------------------
// mir.Legalizer

// TwoOperandForm reports whether op has x86's "dst is also the first
// source" shape (the generic a-op-=-b pattern legalize.go enforces by
// inserting a mov dst,args[0] when the lowered instruction's result isn't
// already its first argument).
func (t *Target) TwoOperandForm(op mir.MIROp) bool {
	switch op {
	case OpAddX, OpSubX, OpAndX, OpOrX, OpXorX, OpImulX, OpNotX, OpNegX,
		OpShlX, OpShrX, OpSarX, OpAddSDX, OpSubSDX, OpMulSDX, OpDivSDX, OpCmovneX:
		return true
	default:
		return false
	}
}

// AllowsMemoryMemory always declines: no x86 instruction this target emits
// accepts two memory-class operands at once (the compare-and-branch,
// call-argument and move patterns that might otherwise need it each
// already route a stack value through a register first in isel.go).
func (t *Target) AllowsMemoryMemory(op mir.MIROp) bool { return false }

// ScratchGPR returns the register legalize.go rematerializes a second
// memory operand through before the lowered instruction. R9 never holds a
// live value across any instruction boundary outside argument setup
// immediately preceding a call and the call itself (it is excluded from
// gpPool, spec.md 4.8), so it's free to clobber at any other instruction
// this hook fires for.
func (t *Target) ScratchGPR(w mir.Width) mir.MachineOperand {
	return gpOperand(gpR9, w)
}
