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

// Package x64 is the concrete target backing of spec.md 4.8/4.11: the x86-64
// RegisterInfo/DataLayout/InstInfo/ISelInfo/AsmPrinter facets, grounded on
// compile/codegen/arch_x86.go's register enumeration (Affinity-indexed
// Register values with an AllRegisters table), compile/codegen/
// lower_x86.go's instruction selector, and compile/codegen/asm_x86.go's
// AT&T-syntax emission.
package x64

import "github.com/falcon-lang/falconc/internal/mir"

// gpID is a stable integer identity for one general-purpose register,
// independent of its role (allocatable pool member, fixed ABI register, or
// both) — arch_x86.go's Affinity field serves the same purpose there,
// tying e.g. RAX/EAX/AX/AL together as "the same register at different
// widths".
type gpID int

const (
	gpRAX gpID = iota
	gpRCX
	gpRDX
	gpRBX
	gpRSP
	gpRBP
	gpRSI
	gpRDI
	gpR8
	gpR9
	gpR10
	gpR11
	gpR12
	gpR13
	gpR14
	gpR15
)

// gpNames64 and gpNames8 hold, per gpID, the register name at each width this compiler
// actually produces (spec.md 9: "i8 meaning boolean and i64 meaning word").
// Width16/32 are not names this IR's values ever need directly; they fall
// back to the 64-bit name (gpName below), a documented scope narrowing
// rather than a fully general x86 register-name table.
var gpNames64 = [...]string{"rax", "rcx", "rdx", "rbx", "rsp", "rbp", "rsi", "rdi", "r8", "r9", "r10", "r11", "r12", "r13", "r14", "r15"}
var gpNames8 = [...]string{"al", "cl", "dl", "bl", "spl", "bpl", "sil", "dil", "r8b", "r9b", "r10b", "r11b", "r12b", "r13b", "r14b", "r15b"}

func gpName(id gpID, w mir.Width) string {
	if w == mir.Width8 {
		return gpNames8[id]
	}
	return gpNames64[id]
}

// gpPool is the allocatable general-purpose register pool internal/
// regalloc's linear scan draws from, in the order that determines its
// "lowest-numbered free register first" tie-break (spec.md 4.9). RAX,
// RCX, RDX, RDI, RSI, R8, R9, RSP and RBP are deliberately excluded: RAX
// is the return register and the implicit multiply/divide accumulator,
// RCX is the mandatory variable-shift-count register, RDX is the
// multiply/divide high half (RDX and RCX also carry the third and fourth
// integer arguments), RDI/RSI/R8/R9 carry the first, second, fifth and
// sixth integer arguments, and RSP/RBP are the stack/frame pointers — isel.go and
// frame.go reference all of these directly as fixed physical operands
// outside any vreg's interval, and the simplified allocator (DESIGN.md's
// C10 entry) has no pre-colored-interval machinery to keep a vreg and a
// fixed ABI use of the same register from colliding. Reserving the whole
// ABI-significant set out of the allocatable pool sidesteps that
// collision entirely, at the cost of a smaller register file, rather than
// risk a mis-allocated program.
var gpPool = []gpID{gpR10, gpR11, gpRBX, gpR12, gpR13, gpR14, gpR15}

// gpCallerSavedPoolIdx / gpCalleeSavedPoolIdx are indices into gpPool,
// matching arch_x86.go's CallerSaveRegs/CalleeSaveRegs split for the
// registers that remain in the allocatable pool.
var gpCallerSavedPoolIdx = []int{0, 1} // R10, R11
var gpCalleeSavedPoolIdx = []int{2, 3, 4, 5, 6} // RBX, R12-R15

// xmmPool is the allocatable floating-point register pool: XMM8-XMM15.
// XMM0-XMM7 are reserved the same way the integer argument registers are
// (spec.md 4.8's System V floating-point argument/return registers), used
// directly by isel.go's call lowering rather than drawn from the pool.
var xmmPool = []int{8, 9, 10, 11, 12, 13, 14, 15}

func xmmName(idx int) string {
	return "xmm" + itoa(idx)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

// intArgRegs are the System V AMD64 integer argument registers, in order
// (arch_x86.go's ArgReg, hardcoded to the non-Windows branch per spec.md
// 4.8: "the System V-style integer-argument registers").
var intArgRegs = []gpID{gpRDI, gpRSI, gpRDX, gpRCX, gpR8, gpR9}

// fpArgRegs are the System V AMD64 floating-point argument/return
// registers, XMM0-XMM7.
var fpArgRegs = []int{0, 1, 2, 3, 4, 5, 6, 7}

const maxIntArgRegs = 6
const maxFPArgRegs = 8

// shiftCountReg is the one register a variable shift count must occupy
// (spec.md 4.9 step 5; arch_x86.go's RCX/CL).
const shiftCountReg = gpRCX

// returnGPReg / returnFPReg are the registers a function's return value is
// produced in (arch_x86.go's ReturnReg, spec.md 4.8).
const returnGPReg = gpRAX
const returnFPReg = 0 // xmm0

func gpOperand(id gpID, w mir.Width) mir.MachineOperand {
	return mir.ISAReg(int(id), mir.ClassGPR, w)
}

func xmmOperand(idx int, w mir.Width) mir.MachineOperand {
	return mir.ISAReg(idx, mir.ClassFP, w)
}
