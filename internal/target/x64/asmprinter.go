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

// asmprinter.go is this target's AsmPrinter facet (spec.md 4.8/4.10):
// walking an already-lowered, already-legalized, already-allocated
// mir.MIRModule into AT&T-syntax text, grounded on
// compile/codegen/asm_x86.go's section/prologue/epilogue/operand-text
// shape but reading physical-register and spill-slot operands straight off
// the finished MachineInstructions rather than asm_x86.go's own
// scratch-register-per-vreg bypass of register allocation.
package x64

import (
	"fmt"
	"io"
	"strings"

	"github.com/falcon-lang/falconc/internal/mir"
)

// Print implements target.AsmPrinter.
func (t *Target) Print(w io.Writer, mm *mir.MIRModule) error {
	var sb strings.Builder

	if len(mm.Zero) > 0 {
		sb.WriteString("\t.bss\n")
		for _, z := range mm.Zero {
			fmt.Fprintf(&sb, "%s:\n\t.zero %d\n", z.Name, z.Size)
		}
	}
	if len(mm.Data) > 0 {
		sb.WriteString("\t.data\n")
		for _, d := range mm.Data {
			fmt.Fprintf(&sb, "%s:\n", d.Name)
			printBytes(&sb, d.Bytes)
		}
	}

	sb.WriteString("\t.text\n")
	for _, f := range mm.Funcs {
		printFunc(&sb, f)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func printBytes(sb *strings.Builder, data []byte) {
	const perLine = 12
	for i := 0; i < len(data); i += perLine {
		end := i + perLine
		if end > len(data) {
			end = len(data)
		}
		sb.WriteString("\t.byte ")
		for j := i; j < end; j++ {
			if j > i {
				sb.WriteString(", ")
			}
			fmt.Fprintf(sb, "%d", data[j])
		}
		sb.WriteString("\n")
	}
}

func printFunc(sb *strings.Builder, mfn *mir.MIRFunction) {
	layout := computeFrameLayout(mfn)

	fmt.Fprintf(sb, "\t.globl %s\n%s:\n", mfn.Name, mfn.Name)
	sb.WriteString("\tpush %rbp\n")
	sb.WriteString("\tmov %rsp, %rbp\n")
	for _, r := range layout.calleeSaved {
		fmt.Fprintf(sb, "\tpush %%%s\n", gpName(r, mir.Width64))
	}
	if layout.size > 0 {
		fmt.Fprintf(sb, "\tsub $%d, %%rsp\n", layout.size)
	}

	for _, b := range mfn.Blocks {
		fmt.Fprintf(sb, "%s:\n", b.Name)
		for _, inst := range b.Insts {
			printInst(sb, inst, layout)
		}
	}
}

func printEpilogue(sb *strings.Builder, layout frameLayout) {
	if layout.size > 0 {
		fmt.Fprintf(sb, "\tadd $%d, %%rsp\n", layout.size)
	}
	for i := len(layout.calleeSaved) - 1; i >= 0; i-- {
		fmt.Fprintf(sb, "\tpop %%%s\n", gpName(layout.calleeSaved[i], mir.Width64))
	}
	sb.WriteString("\tpop %rbp\n")
}

// operandText renders op as AT&T-syntax assembly text. Every operand kind
// but OperandVirtualReg is legal here — Allocate (internal/regalloc)
// rewrites every vreg reference to a physical register or a stack slot
// before Print ever runs, so surviving one is this package's own bug, not
// malformed input to react to gracefully.
func operandText(op mir.MachineOperand, layout frameLayout) string {
	switch op.Kind {
	case mir.OperandImmediate:
		return fmt.Sprintf("$%d", op.Imm)
	case mir.OperandISAReg:
		base := regText(op)
		if !op.Indirect {
			return base
		}
		if op.Imm == 0 {
			return fmt.Sprintf("(%s)", base)
		}
		return fmt.Sprintf("%d(%s)", op.Imm, base)
	case mir.OperandStackObject:
		return fmt.Sprintf("%d(%%rbp)", layout.offsets[op.Slot])
	case mir.OperandRelocable:
		return fmt.Sprintf("%s(%%rip)", op.Sym)
	default:
		panic(fmt.Sprintf("x64: operand %+v reached asmprinter unallocated", op))
	}
}

func regText(op mir.MachineOperand) string {
	if op.Class == mir.ClassFP {
		return "%" + xmmName(op.Reg)
	}
	return "%" + gpName(gpID(op.Reg), op.Width)
}

// binMnemonic maps a two-operand-form opcode to its AT&T mnemonic, printed
// without a size suffix (the SSE2 float ops always operate on a full
// scalar double).
var binMnemonic = map[mir.MIROp]string{
	OpAddX: "add", OpSubX: "sub", OpAndX: "and", OpOrX: "or", OpXorX: "xor",
	OpShlX: "shl", OpShrX: "shr", OpSarX: "sar",
	OpAddSDX: "addsd", OpSubSDX: "subsd", OpMulSDX: "mulsd", OpDivSDX: "divsd",
	OpCmovneX: "cmovne",
}

var setMnemonic = map[mir.MIROp]string{
	OpSeteX: "sete", OpSetneX: "setne", OpSetlX: "setl", OpSetleX: "setle",
	OpSetgX: "setg", OpSetgeX: "setge",
}

func printInst(sb *strings.Builder, inst *mir.MachineInstruction, layout frameLayout) {
	if c := inst.Comment; c != "" {
		fmt.Fprintf(sb, "\t# %s\n", c)
	}

	switch inst.Op {
	case mir.OpMove:
		printMove(sb, inst, layout)
	case OpNotX:
		fmt.Fprintf(sb, "\tnot %s\n", operandText(inst.Result, layout))
	case OpNegX:
		fmt.Fprintf(sb, "\tneg %s\n", operandText(inst.Result, layout))
	case OpCqtoX:
		sb.WriteString("\tcqto\n")
	case OpImulX:
		// Two-operand imul (reg/mem, reg) cannot take an immediate second
		// operand; that shape arises from lowerGep's offset scale and from
		// lowerGeneric's multiply by a constant right-hand side, so print
		// the three-operand immediate form instead
		// (src == dst, as a plain register-widening multiply-by-constant).
		if inst.Args[1].IsImmediate() {
			dst := operandText(inst.Result, layout)
			fmt.Fprintf(sb, "\timul %s, %s, %s\n", operandText(inst.Args[1], layout), dst, dst)
		} else {
			fmt.Fprintf(sb, "\timul %s, %s\n", operandText(inst.Args[1], layout), operandText(inst.Result, layout))
		}
	case OpIdivX:
		fmt.Fprintf(sb, "\tidiv %s\n", operandText(inst.Args[2], layout))
	case OpCmpX:
		fmt.Fprintf(sb, "\tcmp %s, %s\n", operandText(inst.Args[1], layout), operandText(inst.Args[0], layout))
	case OpTestX:
		fmt.Fprintf(sb, "\ttest %s, %s\n", operandText(inst.Args[1], layout), operandText(inst.Args[0], layout))
	case OpUComiSDX:
		fmt.Fprintf(sb, "\tucomisd %s, %s\n", operandText(inst.Args[1], layout), operandText(inst.Args[0], layout))
	case OpSeteX, OpSetneX, OpSetlX, OpSetleX, OpSetgX, OpSetgeX:
		fmt.Fprintf(sb, "\t%s %s\n", setMnemonic[inst.Op], operandText(inst.Result, layout))
	case OpJmpX:
		fmt.Fprintf(sb, "\tjmp %s\n", inst.Args[0].Sym)
	case OpCondJmpX:
		printCondJmp(sb, inst, layout)
	case OpSwitchX:
		printSwitch(sb, inst, layout)
	case OpRetX:
		printEpilogue(sb, layout)
		sb.WriteString("\tret\n")
	case OpCallX:
		fmt.Fprintf(sb, "\tcall %s\n", inst.Args[0].Sym)
	case OpLeaX:
		fmt.Fprintf(sb, "\tlea %s, %s\n", operandText(inst.Args[0], layout), operandText(inst.Result, layout))
	case OpMovzxX:
		fmt.Fprintf(sb, "\tmovz%s%s %s, %s\n", inst.Args[0].Width.String(), inst.Result.Width.String(),
			operandText(inst.Args[0], layout), operandText(inst.Result, layout))
	case OpMovsxX:
		fmt.Fprintf(sb, "\tmovs%s%s %s, %s\n", inst.Args[0].Width.String(), inst.Result.Width.String(),
			operandText(inst.Args[0], layout), operandText(inst.Result, layout))
	case OpCvttsd2siX:
		fmt.Fprintf(sb, "\tcvttsd2si %s, %s\n", operandText(inst.Args[0], layout), operandText(inst.Result, layout))
	case OpCvtsi2sdX:
		fmt.Fprintf(sb, "\tcvtsi2sd %s, %s\n", operandText(inst.Args[0], layout), operandText(inst.Result, layout))
	case OpPxorZeroX:
		r := operandText(inst.Result, layout)
		fmt.Fprintf(sb, "\tpxor %s, %s\n", r, r)
	default:
		if mnem, ok := binMnemonic[inst.Op]; ok {
			fmt.Fprintf(sb, "\t%s %s, %s\n", mnem, operandText(inst.Args[1], layout), operandText(inst.Result, layout))
			return
		}
		panic(fmt.Sprintf("x64: asmprinter has no rule for opcode %d", inst.Op))
	}
}

// printMove dispatches mir.OpMove to the right mnemonic for the operand
// kinds involved: an XMM source or destination always uses movsd (this
// target's only floating-point width is f64, spec.md 4.8); everything else
// is a plain mov. A move whose destination and source are the same operand
// is skipped rather than printed, since "mov %rax, %rax" does nothing.
func printMove(sb *strings.Builder, inst *mir.MachineInstruction, layout frameLayout) {
	dst, src := inst.Result, inst.Args[0]
	if dst == src {
		return
	}
	dstText, srcText := operandText(dst, layout), operandText(src, layout)
	if dst.Class == mir.ClassFP || src.Class == mir.ClassFP {
		fmt.Fprintf(sb, "\tmovsd %s, %s\n", srcText, dstText)
		return
	}
	fmt.Fprintf(sb, "\tmov %s, %s\n", srcText, dstText)
}

// printCondJmp expands the single blockEdges-friendly OpCondJmpX
// instruction back into its real multi-instruction form: test the
// condition register against itself, jump to the true target if nonzero,
// otherwise fall through to an unconditional jump to the false target.
func printCondJmp(sb *strings.Builder, inst *mir.MachineInstruction, layout frameLayout) {
	cond := operandText(inst.Args[0], layout)
	fmt.Fprintf(sb, "\ttest %s, %s\n", cond, cond)
	fmt.Fprintf(sb, "\tjne %s\n", inst.Args[1].Sym)
	fmt.Fprintf(sb, "\tjmp %s\n", inst.Args[2].Sym)
}

// printSwitch expands OpSwitchX's flattened [val, case0, blk0, ...,
// default] operand list into a linear cmp/je chain ending in a fallback
// jmp to the default block — the same shape a jump-table-free switch
// lowering in compile/codegen/lower_x86.go produces for a small case
// count, which is the only case count falcon's switch statements use.
func printSwitch(sb *strings.Builder, inst *mir.MachineInstruction, layout frameLayout) {
	val := operandText(inst.Args[0], layout)
	rest := inst.Args[1:]
	n := (len(rest) - 1) / 2
	for i := 0; i < n; i++ {
		caseVal := rest[2*i]
		caseBlk := rest[2*i+1]
		fmt.Fprintf(sb, "\tcmp %s, %s\n", operandText(caseVal, layout), val)
		fmt.Fprintf(sb, "\tje %s\n", caseBlk.Sym)
	}
	def := rest[len(rest)-1]
	fmt.Fprintf(sb, "\tjmp %s\n", def.Sym)
}
