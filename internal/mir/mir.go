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

// Package mir is the machine-level IR of spec.md 3.5: a target-opcode
// three-operand instruction set operating on virtual registers, one level
// below internal/ir's SSA form and one level above assembly text. It
// generalizes compile/codegen/lir.go's LIROp/Instruction/IOperand shape (a
// fixed x86 LIR baked directly into the optimizer package) into a form the
// same data structures serve for any target, with target-specific behavior
// supplied through the Target interface rather than compiled in.
package mir

import "github.com/falcon-lang/falconc/internal/ir"

// RegClass partitions virtual and physical registers into allocation
// classes that never compete for the same physical register file
// (general-purpose vs. floating point), mirroring arch_x86.go's GPR/XMM
// register split.
type RegClass int

const (
	ClassGPR RegClass = iota
	ClassFP
)

func (c RegClass) String() string {
	if c == ClassFP {
		return "fp"
	}
	return "gpr"
}

// Width is the storage width of an operand, generalizing
// compile/codegen/lir.go's LIRType (LIRTypeByte/Word/DWord/QWord plus the
// vector widths) to a plain enum; falcon's IR only ever produces i1/i8/i64
// and f64 values (internal/ir/types.go), but the narrower widths are kept
// here since a target's calling convention and legalizer both need to
// reason about sub-word moves (byte compares, truncations).
type Width int

const (
	Width8 Width = iota
	Width16
	Width32
	Width64
)

// Bytes returns the storage size of w.
func (w Width) Bytes() int {
	switch w {
	case Width8:
		return 1
	case Width16:
		return 2
	case Width32:
		return 4
	default:
		return 8
	}
}

func (w Width) String() string {
	switch w {
	case Width8:
		return "b"
	case Width16:
		return "w"
	case Width32:
		return "l"
	default:
		return "q"
	}
}

// OperandKind tags the variant of a MachineOperand, per spec.md 3.5's
// tagged-variant shape: VirtualReg, ISAReg, StackObject, Immediate,
// Relocable, Unused.
type OperandKind int

const (
	OperandUnused OperandKind = iota
	OperandVirtualReg
	OperandISAReg
	OperandStackObject
	OperandImmediate
	OperandRelocable
)

// MachineOperand is one operand (or result slot) of a MachineInstruction.
// It generalizes lir.go's IOperand interface (Register/Imm/Offset/Addr/
// Label/Symbol/Text, five unrelated concrete types satisfying one marker
// interface) into a single struct with a kind tag, so the allocator and
// asm printer can switch on Kind without a type assertion per variant.
type MachineOperand struct {
	Kind  OperandKind
	Class RegClass
	Width Width

	Reg  int // OperandVirtualReg: vreg id. OperandISAReg: target register index.
	Slot int // OperandStackObject: frame slot index.
	Imm  int64
	Sym  string // OperandRelocable: linker symbol name (data, zero storage, or a function).

	// Indirect reinterprets an OperandVirtualReg/OperandISAReg operand as
	// "the value at address [reg + Imm]" rather than the register's own
	// value — the base+displacement addressing mode a Gep/Load/Store
	// lowers a pointer dereference to (spec.md 4.7). Imm is the byte
	// displacement in this mode.
	Indirect bool
}

// Mem reinterprets base (a register-class operand holding an address) as a
// memory reference at that address plus disp bytes, the operand form a
// Load/Store's pointer argument lowers to.
func Mem(base MachineOperand, disp int64, w Width) MachineOperand {
	base.Indirect = true
	base.Imm = disp
	base.Width = w
	return base
}

func VReg(id int, class RegClass, w Width) MachineOperand {
	return MachineOperand{Kind: OperandVirtualReg, Class: class, Width: w, Reg: id}
}

func ISAReg(idx int, class RegClass, w Width) MachineOperand {
	return MachineOperand{Kind: OperandISAReg, Class: class, Width: w, Reg: idx}
}

func StackObject(slot int, w Width) MachineOperand {
	return MachineOperand{Kind: OperandStackObject, Width: w, Slot: slot}
}

func Immediate(v int64, w Width) MachineOperand {
	return MachineOperand{Kind: OperandImmediate, Width: w, Imm: v}
}

func Relocable(sym string, w Width) MachineOperand {
	return MachineOperand{Kind: OperandRelocable, Width: w, Sym: sym}
}

func (o MachineOperand) IsVirtual() bool { return o.Kind == OperandVirtualReg }
func (o MachineOperand) IsPhysical() bool { return o.Kind == OperandISAReg }
func (o MachineOperand) IsStack() bool    { return o.Kind == OperandStackObject }
func (o MachineOperand) IsImmediate() bool { return o.Kind == OperandImmediate }
func (o MachineOperand) IsUnused() bool   { return o.Kind == OperandUnused }

// MIROp is a target opcode. The namespace is owned by whichever Target
// produced the instruction (internal/target/x64 defines its own constants,
// starting at OpTargetBase below) plus a small set of generic opcodes the
// target-independent lowering/legalizing/move-resolution code itself needs
// to emit without going through ISelInfo.
type MIROp int

const (
	// OpMove is a plain register/stack/immediate move. Every target's
	// Move (a mir.Target method) must accept this opcode as the vocabulary
	// phi-resolution (internal/mir/lower.go) and move resolution
	// (internal/regalloc/moveresolve.go) use to request a copy.
	OpMove MIROp = iota
	// OpLoadStack and OpStoreStack name a reload/spill of a vreg from/to a
	// frame slot. Neither lowering nor the register allocator emits them;
	// the allocator's spill code uses the target's Move (OpMove).
	OpLoadStack
	OpStoreStack

	// OpTargetBase is the first opcode value a Target implementation may
	// use for its own instruction set.
	OpTargetBase = 1000
)

// InstFlag marks cross-cutting properties of a MachineInstruction that the
// allocator and asm printer need without switching on Op.
type InstFlag uint32

const (
	FlagTerminator InstFlag = 1 << iota
	FlagCall
	FlagDefinesFlags
	FlagUsesFlags
)

// MachineInstruction is one instruction of spec.md 3.5: an opcode, a result
// operand (OperandUnused if none), and up to three argument operands —
// generalizing lir.go's Instruction{Op, Result, Args, Comment, Id}.
type MachineInstruction struct {
	Id      int
	Op      MIROp
	Result  MachineOperand
	Args    []MachineOperand
	Flags   InstFlag
	Comment string
}

// Operands returns Result (if used) followed by Args, the order the
// allocator and move resolver walk operands in.
func (mi *MachineInstruction) Operands() []MachineOperand {
	if mi.Result.IsUnused() {
		return mi.Args
	}
	return append([]MachineOperand{mi.Result}, mi.Args...)
}

func (mi *MachineInstruction) WithComment(c string) *MachineInstruction {
	mi.Comment = c
	return mi
}

// MIRBlock is one block of a MIRFunction; blocks are ordered in the reverse
// post-order Lower walks the owning ir.Function in (no independent layout
// pass exists).
type MIRBlock struct {
	Id    int
	Name  string
	Insts []*MachineInstruction
}

func (b *MIRBlock) Append(mi *MachineInstruction) { b.Insts = append(b.Insts, mi) }

// MIRFunction owns a virtual-register argument vector and the blocks of
// MachineInstructions lowered from one ir.Function (spec.md 3.5).
type MIRFunction struct {
	Name   string
	Params []MachineOperand

	Blocks []*MIRBlock

	NumVRegs      int
	NumStackSlots int

	// SlotSize records the byte size each NewStackSlot/NewStackSlotSized
	// call reserved, indexed by the slot index it returned — frame layout
	// (internal/target/x64's FrameInfo facet) sums these to size the
	// function's stack frame, since a slot backing an Alloca of an array
	// is wider than the 8-byte slots the allocator spills a vreg to.
	SlotSize []int

	nextVReg   int
	nextInstId int
}

func NewMIRFunction(name string) *MIRFunction {
	return &MIRFunction{Name: name}
}

func (f *MIRFunction) NewBlock(name string) *MIRBlock {
	b := &MIRBlock{Id: len(f.Blocks), Name: name}
	f.Blocks = append(f.Blocks, b)
	return b
}

func (f *MIRFunction) NewVReg(class RegClass, w Width) MachineOperand {
	id := f.nextVReg
	f.nextVReg++
	f.NumVRegs = f.nextVReg
	return VReg(id, class, w)
}

func (f *MIRFunction) NewStackSlot() int {
	return f.NewStackSlotSized(8)
}

// NewStackSlotSized reserves a frame slot of bytes size, for an Alloca
// whose storage is wider than one spilled register (e.g. an array local).
func (f *MIRFunction) NewStackSlotSized(bytes int) int {
	slot := f.NumStackSlots
	f.NumStackSlots++
	f.SlotSize = append(f.SlotSize, bytes)
	return slot
}

// Emit appends a new instruction to b and assigns it the next sequential
// id (program order across the whole function, used by liveness and the
// allocator as the position axis — spec.md 4.9 step 1).
func (f *MIRFunction) Emit(b *MIRBlock, op MIROp, result MachineOperand, args ...MachineOperand) *MachineInstruction {
	mi := &MachineInstruction{Id: f.nextInstId, Op: op, Result: result, Args: args}
	f.nextInstId++
	b.Append(mi)
	return mi
}

// Append assigns mi the next sequential instruction id and appends it to b.
// Used to splice in a pre-built instruction (e.g. one returned by
// Target.Move or Target.TryLower) that was constructed without an id.
func (f *MIRFunction) Append(b *MIRBlock, mi *MachineInstruction) *MachineInstruction {
	mi.Id = f.nextInstId
	f.nextInstId++
	b.Append(mi)
	return mi
}

// AllInstructions returns every instruction of f in block order, the
// linearization spec.md 4.9 step 1 assigns indices over.
func (f *MIRFunction) AllInstructions() []*MachineInstruction {
	var out []*MachineInstruction
	for _, b := range f.Blocks {
		out = append(out, b.Insts...)
	}
	return out
}

// MIRDataStorage is an initialized relocable global (spec.md 3.5); string
// constants and other constant aggregates lower to one of these rather
// than to a runtime allocation call (see SPEC_FULL.md section 4).
type MIRDataStorage struct {
	Name  string
	Bytes []byte
}

// MIRZeroStorage is a zero-initialized relocable global (BSS).
type MIRZeroStorage struct {
	Name string
	Size int
}

// MIRModule owns every relocable global produced for one compilation:
// functions, initialized data, and zero storage (spec.md 3.5).
type MIRModule struct {
	Funcs []*MIRFunction
	Data  []*MIRDataStorage
	Zero  []*MIRZeroStorage
}

func NewMIRModule() *MIRModule { return &MIRModule{} }

func (m *MIRModule) AddFunc(f *MIRFunction) { m.Funcs = append(m.Funcs, f) }

func (m *MIRModule) AddData(name string, bytes []byte) *MIRDataStorage {
	d := &MIRDataStorage{Name: name, Bytes: bytes}
	m.Data = append(m.Data, d)
	return d
}

func (m *MIRModule) AddZero(name string, size int) *MIRZeroStorage {
	z := &MIRZeroStorage{Name: name, Size: size}
	m.Zero = append(m.Zero, z)
	return z
}

// Target is the subset of a target description (spec.md 4.8) that
// target-independent lowering and legalization (lower.go, legalize.go)
// depend on. internal/target.Target is a superset (it adds the
// instruction-naming, frame-layout and assembly-printing facets that only
// the allocator and asm printer need) — any value satisfying the larger
// interface satisfies this one too, so a *x64.Target can be passed
// directly to Lower without this package importing internal/target.
type Target interface {
	// Width reports the MIR operand width an ir.Type lowers to.
	Width(t *ir.Type) Width
	// Class reports which register class a value of type t belongs to.
	Class(t *ir.Type) RegClass

	// ArgOperand returns the operand the calling convention assigns to the
	// idx-th argument of class/width (a register, or a stack slot once the
	// register file for that class is exhausted).
	ArgOperand(idx int, class RegClass, w Width) MachineOperand
	// ReturnOperand returns the operand a function's return value of
	// class/width is produced in.
	ReturnOperand(class RegClass, w Width) MachineOperand
	// ShiftCountOperand returns the single fixed register a variable shift
	// count must reside in (spec.md 4.9 step 5; arch_x86.go's RCX/CL).
	ShiftCountOperand() MachineOperand

	// Move emits a copy from src to dst, used by phi resolution and the
	// register allocator's move resolver — never by instruction selection
	// directly.
	Move(dst, src MachineOperand) *MachineInstruction

	// TryLower gives the target a chance to lower inst with a
	// target-specific instruction sequence (spec.md 4.7's ISel hook,
	// tried before the generic per-opcode-class pattern). ok is false if
	// the target has no special-case pattern for inst; lower.go then
	// falls back to GenericOp.
	TryLower(lc *LowerContext, inst ir.Instruction) (insts []*MachineInstruction, ok bool)

	// GenericOp maps an ir.Opcode to the target opcode implementing the
	// generic two/three-operand pattern lower.go falls back to when
	// TryLower declines. ok is false for opcodes that have no generic
	// mapping (e.g. calls, which TryLower must always handle).
	GenericOp(op ir.Opcode) (MIROp, bool)
}
