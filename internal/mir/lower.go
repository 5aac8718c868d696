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

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/falcon-lang/falconc/internal/ir"
)

// LowerContext carries the per-function state of one Lower call: the value
// and block maps, and the block the walk is currently appending to.
// Target.TryLower implementations use it to allocate vregs and emit
// instructions, the same way internal/ir's Builder gives instruction
// constructors an insertion point.
type LowerContext struct {
	Target Target

	fn  *ir.Function
	mfn *MIRFunction
	cur *MIRBlock

	values map[ir.Value]MachineOperand
	blocks map[*ir.BasicBlock]*MIRBlock

	strConsts []*ir.StringConst
	strNames  map[*ir.StringConst]string
}

func (lc *LowerContext) MIRFunc() *MIRFunction { return lc.mfn }

// CurrentBlock returns the MIRBlock the walk is currently lowering into.
func (lc *LowerContext) CurrentBlock() *MIRBlock { return lc.cur }

// BlockOperand returns the branch-target operand for bb's corresponding
// MIRBlock, a Relocable tagging its label (spec.md 3.5 does not carve out
// a dedicated "block label" operand kind; a local label is just a
// Relocable whose symbol never leaves the function).
func (lc *LowerContext) BlockOperand(bb *ir.BasicBlock) MachineOperand {
	return Relocable(lc.blocks[bb].Name, Width64)
}

// NewVReg allocates a fresh virtual register in the function being lowered.
func (lc *LowerContext) NewVReg(class RegClass, w Width) MachineOperand {
	return lc.mfn.NewVReg(class, w)
}

// Emit builds and appends an instruction at the current insertion point.
func (lc *LowerContext) Emit(op MIROp, result MachineOperand, args ...MachineOperand) *MachineInstruction {
	return lc.mfn.Emit(lc.cur, op, result, args...)
}

// Append splices a pre-built instruction (returned by Target.Move or
// assembled by a TryLower implementation) at the current insertion point,
// assigning it a program-order id.
func (lc *LowerContext) Append(mi *MachineInstruction) *MachineInstruction {
	return lc.mfn.Append(lc.cur, mi)
}

// OperandOf resolves an ir.Value to the MachineOperand it lowers to,
// caching the result for instructions, arguments and phis (whose identity
// must be stable across every reference) while recomputing a fresh operand
// for constants (which carry their value directly, not an identity).
func (lc *LowerContext) OperandOf(v ir.Value) MachineOperand {
	switch c := v.(type) {
	case *ir.IntConst:
		return Immediate(c.Val, lc.Target.Width(c.Type()))
	case *ir.FloatConst:
		// Float immediates are not directly encodable on x64, and nothing
		// (legalize.go included) rewrites them into a rodata load; the
		// operand carries the IEEE-754 bit pattern as a 64-bit immediate.
		return MachineOperand{Kind: OperandImmediate, Width: Width64, Imm: int64(floatBits(c.Val))}
	case *ir.StringConst:
		return Relocable(lc.internString(c), Width64)
	case *ir.NullConst:
		return Immediate(0, Width64)
	case *ir.GlobalVariable:
		return Relocable(c.GlobalName(), Width64)
	case *ir.Function:
		return Relocable(c.GlobalName(), Width64)
	}
	if op, ok := lc.values[v]; ok {
		return op
	}
	panic(errors.Errorf("mir: value %v referenced before it was lowered", v))
}

// internString assigns c a stable rodata symbol name the first time it is
// seen, recording it for LowerModule to materialize as an MIRDataStorage
// once lowering of the whole function is done.
func (lc *LowerContext) internString(c *ir.StringConst) string {
	if name, ok := lc.strNames[c]; ok {
		return name
	}
	name := fmt.Sprintf("%s.str%d", lc.fn.GlobalName(), len(lc.strConsts))
	lc.strNames[c] = name
	lc.strConsts = append(lc.strConsts, c)
	return name
}

// StringConstants returns every distinct string constant referenced while
// lowering this function, in first-use order.
func (lc *LowerContext) StringConstants() []*ir.StringConst { return lc.strConsts }

// SymbolFor returns the rodata symbol name internString assigned c.
func (lc *LowerContext) SymbolFor(c *ir.StringConst) string { return lc.strNames[c] }

func floatBits(f float64) uint64 {
	return math.Float64bits(f)
}

// defineOperand records the MachineOperand a not-yet-seen ir.Value (an
// instruction, phi, or argument) lowers to, for every later OperandOf call
// to find.
func (lc *LowerContext) defineOperand(v ir.Value, op MachineOperand) {
	lc.values[v] = op
}

// Define records the MachineOperand a TryLower implementation has just
// computed as the result of an instruction, for every later OperandOf call
// on that instruction (used as a value by something downstream) to find.
func (lc *LowerContext) Define(v ir.Value, op MachineOperand) {
	lc.defineOperand(v, op)
}

// Lower translates fn into a MIRFunction using tgt for every target-specific
// decision (spec.md 4.7). Blocks and instructions are walked in reverse
// post-order (spec.md 4.9 step 1's linearization, applied here too rather
// than compile/codegen/lower_x86.go's DFS-preds-then-self traversal, so the
// order lowering assigns instruction ids in is the same order the allocator
// later re-derives from the finished MIRFunction).
func Lower(fn *ir.Function, tgt Target) (*MIRFunction, error) {
	mfn, _, err := lowerOne(fn, tgt)
	return mfn, err
}

// LowerModule lowers every defined function of m and collects every global
// variable and interned string constant into one MIRModule (spec.md 3.5).
// Declarations (functions with no body, e.g. extern libc calls a TryLower
// implementation references directly by symbol) are not lowered — they
// have nothing to lower — and are not added as MIRFunctions.
func LowerModule(m *ir.Module, tgt Target) (*MIRModule, error) {
	mm := NewMIRModule()
	for _, g := range m.Globals() {
		switch v := g.(type) {
		case *ir.Function:
			if v.IsDeclaration() {
				continue
			}
			mfn, lc, err := lowerOne(v, tgt)
			if err != nil {
				return nil, err
			}
			mm.AddFunc(mfn)
			for _, sc := range lc.StringConstants() {
				mm.AddData(lc.SymbolFor(sc), sc.Val)
			}
		case *ir.GlobalVariable:
			if v.Initializer == nil {
				mm.AddZero(v.GlobalName(), v.ElemType.Size())
			} else {
				mm.AddData(v.GlobalName(), encodeConstant(v.Initializer))
			}
		}
	}
	return mm, nil
}

// encodeConstant serializes a Constant to its little-endian in-memory
// representation, for a GlobalVariable's static initializer.
func encodeConstant(c ir.Constant) []byte {
	switch v := c.(type) {
	case *ir.IntConst:
		buf := make([]byte, v.Type().Size())
		n := uint64(v.Val)
		for i := range buf {
			buf[i] = byte(n >> (8 * i))
		}
		return buf
	case *ir.FloatConst:
		buf := make([]byte, 8)
		bits := math.Float64bits(v.Val)
		for i := range buf {
			buf[i] = byte(bits >> (8 * i))
		}
		return buf
	case *ir.StringConst:
		return append([]byte(nil), v.Val...)
	case *ir.NullConst:
		return make([]byte, v.Type().Size())
	case *ir.ArrayConst:
		var out []byte
		for _, e := range v.Elems {
			out = append(out, encodeConstant(e)...)
		}
		return out
	case *ir.StructConst:
		var out []byte
		for _, f := range v.Fields {
			out = append(out, encodeConstant(f)...)
		}
		return out
	default:
		panic(errors.Errorf("mir: no static encoding for constant %T", c))
	}
}

func lowerOne(fn *ir.Function, tgt Target) (*MIRFunction, *LowerContext, error) {
	if fn.IsDeclaration() {
		return nil, nil, errors.Errorf("mir: cannot lower declaration %q", fn.GlobalName())
	}
	order := ir.ReversePostOrder(fn)

	mfn := NewMIRFunction(fn.GlobalName())
	lc := &LowerContext{
		Target: tgt,
		fn:     fn,
		mfn:    mfn,
		values:   map[ir.Value]MachineOperand{},
		blocks:   map[*ir.BasicBlock]*MIRBlock{},
		strNames: map[*ir.StringConst]string{},
	}
	for _, bb := range order {
		lc.blocks[bb] = mfn.NewBlock(bb.Name)
	}

	// Phi destinations are materialized before any block body is walked so
	// that a use of a phi's value (from any block, including one textually
	// earlier in RPO across a loop back-edge) always finds an operand.
	for _, bb := range order {
		for _, phi := range bb.Phis() {
			lc.defineOperand(phi, mfn.NewVReg(tgt.Class(phi.Type()), tgt.Width(phi.Type())))
		}
	}

	// Arguments: copy out of the calling convention's incoming registers
	// into fresh vregs at the top of the entry block, so the rest of
	// lowering (and the allocator) only ever sees vregs for values, never
	// ABI registers directly.
	lc.cur = lc.blocks[fn.Entry()]
	for i, param := range fn.Params {
		class := tgt.Class(param.Type())
		w := tgt.Width(param.Type())
		vreg := mfn.NewVReg(class, w)
		mfn.Params = append(mfn.Params, vreg)
		lc.Append(tgt.Move(vreg, tgt.ArgOperand(i, class, w)))
		lc.defineOperand(param, vreg)
	}

	for _, bb := range order {
		if err := lowerBlock(lc, bb); err != nil {
			return nil, nil, err
		}
	}
	return mfn, lc, nil
}

func lowerBlock(lc *LowerContext, bb *ir.BasicBlock) error {
	lc.cur = lc.blocks[bb]
	term := bb.Terminator()

	for _, inst := range bb.Instructions() {
		if _, isPhi := inst.(*ir.Phi); isPhi {
			continue
		}
		if inst == term {
			continue
		}
		if err := lowerInstruction(lc, inst); err != nil {
			return err
		}
	}

	// Phi resolution: for every successor expecting a value from bb, copy
	// it into the phi's vreg here, at the end of the predecessor block
	// (spec.md 4.7) — before the terminator itself is lowered, so the copy
	// precedes the jump/branch in program order.
	for _, succ := range bb.Successors() {
		for _, phi := range succ.Phis() {
			v := phi.IncomingFrom(bb)
			if v == nil {
				continue
			}
			dst := lc.OperandOf(phi)
			src := lc.OperandOf(v)
			if dst == src {
				continue
			}
			lc.Append(lc.Target.Move(dst, src).WithComment("resolve " + phi.Name()))
		}
	}

	if term != nil {
		return lowerInstruction(lc, term)
	}
	return nil
}

// lowerInstruction tries the target's instruction-selection hook first;
// if it declines, falls back to the generic two-operand-form pattern for
// the opcode classes that have one (spec.md 4.7).
func lowerInstruction(lc *LowerContext, inst ir.Instruction) error {
	if insts, ok := lc.Target.TryLower(lc, inst); ok {
		for _, mi := range insts {
			lc.Append(mi)
		}
		return nil
	}
	return lowerGeneric(lc, inst)
}

// lowerGeneric implements the "mov dst, src1; op dst, src2" default pattern
// for plain binary arithmetic/logic, generalizing
// compile/codegen/lower_x86.go's lowerArithmetic Add/Sub/And/Or/Xor case.
// Every opcode a target cannot express this way (shifts, compares, control
// flow, calls, memory, casts) must be fully handled by TryLower.
func lowerGeneric(lc *LowerContext, inst ir.Instruction) error {
	bin, ok := inst.(*ir.BinOp)
	if !ok {
		return errors.Errorf("mir: lowering: opcode %v has no generic pattern and no target override", inst.Opcode())
	}
	op, ok := lc.Target.GenericOp(bin.Opcode())
	if !ok {
		return errors.Errorf("mir: lowering: target has no generic mapping for opcode %v", bin.Opcode())
	}
	dst := lc.NewVReg(lc.Target.Class(bin.Type()), lc.Target.Width(bin.Type()))
	lhs := lc.OperandOf(bin.Lhs())
	rhs := lc.OperandOf(bin.Rhs())
	lc.Append(lc.Target.Move(dst, lhs))
	lc.Emit(op, dst, dst, rhs)
	lc.defineOperand(bin, dst)
	return nil
}
