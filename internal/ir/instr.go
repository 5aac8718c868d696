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

// Opcode tags the concrete kind of an Instruction. The instruction set is
// sealed: every Opcode below has exactly one concrete Go type implementing
// Instruction, and the switch in the printer (internal/irtext) and the
// lowering walk (internal/mir) is exhaustive over this set, per spec.md 3.3.
type Opcode int

const (
	OpAdd Opcode = iota
	OpSub
	OpMul
	OpUDiv
	OpURem
	OpAnd
	OpOr
	OpXor
	OpShl
	OpLShr
	OpAShr
	OpFAdd
	OpFSub
	OpFMul
	OpFDiv

	OpNeg
	OpNot
	OpFNeg

	OpAlloca
	OpLoad
	OpStore
	OpGep

	OpICmp
	OpFCmp

	OpZExt
	OpSExt
	OpTrunc
	OpFPToSI
	OpSIToFP
	OpUIToFP
	OpFPToUI
	OpFPExt
	OpFPTrunc

	OpBr
	OpCondBr
	OpSwitch
	OpRet

	OpPhi
	OpCall
	OpSelect
)

var opcodeNames = map[Opcode]string{
	OpAdd: "add", OpSub: "sub", OpMul: "mul", OpUDiv: "udiv", OpURem: "urem",
	OpAnd: "and", OpOr: "or", OpXor: "xor", OpShl: "shl", OpLShr: "lshr", OpAShr: "ashr",
	OpFAdd: "fadd", OpFSub: "fsub", OpFMul: "fmul", OpFDiv: "fdiv",
	OpNeg: "neg", OpNot: "not", OpFNeg: "fneg",
	OpAlloca: "alloca", OpLoad: "load", OpStore: "store", OpGep: "gep",
	OpICmp: "icmp", OpFCmp: "fcmp",
	OpZExt: "zext", OpSExt: "sext", OpTrunc: "trunc",
	OpFPToSI: "fptosi", OpSIToFP: "sitofp", OpUIToFP: "uitofp", OpFPToUI: "fptoui",
	OpFPExt: "fpext", OpFPTrunc: "fptrunc",
	OpBr: "br", OpCondBr: "br", OpSwitch: "switch", OpRet: "ret",
	OpPhi: "phi", OpCall: "call", OpSelect: "select",
}

func (op Opcode) String() string {
	if n, ok := opcodeNames[op]; ok {
		return n
	}
	return "<bad-opcode>"
}

// Predicate is the comparison kind carried by icmp/fcmp.
type Predicate int

const (
	PredEQ Predicate = iota
	PredNE
	PredLT
	PredLE
	PredGT
	PredGE
)

func (p Predicate) String() string {
	switch p {
	case PredEQ:
		return "eq"
	case PredNE:
		return "ne"
	case PredLT:
		return "lt"
	case PredLE:
		return "le"
	case PredGT:
		return "gt"
	case PredGE:
		return "ge"
	default:
		return "<bad-predicate>"
	}
}

// Instruction is the sealed interface every concrete instruction kind
// implements. isInstruction is unexported so only types in this package can
// satisfy it — the Go realization of spec.md 9's "sealed sum type over
// instruction kinds with a small interface for crosscutting capabilities".
type Instruction interface {
	Value
	Opcode() Opcode
	Block() *BasicBlock
	Name() string
	SetName(string)
	Operands() []Value
	Operand(i int) Value
	NumOperands() int
	SetOperand(i int, v Value)
	isInstruction()
}

type instrBase struct {
	valueBase
	op       Opcode
	block    *BasicBlock
	name     string
	self     Instruction
	operands []Value
	opUses   []*Use
}

func (ib *instrBase) isInstruction() {}
func (ib *instrBase) Opcode() Opcode { return ib.op }
func (ib *instrBase) Block() *BasicBlock { return ib.block }
func (ib *instrBase) Name() string     { return ib.name }
func (ib *instrBase) SetName(n string) { ib.name = n }

func (ib *instrBase) Operands() []Value   { return ib.operands }
func (ib *instrBase) Operand(i int) Value { return ib.operands[i] }
func (ib *instrBase) NumOperands() int    { return len(ib.operands) }

func (ib *instrBase) SetOperand(i int, v Value) {
	removeUse(ib.opUses[i])
	ib.operands[i] = v
	if v != nil {
		ib.opUses[i] = addUse(v, ib.self, i)
	} else {
		ib.opUses[i] = nil
	}
}

func (ib *instrBase) init(self Instruction, op Opcode, ty *Type, id int, operands []Value) {
	ib.self = self
	ib.op = op
	ib.ty = ty
	ib.id = id
	ib.operands = operands
	ib.opUses = make([]*Use, len(operands))
	for i, v := range operands {
		if v != nil {
			ib.opUses[i] = addUse(v, self, i)
		}
	}
}

// appendOperand grows the operand list by one, used by Phi.AddIncoming
// since a phi's arity grows after construction.
func (ib *instrBase) appendOperand(v Value) int {
	idx := len(ib.operands)
	ib.operands = append(ib.operands, v)
	ib.opUses = append(ib.opUses, addUse(v, ib.self, idx))
	return idx
}

// ---------------------------------------------------------------------------
// Binary arithmetic/logic and compare

type BinOp struct {
	instrBase
}

func (b *BinOp) Lhs() Value { return b.operands[0] }
func (b *BinOp) Rhs() Value { return b.operands[1] }

type ICmp struct {
	instrBase
	Pred Predicate
}

func (c *ICmp) Lhs() Value { return c.operands[0] }
func (c *ICmp) Rhs() Value { return c.operands[1] }

type FCmp struct {
	instrBase
	Pred Predicate
}

func (c *FCmp) Lhs() Value { return c.operands[0] }
func (c *FCmp) Rhs() Value { return c.operands[1] }

// ---------------------------------------------------------------------------
// Unary

type UnaryOp struct {
	instrBase
}

func (u *UnaryOp) Operand0() Value { return u.operands[0] }

// ---------------------------------------------------------------------------
// Memory

// Alloca reserves stack storage for one value of Elem, or Count of them if
// Count > 1. Per spec.md 9, every Alloca must appear in its function's
// entry block before the first non-alloca instruction. Neither Alloca nor
// the builder enforces this; Verify (internal/ir/verify.go) checks it.
type Alloca struct {
	instrBase
	Elem  *Type
	Count int
}

type Load struct {
	instrBase
}

func (l *Load) Ptr() Value { return l.operands[0] }

type Store struct {
	instrBase
}

func (s *Store) Val() Value { return s.operands[0] }
func (s *Store) Ptr() Value { return s.operands[1] }

// Gep computes an address offset from Base by Indices (element-access,
// "get element pointer"). ElemType is the type being indexed into at each
// step, mirroring the base pointee type.
type Gep struct {
	instrBase
	ElemType *Type
}

func (g *Gep) Base() Value       { return g.operands[0] }
func (g *Gep) Indices() []Value  { return g.operands[1:] }

// ---------------------------------------------------------------------------
// Cast

type Cast struct {
	instrBase
}

func (c *Cast) Operand0() Value { return c.operands[0] }

// ---------------------------------------------------------------------------
// Control flow

// Br is an unconditional branch to one target block.
type Br struct {
	instrBase
	Target *BasicBlock
}

// CondBr is a conditional branch to one of two target blocks based on a
// boolean (i1) condition.
type CondBr struct {
	instrBase
	True  *BasicBlock
	False *BasicBlock
}

func (c *CondBr) Cond() Value { return c.operands[0] }

// SwitchCase is one value/target pair of a Switch.
type SwitchCase struct {
	Value Value
	Block *BasicBlock
}

type Switch struct {
	instrBase
	Default *BasicBlock
	Cases   []SwitchCase
}

func (s *Switch) Val() Value { return s.operands[0] }

// Ret returns from the current function, optionally with a value (Operands
// is empty for a void return).
type Ret struct {
	instrBase
}

func (r *Ret) HasValue() bool { return len(r.operands) > 0 }
func (r *Ret) Value0() Value {
	if len(r.operands) == 0 {
		return nil
	}
	return r.operands[0]
}

// ---------------------------------------------------------------------------
// Phi

// PhiIncoming is one (value, predecessor-block) pair of a Phi. Per spec.md
// 9, a phi's use list over its incoming values is exactly like any other
// instruction's operand use list; the predecessor block association is
// tracked in parallel since BasicBlock is not itself an SSA-typed operand
// here (the predecessor is implied by CFG position, spec.md 3.3).
type Phi struct {
	instrBase
	Preds []*BasicBlock
}

func (p *Phi) Incoming() []PhiIncoming {
	out := make([]PhiIncoming, len(p.operands))
	for i, v := range p.operands {
		out[i] = PhiIncoming{Value: v, Pred: p.Preds[i]}
	}
	return out
}

type PhiIncoming struct {
	Value Value
	Pred  *BasicBlock
}

// AddIncoming appends one incoming (value, pred) pair, used by the builder
// while sealing a block (spec.md 4.1).
func (p *Phi) AddIncoming(v Value, pred *BasicBlock) {
	p.appendOperand(v)
	p.Preds = append(p.Preds, pred)
}

// IncomingFrom returns the value flowing from pred, or nil if pred is not
// (yet) one of this phi's predecessors.
func (p *Phi) IncomingFrom(pred *BasicBlock) Value {
	for i, pb := range p.Preds {
		if pb == pred {
			return p.operands[i]
		}
	}
	return nil
}

// RemoveIncomingFrom drops the incoming pair associated with pred, used by
// CFG simplification when an edge is removed (spec.md 4.6).
func (p *Phi) RemoveIncomingFrom(pred *BasicBlock) {
	for i, pb := range p.Preds {
		if pb == pred {
			removeUse(p.opUses[i])
			p.operands = append(p.operands[:i], p.operands[i+1:]...)
			p.opUses = append(p.opUses[:i], p.opUses[i+1:]...)
			p.Preds = append(p.Preds[:i], p.Preds[i+1:]...)
			for j := i; j < len(p.opUses); j++ {
				p.opUses[j].slot = j
			}
			return
		}
	}
}

// ---------------------------------------------------------------------------
// Calls, select

// Call has two call-site attributes per spec.md 9's Open Questions
// resolution: NoReturn and Pure. Neither is inferred; callers of the
// builder set them explicitly.
type Call struct {
	instrBase
	Callee   *Function
	NoReturn bool
	Pure     bool
}

func (c *Call) Args() []Value { return c.operands }

type Select struct {
	instrBase
}

func (s *Select) Cond() Value { return s.operands[0] }
func (s *Select) True() Value  { return s.operands[1] }
func (s *Select) False() Value { return s.operands[2] }
