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

import "github.com/pkg/errors"

// Builder exposes an insertion point (a block and a position within it) and
// one constructor per opcode, per spec.md 4.1. It is the generalization of
// compile/ssa/graph.go's GraphBuilder.current-block tracking to the full
// IR instruction set.
type Builder struct {
	Ctx *Context

	block *BasicBlock
	pos   int // insertion index within block.insts; len(insts) means "append"
}

func NewBuilder(ctx *Context) *Builder {
	return &Builder{Ctx: ctx}
}

// SetInsertPoint moves the builder to insert before the instruction at
// index pos of block (pos == block.Len() means "at the end").
func (b *Builder) SetInsertPoint(block *BasicBlock, pos int) {
	b.block = block
	b.pos = pos
}

// SetInsertAtEnd moves the builder to append at the end of block.
func (b *Builder) SetInsertAtEnd(block *BasicBlock) {
	b.SetInsertPoint(block, block.Len())
}

func (b *Builder) InsertBlock() *BasicBlock { return b.block }

// CreateBlock attaches a new, empty basic block to fn. Blocks are
// positional: they are appended to fn.Blocks in creation order, which is
// also program order absent an explicit move.
func (b *Builder) CreateBlock(fn *Function, name string) *BasicBlock {
	bb := &BasicBlock{Name: name, Fn: fn}
	bb.ty = b.Ctx.LabelType()
	bb.id = fn.allocBlockId()
	fn.Blocks = append(fn.Blocks, bb)
	return bb
}

// insert splices inst at the current insertion point and advances past it.
// It refuses to insert after a terminator unless the current position is
// exactly at the terminator's own slot (i.e. SetInsertPoint was pointed at
// it explicitly) or the block has no terminator yet,
// matching spec.md 4.1's "refuses to insert after a terminator unless
// explicitly splitting".
func (b *Builder) insert(inst Instruction) Instruction {
	if b.block == nil {
		panic("ir: builder has no insertion point set")
	}
	if term := b.block.Terminator(); term != nil && b.pos > b.block.IndexOf(term) {
		panic("ir: cannot insert after a block's terminator")
	}
	b.block.insertAt(b.pos, inst)
	setInstBlock(inst, b.block)
	b.pos++
	return inst
}

// setInstBlock is the only place instrBase.block is assigned outside
// construction, since instrBase does not expose a public setter (callers
// must always go through the builder or split()).
func setInstBlock(inst Instruction, block *BasicBlock) {
	switch v := inst.(type) {
	case *BinOp:
		v.block = block
	case *UnaryOp:
		v.block = block
	case *ICmp:
		v.block = block
	case *FCmp:
		v.block = block
	case *Alloca:
		v.block = block
	case *Load:
		v.block = block
	case *Store:
		v.block = block
	case *Gep:
		v.block = block
	case *Cast:
		v.block = block
	case *Br:
		v.block = block
	case *CondBr:
		v.block = block
	case *Switch:
		v.block = block
	case *Ret:
		v.block = block
	case *Phi:
		v.block = block
	case *Call:
		v.block = block
	case *Select:
		v.block = block
	default:
		panic("ir: unknown instruction kind")
	}
}

func (b *Builder) nextId() int {
	return b.block.Fn.allocValueId()
}

func (b *Builder) CreateBinOp(op Opcode, lhs, rhs Value, name string) *BinOp {
	v := &BinOp{}
	v.init(v, op, lhs.Type(), b.nextId(), []Value{lhs, rhs})
	v.name = name
	b.insert(v)
	return v
}

func (b *Builder) CreateUnaryOp(op Opcode, x Value, name string) *UnaryOp {
	v := &UnaryOp{}
	v.init(v, op, x.Type(), b.nextId(), []Value{x})
	v.name = name
	b.insert(v)
	return v
}

func (b *Builder) CreateICmp(pred Predicate, lhs, rhs Value, name string) *ICmp {
	v := &ICmp{Pred: pred}
	v.init(v, OpICmp, b.Ctx.BoolType(), b.nextId(), []Value{lhs, rhs})
	v.name = name
	b.insert(v)
	return v
}

func (b *Builder) CreateFCmp(pred Predicate, lhs, rhs Value, name string) *FCmp {
	v := &FCmp{Pred: pred}
	v.init(v, OpFCmp, b.Ctx.BoolType(), b.nextId(), []Value{lhs, rhs})
	v.name = name
	b.insert(v)
	return v
}

// CreateAlloca must be called while the insertion point is at the entry
// block, before the first non-alloca instruction (spec.md 9's hard
// invariant). The builder does not enforce this mechanically — callers
// (typically the IR generator, internal/irgen) are expected to allocate all
// locals up front; internal/ir/verify.go checks it after the fact.
func (b *Builder) CreateAlloca(elem *Type, count int, name string) *Alloca {
	v := &Alloca{Elem: elem, Count: count}
	v.init(v, OpAlloca, b.Ctx.PtrType(), b.nextId(), nil)
	v.name = name
	b.insert(v)
	return v
}

func (b *Builder) CreateLoad(ty *Type, ptr Value, name string) *Load {
	v := &Load{}
	v.init(v, OpLoad, ty, b.nextId(), []Value{ptr})
	v.name = name
	b.insert(v)
	return v
}

func (b *Builder) CreateStore(val, ptr Value) *Store {
	v := &Store{}
	v.init(v, OpStore, b.Ctx.VoidType(), b.nextId(), []Value{val, ptr})
	b.insert(v)
	return v
}

func (b *Builder) CreateGep(elemType *Type, base Value, indices []Value, name string) *Gep {
	operands := append([]Value{base}, indices...)
	v := &Gep{ElemType: elemType}
	v.init(v, OpGep, b.Ctx.PtrType(), b.nextId(), operands)
	v.name = name
	b.insert(v)
	return v
}

func (b *Builder) CreateCast(op Opcode, x Value, to *Type, name string) *Cast {
	v := &Cast{}
	v.init(v, op, to, b.nextId(), []Value{x})
	v.name = name
	b.insert(v)
	return v
}

func (b *Builder) CreateBr(target *BasicBlock) *Br {
	v := &Br{Target: target}
	v.init(v, OpBr, b.Ctx.VoidType(), b.nextId(), nil)
	b.insert(v)
	return v
}

func (b *Builder) CreateCondBr(cond Value, t, f *BasicBlock) *CondBr {
	v := &CondBr{True: t, False: f}
	v.init(v, OpCondBr, b.Ctx.VoidType(), b.nextId(), []Value{cond})
	b.insert(v)
	return v
}

func (b *Builder) CreateSwitch(val Value, def *BasicBlock, cases []SwitchCase) *Switch {
	v := &Switch{Default: def, Cases: cases}
	v.init(v, OpSwitch, b.Ctx.VoidType(), b.nextId(), []Value{val})
	b.insert(v)
	return v
}

func (b *Builder) CreateRet(val Value) *Ret {
	v := &Ret{}
	var operands []Value
	if val != nil {
		operands = []Value{val}
	}
	v.init(v, OpRet, b.Ctx.VoidType(), b.nextId(), operands)
	b.insert(v)
	return v
}

// CreatePhi creates an empty phi; incoming pairs are added afterwards with
// Phi.AddIncoming once every predecessor is finalized (spec.md 4.1's
// constraint on phi construction order).
func (b *Builder) CreatePhi(ty *Type, name string) *Phi {
	v := &Phi{}
	v.init(v, OpPhi, ty, b.nextId(), nil)
	v.name = name
	// Phis must precede all non-phi instructions in the block (IR2); insert
	// at the front rather than at the builder's current position.
	idx := 0
	for idx < len(b.block.insts) {
		if _, ok := b.block.insts[idx].(*Phi); !ok {
			break
		}
		idx++
	}
	savedPos := b.pos
	b.pos = idx
	b.insert(v)
	if savedPos >= idx {
		b.pos = savedPos + 1
	} else {
		b.pos = savedPos
	}
	return v
}

func (b *Builder) CreateCall(callee *Function, args []Value, name string) *Call {
	v := &Call{Callee: callee}
	v.init(v, OpCall, callee.Ret, b.nextId(), append([]Value(nil), args...))
	v.name = name
	b.insert(v)
	return v
}

func (b *Builder) CreateSelect(cond, t, f Value, name string) *Select {
	v := &Select{}
	v.init(v, OpSelect, t.Type(), b.nextId(), []Value{cond, t, f})
	v.name = name
	b.insert(v)
	return v
}

// Split creates a successor block starting at atInstruction, inherits the
// original block's terminator, and leaves the original block without a
// terminator — the caller must supply one (spec.md 4.1). Used by the
// function inliner (internal/pass/inline.go) to carve a call site in two.
func (b *Builder) Split(block *BasicBlock, atInstruction Instruction) (*BasicBlock, error) {
	idx := block.IndexOf(atInstruction)
	if idx < 0 {
		return nil, errors.New("ir: split point not found in block")
	}
	tail := &BasicBlock{Name: block.Name + ".split", Fn: block.Fn}
	tail.ty = b.Ctx.LabelType()
	tail.id = block.Fn.allocBlockId()

	tail.insts = append(tail.insts, block.insts[idx:]...)
	block.insts = block.insts[:idx]
	for _, inst := range tail.insts {
		setInstBlock(inst, tail)
	}

	// Insert tail immediately after block in function order.
	fn := block.Fn
	for i, bb := range fn.Blocks {
		if bb == block {
			fn.Blocks = append(fn.Blocks, nil)
			copy(fn.Blocks[i+2:], fn.Blocks[i+1:])
			fn.Blocks[i+1] = tail
			break
		}
	}
	return tail, nil
}

// Clone produces a detached instruction with fresh identity and identical
// operands (spec.md 4.1). The clone is not inserted into any block; the
// caller inserts it via the builder. Operand values referring to blocks of
// the original function are left as-is — internal/pass/inline.go remaps
// them through its value map after cloning.
func (b *Builder) Clone(inst Instruction, fn *Function) Instruction {
	return cloneInstruction(inst, fn.allocValueId())
}

// MergeBlocks appends src's remaining instructions to the end of dest and
// detaches src from its function, per spec.md 4.6's "fold b into p"
// rewrite. The caller is responsible for first erasing dest's bridging
// terminator (the unconditional br src it is folding away) and resolving
// any phis in src (a single-predecessor phi is just its one incoming
// value — replace its uses and erase it before merging).
func (b *Builder) MergeBlocks(dest, src *BasicBlock) {
	for _, inst := range src.insts {
		setInstBlock(inst, dest)
	}
	dest.insts = append(dest.insts, src.insts...)
	src.insts = nil
	if fn := src.Fn; fn != nil {
		fn.RemoveBlock(src)
	}
	src.Fn = nil
}

// Insert splices a detached instruction (typically the result of Clone) at
// the current insertion point, exactly as the Create* constructors do. It
// is the hook internal/pass/inline.go uses to place cloned callee
// instructions into the caller.
func (b *Builder) Insert(inst Instruction) Instruction {
	return b.insert(inst)
}
