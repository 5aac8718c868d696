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

// Linkage controls whether a GlobalValue is visible outside its module.
type Linkage int

const (
	External Linkage = iota
	Internal
)

func (l Linkage) String() string {
	if l == Internal {
		return "internal"
	}
	return "external"
}

// GlobalValue is implemented by GlobalVariable and Function: named,
// module-unique (IR5), module-owned (IR6) values.
type GlobalValue interface {
	Value
	GlobalName() string
	GlobalLinkage() Linkage
	isGlobal()
}

type globalBase struct {
	valueBase
	Name    string
	Linkage Linkage
}

func (g *globalBase) GlobalName() string      { return g.Name }
func (g *globalBase) GlobalLinkage() Linkage  { return g.Linkage }
func (g *globalBase) isGlobal()               {}

// GlobalVariable is a module-level storage location with an optional
// constant initializer (spec.md 3.2).
type GlobalVariable struct {
	globalBase
	ElemType    *Type
	Initializer Constant // nil for an uninitialized (BSS) global
}

// Argument is the i-th formal parameter of a Function; its type is fixed at
// function creation (spec.md 3.2).
type Argument struct {
	valueBase
	Name  string
	Index int
	Fn    *Function
}

// Function is a GlobalValue whose body, if any, is an ordered list of
// BasicBlocks. A Function with no blocks is a declaration (spec.md 3.2,
// 4.5's inliner refusal condition 1).
type Function struct {
	globalBase
	Ctx    *Context
	Params []*Argument
	Ret    *Type

	Blocks []*BasicBlock

	nextValueId int
	nextBlockId int
}

func (f *Function) FuncType(ctx *Context) *Type {
	ptypes := make([]*Type, len(f.Params))
	for i, p := range f.Params {
		ptypes[i] = p.Type()
	}
	return ctx.FunctionType(f.Ret, ptypes)
}

func (f *Function) IsDeclaration() bool { return len(f.Blocks) == 0 }

func (f *Function) Entry() *BasicBlock {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// allocValueId and allocBlockId hand out per-function monotonically
// increasing identities, mirroring compile/ssa/hir.go's
// globalValueId/globalBlockId counters on Func.
func (f *Function) allocValueId() int {
	id := f.nextValueId
	f.nextValueId++
	return id
}

func (f *Function) allocBlockId() int {
	id := f.nextBlockId
	f.nextBlockId++
	return id
}

// RemoveBlock detaches block from the function's block list. Per IR6,
// callers must first detach the block's instructions (handled by
// erase.go's EraseBlock).
func (f *Function) RemoveBlock(block *BasicBlock) {
	for i, b := range f.Blocks {
		if b == block {
			f.Blocks = append(f.Blocks[:i], f.Blocks[i+1:]...)
			return
		}
	}
}
