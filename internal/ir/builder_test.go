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

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// buildAdd builds:
//
//	func add(a, b i64) i64 { entry: r = a + b; ret r }
func buildAdd(ctx *Context) *Function {
	i64 := ctx.Int64Type()
	fn := &Function{}
	fn.Name = "add"
	fn.Linkage = External
	fn.Ret = i64
	fn.Params = []*Argument{
		{Name: "a", Index: 0, Fn: fn},
		{Name: "b", Index: 1, Fn: fn},
	}
	for _, p := range fn.Params {
		p.ty = i64
	}

	b := NewBuilder(ctx)
	entry := b.CreateBlock(fn, "entry")
	b.SetInsertAtEnd(entry)
	sum := b.CreateBinOp(OpAdd, fn.Params[0], fn.Params[1], "sum")
	b.CreateRet(sum)
	return fn
}

func TestBuilderBuildsVerifiableFunction(t *testing.T) {
	ctx := NewContext()
	fn := buildAdd(ctx)
	require.NoError(t, Verify(fn))
	require.Equal(t, 1, len(fn.Blocks))
	require.Equal(t, 2, fn.Entry().Len())
}

func TestUseGraphTracksUsers(t *testing.T) {
	ctx := NewContext()
	fn := buildAdd(ctx)
	a := fn.Params[0]
	require.Equal(t, 1, NumUses(a))
	uses := Uses(a)
	require.Equal(t, fn.Entry().insts[0], uses[0].User())
	require.Equal(t, 0, uses[0].Slot())
}

func TestReplaceAllUsesWith(t *testing.T) {
	ctx := NewContext()
	fn := buildAdd(ctx)
	sum := fn.Entry().insts[0].(*BinOp)
	zero := ctx.ConstInt(ctx.Int64Type(), 0)

	ReplaceAllUsesWith(sum, zero)
	require.Equal(t, 0, NumUses(sum))
	ret := fn.Entry().insts[1].(*Ret)
	require.Equal(t, Value(zero), ret.Operand(0))
	require.Equal(t, 1, NumUses(zero))
}

func TestEraseInstructionRequiresNoUses(t *testing.T) {
	ctx := NewContext()
	fn := buildAdd(ctx)
	sum := fn.Entry().insts[0].(*BinOp)

	require.Panics(t, func() { EraseInstruction(sum) })

	ReplaceAllUsesWith(sum, ctx.ConstInt(ctx.Int64Type(), 0))
	// sum's only user (ret) no longer references it; safe to erase now, but
	// ret itself still references something so we only tear down sum.
	require.NotPanics(t, func() { EraseInstruction(sum) })
	require.Equal(t, 1, fn.Entry().Len())
}

func TestBuilderSplit(t *testing.T) {
	ctx := NewContext()
	i64 := ctx.Int64Type()
	fn := &Function{Ret: ctx.VoidType()}
	fn.Name = "splitme"

	b := NewBuilder(ctx)
	entry := b.CreateBlock(fn, "entry")
	b.SetInsertAtEnd(entry)
	one := ctx.ConstInt(i64, 1)
	alloca := b.CreateAlloca(i64, 1, "slot")
	store := b.CreateStore(one, alloca)
	b.CreateRet(nil)

	tail, err := b.Split(entry, store)
	require.NoError(t, err)
	require.Equal(t, 1, entry.Len())
	require.Equal(t, entry.insts[0], alloca)
	require.Equal(t, 2, tail.Len())
	require.Equal(t, tail, store.Block())

	b.SetInsertAtEnd(entry)
	b.CreateBr(tail)
	require.NoError(t, Verify(fn))
}

func TestCreatePhiKeepsPhisLeading(t *testing.T) {
	ctx := NewContext()
	i64 := ctx.Int64Type()
	fn := &Function{Ret: i64}
	fn.Name = "phifn"

	b := NewBuilder(ctx)
	entry := b.CreateBlock(fn, "entry")
	merge := b.CreateBlock(fn, "merge")

	b.SetInsertAtEnd(entry)
	b.CreateBr(merge)

	b.SetInsertAtEnd(merge)
	phi := b.CreatePhi(i64, "p")
	phi.AddIncoming(ctx.ConstInt(i64, 7), entry)
	b.CreateRet(phi)

	// A second phi created afterward must still land before the Ret.
	b.SetInsertPoint(merge, 0)
	phi2 := b.CreatePhi(i64, "q")
	phi2.AddIncoming(ctx.ConstInt(i64, 9), entry)

	require.Equal(t, 2, len(merge.Phis()))
	require.Equal(t, phi, merge.insts[0])
	require.Equal(t, phi2, merge.insts[1])
	_, isRet := merge.insts[2].(*Ret)
	require.True(t, isRet)
}
