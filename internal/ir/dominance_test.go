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

// buildDiamond builds:
//
//	entry -> [then, els] -> merge
//
// a classic diamond CFG, to exercise dominance and reverse postorder.
func buildDiamond(ctx *Context) (*Function, *BasicBlock, *BasicBlock, *BasicBlock, *BasicBlock) {
	i64 := ctx.Int64Type()
	fn := &Function{Ret: i64}
	fn.Name = "diamond"

	b := NewBuilder(ctx)
	entry := b.CreateBlock(fn, "entry")
	then := b.CreateBlock(fn, "then")
	els := b.CreateBlock(fn, "else")
	merge := b.CreateBlock(fn, "merge")

	b.SetInsertAtEnd(entry)
	cond := ctx.ConstBool(true)
	b.CreateCondBr(cond, then, els)

	b.SetInsertAtEnd(then)
	b.CreateBr(merge)

	b.SetInsertAtEnd(els)
	b.CreateBr(merge)

	b.SetInsertAtEnd(merge)
	phi := b.CreatePhi(i64, "p")
	phi.AddIncoming(ctx.ConstInt(i64, 1), then)
	phi.AddIncoming(ctx.ConstInt(i64, 2), els)
	b.CreateRet(phi)

	return fn, entry, then, els, merge
}

func TestDomTreeDiamond(t *testing.T) {
	ctx := NewContext()
	fn, entry, then, els, merge := buildDiamond(ctx)
	dt := BuildDomTree(fn)

	require.True(t, dt.Dominates(entry, merge))
	require.True(t, dt.StrictlyDominates(entry, merge))
	require.False(t, dt.Dominates(then, merge))
	require.False(t, dt.Dominates(els, merge))
	require.True(t, dt.Dominates(entry, then))
	require.True(t, dt.Dominates(entry, els))
	require.False(t, dt.StrictlyDominates(merge, merge))
	require.True(t, dt.Dominates(merge, merge))
}

func TestReversePostOrderDiamond(t *testing.T) {
	ctx := NewContext()
	fn, entry, _, _, merge := buildDiamond(ctx)
	order := ReversePostOrder(fn)

	require.Equal(t, 4, len(order))
	require.Equal(t, entry, order[0])
	require.Equal(t, merge, order[len(order)-1])
}

func TestVerifyDiamondWithPhi(t *testing.T) {
	ctx := NewContext()
	fn, _, _, _, _ := buildDiamond(ctx)
	require.NoError(t, Verify(fn))
}

func TestVerifyRejectsUseNotDominatedByDef(t *testing.T) {
	ctx := NewContext()
	i64 := ctx.Int64Type()
	fn := &Function{Ret: i64}
	fn.Name = "baddom"

	b := NewBuilder(ctx)
	entry := b.CreateBlock(fn, "entry")
	a := b.CreateBlock(fn, "a")
	c := b.CreateBlock(fn, "c")

	b.SetInsertAtEnd(entry)
	b.CreateCondBr(ctx.ConstBool(true), a, c)

	b.SetInsertAtEnd(a)
	v := b.CreateBinOp(OpAdd, ctx.ConstInt(i64, 1), ctx.ConstInt(i64, 2), "v")
	b.CreateBr(c)

	// c uses v even though v is only defined on one of its predecessor paths
	// (c is not dominated by a), so Verify must reject it.
	b.SetInsertAtEnd(c)
	b.CreateRet(v)

	require.Error(t, Verify(fn))
}

func TestVerifyRejectsAllocaOutsideEntry(t *testing.T) {
	ctx := NewContext()
	i64 := ctx.Int64Type()
	fn := &Function{Ret: ctx.VoidType()}
	fn.Name = "badalloca"

	b := NewBuilder(ctx)
	entry := b.CreateBlock(fn, "entry")
	next := b.CreateBlock(fn, "next")

	b.SetInsertAtEnd(entry)
	b.CreateBr(next)

	b.SetInsertAtEnd(next)
	b.CreateAlloca(i64, 1, "late")
	b.CreateRet(nil)

	require.Error(t, Verify(fn))
}
