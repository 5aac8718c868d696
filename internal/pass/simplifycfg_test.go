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
package pass_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/falcon-lang/falconc/internal/ir"
	"github.com/falcon-lang/falconc/internal/pass"
)

func runSimplifyCFG(t *testing.T, fn *ir.Function) bool {
	p := pass.SimplifyCFGPass{}
	am := pass.NewAnalysisManager()
	changed, err := p.RunOnFunction(fn, am)
	require.NoError(t, err)
	return changed
}

func TestSimplifyCFGFoldsConstantCondBr(t *testing.T) {
	ctx := ir.NewContext()
	i64 := ctx.Int64Type()
	m := ir.NewModule(ctx)
	fn, err := m.DeclareFunction("f", i64, nil, ir.External)
	require.NoError(t, err)
	b := ir.NewBuilder(ctx)
	entry := b.CreateBlock(fn, "entry")
	then := b.CreateBlock(fn, "then")
	els := b.CreateBlock(fn, "els")

	b.SetInsertAtEnd(entry)
	b.CreateCondBr(ctx.ConstBool(true), then, els)

	b.SetInsertAtEnd(then)
	b.CreateRet(ctx.ConstInt(i64, 1))

	b.SetInsertAtEnd(els)
	b.CreateRet(ctx.ConstInt(i64, 2))

	require.True(t, runSimplifyCFG(t, fn))

	// The true condition folds to "br then"; els loses its only predecessor
	// and is removed, and then, now entry's sole successor, merges into it.
	require.Len(t, fn.Blocks, 1)
	ret, ok := entry.Terminator().(*ir.Ret)
	require.True(t, ok, "a true condition must fold to the true arm, which then merges into entry")
	require.Equal(t, ctx.ConstInt(i64, 1), ret.Value0())
}

func TestSimplifyCFGBypassesEmptyBlock(t *testing.T) {
	ctx := ir.NewContext()
	i64 := ctx.Int64Type()
	m := ir.NewModule(ctx)
	fn, err := m.DeclareFunction("f", i64, nil, ir.External)
	require.NoError(t, err)
	b := ir.NewBuilder(ctx)
	entry := b.CreateBlock(fn, "entry")
	mid := b.CreateBlock(fn, "mid")
	exit := b.CreateBlock(fn, "exit")

	b.SetInsertAtEnd(entry)
	b.CreateBr(mid)

	b.SetInsertAtEnd(mid)
	b.CreateBr(exit)

	b.SetInsertAtEnd(exit)
	b.CreateRet(ctx.ConstInt(i64, 0))

	require.True(t, runSimplifyCFG(t, fn))

	// mid is bypassed (entry branches straight to exit), and exit, now
	// entry's sole successor, then merges into it.
	require.Nil(t, mid.Fn, "mid must be erased once bypassed")
	_, ok := entry.Terminator().(*ir.Ret)
	require.True(t, ok)
	require.Len(t, fn.Blocks, 1, "entry must end in exit's ret once mid is bypassed")
}

func TestSimplifyCFGMergesSinglePredSingleSucc(t *testing.T) {
	ctx := ir.NewContext()
	i64 := ctx.Int64Type()
	m := ir.NewModule(ctx)
	fn, err := m.DeclareFunction("f", i64, nil, ir.External)
	require.NoError(t, err)
	b := ir.NewBuilder(ctx)
	entry := b.CreateBlock(fn, "entry")
	next := b.CreateBlock(fn, "next")

	b.SetInsertAtEnd(entry)
	b.CreateBr(next)

	b.SetInsertAtEnd(next)
	b.CreateRet(ctx.ConstInt(i64, 0))

	require.True(t, runSimplifyCFG(t, fn))
	require.Len(t, fn.Blocks, 1, "entry and its sole successor must merge into one block")
}

func TestSimplifyCFGLeavesIrreducibleDiamondAlone(t *testing.T) {
	// diamondFunc's arms hold nothing but "br join", which the empty-block
	// rewrite bypasses; here each arm computes the value join's phi selects,
	// so no rewrite applies.
	ctx := ir.NewContext()
	i64 := ctx.Int64Type()
	m := ir.NewModule(ctx)
	fn, err := m.DeclareFunction("f", i64, []*ir.Type{i64}, ir.External)
	require.NoError(t, err)
	b := ir.NewBuilder(ctx)
	entry := b.CreateBlock(fn, "entry")
	then := b.CreateBlock(fn, "then")
	els := b.CreateBlock(fn, "els")
	join := b.CreateBlock(fn, "join")

	b.SetInsertAtEnd(entry)
	cmp := b.CreateICmp(ir.PredLT, fn.Params[0], ctx.ConstInt(i64, 0), "cmp")
	b.CreateCondBr(cmp, then, els)

	b.SetInsertAtEnd(then)
	neg := b.CreateBinOp(ir.OpSub, ctx.ConstInt(i64, 0), fn.Params[0], "neg")
	b.CreateBr(join)

	b.SetInsertAtEnd(els)
	inc := b.CreateBinOp(ir.OpAdd, fn.Params[0], ctx.ConstInt(i64, 1), "inc")
	b.CreateBr(join)

	b.SetInsertAtEnd(join)
	phi := b.CreatePhi(i64, "r")
	phi.AddIncoming(neg, then)
	phi.AddIncoming(inc, els)
	b.CreateRet(phi)

	require.False(t, runSimplifyCFG(t, fn), "a diamond with a real join has nothing to simplify")
	require.Len(t, fn.Blocks, 4)
}
