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

// buildCallerCallee builds:
//
//	define i64 @callee(i64) { entry: ret add(%0, 1) }
//	define i64 @caller(i64) { entry: %r = call @callee(%0); ret %r }
func buildCallerCallee(t *testing.T) (*ir.Module, *ir.Function, *ir.Function) {
	ctx := ir.NewContext()
	i64 := ctx.Int64Type()
	m := ir.NewModule(ctx)

	callee, err := m.DeclareFunction("callee", i64, []*ir.Type{i64}, ir.External)
	require.NoError(t, err)
	b := ir.NewBuilder(ctx)
	entry := b.CreateBlock(callee, "entry")
	b.SetInsertAtEnd(entry)
	sum := b.CreateBinOp(ir.OpAdd, callee.Params[0], ctx.ConstInt(i64, 1), "sum")
	b.CreateRet(sum)

	caller, err := m.DeclareFunction("caller", i64, []*ir.Type{i64}, ir.External)
	require.NoError(t, err)
	centry := b.CreateBlock(caller, "entry")
	b.SetInsertAtEnd(centry)
	call := b.CreateCall(callee, []ir.Value{caller.Params[0]}, "r")
	b.CreateRet(call)

	return m, callee, caller
}

func TestInlinePassInlinesSingleReturnCallee(t *testing.T) {
	m, callee, caller := buildCallerCallee(t)
	p := pass.NewInlinePass()
	am := pass.NewAnalysisManager()

	changed, err := p.RunOnFunction(caller, am)
	require.NoError(t, err)
	require.True(t, changed)

	require.Greater(t, len(caller.Blocks), 1, "inlining must splice in the callee's blocks")
	for _, b := range caller.Blocks {
		for _, inst := range b.Instructions() {
			_, isCall := inst.(*ir.Call)
			require.False(t, isCall, "no call instruction should remain after inlining the only call site")
		}
	}
	_ = m
	_ = callee
}

func TestInlinePassSkipsRecursiveCall(t *testing.T) {
	ctx := ir.NewContext()
	i64 := ctx.Int64Type()
	m := ir.NewModule(ctx)
	fn, err := m.DeclareFunction("rec", i64, []*ir.Type{i64}, ir.External)
	require.NoError(t, err)
	b := ir.NewBuilder(ctx)
	entry := b.CreateBlock(fn, "entry")
	b.SetInsertAtEnd(entry)
	call := b.CreateCall(fn, []ir.Value{fn.Params[0]}, "r")
	b.CreateRet(call)

	p := pass.NewInlinePass()
	am := pass.NewAnalysisManager()
	changed, err := p.RunOnFunction(fn, am)
	require.NoError(t, err)
	require.False(t, changed, "a function must never inline a call to itself")
}

func TestInlinePassSkipsCalleeOverBlockThreshold(t *testing.T) {
	ctx := ir.NewContext()
	i64 := ctx.Int64Type()
	m := ir.NewModule(ctx)

	callee, err := m.DeclareFunction("big", i64, nil, ir.External)
	require.NoError(t, err)
	b := ir.NewBuilder(ctx)
	var last *ir.BasicBlock
	for i := 0; i < 6; i++ {
		bb := b.CreateBlock(callee, "b")
		if last != nil {
			b.SetInsertAtEnd(last)
			b.CreateBr(bb)
		}
		last = bb
	}
	b.SetInsertAtEnd(last)
	b.CreateRet(ctx.ConstInt(i64, 0))

	caller, err := m.DeclareFunction("caller", i64, nil, ir.External)
	require.NoError(t, err)
	centry := b.CreateBlock(caller, "entry")
	b.SetInsertAtEnd(centry)
	call := b.CreateCall(callee, nil, "r")
	b.CreateRet(call)

	p := &pass.InlinePass{MaxBlocks: 5}
	am := pass.NewAnalysisManager()
	changed, err := p.RunOnFunction(caller, am)
	require.NoError(t, err)
	require.False(t, changed, "a callee with more blocks than MaxBlocks must be refused")
}
