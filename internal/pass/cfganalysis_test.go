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

// diamondFunc builds entry -> {then, els} -> join, the classic diamond.
func diamondFunc(t *testing.T) (*ir.Function, *ir.BasicBlock, *ir.BasicBlock, *ir.BasicBlock, *ir.BasicBlock) {
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
	b.CreateBr(join)

	b.SetInsertAtEnd(els)
	b.CreateBr(join)

	b.SetInsertAtEnd(join)
	b.CreateRet(ctx.ConstInt(i64, 0))

	return fn, entry, then, els, join
}

func TestCFGAnalysisComputesPredsAndSuccs(t *testing.T) {
	fn, entry, then, els, join := diamondFunc(t)

	v, err := pass.CFGAnalysis{}.Run(fn)
	require.NoError(t, err)
	info := v.(*pass.CFGInfo)

	require.ElementsMatch(t, []*ir.BasicBlock{then, els}, info.Succs[entry])
	require.Empty(t, info.Preds[entry])
	require.ElementsMatch(t, []*ir.BasicBlock{entry}, info.Preds[then])
	require.ElementsMatch(t, []*ir.BasicBlock{entry}, info.Preds[els])
	require.ElementsMatch(t, []*ir.BasicBlock{then, els}, info.Preds[join])
	require.Empty(t, info.Succs[join])
}

func TestCFGAnalysisIsCachedByAnalysisManager(t *testing.T) {
	fn, _, _, _, _ := diamondFunc(t)
	am := pass.NewAnalysisManager()

	v1, err := am.Get(fn, pass.CFGAnalysis{})
	require.NoError(t, err)
	v2, err := am.Get(fn, pass.CFGAnalysis{})
	require.NoError(t, err)

	require.Same(t, v1.(*pass.CFGInfo), v2.(*pass.CFGInfo), "second Get must return the cached *CFGInfo, not a fresh computation")
}
