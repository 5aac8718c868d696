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
package mir_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/falcon-lang/falconc/internal/ir"
	"github.com/falcon-lang/falconc/internal/mir"
	"github.com/falcon-lang/falconc/internal/target/x64"
)

// buildAddModule builds a tiny module:
//
//	define external @add i64(i64, i64) {
//	entry:
//	  %sum = add i64 %0, %1
//	  ret i64 %sum
//	}
func buildAddModule(ctx *ir.Context) (*ir.Module, *ir.Function) {
	i64 := ctx.Int64Type()
	m := ir.NewModule(ctx)
	fn, err := m.DeclareFunction("add", i64, []*ir.Type{i64, i64}, ir.External)
	if err != nil {
		panic(err)
	}
	b := ir.NewBuilder(ctx)
	entry := b.CreateBlock(fn, "entry")
	b.SetInsertAtEnd(entry)
	sum := b.CreateBinOp(ir.OpAdd, fn.Params[0], fn.Params[1], "sum")
	b.CreateRet(sum)
	return m, fn
}

func TestLowerProducesOneVRegPerParam(t *testing.T) {
	ctx := ir.NewContext()
	_, fn := buildAddModule(ctx)
	tgt := x64.New()

	mfn, err := mir.Lower(fn, tgt)
	require.NoError(t, err)
	require.Len(t, mfn.Params, 2)
	for _, p := range mfn.Params {
		require.Equal(t, mir.OperandVirtualReg, p.Kind)
	}
}

func TestLowerAssignsSequentialInstructionIds(t *testing.T) {
	ctx := ir.NewContext()
	_, fn := buildAddModule(ctx)
	tgt := x64.New()

	mfn, err := mir.Lower(fn, tgt)
	require.NoError(t, err)

	all := mfn.AllInstructions()
	require.NotEmpty(t, all)
	for i := 1; i < len(all); i++ {
		require.Less(t, all[i-1].Id, all[i].Id)
	}
}

func TestLowerModuleSkipsDeclarations(t *testing.T) {
	ctx := ir.NewContext()
	i64 := ctx.Int64Type()
	m := ir.NewModule(ctx)
	_, err := m.DeclareFunction("extern_only", i64, []*ir.Type{i64}, ir.External)
	require.NoError(t, err)

	mm, err := mir.LowerModule(m, x64.New())
	require.NoError(t, err)
	require.Empty(t, mm.Funcs, "a function with no body must not produce a MIRFunction")
}

func TestLowerModuleCollectsStringConstant(t *testing.T) {
	ctx := ir.NewContext()
	i64 := ctx.Int64Type()
	ptr := ctx.PtrType()
	m := ir.NewModule(ctx)
	fn, err := m.DeclareFunction("usesstr", i64, nil, ir.External)
	require.NoError(t, err)

	b := ir.NewBuilder(ctx)
	entry := b.CreateBlock(fn, "entry")
	b.SetInsertAtEnd(entry)
	s := ctx.ConstString([]byte("hello"))
	alloca := b.CreateAlloca(ptr, 1, "slot")
	b.CreateStore(s, alloca)
	b.CreateRet(ctx.ConstInt(i64, 0))

	mm, err := mir.LowerModule(m, x64.New())
	require.NoError(t, err)
	require.Len(t, mm.Funcs, 1)
	require.Len(t, mm.Data, 1)
	require.Equal(t, []byte("hello"), mm.Data[0].Bytes)
}

func TestLowerModuleZeroInitializesUninitializedGlobal(t *testing.T) {
	ctx := ir.NewContext()
	i64 := ctx.Int64Type()
	m := ir.NewModule(ctx)
	_, err := m.DeclareGlobalVar("g", i64, nil, ir.External)
	require.NoError(t, err)

	mm, err := mir.LowerModule(m, x64.New())
	require.NoError(t, err)
	require.Len(t, mm.Zero, 1)
	require.Equal(t, "g", mm.Zero[0].Name)
	require.Equal(t, i64.Size(), mm.Zero[0].Size)
}
