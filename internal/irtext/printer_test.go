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
package irtext

import (
	"testing"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/stretchr/testify/require"

	"github.com/falcon-lang/falconc/internal/ir"
)

// buildAddModule builds a tiny module:
//
//	define external @add i64(i64, i64) {
//	entry:
//	  %sum = add i64 %0, %1
//	  ret i64 %sum
//	}
func buildAddModule(ctx *ir.Context) *ir.Module {
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
	return m
}

func TestPrintRoundTrips(t *testing.T) {
	ctx := ir.NewContext()
	m := buildAddModule(ctx)
	text := Print(m)

	ctx2 := ir.NewContext()
	m2, err := Parse(ctx2, text)
	require.NoError(t, err, "reparse failed on:\n%s", text)

	text2 := Print(m2)
	if text != text2 {
		dmp := diffmatchpatch.New()
		diffs := dmp.DiffMain(text, text2, false)
		t.Fatalf("printer did not round-trip:\n%s", dmp.DiffPrettyText(diffs))
	}

	fn2, ok := m2.Lookup("add")
	require.True(t, ok)
	asFn := fn2.(*ir.Function)
	require.NoError(t, ir.Verify(asFn))
}

func TestPrintRoundTripsControlFlow(t *testing.T) {
	ctx := ir.NewContext()
	i64 := ctx.Int64Type()
	m := ir.NewModule(ctx)
	fn, err := m.DeclareFunction("cond", i64, []*ir.Type{i64}, ir.External)
	require.NoError(t, err)

	b := ir.NewBuilder(ctx)
	entry := b.CreateBlock(fn, "entry")
	then := b.CreateBlock(fn, "then")
	els := b.CreateBlock(fn, "els")
	merge := b.CreateBlock(fn, "merge")

	b.SetInsertAtEnd(entry)
	cmp := b.CreateICmp(ir.PredLT, fn.Params[0], ctx.ConstInt(i64, 10), "cmp")
	b.CreateCondBr(cmp, then, els)

	b.SetInsertAtEnd(then)
	b.CreateBr(merge)

	b.SetInsertAtEnd(els)
	b.CreateBr(merge)

	b.SetInsertAtEnd(merge)
	phi := b.CreatePhi(i64, "p")
	phi.AddIncoming(ctx.ConstInt(i64, 1), then)
	phi.AddIncoming(ctx.ConstInt(i64, 2), els)
	b.CreateRet(phi)

	require.NoError(t, ir.Verify(fn))

	text := Print(m)
	ctx2 := ir.NewContext()
	m2, err := Parse(ctx2, text)
	require.NoError(t, err, "reparse failed on:\n%s", text)

	g, ok := m2.Lookup("cond")
	require.True(t, ok)
	fn2 := g.(*ir.Function)
	require.NoError(t, ir.Verify(fn2))
	require.Equal(t, text, Print(m2))
}
