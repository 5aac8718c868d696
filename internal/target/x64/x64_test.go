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
package x64_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/falcon-lang/falconc/internal/ir"
	"github.com/falcon-lang/falconc/internal/irgen"
	"github.com/falcon-lang/falconc/internal/irgen/fixture"
	"github.com/falcon-lang/falconc/internal/mir"
	"github.com/falcon-lang/falconc/internal/regalloc"
	"github.com/falcon-lang/falconc/internal/target/x64"
)

// lowerAndAllocate runs decl through the full C8/C10/C11 pipeline without
// any C6/C7 optimization passes in between, isolating this package's own
// correctness from the optimizer's.
func lowerAndAllocate(t *testing.T, decl *irgen.FuncDecl) (*mir.MIRModule, *mir.MIRFunction) {
	t.Helper()
	ctx := ir.NewContext()
	mod := ir.NewModule(ctx)
	g := irgen.NewBuilder(ctx, mod)
	require.NoError(t, decl.Accept(g))

	tgt := x64.New()
	mm, err := mir.LowerModule(mod, tgt)
	require.NoError(t, err)
	require.Len(t, mm.Funcs, 1)

	mfn := mm.Funcs[0]
	require.NoError(t, mir.Legalize(mfn, tgt, tgt))
	regalloc.Allocate(mfn, tgt)
	return mm, mfn
}

// P6 (spec.md 8): after register allocation, no machine instruction
// references a virtual register.
func noVirtualRegsRemain(mfn *mir.MIRFunction) bool {
	for _, b := range mfn.Blocks {
		for _, inst := range b.Insts {
			for _, op := range inst.Operands() {
				if op.Kind == mir.OperandVirtualReg {
					return false
				}
			}
		}
	}
	return true
}

func TestAllocationLeavesNoVirtualRegisters(t *testing.T) {
	for _, decl := range []*irgen.FuncDecl{fixture.Add(), fixture.Fib(), fixture.SumArray(), fixture.Classify(), fixture.ShortCircuit(), fixture.CountDown()} {
		_, mfn := lowerAndAllocate(t, decl)
		require.True(t, noVirtualRegsRemain(mfn), "%s: virtual register survived allocation", mfn.Name)
	}
}

func TestPrintProducesWellFormedAssembly(t *testing.T) {
	for _, decl := range []*irgen.FuncDecl{fixture.Add(), fixture.Fib(), fixture.SumArray(), fixture.Classify(), fixture.ShortCircuit(), fixture.CountDown()} {
		mm, _ := lowerAndAllocate(t, decl)
		var sb strings.Builder
		require.NoError(t, x64.New().Print(&sb, mm))
		asm := sb.String()
		require.Contains(t, asm, "\t.text\n")
		require.Contains(t, asm, ".globl "+decl.Name)
		require.Contains(t, asm, "push %rbp\n")
		require.Contains(t, asm, "ret\n")
	}
}

// Trunc's vreg-width-safety redesign (DESIGN.md C11): a cast chain that
// truncates to i1 and back to i64 must allocate and print cleanly, never
// asking the printer for a mov between two different-width views of the
// same register.
func TestTruncThenZExtRoundTripsThroughWidth64(t *testing.T) {
	ctx := ir.NewContext()
	mod := ir.NewModule(ctx)
	fn, err := mod.DeclareFunction("truncRoundTrip", ctx.Int64Type(), []*ir.Type{ctx.Int64Type()}, ir.External)
	require.NoError(t, err)

	b := ir.NewBuilder(ctx)
	entry := b.CreateBlock(fn, "entry")
	b.SetInsertAtEnd(entry)
	truncated := b.CreateCast(ir.OpTrunc, fn.Params[0], ctx.BoolType(), "t")
	widened := b.CreateCast(ir.OpZExt, truncated, ctx.Int64Type(), "w")
	b.CreateRet(widened)

	tgt := x64.New()
	mfn, err := mir.Lower(fn, tgt)
	require.NoError(t, err)
	require.NoError(t, mir.Legalize(mfn, tgt, tgt))
	regalloc.Allocate(mfn, tgt)
	require.True(t, noVirtualRegsRemain(mfn))

	var sb strings.Builder
	mm := mir.NewMIRModule()
	mm.AddFunc(mfn)
	require.NoError(t, tgt.Print(&sb, mm))
	require.Contains(t, sb.String(), "ret\n")
}
