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
package irgen_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/falcon-lang/falconc/internal/ir"
	"github.com/falcon-lang/falconc/internal/irgen"
	"github.com/falcon-lang/falconc/internal/irgen/fixture"
)

func build(t *testing.T, decl *irgen.FuncDecl) (*ir.Module, *ir.Function) {
	t.Helper()
	ctx := ir.NewContext()
	mod := ir.NewModule(ctx)
	g := irgen.NewBuilder(ctx, mod)
	require.NoError(t, decl.Accept(g))
	fn, ok := mod.Lookup(decl.Name)
	require.True(t, ok)
	f, ok := fn.(*ir.Function)
	require.True(t, ok)
	require.NoError(t, ir.Verify(f))
	return mod, f
}

func TestBuilderAdd(t *testing.T) {
	_, fn := build(t, fixture.Add())
	require.Len(t, fn.Blocks, 1)
	ret, ok := fn.Entry().Terminator().(*ir.Ret)
	require.True(t, ok)
	require.True(t, ret.HasValue())
}

func TestBuilderFibRecursiveCall(t *testing.T) {
	_, fn := build(t, fixture.Fib())
	var calls int
	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions() {
			if c, ok := inst.(*ir.Call); ok {
				calls++
				require.Equal(t, "fib", c.Callee.Name)
			}
		}
	}
	require.Equal(t, 2, calls, "fib must contain exactly two recursive calls")
}

func TestBuilderSumArrayUsesAllocaAndGep(t *testing.T) {
	_, fn := build(t, fixture.SumArray())
	var allocas, geps int
	for _, inst := range fn.Entry().Instructions() {
		switch inst.(type) {
		case *ir.Alloca:
			allocas++
		}
	}
	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions() {
			if _, ok := inst.(*ir.Gep); ok {
				geps++
			}
		}
	}
	require.Equal(t, 3, allocas, "xs, total and the for-loop's i must each get an entry alloca")
	require.Greater(t, geps, 0, "array element access must lower through Gep")
}

func TestBuilderClassifySwitchHasThreeCasesAndDefault(t *testing.T) {
	_, fn := build(t, fixture.Classify())
	var sw *ir.Switch
	for _, b := range fn.Blocks {
		if s, ok := b.Terminator().(*ir.Switch); ok {
			sw = s
		}
	}
	require.NotNil(t, sw, "classify must lower its switch to a Switch terminator")
	require.Len(t, sw.Cases, 3, "case 0, case 1 and case 2 each get their own case entry")
	require.NotNil(t, sw.Default)
}

func TestBuilderShortCircuitLowersToDiamondWithPhi(t *testing.T) {
	_, fn := build(t, fixture.ShortCircuit())
	var phis int
	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions() {
			if p, ok := inst.(*ir.Phi); ok {
				phis++
				require.Len(t, p.Incoming(), 2, "the && merge phi takes one value from each side of the diamond")
			}
		}
	}
	require.Equal(t, 1, phis, "&& must lower to exactly one merge phi")
	require.Greater(t, len(fn.Blocks), 2, "short-circuit evaluation needs its own diamond, not a single block")
}

func TestBuilderCountDownLoopsBackToCond(t *testing.T) {
	_, fn := build(t, fixture.CountDown())
	require.Len(t, fn.Blocks, 4, "entry, while.cond, while.body and while.end")
}

func TestBuilderRejectsBreakOutsideLoop(t *testing.T) {
	decl := &irgen.FuncDecl{
		Name: "bad",
		Ret:  irgen.TypeVoid,
		Body: &irgen.CompoundStmt{Stmts: []irgen.Stmt{&irgen.BreakStmt{}}},
	}
	ctx := ir.NewContext()
	mod := ir.NewModule(ctx)
	g := irgen.NewBuilder(ctx, mod)
	err := decl.Accept(g)
	require.Error(t, err)
}

func TestBuilderRejectsMemberAccess(t *testing.T) {
	decl := &irgen.FuncDecl{
		Name: "bad2",
		Ret:  irgen.TypeI64,
		Body: &irgen.CompoundStmt{Stmts: []irgen.Stmt{
			&irgen.ReturnStmt{X: &irgen.MemberAccessExpr{
				Obj: &irgen.IdentExpr{Name: "x", T: irgen.TypeI64}, Field: "y", T: irgen.TypeI64,
			}},
		}},
	}
	ctx := ir.NewContext()
	mod := ir.NewModule(ctx)
	g := irgen.NewBuilder(ctx, mod)
	// Declare "x" as a param so the only unsupported construct in the body
	// is the member access itself.
	decl.Params = []*irgen.ParamDecl{{Name: "x", Type: irgen.TypeI64}}
	err := decl.Accept(g)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported construct")
}
