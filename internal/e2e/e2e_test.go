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

// Package e2e drives spec.md 8's six end-to-end scenarios through the full
// pipeline (irgen -> optimize -> lower -> legalize -> allocate -> print),
// grounded in style on src/test/code_test.go's compile-then-check shape.
// Nothing here spawns an assembler or executes the emitted code (this core
// stops at assembly text, per spec.md 1); each test instead checks the
// structural property spec.md 8 says the scenario must exhibit.
package e2e

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/falcon-lang/falconc/internal/driver"
	"github.com/falcon-lang/falconc/internal/ir"
	"github.com/falcon-lang/falconc/internal/irgen"
	"github.com/falcon-lang/falconc/internal/irgen/fixture"
	"github.com/falcon-lang/falconc/internal/target/x64"
)

func build(t *testing.T, decls ...*irgen.FuncDecl) *ir.Module {
	t.Helper()
	ctx := ir.NewContext()
	mod := ir.NewModule(ctx)
	g := irgen.NewBuilder(ctx, mod)
	for _, d := range decls {
		require.NoError(t, d.Accept(g))
	}
	return mod
}

func compile(t *testing.T, m *ir.Module, opts driver.Options) *driver.Result {
	t.Helper()
	opts.EmitAsm = true
	res, err := driver.Compile(m, x64.New(), opts, nil)
	require.NoError(t, err)
	return res
}

// funcSection returns the assembly text for one function, from just after
// its label line up to (but not including) the next .globl.
func funcSection(t *testing.T, asm, name string) string {
	t.Helper()
	label := name + ":\n"
	start := strings.Index(asm, label)
	require.GreaterOrEqual(t, start, 0, "function %s not found in assembly:\n%s", name, asm)
	rest := asm[start+len(label):]
	if next := strings.Index(rest, "\t.globl"); next >= 0 {
		rest = rest[:next]
	}
	return rest
}

// Scenario 1: fn main() -> i64 { return 2 + 3 * 4; } — exit 14. Constant
// folding is not part of C7's scope here, so the check is structural: the
// arithmetic lowers to real add/imul instructions ending in a ret, not a
// precomputed constant the optimizer never produces.
func TestScenario1ArithmeticExpression(t *testing.T) {
	main := &irgen.FuncDecl{
		Name: "main",
		Ret:  irgen.TypeI64,
		Body: &irgen.CompoundStmt{Stmts: []irgen.Stmt{
			&irgen.ReturnStmt{X: &irgen.BinaryExpr{
				Op: irgen.BinAdd,
				L:  &irgen.IntLit{Value: 2},
				R:  &irgen.BinaryExpr{Op: irgen.BinMul, L: &irgen.IntLit{Value: 3}, R: &irgen.IntLit{Value: 4}, T: irgen.TypeI64},
				T:  irgen.TypeI64,
			}},
		}},
		Linkage: ir.External,
	}
	m := build(t, main)
	res := compile(t, m, driver.Options{Opt: driver.O0})
	sec := funcSection(t, res.Asm, "main")
	require.Contains(t, sec, "imul")
	require.Contains(t, sec, "add")
	require.Contains(t, sec, "ret")
}

// Scenario 2: recursive fib(10) == 55. Checks both ends of the pipeline:
// the builder produces exactly two recursive calls (internal/irgen's own
// test already checks this directly), and the assembly still carries both
// calls through to a ret once lowered/allocated/printed.
func TestScenario2RecursiveFibonacci(t *testing.T) {
	m := build(t, fixture.Fib())
	res := compile(t, m, driver.Options{Opt: driver.O0})
	sec := funcSection(t, res.Asm, "fib")
	require.Equal(t, 2, strings.Count(sec, "call fib"))
	require.Contains(t, sec, "ret")
}

// Scenario 3: summing a 4-element i64 array via a for loop == 10. Checks
// that an array access reaches the backend as a Gep-derived address
// computation (imul by the element size, then an add) rather than being
// folded away, and that the function allocates real stack storage for the
// array.
func TestScenario3ArraySum(t *testing.T) {
	m := build(t, fixture.SumArray())
	res := compile(t, m, driver.Options{Opt: driver.O0})
	sec := funcSection(t, res.Asm, "sumArray")
	require.Contains(t, sec, "sub $", "the 4-element array needs real stack storage")
	require.Contains(t, sec, "imul", "indexing xs[i] scales i by the element size")
	require.Contains(t, sec, "ret")
}

// Scenario 4: a switch over a runtime value with case fallthrough and a
// default arm. The fixture's classify returns 10 for 0, 20 for 1 (which
// falls into case 2) and for 2, and -1 otherwise; checks the switch lowers
// to a cmp/je pair per case value then a jmp to the default (OpSwitchX
// expanded at print time), covering all three case values.
func TestScenario4SwitchWithFallthrough(t *testing.T) {
	m := build(t, fixture.Classify())
	res := compile(t, m, driver.Options{Opt: driver.O0})
	sec := funcSection(t, res.Asm, "classify")
	require.Equal(t, 3, strings.Count(sec, "cmp"), "one cmp per case value")
	require.Equal(t, 3, strings.Count(sec, "je "), "one je per case value")
	require.Contains(t, sec, "jmp", "falls through to the default arm's jmp")
}

// Scenario 5: inc(inc(inc(inc(inc(0))))) == 5, and after inlining main
// contains no call instruction at all. Exercises the inliner's fixpoint
// behavior (P5): a freshly-inlined callee body may itself contain further
// eligible calls, so one optimize() pass must fully flatten the chain.
func TestScenario5InliningRemovesAllCalls(t *testing.T) {
	inc, main := fixture.IncChain()
	m := build(t, inc, main)
	res := compile(t, m, driver.Options{Opt: driver.O2})
	sec := funcSection(t, res.Asm, "incChainMain")
	require.NotContains(t, sec, "call", "inlining to a fixed point must remove every call from main")
	require.Contains(t, sec, "ret")
}

// Scenario 6: a million-iteration while loop, decremented to 0 — checks
// the register allocator places the loop induction variable in a
// callee-saved physical register (spec.md 8's explicit requirement), not a
// stack spill slot re-loaded every iteration.
func TestScenario6LoopInductionVariableGetsCalleeSavedRegister(t *testing.T) {
	m := build(t, fixture.CountDown())
	res := compile(t, m, driver.Options{Opt: driver.O0})
	sec := funcSection(t, res.Asm, "countDown")

	calleeSaved := []string{"rbx", "r12", "r13", "r14", "r15"}
	var used string
	for _, r := range calleeSaved {
		if strings.Contains(sec, "push %"+r+"\n") {
			used = r
			break
		}
	}
	require.NotEmpty(t, used, "expected a used callee-saved register saved in the prologue, got:\n%s", sec)
	require.Contains(t, sec, "%"+used, "the saved callee-saved register must actually appear in the loop body")
}
