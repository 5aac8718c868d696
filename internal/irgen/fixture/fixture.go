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

// Package fixture holds small hand-built irgen.Decl trees standing in for
// a front end's AST, each one exercising a construct internal/irgen.Builder
// must lower. They back internal/irgen's own tests and internal/e2e's
// end-to-end scenarios alike.
package fixture

import (
	"github.com/falcon-lang/falconc/internal/ir"
	"github.com/falcon-lang/falconc/internal/irgen"
)

// Add builds:
//
//	func add(a i64, b i64) i64 { return a + b }
func Add() *irgen.FuncDecl {
	a := &irgen.IdentExpr{Name: "a", T: irgen.TypeI64}
	b := &irgen.IdentExpr{Name: "b", T: irgen.TypeI64}
	return &irgen.FuncDecl{
		Name: "add",
		Ret:  irgen.TypeI64,
		Params: []*irgen.ParamDecl{
			{Name: "a", Type: irgen.TypeI64},
			{Name: "b", Type: irgen.TypeI64},
		},
		Body: &irgen.CompoundStmt{Stmts: []irgen.Stmt{
			&irgen.ReturnStmt{X: &irgen.BinaryExpr{Op: irgen.BinAdd, L: a, R: b, T: irgen.TypeI64}},
		}},
		Linkage: ir.External,
	}
}

// Fib builds a recursive Fibonacci, the inline-eligible/non-eligible
// boundary scenario:
//
//	func fib(n i64) i64 {
//	    if (n < 2) { return n; }
//	    return fib(n - 1) + fib(n - 2);
//	}
func Fib() *irgen.FuncDecl {
	n := func() *irgen.IdentExpr { return &irgen.IdentExpr{Name: "n", T: irgen.TypeI64} }
	call := func(arg irgen.Expr) *irgen.CallExpr {
		return &irgen.CallExpr{Callee: "fib", Args: []irgen.Expr{arg}, T: irgen.TypeI64}
	}
	return &irgen.FuncDecl{
		Name:   "fib",
		Ret:    irgen.TypeI64,
		Params: []*irgen.ParamDecl{{Name: "n", Type: irgen.TypeI64}},
		Body: &irgen.CompoundStmt{Stmts: []irgen.Stmt{
			&irgen.IfStmt{
				Cond: &irgen.BinaryExpr{Op: irgen.BinLT, L: n(), R: &irgen.IntLit{Value: 2}, T: irgen.TypeBool},
				Then: &irgen.CompoundStmt{Stmts: []irgen.Stmt{&irgen.ReturnStmt{X: n()}}},
			},
			&irgen.ReturnStmt{X: &irgen.BinaryExpr{
				Op: irgen.BinAdd,
				L:  call(&irgen.BinaryExpr{Op: irgen.BinSub, L: n(), R: &irgen.IntLit{Value: 1}, T: irgen.TypeI64}),
				R:  call(&irgen.BinaryExpr{Op: irgen.BinSub, L: n(), R: &irgen.IntLit{Value: 2}, T: irgen.TypeI64}),
				T:  irgen.TypeI64,
			}},
		}},
		Linkage: ir.External,
	}
}

// SumArray builds:
//
//	func sumArray() i64 {
//	    i64 xs[4] = {1, 2, 3, 4};
//	    i64 total = 0;
//	    for (i64 i = 0; i < 4; i = i + 1) {
//	        total = total + xs[i];
//	    }
//	    return total;
//	}
func SumArray() *irgen.FuncDecl {
	total := func() *irgen.IdentExpr { return &irgen.IdentExpr{Name: "total", T: irgen.TypeI64} }
	i := func() *irgen.IdentExpr { return &irgen.IdentExpr{Name: "i", T: irgen.TypeI64} }
	return &irgen.FuncDecl{
		Name: "sumArray",
		Ret:  irgen.TypeI64,
		Body: &irgen.CompoundStmt{Stmts: []irgen.Stmt{
			&irgen.DeclStmt{Name: "xs", Type: irgen.TypeI64, ArrayLen: 4, Init: &irgen.InitListExpr{
				Elems: []irgen.Expr{&irgen.IntLit{Value: 1}, &irgen.IntLit{Value: 2}, &irgen.IntLit{Value: 3}, &irgen.IntLit{Value: 4}},
				T:     irgen.TypeI64,
			}},
			&irgen.DeclStmt{Name: "total", Type: irgen.TypeI64, Init: &irgen.IntLit{Value: 0}},
			&irgen.ForStmt{
				Init: &irgen.DeclStmt{Name: "i", Type: irgen.TypeI64, Init: &irgen.IntLit{Value: 0}},
				Cond: &irgen.BinaryExpr{Op: irgen.BinLT, L: i(), R: &irgen.IntLit{Value: 4}, T: irgen.TypeBool},
				Post: &irgen.BinaryExpr{Op: irgen.BinAssign, L: i(), R: &irgen.BinaryExpr{Op: irgen.BinAdd, L: i(), R: &irgen.IntLit{Value: 1}, T: irgen.TypeI64}, T: irgen.TypeI64},
				Body: &irgen.CompoundStmt{Stmts: []irgen.Stmt{
					&irgen.ExprStmt{X: &irgen.BinaryExpr{
						Op: irgen.BinAssign,
						L:  total(),
						R: &irgen.BinaryExpr{Op: irgen.BinAdd, L: total(), R: &irgen.ArrayAccessExpr{
							Arr: &irgen.IdentExpr{Name: "xs", T: irgen.TypeI64}, Index: i(), T: irgen.TypeI64,
						}, T: irgen.TypeI64},
						T: irgen.TypeI64,
					}},
				}},
			},
			&irgen.ReturnStmt{X: total()},
		}},
		Linkage: ir.External,
	}
}

// Classify builds a switch with fallthrough, matching the teacher's
// no-jump-table lowering policy:
//
//	func classify(x i64) i64 {
//	    i64 r = 0;
//	    switch (x) {
//	    case 0: r = 10; break;
//	    case 1:
//	    case 2: r = 20; break;
//	    default: r = -1; break;
//	    }
//	    return r;
//	}
func Classify() *irgen.FuncDecl {
	x := &irgen.IdentExpr{Name: "x", T: irgen.TypeI64}
	r := func() *irgen.IdentExpr { return &irgen.IdentExpr{Name: "r", T: irgen.TypeI64} }
	assignR := func(v int64) irgen.Stmt {
		return &irgen.ExprStmt{X: &irgen.BinaryExpr{Op: irgen.BinAssign, L: r(), R: &irgen.IntLit{Value: v}, T: irgen.TypeI64}}
	}
	return &irgen.FuncDecl{
		Name:   "classify",
		Ret:    irgen.TypeI64,
		Params: []*irgen.ParamDecl{{Name: "x", Type: irgen.TypeI64}},
		Body: &irgen.CompoundStmt{Stmts: []irgen.Stmt{
			&irgen.DeclStmt{Name: "r", Type: irgen.TypeI64, Init: &irgen.IntLit{Value: 0}},
			&irgen.SwitchStmt{
				Cond: x,
				Body: &irgen.CompoundStmt{Stmts: []irgen.Stmt{
					&irgen.CaseStmt{Value: 0},
					assignR(10),
					&irgen.BreakStmt{},
					&irgen.CaseStmt{Value: 1},
					&irgen.CaseStmt{Value: 2},
					assignR(20),
					&irgen.BreakStmt{},
					&irgen.CaseStmt{Default: true},
					assignR(-1),
					&irgen.BreakStmt{},
				}},
			},
			&irgen.ReturnStmt{X: r()},
		}},
		Linkage: ir.External,
	}
}

// ShortCircuit builds:
//
//	func inRange(x i64, lo i64, hi i64) bool {
//	    return x >= lo && x <= hi;
//	}
//
// exercising Builder's diamond-plus-merge-phi lowering of &&.
func ShortCircuit() *irgen.FuncDecl {
	x := &irgen.IdentExpr{Name: "x", T: irgen.TypeI64}
	lo := &irgen.IdentExpr{Name: "lo", T: irgen.TypeI64}
	hi := &irgen.IdentExpr{Name: "hi", T: irgen.TypeI64}
	return &irgen.FuncDecl{
		Name: "inRange",
		Ret:  irgen.TypeBool,
		Params: []*irgen.ParamDecl{
			{Name: "x", Type: irgen.TypeI64},
			{Name: "lo", Type: irgen.TypeI64},
			{Name: "hi", Type: irgen.TypeI64},
		},
		Body: &irgen.CompoundStmt{Stmts: []irgen.Stmt{
			&irgen.ReturnStmt{X: &irgen.BinaryExpr{
				Op: irgen.BinLogAnd,
				L:  &irgen.BinaryExpr{Op: irgen.BinGE, L: x, R: lo, T: irgen.TypeBool},
				R:  &irgen.BinaryExpr{Op: irgen.BinLE, L: x, R: hi, T: irgen.TypeBool},
				T:  irgen.TypeBool,
			}},
		}},
		Linkage: ir.External,
	}
}

// IncChain builds a pair of functions exercising the inliner's fixpoint
// behavior (a freshly-inlined callee body may itself contain further
// eligible calls):
//
//	func inc(x i64) i64 { return x + 1; }
//	func incChainMain() i64 { return inc(inc(inc(inc(inc(0))))); }
//
// incChainMain has no calls left once inlining has run to a fixed point.
func IncChain() (*irgen.FuncDecl, *irgen.FuncDecl) {
	inc := &irgen.FuncDecl{
		Name: "inc",
		Ret:  irgen.TypeI64,
		Params: []*irgen.ParamDecl{
			{Name: "x", Type: irgen.TypeI64},
		},
		Body: &irgen.CompoundStmt{Stmts: []irgen.Stmt{
			&irgen.ReturnStmt{X: &irgen.BinaryExpr{
				Op: irgen.BinAdd,
				L:  &irgen.IdentExpr{Name: "x", T: irgen.TypeI64},
				R:  &irgen.IntLit{Value: 1},
				T:  irgen.TypeI64,
			}},
		}},
		Linkage: ir.External,
	}

	var call irgen.Expr = &irgen.IntLit{Value: 0}
	for i := 0; i < 5; i++ {
		call = &irgen.CallExpr{Callee: "inc", Args: []irgen.Expr{call}, T: irgen.TypeI64}
	}
	main := &irgen.FuncDecl{
		Name: "incChainMain",
		Ret:  irgen.TypeI64,
		Body: &irgen.CompoundStmt{Stmts: []irgen.Stmt{
			&irgen.ReturnStmt{X: call},
		}},
		Linkage: ir.External,
	}
	return inc, main
}

// CountDown builds a long-running loop, for the register-pressure/runtime
// scenario:
//
//	func countDown(n i64) i64 {
//	    i64 acc = 0;
//	    while (n > 0) {
//	        acc = acc + n;
//	        n = n - 1;
//	    }
//	    return acc;
//	}
func CountDown() *irgen.FuncDecl {
	n := func() *irgen.IdentExpr { return &irgen.IdentExpr{Name: "n", T: irgen.TypeI64} }
	acc := func() *irgen.IdentExpr { return &irgen.IdentExpr{Name: "acc", T: irgen.TypeI64} }
	return &irgen.FuncDecl{
		Name:   "countDown",
		Ret:    irgen.TypeI64,
		Params: []*irgen.ParamDecl{{Name: "n", Type: irgen.TypeI64}},
		Body: &irgen.CompoundStmt{Stmts: []irgen.Stmt{
			&irgen.DeclStmt{Name: "acc", Type: irgen.TypeI64, Init: &irgen.IntLit{Value: 0}},
			&irgen.WhileStmt{
				Cond: &irgen.BinaryExpr{Op: irgen.BinGT, L: n(), R: &irgen.IntLit{Value: 0}, T: irgen.TypeBool},
				Body: &irgen.CompoundStmt{Stmts: []irgen.Stmt{
					&irgen.ExprStmt{X: &irgen.BinaryExpr{Op: irgen.BinAssign, L: acc(), R: &irgen.BinaryExpr{Op: irgen.BinAdd, L: acc(), R: n(), T: irgen.TypeI64}, T: irgen.TypeI64}},
					&irgen.ExprStmt{X: &irgen.BinaryExpr{Op: irgen.BinAssign, L: n(), R: &irgen.BinaryExpr{Op: irgen.BinSub, L: n(), R: &irgen.IntLit{Value: 1}, T: irgen.TypeI64}, T: irgen.TypeI64}},
				}},
			},
			&irgen.ReturnStmt{X: acc()},
		}},
		Linkage: ir.External,
	}
}
