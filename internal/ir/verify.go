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

import "github.com/pkg/errors"

// Verify checks IR1-IR6 on fn, grounded on compile/ssa/hir.go's VerifyHIR
// and compile/ssa/domtree.go's VerifyDom. It returns the first violation
// found wrapped with the function and block it occurred in, matching
// spec.md 7's "Malformed IR" fatal error kind (the pass manager, not this
// function, decides whether that is fatal or merely logged).
func Verify(fn *Function) error {
	if fn.IsDeclaration() {
		return nil
	}
	if err := verifyTerminators(fn); err != nil {
		return err
	}
	if err := verifyPhiPlacement(fn); err != nil {
		return err
	}
	if err := verifyAllocaPlacement(fn); err != nil {
		return err
	}
	if err := verifyEntryHasNoPreds(fn); err != nil {
		return err
	}
	dt := BuildDomTree(fn)
	if err := verifyDominance(fn, dt); err != nil {
		return err
	}
	return nil
}

// verifyTerminators checks IR3: exactly one terminator per block, at the end.
func verifyTerminators(fn *Function) error {
	for _, b := range fn.Blocks {
		if len(b.insts) == 0 {
			return errors.Errorf("ir: function %s block %s has no instructions", fn.Name, b.Name)
		}
		for i, inst := range b.insts {
			isTerm := isTerminatorInst(inst)
			if i == len(b.insts)-1 {
				if !isTerm {
					return errors.Errorf("ir: function %s block %s does not end with a terminator", fn.Name, b.Name)
				}
			} else if isTerm {
				return errors.Errorf("ir: function %s block %s has a terminator before its end", fn.Name, b.Name)
			}
		}
	}
	return nil
}

func isTerminatorInst(inst Instruction) bool {
	switch inst.(type) {
	case *Br, *CondBr, *Switch, *Ret:
		return true
	default:
		return false
	}
}

// verifyPhiPlacement checks IR2 (all phis precede every non-phi instruction)
// and, outside the entry block, that each phi has as many incoming values
// as its block has predecessors (the count only, not which blocks).
func verifyPhiPlacement(fn *Function) error {
	preds := predecessorsOf(fn)
	for _, b := range fn.Blocks {
		seenNonPhi := false
		for _, inst := range b.insts {
			phi, isPhi := inst.(*Phi)
			if isPhi && seenNonPhi {
				return errors.Errorf("ir: function %s block %s has a phi after a non-phi instruction", fn.Name, b.Name)
			}
			if !isPhi {
				seenNonPhi = true
				continue
			}
			if b != fn.Entry() && len(phi.Preds) != len(preds[b]) {
				return errors.Errorf("ir: function %s: phi %s has %d incoming values but block %s has %d predecessors", fn.Name, phi.Name(), len(phi.Preds), b.Name, len(preds[b]))
			}
		}
	}
	return nil
}

// verifyAllocaPlacement checks spec.md 9's hard invariant: every alloca
// appears in the entry block before the first non-alloca instruction.
func verifyAllocaPlacement(fn *Function) error {
	entry := fn.Entry()
	seenNonAlloca := false
	for _, inst := range entry.insts {
		_, isAlloca := inst.(*Alloca)
		if isAlloca && seenNonAlloca {
			return errors.Errorf("ir: function %s has an alloca after a non-alloca instruction in the entry block", fn.Name)
		}
		if !isAlloca {
			seenNonAlloca = true
		}
	}
	for _, b := range fn.Blocks {
		if b == entry {
			continue
		}
		for _, inst := range b.insts {
			if _, ok := inst.(*Alloca); ok {
				return errors.Errorf("ir: function %s has an alloca outside the entry block (%s)", fn.Name, b.Name)
			}
		}
	}
	return nil
}

func verifyEntryHasNoPreds(fn *Function) error {
	preds := predecessorsOf(fn)
	if len(preds[fn.Entry()]) != 0 {
		return errors.Errorf("ir: function %s entry block has predecessors", fn.Name)
	}
	return nil
}

// verifyDominance checks IR1: every use of an instruction value is
// dominated by its definition, and that a phi's incoming value is defined
// in (or dominates) the corresponding predecessor block, grounded directly
// on compile/ssa/domtree.go's VerifyDom.
func verifyDominance(fn *Function, dt *DomTree) error {
	blockOf := make(map[Instruction]*BasicBlock)
	for _, b := range fn.Blocks {
		for _, inst := range b.insts {
			blockOf[inst] = b
		}
	}
	for _, b := range fn.Blocks {
		for _, inst := range b.insts {
			phi, isPhi := inst.(*Phi)
			for slot, opnd := range inst.Operands() {
				defInst, ok := opnd.(Instruction)
				if !ok || opnd == nil {
					continue
				}
				defBlock, ok := blockOf[defInst]
				if !ok {
					continue // argument, constant, or global: always valid
				}
				if isPhi {
					pred := phi.Preds[slot]
					if !dt.Dominates(defBlock, pred) {
						return errors.Errorf("ir: function %s: phi %s incoming value not dominating predecessor %s", fn.Name, phi.Name(), pred.Name)
					}
				} else if !dt.Dominates(defBlock, b) {
					return errors.Errorf("ir: function %s: use of %v in block %s not dominated by its definition in %s", fn.Name, defInst, b.Name, defBlock.Name)
				}
			}
		}
	}
	return nil
}
