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
package pass

import (
	"github.com/pkg/errors"

	"github.com/falcon-lang/falconc/internal/ir"
)

// defaultMaxInlineBlocks is the heuristic threshold of spec.md 4.5 step 1:
// "a first cut" refuses callees with more blocks than this.
const defaultMaxInlineBlocks = 5

// InlinePass inlines eligible call sites within each function, to fixpoint
// (a freshly-inlined callee body may itself contain further eligible calls).
// Falcon has no inliner at all; this is new, grounded directly on spec.md
// 4.5's five-step algorithm, built from C4's Clone/Split/ReplaceAllUsesWith.
type InlinePass struct {
	MaxBlocks int
}

func NewInlinePass() *InlinePass {
	return &InlinePass{MaxBlocks: defaultMaxInlineBlocks}
}

func (p *InlinePass) Name() string          { return "inline" }
func (p *InlinePass) Requires() []Analysis  { return nil }
func (p *InlinePass) Preserves() []AnalysisID { return nil }

func (p *InlinePass) RunOnFunction(fn *ir.Function, am *AnalysisManager) (bool, error) {
	b := ir.NewBuilder(fn.Ctx)
	changed := false
	for {
		call := p.findCandidate(fn)
		if call == nil {
			return changed, nil
		}
		if err := inlineCall(b, call); err != nil {
			return changed, err
		}
		changed = true
	}
}

// findCandidate returns the first call site in fn satisfying spec.md 4.5's
// refusal conditions (not a declaration, not recursive, callee block count
// within threshold); nil if none qualify.
func (p *InlinePass) findCandidate(fn *ir.Function) *ir.Call {
	threshold := p.MaxBlocks
	if threshold == 0 {
		threshold = defaultMaxInlineBlocks
	}
	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions() {
			call, ok := inst.(*ir.Call)
			if !ok {
				continue
			}
			callee := call.Callee
			if callee.IsDeclaration() || callee == fn || len(callee.Blocks) > threshold {
				continue
			}
			return call
		}
	}
	return nil
}

type retSite struct {
	block *ir.BasicBlock
	value ir.Value
}

// inlineCall implements spec.md 4.5 steps 2-5 for one call site. b supplies
// the insertion-point machinery, and its context the label, void and phi
// types of the blocks and instructions created here.
func inlineCall(b *ir.Builder, call *ir.Call) error {
	callee := call.Callee
	caller := call.Block().Fn

	valueMap := map[ir.Value]ir.Value{}
	for i, param := range callee.Params {
		valueMap[param] = call.Args()[i]
	}
	blockMap := map[*ir.BasicBlock]*ir.BasicBlock{}
	for _, cb := range callee.Blocks {
		blockMap[cb] = b.CreateBlock(caller, cb.Name+".inlined")
	}

	var rets []retSite
	for _, cb := range callee.Blocks {
		nb := blockMap[cb]
		b.SetInsertAtEnd(nb)
		for _, inst := range cb.Instructions() {
			if ret, ok := inst.(*ir.Ret); ok {
				var v ir.Value
				if ret.HasValue() {
					v = remapValue(ret.Value0(), valueMap)
				}
				rets = append(rets, retSite{block: nb, value: v})
				continue
			}
			cloned := b.Clone(inst, caller)
			remapOperands(cloned, valueMap, blockMap)
			b.Insert(cloned)
			valueMap[inst] = cloned
		}
	}
	if !call.Type().IsVoid() && len(rets) == 0 {
		return errors.Errorf("pass: inline: callee %s has non-void return but no ret instruction", callee.GlobalName())
	}

	tail, err := b.Split(call.Block(), call)
	if err != nil {
		return errors.Wrap(err, "pass: inline: split call site")
	}

	b.SetInsertAtEnd(call.Block())
	b.CreateBr(blockMap[callee.Entry()])

	for _, rs := range rets {
		b.SetInsertAtEnd(rs.block)
		b.CreateBr(tail)
	}

	if !call.Type().IsVoid() {
		if len(rets) == 1 {
			ir.ReplaceAllUsesWith(call, rets[0].value)
		} else {
			b.SetInsertAtEnd(tail)
			phi := b.CreatePhi(call.Type(), call.Name())
			for _, rs := range rets {
				phi.AddIncoming(rs.value, rs.block)
			}
			ir.ReplaceAllUsesWith(call, phi)
		}
	}

	ir.EraseInstruction(call)
	return nil
}

func remapValue(v ir.Value, values map[ir.Value]ir.Value) ir.Value {
	if nv, ok := values[v]; ok {
		return nv
	}
	return v
}

// remapOperands rewrites cloned's Value-typed operands through values and
// its block-pointer fields (Target/True/False/Default/Cases/Preds, none of
// which ride the use-graph — see block.go) through blocks.
func remapOperands(cloned ir.Instruction, values map[ir.Value]ir.Value, blocks map[*ir.BasicBlock]*ir.BasicBlock) {
	for i := 0; i < cloned.NumOperands(); i++ {
		if nv, ok := values[cloned.Operand(i)]; ok {
			cloned.SetOperand(i, nv)
		}
	}
	switch v := cloned.(type) {
	case *ir.Br:
		v.Target = blocks[v.Target]
	case *ir.CondBr:
		v.True = blocks[v.True]
		v.False = blocks[v.False]
	case *ir.Switch:
		v.Default = blocks[v.Default]
		for i := range v.Cases {
			if nv, ok := values[v.Cases[i].Value]; ok {
				v.Cases[i].Value = nv
			}
			v.Cases[i].Block = blocks[v.Cases[i].Block]
		}
	case *ir.Phi:
		for i, pred := range v.Preds {
			v.Preds[i] = blocks[pred]
		}
	}
}
