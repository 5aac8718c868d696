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

import "github.com/falcon-lang/falconc/internal/ir"

// CFGInfoID is the AnalysisID of CFGAnalysis's result.
const CFGInfoID AnalysisID = "cfg"

// CFGInfo holds, for every block of a function, its predecessor and
// successor lists, read once from each block's terminator (spec.md 4.4).
// It is immutable once computed; any pass that changes a terminator must
// declare CFGInfoID NOT preserved so the AnalysisManager recomputes it.
type CFGInfo struct {
	Preds map[*ir.BasicBlock][]*ir.BasicBlock
	Succs map[*ir.BasicBlock][]*ir.BasicBlock
}

// CFGAnalysis computes CFGInfo for a function. Grounded on
// compile/ssa/domtree.go's style of walking fn.Blocks and reading
// terminators directly, generalized here into an Analysis under the pass
// manager instead of a free function called ad hoc from VerifyHIR.
type CFGAnalysis struct{}

func (CFGAnalysis) ID() AnalysisID { return CFGInfoID }

func (CFGAnalysis) Run(fn *ir.Function) (interface{}, error) {
	info := &CFGInfo{
		Preds: map[*ir.BasicBlock][]*ir.BasicBlock{},
		Succs: map[*ir.BasicBlock][]*ir.BasicBlock{},
	}
	for _, b := range fn.Blocks {
		info.Preds[b] = nil
	}
	for _, b := range fn.Blocks {
		succs := b.Successors()
		info.Succs[b] = succs
		for _, s := range succs {
			info.Preds[s] = append(info.Preds[s], b)
		}
	}
	return info, nil
}

// cfgInfoOf is a convenience wrapper used by the other C7 passes; it always
// requests CFGAnalysis through the shared AnalysisManager so a pass that
// preserved it gets the cached result.
func cfgInfoOf(am *AnalysisManager, fn *ir.Function) (*CFGInfo, error) {
	v, err := am.Get(fn, CFGAnalysis{})
	if err != nil {
		return nil, err
	}
	return v.(*CFGInfo), nil
}
