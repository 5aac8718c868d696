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

// DomTree is a dominance tree computed on demand (spec.md IR1: "a
// dominance tree is derivable on demand"), not cached on the function
// itself. Grounded on compile/ssa/domtree.go's BuildDomTree: iterative,
// O(n^2) fixed point over per-block dominator sets, which is simple,
// correct, and plenty fast for the function sizes this compiler targets.
type DomTree struct {
	Fn  *Function
	dom map[*BasicBlock]map[*BasicBlock]bool
}

// BuildDomTree computes the dominator sets of every reachable block in fn.
func BuildDomTree(fn *Function) *DomTree {
	entry := fn.Entry()
	all := fn.Blocks

	dt := &DomTree{Fn: fn, dom: make(map[*BasicBlock]map[*BasicBlock]bool, len(all))}
	universe := make(map[*BasicBlock]bool, len(all))
	for _, b := range all {
		universe[b] = true
	}
	for _, b := range all {
		if b == entry {
			dt.dom[b] = map[*BasicBlock]bool{entry: true}
		} else {
			dt.dom[b] = copySet(universe)
		}
	}

	preds := predecessorsOf(fn)

	changed := true
	for changed {
		changed = false
		for _, b := range all {
			if b == entry {
				continue
			}
			var merged map[*BasicBlock]bool
			for _, p := range preds[b] {
				if merged == nil {
					merged = copySet(dt.dom[p])
				} else {
					merged = intersect(merged, dt.dom[p])
				}
			}
			if merged == nil {
				merged = map[*BasicBlock]bool{}
			}
			merged[b] = true
			if !setEqual(merged, dt.dom[b]) {
				dt.dom[b] = merged
				changed = true
			}
		}
	}
	return dt
}

// predecessorsOf computes the predecessor lists of every block in fn by
// reading terminators, per spec.md 4.4. It is recomputed, never cached, so
// it is always consistent with the current terminators.
func predecessorsOf(fn *Function) map[*BasicBlock][]*BasicBlock {
	preds := make(map[*BasicBlock][]*BasicBlock)
	for _, b := range fn.Blocks {
		for _, s := range b.Successors() {
			preds[s] = append(preds[s], b)
		}
	}
	return preds
}

func copySet(s map[*BasicBlock]bool) map[*BasicBlock]bool {
	out := make(map[*BasicBlock]bool, len(s))
	for k := range s {
		out[k] = true
	}
	return out
}

func intersect(a, b map[*BasicBlock]bool) map[*BasicBlock]bool {
	out := make(map[*BasicBlock]bool)
	for k := range a {
		if b[k] {
			out[k] = true
		}
	}
	return out
}

func setEqual(a, b map[*BasicBlock]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

// Dominates reports whether a dominates b (reflexive: a dominates itself).
func (dt *DomTree) Dominates(a, b *BasicBlock) bool {
	return dt.dom[b][a]
}

// StrictlyDominates reports whether a dominates b and a != b.
func (dt *DomTree) StrictlyDominates(a, b *BasicBlock) bool {
	return a != b && dt.Dominates(a, b)
}

// ReversePostOrder returns fn's blocks in reverse postorder from the entry
// block, the linearization spec.md 4.9 step 1 and 4.6's worklist both
// require. Unreachable blocks are omitted.
func ReversePostOrder(fn *Function) []*BasicBlock {
	entry := fn.Entry()
	if entry == nil {
		return nil
	}
	visited := make(map[*BasicBlock]bool)
	var post []*BasicBlock
	var visit func(b *BasicBlock)
	visit = func(b *BasicBlock) {
		if visited[b] {
			return
		}
		visited[b] = true
		for _, s := range b.Successors() {
			visit(s)
		}
		post = append(post, b)
	}
	visit(entry)
	// reverse
	out := make([]*BasicBlock, len(post))
	for i, b := range post {
		out[len(post)-1-i] = b
	}
	return out
}
