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

// Package pass implements the pass manager (spec.md 4.3): ModulePass and
// FunctionPass run under a Pipeline, with an AnalysisManager caching
// per-function analysis results keyed by a static identity token. Falcon
// itself has no such abstraction (compile/ssa/optimize.go's Optimizer.Ideal
// just calls a fixed list of functions); this package generalizes Ideal's
// run-to-fixpoint shape into a reusable pipeline.
package pass

import (
	"github.com/samber/lo"

	"github.com/falcon-lang/falconc/internal/ir"
)

// AnalysisID identifies an Analysis's result in the AnalysisManager's cache.
// Two Analysis values with the same ID are considered the same analysis for
// caching purposes.
type AnalysisID string

// Analysis is a pure function of a Function's IR (spec.md 4.3: "analyses
// are pure functions of the IR; caching across an unchanged function is
// sound"). Run must not mutate fn.
type Analysis interface {
	ID() AnalysisID
	Run(fn *ir.Function) (interface{}, error)
}

// AnalysisManager caches, per function, the result of each Analysis that
// has been requested so far. A transform pass that reports changed = true
// invalidates every cached analysis for that function unless it declares
// specific AnalysisIDs preserved.
type AnalysisManager struct {
	cache map[*ir.Function]map[AnalysisID]interface{}
}

func NewAnalysisManager() *AnalysisManager {
	return &AnalysisManager{cache: map[*ir.Function]map[AnalysisID]interface{}{}}
}

// Get returns a's cached result for fn, computing it on demand if absent.
func (am *AnalysisManager) Get(fn *ir.Function, a Analysis) (interface{}, error) {
	perFn, ok := am.cache[fn]
	if !ok {
		perFn = map[AnalysisID]interface{}{}
		am.cache[fn] = perFn
	}
	if result, ok := perFn[a.ID()]; ok {
		return result, nil
	}
	result, err := a.Run(fn)
	if err != nil {
		return nil, err
	}
	perFn[a.ID()] = result
	return result, nil
}

// Invalidate drops every cached analysis for fn.
func (am *AnalysisManager) Invalidate(fn *ir.Function) {
	delete(am.cache, fn)
}

// InvalidatePreserving drops every cached analysis for fn except those
// whose ID appears in keep.
func (am *AnalysisManager) InvalidatePreserving(fn *ir.Function, keep []AnalysisID) {
	perFn, ok := am.cache[fn]
	if !ok {
		return
	}
	if len(keep) == 0 {
		delete(am.cache, fn)
		return
	}
	for id := range perFn {
		if !lo.Contains(keep, id) {
			delete(perFn, id)
		}
	}
}
