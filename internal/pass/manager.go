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
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/falcon-lang/falconc/internal/ir"
)

// FunctionPass runs on one function at a time and reports whether it
// changed the function (spec.md 4.3).
type FunctionPass interface {
	Name() string
	Requires() []Analysis
	Preserves() []AnalysisID
	RunOnFunction(fn *ir.Function, am *AnalysisManager) (changed bool, err error)
}

// ModulePass runs once over the whole module.
type ModulePass interface {
	Name() string
	RunOnModule(m *ir.Module, am *AnalysisManager) (changed bool, err error)
}

// Pipeline is an ordered list of passes, mixing ModulePass and FunctionPass,
// that runs against an AnalysisManager shared across the whole run. Falcon
// has no equivalent; OptimizeHIR just calls simplifyPhi/simplifyCFG/dce
// directly from Optimizer.Ideal.
type Pipeline struct {
	AM    *AnalysisManager
	Log   *logrus.Logger
	steps []interface{}
}

func NewPipeline(log *logrus.Logger) *Pipeline {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	return &Pipeline{AM: NewAnalysisManager(), Log: log}
}

// Add appends a pass to the pipeline. p must be a ModulePass or a
// FunctionPass.
func (pl *Pipeline) Add(p interface{}) {
	switch p.(type) {
	case ModulePass, FunctionPass:
		pl.steps = append(pl.steps, p)
	default:
		panic("pass: Add requires a ModulePass or FunctionPass")
	}
}

// RunModule executes every step of the pipeline in order against m. Per
// spec.md 4.3, the pipeline aborts on the first pass that returns a fatal
// error.
func (pl *Pipeline) RunModule(m *ir.Module) error {
	for _, step := range pl.steps {
		switch p := step.(type) {
		case ModulePass:
			changed, err := p.RunOnModule(m, pl.AM)
			if err != nil {
				return errors.Wrapf(err, "pass: module pass %q failed", p.Name())
			}
			pl.logResult(p.Name(), "<module>", changed)
		case FunctionPass:
			if err := pl.runFunctionPassOverModule(p, m); err != nil {
				return err
			}
		}
	}
	return nil
}

func (pl *Pipeline) runFunctionPassOverModule(p FunctionPass, m *ir.Module) error {
	for _, g := range m.Globals() {
		fn, ok := g.(*ir.Function)
		if !ok || fn.IsDeclaration() {
			continue
		}
		changed, err := pl.runFunctionPass(p, fn)
		if err != nil {
			return err
		}
		pl.logResult(p.Name(), fn.GlobalName(), changed)
	}
	return nil
}

func (pl *Pipeline) runFunctionPass(p FunctionPass, fn *ir.Function) (bool, error) {
	for _, req := range p.Requires() {
		if _, err := pl.AM.Get(fn, req); err != nil {
			// An unavailable analysis is an unmet precondition: the pass is
			// skipped for fn with a warning and the pipeline goes on.
			pl.Log.WithError(err).Warnf("pass: skipping %q on %s: analysis %q unavailable", p.Name(), fn.GlobalName(), req.ID())
			return false, nil
		}
	}
	changed, err := p.RunOnFunction(fn, pl.AM)
	if err != nil {
		return false, errors.Wrapf(err, "pass: function pass %q failed on %s", p.Name(), fn.GlobalName())
	}
	if changed {
		pl.AM.InvalidatePreserving(fn, p.Preserves())
	}
	return changed, nil
}

// RunToFixpoint repeatedly runs passes over fn, in order, until a full
// round completes with no pass reporting a change. This is the
// generalization of compile/ssa/optimize.go's Optimizer.Ideal, which loops
// simplifyPhi/simplifyCFG/dce the same way but as a fixed, unconfigurable
// triple.
func (pl *Pipeline) RunToFixpoint(fn *ir.Function, passes []FunctionPass) error {
	round := 0
	for {
		roundChanged := false
		for _, p := range passes {
			changed, err := pl.runFunctionPass(p, fn)
			if err != nil {
				return err
			}
			pl.logResult(p.Name(), fn.GlobalName(), changed)
			roundChanged = roundChanged || changed
		}
		round++
		if !roundChanged {
			pl.Log.WithFields(logrus.Fields{"function": fn.GlobalName(), "rounds": round}).Debug("pass: reached fixpoint")
			return nil
		}
	}
}

func (pl *Pipeline) logResult(passName, target string, changed bool) {
	pl.Log.WithFields(logrus.Fields{"pass": passName, "target": target, "changed": changed}).Debug("pass: ran")
}
