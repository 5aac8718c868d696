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
package pass_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/falcon-lang/falconc/internal/ir"
	"github.com/falcon-lang/falconc/internal/pass"
)

// countdownPass reports changed once per call until budget reaches zero,
// simulating a transform that needs several rounds to reach fixpoint.
type countdownPass struct {
	name   string
	budget *int
	seen   *[]string
}

func (p *countdownPass) Name() string                    { return p.name }
func (p *countdownPass) Requires() []pass.Analysis       { return nil }
func (p *countdownPass) Preserves() []pass.AnalysisID    { return nil }
func (p *countdownPass) RunOnFunction(fn *ir.Function, am *pass.AnalysisManager) (bool, error) {
	*p.seen = append(*p.seen, p.name)
	if *p.budget <= 0 {
		return false, nil
	}
	*p.budget--
	return true, nil
}

type recordingModulePass struct {
	ran *bool
}

func (p recordingModulePass) Name() string { return "record" }
func (p recordingModulePass) RunOnModule(m *ir.Module, am *pass.AnalysisManager) (bool, error) {
	*p.ran = true
	return false, nil
}

func buildModule(t *testing.T) *ir.Module {
	ctx := ir.NewContext()
	i64 := ctx.Int64Type()
	m := ir.NewModule(ctx)
	fn, err := m.DeclareFunction("f", i64, nil, ir.External)
	require.NoError(t, err)
	b := ir.NewBuilder(ctx)
	entry := b.CreateBlock(fn, "entry")
	b.SetInsertAtEnd(entry)
	b.CreateRet(ctx.ConstInt(i64, 0))
	return m
}

func TestPipelineRunModuleRunsModuleAndFunctionPasses(t *testing.T) {
	m := buildModule(t)
	pl := pass.NewPipeline(nil)

	ran := false
	pl.Add(recordingModulePass{ran: &ran})

	budget := 0
	var seen []string
	pl.Add(&countdownPass{name: "once", budget: &budget, seen: &seen})

	require.NoError(t, pl.RunModule(m))
	require.True(t, ran)
	require.Equal(t, []string{"once"}, seen, "a declaration-free module must run the function pass exactly once per function")
}

func TestPipelineRunModuleSkipsDeclarations(t *testing.T) {
	ctx := ir.NewContext()
	i64 := ctx.Int64Type()
	m := ir.NewModule(ctx)
	_, err := m.DeclareFunction("decl_only", i64, nil, ir.External)
	require.NoError(t, err)

	pl := pass.NewPipeline(nil)
	budget := 0
	var seen []string
	pl.Add(&countdownPass{name: "p", budget: &budget, seen: &seen})

	require.NoError(t, pl.RunModule(m))
	require.Empty(t, seen, "a pure declaration has no body to run a function pass over")
}

func TestPipelineRunToFixpointLoopsUntilNoChange(t *testing.T) {
	ctx := ir.NewContext()
	i64 := ctx.Int64Type()
	m := ir.NewModule(ctx)
	fn, err := m.DeclareFunction("f", i64, nil, ir.External)
	require.NoError(t, err)
	b := ir.NewBuilder(ctx)
	entry := b.CreateBlock(fn, "entry")
	b.SetInsertAtEnd(entry)
	b.CreateRet(ctx.ConstInt(i64, 0))

	pl := pass.NewPipeline(nil)
	budget := 3
	var seen []string
	p := &countdownPass{name: "p", budget: &budget, seen: &seen}

	require.NoError(t, pl.RunToFixpoint(fn, []pass.FunctionPass{p}))
	// three rounds report changed, a fourth confirms no change and stops.
	require.Len(t, seen, 4)
	require.Equal(t, 0, budget)
}
