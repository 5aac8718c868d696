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
package regalloc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/falcon-lang/falconc/internal/mir"
)

// twoBlockFunc builds:
//
//	entry: v0 = mov 1; br body
//	body:  v1 = add v0, v0; ret v1
//
// so v0 is live across the entry->body edge and v1 is only ever live
// within body.
func twoBlockFunc() (*mir.MIRFunction, mir.MachineOperand, mir.MachineOperand) {
	fn := mir.NewMIRFunction("f")
	entry := fn.NewBlock("entry")
	body := fn.NewBlock("body")

	v0 := fn.NewVReg(mir.ClassGPR, mir.Width64)
	fn.Emit(entry, mir.OpMove, v0, mir.Immediate(1, mir.Width64))
	fn.Emit(entry, mir.MIROp(2000), mir.MachineOperand{}, mir.Relocable("body", mir.Width64)).Flags |= mir.FlagTerminator

	v1 := fn.NewVReg(mir.ClassGPR, mir.Width64)
	fn.Emit(body, mir.MIROp(2001), v1, v0, v0)
	fn.Emit(body, mir.MIROp(2002), mir.MachineOperand{}, v1).Flags |= mir.FlagTerminator

	return fn, v0, v1
}

func TestComputeLivenessAcrossEdge(t *testing.T) {
	fn, v0, v1 := twoBlockFunc()
	lio := computeLiveness(fn)
	require.Len(t, lio, 2)

	entry, body := 0, 1
	require.True(t, lio[entry].out.IsSet(v0.Reg), "v0 must be live-out of entry")
	require.False(t, lio[entry].in.IsSet(v0.Reg), "v0 is defined in entry, not live-in")
	require.True(t, lio[body].in.IsSet(v0.Reg), "v0 must be live-in to body")
	require.False(t, lio[body].out.IsSet(v1.Reg), "v1 does not survive past its own block")
}

func TestBuildIntervalsSpansDefToUse(t *testing.T) {
	fn, v0, v1 := twoBlockFunc()
	lio := computeLiveness(fn)
	intervals := buildIntervals(fn, lio)

	iv0 := intervals[v0.Reg]
	require.NotNil(t, iv0)
	entryDef := fn.Blocks[0].Insts[0].Id
	bodyUse := fn.Blocks[1].Insts[0].Id
	require.True(t, iv0.cover(entryDef))
	require.True(t, iv0.cover(bodyUse))

	iv1 := intervals[v1.Reg]
	require.NotNil(t, iv1)
	require.False(t, iv1.cover(entryDef))
}
