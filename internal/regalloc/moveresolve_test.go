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

func TestVregInfoRecordsClassAndWidth(t *testing.T) {
	fn, v0, v1 := twoBlockFunc()
	class, width := vregInfo(fn)

	require.Equal(t, mir.ClassGPR, class[v0.Reg])
	require.Equal(t, mir.Width64, width[v0.Reg])
	require.Equal(t, mir.ClassGPR, class[v1.Reg])
}

func TestRewriteOperandsAssignsStackSlotWhenUnallocated(t *testing.T) {
	fn, v0, _ := twoBlockFunc()
	classOf, widthOf := vregInfo(fn)
	results := map[mir.RegClass]*allocResult{
		mir.ClassGPR: {physReg: map[int]int{}}, // nothing allocated, everything spills
		mir.ClassFP:  {physReg: map[int]int{}},
	}
	rewriteOperands(fn, classOf, widthOf, results)

	mv := fn.Blocks[0].Insts[0]
	require.Equal(t, mir.OperandStackObject, mv.Result.Kind)
	_ = v0
}

func TestRewriteOperandsReusesSameSlotForRepeatedUses(t *testing.T) {
	fn, v0, _ := twoBlockFunc()
	classOf, widthOf := vregInfo(fn)
	results := map[mir.RegClass]*allocResult{
		mir.ClassGPR: {physReg: map[int]int{}},
		mir.ClassFP:  {physReg: map[int]int{}},
	}
	rewriteOperands(fn, classOf, widthOf, results)

	def := fn.Blocks[0].Insts[0].Result
	use := fn.Blocks[1].Insts[0].Args[0]
	require.Equal(t, mir.OperandStackObject, def.Kind)
	require.Equal(t, def.Slot, use.Slot)
	_ = v0
}

func TestCrossesCall(t *testing.T) {
	spanning := newInterval(0)
	spanning.addRange(0, 10)
	require.True(t, crossesCall(spanning, 5))

	before := newInterval(1)
	before.addRange(0, 3)
	require.False(t, crossesCall(before, 5))

	splitAcross := newInterval(2)
	splitAcross.Ranges = []Range{{From: 0, To: 2}, {From: 8, To: 10}}
	require.True(t, crossesCall(splitAcross, 5))
}

func TestToSet(t *testing.T) {
	s := toSet([]int{2, 4, 6})
	require.True(t, s[2])
	require.True(t, s[4])
	require.False(t, s[3])
}
