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
)

func TestIntervalAddRangeMerges(t *testing.T) {
	iv := newInterval(0)
	iv.addRange(10, 12)
	iv.addRange(5, 9)
	require.Len(t, iv.Ranges, 1)
	require.Equal(t, Range{From: 5, To: 12}, iv.Ranges[0])
}

func TestIntervalAddRangeDisjointPrepends(t *testing.T) {
	iv := newInterval(0)
	iv.addRange(10, 12)
	iv.addRange(1, 2)
	require.Len(t, iv.Ranges, 2)
	require.Equal(t, Range{From: 1, To: 2}, iv.Ranges[0])
	require.Equal(t, Range{From: 10, To: 12}, iv.Ranges[1])
}

func TestIntervalCover(t *testing.T) {
	iv := newInterval(0)
	iv.addRange(4, 8)
	require.True(t, iv.cover(4))
	require.True(t, iv.cover(8))
	require.True(t, iv.cover(6))
	require.False(t, iv.cover(3))
	require.False(t, iv.cover(9))
}

func TestIntervalIntersect(t *testing.T) {
	a := newInterval(0)
	a.addRange(0, 5)
	b := newInterval(1)
	b.addRange(3, 10)
	require.Equal(t, 3, a.intersect(b))
	require.Equal(t, 3, b.intersect(a))

	c := newInterval(2)
	c.addRange(6, 10)
	require.Equal(t, -1, a.intersect(c))
}
