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

func TestLiveSetUniteReportsChange(t *testing.T) {
	a := NewLiveSet(8)
	a.Set(1)
	b := NewLiveSet(8)
	b.Set(1)
	b.Set(3)

	require.True(t, a.Unite(b))
	require.True(t, a.IsSet(3))
	require.False(t, a.Unite(b))
}

func TestLiveSetRemoveReportsChange(t *testing.T) {
	a := NewLiveSet(8)
	a.Set(2)
	a.Set(5)
	b := NewLiveSet(8)
	b.Set(5)

	require.True(t, a.Remove(b))
	require.True(t, a.IsSet(2))
	require.False(t, a.IsSet(5))
	require.False(t, a.Remove(b))
}

func TestLiveSetSetFromReportsChange(t *testing.T) {
	a := NewLiveSet(8)
	a.Set(0)
	b := NewLiveSet(8)
	b.Set(4)

	require.True(t, a.SetFrom(b))
	require.True(t, a.IsSet(4))
	require.False(t, a.IsSet(0))
	require.False(t, a.SetFrom(b))
}

func TestLiveSetCopyIsIndependent(t *testing.T) {
	a := NewLiveSet(4)
	a.Set(1)
	c := a.Copy()
	c.Set(2)
	require.False(t, a.IsSet(2))
	require.True(t, c.IsSet(1))
}
