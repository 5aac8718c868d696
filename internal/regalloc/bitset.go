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

import "github.com/bits-and-blooms/bitset"

// LiveSet is a fixed-size bit vector over virtual register ids, one per
// basic block, used for the gen/kill/live-in/live-out sets of spec.md
// 4.9's dataflow pass. Built on bits-and-blooms/bitset rather than
// hand-rolling a bitmap the way compile/codegen's utils.BitMap does;
// the mutator methods still report whether the set changed, so the
// fixpoint loop in liveness.go reads the same way lsra.go's does.
type LiveSet struct {
	bits *bitset.BitSet
}

func NewLiveSet(n int) *LiveSet {
	return &LiveSet{bits: bitset.New(uint(n))}
}

func (s *LiveSet) Set(i int)        { s.bits.Set(uint(i)) }
func (s *LiveSet) IsSet(i int) bool { return s.bits.Test(uint(i)) }
func (s *LiveSet) Len() int         { return int(s.bits.Len()) }

func (s *LiveSet) Copy() *LiveSet { return &LiveSet{bits: s.bits.Clone()} }

// Unite computes s |= o, reporting whether s changed.
func (s *LiveSet) Unite(o *LiveSet) bool {
	before := s.bits.Clone()
	s.bits.InPlaceUnion(o.bits)
	return !before.Equal(s.bits)
}

// Remove computes s &^= o, reporting whether s changed.
func (s *LiveSet) Remove(o *LiveSet) bool {
	before := s.bits.Clone()
	s.bits.InPlaceDifference(o.bits)
	return !before.Equal(s.bits)
}

// SetFrom overwrites s with a copy of o, reporting whether s changed.
func (s *LiveSet) SetFrom(o *LiveSet) bool {
	if s.bits.Equal(o.bits) {
		return false
	}
	s.bits = o.bits.Clone()
	return true
}
