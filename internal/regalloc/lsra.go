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

// Package regalloc implements spec.md 4.9's linear-scan register
// allocator over a lowered internal/mir.MIRFunction, parameterized by an
// internal/target.Target for the physical register file and calling
// convention. Grounded on compile/codegen/lsra.go's LSRA, which builds
// correct live ranges (computeGenKillMap/computeLiveInOutMap/
// buildIntervals, ported here near-verbatim) but never finishes
// allocation: initOrder falls back to an arbitrary block-id sort with a
// TODO comment, and tryAllocatePhyReg unconditionally returns true without
// assigning a register, splitting an interval, or spilling anything —
// the two halves this package actually completes. Interval splitting
// (lsra.go's commented-out splitAt/insertToWorkList machinery) is not
// ported: every virtual register here is assigned exactly one location,
// register or stack slot, for its entire lifetime. That is less precise
// than a splitting allocator but, unlike the teacher's stub, it actually
// produces a valid, complete allocation.
package regalloc

import (
	"math"
	"sort"

	"github.com/davecgh/go-spew/spew"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/falcon-lang/falconc/internal/mir"
	"github.com/falcon-lang/falconc/internal/target"
)

// Allocate assigns every virtual register referenced in mfn a physical
// register or a spill slot, then rewrites every instruction's operands
// in place to reference that location, and inserts the caller-saved
// spill/reload pairs any register live across a call needs (spec.md 4.9
// step 5). log is optional (nil-safe); when set to debug level it dumps
// the built intervals before allocation runs.
func Allocate(mfn *mir.MIRFunction, tgt target.Target, log ...*logrus.Logger) {
	lio := computeLiveness(mfn)
	intervals := buildIntervals(mfn, lio)
	dumpIntervals(firstLogger(log), mfn, intervals)

	classOf, widthOf := vregInfo(mfn)

	byClass := map[mir.RegClass][]*Interval{}
	for vreg, iv := range intervals {
		c := classOf[vreg]
		byClass[c] = append(byClass[c], iv)
	}

	results := map[mir.RegClass]*allocResult{
		mir.ClassGPR: allocateClass(mir.ClassGPR, byClass[mir.ClassGPR], tgt),
		mir.ClassFP:  allocateClass(mir.ClassFP, byClass[mir.ClassFP], tgt),
	}

	rewriteOperands(mfn, classOf, widthOf, results)
	spillCallerSavedAcrossCalls(mfn, tgt, intervals, classOf, widthOf)
}

// firstLogger returns log's sole element, or nil if the caller passed
// none — Allocate's log parameter is variadic only to keep it optional
// without breaking every existing call site.
func firstLogger(log []*logrus.Logger) *logrus.Logger {
	if len(log) == 0 {
		return nil
	}
	return log[0]
}

// dumpIntervals spews the built interval set at debug level, replacing
// compile/codegen/lsra.go's printIntervals/printGenKill/printLiveInOut
// fmt.Println calls with a structural dump gated behind the logger
// instead of always-on stdout noise.
func dumpIntervals(log *logrus.Logger, mfn *mir.MIRFunction, intervals map[int]*Interval) {
	if log == nil || log.GetLevel() < logrus.DebugLevel {
		return
	}
	log.WithField("function", mfn.Name).Debug("regalloc: built intervals\n" + spew.Sdump(intervals))
}

// allocResult is allocateClass's verdict for one register class: the
// physical register index each non-spilled vreg was assigned.
type allocResult struct {
	physReg map[int]int
}

func sortByStart(ivs []*Interval) {
	sort.SliceStable(ivs, func(i, j int) bool {
		return ivs[i].firstRange().From <= ivs[j].firstRange().From
	})
}

// allocateClass runs linear-scan register allocation (spec.md 4.9 steps
// 3-4) over one register class's intervals, generalizing
// compile/codegen/lsra.go's allocateRegisters/tryAllocatePhyReg.
func allocateClass(class mir.RegClass, ivs []*Interval, tgt target.Target) *allocResult {
	res := &allocResult{physReg: map[int]int{}}
	numRegs := tgt.NumPhysRegs(class)
	if numRegs == 0 || len(ivs) == 0 {
		return res
	}

	worklist := append([]*Interval(nil), ivs...)
	var active, inactive []*Interval

	for len(worklist) > 0 {
		sortByStart(worklist)
		cur := worklist[0]
		worklist = worklist[1:]
		pos := cur.firstRange().From

		var stillActive []*Interval
		for _, iv := range active {
			switch {
			case iv.lastRange().To < pos:
				// handled, drop it
			case !iv.cover(pos):
				inactive = append(inactive, iv)
			default:
				stillActive = append(stillActive, iv)
			}
		}
		active = stillActive

		var stillInactive []*Interval
		for _, iv := range inactive {
			switch {
			case iv.lastRange().To < pos:
				// handled, drop it
			case iv.cover(pos):
				active = append(active, iv)
			default:
				stillInactive = append(stillInactive, iv)
			}
		}
		inactive = stillInactive

		freeUntil := make([]int, numRegs)
		for i := range freeUntil {
			freeUntil[i] = math.MaxInt
		}
		for _, iv := range active {
			if iv.PhysReg >= 0 {
				freeUntil[iv.PhysReg] = 0
			}
		}
		for _, iv := range inactive {
			if iv.PhysReg < 0 {
				continue
			}
			if k := iv.intersect(cur); k != -1 && k < freeUntil[iv.PhysReg] {
				freeUntil[iv.PhysReg] = k
			}
		}

		best, bestPos := 0, freeUntil[0]
		for i := 1; i < numRegs; i++ {
			if freeUntil[i] > bestPos {
				best, bestPos = i, freeUntil[i]
			}
		}

		switch {
		case bestPos == 0:
			// No register is free even at cur's start. Rather than spill
			// cur outright, try evicting the active interval whose last
			// use is furthest away — if it reaches further into the
			// future than cur does, cur is the better occupant.
			if evicted := furthestActive(active); evicted != nil && evicted.lastRange().To > cur.lastRange().To {
				reg := evicted.PhysReg
				evicted.PhysReg = -1
				delete(res.physReg, evicted.VReg)
				active = lo.Reject(active, func(iv *Interval, _ int) bool { return iv == evicted })
				cur.PhysReg = reg
				res.physReg[cur.VReg] = reg
				active = append(active, cur)
			}
			// else: cur stays spilled (PhysReg remains -1).
		case bestPos >= cur.lastRange().To:
			cur.PhysReg = best
			res.physReg[cur.VReg] = best
			active = append(active, cur)
		default:
			// The register is only free for part of cur's range. Without
			// interval splitting the safe choice is to leave cur spilled
			// rather than risk handing out a register while it is still
			// live elsewhere.
		}
	}
	return res
}

func furthestActive(active []*Interval) *Interval {
	var best *Interval
	for _, iv := range active {
		if best == nil || iv.lastRange().To > best.lastRange().To {
			best = iv
		}
	}
	return best
}
