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

// Value is anything an instruction operand can refer to: a Constant, a
// GlobalValue, an Argument, a BasicBlock, or an Instruction. Every Value has
// a stable identity, an IR Type, and a use list (spec.md 3.2).
type Value interface {
	Type() *Type
	Id() int

	// firstUse returns the head of this value's intrusive use list. Callers
	// outside this package use Uses() (a snapshot slice); the linked list
	// itself is private so only addUse/removeUse can mutate it.
	firstUse() *Use
	setFirstUse(*Use)
}

// Use is one operand slot referring to a Value. Uses form an intrusive
// doubly-linked list anchored at the Value they refer to (spec.md 9: "model
// uses as an intrusive doubly-linked list anchored at the defining value;
// each operand slot is a handle storing (user, slot_index, prev, next). No
// cyclic owning references: values own definitions, use slots are weak.").
// A Use does not own its User or its Def; removing a Use only unlinks it
// from the Def's list.
type Use struct {
	user Instruction
	slot int

	def *valueBase // owning value, nil once detached

	prev, next *Use
}

func (u *Use) User() Instruction { return u.user }
func (u *Use) Slot() int         { return u.slot }

// valueBase is embedded by every concrete Value implementation (constants,
// globals, arguments, basic blocks, instructions) and supplies the identity
// and use-list bookkeeping common to all of them — the "small interface for
// crosscutting capabilities" spec.md 9 asks for, realized here as a shared
// embedded struct rather than virtual dispatch.
type valueBase struct {
	id  int
	ty  *Type
	use *Use // head of the use list, or nil
}

func (v *valueBase) Type() *Type       { return v.ty }
func (v *valueBase) Id() int           { return v.id }
func (v *valueBase) firstUse() *Use    { return v.use }
func (v *valueBase) setFirstUse(u *Use) { v.use = u }

// Uses returns a snapshot of every Use currently referring to val. The
// returned slice is a copy; mutating the use graph (e.g. via
// ReplaceAllUsesWith) while iterating a previously taken snapshot is safe.
func Uses(val Value) []*Use {
	var out []*Use
	for u := val.firstUse(); u != nil; u = u.next {
		out = append(out, u)
	}
	return out
}

// NumUses returns the number of operand slots currently referring to val.
func NumUses(val Value) int {
	n := 0
	for u := val.firstUse(); u != nil; u = u.next {
		n++
	}
	return n
}

// addUse links a new use of def at (user, slot) into def's use list. It is
// called by Instruction operand setters, never directly by passes.
func addUse(def Value, user Instruction, slot int) *Use {
	vb := defBase(def)
	u := &Use{user: user, slot: slot, def: vb}
	u.next = vb.use
	if vb.use != nil {
		vb.use.prev = u
	}
	vb.use = u
	return u
}

// removeUse unlinks u from its def's use list. u.def is cleared so a
// double-remove is a safe no-op.
func removeUse(u *Use) {
	if u == nil || u.def == nil {
		return
	}
	if u.prev != nil {
		u.prev.next = u.next
	} else {
		u.def.use = u.next
	}
	if u.next != nil {
		u.next.prev = u.prev
	}
	u.def = nil
	u.prev = nil
	u.next = nil
}

// defBase extracts the shared valueBase from any Value implementation so
// the use-list helpers above can link/unlink without a type switch over
// every concrete Value kind.
func defBase(v Value) *valueBase {
	type based interface{ base() *valueBase }
	return v.(based).base()
}

func (v *valueBase) base() *valueBase { return v }

// ReplaceAllUsesWith rewrites every operand slot currently referring to old
// to refer to newVal instead, then empties old's use list (spec.md 4.1,
// P3). old's own definition is unchanged — only its uses move.
func ReplaceAllUsesWith(old, newVal Value) {
	if old == newVal {
		return
	}
	for u := old.firstUse(); u != nil; {
		next := u.next
		user := u.user
		user.SetOperand(u.slot, newVal)
		u = next
	}
}
