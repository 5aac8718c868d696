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

import (
	"fmt"
	"math"
)

// Constant is the sealed interface for the five constant variants of
// spec.md 3.2. Integer, float, string and null constants are interned
// within a Context: two calls that build an equal one return the identical
// Value. ConstArray and ConstStruct are not interned; each call returns a
// new value even for equal elements.
type Constant interface {
	Value
	isConstant()
}

type constBase struct {
	valueBase
}

func (c *constBase) isConstant() {}

// IntConst is an integer constant of a fixed width (spec.md: Int(i64, width)).
type IntConst struct {
	constBase
	Val int64
}

// FloatConst is a 64-bit floating point constant.
type FloatConst struct {
	constBase
	Val float64
}

// StringConst is a byte-string constant; it lowers to a rodata global
// (internal/mir) rather than a runtime-allocated object — see SPEC_FULL.md
// section 4 for why the managed-runtime convention of the teacher compiler
// is not carried over.
type StringConst struct {
	constBase
	Val []byte
}

// ArrayConst is a fixed-size aggregate of element constants.
type ArrayConst struct {
	constBase
	Elems []Constant
}

// StructConst is a fixed-shape aggregate of field constants, resolving
// spec.md 9's open question on struct-typed initializers (SPEC_FULL.md
// section 5): implemented as a straightforward recursive extension of
// ArrayConst's shape.
type StructConst struct {
	constBase
	Fields []Constant
}

// NullConst is the null pointer constant of a given pointer (or array, or
// struct) type.
type NullConst struct {
	constBase
}

func (c *Context) ConstInt(ty *Type, v int64) *IntConst {
	key := fmt.Sprintf("i:%s:%d", ty, v)
	if existing, ok := c.constants[key]; ok {
		return existing.(*IntConst)
	}
	ic := &IntConst{Val: v}
	ic.ty = ty
	c.constants[key] = ic
	return ic
}

func (c *Context) ConstBool(v bool) *IntConst {
	if v {
		return c.ConstInt(c.i1, 1)
	}
	return c.ConstInt(c.i1, 0)
}

func (c *Context) ConstFloat(v float64) *FloatConst {
	key := fmt.Sprintf("f:%s", math.Float64bits(v))
	if existing, ok := c.constants[key]; ok {
		return existing.(*FloatConst)
	}
	fc := &FloatConst{Val: v}
	fc.ty = c.f64
	c.constants[key] = fc
	return fc
}

func (c *Context) ConstString(v []byte) *StringConst {
	key := fmt.Sprintf("s:%s", v)
	if existing, ok := c.constants[key]; ok {
		return existing.(*StringConst)
	}
	sc := &StringConst{Val: append([]byte(nil), v...)}
	sc.ty = c.ptr
	c.constants[key] = sc
	return sc
}

func (c *Context) ConstArray(ty *Type, elems []Constant) *ArrayConst {
	ac := &ArrayConst{Elems: elems}
	ac.ty = ty
	return ac
}

func (c *Context) ConstStruct(ty *Type, fields []Constant) *StructConst {
	sc := &StructConst{Fields: fields}
	sc.ty = ty
	return sc
}

func (c *Context) ConstNull(ty *Type) *NullConst {
	key := fmt.Sprintf("n:%s", ty)
	if existing, ok := c.constants[key]; ok {
		return existing.(*NullConst)
	}
	nc := &NullConst{}
	nc.ty = ty
	c.constants[key] = nc
	return nc
}
