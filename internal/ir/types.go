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

import "fmt"

// TypeKind tags the variant of an interned IR Type. Types are sealed: the
// kind switch below is exhaustive and new variants are added here, not by
// embedding.
type TypeKind int

const (
	TypeVoid TypeKind = iota
	TypeInt
	TypeFloat
	TypePointer
	TypeLabel
	TypeArray
	TypeFunction
	TypeStruct
)

func (k TypeKind) String() string {
	switch k {
	case TypeVoid:
		return "void"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypePointer:
		return "pointer"
	case TypeLabel:
		return "label"
	case TypeArray:
		return "array"
	case TypeFunction:
		return "function"
	case TypeStruct:
		return "struct"
	default:
		return "<bad-type-kind>"
	}
}

// Type is an interned IR type. Pointer equality is semantic equality: two
// Types describing the same shape are always the same *Type value, per
// spec.md 3.1. Construct via Context methods, never with &Type{} directly.
type Type struct {
	kind TypeKind

	// Int
	width int // 1, 8 or 64

	// Array
	elem  *Type
	count int

	// Function
	ret    *Type
	params []*Type

	// Struct
	name   string
	fields []*Type
}

func (t *Type) Kind() TypeKind { return t.kind }

func (t *Type) IsVoid() bool     { return t.kind == TypeVoid }
func (t *Type) IsInt() bool      { return t.kind == TypeInt }
func (t *Type) IsBool() bool     { return t.kind == TypeInt && t.width == 1 }
func (t *Type) IsFloat() bool    { return t.kind == TypeFloat }
func (t *Type) IsPointer() bool  { return t.kind == TypePointer }
func (t *Type) IsLabel() bool    { return t.kind == TypeLabel }
func (t *Type) IsArray() bool    { return t.kind == TypeArray }
func (t *Type) IsFunction() bool { return t.kind == TypeFunction }
func (t *Type) IsStruct() bool   { return t.kind == TypeStruct }

// IntWidth returns the bit width of an Int type: 1 (bool), 8 or 64.
func (t *Type) IntWidth() int {
	if !t.IsInt() {
		panic("ir: IntWidth of non-int type")
	}
	return t.width
}

func (t *Type) Elem() *Type {
	if !t.IsArray() {
		panic("ir: Elem of non-array type")
	}
	return t.elem
}

func (t *Type) Count() int {
	if !t.IsArray() {
		panic("ir: Count of non-array type")
	}
	return t.count
}

func (t *Type) Params() []*Type {
	if !t.IsFunction() {
		panic("ir: Params of non-function type")
	}
	return t.params
}

func (t *Type) Ret() *Type {
	if !t.IsFunction() {
		panic("ir: Ret of non-function type")
	}
	return t.ret
}

func (t *Type) Fields() []*Type {
	if !t.IsStruct() {
		panic("ir: Fields of non-struct type")
	}
	return t.fields
}

func (t *Type) Name() string {
	if !t.IsStruct() {
		panic("ir: Name of non-struct type")
	}
	return t.name
}

// Size returns the storage size in bytes. Void and Function types have no
// size, per spec.md 3.1.
func (t *Type) Size() int {
	switch t.kind {
	case TypeInt:
		if t.width == 1 {
			return 1
		}
		return t.width / 8
	case TypeFloat:
		return 8
	case TypePointer, TypeLabel:
		return 8
	case TypeArray:
		return t.elem.Size() * t.count
	case TypeStruct:
		size := 0
		for _, f := range t.fields {
			size = align(size, f.Align()) + f.Size()
		}
		return align(size, t.Align())
	default:
		panic(fmt.Sprintf("ir: Size of %v has no defined size", t.kind))
	}
}

// Align returns the natural alignment in bytes.
func (t *Type) Align() int {
	switch t.kind {
	case TypeInt:
		if t.width == 1 {
			return 1
		}
		return t.width / 8
	case TypeFloat, TypePointer, TypeLabel:
		return 8
	case TypeArray:
		return t.elem.Align()
	case TypeStruct:
		max := 1
		for _, f := range t.fields {
			if a := f.Align(); a > max {
				max = a
			}
		}
		return max
	default:
		panic(fmt.Sprintf("ir: Align of %v has no defined alignment", t.kind))
	}
}

func align(offset, alignment int) int {
	return (offset + alignment - 1) &^ (alignment - 1)
}

func (t *Type) String() string {
	switch t.kind {
	case TypeVoid:
		return "void"
	case TypeInt:
		switch t.width {
		case 1:
			return "i1"
		case 8:
			return "i8"
		default:
			return "i64"
		}
	case TypeFloat:
		return "f64"
	case TypePointer:
		return "ptr"
	case TypeLabel:
		return "label"
	case TypeArray:
		return fmt.Sprintf("%v[%d]", t.elem, t.count)
	case TypeFunction:
		s := "("
		for i, p := range t.params {
			if i > 0 {
				s += ", "
			}
			s += p.String()
		}
		return fmt.Sprintf("%s%s)", t.ret, s)
	case TypeStruct:
		return t.name
	default:
		return "<bad-type>"
	}
}
