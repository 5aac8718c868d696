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

// Package ir implements the SSA intermediate representation: its interned
// type system, values and use graph, instructions and control-flow graph,
// and the builder used to construct and mutate them.
package ir

import (
	"fmt"
	"strings"
)

// Context owns all interned types and constants for one compilation. A
// Context is mutated only during IR construction; it tolerates concurrent
// readers but assumes a single writer, per spec.md 5 — there is no internal
// locking.
type Context struct {
	voidTy *Type
	i1     *Type
	i8     *Type
	i64    *Type
	f64    *Type
	ptr    *Type
	label  *Type

	arrays    map[arrayKey]*Type
	functions map[string]*Type
	structs   map[string]*Type

	constants map[string]Constant
}

type arrayKey struct {
	elem  *Type
	count int
}

// NewContext creates a Context with the primitive types pre-interned.
func NewContext() *Context {
	c := &Context{
		arrays:    make(map[arrayKey]*Type),
		functions: make(map[string]*Type),
		structs:   make(map[string]*Type),
		constants: make(map[string]Constant),
	}
	c.voidTy = &Type{kind: TypeVoid}
	c.i1 = &Type{kind: TypeInt, width: 1}
	c.i8 = &Type{kind: TypeInt, width: 8}
	c.i64 = &Type{kind: TypeInt, width: 64}
	c.f64 = &Type{kind: TypeFloat}
	c.ptr = &Type{kind: TypePointer}
	c.label = &Type{kind: TypeLabel}
	return c
}

func (c *Context) VoidType() *Type  { return c.voidTy }
func (c *Context) BoolType() *Type  { return c.i1 }
func (c *Context) ByteType() *Type  { return c.i8 }
func (c *Context) Int64Type() *Type { return c.i64 }
func (c *Context) FloatType() *Type { return c.f64 }
func (c *Context) PtrType() *Type   { return c.ptr }
func (c *Context) LabelType() *Type { return c.label }

// IntType returns the interned Int type of the given width. Widths beyond
// {1, 8, 64} are a compatible extension the source language does not use
// (spec.md 9, Open Questions) and are rejected here.
func (c *Context) IntType(width int) *Type {
	switch width {
	case 1:
		return c.i1
	case 8:
		return c.i8
	case 64:
		return c.i64
	default:
		panic(fmt.Sprintf("ir: unsupported integer width %d", width))
	}
}

func (c *Context) ArrayType(elem *Type, count int) *Type {
	key := arrayKey{elem, count}
	if t, ok := c.arrays[key]; ok {
		return t
	}
	t := &Type{kind: TypeArray, elem: elem, count: count}
	c.arrays[key] = t
	return t
}

func (c *Context) FunctionType(ret *Type, params []*Type) *Type {
	key := funcKey(ret, params)
	if t, ok := c.functions[key]; ok {
		return t
	}
	t := &Type{kind: TypeFunction, ret: ret, params: params}
	c.functions[key] = t
	return t
}

func funcKey(ret *Type, params []*Type) string {
	var b strings.Builder
	b.WriteString(ret.String())
	for _, p := range params {
		b.WriteByte(',')
		b.WriteString(p.String())
	}
	return b.String()
}

// StructType interns a named struct type. Structs are named nominally (two
// calls with the same name return the same Type even if fields differ in a
// later call) matching spec.md 3.1's "Struct(fields[], name)" and IR5's
// module-wide name uniqueness expectation for globals extended to type
// names.
func (c *Context) StructType(name string, fields []*Type) *Type {
	if t, ok := c.structs[name]; ok {
		return t
	}
	t := &Type{kind: TypeStruct, name: name, fields: fields}
	c.structs[name] = t
	return t
}
