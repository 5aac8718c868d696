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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConstIntInterning(t *testing.T) {
	ctx := NewContext()
	i64 := ctx.Int64Type()
	a := ctx.ConstInt(i64, 42)
	b := ctx.ConstInt(i64, 42)
	c := ctx.ConstInt(i64, 43)

	require.Same(t, a, b)
	require.NotSame(t, a, c)
}

func TestConstFloatAndStringInterning(t *testing.T) {
	ctx := NewContext()
	f1 := ctx.ConstFloat(3.5)
	f2 := ctx.ConstFloat(3.5)
	require.Same(t, f1, f2)

	s1 := ctx.ConstString([]byte("hi"))
	s2 := ctx.ConstString([]byte("hi"))
	require.Same(t, s1, s2)
	require.NotSame(t, s1, ctx.ConstString([]byte("bye")))
}

func TestStructTypeNominalInterning(t *testing.T) {
	ctx := NewContext()
	fields1 := []*Type{ctx.Int64Type(), ctx.Int64Type()}
	fields2 := []*Type{ctx.ByteType()}

	s1 := ctx.StructType("Point", fields1)
	s2 := ctx.StructType("Point", fields2)
	require.Same(t, s1, s2, "struct types are interned by name, matching nominal typing")
}

func TestArrayTypeStructuralInterning(t *testing.T) {
	ctx := NewContext()
	a1 := ctx.ArrayType(ctx.Int64Type(), 4)
	a2 := ctx.ArrayType(ctx.Int64Type(), 4)
	a3 := ctx.ArrayType(ctx.Int64Type(), 5)

	require.Same(t, a1, a2)
	require.NotSame(t, a1, a3)
}

func TestTypeSizeAndAlign(t *testing.T) {
	ctx := NewContext()
	require.Equal(t, 1, ctx.BoolType().Size())
	require.Equal(t, 1, ctx.ByteType().Size())
	require.Equal(t, 8, ctx.Int64Type().Size())
	require.Equal(t, 8, ctx.PtrType().Size())

	arr := ctx.ArrayType(ctx.Int64Type(), 3)
	require.Equal(t, 24, arr.Size())

	require.Equal(t, 1, ctx.BoolType().Align())
	require.Equal(t, 8, ctx.Int64Type().Align())
	require.Equal(t, 8, arr.Align())
}
