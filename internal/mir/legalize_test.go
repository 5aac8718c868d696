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
package mir_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/falcon-lang/falconc/internal/mir"
	"github.com/falcon-lang/falconc/internal/target/x64"
)

func TestLegalizeSplitsMemoryMemoryOperands(t *testing.T) {
	fn := mir.NewMIRFunction("f")
	b := fn.NewBlock("entry")
	tgt := x64.New()

	dst := mir.StackObject(fn.NewStackSlot(), mir.Width64)
	src := mir.StackObject(fn.NewStackSlot(), mir.Width64)
	fn.Emit(b, x64.OpAddX, dst, dst, src)

	require.NoError(t, mir.Legalize(fn, tgt, tgt))

	mi := b.Insts[len(b.Insts)-1]
	require.False(t, mi.Args[1].IsStack(), "second stack operand must be rematerialized through a scratch register")
}

func TestLegalizeLeavesSingleStackOperandAlone(t *testing.T) {
	fn := mir.NewMIRFunction("f")
	b := fn.NewBlock("entry")
	tgt := x64.New()

	dst := mir.StackObject(fn.NewStackSlot(), mir.Width64)
	imm := mir.Immediate(1, mir.Width64)
	fn.Emit(b, x64.OpAddX, dst, dst, imm)

	require.NoError(t, mir.Legalize(fn, tgt, tgt))
	require.Len(t, b.Insts, 1, "one stack operand needs no splitting")
}
