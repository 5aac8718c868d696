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

// Package irtext implements the deterministic textual form of internal/ir
// (spec.md 4.2, 6.2): Print renders a Module, Parse reads it back. The
// printer's naming style is grounded on compile/ssa/hir.go's Value/Block
// String() methods (vN/bN positional naming), generalized here into a
// two-level dictionary so that a chosen source name is preferred and only
// falls back to a positional one on collision.
package irtext

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/falcon-lang/falconc/internal/ir"
)

// namer assigns each Value a stable, collision-free textual name. Globals
// live in one dictionary, each function's locals (arguments, blocks,
// instructions) in their own, matching spec.md 4.2's "global map and a
// per-function local map".
type namer struct {
	used  map[string]bool
	names map[ir.Value]string
}

func newNamer() *namer {
	return &namer{used: map[string]bool{}, names: map[ir.Value]string{}}
}

func (n *namer) name(v ir.Value, preferred string) string {
	if got, ok := n.names[v]; ok {
		return got
	}
	base := preferred
	if base == "" {
		base = "v"
	}
	candidate := base
	suffix := 0
	for n.used[candidate] {
		suffix++
		candidate = fmt.Sprintf("%s.%d", base, suffix)
	}
	n.used[candidate] = true
	n.names[v] = candidate
	return candidate
}

// Print renders m in the textual form described by spec.md 6.2.
func Print(m *ir.Module) string {
	var sb strings.Builder
	global := newNamer()

	for _, g := range m.Globals() {
		switch v := g.(type) {
		case *ir.GlobalVariable:
			global.name(v, v.GlobalName())
		case *ir.Function:
			global.name(v, v.GlobalName())
		}
	}

	for _, g := range m.Globals() {
		switch v := g.(type) {
		case *ir.GlobalVariable:
			printGlobalVar(&sb, v)
		}
	}
	for _, g := range m.Globals() {
		if fn, ok := g.(*ir.Function); ok {
			printFunction(&sb, fn)
		}
	}
	return sb.String()
}

func printGlobalVar(sb *strings.Builder, g *ir.GlobalVariable) {
	if g.Initializer == nil {
		fmt.Fprintf(sb, "declare @%s %s\n", g.GlobalName(), g.ElemType.String())
		return
	}
	fmt.Fprintf(sb, "define %s @%s %s %s\n", g.GlobalLinkage(), g.GlobalName(), g.ElemType.String(), printConstant(g.Initializer))
}

func printConstant(c ir.Constant) string {
	switch v := c.(type) {
	case *ir.IntConst:
		return strconv.FormatInt(v.Val, 10)
	case *ir.FloatConst:
		return strconv.FormatFloat(v.Val, 'g', -1, 64)
	case *ir.StringConst:
		return strconv.Quote(string(v.Val))
	case *ir.ArrayConst:
		parts := make([]string, len(v.Elems))
		for i, e := range v.Elems {
			parts[i] = printConstant(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *ir.StructConst:
		parts := make([]string, len(v.Fields))
		for i, e := range v.Fields {
			parts[i] = printConstant(e)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case *ir.NullConst:
		return "null"
	default:
		return "null operand"
	}
}

func printFunction(sb *strings.Builder, fn *ir.Function) {
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = p.Type().String()
	}
	if fn.IsDeclaration() {
		fmt.Fprintf(sb, "declare @%s %s(%s)\n", fn.GlobalName(), fn.Ret.String(), strings.Join(params, ", "))
		return
	}
	fmt.Fprintf(sb, "define %s @%s %s(%s) {\n", fn.GlobalLinkage(), fn.GlobalName(), fn.Ret.String(), strings.Join(params, ", "))

	local := newNamer()
	for i, p := range fn.Params {
		name := p.Name
		if name == "" {
			name = strconv.Itoa(i)
		}
		local.name(p, name)
	}
	for _, b := range fn.Blocks {
		local.name(b, b.Name)
	}
	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions() {
			if inst.Name() != "" {
				local.name(inst, inst.Name())
			} else {
				local.name(inst, "v")
			}
		}
	}

	for _, b := range fn.Blocks {
		fmt.Fprintf(sb, "%s:\n", local.name(b, b.Name))
		for _, inst := range b.Instructions() {
			sb.WriteString("  ")
			sb.WriteString(printInstruction(inst, local))
			sb.WriteString("\n")
		}
	}
	sb.WriteString("}\n")
}

func operandString(v ir.Value, local *namer) string {
	switch x := v.(type) {
	case nil:
		return "null operand"
	case ir.Constant:
		return printConstant(x)
	case *ir.GlobalVariable:
		return "@" + x.GlobalName()
	case *ir.Function:
		return "@" + x.GlobalName()
	case *ir.Argument:
		return "%" + local.name(x, x.Name)
	case *ir.BasicBlock:
		return local.name(x, x.Name)
	case ir.Instruction:
		return "%" + local.name(x, x.Name())
	default:
		return "null operand"
	}
}

func printInstruction(inst ir.Instruction, local *namer) string {
	dest := ""
	if inst.Type() != nil && !inst.Type().IsVoid() {
		dest = "%" + local.name(inst, inst.Name()) + " = "
	}
	op := inst.Opcode().String()

	switch v := inst.(type) {
	case *ir.BinOp:
		return fmt.Sprintf("%s%s %s %s, %s", dest, op, v.Type().String(), operandString(v.Operand(0), local), operandString(v.Operand(1), local))
	case *ir.ICmp:
		return fmt.Sprintf("%s%s.%s %s %s, %s", dest, op, v.Pred.String(), v.Operand(0).Type().String(), operandString(v.Operand(0), local), operandString(v.Operand(1), local))
	case *ir.FCmp:
		return fmt.Sprintf("%s%s.%s %s %s, %s", dest, op, v.Pred.String(), v.Operand(0).Type().String(), operandString(v.Operand(0), local), operandString(v.Operand(1), local))
	case *ir.UnaryOp:
		return fmt.Sprintf("%s%s %s %s", dest, op, v.Type().String(), operandString(v.Operand(0), local))
	case *ir.Alloca:
		return fmt.Sprintf("%s%s %s, %d", dest, op, v.Elem.String(), v.Count)
	case *ir.Load:
		return fmt.Sprintf("%s%s %s %s", dest, op, v.Type().String(), operandString(v.Operand(0), local))
	case *ir.Store:
		return fmt.Sprintf("%s %s %s, %s", op, v.Operand(0).Type().String(), operandString(v.Operand(0), local), operandString(v.Operand(1), local))
	case *ir.Gep:
		idx := make([]string, len(v.Operands())-1)
		for i, o := range v.Operands()[1:] {
			idx[i] = operandString(o, local)
		}
		return fmt.Sprintf("%s%s %s %s, %s", dest, op, v.ElemType.String(), operandString(v.Operand(0), local), strings.Join(idx, ", "))
	case *ir.Cast:
		return fmt.Sprintf("%s%s %s %s to %s", dest, op, v.Operand(0).Type().String(), operandString(v.Operand(0), local), v.Type().String())
	case *ir.Br:
		return fmt.Sprintf("%s %s", op, local.name(v.Target, v.Target.Name))
	case *ir.CondBr:
		return fmt.Sprintf("%s %s, %s, %s", op, operandString(v.Operand(0), local), local.name(v.True, v.True.Name), local.name(v.False, v.False.Name))
	case *ir.Switch:
		cases := make([]string, len(v.Cases))
		for i, c := range v.Cases {
			cases[i] = fmt.Sprintf("%s: %s", operandString(c.Value, local), local.name(c.Block, c.Block.Name))
		}
		return fmt.Sprintf("%s %s, default %s [%s]", op, operandString(v.Operand(0), local), local.name(v.Default, v.Default.Name), strings.Join(cases, ", "))
	case *ir.Ret:
		if v.NumOperands() == 0 {
			return op
		}
		return fmt.Sprintf("%s %s %s", op, v.Operand(0).Type().String(), operandString(v.Operand(0), local))
	case *ir.Phi:
		parts := make([]string, len(v.Incoming()))
		for i, inc := range v.Incoming() {
			parts[i] = fmt.Sprintf("[%s, %s]", operandString(inc.Value, local), local.name(inc.Pred, inc.Pred.Name))
		}
		return fmt.Sprintf("%s%s %s %s", dest, op, v.Type().String(), strings.Join(parts, ", "))
	case *ir.Call:
		args := make([]string, len(v.Args()))
		for i, a := range v.Args() {
			args[i] = operandString(a, local)
		}
		return fmt.Sprintf("%s%s %s @%s(%s)", dest, op, v.Type().String(), v.Callee.GlobalName(), strings.Join(args, ", "))
	case *ir.Select:
		return fmt.Sprintf("%s%s %s, %s, %s", dest, op, operandString(v.Operand(0), local), operandString(v.Operand(1), local), operandString(v.Operand(2), local))
	default:
		return fmt.Sprintf("%s%s", dest, op)
	}
}
