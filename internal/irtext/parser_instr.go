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
package irtext

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/falcon-lang/falconc/internal/ir"
)

var binops = map[string]ir.Opcode{
	"add": ir.OpAdd, "sub": ir.OpSub, "mul": ir.OpMul, "udiv": ir.OpUDiv, "urem": ir.OpURem,
	"and": ir.OpAnd, "or": ir.OpOr, "xor": ir.OpXor, "shl": ir.OpShl, "lshr": ir.OpLShr, "ashr": ir.OpAShr,
	"fadd": ir.OpFAdd, "fsub": ir.OpFSub, "fmul": ir.OpFMul, "fdiv": ir.OpFDiv,
}

var unops = map[string]ir.Opcode{"neg": ir.OpNeg, "not": ir.OpNot, "fneg": ir.OpFNeg}

var castops = map[string]ir.Opcode{
	"zext": ir.OpZExt, "sext": ir.OpSExt, "trunc": ir.OpTrunc,
	"fptosi": ir.OpFPToSI, "sitofp": ir.OpSIToFP, "uitofp": ir.OpUIToFP, "fptoui": ir.OpFPToUI,
	"fpext": ir.OpFPExt, "fptrunc": ir.OpFPTrunc,
}

var predNames = map[string]ir.Predicate{
	"eq": ir.PredEQ, "ne": ir.PredNE, "lt": ir.PredLT, "le": ir.PredLE, "gt": ir.PredGT, "ge": ir.PredGE,
}

// lookaheadIsAssign reports whether the current '%name' token is
// immediately followed by '=' (a destination assignment), without consuming.
func (p *parser) lookaheadIsAssign() bool {
	save := *p.lx
	t, err := p.lx.next()
	*p.lx = save
	return err == nil && t.kind == tokPunct && t.text == "="
}

func (p *parser) parseInstruction() error {
	dest := ""
	if p.tok.kind == tokIdent && strings.HasPrefix(p.tok.text, "%") && p.lookaheadIsAssign() {
		dest = strings.TrimPrefix(p.tok.text, "%")
		if err := p.advance(); err != nil {
			return err
		}
		if err := p.expectPunct("="); err != nil {
			return err
		}
	}

	mnemonic := p.tok.text
	if err := p.advance(); err != nil {
		return err
	}

	switch {
	case mnemonic == "br":
		return p.parseBr()
	case mnemonic == "switch":
		return p.parseSwitch()
	case mnemonic == "ret":
		return p.parseRet()
	case mnemonic == "phi":
		return p.parsePhi(dest)
	case mnemonic == "call":
		return p.parseCall(dest)
	case mnemonic == "select":
		return p.parseSelect(dest)
	case mnemonic == "alloca":
		return p.parseAlloca(dest)
	case mnemonic == "load":
		return p.parseLoad(dest)
	case mnemonic == "store":
		return p.parseStore()
	case mnemonic == "gep":
		return p.parseGep(dest)
	case strings.HasPrefix(mnemonic, "icmp."):
		return p.parseCmp(dest, predNames[strings.TrimPrefix(mnemonic, "icmp.")], false)
	case strings.HasPrefix(mnemonic, "fcmp."):
		return p.parseCmp(dest, predNames[strings.TrimPrefix(mnemonic, "fcmp.")], true)
	case castops[mnemonic] != 0 || mnemonic == "zext":
		return p.parseCast(dest, castops[mnemonic])
	case unops[mnemonic] != 0 || mnemonic == "neg":
		return p.parseUnary(dest, unops[mnemonic])
	default:
		if op, ok := binops[mnemonic]; ok {
			return p.parseBinOp(dest, op)
		}
		return errors.Errorf("irtext: line %d: unknown opcode %q", p.tok.line, mnemonic)
	}
}

func (p *parser) parseType() (*ir.Type, error) {
	base, err := p.parseBaseType()
	if err != nil {
		return nil, err
	}
	// T[N]: an array of base, regardless of whether base was a primitive,
	// struct, or itself an array (nested arrays reparse left-to-right).
	for p.tok.kind == tokPunct && p.tok.text == "[" {
		if err := p.advance(); err != nil {
			return nil, err
		}
		n, err := strconv.Atoi(p.tok.text)
		if err != nil {
			return nil, err
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expectPunct("]"); err != nil {
			return nil, err
		}
		base = p.ctx.ArrayType(base, n)
	}
	return base, nil
}

func (p *parser) parseBaseType() (*ir.Type, error) {
	if p.tok.kind != tokIdent {
		return nil, errors.Errorf("irtext: line %d: expected type, got %q", p.tok.line, p.tok.text)
	}
	name := p.tok.text
	if err := p.advance(); err != nil {
		return nil, err
	}
	switch name {
	case "void":
		return p.ctx.VoidType(), nil
	case "i1":
		return p.ctx.BoolType(), nil
	case "i8":
		return p.ctx.ByteType(), nil
	case "i64":
		return p.ctx.Int64Type(), nil
	case "f64":
		return p.ctx.FloatType(), nil
	case "ptr":
		return p.ctx.PtrType(), nil
	case "label":
		return p.ctx.LabelType(), nil
	default:
		return p.ctx.StructType(name, nil), nil
	}
}

func (p *parser) parseConstant(ty *ir.Type) (ir.Constant, error) {
	switch {
	case p.tok.kind == tokNumber || (p.tok.kind == tokIdent && isNumericText(p.tok.text)):
		text := p.tok.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		if ty != nil && ty.IsFloat() {
			f, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, err
			}
			return p.ctx.ConstFloat(f), nil
		}
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, err
		}
		return p.ctx.ConstInt(ty, n), nil
	case p.tok.kind == tokString:
		v := p.tok.text
		return v2(p, p.ctx.ConstString([]byte(v)))
	case p.atIdent("null"):
		return v2(p, p.ctx.ConstNull(ty))
	case p.tok.kind == tokPunct && p.tok.text == "[":
		if err := p.advance(); err != nil {
			return nil, err
		}
		var elems []ir.Constant
		for !(p.tok.kind == tokPunct && p.tok.text == "]") {
			c, err := p.parseConstant(ty.Elem())
			if err != nil {
				return nil, err
			}
			elems = append(elems, c)
			if p.tok.kind == tokPunct && p.tok.text == "," {
				if err := p.advance(); err != nil {
					return nil, err
				}
			}
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return p.ctx.ConstArray(ty, elems), nil
	default:
		return nil, errors.Errorf("irtext: line %d: expected constant, got %q", p.tok.line, p.tok.text)
	}
}

func v2(p *parser, c ir.Constant) (ir.Constant, error) {
	return c, p.advance()
}

func isNumericText(s string) bool {
	if s == "" {
		return false
	}
	i := 0
	if s[0] == '-' {
		i = 1
	}
	if i >= len(s) {
		return false
	}
	for ; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			if s[i] == '.' {
				continue
			}
			return false
		}
	}
	return true
}

// resolveOperand reads one operand token (a %value, @global, numeric or
// string literal constant, or "null") and returns the corresponding Value.
// ty, when non-nil, types an otherwise bare numeric/null literal.
func (p *parser) resolveOperand(ty *ir.Type) (ir.Value, error) {
	switch {
	case p.tok.kind == tokIdent && strings.HasPrefix(p.tok.text, "%"):
		name := p.tok.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		v, ok := p.values[name]
		if !ok {
			return nil, errors.Errorf("irtext: undefined value %q", name)
		}
		return v, nil
	case p.tok.kind == tokIdent && strings.HasPrefix(p.tok.text, "@"):
		name := strings.TrimPrefix(p.tok.text, "@")
		if err := p.advance(); err != nil {
			return nil, err
		}
		g, ok := p.m.Lookup(name)
		if !ok {
			return nil, errors.Errorf("irtext: undefined global %q", name)
		}
		return g, nil
	case p.atIdent("null"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		return p.ctx.ConstNull(ty), nil
	case p.tok.kind == tokString:
		v := p.tok.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		return p.ctx.ConstString([]byte(v)), nil
	default:
		return p.parseConstant(ty)
	}
}

func (p *parser) def(name string, v ir.Value) { p.values["%"+name] = v }

func (p *parser) parseBinOp(dest string, op ir.Opcode) error {
	ty, err := p.parseType()
	if err != nil {
		return err
	}
	lhs, err := p.resolveOperand(ty)
	if err != nil {
		return err
	}
	if err := p.expectPunct(","); err != nil {
		return err
	}
	rhs, err := p.resolveOperand(ty)
	if err != nil {
		return err
	}
	v := p.b.CreateBinOp(op, lhs, rhs, dest)
	p.def(dest, v)
	return nil
}

func (p *parser) parseUnary(dest string, op ir.Opcode) error {
	ty, err := p.parseType()
	if err != nil {
		return err
	}
	x, err := p.resolveOperand(ty)
	if err != nil {
		return err
	}
	v := p.b.CreateUnaryOp(op, x, dest)
	p.def(dest, v)
	return nil
}

func (p *parser) parseCmp(dest string, pred ir.Predicate, isFloat bool) error {
	ty, err := p.parseType()
	if err != nil {
		return err
	}
	lhs, err := p.resolveOperand(ty)
	if err != nil {
		return err
	}
	if err := p.expectPunct(","); err != nil {
		return err
	}
	rhs, err := p.resolveOperand(ty)
	if err != nil {
		return err
	}
	var v ir.Value
	if isFloat {
		v = p.b.CreateFCmp(pred, lhs, rhs, dest)
	} else {
		v = p.b.CreateICmp(pred, lhs, rhs, dest)
	}
	p.def(dest, v)
	return nil
}

func (p *parser) parseAlloca(dest string) error {
	ty, err := p.parseType()
	if err != nil {
		return err
	}
	if err := p.expectPunct(","); err != nil {
		return err
	}
	n, err := strconv.Atoi(p.tok.text)
	if err != nil {
		return err
	}
	if err := p.advance(); err != nil {
		return err
	}
	v := p.b.CreateAlloca(ty, n, dest)
	p.def(dest, v)
	return nil
}

func (p *parser) parseLoad(dest string) error {
	ty, err := p.parseType()
	if err != nil {
		return err
	}
	ptr, err := p.resolveOperand(p.ctx.PtrType())
	if err != nil {
		return err
	}
	v := p.b.CreateLoad(ty, ptr, dest)
	p.def(dest, v)
	return nil
}

func (p *parser) parseStore() error {
	ty, err := p.parseType()
	if err != nil {
		return err
	}
	val, err := p.resolveOperand(ty)
	if err != nil {
		return err
	}
	if err := p.expectPunct(","); err != nil {
		return err
	}
	ptr, err := p.resolveOperand(p.ctx.PtrType())
	if err != nil {
		return err
	}
	p.b.CreateStore(val, ptr)
	return nil
}

func (p *parser) parseGep(dest string) error {
	elemTy, err := p.parseType()
	if err != nil {
		return err
	}
	base, err := p.resolveOperand(p.ctx.PtrType())
	if err != nil {
		return err
	}
	var indices []ir.Value
	for p.tok.kind == tokPunct && p.tok.text == "," {
		if err := p.advance(); err != nil {
			return err
		}
		idx, err := p.resolveOperand(p.ctx.Int64Type())
		if err != nil {
			return err
		}
		indices = append(indices, idx)
	}
	v := p.b.CreateGep(elemTy, base, indices, dest)
	p.def(dest, v)
	return nil
}

func (p *parser) parseCast(dest string, op ir.Opcode) error {
	fromTy, err := p.parseType()
	if err != nil {
		return err
	}
	x, err := p.resolveOperand(fromTy)
	if err != nil {
		return err
	}
	if err := p.expectIdent("to"); err != nil {
		return err
	}
	toTy, err := p.parseType()
	if err != nil {
		return err
	}
	v := p.b.CreateCast(op, x, toTy, dest)
	p.def(dest, v)
	return nil
}

func (p *parser) blockRef(name string) (*ir.BasicBlock, error) {
	bb, ok := p.blocks[name]
	if !ok {
		return nil, errors.Errorf("irtext: undefined block %q", name)
	}
	return bb, nil
}

// parseBr handles both `br label` (unconditional) and
// `br %cond, trueLabel, falseLabel` (conditional); both print with the
// mnemonic "br" (opcodeNames maps OpCondBr to the same text as OpBr), so
// the parser disambiguates by whether a comma follows the first operand.
func (p *parser) parseBr() error {
	first := p.tok.text
	if err := p.advance(); err != nil {
		return err
	}
	if p.tok.kind == tokPunct && p.tok.text == "," {
		// conditional: first was the cond operand's leading token, already
		// consumed; resolve it via valueFromText rather than re-lexing it.
		cond, err := p.valueFromText(first, p.ctx.BoolType())
		if err != nil {
			return err
		}
		if err := p.advance(); err != nil { // consume ","
			return err
		}
		trueName := p.tok.text
		if err := p.advance(); err != nil {
			return err
		}
		if err := p.expectPunct(","); err != nil {
			return err
		}
		falseName := p.tok.text
		if err := p.advance(); err != nil {
			return err
		}
		trueBB, err := p.blockRef(trueName)
		if err != nil {
			return err
		}
		falseBB, err := p.blockRef(falseName)
		if err != nil {
			return err
		}
		p.b.CreateCondBr(cond, trueBB, falseBB)
		return nil
	}
	bb, err := p.blockRef(first)
	if err != nil {
		return err
	}
	p.b.CreateBr(bb)
	return nil
}

// valueFromText resolves an operand already consumed as raw text (name),
// typing a bare numeric/null literal as ty. Used where the grammar needs one
// token of extra lookahead beyond what resolveOperand assumes (the current
// token when called is already the token *after* name).
func (p *parser) valueFromText(name string, ty *ir.Type) (ir.Value, error) {
	switch {
	case strings.HasPrefix(name, "%"):
		v, ok := p.values[name]
		if !ok {
			return nil, errors.Errorf("irtext: undefined value %q", name)
		}
		return v, nil
	case strings.HasPrefix(name, "@"):
		g, ok := p.m.Lookup(strings.TrimPrefix(name, "@"))
		if !ok {
			return nil, errors.Errorf("irtext: undefined global %q", name)
		}
		return g, nil
	case name == "null":
		return p.ctx.ConstNull(ty), nil
	default:
		if ty != nil && ty.IsFloat() {
			f, err := strconv.ParseFloat(name, 64)
			if err != nil {
				return nil, err
			}
			return p.ctx.ConstFloat(f), nil
		}
		n, err := strconv.ParseInt(name, 10, 64)
		if err != nil {
			return nil, err
		}
		return p.ctx.ConstInt(ty, n), nil
	}
}

func (p *parser) parseSwitch() error {
	cond, err := p.resolveOperand(p.ctx.Int64Type())
	if err != nil {
		return err
	}
	if err := p.expectPunct(","); err != nil {
		return err
	}
	if err := p.expectIdent("default"); err != nil {
		return err
	}
	defName := p.tok.text
	if err := p.advance(); err != nil {
		return err
	}
	defBB, err := p.blockRef(defName)
	if err != nil {
		return err
	}
	if err := p.expectPunct("["); err != nil {
		return err
	}
	var cases []ir.SwitchCase
	for !(p.tok.kind == tokPunct && p.tok.text == "]") {
		c, err := p.parseConstant(cond.Type())
		if err != nil {
			return err
		}
		if err := p.expectPunct(":"); err != nil {
			return err
		}
		blkName := p.tok.text
		if err := p.advance(); err != nil {
			return err
		}
		bb, err := p.blockRef(blkName)
		if err != nil {
			return err
		}
		cases = append(cases, ir.SwitchCase{Value: c, Block: bb})
		if p.tok.kind == tokPunct && p.tok.text == "," {
			if err := p.advance(); err != nil {
				return err
			}
		}
	}
	if err := p.advance(); err != nil { // consume "]"
		return err
	}
	p.b.CreateSwitch(cond, defBB, cases)
	return nil
}

func (p *parser) parseRet() error {
	if p.tok.kind == tokIdent && p.lookaheadIsBlockHeader() {
		p.b.CreateRet(nil)
		return nil
	}
	if p.tok.kind == tokPunct && p.tok.text == "}" {
		p.b.CreateRet(nil)
		return nil
	}
	ty, err := p.parseType()
	if err != nil {
		return err
	}
	val, err := p.resolveOperand(ty)
	if err != nil {
		return err
	}
	p.b.CreateRet(val)
	return nil
}

func (p *parser) parsePhi(dest string) error {
	ty, err := p.parseType()
	if err != nil {
		return err
	}
	phi := p.b.CreatePhi(ty, dest)
	p.def(dest, phi)
	for p.tok.kind == tokPunct && p.tok.text == "[" {
		if err := p.advance(); err != nil {
			return err
		}
		valTok := p.tok.text
		if err := p.advance(); err != nil {
			return err
		}
		if err := p.expectPunct(","); err != nil {
			return err
		}
		predName := p.tok.text
		if err := p.advance(); err != nil {
			return err
		}
		if err := p.expectPunct("]"); err != nil {
			return err
		}
		predBB, err := p.blockRef(predName)
		if err != nil {
			return err
		}
		if v, ok := p.values[valTok]; ok {
			phi.AddIncoming(v, predBB)
		} else if strings.HasPrefix(valTok, "%") {
			// forward reference to a value defined later in the function
			// (e.g. a loop back-edge); resolved once the whole body is parsed.
			p.pending = append(p.pending, pendingPhi{phi: phi, valName: valTok, pred: predBB})
		} else {
			v, err := p.valueFromText(valTok, ty)
			if err != nil {
				return err
			}
			phi.AddIncoming(v, predBB)
		}
		if p.tok.kind == tokPunct && p.tok.text == "," {
			if err := p.advance(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *parser) parseCall(dest string) error {
	ty, err := p.parseType()
	if err != nil {
		return err
	}
	_ = ty
	if p.tok.kind != tokIdent || !strings.HasPrefix(p.tok.text, "@") {
		return errors.Errorf("irtext: line %d: expected @callee, got %q", p.tok.line, p.tok.text)
	}
	calleeName := strings.TrimPrefix(p.tok.text, "@")
	if err := p.advance(); err != nil {
		return err
	}
	g, ok := p.m.Lookup(calleeName)
	if !ok {
		return errors.Errorf("irtext: undefined function %q", calleeName)
	}
	callee := g.(*ir.Function)
	if err := p.expectPunct("("); err != nil {
		return err
	}
	var args []ir.Value
	i := 0
	for !(p.tok.kind == tokPunct && p.tok.text == ")") {
		var argTy *ir.Type
		if i < len(callee.Params) {
			argTy = callee.Params[i].Type()
		}
		a, err := p.resolveOperand(argTy)
		if err != nil {
			return err
		}
		args = append(args, a)
		i++
		if p.tok.kind == tokPunct && p.tok.text == "," {
			if err := p.advance(); err != nil {
				return err
			}
		}
	}
	if err := p.advance(); err != nil { // consume ")"
		return err
	}
	v := p.b.CreateCall(callee, args, dest)
	p.def(dest, v)
	return nil
}

func (p *parser) parseSelect(dest string) error {
	cond, err := p.resolveOperand(p.ctx.BoolType())
	if err != nil {
		return err
	}
	if err := p.expectPunct(","); err != nil {
		return err
	}
	t, err := p.resolveOperand(nil)
	if err != nil {
		return err
	}
	if err := p.expectPunct(","); err != nil {
		return err
	}
	f, err := p.resolveOperand(t.Type())
	if err != nil {
		return err
	}
	v := p.b.CreateSelect(cond, t, f, dest)
	p.def(dest, v)
	return nil
}
