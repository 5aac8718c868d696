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

// Parse reads the textual form produced by Print back into a Module,
// implementing the printer's round-trip contract (spec.md 4.2, property
// P2). It is a small hand-written recursive-descent parser over lexer.go's
// token stream; the teacher (ast/parser.go) parses a much larger source
// grammar the same way, one token of lookahead at a time.
func Parse(ctx *ir.Context, src string) (*ir.Module, error) {
	p := &parser{lx: newLexer(src), ctx: ctx, m: ir.NewModule(ctx)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	for p.tok.kind != tokEOF {
		if err := p.parseTopLevel(); err != nil {
			return nil, err
		}
	}
	return p.m, nil
}

type pendingPhi struct {
	phi     *ir.Phi
	valName string
	pred    *ir.BasicBlock
}

type parser struct {
	lx  *lexer
	ctx *ir.Context
	m   *ir.Module
	tok token

	b       *ir.Builder
	fn      *ir.Function
	blocks  map[string]*ir.BasicBlock
	values  map[string]ir.Value
	pending []pendingPhi
}

func (p *parser) advance() error {
	t, err := p.lx.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *parser) expectPunct(s string) error {
	if p.tok.kind != tokPunct || p.tok.text != s {
		return errors.Errorf("irtext: line %d: expected %q, got %q", p.tok.line, s, p.tok.text)
	}
	return p.advance()
}

func (p *parser) expectIdent(s string) error {
	if p.tok.kind != tokIdent || p.tok.text != s {
		return errors.Errorf("irtext: line %d: expected %q, got %q", p.tok.line, s, p.tok.text)
	}
	return p.advance()
}

func (p *parser) atIdent(s string) bool {
	return p.tok.kind == tokIdent && p.tok.text == s
}

func (p *parser) parseTopLevel() error {
	switch {
	case p.atIdent("declare"):
		return p.parseDeclare()
	case p.atIdent("define"):
		return p.parseDefine()
	default:
		return errors.Errorf("irtext: line %d: expected declare/define, got %q", p.tok.line, p.tok.text)
	}
}

func (p *parser) parseGlobalName() (string, error) {
	if p.tok.kind != tokIdent || !strings.HasPrefix(p.tok.text, "@") {
		return "", errors.Errorf("irtext: line %d: expected @name, got %q", p.tok.line, p.tok.text)
	}
	name := strings.TrimPrefix(p.tok.text, "@")
	return name, p.advance()
}

// parseDeclare handles both `declare @fn ret(params...)` and
// `declare @global type`. It disambiguates on whether '(' follows the type.
func (p *parser) parseDeclare() error {
	if err := p.advance(); err != nil { // consume "declare"
		return err
	}
	name, err := p.parseGlobalName()
	if err != nil {
		return err
	}
	ty, err := p.parseType()
	if err != nil {
		return err
	}
	if p.tok.kind == tokPunct && p.tok.text == "(" {
		params, err := p.parseTypeList()
		if err != nil {
			return err
		}
		_, err = p.m.DeclareFunction(name, ty, params, ir.External)
		return err
	}
	_, err = p.m.DeclareGlobalVar(name, ty, nil, ir.External)
	return err
}

func (p *parser) parseLinkage() (ir.Linkage, error) {
	switch {
	case p.atIdent("external"):
		return ir.External, p.advance()
	case p.atIdent("internal"):
		return ir.Internal, p.advance()
	default:
		return 0, errors.Errorf("irtext: line %d: expected linkage, got %q", p.tok.line, p.tok.text)
	}
}

func (p *parser) parseDefine() error {
	if err := p.advance(); err != nil { // consume "define"
		return err
	}
	linkage, err := p.parseLinkage()
	if err != nil {
		return err
	}
	name, err := p.parseGlobalName()
	if err != nil {
		return err
	}
	ty, err := p.parseType()
	if err != nil {
		return err
	}
	if p.tok.kind == tokPunct && p.tok.text == "(" {
		return p.parseFunctionBody(name, ty, linkage)
	}
	init, err := p.parseConstant(ty)
	if err != nil {
		return err
	}
	_, err = p.m.DeclareGlobalVar(name, ty, init, linkage)
	return err
}

func (p *parser) parseTypeList() ([]*ir.Type, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var out []*ir.Type
	for !(p.tok.kind == tokPunct && p.tok.text == ")") {
		ty, err := p.parseType()
		if err != nil {
			return nil, err
		}
		out = append(out, ty)
		if p.tok.kind == tokPunct && p.tok.text == "," {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	return out, p.advance()
}

func (p *parser) parseFunctionBody(name string, ret *ir.Type, linkage ir.Linkage) error {
	params, err := p.parseTypeList()
	if err != nil {
		return err
	}
	fn, err := p.m.DeclareFunction(name, ret, params, linkage)
	if err != nil {
		return err
	}
	fn.Linkage = linkage

	if err := p.expectPunct("{"); err != nil {
		return err
	}

	p.fn = fn
	p.b = ir.NewBuilder(p.ctx)
	p.blocks = map[string]*ir.BasicBlock{}
	p.values = map[string]ir.Value{}
	p.pending = nil
	for i, arg := range fn.Params {
		p.values[paramName(i, arg)] = arg
	}

	// Pre-scan block headers so forward branch/phi targets resolve.
	save := *p.lx
	saveTok := p.tok
	depth := 0
	for {
		if p.tok.kind == tokPunct && p.tok.text == "{" {
			depth++
		}
		if p.tok.kind == tokPunct && p.tok.text == "}" {
			if depth == 0 {
				break
			}
			depth--
		}
		if p.tok.kind == tokIdent && p.lookaheadIsBlockHeader() {
			p.blocks[p.tok.text] = p.b.CreateBlock(fn, p.tok.text)
		}
		if err := p.advance(); err != nil {
			return err
		}
	}
	*p.lx = save
	p.tok = saveTok

	for !(p.tok.kind == tokPunct && p.tok.text == "}") {
		if err := p.parseBlock(); err != nil {
			return err
		}
	}
	if err := p.expectPunct("}"); err != nil {
		return err
	}

	for _, pp := range p.pending {
		v, ok := p.values[pp.valName]
		if !ok {
			return errors.Errorf("irtext: undefined value %q used in phi", pp.valName)
		}
		pp.phi.AddIncoming(v, pp.pred)
	}
	return nil
}

func paramName(i int, a *ir.Argument) string {
	if a.Name != "" {
		return "%" + a.Name
	}
	return "%" + strconv.Itoa(i)
}

// lookaheadIsBlockHeader reports whether the current ident token is
// immediately followed by ':' (a block label), without consuming input.
func (p *parser) lookaheadIsBlockHeader() bool {
	save := *p.lx
	t, err := p.lx.next()
	*p.lx = save
	return err == nil && t.kind == tokPunct && t.text == ":"
}

func (p *parser) parseBlock() error {
	label := p.tok.text
	if err := p.advance(); err != nil {
		return err
	}
	if err := p.expectPunct(":"); err != nil {
		return err
	}
	bb := p.blocks[label]
	p.b.SetInsertAtEnd(bb)
	for {
		if p.tok.kind == tokIdent && p.lookaheadIsBlockHeader() {
			return nil
		}
		if p.tok.kind == tokPunct && p.tok.text == "}" {
			return nil
		}
		if err := p.parseInstruction(); err != nil {
			return err
		}
	}
}
