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

import "github.com/pkg/errors"

// Module owns every GlobalValue (functions and global variables) produced
// for one compilation (spec.md 3.2, IR6). Names are unique within a module
// by construction (IR5): DeclareGlobalVar returns an error on a colliding
// name, and DeclareFunction returns the existing function of that name (or
// an error if the name belongs to a non-function global).
type Module struct {
	Ctx *Context

	globals   []GlobalValue
	byName    map[string]GlobalValue
}

func NewModule(ctx *Context) *Module {
	return &Module{Ctx: ctx, byName: make(map[string]GlobalValue)}
}

func (m *Module) Globals() []GlobalValue { return m.globals }

func (m *Module) Lookup(name string) (GlobalValue, bool) {
	g, ok := m.byName[name]
	return g, ok
}

func (m *Module) add(g GlobalValue) error {
	if _, exists := m.byName[g.GlobalName()]; exists {
		return errors.Errorf("ir: duplicate global name %q", g.GlobalName())
	}
	m.byName[g.GlobalName()] = g
	m.globals = append(m.globals, g)
	return nil
}

// DeclareFunction creates (or returns the existing) declaration for name;
// the returned Function has no blocks until the builder adds some.
func (m *Module) DeclareFunction(name string, ret *Type, paramTypes []*Type, linkage Linkage) (*Function, error) {
	if existing, ok := m.byName[name]; ok {
		if fn, ok := existing.(*Function); ok {
			return fn, nil
		}
		return nil, errors.Errorf("ir: %q already defined as a non-function global", name)
	}
	fn := &Function{Ctx: m.Ctx, Ret: ret}
	fn.Name = name
	fn.Linkage = linkage
	fn.ty = m.Ctx.PtrType()
	for i, pt := range paramTypes {
		arg := &Argument{Name: "", Index: i, Fn: fn}
		arg.ty = pt
		arg.id = fn.allocValueId()
		fn.Params = append(fn.Params, arg)
	}
	if err := m.add(fn); err != nil {
		return nil, err
	}
	return fn, nil
}

func (m *Module) DeclareGlobalVar(name string, ty *Type, init Constant, linkage Linkage) (*GlobalVariable, error) {
	gv := &GlobalVariable{ElemType: ty, Initializer: init}
	gv.Name = name
	gv.Linkage = linkage
	gv.ty = m.Ctx.PtrType()
	if err := m.add(gv); err != nil {
		return nil, err
	}
	return gv, nil
}
