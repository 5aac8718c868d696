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

// Package driver orchestrates one compilation from an already-built
// ir.Module through to target assembly text: optimize, lower to MIR,
// legalize, allocate registers, print. Grounded on compile/compiler.go's
// CompileTheWorld (parse -> per-function compile -> codegen -> assemble),
// trimmed to the part of that pipeline spec.md 6.4 actually asks the core
// to honor — everything upstream of "here is a finished ir.Module"
// (lexing, parsing, type-checking) is a front end's job, out of scope per
// spec.md 1.
package driver

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/falcon-lang/falconc/internal/ir"
	"github.com/falcon-lang/falconc/internal/irtext"
	"github.com/falcon-lang/falconc/internal/mir"
	"github.com/falcon-lang/falconc/internal/pass"
	"github.com/falcon-lang/falconc/internal/regalloc"
	"github.com/falcon-lang/falconc/internal/target"
)

// OptLevel is the optimization level spec.md 6.4 names: O0|O1|O2|O3, with
// Od (debug, no optimization) equivalent to O0.
type OptLevel int

const (
	O0 OptLevel = iota
	O1
	O2
	O3
)

// Options are the driver surface flags spec.md 6.4 lists.
type Options struct {
	Opt OptLevel

	EmitIR   bool
	EmitAsm  bool
	DumpCFG  bool
	DumpDom  bool

	InlineMaxBlocks int // 0 means use pass.NewInlinePass's default
}

// Result carries whichever artifacts Options asked for; a field is empty
// when its toggle was off.
type Result struct {
	IR   string
	Asm  string
	Dump string
}

// Compile runs m through the full pipeline and returns the requested
// artifacts. It never mutates m's identity (passes rewrite functions in
// place, same as falcon's Optimizer.Ideal did for HIR) but m itself is
// consumed: callers that need the pre-optimization IR should print it
// before calling Compile.
func Compile(m *ir.Module, tgt target.Target, opts Options, log *logrus.Logger) (*Result, error) {
	if log == nil {
		log = logrus.New()
	}
	res := &Result{}

	if opts.DumpCFG || opts.DumpDom {
		res.Dump = dumpAnalyses(m, opts)
	}

	if err := optimize(m, opts, log); err != nil {
		return nil, errors.Wrap(err, "optimize")
	}

	if opts.EmitIR {
		res.IR = irtext.Print(m)
	}

	if !opts.EmitAsm {
		return res, nil
	}

	mm, err := mir.LowerModule(m, tgt)
	if err != nil {
		return nil, errors.Wrap(err, "lower")
	}
	for _, mfn := range mm.Funcs {
		if err := mir.Legalize(mfn, tgt, tgt); err != nil {
			return nil, errors.Wrapf(err, "legalize %s", mfn.Name)
		}
		regalloc.Allocate(mfn, tgt, log)
	}

	var sb writerString
	if err := tgt.Print(&sb, mm); err != nil {
		return nil, errors.Wrap(err, "print assembly")
	}
	res.Asm = sb.String()
	return res, nil
}

// optimize runs the C7 transform passes appropriate for opts.Opt.
// Od/O0 run nothing, matching a debug build's "what you wrote is what you
// get" expectation; O1 runs CFG simplification only; O2 and up add the
// inliner, then re-run CFG simplification to clean up after it, matching
// the fixed-point shape of falcon's own Optimizer.Ideal (simplifyPhi,
// simplifyCFG, dce run together to a fixed point) generalized to the C6
// pass manager instead of a hardcoded function list.
func optimize(m *ir.Module, opts Options, log *logrus.Logger) error {
	if opts.Opt == O0 {
		return nil
	}
	pl := pass.NewPipeline(log)
	pl.Add(pass.SimplifyCFGPass{})
	if opts.Opt >= O2 {
		inl := pass.NewInlinePass()
		if opts.InlineMaxBlocks > 0 {
			inl.MaxBlocks = opts.InlineMaxBlocks
		}
		pl.Add(inl)
		pl.Add(pass.SimplifyCFGPass{})
	}
	return pl.RunModule(m)
}

// dumpAnalyses renders the CFG and/or dominator-tree analysis dumps
// spec.md 6.4 asks the driver to support, one function at a time.
func dumpAnalyses(m *ir.Module, opts Options) string {
	var sb writerString
	for _, g := range m.Globals() {
		fn, ok := g.(*ir.Function)
		if !ok || fn.IsDeclaration() {
			continue
		}
		if opts.DumpCFG {
			fmt.Fprintf(&sb, "cfg %s:\n", fn.Name)
			info, err := pass.CFGAnalysis{}.Run(fn)
			if err != nil {
				fmt.Fprintf(&sb, "  <error: %v>\n", err)
			} else {
				cfg := info.(*pass.CFGInfo)
				for _, b := range fn.Blocks {
					fmt.Fprintf(&sb, "  %s -> %s\n", b.Name, blockNames(cfg.Succs[b]))
				}
			}
		}
		if opts.DumpDom {
			fmt.Fprintf(&sb, "domtree %s:\n", fn.Name)
			dt := ir.BuildDomTree(fn)
			for _, b := range fn.Blocks {
				for _, other := range fn.Blocks {
					if other != b && dt.Dominates(b, other) {
						fmt.Fprintf(&sb, "  %s dominates %s\n", b.Name, other.Name)
					}
				}
			}
		}
	}
	return sb.String()
}

func blockNames(bs []*ir.BasicBlock) string {
	var sb writerString
	for i, b := range bs {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(b.Name)
	}
	return sb.String()
}

// writerString is a minimal io.Writer/fmt.Stringer adapter so dump helpers
// can use fmt.Fprintf without importing strings.Builder under a second name
// alongside irtext's own use of it.
type writerString struct{ buf []byte }

func (w *writerString) Write(p []byte) (int, error) { w.buf = append(w.buf, p...); return len(p), nil }
func (w *writerString) WriteString(s string)        { w.buf = append(w.buf, s...) }
func (w *writerString) String() string               { return string(w.buf) }

var _ io.Writer = (*writerString)(nil)
