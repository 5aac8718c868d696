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

// Command falconc is a thin cobra wrapper over internal/driver. It reads
// one textual IR file (the format internal/irtext prints and parses),
// runs it through optimize/lower/legalize/allocate/print, and writes
// whichever artifacts the flags asked for — nothing upstream of "here is
// an ir.Module" (lexing a source language, type-checking) lives here,
// that is a front end's job and out of this core's scope.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/falcon-lang/falconc/internal/driver"
	"github.com/falcon-lang/falconc/internal/ir"
	"github.com/falcon-lang/falconc/internal/irtext"
	"github.com/falcon-lang/falconc/internal/target/x64"
)

var (
	optLevel  string
	emitIR    bool
	emitAsm   bool
	dumpCFG   bool
	dumpDom   bool
	verbose   bool
	outPath   string
)

var rootCmd = &cobra.Command{
	Use:   "falconc <file.fir>",
	Short: "falconc compiles falcon IR text to x86-64 assembly",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(args[0])
	},
}

func init() {
	rootCmd.Flags().StringVarP(&optLevel, "opt", "O", "0", "optimization level: 0, 1, 2, or 3")
	rootCmd.Flags().BoolVar(&emitIR, "emit-ir", false, "print the optimized IR to stdout")
	rootCmd.Flags().BoolVar(&emitAsm, "emit-asm", true, "print x86-64 assembly to stdout")
	rootCmd.Flags().BoolVar(&dumpCFG, "dump-cfg", false, "print each function's CFG successor edges")
	rootCmd.Flags().BoolVar(&dumpDom, "dump-domtree", false, "print each function's dominator tree")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug-level logging")
	rootCmd.Flags().StringVarP(&outPath, "output", "o", "", "write assembly to this file instead of stdout")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "falconc: %v\n", err)
		os.Exit(1)
	}
}

func parseOptLevel(s string) (driver.OptLevel, error) {
	switch s {
	case "0":
		return driver.O0, nil
	case "1":
		return driver.O1, nil
	case "2":
		return driver.O2, nil
	case "3":
		return driver.O3, nil
	default:
		return driver.O0, fmt.Errorf("invalid -O level %q: want 0, 1, 2 or 3", s)
	}
}

func run(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	opt, err := parseOptLevel(optLevel)
	if err != nil {
		return err
	}

	log := logrus.New()
	log.SetOutput(os.Stderr)
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	ctx := ir.NewContext()
	m, err := irtext.Parse(ctx, string(src))
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	res, err := driver.Compile(m, x64.New(), driver.Options{
		Opt:     opt,
		EmitIR:  emitIR,
		EmitAsm: emitAsm,
		DumpCFG: dumpCFG,
		DumpDom: dumpDom,
	}, log)
	if err != nil {
		return fmt.Errorf("compiling %s: %w", path, err)
	}

	if res.Dump != "" {
		fmt.Fprint(os.Stderr, res.Dump)
	}
	if res.IR != "" {
		fmt.Println(res.IR)
	}
	if res.Asm == "" {
		return nil
	}
	if outPath == "" {
		fmt.Print(res.Asm)
		return nil
	}
	return os.WriteFile(outPath, []byte(res.Asm), 0o644)
}
