// Package orchestrator wires the compiler and decompiler pipeline stages: it
// resets diagnostics, runs each stage in order, aborts on the first hard
// error from the parser, analyzer, or code generator while buffering soft
// warnings, and renders the stats/command result contracts.
package orchestrator

import (
	"github.com/sirupsen/logrus"

	"github.com/inav-tools/logicc/src/catalog"
	"github.com/inav-tools/logicc/src/codegen"
	"github.com/inav-tools/logicc/src/decompile"
	"github.com/inav-tools/logicc/src/diag"
	"github.com/inav-tools/logicc/src/frontend"
	"github.com/inav-tools/logicc/src/ir"
	"github.com/inav-tools/logicc/src/target"
)

// Stats is the compile-side summary returned alongside the emitted commands.
type Stats struct {
	Handlers   int
	Conditions int
	Actions    int
	SlotsUsed  int
	GVarsUsed  int
}

// CompileResult is the compiler's entry-point contract: the emitted command
// lines and warnings on success, or the first hard error with its position.
type CompileResult struct {
	Success  bool
	Commands []string
	Warnings []string
	Stats    Stats
	Error    string
	Line     int
	Column   int
}

// Orchestrator holds the one piece of state shared across every invocation:
// the read-only API catalog, constructed once at startup and never mutated.
type Orchestrator struct {
	cat *catalog.Catalog
	log *logrus.Logger
}

// New returns an Orchestrator backed by cat. A nil cat falls back to
// catalog.Default().
func New(cat *catalog.Catalog) *Orchestrator {
	if cat == nil {
		cat = catalog.Default()
	}
	return &Orchestrator{cat: cat, log: logrus.StandardLogger()}
}

// Compile runs the full pipeline over src: Parse, Validate, ResolveVariables,
// Optimise, Generate. The orchestrator is re-entrant across independent
// inputs and keeps no state from one Compile call to the next beyond the
// shared catalog.
func (o *Orchestrator) Compile(src string) *CompileResult {
	entry := o.log.WithField("stage", "compile")
	entry.Debug("starting compile")

	prog, err := frontend.Parse(src)
	if err != nil {
		if se, ok := err.(*frontend.SyntaxError); ok {
			entry.WithFields(logrus.Fields{"line": se.Line, "column": se.Col}).Warn("syntax error")
			return &CompileResult{Error: se.Msg, Line: se.Line, Column: se.Col}
		}
		entry.WithError(err).Warn("parse failed")
		return &CompileResult{Error: err.Error()}
	}

	buf := diag.NewBuffer()

	ir.Validate(prog, o.cat, buf)
	if buf.HasErrors() {
		return abortCompile(buf)
	}

	vars := ir.ResolveVariables(prog, buf)
	if buf.HasErrors() {
		return abortCompile(buf)
	}

	ir.Optimise(prog)

	if o.log.IsLevelEnabled(logrus.DebugLevel) {
		entry.Debug("optimized AST:\n" + prog.Dump())
	}

	table := codegen.Generate(prog, o.cat, vars, buf)
	if buf.HasErrors() {
		return abortCompile(buf)
	}

	if o.log.IsLevelEnabled(logrus.DebugLevel) {
		entry.Debug("emitted table:\n" + table.Dump())
	}

	entry.WithFields(logrus.Fields{"slots": len(table), "gvars": vars.Registers.Used()}).Info("compile succeeded")

	return &CompileResult{
		Success:  true,
		Commands: table.Encode(),
		Warnings: buf.Strings(),
		Stats:    statsOf(prog, table, vars),
	}
}

// abortCompile surfaces the first hard error alongside the full diagnostics
// buffer, so the caller sees every warning collected before the abort.
func abortCompile(buf *diag.Buffer) *CompileResult {
	first := buf.FirstError()
	res := &CompileResult{Warnings: buf.Strings()}
	if first != nil {
		res.Error = first.Message
		res.Line = first.Line
		res.Column = first.Column
	}
	return res
}

// statsOf computes the compile stats block: handler count,
// total condition expressions, total action statements, slots emitted, and
// registers allocated.
func statsOf(p *ir.Program, table target.Table, vars *ir.Vars) Stats {
	var s Stats
	s.SlotsUsed = len(table)
	s.GVarsUsed = vars.Registers.Used()

	var walk func(stmts []ir.Statement)
	walk = func(stmts []ir.Statement) {
		for _, st := range stmts {
			switch n := st.(type) {
			case *ir.EventHandler:
				s.Handlers++
				s.Conditions += len(n.Conditions)
				walk(n.Body)
			case *ir.Assignment:
				s.Actions++
			}
		}
	}
	walk(p.Statements)

	return s
}

// DecompileResult is the decompiler's entry-point contract.
type DecompileResult struct {
	Success  bool
	Code     string
	Warnings []string
	Stats    decompile.Stats
}

// Decompile runs decompile.Decompile over table and adapts it to the
// orchestrator's result contract.
func (o *Orchestrator) Decompile(table target.Table) *DecompileResult {
	entry := o.log.WithField("stage", "decompile")
	entry.WithField("records", len(table)).Debug("starting decompile")

	res := decompile.Decompile(table, o.cat)

	entry.WithFields(logrus.Fields{"groups": res.Stats.Groups, "warnings": len(res.Warnings)}).Info("decompile finished")

	return &DecompileResult{
		Success:  res.Success,
		Code:     res.Code,
		Warnings: res.Warnings,
		Stats:    res.Stats,
	}
}
