// Package codegen lowers a validated, optimized AST into the flat instruction
// list the device's logic-condition engine executes.
//
// Context carries the API catalog reference, the diagnostics buffer, the
// allocated register file, and the emitted-list cursor, so the generator has
// no package-level state and is re-entrant across compiles.
// Code generation never stores cross-links back into the AST; every lowering
// function returns the slot index holding its result upward, the way the
// reference codebase's lir builder threads a growing instruction list through
// return values rather than a mutable global.
package codegen

import (
	"fmt"

	"github.com/inav-tools/logicc/src/catalog"
	"github.com/inav-tools/logicc/src/diag"
	"github.com/inav-tools/logicc/src/ir"
	"github.com/inav-tools/logicc/src/target"
)

// Context is the code generator's working state for a single compile.
type Context struct {
	Catalog *catalog.Catalog
	Vars    *ir.Vars
	Buf     *diag.Buffer

	table       target.Table
	condSlot    map[*ir.EventHandler]int // HandlerIf -> the slot its own condition was lowered to.
	overflowed  bool
	currentDesc string // Human-readable name of the statement currently being lowered, for overflow errors.
}

// NewContext returns a fresh Context ready to lower a program validated
// against cat with registers already resolved into vars.
func NewContext(cat *catalog.Catalog, vars *ir.Vars, buf *diag.Buffer) *Context {
	return &Context{Catalog: cat, Vars: vars, Buf: buf, condSlot: map[*ir.EventHandler]int{}}
}

// Table returns the instructions emitted so far.
func (c *Context) Table() target.Table {
	return c.table
}

// emit appends a new instruction occupying the next free slot and returns its
// index. Once the table reaches the device's 64-slot capacity, emit stops
// appending and records a single resource-hard error naming the statement
// that overflowed it; requesting the 65th record is a hard failure, not a
// truncation.
func (c *Context) emit(op target.Operation, a, b target.Operand, activator int) int {
	if len(c.table) >= target.MaxSlots {
		if !c.overflowed {
			c.overflowed = true
			c.Buf.Errorf(diag.CategoryResourceHard, 0, 0,
				"rule table overflow while compiling %s: exceeds the device's %d-slot capacity",
				c.currentDesc, target.MaxSlots)
		}
		return target.MaxSlots - 1
	}
	slot := len(c.table)
	c.table = append(c.table, target.Instruction{
		Slot: slot, Enabled: true, Activator: activator, Operation: op, A: a, B: b,
	})
	return slot
}

// lcResultOperand wraps a previously emitted slot as an operand referencing
// its output, the device's only way to chain one record's result into
// another's operand.
func (c *Context) lcResultOperand(slot int) target.Operand {
	return target.LCResult(int32(slot))
}

// describe renders a short, position-carrying label for s, used to name the
// offending statement in an overflow error.
func (c *Context) describe(s ir.Statement) string {
	switch n := s.(type) {
	case *ir.EventHandler:
		return fmt.Sprintf("%s handler at %d:%d", n.Kind, n.Pos.Line, n.Pos.Col)
	case *ir.Assignment:
		return fmt.Sprintf("assignment at %d:%d", n.Pos.Line, n.Pos.Col)
	default:
		return "statement"
	}
}
