// Package decompile reconstructs a readable source program from a rule table
// read back from the device: filter, special-pattern detection, grouping,
// recursive condition rebuilding, statement emission, operand naming, and
// boilerplate, in that order.
//
// Decompilation is lossy by design: comments, user-chosen identifiers, and
// the compiler's own instruction ordering are never recovered.
package decompile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/inav-tools/logicc/src/catalog"
	"github.com/inav-tools/logicc/src/target"
	"github.com/inav-tools/logicc/src/util"
)

// Stats summarizes what the decompiler saw: total records in, records still
// enabled after filtering, and activator groups recognized.
type Stats struct {
	Total   int
	Enabled int
	Groups  int
}

// Result is the decompiler's output contract.
type Result struct {
	Success  bool
	Code     string
	Warnings []string
	Stats    Stats
}

// decompiler carries the working state for a single Decompile call: the
// catalog reverse indexes, the active (filtered) table, and the accumulated
// warnings. It is the decompiler's analog of codegen.Context.
type decompiler struct {
	cat    *catalog.Catalog
	table  target.Table
	active []target.Instruction

	reads  *readIndex
	writes *writeIndex

	warnings []string
	roots    map[string]bool // API root namespaces actually referenced by emitted output.

	referenced map[int]bool // slots referenced as an LC_RESULT operand by some other record.
}

// Decompile runs the full pipeline over table and returns the reconstructed
// source.
func Decompile(table target.Table, cat *catalog.Catalog) *Result {
	d := &decompiler{
		cat:        cat,
		table:      table,
		reads:      buildReadIndex(cat),
		writes:     buildWriteIndex(cat),
		roots:      map[string]bool{},
		referenced: map[int]bool{},
	}

	d.filter()
	d.markReferenced()

	specials := d.detectSpecialPatterns()
	roots := d.findRootActivators(specials)

	var stmts []string
	groups := 0
	for _, r := range roots {
		groups++
		stmts = append(stmts, d.emitRoot(r, specials)...)
	}
	stmts = append(stmts, d.emitOrphans(roots, specials)...)

	code := d.render(stmts)

	return &Result{
		Success:  true,
		Code:     code,
		Warnings: d.warnings,
		Stats: Stats{
			Total:   len(d.table),
			Enabled: len(d.active),
			Groups:  groups,
		},
	}
}

func (d *decompiler) warnf(format string, args ...interface{}) {
	d.warnings = append(d.warnings, fmt.Sprintf(format, args...))
}

// filter keeps enabled records, stopping the scan at the first clearly-unused
// tail record (a device dump reports all 64 slots, most of them untouched
// defaults).
func (d *decompiler) filter() {
	end := len(d.table)
	for end > 0 && d.table[end-1].IsDefault() {
		end--
	}
	for _, ins := range d.table[:end] {
		if ins.Enabled {
			d.active = append(d.active, ins)
		}
	}
}

func (d *decompiler) get(slot int) (target.Instruction, bool) {
	for _, ins := range d.active {
		if ins.Slot == slot {
			return ins, true
		}
	}
	return target.Instruction{}, false
}

func (d *decompiler) byActivator(slot int) []target.Instruction {
	var out []target.Instruction
	for _, ins := range d.active {
		if ins.Activator == slot {
			out = append(out, ins)
		}
	}
	return out
}

// markReferenced records every slot referenced as an LC_RESULT operand by
// some other active record, so grouping can tell a standalone
// top-level condition apart from a sub-expression folded into a parent.
func (d *decompiler) markReferenced() {
	for _, ins := range d.active {
		for _, op := range [2]target.Operand{ins.A, ins.B} {
			if op.Type == target.OperandLCResult {
				d.referenced[int(op.Value)] = true
			}
		}
	}
}

// specialPattern describes one edge/sticky/delay/timer/whenChanged construct
// recognized at its own root slot.
type specialPattern struct {
	slot int
	ins  target.Instruction
}

// detectSpecialPatterns finds the multi-slot constructs; special-construct
// recognition takes priority over generic if-grouping.
func (d *decompiler) detectSpecialPatterns() map[int]*specialPattern {
	out := map[int]*specialPattern{}
	for _, ins := range d.active {
		switch ins.Operation {
		case target.Edge, target.Sticky, target.Delay, target.Timer, target.Delta:
			out[ins.Slot] = &specialPattern{slot: ins.Slot, ins: ins}
		}
	}
	return out
}

// findRootActivators identifies the grouping roots: a record is a root
// activator when it carries no activator and nothing else points to it via
// LC_RESULT. Such a root is a plain condition, a special pattern, or a bare
// top-level action.
func (d *decompiler) findRootActivators(specials map[int]*specialPattern) []int {
	var roots []int
	for _, ins := range d.active {
		if ins.Activator != target.NoActivator {
			continue
		}
		if d.referenced[ins.Slot] {
			continue // Folded into a parent condition; not a root.
		}
		roots = append(roots, ins.Slot)
	}
	sort.Ints(roots)
	return roots
}

// emitRoot handles a single root slot: rebuild its condition (or recognize it
// as a special pattern) and emit the matching statement form, recursing
// through its guarded actions.
func (d *decompiler) emitRoot(slot int, specials map[int]*specialPattern) []string {
	ins, ok := d.get(slot)
	if !ok {
		return nil
	}

	if sp, isSpecial := specials[slot]; isSpecial {
		return []string{d.emitSpecial(sp)}
	}

	if !target.ProducesBoolean(ins.Operation) {
		// A bare top-level action with no guard at all.
		return d.emitActions([]target.Instruction{ins})
	}

	visiting := &util.Stack[int]{}
	cond := d.rebuildCondition(slot, visiting)
	actions := d.emitActions(d.byActivator(slot))
	if len(actions) == 0 {
		d.warnf("slot %d has no guarded actions; emitting an empty body", slot)
	}
	return []string{fmt.Sprintf("if (%s) {\n%s\n}", cond, indent(actions))}
}

// emitSpecial renders one of edge/sticky/delay/timer/whenChanged.
func (d *decompiler) emitSpecial(sp *specialPattern) string {
	ins := sp.ins
	actions := d.emitActions(d.byActivator(sp.slot))
	body := fmt.Sprintf("() => {\n%s\n}", indent(actions))
	visiting := &util.Stack[int]{}

	switch ins.Operation {
	case target.Edge:
		cond := d.rebuildOperand(ins.A, visiting)
		return fmt.Sprintf("edge(() => %s, {duration: %d}, %s);", cond, ins.B.Value, body)
	case target.Delay:
		cond := d.rebuildOperand(ins.A, visiting)
		return fmt.Sprintf("delay(() => %s, {duration: %d}, %s);", cond, ins.B.Value, body)
	case target.Sticky:
		on := d.rebuildOperand(ins.A, visiting)
		off := d.rebuildOperand(ins.B, visiting)
		return fmt.Sprintf("sticky(() => %s, () => %s, %s);", on, off, body)
	case target.Timer:
		return fmt.Sprintf("timer(%d, %d, %s);", ins.A.Value, ins.B.Value, body)
	case target.Delta:
		value := d.rebuildOperand(ins.A, visiting)
		return fmt.Sprintf("whenChanged(%s, %d, %s);", value, ins.B.Value, body)
	default:
		d.warnf("slot %d: unrecognized special pattern opcode %s", sp.slot, ins.Operation)
		return fmt.Sprintf("/* unrecognized pattern at slot %d */", sp.slot)
	}
}

// emitOrphans sweeps up actions whose activator names no enabled record (e.g.
// it was filtered out or otherwise invalid); they are emitted standalone with
// a warning rather than dropped. Actions gated by an enabled record that is
// not a root are not emitted here.
func (d *decompiler) emitOrphans(roots []int, specials map[int]*specialPattern) []string {
	rootSet := map[int]bool{}
	for _, r := range roots {
		rootSet[r] = true
	}
	var out []string
	for _, ins := range d.active {
		if ins.Activator == target.NoActivator {
			continue // Already handled as a root or folded sub-expression.
		}
		if rootSet[ins.Activator] {
			continue // Handled as part of its group.
		}
		if _, ok := d.get(ins.Activator); ok {
			continue // Points at a real, already-grouped condition slot.
		}
		d.warnf("slot %d has activator %d which names no enabled record; emitting as an orphaned top-level statement",
			ins.Slot, ins.Activator)
		out = append(out, d.emitActions([]target.Instruction{ins})...)
	}
	return out
}

// rebuildCondition recursively rebuilds the boolean AST rooted at slot. A
// well-formed table only ever references earlier slots, so its reference
// graph is acyclic; a corrupted read-back might still contain a cycle, which
// the visiting stack catches.
func (d *decompiler) rebuildCondition(slot int, visiting *util.Stack[int]) string {
	if visiting.Contains(func(s int) bool { return s == slot }) {
		d.warnf("slot %d: cyclic LC_RESULT reference detected; breaking the cycle with a placeholder", slot)
		return fmt.Sprintf("/* cycle at slot %d */ true", slot)
	}
	ins, ok := d.get(slot)
	if !ok {
		d.warnf("slot %d is referenced but not present among enabled records; emitting a placeholder", slot)
		return "true"
	}
	visiting.Push(slot)
	defer visiting.Pop()

	switch ins.Operation {
	case target.True:
		return "true"
	case target.Equal:
		return fmt.Sprintf("(%s == %s)", d.rebuildOperand(ins.A, visiting), d.rebuildOperand(ins.B, visiting))
	case target.Greater:
		return fmt.Sprintf("(%s > %s)", d.rebuildOperand(ins.A, visiting), d.rebuildOperand(ins.B, visiting))
	case target.Lower:
		return fmt.Sprintf("(%s < %s)", d.rebuildOperand(ins.A, visiting), d.rebuildOperand(ins.B, visiting))
	case target.And:
		return fmt.Sprintf("(%s && %s)", d.rebuildOperand(ins.A, visiting), d.rebuildOperand(ins.B, visiting))
	case target.Or:
		return fmt.Sprintf("(%s || %s)", d.rebuildOperand(ins.A, visiting), d.rebuildOperand(ins.B, visiting))
	case target.Not:
		return fmt.Sprintf("!%s", d.rebuildOperand(ins.A, visiting))
	default:
		d.warnf("slot %d: opcode %s does not produce a boolean suitable for condition rebuilding", slot, ins.Operation)
		return "true"
	}
}

// rebuildOperand resolves a single operand position: an LC_RESULT recurses
// into rebuildCondition, everything else resolves to a catalog name.
func (d *decompiler) rebuildOperand(op target.Operand, visiting *util.Stack[int]) string {
	if op.Type == target.OperandLCResult {
		return d.rebuildCondition(int(op.Value), visiting)
	}
	name := d.nameForRead(op)
	d.noteRoot(name)
	return name
}

// emitActions renders one assignment statement line per instruction, in slot
// order.
func (d *decompiler) emitActions(instrs []target.Instruction) []string {
	var out []string
	for _, ins := range instrs {
		out = append(out, d.emitAction(ins))
	}
	return out
}

func (d *decompiler) emitAction(ins target.Instruction) string {
	switch ins.Operation {
	case target.Set:
		visiting := &util.Stack[int]{}
		value := d.rebuildOperand(ins.B, visiting)
		return fmt.Sprintf("gvar[%d] = %s;", ins.A.Value, value)
	case target.Inc:
		return fmt.Sprintf("gvar[%d] += %d;", ins.A.Value, ins.B.Value)
	case target.Dec:
		return fmt.Sprintf("gvar[%d] -= %d;", ins.A.Value, ins.B.Value)
	default:
		if name, ok := d.nameForWrite(ins.Operation); ok {
			d.noteRoot(name)
			visiting := &util.Stack[int]{}
			value := d.rebuildOperand(ins.A, visiting)
			return fmt.Sprintf("%s = %s;", name, value)
		}
		d.warnf("slot %d: opcode %s is not a recognized write; emitting as a comment", ins.Slot, ins.Operation)
		return fmt.Sprintf("/* unsupported-opcode: %s at slot %d */", ins.Operation, ins.Slot)
	}
}

// noteRoot records that name's leading path segment (an API root namespace)
// was actually referenced, for the destructuring boilerplate line.
func (d *decompiler) noteRoot(name string) {
	root := strings.SplitN(name, ".", 2)[0]
	root = strings.SplitN(root, "[", 2)[0]
	if d.cat.IsRoot(root) {
		d.roots[root] = true
	}
}

// indent prefixes every line of the joined statements with two spaces, for
// nested bodies.
func indent(lines []string) string {
	var b strings.Builder
	for i, l := range lines {
		if i > 0 {
			b.WriteString("\n")
		}
		for _, sub := range strings.Split(l, "\n") {
			b.WriteString("  ")
			b.WriteString(sub)
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// render assembles the final text: a destructuring line listing only the
// roots actually used, the emitted statements, and a trailing warnings
// comment block.
func (d *decompiler) render(stmts []string) string {
	var b strings.Builder

	if len(d.roots) > 0 {
		names := make([]string, 0, len(d.roots))
		for r := range d.roots {
			names = append(names, r)
		}
		sort.Strings(names)
		fmt.Fprintf(&b, "const { %s } = inav;\n", strings.Join(names, ", "))
	}

	for _, s := range stmts {
		b.WriteString(s)
		b.WriteString("\n")
	}

	if len(d.warnings) > 0 {
		b.WriteString("\n// Decompile warnings:\n")
		for _, w := range d.warnings {
			fmt.Fprintf(&b, "// - %s\n", w)
		}
	}

	return b.String()
}
