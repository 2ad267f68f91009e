package codegen

import (
	"fmt"
	"strings"

	"github.com/inav-tools/logicc/src/catalog"
	"github.com/inav-tools/logicc/src/diag"
	"github.com/inav-tools/logicc/src/ir"
	"github.com/inav-tools/logicc/src/target"
)

// comparisonOps maps a BinaryExpression.Op recognized as a comparison to its
// wire opcode. Only the three primitives the engine natively evaluates appear
// here; >=, <=, and != never reach code generation because the parser
// desugars them.
var comparisonOps = map[string]target.Operation{
	">":  target.Greater,
	"<":  target.Lower,
	"==": target.Equal,
}

// arithmeticOps maps a BinaryExpression.Op recognized as arithmetic to its
// wire opcode.
var arithmeticOps = map[string]target.Operation{
	"+": target.Add,
	"-": target.Sub,
	"*": target.Mul,
	"/": target.Div,
	"%": target.Modulus,
}

var compoundAssignOps = map[ir.AssignOp]target.Operation{
	ir.AssignAdd: target.Add,
	ir.AssignSub: target.Sub,
	ir.AssignMul: target.Mul,
	ir.AssignDiv: target.Div,
	ir.AssignMod: target.Modulus,
}

// Generate lowers p into an instruction table. p is assumed to
// have already passed Validate and ResolveVariables; Generate does not
// re-check writability, ranges, or arity. Generate returns whatever it
// managed to emit even when it records a hard error, so a caller inspecting
// the buffer can still see partial output if useful, but the orchestrator
// must not surface that output as a successful compile.
func Generate(p *ir.Program, cat *catalog.Catalog, vars *ir.Vars, buf *diag.Buffer) target.Table {
	c := NewContext(cat, vars, buf)

	for _, a := range vars.Prelude {
		c.currentDesc = fmt.Sprintf("var initializer at %d:%d", a.Pos.Line, a.Pos.Col)
		c.lowerAction(a, target.NoActivator)
	}

	for _, s := range p.Statements {
		c.currentDesc = c.describe(s)
		switch n := s.(type) {
		case *ir.EventHandler:
			c.lowerHandler(n)
		case *ir.Assignment:
			// A bare top-level assignment (no guarding handler) runs every tick,
			// the same as on.always, just without the wrapping TRUE record: it has
			// no condition to gate on.
			c.lowerAction(n, target.NoActivator)
		}
	}

	return c.table
}

// -----------------------------
// ----- Event handler lowering -----
// -----------------------------

func (c *Context) lowerHandler(h *ir.EventHandler) {
	var activator int

	switch h.Kind {
	case ir.HandlerOnAlways:
		activator = c.emit(target.True, target.Operand{}, target.Operand{}, target.NoActivator)

	case ir.HandlerOnArm:
		delay := c.literalConfig(h, "delay")
		armTimer := c.armTimerOperand(h.Pos)
		gt := c.emit(target.Greater, armTimer, target.Value(0), target.NoActivator)
		activator = c.emit(target.Edge, c.lcResultOperand(gt), target.Value(delay), target.NoActivator)

	case ir.HandlerIf:
		if h.ReuseFrom != nil {
			base, ok := c.condSlot[h.ReuseFrom]
			if !ok {
				// The CSE pass only ever points ReuseFrom at an earlier sibling, so
				// this should already be lowered; fall back to lowering it fresh
				// rather than panicking if that invariant is ever violated.
				base = c.lowerCondition(h.ReuseFrom.Conditions[0])
			}
			if h.Inverted {
				activator = c.emit(target.Not, c.lcResultOperand(base), target.Operand{}, target.NoActivator)
			} else {
				activator = base
			}
		} else {
			activator = c.lowerCondition(h.Conditions[0])
		}
		c.condSlot[h] = activator

	case ir.HandlerEdge:
		cond := c.lowerCondition(h.Conditions[0])
		duration := c.literalConfig(h, "duration")
		activator = c.emit(target.Edge, c.lcResultOperand(cond), target.Value(duration), target.NoActivator)

	case ir.HandlerDelay:
		cond := c.lowerCondition(h.Conditions[0])
		duration := c.literalConfig(h, "duration")
		activator = c.emit(target.Delay, c.lcResultOperand(cond), target.Value(duration), target.NoActivator)

	case ir.HandlerSticky:
		on := c.lowerCondition(h.Conditions[0])
		off := c.lowerCondition(h.Conditions[1])
		activator = c.emit(target.Sticky, c.lcResultOperand(on), c.lcResultOperand(off), target.NoActivator)

	case ir.HandlerTimer:
		onMs := c.resolveOperand(h.Conditions[0])
		offMs := c.resolveOperand(h.Conditions[1])
		activator = c.emit(target.Timer, onMs, offMs, target.NoActivator)

	case ir.HandlerWhenChanged:
		value := c.resolveOperand(h.Conditions[0])
		threshold := c.resolveOperand(h.Conditions[1])
		activator = c.emit(target.Delta, value, threshold, target.NoActivator)

	default:
		c.Buf.Errorf(diag.CategoryShapeHard, h.Pos.Line, h.Pos.Col, "unknown handler kind %s", h.Kind)
		return
	}

	for _, st := range h.Body {
		if a, ok := st.(*ir.Assignment); ok {
			c.lowerAction(a, activator)
		}
	}
}

// literalConfig extracts an already-validated literal integer config value.
// Validate guarantees this succeeds for any program that reached code
// generation; the zero fallback only matters for a call site that runs
// before or without validation (tests exercising codegen directly).
func (c *Context) literalConfig(h *ir.EventHandler, key string) int32 {
	lit, ok := h.Config[key].(*ir.Literal)
	if !ok || lit.IsBool {
		c.Buf.Errorf(diag.CategoryShapeHard, h.Pos.Line, h.Pos.Col, "%s option %q must be a literal integer", h.Kind, key)
		return 0
	}
	return lit.Int
}

func (c *Context) armTimerOperand(pos ir.Pos) target.Operand {
	entry, err := c.Catalog.Resolve([]string{"time", "armTimer"})
	if err != nil || entry.Read == nil {
		c.Buf.Errorf(diag.CategoryShapeHard, pos.Line, pos.Col, "catalog has no readable time.armTimer for on.arm lowering")
		return target.Value(0)
	}
	return *entry.Read
}

// -----------------------
// ----- Condition lowering -----
// -----------------------

// lowerCondition compiles a boolean-valued AST node to one or more
// instruction records and returns the slot holding its result.
func (c *Context) lowerCondition(e ir.Expression) int {
	switch n := e.(type) {
	case *ir.Literal:
		if !n.IsBool {
			c.Buf.Errorf(diag.CategoryShapeHard, n.Pos.Line, n.Pos.Col, "non-boolean literal used as a condition")
		}
		if n.IsBool && n.Bool {
			return c.emit(target.True, target.Operand{}, target.Operand{}, target.NoActivator)
		}
		trueSlot := c.emit(target.True, target.Operand{}, target.Operand{}, target.NoActivator)
		return c.emit(target.Not, c.lcResultOperand(trueSlot), target.Operand{}, target.NoActivator)

	case *ir.BinaryExpression:
		op, ok := comparisonOps[n.Op]
		if !ok {
			c.Buf.Errorf(diag.CategoryShapeHard, n.Pos.Line, n.Pos.Col, "operator %q cannot appear as a condition", n.Op)
			op = target.Equal
		}
		a := c.resolveOperand(n.Left)
		b := c.resolveOperand(n.Right)
		return c.emit(op, a, b, target.NoActivator)

	case *ir.LogicalExpression:
		left := c.lowerCondition(n.Left)
		right := c.lowerCondition(n.Right)
		op := target.And
		if n.Op == "||" {
			op = target.Or
		}
		return c.emit(op, c.lcResultOperand(left), c.lcResultOperand(right), target.NoActivator)

	case *ir.UnaryExpression:
		arg := c.lowerCondition(n.Arg)
		return c.emit(target.Not, c.lcResultOperand(arg), target.Operand{}, target.NoActivator)

	case *ir.MemberExpression, *ir.Identifier, *ir.IndexExpr:
		// A bare value used directly as a condition (e.g. flight.mode.failsafe in
		// `a || flight.mode.failsafe`) is treated as boolean: emit EQUAL(operand,
		// 1).
		if m, ok := n.(*ir.MemberExpression); ok {
			m.Boolish = true
		}
		return c.emit(target.Equal, c.resolveOperand(n), target.Value(1), target.NoActivator)

	default:
		c.Buf.Errorf(diag.CategoryShapeHard, e.Position().Line, e.Position().Col, "unsupported condition expression")
		return c.emit(target.True, target.Operand{}, target.Operand{}, target.NoActivator)
	}
}

// -----------------------
// ----- Operand resolution -----
// -----------------------

// resolveOperand resolves e to the operand pair an instruction slot can hold.
// Sub-expressions that need their own
// instruction (arithmetic, nested boolean logic, Math.abs) are lowered first
// and referenced back by LC_RESULT.
func (c *Context) resolveOperand(e ir.Expression) target.Operand {
	switch n := e.(type) {
	case *ir.Literal:
		if n.IsBool {
			if n.Bool {
				return target.Value(1)
			}
			return target.Value(0)
		}
		return target.Value(n.Int)

	case *ir.IndexExpr:
		idx := c.literalIndex(n.Index)
		switch n.Root {
		case "gvar":
			return target.GVar(idx)
		case "rc":
			// Compiler-facing channels are 0-17; the device enumerates 1-18. This is
			// the single point of translation on the compile path.
			return target.RCChannel(idx + 1)
		default:
			c.Buf.Errorf(diag.CategoryShapeHard, n.Pos.Line, n.Pos.Col, "unknown indexable root %q", n.Root)
			return target.Value(0)
		}

	case *ir.MemberExpression:
		entry, err := c.Catalog.Resolve(n.Path)
		if err != nil || entry.Read == nil {
			c.Buf.Errorf(diag.CategoryShapeHard, n.Pos.Line, n.Pos.Col, "%s is not readable", strings.Join(n.Path, "."))
			return target.Value(0)
		}
		return *entry.Read

	case *ir.Identifier:
		if i := c.Vars.RegisterOf(n.Name); i >= 0 {
			return target.GVar(int32(i))
		}
		c.Buf.Errorf(diag.CategoryShapeHard, n.Pos.Line, n.Pos.Col, "cannot resolve %q to an operand", n.Name)
		return target.Value(0)

	case *ir.BinaryExpression:
		if _, isCompare := comparisonOps[n.Op]; isCompare {
			return c.lcResultOperand(c.lowerCondition(n))
		}
		return c.lcResultOperand(c.lowerArithmetic(n))

	case *ir.LogicalExpression, *ir.UnaryExpression:
		return c.lcResultOperand(c.lowerCondition(n))

	case *ir.CallExpression:
		return c.lcResultOperand(c.lowerMathAbs(n))

	default:
		c.Buf.Errorf(diag.CategoryShapeHard, e.Position().Line, e.Position().Col, "unsupported expression")
		return target.Value(0)
	}
}

func (c *Context) literalIndex(e ir.Expression) int32 {
	lit, ok := e.(*ir.Literal)
	if !ok || lit.IsBool {
		c.Buf.Errorf(diag.CategoryShapeHard, e.Position().Line, e.Position().Col, "index must be a literal integer")
		return 0
	}
	return lit.Int
}

func (c *Context) lowerArithmetic(n *ir.BinaryExpression) int {
	op, ok := arithmeticOps[n.Op]
	if !ok {
		c.Buf.Errorf(diag.CategoryShapeHard, n.Pos.Line, n.Pos.Col, "unsupported arithmetic operator %q", n.Op)
		op = target.Add
	}
	a := c.resolveOperand(n.Left)
	b := c.resolveOperand(n.Right)
	return c.emit(op, a, b, target.NoActivator)
}

// lowerMathAbs lowers Math.abs(x) as `(0 - x)` then `max(x, -x)`, returning
// the max slot; the engine has no absolute-value opcode.
func (c *Context) lowerMathAbs(n *ir.CallExpression) int {
	if len(n.Args) != 1 {
		c.Buf.Errorf(diag.CategoryShapeHard, n.Pos.Line, n.Pos.Col, "Math.abs expects exactly one argument")
		return c.emit(target.True, target.Operand{}, target.Operand{}, target.NoActivator)
	}
	x := c.resolveOperand(n.Args[0])
	neg := c.emit(target.Sub, target.Value(0), x, target.NoActivator)
	return c.emit(target.Max, x, c.lcResultOperand(neg), target.NoActivator)
}

// -----------------------
// ----- Action lowering -----
// -----------------------

// registerIndexOf resolves e to a register index when it names one directly
// (an explicit gvar[i] or a var-bound identifier), without emitting anything.
func (c *Context) registerIndexOf(e ir.Expression) (int32, bool) {
	switch n := e.(type) {
	case *ir.IndexExpr:
		if n.Root != "gvar" {
			return 0, false
		}
		return c.literalIndex(n.Index), true
	case *ir.Identifier:
		if i := c.Vars.RegisterOf(n.Name); i >= 0 {
			return int32(i), true
		}
	}
	return 0, false
}

// detectSelfArithmetic recognizes `gvar[i] = gvar[i] + k;`, `gvar[i] += k;`,
// `gvar[i]++`/`--`, and their var-bound equivalents, which lower to the
// dedicated register increment/decrement opcode rather than a generic
// add/sub-then-set pair, saving a slot per self-operation.
func (c *Context) detectSelfArithmetic(a *ir.Assignment) (reg int32, delta int32, isInc bool, ok bool) {
	targetReg, isReg := c.registerIndexOf(a.Target)
	if !isReg {
		return 0, 0, false, false
	}

	if a.IncDec != 0 {
		if a.IncDec > 0 {
			return targetReg, int32(a.IncDec), true, true
		}
		return targetReg, int32(-a.IncDec), false, true
	}

	switch a.Op {
	case ir.AssignAdd, ir.AssignSub:
		lit, ok := a.Value.(*ir.Literal)
		if !ok || lit.IsBool {
			return 0, 0, false, false
		}
		return targetReg, lit.Int, a.Op == ir.AssignAdd, true

	case ir.AssignSet:
		bin, ok := a.Value.(*ir.BinaryExpression)
		if !ok || (bin.Op != "+" && bin.Op != "-") {
			return 0, 0, false, false
		}
		if leftReg, ok := c.registerIndexOf(bin.Left); ok && leftReg == targetReg {
			if lit, ok := bin.Right.(*ir.Literal); ok && !lit.IsBool {
				return targetReg, lit.Int, bin.Op == "+", true
			}
		}
		if bin.Op == "+" {
			if rightReg, ok := c.registerIndexOf(bin.Right); ok && rightReg == targetReg {
				if lit, ok := bin.Left.(*ir.Literal); ok && !lit.IsBool {
					return targetReg, lit.Int, true, true
				}
			}
		}
	}
	return 0, 0, false, false
}

// lowerSet emits the record that writes val to target t, gated by activator.
// Register targets encode the register index as operand_a (VALUE) and the
// value as operand_b; catalog-backed targets use their declared write opcode
// with the value alone as operand_a.
func (c *Context) lowerSet(t ir.Expression, val target.Operand, activator int) int {
	if reg, ok := c.registerIndexOf(t); ok {
		return c.emit(target.Set, target.Value(reg), val, activator)
	}
	if m, ok := t.(*ir.MemberExpression); ok {
		entry, err := c.Catalog.Resolve(m.Path)
		if err != nil || entry.WriteOp == nil {
			c.Buf.Errorf(diag.CategoryShapeHard, m.Pos.Line, m.Pos.Col, "%s is not writable", strings.Join(m.Path, "."))
			return c.emit(target.True, target.Operand{}, target.Operand{}, activator)
		}
		return c.emit(*entry.WriteOp, val, target.Operand{}, activator)
	}
	c.Buf.Errorf(diag.CategoryShapeHard, t.Position().Line, t.Position().Col, "unsupported assignment target")
	return c.emit(target.True, target.Operand{}, target.Operand{}, activator)
}

// lowerAction compiles one assignment to one record (two if it performs
// arithmetic against a non-self operand), gated by activator.
func (c *Context) lowerAction(a *ir.Assignment, activator int) {
	if reg, delta, isInc, ok := c.detectSelfArithmetic(a); ok {
		op := target.Dec
		if isInc {
			op = target.Inc
		}
		if delta < 0 {
			delta = -delta
			if op == target.Inc {
				op = target.Dec
			} else {
				op = target.Inc
			}
		}
		c.emit(op, target.Value(reg), target.Value(delta), activator)
		return
	}

	if a.IncDec != 0 {
		cur := c.resolveOperand(a.Target)
		delta := int32(1)
		if a.IncDec < 0 {
			delta = -1
		}
		sum := c.emit(target.Add, cur, target.Value(delta), target.NoActivator)
		c.lowerSet(a.Target, c.lcResultOperand(sum), activator)
		return
	}

	if a.Op == ir.AssignSet {
		c.lowerSet(a.Target, c.resolveOperand(a.Value), activator)
		return
	}

	op, ok := compoundAssignOps[a.Op]
	if !ok {
		c.Buf.Errorf(diag.CategoryShapeHard, a.Pos.Line, a.Pos.Col, "unsupported assignment operator %s", a.Op)
		return
	}
	cur := c.resolveOperand(a.Target)
	rhs := c.resolveOperand(a.Value)
	sum := c.emit(op, cur, rhs, target.NoActivator)
	c.lowerSet(a.Target, c.lcResultOperand(sum), activator)
}
