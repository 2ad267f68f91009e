package ir

import (
	"fmt"
	"strings"

	"github.com/inav-tools/logicc/src/catalog"
	"github.com/inav-tools/logicc/src/diag"
	"github.com/inav-tools/logicc/src/regfile"
)

// declKind distinguishes how a top-level name was bound, for writability and
// reassignment checks.
type declKind int

const (
	declNone declKind = iota
	declImmutable        // let/const
	declMutable          // var
)

// Validate runs the semantic analyzer over p: per-statement checks
// (identifier resolution, writability, ranges, handler shapes, constant
// initializers, duplicates) plus the four global passes (dead code,
// always-true, write-write conflict, uninitialized registers). Hard errors
// and soft warnings are both appended to buf; Validate never stops early, so
// the orchestrator can surface every diagnostic at once before aborting on
// the first hard error.
func Validate(p *Program, cat *catalog.Catalog, buf *diag.Buffer) {
	declared := map[string]declKind{}
	immutableSoFar := map[string]bool{} // union of every let/const name in the program, for (f).

	// Pre-scan every top-level let/const name so that forward references are
	// visible to the "effectively constant" check; actual cycle detection
	// happens later, during inlining (the Variable Handler), which is where
	// `let x = y; let y = x;` is diagnosed.
	for _, s := range p.Statements {
		if lc, ok := s.(*LetConst); ok {
			immutableSoFar[lc.Name] = true
		}
	}

	for _, s := range p.Statements {
		validateTopLevel(s, cat, buf, declared, immutableSoFar)
	}

	checkWriteConflicts(p, buf)
	checkUninitializedRegisters(p, buf)
}

func validateTopLevel(s Statement, cat *catalog.Catalog, buf *diag.Buffer, declared map[string]declKind, consts map[string]bool) {
	switch n := s.(type) {
	case *Destructuring:
		for _, name := range n.Names {
			// "on" is the event-handler namespace (on.always/on.arm), bound by
			// destructuring like a catalog root but resolved by the parser, not
			// the catalog.
			if name != "on" && !cat.IsRoot(name) {
				buf.Errorf(diag.CategorySemanticHard, n.Pos.Line, n.Pos.Col, "unknown API root %q in destructuring", name)
			}
		}
	case *LetConst:
		if declared[n.Name] != declNone {
			buf.Errorf(diag.CategorySemanticHard, n.Pos.Line, n.Pos.Col, "duplicate declaration of %q", n.Name)
			return
		}
		declared[n.Name] = declImmutable
		if !isEffectivelyConst(n.Init, consts) {
			buf.Errorf(diag.CategorySemanticHard, n.Pos.Line, n.Pos.Col,
				"initializer of %q is not a compile-time constant expression", n.Name)
		}
	case *VarDecl:
		if declared[n.Name] != declNone {
			buf.Errorf(diag.CategorySemanticHard, n.Pos.Line, n.Pos.Col, "duplicate declaration of %q", n.Name)
			return
		}
		declared[n.Name] = declMutable
	case *Assignment:
		validateAssignment(n, cat, buf, declared)
	case *EventHandler:
		validateHandler(n, cat, buf, declared)
	}
}

// isEffectivelyConst reports whether e is restricted to literals, binary and
// unary expressions over such sub-expressions, single-argument Math.abs calls
// over such a sub-expression, and references to other let/const bindings
// declared anywhere in the program — the only shapes a `let`/`const`
// initializer may take.
func isEffectivelyConst(e Expression, consts map[string]bool) bool {
	switch n := e.(type) {
	case *Literal:
		return true
	case *Identifier:
		return consts[n.Name]
	case *BinaryExpression:
		return isEffectivelyConst(n.Left, consts) && isEffectivelyConst(n.Right, consts)
	case *UnaryExpression:
		return isEffectivelyConst(n.Arg, consts)
	case *CallExpression:
		if n.Callee != "Math.abs" || len(n.Args) != 1 {
			return false
		}
		return isEffectivelyConst(n.Args[0], consts)
	default:
		return false
	}
}

// validateHandler checks one EventHandler: shape (arity, literal configs),
// assignment-only bodies for the non-`if` kinds, writability and range of
// every assignment target, and the dead-code / always-true global passes over
// its conditions.
func validateHandler(h *EventHandler, cat *catalog.Catalog, buf *diag.Buffer, declared map[string]declKind) {
	line, col := h.Pos.Line, h.Pos.Col

	switch h.Kind {
	case HandlerOnArm:
		requireLiteralConfig(h, "delay", buf)
	case HandlerEdge, HandlerDelay:
		if len(h.Conditions) != 1 {
			buf.Errorf(diag.CategoryShapeHard, line, col, "%s expects exactly one condition argument", h.Kind)
		}
		requireLiteralConfig(h, "duration", buf)
	case HandlerSticky:
		if len(h.Conditions) != 2 {
			buf.Errorf(diag.CategoryShapeHard, line, col, "sticky expects exactly two condition arguments (on, off)")
		}
	case HandlerTimer:
		if len(h.Conditions) != 2 {
			buf.Errorf(diag.CategoryShapeHard, line, col, "timer expects exactly two duration arguments (onMs, offMs)")
		} else {
			for i, c := range h.Conditions {
				if _, ok := literalOf(c); !ok {
					buf.Errorf(diag.CategoryShapeHard, line, col, "timer argument %d must be a literal duration", i)
				}
			}
		}
	case HandlerWhenChanged:
		if len(h.Conditions) != 2 {
			buf.Errorf(diag.CategoryShapeHard, line, col, "whenChanged expects exactly (value, threshold) arguments")
		}
	case HandlerIf:
		if len(h.Conditions) != 1 {
			buf.Errorf(diag.CategoryShapeHard, line, col, "if expects exactly one condition")
		}
	}

	if h.Kind != HandlerIf {
		for _, st := range h.Body {
			if _, ok := st.(*Assignment); !ok {
				buf.Errorf(diag.CategorySemanticHard, line, col, "%s body may only contain assignments", h.Kind)
			}
		}
	}

	for _, c := range h.Conditions {
		checkDeadAndAlwaysTrue(c, buf)
	}

	for _, st := range h.Body {
		if a, ok := st.(*Assignment); ok {
			validateAssignment(a, cat, buf, declared)
		}
	}

	for _, c := range h.Conditions {
		validateExpr(c, cat, buf)
	}
	for _, e := range h.Config {
		validateExpr(e, cat, buf)
	}
}

func requireLiteralConfig(h *EventHandler, key string, buf *diag.Buffer) {
	e, ok := h.Config[key]
	if !ok {
		buf.Errorf(diag.CategoryShapeHard, h.Pos.Line, h.Pos.Col, "%s requires a %q option", h.Kind, key)
		return
	}
	if _, ok := literalOf(e); !ok {
		buf.Errorf(diag.CategoryShapeHard, h.Pos.Line, h.Pos.Col, "%s option %q must be a literal integer", h.Kind, key)
	}
}

func literalOf(e Expression) (*Literal, bool) {
	l, ok := e.(*Literal)
	if !ok || l.IsBool {
		return nil, false
	}
	return l, true
}

// validateAssignment checks (b) writability and (c) static range of a.
func validateAssignment(a *Assignment, cat *catalog.Catalog, buf *diag.Buffer, declared map[string]declKind) {
	line, col := a.Pos.Line, a.Pos.Col

	switch t := a.Target.(type) {
	case *Identifier:
		switch declared[t.Name] {
		case declImmutable:
			buf.Errorf(diag.CategorySemanticHard, line, col, "cannot assign to immutable binding %q", t.Name)
		case declNone:
			buf.Errorf(diag.CategorySemanticHard, line, col, "unknown assignment target %q", t.Name)
		}
	case *IndexExpr:
		if t.Root != "gvar" {
			buf.Errorf(diag.CategorySemanticHard, line, col, "%s[] is not a writable target", t.Root)
			return
		}
		if lit, ok := literalOf(t.Index); ok {
			if lit.Int < 0 || int(lit.Int) >= regfile.Count {
				buf.Errorf(diag.CategorySemanticHard, line, col, "gvar index %d out of range [0, %d)", lit.Int, regfile.Count)
			}
		}
		checkValueRange(a, regfile.ValueMin, regfile.ValueMax, buf)
	case *MemberExpression:
		e, err := cat.Resolve(t.Path)
		if err != nil {
			buf.Errorf(diag.CategorySemanticHard, line, col, "%s", err)
			return
		}
		if !e.Writable {
			buf.Errorf(diag.CategorySemanticHard, line, col, "%s is not writable", strings.Join(t.Path, "."))
			return
		}
		if e.Range != nil {
			checkValueRange(a, e.Range.Min, e.Range.Max, buf)
		}
	default:
		buf.Errorf(diag.CategorySemanticHard, line, col, "invalid assignment target")
	}

	if a.Value != nil {
		validateExpr(a.Value, cat, buf)
	}
}

func checkValueRange(a *Assignment, min, max int32, buf *diag.Buffer) {
	if a.Value == nil {
		return
	}
	lit, ok := literalOf(a.Value)
	if !ok {
		return
	}
	if lit.Int < min || lit.Int > max {
		buf.Warnf(diag.CategorySoftRangeClip, a.Pos.Line, a.Pos.Col,
			"value %d out of range [%d, %d], will be clipped", lit.Int, min, max)
	}
}

// validateExpr checks (a): every identifier chain resolves, either against the
// catalog (MemberExpression/IndexExpr over rc) or as a previously declared
// name (Identifier). var/let/const names are checked at their declaration and
// assignment sites; this only needs to walk catalog-facing nodes.
func validateExpr(e Expression, cat *catalog.Catalog, buf *diag.Buffer) {
	switch n := e.(type) {
	case *MemberExpression:
		if _, err := cat.Resolve(n.Path); err != nil {
			buf.Errorf(diag.CategorySemanticHard, n.Pos.Line, n.Pos.Col, "%s", err)
		}
	case *IndexExpr:
		if n.Root != "rc" && n.Root != "gvar" {
			buf.Errorf(diag.CategorySemanticHard, n.Pos.Line, n.Pos.Col, "unknown indexable root %q", n.Root)
		}
		if n.Root == "rc" {
			if lit, ok := literalOf(n.Index); ok && (lit.Int < 0 || lit.Int > 17) {
				buf.Errorf(diag.CategorySemanticHard, n.Pos.Line, n.Pos.Col,
					"rc channel index %d out of range [0, 17]", lit.Int)
			}
		}
		validateExpr(n.Index, cat, buf)
	case *BinaryExpression:
		validateExpr(n.Left, cat, buf)
		validateExpr(n.Right, cat, buf)
	case *LogicalExpression:
		validateExpr(n.Left, cat, buf)
		validateExpr(n.Right, cat, buf)
	case *UnaryExpression:
		validateExpr(n.Arg, cat, buf)
	case *CallExpression:
		for _, a := range n.Args {
			validateExpr(a, cat, buf)
		}
	}
}

// checkDeadAndAlwaysTrue implements the dead-code and always-true global
// passes over condition c: literal-vs-literal comparisons and
// trivial tautologies/contradictions built from `&&`/`||` over syntactically
// negated operands.
func checkDeadAndAlwaysTrue(c Expression, buf *diag.Buffer) {
	switch n := c.(type) {
	case *BinaryExpression:
		lhs, lok := n.Left.(*Literal)
		rhs, rok := n.Right.(*Literal)
		if lok && rok && !lhs.IsBool && !rhs.IsBool {
			if folded, ok := foldBinary(n.Op, lhs.Int, rhs.Int); ok && folded.IsBool {
				if folded.Bool {
					buf.Warnf(diag.CategorySoftAlwaysTrue, n.Pos.Line, n.Pos.Col,
						"condition is always true; consider on.always")
				} else {
					buf.Warnf(diag.CategorySoftDeadCode, n.Pos.Line, n.Pos.Col,
						"condition is always false; this code is unreachable")
				}
			}
		}
		checkDeadAndAlwaysTrue(n.Left, buf)
		checkDeadAndAlwaysTrue(n.Right, buf)
	case *LogicalExpression:
		if n.Op == "&&" && (isNegationOf(n.Left, n.Right) || isNegationOf(n.Right, n.Left)) {
			buf.Warnf(diag.CategorySoftDeadCode, n.Pos.Line, n.Pos.Col,
				"conjunction is always false: operands are mutually exclusive")
		}
		if n.Op == "||" && (isNegationOf(n.Left, n.Right) || isNegationOf(n.Right, n.Left)) {
			buf.Warnf(diag.CategorySoftAlwaysTrue, n.Pos.Line, n.Pos.Col,
				"disjunction is always true; consider on.always")
		}
		checkDeadAndAlwaysTrue(n.Left, buf)
		checkDeadAndAlwaysTrue(n.Right, buf)
	case *Literal:
		if n.IsBool && n.Bool {
			buf.Warnf(diag.CategorySoftAlwaysTrue, n.Pos.Line, n.Pos.Col, "condition is always true; consider on.always")
		}
	case *UnaryExpression:
		checkDeadAndAlwaysTrue(n.Arg, buf)
	}
}

// targetKey renders a's target as a stable string for write-conflict grouping.
func targetKey(e Expression) string {
	switch n := e.(type) {
	case *Identifier:
		return "var:" + n.Name
	case *IndexExpr:
		if lit, ok := literalOf(n.Index); ok {
			return fmt.Sprintf("%s[%d]", n.Root, lit.Int)
		}
		return n.Root + "[?]"
	case *MemberExpression:
		return "member:" + strings.Join(n.Path, ".")
	default:
		return "?"
	}
}

// checkWriteConflicts implements the two write-write passes: within one
// handler the last write wins, and the same target written from multiple
// on.always handlers races with undefined order.
func checkWriteConflicts(p *Program, buf *diag.Buffer) {
	alwaysWriters := map[string]int{} // target -> count of distinct on.always handlers writing it.

	for _, s := range p.Statements {
		h, ok := s.(*EventHandler)
		if !ok {
			continue
		}
		seen := map[string]bool{}
		for _, st := range h.Body {
			a, ok := st.(*Assignment)
			if !ok {
				continue
			}
			key := targetKey(a.Target)
			if seen[key] {
				buf.Warnf(diag.CategorySoftWriteConflict, a.Pos.Line, a.Pos.Col,
					"multiple writes to %s within this handler; last write wins", key)
			}
			seen[key] = true
		}
		if h.Kind == HandlerOnAlways {
			for key := range seen {
				alwaysWriters[key]++
			}
		}
	}

	for key, n := range alwaysWriters {
		if n > 1 {
			buf.Warnf(diag.CategorySoftRace, 0, 0,
				"%s is written by %d separate on.always handlers; evaluation order is undefined", key, n)
		}
	}
}

// checkUninitializedRegisters implements the fourth global pass: a gvar slot
// that is read somewhere but never written anywhere in the program.
func checkUninitializedRegisters(p *Program, buf *diag.Buffer) {
	written := map[int32]bool{}
	read := map[int32]Pos{}

	var walkBody func(stmts []Statement)
	var walkExpr func(e Expression, isWrite bool)

	walkExpr = func(e Expression, isWrite bool) {
		switch n := e.(type) {
		case *IndexExpr:
			if n.Root == "gvar" {
				if lit, ok := literalOf(n.Index); ok {
					if isWrite {
						written[lit.Int] = true
					} else if _, seen := read[lit.Int]; !seen {
						read[lit.Int] = n.Pos
					}
				}
			}
			walkExpr(n.Index, false)
		case *BinaryExpression:
			walkExpr(n.Left, false)
			walkExpr(n.Right, false)
		case *LogicalExpression:
			walkExpr(n.Left, false)
			walkExpr(n.Right, false)
		case *UnaryExpression:
			walkExpr(n.Arg, false)
		case *CallExpression:
			for _, a := range n.Args {
				walkExpr(a, false)
			}
		}
	}

	walkBody = func(stmts []Statement) {
		for _, s := range stmts {
			switch n := s.(type) {
			case *Assignment:
				walkExpr(n.Target, true)
				if n.IncDec != 0 {
					// ++/-- also reads the current value.
					walkExpr(n.Target, false)
				}
				if n.Value != nil {
					walkExpr(n.Value, false)
				}
			case *EventHandler:
				for _, c := range n.Conditions {
					walkExpr(c, false)
				}
				for _, c := range n.Config {
					walkExpr(c, false)
				}
				walkBody(n.Body)
			}
		}
	}
	walkBody(p.Statements)

	for idx, pos := range read {
		if !written[idx] {
			buf.Warnf(diag.CategorySoftUninitialized, pos.Line, pos.Col,
				"gvar[%d] is read but never written anywhere in this program", idx)
		}
	}
}
