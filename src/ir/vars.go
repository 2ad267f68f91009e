package ir

import (
	"fmt"

	"github.com/inav-tools/logicc/src/diag"
	"github.com/inav-tools/logicc/src/regfile"
)

// maxExpansionDepth bounds how deep a single inline expansion may recurse
// before the Variable Handler gives up and reports a cyclic reference. Every
// nested sub-expression and every identifier substitution counts one level;
// 64 is far beyond any legitimate chain of let/const aliases.
const maxExpansionDepth = 64

// Vars holds the result of running the Variable Handler over a Program: the
// allocated register file for `var` bindings and a prelude of
// register-initialization assignments the generator emits at program start,
// one per initialized `var`.
type Vars struct {
	Registers *regfile.File
	Prelude   []*Assignment
	regOf     map[string]int
}

// RegisterOf returns the allocated gvar index for a `var`-bound name, or -1 if
// name was never declared as a `var` (e.g. it is a let/const, which never
// gets a register).
func (v *Vars) RegisterOf(name string) int {
	if v.regOf == nil {
		return -1
	}
	if i, ok := v.regOf[name]; ok {
		return i
	}
	return -1
}

// ResolveVariables runs the Variable Handler over p: it
// allocates persistent registers for every `var` from the highest index
// downward, reserves indices the source names explicitly via `gvar[i]=...`
// first so auto-allocation skips them, and inlines every `let`/`const`
// reference by substituting its initializer expression in place, detecting
// cyclic references via a bounded-depth, visiting-set walk.
//
// Unlike semantic analysis, which must tolerate forward references among
// let/const names so that a cycle is even reachable, ResolveVariables is
// where `let x = y; let y = x;` is actually caught and reported as a hard
// error, because only here does expansion recurse through the full
// initializer chain.
func ResolveVariables(p *Program, buf *diag.Buffer) *Vars {
	consts := map[string]*LetConst{}
	for _, s := range p.Statements {
		if lc, ok := s.(*LetConst); ok {
			consts[lc.Name] = lc
		}
	}

	v := &Vars{Registers: regfile.New(), regOf: map[string]int{}}

	// Explicit gvar[i] targets are reserved before auto-allocation runs, so
	// that `var x;` never collides with a register the source named by hand.
	reserveExplicitGVars(p.Statements, v.Registers, buf)

	for _, s := range p.Statements {
		vd, ok := s.(*VarDecl)
		if !ok {
			continue
		}
		i, err := v.Registers.Alloc(vd.Name)
		if err != nil {
			buf.Errorf(diag.CategoryResourceHard, vd.Pos.Line, vd.Pos.Col, "%s", err)
			continue
		}
		v.regOf[vd.Name] = i
		if vd.Init != nil {
			v.Prelude = append(v.Prelude, &Assignment{
				Pos:    vd.Pos,
				Target: &IndexExpr{Pos: vd.Pos, Root: "gvar", Index: &Literal{Int: int32(i)}},
				Op:     AssignSet,
				Value:  vd.Init,
			})
		}
	}

	for _, s := range p.Statements {
		inlineStatement(s, consts, buf, map[string]bool{})
	}

	return v
}

// reserveExplicitGVars scans assignment targets and values and handler
// conditions and configs (recursing into handler bodies) for a
// literal-indexed `gvar[i]` and reserves that index under the owner name
// "gvar[i]", so a later `var` auto-allocation never steps on a hand-picked
// slot. let/const and var initializers are not scanned.
func reserveExplicitGVars(stmts []Statement, rf *regfile.File, buf *diag.Buffer) {
	var walkExpr func(e Expression)
	walkExpr = func(e Expression) {
		switch n := e.(type) {
		case *IndexExpr:
			if n.Root == "gvar" {
				if lit, ok := n.Index.(*Literal); ok && !lit.IsBool {
					if err := rf.Reserve(int(lit.Int), fmt.Sprintf("gvar[%d]", lit.Int)); err != nil {
						buf.Errorf(diag.CategoryResourceHard, n.Pos.Line, n.Pos.Col, "%s", err)
					}
				}
			}
			walkExpr(n.Index)
		case *BinaryExpression:
			walkExpr(n.Left)
			walkExpr(n.Right)
		case *LogicalExpression:
			walkExpr(n.Left)
			walkExpr(n.Right)
		case *UnaryExpression:
			walkExpr(n.Arg)
		case *CallExpression:
			for _, a := range n.Args {
				walkExpr(a)
			}
		}
	}

	var walk func(stmts []Statement)
	walk = func(stmts []Statement) {
		for _, s := range stmts {
			switch n := s.(type) {
			case *Assignment:
				walkExpr(n.Target)
				if n.Value != nil {
					walkExpr(n.Value)
				}
			case *EventHandler:
				for _, c := range n.Conditions {
					walkExpr(c)
				}
				for _, c := range n.Config {
					walkExpr(c)
				}
				walk(n.Body)
			}
		}
	}
	walk(stmts)
}

// inlineStatement substitutes every Identifier reference to a let/const name
// within s (recursing into handler bodies), replacing the reference with the
// binding's initializer expression, itself fully inlined. The expression is
// not copied: every use site shares the same nodes.
func inlineStatement(s Statement, consts map[string]*LetConst, buf *diag.Buffer, visiting map[string]bool) {
	switch n := s.(type) {
	case *LetConst:
		// A let/const binding is checked for a cyclic initializer here, seeded
		// with its own name, even when nothing else in the program ever
		// refers to it: `let x = y; let y = x;` is a hard error on its own,
		// not only once something reads x or y.
		if n.Init != nil {
			n.Init = inlineExpr(n.Init, consts, buf, map[string]bool{n.Name: true}, 0)
		}
	case *VarDecl:
		if n.Init != nil {
			n.Init = inlineExpr(n.Init, consts, buf, visiting, 0)
		}
	case *Assignment:
		if n.Value != nil {
			n.Value = inlineExpr(n.Value, consts, buf, visiting, 0)
		}
		if t, ok := n.Target.(*IndexExpr); ok {
			t.Index = inlineExpr(t.Index, consts, buf, visiting, 0)
		}
	case *EventHandler:
		for i, c := range n.Conditions {
			n.Conditions[i] = inlineExpr(c, consts, buf, visiting, 0)
		}
		for k, c := range n.Config {
			n.Config[k] = inlineExpr(c, consts, buf, visiting, 0)
		}
		for _, st := range n.Body {
			inlineStatement(st, consts, buf, visiting)
		}
	}
}

// inlineExpr recursively substitutes let/const identifier references in e,
// tracking visiting for cycle detection and depth for the bounded-expansion
// guard. It returns a tree with every such reference replaced; nodes that
// carry no identifier reference are returned unchanged in place.
func inlineExpr(e Expression, consts map[string]*LetConst, buf *diag.Buffer, visiting map[string]bool, depth int) Expression {
	if depth > maxExpansionDepth {
		buf.Errorf(diag.CategorySemanticHard, e.Position().Line, e.Position().Col,
			"expansion of constant reference exceeds depth %d; likely a cyclic reference", maxExpansionDepth)
		return e
	}

	switch n := e.(type) {
	case *Identifier:
		lc, ok := consts[n.Name]
		if !ok {
			return n // Not a let/const name; resolved elsewhere (assignment target, etc).
		}
		if visiting[n.Name] {
			buf.Errorf(diag.CategorySemanticHard, n.Pos.Line, n.Pos.Col, "cyclic constant: %q refers to itself", n.Name)
			return n
		}
		visiting[n.Name] = true
		expanded := inlineExpr(lc.Init, consts, buf, visiting, depth+1)
		delete(visiting, n.Name)
		return expanded
	case *BinaryExpression:
		n.Left = inlineExpr(n.Left, consts, buf, visiting, depth+1)
		n.Right = inlineExpr(n.Right, consts, buf, visiting, depth+1)
		return n
	case *LogicalExpression:
		n.Left = inlineExpr(n.Left, consts, buf, visiting, depth+1)
		n.Right = inlineExpr(n.Right, consts, buf, visiting, depth+1)
		return n
	case *UnaryExpression:
		n.Arg = inlineExpr(n.Arg, consts, buf, visiting, depth+1)
		return n
	case *CallExpression:
		for i, a := range n.Args {
			n.Args[i] = inlineExpr(a, consts, buf, visiting, depth+1)
		}
		return n
	case *IndexExpr:
		n.Index = inlineExpr(n.Index, consts, buf, visiting, depth+1)
		return n
	default:
		return e
	}
}
