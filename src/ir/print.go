package ir

import (
	"fmt"

	"github.com/xlab/treeprint"
)

// Dump renders p as an indented tree, replacing the reference codebase's
// hand-rolled Node.Print(depth, showDepth) indentation scheme with
// github.com/xlab/treeprint. Used
// by the orchestrator's verbose mode and by tests that want a human-readable
// snapshot of a parsed program.
func (p *Program) Dump() string {
	root := treeprint.New()
	root.SetValue("Program")
	for _, s := range p.Statements {
		addStatement(root, s)
	}
	return root.String()
}

func addStatement(parent treeprint.Tree, s Statement) {
	switch n := s.(type) {
	case *LetConst:
		kw := "let"
		if n.IsConst {
			kw = "const"
		}
		branch := parent.AddBranch(fmt.Sprintf("%s %s", kw, n.Name))
		addExpression(branch, n.Init)
	case *VarDecl:
		branch := parent.AddBranch(fmt.Sprintf("var %s", n.Name))
		if n.Init != nil {
			addExpression(branch, n.Init)
		}
	case *Destructuring:
		parent.AddNode(fmt.Sprintf("destructuring %v", n.Names))
	case *EventHandler:
		branch := parent.AddBranch(fmt.Sprintf("EventHandler[%s]", n.Kind))
		for key, e := range n.Config {
			cb := branch.AddBranch("config." + key)
			addExpression(cb, e)
		}
		for i, c := range n.Conditions {
			cb := branch.AddBranch(fmt.Sprintf("condition[%d]", i))
			addExpression(cb, c)
		}
		bodyBranch := branch.AddBranch("body")
		for _, st := range n.Body {
			addStatement(bodyBranch, st)
		}
	case *Assignment:
		branch := parent.AddBranch(fmt.Sprintf("assign %s", n.Op))
		addExpression(branch, n.Target)
		if n.Value != nil {
			addExpression(branch, n.Value)
		}
	default:
		parent.AddNode(fmt.Sprintf("<unknown statement %T>", s))
	}
}

func addExpression(parent treeprint.Tree, e Expression) {
	switch n := e.(type) {
	case *Literal:
		if n.IsBool {
			parent.AddNode(fmt.Sprintf("bool(%t)", n.Bool))
		} else {
			parent.AddNode(fmt.Sprintf("int(%d)", n.Int))
		}
	case *Identifier:
		parent.AddNode("ident:" + n.Name)
	case *IndexExpr:
		branch := parent.AddBranch(n.Root + "[]")
		addExpression(branch, n.Index)
	case *MemberExpression:
		parent.AddNode(fmt.Sprintf("member:%v boolish=%t", n.Path, n.Boolish))
	case *BinaryExpression:
		branch := parent.AddBranch("binary:" + n.Op)
		addExpression(branch, n.Left)
		addExpression(branch, n.Right)
	case *LogicalExpression:
		branch := parent.AddBranch("logical:" + n.Op)
		addExpression(branch, n.Left)
		addExpression(branch, n.Right)
	case *UnaryExpression:
		branch := parent.AddBranch("unary:" + n.Op)
		addExpression(branch, n.Arg)
	case *CallExpression:
		branch := parent.AddBranch("call:" + n.Callee)
		for _, a := range n.Args {
			addExpression(branch, a)
		}
	case nil:
		parent.AddNode("<nil>")
	default:
		parent.AddNode(fmt.Sprintf("<unknown expression %T>", e))
	}
}
