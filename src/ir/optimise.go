package ir

// Optimise applies the two AST-to-AST passes — constant folding and sibling
// common-subexpression elimination — to p in place.
// Optimise is idempotent: re-running it over its own output is a no-op, since
// constant folding only ever reduces an already-literal subtree to itself and
// CSE only ever marks a second occurrence once.
//
// Unlike the reference codebase's ir.Optimise, which fans work out across
// worker goroutines per top-level function, this pass is a single synchronous
// walk: the core is single-threaded throughout.
func Optimise(p *Program) {
	foldStatements(p.Statements)
	cseStatements(p.Statements)
}

// ------------------------
// ----- Constant fold -----
// ------------------------

func foldStatements(stmts []Statement) {
	for _, s := range stmts {
		switch n := s.(type) {
		case *LetConst:
			n.Init = foldExpr(n.Init)
		case *VarDecl:
			if n.Init != nil {
				n.Init = foldExpr(n.Init)
			}
		case *EventHandler:
			for k, e := range n.Config {
				n.Config[k] = foldExpr(e)
			}
			for i, c := range n.Conditions {
				n.Conditions[i] = foldExpr(c)
			}
			foldStatements(n.Body)
		case *Assignment:
			if n.Value != nil {
				n.Value = foldExpr(n.Value)
			}
		}
	}
}

// foldExpr recursively folds numeric/boolean operations over literal operands
// into a single Literal. Non-literal subtrees are returned with their children
// folded but otherwise unchanged.
func foldExpr(e Expression) Expression {
	switch n := e.(type) {
	case *UnaryExpression:
		n.Arg = foldExpr(n.Arg)
		if lit, ok := n.Arg.(*Literal); ok && n.Op == "!" && lit.IsBool {
			return &Literal{Pos: n.Pos, IsBool: true, Bool: !lit.Bool}
		}
		return n
	case *BinaryExpression:
		n.Left = foldExpr(n.Left)
		n.Right = foldExpr(n.Right)
		lhs, lok := n.Left.(*Literal)
		rhs, rok := n.Right.(*Literal)
		if !lok || !rok || lhs.IsBool || rhs.IsBool {
			return n
		}
		if folded, ok := foldBinary(n.Op, lhs.Int, rhs.Int); ok {
			return folded
		}
		return n
	case *LogicalExpression:
		n.Left = foldExpr(n.Left)
		n.Right = foldExpr(n.Right)
		lhs, lok := n.Left.(*Literal)
		rhs, rok := n.Right.(*Literal)
		if lok && rok && lhs.IsBool && rhs.IsBool {
			var v bool
			if n.Op == "&&" {
				v = lhs.Bool && rhs.Bool
			} else {
				v = lhs.Bool || rhs.Bool
			}
			return &Literal{Pos: n.Pos, IsBool: true, Bool: v}
		}
		return n
	case *CallExpression:
		for i, a := range n.Args {
			n.Args[i] = foldExpr(a)
		}
		return n
	case *IndexExpr:
		n.Index = foldExpr(n.Index)
		return n
	default:
		return e
	}
}

// foldBinary evaluates op over two literal 32-bit integer operands, returning
// a folded Literal (integer for arithmetic, boolean for comparisons) and true,
// or (nil, false) when op produces no constant result (shouldn't happen for
// the closed operator set the parser accepts).
func foldBinary(op string, l, r int32) (*Literal, bool) {
	switch op {
	case "+":
		return &Literal{Int: l + r}, true
	case "-":
		return &Literal{Int: l - r}, true
	case "*":
		return &Literal{Int: l * r}, true
	case "/":
		if r == 0 {
			return nil, false
		}
		return &Literal{Int: l / r}, true
	case "%":
		if r == 0 {
			return nil, false
		}
		return &Literal{Int: l % r}, true
	case ">":
		return &Literal{IsBool: true, Bool: l > r}, true
	case "<":
		return &Literal{IsBool: true, Bool: l < r}, true
	case ">=":
		return &Literal{IsBool: true, Bool: l >= r}, true
	case "<=":
		return &Literal{IsBool: true, Bool: l <= r}, true
	case "==":
		return &Literal{IsBool: true, Bool: l == r}, true
	case "!=":
		return &Literal{IsBool: true, Bool: l != r}, true
	default:
		return nil, false
	}
}

// ------------------------------------------
// ----- Common subexpression elimination -----
// ------------------------------------------

// cseStatements scans a single list of sibling statements and annotates later
// `if` handlers whose condition duplicates, or negates, an earlier sibling's
// condition, so the generator lowers that condition only once. It then
// recurses into each handler's own body, which is itself a sibling list.
func cseStatements(stmts []Statement) {
	var seen []*EventHandler
	for _, s := range stmts {
		h, ok := s.(*EventHandler)
		if !ok {
			continue
		}
		if h.Kind == HandlerIf && h.ReuseFrom == nil {
			for _, prior := range seen {
				if prior.Kind != HandlerIf || len(prior.Conditions) == 0 || len(h.Conditions) == 0 {
					continue
				}
				if equalExpr(prior.Conditions[0], h.Conditions[0]) {
					h.ReuseFrom = prior
					h.Inverted = false
					break
				}
				if isNegationOf(h.Conditions[0], prior.Conditions[0]) {
					h.ReuseFrom = prior
					h.Inverted = true
					break
				}
				if isNegationOf(prior.Conditions[0], h.Conditions[0]) {
					h.ReuseFrom = prior
					h.Inverted = true
					break
				}
			}
		}
		seen = append(seen, h)
		cseStatements(h.Body)
	}
}

// isNegationOf reports whether a is syntactically `!b`. One level of negation
// is all the CSE pass looks for; anything deeper lowers on its own.
func isNegationOf(a, b Expression) bool {
	u, ok := a.(*UnaryExpression)
	if !ok || u.Op != "!" {
		return false
	}
	return equalExpr(u.Arg, b)
}

// equalExpr is a deep structural comparison of two expression trees that
// ignores source position, so the same condition written on two different
// lines still matches.
func equalExpr(a, b Expression) bool {
	if a == nil || b == nil {
		return a == b
	}
	switch x := a.(type) {
	case *Literal:
		y, ok := b.(*Literal)
		return ok && x.IsBool == y.IsBool && x.Bool == y.Bool && x.Int == y.Int
	case *Identifier:
		y, ok := b.(*Identifier)
		return ok && x.Name == y.Name
	case *IndexExpr:
		y, ok := b.(*IndexExpr)
		return ok && x.Root == y.Root && equalExpr(x.Index, y.Index)
	case *MemberExpression:
		y, ok := b.(*MemberExpression)
		if !ok || len(x.Path) != len(y.Path) || x.Boolish != y.Boolish {
			return false
		}
		for i := range x.Path {
			if x.Path[i] != y.Path[i] {
				return false
			}
		}
		return true
	case *BinaryExpression:
		y, ok := b.(*BinaryExpression)
		return ok && x.Op == y.Op && equalExpr(x.Left, y.Left) && equalExpr(x.Right, y.Right)
	case *LogicalExpression:
		y, ok := b.(*LogicalExpression)
		return ok && x.Op == y.Op && equalExpr(x.Left, y.Left) && equalExpr(x.Right, y.Right)
	case *UnaryExpression:
		y, ok := b.(*UnaryExpression)
		return ok && x.Op == y.Op && equalExpr(x.Arg, y.Arg)
	case *CallExpression:
		y, ok := b.(*CallExpression)
		if !ok || x.Callee != y.Callee || len(x.Args) != len(y.Args) {
			return false
		}
		for i := range x.Args {
			if !equalExpr(x.Args[i], y.Args[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
