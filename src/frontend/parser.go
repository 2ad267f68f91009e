// parser.go implements a hand-written recursive-descent parser over the
// token stream produced by the lexer. The reference codebase generates its
// parser with goyacc from a .y grammar file; that grammar file was not part
// of what this repository inherited, and the language here is small and
// LL(1)-friendly enough that a direct recursive-descent parser is the more
// idiomatic fit. It consumes the same lexer/item machinery the reference
// codebase's goyacc glue did, just without the yySymType bridge.
package frontend

import (
	"fmt"
	"strconv"

	"github.com/inav-tools/logicc/src/ir"
)

// SyntaxError is a parse error carrying the line/column it occurred at.
type SyntaxError struct {
	Line, Col int
	Msg       string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Col, e.Msg)
}

// parser is a single-pass recursive-descent parser with one token of
// lookahead (two, via peekNext, for the handful of productions that need it:
// distinguishing a handler call from a plain assignment, and Math.abs from a
// member path). Syntax errors are reported by panicking with a *SyntaxError,
// caught once at the top in Parse; this keeps every production's signature
// free of error returns, the same tradeoff text/template's parser makes.
type parser struct {
	l      *lexer
	tok    item
	peeked *item
}

// Parse lexes and parses src into a Program, or returns the first syntax
// error encountered.
func Parse(src string) (prog *ir.Program, err error) {
	p := &parser{l: newLexer(src)}

	defer func() {
		if r := recover(); r != nil {
			if se, ok := r.(*SyntaxError); ok {
				err = se
				prog = nil
				return
			}
			panic(r)
		}
	}()

	p.advance()
	prog = &ir.Program{}
	for p.tok.typ != itemEOF {
		p.parseTopLevelInto(&prog.Statements)
	}
	return prog, nil
}

// ------------------------
// ----- Token plumbing -----
// ------------------------

func (p *parser) advance() {
	if p.peeked != nil {
		p.tok = *p.peeked
		p.peeked = nil
	} else {
		p.tok = p.l.nextItem()
	}
	if p.tok.typ == itemError {
		p.errorf("%s", p.tok.val)
	}
}

// peekNext returns the token after the current one without consuming it.
func (p *parser) peekNext() item {
	if p.peeked == nil {
		it := p.l.nextItem()
		p.peeked = &it
	}
	return *p.peeked
}

func (p *parser) pos() ir.Pos {
	return ir.Pos{Line: p.tok.line, Col: p.tok.pos}
}

// expect consumes the current token if it has type tt, else panics with a
// SyntaxError naming what was expected.
func (p *parser) expect(tt itemType) item {
	if p.tok.typ != tt {
		p.errorf("expected %s, got %s %q", tt, p.tok.typ, p.tok.val)
	}
	tok := p.tok
	p.advance()
	return tok
}

func (p *parser) errorf(format string, args ...interface{}) {
	panic(&SyntaxError{Line: p.tok.line, Col: p.tok.pos, Msg: fmt.Sprintf(format, args...)})
}

// -------------------------------
// ----- Top-level statements -----
// -------------------------------

func (p *parser) parseTopLevelInto(out *[]ir.Statement) {
	switch p.tok.typ {
	case CONST:
		p.parseConstOrDestructuringInto(out)
	case LET:
		*out = append(*out, p.parseLetConst())
	case VAR:
		*out = append(*out, p.parseVarDecl())
	case IF:
		p.parseIfChain(out)
	case ON:
		*out = append(*out, p.parseOn())
	case IDENTIFIER:
		p.parseIdentifierStatementInto(out)
	case PLUSPLUS, MINUSMINUS:
		*out = append(*out, p.parsePrefixIncDec())
	default:
		p.errorf("unexpected token %s at top level", p.tok.typ)
	}
}

// parseConstOrDestructuringInto disambiguates `const { names } = inav;` from
// `const NAME = constExpr;`: both start with CONST, the former continues with
// `{`.
func (p *parser) parseConstOrDestructuringInto(out *[]ir.Statement) {
	pos := p.pos()
	p.expect(CONST)
	if p.tok.typ == LBRACE {
		p.advance()
		var names []string
		for p.tok.typ != RBRACE {
			// `on` lexes as a keyword but is bound here like any root name.
			if p.tok.typ == ON {
				names = append(names, p.tok.val)
				p.advance()
			} else {
				names = append(names, p.expect(IDENTIFIER).val)
			}
			if p.tok.typ == COMMA {
				p.advance()
			}
		}
		p.expect(RBRACE)
		p.expect(ASSIGN)
		p.expect(IDENTIFIER) // "inav"
		p.expect(SEMI)
		*out = append(*out, &ir.Destructuring{Pos: pos, Names: names})
		return
	}
	name := p.expect(IDENTIFIER).val
	p.expect(ASSIGN)
	init := p.parseExpr()
	p.expect(SEMI)
	*out = append(*out, &ir.LetConst{Pos: pos, Name: name, IsConst: true, Init: init})
}

func (p *parser) parseLetConst() ir.Statement {
	pos := p.pos()
	p.expect(LET)
	name := p.expect(IDENTIFIER).val
	p.expect(ASSIGN)
	init := p.parseExpr()
	p.expect(SEMI)
	return &ir.LetConst{Pos: pos, Name: name, IsConst: false, Init: init}
}

func (p *parser) parseVarDecl() ir.Statement {
	pos := p.pos()
	p.expect(VAR)
	name := p.expect(IDENTIFIER).val
	var init ir.Expression
	if p.tok.typ == ASSIGN {
		p.advance()
		init = p.parseExpr()
	}
	p.expect(SEMI)
	return &ir.VarDecl{Pos: pos, Name: name, Init: init}
}

// parseIfChain parses `if (cond) {body}` and any trailing `else if`/`else`,
// appending one EventHandler per branch to out. The rule engine has no
// else-edge, so else/else-if branches are lowered into independent handlers
// guarded by the conjunction of the negation of every preceding branch's
// condition in the chain.
func (p *parser) parseIfChain(out *[]ir.Statement) {
	var negations []ir.Expression

	for {
		pos := p.pos()
		p.expect(IF)
		p.expect(LPAREN)
		cond := p.parseExpr()
		p.expect(RPAREN)
		body := p.parseBlock()

		guard := cond
		for _, n := range negations {
			guard = &ir.LogicalExpression{Pos: pos, Op: "&&", Left: n, Right: guard}
		}
		*out = append(*out, &ir.EventHandler{Pos: pos, Kind: ir.HandlerIf, Conditions: []ir.Expression{guard}, Body: body})
		negations = append(negations, &ir.UnaryExpression{Pos: pos, Op: "!", Arg: cond})

		if p.tok.typ != ELSE {
			return
		}
		p.advance()
		if p.tok.typ == IF {
			continue
		}

		elsePos := p.pos()
		elseBody := p.parseBlock()
		guard = negations[0]
		for _, n := range negations[1:] {
			guard = &ir.LogicalExpression{Pos: elsePos, Op: "&&", Left: guard, Right: n}
		}
		*out = append(*out, &ir.EventHandler{Pos: elsePos, Kind: ir.HandlerIf, Conditions: []ir.Expression{guard}, Body: elseBody})
		return
	}
}

func (p *parser) parseOn() ir.Statement {
	pos := p.pos()
	p.expect(ON)
	p.expect(DOT)
	kind := p.expect(IDENTIFIER).val
	p.expect(LPAREN)

	switch kind {
	case "always":
		body := p.parseArrowBlock()
		p.expect(RPAREN)
		p.expect(SEMI)
		return &ir.EventHandler{Pos: pos, Kind: ir.HandlerOnAlways, Body: body}
	case "arm":
		cfg := p.parseConfigObject()
		p.expect(COMMA)
		body := p.parseArrowBlock()
		p.expect(RPAREN)
		p.expect(SEMI)
		return &ir.EventHandler{Pos: pos, Kind: ir.HandlerOnArm, Config: cfg, Body: body}
	default:
		p.errorf("unknown handler on.%s", kind)
		return nil
	}
}

// parseIdentifierStatementInto handles the five handler-shaped calls
// (edge/sticky/delay/timer/whenChanged) when followed by `(`, and falls back
// to a plain assignment statement otherwise.
func (p *parser) parseIdentifierStatementInto(out *[]ir.Statement) {
	if p.isHandlerCallAhead() {
		*out = append(*out, p.parseHandlerCall(p.tok.val))
		return
	}
	target := p.parseAssignTarget()
	*out = append(*out, p.parseAssignmentTail(target))
}

func (p *parser) isHandlerCallAhead() bool {
	switch p.tok.val {
	case "edge", "sticky", "delay", "timer", "whenChanged":
		return p.peekNext().typ == LPAREN
	}
	return false
}

func (p *parser) parseHandlerCall(name string) ir.Statement {
	switch name {
	case "edge":
		return p.parseEdgeOrDelay(ir.HandlerEdge)
	case "delay":
		return p.parseEdgeOrDelay(ir.HandlerDelay)
	case "sticky":
		return p.parseSticky()
	case "timer":
		return p.parseTimer()
	case "whenChanged":
		return p.parseWhenChanged()
	}
	panic("unreachable: " + name)
}

// parseEdgeOrDelay parses `edge(() => cond, {duration: ms}, () => body);` and
// `delay(...)`, which share an identical argument shape.
func (p *parser) parseEdgeOrDelay(kind ir.HandlerKind) ir.Statement {
	pos := p.pos()
	p.advance() // "edge" / "delay"
	p.expect(LPAREN)
	cond := p.parseArrowExpr()
	p.expect(COMMA)
	cfg := p.parseConfigObject()
	p.expect(COMMA)
	body := p.parseArrowBlock()
	p.expect(RPAREN)
	p.expect(SEMI)
	return &ir.EventHandler{Pos: pos, Kind: kind, Conditions: []ir.Expression{cond}, Config: cfg, Body: body}
}

func (p *parser) parseSticky() ir.Statement {
	pos := p.pos()
	p.advance() // "sticky"
	p.expect(LPAREN)
	on := p.parseArrowExpr()
	p.expect(COMMA)
	off := p.parseArrowExpr()
	p.expect(COMMA)
	body := p.parseArrowBlock()
	p.expect(RPAREN)
	p.expect(SEMI)
	return &ir.EventHandler{Pos: pos, Kind: ir.HandlerSticky, Conditions: []ir.Expression{on, off}, Body: body}
}

func (p *parser) parseTimer() ir.Statement {
	pos := p.pos()
	p.advance() // "timer"
	p.expect(LPAREN)
	onMs := p.parseExpr()
	p.expect(COMMA)
	offMs := p.parseExpr()
	p.expect(COMMA)
	body := p.parseArrowBlock()
	p.expect(RPAREN)
	p.expect(SEMI)
	return &ir.EventHandler{Pos: pos, Kind: ir.HandlerTimer, Conditions: []ir.Expression{onMs, offMs}, Body: body}
}

func (p *parser) parseWhenChanged() ir.Statement {
	pos := p.pos()
	p.advance() // "whenChanged"
	p.expect(LPAREN)
	value := p.parseExpr()
	p.expect(COMMA)
	threshold := p.parseExpr()
	p.expect(COMMA)
	body := p.parseArrowBlock()
	p.expect(RPAREN)
	p.expect(SEMI)
	return &ir.EventHandler{Pos: pos, Kind: ir.HandlerWhenChanged, Conditions: []ir.Expression{value, threshold}, Body: body}
}

// ------------------------------
// ----- Blocks & assignments -----
// ------------------------------

// parseBlock parses a brace-delimited list of body statements (assignments
// and/or nested if-chains). Handler kinds restricted to assignment-only
// bodies still parse a nested `if` here without complaint; rejecting it is
// the semantic analyzer's job, not the parser's, so the diagnostic comes out
// as a semantic error rather than a syntax error.
func (p *parser) parseBlock() []ir.Statement {
	p.expect(LBRACE)
	var body []ir.Statement
	for p.tok.typ != RBRACE {
		p.parseBodyStatementInto(&body)
	}
	p.expect(RBRACE)
	return body
}

// parseArrowBlock parses `() => { ...body... }`. Arrow functions are not
// first-class callables in this language, only a syntactic carrier for a
// body; the wrapper is canonicalized away here and only the body survives in
// the AST.
func (p *parser) parseArrowBlock() []ir.Statement {
	p.expect(LPAREN)
	p.expect(RPAREN)
	p.expect(ARROW)
	return p.parseBlock()
}

// parseArrowExpr parses `() => expr`, the expression-bodied arrow form used
// for condition arguments.
func (p *parser) parseArrowExpr() ir.Expression {
	p.expect(LPAREN)
	p.expect(RPAREN)
	p.expect(ARROW)
	return p.parseExpr()
}

func (p *parser) parseConfigObject() map[string]ir.Expression {
	p.expect(LBRACE)
	cfg := map[string]ir.Expression{}
	for p.tok.typ != RBRACE {
		key := p.expect(IDENTIFIER).val
		p.expect(COLON)
		cfg[key] = p.parseExpr()
		if p.tok.typ == COMMA {
			p.advance()
		}
	}
	p.expect(RBRACE)
	return cfg
}

func (p *parser) parseBodyStatementInto(out *[]ir.Statement) {
	switch p.tok.typ {
	case IF:
		p.parseIfChain(out)
	case PLUSPLUS, MINUSMINUS:
		*out = append(*out, p.parsePrefixIncDec())
	case IDENTIFIER:
		target := p.parseAssignTarget()
		*out = append(*out, p.parseAssignmentTail(target))
	default:
		p.errorf("expected an assignment or if statement, got %s", p.tok.typ)
	}
}

func (p *parser) parsePrefixIncDec() ir.Statement {
	pos := p.pos()
	delta := 1
	if p.tok.typ == MINUSMINUS {
		delta = -1
	}
	p.advance()
	target := p.parseAssignTarget()
	p.expect(SEMI)
	return &ir.Assignment{Pos: pos, Target: target, IncDec: delta}
}

// parseAssignTarget parses an Identifier, IndexExpr (name[expr]), or
// MemberExpression (dotted path) suitable as an assignment target.
func (p *parser) parseAssignTarget() ir.Expression {
	e := p.parseIdentifierExpr()
	if _, ok := e.(*ir.CallExpression); ok {
		p.errorf("invalid assignment target")
	}
	return e
}

// parseAssignmentTail parses the operator and, unless it is a postfix
// increment/decrement, the right-hand side of an assignment whose target has
// already been parsed.
func (p *parser) parseAssignmentTail(target ir.Expression) ir.Statement {
	pos := target.Position()
	switch p.tok.typ {
	case PLUSPLUS, MINUSMINUS:
		delta := 1
		if p.tok.typ == MINUSMINUS {
			delta = -1
		}
		p.advance()
		p.expect(SEMI)
		return &ir.Assignment{Pos: pos, Target: target, IncDec: delta}
	case ASSIGN, PLUSEQ, MINUSEQ, STAREQ, SLASHEQ, PERCENTEQ:
		op := assignOpFor(p.tok.typ)
		p.advance()
		val := p.parseExpr()
		p.expect(SEMI)
		return &ir.Assignment{Pos: pos, Target: target, Op: op, Value: val}
	default:
		p.errorf("expected assignment operator, got %s", p.tok.typ)
		return nil
	}
}

func assignOpFor(tt itemType) ir.AssignOp {
	switch tt {
	case PLUSEQ:
		return ir.AssignAdd
	case MINUSEQ:
		return ir.AssignSub
	case STAREQ:
		return ir.AssignMul
	case SLASHEQ:
		return ir.AssignDiv
	case PERCENTEQ:
		return ir.AssignMod
	default:
		return ir.AssignSet
	}
}

// --------------------------
// ----- Expression grammar -----
// --------------------------
//
// Precedence, loosest to tightest: logical-or, logical-and, comparison,
// additive, multiplicative, unary, primary.

func (p *parser) parseExpr() ir.Expression {
	return p.parseLogicalOr()
}

func (p *parser) parseLogicalOr() ir.Expression {
	left := p.parseLogicalAnd()
	for p.tok.typ == OR {
		pos := p.pos()
		p.advance()
		right := p.parseLogicalAnd()
		left = &ir.LogicalExpression{Pos: pos, Op: "||", Left: left, Right: right}
	}
	return left
}

func (p *parser) parseLogicalAnd() ir.Expression {
	left := p.parseComparison()
	for p.tok.typ == AND {
		pos := p.pos()
		p.advance()
		right := p.parseComparison()
		left = &ir.LogicalExpression{Pos: pos, Op: "&&", Left: left, Right: right}
	}
	return left
}

// parseComparison desugars >=, <=, != into combinations of the device's three
// native comparison primitives (equal/greater/lower) plus not/or, so no stage
// downstream of the parser ever needs to know those three operators exist in
// source. The expansion costs extra instruction slots but preserves exact
// semantics; the engine has no native opcodes for them.
func (p *parser) parseComparison() ir.Expression {
	left := p.parseAdditive()
	switch p.tok.typ {
	case GT, LT, GE, LE, EQ, NEQ:
		opTok := p.tok.typ
		pos := p.pos()
		p.advance()
		right := p.parseAdditive()
		return desugarComparison(pos, opTok, left, right)
	}
	return left
}

func desugarComparison(pos ir.Pos, opTok itemType, left, right ir.Expression) ir.Expression {
	switch opTok {
	case GT:
		return &ir.BinaryExpression{Pos: pos, Op: ">", Left: left, Right: right}
	case LT:
		return &ir.BinaryExpression{Pos: pos, Op: "<", Left: left, Right: right}
	case EQ:
		return &ir.BinaryExpression{Pos: pos, Op: "==", Left: left, Right: right}
	case GE:
		gt := &ir.BinaryExpression{Pos: pos, Op: ">", Left: left, Right: right}
		eq := &ir.BinaryExpression{Pos: pos, Op: "==", Left: left, Right: right}
		return &ir.LogicalExpression{Pos: pos, Op: "||", Left: gt, Right: eq}
	case LE:
		lt := &ir.BinaryExpression{Pos: pos, Op: "<", Left: left, Right: right}
		eq := &ir.BinaryExpression{Pos: pos, Op: "==", Left: left, Right: right}
		return &ir.LogicalExpression{Pos: pos, Op: "||", Left: lt, Right: eq}
	case NEQ:
		eq := &ir.BinaryExpression{Pos: pos, Op: "==", Left: left, Right: right}
		return &ir.UnaryExpression{Pos: pos, Op: "!", Arg: eq}
	default:
		panic("unreachable")
	}
}

func (p *parser) parseAdditive() ir.Expression {
	left := p.parseTerm()
	for p.tok.typ == PLUS || p.tok.typ == MINUS {
		op := "+"
		if p.tok.typ == MINUS {
			op = "-"
		}
		pos := p.pos()
		p.advance()
		right := p.parseTerm()
		left = &ir.BinaryExpression{Pos: pos, Op: op, Left: left, Right: right}
	}
	return left
}

func (p *parser) parseTerm() ir.Expression {
	left := p.parseUnary()
	for p.tok.typ == STAR || p.tok.typ == SLASH || p.tok.typ == PERCENT {
		var op string
		switch p.tok.typ {
		case STAR:
			op = "*"
		case SLASH:
			op = "/"
		case PERCENT:
			op = "%"
		}
		pos := p.pos()
		p.advance()
		right := p.parseUnary()
		left = &ir.BinaryExpression{Pos: pos, Op: op, Left: left, Right: right}
	}
	return left
}

// parseUnary handles `!expr`. Unary minus is desugared here into `0 - expr`
// (the `Math.abs` lowering already emits exactly this shape for its
// negation), keeping UnaryExpression reserved for `!` alone.
func (p *parser) parseUnary() ir.Expression {
	switch p.tok.typ {
	case NOT:
		pos := p.pos()
		p.advance()
		arg := p.parseUnary()
		return &ir.UnaryExpression{Pos: pos, Op: "!", Arg: arg}
	case MINUS:
		pos := p.pos()
		p.advance()
		arg := p.parseUnary()
		return &ir.BinaryExpression{Pos: pos, Op: "-", Left: &ir.Literal{Pos: pos, Int: 0}, Right: arg}
	default:
		return p.parsePrimary()
	}
}

func (p *parser) parsePrimary() ir.Expression {
	pos := p.pos()
	switch p.tok.typ {
	case INTEGER:
		v := p.tok.val
		p.advance()
		return &ir.Literal{Pos: pos, Int: p.parseIntLiteral(v)}
	case TRUE:
		p.advance()
		return &ir.Literal{Pos: pos, IsBool: true, Bool: true}
	case FALSE:
		p.advance()
		return &ir.Literal{Pos: pos, IsBool: true, Bool: false}
	case LPAREN:
		p.advance()
		e := p.parseExpr()
		p.expect(RPAREN)
		return e
	case IDENTIFIER:
		return p.parseIdentifierExpr()
	default:
		p.errorf("unexpected token %s in expression", p.tok.typ)
		return nil
	}
}

func (p *parser) parseIntLiteral(s string) int32 {
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		p.errorf("invalid integer literal %q", s)
	}
	return int32(v)
}

// parseIdentifierExpr parses an Identifier, a dotted MemberExpression path (at
// most three dots deep), an indexed root (`rc[i]`,
// `gvar[i]`), or the single recognized call form `Math.abs(expr)`.
func (p *parser) parseIdentifierExpr() ir.Expression {
	pos := p.pos()
	name := p.expect(IDENTIFIER).val

	if name == "Math" && p.tok.typ == DOT && p.peekNext().val == "abs" {
		p.advance() // consume '.'
		p.advance() // consume "abs"
		p.expect(LPAREN)
		arg := p.parseExpr()
		p.expect(RPAREN)
		return &ir.CallExpression{Pos: pos, Callee: "Math.abs", Args: []ir.Expression{arg}}
	}

	if p.tok.typ == LBRACKET {
		p.advance()
		idx := p.parseExpr()
		p.expect(RBRACKET)
		return &ir.IndexExpr{Pos: pos, Root: name, Index: idx}
	}

	path := []string{name}
	for p.tok.typ == DOT {
		p.advance()
		path = append(path, p.expect(IDENTIFIER).val)
	}
	if len(path) > 4 {
		p.errorf("member expression %s... is more than three dots deep", name)
	}
	if len(path) == 1 {
		return &ir.Identifier{Pos: pos, Name: name}
	}
	return &ir.MemberExpression{Pos: pos, Path: path}
}
