package frontend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLexerScenario tokenizes the "VTX by distance" example program and
// checks the full token stream, type by type.
func TestLexerScenario(t *testing.T) {
	src := "const { flight, override } = inav;\n" +
		"if (flight.homeDistance > 100) { override.vtx.power = 3; }\n"

	exp := []struct {
		typ itemType
		val string
	}{
		{CONST, "const"}, {LBRACE, "{"}, {IDENTIFIER, "flight"}, {COMMA, ","}, {IDENTIFIER, "override"}, {RBRACE, "}"},
		{ASSIGN, "="}, {IDENTIFIER, "inav"}, {SEMI, ";"},
		{IF, "if"}, {LPAREN, "("}, {IDENTIFIER, "flight"}, {DOT, "."}, {IDENTIFIER, "homeDistance"},
		{GT, ">"}, {INTEGER, "100"}, {RPAREN, ")"}, {LBRACE, "{"},
		{IDENTIFIER, "override"}, {DOT, "."}, {IDENTIFIER, "vtx"}, {DOT, "."}, {IDENTIFIER, "power"},
		{ASSIGN, "="}, {INTEGER, "3"}, {SEMI, ";"}, {RBRACE, "}"},
		{itemEOF, ""},
	}

	l := newLexer(src)
	for i, want := range exp {
		got := l.nextItem()
		require.Equalf(t, want.typ, got.typ, "token %d (%q)", i, got.val)
		if want.typ != itemEOF {
			assert.Equalf(t, want.val, got.val, "token %d", i)
		}
	}
}

// TestLexerOperators exercises every multi-character operator the grammar
// accepts, to guard against the maximal-munch cases (e.g. "<=" vs "<" then
// "=") regressing.
func TestLexerOperators(t *testing.T) {
	src := "+= -= *= /= %= ++ -- == != <= >= && || => !"
	exp := []itemType{PLUSEQ, MINUSEQ, STAREQ, SLASHEQ, PERCENTEQ, PLUSPLUS, MINUSMINUS, EQ, NEQ, LE, GE, AND, OR, ARROW, NOT}

	l := newLexer(src)
	for i, want := range exp {
		got := l.nextItem()
		require.Equalf(t, want, got.typ, "operator %d", i)
	}
	assert.Equal(t, itemEOF, l.nextItem().typ)
}

// TestLexerComments verifies that both line and block comments are skipped
// and never surface as tokens.
func TestLexerComments(t *testing.T) {
	src := "let x = 1; // trailing line comment\n/* block\n comment */ var y = 2;"
	l := newLexer(src)

	var got []itemType
	for {
		it := l.nextItem()
		if it.typ == itemEOF {
			break
		}
		got = append(got, it.typ)
	}
	assert.Equal(t, []itemType{LET, IDENTIFIER, ASSIGN, INTEGER, SEMI, VAR, IDENTIFIER, ASSIGN, INTEGER, SEMI}, got)
}

// TestLexerUnterminatedBlockComment regression-guards the errorf path: an
// unterminated block comment must surface an itemError rather than hang.
func TestLexerUnterminatedBlockComment(t *testing.T) {
	l := newLexer("var x = 1; /* never closed")
	var last item
	for {
		it := l.nextItem()
		last = it
		if it.typ == itemEOF || it.typ == itemError {
			break
		}
	}
	assert.Equal(t, itemError, last.typ)
}
