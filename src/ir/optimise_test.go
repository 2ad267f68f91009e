package ir_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inav-tools/logicc/src/catalog"
	"github.com/inav-tools/logicc/src/diag"
	"github.com/inav-tools/logicc/src/frontend"
	"github.com/inav-tools/logicc/src/ir"
)

// TestOptimiseIdempotent checks that Optimise(Optimise(ast)) == Optimise(ast):
// running both passes (constant folding and sibling-if CSE, including the
// negated-reuse case) a second time over their own output changes nothing.
func TestOptimiseIdempotent(t *testing.T) {
	src := "gvar[0] = 1 + 2;\n" +
		"if (gvar[0] > 5) { gvar[1] = 1; }\n" +
		"if (gvar[0] > 5) { gvar[1] = 2; }\n" +
		"if (!(gvar[0] > 5)) { gvar[1] = 3; }\n"

	prog, err := frontend.Parse(src)
	require.NoError(t, err)

	buf := diag.NewBuffer()
	ir.Validate(prog, catalog.Default(), buf)
	require.False(t, buf.HasErrors(), "validate: %v", buf.Strings())
	ir.ResolveVariables(prog, buf)
	require.False(t, buf.HasErrors(), "resolve: %v", buf.Strings())

	ir.Optimise(prog)
	dumpOnce := prog.Dump()
	reuseOnce, invertedOnce := cseAnnotations(prog)

	ir.Optimise(prog)
	dumpTwice := prog.Dump()
	reuseTwice, invertedTwice := cseAnnotations(prog)

	assert.Equal(t, dumpOnce, dumpTwice, "re-optimising must not change the AST's printed form")
	assert.Equal(t, reuseOnce, reuseTwice, "re-optimising must not change which sibling a condition reuses")
	assert.Equal(t, invertedOnce, invertedTwice, "re-optimising must not change a reused condition's inversion")
}

// cseAnnotations collects the ReuseFrom/Inverted pair the CSE pass attaches
// to each top-level if handler, in source order.
func cseAnnotations(p *ir.Program) ([]*ir.EventHandler, []bool) {
	var reuse []*ir.EventHandler
	var inverted []bool
	for _, s := range p.Statements {
		h, ok := s.(*ir.EventHandler)
		if !ok {
			continue
		}
		reuse = append(reuse, h.ReuseFrom)
		inverted = append(inverted, h.Inverted)
	}
	return reuse, inverted
}
