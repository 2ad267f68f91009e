package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inav-tools/logicc/src/catalog"
	"github.com/inav-tools/logicc/src/diag"
	"github.com/inav-tools/logicc/src/frontend"
	"github.com/inav-tools/logicc/src/ir"
	"github.com/inav-tools/logicc/src/target"
)

func compile(t *testing.T, src string) (target.Table, *diag.Buffer) {
	t.Helper()
	prog, err := frontend.Parse(src)
	require.NoError(t, err)

	buf := diag.NewBuffer()
	ir.Validate(prog, catalog.Default(), buf)
	require.False(t, buf.HasErrors(), "validate: %v", buf.Strings())

	vars := ir.ResolveVariables(prog, buf)
	require.False(t, buf.HasErrors(), "resolve: %v", buf.Strings())

	ir.Optimise(prog)

	table := Generate(prog, catalog.Default(), vars, buf)
	return table, buf
}

// TestGenerateVTXByDistance lowers the canonical "VTX power by home distance"
// program: two records, a comparison gating a catalog write.
func TestGenerateVTXByDistance(t *testing.T) {
	table, buf := compile(t, "const { flight, override } = inav;\n"+
		"if (flight.homeDistance > 100) { override.vtx.power = 3; }\n")
	require.Empty(t, buf.Strings())
	require.Len(t, table, 2)

	assert.Equal(t, target.Greater, table[0].Operation)
	assert.Equal(t, target.NoActivator, table[0].Activator)
	assert.Equal(t, target.OperandFlight, table[0].A.Type)
	assert.Equal(t, target.Value(100), table[0].B)

	assert.Equal(t, target.SetVTXPowerLevel, table[1].Operation)
	assert.Equal(t, 0, table[1].Activator)
	assert.Equal(t, target.Value(3), table[1].A)
}

// TestGenerateOnArmCapture checks on.arm lowering: an arm-timer comparison,
// an edge over it, and the body action gated by the edge slot.
func TestGenerateOnArmCapture(t *testing.T) {
	table, buf := compile(t, "const { flight, gvar, on } = inav;\n"+
		"on.arm({ delay: 1 }, () => { gvar[0] = flight.yaw; });\n")
	require.Empty(t, buf.Strings())
	require.Len(t, table, 3)

	assert.Equal(t, target.Greater, table[0].Operation)
	assert.Equal(t, target.OperandFlight, table[0].A.Type)
	assert.Equal(t, target.Value(0), table[0].B)

	assert.Equal(t, target.Edge, table[1].Operation)
	assert.Equal(t, target.LCResult(0), table[1].A)
	assert.Equal(t, target.Value(1), table[1].B)

	assert.Equal(t, target.Set, table[2].Operation)
	assert.Equal(t, 1, table[2].Activator)
	assert.Equal(t, target.Value(0), table[2].A)
	assert.Equal(t, target.OperandFlight, table[2].B.Type)
}

// TestGenerateComplexGuard lowers a nested ||/&& guard into six records.
func TestGenerateComplexGuard(t *testing.T) {
	table, buf := compile(t, "if (flight.mode.failsafe || (flight.cellVoltage < 330 && flight.homeDistance > 500)) "+
		"{ override.throttleScale = 50; }\n")
	require.Empty(t, buf.Strings())
	require.Len(t, table, 6)

	var ops []target.Operation
	for _, rec := range table {
		ops = append(ops, rec.Operation)
	}
	assert.Contains(t, ops, target.Lower)
	assert.Contains(t, ops, target.Greater)
	assert.Contains(t, ops, target.And)
	assert.Contains(t, ops, target.Equal)
	assert.Contains(t, ops, target.Or)
	assert.Contains(t, ops, target.OverrideThrottleScale)

	last := table[len(table)-1]
	assert.Equal(t, target.OverrideThrottleScale, last.Operation)
	assert.Equal(t, table[len(table)-2].Slot, last.Activator)
}

// TestGenerateRegisterArithmetic checks that a register self-add lowers to a
// single register-increment record, not an add+set pair.
func TestGenerateRegisterArithmetic(t *testing.T) {
	table, buf := compile(t, "gvar[0] = gvar[0] + 1;\n")
	require.Empty(t, buf.Strings())
	require.Len(t, table, 1)

	assert.Equal(t, target.Inc, table[0].Operation)
	assert.Equal(t, target.Value(0), table[0].A)
	assert.Equal(t, target.Value(1), table[0].B)
}

// TestGenerateOverflow checks that compiling more than 64 distinct top-level
// records fails with a single resource-hard error naming the overflowing
// statement.
func TestGenerateOverflow(t *testing.T) {
	src := "const { override } = inav;\n"
	for i := 0; i < 70; i++ {
		src += "override.vtx.power = 1;\n"
	}

	table, buf := compile2(t, src)
	assert.LessOrEqual(t, len(table), target.MaxSlots)
	require.True(t, buf.HasErrors())
	first := buf.FirstError()
	require.NotNil(t, first)
	assert.Equal(t, diag.CategoryResourceHard, first.Category)
}

// compile2 is like compile but tolerates validate/resolve diagnostics, since
// TestGenerateOverflow expects codegen itself, not earlier stages, to be the
// one that reports the failure.
func compile2(t *testing.T, src string) (target.Table, *diag.Buffer) {
	t.Helper()
	prog, err := frontend.Parse(src)
	require.NoError(t, err)

	buf := diag.NewBuffer()
	ir.Validate(prog, catalog.Default(), buf)
	vars := ir.ResolveVariables(prog, buf)
	ir.Optimise(prog)
	table := Generate(prog, catalog.Default(), vars, buf)
	return table, buf
}

// TestGenerateMathAbs checks the `sub` then `max` special-case lowering.
func TestGenerateMathAbs(t *testing.T) {
	table, buf := compile(t, "gvar[0] = 5;\ngvar[1] = Math.abs(gvar[0]);\n")
	require.Empty(t, buf.Strings())
	require.GreaterOrEqual(t, len(table), 2)

	var sawSub, sawMax bool
	for _, rec := range table {
		if rec.Operation == target.Sub {
			sawSub = true
		}
		if rec.Operation == target.Max {
			sawMax = true
		}
	}
	assert.True(t, sawSub)
	assert.True(t, sawMax)
}

// TestGenerateCSEReuse checks that sibling ifs sharing a structurally-equal
// condition reuse the same slot: the comparison is lowered once and both
// bodies gate on it.
func TestGenerateCSEReuse(t *testing.T) {
	table, buf := compile(t, "gvar[0] = 0;\nif (gvar[0] > 5) { gvar[1] = 1; } if (gvar[0] > 5) { gvar[1] = 2; }\n")
	require.Empty(t, buf.Strings())

	var compares int
	for _, rec := range table {
		if rec.Operation == target.Greater {
			compares++
		}
	}
	assert.Equal(t, 1, compares)
}

// TestGenerateCSENegatedReuse checks the negated half of CSE: a sibling if
// guarded by the literal negation of an earlier if's condition reuses that
// condition's slot through a single extra NOT record, instead of lowering the
// comparison a second time.
func TestGenerateCSENegatedReuse(t *testing.T) {
	table, buf := compile(t, "gvar[0] = 0;\n"+
		"if (gvar[0] > 5) { gvar[1] = 1; } if (!(gvar[0] > 5)) { gvar[1] = 2; }\n")
	require.Empty(t, buf.Strings())

	var compares, nots int
	for _, rec := range table {
		switch rec.Operation {
		case target.Greater:
			compares++
		case target.Not:
			nots++
		}
	}
	assert.Equal(t, 1, compares, "the comparison must be lowered exactly once and reused")
	assert.Equal(t, 1, nots, "the negated sibling must add exactly one NOT record")
}
