package decompile

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inav-tools/logicc/src/catalog"
	"github.com/inav-tools/logicc/src/target"
)

// TestDecompileVTXByDistance decompiles the two-record "VTX power by home
// distance" table back into an equivalent if/action pair.
func TestDecompileVTXByDistance(t *testing.T) {
	cat := catalog.Default()
	homeDistance := catalog.Default().Roots["flight"].Children["homeDistance"].Read

	table := target.Table{
		{Slot: 0, Enabled: true, Activator: target.NoActivator, Operation: target.Greater,
			A: *homeDistance, B: target.Value(100)},
		{Slot: 1, Enabled: true, Activator: 0, Operation: target.SetVTXPowerLevel,
			A: target.Value(3)},
	}

	res := Decompile(table, cat)
	require.True(t, res.Success)
	assert.Contains(t, res.Code, "if (")
	assert.Contains(t, res.Code, "flight.homeDistance > 100")
	assert.Contains(t, res.Code, "override.vtx.power = 3")
	assert.Contains(t, res.Code, "const { flight, override } = inav;")
	assert.Equal(t, 2, res.Stats.Enabled)
	assert.Equal(t, 1, res.Stats.Groups)
	assert.Empty(t, res.Warnings)
}

// TestDecompileEdgePattern checks the edge special-pattern recognition.
func TestDecompileEdgePattern(t *testing.T) {
	cat := catalog.Default()
	armed := target.Operand{Type: target.OperandFlight, Value: 99} // Deliberately unknown, to also exercise the naming fallback.

	table := target.Table{
		{Slot: 0, Enabled: true, Activator: target.NoActivator, Operation: target.Equal,
			A: armed, B: target.Value(1)},
		{Slot: 1, Enabled: true, Activator: target.NoActivator, Operation: target.Edge,
			A: target.LCResult(0), B: target.Value(200)},
		{Slot: 2, Enabled: true, Activator: 1, Operation: target.Set,
			A: target.Value(0), B: target.Value(1)},
	}

	res := Decompile(table, cat)
	require.True(t, res.Success)
	assert.Contains(t, res.Code, "edge(() =>")
	assert.Contains(t, res.Code, "{duration: 200}")
	assert.Contains(t, res.Code, "gvar[0] = 1;")
	assert.NotEmpty(t, res.Warnings) // The unknown flight code should produce a naming warning.
}

// TestDecompileTimerPattern checks timer(onMs, offMs, body) recognition.
func TestDecompileTimerPattern(t *testing.T) {
	cat := catalog.Default()
	table := target.Table{
		{Slot: 0, Enabled: true, Activator: target.NoActivator, Operation: target.Timer,
			A: target.Value(1000), B: target.Value(500)},
		{Slot: 1, Enabled: true, Activator: 0, Operation: target.Inc,
			A: target.Value(3), B: target.Value(1)},
	}

	res := Decompile(table, cat)
	require.True(t, res.Success)
	assert.Contains(t, res.Code, "timer(1000, 500,")
	assert.Contains(t, res.Code, "gvar[3] += 1;")
}

// TestDecompileStickyPattern checks sticky(on, off, body) recognition.
func TestDecompileStickyPattern(t *testing.T) {
	cat := catalog.Default()
	cellVoltage := *cat.Roots["flight"].Children["cellVoltage"].Read
	batteryPct := *cat.Roots["flight"].Children["batteryPercentage"].Read

	table := target.Table{
		{Slot: 0, Enabled: true, Activator: target.NoActivator, Operation: target.Lower,
			A: cellVoltage, B: target.Value(330)},
		{Slot: 1, Enabled: true, Activator: target.NoActivator, Operation: target.Greater,
			A: batteryPct, B: target.Value(50)},
		{Slot: 2, Enabled: true, Activator: target.NoActivator, Operation: target.Sticky,
			A: target.LCResult(0), B: target.LCResult(1)},
		{Slot: 3, Enabled: true, Activator: 2, Operation: target.Set, A: target.Value(0), B: target.Value(1)},
	}

	res := Decompile(table, cat)
	require.True(t, res.Success)
	assert.Contains(t, res.Code, "sticky(() =>")
	assert.Contains(t, res.Code, "flight.cellVoltage < 330")
	assert.Contains(t, res.Code, "flight.batteryPercentage > 50")
	assert.Contains(t, res.Code, "gvar[0] = 1;")
	assert.Empty(t, res.Warnings)
}

// TestDecompileDelayPattern checks delay(cond, {duration}, body) recognition.
func TestDecompileDelayPattern(t *testing.T) {
	cat := catalog.Default()
	homeDistance := *cat.Roots["flight"].Children["homeDistance"].Read

	table := target.Table{
		{Slot: 0, Enabled: true, Activator: target.NoActivator, Operation: target.Greater,
			A: homeDistance, B: target.Value(500)},
		{Slot: 1, Enabled: true, Activator: target.NoActivator, Operation: target.Delay,
			A: target.LCResult(0), B: target.Value(2000)},
		{Slot: 2, Enabled: true, Activator: 1, Operation: target.Set, A: target.Value(0), B: target.Value(1)},
	}

	res := Decompile(table, cat)
	require.True(t, res.Success)
	assert.Contains(t, res.Code, "delay(() =>")
	assert.Contains(t, res.Code, "{duration: 2000}")
	assert.Contains(t, res.Code, "flight.homeDistance > 500")
	assert.Contains(t, res.Code, "gvar[0] = 1;")
	assert.Empty(t, res.Warnings)
}

// TestDecompileWhenChangedPattern checks whenChanged(value, threshold, body)
// recognition.
func TestDecompileWhenChangedPattern(t *testing.T) {
	cat := catalog.Default()
	yaw := *cat.Roots["flight"].Children["yaw"].Read

	table := target.Table{
		{Slot: 0, Enabled: true, Activator: target.NoActivator, Operation: target.Delta,
			A: yaw, B: target.Value(5)},
		{Slot: 1, Enabled: true, Activator: 0, Operation: target.Set, A: target.Value(0), B: target.Value(1)},
	}

	res := Decompile(table, cat)
	require.True(t, res.Success)
	assert.Contains(t, res.Code, "whenChanged(flight.yaw, 5,")
	assert.Contains(t, res.Code, "gvar[0] = 1;")
	assert.Empty(t, res.Warnings)
}

// TestDecompileOrphanedAction checks that an action whose activator names no
// enabled record is still emitted, with a warning, rather than dropped.
func TestDecompileOrphanedAction(t *testing.T) {
	cat := catalog.Default()
	table := target.Table{
		{Slot: 0, Enabled: true, Activator: 7, Operation: target.Inc, A: target.Value(0), B: target.Value(1)},
	}

	res := Decompile(table, cat)
	require.True(t, res.Success)
	assert.Contains(t, res.Code, "gvar[0] += 1;")
	assert.True(t, len(res.Warnings) >= 1)
	assert.True(t, strings.Contains(res.Warnings[0], "orphaned"))
}

// TestDecompileFiltersTrailingDefaults checks that the default-tail slots a
// device reports (disabled, TRUE, no activator) are dropped before grouping.
func TestDecompileFiltersTrailingDefaults(t *testing.T) {
	cat := catalog.Default()
	table := make(target.Table, 4)
	table[0] = target.Instruction{Slot: 0, Enabled: true, Activator: target.NoActivator, Operation: target.True}
	table[1] = target.Instruction{Slot: 1, Enabled: true, Activator: 0, Operation: target.Inc, A: target.Value(0), B: target.Value(1)}
	// Slots 2 and 3 are untouched default records: Enabled=false, Operation=True, no activator.
	table[2] = target.Instruction{Slot: 2, Enabled: false, Activator: target.NoActivator, Operation: target.True}
	table[3] = target.Instruction{Slot: 3, Enabled: false, Activator: target.NoActivator, Operation: target.True}

	res := Decompile(table, cat)
	require.True(t, res.Success)
	assert.Equal(t, 2, res.Stats.Enabled)
}

// TestDecompileEmptyTable covers the empty-table boundary.
func TestDecompileEmptyTable(t *testing.T) {
	res := Decompile(target.Table{}, catalog.Default())
	require.True(t, res.Success)
	assert.Equal(t, 0, res.Stats.Total)
	assert.Equal(t, 0, res.Stats.Groups)
}
