package target

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestFrozenWireValues spot-checks the enumeration values that are part of
// the wire contract; the device consumes these integers as-is, so any shift
// here is a silent firmware miscommand.
func TestFrozenWireValues(t *testing.T) {
	assert.Equal(t, 0, int(OperandValue))
	assert.Equal(t, 4, int(OperandLCResult))
	assert.Equal(t, 5, int(OperandGVar))
	assert.Equal(t, 7, int(OperandWaypoints))

	assert.Equal(t, 0, int(True))
	assert.Equal(t, 2, int(Greater))
	assert.Equal(t, 18, int(Set))
	assert.Equal(t, 25, int(SetVTXPowerLevel))
	assert.Equal(t, 47, int(Edge))
	assert.Equal(t, 51, int(ApproxEqual))
	assert.Equal(t, 57, OperationCount)
}

// TestInstructionEncode checks the exact device CLI line for a comparison
// record and a disabled default.
func TestInstructionEncode(t *testing.T) {
	ins := Instruction{
		Slot: 0, Enabled: true, Activator: NoActivator, Operation: Greater,
		A: Flight(0), B: Value(100),
	}
	assert.Equal(t, "logic 0 1 -1 2 2 0 0 100 0", ins.Encode())

	disabled := Instruction{Slot: 3, Activator: NoActivator}
	assert.Equal(t, "logic 3 0 -1 0 0 0 0 0 0", disabled.Encode())
}

func TestTableEncode(t *testing.T) {
	table := Table{
		{Slot: 0, Enabled: true, Activator: NoActivator, Operation: True},
		{Slot: 1, Enabled: true, Activator: 0, Operation: SetVTXPowerLevel, A: Value(3)},
	}
	assert.Equal(t, []string{
		"logic 0 1 -1 0 0 0 0 0 0",
		"logic 1 1 0 25 0 3 0 0 0",
	}, table.Encode())
}

func TestIsDefault(t *testing.T) {
	assert.True(t, Instruction{Slot: 5, Activator: NoActivator}.IsDefault())
	assert.False(t, Instruction{Slot: 5, Enabled: true, Activator: NoActivator}.IsDefault())
	assert.False(t, Instruction{Slot: 5, Activator: NoActivator, A: Value(1)}.IsDefault())
	assert.False(t, Instruction{Slot: 5, Activator: 0}.IsDefault())
}

func TestOperationString(t *testing.T) {
	assert.Equal(t, "override_throttle_scale", OverrideThrottleScale.String())
	assert.Equal(t, "delta", Delta.String())
	assert.Equal(t, "Operation(99)", Operation(99).String())
	assert.Equal(t, "LC_RESULT", OperandLCResult.String())
	assert.Equal(t, "OperandType(42)", OperandType(42).String())
}

func TestProducesBoolean(t *testing.T) {
	for _, op := range []Operation{True, Equal, Greater, Lower, And, Or, Not, Sticky, Edge, Delay, Timer, Delta} {
		assert.True(t, ProducesBoolean(op), "%s", op)
	}
	for _, op := range []Operation{Add, Set, Inc, SetVTXPowerLevel, Sin, MapInput, RCChannelOverride} {
		assert.False(t, ProducesBoolean(op), "%s", op)
	}
}
