package catalog

import (
	"testing"

	"github.com/inav-tools/logicc/src/target"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultResolvesKnownLeaves(t *testing.T) {
	c := Default()

	e, err := c.ResolveDotted("flight.homeDistance")
	require.NoError(t, err)
	assert.False(t, e.Writable)
	require.NotNil(t, e.Read)
	assert.Equal(t, target.OperandFlight, e.Read.Type)

	e, err = c.ResolveDotted("override.vtx.power")
	require.NoError(t, err)
	assert.True(t, e.Writable)
	require.NotNil(t, e.WriteOp)
	assert.Equal(t, target.SetVTXPowerLevel, *e.WriteOp)

	e, err = c.ResolveDotted("flight.mode.failsafe")
	require.NoError(t, err)
	assert.Equal(t, KindBool, e.Kind)
	assert.Equal(t, target.OperandFlightMode, e.Read.Type)
}

func TestResolveUnknownIdentifierFails(t *testing.T) {
	c := Default()
	_, err := c.ResolveDotted("flight.doesNotExist")
	assert.Error(t, err)
	_, err = c.ResolveDotted("nonsense.root")
	assert.Error(t, err)
}

func TestFlightModeRoundTrip(t *testing.T) {
	idx, ok := FlightModeIndex("navRTH")
	require.True(t, ok)
	name, ok := FlightModeName(idx)
	require.True(t, ok)
	assert.Equal(t, "navRTH", name)
}

func TestOverlayAppliesNewWritableLeaf(t *testing.T) {
	c := Default()
	doc := []byte(`
overrides:
  - path: override.customLED
    opcode: led_pin_pwm
    min: 0
    max: 255
gvarAliases:
  - name: batteryReserve
    index: 6
`)
	o, err := ParseOverlay(doc)
	require.NoError(t, err)
	require.NoError(t, c.Apply(o))

	e, err := c.ResolveDotted("override.customLED")
	require.NoError(t, err)
	assert.Equal(t, target.LEDPinPWM, *e.WriteOp)

	e, err = c.ResolveDotted("gvar.batteryReserve")
	require.NoError(t, err)
	assert.Equal(t, int32(6), e.Read.Value)
}

func TestOverlayRejectsCollisions(t *testing.T) {
	c := Default()
	doc := []byte(`
overrides:
  - path: override.throttle
    opcode: override_throttle
`)
	o, err := ParseOverlay(doc)
	require.NoError(t, err)
	assert.Error(t, c.Apply(o))
}
