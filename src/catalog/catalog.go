// Package catalog holds the static, read-only API catalog: the declarative tree
// describing every readable/writable identifier path the source language can
// reference, how each maps onto the target instruction set's operand encoding or
// write opcode, and its optional numeric range.
//
// The catalog is built once at startup (see Default) and never mutated; it is the
// only state shared across an otherwise single-threaded, synchronous core.
package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/inav-tools/logicc/src/target"
)

// Kind differentiates the shape of a catalog entry.
type Kind int

const (
	KindNumber Kind = iota
	KindBool
	KindObject // A namespace with children, not a leaf itself.
	KindFunction
	KindReadonly
)

// Range is an inclusive numeric bound used for static range checking of
// literal values assigned to a leaf.
type Range struct {
	Min int32
	Max int32
}

// Contains reports whether v lies within the inclusive range [r.Min, r.Max].
func (r Range) Contains(v int32) bool {
	return v >= r.Min && v <= r.Max
}

// Entry is one node of the catalog tree: either a namespace (Kind == KindObject,
// with Children populated) or a leaf describing a single readable and/or writable
// identifier.
type Entry struct {
	Name     string
	Kind     Kind
	Writable bool
	Range    *Range            // Optional; nil means unconstrained.
	Read     *target.Operand   // Set for readable leaves: the operand encoding of a read.
	WriteOp  *target.Operation // Set for writable leaves: the opcode a write lowers to.
	Indexed  bool              // True for roots addressed as name[i] (rc, gvar) rather than by further dotting.
	Children map[string]*Entry
}

// Catalog is the root of the API tree, keyed by root namespace name.
type Catalog struct {
	Roots map[string]*Entry
}

// RootNames returns the catalog's root namespace names in a stable order, for
// destructuring validation and decompiler boilerplate generation.
func (c *Catalog) RootNames() []string {
	names := make([]string, 0, len(c.Roots))
	for n := range c.Roots {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Resolve walks path (e.g. []string{"override", "vtx", "power"}) from the root and
// returns the Entry it names, which may be a leaf or a namespace, or an error if
// any segment doesn't exist.
func (c *Catalog) Resolve(path []string) (*Entry, error) {
	if len(path) == 0 {
		return nil, fmt.Errorf("empty identifier path")
	}
	root, ok := c.Roots[path[0]]
	if !ok {
		return nil, fmt.Errorf("unknown identifier root %q", path[0])
	}
	cur := root
	for _, seg := range path[1:] {
		if cur.Children == nil {
			return nil, fmt.Errorf("%s has no member %q", strings.Join(path, "."), seg)
		}
		next, ok := cur.Children[seg]
		if !ok {
			return nil, fmt.Errorf("unknown identifier %s", strings.Join(path, "."))
		}
		cur = next
	}
	// Callers (semantic analysis vs. destructuring) decide whether a namespace
	// entry (Kind == KindObject) is acceptable in context; Resolve only walks.
	return cur, nil
}

// ResolveDotted is a convenience wrapper around Resolve for a dotted path string.
func (c *Catalog) ResolveDotted(path string) (*Entry, error) {
	return c.Resolve(strings.Split(path, "."))
}

// IsRoot reports whether name is one of the catalog's fixed root namespaces.
func (c *Catalog) IsRoot(name string) bool {
	_, ok := c.Roots[name]
	return ok
}

// flightModes is the fixed mode-index table used both to encode flight.mode.<name>
// leaves and, symmetrically, for the decompiler to recover a mode name from an
// operand value read back from a device.
var flightModes = []string{
	"failsafe",
	"manual",
	"acro",
	"angle",
	"horizon",
	"navAltHold",
	"navRTH",
	"navPoshold",
	"navCruise",
	"navWP",
	"navLaunch",
	"airmode",
	"autotune",
}

// FlightModeName returns the mode name for a FLIGHT_MODE operand value, and
// whether it was recognized.
func FlightModeName(idx int32) (string, bool) {
	if idx < 0 || int(idx) >= len(flightModes) {
		return "", false
	}
	return flightModes[idx], true
}

// FlightModeIndex returns the operand value for a named flight mode.
func FlightModeIndex(name string) (int32, bool) {
	for i, n := range flightModes {
		if n == name {
			return int32(i), true
		}
	}
	return 0, false
}

func numberLeaf(name string, code int32, r *Range) *Entry {
	op := target.Flight(code)
	return &Entry{Name: name, Kind: KindNumber, Read: &op, Range: r}
}

func boolModeLeaf(name string, idx int32) *Entry {
	op := target.FlightMode(idx)
	return &Entry{Name: name, Kind: KindBool, Read: &op}
}

func writableLeaf(name string, wop target.Operation, readCode *int32, r *Range) *Entry {
	e := &Entry{Name: name, Kind: KindNumber, Writable: true, WriteOp: &wop, Range: r}
	if readCode != nil {
		op := target.Flight(*readCode)
		e.Read = &op
	}
	return e
}

// flight telemetry operand codes. These are catalog-internal identifiers, not part
// of the wire contract (only the OperandType/Operation enums in src/target are).
const (
	codeHomeDistance = iota
	codeCellVoltage
	codeYaw
	codePitch
	codeRoll
	codeAltitude
	codeGroundSpeed
	codeBatteryPercent
	codeThrottle
	codeArmTimer
	codeUptime
	codeGPSSatCount
	codeHeading
)

// Default constructs the built-in, read-only API catalog.
func Default() *Catalog {
	flight := &Entry{
		Name: "flight",
		Kind: KindObject,
		Children: map[string]*Entry{
			"homeDistance":      numberLeaf("flight.homeDistance", codeHomeDistance, &Range{0, 1_000_000}),
			"cellVoltage":       numberLeaf("flight.cellVoltage", codeCellVoltage, &Range{0, 500}),
			"yaw":               numberLeaf("flight.yaw", codeYaw, &Range{0, 360}),
			"pitch":             numberLeaf("flight.pitch", codePitch, &Range{-180, 180}),
			"roll":              numberLeaf("flight.roll", codeRoll, &Range{-180, 180}),
			"altitude":          numberLeaf("flight.altitude", codeAltitude, nil),
			"groundSpeed":       numberLeaf("flight.groundSpeed", codeGroundSpeed, &Range{0, 1_000_000}),
			"batteryPercentage": numberLeaf("flight.batteryPercentage", codeBatteryPercent, &Range{0, 100}),
			"throttle":          numberLeaf("flight.throttle", codeThrottle, &Range{0, 100}),
			"heading":           numberLeaf("flight.heading", codeHeading, &Range{0, 360}),
			"mode": {
				Name:     "flight.mode",
				Kind:     KindObject,
				Children: modeEntries(),
			},
		},
	}

	override := &Entry{
		Name: "override",
		Kind: KindObject,
		Children: map[string]*Entry{
			"throttleScale": writableLeaf("override.throttleScale", target.OverrideThrottleScale, nil, &Range{0, 200}),
			"throttle":      writableLeaf("override.throttle", target.OverrideThrottle, nil, &Range{0, 100}),
			"armingSafety":  writableLeaf("override.armingSafety", target.OverrideArmingSafety, nil, &Range{0, 1}),
			"osdLayout":     writableLeaf("override.osdLayout", target.SetOSDLayout, nil, &Range{0, 4}),
			"rollInvert":    writableLeaf("override.rollInvert", target.InvertRoll, nil, &Range{0, 1}),
			"pitchInvert":   writableLeaf("override.pitchInvert", target.InvertPitch, nil, &Range{0, 1}),
			"yawInvert":     writableLeaf("override.yawInvert", target.InvertYaw, nil, &Range{0, 1}),
			"swapRollYaw":   writableLeaf("override.swapRollYaw", target.SwapRollYaw, nil, &Range{0, 1}),
			"headingTarget": writableLeaf("override.headingTarget", target.SetHeadingTarget, nil, &Range{0, 360}),
			"loiterRadius":  writableLeaf("override.loiterRadius", target.LoiterOverride, nil, &Range{0, 10_000}),
			"profile":       writableLeaf("override.profile", target.SetProfile, nil, &Range{0, 3}),
			"minGroundSpeed": writableLeaf("override.minGroundSpeed", target.OverrideMinGroundSpeed, nil,
				&Range{0, 1_000_000}),
			"gimbalSensitivity": writableLeaf("override.gimbalSensitivity", target.SetGimbalSensitivity, nil, &Range{0, 100}),
			"ledPinPWM":         writableLeaf("override.ledPinPWM", target.LEDPinPWM, nil, &Range{0, 100}),
			"port":              writableLeaf("override.port", target.PortSet, nil, nil),
			"disableGPSFix":     writableLeaf("override.disableGPSFix", target.DisableGPSFix, nil, &Range{0, 1}),
			"resetMagCalibration": writableLeaf("override.resetMagCalibration", target.ResetMagCalibration, nil,
				&Range{0, 1}),
			"vtx": {
				Name: "override.vtx",
				Kind: KindObject,
				Children: map[string]*Entry{
					"power":   writableLeaf("override.vtx.power", target.SetVTXPowerLevel, nil, &Range{0, 5}),
					"band":    writableLeaf("override.vtx.band", target.SetVTXBand, nil, &Range{0, 5}),
					"channel": writableLeaf("override.vtx.channel", target.SetVTXChannel, nil, &Range{1, 8}),
				},
			},
			"axis": {
				Name: "override.axis",
				Kind: KindObject,
				Children: map[string]*Entry{
					"angle": writableLeaf("override.axis.angle", target.FlightAxisAngleOverride, nil, &Range{-1800, 1800}),
					"rate":  writableLeaf("override.axis.rate", target.FlightAxisRateOverride, nil, &Range{-1800, 1800}),
				},
			},
		},
	}

	waypoint := &Entry{
		Name: "waypoint",
		Kind: KindObject,
		Children: map[string]*Entry{
			"index": {
				Name:  "waypoint.index",
				Kind:  KindNumber,
				Range: &Range{0, 59},
				Read:  operandPtr(target.Operand{Type: target.OperandWaypoints, Value: 0}),
			},
		},
	}

	timeNS := &Entry{
		Name: "time",
		Kind: KindObject,
		Children: map[string]*Entry{
			"armTimer": numberLeaf("time.armTimer", codeArmTimer, &Range{0, 1_000_000}),
			"uptime":   numberLeaf("time.uptime", codeUptime, &Range{0, 1_000_000}),
		},
	}

	rc := &Entry{Name: "rc", Kind: KindObject, Indexed: true}
	gvar := &Entry{Name: "gvar", Kind: KindObject, Indexed: true}

	return &Catalog{Roots: map[string]*Entry{
		"flight":   flight,
		"rc":       rc,
		"override": override,
		"waypoint": waypoint,
		"time":     timeNS,
		"gvar":     gvar,
	}}
}

func operandPtr(o target.Operand) *target.Operand { return &o }

func modeEntries() map[string]*Entry {
	m := make(map[string]*Entry, len(flightModes))
	for i, name := range flightModes {
		m[name] = boolModeLeaf("flight.mode."+name, int32(i))
	}
	return m
}
