package catalog

import (
	"fmt"

	"github.com/inav-tools/logicc/src/target"
	"gopkg.in/yaml.v3"
)

// Overlay is a YAML document describing additional catalog leaves, used to extend
// the built-in catalog with board- or firmware-fork-specific identifiers without
// touching the static tree in catalog.go. This is purely additive: Apply refuses
// to redefine an existing root or leaf.
//
// Example document:
//
//	gvarAliases:
//	  - name: batteryReserve
//	    index: 6
//	overrides:
//	  - path: override.customLED
//	    opcode: led_pin_pwm
//	    min: 0
//	    max: 255
type Overlay struct {
	GVarAliases []GVarAlias    `yaml:"gvarAliases"`
	Overrides   []OverlayWrite `yaml:"overrides"`
	Readouts    []OverlayRead  `yaml:"readouts"`
}

// GVarAlias names a fixed register index, letting an overlay bind a friendly name
// (e.g. "batteryReserve", reachable as gvar.batteryReserve) to a specific gvar slot
// instead of the user writing gvar[i] directly.
type GVarAlias struct {
	Name  string `yaml:"name"`
	Index int32  `yaml:"index"`
}

// OverlayWrite describes one additional writable leaf.
type OverlayWrite struct {
	Path   string `yaml:"path"`
	Opcode string `yaml:"opcode"`
	Min    *int32 `yaml:"min"`
	Max    *int32 `yaml:"max"`
}

// OverlayRead describes one additional readable leaf.
type OverlayRead struct {
	Path         string `yaml:"path"`
	OperandType  string `yaml:"operandType"`
	OperandValue int32  `yaml:"operandValue"`
	Min          *int32 `yaml:"min"`
	Max          *int32 `yaml:"max"`
}

// ParseOverlay decodes a YAML overlay document.
func ParseOverlay(doc []byte) (*Overlay, error) {
	var o Overlay
	if err := yaml.Unmarshal(doc, &o); err != nil {
		return nil, fmt.Errorf("parsing catalog overlay: %w", err)
	}
	return &o, nil
}

// opcodeByName maps an overlay's textual opcode name onto the frozen target.Operation
// wire enumeration (src/target/opcode.go), the only place outside that package name
// strings are translated back to opcode values.
var opcodeByName map[string]target.Operation

func init() {
	opcodeByName = make(map[string]target.Operation, target.OperationCount)
	for i := 0; i < target.OperationCount; i++ {
		op := target.Operation(i)
		opcodeByName[op.String()] = op
	}
}

var operandTypeByName = map[string]target.OperandType{
	"value":       target.OperandValue,
	"rc_channel":  target.OperandRCChannel,
	"flight":      target.OperandFlight,
	"flight_mode": target.OperandFlightMode,
	"lc_result":   target.OperandLCResult,
	"gvar":        target.OperandGVar,
	"pid":         target.OperandPID,
	"waypoints":   target.OperandWaypoints,
}

// Apply merges o onto c, returning an error (and leaving c unmodified on error) if
// any entry collides with an existing catalog path or names an unknown opcode.
func (c *Catalog) Apply(o *Overlay) error {
	if o == nil {
		return nil
	}

	// Validate everything before mutating so Apply is all-or-nothing.
	type pending struct {
		root, child string
		entry       *Entry
	}
	var additions []pending

	for _, w := range o.Overrides {
		op, ok := opcodeByName[w.Opcode]
		if !ok {
			return fmt.Errorf("overlay: unknown opcode %q for %s", w.Opcode, w.Path)
		}
		root, child, err := splitLeafPath(w.Path)
		if err != nil {
			return err
		}
		if _, err := c.Resolve(splitPath(w.Path)); err == nil {
			return fmt.Errorf("overlay: %s already exists in catalog", w.Path)
		}
		e := &Entry{Name: w.Path, Kind: KindNumber, Writable: true, WriteOp: &op}
		if w.Min != nil && w.Max != nil {
			e.Range = &Range{Min: *w.Min, Max: *w.Max}
		}
		additions = append(additions, pending{root, child, e})
	}

	for _, r := range o.Readouts {
		ot, ok := operandTypeByName[r.OperandType]
		if !ok {
			return fmt.Errorf("overlay: unknown operand type %q for %s", r.OperandType, r.Path)
		}
		root, child, err := splitLeafPath(r.Path)
		if err != nil {
			return err
		}
		if _, err := c.Resolve(splitPath(r.Path)); err == nil {
			return fmt.Errorf("overlay: %s already exists in catalog", r.Path)
		}
		op := target.Operand{Type: ot, Value: r.OperandValue}
		e := &Entry{Name: r.Path, Kind: KindNumber, Read: &op}
		if r.Min != nil && r.Max != nil {
			e.Range = &Range{Min: *r.Min, Max: *r.Max}
		}
		additions = append(additions, pending{root, child, e})
	}

	for _, add := range additions {
		if _, ok := c.Roots[add.root]; !ok {
			return fmt.Errorf("overlay: unknown root namespace %q", add.root)
		}
	}
	for _, alias := range o.GVarAliases {
		if _, err := c.Resolve([]string{"gvar", alias.Name}); err == nil {
			return fmt.Errorf("overlay: gvar.%s already exists in catalog", alias.Name)
		}
	}

	for _, add := range additions {
		root := c.Roots[add.root]
		if root.Children == nil {
			root.Children = make(map[string]*Entry)
		}
		root.Children[add.child] = add.entry
	}

	for _, alias := range o.GVarAliases {
		root := c.Roots["gvar"]
		if root.Children == nil {
			root.Children = make(map[string]*Entry)
		}
		op := target.GVar(alias.Index)
		root.Children[alias.Name] = &Entry{
			Name:     "gvar." + alias.Name,
			Kind:     KindNumber,
			Writable: true,
			Read:     &op,
		}
	}

	return nil
}

func splitPath(path string) []string {
	return splitDots(path)
}

// splitLeafPath splits "a.b.c" into its root ("a") and the single child key the
// overlay attaches under that root ("b.c" is rejected: overlay entries may only
// add one level below an existing root, keeping overlay leaves shallow and simple
// to merge).
func splitLeafPath(path string) (root, child string, err error) {
	parts := splitDots(path)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("overlay: path %q must be exactly root.leaf", path)
	}
	return parts[0], parts[1], nil
}

func splitDots(s string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	return parts
}
