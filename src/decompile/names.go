// names.go maps an operand back through the API catalog to a source-level
// path, with a synthesized fallback name and a warning when no catalog entry
// matches.
package decompile

import (
	"fmt"
	"strings"

	"github.com/inav-tools/logicc/src/catalog"
	"github.com/inav-tools/logicc/src/target"
)

// readIndex is a reverse lookup from a read operand to the dotted path of the
// catalog entry it came from, built once per Decompile call since the catalog
// itself carries no back-pointers.
type readIndex struct {
	byFlight map[int32]string
	byOther  map[target.Operand]string
}

func buildReadIndex(cat *catalog.Catalog) *readIndex {
	idx := &readIndex{byFlight: map[int32]string{}, byOther: map[target.Operand]string{}}
	var walk func(path []string, e *catalog.Entry)
	walk = func(path []string, e *catalog.Entry) {
		if e.Read != nil {
			name := strings.Join(path, ".")
			if e.Read.Type == target.OperandFlight {
				idx.byFlight[e.Read.Value] = name
			} else {
				idx.byOther[*e.Read] = name
			}
		}
		for child, c := range e.Children {
			walk(append(append([]string{}, path...), child), c)
		}
	}
	for root, e := range cat.Roots {
		walk([]string{root}, e)
	}
	return idx
}

// writeIndex is the write-side counterpart: opcode to the dotted path of the
// writable leaf it belongs to.
type writeIndex struct {
	byOp map[target.Operation]string
}

func buildWriteIndex(cat *catalog.Catalog) *writeIndex {
	idx := &writeIndex{byOp: map[target.Operation]string{}}
	var walk func(path []string, e *catalog.Entry)
	walk = func(path []string, e *catalog.Entry) {
		if e.WriteOp != nil {
			idx.byOp[*e.WriteOp] = strings.Join(path, ".")
		}
		for child, c := range e.Children {
			walk(append(append([]string{}, path...), child), c)
		}
	}
	for root, e := range cat.Roots {
		walk([]string{root}, e)
	}
	return idx
}

// nameForRead resolves op to a dotted source path, falling back to a
// synthesized placeholder and recording a warning when no catalog leaf
// matches.
func (d *decompiler) nameForRead(op target.Operand) string {
	switch op.Type {
	case target.OperandValue:
		return fmt.Sprintf("%d", op.Value)
	case target.OperandGVar:
		return fmt.Sprintf("gvar[%d]", op.Value)
	case target.OperandRCChannel:
		// Device-facing channels are 1-18; translate back to the compiler-facing
		// 0-17 convention here, the single point of translation on the
		// decompile path.
		return fmt.Sprintf("rc[%d]", op.Value-1)
	case target.OperandFlightMode:
		if name, ok := catalog.FlightModeName(op.Value); ok {
			return "flight.mode." + name
		}
		d.warnf("unrecognized flight mode index %d; synthesizing a placeholder name", op.Value)
		return fmt.Sprintf("flight.mode.unknown%d", op.Value)
	case target.OperandFlight:
		if name, ok := d.reads.byFlight[op.Value]; ok {
			return name
		}
		d.warnf("unrecognized flight telemetry code %d; synthesizing a placeholder name", op.Value)
		return fmt.Sprintf("flight.unknown%d", op.Value)
	default:
		if name, ok := d.reads.byOther[op]; ok {
			return name
		}
		d.warnf("unrecognized operand %s %d; synthesizing a placeholder name", op.Type, op.Value)
		return fmt.Sprintf("__unknown_%s_%d", strings.ToLower(op.Type.String()), op.Value)
	}
}

// nameForWrite resolves a write opcode back to the dotted path of the
// catalog leaf it writes, or reports false when no catalog leaf uses that
// opcode.
func (d *decompiler) nameForWrite(op target.Operation) (string, bool) {
	if name, ok := d.writes.byOp[op]; ok {
		return name, true
	}
	return "", false
}
