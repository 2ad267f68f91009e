package target

import (
	"fmt"

	"github.com/xlab/treeprint"
)

// Dump renders t as an indented tree grouped by activator, for the verbose
// mode of the CLI and for test snapshots. Records gated by another slot hang
// under it; ungated records hang directly off the root.
func (t Table) Dump() string {
	root := treeprint.New()
	root.SetValue(fmt.Sprintf("Table (%d/%d slots)", len(t), MaxSlots))

	branches := map[int]treeprint.Tree{}
	for _, ins := range t {
		parent := root
		if b, ok := branches[ins.Activator]; ok && ins.Activator != NoActivator {
			parent = b
		}
		label := fmt.Sprintf("%d: %s %s %s", ins.Slot, ins.Operation, describeOperand(ins.A), describeOperand(ins.B))
		if !ins.Enabled {
			label += " (disabled)"
		}
		branches[ins.Slot] = parent.AddBranch(label)
	}
	return root.String()
}

func describeOperand(o Operand) string {
	if o == (Operand{}) {
		return "-"
	}
	return fmt.Sprintf("%s:%d", o.Type, o.Value)
}
