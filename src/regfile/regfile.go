// Package regfile implements the firmware's persistent register file: up to 8
// signed-integer gvar slots shared between registers the user names explicitly
// (gvar[i]) and variables the Variable Handler auto-allocates for `var`
// declarations. This is the gvar analogue of the reference codebase's
// backend/regfile package, which allocates physical CPU registers for a machine
// code backend; here the "registers" are the firmware's persistent scalars
// instead, and allocation order runs from the highest index downward rather
// than by liveness.
package regfile

import "fmt"

// Count is the number of persistent registers the firmware provides.
const Count = 8

// ValueMin and ValueMax are the clamped bounds every register value (and every
// literal assigned to one) must respect.
const (
	ValueMin = -1_000_000
	ValueMax = 1_000_000
)

// File tracks which of the Count gvar slots are in use and by what source-level
// name, so the Variable Handler can report a useful error when the 8-slot budget
// is exhausted.
type File struct {
	owner [Count]string // "" means free.
}

// New returns an empty register file with every slot free.
func New() *File {
	return &File{}
}

// Reserve claims register i for owner, used when the source explicitly names
// gvar[i]. Reserving an index already claimed by a different owner is an error;
// reserving the same index for the same owner twice is a no-op.
func (f *File) Reserve(i int, owner string) error {
	if i < 0 || i >= Count {
		return fmt.Errorf("register index %d out of range [0, %d)", i, Count)
	}
	if f.owner[i] != "" && f.owner[i] != owner {
		return fmt.Errorf("register gvar[%d] already in use by %s, cannot assign to %s", i, f.owner[i], owner)
	}
	f.owner[i] = owner
	return nil
}

// Alloc claims the highest-indexed free register for owner. Allocation runs
// from the highest index downward, skipping indices the user named explicitly
// (those are reserved before auto-allocation runs). It fails with an error
// naming owner when no register remains.
func (f *File) Alloc(owner string) (int, error) {
	for i := Count - 1; i >= 0; i-- {
		if f.owner[i] == "" {
			f.owner[i] = owner
			return i, nil
		}
	}
	return -1, fmt.Errorf("no available register for %s: all %d gvar slots are in use", owner, Count)
}

// InUse reports whether register i is currently allocated.
func (f *File) InUse(i int) bool {
	if i < 0 || i >= Count {
		return false
	}
	return f.owner[i] != ""
}

// Owner returns the name that claimed register i, or "" if it is free.
func (f *File) Owner(i int) string {
	if i < 0 || i >= Count {
		return ""
	}
	return f.owner[i]
}

// Used returns the number of currently allocated registers, for the compile
// stats report.
func (f *File) Used() int {
	n := 0
	for _, o := range f.owner {
		if o != "" {
			n++
		}
	}
	return n
}

// Clamp restricts v to the legal register value range, returning
// the clamped value and whether clamping was necessary.
func Clamp(v int32) (int32, bool) {
	switch {
	case v < ValueMin:
		return ValueMin, true
	case v > ValueMax:
		return ValueMax, true
	default:
		return v, false
	}
}
