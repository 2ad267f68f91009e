// Package diag implements the compiler's diagnostics taxonomy and buffer.
// The core is single-threaded and synchronous, so unlike the reference
// codebase's channel-based util.Perror, Buffer is a plain synchronous
// accumulator: each stage appends to it directly and the orchestrator reads it
// back once a stage completes.
package diag

import "fmt"

// Severity distinguishes hard errors (abort further stages) from soft warnings
// (retained and returned alongside successful output).
type Severity int

const (
	Warning Severity = iota
	Error
)

// Category classifies a diagnostic by the stage and failure mode that
// produced it.
type Category int

const (
	CategorySyntax Category = iota
	CategorySemanticHard
	CategoryResourceHard
	CategoryShapeHard
	CategorySoftRangeClip
	CategorySoftDeadCode
	CategorySoftAlwaysTrue
	CategorySoftWriteConflict
	CategorySoftRace
	CategorySoftUninitialized
	CategorySoftLossy
	CategorySoftUnsupportedOpcode
)

var categoryNames = [...]string{
	CategorySyntax:                "syntax",
	CategorySemanticHard:          "semantic",
	CategoryResourceHard:          "resource",
	CategoryShapeHard:             "shape",
	CategorySoftRangeClip:         "range-clip",
	CategorySoftDeadCode:          "dead-code",
	CategorySoftAlwaysTrue:        "always-true",
	CategorySoftWriteConflict:     "write-conflict",
	CategorySoftRace:              "race",
	CategorySoftUninitialized:     "uninitialized-register",
	CategorySoftLossy:             "lossy-decompile",
	CategorySoftUnsupportedOpcode: "unsupported-opcode",
}

func (c Category) String() string {
	if int(c) < 0 || int(c) >= len(categoryNames) {
		return "unknown"
	}
	return categoryNames[c]
}

// Diagnostic is a single reported error or warning, optionally carrying the source
// position it came from.
type Diagnostic struct {
	Severity Severity
	Category Category
	Message  string
	Line     int
	Column   int
}

// String renders a diagnostic the way a CLI would print it:
// "<severity>[<category>]: <message> (line:col)", omitting the position when
// Line is zero.
func (d Diagnostic) String() string {
	sev := "warning"
	if d.Severity == Error {
		sev = "error"
	}
	if d.Line > 0 {
		return fmt.Sprintf("%s[%s]: %s (%d:%d)", sev, d.Category, d.Message, d.Line, d.Column)
	}
	return fmt.Sprintf("%s[%s]: %s", sev, d.Category, d.Message)
}

// Buffer accumulates diagnostics for a single compile or decompile invocation.
// It carries no state across invocations: the orchestrator constructs a fresh
// Buffer per call, keeping diagnostics local to a single invocation.
type Buffer struct {
	items []Diagnostic
}

// NewBuffer returns an empty diagnostics buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Errorf appends a hard error of category cat.
func (b *Buffer) Errorf(cat Category, line, col int, format string, args ...interface{}) {
	b.items = append(b.items, Diagnostic{
		Severity: Error, Category: cat, Message: fmt.Sprintf(format, args...), Line: line, Column: col,
	})
}

// Warnf appends a soft warning of category cat.
func (b *Buffer) Warnf(cat Category, line, col int, format string, args ...interface{}) {
	b.items = append(b.items, Diagnostic{
		Severity: Warning, Category: cat, Message: fmt.Sprintf(format, args...), Line: line, Column: col,
	})
}

// HasErrors reports whether any hard error has been recorded.
func (b *Buffer) HasErrors() bool {
	for _, d := range b.items {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

// FirstError returns the first recorded hard error, or nil if there isn't one.
// Hard errors abort further stages; the orchestrator surfaces this one
// alongside the full buffer.
func (b *Buffer) FirstError() *Diagnostic {
	for _, d := range b.items {
		if d.Severity == Error {
			d := d
			return &d
		}
	}
	return nil
}

// All returns every recorded diagnostic in recording order.
func (b *Buffer) All() []Diagnostic {
	return b.items
}

// Warnings returns only the recorded warnings, in recording order.
func (b *Buffer) Warnings() []Diagnostic {
	var out []Diagnostic
	for _, d := range b.items {
		if d.Severity == Warning {
			out = append(out, d)
		}
	}
	return out
}

// Strings renders every diagnostic via Diagnostic.String, in recording order.
func (b *Buffer) Strings() []string {
	out := make([]string, len(b.items))
	for i, d := range b.items {
		out[i] = d.String()
	}
	return out
}
