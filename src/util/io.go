// Package util holds small file and text helpers shared by cmd/logicc and the
// decompiler. Unlike the reference codebase's util package, which
// synchronizes output from multiple concurrent compiler worker goroutines
// over channels, every helper here is a plain synchronous function: the core
// pipeline is single-threaded, so there is nothing to synchronize.
package util

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadSource reads program source text from path, or from stdin when path is
// empty.
func ReadSource(path string) (string, error) {
	if path == "" {
		b, err := io.ReadAll(bufio.NewReader(os.Stdin))
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(b), nil
}

// WriteLines joins lines with newlines and writes the result (plus a trailing
// newline) to path, or to stdout when path is empty.
func WriteLines(path string, lines []string) error {
	text := strings.Join(lines, "\n")
	if len(lines) > 0 {
		text += "\n"
	}
	if path == "" {
		_, err := fmt.Print(text)
		return err
	}
	return os.WriteFile(path, []byte(text), 0o644)
}
