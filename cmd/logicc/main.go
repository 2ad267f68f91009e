// Command logicc is the command-line front end to the compiler/decompiler
// core in src/. It is a thin shell: every subcommand calls straight into
// src/orchestrator and only adds argument parsing, diagnostic formatting,
// and TTY-aware coloring.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/inav-tools/logicc/src/catalog"
	"github.com/inav-tools/logicc/src/frontend"
	"github.com/inav-tools/logicc/src/orchestrator"
	"github.com/inav-tools/logicc/src/target"
	"github.com/inav-tools/logicc/src/util"
)

var (
	verbose        bool
	outputFile     string
	catalogOverlay string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "logicc",
		Short: "Compile and decompile flight-controller logic-condition rule tables",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
		},
	}
	addPersistentFlags(root.PersistentFlags())

	root.AddCommand(newCompileCmd())
	root.AddCommand(newDecompileCmd())
	root.AddCommand(newTokensCmd())
	return root
}

// addPersistentFlags registers the flags shared by every subcommand.
func addPersistentFlags(fs *pflag.FlagSet) {
	fs.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	fs.StringVarP(&outputFile, "output", "o", "", "write result to this file instead of stdout")
	fs.StringVar(&catalogOverlay, "catalog-overlay", "",
		"YAML file of additional gvar aliases/overrides/readouts merged onto the built-in catalog")
}

// loadCatalog builds the built-in catalog and, when --catalog-overlay names a
// file, merges its YAML overlay onto it before any compile or decompile runs.
func loadCatalog() (*catalog.Catalog, error) {
	cat := catalog.Default()
	if catalogOverlay == "" {
		return cat, nil
	}
	doc, err := os.ReadFile(catalogOverlay)
	if err != nil {
		return nil, fmt.Errorf("reading catalog overlay: %w", err)
	}
	overlay, err := catalog.ParseOverlay(doc)
	if err != nil {
		return nil, err
	}
	if err := cat.Apply(overlay); err != nil {
		return nil, fmt.Errorf("applying catalog overlay: %w", err)
	}
	return cat, nil
}

// colorEnabled reports whether stdout is a terminal
// (golang.org/x/term.IsTerminal); printError and printWarnings disable
// fatih/color when it is not, so piping never embeds escape codes.
func colorEnabled() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func newCompileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compile [file]",
		Short: "Compile a source program into a logic-condition rule table",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := util.ReadSource(inputPath(args))
			if err != nil {
				return err
			}
			cat, err := loadCatalog()
			if err != nil {
				return err
			}

			o := orchestrator.New(cat)
			res := o.Compile(src)

			if !res.Success {
				printError(res.Error, res.Line, res.Column)
				return fmt.Errorf("compile failed")
			}

			if err := util.WriteLines(outputFile, res.Commands); err != nil {
				return err
			}
			printWarnings(res.Warnings)
			fmt.Fprintf(os.Stderr, "%d handlers, %d conditions, %d actions, %d/%d slots, %d/8 gvars\n",
				res.Stats.Handlers, res.Stats.Conditions, res.Stats.Actions,
				res.Stats.SlotsUsed, target.MaxSlots, res.Stats.GVarsUsed)
			return nil
		},
	}
}

func newDecompileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decompile [file]",
		Short: "Reconstruct source text from a rule table's `logic ...` command lines",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := util.ReadSource(inputPath(args))
			if err != nil {
				return err
			}
			table, err := parseLogicLines(raw)
			if err != nil {
				return err
			}
			cat, err := loadCatalog()
			if err != nil {
				return err
			}

			o := orchestrator.New(cat)
			res := o.Decompile(table)

			if err := util.WriteLines(outputFile, strings.Split(strings.TrimRight(res.Code, "\n"), "\n")); err != nil {
				return err
			}
			printWarnings(res.Warnings)
			fmt.Fprintf(os.Stderr, "%d/%d records enabled, %d groups\n",
				res.Stats.Enabled, res.Stats.Total, res.Stats.Groups)
			return nil
		},
	}
}

func newTokensCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tokens [file]",
		Short: "Print the lexer's token stream for a source program (debug aid)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := util.ReadSource(inputPath(args))
			if err != nil {
				return err
			}
			return util.WriteLines(outputFile, frontend.Tokens(src))
		},
	}
}

// inputPath returns the positional file argument, or "" to mean stdin, the
// convention util.ReadSource expects.
func inputPath(args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	return ""
}

func printError(msg string, line, col int) {
	red := color.New(color.FgRed, color.Bold)
	if !colorEnabled() {
		red.DisableColor()
	}
	if line > 0 {
		red.Fprintf(os.Stderr, "error (%d:%d): %s\n", line, col, msg)
		return
	}
	red.Fprintf(os.Stderr, "error: %s\n", msg)
}

func printWarnings(warnings []string) {
	if len(warnings) == 0 {
		return
	}
	yellow := color.New(color.FgYellow)
	if !colorEnabled() {
		yellow.DisableColor()
	}
	for _, w := range warnings {
		yellow.Fprintf(os.Stderr, "warning: %s\n", w)
	}
}

// parseLogicLines parses the device CLI's `logic <slot> <enabled>
// <activator> <op> <A_type> <A_value> <B_type> <B_value> <flags>` lines back
// into a target.Table, the reverse of Instruction.Encode.
func parseLogicLines(raw string) (target.Table, error) {
	var table target.Table
	scanner := bufio.NewScanner(strings.NewReader(raw))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 10 || fields[0] != "logic" {
			return nil, fmt.Errorf("line %d: malformed logic command %q", lineNo, line)
		}
		ints := make([]int, 9)
		for i, f := range fields[1:] {
			n, err := strconv.Atoi(f)
			if err != nil {
				return nil, fmt.Errorf("line %d: field %d is not an integer: %w", lineNo, i+1, err)
			}
			ints[i] = n
		}
		table = append(table, target.Instruction{
			Slot:      ints[0],
			Enabled:   ints[1] != 0,
			Activator: ints[2],
			Operation: target.Operation(ints[3]),
			A:         target.Operand{Type: target.OperandType(ints[4]), Value: int32(ints[5])},
			B:         target.Operand{Type: target.OperandType(ints[6]), Value: int32(ints[7])},
			Flags:     ints[8],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return table, nil
}
