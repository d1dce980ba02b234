package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agoawk/goawk/internal/ast"
	"github.com/agoawk/goawk/internal/compiler"
	"github.com/agoawk/goawk/parser"
)

type cliFlags struct {
	progFiles  []string
	fieldSep   string
	assigns    []string
	inputMode  string
	outputMode string
	outFile    string
	dumpAST    bool
	dumpCode   bool
	dumpTypes  bool
	noExec     bool
	noFiles    bool
	config     string
}

var rootFlags cliFlags

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goawk [flags] 'program' [file ...]",
		Short: "An AWK-compatible text-processing language",
		Long: `goawk parses and executes AWK-family programs against one or more input
files (or standard input, with a filename of "-").`,
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
		RunE:         runRoot,
	}

	cmd.Flags().StringArrayVarP(&rootFlags.progFiles, "file", "f", nil, "program file (repeatable; concatenated in order)")
	cmd.Flags().StringVarP(&rootFlags.fieldSep, "field-separator", "F", "", "input field separator (sets FS)")
	cmd.Flags().StringArrayVarP(&rootFlags.assigns, "assign", "v", nil, "variable assignment name=value (repeatable)")
	cmd.Flags().StringVarP(&rootFlags.inputMode, "input-mode", "i", "", "input record mode: csv|tsv|pipe|records")
	cmd.Flags().StringVarP(&rootFlags.outputMode, "output-mode", "o", "", "output field mode: csv|tsv")
	cmd.Flags().StringVar(&rootFlags.outFile, "out-file", "", "write program output to this path instead of stdout")
	cmd.Flags().BoolVar(&rootFlags.dumpAST, "dump-ast", false, "print the parsed AST and exit without executing")
	cmd.Flags().BoolVar(&rootFlags.dumpCode, "dump-code", false, "print the disassembled bytecode and exit without executing")
	cmd.Flags().BoolVar(&rootFlags.dumpTypes, "dump-types", false, "print inferred variable types and exit without executing")
	cmd.Flags().BoolVar(&rootFlags.noExec, "no-exec", false, "disallow system() and pipe I/O")
	cmd.Flags().BoolVar(&rootFlags.noFiles, "no-file-io", false, "disallow file reads and writes outside the program's own source")
	cmd.Flags().StringVar(&rootFlags.config, "config", "", "path to a .goawkrc.toml supplying default flags (default: ./.goawkrc.toml if present)")

	return cmd
}

func runRoot(cmd *cobra.Command, args []string) error {
	cfg, err := loadRCConfig(rootFlags.config)
	if err != nil {
		return err
	}
	cfg.applyDefaults(&rootFlags)

	src, rest, err := programSource(args)
	if err != nil {
		return err
	}

	inputMode, err := parseInputMode(rootFlags.inputMode)
	if err != nil {
		return err
	}
	outputMode, err := parseOutputMode(rootFlags.outputMode)
	if err != nil {
		return err
	}

	vars, err := parseAssigns(rootFlags.assigns)
	if err != nil {
		return err
	}
	if rootFlags.fieldSep != "" {
		vars = append([]string{"FS", rootFlags.fieldSep}, vars...)
	}

	parserConfig := &parser.Config{InputMode: inputMode, OutputMode: outputMode}
	prog, err := parser.ParseProgram(src, parserConfig)
	if err != nil {
		return err
	}

	if rootFlags.dumpAST {
		fmt.Fprintln(os.Stdout, prog.String())
		printMetadata(prog)
		return nil
	}

	compiled, err := compiler.Compile(prog, nil)
	if err != nil {
		return err
	}

	if rootFlags.dumpCode {
		return compiled.Compiled.Disassemble(os.Stdout)
	}
	if rootFlags.dumpTypes {
		return dumpTypes(os.Stdout, prog)
	}

	out, closeOut, err := openOutput(rootFlags.outFile)
	if err != nil {
		return err
	}
	defer closeOut()

	status, err := runProgram(compiled, out, rest, vars)
	if err != nil {
		return err
	}
	if status != 0 {
		return &exitCodeError{code: clampExitCode(status)}
	}
	return nil
}

// programSource resolves the AWK source text from -f FILE flags (joined
// in flag order per classic AWK "multiple -f" semantics) or, absent
// those, the first positional argument; the remaining positional
// arguments become the input filenames.
func programSource(args []string) ([]byte, []string, error) {
	if len(rootFlags.progFiles) > 0 {
		var parts [][]byte
		for _, path := range rootFlags.progFiles {
			b, err := os.ReadFile(path)
			if err != nil {
				return nil, nil, fmt.Errorf("goawk: %w", err)
			}
			parts = append(parts, b)
		}
		return []byte(strings.Join(byteSlicesToStrings(parts), "\n")), args, nil
	}
	if len(args) == 0 {
		return nil, nil, fmt.Errorf("goawk: no program text given (use 'program' or -f file)")
	}
	return []byte(args[0]), args[1:], nil
}

func byteSlicesToStrings(bs [][]byte) []string {
	ss := make([]string, len(bs))
	for i, b := range bs {
		ss[i] = string(b)
	}
	return ss
}

func parseInputMode(s string) (ast.InputMode, error) {
	switch s {
	case "":
		return ast.InputDefault, nil
	case "csv":
		return ast.InputCSV, nil
	case "tsv":
		return ast.InputTSV, nil
	case "pipe", "records":
		return ast.InputPipe, nil
	default:
		return 0, fmt.Errorf("goawk: unknown input mode %q (want csv, tsv, pipe, or records)", s)
	}
}

func parseOutputMode(s string) (ast.OutputMode, error) {
	switch s {
	case "":
		return ast.OutputDefault, nil
	case "csv":
		return ast.OutputCSV, nil
	case "tsv":
		return ast.OutputTSV, nil
	default:
		return 0, fmt.Errorf("goawk: unknown output mode %q (want csv or tsv)", s)
	}
}

func parseAssigns(assigns []string) ([]string, error) {
	vars := make([]string, 0, len(assigns)*2)
	for _, a := range assigns {
		eq := strings.IndexByte(a, '=')
		if eq < 0 {
			return nil, fmt.Errorf("goawk: -v assignment %q must be in the form name=value", a)
		}
		vars = append(vars, a[:eq], a[eq+1:])
	}
	return vars, nil
}

func openOutput(path string) (*os.File, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("goawk: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func clampExitCode(n int) int {
	if n < 0 {
		return 0
	}
	if n > 255 {
		return 255
	}
	return n
}

func printMetadata(prog *ast.Program) {
	for _, m := range prog.Metadata {
		fmt.Fprintf(os.Stdout, "@%s %s\n", m.Tag, m.Value)
	}
}

func isCompileErr(err error) bool {
	switch err.(type) {
	case *parser.ParseError, *compiler.CompileError:
		return true
	}
	return false
}
