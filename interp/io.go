package interp

import (
	"bufio"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	shellwords "github.com/mattn/go-shellwords"

	"github.com/agoawk/goawk/internal/ast"
	"github.com/agoawk/goawk/internal/compiler"
	"github.com/agoawk/goawk/internal/reader"
	iruntime "github.com/agoawk/goawk/internal/runtime"
	"github.com/agoawk/goawk/lexer"
)

// outStream is one open output destination: a file (">"/">>"), a pipe
// to a shell command ("|"), or (for the unredirected default) neither,
// in which case interp writes straight to p.output. w buffers writes;
// c closes the underlying file/pipe (nil for stdout/stderr, which
// interp never closes).
type outStream struct {
	w *bufio.Writer
	c io.Closer
}

func (o *outStream) flush() error {
	return o.w.Flush()
}

// nextInput advances to the next file named in ARGV (or stdin if ARGV
// names none), opening it as p.curInput and a matching record scanner
// (spec §4.3 "Main loop": "read records from each file named in ARGV in
// turn, or stdin if none are given or a name is \"-\""). It returns
// false once every ARGV entry (and, if none, stdin) has been consumed.
func (p *interp) nextInput() (bool, error) {
	argvIndex := p.program.Arrays["ARGV"]
	argv := p.array(ast.ScopeGlobal, argvIndex)

	for p.filenameIndex < p.argc {
		arg := p.toString(argv[strconv.Itoa(p.filenameIndex)])
		p.filenameIndex++
		if arg == "" {
			continue
		}
		if eq := varRegex.FindStringSubmatch(arg); eq != nil {
			if err := p.setVarByName(eq[1], eq[2]); err != nil {
				return false, err
			}
			continue
		}
		p.hadFiles = true
		p.filename = numStr(arg)
		p.fileLineNum = 0
		if arg == "-" {
			if err := p.openStdin(); err != nil {
				return false, err
			}
		} else {
			if err := p.openInput(arg); err != nil {
				return false, err
			}
		}
		return true, nil
	}
	if p.hadFiles {
		return false, nil
	}
	p.hadFiles = true
	p.filename = numStr("")
	p.fileLineNum = 0
	if err := p.openStdin(); err != nil {
		return false, err
	}
	return true, nil
}

func (p *interp) openStdin() error {
	rc, ok := p.stdin.(io.ReadCloser)
	if !ok {
		rc = ioNopCloser{p.stdin}
	}
	p.curInput = rc
	p.curInputIsStdin = true
	p.recordReader = p.newScanner(rc)
	return nil
}

func (p *interp) openInput(name string) error {
	if p.noFileReads {
		return newError("reading from file %q is not allowed (NoFileReads)", name)
	}
	f, err := os.Open(name)
	if err != nil {
		return newError("can't open file %q: %s", name, err)
	}
	p.curInput = f
	p.curInputIsStdin = false
	p.recordReader = p.newScanner(f)
	return nil
}

func (p *interp) closeCurInput() {
	if p.curInput != nil && !p.curInputIsStdin {
		p.curInput.Close()
	}
	p.curInput = nil
	p.recordReader = nil
}

// newScanner builds a RecordScanner honoring the active RS (and, in
// paragraph mode, the FS it implicitly augments) — see
// (*interp).setSpecial's V_RS case for where p.recordSepRegex is kept
// in sync with p.recordSep.
func (p *interp) newScanner(r io.Reader) *reader.RecordScanner {
	rs := p.recordSep
	rsRegex := p.recordSepRegex
	return reader.NewRecordScanner(r, rs, rsRegex)
}

// nextLine returns the next record from the current input stream,
// advancing NR/FNR/RT the way the plain read path does (spec §4.6).
func (p *interp) nextLine() (string, error) {
	if p.recordReader == nil {
		return "", io.EOF
	}
	if !p.recordReader.Scan() {
		if err := p.recordReader.Err(); err != nil {
			return "", newError("error reading input: %s", err)
		}
		return "", io.EOF
	}
	p.lineNum++
	p.fileLineNum++
	p.recordTerminator = p.recordReader.RT
	return p.recordReader.Text(), nil
}

// setLine sets $0 and invalidates the lazily-materialized field slice
// (spec §4.6 "assigning $0 re-splits"); isTrueStr marks an assignment
// from inside the program (a pure string, per spec §4.4), as opposed to
// a numeric-string read straight off the input stream.
func (p *interp) setLine(line string, isTrueStr bool) {
	p.line = line
	p.lineIsTrueStr = isTrueStr
	p.haveFields = false
}

// ensureFields lazily splits $0 into fields under the active input mode
// and FS (spec §4.6): most records are scanned, pattern-matched, and
// never have a single field referenced, so paying the split cost only
// when $1.. or NF is actually touched matters for throughput.
func (p *interp) ensureFields() {
	if p.haveFields {
		return
	}
	p.haveFields = true
	fsRegex := p.fieldSepRegex
	if p.recordSep == "" && fsRegex == nil {
		if re := reader.ParagraphFieldRegex(p.fieldSep); re != nil {
			fsRegex = re
		}
	}
	p.fields = reader.SplitFields(p.line, p.inputMode, p.fieldSep, fsRegex)
	p.fieldsIsTrueStr = make([]bool, len(p.fields))
	for i := range p.fieldsIsTrueStr {
		p.fieldsIsTrueStr[i] = false
	}
	p.numFields = len(p.fields)
}

type ioNopCloser struct{ io.Reader }

func (ioNopCloser) Close() error { return nil }

// closeAll flushes and closes every stream this run opened — files,
// pipes, and the default stdout buffer — run once as ExecProgram
// returns (spec §4.8 "streams are closed at program exit").
func (p *interp) closeAll() {
	p.flushAll()
	for _, s := range p.outputStreams {
		if s.c != nil {
			s.c.Close()
		}
	}
	for _, c := range p.commands {
		c.Wait()
	}
	for _, r := range p.inputStreams {
		r.Close()
	}
	p.closeCurInput()
}

func (p *interp) flushAll() int {
	status := 0
	if bw, ok := p.output.(*bufio.Writer); ok {
		if err := bw.Flush(); err != nil {
			status = -1
		}
	}
	for _, s := range p.outputStreams {
		if err := s.flush(); err != nil {
			status = -1
		}
	}
	return status
}

func (p *interp) flushOne(name string) int {
	if name == "" {
		return p.flushAll()
	}
	if s, ok := p.outputStreams[name]; ok {
		if err := s.flush(); err != nil {
			return -1
		}
		return 0
	}
	if bw, ok := p.output.(*bufio.Writer); ok {
		bw.Flush()
	}
	return 0
}

func (p *interp) closeStream(name string) int {
	status := -1
	if s, ok := p.outputStreams[name]; ok {
		s.flush()
		if s.c != nil {
			s.c.Close()
		}
		delete(p.outputStreams, name)
		status = 0
	}
	if r, ok := p.inputStreams[name]; ok {
		r.Close()
		delete(p.inputStreams, name)
		delete(p.recordReaders, name)
		status = 0
	}
	if cmd, ok := p.commands[name]; ok {
		err := cmd.Wait()
		delete(p.commands, name)
		status = 0
		if err != nil {
			if exitErr, ok := err.(*exec.ExitError); ok {
				status = exitErr.ExitCode()
			} else {
				status = -1
			}
		}
	}
	return status
}

// printLine writes one record plus ORS to w (spec §4.6 "print with no
// arguments prints $0").
func (p *interp) printLine(w io.Writer, line string) error {
	_, err := io.WriteString(w, line+p.outputRecordSep)
	return err
}

// argvForCommand parses cmdline the way a shell word-splits it, so
// system()/pipes run the target program directly via os/exec instead
// of shelling out for the common case; cmdline containing shell
// metacharacters (redirects, pipes, globs) falls back to
// p.shellCommand (spec §4.8 "system commands").
func argvForCommand(cmdline string) []string {
	if strings.ContainsAny(cmdline, "|&;<>(){}$`*?[]~") {
		return nil
	}
	argv, err := shellwords.Parse(cmdline)
	if err != nil || len(argv) == 0 {
		return nil
	}
	return argv
}

func (p *interp) buildCommand(cmdline string) *exec.Cmd {
	if argv := argvForCommand(cmdline); argv != nil {
		return exec.Command(argv[0], argv[1:]...)
	}
	args := append(append([]string{}, p.shellCommand[1:]...), cmdline)
	return exec.Command(p.shellCommand[0], args...)
}

func (p *interp) system(cmdline string) (value, error) {
	if p.noExec {
		return null(), newError("system() calls are not allowed (NoExec)")
	}
	p.flushAll()
	cmd := p.buildCommand(cmdline)
	cmd.Stdin = os.Stdin
	cmd.Stdout = p.output
	cmd.Stderr = p.errorOutput
	err := cmd.Run()
	if err == nil {
		return num(0), nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return num(float64(exitErr.ExitCode())), nil
	}
	return num(-1), nil
}

// getOutputStream resolves a print/printf redirect target to its
// outStream, opening it (file or pipe) on first use and reusing it on
// subsequent writes to the same destination string (spec §4.8 "the
// same destination reuses its stream for the rest of the run").
func (p *interp) getOutputStream(redirect lexer.Token, dest string) (io.Writer, error) {
	switch redirect {
	case lexer.ILLEGAL:
		return p.output, nil
	case lexer.GREATER, lexer.APPEND:
		if s, ok := p.outputStreams[dest]; ok {
			return s.w, nil
		}
		if p.noFileWrites {
			return nil, newError("writing to file %q is not allowed (NoFileWrites)", dest)
		}
		flags := os.O_WRONLY | os.O_CREATE
		if redirect == lexer.APPEND {
			flags |= os.O_APPEND
		} else {
			flags |= os.O_TRUNC
		}
		f, err := os.OpenFile(dest, flags, 0644)
		if err != nil {
			return nil, newError("can't open file %q for writing: %s", dest, err)
		}
		s := &outStream{w: bufio.NewWriterSize(f, outputBufSize), c: f}
		p.outputStreams[dest] = s
		return s.w, nil
	case lexer.PIPE:
		if s, ok := p.outputStreams[dest]; ok {
			return s.w, nil
		}
		if p.noExec {
			return nil, newError("piping to a command is not allowed (NoExec)")
		}
		cmd := p.buildCommand(dest)
		stdin, err := cmd.StdinPipe()
		if err != nil {
			return nil, newError("can't open pipe to %q: %s", dest, err)
		}
		cmd.Stdout = p.output
		cmd.Stderr = p.errorOutput
		if err := cmd.Start(); err != nil {
			return nil, newError("can't start command %q: %s", dest, err)
		}
		p.commands[dest] = cmd
		s := &outStream{w: bufio.NewWriterSize(stdin, outputBufSize), c: stdin}
		p.outputStreams[dest] = s
		return s.w, nil
	default:
		return p.output, nil
	}
}

// getInputStream resolves a getline source (a plain file for "<", or a
// command for "|") to a RecordScanner, opening and caching it by name
// the same way getOutputStream does for output (spec §4.6 "getline").
func (p *interp) getInputStream(redirect lexer.Token, src string) (*reader.RecordScanner, error) {
	if rs, ok := p.recordReaders[src]; ok {
		return rs, nil
	}
	switch redirect {
	case lexer.LESS:
		if p.noFileReads {
			return nil, newError("reading from file %q is not allowed (NoFileReads)", src)
		}
		var r io.ReadCloser
		if src == "-" {
			r = ioNopCloser{p.stdin}
		} else {
			f, err := os.Open(src)
			if err != nil {
				return nil, newError("can't open file %q: %s", src, err)
			}
			r = f
		}
		p.inputStreams[src] = r
		rs := p.newScanner(r)
		p.recordReaders[src] = rs
		return rs, nil
	case lexer.PIPE:
		if p.noExec {
			return nil, newError("running a command for getline is not allowed (NoExec)")
		}
		cmd := p.buildCommand(src)
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return nil, newError("can't open pipe from %q: %s", src, err)
		}
		cmd.Stderr = p.errorOutput
		if err := cmd.Start(); err != nil {
			return nil, newError("can't start command %q: %s", src, err)
		}
		p.commands[src] = cmd
		p.inputStreams[src] = stdout
		rs := p.newScanner(stdout)
		p.recordReaders[src] = rs
		return rs, nil
	default:
		return nil, newError("interp: unsupported getline redirect")
	}
}

// execPrint implements the Print opcode: fetch reads numArgs and the
// redirect token the compiler emitted (see internal/compiler/compile.go's
// printStmt, which pushes the arguments in order, then the destination
// expression if any).
func (p *interp) execPrint(fetch func() compiler.Opcode) error {
	numArgs := int(fetch())
	redirect := lexer.Token(fetch())
	var dest string
	if redirect != lexer.ILLEGAL {
		dest = p.toString(p.pop())
	}
	args := make([]value, numArgs)
	for i := numArgs - 1; i >= 0; i-- {
		args[i] = p.pop()
	}
	w, err := p.getOutputStream(redirect, dest)
	if err != nil {
		return err
	}
	var line string
	if len(args) == 0 {
		line = p.line
	} else {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = p.toOutputString(a)
		}
		line = iruntime.JoinFields(parts, p.outputFieldSep)
	}
	return p.printLine(w, line)
}

// execPrintf implements the Printf opcode analogously to execPrint,
// except the first popped argument is the format string consumed by
// p.sprintf rather than joined with OFS.
func (p *interp) execPrintf(fetch func() compiler.Opcode) error {
	numArgs := int(fetch())
	redirect := lexer.Token(fetch())
	var dest string
	if redirect != lexer.ILLEGAL {
		dest = p.toString(p.pop())
	}
	args := make([]value, numArgs)
	for i := numArgs - 1; i >= 0; i-- {
		args[i] = p.pop()
	}
	w, err := p.getOutputStream(redirect, dest)
	if err != nil {
		return err
	}
	out, err := p.sprintf(args)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

// execGetline implements every getline form (spec §4.6 "getline"). The
// redirect token selects the source: plain (next record from the main
// input loop), "<file", or "cmd|". op selects the destination: $0, one
// field, a scalar, or an array element. NR updates for every form
// except a plain "<file" read; FNR updates only for the fully plain
// (unredirected) form; matching historical AWK's asymmetric getline
// variable-update rules.
//
// Operand layout mirrors emission order in internal/compiler/compile.go's
// getline(): the redirect source expression (if any) is pushed first,
// so it sits *below* whatever index/key operand the destination needs
// — those must be popped first.
func (p *interp) execGetline(op compiler.Opcode, fetch func() compiler.Opcode) error {
	redirect := lexer.Token(fetch())

	// Stack-carried target operands (field index or array key) were
	// pushed after the redirect source expression, so they sit on top
	// and must be popped before it.
	var fieldIdx int
	var key string
	switch op {
	case compiler.GetlineField:
		fieldIdx = int(p.pop().num())
	case compiler.GetlineArrayGlobal, compiler.GetlineArrayLocal:
		key = p.toString(p.pop())
	}

	var src string
	if redirect != lexer.ILLEGAL {
		src = p.toString(p.pop())
	}

	var varIdx int
	switch op {
	case compiler.GetlineGlobal, compiler.GetlineLocal, compiler.GetlineSpecial,
		compiler.GetlineArrayGlobal, compiler.GetlineArrayLocal:
		varIdx = int(fetch())
	}

	var line string
	var ok bool
	var err error

	switch redirect {
	case lexer.ILLEGAL:
		// nextLine() already bumps NR/FNR, matching the plain form's
		// POSIX-mandated update of both.
		line, err = p.nextLine()
		if err == io.EOF {
			err = nil
		} else if err == nil {
			ok = true
		}
	case lexer.LESS, lexer.PIPE:
		var rs *reader.RecordScanner
		rs, err = p.getInputStream(redirect, src)
		if err == nil {
			if rs.Scan() {
				line = rs.Text()
				p.recordTerminator = rs.RT
				ok = true
			} else {
				err = rs.Err()
			}
		}
	}

	if err != nil {
		p.push(num(-1))
		return nil
	}
	if !ok {
		p.push(num(0))
		return nil
	}

	if redirect == lexer.PIPE {
		// "cmd | getline[...]" updates NR but not FNR; the plain form's
		// NR/FNR were already updated by nextLine() above, and a plain
		// "getline[...] < file" updates neither.
		p.lineNum++
	}

	switch op {
	case compiler.Getline:
		p.setLine(line, false)
	case compiler.GetlineField:
		if err := p.setField(fieldIdx, line); err != nil {
			return err
		}
	case compiler.GetlineGlobal:
		p.globals[varIdx] = numStr(line)
	case compiler.GetlineLocal:
		p.frame[varIdx] = numStr(line)
	case compiler.GetlineSpecial:
		if err := p.setSpecial(varIdx, numStr(line)); err != nil {
			return err
		}
	case compiler.GetlineArrayGlobal, compiler.GetlineArrayLocal:
		arr := p.arrayFor(op == compiler.GetlineArrayLocal, varIdx)
		arr[key] = numStr(line)
	}

	p.push(num(1))
	return nil
}
