// Package reader implements the record/field reader (spec §4.6): it
// splits input into records under the active RS and splits each record
// into fields under the active FS/input mode (whitespace, single-char,
// CSV, TSV, or regex RS/FS). It owns no interpreter state — NR/FNR/NF
// bookkeeping and the BEGINFILE/ENDFILE triggers live in interp, which
// drives one RecordScanner per open input source.
package reader

import (
	"bufio"
	"bytes"
	"io"
	"regexp"
	"strings"

	"github.com/agoawk/goawk/internal/ast"
	"github.com/agoawk/goawk/internal/runtime"
)

var paragraphSep = regexp.MustCompile(`\n{2,}`)

// RecordScanner reads successive records from r according to RS:
// a single byte (the common case, default "\n"), a regex for
// multi-character RS, or paragraph mode when RS is empty.
type RecordScanner struct {
	scanner *bufio.Scanner
	rs      string
	rsRegex *regexp.Regexp
	para    bool

	// RT holds the actual separator bytes matched for the record
	// returned by the most recent call to Scan (spec §4.6 "RT").
	RT string
}

const maxRecordLength = 64 * 1024 * 1024

// NewRecordScanner builds a scanner for r under the given RS. Pass a
// non-nil rsRegex when rs is longer than one byte (a multi-char RS is
// always a regex per spec §4.6); pass rs == "" for paragraph mode.
func NewRecordScanner(r io.Reader, rs string, rsRegex *regexp.Regexp) *RecordScanner {
	s := &RecordScanner{rs: rs, rsRegex: rsRegex, para: rs == ""}
	s.scanner = bufio.NewScanner(r)
	s.scanner.Buffer(make([]byte, 0, 64*1024), maxRecordLength)
	s.scanner.Split(s.split)
	return s
}

// Scan reads the next record. It returns false at EOF or on error;
// check Err() to distinguish the two.
func (s *RecordScanner) Scan() bool { return s.scanner.Scan() }

// Text returns the most recently scanned record (without its RS).
func (s *RecordScanner) Text() string { return s.scanner.Text() }

// Err returns the first non-EOF error encountered by Scan.
func (s *RecordScanner) Err() error { return s.scanner.Err() }

func (s *RecordScanner) split(data []byte, atEOF bool) (advance int, token []byte, err error) {
	switch {
	case s.para:
		return s.splitParagraph(data, atEOF)
	case s.rsRegex != nil:
		return s.splitRegex(data, atEOF)
	default:
		return s.splitChar(data, atEOF)
	}
}

func (s *RecordScanner) splitChar(data []byte, atEOF bool) (int, []byte, error) {
	rs := s.rs
	if rs == "" {
		rs = "\n"
	}
	sep := rs[0]
	if i := bytes.IndexByte(data, sep); i >= 0 {
		end := i
		s.RT = string(sep)
		if sep == '\n' && end > 0 && data[end-1] == '\r' {
			end--
			s.RT = "\r\n"
		}
		return i + 1, data[:end], nil
	}
	if atEOF {
		if len(data) == 0 {
			return 0, nil, nil
		}
		s.RT = ""
		return len(data), data, nil
	}
	return 0, nil, nil
}

func (s *RecordScanner) splitRegex(data []byte, atEOF bool) (int, []byte, error) {
	loc := s.rsRegex.FindIndex(data)
	if loc != nil && (loc[1] < len(data) || atEOF) {
		s.RT = string(data[loc[0]:loc[1]])
		return loc[1], data[:loc[0]], nil
	}
	if atEOF {
		if len(data) == 0 {
			return 0, nil, nil
		}
		s.RT = ""
		return len(data), data, nil
	}
	return 0, nil, nil
}

func (s *RecordScanner) splitParagraph(data []byte, atEOF bool) (int, []byte, error) {
	start := 0
	for start < len(data) && data[start] == '\n' {
		start++
	}
	if start > 0 && start == len(data) && !atEOF {
		return start, nil, nil
	}
	if loc := paragraphSep.FindIndex(data[start:]); loc != nil {
		recEnd := start + loc[0]
		sepEnd := start + loc[1]
		s.RT = string(data[start+loc[0] : sepEnd])
		return sepEnd, data[start:recEnd], nil
	}
	if atEOF {
		if start >= len(data) {
			return len(data), nil, nil
		}
		rec := bytes.TrimRight(data[start:], "\n")
		s.RT = string(data[start+len(rec):])
		return len(data), rec, nil
	}
	return start, nil, nil
}

// SplitFields splits one record into fields under the given input mode
// and FS (spec §4.6 "Configurable modes"). fsRegex is non-nil when fs
// is a multi-character field separator (treated as a regex).
func SplitFields(record string, mode ast.InputMode, fs string, fsRegex *regexp.Regexp) []string {
	switch mode {
	case ast.InputCSV:
		return runtime.SplitCSVLine(strings.TrimSuffix(record, "\r"))
	case ast.InputTSV:
		return runtime.SplitTSVLine(strings.TrimSuffix(record, "\r"))
	case ast.InputPipe:
		// "records" mode: the whole record is one opaque field, for
		// pipe/NUL-delimited streams that aren't further tokenized.
		if record == "" {
			return nil
		}
		return []string{record}
	}

	switch {
	case fsRegex != nil:
		return fsRegex.Split(record, -1)
	case fs == " ":
		return strings.Fields(record)
	case fs == "":
		return splitChars(record)
	case len(fs) == 1:
		if record == "" {
			return nil
		}
		return strings.Split(record, fs)
	default:
		return strings.Fields(record)
	}
}

// splitChars implements gawk's FS="" extension: one field per character.
func splitChars(record string) []string {
	runes := []rune(record)
	out := make([]string, len(runes))
	for i, r := range runes {
		out[i] = string(r)
	}
	return out
}

// ParagraphFieldRegex returns the FS regex paragraph mode augments a
// single-space FS with (spec §6 "RS=\"\" enables paragraph mode, FS
// augmented with newline"): whitespace runs OR a bare newline split.
func ParagraphFieldRegex(fs string) *regexp.Regexp {
	if fs == " " {
		return regexp.MustCompile(`[ \t]+|\n`)
	}
	return nil
}
