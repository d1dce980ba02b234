// Package runtime is the built-in library (spec §4.7): string, numeric,
// regex, and formatting helpers called by the interpreter. The JIT
// backend (internal/jit) makes no calls into this package. Nothing here
// depends on internal/compiler or interp, so both can import it without
// a cycle.
package runtime

import (
	"regexp"
	"sync"

	"github.com/dlclark/regexp2"
)

// RegexCache de-duplicates compiled regexes by source text (spec §3
// "Regexes", §9 "Regex caching"). It is the one object shared across
// parallel workers (spec §5), so access is mutex-guarded. A simple
// capacity cap stands in for an LRU: once full, newly compiled regexes
// just aren't cached (still returned, just recompiled next time).
type RegexCache struct {
	mu    sync.Mutex
	cap   int
	byRE2 map[string]*regexp2.Regexp
	byRE  map[string]*regexp.Regexp
}

const defaultRegexCacheCap = 256

// NewRegexCache returns a cache ready for concurrent use.
func NewRegexCache() *RegexCache {
	return &RegexCache{
		cap:   defaultRegexCacheCap,
		byRE2: make(map[string]*regexp2.Regexp, 32),
		byRE:  make(map[string]*regexp.Regexp, 32),
	}
}

// Compile returns a regexp2.Regexp for src, AWK ERE semantics (leftmost-
// longest isn't guaranteed by regexp2's backtracking engine the way
// POSIX mandates, but it gets much closer than RE2 for `{n,m}` bounds
// and AWK's other ERE extensions than the stdlib regexp package does).
func (c *RegexCache) Compile(src string) (*regexp2.Regexp, error) {
	c.mu.Lock()
	if re, ok := c.byRE2[src]; ok {
		c.mu.Unlock()
		return re, nil
	}
	c.mu.Unlock()

	re, err := regexp2.Compile(ConvertEREToRegexp2(src), regexp2.RE2)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if len(c.byRE2) < c.cap {
		c.byRE2[src] = re
	}
	c.mu.Unlock()
	return re, nil
}

// CompileRE2 returns a stdlib regexp.Regexp, used for the record/field
// splitters (internal/reader) where RE2's linear-time guarantee matters
// more than exact POSIX ERE fidelity on pathological patterns.
func (c *RegexCache) CompileRE2(src string) (*regexp.Regexp, error) {
	c.mu.Lock()
	if re, ok := c.byRE[src]; ok {
		c.mu.Unlock()
		return re, nil
	}
	c.mu.Unlock()

	re, err := regexp.Compile(src)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if len(c.byRE) < c.cap {
		c.byRE[src] = re
	}
	c.mu.Unlock()
	return re, nil
}

// ConvertEREToRegexp2 is a passthrough today: regexp2's RE2 option
// already accepts the POSIX ERE subset AWK scripts use. It exists as a
// seam for the handful of gawk extensions (e.g. character class
// escapes) that need rewriting before regexp2 will accept them.
func ConvertEREToRegexp2(src string) string {
	return src
}
