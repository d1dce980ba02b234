// Package parallel fans a compiled program out across worker goroutines
// when the program has declared a PREPARE block (spec §4.10 "Parallel
// execution (optional)"): PREPARE is read as the author's signal that
// per-record work is chunk-independent, so ARGV's file list can be split
// and each chunk run by its own interpreter value universe.
//
// Each worker executes the full program (Prepare/Begin/main-loop/End)
// against its slice of files, writing to its own buffer; Run joins the
// workers with an errgroup.Group the way the rest of the retrieval pack
// does for bounded fan-out, then returns every worker's files, output
// buffer and exit status as a []Result. Unlike a single-process run,
// BEGIN/END side effects (and any global state they touch) happen once
// per worker, not once overall; folding the per-worker Results together
// is left to the caller (Reduce packages the numeric-sum case), and this
// package does not merge interpreter state.
package parallel

import (
	"bytes"
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/agoawk/goawk/internal/compiler"
	"github.com/agoawk/goawk/interp"
)

// Result is one worker's outcome.
type Result struct {
	Files  []string
	Output []byte
	Status int
}

// Options configures Run.
type Options struct {
	// Workers caps concurrent interpreter instances; 0 means
	// runtime.GOMAXPROCS(0).
	Workers int

	// Config is cloned per worker: Args/Output are overridden per chunk,
	// everything else (Stdin, Vars, Funcs, Environ, safety flags) is
	// shared.
	Config *interp.Config
}

// Supported reports whether prog declares a PREPARE block, the gate
// spec §4.10/§5 requires before splitting ARGV across workers at all.
func Supported(prog *compiler.CompiledProgram) bool {
	return len(prog.Compiled.Prepare) > 0
}

// Run partitions files into up to Workers contiguous chunks (with no
// files at all, a single worker runs with empty Args and so reads
// Config.Stdin, as a serial run would) and executes prog against each chunk concurrently, in its own
// *interp.Config/ExecProgram call. It returns one Result per chunk in
// file order, or the first error any worker returned.
func Run(ctx context.Context, prog *compiler.CompiledProgram, files []string, opts Options) ([]Result, error) {
	if !Supported(prog) {
		return nil, fmt.Errorf("parallel: program has no PREPARE block")
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers < 1 {
		workers = 1
	}
	if workers > len(files) && len(files) > 0 {
		workers = len(files)
	}

	chunks := chunkFiles(files, workers)
	results := make([]Result, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			var buf bytes.Buffer
			cfg := *opts.Config
			cfg.Args = chunk
			cfg.Output = &buf

			status, err := interp.ExecProgram(prog, &cfg)
			if err != nil {
				return fmt.Errorf("parallel: worker %d: %w", i, err)
			}
			results[i] = Result{Files: chunk, Output: buf.Bytes(), Status: status}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// chunkFiles splits files into up to n roughly-equal contiguous slices,
// preserving order (a worker's file set stays contiguous in ARGV order
// so FNR-reset-per-file behavior within a chunk matches the serial
// run's behavior for those files).
func chunkFiles(files []string, n int) [][]string {
	if len(files) == 0 {
		return [][]string{nil}
	}
	if n > len(files) {
		n = len(files)
	}
	chunks := make([][]string, 0, n)
	base := len(files) / n
	extra := len(files) % n
	start := 0
	for i := 0; i < n; i++ {
		size := base
		if i < extra {
			size++
		}
		chunks = append(chunks, files[start:start+size])
		start += size
	}
	return chunks
}

// Reduce folds numeric-sum global results across workers' Results using
// a caller-supplied accessor, matching the "sum for globals only ever
// touched via +=/++" default reducer policy (SPEC_FULL.md §4.10a). Other
// policies (last-writer, union) are ordinary Go code over the same
// []Result slice; Reduce only packages the common numeric case.
func Reduce(results []Result, extract func(Result) float64) float64 {
	var sum float64
	for _, r := range results {
		sum += extract(r)
	}
	return sum
}
