// Package runner invokes external linters on sets of files.
package runner

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fmontoto/autolint/internal/config"
	"github.com/fmontoto/autolint/internal/model"
)

// ResultFunc is called as results become available, in submission order.
type ResultFunc func(path string, out model.Outcome)

// Runner invokes one linter over a set of files and returns an outcome per
// file, in the order the files were given. A nonzero linter exit is part of
// the result; Run only fails when ctx is cancelled.
type Runner interface {
	Run(ctx context.Context, linter config.Linter, files []string, onResult ResultFunc) (model.FileResults, error)
}

// Observer is notified around every linter invocation. The returned
// function is called with the invocation's outcome.
type Observer interface {
	Invocation(ctx context.Context, linter string, files []string) (context.Context, func(model.Outcome))
}

// Options tune how linters are executed.
type Options struct {
	// Jobs caps concurrent invocations of one linter. Values below 2 run
	// files one after another.
	Jobs int
	// Timeout bounds a single invocation; zero means no limit.
	Timeout time.Duration
	// Dir is the working directory of the linters; empty inherits ours.
	Dir string
	// Observer, when set, receives every invocation.
	Observer Observer
}

func (o Options) invoke(ctx context.Context, linter config.Linter, argv []string, files []string) model.Outcome {
	finish := func(model.Outcome) {}
	if o.Observer != nil {
		ctx, finish = o.Observer.Invocation(ctx, linter.Name, files)
	}
	out := execute(ctx, argv, o)
	finish(out)
	return out
}

// ByFile runs the linter once per file. It is the default runner.
type ByFile struct {
	opts Options
}

func NewByFile(opts Options) *ByFile {
	return &ByFile{opts: opts}
}

func (r *ByFile) Run(ctx context.Context, linter config.Linter, files []string, onResult ResultFunc) (model.FileResults, error) {
	tmpl := NewTemplate(linter.Argv())
	if r.opts.Jobs < 2 || len(files) < 2 {
		results := make(model.FileResults, 0, len(files))
		for _, f := range files {
			if err := ctx.Err(); err != nil {
				return results, err
			}
			out := r.opts.invoke(ctx, linter, tmpl.For(f), []string{f})
			if err := ctx.Err(); err != nil {
				return results, err
			}
			results = append(results, model.FileResult{Path: f, Outcome: out})
			if onResult != nil {
				onResult(f, out)
			}
		}
		return results, nil
	}

	results := make(model.FileResults, len(files))
	emit := newOrderedEmitter(files, onResult)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Jobs)
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out := r.opts.invoke(gctx, linter, tmpl.For(f), []string{f})
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = model.FileResult{Path: f, Outcome: out}
			emit.done(i, out)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return emit.completed(results), err
	}
	if err := ctx.Err(); err != nil {
		return emit.completed(results), err
	}
	return results, nil
}

// Batch runs the linter once with every file on the command line. Each
// file records the shared outcome; onResult is called once, for the
// first file, so streamed output is not repeated.
type Batch struct {
	opts Options
}

func NewBatch(opts Options) *Batch {
	return &Batch{opts: opts}
}

func (r *Batch) Run(ctx context.Context, linter config.Linter, files []string, onResult ResultFunc) (model.FileResults, error) {
	if len(files) == 0 {
		return model.FileResults{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tmpl := NewTemplate(linter.Argv())
	out := r.opts.invoke(ctx, linter, tmpl.ForAll(files), files)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make(model.FileResults, 0, len(files))
	for _, f := range files {
		results = append(results, model.FileResult{Path: f, Outcome: out})
	}
	if onResult != nil {
		onResult(files[0], out)
	}
	return results, nil
}

// orderedEmitter forwards concurrently produced results to a ResultFunc in
// submission order, holding back any result whose predecessors are still
// running.
type orderedEmitter struct {
	mu    sync.Mutex
	files []string
	fn    ResultFunc
	ready []bool
	outs  []model.Outcome
	next  int
}

func newOrderedEmitter(files []string, fn ResultFunc) *orderedEmitter {
	return &orderedEmitter{
		files: files,
		fn:    fn,
		ready: make([]bool, len(files)),
		outs:  make([]model.Outcome, len(files)),
	}
}

func (e *orderedEmitter) done(i int, out model.Outcome) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ready[i] = true
	e.outs[i] = out
	for e.next < len(e.ready) && e.ready[e.next] {
		if e.fn != nil {
			e.fn(e.files[e.next], e.outs[e.next])
		}
		e.next++
	}
}

// completed returns the contiguous prefix of results that finished before
// the run was interrupted.
func (e *orderedEmitter) completed(results model.FileResults) model.FileResults {
	e.mu.Lock()
	defer e.mu.Unlock()
	return results[:e.next]
}
